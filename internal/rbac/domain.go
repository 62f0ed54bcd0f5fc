package rbac

import (
	"fmt"

	"github.com/learnhub/learnhub/internal/platform/httpx"
)

// Role names a group membership granting cross-resource rights.
type Role string

// RoleModerator curates content without authoring it.
const RoleModerator Role = "moderators"

// RoleSet is the set of roles resolved for an actor at authentication time.
type RoleSet map[Role]struct{}

// NewRoleSet builds a RoleSet from the given roles.
func NewRoleSet(roles ...Role) RoleSet {
	set := make(RoleSet, len(roles))
	for _, r := range roles {
		set[r] = struct{}{}
	}
	return set
}

// Has reports whether role r is present.
func (s RoleSet) Has(r Role) bool {
	_, ok := s[r]
	return ok
}

// Actor describes the identity performing a request.
type Actor struct {
	ID            int64
	Authenticated bool
	Roles         RoleSet
}

// Anonymous returns the actor used when no credentials were presented.
func Anonymous() Actor {
	return Actor{}
}

// NewUserActor builds an authenticated actor.
func NewUserActor(id int64, roles ...Role) Actor {
	return Actor{ID: id, Authenticated: true, Roles: NewRoleSet(roles...)}
}

// IsModerator reports whether the actor holds the moderator role.
func (a Actor) IsModerator() bool {
	return a.Roles.Has(RoleModerator)
}

// Action is an operation on a resource.
type Action string

// Supported actions.
const (
	ActionList     Action = "list"
	ActionRetrieve Action = "retrieve"
	ActionCreate   Action = "create"
	ActionUpdate   Action = "update"
	ActionDelete   Action = "delete"
)

// ResourceKind enumerates protected resources.
type ResourceKind string

// Protected resource kinds.
const (
	KindCourse       ResourceKind = "course"
	KindLesson       ResourceKind = "lesson"
	KindUserProfile  ResourceKind = "user_profile"
	KindPayment      ResourceKind = "payment"
	KindSubscription ResourceKind = "subscription"
)

// Resource is the authorization view of a concrete object. A nil OwnerID
// means the owner was cleared and nobody owns it.
type Resource struct {
	Kind    ResourceKind
	OwnerID *int64
}

// OwnedBy builds a Resource of the given kind.
func OwnedBy(kind ResourceKind, ownerID *int64) *Resource {
	return &Resource{Kind: kind, OwnerID: ownerID}
}

// Decision is the outcome of an authorization check.
type Decision uint8

// Decisions. Unauthenticated is reported instead of Forbidden whenever the
// actor presented no valid credentials.
const (
	Forbidden Decision = iota
	Allow
	Unauthenticated
)

func (d Decision) String() string {
	switch d {
	case Allow:
		return "allow"
	case Unauthenticated:
		return "unauthenticated"
	default:
		return "forbidden"
	}
}

// Err converts the decision into an error matching the httpx sentinels, or
// nil for Allow.
func (d Decision) Err(action Action, kind ResourceKind) error {
	switch d {
	case Allow:
		return nil
	case Unauthenticated:
		return fmt.Errorf("%w: authentication credentials were not provided", httpx.ErrUnauthorized)
	default:
		return fmt.Errorf("%w: you do not have permission to %s this %s", httpx.ErrForbidden, action, humanKind(kind))
	}
}

func humanKind(kind ResourceKind) string {
	if kind == KindUserProfile {
		return "user profile"
	}
	return string(kind)
}
