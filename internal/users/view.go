package users

import "github.com/learnhub/learnhub/internal/rbac"

// OwnerView is what a user sees of their own profile.
type OwnerView struct {
	ID        int64     `json:"id"`
	Password  string    `json:"password"`
	Email     string    `json:"email"`
	Phone     *string   `json:"phone"`
	City      *string   `json:"city"`
	FirstName string    `json:"first_name"`
	LastName  string    `json:"last_name"`
	Payments  []Payment `json:"payments"`
}

// ModeratorView exposes contact details and payments without credentials.
type ModeratorView struct {
	ID        int64     `json:"id"`
	Email     string    `json:"email"`
	Phone     *string   `json:"phone"`
	FirstName string    `json:"first_name"`
	LastName  string    `json:"last_name"`
	Payments  []Payment `json:"payments"`
}

// GeneralView is the public profile card.
type GeneralView struct {
	ID        int64  `json:"id"`
	Email     string `json:"email"`
	FirstName string `json:"first_name"`
}

// needsPayments reports whether the view carries payment history.
func needsPayments(kind rbac.ViewKind) bool {
	return kind == rbac.ViewOwner || kind == rbac.ViewModerator
}

// project renders u for the given tier.
func project(kind rbac.ViewKind, u User, payments []Payment) any {
	if payments == nil {
		payments = []Payment{}
	}
	switch kind {
	case rbac.ViewOwner:
		return OwnerView{
			ID:        u.ID,
			Password:  u.PasswordHash,
			Email:     u.Email,
			Phone:     u.Phone,
			City:      u.City,
			FirstName: u.FirstName,
			LastName:  u.LastName,
			Payments:  payments,
		}
	case rbac.ViewModerator:
		return ModeratorView{
			ID:        u.ID,
			Email:     u.Email,
			Phone:     u.Phone,
			FirstName: u.FirstName,
			LastName:  u.LastName,
			Payments:  payments,
		}
	default:
		return GeneralView{ID: u.ID, Email: u.Email, FirstName: u.FirstName}
	}
}
