package rbac

// ViewKind selects which profile fields an actor may see.
type ViewKind uint8

// Profile visibility tiers.
const (
	ViewGeneral ViewKind = iota
	ViewModerator
	ViewOwner
)

func (v ViewKind) String() string {
	switch v {
	case ViewOwner:
		return "owner"
	case ViewModerator:
		return "moderator"
	default:
		return "general"
	}
}

// SelectView picks the profile tier for actor looking at subjectID. The
// subject always gets the owner view, including moderators viewing themselves.
func SelectView(actor Actor, subjectID int64) ViewKind {
	switch {
	case actor.Authenticated && actor.ID == subjectID:
		return ViewOwner
	case actor.Authenticated && actor.IsModerator():
		return ViewModerator
	default:
		return ViewGeneral
	}
}
