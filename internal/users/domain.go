package users

import (
	"time"

	"github.com/learnhub/learnhub/internal/rbac"
)

// User is a platform account.
type User struct {
	ID           int64
	Email        string
	PasswordHash string
	Phone        *string
	City         *string
	FirstName    string
	LastName     string
	IsActive     bool
	IsStaff      bool
	LastLogin    *time.Time
	CreatedAt    time.Time
}

// Resource returns the authorization view of the profile. The subject owns
// their own profile.
func (u User) Resource() *rbac.Resource {
	id := u.ID
	return rbac.OwnedBy(rbac.KindUserProfile, &id)
}

// Payment is a payment history row shown on a profile.
type Payment struct {
	ID        int64      `json:"id"`
	UserID    *int64     `json:"user"`
	CourseID  *int64     `json:"course"`
	LessonID  *int64     `json:"lesson"`
	Amount    int64      `json:"amount"`
	Method    string     `json:"method"`
	SessionID *string    `json:"session_id"`
	Link      *string    `json:"link"`
	Date      *time.Time `json:"date"`
}
