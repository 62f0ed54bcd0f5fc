package payments

import "time"

// Method is how a payment was settled.
type Method string

// Supported payment methods.
const (
	MethodCash     Method = "cash"
	MethodTransfer Method = "transfer"
)

// Payment records a purchase of a course or a single lesson.
type Payment struct {
	ID        int64      `json:"id"`
	UserID    *int64     `json:"user"`
	CourseID  *int64     `json:"course"`
	LessonID  *int64     `json:"lesson"`
	Amount    int64      `json:"amount"`
	Method    Method     `json:"method"`
	SessionID *string    `json:"session_id"`
	Link      *string    `json:"link"`
	Date      *time.Time `json:"date"`
}

// Ordering values accepted by List.
const (
	OrderByDate     = "date"
	OrderByDateDesc = "-date"
)

// Filter narrows payment listings.
type Filter struct {
	CourseID *int64
	LessonID *int64
	Method   Method
	Ordering string
}

// ReconcileReport summarises one reconciliation run.
type ReconcileReport struct {
	Pending   int
	Skipped   int
	Completed int
	Failed    int
}
