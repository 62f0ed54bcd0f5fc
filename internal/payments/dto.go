package payments

// CreateInput is the payment-create payload. Exactly one of Course and Lesson
// must be set. Amount is in major currency units and capped so the minor-unit
// price stays within the provider's eight-digit limit.
type CreateInput struct {
	Course *int64 `json:"course" validate:"omitempty,gt=0"`
	Lesson *int64 `json:"lesson" validate:"omitempty,gt=0"`
	Amount int64  `json:"amount" validate:"required,gt=0,max=999999"`
	Method Method `json:"method" validate:"required,oneof=cash transfer"`
}
