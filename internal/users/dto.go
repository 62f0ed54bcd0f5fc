package users

// RegisterInput is the anonymous sign-up payload.
type RegisterInput struct {
	Email     string  `json:"email" validate:"required,email,max=254"`
	Password  string  `json:"password" validate:"required,min=8,max=72"`
	Phone     *string `json:"phone" validate:"omitempty,max=25"`
	City      *string `json:"city" validate:"omitempty,max=100"`
	FirstName string  `json:"first_name" validate:"max=150"`
	LastName  string  `json:"last_name" validate:"max=150"`
}

// UpdateInput carries profile changes. Nil pointers leave fields untouched.
type UpdateInput struct {
	Email     *string `json:"email" validate:"omitempty,email,max=254"`
	Password  *string `json:"password" validate:"omitempty,min=8,max=72"`
	Phone     *string `json:"phone" validate:"omitempty,max=25"`
	City      *string `json:"city" validate:"omitempty,max=100"`
	FirstName *string `json:"first_name" validate:"omitempty,max=150"`
	LastName  *string `json:"last_name" validate:"omitempty,max=150"`
}
