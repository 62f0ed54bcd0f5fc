package httpx

import (
	"errors"
	"reflect"
	"strings"

	"github.com/go-playground/validator/v10"
)

// Validator wraps go-playground validation so request DTOs report
// json field names and FieldError values.
type Validator struct {
	validate *validator.Validate
}

// NewValidator builds a Validator resolving field names from json tags.
func NewValidator() *Validator {
	v := validator.New(validator.WithRequiredStructEnabled())
	v.RegisterTagNameFunc(func(fld reflect.StructField) string {
		name := strings.SplitN(fld.Tag.Get("json"), ",", 2)[0]
		if name == "-" || name == "" {
			return fld.Name
		}
		return name
	})
	return &Validator{validate: v}
}

// Struct validates s and returns the first failing field as a FieldError.
func (v *Validator) Struct(s any) error {
	err := v.validate.Struct(s)
	if err == nil {
		return nil
	}
	var verrs validator.ValidationErrors
	if errors.As(err, &verrs) && len(verrs) > 0 {
		fe := verrs[0]
		return NewFieldError(fe.Field(), describe(fe))
	}
	return err
}

func describe(fe validator.FieldError) string {
	switch fe.Tag() {
	case "required":
		return "this field is required"
	case "email":
		return "enter a valid email address"
	case "max":
		return "ensure this value has at most " + fe.Param() + " characters"
	case "min":
		return "ensure this value has at least " + fe.Param() + " characters"
	case "gt":
		return "ensure this value is greater than " + fe.Param()
	case "gte":
		return "ensure this value is greater than or equal to " + fe.Param()
	case "oneof":
		return "value must be one of: " + fe.Param()
	case "url":
		return "enter a valid URL"
	default:
		return "failed on the " + fe.Tag() + " rule"
	}
}
