package handler

import (
	"errors"
	"reflect"
	"strings"

	"github.com/go-playground/validator/v10"
)

// Validator checks `validate` struct tags on request bodies. It is installed
// as echo's Validator, so handlers call c.Validate(&req). Failures come back
// as validation errors naming the first offending JSON field.
type Validator struct {
	v *validator.Validate
}

func NewValidator() *Validator {
	v := validator.New(validator.WithRequiredStructEnabled())
	v.RegisterTagNameFunc(func(f reflect.StructField) string {
		name, _, _ := strings.Cut(f.Tag.Get("json"), ",")
		if name == "-" {
			return ""
		}
		return name
	})
	return &Validator{v: v}
}

func (cv *Validator) Validate(i any) error {
	err := cv.v.Struct(i)
	if err == nil {
		return nil
	}
	var ve validator.ValidationErrors
	if errors.As(err, &ve) && len(ve) > 0 {
		fe := ve[0]
		return invalidField(fe.Field(), fieldMessage(fe))
	}
	return err
}

func fieldMessage(fe validator.FieldError) string {
	f := fe.Field()
	switch fe.Tag() {
	case "required":
		return f + " is required"
	case "email":
		return f + " must be a valid email address"
	case "min":
		return f + " must be at least " + fe.Param() + " characters"
	case "max":
		return f + " must be at most " + fe.Param() + " characters"
	case "gt":
		return f + " must be greater than " + fe.Param()
	case "lte":
		return f + " must be at most " + fe.Param()
	case "datetime":
		return f + " must be YYYY-MM-DD"
	}
	return f + " is invalid"
}
