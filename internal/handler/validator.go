package handler

import (
	"reflect"
	"strings"

	"github.com/go-playground/validator/v10"
)

// Validator wraps go-playground/validator, reporting struct field errors
// under their JSON tag name rather than the Go field name.
type Validator struct {
	validate *validator.Validate
}

// NewValidator builds a Validator whose field errors read like the wire
// format: json tag names, not Go identifiers.
func NewValidator() *Validator {
	v := validator.New()
	v.RegisterTagNameFunc(func(fld reflect.StructField) string {
		name := strings.SplitN(fld.Tag.Get("json"), ",", 2)[0]
		if name == "-" {
			return ""
		}
		return name
	})
	return &Validator{validate: v}
}

// Validate runs struct tag validation on i and, on failure, returns a
// *domain.ValidationError-flavored message naming the first offending
// field. Returns nil when i satisfies every tag.
func (v *Validator) Validate(i any) error {
	err := v.validate.Struct(i)
	if err == nil {
		return nil
	}

	var fieldErrs validator.ValidationErrors
	if !asValidationErrors(err, &fieldErrs) {
		return err
	}

	fe := fieldErrs[0]
	return &fieldValidationError{field: fe.Field(), tag: fe.Tag()}
}

func asValidationErrors(err error, target *validator.ValidationErrors) bool {
	ve, ok := err.(validator.ValidationErrors)
	if !ok {
		return false
	}
	*target = ve
	return true
}

// fieldValidationError is a request validation failure surfaced to the
// client as a 400 with a message naming the field and constraint.
type fieldValidationError struct {
	field string
	tag   string
}

func (e *fieldValidationError) Error() string {
	return e.field + " failed validation: " + e.tag
}
