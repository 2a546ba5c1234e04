package validation

import (
	"errors"
	"fmt"
	"reflect"
	"strings"

	"github.com/go-playground/validator/v10"
)

// validate is a singleton validator instance
var validate *validator.Validate

func init() {
	validate = validator.New()
	// Report JSON names so errors match what callers actually sent.
	validate.RegisterTagNameFunc(func(f reflect.StructField) string {
		name := strings.SplitN(f.Tag.Get("json"), ",", 2)[0]
		if name == "-" {
			return ""
		}
		if name == "" {
			return f.Name
		}
		return name
	})
}

// Struct validates v against its `validate` tags and returns the first
// failure in a readable form.
func Struct(v any) error {
	if v == nil {
		return errors.New("value cannot be nil")
	}
	if err := validate.Struct(v); err != nil {
		return formatValidationError(err)
	}
	return nil
}

// FieldError is the readable form of a single tag failure.
type FieldError struct {
	Field string
	Tag   string
	Param string
}

func (e *FieldError) Error() string {
	return e.Field + ": " + e.Reason()
}

// Reason describes the failure without the field name.
func (e *FieldError) Reason() string {
	switch e.Tag {
	case "required":
		return "field is required"
	case "oneof":
		return fmt.Sprintf("must be one of [%s]", e.Param)
	case "min":
		return fmt.Sprintf("must be at least %s", e.Param)
	case "max":
		return fmt.Sprintf("must not exceed %s", e.Param)
	case "gte":
		return fmt.Sprintf("must be >= %s", e.Param)
	case "lte":
		return fmt.Sprintf("must be <= %s", e.Param)
	default:
		return fmt.Sprintf("validation failed (%s)", e.Tag)
	}
}

// formatValidationError converts validator errors to a more user-friendly format
func formatValidationError(err error) error {
	if err == nil {
		return nil
	}

	var validationErrs validator.ValidationErrors
	if !errors.As(err, &validationErrs) || len(validationErrs) == 0 {
		return err
	}

	e := validationErrs[0]
	return &FieldError{Field: e.Field(), Tag: e.Tag(), Param: e.Param()}
}
