// ABOUTME: Error kinds surfaced by the community service
// ABOUTME: Validation failures name the offending JSON fields

package community

import (
	"errors"
	"fmt"
	"strings"

	"github.com/go-playground/validator/v10"
)

var (
	// ErrInvalidInput is returned for missing, oversized, or malformed fields.
	ErrInvalidInput = errors.New("invalid input")

	// ErrForbidden is returned when a user edits content they do not own.
	ErrForbidden = errors.New("forbidden")
)

var validate = validator.New()

// invalidInput converts a validation failure into an ErrInvalidInput.
func invalidInput(err error) error {
	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		return fmt.Errorf("%w: %v", ErrInvalidInput, err)
	}

	problems := make([]string, 0, len(verrs))
	for _, fe := range verrs {
		problems = append(problems, describe(fe))
	}
	return fmt.Errorf("%w: %s", ErrInvalidInput, strings.Join(problems, "; "))
}

func describe(fe validator.FieldError) string {
	field := fe.Field()
	switch fe.Tag() {
	case "required":
		return field + " is required"
	case "max":
		return fmt.Sprintf("%s exceeds %s characters", field, fe.Param())
	case "email":
		return field + " must be an email address"
	case "url":
		return field + " must be a URL"
	default:
		return fmt.Sprintf("%s failed %s", field, fe.Tag())
	}
}
