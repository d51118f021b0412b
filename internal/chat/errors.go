// ABOUTME: Error kinds surfaced by the conversation resolver
// ABOUTME: Separates invalid input from store read and write failures

package chat

import (
	"errors"
	"fmt"
	"strings"

	"github.com/go-playground/validator/v10"
)

// ErrInvalidInput is returned for missing or malformed identifiers or text.
var ErrInvalidInput = errors.New("invalid input")

// QueryError reports a failed store read. No retry is attempted.
type QueryError struct {
	Op  string
	Err error
}

func (e *QueryError) Error() string {
	return fmt.Sprintf("store query failed: %s: %v", e.Op, e.Err)
}

func (e *QueryError) Unwrap() error { return e.Err }

// WriteError reports a failed store create or append. No retry is attempted.
type WriteError struct {
	Op  string
	Err error
}

func (e *WriteError) Error() string {
	return fmt.Sprintf("store write failed: %s: %v", e.Op, e.Err)
}

func (e *WriteError) Unwrap() error { return e.Err }

// invalidInput converts a validation failure into an ErrInvalidInput naming
// the offending fields.
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
	field := fieldName(fe.Field())
	switch fe.Tag() {
	case "required":
		return field + " is required"
	case "excludes":
		return fmt.Sprintf("%s must not contain %q", field, fe.Param())
	case "max":
		return fmt.Sprintf("%s exceeds %s characters", field, fe.Param())
	case "nefield":
		return "sender and receiver must differ"
	default:
		return fmt.Sprintf("%s failed %s", field, fe.Tag())
	}
}

func fieldName(f string) string {
	switch f {
	case "SenderID":
		return "sender_id"
	case "ReceiverID":
		return "receiver_id"
	case "Text":
		return "text"
	case "":
		return "identifier"
	default:
		return strings.ToLower(f)
	}
}
