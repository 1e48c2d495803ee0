package contracts

import (
	"errors"
	"strings"
)

// ErrValidation matches any *ValidationError with errors.Is.
var ErrValidation = errors.New("validation failed")

// FieldError is one violated rule. Field is a dotted path such as
// "confirm_password" or "users[0].email"; it is empty for whole-input problems.
type FieldError struct {
	Field   string `json:"field"`
	Rule    string `json:"rule"`
	Message string `json:"message"`
}

// ValidationError lists every rule an input violated. It never leaves the
// console: it is produced and consumed locally before any network call.
type ValidationError struct {
	Schema string       `json:"schema"`
	Errors []FieldError `json:"errors"`
}

func (e *ValidationError) Error() string {
	parts := make([]string, 0, len(e.Errors))
	for _, fe := range e.Errors {
		if fe.Field == "" {
			parts = append(parts, fe.Message)
			continue
		}
		parts = append(parts, fe.Field+": "+fe.Message)
	}
	return "validation failed: " + strings.Join(parts, "; ")
}

func (e *ValidationError) Is(target error) bool { return target == ErrValidation }

// For returns the violations reported against field.
func (e *ValidationError) For(field string) []FieldError {
	if e == nil {
		return nil
	}
	var out []FieldError
	for _, fe := range e.Errors {
		if fe.Field == field {
			out = append(out, fe)
		}
	}
	return out
}

// Has reports whether field has at least one violation.
func (e *ValidationError) Has(field string) bool {
	return len(e.For(field)) > 0
}

// Fields maps each failing field to its first message, the shape forms render.
func (e *ValidationError) Fields() map[string]string {
	if e == nil {
		return nil
	}
	out := make(map[string]string, len(e.Errors))
	for _, fe := range e.Errors {
		if _, ok := out[fe.Field]; !ok {
			out[fe.Field] = fe.Message
		}
	}
	return out
}

// AsValidationError unwraps err into a *ValidationError when it is one.
func AsValidationError(err error) (*ValidationError, bool) {
	var ve *ValidationError
	if errors.As(err, &ve) {
		return ve, true
	}
	return nil, false
}
