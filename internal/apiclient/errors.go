package apiclient

import (
	"errors"
	"fmt"
	"net/http"

	"github.com/FACorreiaa/go-admin-console/internal/contracts"
)

var (
	ErrValidation     = errors.New("request rejected by the API")
	ErrAuthentication = errors.New("authentication required")
	ErrAuthorization  = errors.New("not authorized")
	ErrNotFound       = errors.New("resource not found")
	ErrConflict       = errors.New("resource conflict")
	ErrServer         = errors.New("API server error")
	ErrNetwork        = errors.New("API unreachable")
	ErrUnexpected     = errors.New("unexpected API response")
)

// Kind classifies an API failure.
type Kind int

const (
	KindUnexpected Kind = iota
	KindValidation
	KindAuthentication
	KindAuthorization
	KindNotFound
	KindConflict
	KindServer
)

func (k Kind) String() string {
	switch k {
	case KindValidation:
		return "validation"
	case KindAuthentication:
		return "authentication"
	case KindAuthorization:
		return "authorization"
	case KindNotFound:
		return "not_found"
	case KindConflict:
		return "conflict"
	case KindServer:
		return "server"
	}
	return "unexpected"
}

func (k Kind) sentinel() error {
	switch k {
	case KindValidation:
		return ErrValidation
	case KindAuthentication:
		return ErrAuthentication
	case KindAuthorization:
		return ErrAuthorization
	case KindNotFound:
		return ErrNotFound
	case KindConflict:
		return ErrConflict
	case KindServer:
		return ErrServer
	}
	return ErrUnexpected
}

// KindForStatus maps an HTTP status code to a Kind.
func KindForStatus(status int) Kind {
	switch {
	case status == http.StatusBadRequest, status == http.StatusUnprocessableEntity:
		return KindValidation
	case status == http.StatusUnauthorized:
		return KindAuthentication
	case status == http.StatusForbidden:
		return KindAuthorization
	case status == http.StatusNotFound:
		return KindNotFound
	case status == http.StatusConflict:
		return KindConflict
	case status >= 500:
		return KindServer
	}
	return KindUnexpected
}

// APIError is a non-2xx response from the API. Code and Message come from
// the error envelope; Details carries per-field problems on validation errors.
type APIError struct {
	Op      string
	Kind    Kind
	Status  int
	Code    string
	Message string
	Details map[string]any
}

func (e *APIError) Error() string {
	return fmt.Sprintf("%s: %s (%d %s): %s", e.Op, e.Kind, e.Status, e.Code, e.Message)
}

func (e *APIError) Unwrap() error { return e.Kind.sentinel() }

// NetworkError is a request that never produced a usable response: the
// transport failed or the body could not be decoded.
type NetworkError struct {
	Op  string
	Err error
}

func (e *NetworkError) Error() string {
	return fmt.Sprintf("%s: %v", e.Op, e.Err)
}

func (e *NetworkError) Unwrap() []error { return []error{ErrNetwork, e.Err} }

// ErrorKind returns the Kind of err, and false when err is not an API failure.
func ErrorKind(err error) (Kind, bool) {
	var apiErr *APIError
	if errors.As(err, &apiErr) {
		return apiErr.Kind, true
	}
	return KindUnexpected, false
}

// DisplayMessage turns any error returned by this package, or a local
// validation error, into a sentence that can be shown to the user.
func DisplayMessage(err error) string {
	if err == nil {
		return ""
	}
	if ve, ok := contracts.AsValidationError(err); ok {
		if len(ve.Errors) > 0 {
			return ve.Errors[0].Message
		}
		return "Please check the form and try again."
	}

	var apiErr *APIError
	if errors.As(err, &apiErr) {
		switch apiErr.Kind {
		case KindValidation, KindConflict, KindNotFound:
			if apiErr.Message != "" {
				return apiErr.Message
			}
		case KindAuthentication:
			if apiErr.Message != "" {
				return apiErr.Message
			}
			return "Your session has expired. Please sign in again."
		case KindAuthorization:
			return "You do not have permission to perform this action."
		case KindServer:
			return "The server encountered an error. Please try again later."
		}
	}

	if errors.Is(err, ErrNetwork) {
		return "Could not reach the server. Check your connection and try again."
	}
	return "Something went wrong. Please try again."
}
