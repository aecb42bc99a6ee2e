package errors

import (
	"errors"
	"net/http"
	"sort"
	"strings"
)

var (
	// ErrAuthentication is returned when credentials or tokens are missing or invalid.
	ErrAuthentication = errors.New("authentication failed")
	// ErrPermissionDenied is returned when an authenticated caller is not entitled to a resource.
	ErrPermissionDenied = errors.New("permission denied")
	// ErrNotFound is returned when a resource identifier does not resolve.
	ErrNotFound = errors.New("not found")
)

// Error carries a client-facing detail message for one of the sentinel kinds above.
// errors.Is(err, ErrNotFound) matches an *Error whose Kind is ErrNotFound.
type Error struct {
	Kind   error
	Detail string
}

func (e *Error) Error() string {
	if e.Detail == "" {
		return e.Kind.Error()
	}
	return e.Detail
}

func (e *Error) Unwrap() error {
	return e.Kind
}

// Unauthenticated builds an authentication error with the given detail.
func Unauthenticated(detail string) error {
	return &Error{Kind: ErrAuthentication, Detail: detail}
}

// Forbidden builds an authorization error with the given detail.
func Forbidden(detail string) error {
	return &Error{Kind: ErrPermissionDenied, Detail: detail}
}

// NotFound builds a not-found error with the given detail.
func NotFound(detail string) error {
	return &Error{Kind: ErrNotFound, Detail: detail}
}

// ValidationError reports malformed or missing input keyed by field name.
type ValidationError struct {
	Fields map[string][]string
}

// NewValidationError returns a ValidationError with a single field message.
func NewValidationError(field, message string) *ValidationError {
	v := &ValidationError{}
	v.Add(field, message)
	return v
}

// Add appends a message for field.
func (v *ValidationError) Add(field, message string) {
	if v.Fields == nil {
		v.Fields = make(map[string][]string)
	}
	v.Fields[field] = append(v.Fields[field], message)
}

// HasErrors reports whether any field message was recorded.
func (v *ValidationError) HasErrors() bool {
	return v != nil && len(v.Fields) > 0
}

// OrNil returns v as an error when it holds messages and nil otherwise.
func (v *ValidationError) OrNil() error {
	if !v.HasErrors() {
		return nil
	}
	return v
}

func (v *ValidationError) Error() string {
	keys := make([]string, 0, len(v.Fields))
	for k := range v.Fields {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	parts := make([]string, 0, len(keys))
	for _, k := range keys {
		parts = append(parts, k+": "+strings.Join(v.Fields[k], " "))
	}
	return "validation failed: " + strings.Join(parts, "; ")
}

// ErrorResponse represents the error body for auth, permission and lookup failures.
type ErrorResponse struct {
	Detail string `json:"detail"`
}

// FieldErrors is the 400 body: messages keyed by field name.
type FieldErrors map[string][]string

// HTTPError represents an HTTP error with status code and response body.
type HTTPError struct {
	StatusCode int
	Body       interface{}
}

func (e *HTTPError) Error() string {
	return http.StatusText(e.StatusCode)
}

// NewHTTPError creates a new HTTP error with a detail body.
func NewHTTPError(statusCode int, detail string) *HTTPError {
	return &HTTPError{
		StatusCode: statusCode,
		Body:       ErrorResponse{Detail: detail},
	}
}

// MapErrorToHTTP maps domain errors to HTTP errors.
// Unknown errors become a generic 500 without leaking their message.
func MapErrorToHTTP(err error) *HTTPError {
	var validationErr *ValidationError
	if errors.As(err, &validationErr) {
		return &HTTPError{StatusCode: http.StatusBadRequest, Body: FieldErrors(validationErr.Fields)}
	}

	switch {
	case errors.Is(err, ErrAuthentication):
		return NewHTTPError(http.StatusUnauthorized, detailOr(err, "Authentication credentials were not provided."))
	case errors.Is(err, ErrPermissionDenied):
		return NewHTTPError(http.StatusForbidden, detailOr(err, "You do not have permission to perform this action."))
	case errors.Is(err, ErrNotFound):
		return NewHTTPError(http.StatusNotFound, detailOr(err, "Not found."))
	default:
		return NewHTTPError(http.StatusInternalServerError, "Internal server error.")
	}
}

func detailOr(err error, fallback string) string {
	var appErr *Error
	if errors.As(err, &appErr) && appErr.Detail != "" {
		return appErr.Detail
	}
	return fallback
}
