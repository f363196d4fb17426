package backend

import (
	"errors"
	"fmt"
	"net/http"
)

// APIError is a failure reported by the backend. Message is shown to the
// patient as is.
type APIError struct {
	Status  int
	Code    string
	Message string
}

func (e *APIError) Error() string {
	if e.Message != "" {
		return e.Message
	}
	if e.Code != "" {
		return fmt.Sprintf("backend error %d: %s", e.Status, e.Code)
	}
	return fmt.Sprintf("backend error %d", e.Status)
}

// Is matches on Code so driver errors compare equal to the sentinels below
// whatever their message.
func (e *APIError) Is(target error) bool {
	t, ok := target.(*APIError)
	if !ok || t.Code == "" {
		return false
	}
	return t.Code == e.Code
}

var (
	ErrAlreadyRegistered  = &APIError{Status: http.StatusUnprocessableEntity, Code: "user_already_exists", Message: "User already registered"}
	ErrInvalidCredentials = &APIError{Status: http.StatusBadRequest, Code: "invalid_credentials", Message: "Invalid login credentials"}
	ErrNoSession          = &APIError{Status: http.StatusUnauthorized, Code: "session_not_found", Message: "Auth session missing!"}
	ErrConflict           = &APIError{Status: http.StatusConflict, Code: "23505", Message: "duplicate key value violates unique constraint"}
	ErrNotFound           = &APIError{Status: http.StatusNotAcceptable, Code: "PGRST116", Message: "The result contains 0 rows"}
	ErrForbidden          = &APIError{Status: http.StatusForbidden, Code: "42501", Message: "new row violates row-level security policy"}
)

// WithMessage copies a sentinel with a backend supplied message.
func WithMessage(sentinel *APIError, message string) *APIError {
	e := *sentinel
	if message != "" {
		e.Message = message
	}
	return &e
}

func IsNotFound(err error) bool {
	return errors.Is(err, ErrNotFound)
}
