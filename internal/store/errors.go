package store

import (
	"errors"
	"fmt"
)

type Kind string

const (
	KindValidation      Kind = "validation"
	KindConflict        Kind = "conflict"
	KindBackend         Kind = "backend"
	KindUnauthenticated Kind = "unauthenticated"
)

const (
	MsgMissingCredentials = "Please enter both email and password."
	MsgPasswordTooShort   = "Password must be at least %d characters."
	MsgNoUserAfterLogin   = "No user data returned after login."
	MsgNoUserAfterSignUp  = "Login failed after sign up."
	MsgNotLoggedIn        = "User not logged in."
	MsgSlotTaken          = "You already have an appointment with this doctor at the selected time."
	MsgStoreClosed        = "Session closed, please reload the page."
)

// Error is what store operations return. Message is safe to show next to
// the form that caused it.
type Error struct {
	Kind    Kind
	Message string
	Err     error
}

func (e *Error) Error() string {
	return e.Message
}

func (e *Error) Unwrap() error {
	return e.Err
}

func validation(format string, args ...any) *Error {
	return &Error{Kind: KindValidation, Message: fmt.Sprintf(format, args...)}
}

// backendErr keeps the backend's own message.
func backendErr(err error) *Error {
	return &Error{Kind: KindBackend, Message: err.Error(), Err: err}
}

// KindOf returns the kind of a store error, KindBackend for any other
// error and "" for nil.
func KindOf(err error) Kind {
	if err == nil {
		return ""
	}
	var se *Error
	if errors.As(err, &se) {
		return se.Kind
	}
	return KindBackend
}
