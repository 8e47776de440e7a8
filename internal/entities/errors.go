package entities

import (
	"errors"
	"fmt"
)

var (
	ErrNotFound     = errors.New("not found")
	ErrConflict     = errors.New("conflict")
	ErrInvalidInput = errors.New("invalid input")
	ErrUnauthorized = errors.New("unauthorized")
	ErrForbidden    = errors.New("forbidden")
	ErrBusy         = errors.New("busy")
	ErrRateLimited  = errors.New("rate limited")
	ErrUnavailable  = errors.New("upstream unavailable")
)

// ErrWidgetKeyTaken is the ErrConflict raised when a generated widget key
// collides with an existing account.
var ErrWidgetKeyTaken = fmt.Errorf("%w: widget key", ErrConflict)

// ValidationError carries a message meant for the client next to the
// sentinel that decides the status code.
type ValidationError struct {
	Kind    error
	Message string
}

func (e *ValidationError) Error() string { return e.Message }

func (e *ValidationError) Unwrap() error { return e.Kind }

func Invalid(msg string) error      { return &ValidationError{Kind: ErrInvalidInput, Message: msg} }
func NotFound(msg string) error     { return &ValidationError{Kind: ErrNotFound, Message: msg} }
func Forbidden(msg string) error    { return &ValidationError{Kind: ErrForbidden, Message: msg} }
func Conflict(msg string) error     { return &ValidationError{Kind: ErrConflict, Message: msg} }
func Unauthorized(msg string) error { return &ValidationError{Kind: ErrUnauthorized, Message: msg} }
func Unavailable(msg string) error  { return &ValidationError{Kind: ErrUnavailable, Message: msg} }
