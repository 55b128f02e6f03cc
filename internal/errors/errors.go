// internal/errors/errors.go
package errors

import (
	"context"
	"errors"
	"fmt"
	"net/http"

	"gorm.io/gorm"
)

// Core error taxonomy. Conflict and NotFound are success-shaped at the
// service layer (the end state is what the caller wanted); they only reach
// a transport code when an operation genuinely cannot proceed.
var (
	ErrInvalidArgument = errors.New("invalid argument")
	ErrConflict        = errors.New("conflict")
	ErrNotFound        = errors.New("not found")
	ErrNotPending      = errors.New("request is not pending")
	ErrTransientStore  = errors.New("transient store failure")
)

// Invalid wraps ErrInvalidArgument with a caller-facing message.
func Invalid(msg string) error {
	return fmt.Errorf("%w: %s", ErrInvalidArgument, msg)
}

// Conflict wraps ErrConflict with a caller-facing message.
func Conflict(msg string) error {
	return fmt.Errorf("%w: %s", ErrConflict, msg)
}

// HTTPStatus converts repo/service errors into HTTP status codes.
// Keeps handlers clean by centralizing error mapping.
func HTTPStatus(err error) int {
	switch {
	case err == nil:
		return http.StatusOK

	case errors.Is(err, ErrInvalidArgument):
		return http.StatusBadRequest

	case errors.Is(err, ErrConflict), errors.Is(err, ErrNotPending):
		return http.StatusConflict

	case errors.Is(err, ErrNotFound), errors.Is(err, gorm.ErrRecordNotFound):
		return http.StatusNotFound

	case errors.Is(err, ErrTransientStore):
		return http.StatusServiceUnavailable

	case errors.Is(err, context.DeadlineExceeded):
		return http.StatusGatewayTimeout

	case errors.Is(err, context.Canceled):
		return http.StatusRequestTimeout

	default:
		return http.StatusInternalServerError
	}
}
