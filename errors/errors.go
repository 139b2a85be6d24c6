package errors

import (
	"errors"
	"fmt"
	"net/http"
)

var (
	ErrWorkerPanic        = fmt.Errorf("worker panic")
	ErrEmptyWords         = fmt.Errorf("no words have been found")
	ErrSecretGeneration   = fmt.Errorf("signing secret generation failed")
	ErrTokenGeneration    = fmt.Errorf("token generation failed")
	ErrInvalidToken       = fmt.Errorf("invalid or expired token")
	ErrMissingToken       = fmt.Errorf("authorization token is missing")
	ErrInvalidLogin       = fmt.Errorf("username must be 2 to 16 English letters or digits")
	ErrInvalidPassword    = fmt.Errorf("password must be 8 to 32 ASCII symbols excluding whitespace")
	ErrInvalidName        = fmt.Errorf("name must be 1 to 32 characters long")
	ErrInvalidEmail       = fmt.Errorf("email is not valid")
	ErrInvalidCredentials = fmt.Errorf("incorrect username or password")
	ErrUserNotFound       = fmt.Errorf("user not found")
	ErrUserAlreadyExists  = fmt.Errorf("username is already taken")
	ErrEmailAlreadyExists = fmt.Errorf("email is already registered")
	ErrGuestWithAccount   = fmt.Errorf("guest users cannot have account data")
	ErrAccountMissing     = fmt.Errorf("non-guest users must have account data")
	ErrSinkFull           = fmt.Errorf("sink buffer is full")
	ErrSinkClosed         = fmt.Errorf("sink is closed")
	ErrInvalidEvent       = fmt.Errorf("invalid event payload")
	ErrUnknownEvent       = fmt.Errorf("unknown event type")
	ErrInvalidRequest     = fmt.Errorf("invalid request body")
)

// MapToHTTPStatus translates domain errors into HTTP status codes.
// Anything unknown is reported as an internal error.
func MapToHTTPStatus(err error) int {
	switch {
	case err == nil:
		return http.StatusOK
	case errors.Is(err, ErrInvalidLogin),
		errors.Is(err, ErrInvalidPassword),
		errors.Is(err, ErrInvalidName),
		errors.Is(err, ErrInvalidEmail),
		errors.Is(err, ErrInvalidCredentials),
		errors.Is(err, ErrInvalidRequest):
		return http.StatusBadRequest
	case errors.Is(err, ErrMissingToken), errors.Is(err, ErrInvalidToken):
		return http.StatusUnauthorized
	case errors.Is(err, ErrUserNotFound):
		return http.StatusNotFound
	case errors.Is(err, ErrUserAlreadyExists), errors.Is(err, ErrEmailAlreadyExists):
		return http.StatusConflict
	default:
		return http.StatusInternalServerError
	}
}
