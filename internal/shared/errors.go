package shared

import "errors"

var (
	ErrNotImplemented = errors.New("not implemented")

	// Configuration errors
	ErrMissingConfig      = errors.New("configuration not found")
	ErrInvalidConfig      = errors.New("invalid configuration")
	ErrMissingCredentials = errors.New("missing credentials")

	// Authentication and authorization errors
	ErrUnauthorized       = errors.New("not signed in")
	ErrInvalidCredentials = errors.New("invalid email or password")
	ErrForbidden          = errors.New("not allowed")
	ErrSessionExpired     = errors.New("session expired")

	// Persistence errors
	ErrNotFound  = errors.New("record not found")
	ErrDuplicate = errors.New("record already exists")

	// Service errors
	ErrAPIRequest         = errors.New("API request failed")
	ErrServiceUnavailable = errors.New("service unavailable")
	ErrQueueClosed        = errors.New("job queue closed")

	// Input validation errors
	ErrInvalidInput     = errors.New("invalid input")
	ErrInvalidState     = errors.New("invalid state transition")
	ErrMissingArgument  = errors.New("missing required argument")
	ErrInvalidArgument  = errors.New("invalid argument")
	ErrSignatureMissing = errors.New("webhook signature missing")
)
