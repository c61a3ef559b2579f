package service

import "errors"

// Error kinds surfaced by the appointment workflow. Callers classify with
// errors.Is; the HTTP layer maps each kind to its status code.
var (
	ErrNotFound      = errors.New("not found")
	ErrForbidden     = errors.New("forbidden")
	ErrQuotaExceeded = errors.New("appointment quota exceeded")
	ErrValidation    = errors.New("validation failed")
)
