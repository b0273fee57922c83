package entity

import "errors"

var (
	ErrNotFound             = errors.New("not found")
	ErrCapacityExceeded     = errors.New("capacity exceeded")
	ErrConcurrencyExhausted = errors.New("concurrency retries exhausted")
	ErrInvalidTransition    = errors.New("invalid status transition")
	ErrUnauthorized         = errors.New("unauthorized")
	ErrPaymentConflict      = errors.New("payment conflict")
	ErrInvalidRequest       = errors.New("invalid request")
	ErrInvalidSignature     = errors.New("invalid payment signature")
)
