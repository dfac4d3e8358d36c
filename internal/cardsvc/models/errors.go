package models

import "errors"

var (
	ErrInvalidInput    = errors.New("missing required fields")
	ErrPayloadTooLarge = errors.New("image payload too large")
	ErrQuotaExceeded   = errors.New("card quota exceeded")
	ErrNotFound        = errors.New("card not found")
	ErrUnauthorized    = errors.New("unauthorized")
	ErrForbidden       = errors.New("forbidden")
)
