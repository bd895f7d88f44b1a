package service

import "errors"

var (
	ErrValidation   = errors.New("validation")              // 400
	ErrNotFound     = errors.New("not found")               // 404
	ErrConflict     = errors.New("conflict")                // 409
	ErrEmptyCart    = errors.New("cart is empty")           // 303 to the catalog
	ErrPromoInvalid = errors.New("invalid promo code")      // 400
	ErrPromoUsed    = errors.New("promo code already used") // 409
)

// ValidationError carries per-field messages and matches ErrValidation.
type ValidationError struct {
	Fields map[string]string
}

func (e *ValidationError) Error() string {
	return "validation failed"
}

func (e *ValidationError) Is(target error) bool {
	return target == ErrValidation
}
