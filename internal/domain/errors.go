package domain

import "errors"

var (
	ErrPoolNotFound            = errors.New("pass pool not found")
	ErrPoolInactive            = errors.New("pass pool inactive")
	ErrStockConflict           = errors.New("insufficient stock")
	ErrInvalidQuantity         = errors.New("invalid quantity")
	ErrInvalidTransition       = errors.New("invalid order transition")
	ErrOrderNotFound           = errors.New("order not found")
	ErrOutletNotFound          = errors.New("outlet not found")
	ErrPaymentMethodNotAllowed = errors.New("payment method not allowed for pass")
	ErrMissingCustomerField    = errors.New("missing customer field")
	ErrUnauthorized            = errors.New("unauthorized")
	ErrInvalidID               = errors.New("invalid id")
	ErrInvalidSignature        = errors.New("invalid webhook signature")
)
