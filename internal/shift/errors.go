package shift

import "errors"

var (
	ErrShiftAlreadyOpen   = errors.New("cashier already has an open shift")
	ErrShiftAlreadyClosed = errors.New("shift is already closed")
	ErrShiftNotFound      = errors.New("shift not found")
	ErrUnauthorized       = errors.New("shift belongs to another cashier")
	ErrInvalidAmount      = errors.New("amount must not be negative")
	ErrCashierNotFound    = errors.New("cashier not found")
)
