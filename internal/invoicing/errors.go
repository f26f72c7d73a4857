package invoicing

import (
	"errors"
	"fmt"

	"github.com/google/uuid"
)

var (
	ErrEmptyCart              = errors.New("cart is empty")
	ErrProductNotFound        = errors.New("product not found")
	ErrInsufficientStock      = errors.New("insufficient stock")
	ErrInvalidQuantity        = errors.New("quantity must be greater than zero")
	ErrFractionalQuantity     = errors.New("quantity must be a whole number")
	ErrInvalidPrice           = errors.New("unit price must not be negative and tax rate must be between 0 and 100")
	ErrInvalidDiscount        = errors.New("invalid discount")
	ErrInvalidPaidAmount      = errors.New("paid amount must not be negative")
	ErrUnderpaid              = errors.New("paid amount is below the invoice total")
	ErrInvalidPaymentMethod   = errors.New("invalid payment method")
	ErrUnsupportedInvoiceType = errors.New("only sale invoices can be posted")
	ErrCustomerNotFound       = errors.New("customer not found")
	ErrInvoiceNotFound        = errors.New("invoice not found")
)

// InsufficientStockError names the product whose stock could not cover the cart.
// errors.Is(err, ErrInsufficientStock) holds for it.
type InsufficientStockError struct {
	ProductID   uuid.UUID
	ProductName string
	Requested   int
	Available   int
}

func (e *InsufficientStockError) Error() string {
	return fmt.Sprintf("insufficient stock for %s: requested %d, available %d",
		e.ProductName, e.Requested, e.Available)
}

func (e *InsufficientStockError) Is(target error) bool {
	return target == ErrInsufficientStock
}

// failureReason is the metrics label for a rejected posting.
func failureReason(err error) string {
	switch {
	case errors.Is(err, ErrEmptyCart):
		return "empty_cart"
	case errors.Is(err, ErrProductNotFound):
		return "product_not_found"
	case errors.Is(err, ErrInsufficientStock):
		return "insufficient_stock"
	case errors.Is(err, ErrInvalidQuantity), errors.Is(err, ErrFractionalQuantity):
		return "invalid_quantity"
	case errors.Is(err, ErrInvalidPrice), errors.Is(err, ErrInvalidDiscount):
		return "invalid_price"
	case errors.Is(err, ErrUnderpaid), errors.Is(err, ErrInvalidPaidAmount):
		return "payment"
	case errors.Is(err, ErrInvalidPaymentMethod), errors.Is(err, ErrUnsupportedInvoiceType):
		return "invalid_request"
	case errors.Is(err, ErrCustomerNotFound):
		return "customer_not_found"
	}
	return "internal"
}
