package invoicing

import (
	"errors"
	"log"
	"time"

	"market-backend/internal/auth"
	"market-backend/internal/models"

	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

type CreateInvoiceRequest struct {
	InvoiceType    models.InvoiceType   `json:"invoice_type"`
	Items          []LineInput          `json:"items"`
	PaymentMethod  models.PaymentMethod `json:"payment_method"`
	PaidAmount     decimal.Decimal      `json:"paid_amount"`
	DiscountAmount decimal.Decimal      `json:"discount_amount"`
	CustomerID     *uuid.UUID           `json:"customer_id"`
	Notes          string               `json:"notes"`
}

// toFiberError maps posting errors to HTTP statuses.
func toFiberError(err error) error {
	var stockErr *InsufficientStockError
	switch {
	case errors.As(err, &stockErr):
		return fiber.NewError(fiber.StatusConflict, stockErr.Error())
	case errors.Is(err, ErrProductNotFound),
		errors.Is(err, ErrCustomerNotFound),
		errors.Is(err, ErrInvoiceNotFound):
		return fiber.NewError(fiber.StatusNotFound, err.Error())
	case errors.Is(err, ErrEmptyCart),
		errors.Is(err, ErrInvalidQuantity),
		errors.Is(err, ErrFractionalQuantity),
		errors.Is(err, ErrInvalidPrice),
		errors.Is(err, ErrInvalidDiscount),
		errors.Is(err, ErrInvalidPaidAmount),
		errors.Is(err, ErrUnderpaid),
		errors.Is(err, ErrInvalidPaymentMethod),
		errors.Is(err, ErrUnsupportedInvoiceType):
		return fiber.NewError(fiber.StatusBadRequest, err.Error())
	}
	log.Printf("[Invoice] %v", err)
	return fiber.NewError(fiber.StatusInternalServerError, "Invoice could not be posted")
}

// POST /api/invoices
func CreateInvoiceHandler(svc *Service) fiber.Handler {
	return func(c *fiber.Ctx) error {
		actor, err := auth.CurrentUser(c)
		if err != nil {
			return err
		}

		var body CreateInvoiceRequest
		if err := c.BodyParser(&body); err != nil {
			return fiber.NewError(fiber.StatusBadRequest, "Invalid request body")
		}

		inv, err := svc.PostInvoice(c.UserContext(), PostInvoiceInput{
			Cashier:        actor,
			InvoiceType:    body.InvoiceType,
			Lines:          body.Items,
			PaymentMethod:  body.PaymentMethod,
			PaidAmount:     body.PaidAmount,
			DiscountAmount: body.DiscountAmount,
			CustomerID:     body.CustomerID,
			Notes:          body.Notes,
			IPAddress:      c.IP(),
		})
		if err != nil {
			return toFiberError(err)
		}
		return c.Status(fiber.StatusCreated).JSON(inv)
	}
}

// GET /api/invoices?invoice_type=&shift_id=&start_date=&end_date=&limit=&offset=
func ListInvoicesHandler(svc *Service) fiber.Handler {
	return func(c *fiber.Ctx) error {
		f := ListFilter{
			InvoiceType: models.InvoiceType(c.Query("invoice_type")),
			Limit:       c.QueryInt("limit", 100),
			Offset:      c.QueryInt("offset", 0),
		}

		if raw := c.Query("shift_id"); raw != "" {
			id, err := uuid.Parse(raw)
			if err != nil {
				return fiber.NewError(fiber.StatusBadRequest, "Invalid shift_id")
			}
			f.ShiftID = &id
		}
		if raw := c.Query("start_date"); raw != "" {
			d, err := time.Parse("2006-01-02", raw)
			if err != nil {
				return fiber.NewError(fiber.StatusBadRequest, "start_date must be YYYY-MM-DD")
			}
			f.From = &d
		}
		if raw := c.Query("end_date"); raw != "" {
			d, err := time.Parse("2006-01-02", raw)
			if err != nil {
				return fiber.NewError(fiber.StatusBadRequest, "end_date must be YYYY-MM-DD")
			}
			// inclusive end day
			d = d.AddDate(0, 0, 1)
			f.To = &d
		}

		invoices, err := svc.ListInvoices(c.UserContext(), f)
		if err != nil {
			return toFiberError(err)
		}
		return c.JSON(invoices)
	}
}

// GET /api/invoices/:id
func GetInvoiceHandler(svc *Service) fiber.Handler {
	return func(c *fiber.Ctx) error {
		id, err := uuid.Parse(c.Params("id"))
		if err != nil {
			return fiber.NewError(fiber.StatusBadRequest, "Invalid invoice id")
		}

		inv, err := svc.GetInvoice(c.UserContext(), id)
		if err != nil {
			return toFiberError(err)
		}
		return c.JSON(inv)
	}
}

// GET /api/invoices/:id/receipt.pdf
func ReceiptHandler(svc *Service, storeName string) fiber.Handler {
	return func(c *fiber.Ctx) error {
		id, err := uuid.Parse(c.Params("id"))
		if err != nil {
			return fiber.NewError(fiber.StatusBadRequest, "Invalid invoice id")
		}

		inv, err := svc.GetInvoice(c.UserContext(), id)
		if err != nil {
			return toFiberError(err)
		}

		pdf, err := RenderReceipt(storeName, inv)
		if err != nil {
			log.Printf("[Invoice] %v", err)
			return fiber.NewError(fiber.StatusInternalServerError, "Receipt could not be generated")
		}

		c.Set(fiber.HeaderContentType, "application/pdf")
		c.Set(fiber.HeaderContentDisposition, "inline; filename=\""+inv.InvoiceNumber+".pdf\"")
		return c.Send(pdf)
	}
}
