package shift

import (
	"errors"
	"log"

	"market-backend/internal/auth"
	"market-backend/internal/models"

	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

type OpenShiftRequest struct {
	OpeningBalance decimal.Decimal `json:"opening_balance"`
	Notes          string          `json:"notes"`
}

type CloseShiftRequest struct {
	ActualCash decimal.Decimal `json:"actual_cash"`
	Notes      string          `json:"notes"`
}

// toFiberError maps ledger errors to HTTP statuses.
func toFiberError(err error) error {
	switch {
	case errors.Is(err, ErrShiftNotFound), errors.Is(err, ErrCashierNotFound):
		return fiber.NewError(fiber.StatusNotFound, err.Error())
	case errors.Is(err, ErrShiftAlreadyOpen), errors.Is(err, ErrShiftAlreadyClosed):
		return fiber.NewError(fiber.StatusConflict, err.Error())
	case errors.Is(err, ErrUnauthorized):
		return fiber.NewError(fiber.StatusForbidden, err.Error())
	case errors.Is(err, ErrInvalidAmount):
		return fiber.NewError(fiber.StatusBadRequest, err.Error())
	}
	log.Printf("[Shift] %v", err)
	return fiber.NewError(fiber.StatusInternalServerError, "Shift operation failed")
}

func isManager(role models.UserRole) bool {
	return role == models.RoleAdmin || role == models.RoleManager
}

// POST /api/shifts/open
func OpenShiftHandler(svc *Service) fiber.Handler {
	return func(c *fiber.Ctx) error {
		actor, err := auth.CurrentUser(c)
		if err != nil {
			return err
		}

		var body OpenShiftRequest
		if err := c.BodyParser(&body); err != nil {
			return fiber.NewError(fiber.StatusBadRequest, "Invalid request body")
		}

		sh, err := svc.OpenShift(c.UserContext(), actor, body.OpeningBalance, body.Notes)
		if err != nil {
			return toFiberError(err)
		}
		return c.Status(fiber.StatusCreated).JSON(sh)
	}
}

// POST /api/shifts/:id/close
func CloseShiftHandler(svc *Service) fiber.Handler {
	return func(c *fiber.Ctx) error {
		actor, err := auth.CurrentUser(c)
		if err != nil {
			return err
		}

		id, err := uuid.Parse(c.Params("id"))
		if err != nil {
			return fiber.NewError(fiber.StatusBadRequest, "Invalid shift id")
		}

		var body CloseShiftRequest
		if err := c.BodyParser(&body); err != nil {
			return fiber.NewError(fiber.StatusBadRequest, "Invalid request body")
		}

		sh, err := svc.CloseShift(c.UserContext(), actor, id, body.ActualCash, body.Notes)
		if err != nil {
			return toFiberError(err)
		}
		return c.JSON(sh)
	}
}

// GET /api/shifts/current
func CurrentShiftHandler(svc *Service) fiber.Handler {
	return func(c *fiber.Ctx) error {
		actor, err := auth.CurrentUser(c)
		if err != nil {
			return err
		}

		sh, err := svc.GetOpenShift(c.UserContext(), actor.UserID)
		if err != nil {
			return toFiberError(err)
		}
		if sh == nil {
			return fiber.NewError(fiber.StatusNotFound, "No open shift")
		}

		summary, err := svc.GetShift(c.UserContext(), sh.ID)
		if err != nil {
			return toFiberError(err)
		}
		return c.JSON(summary)
	}
}

// GET /api/shifts/:id
func GetShiftHandler(svc *Service) fiber.Handler {
	return func(c *fiber.Ctx) error {
		actor, err := auth.CurrentUser(c)
		if err != nil {
			return err
		}

		id, err := uuid.Parse(c.Params("id"))
		if err != nil {
			return fiber.NewError(fiber.StatusBadRequest, "Invalid shift id")
		}

		summary, err := svc.GetShift(c.UserContext(), id)
		if err != nil {
			return toFiberError(err)
		}
		if summary.Shift.UserID != actor.UserID && !isManager(actor.Role) {
			return toFiberError(ErrUnauthorized)
		}
		return c.JSON(summary)
	}
}

// GET /api/shifts?user_id=&status=&limit=&offset=
// Cashiers only ever see their own shifts.
func ListShiftsHandler(svc *Service) fiber.Handler {
	return func(c *fiber.Ctx) error {
		actor, err := auth.CurrentUser(c)
		if err != nil {
			return err
		}

		f := ListFilter{
			Status: models.ShiftStatus(c.Query("status")),
			Limit:  c.QueryInt("limit", 50),
			Offset: c.QueryInt("offset", 0),
		}

		if !isManager(actor.Role) {
			f.UserID = &actor.UserID
		} else if raw := c.Query("user_id"); raw != "" {
			uid, err := uuid.Parse(raw)
			if err != nil {
				return fiber.NewError(fiber.StatusBadRequest, "Invalid user_id")
			}
			f.UserID = &uid
		}

		shifts, err := svc.ListShifts(c.UserContext(), f)
		if err != nil {
			return toFiberError(err)
		}
		return c.JSON(shifts)
	}
}
