package inventory

import (
	"errors"
	"log"

	"market-backend/internal/auth"
	"market-backend/internal/models"

	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"
)

func stockError(err error) error {
	switch {
	case errors.Is(err, ErrProductNotFound):
		return fiber.NewError(fiber.StatusNotFound, err.Error())
	case errors.Is(err, ErrNegativeStock):
		return fiber.NewError(fiber.StatusConflict, err.Error())
	case errors.Is(err, ErrInvalidMovementType), errors.Is(err, ErrInvalidQuantity):
		return fiber.NewError(fiber.StatusBadRequest, err.Error())
	}
	log.Printf("[Inventory] %v", err)
	return fiber.NewError(fiber.StatusInternalServerError, "Stock could not be updated")
}

// POST /api/inventory/adjustments (admin, manager)
func CreateAdjustmentHandler(svc *StockService) fiber.Handler {
	return func(c *fiber.Ctx) error {
		actor, err := auth.CurrentUser(c)
		if err != nil {
			return err
		}

		var body AdjustmentInput
		if err := c.BodyParser(&body); err != nil {
			return fiber.NewError(fiber.StatusBadRequest, "Invalid request body")
		}

		mv, err := svc.Adjust(c.UserContext(), actor, body)
		if err != nil {
			return stockError(err)
		}
		return c.Status(fiber.StatusCreated).JSON(mv)
	}
}

// GET /api/inventory/movements?product_id=&movement_type=&limit=&offset=
func ListMovementsHandler(svc *StockService) fiber.Handler {
	return func(c *fiber.Ctx) error {
		f := MovementFilter{
			MovementType: models.MovementType(c.Query("movement_type")),
			Limit:        c.QueryInt("limit", 100),
			Offset:       c.QueryInt("offset", 0),
		}
		if raw := c.Query("product_id"); raw != "" {
			id, err := uuid.Parse(raw)
			if err != nil {
				return fiber.NewError(fiber.StatusBadRequest, "Invalid product_id")
			}
			f.ProductID = &id
		}

		moves, err := svc.ListMovements(c.UserContext(), f)
		if err != nil {
			return stockError(err)
		}
		return c.JSON(moves)
	}
}

// GET /api/reports/products/low-stock
func LowStockHandler(svc *StockService) fiber.Handler {
	return func(c *fiber.Ctx) error {
		products, err := svc.LowStock(c.UserContext())
		if err != nil {
			return stockError(err)
		}
		return c.JSON(products)
	}
}
