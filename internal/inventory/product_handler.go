package inventory

import (
	"errors"
	"fmt"
	"strings"

	"market-backend/internal/audit"
	"market-backend/internal/auth"
	"market-backend/internal/database"
	"market-backend/internal/models"

	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

type CreateProductRequest struct {
	Barcode       string           `json:"barcode"`
	Name          string           `json:"name"`
	NameEn        string           `json:"name_en"`
	Description   string           `json:"description"`
	CategoryID    *uuid.UUID       `json:"category_id"`
	CostPrice     decimal.Decimal  `json:"cost_price"`
	SellingPrice  decimal.Decimal  `json:"selling_price"`
	StockQuantity int              `json:"stock_quantity"`
	MinStockLevel int              `json:"min_stock_level"`
	Unit          string           `json:"unit"`
	TaxRate       *decimal.Decimal `json:"tax_rate"`
	ImageURL      string           `json:"image_url"`
}

// UpdateProductRequest leaves stock alone; stock only moves through sales and adjustments.
type UpdateProductRequest struct {
	Barcode       *string          `json:"barcode"`
	Name          *string          `json:"name"`
	NameEn        *string          `json:"name_en"`
	Description   *string          `json:"description"`
	CategoryID    *uuid.UUID       `json:"category_id"`
	CostPrice     *decimal.Decimal `json:"cost_price"`
	SellingPrice  *decimal.Decimal `json:"selling_price"`
	MinStockLevel *int             `json:"min_stock_level"`
	Unit          *string          `json:"unit"`
	TaxRate       *decimal.Decimal `json:"tax_rate"`
	ImageURL      *string          `json:"image_url"`
	IsActive      *bool            `json:"is_active"`
}

var maxTaxRate = decimal.NewFromInt(100)

func findProduct(c *fiber.Ctx) (*models.Product, error) {
	id, err := uuid.Parse(c.Params("id"))
	if err != nil {
		return nil, fiber.NewError(fiber.StatusBadRequest, "Invalid product id")
	}
	var p models.Product
	if err := database.DB.First(&p, "id = ?", id).Error; err != nil {
		return nil, fiber.NewError(fiber.StatusNotFound, "Product not found")
	}
	return &p, nil
}

func checkCategory(id *uuid.UUID) error {
	if id == nil {
		return nil
	}
	var n int64
	database.DB.Model(&models.Category{}).Where("id = ? AND is_active = ?", *id, true).Count(&n)
	if n == 0 {
		return fiber.NewError(fiber.StatusBadRequest, "Category not found")
	}
	return nil
}

func barcodeTaken(barcode string, except uuid.UUID) bool {
	var n int64
	database.DB.Model(&models.Product{}).Where("barcode = ? AND id <> ?", barcode, except).Count(&n)
	return n > 0
}

// GET /api/products?search=&category_id=&include_inactive=
func ListProductsHandler() fiber.Handler {
	return func(c *fiber.Ctx) error {
		dbq := database.DB.Model(&models.Product{})

		if c.Query("include_inactive") != "true" {
			dbq = dbq.Where("is_active = ?", true)
		}
		if search := strings.TrimSpace(c.Query("search")); search != "" {
			like := "%" + strings.ToLower(search) + "%"
			dbq = dbq.Where("LOWER(name) LIKE ? OR LOWER(name_en) LIKE ? OR barcode LIKE ?", like, like, like)
		}
		if raw := c.Query("category_id"); raw != "" {
			catID, err := uuid.Parse(raw)
			if err != nil {
				return fiber.NewError(fiber.StatusBadRequest, "Invalid category_id")
			}
			dbq = dbq.Where("category_id = ?", catID)
		}

		var products []models.Product
		if err := dbq.Order("name asc").
			Limit(c.QueryInt("limit", 200)).
			Offset(c.QueryInt("offset", 0)).
			Find(&products).Error; err != nil {
			return fiber.NewError(fiber.StatusInternalServerError, "Products could not be listed")
		}
		return c.JSON(products)
	}
}

// GET /api/products/:id
func GetProductHandler() fiber.Handler {
	return func(c *fiber.Ctx) error {
		p, err := findProduct(c)
		if err != nil {
			return err
		}
		return c.JSON(p)
	}
}

// GET /api/products/barcode/:barcode
func GetProductByBarcodeHandler() fiber.Handler {
	return func(c *fiber.Ctx) error {
		var p models.Product
		if err := database.DB.
			Where("barcode = ? AND is_active = ?", c.Params("barcode"), true).
			First(&p).Error; err != nil {
			return fiber.NewError(fiber.StatusNotFound, "Product not found")
		}
		return c.JSON(p)
	}
}

// POST /api/products (admin, manager)
func CreateProductHandler() fiber.Handler {
	return func(c *fiber.Ctx) error {
		actor, err := auth.CurrentUser(c)
		if err != nil {
			return err
		}

		var body CreateProductRequest
		if err := c.BodyParser(&body); err != nil {
			return fiber.NewError(fiber.StatusBadRequest, "Invalid request body")
		}

		body.Barcode = strings.TrimSpace(body.Barcode)
		body.Name = strings.TrimSpace(body.Name)
		body.Unit = strings.TrimSpace(body.Unit)
		if body.Unit == "" {
			body.Unit = "piece"
		}
		taxRate := decimal.Zero
		if body.TaxRate != nil {
			taxRate = *body.TaxRate
		}

		if body.Barcode == "" || body.Name == "" {
			return fiber.NewError(fiber.StatusBadRequest, "barcode and name are required")
		}
		if body.CostPrice.IsNegative() || body.SellingPrice.IsNegative() {
			return fiber.NewError(fiber.StatusBadRequest, "Prices must not be negative")
		}
		if taxRate.IsNegative() || taxRate.GreaterThan(maxTaxRate) {
			return fiber.NewError(fiber.StatusBadRequest, "tax_rate must be between 0 and 100")
		}
		if body.StockQuantity < 0 || body.MinStockLevel < 0 {
			return fiber.NewError(fiber.StatusBadRequest, "Stock values must not be negative")
		}
		if err := checkCategory(body.CategoryID); err != nil {
			return err
		}
		if barcodeTaken(body.Barcode, uuid.Nil) {
			return fiber.NewError(fiber.StatusConflict, "Barcode is already in use")
		}

		p := models.Product{
			Barcode:       body.Barcode,
			Name:          body.Name,
			NameEn:        strings.TrimSpace(body.NameEn),
			Description:   body.Description,
			CategoryID:    body.CategoryID,
			CostPrice:     body.CostPrice,
			SellingPrice:  body.SellingPrice,
			StockQuantity: body.StockQuantity,
			MinStockLevel: body.MinStockLevel,
			Unit:          body.Unit,
			TaxRate:       taxRate,
			ImageURL:      body.ImageURL,
			IsActive:      true,
		}

		err = database.DB.Transaction(func(tx *gorm.DB) error {
			if err := tx.Create(&p).Error; err != nil {
				return err
			}
			if p.StockQuantity == 0 {
				return nil
			}
			// opening stock is recorded as an adjustment
			return tx.Create(&models.InventoryMovement{
				ProductID:        p.ID,
				MovementType:     models.MovementAdjustment,
				Quantity:         decimal.NewFromInt(int64(p.StockQuantity)),
				PreviousQuantity: decimal.Zero,
				NewQuantity:      decimal.NewFromInt(int64(p.StockQuantity)),
				UserID:           &actor.UserID,
				Notes:            "Opening stock",
			}).Error
		})
		if err != nil {
			if errors.Is(err, gorm.ErrDuplicatedKey) {
				return fiber.NewError(fiber.StatusConflict, "Barcode is already in use")
			}
			return fiber.NewError(fiber.StatusInternalServerError, "Product could not be created")
		}

		audit.WriteLog(audit.LogOptions{
			UserID:      actor.UserID,
			UserName:    actor.Username,
			EntityType:  "product",
			EntityID:    p.ID.String(),
			Action:      models.AuditActionCreate,
			Description: fmt.Sprintf("Product created: %s (%s)", p.Name, p.Barcode),
			After:       p,
			IPAddress:   c.IP(),
		})

		return c.Status(fiber.StatusCreated).JSON(p)
	}
}

// PUT /api/products/:id (admin, manager)
func UpdateProductHandler() fiber.Handler {
	return func(c *fiber.Ctx) error {
		actor, err := auth.CurrentUser(c)
		if err != nil {
			return err
		}

		p, err := findProduct(c)
		if err != nil {
			return err
		}
		before := *p

		var body UpdateProductRequest
		if err := c.BodyParser(&body); err != nil {
			return fiber.NewError(fiber.StatusBadRequest, "Invalid request body")
		}

		if body.Barcode != nil {
			barcode := strings.TrimSpace(*body.Barcode)
			if barcode == "" {
				return fiber.NewError(fiber.StatusBadRequest, "Barcode cannot be empty")
			}
			if barcodeTaken(barcode, p.ID) {
				return fiber.NewError(fiber.StatusConflict, "Barcode is already in use")
			}
			p.Barcode = barcode
		}
		if body.Name != nil {
			name := strings.TrimSpace(*body.Name)
			if name == "" {
				return fiber.NewError(fiber.StatusBadRequest, "Name cannot be empty")
			}
			p.Name = name
		}
		if body.NameEn != nil {
			p.NameEn = strings.TrimSpace(*body.NameEn)
		}
		if body.Description != nil {
			p.Description = *body.Description
		}
		if body.CategoryID != nil {
			if err := checkCategory(body.CategoryID); err != nil {
				return err
			}
			p.CategoryID = body.CategoryID
		}
		if body.CostPrice != nil {
			p.CostPrice = *body.CostPrice
		}
		if body.SellingPrice != nil {
			p.SellingPrice = *body.SellingPrice
		}
		if body.TaxRate != nil {
			p.TaxRate = *body.TaxRate
		}
		if p.CostPrice.IsNegative() || p.SellingPrice.IsNegative() {
			return fiber.NewError(fiber.StatusBadRequest, "Prices must not be negative")
		}
		if p.TaxRate.IsNegative() || p.TaxRate.GreaterThan(maxTaxRate) {
			return fiber.NewError(fiber.StatusBadRequest, "tax_rate must be between 0 and 100")
		}
		if body.MinStockLevel != nil {
			if *body.MinStockLevel < 0 {
				return fiber.NewError(fiber.StatusBadRequest, "min_stock_level must not be negative")
			}
			p.MinStockLevel = *body.MinStockLevel
		}
		if body.Unit != nil {
			unit := strings.TrimSpace(*body.Unit)
			if unit == "" {
				return fiber.NewError(fiber.StatusBadRequest, "Unit cannot be empty")
			}
			p.Unit = unit
		}
		if body.ImageURL != nil {
			p.ImageURL = *body.ImageURL
		}
		if body.IsActive != nil {
			p.IsActive = *body.IsActive
		}

		// stock_quantity is excluded so a concurrent sale is never overwritten
		if err := database.DB.Model(p).Select(
			"barcode", "name", "name_en", "description", "category_id", "cost_price",
			"selling_price", "tax_rate", "min_stock_level", "unit", "image_url", "is_active", "updated_at",
		).Updates(p).Error; err != nil {
			return fiber.NewError(fiber.StatusInternalServerError, "Product could not be updated")
		}

		audit.WriteLog(audit.LogOptions{
			UserID:      actor.UserID,
			UserName:    actor.Username,
			EntityType:  "product",
			EntityID:    p.ID.String(),
			Action:      models.AuditActionUpdate,
			Description: "Product updated: " + p.Name,
			Before:      before,
			After:       p,
			IPAddress:   c.IP(),
		})

		return c.JSON(p)
	}
}

// DELETE /api/products/:id (admin, manager)
// Products are referenced by invoices, so deleting only deactivates them.
func DeleteProductHandler() fiber.Handler {
	return func(c *fiber.Ctx) error {
		actor, err := auth.CurrentUser(c)
		if err != nil {
			return err
		}

		p, err := findProduct(c)
		if err != nil {
			return err
		}

		if err := database.DB.Model(p).Update("is_active", false).Error; err != nil {
			return fiber.NewError(fiber.StatusInternalServerError, "Product could not be deleted")
		}

		audit.WriteLog(audit.LogOptions{
			UserID:      actor.UserID,
			UserName:    actor.Username,
			EntityType:  "product",
			EntityID:    p.ID.String(),
			Action:      models.AuditActionDelete,
			Description: "Product deactivated: " + p.Name,
			IPAddress:   c.IP(),
		})

		return c.SendStatus(fiber.StatusNoContent)
	}
}
