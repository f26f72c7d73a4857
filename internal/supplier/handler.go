package supplier

import (
	"strings"

	"market-backend/internal/audit"
	"market-backend/internal/auth"
	"market-backend/internal/database"
	"market-backend/internal/models"

	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"
)

// -------------------------
// Request Types
// -------------------------

type CreateSupplierRequest struct {
	Name          string `json:"name"`
	ContactPerson string `json:"contact_person"`
	Phone         string `json:"phone"`
	Email         string `json:"email"`
	Address       string `json:"address"`
}

type UpdateSupplierRequest struct {
	Name          *string `json:"name"`
	ContactPerson *string `json:"contact_person"`
	Phone         *string `json:"phone"`
	Email         *string `json:"email"`
	Address       *string `json:"address"`
	IsActive      *bool   `json:"is_active"`
}

// -------------------------
// Supplier CRUD
// -------------------------

func findSupplier(c *fiber.Ctx) (*models.Supplier, error) {
	id, err := uuid.Parse(c.Params("id"))
	if err != nil {
		return nil, fiber.NewError(fiber.StatusBadRequest, "Invalid supplier id")
	}
	var s models.Supplier
	if err := database.DB.First(&s, "id = ?", id).Error; err != nil {
		return nil, fiber.NewError(fiber.StatusNotFound, "Supplier not found")
	}
	return &s, nil
}

// GET /api/suppliers
func ListSuppliersHandler() fiber.Handler {
	return func(c *fiber.Ctx) error {
		dbq := database.DB.Model(&models.Supplier{})
		if c.Query("include_inactive") != "true" {
			dbq = dbq.Where("is_active = ?", true)
		}

		var suppliers []models.Supplier
		if err := dbq.Order("name asc").Find(&suppliers).Error; err != nil {
			return fiber.NewError(fiber.StatusInternalServerError, "Suppliers could not be listed")
		}
		return c.JSON(suppliers)
	}
}

// GET /api/suppliers/:id
func GetSupplierHandler() fiber.Handler {
	return func(c *fiber.Ctx) error {
		s, err := findSupplier(c)
		if err != nil {
			return err
		}
		return c.JSON(s)
	}
}

// POST /api/suppliers (admin, manager)
func CreateSupplierHandler() fiber.Handler {
	return func(c *fiber.Ctx) error {
		actor, err := auth.CurrentUser(c)
		if err != nil {
			return err
		}

		var body CreateSupplierRequest
		if err := c.BodyParser(&body); err != nil {
			return fiber.NewError(fiber.StatusBadRequest, "Invalid request body")
		}

		if strings.TrimSpace(body.Name) == "" {
			return fiber.NewError(fiber.StatusBadRequest, "Supplier name is required")
		}

		s := models.Supplier{
			Name:          strings.TrimSpace(body.Name),
			ContactPerson: strings.TrimSpace(body.ContactPerson),
			Phone:         strings.TrimSpace(body.Phone),
			Email:         strings.TrimSpace(body.Email),
			Address:       body.Address,
			IsActive:      true,
		}
		if err := database.DB.Create(&s).Error; err != nil {
			return fiber.NewError(fiber.StatusInternalServerError, "Supplier could not be created")
		}

		audit.WriteLog(audit.LogOptions{
			UserID:      actor.UserID,
			UserName:    actor.Username,
			EntityType:  "supplier",
			EntityID:    s.ID.String(),
			Action:      models.AuditActionCreate,
			Description: "Supplier created: " + s.Name,
			After:       s,
			IPAddress:   c.IP(),
		})

		return c.Status(fiber.StatusCreated).JSON(s)
	}
}

// PUT /api/suppliers/:id (admin, manager)
func UpdateSupplierHandler() fiber.Handler {
	return func(c *fiber.Ctx) error {
		actor, err := auth.CurrentUser(c)
		if err != nil {
			return err
		}

		s, err := findSupplier(c)
		if err != nil {
			return err
		}
		before := *s

		var body UpdateSupplierRequest
		if err := c.BodyParser(&body); err != nil {
			return fiber.NewError(fiber.StatusBadRequest, "Invalid request body")
		}

		if body.Name != nil {
			name := strings.TrimSpace(*body.Name)
			if name == "" {
				return fiber.NewError(fiber.StatusBadRequest, "Supplier name cannot be empty")
			}
			s.Name = name
		}
		if body.ContactPerson != nil {
			s.ContactPerson = strings.TrimSpace(*body.ContactPerson)
		}
		if body.Phone != nil {
			s.Phone = strings.TrimSpace(*body.Phone)
		}
		if body.Email != nil {
			s.Email = strings.TrimSpace(*body.Email)
		}
		if body.Address != nil {
			s.Address = *body.Address
		}
		if body.IsActive != nil {
			s.IsActive = *body.IsActive
		}

		if err := database.DB.Save(s).Error; err != nil {
			return fiber.NewError(fiber.StatusInternalServerError, "Supplier could not be updated")
		}

		audit.WriteLog(audit.LogOptions{
			UserID:      actor.UserID,
			UserName:    actor.Username,
			EntityType:  "supplier",
			EntityID:    s.ID.String(),
			Action:      models.AuditActionUpdate,
			Description: "Supplier updated: " + s.Name,
			Before:      before,
			After:       s,
			IPAddress:   c.IP(),
		})

		return c.JSON(s)
	}
}
