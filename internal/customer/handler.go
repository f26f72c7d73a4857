package customer

import (
	"errors"
	"strings"

	"market-backend/internal/audit"
	"market-backend/internal/auth"
	"market-backend/internal/database"
	"market-backend/internal/models"

	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"
	"gorm.io/gorm"
)

type CreateCustomerRequest struct {
	Name    string `json:"name"`
	Phone   string `json:"phone"`
	Email   string `json:"email"`
	Address string `json:"address"`
}

type UpdateCustomerRequest struct {
	Name          *string `json:"name"`
	Phone         *string `json:"phone"`
	Email         *string `json:"email"`
	Address       *string `json:"address"`
	LoyaltyPoints *int    `json:"loyalty_points"`
	IsActive      *bool   `json:"is_active"`
}

func findCustomer(c *fiber.Ctx) (*models.Customer, error) {
	id, err := uuid.Parse(c.Params("id"))
	if err != nil {
		return nil, fiber.NewError(fiber.StatusBadRequest, "Invalid customer id")
	}
	var cust models.Customer
	if err := database.DB.First(&cust, "id = ?", id).Error; err != nil {
		return nil, fiber.NewError(fiber.StatusNotFound, "Customer not found")
	}
	return &cust, nil
}

func phoneTaken(phone string, except uuid.UUID) bool {
	var n int64
	database.DB.Model(&models.Customer{}).Where("phone = ? AND id <> ?", phone, except).Count(&n)
	return n > 0
}

// GET /api/customers?search=
func ListCustomersHandler() fiber.Handler {
	return func(c *fiber.Ctx) error {
		dbq := database.DB.Model(&models.Customer{}).Where("is_active = ?", true)
		if search := strings.TrimSpace(c.Query("search")); search != "" {
			like := "%" + strings.ToLower(search) + "%"
			dbq = dbq.Where("LOWER(name) LIKE ? OR phone LIKE ?", like, like)
		}

		var customers []models.Customer
		if err := dbq.Order("name asc").
			Limit(c.QueryInt("limit", 100)).
			Offset(c.QueryInt("offset", 0)).
			Find(&customers).Error; err != nil {
			return fiber.NewError(fiber.StatusInternalServerError, "Customers could not be listed")
		}
		return c.JSON(customers)
	}
}

// GET /api/customers/:id
func GetCustomerHandler() fiber.Handler {
	return func(c *fiber.Ctx) error {
		cust, err := findCustomer(c)
		if err != nil {
			return err
		}
		return c.JSON(cust)
	}
}

// POST /api/customers
func CreateCustomerHandler() fiber.Handler {
	return func(c *fiber.Ctx) error {
		actor, err := auth.CurrentUser(c)
		if err != nil {
			return err
		}

		var body CreateCustomerRequest
		if err := c.BodyParser(&body); err != nil {
			return fiber.NewError(fiber.StatusBadRequest, "Invalid request body")
		}

		body.Name = strings.TrimSpace(body.Name)
		body.Phone = strings.TrimSpace(body.Phone)
		if body.Name == "" || body.Phone == "" {
			return fiber.NewError(fiber.StatusBadRequest, "name and phone are required")
		}
		if phoneTaken(body.Phone, uuid.Nil) {
			return fiber.NewError(fiber.StatusConflict, "Phone number is already registered")
		}

		cust := models.Customer{
			Name:     body.Name,
			Phone:    body.Phone,
			Email:    strings.TrimSpace(body.Email),
			Address:  body.Address,
			IsActive: true,
		}
		if err := database.DB.Create(&cust).Error; err != nil {
			if errors.Is(err, gorm.ErrDuplicatedKey) {
				return fiber.NewError(fiber.StatusConflict, "Phone number is already registered")
			}
			return fiber.NewError(fiber.StatusInternalServerError, "Customer could not be created")
		}

		audit.WriteLog(audit.LogOptions{
			UserID:      actor.UserID,
			UserName:    actor.Username,
			EntityType:  "customer",
			EntityID:    cust.ID.String(),
			Action:      models.AuditActionCreate,
			Description: "Customer created: " + cust.Name,
			After:       cust,
			IPAddress:   c.IP(),
		})

		return c.Status(fiber.StatusCreated).JSON(cust)
	}
}

// PUT /api/customers/:id
func UpdateCustomerHandler() fiber.Handler {
	return func(c *fiber.Ctx) error {
		actor, err := auth.CurrentUser(c)
		if err != nil {
			return err
		}

		cust, err := findCustomer(c)
		if err != nil {
			return err
		}
		before := *cust

		var body UpdateCustomerRequest
		if err := c.BodyParser(&body); err != nil {
			return fiber.NewError(fiber.StatusBadRequest, "Invalid request body")
		}

		if body.Name != nil {
			name := strings.TrimSpace(*body.Name)
			if name == "" {
				return fiber.NewError(fiber.StatusBadRequest, "Name cannot be empty")
			}
			cust.Name = name
		}
		if body.Phone != nil {
			phone := strings.TrimSpace(*body.Phone)
			if phone == "" {
				return fiber.NewError(fiber.StatusBadRequest, "Phone cannot be empty")
			}
			if phoneTaken(phone, cust.ID) {
				return fiber.NewError(fiber.StatusConflict, "Phone number is already registered")
			}
			cust.Phone = phone
		}
		if body.Email != nil {
			cust.Email = strings.TrimSpace(*body.Email)
		}
		if body.Address != nil {
			cust.Address = *body.Address
		}
		if body.LoyaltyPoints != nil {
			if *body.LoyaltyPoints < 0 {
				return fiber.NewError(fiber.StatusBadRequest, "loyalty_points must not be negative")
			}
			cust.LoyaltyPoints = *body.LoyaltyPoints
		}
		if body.IsActive != nil {
			cust.IsActive = *body.IsActive
		}

		if err := database.DB.Save(cust).Error; err != nil {
			return fiber.NewError(fiber.StatusInternalServerError, "Customer could not be updated")
		}

		audit.WriteLog(audit.LogOptions{
			UserID:      actor.UserID,
			UserName:    actor.Username,
			EntityType:  "customer",
			EntityID:    cust.ID.String(),
			Action:      models.AuditActionUpdate,
			Description: "Customer updated: " + cust.Name,
			Before:      before,
			After:       cust,
			IPAddress:   c.IP(),
		})

		return c.JSON(cust)
	}
}
