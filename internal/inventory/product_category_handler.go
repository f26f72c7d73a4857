package inventory

import (
	"strings"

	"market-backend/internal/audit"
	"market-backend/internal/auth"
	"market-backend/internal/database"
	"market-backend/internal/models"

	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"
)

type CreateCategoryRequest struct {
	Name        string `json:"name"`
	NameEn      string `json:"name_en"`
	Description string `json:"description"`
}

type UpdateCategoryRequest struct {
	Name        *string `json:"name"`
	NameEn      *string `json:"name_en"`
	Description *string `json:"description"`
	IsActive    *bool   `json:"is_active"`
}

func findCategory(c *fiber.Ctx) (*models.Category, error) {
	id, err := uuid.Parse(c.Params("id"))
	if err != nil {
		return nil, fiber.NewError(fiber.StatusBadRequest, "Invalid category id")
	}
	var cat models.Category
	if err := database.DB.First(&cat, "id = ?", id).Error; err != nil {
		return nil, fiber.NewError(fiber.StatusNotFound, "Category not found")
	}
	return &cat, nil
}

func categoryNameTaken(name string, except uuid.UUID) bool {
	var n int64
	database.DB.Model(&models.Category{}).Where("name = ? AND id <> ?", name, except).Count(&n)
	return n > 0
}

// GET /api/categories
func ListCategoriesHandler() fiber.Handler {
	return func(c *fiber.Ctx) error {
		var categories []models.Category
		if err := database.DB.Where("is_active = ?", true).Order("name asc").Find(&categories).Error; err != nil {
			return fiber.NewError(fiber.StatusInternalServerError, "Categories could not be listed")
		}
		return c.JSON(categories)
	}
}

// GET /api/categories/:id
func GetCategoryHandler() fiber.Handler {
	return func(c *fiber.Ctx) error {
		cat, err := findCategory(c)
		if err != nil {
			return err
		}
		return c.JSON(cat)
	}
}

// POST /api/categories (admin, manager)
func CreateCategoryHandler() fiber.Handler {
	return func(c *fiber.Ctx) error {
		actor, err := auth.CurrentUser(c)
		if err != nil {
			return err
		}

		var body CreateCategoryRequest
		if err := c.BodyParser(&body); err != nil {
			return fiber.NewError(fiber.StatusBadRequest, "Invalid request body")
		}

		body.Name = strings.TrimSpace(body.Name)
		if body.Name == "" {
			return fiber.NewError(fiber.StatusBadRequest, "Category name is required")
		}
		if categoryNameTaken(body.Name, uuid.Nil) {
			return fiber.NewError(fiber.StatusConflict, "Category name is already in use")
		}

		cat := models.Category{
			Name:        body.Name,
			NameEn:      strings.TrimSpace(body.NameEn),
			Description: body.Description,
			IsActive:    true,
		}
		if err := database.DB.Create(&cat).Error; err != nil {
			return fiber.NewError(fiber.StatusInternalServerError, "Category could not be created")
		}

		audit.WriteLog(audit.LogOptions{
			UserID:      actor.UserID,
			UserName:    actor.Username,
			EntityType:  "category",
			EntityID:    cat.ID.String(),
			Action:      models.AuditActionCreate,
			Description: "Category created: " + cat.Name,
			After:       cat,
			IPAddress:   c.IP(),
		})

		return c.Status(fiber.StatusCreated).JSON(cat)
	}
}

// PUT /api/categories/:id (admin, manager)
func UpdateCategoryHandler() fiber.Handler {
	return func(c *fiber.Ctx) error {
		actor, err := auth.CurrentUser(c)
		if err != nil {
			return err
		}

		cat, err := findCategory(c)
		if err != nil {
			return err
		}
		before := *cat

		var body UpdateCategoryRequest
		if err := c.BodyParser(&body); err != nil {
			return fiber.NewError(fiber.StatusBadRequest, "Invalid request body")
		}

		if body.Name != nil {
			name := strings.TrimSpace(*body.Name)
			if name == "" {
				return fiber.NewError(fiber.StatusBadRequest, "Category name cannot be empty")
			}
			if categoryNameTaken(name, cat.ID) {
				return fiber.NewError(fiber.StatusConflict, "Category name is already in use")
			}
			cat.Name = name
		}
		if body.NameEn != nil {
			cat.NameEn = strings.TrimSpace(*body.NameEn)
		}
		if body.Description != nil {
			cat.Description = *body.Description
		}
		if body.IsActive != nil {
			cat.IsActive = *body.IsActive
		}

		if err := database.DB.Save(cat).Error; err != nil {
			return fiber.NewError(fiber.StatusInternalServerError, "Category could not be updated")
		}

		audit.WriteLog(audit.LogOptions{
			UserID:      actor.UserID,
			UserName:    actor.Username,
			EntityType:  "category",
			EntityID:    cat.ID.String(),
			Action:      models.AuditActionUpdate,
			Description: "Category updated: " + cat.Name,
			Before:      before,
			After:       cat,
			IPAddress:   c.IP(),
		})

		return c.JSON(cat)
	}
}

// DELETE /api/categories/:id (admin, manager)
// Categories with active products are kept.
func DeleteCategoryHandler() fiber.Handler {
	return func(c *fiber.Ctx) error {
		actor, err := auth.CurrentUser(c)
		if err != nil {
			return err
		}

		cat, err := findCategory(c)
		if err != nil {
			return err
		}

		var count int64
		database.DB.Model(&models.Product{}).Where("category_id = ? AND is_active = ?", cat.ID, true).Count(&count)
		if count > 0 {
			return fiber.NewError(fiber.StatusBadRequest, "Category still has active products")
		}

		if err := database.DB.Model(cat).Update("is_active", false).Error; err != nil {
			return fiber.NewError(fiber.StatusInternalServerError, "Category could not be deleted")
		}

		audit.WriteLog(audit.LogOptions{
			UserID:      actor.UserID,
			UserName:    actor.Username,
			EntityType:  "category",
			EntityID:    cat.ID.String(),
			Action:      models.AuditActionDelete,
			Description: "Category deactivated: " + cat.Name,
			IPAddress:   c.IP(),
		})

		return c.SendStatus(fiber.StatusNoContent)
	}
}
