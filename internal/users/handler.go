package users

import (
	"strings"

	"market-backend/internal/audit"
	"market-backend/internal/auth"
	"market-backend/internal/database"
	"market-backend/internal/models"

	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"
)

type CreateUserRequest struct {
	Username string          `json:"username"`
	Email    string          `json:"email"`
	Password string          `json:"password"`
	FullName string          `json:"full_name"`
	Role     models.UserRole `json:"role"`
}

type UpdateUserRequest struct {
	Email    *string          `json:"email"`
	Password *string          `json:"password"`
	FullName *string          `json:"full_name"`
	Role     *models.UserRole `json:"role"`
	IsActive *bool            `json:"is_active"`
}

const minPasswordLength = 6

func findUser(c *fiber.Ctx) (*models.User, error) {
	id, err := uuid.Parse(c.Params("id"))
	if err != nil {
		return nil, fiber.NewError(fiber.StatusBadRequest, "Invalid user id")
	}
	var u models.User
	if err := database.DB.First(&u, "id = ?", id).Error; err != nil {
		return nil, fiber.NewError(fiber.StatusNotFound, "User not found")
	}
	return &u, nil
}

// managers may only manage cashiers
func canAssign(actor auth.Identity, role models.UserRole) bool {
	if actor.Role == models.RoleAdmin {
		return true
	}
	return actor.Role == models.RoleManager && role == models.RoleCashier
}

// ----------------------------------------
// USER CRUD
// ----------------------------------------

// GET /api/users (admin, manager)
func ListUsersHandler() fiber.Handler {
	return func(c *fiber.Ctx) error {
		dbq := database.DB.Model(&models.User{})
		if role := c.Query("role"); role != "" {
			dbq = dbq.Where("role = ?", role)
		}

		var list []models.User
		if err := dbq.Order("username asc").Find(&list).Error; err != nil {
			return fiber.NewError(fiber.StatusInternalServerError, "Users could not be listed")
		}

		res := make([]auth.UserResponse, 0, len(list))
		for i := range list {
			res = append(res, auth.NewUserResponse(&list[i]))
		}
		return c.JSON(res)
	}
}

// GET /api/users/:id (admin, manager)
func GetUserHandler() fiber.Handler {
	return func(c *fiber.Ctx) error {
		u, err := findUser(c)
		if err != nil {
			return err
		}
		return c.JSON(auth.NewUserResponse(u))
	}
}

// POST /api/users (admin, manager)
func CreateUserHandler() fiber.Handler {
	return func(c *fiber.Ctx) error {
		actor, err := auth.CurrentUser(c)
		if err != nil {
			return err
		}

		var body CreateUserRequest
		if err := c.BodyParser(&body); err != nil {
			return fiber.NewError(fiber.StatusBadRequest, "Invalid request body")
		}

		body.Username = strings.TrimSpace(body.Username)
		body.Email = strings.ToLower(strings.TrimSpace(body.Email))
		body.FullName = strings.TrimSpace(body.FullName)
		if body.Role == "" {
			body.Role = models.RoleCashier
		}

		if body.Username == "" || body.Email == "" {
			return fiber.NewError(fiber.StatusBadRequest, "username and email are required")
		}
		if len(body.Password) < minPasswordLength {
			return fiber.NewError(fiber.StatusBadRequest, "Password must be at least 6 characters")
		}
		if !body.Role.Valid() {
			return fiber.NewError(fiber.StatusBadRequest, "Invalid role")
		}
		if !canAssign(actor, body.Role) {
			return fiber.NewError(fiber.StatusForbidden, "You are not allowed to create this role")
		}

		var exist int64
		database.DB.Model(&models.User{}).
			Where("username = ? OR email = ?", body.Username, body.Email).
			Count(&exist)
		if exist > 0 {
			return fiber.NewError(fiber.StatusConflict, "Username or email is already registered")
		}

		hash, err := auth.HashPassword(body.Password)
		if err != nil {
			return fiber.NewError(fiber.StatusInternalServerError, "Password could not be hashed")
		}

		u := models.User{
			Username:     body.Username,
			Email:        body.Email,
			PasswordHash: hash,
			FullName:     body.FullName,
			Role:         body.Role,
			IsActive:     true,
		}
		if err := database.DB.Create(&u).Error; err != nil {
			return fiber.NewError(fiber.StatusInternalServerError, "User could not be created")
		}

		audit.WriteLog(audit.LogOptions{
			UserID:      actor.UserID,
			UserName:    actor.Username,
			EntityType:  "user",
			EntityID:    u.ID.String(),
			Action:      models.AuditActionCreate,
			Description: "User created: " + u.Username + " (" + string(u.Role) + ")",
			After:       auth.NewUserResponse(&u),
			IPAddress:   c.IP(),
		})

		return c.Status(fiber.StatusCreated).JSON(auth.NewUserResponse(&u))
	}
}

// PUT /api/users/:id (admin, manager)
func UpdateUserHandler() fiber.Handler {
	return func(c *fiber.Ctx) error {
		actor, err := auth.CurrentUser(c)
		if err != nil {
			return err
		}

		u, err := findUser(c)
		if err != nil {
			return err
		}
		if !canAssign(actor, u.Role) {
			return fiber.NewError(fiber.StatusForbidden, "You are not allowed to edit this user")
		}
		before := auth.NewUserResponse(u)

		var body UpdateUserRequest
		if err := c.BodyParser(&body); err != nil {
			return fiber.NewError(fiber.StatusBadRequest, "Invalid request body")
		}

		if body.Email != nil {
			email := strings.ToLower(strings.TrimSpace(*body.Email))
			if email == "" {
				return fiber.NewError(fiber.StatusBadRequest, "Email cannot be empty")
			}
			var n int64
			database.DB.Model(&models.User{}).Where("email = ? AND id <> ?", email, u.ID).Count(&n)
			if n > 0 {
				return fiber.NewError(fiber.StatusConflict, "Email is already registered")
			}
			u.Email = email
		}
		if body.FullName != nil {
			u.FullName = strings.TrimSpace(*body.FullName)
		}
		if body.Role != nil {
			if !body.Role.Valid() || !canAssign(actor, *body.Role) {
				return fiber.NewError(fiber.StatusForbidden, "You are not allowed to assign this role")
			}
			u.Role = *body.Role
		}
		if body.IsActive != nil {
			if !*body.IsActive && u.ID == actor.UserID {
				return fiber.NewError(fiber.StatusBadRequest, "You cannot deactivate your own account")
			}
			u.IsActive = *body.IsActive
		}
		if body.Password != nil {
			if len(*body.Password) < minPasswordLength {
				return fiber.NewError(fiber.StatusBadRequest, "Password must be at least 6 characters")
			}
			hash, err := auth.HashPassword(*body.Password)
			if err != nil {
				return fiber.NewError(fiber.StatusInternalServerError, "Password could not be hashed")
			}
			u.PasswordHash = hash
		}

		if err := database.DB.Save(u).Error; err != nil {
			return fiber.NewError(fiber.StatusInternalServerError, "User could not be updated")
		}

		audit.WriteLog(audit.LogOptions{
			UserID:      actor.UserID,
			UserName:    actor.Username,
			EntityType:  "user",
			EntityID:    u.ID.String(),
			Action:      models.AuditActionUpdate,
			Description: "User updated: " + u.Username,
			Before:      before,
			After:       auth.NewUserResponse(u),
			IPAddress:   c.IP(),
		})

		return c.JSON(auth.NewUserResponse(u))
	}
}

// DELETE /api/users/:id (admin)
// Users own invoices and shifts, so they are deactivated rather than removed.
func DeleteUserHandler() fiber.Handler {
	return func(c *fiber.Ctx) error {
		actor, err := auth.CurrentUser(c)
		if err != nil {
			return err
		}

		u, err := findUser(c)
		if err != nil {
			return err
		}
		if u.ID == actor.UserID {
			return fiber.NewError(fiber.StatusBadRequest, "You cannot delete your own account")
		}

		if err := database.DB.Model(u).Update("is_active", false).Error; err != nil {
			return fiber.NewError(fiber.StatusInternalServerError, "User could not be deleted")
		}

		audit.WriteLog(audit.LogOptions{
			UserID:      actor.UserID,
			UserName:    actor.Username,
			EntityType:  "user",
			EntityID:    u.ID.String(),
			Action:      models.AuditActionDelete,
			Description: "User deactivated: " + u.Username,
			IPAddress:   c.IP(),
		})

		return c.SendStatus(fiber.StatusNoContent)
	}
}
