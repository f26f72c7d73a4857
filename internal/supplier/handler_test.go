package supplier

import (
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"market-backend/internal/auth"
	"market-backend/internal/dbtest"
	"market-backend/internal/models"

	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSupplierHandlers(t *testing.T) {
	db := dbtest.Open(t)
	dbtest.UseGlobal(t, db)

	app := fiber.New()
	app.Use(func(c *fiber.Ctx) error {
		c.Locals(auth.CtxUserIDKey, uuid.New())
		c.Locals(auth.CtxUserRoleKey, models.RoleAdmin)
		return c.Next()
	})
	app.Get("/api/suppliers", ListSuppliersHandler())
	app.Post("/api/suppliers", CreateSupplierHandler())
	app.Put("/api/suppliers/:id", UpdateSupplierHandler())

	call := func(method, path, body string) (int, []byte) {
		req := httptest.NewRequest(method, path, strings.NewReader(body))
		req.Header.Set("Content-Type", "application/json")
		resp, err := app.Test(req, -1)
		require.NoError(t, err)
		raw, err := io.ReadAll(resp.Body)
		require.NoError(t, err)
		return resp.StatusCode, raw
	}

	status, _ := call(http.MethodPost, "/api/suppliers", `{"name":"  "}`)
	assert.Equal(t, fiber.StatusBadRequest, status)

	status, raw := call(http.MethodPost, "/api/suppliers", `{"name":"Toptan Gida","contact_person":"Mehmet"}`)
	require.Equal(t, fiber.StatusCreated, status)
	var s models.Supplier
	require.NoError(t, json.Unmarshal(raw, &s))

	status, _ = call(http.MethodPut, "/api/suppliers/"+s.ID.String(), `{"is_active":false}`)
	require.Equal(t, fiber.StatusOK, status)

	status, raw = call(http.MethodGet, "/api/suppliers", "")
	require.Equal(t, fiber.StatusOK, status)
	var active []models.Supplier
	require.NoError(t, json.Unmarshal(raw, &active))
	assert.Empty(t, active)

	status, raw = call(http.MethodGet, "/api/suppliers?include_inactive=true", "")
	require.Equal(t, fiber.StatusOK, status)
	assert.Contains(t, string(raw), "Toptan Gida")
}
