package inventory

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

func catalogApp(t *testing.T) *fiber.App {
	t.Helper()
	db := dbtest.Open(t)
	dbtest.UseGlobal(t, db)

	app := fiber.New()
	app.Use(func(c *fiber.Ctx) error {
		c.Locals(auth.CtxUserIDKey, uuid.New())
		c.Locals(auth.CtxUserRoleKey, models.RoleManager)
		c.Locals(auth.CtxUsernameKey, "mudur")
		return c.Next()
	})
	app.Get("/api/categories", ListCategoriesHandler())
	app.Post("/api/categories", CreateCategoryHandler())
	app.Delete("/api/categories/:id", DeleteCategoryHandler())
	app.Get("/api/products", ListProductsHandler())
	app.Get("/api/products/barcode/:barcode", GetProductByBarcodeHandler())
	app.Get("/api/products/:id", GetProductHandler())
	app.Post("/api/products", CreateProductHandler())
	app.Put("/api/products/:id", UpdateProductHandler())
	app.Delete("/api/products/:id", DeleteProductHandler())
	app.Post("/api/inventory/adjustments", CreateAdjustmentHandler(NewStockService(db)))
	return app
}

func do(t *testing.T, app *fiber.App, method, path, body string) (*http.Response, []byte) {
	t.Helper()
	var r io.Reader
	if body != "" {
		r = strings.NewReader(body)
	}
	req := httptest.NewRequest(method, path, r)
	req.Header.Set("Content-Type", "application/json")
	resp, err := app.Test(req, -1)
	require.NoError(t, err)
	raw, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	return resp, raw
}

func TestProductLifecycle(t *testing.T) {
	app := catalogApp(t)

	resp, raw := do(t, app, http.MethodPost, "/api/categories", `{"name":"Icecek"}`)
	require.Equal(t, fiber.StatusCreated, resp.StatusCode)
	var cat models.Category
	require.NoError(t, json.Unmarshal(raw, &cat))

	body := `{"barcode":"8690001","name":"Ayran","category_id":"` + cat.ID.String() +
		`","cost_price":"6","selling_price":"10","stock_quantity":20,"min_stock_level":5,"tax_rate":"10"}`
	resp, raw = do(t, app, http.MethodPost, "/api/products", body)
	require.Equal(t, fiber.StatusCreated, resp.StatusCode)
	var p models.Product
	require.NoError(t, json.Unmarshal(raw, &p))
	assert.Equal(t, "piece", p.Unit)
	assert.True(t, p.IsActive)

	resp, _ = do(t, app, http.MethodPost, "/api/products", `{"barcode":"8690001","name":"Kopya"}`)
	assert.Equal(t, fiber.StatusConflict, resp.StatusCode)

	resp, _ = do(t, app, http.MethodPost, "/api/products", `{"barcode":"8690002","name":"Vergi","tax_rate":"101"}`)
	assert.Equal(t, fiber.StatusBadRequest, resp.StatusCode)

	resp, raw = do(t, app, http.MethodGet, "/api/products/barcode/8690001", "")
	require.Equal(t, fiber.StatusOK, resp.StatusCode)
	assert.Contains(t, string(raw), "Ayran")

	resp, raw = do(t, app, http.MethodGet, "/api/products?search=ayr", "")
	require.Equal(t, fiber.StatusOK, resp.StatusCode)
	var found []models.Product
	require.NoError(t, json.Unmarshal(raw, &found))
	assert.Len(t, found, 1)

	resp, raw = do(t, app, http.MethodPut, "/api/products/"+p.ID.String(), `{"selling_price":"12.50","name":"Ayran 300ml"}`)
	require.Equal(t, fiber.StatusOK, resp.StatusCode)
	var updated models.Product
	require.NoError(t, json.Unmarshal(raw, &updated))
	assert.Equal(t, "12.5", updated.SellingPrice.String())
	assert.Equal(t, 20, updated.StockQuantity)

	resp, _ = do(t, app, http.MethodDelete, "/api/categories/"+cat.ID.String(), "")
	assert.Equal(t, fiber.StatusBadRequest, resp.StatusCode)

	resp, _ = do(t, app, http.MethodDelete, "/api/products/"+p.ID.String(), "")
	assert.Equal(t, fiber.StatusNoContent, resp.StatusCode)

	resp, _ = do(t, app, http.MethodGet, "/api/products/barcode/8690001", "")
	assert.Equal(t, fiber.StatusNotFound, resp.StatusCode)

	// soft delete keeps the row
	resp, raw = do(t, app, http.MethodGet, "/api/products/"+p.ID.String(), "")
	require.Equal(t, fiber.StatusOK, resp.StatusCode)
	assert.Contains(t, string(raw), `"is_active":false`)

	resp, _ = do(t, app, http.MethodDelete, "/api/categories/"+cat.ID.String(), "")
	assert.Equal(t, fiber.StatusNoContent, resp.StatusCode)
}

func TestAdjustmentHandler(t *testing.T) {
	app := catalogApp(t)

	resp, raw := do(t, app, http.MethodPost, "/api/products", `{"barcode":"111","name":"Pirinc","stock_quantity":1}`)
	require.Equal(t, fiber.StatusCreated, resp.StatusCode)
	var p models.Product
	require.NoError(t, json.Unmarshal(raw, &p))

	resp, _ = do(t, app, http.MethodPost, "/api/inventory/adjustments",
		`{"product_id":"`+p.ID.String()+`","movement_type":"damage","quantity":2}`)
	assert.Equal(t, fiber.StatusConflict, resp.StatusCode)

	resp, _ = do(t, app, http.MethodPost, "/api/inventory/adjustments",
		`{"product_id":"`+p.ID.String()+`","movement_type":"purchase","quantity":10}`)
	assert.Equal(t, fiber.StatusCreated, resp.StatusCode)

	resp, _ = do(t, app, http.MethodPost, "/api/inventory/adjustments",
		`{"product_id":"`+uuid.NewString()+`","movement_type":"purchase","quantity":1}`)
	assert.Equal(t, fiber.StatusNotFound, resp.StatusCode)
}
