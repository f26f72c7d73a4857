package shift

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"market-backend/internal/auth"
	"market-backend/internal/dbtest"
	"market-backend/internal/models"

	"github.com/gofiber/fiber/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func appFor(svc *Service, who auth.Identity) *fiber.App {
	app := fiber.New()
	app.Use(func(c *fiber.Ctx) error {
		c.Locals(auth.CtxUserIDKey, who.UserID)
		c.Locals(auth.CtxUserRoleKey, who.Role)
		c.Locals(auth.CtxUsernameKey, who.Username)
		return c.Next()
	})
	app.Post("/api/shifts/open", OpenShiftHandler(svc))
	app.Post("/api/shifts/:id/close", CloseShiftHandler(svc))
	app.Get("/api/shifts/current", CurrentShiftHandler(svc))
	app.Get("/api/shifts/:id", GetShiftHandler(svc))
	return app
}

func send(t *testing.T, app *fiber.App, method, path, body string) *http.Response {
	t.Helper()
	req := httptest.NewRequest(method, path, strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	resp, err := app.Test(req, -1)
	require.NoError(t, err)
	return resp
}

func TestShiftHandlersLifecycle(t *testing.T) {
	db := dbtest.Open(t)
	svc := NewService(db)
	cashier := newCashier(t, db, "kasa1")
	intruder := newCashier(t, db, "kasa2")
	app := appFor(svc, cashier)

	resp := send(t, app, http.MethodGet, "/api/shifts/current", "")
	assert.Equal(t, fiber.StatusNotFound, resp.StatusCode)

	resp = send(t, app, http.MethodPost, "/api/shifts/open", `{"opening_balance":"100.00"}`)
	require.Equal(t, fiber.StatusCreated, resp.StatusCode)
	var sh models.Shift
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&sh))

	resp = send(t, app, http.MethodPost, "/api/shifts/open", `{"opening_balance":"10"}`)
	assert.Equal(t, fiber.StatusConflict, resp.StatusCode)

	addInvoice(t, db, cashier, &sh.ID, models.PaymentMethodCash, "50", false)

	resp = send(t, app, http.MethodGet, "/api/shifts/current", "")
	require.Equal(t, fiber.StatusOK, resp.StatusCode)
	var summary Summary
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&summary))
	assert.Equal(t, "150", summary.ExpectedCash.String())

	resp = send(t, appFor(svc, intruder), http.MethodGet, "/api/shifts/"+sh.ID.String(), "")
	assert.Equal(t, fiber.StatusForbidden, resp.StatusCode)

	resp = send(t, appFor(svc, intruder), http.MethodPost, "/api/shifts/"+sh.ID.String()+"/close", `{"actual_cash":"150"}`)
	assert.Equal(t, fiber.StatusForbidden, resp.StatusCode)

	resp = send(t, app, http.MethodPost, "/api/shifts/"+sh.ID.String()+"/close", `{"actual_cash":145}`)
	require.Equal(t, fiber.StatusOK, resp.StatusCode)
	var closed models.Shift
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&closed))
	assert.Equal(t, "-5", closed.Difference.String())

	resp = send(t, app, http.MethodPost, "/api/shifts/"+sh.ID.String()+"/close", `{"actual_cash":"150"}`)
	assert.Equal(t, fiber.StatusConflict, resp.StatusCode)

	resp = send(t, app, http.MethodPost, "/api/shifts/not-a-uuid/close", `{"actual_cash":"150"}`)
	assert.Equal(t, fiber.StatusBadRequest, resp.StatusCode)
}
