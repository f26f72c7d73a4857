package main

import (
	"log"
	"strings"
	"time"

	"market-backend/internal/audit"
	"market-backend/internal/auth"
	"market-backend/internal/cache"
	"market-backend/internal/config"
	"market-backend/internal/customer"
	"market-backend/internal/database"
	"market-backend/internal/inventory"
	"market-backend/internal/invoicing"
	"market-backend/internal/metrics"
	"market-backend/internal/models"
	"market-backend/internal/report"
	"market-backend/internal/shift"
	"market-backend/internal/supplier"
	"market-backend/internal/users"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/cors"
	"github.com/gofiber/fiber/v2/middleware/logger"
	"github.com/gofiber/fiber/v2/middleware/recover"
)

func main() {
	cfg := config.Load()
	database.Init(cfg)

	if err := auth.EnsureAdmin(database.DB, cfg.AdminUsername, cfg.AdminPassword); err != nil {
		log.Fatalf("Admin user could not be seeded: %v", err)
	}

	if err := cache.Init(cfg.RedisAddr, cfg.RedisPassword); err != nil {
		log.Printf("[Cache] redis unavailable at %s, continuing without cache: %v", cfg.RedisAddr, err)
	} else if cache.Enabled() {
		log.Printf("[Cache] redis connected at %s", cfg.RedisAddr)
	}
	defer cache.Close()

	invoiceSvc := invoicing.NewService(database.DB)
	shiftSvc := shift.NewService(database.DB)
	stockSvc := inventory.NewStockService(database.DB)
	reportSvc := report.NewService(database.DB, time.Duration(cfg.DashboardCacheTTLSecs)*time.Second)

	app := fiber.New(fiber.Config{
		ErrorHandler: func(c *fiber.Ctx, err error) error {
			if e, ok := err.(*fiber.Error); ok {
				return c.Status(e.Code).JSON(fiber.Map{
					"error": e.Message,
				})
			}
			log.Println("Unexpected error:", err)
			return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
				"error": "Unexpected server error",
			})
		},
	})

	app.Use(recover.New())
	app.Use(logger.New())
	app.Use(metrics.Middleware())

	// CORS_ALLOWED_ORIGINS is a comma separated list
	corsOrigins := strings.Split(cfg.CORSOrigins, ",")
	for i := range corsOrigins {
		corsOrigins[i] = strings.TrimSpace(corsOrigins[i])
	}
	app.Use(cors.New(cors.Config{
		AllowOrigins: strings.Join(corsOrigins, ","),
		AllowHeaders: "Origin, Content-Type, Accept, Authorization",
		AllowMethods: "GET,POST,PUT,DELETE,OPTIONS",
	}))

	app.Get("/metrics", metrics.Handler())

	api := app.Group("/api")

	api.Get("/health", func(c *fiber.Ctx) error {
		return c.JSON(fiber.Map{"status": "healthy"})
	})

	// Public auth
	api.Post("/auth/login", auth.LoginHandler(cfg))

	// Protected
	protected := api.Group("")
	protected.Use(auth.JWTMiddleware(cfg.JWTSecret))

	managers := auth.RequireRole(models.RoleAdmin, models.RoleManager)
	admins := auth.RequireRole(models.RoleAdmin)

	protected.Get("/auth/me", auth.MeHandler())

	// Users
	protected.Post("/users", managers, users.CreateUserHandler())
	protected.Get("/users", managers, users.ListUsersHandler())
	protected.Get("/users/:id", managers, users.GetUserHandler())
	protected.Put("/users/:id", managers, users.UpdateUserHandler())
	protected.Delete("/users/:id", admins, users.DeleteUserHandler())

	// Categories
	protected.Get("/categories", inventory.ListCategoriesHandler())
	protected.Get("/categories/:id", inventory.GetCategoryHandler())
	protected.Post("/categories", managers, inventory.CreateCategoryHandler())
	protected.Put("/categories/:id", managers, inventory.UpdateCategoryHandler())
	protected.Delete("/categories/:id", managers, inventory.DeleteCategoryHandler())

	// Products
	protected.Get("/products", inventory.ListProductsHandler())
	protected.Get("/products/barcode/:barcode", inventory.GetProductByBarcodeHandler())
	protected.Get("/products/:id", inventory.GetProductHandler())
	protected.Post("/products", managers, inventory.CreateProductHandler())
	protected.Put("/products/:id", managers, inventory.UpdateProductHandler())
	protected.Delete("/products/:id", managers, inventory.DeleteProductHandler())

	// Customers
	protected.Get("/customers", customer.ListCustomersHandler())
	protected.Get("/customers/:id", customer.GetCustomerHandler())
	protected.Post("/customers", customer.CreateCustomerHandler())
	protected.Put("/customers/:id", customer.UpdateCustomerHandler())

	// Suppliers
	protected.Get("/suppliers", managers, supplier.ListSuppliersHandler())
	protected.Get("/suppliers/:id", managers, supplier.GetSupplierHandler())
	protected.Post("/suppliers", managers, supplier.CreateSupplierHandler())
	protected.Put("/suppliers/:id", managers, supplier.UpdateSupplierHandler())

	// Invoices
	protected.Post("/invoices", invoicing.CreateInvoiceHandler(invoiceSvc))
	protected.Get("/invoices", invoicing.ListInvoicesHandler(invoiceSvc))
	protected.Get("/invoices/:id", invoicing.GetInvoiceHandler(invoiceSvc))
	protected.Get("/invoices/:id/receipt.pdf", invoicing.ReceiptHandler(invoiceSvc, cfg.StoreName))

	// Shifts
	protected.Post("/shifts/open", shift.OpenShiftHandler(shiftSvc))
	protected.Get("/shifts/current", shift.CurrentShiftHandler(shiftSvc))
	protected.Get("/shifts", shift.ListShiftsHandler(shiftSvc))
	protected.Get("/shifts/:id", shift.GetShiftHandler(shiftSvc))
	protected.Post("/shifts/:id/close", shift.CloseShiftHandler(shiftSvc))

	// Inventory
	protected.Post("/inventory/adjustments", managers, inventory.CreateAdjustmentHandler(stockSvc))
	protected.Get("/inventory/movements", inventory.ListMovementsHandler(stockSvc))

	// Dashboard & reports
	protected.Get("/dashboard/stats", report.DashboardStatsHandler(reportSvc))
	protected.Get("/reports/sales", managers, report.SalesReportHandler(reportSvc))
	protected.Get("/reports/sales/export", managers, report.SalesExportHandler(reportSvc))
	protected.Get("/reports/products/low-stock", inventory.LowStockHandler(stockSvc))

	// Audit logs
	protected.Get("/audit-logs", managers, audit.ListAuditLogsHandler())

	log.Println("Server listening on port:", cfg.HTTPPort)
	if err := app.Listen(":" + cfg.HTTPPort); err != nil {
		log.Fatal(err)
	}
}
