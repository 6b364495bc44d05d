// Package server assembles the fiber application: middleware, error
// rendering and every route.
package server

import (
	"errors"
	"log/slog"
	"strings"

	"warehouse-backend/internal/audit"
	"warehouse-backend/internal/auth"
	"warehouse-backend/internal/catalog"
	"warehouse-backend/internal/config"
	"warehouse-backend/internal/inventory"
	"warehouse-backend/internal/kit"
	"warehouse-backend/internal/location"
	"warehouse-backend/internal/models"
	"warehouse-backend/internal/purchase"
	"warehouse-backend/internal/supplier"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/adaptor"
	"github.com/gofiber/fiber/v2/middleware/cors"
	"github.com/gofiber/fiber/v2/middleware/logger"
	"github.com/gofiber/fiber/v2/middleware/recover"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"gorm.io/gorm"
)

// ErrorHandler renders every error as {"error": msg}. Errors that are not
// *fiber.Error are logged and hidden behind a generic 500.
func ErrorHandler(log *slog.Logger) fiber.ErrorHandler {
	return func(c *fiber.Ctx, err error) error {
		var e *fiber.Error
		if errors.As(err, &e) {
			return c.Status(e.Code).JSON(fiber.Map{"error": e.Message})
		}
		log.Error("unexpected error", "method", c.Method(), "path", c.Path(), "err", err)
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"error": "Unexpected server error",
		})
	}
}

func New(cfg *config.Config, db *gorm.DB, log *slog.Logger) *fiber.App {
	app := fiber.New(fiber.Config{
		AppName:      "warehouse-backend",
		ErrorHandler: ErrorHandler(log),
	})

	app.Use(recover.New())
	if cfg.Env == "dev" {
		app.Use(logger.New())
	}

	origins := strings.Split(cfg.CORSOrigins, ",")
	for i := range origins {
		origins[i] = strings.TrimSpace(origins[i])
	}
	app.Use(cors.New(cors.Config{
		AllowOrigins: strings.Join(origins, ","),
		AllowHeaders: "Origin, Content-Type, Accept, Authorization",
		AllowMethods: "GET,POST,PUT,DELETE,OPTIONS",
	}))

	app.Get("/health", healthHandler(db))
	if cfg.MetricsEnabled {
		app.Get("/metrics", adaptor.HTTPHandler(promhttp.Handler()))
	}

	alloc := kit.NewAllocator(db, log)
	tokens := auth.NewTokens(cfg.JWTSecret, cfg.TokenTTL)

	api := app.Group("/api")

	// Public auth
	api.Post("/auth/register-admin", auth.RegisterAdminHandler(db))
	api.Post("/auth/login", auth.LoginHandler(db, tokens))

	protected := api.Group("")
	protected.Use(auth.JWTMiddleware(tokens))

	protected.Get("/auth/me", auth.MeHandler(db))

	// Admin only
	admin := protected.Group("/admin")
	admin.Use(auth.RequireRole(models.RoleAdmin))

	admin.Post("/users", auth.CreateUserHandler(db))

	admin.Post("/stores", location.CreateStoreHandler(db))
	admin.Put("/stores/:id", location.UpdateStoreHandler(db))
	admin.Delete("/stores/:id", location.DeleteStoreHandler(db))
	admin.Post("/stores/:id/racks", location.CreateRackHandler(db))
	admin.Delete("/racks/:id", location.DeleteRackHandler(db))
	admin.Post("/racks/:id/shelves", location.CreateShelfHandler(db))
	admin.Delete("/shelves/:id", location.DeleteShelfHandler(db))

	admin.Post("/items", catalog.CreateItemHandler(db))
	admin.Put("/items/:id", catalog.UpdateItemHandler(db))
	admin.Delete("/items/:id", catalog.DeleteItemHandler(db))
	admin.Put("/items/:id/components", catalog.ReplaceComponentsHandler(db))
	admin.Post("/items/import", catalog.ImportItemsHandler(db))

	for path, k := range map[string]catalog.Kind{
		"/brands":     catalog.Brands,
		"/makes":      catalog.Makes,
		"/categories": catalog.Categories,
	} {
		protected.Get(path, catalog.ListNamedHandler(db, k))
		admin.Post(path, catalog.CreateNamedHandler(db, k))
		admin.Put(path+"/:id", catalog.UpdateNamedHandler(db, k))
		admin.Delete(path+"/:id", catalog.DeleteNamedHandler(db, k))
	}

	admin.Post("/suppliers", supplier.CreateSupplierHandler(db))
	admin.Put("/suppliers/:id", supplier.UpdateSupplierHandler(db))
	admin.Delete("/suppliers/:id", supplier.DeleteSupplierHandler(db))

	admin.Post("/audit-logs/:id/undo", audit.UndoAuditLogHandler(db))

	// Every signed-in user; store managers are pinned to their store
	protected.Get("/stores", location.ListStoresHandler(db))
	protected.Get("/stores/:id", location.GetStoreHandler(db))
	protected.Get("/stores/:id/racks", location.ListRacksHandler(db))
	protected.Get("/racks/:id/shelves", location.ListShelvesHandler(db))

	protected.Get("/items", catalog.ListItemsHandler(db))
	protected.Get("/items/:id", catalog.GetItemHandler(db))

	protected.Get("/suppliers", supplier.ListSuppliersHandler(db))
	protected.Get("/suppliers/:id", supplier.GetSupplierHandler(db))

	protected.Post("/kits/makeKit", kit.MakeKitHandler(alloc))
	protected.Post("/kits/breakKit", kit.BreakKitHandler(alloc))
	protected.Get("/kits/viewKits", kit.ViewKitsHandler(alloc))

	protected.Get("/purchase-orders", purchase.ListOrdersHandler(db))
	protected.Post("/purchase-orders", purchase.CreateOrderHandler(db))
	protected.Get("/purchase-orders/:id", purchase.GetOrderHandler(db))
	protected.Post("/purchase-orders/:id/receive", purchase.ReceiveOrderHandler(db))
	protected.Post("/purchase-orders/:id/cancel", purchase.CancelOrderHandler(db))

	protected.Get("/inventory", inventory.ListRecordsHandler(db))
	protected.Get("/inventory/summary", inventory.SummaryHandler(db))
	protected.Get("/inventory/export", inventory.ExportHandler(db))
	protected.Post("/inventory/adjust", inventory.AdjustHandler(db))
	protected.Get("/flow-logs", inventory.ListFlowLogsHandler(db))

	protected.Get("/audit-logs", audit.ListAuditLogsHandler(db))

	return app
}

// GET /health
func healthHandler(db *gorm.DB) fiber.Handler {
	return func(c *fiber.Ctx) error {
		sqlDB, err := db.DB()
		if err == nil {
			err = sqlDB.PingContext(c.UserContext())
		}
		if err != nil {
			return c.Status(fiber.StatusServiceUnavailable).JSON(fiber.Map{"status": "unavailable"})
		}
		return c.JSON(fiber.Map{"status": "ok"})
	}
}
