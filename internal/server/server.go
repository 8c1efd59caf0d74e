// Package server wires the services into a fiber application.
package server

import (
	"strings"

	"dinein-backend/internal/audit"
	"dinein-backend/internal/auth"
	"dinein-backend/internal/config"
	"dinein-backend/internal/events"
	"dinein-backend/internal/httpx"
	"dinein-backend/internal/kitchen"
	"dinein-backend/internal/menu"
	"dinein-backend/internal/models"
	"dinein-backend/internal/ordering"
	"dinein-backend/internal/revenue"
	"dinein-backend/internal/tables"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/cors"
	"github.com/gofiber/fiber/v2/middleware/logger"
	"github.com/gofiber/fiber/v2/middleware/recover"
	"github.com/gofiber/fiber/v2/middleware/requestid"
	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
	"gorm.io/gorm"
)

// New builds the API with every route registered.
func New(cfg *config.Config, db *gorm.DB, log *logrus.Logger, pub events.Publisher) *fiber.App {
	tableSvc := tables.NewService(db, log, pub)
	menuSvc := menu.NewService(db, log)
	orderSvc := ordering.NewService(db, log, pub)
	kitchenSvc := kitchen.NewService(db, log, pub)
	revenueSvc := revenue.NewService(db)

	app := fiber.New(fiber.Config{
		AppName:      "dinein-backend",
		ErrorHandler: httpx.ErrorHandler(log),
	})

	corsOrigins := strings.Split(cfg.CORSOrigins, ",")
	for i := range corsOrigins {
		corsOrigins[i] = strings.TrimSpace(corsOrigins[i])
	}
	app.Use(recover.New())
	app.Use(requestid.New(requestid.Config{Generator: uuid.NewString}))
	app.Use(logger.New(logger.Config{
		Format: "${time} ${locals:requestid} ${status} - ${latency} ${method} ${path}\n",
		Output: log.WriterLevel(logrus.InfoLevel),
	}))
	app.Use(cors.New(cors.Config{
		AllowOrigins: strings.Join(corsOrigins, ","),
		AllowHeaders: "Origin, Content-Type, Accept, Authorization",
		AllowMethods: "GET,POST,PUT,DELETE,OPTIONS",
	}))

	app.Get("/healthz", func(c *fiber.Ctx) error {
		return c.JSON(fiber.Map{"status": "ok"})
	})

	api := app.Group("/api")
	api.Use(auth.IdentifyMiddleware(cfg))

	// Public auth
	api.Post("/auth/login", auth.LoginHandler(cfg, db))
	api.Get("/auth/me", auth.MeHandler())

	// Read-only views shared by every terminal
	api.Get("/tables", tables.ListTablesHandler(tableSvc))
	api.Get("/tables/:id", tables.GetTableHandler(tableSvc))
	api.Get("/menu/dishes", menu.ListDishesHandler(menuSvc))
	api.Get("/menu/dishes/:id", menu.GetDishHandler(menuSvc))
	api.Get("/menu/dishes/:id/flavors", menu.GetFlavorsHandler(menuSvc))

	// Customer terminal, no login
	customer := api.Group("/customer")
	customer.Post("/tables/:id/bind", ordering.BindTableHandler(orderSvc))
	registerCart(customer, orderSvc)

	// Waiter terminal
	waiter := api.Group("/waiter")
	waiter.Use(auth.RequireRole(models.RoleWaiter, models.RoleManager))
	registerCart(waiter, orderSvc)
	waiter.Post("/tables/:id/open", tables.OpenTableHandler(tableSvc))
	waiter.Post("/tables/:id/finish-cleanup", tables.FinishCleanupHandler(tableSvc))
	waiter.Get("/tables/:id/confirmed-orders", ordering.ListConfirmedOrdersHandler(orderSvc))
	waiter.Post("/tables/:id/checkout", ordering.CheckoutHandler(orderSvc))
	waiter.Post("/orders/:orderId/dishes/:dishId/refund", ordering.RefundHandler(orderSvc))

	// Kitchen terminal
	kitchenRoutes := api.Group("/kitchen")
	kitchenRoutes.Use(auth.RequireRole(models.RoleKitchen, models.RoleManager))
	kitchenRoutes.Get("/queue", kitchen.QueueHandler(kitchenSvc))
	kitchenRoutes.Post("/orders/:orderId/dishes/:dishId/start", kitchen.StartCookingHandler(kitchenSvc))
	kitchenRoutes.Post("/orders/:orderId/dishes/:dishId/done", kitchen.MarkDoneHandler(kitchenSvc))
	kitchenRoutes.Put("/orders/:orderId/dishes/:dishId/status", kitchen.UpdateStatusHandler(kitchenSvc))

	// Manager terminal
	manager := api.Group("/manager")
	manager.Use(auth.RequireRole(models.RoleManager))
	manager.Post("/dishes", menu.CreateDishHandler(menuSvc))
	manager.Post("/dishes/:id/flavor-rounds", menu.AttachFlavorRoundHandler(menuSvc))
	manager.Put("/dishes/:id/availability", menu.SetAvailabilityHandler(menuSvc))
	manager.Delete("/dishes/:id", menu.DelistDishHandler(menuSvc))
	manager.Get("/revenue", revenue.ReportHandler(revenueSvc))
	manager.Get("/revenue/export", revenue.ExportHandler(revenueSvc))
	manager.Get("/audit-logs", audit.ListAuditLogsHandler(db))
	manager.Post("/staff", auth.CreateStaffHandler(db))

	return app
}

// registerCart mounts the ordering routes customers and waiters share.
func registerCart(r fiber.Router, svc *ordering.Service) {
	r.Get("/tables/:id/draft", ordering.GetDraftHandler(svc))
	r.Post("/orders/:orderId/items", ordering.AddItemHandler(svc))
	r.Delete("/orders/:orderId/items/:itemId", ordering.RemoveItemHandler(svc))
	r.Post("/orders/:orderId/confirm", ordering.ConfirmOrderHandler(svc))
	r.Post("/orders/:orderId/dishes/:dishId/rush", ordering.RushHandler(svc))
}
