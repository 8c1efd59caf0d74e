package tables

import (
	"dinein-backend/internal/auth"
	"dinein-backend/internal/httpx"
	"dinein-backend/internal/models"

	"github.com/gofiber/fiber/v2"
)

// GET /api/tables?status=free
func ListTablesHandler(svc *Service) fiber.Handler {
	return func(c *fiber.Ctx) error {
		tables, err := svc.List(c.UserContext(), models.TableStatus(c.Query("status")))
		if err != nil {
			return err
		}
		return c.JSON(tables)
	}
}

// GET /api/tables/:id
func GetTableHandler(svc *Service) fiber.Handler {
	return func(c *fiber.Ctx) error {
		id, err := httpx.ParamID(c, "id")
		if err != nil {
			return err
		}

		table, err := svc.Get(c.UserContext(), id)
		if err != nil {
			return err
		}
		return c.JSON(table)
	}
}

// POST /api/waiter/tables/:id/open
func OpenTableHandler(svc *Service) fiber.Handler {
	return func(c *fiber.Ctx) error {
		id, err := httpx.ParamID(c, "id")
		if err != nil {
			return err
		}

		res, err := svc.Open(c.UserContext(), auth.ActorFrom(c), id)
		if err != nil {
			return err
		}
		return c.Status(fiber.StatusCreated).JSON(res)
	}
}

// POST /api/waiter/tables/:id/finish-cleanup
func FinishCleanupHandler(svc *Service) fiber.Handler {
	return func(c *fiber.Ctx) error {
		id, err := httpx.ParamID(c, "id")
		if err != nil {
			return err
		}

		table, err := svc.FinishCleanup(c.UserContext(), auth.ActorFrom(c), id)
		if err != nil {
			return err
		}
		return c.JSON(table)
	}
}
