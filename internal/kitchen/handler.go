package kitchen

import (
	"dinein-backend/internal/httpx"
	"dinein-backend/internal/models"

	"github.com/gofiber/fiber/v2"
)

type UpdateStatusRequest struct {
	Status models.DishStatus `json:"status"`
}

// GET /api/kitchen/queue?station=hot&active=true
func QueueHandler(svc *Service) fiber.Handler {
	return func(c *fiber.Ctx) error {
		station, err := ParseStation(c.Query("station"))
		if err != nil {
			return err
		}

		items, err := svc.Queue(c.UserContext(), station, c.QueryBool("active", false))
		if err != nil {
			return err
		}
		return c.JSON(items)
	}
}

// POST /api/kitchen/orders/:orderId/dishes/:dishId/start[?item_id=]
func StartCookingHandler(svc *Service) fiber.Handler {
	return func(c *fiber.Ctx) error {
		ref, err := httpx.ItemRef(c)
		if err != nil {
			return err
		}

		item, err := svc.StartCooking(c.UserContext(), ref)
		if err != nil {
			return err
		}
		return c.JSON(item)
	}
}

// POST /api/kitchen/orders/:orderId/dishes/:dishId/done[?item_id=]
func MarkDoneHandler(svc *Service) fiber.Handler {
	return func(c *fiber.Ctx) error {
		ref, err := httpx.ItemRef(c)
		if err != nil {
			return err
		}

		item, err := svc.MarkDone(c.UserContext(), ref)
		if err != nil {
			return err
		}
		return c.JSON(item)
	}
}

// PUT /api/kitchen/orders/:orderId/dishes/:dishId/status[?item_id=]
func UpdateStatusHandler(svc *Service) fiber.Handler {
	return func(c *fiber.Ctx) error {
		ref, err := httpx.ItemRef(c)
		if err != nil {
			return err
		}

		var body UpdateStatusRequest
		if err := c.BodyParser(&body); err != nil {
			return fiber.NewError(fiber.StatusBadRequest, "invalid request body")
		}

		item, err := svc.UpdateStatus(c.UserContext(), ref, body.Status)
		if err != nil {
			return err
		}
		return c.JSON(item)
	}
}
