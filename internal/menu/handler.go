package menu

import (
	"dinein-backend/internal/auth"
	"dinein-backend/internal/httpx"
	"dinein-backend/internal/models"

	"github.com/gofiber/fiber/v2"
)

type SetAvailabilityRequest struct {
	IsAvailable *bool `json:"is_available"`
}

// GET /api/menu/dishes?available_only=true&category=hot
// Customers always get the available dishes only.
func ListDishesHandler(svc *Service) fiber.Handler {
	return func(c *fiber.Ctx) error {
		f := ListFilter{
			AvailableOnly: c.QueryBool("available_only", true),
			Category:      models.DishCategory(c.Query("category")),
		}
		if auth.ActorFrom(c).Role == models.RoleCustomer {
			f.AvailableOnly = true
		}

		dishes, err := svc.List(c.UserContext(), f)
		if err != nil {
			return err
		}
		return c.JSON(dishes)
	}
}

// GET /api/menu/dishes/:id
func GetDishHandler(svc *Service) fiber.Handler {
	return func(c *fiber.Ctx) error {
		id, err := httpx.ParamID(c, "id")
		if err != nil {
			return err
		}

		dish, err := svc.Get(c.UserContext(), id)
		if err != nil {
			return err
		}
		return c.JSON(dish)
	}
}

// GET /api/menu/dishes/:id/flavors
func GetFlavorsHandler(svc *Service) fiber.Handler {
	return func(c *fiber.Ctx) error {
		id, err := httpx.ParamID(c, "id")
		if err != nil {
			return err
		}

		rounds, err := svc.Flavors(c.UserContext(), id)
		if err != nil {
			return err
		}
		return c.JSON(rounds)
	}
}

// POST /api/manager/dishes
func CreateDishHandler(svc *Service) fiber.Handler {
	return func(c *fiber.Ctx) error {
		var body CreateInput
		if err := c.BodyParser(&body); err != nil {
			return fiber.NewError(fiber.StatusBadRequest, "invalid request body")
		}

		dish, err := svc.Create(c.UserContext(), auth.ActorFrom(c), body)
		if err != nil {
			return err
		}
		return c.Status(fiber.StatusCreated).JSON(dish)
	}
}

// POST /api/manager/dishes/:id/flavor-rounds
func AttachFlavorRoundHandler(svc *Service) fiber.Handler {
	return func(c *fiber.Ctx) error {
		id, err := httpx.ParamID(c, "id")
		if err != nil {
			return err
		}

		var body RoundInput
		if err := c.BodyParser(&body); err != nil {
			return fiber.NewError(fiber.StatusBadRequest, "invalid request body")
		}

		round, err := svc.AttachFlavorRound(c.UserContext(), auth.ActorFrom(c), id, body)
		if err != nil {
			return err
		}
		return c.Status(fiber.StatusCreated).JSON(round)
	}
}

// PUT /api/manager/dishes/:id/availability
func SetAvailabilityHandler(svc *Service) fiber.Handler {
	return func(c *fiber.Ctx) error {
		id, err := httpx.ParamID(c, "id")
		if err != nil {
			return err
		}

		var body SetAvailabilityRequest
		if err := c.BodyParser(&body); err != nil || body.IsAvailable == nil {
			return fiber.NewError(fiber.StatusBadRequest, "is_available is required")
		}

		dish, err := svc.SetAvailability(c.UserContext(), auth.ActorFrom(c), id, *body.IsAvailable)
		if err != nil {
			return err
		}
		return c.JSON(dish)
	}
}

// DELETE /api/manager/dishes/:id
func DelistDishHandler(svc *Service) fiber.Handler {
	return func(c *fiber.Ctx) error {
		id, err := httpx.ParamID(c, "id")
		if err != nil {
			return err
		}

		if err := svc.Delist(c.UserContext(), auth.ActorFrom(c), id); err != nil {
			return err
		}
		return c.SendStatus(fiber.StatusNoContent)
	}
}
