package ordering

import (
	"dinein-backend/internal/auth"
	"dinein-backend/internal/httpx"

	"github.com/gofiber/fiber/v2"
)

type RefundRequest struct {
	Reason string `json:"reason"`
}

type CheckoutRequest struct {
	DiscountType string `json:"discount_type"` // none / percent_off / round_down
}

// POST /api/customer/tables/:id/bind
func BindTableHandler(svc *Service) fiber.Handler {
	return func(c *fiber.Ctx) error {
		id, err := httpx.ParamID(c, "id")
		if err != nil {
			return err
		}

		draft, err := svc.Bind(c.UserContext(), id)
		if err != nil {
			return err
		}
		return c.JSON(draft)
	}
}

// GET /api/customer/tables/:id/draft
func GetDraftHandler(svc *Service) fiber.Handler {
	return func(c *fiber.Ctx) error {
		id, err := httpx.ParamID(c, "id")
		if err != nil {
			return err
		}

		draft, err := svc.GetOrCreateDraft(c.UserContext(), id)
		if err != nil {
			return err
		}
		return c.JSON(draft)
	}
}

// POST /api/customer/orders/:orderId/items
func AddItemHandler(svc *Service) fiber.Handler {
	return func(c *fiber.Ctx) error {
		orderID, err := httpx.ParamID(c, "orderId")
		if err != nil {
			return err
		}

		var body AddItemInput
		if err := c.BodyParser(&body); err != nil {
			return fiber.NewError(fiber.StatusBadRequest, "invalid request body")
		}

		item, err := svc.AddItem(c.UserContext(), orderID, body)
		if err != nil {
			return err
		}
		return c.Status(fiber.StatusCreated).JSON(item)
	}
}

// DELETE /api/customer/orders/:orderId/items/:itemId
func RemoveItemHandler(svc *Service) fiber.Handler {
	return func(c *fiber.Ctx) error {
		orderID, err := httpx.ParamID(c, "orderId")
		if err != nil {
			return err
		}
		itemID, err := httpx.ParamID(c, "itemId")
		if err != nil {
			return err
		}

		if err := svc.RemoveItem(c.UserContext(), orderID, itemID); err != nil {
			return err
		}
		return c.SendStatus(fiber.StatusNoContent)
	}
}

// POST /api/customer/orders/:orderId/confirm
func ConfirmOrderHandler(svc *Service) fiber.Handler {
	return func(c *fiber.Ctx) error {
		orderID, err := httpx.ParamID(c, "orderId")
		if err != nil {
			return err
		}

		order, err := svc.Confirm(c.UserContext(), auth.ActorFrom(c), orderID)
		if err != nil {
			return err
		}
		return c.JSON(order)
	}
}

// POST /api/customer/orders/:orderId/dishes/:dishId/rush[?item_id=]
func RushHandler(svc *Service) fiber.Handler {
	return func(c *fiber.Ctx) error {
		ref, err := httpx.ItemRef(c)
		if err != nil {
			return err
		}

		item, err := svc.Rush(c.UserContext(), ref)
		if err != nil {
			return err
		}
		return c.JSON(item)
	}
}

// POST /api/waiter/orders/:orderId/dishes/:dishId/refund[?item_id=]
func RefundHandler(svc *Service) fiber.Handler {
	return func(c *fiber.Ctx) error {
		ref, err := httpx.ItemRef(c)
		if err != nil {
			return err
		}

		var body RefundRequest
		if err := c.BodyParser(&body); err != nil {
			return fiber.NewError(fiber.StatusBadRequest, "invalid request body")
		}

		item, err := svc.Refund(c.UserContext(), auth.ActorFrom(c), ref, body.Reason)
		if err != nil {
			return err
		}
		return c.JSON(item)
	}
}

// GET /api/waiter/tables/:id/confirmed-orders
func ListConfirmedOrdersHandler(svc *Service) fiber.Handler {
	return func(c *fiber.Ctx) error {
		id, err := httpx.ParamID(c, "id")
		if err != nil {
			return err
		}

		orders, err := svc.ListConfirmedOrders(c.UserContext(), id)
		if err != nil {
			return err
		}
		return c.JSON(orders)
	}
}

// POST /api/waiter/tables/:id/checkout
func CheckoutHandler(svc *Service) fiber.Handler {
	return func(c *fiber.Ctx) error {
		id, err := httpx.ParamID(c, "id")
		if err != nil {
			return err
		}

		var body CheckoutRequest
		if len(c.Body()) > 0 {
			if err := c.BodyParser(&body); err != nil {
				return fiber.NewError(fiber.StatusBadRequest, "invalid request body")
			}
		}
		discount, err := ParseDiscount(body.DiscountType)
		if err != nil {
			return err
		}

		res, err := svc.Checkout(c.UserContext(), auth.ActorFrom(c), id, discount)
		if err != nil {
			return err
		}
		return c.JSON(res)
	}
}
