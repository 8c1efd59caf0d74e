// Package httpx holds the fiber helpers shared by every handler package.
package httpx

import (
	"errors"
	"fmt"
	"strconv"

	"dinein-backend/internal/apperr"
	"dinein-backend/internal/store"

	"github.com/gofiber/fiber/v2"
	"github.com/sirupsen/logrus"
)

// ParamID parses the positive integer path parameter name.
func ParamID(c *fiber.Ctx, name string) (uint, error) {
	return parseID(name, c.Params(name))
}

// QueryID parses an optional positive integer query parameter. Zero means
// absent.
func QueryID(c *fiber.Ctx, name string) (uint, error) {
	raw := c.Query(name)
	if raw == "" {
		return 0, nil
	}
	return parseID(name, raw)
}

// parseID accepts only a plain positive decimal, so "5abc" or "+5" fail.
func parseID(name, raw string) (uint, error) {
	id, err := strconv.ParseUint(raw, 10, strconv.IntSize)
	if err != nil || id == 0 {
		return 0, fiber.NewError(fiber.StatusBadRequest, fmt.Sprintf("invalid %s", name))
	}
	return uint(id), nil
}

// ItemRef reads the :orderId and :dishId path parameters plus the optional
// item_id query parameter that picks one exact line.
func ItemRef(c *fiber.Ctx) (store.ItemRef, error) {
	orderID, err := ParamID(c, "orderId")
	if err != nil {
		return store.ItemRef{}, err
	}
	dishID, err := ParamID(c, "dishId")
	if err != nil {
		return store.ItemRef{}, err
	}
	itemID, err := QueryID(c, "item_id")
	if err != nil {
		return store.ItemRef{}, err
	}
	return store.ItemRef{OrderID: orderID, DishID: dishID, ItemID: itemID}, nil
}

// ErrorHandler renders *fiber.Error and *apperr.Error as
// {"error": message, "kind": kind}. Anything else is a 500.
func ErrorHandler(log logrus.FieldLogger) fiber.ErrorHandler {
	return func(c *fiber.Ctx, err error) error {
		var fe *fiber.Error
		if errors.As(err, &fe) {
			return c.Status(fe.Code).JSON(fiber.Map{
				"error": fe.Message,
			})
		}

		var ae *apperr.Error
		if errors.As(err, &ae) && ae.Kind != apperr.KindInternal {
			status := apperr.HTTPStatus(ae.Kind)
			if ae.Kind == apperr.KindStoreUnavailable {
				log.WithError(err).WithField("path", c.Path()).Error("Store unavailable")
			}
			return c.Status(status).JSON(fiber.Map{
				"error": ae.Message,
				"kind":  ae.Kind,
			})
		}

		log.WithError(err).WithField("path", c.Path()).Error("Unexpected error")
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"error": "unexpected server error",
			"kind":  apperr.KindInternal,
		})
	}
}
