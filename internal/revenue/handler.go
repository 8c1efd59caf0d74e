package revenue

import (
	"fmt"
	"time"

	"github.com/gofiber/fiber/v2"
)

const dateLayout = "2006-01-02"

// parseRange reads ?from=2026-01-01&to=2026-02-01; to is exclusive.
func parseRange(c *fiber.Ctx) (Range, error) {
	var r Range
	if s := c.Query("from"); s != "" {
		t, err := time.ParseInLocation(dateLayout, s, time.Local)
		if err != nil {
			return r, fiber.NewError(fiber.StatusBadRequest, "from must look like 2006-01-02")
		}
		r.From = &t
	}
	if s := c.Query("to"); s != "" {
		t, err := time.ParseInLocation(dateLayout, s, time.Local)
		if err != nil {
			return r, fiber.NewError(fiber.StatusBadRequest, "to must look like 2006-01-02")
		}
		r.To = &t
	}
	return r, nil
}

// GET /api/manager/revenue?from=...&to=...
func ReportHandler(svc *Service) fiber.Handler {
	return func(c *fiber.Ctx) error {
		r, err := parseRange(c)
		if err != nil {
			return err
		}

		rep, err := svc.Report(c.UserContext(), r)
		if err != nil {
			return err
		}
		return c.JSON(rep)
	}
}

// GET /api/manager/revenue/export?from=...&to=...
func ExportHandler(svc *Service) fiber.Handler {
	return func(c *fiber.Ctx) error {
		r, err := parseRange(c)
		if err != nil {
			return err
		}

		rep, err := svc.Report(c.UserContext(), r)
		if err != nil {
			return err
		}

		buf, err := WriteXLSX(rep)
		if err != nil {
			return fiber.NewError(fiber.StatusInternalServerError, "could not build the workbook")
		}

		c.Set(fiber.HeaderContentType, "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet")
		c.Set(fiber.HeaderContentDisposition, fmt.Sprintf(`attachment; filename="revenue-%s.xlsx"`, time.Now().Format(dateLayout)))
		return c.Send(buf.Bytes())
	}
}
