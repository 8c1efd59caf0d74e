package ordering

import (
	"dinein-backend/internal/apperr"
	"dinein-backend/internal/models"

	"github.com/shopspring/decimal"
)

var percentOffRate = decimal.RequireFromString("0.8")

// ParseDiscount accepts the discount names of the API. Empty means none.
func ParseDiscount(s string) (models.DiscountType, error) {
	if s == "" {
		return models.DiscountNone, nil
	}
	d := models.DiscountType(s)
	if !d.Valid() {
		return "", apperr.Validation("unknown discount type %q", s)
	}
	return d, nil
}

// ApplyDiscount derives the amount actually charged from the bill total.
// round_down truncates to whole currency units, it does not round.
func ApplyDiscount(d models.DiscountType, total decimal.Decimal) decimal.Decimal {
	switch d {
	case models.DiscountPercentOff:
		return total.Mul(percentOffRate).Round(2)
	case models.DiscountRoundDown:
		return total.Truncate(0)
	default:
		return total
	}
}
