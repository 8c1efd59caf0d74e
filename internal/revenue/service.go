// Package revenue reports settled bills.
package revenue

import (
	"context"
	"time"

	"dinein-backend/internal/apperr"
	"dinein-backend/internal/models"
	"dinein-backend/internal/store"

	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

type Service struct {
	db *gorm.DB
}

func NewService(db *gorm.DB) *Service {
	return &Service{db: db}
}

// Range selects bills settled in [From, To). A nil bound is open.
type Range struct {
	From *time.Time
	To   *time.Time
}

type Report struct {
	From        *time.Time      `json:"from,omitempty"`
	To          *time.Time      `json:"to,omitempty"`
	BillCount   int             `json:"bill_count"`
	TotalSum    decimal.Decimal `json:"total_sum"`
	ActualSum   decimal.Decimal `json:"actual_sum"`
	DiscountSum decimal.Decimal `json:"discount_sum"`
	Bills       []models.Bill   `json:"bills"`
}

// Report returns settled bills newest first, each with its table, confirmed
// orders and their non-refunded items, plus the sums over all of them.
func (s *Service) Report(ctx context.Context, r Range) (*Report, error) {
	if r.From != nil && r.To != nil && !r.From.Before(*r.To) {
		return nil, apperr.Validation("from must be before to")
	}

	q := s.db.WithContext(ctx).
		Preload("Table").
		Preload("Orders", func(db *gorm.DB) *gorm.DB {
			return db.Where("status = ?", models.OrderConfirmed).Order("id ASC")
		}).
		Preload("Orders.Items", func(db *gorm.DB) *gorm.DB {
			return db.Where("dish_status <> ?", models.DishRefunded).Order("id ASC")
		}).
		Where("status = ?", models.BillSettled)
	if r.From != nil {
		q = q.Where("settled_at >= ?", *r.From)
	}
	if r.To != nil {
		q = q.Where("settled_at < ?", *r.To)
	}

	var bills []models.Bill
	if err := q.Order("settled_at DESC, id DESC").Find(&bills).Error; err != nil {
		return nil, store.Classify(err)
	}

	rep := &Report{
		From:        r.From,
		To:          r.To,
		BillCount:   len(bills),
		TotalSum:    decimal.Zero,
		ActualSum:   decimal.Zero,
		DiscountSum: decimal.Zero,
		Bills:       bills,
	}
	for _, b := range bills {
		rep.TotalSum = rep.TotalSum.Add(b.TotalAmount)
		rep.ActualSum = rep.ActualSum.Add(b.ActualAmount)
	}
	rep.DiscountSum = rep.TotalSum.Sub(rep.ActualSum)
	if rep.Bills == nil {
		rep.Bills = []models.Bill{}
	}
	return rep, nil
}
