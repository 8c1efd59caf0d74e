package models

import (
	"time"

	"github.com/shopspring/decimal"
)

type BillStatus string

const (
	BillOpen    BillStatus = "open"
	BillSettled BillStatus = "settled"
)

type DiscountType string

const (
	DiscountNone       DiscountType = "none"
	DiscountPercentOff DiscountType = "percent_off" // total x 0.8
	DiscountRoundDown  DiscountType = "round_down"  // drop the fractional part
)

func (d DiscountType) Valid() bool {
	switch d {
	case DiscountNone, DiscountPercentOff, DiscountRoundDown:
		return true
	}
	return false
}

// Bill is the money record of one dining party. At most one open bill per
// table is enforced by a partial unique index.
type Bill struct {
	ID           uint            `gorm:"primaryKey" json:"id"`
	TableID      uint            `gorm:"not null;index;uniqueIndex:idx_bills_open_per_table,where:status = 'open'" json:"table_id"`
	Table        *Table          `gorm:"foreignKey:TableID" json:"table,omitempty"`
	TotalAmount  decimal.Decimal `gorm:"type:decimal(12,2);not null" json:"total_amount"`
	ActualAmount decimal.Decimal `gorm:"type:decimal(12,2);not null" json:"actual_amount"`
	DiscountType DiscountType    `gorm:"size:20;not null" json:"discount_type"`
	Status       BillStatus      `gorm:"size:20;not null;index" json:"status"`
	SettledAt    *time.Time      `gorm:"index" json:"settled_at"`
	CreatedAt    time.Time       `json:"created_at"`
	UpdatedAt    time.Time       `json:"updated_at"`

	Orders []Order `gorm:"foreignKey:BillID" json:"orders,omitempty"`
}
