package models

import (
	"time"

	"github.com/shopspring/decimal"
	"gorm.io/datatypes"
)

type OrderStatus string

const (
	OrderDraft     OrderStatus = "draft"
	OrderConfirmed OrderStatus = "confirmed"
)

// Order is one confirmation round under a bill. A table has at most one draft
// order at a time (partial unique index).
type Order struct {
	ID          uint        `gorm:"primaryKey" json:"id"`
	TableID     uint        `gorm:"not null;index;uniqueIndex:idx_orders_draft_per_table,where:status = 'draft'" json:"table_id"`
	BillID      uint        `gorm:"not null;index" json:"bill_id"`
	Status      OrderStatus `gorm:"size:20;not null;index" json:"status"`
	ConfirmedAt *time.Time  `json:"confirmed_at"`
	CreatedAt   time.Time   `json:"created_at"`
	UpdatedAt   time.Time   `json:"updated_at"`

	Items []OrderItem `gorm:"foreignKey:OrderID" json:"items,omitempty"`
}

type DishStatus string

const (
	DishNotStarted DishStatus = "not_started"
	DishCooking    DishStatus = "cooking"
	DishDone       DishStatus = "done"
	DishRefunded   DishStatus = "refunded"
)

func (s DishStatus) Valid() bool {
	switch s {
	case DishNotStarted, DishCooking, DishDone, DishRefunded:
		return true
	}
	return false
}

// Terminal reports whether no further transition is possible.
func (s DishStatus) Terminal() bool {
	return s == DishDone || s == DishRefunded
}

// CanTransitionTo enforces the forward-only dish lifecycle:
// not_started -> cooking -> done, and not_started|cooking -> refunded.
func (s DishStatus) CanTransitionTo(next DishStatus) bool {
	switch s {
	case DishNotStarted:
		return next == DishCooking || next == DishDone || next == DishRefunded
	case DishCooking:
		return next == DishDone || next == DishRefunded
	default:
		return false
	}
}

// FlavorChoice is the snapshot of one round selection.
type FlavorChoice struct {
	Round  string `json:"round"`
	Option string `json:"option"`
}

// OrderItem copies price, name, category and flavor choices from the dish at
// insertion time; later menu edits or a delisting do not touch it.
type OrderItem struct {
	ID            uint                              `gorm:"primaryKey" json:"id"`
	OrderID       uint                              `gorm:"not null;index" json:"order_id"`
	DishID        uint                              `gorm:"not null;index" json:"dish_id"`
	DishName      string                            `gorm:"size:100;not null" json:"dish_name"`
	Category      DishCategory                      `gorm:"size:20;not null;index" json:"category"`
	Quantity      int                               `gorm:"not null" json:"quantity"`
	UnitPrice     decimal.Decimal                   `gorm:"type:decimal(10,2);not null" json:"unit_price"`
	FlavorChoices datatypes.JSONSlice[FlavorChoice] `json:"flavor_choices"`
	DishStatus    DishStatus                        `gorm:"size:20;not null;index" json:"dish_status"`
	IsRushed      bool                              `gorm:"not null" json:"is_rushed"`
	RefundReason  string                            `gorm:"size:255" json:"refund_reason,omitempty"`
	CreatedAt     time.Time                         `json:"created_at"`
	UpdatedAt     time.Time                         `json:"updated_at"`

	// Filled by kitchen queries that join orders.
	TableID uint `gorm:"-:migration;->" json:"table_id,omitempty"`
}

// Subtotal is unit price x quantity.
func (i OrderItem) Subtotal() decimal.Decimal {
	return i.UnitPrice.Mul(decimal.NewFromInt(int64(i.Quantity)))
}

// Billable reports whether the item counts towards the bill total.
func (i OrderItem) Billable() bool {
	return i.DishStatus != DishRefunded
}
