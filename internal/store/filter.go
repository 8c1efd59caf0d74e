package store

import (
	"context"

	"dinein-backend/internal/apperr"
	"dinein-backend/internal/models"

	"gorm.io/gorm"
)

// ItemFilter is a declarative query over order items joined with their
// orders. Zero fields do not filter.
type ItemFilter struct {
	OrderStatus     models.OrderStatus
	BillID          uint
	TableID         uint
	Categories      []models.DishCategory
	ExcludeStatuses []models.DishStatus
	RushedFirst     bool
}

// Apply turns the filter into a gorm query. Items come back in creation order,
// rushed items first when RushedFirst is set.
func (f ItemFilter) Apply(db *gorm.DB) *gorm.DB {
	q := db.Model(&models.OrderItem{}).
		Select("order_items.*, orders.table_id AS table_id").
		Joins("JOIN orders ON orders.id = order_items.order_id")

	if f.OrderStatus != "" {
		q = q.Where("orders.status = ?", f.OrderStatus)
	}
	if f.BillID != 0 {
		q = q.Where("orders.bill_id = ?", f.BillID)
	}
	if f.TableID != 0 {
		q = q.Where("orders.table_id = ?", f.TableID)
	}
	if len(f.Categories) > 0 {
		q = q.Where("order_items.category IN ?", f.Categories)
	}
	if len(f.ExcludeStatuses) > 0 {
		q = q.Where("order_items.dish_status NOT IN ?", f.ExcludeStatuses)
	}
	if f.RushedFirst {
		q = q.Order("order_items.is_rushed DESC")
	}
	return q.Order("order_items.id ASC")
}

// FindItems evaluates f.
func FindItems(ctx context.Context, db *gorm.DB, f ItemFilter) ([]models.OrderItem, error) {
	var items []models.OrderItem
	if err := f.Apply(db.WithContext(ctx)).Find(&items).Error; err != nil {
		return nil, Classify(err)
	}
	return items, nil
}

// ItemRef addresses an order item by the dish it was ordered as (DishID),
// narrowed to one exact item when ItemID is set. The same dish can appear
// several times in one order with different flavors.
type ItemRef struct {
	OrderID uint
	DishID  uint
	ItemID  uint
}

// LockItem loads the item ref points at and locks it for the rest of tx.
// When ref goes by dish, the earliest item accepted by eligible wins; if no
// item is eligible the earliest one is returned so the caller can explain why.
func LockItem(tx *gorm.DB, ref ItemRef, eligible func(models.OrderItem) bool) (*models.OrderItem, error) {
	q := ForUpdate(tx).Where("order_id = ?", ref.OrderID)
	if ref.ItemID != 0 {
		q = q.Where("id = ?", ref.ItemID)
	}
	if ref.DishID != 0 {
		q = q.Where("dish_id = ?", ref.DishID)
	}

	var items []models.OrderItem
	if err := q.Order("id ASC").Find(&items).Error; err != nil {
		return nil, err
	}
	if len(items) == 0 {
		var orders int64
		if err := tx.Model(&models.Order{}).Where("id = ?", ref.OrderID).Count(&orders).Error; err != nil {
			return nil, err
		}
		if orders == 0 {
			return nil, apperr.NotFound("order %d not found", ref.OrderID)
		}
		if ref.ItemID != 0 {
			return nil, apperr.NotFound("item %d not found in order %d", ref.ItemID, ref.OrderID)
		}
		return nil, apperr.NotFound("dish %d not found in order %d", ref.DishID, ref.OrderID)
	}

	for i := range items {
		if eligible == nil || eligible(items[i]) {
			return &items[i], nil
		}
	}
	return &items[0], nil
}

// LockSentOrder locks a confirmed order and then its bill, and fails unless
// the bill is still open. Callers that touch both rows take them in this
// order.
func LockSentOrder(tx *gorm.DB, orderID uint) (*models.Order, *models.Bill, error) {
	var order models.Order
	if err := ForUpdate(tx).First(&order, orderID).Error; err != nil {
		return nil, nil, NotFound(err, "order %d not found", orderID)
	}
	if order.Status != models.OrderConfirmed {
		return nil, nil, apperr.InvalidState("order %d has not been sent to the kitchen yet", orderID)
	}

	var bill models.Bill
	if err := ForUpdate(tx).First(&bill, order.BillID).Error; err != nil {
		return nil, nil, NotFound(err, "bill %d not found", order.BillID)
	}
	if bill.Status != models.BillOpen {
		return nil, nil, apperr.InvalidState("bill %d is already settled", bill.ID)
	}
	return &order, &bill, nil
}
