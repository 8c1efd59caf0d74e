// Package ordering owns bills, orders and order items: the draft cart,
// confirmation rounds, rush and refund, and checkout.
package ordering

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"dinein-backend/internal/apperr"
	"dinein-backend/internal/audit"
	"dinein-backend/internal/events"
	"dinein-backend/internal/menu"
	"dinein-backend/internal/models"
	"dinein-backend/internal/store"
	"dinein-backend/internal/tables"

	"github.com/shopspring/decimal"
	"github.com/sirupsen/logrus"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

const maxQuantity = 99

type Service struct {
	db     *gorm.DB
	log    logrus.FieldLogger
	events events.Publisher
}

func NewService(db *gorm.DB, log logrus.FieldLogger, pub events.Publisher) *Service {
	return &Service{db: db, log: log, events: pub}
}

// DraftView is the table's current cart with its running subtotal.
type DraftView struct {
	models.Order
	Subtotal decimal.Decimal `json:"subtotal"`
}

type AddItemInput struct {
	DishID   uint                  `json:"dish_id"`
	Quantity int                   `json:"quantity"`
	Flavors  []models.FlavorChoice `json:"flavors"`
}

type CheckoutResult struct {
	TableID      uint                `json:"table_id"`
	BillID       uint                `json:"bill_id"`
	TotalAmount  decimal.Decimal     `json:"total_amount"`
	ActualAmount decimal.Decimal     `json:"actual_amount"`
	DiscountType models.DiscountType `json:"discount_type"`
	SettledAt    time.Time           `json:"settled_at"`
}

// -------------------------
// Draft
// -------------------------

// GetOrCreateDraft returns the table's draft order, creating an empty one
// under the open bill when the previous round was confirmed.
func (s *Service) GetOrCreateDraft(ctx context.Context, tableID uint) (*DraftView, error) {
	var view *DraftView
	err := store.Tx(ctx, s.db, func(tx *gorm.DB) error {
		bill, err := openBill(tx, tableID, false)
		if err != nil {
			return err
		}

		order, err := findDraft(tx, tableID)
		if err != nil {
			return err
		}
		if order == nil {
			// Two terminals may race here; the partial unique index lets
			// only one insert through and the loser reads the winner's row.
			order = &models.Order{TableID: tableID, BillID: bill.ID, Status: models.OrderDraft}
			if err := tx.Clauses(clause.OnConflict{DoNothing: true}).Create(order).Error; err != nil {
				return err
			}
			if order, err = findDraft(tx, tableID); err != nil {
				return err
			}
			if order == nil {
				return apperr.InvalidState("draft order of table %d vanished", tableID)
			}
		}

		view = newDraftView(order)
		return nil
	})
	if err != nil {
		return nil, err
	}
	return view, nil
}

// Bind attaches a customer terminal to an occupied table and hands back the
// table's cart.
func (s *Service) Bind(ctx context.Context, tableID uint) (*DraftView, error) {
	var table models.Table
	if err := s.db.WithContext(ctx).First(&table, tableID).Error; err != nil {
		return nil, store.Classify(store.NotFound(err, "table %d not found", tableID))
	}
	if table.Status != models.TableOccupied {
		return nil, apperr.InvalidState("table %d is %s, ask a waiter to open it", tableID, table.Status)
	}
	return s.GetOrCreateDraft(ctx, tableID)
}

// AddItem puts a dish into a draft order at the dish's current price.
func (s *Service) AddItem(ctx context.Context, orderID uint, in AddItemInput) (*models.OrderItem, error) {
	if in.Quantity < 1 || in.Quantity > maxQuantity {
		return nil, apperr.Validation("quantity must be between 1 and %d", maxQuantity)
	}

	var item models.OrderItem
	err := store.Tx(ctx, s.db, func(tx *gorm.DB) error {
		order, err := lockOrder(tx, orderID)
		if err != nil {
			return err
		}
		if order.Status != models.OrderDraft {
			return apperr.InvalidState("order %d is already confirmed, add to the new draft instead", orderID)
		}

		dish, err := menu.Lookup(tx, in.DishID)
		if err != nil {
			return err
		}
		if !dish.IsAvailable {
			return apperr.InvalidState("%s is not available", dish.Name)
		}
		choices, err := menu.ResolveSelections(dish, in.Flavors)
		if err != nil {
			return err
		}

		item = models.OrderItem{
			OrderID:       orderID,
			DishID:        dish.ID,
			DishName:      dish.Name,
			Category:      dish.Category,
			Quantity:      in.Quantity,
			UnitPrice:     dish.Price,
			FlavorChoices: choices,
			DishStatus:    models.DishNotStarted,
		}
		return tx.Create(&item).Error
	})
	if err != nil {
		return nil, err
	}
	return &item, nil
}

// RemoveItem deletes a line from a draft order.
func (s *Service) RemoveItem(ctx context.Context, orderID, itemID uint) error {
	return store.Tx(ctx, s.db, func(tx *gorm.DB) error {
		order, err := lockOrder(tx, orderID)
		if err != nil {
			return err
		}
		if order.Status != models.OrderDraft {
			return apperr.InvalidState("order %d is confirmed, its items can only be refunded", orderID)
		}

		res := tx.Where("id = ? AND order_id = ?", itemID, orderID).Delete(&models.OrderItem{})
		if res.Error != nil {
			return res.Error
		}
		if res.RowsAffected == 0 {
			return apperr.NotFound("item %d not found in order %d", itemID, orderID)
		}
		return nil
	})
}

// -------------------------
// Confirm
// -------------------------

// Confirm sends a draft order to the kitchen.
func (s *Service) Confirm(ctx context.Context, actor audit.Actor, orderID uint) (*models.Order, error) {
	var order *models.Order
	err := store.Tx(ctx, s.db, func(tx *gorm.DB) error {
		var err error
		order, err = lockOrder(tx, orderID)
		if err != nil {
			return err
		}
		if order.Status != models.OrderDraft {
			return apperr.InvalidState("order %d is already confirmed", orderID)
		}

		var items []models.OrderItem
		if err := tx.Where("order_id = ?", orderID).Order("id ASC").Find(&items).Error; err != nil {
			return err
		}
		if len(items) == 0 {
			return apperr.Validation("order %d is empty, nothing to send to the kitchen", orderID)
		}

		var bill models.Bill
		if err := store.ForUpdate(tx).First(&bill, order.BillID).Error; err != nil {
			return store.NotFound(err, "bill %d not found", order.BillID)
		}
		if bill.Status != models.BillOpen {
			return apperr.InvalidState("bill %d is already settled", bill.ID)
		}

		now := time.Now()
		res := tx.Model(&models.Order{}).
			Where("id = ? AND status = ?", orderID, models.OrderDraft).
			Updates(map[string]any{"status": models.OrderConfirmed, "confirmed_at": now})
		if res.Error != nil {
			return res.Error
		}
		if res.RowsAffected == 0 {
			return apperr.InvalidState("order %d was confirmed by another terminal", orderID)
		}
		order.Status = models.OrderConfirmed
		order.ConfirmedAt = &now
		order.Items = items

		return audit.Write(tx, audit.Entry{
			Actor:       actor,
			EntityType:  "order",
			EntityID:    orderID,
			Action:      models.AuditActionConfirm,
			Description: fmt.Sprintf("Order %d of table %d sent to the kitchen, %d items", orderID, order.TableID, len(items)),
			After:       order,
		})
	})
	if err != nil {
		return nil, err
	}

	s.log.WithFields(logrus.Fields{
		"table_id": order.TableID,
		"bill_id":  order.BillID,
		"order_id": order.ID,
	}).Info("Order confirmed")

	ev := events.New(events.OrderConfirmed)
	ev.TableID, ev.BillID, ev.OrderID = order.TableID, order.BillID, order.ID
	ev.Payload = order.Items
	events.Notify(ctx, s.events, s.log, ev)

	return order, nil
}

// ListConfirmedOrders returns the confirmed rounds of the table's open bill.
func (s *Service) ListConfirmedOrders(ctx context.Context, tableID uint) ([]models.Order, error) {
	var orders []models.Order
	err := store.Tx(ctx, s.db, func(tx *gorm.DB) error {
		bill, err := openBill(tx, tableID, false)
		if err != nil {
			return err
		}
		return tx.
			Preload("Items", func(db *gorm.DB) *gorm.DB { return db.Order("id ASC") }).
			Where("bill_id = ? AND status = ?", bill.ID, models.OrderConfirmed).
			Order("id ASC").
			Find(&orders).Error
	})
	if err != nil {
		return nil, err
	}
	return orders, nil
}

// -------------------------
// Rush / refund
// -------------------------

// Rush flags an item for expedited cooking. An item is rushed at most once.
func (s *Service) Rush(ctx context.Context, ref store.ItemRef) (*models.OrderItem, error) {
	var (
		item  *models.OrderItem
		order *models.Order
	)
	err := store.Tx(ctx, s.db, func(tx *gorm.DB) error {
		var err error
		order, _, err = store.LockSentOrder(tx, ref.OrderID)
		if err != nil {
			return err
		}

		item, err = store.LockItem(tx, ref, func(i models.OrderItem) bool {
			return !i.DishStatus.Terminal() && !i.IsRushed
		})
		if err != nil {
			return err
		}
		if item.DishStatus.Terminal() {
			return apperr.InvalidState("%s is already %s", item.DishName, item.DishStatus)
		}
		if item.IsRushed {
			return apperr.InvalidState("%s is already rushed", item.DishName)
		}

		res := tx.Model(&models.OrderItem{}).
			Where("id = ? AND is_rushed = ? AND dish_status IN ?", item.ID, false, []models.DishStatus{models.DishNotStarted, models.DishCooking}).
			Update("is_rushed", true)
		if res.Error != nil {
			return res.Error
		}
		if res.RowsAffected == 0 {
			return apperr.InvalidState("%s changed meanwhile, try again", item.DishName)
		}
		item.IsRushed = true
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.log.WithFields(logrus.Fields{"order_id": order.ID, "item_id": item.ID}).Info("Item rushed")

	ev := events.New(events.ItemRushed)
	ev.TableID, ev.BillID, ev.OrderID, ev.ItemID = order.TableID, order.BillID, order.ID, item.ID
	events.Notify(ctx, s.events, s.log, ev)

	return item, nil
}

// Refund voids an item that has not been served yet. Refunded items never
// count towards a total.
func (s *Service) Refund(ctx context.Context, actor audit.Actor, ref store.ItemRef, reason string) (*models.OrderItem, error) {
	reason = strings.TrimSpace(reason)
	if reason == "" {
		return nil, apperr.Validation("refund reason is required")
	}

	var (
		item  *models.OrderItem
		order *models.Order
	)
	err := store.Tx(ctx, s.db, func(tx *gorm.DB) error {
		var err error
		order, _, err = store.LockSentOrder(tx, ref.OrderID)
		if err != nil {
			return err
		}

		item, err = store.LockItem(tx, ref, func(i models.OrderItem) bool {
			return i.DishStatus.CanTransitionTo(models.DishRefunded)
		})
		if err != nil {
			return err
		}
		before := *item
		if !item.DishStatus.CanTransitionTo(models.DishRefunded) {
			return apperr.InvalidState("%s is already %s and cannot be refunded", item.DishName, item.DishStatus)
		}

		res := tx.Model(&models.OrderItem{}).
			Where("id = ? AND dish_status = ?", item.ID, item.DishStatus).
			Updates(map[string]any{"dish_status": models.DishRefunded, "refund_reason": reason})
		if res.Error != nil {
			return res.Error
		}
		if res.RowsAffected == 0 {
			return apperr.InvalidState("%s changed meanwhile, try again", item.DishName)
		}
		item.DishStatus = models.DishRefunded
		item.RefundReason = reason

		return audit.Write(tx, audit.Entry{
			Actor:       actor,
			EntityType:  "order_item",
			EntityID:    item.ID,
			Action:      models.AuditActionRefund,
			Description: fmt.Sprintf("%s x%d refunded: %s", item.DishName, item.Quantity, reason),
			Before:      before,
			After:       item,
		})
	})
	if err != nil {
		return nil, err
	}

	s.log.WithFields(logrus.Fields{"order_id": order.ID, "item_id": item.ID}).Info("Item refunded")

	ev := events.New(events.ItemRefunded)
	ev.TableID, ev.BillID, ev.OrderID, ev.ItemID = order.TableID, order.BillID, order.ID, item.ID
	ev.Payload = map[string]any{"reason": reason, "amount": item.Subtotal()}
	events.Notify(ctx, s.events, s.log, ev)

	return item, nil
}

// -------------------------
// Checkout
// -------------------------

// Checkout settles the table's open bill and sends the table to cleaning.
// Everything commits together or nothing does.
func (s *Service) Checkout(ctx context.Context, actor audit.Actor, tableID uint, discount models.DiscountType) (*CheckoutResult, error) {
	if discount == "" {
		discount = models.DiscountNone
	}
	if !discount.Valid() {
		return nil, apperr.Validation("unknown discount type %q", discount)
	}

	var res CheckoutResult
	err := store.Tx(ctx, s.db, func(tx *gorm.DB) error {
		// order rows before the bill, as in Confirm and Refund
		draft, err := lockDraft(tx, tableID)
		if err != nil {
			return err
		}
		bill, err := openBill(tx, tableID, true)
		if err != nil {
			return err
		}

		if draft != nil {
			var pending int64
			if err := tx.Model(&models.OrderItem{}).Where("order_id = ?", draft.ID).Count(&pending).Error; err != nil {
				return err
			}
			if pending > 0 {
				return apperr.InvalidState("unconfirmed pending order must be cleared first")
			}
			if err := tx.Delete(&models.Order{}, draft.ID).Error; err != nil {
				return err
			}
		}

		items, err := store.FindItems(ctx, tx, store.ItemFilter{
			OrderStatus:     models.OrderConfirmed,
			BillID:          bill.ID,
			ExcludeStatuses: []models.DishStatus{models.DishRefunded},
		})
		if err != nil {
			return err
		}
		if len(items) == 0 {
			return apperr.InvalidState("table %d has nothing to pay for", tableID)
		}

		total := decimal.Zero
		for _, it := range items {
			total = total.Add(it.Subtotal())
		}
		actual := ApplyDiscount(discount, total)
		now := time.Now()

		upd := tx.Model(&models.Bill{}).
			Where("id = ? AND status = ?", bill.ID, models.BillOpen).
			Updates(map[string]any{
				"total_amount":  total,
				"actual_amount": actual,
				"discount_type": discount,
				"status":        models.BillSettled,
				"settled_at":    now,
			})
		if upd.Error != nil {
			return upd.Error
		}
		if upd.RowsAffected == 0 {
			return apperr.InvalidState("bill %d was settled by another terminal", bill.ID)
		}

		if err := tables.MarkNeedsCleaning(tx, tableID); err != nil {
			return err
		}

		res = CheckoutResult{
			TableID:      tableID,
			BillID:       bill.ID,
			TotalAmount:  total,
			ActualAmount: actual,
			DiscountType: discount,
			SettledAt:    now,
		}

		return audit.Write(tx, audit.Entry{
			Actor:       actor,
			EntityType:  "bill",
			EntityID:    bill.ID,
			Action:      models.AuditActionSettle,
			Description: fmt.Sprintf("Table %d paid %s (total %s, %s)", tableID, actual.StringFixed(2), total.StringFixed(2), discount),
			Before:      map[string]any{"status": models.BillOpen},
			After:       res,
		})
	})
	if err != nil {
		return nil, err
	}

	s.log.WithFields(logrus.Fields{
		"table_id": res.TableID,
		"bill_id":  res.BillID,
		"total":    res.TotalAmount.StringFixed(2),
		"actual":   res.ActualAmount.StringFixed(2),
	}).Info("Bill settled")

	ev := events.New(events.BillSettled)
	ev.TableID, ev.BillID = res.TableID, res.BillID
	ev.Payload = res
	events.Notify(ctx, s.events, s.log, ev)

	return &res, nil
}

// -------------------------
// Helpers
// -------------------------

// openBill returns the open bill of a table, NotFound for unknown tables and
// InvalidState when the table is not seated. lock also locks the table row.
func openBill(tx *gorm.DB, tableID uint, lock bool) (*models.Bill, error) {
	query := func() *gorm.DB {
		if lock {
			return store.ForUpdate(tx)
		}
		return tx
	}

	var table models.Table
	if err := query().First(&table, tableID).Error; err != nil {
		return nil, store.NotFound(err, "table %d not found", tableID)
	}

	var bill models.Bill
	err := query().Where("table_id = ? AND status = ?", tableID, models.BillOpen).First(&bill).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, apperr.InvalidState("table %d is %s and has no open bill", tableID, table.Status)
	}
	if err != nil {
		return nil, err
	}
	return &bill, nil
}

func findDraft(tx *gorm.DB, tableID uint) (*models.Order, error) {
	var order models.Order
	err := tx.
		Preload("Items", func(db *gorm.DB) *gorm.DB { return db.Order("id ASC") }).
		Where("table_id = ? AND status = ?", tableID, models.OrderDraft).
		First(&order).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &order, nil
}

// lockDraft locks the table's draft order, if any.
func lockDraft(tx *gorm.DB, tableID uint) (*models.Order, error) {
	var order models.Order
	err := store.ForUpdate(tx).
		Where("table_id = ? AND status = ?", tableID, models.OrderDraft).
		First(&order).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &order, nil
}

func lockOrder(tx *gorm.DB, orderID uint) (*models.Order, error) {
	var order models.Order
	if err := store.ForUpdate(tx).First(&order, orderID).Error; err != nil {
		return nil, store.NotFound(err, "order %d not found", orderID)
	}
	return &order, nil
}

func newDraftView(order *models.Order) *DraftView {
	subtotal := decimal.Zero
	for _, it := range order.Items {
		subtotal = subtotal.Add(it.Subtotal())
	}
	if order.Items == nil {
		order.Items = []models.OrderItem{}
	}
	return &DraftView{Order: *order, Subtotal: subtotal}
}
