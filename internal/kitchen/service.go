// Package kitchen derives the station work queues from confirmed order items
// and moves items through cooking.
package kitchen

import (
	"context"

	"dinein-backend/internal/apperr"
	"dinein-backend/internal/events"
	"dinein-backend/internal/models"
	"dinein-backend/internal/store"

	"github.com/sirupsen/logrus"
	"gorm.io/gorm"
)

type Service struct {
	db     *gorm.DB
	log    logrus.FieldLogger
	events events.Publisher
}

func NewService(db *gorm.DB, log logrus.FieldLogger, pub events.Publisher) *Service {
	return &Service{db: db, log: log, events: pub}
}

// Queue lists the confirmed, non-refunded items of a station, rushed items
// first and otherwise in the order they were placed. activeOnly also drops
// items that are already done.
func (s *Service) Queue(ctx context.Context, station Station, activeOnly bool) ([]models.OrderItem, error) {
	f := store.ItemFilter{
		OrderStatus:     models.OrderConfirmed,
		Categories:      station.Categories(),
		ExcludeStatuses: []models.DishStatus{models.DishRefunded},
		RushedFirst:     true,
	}
	if activeOnly {
		f.ExcludeStatuses = append(f.ExcludeStatuses, models.DishDone)
	}
	return store.FindItems(ctx, s.db, f)
}

func (s *Service) StartCooking(ctx context.Context, ref store.ItemRef) (*models.OrderItem, error) {
	return s.UpdateStatus(ctx, ref, models.DishCooking)
}

func (s *Service) MarkDone(ctx context.Context, ref store.ItemRef) (*models.OrderItem, error) {
	return s.UpdateStatus(ctx, ref, models.DishDone)
}

// UpdateStatus moves an item forward to cooking or done. Refunds go through
// ordering so that a reason is recorded.
func (s *Service) UpdateStatus(ctx context.Context, ref store.ItemRef, next models.DishStatus) (*models.OrderItem, error) {
	if next != models.DishCooking && next != models.DishDone {
		return nil, apperr.Validation("kitchen can only set cooking or done, not %q", next)
	}

	var (
		item  *models.OrderItem
		order *models.Order
		prev  models.DishStatus
	)
	err := store.Tx(ctx, s.db, func(tx *gorm.DB) error {
		var err error
		if order, _, err = store.LockSentOrder(tx, ref.OrderID); err != nil {
			return err
		}

		item, err = store.LockItem(tx, ref, func(i models.OrderItem) bool {
			return i.DishStatus.CanTransitionTo(next)
		})
		if err != nil {
			return err
		}
		prev = item.DishStatus
		if !prev.CanTransitionTo(next) {
			return apperr.InvalidState("%s is %s and cannot become %s", item.DishName, prev, next)
		}

		res := tx.Model(&models.OrderItem{}).
			Where("id = ? AND dish_status = ?", item.ID, prev).
			Update("dish_status", next)
		if res.Error != nil {
			return res.Error
		}
		if res.RowsAffected == 0 {
			return apperr.InvalidState("%s changed meanwhile, try again", item.DishName)
		}
		item.DishStatus = next
		item.TableID = order.TableID
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.log.WithFields(logrus.Fields{
		"table_id": order.TableID,
		"order_id": order.ID,
		"item_id":  item.ID,
		"from":     prev,
		"to":       next,
	}).Info("Dish status changed")

	ev := events.New(events.ItemStatusChanged)
	ev.TableID, ev.BillID, ev.OrderID, ev.ItemID = order.TableID, order.BillID, order.ID, item.ID
	ev.Payload = map[string]any{"from": prev, "to": next}
	events.Notify(ctx, s.events, s.log, ev)

	return item, nil
}
