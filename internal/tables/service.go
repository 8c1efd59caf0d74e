// Package tables runs the dining table lifecycle:
// free -> occupied -> needs_cleaning -> free.
package tables

import (
	"context"
	"fmt"

	"dinein-backend/internal/apperr"
	"dinein-backend/internal/audit"
	"dinein-backend/internal/events"
	"dinein-backend/internal/models"
	"dinein-backend/internal/store"

	"github.com/shopspring/decimal"
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

// OpenResult names the records created by Open.
type OpenResult struct {
	TableID uint `json:"table_id"`
	BillID  uint `json:"bill_id"`
	OrderID uint `json:"order_id"`
}

// List returns every table, or only those in status when it is set.
func (s *Service) List(ctx context.Context, status models.TableStatus) ([]models.Table, error) {
	q := s.db.WithContext(ctx).Model(&models.Table{})
	if status != "" {
		if !status.Valid() {
			return nil, apperr.Validation("unknown table status %q", status)
		}
		q = q.Where("status = ?", status)
	}

	var tables []models.Table
	if err := q.Order("id ASC").Find(&tables).Error; err != nil {
		return nil, store.Classify(err)
	}
	return tables, nil
}

func (s *Service) Get(ctx context.Context, tableID uint) (*models.Table, error) {
	var table models.Table
	if err := s.db.WithContext(ctx).First(&table, tableID).Error; err != nil {
		return nil, store.Classify(store.NotFound(err, "table %d not found", tableID))
	}
	return &table, nil
}

// Open seats a party at a free table: the table becomes occupied and gets an
// open bill plus an empty draft order, all in one transaction.
func (s *Service) Open(ctx context.Context, actor audit.Actor, tableID uint) (*OpenResult, error) {
	var res OpenResult

	err := store.Tx(ctx, s.db, func(tx *gorm.DB) error {
		table, err := lockTable(tx, tableID)
		if err != nil {
			return err
		}
		if table.Status != models.TableFree {
			return apperr.InvalidState("table %d is %s, only a free table can be opened", tableID, table.Status)
		}
		if err := setStatus(tx, tableID, models.TableFree, models.TableOccupied); err != nil {
			return err
		}

		bill := models.Bill{
			TableID:      tableID,
			TotalAmount:  decimal.Zero,
			ActualAmount: decimal.Zero,
			DiscountType: models.DiscountNone,
			Status:       models.BillOpen,
		}
		if err := tx.Create(&bill).Error; err != nil {
			return err
		}

		order := models.Order{
			TableID: tableID,
			BillID:  bill.ID,
			Status:  models.OrderDraft,
		}
		if err := tx.Create(&order).Error; err != nil {
			return err
		}

		res = OpenResult{TableID: tableID, BillID: bill.ID, OrderID: order.ID}

		return audit.Write(tx, audit.Entry{
			Actor:       actor,
			EntityType:  "table",
			EntityID:    tableID,
			Action:      models.AuditActionOpen,
			Description: fmt.Sprintf("Table %d opened, bill %d", tableID, bill.ID),
			Before:      map[string]any{"status": models.TableFree},
			After:       res,
		})
	})
	if err != nil {
		return nil, err
	}

	s.log.WithFields(logrus.Fields{
		"table_id": res.TableID,
		"bill_id":  res.BillID,
		"order_id": res.OrderID,
	}).Info("Table opened")

	ev := events.New(events.TableOpened)
	ev.TableID, ev.BillID, ev.OrderID = res.TableID, res.BillID, res.OrderID
	events.Notify(ctx, s.events, s.log, ev)

	return &res, nil
}

// FinishCleanup frees a table after the party has left and it was cleaned.
func (s *Service) FinishCleanup(ctx context.Context, actor audit.Actor, tableID uint) (*models.Table, error) {
	var table *models.Table

	err := store.Tx(ctx, s.db, func(tx *gorm.DB) error {
		var err error
		table, err = lockTable(tx, tableID)
		if err != nil {
			return err
		}
		if table.Status != models.TableNeedsCleaning {
			return apperr.InvalidState("table %d is %s, only a table waiting for cleaning can be freed", tableID, table.Status)
		}
		if err := setStatus(tx, tableID, models.TableNeedsCleaning, models.TableFree); err != nil {
			return err
		}
		table.Status = models.TableFree

		return audit.Write(tx, audit.Entry{
			Actor:       actor,
			EntityType:  "table",
			EntityID:    tableID,
			Action:      models.AuditActionCleanup,
			Description: fmt.Sprintf("Table %d cleaned", tableID),
			Before:      map[string]any{"status": models.TableNeedsCleaning},
			After:       map[string]any{"status": models.TableFree},
		})
	})
	if err != nil {
		return nil, err
	}

	s.log.WithField("table_id", tableID).Info("Table cleaned")

	ev := events.New(events.TableCleaned)
	ev.TableID = tableID
	events.Notify(ctx, s.events, s.log, ev)

	return table, nil
}

// MarkNeedsCleaning moves an occupied table to needs_cleaning inside tx.
// Checkout calls it while settling the bill.
func MarkNeedsCleaning(tx *gorm.DB, tableID uint) error {
	return setStatus(tx, tableID, models.TableOccupied, models.TableNeedsCleaning)
}

func lockTable(tx *gorm.DB, tableID uint) (*models.Table, error) {
	var table models.Table
	if err := store.ForUpdate(tx).First(&table, tableID).Error; err != nil {
		return nil, store.NotFound(err, "table %d not found", tableID)
	}
	return &table, nil
}

// setStatus is a compare-and-swap on the status column; it fails with
// InvalidState when another request changed the table first.
func setStatus(tx *gorm.DB, tableID uint, from, to models.TableStatus) error {
	if from.Next() != to {
		return apperr.InvalidState("table cannot move from %s to %s", from, to)
	}

	res := tx.Model(&models.Table{}).
		Where("id = ? AND status = ?", tableID, from).
		Update("status", to)
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return apperr.InvalidState("table %d is no longer %s", tableID, from)
	}
	return nil
}
