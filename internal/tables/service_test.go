package tables_test

import (
	"context"
	"sync"
	"testing"

	"dinein-backend/internal/apperr"
	"dinein-backend/internal/audit"
	"dinein-backend/internal/database/databasetest"
	"dinein-backend/internal/events"
	"dinein-backend/internal/logger"
	"dinein-backend/internal/models"
	"dinein-backend/internal/tables"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
)

var waiter = audit.Actor{Role: models.RoleWaiter, Name: "ayla"}

func newService(t *testing.T) (*tables.Service, *gorm.DB, *events.Recorder) {
	t.Helper()
	db := databasetest.Open(t)
	rec := &events.Recorder{}
	return tables.NewService(db, logger.NewNop(), rec), db, rec
}

func TestOpenTable(t *testing.T) {
	svc, db, rec := newService(t)
	ctx := context.Background()

	res, err := svc.Open(ctx, waiter, 5)
	require.NoError(t, err)
	assert.Equal(t, uint(5), res.TableID)

	var table models.Table
	require.NoError(t, db.First(&table, 5).Error)
	assert.Equal(t, models.TableOccupied, table.Status)
	assert.Equal(t, 4, table.Capacity)

	var bill models.Bill
	require.NoError(t, db.First(&bill, res.BillID).Error)
	assert.Equal(t, models.BillOpen, bill.Status)
	assert.Equal(t, uint(5), bill.TableID)

	var order models.Order
	require.NoError(t, db.First(&order, res.OrderID).Error)
	assert.Equal(t, models.OrderDraft, order.Status)
	assert.Equal(t, res.BillID, order.BillID)

	assert.Equal(t, []string{events.TableOpened}, rec.Types())

	logs, err := audit.List(ctx, db, audit.Filter{EntityType: "table", EntityID: 5})
	require.NoError(t, err)
	require.Len(t, logs, 1)
	assert.Equal(t, models.AuditActionOpen, logs[0].Action)
	assert.Equal(t, "ayla", logs[0].ActorName)
}

func TestOpenTableRejected(t *testing.T) {
	svc, db, rec := newService(t)
	ctx := context.Background()

	_, err := svc.Open(ctx, waiter, 99)
	assert.ErrorIs(t, err, apperr.ErrNotFound)

	_, err = svc.Open(ctx, waiter, 1)
	require.NoError(t, err)

	_, err = svc.Open(ctx, waiter, 1)
	assert.ErrorIs(t, err, apperr.ErrInvalidState)

	require.NoError(t, db.Model(&models.Table{}).Where("id = ?", 2).Update("status", models.TableNeedsCleaning).Error)
	_, err = svc.Open(ctx, waiter, 2)
	assert.ErrorIs(t, err, apperr.ErrInvalidState)

	var bills int64
	require.NoError(t, db.Model(&models.Bill{}).Count(&bills).Error)
	assert.Equal(t, int64(1), bills)
	assert.Len(t, rec.Types(), 1)
}

func TestOpenTableConcurrently(t *testing.T) {
	svc, db, _ := newService(t)

	const terminals = 8
	var (
		wg       sync.WaitGroup
		mu       sync.Mutex
		opened   int
		rejected int
	)
	for i := 0; i < terminals; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := svc.Open(context.Background(), waiter, 3)
			mu.Lock()
			defer mu.Unlock()
			if err == nil {
				opened++
			} else if assert.ErrorIs(t, err, apperr.ErrInvalidState) {
				rejected++
			}
		}()
	}
	wg.Wait()

	assert.Equal(t, 1, opened)
	assert.Equal(t, terminals-1, rejected)

	var openBills, drafts int64
	require.NoError(t, db.Model(&models.Bill{}).Where("table_id = ? AND status = ?", 3, models.BillOpen).Count(&openBills).Error)
	require.NoError(t, db.Model(&models.Order{}).Where("table_id = ? AND status = ?", 3, models.OrderDraft).Count(&drafts).Error)
	assert.Equal(t, int64(1), openBills)
	assert.Equal(t, int64(1), drafts)
}

func TestFinishCleanup(t *testing.T) {
	svc, db, rec := newService(t)
	ctx := context.Background()

	_, err := svc.FinishCleanup(ctx, waiter, 4)
	assert.ErrorIs(t, err, apperr.ErrInvalidState, "a free table needs no cleaning")

	_, err = svc.Open(ctx, waiter, 4)
	require.NoError(t, err)
	_, err = svc.FinishCleanup(ctx, waiter, 4)
	assert.ErrorIs(t, err, apperr.ErrInvalidState, "an occupied table cannot be freed directly")

	require.NoError(t, db.Transaction(func(tx *gorm.DB) error {
		return tables.MarkNeedsCleaning(tx, 4)
	}))

	table, err := svc.FinishCleanup(ctx, waiter, 4)
	require.NoError(t, err)
	assert.Equal(t, models.TableFree, table.Status)
	assert.Equal(t, []string{events.TableOpened, events.TableCleaned}, rec.Types())

	_, err = svc.FinishCleanup(ctx, waiter, 77)
	assert.ErrorIs(t, err, apperr.ErrNotFound)
}

func TestMarkNeedsCleaningRequiresOccupied(t *testing.T) {
	_, db, _ := newService(t)

	err := db.Transaction(func(tx *gorm.DB) error {
		return tables.MarkNeedsCleaning(tx, 6)
	})
	assert.ErrorIs(t, err, apperr.ErrInvalidState)
}

func TestListTables(t *testing.T) {
	svc, _, _ := newService(t)
	ctx := context.Background()

	_, err := svc.Open(ctx, waiter, 2)
	require.NoError(t, err)

	all, err := svc.List(ctx, "")
	require.NoError(t, err)
	assert.Len(t, all, 10)

	occupied, err := svc.List(ctx, models.TableOccupied)
	require.NoError(t, err)
	require.Len(t, occupied, 1)
	assert.Equal(t, uint(2), occupied[0].ID)

	free, err := svc.List(ctx, models.TableFree)
	require.NoError(t, err)
	assert.Len(t, free, 9)

	_, err = svc.List(ctx, "on_fire")
	assert.ErrorIs(t, err, apperr.ErrValidation)
}
