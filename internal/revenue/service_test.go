package revenue_test

import (
	"bytes"
	"context"
	"testing"
	"time"

	"dinein-backend/internal/apperr"
	"dinein-backend/internal/audit"
	"dinein-backend/internal/database/databasetest"
	"dinein-backend/internal/events"
	"dinein-backend/internal/logger"
	"dinein-backend/internal/menu"
	"dinein-backend/internal/models"
	"dinein-backend/internal/ordering"
	"dinein-backend/internal/revenue"
	"dinein-backend/internal/store"
	"dinein-backend/internal/tables"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xuri/excelize/v2"
	"gorm.io/gorm"
)

var waiter = audit.Actor{Role: models.RoleWaiter, Name: "ayla"}

// seed settles two tables and leaves a third one open.
func seed(t *testing.T) (*gorm.DB, *revenue.Service) {
	t.Helper()
	ctx := context.Background()
	db := databasetest.Open(t)
	log := logger.NewNop()
	tbl := tables.NewService(db, log, events.Nop{})
	mnu := menu.NewService(db, log)
	ord := ordering.NewService(db, log, events.Nop{})

	fish, err := mnu.Create(ctx, waiter, menu.CreateInput{
		Name: "Boiled Fish", Category: models.CategoryHot, Price: decimal.RequireFromString("68.00"),
		FlavorRounds: []menu.RoundInput{{Name: "Spice Level", Options: []string{"Mild", "Hot"}}},
	})
	require.NoError(t, err)
	tea, err := mnu.Create(ctx, waiter, menu.CreateInput{
		Name: "Jasmine Tea", Category: models.CategoryBeverage, Price: decimal.RequireFromString("6.50"),
	})
	require.NoError(t, err)

	settle := func(tableID uint, discount models.DiscountType, refundTea bool) {
		opened, err := tbl.Open(ctx, waiter, tableID)
		require.NoError(t, err)
		_, err = ord.AddItem(ctx, opened.OrderID, ordering.AddItemInput{
			DishID: fish.ID, Quantity: 1, Flavors: []models.FlavorChoice{{Round: "Spice Level", Option: "Hot"}},
		})
		require.NoError(t, err)
		_, err = ord.AddItem(ctx, opened.OrderID, ordering.AddItemInput{DishID: tea.ID, Quantity: 2})
		require.NoError(t, err)
		_, err = ord.Confirm(ctx, waiter, opened.OrderID)
		require.NoError(t, err)
		if refundTea {
			_, err = ord.Refund(ctx, waiter, store.ItemRef{OrderID: opened.OrderID, DishID: tea.ID}, "cold")
			require.NoError(t, err)
		}
		_, err = ord.Checkout(ctx, waiter, tableID, discount)
		require.NoError(t, err)
	}

	settle(1, models.DiscountNone, false)      // 81.00 -> 81.00
	settle(2, models.DiscountPercentOff, true) // 68.00 -> 54.40

	_, err = tbl.Open(ctx, waiter, 3)
	require.NoError(t, err)

	return db, revenue.NewService(db)
}

func TestReport(t *testing.T) {
	_, svc := seed(t)

	rep, err := svc.Report(context.Background(), revenue.Range{})
	require.NoError(t, err)

	assert.Equal(t, 2, rep.BillCount)
	assert.True(t, decimal.RequireFromString("149.00").Equal(rep.TotalSum), "got %s", rep.TotalSum)
	assert.True(t, decimal.RequireFromString("135.40").Equal(rep.ActualSum), "got %s", rep.ActualSum)
	assert.True(t, decimal.RequireFromString("13.60").Equal(rep.DiscountSum), "got %s", rep.DiscountSum)

	// newest first
	require.Len(t, rep.Bills, 2)
	assert.Equal(t, uint(2), rep.Bills[0].TableID)
	require.NotNil(t, rep.Bills[0].Table)
	assert.Equal(t, 4, rep.Bills[0].Table.Capacity)

	// refunded tea is left out of the detail
	require.Len(t, rep.Bills[0].Orders, 1)
	require.Len(t, rep.Bills[0].Orders[0].Items, 1)
	assert.Equal(t, "Boiled Fish", rep.Bills[0].Orders[0].Items[0].DishName)
	assert.Len(t, rep.Bills[1].Orders[0].Items, 2)
}

func TestReportRange(t *testing.T) {
	db, svc := seed(t)
	ctx := context.Background()

	past := time.Now().Add(-48 * time.Hour)
	require.NoError(t, db.Model(&models.Bill{}).Where("table_id = ?", 1).Update("settled_at", past).Error)

	from := time.Now().Add(-time.Hour)
	to := time.Now().Add(time.Hour)
	rep, err := svc.Report(ctx, revenue.Range{From: &from, To: &to})
	require.NoError(t, err)
	require.Equal(t, 1, rep.BillCount)
	assert.Equal(t, uint(2), rep.Bills[0].TableID)

	rep, err = svc.Report(ctx, revenue.Range{To: &from})
	require.NoError(t, err)
	require.Equal(t, 1, rep.BillCount)
	assert.Equal(t, uint(1), rep.Bills[0].TableID)

	_, err = svc.Report(ctx, revenue.Range{From: &to, To: &from})
	assert.ErrorIs(t, err, apperr.ErrValidation)

	future := time.Now().Add(24 * time.Hour)
	rep, err = svc.Report(ctx, revenue.Range{From: &future})
	require.NoError(t, err)
	assert.Zero(t, rep.BillCount)
	assert.NotNil(t, rep.Bills)
	assert.True(t, rep.TotalSum.IsZero())
}

func TestWriteXLSX(t *testing.T) {
	_, svc := seed(t)

	rep, err := svc.Report(context.Background(), revenue.Range{})
	require.NoError(t, err)

	buf, err := revenue.WriteXLSX(rep)
	require.NoError(t, err)

	f, err := excelize.OpenReader(bytes.NewReader(buf.Bytes()))
	require.NoError(t, err)
	defer f.Close()

	bills, err := f.GetRows("Bills")
	require.NoError(t, err)
	require.Len(t, bills, 4) // header, two bills, totals
	assert.Equal(t, "Bill", bills[0][0])
	assert.Equal(t, "percent_off", bills[1][3])
	assert.Equal(t, "Total", bills[3][0])
	assert.Equal(t, "135.4", bills[3][5])

	items, err := f.GetRows("Items")
	require.NoError(t, err)
	require.Len(t, items, 4) // header, fish, fish, tea
	assert.Equal(t, "Spice Level: Hot", items[1][3])
}
