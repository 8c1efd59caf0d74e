package kitchen_test

import (
	"context"
	"testing"

	"dinein-backend/internal/apperr"
	"dinein-backend/internal/audit"
	"dinein-backend/internal/database/databasetest"
	"dinein-backend/internal/events"
	"dinein-backend/internal/kitchen"
	"dinein-backend/internal/logger"
	"dinein-backend/internal/menu"
	"dinein-backend/internal/models"
	"dinein-backend/internal/ordering"
	"dinein-backend/internal/store"
	"dinein-backend/internal/tables"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var staff = audit.Actor{Role: models.RoleManager, Name: "boss"}

type fixture struct {
	events   *events.Recorder
	tables   *tables.Service
	menu     *menu.Service
	ordering *ordering.Service
	kitchen  *kitchen.Service
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	db := databasetest.Open(t)
	rec := &events.Recorder{}
	log := logger.NewNop()
	return &fixture{
		events:   rec,
		tables:   tables.NewService(db, log, rec),
		menu:     menu.NewService(db, log),
		ordering: ordering.NewService(db, log, rec),
		kitchen:  kitchen.NewService(db, log, rec),
	}
}

func (f *fixture) dish(t *testing.T, name string, cat models.DishCategory) *models.Dish {
	t.Helper()
	d, err := f.menu.Create(context.Background(), staff, menu.CreateInput{
		Name: name, Category: cat, Price: decimal.NewFromInt(10),
	})
	require.NoError(t, err)
	return d
}

// order opens tableID, orders one of each dish and confirms.
func (f *fixture) order(t *testing.T, tableID uint, dishes ...*models.Dish) (uint, []models.OrderItem) {
	t.Helper()
	ctx := context.Background()
	opened, err := f.tables.Open(ctx, staff, tableID)
	require.NoError(t, err)

	var items []models.OrderItem
	for _, d := range dishes {
		it, err := f.ordering.AddItem(ctx, opened.OrderID, ordering.AddItemInput{DishID: d.ID, Quantity: 1})
		require.NoError(t, err)
		items = append(items, *it)
	}
	_, err = f.ordering.Confirm(ctx, staff, opened.OrderID)
	require.NoError(t, err)
	return opened.OrderID, items
}

func ids(items []models.OrderItem) []uint {
	out := make([]uint, len(items))
	for i, it := range items {
		out[i] = it.ID
	}
	return out
}

func TestParseStation(t *testing.T) {
	st, err := kitchen.ParseStation("")
	require.NoError(t, err)
	assert.Equal(t, kitchen.StationAll, st)
	assert.Nil(t, st.Categories())

	st, err = kitchen.ParseStation("cold")
	require.NoError(t, err)
	assert.Equal(t, []models.DishCategory{models.CategoryCold, models.CategoryBeverage}, st.Categories())

	_, err = kitchen.ParseStation("pastry")
	assert.ErrorIs(t, err, apperr.ErrValidation)
}

func TestQueueByStation(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	chicken := f.dish(t, "Kung Pao Chicken", models.CategoryHot)
	salad := f.dish(t, "Cucumber Salad", models.CategoryCold)
	soup := f.dish(t, "Hot and Sour Soup", models.CategorySoup)
	tea := f.dish(t, "Jasmine Tea", models.CategoryBeverage)
	rice := f.dish(t, "Rice", models.CategoryStaple)

	_, items := f.order(t, 5, chicken, salad, soup, tea, rice)

	// a draft item never reaches the kitchen
	draft, err := f.ordering.GetOrCreateDraft(ctx, 5)
	require.NoError(t, err)
	_, err = f.ordering.AddItem(ctx, draft.ID, ordering.AddItemInput{DishID: chicken.ID, Quantity: 1})
	require.NoError(t, err)

	hot, err := f.kitchen.Queue(ctx, kitchen.StationHot, false)
	require.NoError(t, err)
	assert.Equal(t, []uint{items[0].ID, items[2].ID, items[4].ID}, ids(hot))
	assert.Equal(t, uint(5), hot[0].TableID)

	cold, err := f.kitchen.Queue(ctx, kitchen.StationCold, false)
	require.NoError(t, err)
	assert.Equal(t, []uint{items[1].ID, items[3].ID}, ids(cold))

	all, err := f.kitchen.Queue(ctx, kitchen.StationAll, false)
	require.NoError(t, err)
	assert.Len(t, all, 5)
}

func TestQueueRushedFirstAndSkipsRefunds(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	chicken := f.dish(t, "Kung Pao Chicken", models.CategoryHot)
	fish := f.dish(t, "Boiled Fish", models.CategoryHot)
	pork := f.dish(t, "Twice Cooked Pork", models.CategoryHot)

	first, items := f.order(t, 1, chicken, fish)
	second, later := f.order(t, 2, pork)

	_, err := f.ordering.Rush(ctx, store.ItemRef{OrderID: second, DishID: pork.ID})
	require.NoError(t, err)
	_, err = f.ordering.Refund(ctx, staff, store.ItemRef{OrderID: first, DishID: fish.ID}, "out of fish")
	require.NoError(t, err)

	queue, err := f.kitchen.Queue(ctx, kitchen.StationHot, false)
	require.NoError(t, err)
	assert.Equal(t, []uint{later[0].ID, items[0].ID}, ids(queue))
	assert.True(t, queue[0].IsRushed)
}

func TestCookingLifecycle(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	chicken := f.dish(t, "Kung Pao Chicken", models.CategoryHot)
	orderID, _ := f.order(t, 3, chicken)
	ref := store.ItemRef{OrderID: orderID, DishID: chicken.ID}

	item, err := f.kitchen.StartCooking(ctx, ref)
	require.NoError(t, err)
	assert.Equal(t, models.DishCooking, item.DishStatus)

	_, err = f.kitchen.StartCooking(ctx, ref)
	assert.ErrorIs(t, err, apperr.ErrInvalidState)

	item, err = f.kitchen.MarkDone(ctx, ref)
	require.NoError(t, err)
	assert.Equal(t, models.DishDone, item.DishStatus)

	// done is final
	_, err = f.kitchen.UpdateStatus(ctx, ref, models.DishCooking)
	assert.ErrorIs(t, err, apperr.ErrInvalidState)
	_, err = f.ordering.Refund(ctx, staff, ref, "too late")
	assert.ErrorIs(t, err, apperr.ErrInvalidState)

	active, err := f.kitchen.Queue(ctx, kitchen.StationAll, true)
	require.NoError(t, err)
	assert.Empty(t, active)
	everything, err := f.kitchen.Queue(ctx, kitchen.StationAll, false)
	require.NoError(t, err)
	assert.Len(t, everything, 1)

	assert.Contains(t, f.events.Types(), events.ItemStatusChanged)
}

func TestUpdateStatusRejected(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	chicken := f.dish(t, "Kung Pao Chicken", models.CategoryHot)
	orderID, _ := f.order(t, 4, chicken)
	ref := store.ItemRef{OrderID: orderID, DishID: chicken.ID}

	_, err := f.kitchen.UpdateStatus(ctx, ref, models.DishRefunded)
	assert.ErrorIs(t, err, apperr.ErrValidation)
	_, err = f.kitchen.UpdateStatus(ctx, ref, models.DishNotStarted)
	assert.ErrorIs(t, err, apperr.ErrValidation)

	_, err = f.kitchen.MarkDone(ctx, store.ItemRef{OrderID: 999, DishID: chicken.ID})
	assert.ErrorIs(t, err, apperr.ErrNotFound)
	_, err = f.kitchen.MarkDone(ctx, store.ItemRef{OrderID: orderID, DishID: 999})
	assert.ErrorIs(t, err, apperr.ErrNotFound)

	// straight to done is allowed, skipping cooking
	item, err := f.kitchen.MarkDone(ctx, ref)
	require.NoError(t, err)
	assert.Equal(t, models.DishDone, item.DishStatus)

	draft, err := f.ordering.GetOrCreateDraft(ctx, 4)
	require.NoError(t, err)
	_, err = f.ordering.AddItem(ctx, draft.ID, ordering.AddItemInput{DishID: chicken.ID, Quantity: 1})
	require.NoError(t, err)
	_, err = f.kitchen.StartCooking(ctx, store.ItemRef{OrderID: draft.ID, DishID: chicken.ID})
	assert.ErrorIs(t, err, apperr.ErrInvalidState)
}

func TestUpdateStatusAfterCheckout(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	chicken := f.dish(t, "Kung Pao Chicken", models.CategoryHot)
	orderID, _ := f.order(t, 8, chicken)
	_, err := f.ordering.Checkout(ctx, staff, 8, models.DiscountNone)
	require.NoError(t, err)

	_, err = f.kitchen.StartCooking(ctx, store.ItemRef{OrderID: orderID, DishID: chicken.ID})
	assert.ErrorIs(t, err, apperr.ErrInvalidState)
}
