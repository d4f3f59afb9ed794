package checkout

import (
	"context"
	"errors"
	"io"
	"sync"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/vincense/orderflow/internal/cart"
	"github.com/vincense/orderflow/pkg/models"
)

type mockStore struct {
	mu         sync.Mutex
	orders     []models.Order
	items      []models.OrderItem
	orderErr   error
	itemsErr   error
	orderCalls int
	itemsCalls int
}

func (m *mockStore) InsertOrder(_ context.Context, order *models.Order) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.orderCalls++
	if m.orderErr != nil {
		return m.orderErr
	}
	m.orders = append(m.orders, *order)
	return nil
}

func (m *mockStore) InsertItems(_ context.Context, items []models.OrderItem) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.itemsCalls++
	if m.itemsErr != nil {
		return m.itemsErr
	}
	m.items = append(m.items, items...)
	return nil
}

func quietLogger() *logrus.Logger {
	logger := logrus.New()
	logger.SetOutput(io.Discard)
	return logger
}

func newCoordinator(store *mockStore) *Coordinator {
	return NewCoordinator(store, 10*time.Second, quietLogger())
}

func fullContact() Contact {
	return Contact{
		Name:    "Aditi Sharma",
		Phone:   "+91 98765 43210",
		Email:   "aditi@example.com",
		Address: "12 MG Road, Bengaluru 560001",
	}
}

func cartWith(t *testing.T, prices map[string]int64, quantities map[string]int) *cart.Cart {
	t.Helper()
	c := cart.New()
	for id, price := range prices {
		c.Add(cart.ProductRef{ID: id, Name: "Item " + id, Price: decimal.NewFromInt(price)})
		for i := 1; i < quantities[id]; i++ {
			c.Add(cart.ProductRef{ID: id, Name: "Item " + id, Price: decimal.NewFromInt(price)})
		}
	}
	return c
}

func TestSubmitWritesHeaderThenItems(t *testing.T) {
	store := &mockStore{}
	c := cartWith(t, map[string]int64{"x": 100, "y": 50}, map[string]int{"x": 2, "y": 1})

	orderID, err := newCoordinator(store).Submit(context.Background(), c, fullContact())
	require.NoError(t, err)
	require.NotEmpty(t, orderID)

	require.Len(t, store.orders, 1)
	order := store.orders[0]
	assert.Equal(t, orderID, order.ID)
	assert.Equal(t, models.StatusProcessing, order.Status)
	assert.True(t, order.TotalAmount.Equal(decimal.NewFromInt(250)), "total = %s", order.TotalAmount)
	assert.Equal(t, "Aditi Sharma", order.CustomerName)
	assert.False(t, order.CreatedAt.IsZero())

	require.Len(t, store.items, 2)
	byProduct := map[string]models.OrderItem{}
	for _, item := range store.items {
		assert.Equal(t, orderID, item.OrderID)
		byProduct[item.ProductID] = item
	}
	assert.True(t, byProduct["x"].PriceAtTime.Equal(decimal.NewFromInt(100)))
	assert.Equal(t, 2, byProduct["x"].Quantity)
	assert.True(t, byProduct["y"].PriceAtTime.Equal(decimal.NewFromInt(50)))
	assert.Equal(t, 1, byProduct["y"].Quantity)

	assert.Empty(t, c.Lines(), "cart must be cleared after full success")
}

func TestSubmitPriceSnapshotSurvivesCatalogChange(t *testing.T) {
	store := &mockStore{}
	c := cart.New()
	c.Add(cart.ProductRef{ID: "x", Name: "Ring", Price: decimal.NewFromInt(100)})
	c.Add(cart.ProductRef{ID: "x", Name: "Ring", Price: decimal.NewFromInt(120)}) // price moved after first add

	_, err := newCoordinator(store).Submit(context.Background(), c, fullContact())
	require.NoError(t, err)

	require.Len(t, store.items, 1)
	assert.True(t, store.items[0].PriceAtTime.Equal(decimal.NewFromInt(100)),
		"price_at_time must be the add-time snapshot, got %s", store.items[0].PriceAtTime)
	require.Len(t, store.orders, 1)
	assert.True(t, store.orders[0].TotalAmount.Equal(decimal.NewFromInt(200)))
}

func TestSubmitValidation(t *testing.T) {
	cases := []struct {
		name   string
		mutate func(*Contact)
		field  string
	}{
		{"missing name", func(c *Contact) { c.Name = "" }, "name"},
		{"blank phone", func(c *Contact) { c.Phone = "   " }, "phone"},
		{"missing email", func(c *Contact) { c.Email = "" }, "email"},
		{"missing address", func(c *Contact) { c.Address = "" }, "address"},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			store := &mockStore{}
			c := cartWith(t, map[string]int64{"x": 100}, map[string]int{"x": 1})
			contact := fullContact()
			tc.mutate(&contact)

			_, err := newCoordinator(store).Submit(context.Background(), c, contact)

			var validation *ValidationError
			require.ErrorAs(t, err, &validation)
			assert.Equal(t, tc.field, validation.Field)
			assert.Zero(t, store.orderCalls, "validation failure must not touch the store")
			assert.Zero(t, store.itemsCalls)
			assert.NotEmpty(t, c.Lines(), "cart must survive a refused submission")
		})
	}
}

func TestSubmitEmptyCartRefused(t *testing.T) {
	store := &mockStore{}
	_, err := newCoordinator(store).Submit(context.Background(), cart.New(), fullContact())

	var validation *ValidationError
	require.ErrorAs(t, err, &validation)
	assert.Zero(t, store.orderCalls)
}

func TestSubmitHeaderFailureLeavesNothing(t *testing.T) {
	store := &mockStore{orderErr: errors.New("connection reset")}
	c := cartWith(t, map[string]int64{"x": 100}, map[string]int{"x": 1})

	_, err := newCoordinator(store).Submit(context.Background(), c, fullContact())

	var transient *TransientStoreError
	require.ErrorAs(t, err, &transient)
	assert.Zero(t, store.itemsCalls, "items must not be written after a header failure")
	assert.Empty(t, store.orders)
	assert.NotEmpty(t, c.Lines(), "cart must survive a failed checkout")
}

func TestSubmitItemsFailureLeavesOrphanedHeader(t *testing.T) {
	store := &mockStore{itemsErr: errors.New("connection reset")}
	c := cartWith(t, map[string]int64{"x": 100}, map[string]int{"x": 1})

	_, err := newCoordinator(store).Submit(context.Background(), c, fullContact())

	var partial *PartialCheckoutFailure
	require.ErrorAs(t, err, &partial)
	require.Len(t, store.orders, 1, "no compensating delete: the header stays")
	assert.Equal(t, store.orders[0].ID, partial.OrderID)
	assert.Empty(t, store.items)
	assert.NotEmpty(t, c.Lines(), "cart must survive a partial checkout")
}

func TestSubmitDoubleSubmitMakesTwoOrders(t *testing.T) {
	store := &mockStore{}
	coordinator := newCoordinator(store)

	first := cartWith(t, map[string]int64{"x": 100}, map[string]int{"x": 1})
	id1, err := coordinator.Submit(context.Background(), first, fullContact())
	require.NoError(t, err)

	second := cartWith(t, map[string]int64{"x": 100}, map[string]int{"x": 1})
	id2, err := coordinator.Submit(context.Background(), second, fullContact())
	require.NoError(t, err)

	assert.NotEqual(t, id1, id2, "no dedup: each submission is an independent order")
	assert.Len(t, store.orders, 2)
}
