package models

import (
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func baseOrder() *Order {
	return &Order{
		ID:              "o1",
		CustomerName:    "Aditi Sharma",
		CustomerPhone:   "+91 98765 43210",
		CustomerEmail:   "aditi@example.com",
		CustomerAddress: "12 MG Road",
		TotalAmount:     decimal.NewFromInt(250),
		Status:          StatusProcessing,
		CreatedAt:       time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC),
		Items: []OrderItem{
			{OrderID: "o1", ProductID: "x", ProductName: "Ring", Quantity: 2, PriceAtTime: decimal.NewFromInt(100)},
		},
	}
}

func TestDiffOrdersOnlyChangedFields(t *testing.T) {
	prev := baseOrder()
	next := baseOrder()
	next.Status = StatusConfirmed

	patch := DiffOrders(prev, next)

	assert.Equal(t, "o1", patch.ID)
	require.NotNil(t, patch.Status)
	assert.Equal(t, StatusConfirmed, *patch.Status)
	assert.Nil(t, patch.CustomerName)
	assert.Nil(t, patch.TotalAmount)
	assert.Nil(t, patch.CreatedAt)
}

func TestApplyLeavesNilFieldsAndItemsAlone(t *testing.T) {
	order := baseOrder()
	status := StatusPacking

	patch := OrderPatch{ID: "o1", Status: &status}
	patch.Apply(order)

	assert.Equal(t, StatusPacking, order.Status)
	assert.Equal(t, "Aditi Sharma", order.CustomerName)
	require.Len(t, order.Items, 1, "applying a header patch must not erase items")
	assert.True(t, order.TotalAmount.Equal(decimal.NewFromInt(250)))
}

func TestApplyIsIdempotent(t *testing.T) {
	order := baseOrder()
	reason := "address unreachable"
	status := StatusRejected
	patch := OrderPatch{ID: "o1", Status: &status, RejectionReason: &reason}

	patch.Apply(order)
	once := *order
	patch.Apply(order)

	assert.Equal(t, once.Status, order.Status)
	assert.Equal(t, once.RejectionReason, order.RejectionReason)
}

func TestHeaderPatchRoundTrips(t *testing.T) {
	src := baseOrder()
	src.Status = StatusShipped
	src.CourierName = "BlueDart"
	src.TrackingID = "BD123"

	patch := HeaderPatch(src)

	var dst Order
	dst.ID = src.ID
	patch.Apply(&dst)

	assert.Equal(t, src.CustomerName, dst.CustomerName)
	assert.Equal(t, src.Status, dst.Status)
	assert.Equal(t, src.CourierName, dst.CourierName)
	assert.Equal(t, src.TrackingID, dst.TrackingID)
	assert.True(t, src.TotalAmount.Equal(dst.TotalAmount))
	assert.True(t, src.CreatedAt.Equal(dst.CreatedAt))
	assert.Empty(t, dst.Items, "a header patch never carries items")
}

func TestStatusTerminal(t *testing.T) {
	for _, s := range []Status{StatusRejected, StatusDelivered} {
		if !s.Terminal() {
			t.Errorf("%s should be terminal", s)
		}
	}
	for _, s := range []Status{StatusProcessing, StatusConfirmed, StatusPacking, StatusReadyForShipping, StatusShipped} {
		if s.Terminal() {
			t.Errorf("%s should not be terminal", s)
		}
	}
	if Status("Bogus").Valid() {
		t.Error("unknown status reported valid")
	}
}
