// Package checkout converts a cart snapshot into a durable order. The write
// is a two-phase sequence with no cross-row transaction: header first, then
// items. The coordinator surfaces each failure mode distinctly and never
// deletes a header it already wrote.
package checkout

import (
	"context"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/sirupsen/logrus"
	"github.com/vincense/orderflow/internal/cart"
	"github.com/vincense/orderflow/pkg/models"
)

// Store is the slice of the order store checkout needs.
type Store interface {
	InsertOrder(ctx context.Context, order *models.Order) error
	InsertItems(ctx context.Context, items []models.OrderItem) error
}

// Contact is the shopper's required contact fields.
type Contact struct {
	Name    string `json:"name"`
	Phone   string `json:"phone"`
	Email   string `json:"email"`
	Address string `json:"address"`
}

type Coordinator struct {
	store        Store
	logger       *logrus.Logger
	writeTimeout time.Duration

	// newID is swappable in tests; production uses uuid.NewString so the
	// order id exists before any write does.
	newID func() string
}

func NewCoordinator(store Store, writeTimeout time.Duration, logger *logrus.Logger) *Coordinator {
	return &Coordinator{
		store:        store,
		logger:       logger,
		writeTimeout: writeTimeout,
		newID:        uuid.NewString,
	}
}

// Submit runs the checkout sequence for the cart. On full success the cart is
// cleared and the new order id returned. There is no dedup of rapid repeated
// submissions: two calls make two orders.
func (c *Coordinator) Submit(ctx context.Context, shopperCart *cart.Cart, contact Contact) (string, error) {
	lines := shopperCart.Lines()
	if err := validate(lines, contact); err != nil {
		return "", err
	}

	total := decimal.Zero
	for _, l := range lines {
		total = total.Add(l.UnitPrice.Mul(decimal.NewFromInt(int64(l.Quantity))))
	}

	orderID := c.newID()
	order := &models.Order{
		ID:              orderID,
		CustomerName:    contact.Name,
		CustomerPhone:   contact.Phone,
		CustomerEmail:   contact.Email,
		CustomerAddress: contact.Address,
		TotalAmount:     total,
		Status:          models.StatusProcessing,
		CreatedAt:       time.Now(),
	}

	writeCtx, cancel := context.WithTimeout(ctx, c.writeTimeout)
	defer cancel()
	if err := c.store.InsertOrder(writeCtx, order); err != nil {
		c.logger.WithError(err).WithField("order_id", orderID).Error("Order header write failed")
		return "", &TransientStoreError{Op: "insert order", Err: err}
	}

	items := make([]models.OrderItem, 0, len(lines))
	for _, l := range lines {
		items = append(items, models.OrderItem{
			OrderID:     orderID,
			ProductID:   l.ProductID,
			ProductName: l.Name,
			Quantity:    l.Quantity,
			PriceAtTime: l.UnitPrice,
		})
	}

	itemsCtx, cancel := context.WithTimeout(ctx, c.writeTimeout)
	defer cancel()
	if err := c.store.InsertItems(itemsCtx, items); err != nil {
		// The header is already durable. Leave it: the orphan sweep will
		// flag it, a delete here could race the notification stream.
		c.logger.WithError(err).WithField("order_id", orderID).Error("Order items write failed after header commit")
		return "", &PartialCheckoutFailure{OrderID: orderID, Err: err}
	}

	shopperCart.Clear()

	c.logger.WithFields(logrus.Fields{
		"order_id":     orderID,
		"customer":     contact.Name,
		"total_amount": total.String(),
		"item_count":   len(items),
	}).Info("Checkout completed")

	return orderID, nil
}

func validate(lines []cart.Line, contact Contact) error {
	if len(lines) == 0 {
		return &ValidationError{Field: "cart"}
	}
	fields := []struct {
		name  string
		value string
	}{
		{"name", contact.Name},
		{"phone", contact.Phone},
		{"email", contact.Email},
		{"address", contact.Address},
	}
	for _, f := range fields {
		if strings.TrimSpace(f.value) == "" {
			return &ValidationError{Field: f.name}
		}
	}
	return nil
}
