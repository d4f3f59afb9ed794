// Package console maintains the management console's live order view: the
// merge of an initial load, optimistic local transitions, and the change
// notification stream. Merges are keyed by order id with per-field
// last-write-wins, so the view converges no matter how events for different
// orders interleave.
package console

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/vincense/orderflow/internal/events"
	"github.com/vincense/orderflow/internal/lifecycle"
	"github.com/vincense/orderflow/pkg/models"
)

// Fetcher reads authoritative order state from the store.
type Fetcher interface {
	GetOrder(ctx context.Context, id string) (*models.Order, error)
	ListOrders(ctx context.Context) ([]*models.Order, error)
}

// Writer applies a transition patch to the store.
type Writer interface {
	UpdateOrder(ctx context.Context, patch models.OrderPatch) error
}

// Broadcaster pushes applied view changes to connected consoles.
type Broadcaster interface {
	Broadcast(messageType string, data interface{}, source string)
}

type View struct {
	fetcher      Fetcher
	writer       Writer
	hub          Broadcaster
	logger       *logrus.Logger
	writeTimeout time.Duration

	mu     sync.RWMutex
	orders map[string]*models.Order
}

func NewView(fetcher Fetcher, writer Writer, writeTimeout time.Duration, logger *logrus.Logger) *View {
	return &View{
		fetcher:      fetcher,
		writer:       writer,
		logger:       logger,
		writeTimeout: writeTimeout,
		orders:       make(map[string]*models.Order),
	}
}

// SetBroadcaster attaches the websocket hub. The view works without one; only
// pushes to other open consoles are lost.
func (v *View) SetBroadcaster(hub Broadcaster) {
	v.hub = hub
}

// Load replaces the view with the store's current contents. Called once at
// startup before event-driven updates take over.
func (v *View) Load(ctx context.Context) error {
	orders, err := v.fetcher.ListOrders(ctx)
	if err != nil {
		return fmt.Errorf("initial order load: %w", err)
	}

	v.mu.Lock()
	v.orders = make(map[string]*models.Order, len(orders))
	for _, o := range orders {
		v.orders[o.ID] = o
	}
	v.mu.Unlock()

	v.logger.WithField("order_count", len(orders)).Info("Order view loaded")
	return nil
}

// HandleOrderChange applies one notification event to the view. It satisfies
// events.ChangeHandler; events for the same order arrive in commit order,
// events across orders in any order.
func (v *View) HandleOrderChange(change events.OrderChange) error {
	switch change.Type {
	case events.ChangeInsert:
		// The payload carries only the header row; the items need a refetch.
		return v.refetch(context.Background(), change.OrderID)

	case events.ChangeUpdate:
		v.mu.Lock()
		order, ok := v.orders[change.OrderID]
		if ok && change.NewRow != nil {
			change.NewRow.Apply(order)
			merged := *order
			v.mu.Unlock()
			v.broadcast("order_updated", merged)
			return nil
		}
		v.mu.Unlock()
		if !ok {
			// Never seen this order; an update can't be merged into nothing.
			return v.refetch(context.Background(), change.OrderID)
		}
		return nil

	case events.ChangeDelete:
		v.mu.Lock()
		delete(v.orders, change.OrderID)
		v.mu.Unlock()
		v.broadcast("order_deleted", map[string]string{"id": change.OrderID})
		return nil

	default:
		v.logger.WithField("type", change.Type).Warn("Unknown change type ignored")
		return nil
	}
}

// Transition validates and applies a lifecycle transition: refused locally if
// invalid, applied optimistically to the view, then written to the store. A
// failed write discards the optimistic guess with a full refetch rather than
// a fine-grained undo.
func (v *View) Transition(ctx context.Context, orderID string, to models.Status, payload lifecycle.Payload) error {
	v.mu.RLock()
	order, ok := v.orders[orderID]
	var from models.Status
	if ok {
		from = order.Status
	}
	v.mu.RUnlock()

	if !ok {
		if err := v.refetch(ctx, orderID); err != nil {
			return err
		}
		v.mu.RLock()
		order, ok = v.orders[orderID]
		if ok {
			from = order.Status
		}
		v.mu.RUnlock()
		if !ok {
			return fmt.Errorf("order %s not found", orderID)
		}
	}

	if err := lifecycle.Validate(from, to, payload); err != nil {
		return err
	}

	patch := lifecycle.Patch(orderID, to, payload)

	// Optimistic: the console shows the new status before the store confirms.
	v.mu.Lock()
	if order, ok := v.orders[orderID]; ok {
		patch.Apply(order)
		v.broadcastLocked("order_updated", order)
	}
	v.mu.Unlock()

	writeCtx, cancel := context.WithTimeout(ctx, v.writeTimeout)
	defer cancel()
	if err := v.writer.UpdateOrder(writeCtx, patch); err != nil {
		v.logger.WithError(err).WithFields(logrus.Fields{
			"order_id": orderID,
			"to":       to,
		}).Error("Transition write failed, discarding optimistic state")

		if refetchErr := v.refetch(ctx, orderID); refetchErr != nil {
			v.logger.WithError(refetchErr).WithField("order_id", orderID).Error("Refetch after failed transition also failed")
		}
		return fmt.Errorf("transition to %s: %w", to, err)
	}

	v.logger.WithFields(logrus.Fields{
		"order_id": orderID,
		"from":     from,
		"to":       to,
	}).Info("Order transitioned")
	return nil
}

// Orders returns the view's orders newest first, items embedded.
func (v *View) Orders() []models.Order {
	v.mu.RLock()
	defer v.mu.RUnlock()

	out := make([]models.Order, 0, len(v.orders))
	for _, o := range v.orders {
		out = append(out, *o)
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].CreatedAt.Equal(out[j].CreatedAt) {
			return out[i].ID < out[j].ID
		}
		return out[i].CreatedAt.After(out[j].CreatedAt)
	})
	return out
}

// Get returns a copy of one order, if the view holds it.
func (v *View) Get(orderID string) (models.Order, bool) {
	v.mu.RLock()
	defer v.mu.RUnlock()
	if o, ok := v.orders[orderID]; ok {
		return *o, true
	}
	return models.Order{}, false
}

// refetch replaces the local entry with the store's authoritative row plus
// items. This is the single convergence fallback for every kind of drift.
func (v *View) refetch(ctx context.Context, orderID string) error {
	order, err := v.fetcher.GetOrder(ctx, orderID)
	if err != nil {
		return fmt.Errorf("refetch order %s: %w", orderID, err)
	}

	v.mu.Lock()
	v.orders[orderID] = order
	fresh := *order
	v.mu.Unlock()

	v.broadcast("order_refreshed", fresh)
	return nil
}

func (v *View) broadcast(messageType string, data interface{}) {
	if v.hub != nil {
		v.hub.Broadcast(messageType, data, "console")
	}
}

// broadcastLocked copies the order while the caller still holds v.mu.
func (v *View) broadcastLocked(messageType string, order *models.Order) {
	if v.hub != nil {
		v.hub.Broadcast(messageType, *order, "console")
	}
}
