package events

import (
	"time"

	"github.com/vincense/orderflow/pkg/models"
)

const (
	// OrdersChangedTopic carries one message per committed order-row write,
	// keyed by order id. Kafka's per-key ordering is exactly the channel
	// contract: in-order per id, no ordering across ids.
	OrdersChangedTopic = "orders.changed"
)

type ChangeType string

const (
	ChangeInsert ChangeType = "insert"
	ChangeUpdate ChangeType = "update"
	ChangeDelete ChangeType = "delete"
)

// OrderChange is the row-level change event delivered to subscribers.
// NewRow carries only the columns the write touched (the full header for an
// insert); OldRow is the header as it stood before the write, when known.
// Inserts never include items, so a subscriber needing them must refetch.
type OrderChange struct {
	Type      ChangeType         `json:"type"`
	OrderID   string             `json:"order_id"`
	NewRow    *models.OrderPatch `json:"new_row,omitempty"`
	OldRow    *models.OrderPatch `json:"old_row,omitempty"`
	EventTime time.Time          `json:"event_time"`
}
