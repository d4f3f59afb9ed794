// Package store is the shared persistent order store. It is the only shared
// resource in the system: every committed write is followed by a change event
// on the notification channel, and concurrent writers are resolved by last
// accepted write, not locking.
package store

import (
	"context"
	"database/sql"
	"errors"

	"github.com/sirupsen/logrus"
	"github.com/vincense/orderflow/internal/events"
	"github.com/vincense/orderflow/pkg/models"
)

var ErrNotFound = errors.New("order not found")

type Postgres struct {
	db        *sql.DB
	publisher events.Publisher
	logger    *logrus.Logger
}

// NewPostgres wires the store to its change publisher. A nil publisher is
// allowed for callers that only read (the reconciler binary).
func NewPostgres(db *sql.DB, publisher events.Publisher, logger *logrus.Logger) *Postgres {
	return &Postgres{db: db, publisher: publisher, logger: logger}
}

const headerColumns = `id, customer_name, customer_phone, customer_email, customer_address,
		total_amount, status, rejection_reason, courier_name, tracking_id, created_at`

// InsertOrder writes the order header only. It is phase one of the checkout
// sequence; the caller supplies the id because it may lack read-back rights
// on the row it just inserted.
func (s *Postgres) InsertOrder(ctx context.Context, order *models.Order) error {
	query := `
		INSERT INTO orders (` + headerColumns + `)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)
	`
	_, err := s.db.ExecContext(ctx, query,
		order.ID, order.CustomerName, order.CustomerPhone, order.CustomerEmail,
		order.CustomerAddress, order.TotalAmount, order.Status,
		nullable(order.RejectionReason), nullable(order.CourierName), nullable(order.TrackingID),
		order.CreatedAt,
	)
	if err != nil {
		return err
	}

	header := models.HeaderPatch(order)
	s.publish(events.OrderChange{
		Type:    events.ChangeInsert,
		OrderID: order.ID,
		NewRow:  &header,
	})
	return nil
}

// InsertItems writes the order items referencing an already-written header.
// All items land in one transaction, but there is no transaction spanning the
// header and the items; a failure here leaves an orphaned header for the
// sweep to find.
func (s *Postgres) InsertItems(ctx context.Context, items []models.OrderItem) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	query := `
		INSERT INTO order_items (order_id, product_id, product_name, quantity, price_at_time)
		VALUES ($1, $2, $3, $4, $5)
	`
	for _, item := range items {
		if _, err := tx.ExecContext(ctx, query,
			item.OrderID, item.ProductID, item.ProductName, item.Quantity, item.PriceAtTime,
		); err != nil {
			return err
		}
	}
	return tx.Commit()
}

// UpdateOrder applies a header patch to one row and publishes the resulting
// change. Only lifecycle columns are writable; total_amount and created_at
// are fixed at insert.
func (s *Postgres) UpdateOrder(ctx context.Context, patch models.OrderPatch) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	row := tx.QueryRowContext(ctx, `SELECT `+headerColumns+` FROM orders WHERE id = $1 FOR UPDATE`, patch.ID)
	old, err := scanHeader(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return ErrNotFound
		}
		return err
	}

	updated := *old
	patch.Apply(&updated)

	_, err = tx.ExecContext(ctx, `
		UPDATE orders
		SET status = $2, rejection_reason = $3, courier_name = $4, tracking_id = $5
		WHERE id = $1
	`, updated.ID, updated.Status,
		nullable(updated.RejectionReason), nullable(updated.CourierName), nullable(updated.TrackingID),
	)
	if err != nil {
		return err
	}
	if err := tx.Commit(); err != nil {
		return err
	}

	oldHeader := models.HeaderPatch(old)
	changed := models.DiffOrders(old, &updated)
	s.publish(events.OrderChange{
		Type:    events.ChangeUpdate,
		OrderID: patch.ID,
		NewRow:  &changed,
		OldRow:  &oldHeader,
	})
	return nil
}

// DeleteOrder removes an order and its items. Not part of the normal flow,
// but subscribers must converge when it happens, so it publishes like any
// other write.
func (s *Postgres) DeleteOrder(ctx context.Context, id string) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	if _, err := tx.ExecContext(ctx, `DELETE FROM order_items WHERE order_id = $1`, id); err != nil {
		return err
	}
	res, err := tx.ExecContext(ctx, `DELETE FROM orders WHERE id = $1`, id)
	if err != nil {
		return err
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return ErrNotFound
	}
	if err := tx.Commit(); err != nil {
		return err
	}

	s.publish(events.OrderChange{
		Type:    events.ChangeDelete,
		OrderID: id,
	})
	return nil
}

// GetOrder fetches one order with its items.
func (s *Postgres) GetOrder(ctx context.Context, id string) (*models.Order, error) {
	row := s.db.QueryRowContext(ctx, `SELECT `+headerColumns+` FROM orders WHERE id = $1`, id)
	order, err := scanHeader(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, err
	}

	items, err := s.getItems(ctx, id)
	if err != nil {
		return nil, err
	}
	order.Items = items
	return order, nil
}

// ListOrders returns all orders newest first, items embedded.
func (s *Postgres) ListOrders(ctx context.Context) ([]*models.Order, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT `+headerColumns+` FROM orders ORDER BY created_at DESC`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var orders []*models.Order
	for rows.Next() {
		order, err := scanHeader(rows)
		if err != nil {
			return nil, err
		}
		orders = append(orders, order)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	for _, order := range orders {
		items, err := s.getItems(ctx, order.ID)
		if err != nil {
			return nil, err
		}
		order.Items = items
	}
	return orders, nil
}

func (s *Postgres) getItems(ctx context.Context, orderID string) ([]models.OrderItem, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT order_id, product_id, product_name, quantity, price_at_time
		FROM order_items WHERE order_id = $1
	`, orderID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var items []models.OrderItem
	for rows.Next() {
		var item models.OrderItem
		if err := rows.Scan(&item.OrderID, &item.ProductID, &item.ProductName,
			&item.Quantity, &item.PriceAtTime); err != nil {
			return nil, err
		}
		items = append(items, item)
	}
	return items, rows.Err()
}

type rowScanner interface {
	Scan(dest ...interface{}) error
}

func scanHeader(row rowScanner) (*models.Order, error) {
	var order models.Order
	var rejection, courier, tracking sql.NullString
	err := row.Scan(
		&order.ID, &order.CustomerName, &order.CustomerPhone, &order.CustomerEmail,
		&order.CustomerAddress, &order.TotalAmount, &order.Status,
		&rejection, &courier, &tracking, &order.CreatedAt,
	)
	if err != nil {
		return nil, err
	}
	order.RejectionReason = rejection.String
	order.CourierName = courier.String
	order.TrackingID = tracking.String
	return &order, nil
}

func nullable(s string) sql.NullString {
	return sql.NullString{String: s, Valid: s != ""}
}

// publish hands a committed change to the notification channel. A publish
// failure does not fail the write that already committed; subscribers catch
// up on their next refetch.
func (s *Postgres) publish(change events.OrderChange) {
	if s.publisher == nil {
		return
	}
	if err := s.publisher.PublishChange(change); err != nil {
		s.logger.WithError(err).WithFields(logrus.Fields{
			"order_id": change.OrderID,
			"type":     change.Type,
		}).Error("Failed to publish order change")
	}
}

// Ping verifies the database connection for health checks.
func (s *Postgres) Ping(ctx context.Context) error {
	return s.db.PingContext(ctx)
}
