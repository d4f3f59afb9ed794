package store

import "database/sql"

// EnsureSchema creates the order tables if they do not exist yet. Both
// services run it at startup so either can come up first.
func EnsureSchema(db *sql.DB) error {
	queries := []string{
		`CREATE TABLE IF NOT EXISTS orders (
			id VARCHAR(255) PRIMARY KEY,
			customer_name VARCHAR(255) NOT NULL,
			customer_phone VARCHAR(64) NOT NULL,
			customer_email VARCHAR(255) NOT NULL,
			customer_address TEXT NOT NULL,
			total_amount DECIMAL(12,2) NOT NULL,
			status VARCHAR(32) NOT NULL,
			rejection_reason TEXT,
			courier_name VARCHAR(255),
			tracking_id VARCHAR(255),
			created_at TIMESTAMP NOT NULL
		)`,
		`CREATE TABLE IF NOT EXISTS order_items (
			id SERIAL PRIMARY KEY,
			order_id VARCHAR(255) NOT NULL REFERENCES orders(id),
			product_id VARCHAR(255) NOT NULL,
			product_name VARCHAR(255) NOT NULL,
			quantity INTEGER NOT NULL CHECK (quantity > 0),
			price_at_time DECIMAL(12,2) NOT NULL
		)`,
		`CREATE INDEX IF NOT EXISTS idx_orders_created_at ON orders(created_at)`,
		`CREATE INDEX IF NOT EXISTS idx_order_items_order_id ON order_items(order_id)`,
	}

	for _, query := range queries {
		if _, err := db.Exec(query); err != nil {
			return err
		}
	}
	return nil
}
