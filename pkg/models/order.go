package models

import (
	"time"

	"github.com/shopspring/decimal"
)

// Status is the order lifecycle state persisted in the orders table.
type Status string

const (
	StatusProcessing       Status = "Processing"
	StatusConfirmed        Status = "Confirmed"
	StatusRejected         Status = "Rejected"
	StatusPacking          Status = "Packing"
	StatusReadyForShipping Status = "ReadyForShipping"
	StatusShipped          Status = "Shipped"
	StatusDelivered        Status = "Delivered"
)

func (s Status) Valid() bool {
	switch s {
	case StatusProcessing, StatusConfirmed, StatusRejected,
		StatusPacking, StatusReadyForShipping, StatusShipped, StatusDelivered:
		return true
	}
	return false
}

// Terminal reports whether no further transition may leave s.
func (s Status) Terminal() bool {
	return s == StatusRejected || s == StatusDelivered
}

type Order struct {
	ID              string          `json:"id"`
	CustomerName    string          `json:"customer_name"`
	CustomerPhone   string          `json:"customer_phone"`
	CustomerEmail   string          `json:"customer_email"`
	CustomerAddress string          `json:"customer_address"`
	TotalAmount     decimal.Decimal `json:"total_amount"`
	Status          Status          `json:"status"`
	RejectionReason string          `json:"rejection_reason,omitempty"`
	CourierName     string          `json:"courier_name,omitempty"`
	TrackingID      string          `json:"tracking_id,omitempty"`
	CreatedAt       time.Time       `json:"created_at"`
	Items           []OrderItem     `json:"items,omitempty"`
}

type OrderItem struct {
	OrderID     string          `json:"order_id"`
	ProductID   string          `json:"product_id"`
	ProductName string          `json:"product_name"`
	Quantity    int             `json:"quantity"`
	PriceAtTime decimal.Decimal `json:"price_at_time"`
}

type OrderResponse struct {
	Success bool   `json:"success"`
	Message string `json:"message"`
	Order   *Order `json:"order,omitempty"`
}
