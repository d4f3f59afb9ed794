package models

import (
	"time"

	"github.com/shopspring/decimal"
)

// OrderPatch is a partial order header. Nil fields were not part of the
// change and must be left alone when the patch is applied, so a patch can
// travel in a change event without clobbering locally-joined state.
type OrderPatch struct {
	ID              string           `json:"id"`
	CustomerName    *string          `json:"customer_name,omitempty"`
	CustomerPhone   *string          `json:"customer_phone,omitempty"`
	CustomerEmail   *string          `json:"customer_email,omitempty"`
	CustomerAddress *string          `json:"customer_address,omitempty"`
	TotalAmount     *decimal.Decimal `json:"total_amount,omitempty"`
	Status          *Status          `json:"status,omitempty"`
	RejectionReason *string          `json:"rejection_reason,omitempty"`
	CourierName     *string          `json:"courier_name,omitempty"`
	TrackingID      *string          `json:"tracking_id,omitempty"`
	CreatedAt       *time.Time       `json:"created_at,omitempty"`
}

// HeaderPatch captures every header field of o as a full patch.
func HeaderPatch(o *Order) OrderPatch {
	total := o.TotalAmount
	status := o.Status
	created := o.CreatedAt
	return OrderPatch{
		ID:              o.ID,
		CustomerName:    &o.CustomerName,
		CustomerPhone:   &o.CustomerPhone,
		CustomerEmail:   &o.CustomerEmail,
		CustomerAddress: &o.CustomerAddress,
		TotalAmount:     &total,
		Status:          &status,
		RejectionReason: &o.RejectionReason,
		CourierName:     &o.CourierName,
		TrackingID:      &o.TrackingID,
		CreatedAt:       &created,
	}
}

// DiffOrders returns a patch holding only the header fields that changed
// between prev and next. Items are not header state and never diffed.
func DiffOrders(prev, next *Order) OrderPatch {
	p := OrderPatch{ID: next.ID}
	if prev.CustomerName != next.CustomerName {
		p.CustomerName = &next.CustomerName
	}
	if prev.CustomerPhone != next.CustomerPhone {
		p.CustomerPhone = &next.CustomerPhone
	}
	if prev.CustomerEmail != next.CustomerEmail {
		p.CustomerEmail = &next.CustomerEmail
	}
	if prev.CustomerAddress != next.CustomerAddress {
		p.CustomerAddress = &next.CustomerAddress
	}
	if !prev.TotalAmount.Equal(next.TotalAmount) {
		total := next.TotalAmount
		p.TotalAmount = &total
	}
	if prev.Status != next.Status {
		status := next.Status
		p.Status = &status
	}
	if prev.RejectionReason != next.RejectionReason {
		p.RejectionReason = &next.RejectionReason
	}
	if prev.CourierName != next.CourierName {
		p.CourierName = &next.CourierName
	}
	if prev.TrackingID != next.TrackingID {
		p.TrackingID = &next.TrackingID
	}
	if !prev.CreatedAt.Equal(next.CreatedAt) {
		created := next.CreatedAt
		p.CreatedAt = &created
	}
	return p
}

// Apply merges the patch into o field by field. Nil fields and o.Items are
// untouched, which makes repeated application idempotent and keeps merges
// convergent per id regardless of how patches for different orders interleave.
func (p OrderPatch) Apply(o *Order) {
	if p.CustomerName != nil {
		o.CustomerName = *p.CustomerName
	}
	if p.CustomerPhone != nil {
		o.CustomerPhone = *p.CustomerPhone
	}
	if p.CustomerEmail != nil {
		o.CustomerEmail = *p.CustomerEmail
	}
	if p.CustomerAddress != nil {
		o.CustomerAddress = *p.CustomerAddress
	}
	if p.TotalAmount != nil {
		o.TotalAmount = *p.TotalAmount
	}
	if p.Status != nil {
		o.Status = *p.Status
	}
	if p.RejectionReason != nil {
		o.RejectionReason = *p.RejectionReason
	}
	if p.CourierName != nil {
		o.CourierName = *p.CourierName
	}
	if p.TrackingID != nil {
		o.TrackingID = *p.TrackingID
	}
	if p.CreatedAt != nil {
		o.CreatedAt = *p.CreatedAt
	}
}
