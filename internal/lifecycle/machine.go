// Package lifecycle enforces the order status state machine. Validation is
// complete at this layer: an out-of-order or payload-incomplete transition is
// refused here, before any store write, no matter what a caller's UI hides.
package lifecycle

import (
	"fmt"

	"github.com/vincense/orderflow/pkg/models"
)

// Payload carries the transition-specific fields. Only Rejected and Shipped
// require any of them.
type Payload struct {
	RejectionReason string `json:"rejection_reason,omitempty"`
	CourierName     string `json:"courier_name,omitempty"`
	TrackingID      string `json:"tracking_id,omitempty"`
}

// InvalidTransitionError reports a refused transition with its reason.
// Refusals never touch the store.
type InvalidTransitionError struct {
	From   models.Status
	To     models.Status
	Reason string
}

func (e *InvalidTransitionError) Error() string {
	return fmt.Sprintf("invalid transition %s -> %s: %s", e.From, e.To, e.Reason)
}

// next maps each state to the set of states one forward step away.
var next = map[models.Status][]models.Status{
	models.StatusProcessing:       {models.StatusConfirmed, models.StatusRejected},
	models.StatusConfirmed:        {models.StatusPacking},
	models.StatusPacking:          {models.StatusReadyForShipping},
	models.StatusReadyForShipping: {models.StatusShipped},
	models.StatusShipped:          {models.StatusDelivered},
	models.StatusRejected:         nil,
	models.StatusDelivered:        nil,
}

// Validate checks that from -> to is a single permitted step and that the
// payload carries what the target state demands.
func Validate(from, to models.Status, p Payload) error {
	if !from.Valid() {
		return &InvalidTransitionError{From: from, To: to, Reason: "unknown current status"}
	}
	if !to.Valid() {
		return &InvalidTransitionError{From: from, To: to, Reason: "unknown target status"}
	}
	if from.Terminal() {
		return &InvalidTransitionError{From: from, To: to, Reason: fmt.Sprintf("%s is terminal", from)}
	}

	allowed := false
	for _, s := range next[from] {
		if s == to {
			allowed = true
			break
		}
	}
	if !allowed {
		return &InvalidTransitionError{From: from, To: to, Reason: "not a permitted forward step"}
	}

	switch to {
	case models.StatusRejected:
		if p.RejectionReason == "" {
			return &InvalidTransitionError{From: from, To: to, Reason: "rejection requires a reason"}
		}
	case models.StatusShipped:
		if p.CourierName == "" || p.TrackingID == "" {
			return &InvalidTransitionError{From: from, To: to, Reason: "shipping requires courier name and tracking id"}
		}
	}
	return nil
}

// Patch renders the validated transition as the header patch the store write
// and the optimistic local view both apply. Status transitions are idempotent
// state assignments, not deltas.
func Patch(orderID string, to models.Status, p Payload) models.OrderPatch {
	status := to
	patch := models.OrderPatch{ID: orderID, Status: &status}
	switch to {
	case models.StatusRejected:
		patch.RejectionReason = &p.RejectionReason
	case models.StatusShipped:
		patch.CourierName = &p.CourierName
		patch.TrackingID = &p.TrackingID
	}
	return patch
}
