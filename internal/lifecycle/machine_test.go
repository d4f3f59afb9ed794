package lifecycle

import (
	"errors"
	"testing"

	"github.com/vincense/orderflow/pkg/models"
)

func TestValidateForwardChain(t *testing.T) {
	steps := []struct {
		from models.Status
		to   models.Status
		p    Payload
	}{
		{models.StatusProcessing, models.StatusConfirmed, Payload{}},
		{models.StatusConfirmed, models.StatusPacking, Payload{}},
		{models.StatusPacking, models.StatusReadyForShipping, Payload{}},
		{models.StatusReadyForShipping, models.StatusShipped, Payload{CourierName: "BlueDart", TrackingID: "BD123"}},
		{models.StatusShipped, models.StatusDelivered, Payload{}},
		{models.StatusProcessing, models.StatusRejected, Payload{RejectionReason: "out of stock"}},
	}

	for _, s := range steps {
		if err := Validate(s.from, s.to, s.p); err != nil {
			t.Errorf("Validate(%s, %s) = %v, want nil", s.from, s.to, err)
		}
	}
}

func TestValidateRefusesSkippedSteps(t *testing.T) {
	cases := []struct {
		from models.Status
		to   models.Status
	}{
		{models.StatusProcessing, models.StatusReadyForShipping},
		{models.StatusProcessing, models.StatusPacking},
		{models.StatusProcessing, models.StatusShipped},
		{models.StatusProcessing, models.StatusDelivered},
		{models.StatusConfirmed, models.StatusShipped},
		{models.StatusPacking, models.StatusDelivered},
	}

	for _, c := range cases {
		err := Validate(c.from, c.to, Payload{CourierName: "x", TrackingID: "y", RejectionReason: "z"})
		if err == nil {
			t.Errorf("Validate(%s, %s) accepted a skipped step", c.from, c.to)
			continue
		}
		var invalid *InvalidTransitionError
		if !errors.As(err, &invalid) {
			t.Errorf("Validate(%s, %s) = %T, want *InvalidTransitionError", c.from, c.to, err)
		}
	}
}

func TestValidateRefusesBackwardSteps(t *testing.T) {
	cases := []struct {
		from models.Status
		to   models.Status
	}{
		{models.StatusConfirmed, models.StatusProcessing},
		{models.StatusPacking, models.StatusConfirmed},
		{models.StatusShipped, models.StatusPacking},
	}

	for _, c := range cases {
		if Validate(c.from, c.to, Payload{}) == nil {
			t.Errorf("Validate(%s, %s) accepted a backward step", c.from, c.to)
		}
	}
}

func TestValidateTerminalStates(t *testing.T) {
	for _, from := range []models.Status{models.StatusRejected, models.StatusDelivered} {
		for _, to := range []models.Status{models.StatusProcessing, models.StatusConfirmed, models.StatusShipped} {
			if Validate(from, to, Payload{CourierName: "x", TrackingID: "y"}) == nil {
				t.Errorf("Validate(%s, %s) accepted a transition out of a terminal state", from, to)
			}
		}
	}
}

func TestValidateRejectionRequiresReason(t *testing.T) {
	if err := Validate(models.StatusProcessing, models.StatusRejected, Payload{}); err == nil {
		t.Error("rejection with empty reason was accepted")
	}
	if err := Validate(models.StatusProcessing, models.StatusRejected, Payload{RejectionReason: "damaged stock"}); err != nil {
		t.Errorf("rejection with reason refused: %v", err)
	}
}

func TestValidateShippingRequiresCourierAndTracking(t *testing.T) {
	cases := []Payload{
		{},
		{CourierName: "BlueDart"},
		{TrackingID: "BD123"},
	}
	for _, p := range cases {
		if Validate(models.StatusReadyForShipping, models.StatusShipped, p) == nil {
			t.Errorf("shipping accepted with payload %+v", p)
		}
	}

	if err := Validate(models.StatusReadyForShipping, models.StatusShipped,
		Payload{CourierName: "BlueDart", TrackingID: "BD123"}); err != nil {
		t.Errorf("shipping with full payload refused: %v", err)
	}
}

func TestValidateUnknownStatuses(t *testing.T) {
	if Validate("Bogus", models.StatusConfirmed, Payload{}) == nil {
		t.Error("unknown current status accepted")
	}
	if Validate(models.StatusProcessing, "Bogus", Payload{}) == nil {
		t.Error("unknown target status accepted")
	}
}

func TestPatchCarriesTransitionPayload(t *testing.T) {
	p := Patch("o1", models.StatusShipped, Payload{CourierName: "BlueDart", TrackingID: "BD123"})
	if p.ID != "o1" || p.Status == nil || *p.Status != models.StatusShipped {
		t.Fatalf("patch = %+v", p)
	}
	if p.CourierName == nil || *p.CourierName != "BlueDart" {
		t.Error("courier name missing from shipped patch")
	}
	if p.TrackingID == nil || *p.TrackingID != "BD123" {
		t.Error("tracking id missing from shipped patch")
	}
	if p.RejectionReason != nil {
		t.Error("shipped patch must not carry a rejection reason")
	}

	r := Patch("o2", models.StatusRejected, Payload{RejectionReason: "address unreachable"})
	if r.RejectionReason == nil || *r.RejectionReason != "address unreachable" {
		t.Error("rejection reason missing from rejected patch")
	}
	if r.CourierName != nil || r.TrackingID != nil {
		t.Error("rejected patch must not carry shipping fields")
	}

	c := Patch("o3", models.StatusConfirmed, Payload{})
	if c.CourierName != nil || c.TrackingID != nil || c.RejectionReason != nil {
		t.Error("plain forward step patch must carry only the status")
	}
	if c.TotalAmount != nil {
		t.Error("transition patch must never touch total_amount")
	}
}
