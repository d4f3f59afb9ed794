package checkout

import "fmt"

// ValidationError blocks a submission before any write reaches the store.
type ValidationError struct {
	Field string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("checkout validation failed: %s is required", e.Field)
}

// TransientStoreError is a store write that failed cleanly: nothing was
// persisted and the caller may retry the whole submission.
type TransientStoreError struct {
	Op  string
	Err error
}

func (e *TransientStoreError) Error() string {
	return fmt.Sprintf("order store %s failed: %v", e.Op, e.Err)
}

func (e *TransientStoreError) Unwrap() error { return e.Err }

// PartialCheckoutFailure means the header committed but the items write did
// not. The header is deliberately left in place for the orphan sweep; no
// compensating delete is attempted.
type PartialCheckoutFailure struct {
	OrderID string
	Err     error
}

func (e *PartialCheckoutFailure) Error() string {
	return fmt.Sprintf("order %s: header written but items write failed: %v", e.OrderID, e.Err)
}

func (e *PartialCheckoutFailure) Unwrap() error { return e.Err }
