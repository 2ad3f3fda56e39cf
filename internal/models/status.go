package models

// DispatchStatus is the lifecycle state of a ledger row.
type DispatchStatus string

// Ledger statuses. DELIVERED is reserved for delivery receipts and is never set
// by the dispatch pipeline.
const (
	StatusPending   DispatchStatus = "PENDING"
	StatusSent      DispatchStatus = "SENT"
	StatusDelivered DispatchStatus = "DELIVERED"
	StatusFailed    DispatchStatus = "FAILED"
)

// Valid reports whether s is a known status.
func (s DispatchStatus) Valid() bool {
	switch s {
	case StatusPending, StatusSent, StatusDelivered, StatusFailed:
		return true
	}
	return false
}

// CanTransition reports whether moving from s to next is allowed. Re-applying
// the current status is accepted so redelivered queue messages stay harmless.
func (s DispatchStatus) CanTransition(next DispatchStatus) bool {
	if s == next {
		return true
	}
	if s != StatusPending {
		return false
	}
	return next == StatusSent || next == StatusFailed
}
