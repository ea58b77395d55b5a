package lifecycle

import "fmt"

// ParseError reports a date input that is not a valid YYYY-MM-DD value.
// Callers must surface it rather than coerce the field to "no date": a
// swallowed parse failure corrupts every overdue and ranking computation
// downstream.
type ParseError struct {
	Input string
}

func (e *ParseError) Error() string {
	return fmt.Sprintf("lifecycle: invalid civil date %q, want YYYY-MM-DD", e.Input)
}

// ReconciliationError reports a payment ledger violating its invariants,
// such as a negative total or an entry refunded beyond its amount. It
// signals an upstream data bug, not a user-facing condition.
type ReconciliationError struct {
	// EntryID identifies the offending ledger entry, zero when the
	// violation is on the order itself.
	EntryID int64
	Reason  string
}

func (e *ReconciliationError) Error() string {
	if e.EntryID != 0 {
		return fmt.Sprintf("lifecycle: reconcile entry %d: %s", e.EntryID, e.Reason)
	}
	return "lifecycle: reconcile: " + e.Reason
}

// TransitionError reports an order state-machine operation attempted from
// a status that does not permit it.
type TransitionError struct {
	Op     string
	Status OrderStatus
}

func (e *TransitionError) Error() string {
	return fmt.Sprintf("lifecycle: cannot %s order in status %s", e.Op, e.Status)
}
