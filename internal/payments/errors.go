package payments

import "errors"

// Domain errors for the payment ledger.
var (
	ErrNotFound      = errors.New("payments: entry not found")
	ErrOrderNotFound = errors.New("payments: order not found")

	// ErrNotRefundable indicates a refund against an entry that is not
	// completed. Only settled money can be handed back.
	ErrNotRefundable = errors.New("payments: entry is not refundable")
	// ErrRefundExceedsEntry indicates a refund larger than what remains
	// on the entry.
	ErrRefundExceedsEntry = errors.New("payments: refund exceeds remaining entry amount")
)
