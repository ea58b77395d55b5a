// Package payments manages the per-order payment ledger and its
// reconciliation into a financial position.
package payments

import (
	"time"

	"github.com/atelier-ops/atelier/internal/lifecycle"
)

// Payment is one row of an order's ledger. RefundedCents accumulates
// partial refunds against this entry and never exceeds AmountCents.
type Payment struct {
	ID            int64                 `json:"id"`
	OrderID       int64                 `json:"order_id"`
	AmountCents   int64                 `json:"amount_cents"`
	RefundedCents int64                 `json:"refunded_cents"`
	Status        lifecycle.EntryStatus `json:"status"`
	Method        string                `json:"method,omitempty"`
	Note          string                `json:"note,omitempty"`
	ReceivedAt    time.Time             `json:"received_at"`
	CreatedAt     time.Time             `json:"created_at"`
	UpdatedAt     time.Time             `json:"updated_at"`
}

// OrderRef is the slice of an order the ledger needs: its identity and
// the billable total.
type OrderRef struct {
	ID         int64
	Number     string
	TotalCents int64
}
