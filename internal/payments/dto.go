package payments

import (
	"time"

	"github.com/atelier-ops/atelier/internal/lifecycle"
)

// RecordPaymentRequest records a ledger entry. Entries arrive as settled
// facts; pass status PENDING for money promised but not yet seen. The
// idempotency key makes client retries safe; when absent the server
// generates one and the request is applied exactly once regardless.
type RecordPaymentRequest struct {
	AmountCents    int64                  `json:"amount_cents" validate:"required,gt=0"`
	Status         *lifecycle.EntryStatus `json:"status,omitempty" validate:"omitempty,oneof=COMPLETED PENDING"`
	Method         string                 `json:"method" validate:"max=50"`
	Note           string                 `json:"note" validate:"max=2000"`
	ReceivedAt     *time.Time             `json:"received_at,omitempty"`
	IdempotencyKey string                 `json:"idempotency_key" validate:"omitempty,uuid4"`
}

// RecordRefundRequest refunds part or all of a single ledger entry.
type RecordRefundRequest struct {
	AmountCents int64  `json:"amount_cents" validate:"required,gt=0"`
	Note        string `json:"note" validate:"max=2000"`
}

// SummaryResponse is the reconciled financial position of an order.
type SummaryResponse struct {
	OrderID        int64                   `json:"order_id"`
	Number         string                  `json:"number"`
	TotalCents     int64                   `json:"total_cents"`
	NetPaidCents   int64                   `json:"net_paid_cents"`
	AmountDueCents int64                   `json:"amount_due_cents"`
	Percent        float64                 `json:"percent"`
	Status         lifecycle.PaymentStatus `json:"status"`
	Payments       []Payment               `json:"payments"`
}
