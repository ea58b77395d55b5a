package payments

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/atelier-ops/atelier/internal/lifecycle"
)

// IdempotencyGuard deduplicates payment submissions by key.
type IdempotencyGuard interface {
	CheckAndInsert(ctx context.Context, key, module string) error
	Delete(ctx context.Context, key string) error
}

// idempotencyModule namespaces ledger keys in the shared key table.
const idempotencyModule = "payments"

// Service provides business logic for the payment ledger. Every refund
// is re-reconciled through the lifecycle rules before commit, so a
// ledger violating its invariants never reaches disk.
type Service struct {
	repo     Repository
	idem     IdempotencyGuard
	renderer *ReceiptRenderer
}

// NewService creates a payments service.
func NewService(repo Repository, idem IdempotencyGuard, renderer *ReceiptRenderer) *Service {
	return &Service{repo: repo, idem: idem, renderer: renderer}
}

// Record appends a ledger entry to an order. Duplicate idempotency keys
// are rejected; a missing key is generated server-side.
func (s *Service) Record(ctx context.Context, orderID int64, req RecordPaymentRequest) (*Payment, error) {
	if _, err := s.repo.GetOrderRef(ctx, orderID); err != nil {
		return nil, err
	}

	key := req.IdempotencyKey
	if key == "" {
		key = uuid.NewString()
	}
	if err := s.idem.CheckAndInsert(ctx, key, idempotencyModule); err != nil {
		return nil, err
	}

	status := lifecycle.EntryCompleted
	if req.Status != nil {
		status = *req.Status
	}
	receivedAt := time.Now()
	if req.ReceivedAt != nil {
		receivedAt = *req.ReceivedAt
	}

	var paymentID int64
	err := s.repo.WithTx(ctx, func(ctx context.Context, tx TxRepository) error {
		id, err := tx.InsertPayment(ctx, Payment{
			OrderID:     orderID,
			AmountCents: req.AmountCents,
			Status:      status,
			Method:      strings.TrimSpace(req.Method),
			Note:        strings.TrimSpace(req.Note),
			ReceivedAt:  receivedAt,
		})
		if err != nil {
			return fmt.Errorf("insert payment: %w", err)
		}
		paymentID = id
		return nil
	})
	if err != nil {
		// Free the key so the client can retry the failed submission.
		_ = s.idem.Delete(ctx, key)
		return nil, err
	}

	return s.repo.GetPayment(ctx, paymentID)
}

// Refund credits part or all of a single completed entry back to the
// client. The repository-level checks reject the obvious cases; the
// resulting ledger is then reconciled and the transaction aborts if it
// violates the financial invariants.
func (s *Service) Refund(ctx context.Context, paymentID int64, req RecordRefundRequest) (*Payment, error) {
	err := s.repo.WithTx(ctx, func(ctx context.Context, tx TxRepository) error {
		p, err := tx.LockPayment(ctx, paymentID)
		if err != nil {
			return err
		}
		if p.Status != lifecycle.EntryCompleted {
			return fmt.Errorf("%w: entry %d is %s", ErrNotRefundable, p.ID, p.Status)
		}
		remaining := p.AmountCents - p.RefundedCents
		if req.AmountCents > remaining {
			return fmt.Errorf("%w: %d > %d", ErrRefundExceedsEntry, req.AmountCents, remaining)
		}

		updates := map[string]interface{}{
			"refunded_cents": p.RefundedCents + req.AmountCents,
		}
		if note := strings.TrimSpace(req.Note); note != "" {
			updates["note"] = note
		}
		if err := tx.UpdatePayment(ctx, paymentID, updates); err != nil {
			return err
		}

		ref, err := tx.GetOrderRef(ctx, p.OrderID)
		if err != nil {
			return err
		}
		ledger, err := tx.ListByOrder(ctx, p.OrderID)
		if err != nil {
			return err
		}
		_, err = lifecycle.Reconcile(ref.TotalCents, toEntries(ledger))
		return err
	})
	if err != nil {
		return nil, err
	}
	return s.repo.GetPayment(ctx, paymentID)
}

// SetStatus marks an entry completed or failed. Flipping a failed card
// charge back to completed is allowed when the processor settles late.
func (s *Service) SetStatus(ctx context.Context, paymentID int64, status lifecycle.EntryStatus) (*Payment, error) {
	err := s.repo.WithTx(ctx, func(ctx context.Context, tx TxRepository) error {
		p, err := tx.LockPayment(ctx, paymentID)
		if err != nil {
			return err
		}
		if p.Status == status {
			return nil
		}
		return tx.UpdatePayment(ctx, paymentID, map[string]interface{}{"status": status})
	})
	if err != nil {
		return nil, err
	}
	return s.repo.GetPayment(ctx, paymentID)
}

// Get loads one ledger entry.
func (s *Service) Get(ctx context.Context, id int64) (*Payment, error) {
	return s.repo.GetPayment(ctx, id)
}

// Summary reconciles an order's ledger into its financial position.
func (s *Service) Summary(ctx context.Context, orderID int64) (*SummaryResponse, error) {
	ref, err := s.repo.GetOrderRef(ctx, orderID)
	if err != nil {
		return nil, err
	}
	ledger, err := s.repo.ListByOrder(ctx, orderID)
	if err != nil {
		return nil, err
	}
	rec, err := lifecycle.Reconcile(ref.TotalCents, toEntries(ledger))
	if err != nil {
		return nil, err
	}
	return &SummaryResponse{
		OrderID:        ref.ID,
		Number:         ref.Number,
		TotalCents:     rec.TotalCents,
		NetPaidCents:   rec.NetPaidCents,
		AmountDueCents: rec.AmountDueCents,
		Percent:        rec.Percent,
		Status:         rec.Status,
		Payments:       ledger,
	}, nil
}

// Receipt renders a plain-text receipt for an order.
func (s *Service) Receipt(ctx context.Context, orderID int64) (string, error) {
	ref, err := s.repo.GetOrderRef(ctx, orderID)
	if err != nil {
		return "", err
	}
	ledger, err := s.repo.ListByOrder(ctx, orderID)
	if err != nil {
		return "", err
	}
	rec, err := lifecycle.Reconcile(ref.TotalCents, toEntries(ledger))
	if err != nil {
		return "", err
	}
	return s.renderer.Render(ref.Number, ledger, rec), nil
}

func toEntries(ledger []Payment) []lifecycle.PaymentEntry {
	entries := make([]lifecycle.PaymentEntry, 0, len(ledger))
	for _, p := range ledger {
		entries = append(entries, lifecycle.PaymentEntry{
			ID:            p.ID,
			AmountCents:   p.AmountCents,
			RefundedCents: p.RefundedCents,
			Status:        p.Status,
		})
	}
	return entries
}
