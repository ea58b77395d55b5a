package payments

import (
	"context"
	"errors"
	"sort"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/atelier-ops/atelier/internal/lifecycle"
	"github.com/atelier-ops/atelier/internal/shared"
)

type memoryRepo struct {
	orders      map[int64]*OrderRef
	payments    map[int64]*Payment
	nextID      int64
	insertErr   error
	updateCalls int
}

func newMemoryRepo() *memoryRepo {
	return &memoryRepo{
		orders:   map[int64]*OrderRef{},
		payments: map[int64]*Payment{},
	}
}

func (r *memoryRepo) addOrder(id int64, number string, totalCents int64) {
	r.orders[id] = &OrderRef{ID: id, Number: number, TotalCents: totalCents}
}

func (r *memoryRepo) GetPayment(_ context.Context, id int64) (*Payment, error) {
	p, ok := r.payments[id]
	if !ok {
		return nil, ErrNotFound
	}
	cp := *p
	return &cp, nil
}

func (r *memoryRepo) ListByOrder(_ context.Context, orderID int64) ([]Payment, error) {
	out := []Payment{}
	for _, p := range r.payments {
		if p.OrderID == orderID {
			out = append(out, *p)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

func (r *memoryRepo) GetOrderRef(_ context.Context, orderID int64) (*OrderRef, error) {
	ref, ok := r.orders[orderID]
	if !ok {
		return nil, ErrOrderNotFound
	}
	cp := *ref
	return &cp, nil
}

func (r *memoryRepo) WithTx(ctx context.Context, fn func(context.Context, TxRepository) error) error {
	return fn(ctx, &memoryTx{r: r})
}

type memoryTx struct {
	r *memoryRepo
}

func (t *memoryTx) LockPayment(ctx context.Context, id int64) (*Payment, error) {
	return t.r.GetPayment(ctx, id)
}

func (t *memoryTx) InsertPayment(_ context.Context, p Payment) (int64, error) {
	if t.r.insertErr != nil {
		return 0, t.r.insertErr
	}
	t.r.nextID++
	p.ID = t.r.nextID
	now := time.Now()
	p.CreatedAt = now
	p.UpdatedAt = now
	cp := p
	t.r.payments[p.ID] = &cp
	return p.ID, nil
}

func (t *memoryTx) UpdatePayment(_ context.Context, id int64, updates map[string]interface{}) error {
	p, ok := t.r.payments[id]
	if !ok {
		return ErrNotFound
	}
	t.r.updateCalls++
	for field, value := range updates {
		switch field {
		case "refunded_cents":
			p.RefundedCents = value.(int64)
		case "status":
			p.Status = value.(lifecycle.EntryStatus)
		case "note":
			p.Note = value.(string)
		}
	}
	return nil
}

func (t *memoryTx) ListByOrder(ctx context.Context, orderID int64) ([]Payment, error) {
	return t.r.ListByOrder(ctx, orderID)
}

func (t *memoryTx) GetOrderRef(ctx context.Context, orderID int64) (*OrderRef, error) {
	return t.r.GetOrderRef(ctx, orderID)
}

type memoryGuard struct {
	keys map[string]string
}

func newMemoryGuard() *memoryGuard {
	return &memoryGuard{keys: map[string]string{}}
}

func (g *memoryGuard) CheckAndInsert(_ context.Context, key, module string) error {
	if _, ok := g.keys[key]; ok {
		return shared.ErrIdempotencyConflict
	}
	g.keys[key] = module
	return nil
}

func (g *memoryGuard) Delete(_ context.Context, key string) error {
	delete(g.keys, key)
	return nil
}

func newTestService(t *testing.T, repo *memoryRepo) (*Service, *memoryGuard) {
	t.Helper()
	renderer, err := NewReceiptRenderer("USD")
	require.NoError(t, err)
	guard := newMemoryGuard()
	return NewService(repo, guard, renderer), guard
}

func TestRecordPaymentDefaults(t *testing.T) {
	repo := newMemoryRepo()
	repo.addOrder(1, "ORD-202603-0001", 10000)
	svc, guard := newTestService(t, repo)

	p, err := svc.Record(context.Background(), 1, RecordPaymentRequest{
		AmountCents: 4000,
		Method:      "  cash ",
	})
	require.NoError(t, err)
	require.Equal(t, int64(4000), p.AmountCents)
	require.Equal(t, int64(0), p.RefundedCents)
	require.Equal(t, lifecycle.EntryCompleted, p.Status)
	require.Equal(t, "cash", p.Method)
	require.False(t, p.ReceivedAt.IsZero())
	require.Len(t, guard.keys, 1)
}

func TestRecordPaymentExplicitStatusAndDate(t *testing.T) {
	repo := newMemoryRepo()
	repo.addOrder(1, "ORD-202603-0001", 10000)
	svc, _ := newTestService(t, repo)

	pending := lifecycle.EntryPending
	at := time.Date(2026, time.March, 5, 10, 0, 0, 0, time.UTC)
	p, err := svc.Record(context.Background(), 1, RecordPaymentRequest{
		AmountCents: 2500,
		Status:      &pending,
		ReceivedAt:  &at,
	})
	require.NoError(t, err)
	require.Equal(t, lifecycle.EntryPending, p.Status)
	require.True(t, p.ReceivedAt.Equal(at))
}

func TestRecordPaymentDuplicateKey(t *testing.T) {
	repo := newMemoryRepo()
	repo.addOrder(1, "ORD-202603-0001", 10000)
	svc, _ := newTestService(t, repo)

	req := RecordPaymentRequest{
		AmountCents:    1000,
		IdempotencyKey: "8b54f3a2-91cc-4f86-b95e-0d41f1a6c2a7",
	}
	_, err := svc.Record(context.Background(), 1, req)
	require.NoError(t, err)

	_, err = svc.Record(context.Background(), 1, req)
	require.ErrorIs(t, err, shared.ErrIdempotencyConflict)
	require.Len(t, repo.payments, 1)
}

func TestRecordPaymentFreesKeyOnFailure(t *testing.T) {
	repo := newMemoryRepo()
	repo.addOrder(1, "ORD-202603-0001", 10000)
	repo.insertErr = errors.New("connection reset")
	svc, guard := newTestService(t, repo)

	req := RecordPaymentRequest{
		AmountCents:    1000,
		IdempotencyKey: "8b54f3a2-91cc-4f86-b95e-0d41f1a6c2a7",
	}
	_, err := svc.Record(context.Background(), 1, req)
	require.Error(t, err)
	require.Empty(t, guard.keys)

	// The same key must be usable again once the failure clears.
	repo.insertErr = nil
	_, err = svc.Record(context.Background(), 1, req)
	require.NoError(t, err)
}

func TestRecordPaymentUnknownOrder(t *testing.T) {
	repo := newMemoryRepo()
	svc, guard := newTestService(t, repo)

	_, err := svc.Record(context.Background(), 9, RecordPaymentRequest{AmountCents: 1000})
	require.ErrorIs(t, err, ErrOrderNotFound)
	require.Empty(t, guard.keys)
}

func TestRefundPartialThenFull(t *testing.T) {
	repo := newMemoryRepo()
	repo.addOrder(1, "ORD-202603-0001", 5000)
	svc, _ := newTestService(t, repo)

	p, err := svc.Record(context.Background(), 1, RecordPaymentRequest{AmountCents: 5000})
	require.NoError(t, err)

	p, err = svc.Refund(context.Background(), p.ID, RecordRefundRequest{AmountCents: 2000})
	require.NoError(t, err)
	require.Equal(t, int64(2000), p.RefundedCents)

	p, err = svc.Refund(context.Background(), p.ID, RecordRefundRequest{
		AmountCents: 3000,
		Note:        "client cancelled the fitting",
	})
	require.NoError(t, err)
	require.Equal(t, int64(5000), p.RefundedCents)
	require.Equal(t, "client cancelled the fitting", p.Note)

	_, err = svc.Refund(context.Background(), p.ID, RecordRefundRequest{AmountCents: 1})
	require.ErrorIs(t, err, ErrRefundExceedsEntry)
}

func TestRefundRejectsNonCompleted(t *testing.T) {
	repo := newMemoryRepo()
	repo.addOrder(1, "ORD-202603-0001", 5000)
	svc, _ := newTestService(t, repo)

	pending := lifecycle.EntryPending
	p, err := svc.Record(context.Background(), 1, RecordPaymentRequest{
		AmountCents: 5000,
		Status:      &pending,
	})
	require.NoError(t, err)

	_, err = svc.Refund(context.Background(), p.ID, RecordRefundRequest{AmountCents: 100})
	require.ErrorIs(t, err, ErrNotRefundable)
}

func TestRefundUnknownEntry(t *testing.T) {
	repo := newMemoryRepo()
	svc, _ := newTestService(t, repo)

	_, err := svc.Refund(context.Background(), 42, RecordRefundRequest{AmountCents: 100})
	require.ErrorIs(t, err, ErrNotFound)
}

func TestSetStatusFlipAndNoop(t *testing.T) {
	repo := newMemoryRepo()
	repo.addOrder(1, "ORD-202603-0001", 5000)
	svc, _ := newTestService(t, repo)

	pending := lifecycle.EntryPending
	p, err := svc.Record(context.Background(), 1, RecordPaymentRequest{
		AmountCents: 5000,
		Status:      &pending,
	})
	require.NoError(t, err)

	p, err = svc.SetStatus(context.Background(), p.ID, lifecycle.EntryCompleted)
	require.NoError(t, err)
	require.Equal(t, lifecycle.EntryCompleted, p.Status)
	calls := repo.updateCalls

	_, err = svc.SetStatus(context.Background(), p.ID, lifecycle.EntryCompleted)
	require.NoError(t, err)
	require.Equal(t, calls, repo.updateCalls)
}

func TestSummaryTracksLedger(t *testing.T) {
	repo := newMemoryRepo()
	repo.addOrder(1, "ORD-202603-0001", 10000)
	svc, _ := newTestService(t, repo)
	ctx := context.Background()

	sum, err := svc.Summary(ctx, 1)
	require.NoError(t, err)
	require.Equal(t, lifecycle.PaymentUnpaid, sum.Status)
	require.Equal(t, int64(10000), sum.AmountDueCents)
	require.Empty(t, sum.Payments)

	_, err = svc.Record(ctx, 1, RecordPaymentRequest{AmountCents: 4000})
	require.NoError(t, err)
	pending := lifecycle.EntryPending
	_, err = svc.Record(ctx, 1, RecordPaymentRequest{AmountCents: 3000, Status: &pending})
	require.NoError(t, err)

	sum, err = svc.Summary(ctx, 1)
	require.NoError(t, err)
	require.Equal(t, lifecycle.PaymentPartial, sum.Status)
	require.Equal(t, int64(4000), sum.NetPaidCents)
	require.Equal(t, int64(6000), sum.AmountDueCents)
	require.InDelta(t, 40, sum.Percent, 0.001)
	require.Len(t, sum.Payments, 2)

	_, err = svc.Record(ctx, 1, RecordPaymentRequest{AmountCents: 6000})
	require.NoError(t, err)
	sum, err = svc.Summary(ctx, 1)
	require.NoError(t, err)
	require.Equal(t, lifecycle.PaymentPaid, sum.Status)
	require.Equal(t, int64(0), sum.AmountDueCents)

	_, err = svc.Record(ctx, 1, RecordPaymentRequest{AmountCents: 500})
	require.NoError(t, err)
	sum, err = svc.Summary(ctx, 1)
	require.NoError(t, err)
	require.Equal(t, lifecycle.PaymentOverpaid, sum.Status)
	require.Equal(t, int64(-500), sum.AmountDueCents)
}

func TestSummaryUnknownOrder(t *testing.T) {
	repo := newMemoryRepo()
	svc, _ := newTestService(t, repo)

	_, err := svc.Summary(context.Background(), 9)
	require.ErrorIs(t, err, ErrOrderNotFound)
}

func TestReceiptRendersLedger(t *testing.T) {
	repo := newMemoryRepo()
	repo.addOrder(1, "ORD-202603-0001", 7500)
	svc, _ := newTestService(t, repo)
	ctx := context.Background()

	first := time.Date(2026, time.March, 2, 11, 0, 0, 0, time.UTC)
	second := time.Date(2026, time.March, 8, 16, 30, 0, 0, 0, time.UTC)
	_, err := svc.Record(ctx, 1, RecordPaymentRequest{AmountCents: 5000, Method: "cash", ReceivedAt: &first})
	require.NoError(t, err)
	p, err := svc.Record(ctx, 1, RecordPaymentRequest{AmountCents: 2500, Method: "card", ReceivedAt: &second})
	require.NoError(t, err)
	_, err = svc.Refund(ctx, p.ID, RecordRefundRequest{AmountCents: 500})
	require.NoError(t, err)

	text, err := svc.Receipt(ctx, 1)
	require.NoError(t, err)
	require.Contains(t, text, "Order ORD-202603-0001")
	require.Contains(t, text, "2026-03-02")
	require.Contains(t, text, "cash")
	require.Contains(t, text, "50.00")
	require.Contains(t, text, "refunded")
	require.Contains(t, text, "Amount due")
	require.Contains(t, text, string(lifecycle.PaymentPartial))
}
