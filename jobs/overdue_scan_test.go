package jobs

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"testing"
	"time"

	"github.com/hibiken/asynq"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/require"

	jobmetrics "github.com/atelier-ops/atelier/internal/jobs"
	"github.com/atelier-ops/atelier/internal/lifecycle"
)

var scanRefDay = time.Date(2026, time.March, 10, 2, 0, 0, 0, time.UTC)

type fakeSource struct {
	orders []ScanOrder
	err    error
}

func (f *fakeSource) ActiveOrders(ctx context.Context) ([]ScanOrder, error) {
	return f.orders, f.err
}

type fakeEnqueuer struct {
	payloads []PickupReminderPayload
	err      error
}

func (f *fakeEnqueuer) EnqueuePickupReminder(_ context.Context, p PickupReminderPayload) (*asynq.TaskInfo, error) {
	if f.err != nil {
		return nil, f.err
	}
	f.payloads = append(f.payloads, p)
	return &asynq.TaskInfo{}, nil
}

type fakeSweeper struct {
	olderThan time.Duration
	calls     int
}

func (f *fakeSweeper) Cleanup(_ context.Context, olderThan time.Duration) error {
	f.calls++
	f.olderThan = olderThan
	return nil
}

type fakeBumper struct {
	calls int
}

func (f *fakeBumper) Bump(context.Context) error {
	f.calls++
	return nil
}

func newScanJob(src scanSource, enq Enqueuer, keys keySweeper, boards boardCache) *OverdueScanJob {
	return &OverdueScanJob{
		Logger:   slog.New(slog.NewTextHandler(io.Discard, nil)),
		Metrics:  jobmetrics.NewMetrics(prometheus.NewRegistry()),
		src:      src,
		enqueuer: enq,
		keys:     keys,
		boards:   boards,
		loc:      time.UTC,
		clock:    func() time.Time { return scanRefDay },
	}
}

func civil(y int, m time.Month, d int) *lifecycle.CivilDate {
	c := lifecycle.CivilDate{Year: y, Month: m, Day: d}
	return &c
}

func doneGarment(id int64) lifecycle.Garment {
	return lifecycle.Garment{
		ID:       id,
		Stage:    lifecycle.StageReady,
		Services: []lifecycle.Service{{ID: id * 10, Done: true}},
	}
}

func scanFloor() []ScanOrder {
	return []ScanOrder{
		{
			ID: 1, Number: "ORD-202602-0004", Status: lifecycle.StatusReady,
			DueDate: civil(2026, time.March, 7), TotalCents: 10000,
			ClientName: "Mara Ilieva", ClientEmail: "mara@example.com",
			Garments: []lifecycle.Garment{doneGarment(11)},
			Ledger: []lifecycle.PaymentEntry{
				{ID: 1, AmountCents: 4000, Status: lifecycle.EntryCompleted},
			},
		},
		{
			ID: 2, Number: "ORD-202602-0009", Status: lifecycle.StatusInProgress,
			DueDate: civil(2026, time.March, 8), TotalCents: 5000,
			ClientName: "Ruth Okafor", ClientEmail: "ruth@example.com",
			Garments: []lifecycle.Garment{{
				ID:       21,
				Stage:    lifecycle.StageInProgress,
				DueDate:  civil(2026, time.March, 8),
				Services: []lifecycle.Service{{ID: 210, Done: false}},
			}},
		},
		{
			ID: 3, Number: "ORD-202603-0001", Status: lifecycle.StatusReady,
			DueDate: civil(2026, time.March, 9), TotalCents: 2000,
			ClientName: "Walk-in", ClientEmail: "",
			Garments:   []lifecycle.Garment{doneGarment(31)},
			Ledger: []lifecycle.PaymentEntry{
				{ID: 2, AmountCents: 2000, Status: lifecycle.EntryCompleted},
			},
		},
		{
			ID: 4, Number: "ORD-202603-0002", Status: lifecycle.StatusNew,
			DueDate: civil(2026, time.March, 20), TotalCents: 3000,
			ClientName: "Iris Chen", ClientEmail: "iris@example.com",
			Garments: []lifecycle.Garment{{
				ID:       41,
				Stage:    lifecycle.StageNew,
				Services: []lifecycle.Service{{ID: 410, Done: false}},
			}},
		},
	}
}

func TestOverdueScanEvaluatesFloor(t *testing.T) {
	enq := &fakeEnqueuer{}
	j := newScanJob(&fakeSource{orders: scanFloor()}, enq, nil, nil)

	today := lifecycle.CivilDate{Year: 2026, Month: time.March, Day: 10}
	report := j.evaluate(context.Background(), j.logger(), scanFloor(), today, false)

	// Order 2 is the only order with unfinished work past its date.
	require.Equal(t, 1, report.overdueOrders)
	require.Equal(t, 1, report.overdueGarments)
	// Orders 1 and 3 are finished and waiting past their date.
	require.Equal(t, 2, report.reconciled)
	require.Equal(t, 1, report.reminders)
	// Order 3 has no email on file.
	require.Equal(t, 1, report.skipped)

	require.Len(t, enq.payloads, 1)
	reminder := enq.payloads[0]
	require.Equal(t, int64(1), reminder.OrderID)
	require.Equal(t, "ORD-202602-0004", reminder.Number)
	require.Equal(t, "mara@example.com", reminder.To)
	require.Equal(t, int64(6000), reminder.AmountDueCents)
}

func TestOverdueScanHandleRunsFollowups(t *testing.T) {
	enq := &fakeEnqueuer{}
	keys := &fakeSweeper{}
	boards := &fakeBumper{}
	j := newScanJob(&fakeSource{orders: scanFloor()}, enq, keys, boards)

	task, err := NewOverdueScanTask(OverdueScanPayload{})
	require.NoError(t, err)
	require.NoError(t, j.Handle(context.Background(), task))

	require.Len(t, enq.payloads, 1)
	require.Equal(t, 1, keys.calls)
	require.Equal(t, 30*24*time.Hour, keys.olderThan)
	require.Equal(t, 1, boards.calls)
}

func TestOverdueScanDryRun(t *testing.T) {
	enq := &fakeEnqueuer{}
	keys := &fakeSweeper{}
	j := newScanJob(&fakeSource{orders: scanFloor()}, enq, keys, nil)

	task, err := NewOverdueScanTask(OverdueScanPayload{DryRun: true, RetentionDays: 7})
	require.NoError(t, err)
	require.NoError(t, j.Handle(context.Background(), task))

	require.Empty(t, enq.payloads)
	require.Equal(t, 7*24*time.Hour, keys.olderThan)
}

func TestOverdueScanBadPayloadSkipsRetry(t *testing.T) {
	j := newScanJob(&fakeSource{}, nil, nil, nil)

	task := asynq.NewTask(TaskOrdersOverdueScan, []byte("{"))
	err := j.Handle(context.Background(), task)
	require.ErrorIs(t, err, asynq.SkipRetry)
}

func TestOverdueScanSourceFailure(t *testing.T) {
	boom := errors.New("connection refused")
	j := newScanJob(&fakeSource{err: boom}, nil, nil, nil)

	task, err := NewOverdueScanTask(OverdueScanPayload{})
	require.NoError(t, err)
	require.ErrorIs(t, j.Handle(context.Background(), task), boom)
}
