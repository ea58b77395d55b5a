package jobs

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"time"

	"github.com/hibiken/asynq"
	"github.com/jackc/pgx/v5/pgtype"
	"github.com/jackc/pgx/v5/pgxpool"

	jobmetrics "github.com/atelier-ops/atelier/internal/jobs"
	"github.com/atelier-ops/atelier/internal/lifecycle"
)

var defaultJobMetrics = jobmetrics.NewMetrics(nil)

// defaultKeyRetentionDays is how long processed payment idempotency keys
// are kept before the scan sweeps them.
const defaultKeyRetentionDays = 30

// ScanOrder is one active order with everything the scan evaluates:
// garments with their service rows loaded, and the payment ledger.
type ScanOrder struct {
	ID          int64
	Number      string
	Status      lifecycle.OrderStatus
	DueDate     *lifecycle.CivilDate
	TotalCents  int64
	ClientName  string
	ClientEmail string
	Garments    []lifecycle.Garment
	Ledger      []lifecycle.PaymentEntry
}

// Enqueuer hands follow-up tasks to the queue.
type Enqueuer interface {
	EnqueuePickupReminder(ctx context.Context, payload PickupReminderPayload) (*asynq.TaskInfo, error)
}

type scanSource interface {
	ActiveOrders(ctx context.Context) ([]ScanOrder, error)
}

type keySweeper interface {
	Cleanup(ctx context.Context, olderThan time.Duration) error
}

type boardCache interface {
	Bump(ctx context.Context) error
}

// OverdueScanJob sweeps the active floor once a night: it counts overdue
// work, reconciles the ledgers of finished orders sitting past their
// date and queues pickup reminders for them, then sweeps expired
// idempotency keys and bumps the workboard cache so every process
// rebuilds against the new day.
type OverdueScanJob struct {
	Logger  *slog.Logger
	Metrics *jobmetrics.Metrics

	src      scanSource
	enqueuer Enqueuer
	keys     keySweeper
	boards   boardCache
	loc      *time.Location
	clock    func() time.Time
}

// NewOverdueScanJob initialises the overdue scan handler. keys and
// boards may be nil, disabling the corresponding follow-up step.
func NewOverdueScanJob(pool *pgxpool.Pool, logger *slog.Logger, metrics *jobmetrics.Metrics, enqueuer Enqueuer, keys keySweeper, boards boardCache, loc *time.Location) *OverdueScanJob {
	return &OverdueScanJob{
		Logger:   logger,
		Metrics:  metrics,
		src:      &pgScanSource{pool: pool},
		enqueuer: enqueuer,
		keys:     keys,
		boards:   boards,
		loc:      loc,
		clock: func() time.Time {
			return time.Now().UTC()
		},
	}
}

// Handle executes one scan run.
func (j *OverdueScanJob) Handle(ctx context.Context, t *asynq.Task) error {
	if j == nil {
		return errors.New("overdue scan: handler not configured")
	}
	var payload OverdueScanPayload
	if err := json.Unmarshal(t.Payload(), &payload); err != nil {
		return asynq.SkipRetry
	}
	if payload.RetentionDays <= 0 {
		payload.RetentionDays = defaultKeyRetentionDays
	}

	start := j.now()
	tracker := j.metrics().Track(TaskOrdersOverdueScan)
	var resultErr error
	defer func() {
		resultErr = tracker.End(resultErr)
	}()

	today := lifecycle.CivilDateOf(start.In(j.location()))
	logger := j.logger().With(slog.String("today", today.String()), slog.Bool("dry_run", payload.DryRun))
	logger.Info("starting overdue scan")

	orders, err := j.src.ActiveOrders(ctx)
	if err != nil {
		resultErr = err
		logger.Error("scan failed", slog.Any("error", err))
		return resultErr
	}

	report := j.evaluate(ctx, logger, orders, today, payload.DryRun)

	j.metrics().AddOverdue("order", report.overdueOrders)
	j.metrics().AddOverdue("garment", report.overdueGarments)
	j.metrics().AddReconciliations(report.reconciled)

	if j.keys != nil {
		if err := j.keys.Cleanup(ctx, time.Duration(payload.RetentionDays)*24*time.Hour); err != nil {
			logger.Warn("idempotency key sweep failed", slog.Any("error", err))
		}
	}
	if j.boards != nil {
		if err := j.boards.Bump(ctx); err != nil {
			logger.Warn("workboard cache bump failed", slog.Any("error", err))
		}
	}

	logger.Info("completed overdue scan",
		slog.Int("orders", len(orders)),
		slog.Int("overdue_orders", report.overdueOrders),
		slog.Int("overdue_garments", report.overdueGarments),
		slog.Int("reminders", report.reminders),
		slog.Int("skipped", report.skipped),
		slog.Duration("duration", time.Since(start)),
	)
	return resultErr
}

type scanReport struct {
	overdueOrders   int
	overdueGarments int
	reconciled      int
	reminders       int
	skipped         int
}

func (j *OverdueScanJob) evaluate(ctx context.Context, logger *slog.Logger, orders []ScanOrder, today lifecycle.CivilDate, dryRun bool) scanReport {
	var report scanReport
	for _, o := range orders {
		lo := lifecycle.Order{
			ID:         o.ID,
			Number:     o.Number,
			Status:     o.Status,
			DueDate:    o.DueDate,
			TotalCents: o.TotalCents,
			Garments:   o.Garments,
		}

		for _, g := range o.Garments {
			if lifecycle.IsGarmentOverdue(g, today) {
				report.overdueGarments++
			}
		}

		if lifecycle.IsOrderOverdue(lo, today) {
			report.overdueOrders++
			logger.Warn("order overdue",
				slog.String("number", o.Number),
				slog.String("status", string(o.Status)),
			)
		}

		// Finished orders sitting past their date get a pickup nudge
		// carrying the outstanding balance. They are not overdue in the
		// work sense, the client just has not collected yet.
		if o.Status != lifecycle.StatusReady {
			continue
		}
		due := lifecycle.EffectiveOrderDueDate(lo)
		if due == nil || !due.Before(today) {
			continue
		}
		rec, err := lifecycle.Reconcile(o.TotalCents, o.Ledger)
		if err != nil {
			logger.Error("ledger reconciliation failed",
				slog.String("number", o.Number),
				slog.Any("error", err),
			)
			continue
		}
		report.reconciled++

		if dryRun || o.ClientEmail == "" || j.enqueuer == nil {
			report.skipped++
			continue
		}
		if _, err := j.enqueuer.EnqueuePickupReminder(ctx, PickupReminderPayload{
			OrderID:        o.ID,
			Number:         o.Number,
			To:             o.ClientEmail,
			ClientName:     o.ClientName,
			AmountDueCents: rec.AmountDueCents,
		}); err != nil {
			logger.Error("enqueue pickup reminder failed",
				slog.String("number", o.Number),
				slog.Any("error", err),
			)
			continue
		}
		report.reminders++
	}
	return report
}

func (j *OverdueScanJob) logger() *slog.Logger {
	if j.Logger != nil {
		return j.Logger.With(slog.String("job", TaskOrdersOverdueScan))
	}
	return slog.Default().With(slog.String("job", TaskOrdersOverdueScan))
}

func (j *OverdueScanJob) metrics() *jobmetrics.Metrics {
	if j.Metrics != nil {
		return j.Metrics
	}
	return defaultJobMetrics
}

func (j *OverdueScanJob) now() time.Time {
	if j.clock != nil {
		return j.clock()
	}
	return time.Now().UTC()
}

func (j *OverdueScanJob) location() *time.Location {
	if j.loc != nil {
		return j.loc
	}
	return time.UTC
}

type pgScanSource struct {
	pool *pgxpool.Pool
}

// ActiveOrders loads every non-terminal order with garments, service
// rows and payment ledger attached.
func (s *pgScanSource) ActiveOrders(ctx context.Context) ([]ScanOrder, error) {
	if s.pool == nil {
		return nil, errors.New("overdue scan: pool not configured")
	}

	orders, index, err := s.loadOrders(ctx)
	if err != nil {
		return nil, err
	}
	if len(orders) == 0 {
		return orders, nil
	}
	if err := s.loadGarments(ctx, orders, index); err != nil {
		return nil, err
	}
	if err := s.loadLedgers(ctx, orders, index); err != nil {
		return nil, err
	}
	return orders, nil
}

func (s *pgScanSource) loadOrders(ctx context.Context) ([]ScanOrder, map[int64]int, error) {
	query := `
		SELECT o.id, o.number, o.status, o.due_date, o.total_cents,
		       c.full_name, COALESCE(c.email, '')
		FROM orders o
		JOIN clients c ON c.id = o.client_id
		WHERE o.status IN ($1, $2, $3)
		ORDER BY o.id`

	rows, err := s.pool.Query(ctx, query,
		lifecycle.StatusNew, lifecycle.StatusInProgress, lifecycle.StatusReady)
	if err != nil {
		return nil, nil, err
	}
	defer rows.Close()

	orders := []ScanOrder{}
	index := map[int64]int{}
	for rows.Next() {
		var (
			o   ScanOrder
			due pgtype.Date
		)
		if err := rows.Scan(&o.ID, &o.Number, &o.Status, &due, &o.TotalCents,
			&o.ClientName, &o.ClientEmail); err != nil {
			return nil, nil, err
		}
		o.DueDate = scanDate(due)
		index[o.ID] = len(orders)
		orders = append(orders, o)
	}
	return orders, index, rows.Err()
}

func (s *pgScanSource) loadGarments(ctx context.Context, orders []ScanOrder, index map[int64]int) error {
	query := `
		SELECT g.order_id, g.id, g.stage, g.due_date, s.id, s.done, s.removed
		FROM garments g
		JOIN orders o ON o.id = g.order_id
		LEFT JOIN garment_services s ON s.garment_id = g.id
		WHERE o.status IN ($1, $2, $3)
		ORDER BY g.order_id, g.id, s.id`

	rows, err := s.pool.Query(ctx, query,
		lifecycle.StatusNew, lifecycle.StatusInProgress, lifecycle.StatusReady)
	if err != nil {
		return err
	}
	defer rows.Close()

	var (
		lastGarment int64
		current     *lifecycle.Garment
		owner       int
	)
	flush := func() {
		if current != nil {
			orders[owner].Garments = append(orders[owner].Garments, *current)
			current = nil
		}
	}
	for rows.Next() {
		var (
			orderID, garmentID int64
			stage              lifecycle.Stage
			due                pgtype.Date
			serviceID          pgtype.Int8
			done, removed      pgtype.Bool
		)
		if err := rows.Scan(&orderID, &garmentID, &stage, &due, &serviceID, &done, &removed); err != nil {
			return err
		}
		if current == nil || garmentID != lastGarment {
			flush()
			idx, ok := index[orderID]
			if !ok {
				continue
			}
			owner = idx
			lastGarment = garmentID
			current = &lifecycle.Garment{
				ID:       garmentID,
				Stage:    stage,
				DueDate:  scanDate(due),
				Services: []lifecycle.Service{},
			}
		}
		if serviceID.Valid {
			current.Services = append(current.Services, lifecycle.Service{
				ID:      serviceID.Int64,
				Done:    done.Bool,
				Removed: removed.Bool,
			})
		}
	}
	flush()
	return rows.Err()
}

func (s *pgScanSource) loadLedgers(ctx context.Context, orders []ScanOrder, index map[int64]int) error {
	query := `
		SELECT p.order_id, p.id, p.amount_cents, p.refunded_cents, p.status
		FROM payments p
		JOIN orders o ON o.id = p.order_id
		WHERE o.status IN ($1, $2, $3)
		ORDER BY p.order_id, p.id`

	rows, err := s.pool.Query(ctx, query,
		lifecycle.StatusNew, lifecycle.StatusInProgress, lifecycle.StatusReady)
	if err != nil {
		return err
	}
	defer rows.Close()

	for rows.Next() {
		var (
			orderID int64
			entry   lifecycle.PaymentEntry
		)
		if err := rows.Scan(&orderID, &entry.ID, &entry.AmountCents, &entry.RefundedCents, &entry.Status); err != nil {
			return err
		}
		if idx, ok := index[orderID]; ok {
			orders[idx].Ledger = append(orders[idx].Ledger, entry)
		}
	}
	return rows.Err()
}

func scanDate(d pgtype.Date) *lifecycle.CivilDate {
	if !d.Valid {
		return nil
	}
	c := lifecycle.CivilDateOf(d.Time.In(time.UTC))
	return &c
}
