package workboard

import (
	"context"
	"time"

	"github.com/jackc/pgx/v5/pgtype"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/atelier-ops/atelier/internal/lifecycle"
)

// Repository provides the storage reads behind the workboard.
type Repository interface {
	ActiveGarments(ctx context.Context) ([]QueueRow, error)
	StatusCounts(ctx context.Context) (map[lifecycle.OrderStatus]int64, error)
	OutstandingCents(ctx context.Context) (int64, error)
}

type repository struct {
	pool *pgxpool.Pool
}

// NewRepository constructs a PostgreSQL backed repository.
func NewRepository(pool *pgxpool.Pool) Repository {
	return &repository{pool: pool}
}

// ActiveGarments loads every garment of an order still on the floor,
// with its non-removed service counts pre-aggregated.
func (r *repository) ActiveGarments(ctx context.Context) ([]QueueRow, error) {
	query := `
		SELECT g.id, g.order_id, o.number, c.full_name, g.title, g.stage,
		       g.due_date, g.event_date,
		       COUNT(s.id) FILTER (WHERE NOT s.removed AND s.done) AS services_done,
		       COUNT(s.id) FILTER (WHERE NOT s.removed) AS services_total
		FROM garments g
		JOIN orders o ON o.id = g.order_id
		JOIN clients c ON c.id = o.client_id
		LEFT JOIN garment_services s ON s.garment_id = g.id
		WHERE o.status IN ($1, $2, $3)
		GROUP BY g.id, o.number, c.full_name
		ORDER BY g.id`

	rows, err := r.pool.Query(ctx, query,
		lifecycle.StatusNew, lifecycle.StatusInProgress, lifecycle.StatusReady)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := []QueueRow{}
	for rows.Next() {
		var (
			row      QueueRow
			due, evt pgtype.Date
		)
		if err := rows.Scan(
			&row.GarmentID, &row.OrderID, &row.OrderNumber, &row.ClientName,
			&row.Title, &row.Stage, &due, &evt,
			&row.ServicesDone, &row.ServicesTotal,
		); err != nil {
			return nil, err
		}
		row.DueDate = dateToCivil(due)
		row.EventDate = dateToCivil(evt)
		out = append(out, row)
	}
	return out, rows.Err()
}

// StatusCounts counts orders per status.
func (r *repository) StatusCounts(ctx context.Context) (map[lifecycle.OrderStatus]int64, error) {
	rows, err := r.pool.Query(ctx, `SELECT status, COUNT(*) FROM orders GROUP BY status`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	counts := map[lifecycle.OrderStatus]int64{}
	for rows.Next() {
		var (
			status lifecycle.OrderStatus
			n      int64
		)
		if err := rows.Scan(&status, &n); err != nil {
			return nil, err
		}
		counts[status] = n
	}
	return counts, rows.Err()
}

// OutstandingCents sums total minus net completed payments over every
// non-cancelled order. Overpaid orders contribute negatively.
func (r *repository) OutstandingCents(ctx context.Context) (int64, error) {
	query := `
		SELECT COALESCE(SUM(o.total_cents - COALESCE(paid.net, 0)), 0)
		FROM orders o
		LEFT JOIN (
			SELECT order_id, SUM(amount_cents - refunded_cents) AS net
			FROM payments
			WHERE status = $1
			GROUP BY order_id
		) paid ON paid.order_id = o.id
		WHERE o.status <> $2`

	var cents int64
	err := r.pool.QueryRow(ctx, query, lifecycle.EntryCompleted, lifecycle.StatusCancelled).Scan(&cents)
	return cents, err
}

func dateToCivil(d pgtype.Date) *lifecycle.CivilDate {
	if !d.Valid {
		return nil
	}
	c := lifecycle.CivilDateOf(d.Time.In(time.UTC))
	return &c
}
