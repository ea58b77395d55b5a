package payments

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/atelier-ops/atelier/internal/platform/db"
)

// Repository defines read access and the transactional entry point.
type Repository interface {
	GetPayment(ctx context.Context, id int64) (*Payment, error)
	ListByOrder(ctx context.Context, orderID int64) ([]Payment, error)
	GetOrderRef(ctx context.Context, orderID int64) (*OrderRef, error)
	WithTx(ctx context.Context, fn func(context.Context, TxRepository) error) error
}

// TxRepository exposes ledger writes inside one transaction.
type TxRepository interface {
	LockPayment(ctx context.Context, id int64) (*Payment, error)
	InsertPayment(ctx context.Context, p Payment) (int64, error)
	UpdatePayment(ctx context.Context, id int64, updates map[string]interface{}) error
	ListByOrder(ctx context.Context, orderID int64) ([]Payment, error)
	GetOrderRef(ctx context.Context, orderID int64) (*OrderRef, error)
}

type queryer interface {
	Exec(context.Context, string, ...interface{}) (pgconn.CommandTag, error)
	Query(context.Context, string, ...interface{}) (pgx.Rows, error)
	QueryRow(context.Context, string, ...interface{}) pgx.Row
}

type repository struct {
	pool *pgxpool.Pool
}

// NewRepository constructs a PostgreSQL backed repository.
func NewRepository(pool *pgxpool.Pool) Repository {
	return &repository{pool: pool}
}

type txRepository struct {
	tx pgx.Tx
}

// WithTx runs fn inside a repeatable-read transaction.
func (r *repository) WithTx(ctx context.Context, fn func(context.Context, TxRepository) error) error {
	return db.WithTx(ctx, r.pool, func(tx pgx.Tx) error {
		return fn(ctx, &txRepository{tx: tx})
	})
}

const paymentColumns = `id, order_id, amount_cents, refunded_cents, status, method, note, received_at, created_at, updated_at`

func scanPayment(row pgx.Row) (*Payment, error) {
	var p Payment
	err := row.Scan(
		&p.ID, &p.OrderID, &p.AmountCents, &p.RefundedCents, &p.Status,
		&p.Method, &p.Note, &p.ReceivedAt, &p.CreatedAt, &p.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	return &p, nil
}

// GetPayment loads one ledger entry.
func (r *repository) GetPayment(ctx context.Context, id int64) (*Payment, error) {
	query := fmt.Sprintf(`SELECT %s FROM payments WHERE id = $1`, paymentColumns)
	p, err := scanPayment(r.pool.QueryRow(ctx, query, id))
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, fmt.Errorf("%w: id %d", ErrNotFound, id)
	}
	return p, err
}

// ListByOrder returns the order's ledger oldest first.
func (r *repository) ListByOrder(ctx context.Context, orderID int64) ([]Payment, error) {
	return listByOrder(ctx, r.pool, orderID)
}

// GetOrderRef loads the order identity and total the ledger reconciles
// against.
func (r *repository) GetOrderRef(ctx context.Context, orderID int64) (*OrderRef, error) {
	return getOrderRef(ctx, r.pool, orderID)
}

func listByOrder(ctx context.Context, q queryer, orderID int64) ([]Payment, error) {
	query := fmt.Sprintf(`SELECT %s FROM payments WHERE order_id = $1 ORDER BY received_at, id`, paymentColumns)
	rows, err := q.Query(ctx, query, orderID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	payments := []Payment{}
	for rows.Next() {
		var p Payment
		if err := rows.Scan(&p.ID, &p.OrderID, &p.AmountCents, &p.RefundedCents, &p.Status,
			&p.Method, &p.Note, &p.ReceivedAt, &p.CreatedAt, &p.UpdatedAt); err != nil {
			return nil, err
		}
		payments = append(payments, p)
	}
	return payments, rows.Err()
}

func getOrderRef(ctx context.Context, q queryer, orderID int64) (*OrderRef, error) {
	var ref OrderRef
	err := q.QueryRow(ctx, `SELECT id, number, total_cents FROM orders WHERE id = $1`, orderID).
		Scan(&ref.ID, &ref.Number, &ref.TotalCents)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, fmt.Errorf("%w: id %d", ErrOrderNotFound, orderID)
	}
	if err != nil {
		return nil, err
	}
	return &ref, nil
}

// LockPayment loads a ledger entry under FOR UPDATE.
func (t *txRepository) LockPayment(ctx context.Context, id int64) (*Payment, error) {
	query := fmt.Sprintf(`SELECT %s FROM payments WHERE id = $1 FOR UPDATE`, paymentColumns)
	p, err := scanPayment(t.tx.QueryRow(ctx, query, id))
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, fmt.Errorf("%w: id %d", ErrNotFound, id)
	}
	return p, err
}

// InsertPayment inserts a ledger entry.
func (t *txRepository) InsertPayment(ctx context.Context, p Payment) (int64, error) {
	query := `
		INSERT INTO payments (order_id, amount_cents, refunded_cents, status, method, note, received_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
		RETURNING id`

	var id int64
	err := t.tx.QueryRow(ctx, query,
		p.OrderID, p.AmountCents, p.RefundedCents, p.Status, p.Method, p.Note, p.ReceivedAt,
	).Scan(&id)
	return id, err
}

// UpdatePayment applies a partial column update to a ledger entry.
func (t *txRepository) UpdatePayment(ctx context.Context, id int64, updates map[string]interface{}) error {
	if len(updates) == 0 {
		return nil
	}

	var setClauses []string
	var args []interface{}
	argPos := 1

	for field, value := range updates {
		setClauses = append(setClauses, fmt.Sprintf("%s = $%d", field, argPos))
		args = append(args, value)
		argPos++
	}
	setClauses = append(setClauses, "updated_at = NOW()")
	args = append(args, id)

	query := fmt.Sprintf(`UPDATE payments SET %s WHERE id = $%d`, strings.Join(setClauses, ", "), argPos)

	tag, err := t.tx.Exec(ctx, query, args...)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("%w: id %d", ErrNotFound, id)
	}
	return nil
}

// ListByOrder returns the order's ledger inside the transaction.
func (t *txRepository) ListByOrder(ctx context.Context, orderID int64) ([]Payment, error) {
	return listByOrder(ctx, t.tx, orderID)
}

// GetOrderRef loads the order reference inside the transaction.
func (t *txRepository) GetOrderRef(ctx context.Context, orderID int64) (*OrderRef, error) {
	return getOrderRef(ctx, t.tx, orderID)
}
