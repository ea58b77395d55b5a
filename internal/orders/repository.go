package orders

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgtype"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/atelier-ops/atelier/internal/lifecycle"
	"github.com/atelier-ops/atelier/internal/platform/db"
)

// Repository defines read access and the transactional entry point.
type Repository interface {
	GetOrder(ctx context.Context, id int64) (*Order, error)
	GetGarment(ctx context.Context, orderID, garmentID int64) (*Garment, error)
	List(ctx context.Context, req ListOrdersRequest) ([]ListRow, int, error)
	GenerateNumber(ctx context.Context, month string) (string, error)
	CheckClientExists(ctx context.Context, clientID int64) (bool, error)
	WithTx(ctx context.Context, fn func(context.Context, TxRepository) error) error
}

// TxRepository exposes write operations inside one transaction.
type TxRepository interface {
	LockOrder(ctx context.Context, id int64) (*Order, error)
	GetGarments(ctx context.Context, orderID int64) ([]Garment, error)
	InsertOrder(ctx context.Context, o Order) (int64, error)
	InsertGarment(ctx context.Context, g Garment) (int64, error)
	InsertService(ctx context.Context, s ServiceLine) (int64, error)
	UpdateOrder(ctx context.Context, id int64, updates map[string]interface{}) error
	UpdateGarment(ctx context.Context, id int64, updates map[string]interface{}) error
	UpdateService(ctx context.Context, id int64, updates map[string]interface{}) error
	RecalcOrderTotal(ctx context.Context, orderID int64) (int64, error)
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

const orderColumns = `id, number, client_id, status, due_date, total_cents, cancel_reason, note, created_at, updated_at`

func scanOrder(row pgx.Row) (*Order, error) {
	var o Order
	var due pgtype.Date
	err := row.Scan(
		&o.ID, &o.Number, &o.ClientID, &o.Status, &due, &o.TotalCents,
		&o.CancelReason, &o.Note, &o.CreatedAt, &o.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	o.DueDate = dateToCivil(due)
	return &o, nil
}

// GetOrder loads an order with all garments and their service rows,
// removed ones included.
func (r *repository) GetOrder(ctx context.Context, id int64) (*Order, error) {
	return getOrder(ctx, r.pool, id)
}

func getOrder(ctx context.Context, q queryer, id int64) (*Order, error) {
	query := fmt.Sprintf(`SELECT %s FROM orders WHERE id = $1`, orderColumns)
	o, err := scanOrder(q.QueryRow(ctx, query, id))
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, fmt.Errorf("%w: id %d", ErrNotFound, id)
	}
	if err != nil {
		return nil, err
	}

	o.Garments, err = loadGarments(ctx, q, id)
	if err != nil {
		return nil, err
	}
	return o, nil
}

func loadGarments(ctx context.Context, q queryer, orderID int64) ([]Garment, error) {
	query := `
		SELECT id, order_id, title, stage, due_date, event_date, note, created_at, updated_at
		FROM garments
		WHERE order_id = $1
		ORDER BY id`

	rows, err := q.Query(ctx, query, orderID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	garments := []Garment{}
	index := make(map[int64]int)
	for rows.Next() {
		var g Garment
		var due, event pgtype.Date
		if err := rows.Scan(&g.ID, &g.OrderID, &g.Title, &g.Stage, &due, &event, &g.Note, &g.CreatedAt, &g.UpdatedAt); err != nil {
			return nil, err
		}
		g.DueDate = dateToCivil(due)
		g.EventDate = dateToCivil(event)
		g.Services = []ServiceLine{}
		index[g.ID] = len(garments)
		garments = append(garments, g)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	if len(garments) == 0 {
		return garments, nil
	}

	serviceQuery := `
		SELECT s.id, s.garment_id, s.name, s.price_cents, s.done, s.removed, s.created_at, s.updated_at
		FROM garment_services s
		JOIN garments g ON g.id = s.garment_id
		WHERE g.order_id = $1
		ORDER BY s.garment_id, s.id`

	srows, err := q.Query(ctx, serviceQuery, orderID)
	if err != nil {
		return nil, err
	}
	defer srows.Close()

	for srows.Next() {
		var s ServiceLine
		if err := srows.Scan(&s.ID, &s.GarmentID, &s.Name, &s.PriceCents, &s.Done, &s.Removed, &s.CreatedAt, &s.UpdatedAt); err != nil {
			return nil, err
		}
		if i, ok := index[s.GarmentID]; ok {
			garments[i].Services = append(garments[i].Services, s)
		}
	}
	return garments, srows.Err()
}

// GetGarment loads a single garment with its services, scoped to an order.
func (r *repository) GetGarment(ctx context.Context, orderID, garmentID int64) (*Garment, error) {
	query := `
		SELECT id, order_id, title, stage, due_date, event_date, note, created_at, updated_at
		FROM garments
		WHERE id = $1 AND order_id = $2`

	var g Garment
	var due, event pgtype.Date
	err := r.pool.QueryRow(ctx, query, garmentID, orderID).Scan(
		&g.ID, &g.OrderID, &g.Title, &g.Stage, &due, &event, &g.Note, &g.CreatedAt, &g.UpdatedAt,
	)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, fmt.Errorf("%w: id %d", ErrGarmentNotFound, garmentID)
	}
	if err != nil {
		return nil, err
	}
	g.DueDate = dateToCivil(due)
	g.EventDate = dateToCivil(event)

	serviceQuery := `
		SELECT id, garment_id, name, price_cents, done, removed, created_at, updated_at
		FROM garment_services
		WHERE garment_id = $1
		ORDER BY id`

	rows, err := r.pool.Query(ctx, serviceQuery, garmentID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	g.Services = []ServiceLine{}
	for rows.Next() {
		var s ServiceLine
		if err := rows.Scan(&s.ID, &s.GarmentID, &s.Name, &s.PriceCents, &s.Done, &s.Removed, &s.CreatedAt, &s.UpdatedAt); err != nil {
			return nil, err
		}
		g.Services = append(g.Services, s)
	}
	return &g, rows.Err()
}

// List returns a page of orders with client names and garment counts.
func (r *repository) List(ctx context.Context, req ListOrdersRequest) ([]ListRow, int, error) {
	where := "WHERE 1=1"
	args := []any{}
	argPos := 1

	if req.Status != nil {
		where += fmt.Sprintf(" AND o.status = $%d", argPos)
		args = append(args, *req.Status)
		argPos++
	}
	if req.ClientID != nil {
		where += fmt.Sprintf(" AND o.client_id = $%d", argPos)
		args = append(args, *req.ClientID)
		argPos++
	}
	if req.Search != "" {
		where += fmt.Sprintf(" AND (o.number ILIKE $%d OR c.full_name ILIKE $%d)", argPos, argPos)
		args = append(args, "%"+req.Search+"%")
		argPos++
	}

	var total int
	countQuery := fmt.Sprintf(`SELECT COUNT(*) FROM orders o JOIN clients c ON c.id = o.client_id %s`, where)
	if err := r.pool.QueryRow(ctx, countQuery, args...).Scan(&total); err != nil {
		return nil, 0, err
	}

	query := fmt.Sprintf(`
		SELECT o.id, o.number, o.client_id, c.full_name, o.status, o.due_date, o.total_cents,
		       (SELECT COUNT(*) FROM garments g WHERE g.order_id = o.id) AS garment_count,
		       o.created_at
		FROM orders o
		JOIN clients c ON c.id = o.client_id
		%s
		ORDER BY o.created_at DESC, o.id DESC
		LIMIT $%d OFFSET $%d`, where, argPos, argPos+1)
	args = append(args, req.Limit, req.Offset)

	rows, err := r.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, 0, err
	}
	defer rows.Close()

	var list []ListRow
	for rows.Next() {
		var row ListRow
		var due pgtype.Date
		if err := rows.Scan(&row.ID, &row.Number, &row.ClientID, &row.ClientName, &row.Status, &due,
			&row.TotalCents, &row.GarmentCount, &row.CreatedAt); err != nil {
			return nil, 0, err
		}
		row.DueDate = dateToCivil(due)
		list = append(list, row)
	}
	return list, total, rows.Err()
}

// GenerateNumber allocates the next order number for the given YYYYMM
// month key. The sequence lives in the database so concurrent creates
// never collide.
func (r *repository) GenerateNumber(ctx context.Context, month string) (string, error) {
	var number string
	err := r.pool.QueryRow(ctx, `SELECT generate_order_number($1)`, month).Scan(&number)
	if err != nil {
		return "", fmt.Errorf("generate order number: %w", err)
	}
	return number, nil
}

// CheckClientExists reports whether a client row exists.
func (r *repository) CheckClientExists(ctx context.Context, clientID int64) (bool, error) {
	var exists bool
	err := r.pool.QueryRow(ctx, `SELECT EXISTS (SELECT 1 FROM clients WHERE id = $1)`, clientID).Scan(&exists)
	return exists, err
}

func dateToCivil(d pgtype.Date) *lifecycle.CivilDate {
	if !d.Valid {
		return nil
	}
	c := lifecycle.CivilDateOf(d.Time)
	return &c
}

func civilToDate(c *lifecycle.CivilDate) pgtype.Date {
	if c == nil {
		return pgtype.Date{}
	}
	return pgtype.Date{Time: c.Time(time.UTC), Valid: true}
}
