package orders

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/jackc/pgx/v5"
)

// LockOrder loads an order header under FOR UPDATE so concurrent
// transitions on the same order serialize. Garments are not loaded; use
// GetGarments when the transition needs them.
func (t *txRepository) LockOrder(ctx context.Context, id int64) (*Order, error) {
	query := fmt.Sprintf(`SELECT %s FROM orders WHERE id = $1 FOR UPDATE`, orderColumns)
	o, err := scanOrder(t.tx.QueryRow(ctx, query, id))
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, fmt.Errorf("%w: id %d", ErrNotFound, id)
	}
	if err != nil {
		return nil, err
	}
	return o, nil
}

// GetGarments loads the order's garments with services inside the
// transaction.
func (t *txRepository) GetGarments(ctx context.Context, orderID int64) ([]Garment, error) {
	return loadGarments(ctx, t.tx, orderID)
}

// InsertOrder inserts an order header.
func (t *txRepository) InsertOrder(ctx context.Context, o Order) (int64, error) {
	query := `
		INSERT INTO orders (number, client_id, status, due_date, total_cents, cancel_reason, note)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
		RETURNING id`

	var id int64
	err := t.tx.QueryRow(ctx, query,
		o.Number, o.ClientID, o.Status, civilToDate(o.DueDate), o.TotalCents, o.CancelReason, o.Note,
	).Scan(&id)
	return id, err
}

// InsertGarment inserts a garment row.
func (t *txRepository) InsertGarment(ctx context.Context, g Garment) (int64, error) {
	query := `
		INSERT INTO garments (order_id, title, stage, due_date, event_date, note)
		VALUES ($1, $2, $3, $4, $5, $6)
		RETURNING id`

	var id int64
	err := t.tx.QueryRow(ctx, query,
		g.OrderID, g.Title, g.Stage, civilToDate(g.DueDate), civilToDate(g.EventDate), g.Note,
	).Scan(&id)
	return id, err
}

// InsertService inserts a service row.
func (t *txRepository) InsertService(ctx context.Context, s ServiceLine) (int64, error) {
	query := `
		INSERT INTO garment_services (garment_id, name, price_cents, done, removed)
		VALUES ($1, $2, $3, $4, $5)
		RETURNING id`

	var id int64
	err := t.tx.QueryRow(ctx, query, s.GarmentID, s.Name, s.PriceCents, s.Done, s.Removed).Scan(&id)
	return id, err
}

// UpdateOrder applies a partial column update to an order.
func (t *txRepository) UpdateOrder(ctx context.Context, id int64, updates map[string]interface{}) error {
	return t.update(ctx, "orders", id, updates, ErrNotFound)
}

// UpdateGarment applies a partial column update to a garment.
func (t *txRepository) UpdateGarment(ctx context.Context, id int64, updates map[string]interface{}) error {
	return t.update(ctx, "garments", id, updates, ErrGarmentNotFound)
}

// UpdateService applies a partial column update to a service.
func (t *txRepository) UpdateService(ctx context.Context, id int64, updates map[string]interface{}) error {
	return t.update(ctx, "garment_services", id, updates, ErrServiceNotFound)
}

func (t *txRepository) update(ctx context.Context, table string, id int64, updates map[string]interface{}, notFound error) error {
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

	query := fmt.Sprintf(`UPDATE %s SET %s WHERE id = $%d`, table, strings.Join(setClauses, ", "), argPos)

	tag, err := t.tx.Exec(ctx, query, args...)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("%w: id %d", notFound, id)
	}
	return nil
}

// RecalcOrderTotal recomputes the order total from non-removed services
// and returns the new value.
func (t *txRepository) RecalcOrderTotal(ctx context.Context, orderID int64) (int64, error) {
	query := `
		UPDATE orders
		SET total_cents = COALESCE((
			SELECT SUM(s.price_cents)
			FROM garment_services s
			JOIN garments g ON g.id = s.garment_id
			WHERE g.order_id = orders.id AND NOT s.removed
		), 0), updated_at = NOW()
		WHERE id = $1
		RETURNING total_cents`

	var total int64
	err := t.tx.QueryRow(ctx, query, orderID).Scan(&total)
	if errors.Is(err, pgx.ErrNoRows) {
		return 0, fmt.Errorf("%w: id %d", ErrNotFound, orderID)
	}
	return total, err
}
