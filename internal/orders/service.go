package orders

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/atelier-ops/atelier/internal/lifecycle"
)

// Service provides business logic for orders. All status writes go
// through the lifecycle rules; the service never sets a status by hand
// except the initial NEW on create.
type Service struct {
	repo Repository
	loc  *time.Location
	// nowFn is overridable in tests; production uses wall clock.
	nowFn func() time.Time
}

// NewService creates an order service. loc fixes the shop's civil day
// for due-date arithmetic and order numbering.
func NewService(repo Repository, loc *time.Location) *Service {
	return &Service{repo: repo, loc: loc}
}

func (s *Service) now() time.Time {
	if s.nowFn != nil {
		return s.nowFn()
	}
	return time.Now()
}

func (s *Service) location() *time.Location {
	if s.loc != nil {
		return s.loc
	}
	return time.Local
}

func (s *Service) today() lifecycle.CivilDate {
	return lifecycle.CivilDateOf(s.now().In(s.location()))
}

func monthKey(d lifecycle.CivilDate) string {
	return fmt.Sprintf("%04d%02d", d.Year, int(d.Month))
}

// Create creates an order for a client, optionally with initial garments
// and services. The order number is allocated from the shop-month
// sequence, e.g. ORD-202608-0001.
func (s *Service) Create(ctx context.Context, req CreateOrderRequest) (*Order, error) {
	exists, err := s.repo.CheckClientExists(ctx, req.ClientID)
	if err != nil {
		return nil, fmt.Errorf("check client: %w", err)
	}
	if !exists {
		return nil, fmt.Errorf("%w: id %d", ErrClientNotFound, req.ClientID)
	}

	number, err := s.repo.GenerateNumber(ctx, monthKey(s.today()))
	if err != nil {
		return nil, err
	}

	var orderID int64
	err = s.repo.WithTx(ctx, func(ctx context.Context, tx TxRepository) error {
		id, err := tx.InsertOrder(ctx, Order{
			Number:   number,
			ClientID: req.ClientID,
			Status:   lifecycle.StatusNew,
			DueDate:  req.DueDate,
			Note:     strings.TrimSpace(req.Note),
		})
		if err != nil {
			return fmt.Errorf("insert order: %w", err)
		}
		orderID = id

		hasServices := false
		for _, gr := range req.Garments {
			garmentID, err := tx.InsertGarment(ctx, Garment{
				OrderID:   orderID,
				Title:     strings.TrimSpace(gr.Title),
				Stage:     lifecycle.StageNew,
				DueDate:   gr.DueDate,
				EventDate: gr.EventDate,
				Note:      strings.TrimSpace(gr.Note),
			})
			if err != nil {
				return fmt.Errorf("insert garment: %w", err)
			}
			for _, sr := range gr.Services {
				if _, err := tx.InsertService(ctx, ServiceLine{
					GarmentID:  garmentID,
					Name:       strings.TrimSpace(sr.Name),
					PriceCents: sr.PriceCents,
				}); err != nil {
					return fmt.Errorf("insert service: %w", err)
				}
				hasServices = true
			}
		}

		if hasServices {
			if _, err := tx.RecalcOrderTotal(ctx, orderID); err != nil {
				return fmt.Errorf("recalc total: %w", err)
			}
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	return s.repo.GetOrder(ctx, orderID)
}

// Get loads an order with garments and services.
func (s *Service) Get(ctx context.Context, id int64) (*Order, error) {
	return s.repo.GetOrder(ctx, id)
}

// List returns a page of orders.
func (s *Service) List(ctx context.Context, req ListOrdersRequest) ([]ListRow, int, error) {
	if req.Limit <= 0 || req.Limit > 200 {
		req.Limit = 50
	}
	if req.Offset < 0 {
		req.Offset = 0
	}
	return s.repo.List(ctx, req)
}

// Update updates order-level fields.
func (s *Service) Update(ctx context.Context, id int64, req UpdateOrderRequest) (*Order, error) {
	existing, err := s.repo.GetOrder(ctx, id)
	if err != nil {
		return nil, err
	}

	updates := make(map[string]interface{})
	if req.DueDate != nil {
		updates["due_date"] = civilToDate(req.DueDate)
	}
	if req.Note != nil {
		updates["note"] = strings.TrimSpace(*req.Note)
	}
	if len(updates) == 0 {
		return existing, nil
	}

	err = s.repo.WithTx(ctx, func(ctx context.Context, tx TxRepository) error {
		return tx.UpdateOrder(ctx, id, updates)
	})
	if err != nil {
		return nil, err
	}
	return s.repo.GetOrder(ctx, id)
}

// AddGarment adds a garment (with optional services) to an order and
// refreshes the derived order status.
func (s *Service) AddGarment(ctx context.Context, orderID int64, req CreateGarmentRequest) (*Order, error) {
	err := s.repo.WithTx(ctx, func(ctx context.Context, tx TxRepository) error {
		order, err := tx.LockOrder(ctx, orderID)
		if err != nil {
			return err
		}

		garmentID, err := tx.InsertGarment(ctx, Garment{
			OrderID:   orderID,
			Title:     strings.TrimSpace(req.Title),
			Stage:     lifecycle.StageNew,
			DueDate:   req.DueDate,
			EventDate: req.EventDate,
			Note:      strings.TrimSpace(req.Note),
		})
		if err != nil {
			return fmt.Errorf("insert garment: %w", err)
		}
		for _, sr := range req.Services {
			if _, err := tx.InsertService(ctx, ServiceLine{
				GarmentID:  garmentID,
				Name:       strings.TrimSpace(sr.Name),
				PriceCents: sr.PriceCents,
			}); err != nil {
				return fmt.Errorf("insert service: %w", err)
			}
		}
		if len(req.Services) > 0 {
			if _, err := tx.RecalcOrderTotal(ctx, orderID); err != nil {
				return fmt.Errorf("recalc total: %w", err)
			}
		}
		return s.refreshStatus(ctx, tx, order)
	})
	if err != nil {
		return nil, err
	}
	return s.repo.GetOrder(ctx, orderID)
}

// UpdateGarment updates garment fields. Due and event dates are frozen
// once the garment's stage (after this update) is DONE. Stage changes
// refresh the derived order status.
func (s *Service) UpdateGarment(ctx context.Context, orderID, garmentID int64, req UpdateGarmentRequest) (*Garment, error) {
	if err := ValidateUpdateGarmentRequest(req); err != nil {
		return nil, err
	}

	err := s.repo.WithTx(ctx, func(ctx context.Context, tx TxRepository) error {
		order, err := tx.LockOrder(ctx, orderID)
		if err != nil {
			return err
		}
		garments, err := tx.GetGarments(ctx, orderID)
		if err != nil {
			return err
		}
		existing := findGarment(garments, garmentID)
		if existing == nil {
			return fmt.Errorf("%w: id %d", ErrGarmentNotFound, garmentID)
		}

		effectiveStage := existing.Stage
		if req.Stage != nil {
			effectiveStage = *req.Stage
		}
		if (req.DueDate != nil || req.EventDate != nil) && effectiveStage == lifecycle.StageDone {
			return fmt.Errorf("%w: id %d", ErrGarmentFinished, garmentID)
		}

		updates := make(map[string]interface{})
		if req.Title != nil {
			updates["title"] = strings.TrimSpace(*req.Title)
		}
		if req.Stage != nil {
			updates["stage"] = *req.Stage
		}
		if req.DueDate != nil {
			updates["due_date"] = civilToDate(req.DueDate)
		}
		if req.EventDate != nil {
			updates["event_date"] = civilToDate(req.EventDate)
		}
		if req.Note != nil {
			updates["note"] = strings.TrimSpace(*req.Note)
		}
		if len(updates) == 0 {
			return nil
		}
		if err := tx.UpdateGarment(ctx, garmentID, updates); err != nil {
			return err
		}

		if req.Stage != nil && *req.Stage != existing.Stage {
			return s.refreshStatus(ctx, tx, order)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return s.repo.GetGarment(ctx, orderID, garmentID)
}

// AddService adds a billable service to a garment and recomputes the
// order total.
func (s *Service) AddService(ctx context.Context, orderID, garmentID int64, req CreateServiceRequest) (*Garment, error) {
	err := s.repo.WithTx(ctx, func(ctx context.Context, tx TxRepository) error {
		if _, err := tx.LockOrder(ctx, orderID); err != nil {
			return err
		}
		garments, err := tx.GetGarments(ctx, orderID)
		if err != nil {
			return err
		}
		if findGarment(garments, garmentID) == nil {
			return fmt.Errorf("%w: id %d", ErrGarmentNotFound, garmentID)
		}
		if _, err := tx.InsertService(ctx, ServiceLine{
			GarmentID:  garmentID,
			Name:       strings.TrimSpace(req.Name),
			PriceCents: req.PriceCents,
		}); err != nil {
			return fmt.Errorf("insert service: %w", err)
		}
		_, err = tx.RecalcOrderTotal(ctx, orderID)
		return err
	})
	if err != nil {
		return nil, err
	}
	return s.repo.GetGarment(ctx, orderID, garmentID)
}

// SetServiceDone flips a service's completion flag. Removed services
// cannot be flipped.
func (s *Service) SetServiceDone(ctx context.Context, orderID, garmentID, serviceID int64, done bool) (*Garment, error) {
	err := s.repo.WithTx(ctx, func(ctx context.Context, tx TxRepository) error {
		if _, err := tx.LockOrder(ctx, orderID); err != nil {
			return err
		}
		garments, err := tx.GetGarments(ctx, orderID)
		if err != nil {
			return err
		}
		svc := findService(garments, garmentID, serviceID)
		if svc == nil || svc.Removed {
			return fmt.Errorf("%w: id %d", ErrServiceNotFound, serviceID)
		}
		if svc.Done == done {
			return nil
		}
		return tx.UpdateService(ctx, serviceID, map[string]interface{}{"done": done})
	})
	if err != nil {
		return nil, err
	}
	return s.repo.GetGarment(ctx, orderID, garmentID)
}

// RemoveService soft-removes a service: the row is kept but no longer
// counts toward completion or the order total. Removing twice is a no-op.
func (s *Service) RemoveService(ctx context.Context, orderID, garmentID, serviceID int64) (*Order, error) {
	err := s.repo.WithTx(ctx, func(ctx context.Context, tx TxRepository) error {
		if _, err := tx.LockOrder(ctx, orderID); err != nil {
			return err
		}
		garments, err := tx.GetGarments(ctx, orderID)
		if err != nil {
			return err
		}
		svc := findService(garments, garmentID, serviceID)
		if svc == nil {
			return fmt.Errorf("%w: id %d", ErrServiceNotFound, serviceID)
		}
		if svc.Removed {
			return nil
		}
		if err := tx.UpdateService(ctx, serviceID, map[string]interface{}{"removed": true}); err != nil {
			return err
		}
		_, err = tx.RecalcOrderTotal(ctx, orderID)
		return err
	})
	if err != nil {
		return nil, err
	}
	return s.repo.GetOrder(ctx, orderID)
}

// Cancel cancels an order with an optional reason. Garments, services and
// payments stay untouched; cancellation only flags the order.
func (s *Service) Cancel(ctx context.Context, id int64, reason string) (*Order, error) {
	err := s.repo.WithTx(ctx, func(ctx context.Context, tx TxRepository) error {
		order, err := tx.LockOrder(ctx, id)
		if err != nil {
			return err
		}
		next, err := lifecycle.Cancel(ToLifecycleOrder(order), strings.TrimSpace(reason))
		if err != nil {
			return err
		}
		return tx.UpdateOrder(ctx, id, map[string]interface{}{
			"status":        next.Status,
			"cancel_reason": next.CancelReason,
		})
	})
	if err != nil {
		return nil, err
	}
	return s.repo.GetOrder(ctx, id)
}

// Restore lifts a cancellation. The resulting status is recomputed from
// the garments as they stand now, not replayed from before the cancel.
func (s *Service) Restore(ctx context.Context, id int64) (*Order, error) {
	err := s.repo.WithTx(ctx, func(ctx context.Context, tx TxRepository) error {
		order, err := tx.LockOrder(ctx, id)
		if err != nil {
			return err
		}
		order.Garments, err = tx.GetGarments(ctx, id)
		if err != nil {
			return err
		}
		next, err := lifecycle.Restore(ToLifecycleOrder(order))
		if err != nil {
			return err
		}
		return tx.UpdateOrder(ctx, id, map[string]interface{}{
			"status":        next.Status,
			"cancel_reason": next.CancelReason,
		})
	})
	if err != nil {
		return nil, err
	}
	return s.repo.GetOrder(ctx, id)
}

// DueInfo classifies an order and each garment against the shop's
// current civil day.
func (s *Service) DueInfo(ctx context.Context, id int64) (*OrderDueResponse, error) {
	order, err := s.repo.GetOrder(ctx, id)
	if err != nil {
		return nil, err
	}
	resp := ToDueResponse(order, s.today())
	return &resp, nil
}

// refreshStatus re-derives the order status from garment stages. A
// cancelled order keeps its cancelled flag; derivation happens on
// restore instead.
func (s *Service) refreshStatus(ctx context.Context, tx TxRepository, order *Order) error {
	if order.Status == lifecycle.StatusCancelled {
		return nil
	}
	garments, err := tx.GetGarments(ctx, order.ID)
	if err != nil {
		return err
	}
	derived := lifecycle.DeriveStatusFromGarments(ToLifecycleGarments(garments))
	if derived == order.Status {
		return nil
	}
	return tx.UpdateOrder(ctx, order.ID, map[string]interface{}{"status": derived})
}

func findGarment(garments []Garment, id int64) *Garment {
	for i := range garments {
		if garments[i].ID == id {
			return &garments[i]
		}
	}
	return nil
}

func findService(garments []Garment, garmentID, serviceID int64) *ServiceLine {
	g := findGarment(garments, garmentID)
	if g == nil {
		return nil
	}
	for i := range g.Services {
		if g.Services[i].ID == serviceID {
			return &g.Services[i]
		}
	}
	return nil
}
