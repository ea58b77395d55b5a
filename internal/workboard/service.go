package workboard

import (
	"context"
	"time"

	"golang.org/x/sync/errgroup"
	"golang.org/x/sync/singleflight"

	"github.com/atelier-ops/atelier/internal/lifecycle"
)

// Service assembles the ranked queue and shop stats.
type Service struct {
	repo  Repository
	cache *Cache
	loc   *time.Location
	group singleflight.Group

	nowFn func() time.Time
}

// NewService creates a workboard service. loc is the shop's timezone
// used to resolve today; nil falls back to UTC.
func NewService(repo Repository, cache *Cache, loc *time.Location) *Service {
	return &Service{repo: repo, cache: cache, loc: loc}
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
	return time.UTC
}

func (s *Service) today() lifecycle.CivilDate {
	return lifecycle.CivilDateOf(s.now().In(s.location()))
}

// Queue returns the work queue for today, most urgent first. limit > 0
// truncates the response; the cache always holds the full ranking.
func (s *Service) Queue(ctx context.Context, limit int) (*QueueResponse, error) {
	today := s.today()
	key, err := s.cache.BuildKey(ctx, keyQueue(today)...)
	if err != nil {
		return nil, err
	}

	v, err := s.single(ctx, key, func(ctx context.Context) (interface{}, error) {
		items := []QueueItem{}
		err := s.cache.FetchJSON(ctx, key, &items, func(ctx context.Context) (interface{}, error) {
			return s.buildQueue(ctx, today)
		})
		return items, err
	})
	if err != nil {
		return nil, err
	}

	items := v.([]QueueItem)
	if limit > 0 && limit < len(items) {
		items = items[:limit]
	}
	return &QueueResponse{Today: today, Items: items}, nil
}

// Stats returns the shop's headline numbers for today.
func (s *Service) Stats(ctx context.Context) (*Stats, error) {
	today := s.today()
	key, err := s.cache.BuildKey(ctx, keyStats(today)...)
	if err != nil {
		return nil, err
	}

	v, err := s.single(ctx, key, func(ctx context.Context) (interface{}, error) {
		var stats Stats
		err := s.cache.FetchJSON(ctx, key, &stats, func(ctx context.Context) (interface{}, error) {
			return s.buildStats(ctx, today)
		})
		return stats, err
	})
	if err != nil {
		return nil, err
	}

	stats := v.(Stats)
	return &stats, nil
}

func (s *Service) buildQueue(ctx context.Context, today lifecycle.CivilDate) ([]QueueItem, error) {
	rows, err := s.repo.ActiveGarments(ctx)
	if err != nil {
		return nil, err
	}

	byID := make(map[int64]QueueRow, len(rows))
	garments := make([]lifecycle.Garment, 0, len(rows))
	for _, row := range rows {
		byID[row.GarmentID] = row
		garments = append(garments, toLifecycleGarment(row))
	}

	ranked := lifecycle.SortByPriority(garments, today)
	items := make([]QueueItem, 0, len(ranked))
	for _, g := range ranked {
		items = append(items, toQueueItem(byID[g.ID], g, today))
	}
	return items, nil
}

func (s *Service) buildStats(ctx context.Context, today lifecycle.CivilDate) (*Stats, error) {
	var (
		counts      map[lifecycle.OrderStatus]int64
		outstanding int64
		rows        []QueueRow
	)

	g, ctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		var err error
		counts, err = s.repo.StatusCounts(ctx)
		return err
	})
	g.Go(func() error {
		var err error
		outstanding, err = s.repo.OutstandingCents(ctx)
		return err
	})
	g.Go(func() error {
		var err error
		rows, err = s.repo.ActiveGarments(ctx)
		return err
	})
	if err := g.Wait(); err != nil {
		return nil, err
	}

	var overdue int64
	for _, row := range rows {
		if lifecycle.IsGarmentOverdue(toLifecycleGarment(row), today) {
			overdue++
		}
	}

	return &Stats{
		Today:            today,
		ActiveOrders:     counts[lifecycle.StatusNew] + counts[lifecycle.StatusInProgress] + counts[lifecycle.StatusReady],
		ReadyForPickup:   counts[lifecycle.StatusReady],
		OverdueGarments:  overdue,
		OutstandingCents: outstanding,
	}, nil
}

// single collapses concurrent rebuilds of the same key into one call.
func (s *Service) single(ctx context.Context, key string, fn func(context.Context) (interface{}, error)) (interface{}, error) {
	ch := s.group.DoChan(key, func() (interface{}, error) {
		return fn(ctx)
	})
	select {
	case <-ctx.Done():
		return nil, ctx.Err()
	case res := <-ch:
		return res.Val, res.Err
	}
}

// toLifecycleGarment builds the ranking view of a row. Services stay
// nil so completion follows the stage; progress comes from the counts.
func toLifecycleGarment(row QueueRow) lifecycle.Garment {
	return lifecycle.Garment{
		ID:        row.GarmentID,
		Stage:     row.Stage,
		DueDate:   row.DueDate,
		EventDate: row.EventDate,
		Progress:  progressPercent(row),
	}
}

func progressPercent(row QueueRow) *int {
	if row.ServicesTotal == 0 {
		return nil
	}
	p := row.ServicesDone * 100 / row.ServicesTotal
	return &p
}

func toQueueItem(row QueueRow, g lifecycle.Garment, today lifecycle.CivilDate) QueueItem {
	info := lifecycle.GarmentDueInfo(g, today)
	item := QueueItem{
		GarmentID:     row.GarmentID,
		OrderID:       row.OrderID,
		OrderNumber:   row.OrderNumber,
		ClientName:    row.ClientName,
		Title:         row.Title,
		Stage:         row.Stage,
		DueDate:       row.DueDate,
		EventDate:     row.EventDate,
		IsOverdue:     info.IsOverdue,
		IsUrgent:      info.IsUrgent,
		Progress:      g.Progress,
		ServicesDone:  row.ServicesDone,
		ServicesTotal: row.ServicesTotal,
	}
	if info.HasDueDate {
		d := info.DaysUntilDue
		item.DaysUntilDue = &d
	}
	return item
}
