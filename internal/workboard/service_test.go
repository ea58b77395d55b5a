package workboard

import (
	"context"
	"testing"
	"time"

	miniredis "github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"

	"github.com/atelier-ops/atelier/internal/lifecycle"
)

var refDay = time.Date(2026, time.March, 10, 9, 0, 0, 0, time.UTC)

type mockRepo struct {
	rows             []QueueRow
	rowCalls         int
	counts           map[lifecycle.OrderStatus]int64
	countCalls       int
	outstanding      int64
	outstandingCalls int
}

func (m *mockRepo) ActiveGarments(ctx context.Context) ([]QueueRow, error) {
	m.rowCalls++
	return m.rows, nil
}

func (m *mockRepo) StatusCounts(ctx context.Context) (map[lifecycle.OrderStatus]int64, error) {
	m.countCalls++
	return m.counts, nil
}

func (m *mockRepo) OutstandingCents(ctx context.Context) (int64, error) {
	m.outstandingCalls++
	return m.outstanding, nil
}

func newTestService(t *testing.T, repo Repository) (*Service, func()) {
	t.Helper()
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	cache := NewCache(client, time.Minute)
	svc := NewService(repo, cache, time.UTC)
	svc.nowFn = func() time.Time { return refDay }
	return svc, func() {
		_ = client.Close()
		mr.Close()
	}
}

func civil(y int, m time.Month, d int) *lifecycle.CivilDate {
	c := lifecycle.CivilDate{Year: y, Month: m, Day: d}
	return &c
}

func floorRows() []QueueRow {
	return []QueueRow{
		{GarmentID: 6, OrderID: 6, Title: "tie", Stage: lifecycle.StageNew, ServicesTotal: 1},
		{GarmentID: 5, OrderID: 5, Title: "skirt", Stage: lifecycle.StageReady, DueDate: civil(2026, time.March, 5), ServicesDone: 2, ServicesTotal: 2},
		{GarmentID: 4, OrderID: 4, Title: "shirt", Stage: lifecycle.StageInProgress, DueDate: civil(2026, time.March, 20), ServicesDone: 1, ServicesTotal: 2},
		{GarmentID: 3, OrderID: 3, Title: "coat", Stage: lifecycle.StageNew, DueDate: civil(2026, time.March, 11), ServicesTotal: 2},
		{GarmentID: 2, OrderID: 2, Title: "suit", Stage: lifecycle.StageReady, DueDate: civil(2026, time.March, 10), ServicesDone: 1, ServicesTotal: 1},
		{GarmentID: 1, OrderID: 1, Title: "wedding dress", Stage: lifecycle.StageInProgress, DueDate: civil(2026, time.March, 8), ServicesDone: 2, ServicesTotal: 3},
	}
}

func TestQueueRanksGarments(t *testing.T) {
	repo := &mockRepo{rows: floorRows()}
	svc, cleanup := newTestService(t, repo)
	defer cleanup()

	resp, err := svc.Queue(context.Background(), 0)
	if err != nil {
		t.Fatalf("queue error: %v", err)
	}
	if got, want := resp.Today.String(), "2026-03-10"; got != want {
		t.Fatalf("expected today %s, got %s", want, got)
	}
	if len(resp.Items) != 6 {
		t.Fatalf("expected 6 items, got %d", len(resp.Items))
	}

	// Overdue work first, then today, tomorrow, dated future, finished
	// pieces past their date, undated last.
	wantOrder := []int64{1, 2, 3, 4, 5, 6}
	for i, want := range wantOrder {
		if resp.Items[i].GarmentID != want {
			t.Fatalf("position %d: expected garment %d, got %d", i, want, resp.Items[i].GarmentID)
		}
	}

	dress := resp.Items[0]
	if !dress.IsOverdue {
		t.Fatalf("expected the dress to be overdue")
	}
	if dress.Progress == nil || *dress.Progress != 66 {
		t.Fatalf("expected dress progress 66, got %v", dress.Progress)
	}
	if dress.DaysUntilDue == nil || *dress.DaysUntilDue != -2 {
		t.Fatalf("expected dress due in -2 days, got %v", dress.DaysUntilDue)
	}

	// The skirt is past its date but ready, so it is settled rather
	// than overdue.
	skirt := resp.Items[4]
	if skirt.IsOverdue {
		t.Fatalf("finished skirt must not be overdue")
	}

	tie := resp.Items[5]
	if tie.DaysUntilDue != nil {
		t.Fatalf("undated tie must have no days-until-due")
	}
}

func TestQueueCachesUntilBump(t *testing.T) {
	repo := &mockRepo{rows: floorRows()}
	svc, cleanup := newTestService(t, repo)
	defer cleanup()

	ctx := context.Background()
	if _, err := svc.Queue(ctx, 0); err != nil {
		t.Fatalf("queue error: %v", err)
	}
	if repo.rowCalls != 1 {
		t.Fatalf("expected 1 repo call, got %d", repo.rowCalls)
	}

	resp, err := svc.Queue(ctx, 2)
	if err != nil {
		t.Fatalf("queue error: %v", err)
	}
	if repo.rowCalls != 1 {
		t.Fatalf("expected cached result, repo called %d times", repo.rowCalls)
	}
	if len(resp.Items) != 2 || resp.Items[0].GarmentID != 1 || resp.Items[1].GarmentID != 2 {
		t.Fatalf("expected truncated ranking [1 2], got %+v", resp.Items)
	}

	if err := svc.cache.Bump(ctx); err != nil {
		t.Fatalf("bump failed: %v", err)
	}
	if _, err := svc.Queue(ctx, 0); err != nil {
		t.Fatalf("queue error: %v", err)
	}
	if repo.rowCalls != 2 {
		t.Fatalf("expected repo to refresh after bump, calls %d", repo.rowCalls)
	}
}

func TestStatsAggregates(t *testing.T) {
	repo := &mockRepo{
		rows: floorRows(),
		counts: map[lifecycle.OrderStatus]int64{
			lifecycle.StatusNew:        2,
			lifecycle.StatusInProgress: 3,
			lifecycle.StatusReady:      1,
			lifecycle.StatusCompleted:  5,
			lifecycle.StatusCancelled:  2,
		},
		outstanding: 12345,
	}
	svc, cleanup := newTestService(t, repo)
	defer cleanup()

	ctx := context.Background()
	stats, err := svc.Stats(ctx)
	if err != nil {
		t.Fatalf("stats error: %v", err)
	}
	if stats.ActiveOrders != 6 {
		t.Fatalf("expected 6 active orders, got %d", stats.ActiveOrders)
	}
	if stats.ReadyForPickup != 1 {
		t.Fatalf("expected 1 ready order, got %d", stats.ReadyForPickup)
	}
	if stats.OverdueGarments != 1 {
		t.Fatalf("expected 1 overdue garment, got %d", stats.OverdueGarments)
	}
	if stats.OutstandingCents != 12345 {
		t.Fatalf("expected outstanding 12345, got %d", stats.OutstandingCents)
	}
	if got, want := stats.Today.String(), "2026-03-10"; got != want {
		t.Fatalf("expected today %s, got %s", want, got)
	}

	// Second call is served from cache.
	if _, err := svc.Stats(ctx); err != nil {
		t.Fatalf("stats error: %v", err)
	}
	if repo.countCalls != 1 || repo.outstandingCalls != 1 {
		t.Fatalf("expected cached stats, repo calls %d/%d", repo.countCalls, repo.outstandingCalls)
	}
}
