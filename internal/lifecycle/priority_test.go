package lifecycle

import (
	"testing"
	"time"
)

func progressPtr(p int) *int { return &p }

func garmentIDs(gs []Garment) []int64 {
	ids := make([]int64, len(gs))
	for i, g := range gs {
		ids[i] = g.ID
	}
	return ids
}

func requireOrder(t *testing.T, got []Garment, want ...int64) {
	t.Helper()
	ids := garmentIDs(got)
	if len(ids) != len(want) {
		t.Fatalf("expected %d garments, got %v", len(want), ids)
	}
	for i := range want {
		if ids[i] != want[i] {
			t.Fatalf("expected order %v, got %v", want, ids)
		}
	}
}

func TestSortByPriorityDateBuckets(t *testing.T) {
	today := CivilDate{2026, time.March, 10}

	queue := []Garment{
		{ID: 1, Stage: StageNew, DueDate: datePtr(2026, time.March, 11)},
		{ID: 2, Stage: StageReady, DueDate: datePtr(2026, time.March, 10)},
		{ID: 3, Stage: StageInProgress, DueDate: datePtr(2026, time.March, 9), Services: []Service{{ID: 1}}},
	}

	requireOrder(t, SortByPriority(queue, today), 3, 2, 1)
}

func TestSortByPriorityUndatedLast(t *testing.T) {
	today := CivilDate{2026, time.March, 10}

	queue := []Garment{
		{ID: 1, Stage: StageReady},
		{ID: 2, Stage: StageNew, DueDate: datePtr(2026, time.June, 1)},
		{ID: 3, Stage: StageInProgress},
	}

	// Stage never beats a date: the ready undated garment still trails
	// the dated one, and the undated keep their relative order.
	requireOrder(t, SortByPriority(queue, today), 2, 1, 3)
}

func TestSortByPriorityFutureDatesAscending(t *testing.T) {
	today := CivilDate{2026, time.March, 10}

	queue := []Garment{
		{ID: 1, DueDate: datePtr(2026, time.April, 2)},
		{ID: 2, DueDate: datePtr(2026, time.March, 14)},
		{ID: 3, DueDate: datePtr(2026, time.March, 20)},
	}

	requireOrder(t, SortByPriority(queue, today), 2, 3, 1)
}

func TestSortByPriorityStageBreaksDateTies(t *testing.T) {
	today := CivilDate{2026, time.March, 10}
	due := datePtr(2026, time.March, 10)

	queue := []Garment{
		{ID: 1, Stage: StageDone, DueDate: due},
		{ID: 2, Stage: StageNew, DueDate: due},
		{ID: 3, Stage: StageInProgress, DueDate: due},
		{ID: 4, Stage: StageReady, DueDate: due},
	}

	requireOrder(t, SortByPriority(queue, today), 4, 3, 2, 1)
}

func TestSortByPriorityProgressBreaksStageTies(t *testing.T) {
	today := CivilDate{2026, time.March, 10}
	due := datePtr(2026, time.March, 12)

	queue := []Garment{
		{ID: 1, Stage: StageInProgress, DueDate: due, Progress: progressPtr(20)},
		{ID: 2, Stage: StageInProgress, DueDate: due, Progress: progressPtr(80)},
		{ID: 3, Stage: StageInProgress, DueDate: due, Progress: progressPtr(50)},
	}

	// Closest to finished first, so it can be completed and handed over.
	requireOrder(t, SortByPriority(queue, today), 2, 3, 1)
}

func TestSortByPriorityStableWithoutProgress(t *testing.T) {
	today := CivilDate{2026, time.March, 10}
	due := datePtr(2026, time.March, 12)

	queue := []Garment{
		{ID: 1, Stage: StageInProgress, DueDate: due},
		{ID: 2, Stage: StageInProgress, DueDate: due},
		{ID: 3, Stage: StageInProgress, DueDate: due, Progress: progressPtr(40)},
	}

	// No comparable progress on every pair: input order is preserved.
	requireOrder(t, SortByPriority(queue, today), 1, 2, 3)
}

func TestSortByPrioritySettledGarmentsSinkBelowPendingWork(t *testing.T) {
	today := CivilDate{2026, time.March, 10}

	queue := []Garment{
		{ID: 1}, // undated
		{ID: 2, Stage: StageDone, DueDate: datePtr(2026, time.March, 1), Services: []Service{{ID: 1, Done: true}}},
		{ID: 3, Stage: StageNew, DueDate: datePtr(2026, time.April, 1)},
		{ID: 4, Stage: StageInProgress, DueDate: datePtr(2026, time.March, 5), Services: []Service{{ID: 2}}},
	}

	// The finished past-due garment is not overdue; it trails future work
	// but still precedes undated garments.
	requireOrder(t, SortByPriority(queue, today), 4, 3, 2, 1)
}

func TestSortByPrioritySettledOrderedByDate(t *testing.T) {
	today := CivilDate{2026, time.March, 10}

	queue := []Garment{
		{ID: 1, Stage: StageDone, DueDate: datePtr(2026, time.March, 8), Services: []Service{}},
		{ID: 2, Stage: StageDone, DueDate: datePtr(2026, time.February, 20), Services: []Service{}},
	}

	requireOrder(t, SortByPriority(queue, today), 2, 1)
}

func TestSortByPriorityIdempotent(t *testing.T) {
	today := CivilDate{2026, time.March, 10}

	queue := []Garment{
		{ID: 1, Stage: StageNew, DueDate: datePtr(2026, time.March, 11)},
		{ID: 2, Stage: StageReady, DueDate: datePtr(2026, time.March, 10)},
		{ID: 3, Stage: StageInProgress},
		{ID: 4, Stage: StageInProgress, DueDate: datePtr(2026, time.March, 9), Services: []Service{{ID: 1}}},
	}

	once := SortByPriority(queue, today)
	twice := SortByPriority(once, today)
	requireOrder(t, twice, garmentIDs(once)...)
}

func TestSortByPriorityDoesNotMutateInput(t *testing.T) {
	today := CivilDate{2026, time.March, 10}

	queue := []Garment{
		{ID: 1, Stage: StageNew, DueDate: datePtr(2026, time.June, 1)},
		{ID: 2, Stage: StageReady, DueDate: datePtr(2026, time.March, 9), Services: []Service{{ID: 1}}},
	}

	SortByPriority(queue, today)
	requireOrder(t, queue, 1, 2)
}
