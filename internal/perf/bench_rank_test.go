package perf

import (
	"sort"
	"testing"
	"time"

	"github.com/atelier-ops/atelier/internal/lifecycle"
)

// Ranking runs on every uncached workboard read, so a full-floor pass
// has to stay comfortably inside the request budget.
func TestWorkboardRankingLatencyTarget(t *testing.T) {
	today := lifecycle.CivilDate{Year: 2026, Month: time.March, Day: 10}
	floor := syntheticFloor(today, 500)

	const iterations = 50
	samples := make([]time.Duration, 0, iterations)
	for i := 0; i < iterations; i++ {
		start := time.Now()
		ranked := lifecycle.SortByPriority(floor, today)
		samples = append(samples, time.Since(start))
		if len(ranked) != len(floor) {
			t.Fatalf("ranking dropped garments: got %d want %d", len(ranked), len(floor))
		}
	}

	threshold := 100 * time.Millisecond
	if p95 := percentile95(samples); p95 > threshold {
		t.Fatalf("ranking latency regression: p95=%s threshold=%s", p95, threshold)
	}
}

func syntheticFloor(today lifecycle.CivilDate, n int) []lifecycle.Garment {
	stages := []lifecycle.Stage{
		lifecycle.StageNew,
		lifecycle.StageInProgress,
		lifecycle.StageReady,
		lifecycle.StageDone,
	}
	floor := make([]lifecycle.Garment, 0, n)
	for i := 0; i < n; i++ {
		g := lifecycle.Garment{
			ID:    int64(i + 1),
			Stage: stages[i%len(stages)],
		}
		// Spread due dates from five days late to three weeks out,
		// leaving every seventh garment undated.
		if i%7 != 0 {
			due := today.AddDays(i%26 - 5)
			g.DueDate = &due
		}
		if g.Stage == lifecycle.StageInProgress {
			progress := (i * 13) % 101
			g.Progress = &progress
		}
		floor = append(floor, g)
	}
	return floor
}

func percentile95(samples []time.Duration) time.Duration {
	if len(samples) == 0 {
		return 0
	}
	sorted := append([]time.Duration(nil), samples...)
	sort.Slice(sorted, func(i, j int) bool { return sorted[i] < sorted[j] })
	index := int(float64(len(sorted)-1) * 0.95)
	if index < 0 {
		index = 0
	}
	if index >= len(sorted) {
		index = len(sorted) - 1
	}
	return sorted[index]
}
