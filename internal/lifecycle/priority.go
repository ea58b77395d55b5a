package lifecycle

import "sort"

// Priority buckets, most urgent first. Garments due in the past but fully
// completed are not overdue; they sink below pending work and above the
// undated so finished pieces never crowd out work at risk.
const (
	bucketOverdue = iota
	bucketToday
	bucketTomorrow
	bucketFuture
	bucketSettled
	bucketUndated
)

// SortByPriority returns the garments ordered by what the shop should work
// on next: overdue incomplete work first, then due today, due tomorrow,
// future dates ascending, then past-but-finished, with undated garments
// last. Within a date bucket, stage priority decides (ready > in progress
// > new > done); between two in-progress garments a supplied progress
// percentage surfaces the one closest to finished. The sort is stable and
// the input slice is not modified.
func SortByPriority(gs []Garment, today CivilDate) []Garment {
	out := make([]Garment, len(gs))
	copy(out, gs)
	sort.SliceStable(out, func(i, j int) bool {
		return priorityLess(out[i], out[j], today)
	})
	return out
}

func priorityLess(a, b Garment, today CivilDate) bool {
	ab := priorityBucket(a, today)
	bb := priorityBucket(b, today)
	if ab != bb {
		return ab < bb
	}
	if ab == bucketFuture || ab == bucketSettled {
		ad := DaysBetween(today, *a.DueDate)
		bd := DaysBetween(today, *b.DueDate)
		if ad != bd {
			return ad < bd
		}
	}
	ap := a.Stage.Priority()
	bp := b.Stage.Priority()
	if ap != bp {
		return ap > bp
	}
	if a.Stage == StageInProgress && b.Stage == StageInProgress &&
		a.Progress != nil && b.Progress != nil && *a.Progress != *b.Progress {
		return *a.Progress > *b.Progress
	}
	return false
}

func priorityBucket(g Garment, today CivilDate) int {
	if g.DueDate == nil {
		return bucketUndated
	}
	switch days := DaysBetween(today, *g.DueDate); {
	case days < 0:
		if AllServicesCompleted(g) {
			return bucketSettled
		}
		return bucketOverdue
	case days == 0:
		return bucketToday
	case days == 1:
		return bucketTomorrow
	default:
		return bucketFuture
	}
}
