package lifecycle

// AllServicesCompleted reports whether a garment's billable work is fully
// done. Removed services are soft-deleted and excluded entirely; they are
// not counted as incomplete. A garment whose remaining set is empty has
// nothing left to do and counts as complete.
//
// When the caller supplied no service slice at all (nil, as opposed to a
// loaded-but-empty one), the stage is authoritative: ReadyForPickup and
// Done garments are complete, everything else is not.
func AllServicesCompleted(g Garment) bool {
	if g.Services == nil {
		return g.Stage == StageReady || g.Stage == StageDone
	}
	for _, s := range g.Services {
		if s.Removed {
			continue
		}
		if !s.Done {
			return false
		}
	}
	return true
}

// ServiceCounts returns how many non-removed services are done and how
// many exist in total, for progress display.
func ServiceCounts(g Garment) (done, total int) {
	for _, s := range g.Services {
		if s.Removed {
			continue
		}
		total++
		if s.Done {
			done++
		}
	}
	return done, total
}
