package lifecycle

// Cancel flags an order as cancelled with an optional reason. Legal from
// any status except Completed and Cancelled. Garments, services and
// payments are untouched: cancellation flags the order, it does not tear
// it down, and it is reversible via Restore.
func Cancel(o Order, reason string) (Order, error) {
	if !o.Status.CanCancel() {
		return Order{}, &TransitionError{Op: "cancel", Status: o.Status}
	}
	out := o
	out.Status = StatusCancelled
	out.CancelReason = reason
	return out, nil
}

// Restore lifts the cancelled flag. The resulting status is recomputed
// from the garments as they stand now, not replayed from whatever preceded
// cancellation: garments may have moved while the order sat cancelled, and
// re-deriving guarantees the status is consistent with them.
func Restore(o Order) (Order, error) {
	if !o.Status.CanRestore() {
		return Order{}, &TransitionError{Op: "restore", Status: o.Status}
	}
	out := o
	out.Status = DeriveStatusFromGarments(o.Garments)
	out.CancelReason = ""
	return out, nil
}

// DeriveStatusFromGarments computes the order status implied by garment
// stages: Completed when every garment is done, ReadyForPickup when every
// garment is at least ready, InProgress once any garment has moved past
// New, otherwise New. An order without garments is New.
func DeriveStatusFromGarments(gs []Garment) OrderStatus {
	if len(gs) == 0 {
		return StatusNew
	}
	allDone := true
	allReady := true
	anyStarted := false
	for _, g := range gs {
		if g.Stage != StageDone {
			allDone = false
		}
		if g.Stage != StageDone && g.Stage != StageReady {
			allReady = false
		}
		if g.Stage != StageNew {
			anyStarted = true
		}
	}
	switch {
	case allDone:
		return StatusCompleted
	case allReady:
		return StatusReady
	case anyStarted:
		return StatusInProgress
	default:
		return StatusNew
	}
}
