package lifecycle

// Reconciliation is the derived financial position of an order: what has
// effectively been paid, what remains due, and the resulting status. All
// amounts are integer minor units; Percent is the only derived float and
// exists for display, unclamped so overpayment shows as more than 100.
type Reconciliation struct {
	TotalCents     int64
	NetPaidCents   int64
	AmountDueCents int64
	Percent        float64
	Status         PaymentStatus
}

// Reconcile folds a payment ledger into an order's financial position.
// Only completed entries count; each contributes its amount minus what was
// refunded from it. AmountDueCents may be negative, signalling a refund
// owed to the client. NetPaidCents + AmountDueCents == TotalCents always.
//
// A negative total or an entry refunded beyond its amount is upstream data
// corruption: Reconcile fails with a *ReconciliationError instead of
// clamping, because a silently "fixed" ledger would hide the bug and
// corrupt collection decisions built on the result.
func Reconcile(totalCents int64, entries []PaymentEntry) (Reconciliation, error) {
	if totalCents < 0 {
		return Reconciliation{}, &ReconciliationError{Reason: "negative order total"}
	}
	var netPaid int64
	for _, e := range entries {
		if e.AmountCents < 0 {
			return Reconciliation{}, &ReconciliationError{EntryID: e.ID, Reason: "negative amount"}
		}
		if e.RefundedCents < 0 {
			return Reconciliation{}, &ReconciliationError{EntryID: e.ID, Reason: "negative refunded amount"}
		}
		if e.RefundedCents > e.AmountCents {
			return Reconciliation{}, &ReconciliationError{EntryID: e.ID, Reason: "refunded amount exceeds entry amount"}
		}
		if e.Status != EntryCompleted {
			continue
		}
		netPaid += e.AmountCents - e.RefundedCents
	}

	rec := Reconciliation{
		TotalCents:     totalCents,
		NetPaidCents:   netPaid,
		AmountDueCents: totalCents - netPaid,
	}
	if totalCents > 0 {
		rec.Percent = float64(netPaid) / float64(totalCents) * 100
	}
	switch {
	case netPaid > totalCents:
		rec.Status = PaymentOverpaid
	case netPaid == totalCents && totalCents > 0:
		rec.Status = PaymentPaid
	case netPaid > 0:
		rec.Status = PaymentPartial
	default:
		// Covers a zero-total order with no payments: nothing owed is
		// still distinct from paid in full.
		rec.Status = PaymentUnpaid
	}
	return rec, nil
}
