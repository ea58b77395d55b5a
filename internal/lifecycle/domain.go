// Package lifecycle implements the order/garment lifecycle and financial
// reconciliation rules for the shop: service completion, overdue
// classification, payment reconciliation, the cancel/restore state machine
// and garment priority ranking. Every function is a pure computation over
// the snapshot it receives; persistence and transport live elsewhere.
package lifecycle

// Stage is a garment's workflow position.
type Stage string

const (
	StageNew        Stage = "NEW"
	StageInProgress Stage = "IN_PROGRESS"
	StageReady      Stage = "READY_FOR_PICKUP"
	StageDone       Stage = "DONE"
)

// IsValid checks if the stage is valid.
func (s Stage) IsValid() bool {
	switch s {
	case StageNew, StageInProgress, StageReady, StageDone:
		return true
	default:
		return false
	}
}

// Priority returns the ranking weight of the stage. Work closest to
// leaving the shop ranks highest; finished garments rank last.
func (s Stage) Priority() int {
	switch s {
	case StageReady:
		return 3
	case StageInProgress:
		return 2
	case StageNew:
		return 1
	case StageDone:
		return -1
	default:
		return 0
	}
}

// OrderStatus enumerates order statuses.
type OrderStatus string

const (
	StatusNew        OrderStatus = "NEW"
	StatusInProgress OrderStatus = "IN_PROGRESS"
	StatusReady      OrderStatus = "READY_FOR_PICKUP"
	StatusCompleted  OrderStatus = "COMPLETED"
	StatusCancelled  OrderStatus = "CANCELLED"
)

// IsValid checks if the order status is valid.
func (s OrderStatus) IsValid() bool {
	switch s {
	case StatusNew, StatusInProgress, StatusReady, StatusCompleted, StatusCancelled:
		return true
	default:
		return false
	}
}

// CanCancel checks if an order in this status may be cancelled.
func (s OrderStatus) CanCancel() bool {
	return s != StatusCompleted && s != StatusCancelled
}

// CanRestore checks if an order in this status may be restored.
func (s OrderStatus) CanRestore() bool {
	return s == StatusCancelled
}

// EntryStatus is the settlement state of a payment ledger entry.
type EntryStatus string

const (
	EntryCompleted EntryStatus = "COMPLETED"
	EntryPending   EntryStatus = "PENDING"
	EntryFailed    EntryStatus = "FAILED"
)

// PaymentStatus is the derived payment position of an order.
type PaymentStatus string

const (
	PaymentUnpaid   PaymentStatus = "UNPAID"
	PaymentPartial  PaymentStatus = "PARTIAL"
	PaymentPaid     PaymentStatus = "PAID"
	PaymentOverpaid PaymentStatus = "OVERPAID"
)

// Service is a single billable piece of work on a garment. Removed marks a
// soft delete: the row is retained but excluded from completion evaluation.
type Service struct {
	ID      int64
	Done    bool
	Removed bool
}

// Garment is one piece under work within an order.
//
// A nil Services slice means the caller did not load service rows at all;
// an empty non-nil slice means the garment is known to have none. The two
// are evaluated differently, see AllServicesCompleted.
type Garment struct {
	ID        int64
	Stage     Stage
	DueDate   *CivilDate
	EventDate *CivilDate
	Services  []Service
	// Progress is an optional 0-100 completion percentage used only as a
	// ranking tie-break between in-progress garments.
	Progress *int
}

// PaymentEntry is one row of an order's payment ledger. Amounts are minor
// currency units; only completed entries count toward net paid.
type PaymentEntry struct {
	ID            int64
	AmountCents   int64
	RefundedCents int64
	Status        EntryStatus
}

// Order is the snapshot the engine computes over.
type Order struct {
	ID           int64
	Number       string
	Status       OrderStatus
	DueDate      *CivilDate
	TotalCents   int64
	Garments     []Garment
	Payments     []PaymentEntry
	CancelReason string
}
