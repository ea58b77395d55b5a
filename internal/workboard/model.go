// Package workboard answers "what should the shop work on next": a
// priority-ranked queue of garments from active orders plus headline
// stats for the counter display. Results are cached in Redis and
// heavy rebuilds are collapsed through singleflight.
package workboard

import "github.com/atelier-ops/atelier/internal/lifecycle"

// QueueRow is one active garment as loaded from storage, with its
// non-removed service counts pre-aggregated.
type QueueRow struct {
	GarmentID     int64
	OrderID       int64
	OrderNumber   string
	ClientName    string
	Title         string
	Stage         lifecycle.Stage
	DueDate       *lifecycle.CivilDate
	EventDate     *lifecycle.CivilDate
	ServicesDone  int
	ServicesTotal int
}

// QueueItem is one ranked entry of the work queue.
type QueueItem struct {
	GarmentID     int64                `json:"garment_id"`
	OrderID       int64                `json:"order_id"`
	OrderNumber   string               `json:"order_number"`
	ClientName    string               `json:"client_name"`
	Title         string               `json:"title"`
	Stage         lifecycle.Stage      `json:"stage"`
	DueDate       *lifecycle.CivilDate `json:"due_date,omitempty"`
	EventDate     *lifecycle.CivilDate `json:"event_date,omitempty"`
	DaysUntilDue  *int                 `json:"days_until_due,omitempty"`
	IsOverdue     bool                 `json:"is_overdue"`
	IsUrgent      bool                 `json:"is_urgent"`
	Progress      *int                 `json:"progress,omitempty"`
	ServicesDone  int                  `json:"services_done"`
	ServicesTotal int                  `json:"services_total"`
}

// QueueResponse is the ranked work queue for a reference day.
type QueueResponse struct {
	Today lifecycle.CivilDate `json:"today"`
	Items []QueueItem         `json:"items"`
}

// Stats are the shop's headline numbers. OutstandingCents sums the net
// position of every non-cancelled order and goes negative when refunds
// are owed overall.
type Stats struct {
	Today            lifecycle.CivilDate `json:"today"`
	ActiveOrders     int64               `json:"active_orders"`
	ReadyForPickup   int64               `json:"ready_for_pickup"`
	OverdueGarments  int64               `json:"overdue_garments"`
	OutstandingCents int64               `json:"outstanding_cents"`
}
