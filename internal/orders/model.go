// Package orders manages atelier orders: the garments under work, the
// billable services on each garment, and the order lifecycle driven by
// the rules in internal/lifecycle.
package orders

import (
	"time"

	"github.com/atelier-ops/atelier/internal/lifecycle"
)

// Order is a client order with its garments loaded.
type Order struct {
	ID           int64                 `json:"id"`
	Number       string                `json:"number"`
	ClientID     int64                 `json:"client_id"`
	Status       lifecycle.OrderStatus `json:"status"`
	DueDate      *lifecycle.CivilDate  `json:"due_date,omitempty"`
	TotalCents   int64                 `json:"total_cents"`
	CancelReason string                `json:"cancel_reason,omitempty"`
	Note         string                `json:"note,omitempty"`
	CreatedAt    time.Time             `json:"created_at"`
	UpdatedAt    time.Time             `json:"updated_at"`
	Garments     []Garment             `json:"garments"`
}

// Garment is one piece under work within an order.
type Garment struct {
	ID        int64                `json:"id"`
	OrderID   int64                `json:"order_id"`
	Title     string               `json:"title"`
	Stage     lifecycle.Stage      `json:"stage"`
	DueDate   *lifecycle.CivilDate `json:"due_date,omitempty"`
	EventDate *lifecycle.CivilDate `json:"event_date,omitempty"`
	Note      string               `json:"note,omitempty"`
	CreatedAt time.Time            `json:"created_at"`
	UpdatedAt time.Time            `json:"updated_at"`
	Services  []ServiceLine        `json:"services"`
}

// ServiceLine is a billable piece of work on a garment. Removed rows stay
// in the table but drop out of completion evaluation and the order total.
type ServiceLine struct {
	ID         int64     `json:"id"`
	GarmentID  int64     `json:"garment_id"`
	Name       string    `json:"name"`
	PriceCents int64     `json:"price_cents"`
	Done       bool      `json:"done"`
	Removed    bool      `json:"removed"`
	CreatedAt  time.Time `json:"created_at"`
	UpdatedAt  time.Time `json:"updated_at"`
}

// ListRow is one row of the order listing with joined client data.
type ListRow struct {
	ID           int64                 `json:"id"`
	Number       string                `json:"number"`
	ClientID     int64                 `json:"client_id"`
	ClientName   string                `json:"client_name"`
	Status       lifecycle.OrderStatus `json:"status"`
	DueDate      *lifecycle.CivilDate  `json:"due_date,omitempty"`
	TotalCents   int64                 `json:"total_cents"`
	GarmentCount int                   `json:"garment_count"`
	CreatedAt    time.Time             `json:"created_at"`
}
