package orders

import (
	"github.com/atelier-ops/atelier/internal/lifecycle"
)

// CreateOrderRequest creates an order, optionally with initial garments.
// Dates are YYYY-MM-DD strings on the wire.
type CreateOrderRequest struct {
	ClientID int64                  `json:"client_id" validate:"required,gt=0"`
	DueDate  *lifecycle.CivilDate   `json:"due_date,omitempty"`
	Note     string                 `json:"note" validate:"max=2000"`
	Garments []CreateGarmentRequest `json:"garments" validate:"omitempty,dive"`
}

// CreateGarmentRequest adds a garment to an order. New garments always
// start at stage NEW.
type CreateGarmentRequest struct {
	Title     string                 `json:"title" validate:"required,max=200"`
	DueDate   *lifecycle.CivilDate   `json:"due_date,omitempty"`
	EventDate *lifecycle.CivilDate   `json:"event_date,omitempty"`
	Note      string                 `json:"note" validate:"max=2000"`
	Services  []CreateServiceRequest `json:"services" validate:"omitempty,dive"`
}

// CreateServiceRequest adds a billable service to a garment.
type CreateServiceRequest struct {
	Name       string `json:"name" validate:"required,max=200"`
	PriceCents int64  `json:"price_cents" validate:"gte=0"`
}

// UpdateOrderRequest updates order-level fields. Absent fields are left
// untouched.
type UpdateOrderRequest struct {
	DueDate *lifecycle.CivilDate `json:"due_date,omitempty"`
	Note    *string              `json:"note,omitempty" validate:"omitempty,max=2000"`
}

// UpdateGarmentRequest updates garment fields. Stage changes are allowed
// in any direction; the shop corrects stages by hand when needed.
type UpdateGarmentRequest struct {
	Title     *string              `json:"title,omitempty" validate:"omitempty,max=200"`
	Stage     *lifecycle.Stage     `json:"stage,omitempty"`
	DueDate   *lifecycle.CivilDate `json:"due_date,omitempty"`
	EventDate *lifecycle.CivilDate `json:"event_date,omitempty"`
	Note      *string              `json:"note,omitempty" validate:"omitempty,max=2000"`
}

// SetServiceDoneRequest flips a service's completion flag.
type SetServiceDoneRequest struct {
	Done bool `json:"done"`
}

// CancelOrderRequest cancels an order with an optional reason.
type CancelOrderRequest struct {
	Reason string `json:"reason" validate:"max=500"`
}

// ListOrdersRequest filters the order listing.
type ListOrdersRequest struct {
	Status   *lifecycle.OrderStatus
	ClientID *int64
	Search   string
	Limit    int
	Offset   int
}

// GarmentDueResponse is the calendar position of one garment.
type GarmentDueResponse struct {
	GarmentID            int64                `json:"garment_id"`
	Title                string               `json:"title"`
	Stage                lifecycle.Stage      `json:"stage"`
	DueDate              *lifecycle.CivilDate `json:"due_date,omitempty"`
	DaysUntilDue         *int                 `json:"days_until_due,omitempty"`
	IsOverdue            bool                 `json:"is_overdue"`
	IsUrgent             bool                 `json:"is_urgent"`
	IsToday              bool                 `json:"is_today"`
	IsTomorrow           bool                 `json:"is_tomorrow"`
	AllServicesCompleted bool                 `json:"all_services_completed"`
}

// OrderDueResponse is the calendar position of an order and its garments.
type OrderDueResponse struct {
	OrderID          int64                 `json:"order_id"`
	Number           string                `json:"number"`
	Status           lifecycle.OrderStatus `json:"status"`
	EffectiveDueDate *lifecycle.CivilDate  `json:"effective_due_date,omitempty"`
	IsOverdue        bool                  `json:"is_overdue"`
	Today            lifecycle.CivilDate   `json:"today"`
	Garments         []GarmentDueResponse  `json:"garments"`
}
