package orders

import (
	"github.com/atelier-ops/atelier/internal/lifecycle"
)

// ToLifecycleGarment maps a stored garment to the engine snapshot shape.
// Services are always loaded by this package, so the engine never falls
// back to stage-only completion for stored garments.
func ToLifecycleGarment(g Garment) lifecycle.Garment {
	services := make([]lifecycle.Service, 0, len(g.Services))
	for _, s := range g.Services {
		services = append(services, lifecycle.Service{ID: s.ID, Done: s.Done, Removed: s.Removed})
	}
	return lifecycle.Garment{
		ID:        g.ID,
		Stage:     g.Stage,
		DueDate:   g.DueDate,
		EventDate: g.EventDate,
		Services:  services,
	}
}

// ToLifecycleGarments maps a garment slice.
func ToLifecycleGarments(gs []Garment) []lifecycle.Garment {
	out := make([]lifecycle.Garment, 0, len(gs))
	for _, g := range gs {
		out = append(out, ToLifecycleGarment(g))
	}
	return out
}

// ToLifecycleOrder maps a loaded order to the engine snapshot shape. The
// payment ledger is owned by internal/payments and left empty here.
func ToLifecycleOrder(o *Order) lifecycle.Order {
	return lifecycle.Order{
		ID:           o.ID,
		Number:       o.Number,
		Status:       o.Status,
		DueDate:      o.DueDate,
		TotalCents:   o.TotalCents,
		Garments:     ToLifecycleGarments(o.Garments),
		CancelReason: o.CancelReason,
	}
}

// ToDueResponse classifies an order and its garments against today.
func ToDueResponse(o *Order, today lifecycle.CivilDate) OrderDueResponse {
	snapshot := ToLifecycleOrder(o)
	resp := OrderDueResponse{
		OrderID:          o.ID,
		Number:           o.Number,
		Status:           o.Status,
		EffectiveDueDate: lifecycle.EffectiveOrderDueDate(snapshot),
		IsOverdue:        lifecycle.IsOrderOverdue(snapshot, today),
		Today:            today,
		Garments:         make([]GarmentDueResponse, 0, len(o.Garments)),
	}
	for i, g := range o.Garments {
		info := lifecycle.GarmentDueInfo(snapshot.Garments[i], today)
		gr := GarmentDueResponse{
			GarmentID:            g.ID,
			Title:                g.Title,
			Stage:                g.Stage,
			DueDate:              g.DueDate,
			IsOverdue:            info.IsOverdue,
			IsUrgent:             info.IsUrgent,
			IsToday:              info.IsToday,
			IsTomorrow:           info.IsTomorrow,
			AllServicesCompleted: info.AllServicesCompleted,
		}
		if info.HasDueDate {
			days := info.DaysUntilDue
			gr.DaysUntilDue = &days
		}
		resp.Garments = append(resp.Garments, gr)
	}
	return resp
}
