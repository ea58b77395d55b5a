package lifecycle

// DueInfo summarises a garment's calendar position relative to a reference
// day. IsPast describes the calendar alone; IsOverdue is the actionable
// signal: past due and the work is not finished. A garment can be past due
// yet not overdue once its services are complete.
type DueInfo struct {
	HasDueDate           bool
	DaysUntilDue         int
	IsPast               bool
	IsOverdue            bool
	IsUrgent             bool
	IsToday              bool
	IsTomorrow           bool
	AllServicesCompleted bool
}

// GarmentDueInfo classifies a garment against the given reference day.
// Garments without a due date report only their completion state.
func GarmentDueInfo(g Garment, today CivilDate) DueInfo {
	info := DueInfo{AllServicesCompleted: AllServicesCompleted(g)}
	if g.DueDate == nil {
		return info
	}
	days := DaysBetween(today, *g.DueDate)
	info.HasDueDate = true
	info.DaysUntilDue = days
	info.IsPast = days < 0
	info.IsOverdue = info.IsPast && !info.AllServicesCompleted
	info.IsToday = days == 0
	info.IsTomorrow = days == 1
	info.IsUrgent = days >= 0 && days <= urgentWindowDays
	return info
}

// urgentWindowDays is the number of days ahead within which a garment
// counts as urgent, inclusive of the due day itself.
const urgentWindowDays = 3

// IsGarmentOverdue reports whether a garment is overdue: it has a due date
// strictly before today and its billable work is not complete. Due today
// is not overdue.
func IsGarmentOverdue(g Garment, today CivilDate) bool {
	if g.DueDate == nil || AllServicesCompleted(g) {
		return false
	}
	return g.DueDate.Before(today)
}

// EffectiveOrderDueDate resolves the date an order is actually working to:
// the order-level due date when set, otherwise the earliest due date among
// its garments, otherwise nil. Many shops date individual garments and
// leave the order undated.
func EffectiveOrderDueDate(o Order) *CivilDate {
	if o.DueDate != nil {
		d := *o.DueDate
		return &d
	}
	var earliest *CivilDate
	for i := range o.Garments {
		due := o.Garments[i].DueDate
		if due == nil {
			continue
		}
		if earliest == nil || due.Before(*earliest) {
			d := *due
			earliest = &d
		}
	}
	return earliest
}

// IsOrderOverdue reports whether an order is overdue. Two checks apply and
// either triggers: the order-level due date has passed while garments
// remain incomplete, or any single garment is overdue on its own date. An
// order-level date never masks a garment with an earlier deadline of its
// own. An order with no garments and no due date is never overdue.
func IsOrderOverdue(o Order, today CivilDate) bool {
	if o.DueDate != nil && o.DueDate.Before(today) && !allGarmentsCompleted(o.Garments) {
		return true
	}
	for _, g := range o.Garments {
		if IsGarmentOverdue(g, today) {
			return true
		}
	}
	return false
}

func allGarmentsCompleted(gs []Garment) bool {
	for _, g := range gs {
		if !AllServicesCompleted(g) {
			return false
		}
	}
	return true
}
