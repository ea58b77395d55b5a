package lifecycle

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

var workday = CivilDate{2026, time.March, 10}

func datePtr(y int, m time.Month, d int) *CivilDate {
	return &CivilDate{Year: y, Month: m, Day: d}
}

func TestGarmentOverdueWhenPastAndIncomplete(t *testing.T) {
	g := Garment{
		DueDate:  datePtr(2026, time.March, 9),
		Services: []Service{{ID: 1, Done: false}},
	}
	require.True(t, IsGarmentOverdue(g, workday))

	info := GarmentDueInfo(g, workday)
	require.True(t, info.IsPast)
	require.True(t, info.IsOverdue)
	require.False(t, info.AllServicesCompleted)
	require.Equal(t, -1, info.DaysUntilDue)
}

func TestGarmentNotOverdueOnceWorkFinished(t *testing.T) {
	// Missed deadline, but the work is done: past due on the calendar,
	// not overdue as a risk signal.
	g := Garment{
		DueDate:  datePtr(2026, time.March, 1),
		Services: []Service{{ID: 1, Done: true}},
	}
	require.False(t, IsGarmentOverdue(g, workday))

	info := GarmentDueInfo(g, workday)
	require.True(t, info.IsPast)
	require.False(t, info.IsOverdue)
	require.True(t, info.AllServicesCompleted)
}

func TestGarmentWithoutDueDateNeverOverdue(t *testing.T) {
	g := Garment{Services: []Service{{ID: 1}}}
	require.False(t, IsGarmentOverdue(g, workday))

	info := GarmentDueInfo(g, workday)
	require.False(t, info.HasDueDate)
	require.False(t, info.IsOverdue)
	require.False(t, info.IsUrgent)
}

func TestGarmentDueTodayBoundary(t *testing.T) {
	g := Garment{
		DueDate:  &workday,
		Services: []Service{{ID: 1}},
	}
	info := GarmentDueInfo(g, workday)
	require.True(t, info.IsToday)
	require.True(t, info.IsUrgent)
	require.False(t, info.IsOverdue)
	require.False(t, info.IsPast)
	require.Equal(t, 0, info.DaysUntilDue)
	require.False(t, IsGarmentOverdue(g, workday))
}

func TestGarmentUrgencyWindow(t *testing.T) {
	for days := 0; days <= 3; days++ {
		due := workday.AddDays(days)
		info := GarmentDueInfo(Garment{DueDate: &due}, workday)
		require.True(t, info.IsUrgent, "due in %d days should be urgent", days)
	}
	due := workday.AddDays(4)
	info := GarmentDueInfo(Garment{DueDate: &due}, workday)
	require.False(t, info.IsUrgent)

	tomorrow := workday.AddDays(1)
	info = GarmentDueInfo(Garment{DueDate: &tomorrow}, workday)
	require.True(t, info.IsTomorrow)
	require.False(t, info.IsToday)
}

func TestEffectiveOrderDueDate(t *testing.T) {
	orderDate := CivilDate{2026, time.March, 20}
	o := Order{
		DueDate: &orderDate,
		Garments: []Garment{
			{DueDate: datePtr(2026, time.March, 12)},
		},
	}
	got := EffectiveOrderDueDate(o)
	require.NotNil(t, got)
	require.Equal(t, orderDate, *got)

	o.DueDate = nil
	got = EffectiveOrderDueDate(o)
	require.NotNil(t, got)
	require.Equal(t, CivilDate{2026, time.March, 12}, *got)

	o.Garments = append(o.Garments, Garment{DueDate: datePtr(2026, time.March, 5)}, Garment{})
	got = EffectiveOrderDueDate(o)
	require.NotNil(t, got)
	require.Equal(t, CivilDate{2026, time.March, 5}, *got)

	require.Nil(t, EffectiveOrderDueDate(Order{Garments: []Garment{{}, {}}}))
}

func TestOrderOverdueFromOrderDate(t *testing.T) {
	o := Order{
		DueDate: datePtr(2026, time.March, 8),
		Garments: []Garment{
			{Stage: StageInProgress, Services: []Service{{ID: 1}}},
		},
	}
	require.True(t, IsOrderOverdue(o, workday))

	// Same date in the past, but every garment is finished.
	o.Garments[0].Services[0].Done = true
	require.False(t, IsOrderOverdue(o, workday))
}

func TestOrderOverdueFromGarmentDate(t *testing.T) {
	// The order-level date is comfortably in the future, but one garment
	// carries its own earlier deadline and is not finished.
	o := Order{
		DueDate: datePtr(2026, time.April, 30),
		Garments: []Garment{
			{DueDate: datePtr(2026, time.March, 2), Services: []Service{{ID: 1}}},
			{DueDate: datePtr(2026, time.April, 20), Services: []Service{{ID: 2, Done: true}}},
		},
	}
	require.True(t, IsOrderOverdue(o, workday))
}

func TestEmptyOrderNeverOverdue(t *testing.T) {
	require.False(t, IsOrderOverdue(Order{}, workday))

	// A past order date with no garments has nothing incomplete behind
	// it, so it stays vacuously on time.
	require.False(t, IsOrderOverdue(Order{DueDate: datePtr(2026, time.January, 1)}, workday))
}
