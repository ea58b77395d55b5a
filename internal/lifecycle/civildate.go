package lifecycle

import (
	"fmt"
	"time"
)

// CivilDate is a calendar date with no time-of-day and no timezone. Shop
// due dates are civil dates: "March 3rd" means March 3rd wherever the
// process happens to run. Converting a date-only string through a UTC
// instant and back shifts the displayed day in timezones west of UTC, so
// CivilDate never passes through an instant except under an explicit
// location.
type CivilDate struct {
	Year  int
	Month time.Month
	Day   int
}

// ParseCivilDate parses a strict YYYY-MM-DD string into a CivilDate by
// components. Malformed or out-of-range input returns a *ParseError.
func ParseCivilDate(s string) (CivilDate, error) {
	if len(s) != 10 || s[4] != '-' || s[7] != '-' {
		return CivilDate{}, &ParseError{Input: s}
	}
	year, ok1 := parseDigits(s[0:4])
	month, ok2 := parseDigits(s[5:7])
	day, ok3 := parseDigits(s[8:10])
	if !ok1 || !ok2 || !ok3 {
		return CivilDate{}, &ParseError{Input: s}
	}
	d := CivilDate{Year: year, Month: time.Month(month), Day: day}
	if !d.valid() {
		return CivilDate{}, &ParseError{Input: s}
	}
	return d, nil
}

func parseDigits(s string) (int, bool) {
	n := 0
	for i := 0; i < len(s); i++ {
		c := s[i]
		if c < '0' || c > '9' {
			return 0, false
		}
		n = n*10 + int(c-'0')
	}
	return n, true
}

// valid reports whether the components name a real calendar day. time.Date
// normalizes overflow (February 30th becomes March 1st), so a round trip
// that changes any component means the input was not a real date.
func (d CivilDate) valid() bool {
	if d.Month < time.January || d.Month > time.December || d.Day < 1 {
		return false
	}
	t := time.Date(d.Year, d.Month, d.Day, 0, 0, 0, 0, time.UTC)
	y, m, day := t.Date()
	return y == d.Year && m == d.Month && day == d.Day
}

// CivilDateOf truncates t to the calendar day observed in t's location.
func CivilDateOf(t time.Time) CivilDate {
	y, m, d := t.Date()
	return CivilDate{Year: y, Month: m, Day: d}
}

// Today returns the current date in local civil time.
func Today() CivilDate {
	return CivilDateOf(time.Now())
}

// TodayIn returns the current date in the given location. A shop's civil
// day is the one observed at the shop, not at the server.
func TodayIn(loc *time.Location) CivilDate {
	return CivilDateOf(time.Now().In(loc))
}

// Time materializes the date as midnight in the given location.
func (d CivilDate) Time(loc *time.Location) time.Time {
	return time.Date(d.Year, d.Month, d.Day, 0, 0, 0, 0, loc)
}

// IsZero reports whether the date is the zero value.
func (d CivilDate) IsZero() bool {
	return d == CivilDate{}
}

// String formats the date as YYYY-MM-DD.
func (d CivilDate) String() string {
	return fmt.Sprintf("%04d-%02d-%02d", d.Year, int(d.Month), d.Day)
}

// AddDays returns the date n whole days after d (n may be negative).
func (d CivilDate) AddDays(n int) CivilDate {
	return CivilDateOf(d.Time(time.UTC).AddDate(0, 0, n))
}

// Before reports whether d is an earlier calendar day than other.
func (d CivilDate) Before(other CivilDate) bool {
	if d.Year != other.Year {
		return d.Year < other.Year
	}
	if d.Month != other.Month {
		return d.Month < other.Month
	}
	return d.Day < other.Day
}

// After reports whether d is a later calendar day than other.
func (d CivilDate) After(other CivilDate) bool {
	return other.Before(d)
}

// DaysBetween returns the signed number of whole days from a to b. Both
// dates are anchored at UTC midnight before subtracting, so the result is
// independent of time-of-day and of daylight saving shifts:
// DaysBetween(d, d) is always zero.
func DaysBetween(a, b CivilDate) int {
	ta := a.Time(time.UTC)
	tb := b.Time(time.UTC)
	return int(tb.Sub(ta) / (24 * time.Hour))
}

// MarshalJSON encodes the date as a YYYY-MM-DD string.
func (d CivilDate) MarshalJSON() ([]byte, error) {
	return []byte(`"` + d.String() + `"`), nil
}

// UnmarshalJSON decodes a YYYY-MM-DD string.
func (d *CivilDate) UnmarshalJSON(data []byte) error {
	if len(data) < 2 || data[0] != '"' || data[len(data)-1] != '"' {
		return &ParseError{Input: string(data)}
	}
	parsed, err := ParseCivilDate(string(data[1 : len(data)-1]))
	if err != nil {
		return err
	}
	*d = parsed
	return nil
}
