// Package wallclock holds the half-day aware date value shared by the HR and
// calendar sides of the reconciliation.
package wallclock

import (
	"errors"
	"fmt"
	"regexp"
	"strconv"
	"time"
)

var ErrInvalidTimestamp = errors.New("invalid timestamp")

const (
	Midnight = 0
	Noon     = 12
	EndOfDay = 24

	minOffset = -12 * time.Hour
	maxOffset = 14 * time.Hour
)

// Value is a local date plus an hour marker. Hour 24 denotes midnight of the
// following day. The offset only matters when rendering.
type Value struct {
	year   int
	month  time.Month
	day    int
	hour   int
	offset time.Duration
}

type parseOptions struct {
	hour   *int
	offset *time.Duration
}

// ParseOption overrides a component of the parsed text.
type ParseOption func(*parseOptions)

// WithHour replaces whatever hour the text carries.
func WithHour(hour int) ParseOption {
	return func(o *parseOptions) { o.hour = &hour }
}

// WithOffset replaces whatever UTC offset the text carries.
func WithOffset(offset time.Duration) ParseOption {
	return func(o *parseOptions) { o.offset = &offset }
}

var textPattern = regexp.MustCompile(
	`^(\d{4})-(\d{2})-(\d{2})(?:[T ](\d{2})(?::(\d{2})(?::(\d{2})(?:\.\d+)?)?)?)?\s*(Z|[+-]\d{2}:?\d{2})?$`,
)

// Parse reads an ISO-8601-like date or date-time. Minutes and seconds are
// discarded.
func Parse(text string, opts ...ParseOption) (Value, error) {
	var o parseOptions
	for _, opt := range opts {
		opt(&o)
	}

	m := textPattern.FindStringSubmatch(text)
	if m == nil {
		return Value{}, fmt.Errorf("%w: %q", ErrInvalidTimestamp, text)
	}

	year, _ := strconv.Atoi(m[1])
	month, _ := strconv.Atoi(m[2])
	day, _ := strconv.Atoi(m[3])
	hour := atoiOrZero(m[4])
	minute := atoiOrZero(m[5])
	second := atoiOrZero(m[6])

	if hour == EndOfDay && (minute != 0 || second != 0) {
		return Value{}, fmt.Errorf("%w: %q has minutes past hour 24", ErrInvalidTimestamp, text)
	}
	if minute > 59 || second > 59 {
		return Value{}, fmt.Errorf("%w: %q", ErrInvalidTimestamp, text)
	}

	offset, err := parseOffset(m[7])
	if err != nil {
		return Value{}, fmt.Errorf("%w: %q: %v", ErrInvalidTimestamp, text, err)
	}

	if o.hour != nil {
		hour = *o.hour
	}
	if o.offset != nil {
		offset = *o.offset
	}

	return New(year, time.Month(month), day, hour, offset)
}

// New validates the components and builds a Value.
func New(year int, month time.Month, day, hour int, offset time.Duration) (Value, error) {
	if year < 1 || year > 9999 {
		return Value{}, fmt.Errorf("%w: year %d out of range", ErrInvalidTimestamp, year)
	}
	if month < time.January || month > time.December {
		return Value{}, fmt.Errorf("%w: month %d out of range", ErrInvalidTimestamp, month)
	}
	if day < 1 || day > daysIn(year, month) {
		return Value{}, fmt.Errorf("%w: day %d out of range for %04d-%02d", ErrInvalidTimestamp, day, year, month)
	}
	if hour < 0 || hour > EndOfDay {
		return Value{}, fmt.Errorf("%w: hour %d out of range", ErrInvalidTimestamp, hour)
	}
	if offset < minOffset || offset > maxOffset {
		return Value{}, fmt.Errorf("%w: offset %s out of range", ErrInvalidTimestamp, offset)
	}
	return Value{year: year, month: month, day: day, hour: hour, offset: offset}, nil
}

// FromTime keeps the local date and hour of t along with its zone offset.
func FromTime(t time.Time) Value {
	_, secs := t.Zone()
	return Value{
		year:   t.Year(),
		month:  t.Month(),
		day:    t.Day(),
		hour:   t.Hour(),
		offset: time.Duration(secs) * time.Second,
	}
}

func (v Value) Year() int              { return v.year }
func (v Value) Month() time.Month      { return v.month }
func (v Value) Day() int               { return v.day }
func (v Value) Hour() int              { return v.hour }
func (v Value) Offset() time.Duration  { return v.offset }
func (v Value) IsZero() bool           { return v.year == 0 }
func (v Value) IsHalfDay() bool        { return v.hour == Noon }
func (v Value) IsSameDay(o Value) bool { return v.year == o.year && v.month == o.month && v.day == o.day }

// Equal compares date and hour. The offset is ignored.
func (v Value) Equal(o Value) bool {
	return v.IsSameDay(o) && v.hour == o.hour
}

// Compare orders values on their local date and hour, treating hour 24 as
// the next day's midnight.
func (v Value) Compare(o Value) int {
	a, b := v.local(), o.local()
	switch {
	case a.Before(b):
		return -1
	case a.After(b):
		return 1
	default:
		return 0
	}
}

// Time renders the value as an instant in its own offset.
func (v Value) Time() time.Time {
	return time.Date(v.year, v.month, v.day, 0, 0, 0, 0, v.zone()).Add(time.Duration(v.hour) * time.Hour)
}

// Date is the calendar date in YYYY-MM-DD form.
func (v Value) Date() string {
	return fmt.Sprintf("%04d-%02d-%02d", v.year, v.month, v.day)
}

func (v Value) String() string {
	return fmt.Sprintf("%sT%02d:00:00%s", v.Date(), v.hour, formatOffset(v.offset))
}

// ShiftHours moves the value by n whole hours, rolling over days, months and
// years as needed. The result never carries hour 24.
func (v Value) ShiftHours(n int) Value {
	t := v.local().Add(time.Duration(n) * time.Hour)
	return Value{year: t.Year(), month: t.Month(), day: t.Day(), hour: t.Hour(), offset: v.offset}
}

// SwitchMidnightToHour24 rewrites hour 0 as hour 24 of the previous day.
func (v Value) SwitchMidnightToHour24() Value {
	if v.hour != Midnight {
		return v
	}
	prev := v.ShiftHours(-24)
	prev.hour = EndOfDay
	return prev
}

// SwitchHour24ToMidnight rewrites hour 24 as hour 0 of the following day.
func (v Value) SwitchHour24ToMidnight() Value {
	if v.hour != EndOfDay {
		return v
	}
	return v.ShiftHours(0)
}

// NormalizeForRole collapses the hour onto {0, 12, 24}. Ambiguous hours round
// outward so a range start moves earlier and a range end moves later. Types
// without half-days always cover the whole boundary day.
func (v Value) NormalizeForRole(isEnd, halfDaysAllowed bool) Value {
	if isEnd {
		if v.hour == Midnight {
			return v.SwitchMidnightToHour24()
		}
		out := v
		if halfDaysAllowed && v.hour <= Noon {
			out.hour = Noon
		} else {
			out.hour = EndOfDay
		}
		return out
	}

	out := v.SwitchHour24ToMidnight()
	if halfDaysAllowed && out.hour >= Noon {
		out.hour = Noon
	} else {
		out.hour = Midnight
	}
	return out
}

// local is the wall-clock instant with the offset ignored.
func (v Value) local() time.Time {
	return time.Date(v.year, v.month, v.day, 0, 0, 0, 0, time.UTC).Add(time.Duration(v.hour) * time.Hour)
}

func (v Value) zone() *time.Location {
	if v.offset == 0 {
		return time.UTC
	}
	return time.FixedZone(formatOffset(v.offset), int(v.offset/time.Second))
}

func daysIn(year int, month time.Month) int {
	return time.Date(year, month+1, 0, 0, 0, 0, 0, time.UTC).Day()
}

func atoiOrZero(s string) int {
	if s == "" {
		return 0
	}
	n, _ := strconv.Atoi(s)
	return n
}

func parseOffset(s string) (time.Duration, error) {
	if s == "" || s == "Z" {
		return 0, nil
	}
	sign := time.Duration(1)
	if s[0] == '-' {
		sign = -1
	}
	digits := s[1:]
	if len(digits) == 5 {
		digits = digits[:2] + digits[3:]
	}
	if len(digits) != 4 {
		return 0, fmt.Errorf("malformed offset %q", s)
	}
	hh, _ := strconv.Atoi(digits[:2])
	mm, _ := strconv.Atoi(digits[2:])
	if mm > 59 {
		return 0, fmt.Errorf("malformed offset %q", s)
	}
	return sign * (time.Duration(hh)*time.Hour + time.Duration(mm)*time.Minute), nil
}

func formatOffset(d time.Duration) string {
	if d == 0 {
		return "Z"
	}
	sign := '+'
	if d < 0 {
		sign = '-'
		d = -d
	}
	return fmt.Sprintf("%c%02d:%02d", sign, int(d/time.Hour), int(d%time.Hour/time.Minute))
}
