package timeoff

import (
	"fmt"
	"time"

	"github.com/cmlabs-hris/timeoff-sync/internal/pkg/wallclock"
)

// RangeFromDates turns the HR representation (inclusive dates plus half-day
// flags) into normalized wall-clock boundaries.
//
// Single-day and multi-day records follow different rules. On a single day a
// lone half-day-start flag means the afternoon and a lone half-day-end flag
// means the morning. When both are set the record is read as the morning.
func RangeFromDates(startDate, endDate string, halfDayStart, halfDayEnd bool, offset time.Duration) (wallclock.Value, wallclock.Value, error) {
	start, err := wallclock.Parse(startDate, wallclock.WithHour(wallclock.Midnight), wallclock.WithOffset(offset))
	if err != nil {
		return wallclock.Value{}, wallclock.Value{}, fmt.Errorf("start date: %w", err)
	}
	end, err := wallclock.Parse(endDate, wallclock.WithHour(wallclock.EndOfDay), wallclock.WithOffset(offset))
	if err != nil {
		return wallclock.Value{}, wallclock.Value{}, fmt.Errorf("end date: %w", err)
	}
	if end.Compare(start) < 0 {
		return wallclock.Value{}, wallclock.Value{}, fmt.Errorf("%w: end %s before start %s", wallclock.ErrInvalidTimestamp, endDate, startDate)
	}

	if start.IsSameDay(end) {
		switch {
		case halfDayEnd:
			end = withHour(end, wallclock.Noon)
		case halfDayStart:
			start = withHour(start, wallclock.Noon)
		}
		return start, end, nil
	}

	if halfDayStart {
		start = withHour(start, wallclock.Noon)
	}
	if halfDayEnd {
		end = withHour(end, wallclock.Noon)
	}
	return start, end, nil
}

// FlagsFromRange is the inverse of RangeFromDates for normalized boundaries.
// A noon-to-noon single day sets both flags, which RangeFromDates reads back
// as a morning.
func FlagsFromRange(start, end wallclock.Value) (startDate, endDate string, halfDayStart, halfDayEnd bool) {
	return start.Date(), end.Date(), start.IsHalfDay(), end.IsHalfDay()
}

func withHour(v wallclock.Value, hour int) wallclock.Value {
	out, _ := wallclock.New(v.Year(), v.Month(), v.Day(), hour, v.Offset())
	return out
}
