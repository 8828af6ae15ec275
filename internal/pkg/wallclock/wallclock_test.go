package wallclock

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func mustParse(t *testing.T, text string, opts ...ParseOption) Value {
	t.Helper()
	v, err := Parse(text, opts...)
	require.NoError(t, err)
	return v
}

func TestParse(t *testing.T) {
	cases := []struct {
		input  string
		want   string
		hour   int
		offset time.Duration
	}{
		{"2024-03-04", "2024-03-04T00:00:00Z", 0, 0},
		{"2024-03-04T13:45:10Z", "2024-03-04T13:00:00Z", 13, 0},
		{"2024-03-04T13:45:10.123+02:00", "2024-03-04T13:00:00+02:00", 13, 2 * time.Hour},
		{"2024-03-04 09:30", "2024-03-04T09:00:00Z", 9, 0},
		{"2024-03-04T24:00:00-05:00", "2024-03-04T24:00:00-05:00", 24, -5 * time.Hour},
		{"2024-03-04T08:00:00+0530", "2024-03-04T08:00:00+05:30", 8, 5*time.Hour + 30*time.Minute},
	}
	for _, c := range cases {
		v, err := Parse(c.input)
		require.NoError(t, err, c.input)
		assert.Equal(t, c.want, v.String(), c.input)
		assert.Equal(t, c.hour, v.Hour(), c.input)
		assert.Equal(t, c.offset, v.Offset(), c.input)
	}
}

func TestParse_Invalid(t *testing.T) {
	invalid := []string{
		"",
		"yesterday",
		"2024-13-01",
		"2024-02-30",
		"2023-02-29",
		"2024-03-04T25:00:00Z",
		"2024-03-04T24:30:00Z",
		"2024-03-04T10:61:00Z",
		"2024-03-04T10:00:00+15:00",
		"2024-03-04T10:00:00-13:00",
	}
	for _, text := range invalid {
		_, err := Parse(text)
		assert.ErrorIs(t, err, ErrInvalidTimestamp, text)
	}
}

func TestParse_Overrides(t *testing.T) {
	v := mustParse(t, "2024-03-04T09:00:00Z", WithHour(12), WithOffset(time.Hour))
	assert.Equal(t, 12, v.Hour())
	assert.Equal(t, time.Hour, v.Offset())

	_, err := Parse("2024-03-04", WithHour(30))
	assert.ErrorIs(t, err, ErrInvalidTimestamp)

	_, err = Parse("2024-03-04", WithOffset(15*time.Hour))
	assert.ErrorIs(t, err, ErrInvalidTimestamp)
}

func TestRoundTrip(t *testing.T) {
	inputs := []string{
		"2024-01-01T00:00:00Z",
		"2024-02-29T12:00:00+01:00",
		"2024-12-31T24:00:00-03:00",
		"1999-07-15T07:00:00+14:00",
		"2030-10-10T23:00:00-12:00",
	}
	for _, in := range inputs {
		x := mustParse(t, in)
		back := mustParse(t, x.String())
		assert.True(t, back.Equal(x), in)
		assert.Equal(t, x.Offset(), back.Offset(), in)
	}
}

func TestShiftHours(t *testing.T) {
	v := mustParse(t, "2024-12-31T22:00:00Z")
	assert.Equal(t, "2025-01-01T01:00:00Z", v.ShiftHours(3).String())
	assert.Equal(t, "2024-12-30T22:00:00Z", v.ShiftHours(-24).String())

	leap := mustParse(t, "2024-02-28T12:00:00Z")
	assert.Equal(t, "2024-02-29T12:00:00Z", leap.ShiftHours(24).String())

	end := mustParse(t, "2024-02-29T24:00:00Z")
	assert.Equal(t, "2024-03-01T00:00:00Z", end.ShiftHours(0).String())
}

func TestSwitchEndOfDayEncodings(t *testing.T) {
	midnight := mustParse(t, "2024-03-01T00:00:00Z")
	assert.Equal(t, "2024-02-29T24:00:00Z", midnight.SwitchMidnightToHour24().String())

	h24 := mustParse(t, "2024-12-31T24:00:00Z")
	assert.Equal(t, "2025-01-01T00:00:00Z", h24.SwitchHour24ToMidnight().String())

	noon := mustParse(t, "2024-03-01T12:00:00Z")
	assert.True(t, noon.SwitchMidnightToHour24().Equal(noon))
	assert.True(t, noon.SwitchHour24ToMidnight().Equal(noon))
}

func TestSwitchBijection(t *testing.T) {
	inputs := []string{
		"2024-02-28T24:00:00Z",
		"2024-12-31T24:00:00+02:00",
		"2024-06-15T12:00:00Z",
		"2024-06-15T07:00:00Z",
	}
	for _, in := range inputs {
		x := mustParse(t, in)
		assert.True(t, x.SwitchHour24ToMidnight().SwitchMidnightToHour24().Equal(x), in)
	}
}

func TestNormalizeForRole(t *testing.T) {
	cases := []struct {
		input     string
		isEnd     bool
		halfDays  bool
		want      string
		wantHalf  bool
		wantHour  int
		wantDayOf string
	}{
		{"2024-03-04T00:00:00Z", false, true, "2024-03-04T00:00:00Z", false, 0, "2024-03-04"},
		{"2024-03-04T09:00:00Z", false, true, "2024-03-04T00:00:00Z", false, 0, "2024-03-04"},
		{"2024-03-04T12:00:00Z", false, true, "2024-03-04T12:00:00Z", true, 12, "2024-03-04"},
		{"2024-03-04T15:00:00Z", false, true, "2024-03-04T12:00:00Z", true, 12, "2024-03-04"},
		{"2024-03-04T15:00:00Z", false, false, "2024-03-04T00:00:00Z", false, 0, "2024-03-04"},
		{"2024-03-04T24:00:00Z", false, true, "2024-03-05T00:00:00Z", false, 0, "2024-03-05"},
		{"2024-03-05T00:00:00Z", true, true, "2024-03-04T24:00:00Z", false, 24, "2024-03-04"},
		{"2024-03-04T10:00:00Z", true, true, "2024-03-04T12:00:00Z", true, 12, "2024-03-04"},
		{"2024-03-04T12:00:00Z", true, true, "2024-03-04T12:00:00Z", true, 12, "2024-03-04"},
		{"2024-03-04T13:00:00Z", true, true, "2024-03-04T24:00:00Z", false, 24, "2024-03-04"},
		{"2024-03-04T10:00:00Z", true, false, "2024-03-04T24:00:00Z", false, 24, "2024-03-04"},
	}
	for _, c := range cases {
		got := mustParse(t, c.input).NormalizeForRole(c.isEnd, c.halfDays)
		assert.Equal(t, c.want, got.String(), "%s end=%v half=%v", c.input, c.isEnd, c.halfDays)
		assert.Equal(t, c.wantHalf, got.IsHalfDay())
		assert.Equal(t, c.wantHour, got.Hour())
		assert.Equal(t, c.wantDayOf, got.Date())
	}
}

func TestNormalizeForRole_Idempotent(t *testing.T) {
	for hour := 0; hour <= 24; hour++ {
		base, err := New(2024, time.March, 4, hour, time.Hour)
		require.NoError(t, err)
		for _, isEnd := range []bool{false, true} {
			for _, half := range []bool{false, true} {
				once := base.NormalizeForRole(isEnd, half)
				twice := once.NormalizeForRole(isEnd, half)
				assert.True(t, once.Equal(twice), "hour=%d end=%v half=%v", hour, isEnd, half)
				assert.Contains(t, []int{0, 12, 24}, once.Hour())
			}
		}
	}
}

func TestCompareAndTime(t *testing.T) {
	a := mustParse(t, "2024-03-04T24:00:00Z")
	b := mustParse(t, "2024-03-05T00:00:00Z")
	c := mustParse(t, "2024-03-05T12:00:00Z")

	assert.Equal(t, 0, a.Compare(b))
	assert.False(t, a.Equal(b))
	assert.Equal(t, -1, b.Compare(c))
	assert.Equal(t, 1, c.Compare(a))

	off := mustParse(t, "2024-03-04T12:00:00+02:00")
	assert.Equal(t, time.Date(2024, 3, 4, 10, 0, 0, 0, time.UTC), off.Time().UTC())
	assert.True(t, FromTime(off.Time()).Equal(off))
}
