package calendar

import (
	"fmt"
	"strings"
	"time"

	"github.com/cmlabs-hris/timeoff-sync/internal/pkg/wallclock"
)

type EventStatus string

const (
	EventStatusConfirmed EventStatus = "confirmed"
	EventStatusTentative EventStatus = "tentative"
	EventStatusCancelled EventStatus = "cancelled"
)

type EventType string

const (
	EventTypeDefault     EventType = "default"
	EventTypeOutOfOffice EventType = "outOfOffice"
)

// Private extended property keys owned by the reconciler.
const (
	PropertyTimeOffID     = "timeOffId"
	PropertySyncFailCount = "syncFailCount"
)

// EventTime is either an all-day date (Date set) or an instant.
type EventTime struct {
	Date     string
	DateTime time.Time
}

func (t EventTime) IsZero() bool { return t.Date == "" && t.DateTime.IsZero() }

// Event is a calendar entry as seen by the reconciler.
type Event struct {
	ID             string
	Status         EventStatus
	EventType      EventType
	Summary        string
	Description    string
	Start          EventTime
	End            EventTime
	OrganizerEmail string
	SourceURL      string
	UpdatedAt      time.Time

	// TimeOffID links the event to an HR time-off. Empty until first synced.
	TimeOffID string
	// SyncFailCount is kept for events written by older deployments. It is
	// carried through untouched.
	SyncFailCount int
}

func (e Event) IsCancelled() bool   { return e.Status == EventStatusCancelled }
func (e Event) IsOutOfOffice() bool { return e.EventType == EventTypeOutOfOffice }
func (e Event) IsAllDay() bool      { return e.Start.Date != "" }

// IsForeign reports whether the event was placed on the owner's calendar by
// someone else or mirrored in by another sync integration.
func (e Event) IsForeign(ownerEmail string) bool {
	if e.SourceURL != "" {
		return true
	}
	return e.OrganizerEmail != "" && !strings.EqualFold(e.OrganizerEmail, ownerEmail)
}

// Duration is the raw length of the event before any half-day rounding.
func (e Event) Duration() (time.Duration, error) {
	if e.Start.Date == "" && e.End.Date == "" && !e.Start.DateTime.IsZero() && !e.End.DateTime.IsZero() {
		return e.End.DateTime.Sub(e.Start.DateTime), nil
	}
	start, end, err := e.bounds(0)
	if err != nil {
		return 0, err
	}
	return end.Time().Sub(start.Time()), nil
}

// WallClockRange returns the event bounds as wall-clock values. All-day end
// dates are exclusive, so they come back as midnight of the following day.
// All-day dates are placed at offset and timed bounds are converted to it, so
// the same instant reads the same whatever zone Google reports it in.
func (e Event) WallClockRange(offset time.Duration) (wallclock.Value, wallclock.Value, error) {
	return e.bounds(offset)
}

func (e Event) bounds(offset time.Duration) (wallclock.Value, wallclock.Value, error) {
	if e.Start.IsZero() || e.End.IsZero() {
		return wallclock.Value{}, wallclock.Value{}, fmt.Errorf("%w: event %s", ErrMissingTime, e.ID)
	}
	start, err := toWallClock(e.Start, offset)
	if err != nil {
		return wallclock.Value{}, wallclock.Value{}, err
	}
	end, err := toWallClock(e.End, offset)
	if err != nil {
		return wallclock.Value{}, wallclock.Value{}, err
	}
	return start, end, nil
}

func toWallClock(t EventTime, offset time.Duration) (wallclock.Value, error) {
	if t.Date != "" {
		return wallclock.Parse(t.Date, wallclock.WithHour(wallclock.Midnight), wallclock.WithOffset(offset))
	}
	return wallclock.FromTime(t.DateTime.In(time.FixedZone("", int(offset/time.Second)))), nil
}
