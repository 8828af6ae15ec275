package reconcile

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/cmlabs-hris/timeoff-sync/internal/domain/calendar"
	"github.com/cmlabs-hris/timeoff-sync/internal/domain/timeoff"
	"github.com/cmlabs-hris/timeoff-sync/internal/pkg/wallclock"
)

var (
	errBoom   = errors.New("boom")
	testNow   = time.Date(2024, time.June, 10, 9, 0, 0, 0, time.UTC)
	settled   = testNow.Add(-time.Hour)
	vacation  = timeoff.Type{ID: "t-vac", Name: "Vacation", HalfDaysAllowed: true}
	sick      = timeoff.Type{ID: "t-sick", Name: "Sick leave", HalfDaysAllowed: false}
	testTypes = []timeoff.Type{vacation, sick}
	alice     = timeoff.Employee{ID: "e-1", Email: "alice@example.com", FirstName: "Alice", Active: true}
)

func noShuffle(int, func(i, j int)) {}

func wc(t *testing.T, text string) wallclock.Value {
	t.Helper()
	v, err := wallclock.Parse(text)
	require.NoError(t, err)
	return v
}

type fakeHR struct {
	mu        sync.Mutex
	types     []timeoff.Type
	employees []timeoff.Employee
	timeOffs  map[string]timeoff.TimeOff
	nextID    int

	listErr   error
	createErr error
	deleteErr error

	created   []timeoff.CreateTimeOffRequest
	deleted   []string
	listCalls []string
}

func newFakeHR(records ...timeoff.TimeOff) *fakeHR {
	f := &fakeHR{types: testTypes, employees: []timeoff.Employee{alice}, timeOffs: map[string]timeoff.TimeOff{}}
	for _, r := range records {
		f.timeOffs[r.ID] = r
	}
	return f
}

func (f *fakeHR) ListAbsenceTypes(context.Context) ([]timeoff.Type, error) {
	return f.types, nil
}

func (f *fakeHR) ListEmployees(context.Context) ([]timeoff.Employee, error) {
	return f.employees, nil
}

func (f *fakeHR) ListTimeOffs(_ context.Context, _, _ time.Time, employeeID string) ([]timeoff.TimeOff, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.listCalls = append(f.listCalls, employeeID)
	if f.listErr != nil {
		return nil, f.listErr
	}
	var out []timeoff.TimeOff
	for _, to := range f.timeOffs {
		if employeeID == "" || to.EmployeeID == employeeID {
			out = append(out, to)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

func (f *fakeHR) CreateTimeOff(_ context.Context, req timeoff.CreateTimeOffRequest) (timeoff.TimeOff, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.created = append(f.created, req)
	if f.createErr != nil {
		return timeoff.TimeOff{}, f.createErr
	}
	start, end, err := timeoff.RangeFromDates(req.StartDate, req.EndDate, req.HalfDayStart, req.HalfDayEnd, 0)
	if err != nil {
		return timeoff.TimeOff{}, err
	}
	f.nextID++
	to := timeoff.TimeOff{
		ID:         fmt.Sprintf("new-%d", f.nextID),
		EmployeeID: req.EmployeeID,
		TypeID:     req.TypeID,
		Start:      start,
		End:        end,
		Status:     timeoff.StatusApproved,
		Comment:    req.Comment,
		UpdatedAt:  testNow,
	}
	f.timeOffs[to.ID] = to
	return to, nil
}

func (f *fakeHR) DeleteTimeOff(_ context.Context, id string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.deleted = append(f.deleted, id)
	if f.deleteErr != nil {
		return f.deleteErr
	}
	delete(f.timeOffs, id)
	return nil
}

type fakeCalendar struct {
	mu     sync.Mutex
	events map[string]calendar.Event
	nextID int

	listErr   error
	insertErr error
	updateErr error

	inserted []calendar.Event
	updated  []calendar.Event
}

func newFakeCalendar(events ...calendar.Event) *fakeCalendar {
	f := &fakeCalendar{events: map[string]calendar.Event{}}
	for _, e := range events {
		f.events[e.ID] = e
	}
	return f
}

func (f *fakeCalendar) ListEvents(_ context.Context, _ string, _, _ time.Time) ([]calendar.Event, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.listErr != nil {
		return nil, f.listErr
	}
	out := make([]calendar.Event, 0, len(f.events))
	for _, e := range f.events {
		out = append(out, e)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

func (f *fakeCalendar) InsertEvent(_ context.Context, _ string, ev calendar.Event) (calendar.Event, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.inserted = append(f.inserted, ev)
	if f.insertErr != nil {
		return calendar.Event{}, f.insertErr
	}
	f.nextID++
	ev.ID = fmt.Sprintf("ev-new-%d", f.nextID)
	f.events[ev.ID] = ev
	return ev, nil
}

func (f *fakeCalendar) UpdateEvent(_ context.Context, _, eventID string, ev calendar.Event) (calendar.Event, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.updated = append(f.updated, ev)
	if f.updateErr != nil {
		return calendar.Event{}, f.updateErr
	}
	ev.ID = eventID
	f.events[eventID] = ev
	return ev, nil
}

// fakeFactory hands out one fakeCalendar per email.
type fakeFactory struct {
	calendars map[string]*fakeCalendar
	errs      map[string]error
}

func (f *fakeFactory) ForEmployee(_ context.Context, email string) (calendar.Client, error) {
	if err := f.errs[email]; err != nil {
		return nil, err
	}
	cal, ok := f.calendars[email]
	if !ok {
		cal = newFakeCalendar()
		f.calendars[email] = cal
	}
	return cal, nil
}

func timedEvent(id, summary string, start, end time.Time) calendar.Event {
	return calendar.Event{
		ID:             id,
		Status:         calendar.EventStatusConfirmed,
		EventType:      calendar.EventTypeDefault,
		Summary:        summary,
		Start:          calendar.EventTime{DateTime: start},
		End:            calendar.EventTime{DateTime: end},
		OrganizerEmail: alice.Email,
		UpdatedAt:      settled,
	}
}

func allDayEvent(id, summary, startDate, endDate string) calendar.Event {
	return calendar.Event{
		ID:             id,
		Status:         calendar.EventStatusConfirmed,
		EventType:      calendar.EventTypeDefault,
		Summary:        summary,
		Start:          calendar.EventTime{Date: startDate},
		End:            calendar.EventTime{Date: endDate},
		OrganizerEmail: alice.Email,
		UpdatedAt:      settled,
	}
}

func wholeDays(t *testing.T, id string, typ timeoff.Type, startDate, endDate string) timeoff.TimeOff {
	t.Helper()
	start, end, err := timeoff.RangeFromDates(startDate, endDate, false, false, 0)
	require.NoError(t, err)
	return timeoff.TimeOff{
		ID:         id,
		EmployeeID: alice.ID,
		TypeID:     typ.ID,
		TypeName:   typ.Name,
		Start:      start,
		End:        end,
		Status:     timeoff.StatusApproved,
		UpdatedAt:  settled,
	}
}
