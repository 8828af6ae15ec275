package reconcile

import (
	"context"
	"fmt"
	"time"

	"github.com/cmlabs-hris/timeoff-sync/internal/domain/calendar"
	"github.com/cmlabs-hris/timeoff-sync/internal/domain/timeoff"
	"github.com/cmlabs-hris/timeoff-sync/internal/pkg/failledger"
	"github.com/cmlabs-hris/timeoff-sync/internal/pkg/wallclock"
)

// Suppressor reports live failure-ledger entries.
type Suppressor interface {
	IsSuppressed(ctx context.Context, key failledger.Key, currentUpdatedAt time.Time) bool
}

type MatchInput struct {
	Employee timeoff.Employee
	Events   []calendar.Event
	TimeOffs []timeoff.TimeOff
	Now      time.Time
}

// Matcher pairs calendar events with HR time-offs and decides what has to
// change. It performs no writes and its output depends only on its input
// and the ledger.
type Matcher struct {
	registry   *Registry
	suppressor Suppressor
	deadZone   time.Duration
	offset     time.Duration
}

// NewMatcher builds a Matcher. offset is the UTC offset event bounds are read
// at, both for all-day dates and for timed events.
func NewMatcher(registry *Registry, suppressor Suppressor, deadZone, offset time.Duration) *Matcher {
	return &Matcher{registry: registry, suppressor: suppressor, deadZone: deadZone, offset: offset}
}

type matchState struct {
	ctx      context.Context
	in       MatchInput
	byID     map[string]int
	linked   map[string]bool
	consumed map[string]bool
	plan     Plan
}

func (m *Matcher) Match(ctx context.Context, in MatchInput) Plan {
	st := &matchState{
		ctx:      ctx,
		in:       in,
		byID:     make(map[string]int, len(in.TimeOffs)),
		linked:   make(map[string]bool, len(in.Events)),
		consumed: make(map[string]bool, len(in.TimeOffs)),
	}
	for i, to := range in.TimeOffs {
		st.byID[to.ID] = i
	}
	for _, ev := range in.Events {
		if ev.TimeOffID != "" {
			st.linked[ev.TimeOffID] = true
		}
	}

	for i := range in.Events {
		if in.Events[i].TimeOffID != "" {
			m.matchLinked(st, &in.Events[i])
		}
	}
	for i := range in.Events {
		if in.Events[i].TimeOffID == "" {
			m.matchUnlinked(st, &in.Events[i])
		}
	}
	for i := range in.TimeOffs {
		to := &in.TimeOffs[i]
		if st.consumed[to.ID] {
			continue
		}
		m.emit(st, Action{Kind: ActionCreateEventFromTimeOff, TimeOff: to})
	}

	return st.plan
}

func (m *Matcher) matchLinked(st *matchState, ev *calendar.Event) {
	i, ok := st.byID[ev.TimeOffID]
	if !ok {
		if ev.IsCancelled() {
			return
		}
		if orphan, desired := m.findRelinkTarget(st, ev); orphan != nil {
			st.consumed[orphan.ID] = true
			m.emit(st, Action{Kind: ActionCreateTimeOffFromEvent, Event: ev, TimeOff: orphan, Desired: &desired})
			return
		}
		m.emit(st, Action{Kind: ActionCancelEvent, Event: ev})
		return
	}

	to := &st.in.TimeOffs[i]
	if st.consumed[to.ID] {
		st.skip(Skip{Reason: SkipDuplicateLink, EventID: ev.ID, TimeOffID: to.ID})
		return
	}
	st.consumed[to.ID] = true

	if ev.IsCancelled() {
		m.emit(st, Action{Kind: ActionDeleteTimeOff, Event: ev, TimeOff: to})
		return
	}

	typ, ok := m.registry.MatchByKeyword(ev.Summary)
	if !ok {
		typ = m.storedType(to)
	}
	desired, err := m.desiredFromEvent(ev, typ)
	if err != nil {
		st.skip(Skip{Reason: SkipInvalidTime, EventID: ev.ID, TimeOffID: to.ID, Err: err})
		return
	}
	if desired.Type.ID == to.TypeID && desired.Start.Equal(to.Start) && desired.End.Equal(to.End) {
		return
	}

	// Last write wins; ties go to HR.
	if !to.UpdatedAt.Before(ev.UpdatedAt) {
		m.emit(st, Action{Kind: ActionUpdateEventFromTimeOff, Event: ev, TimeOff: to})
		return
	}
	m.emit(st, Action{Kind: ActionRecreateTimeOffFromEvent, Event: ev, TimeOff: to, Desired: &desired})
}

func (m *Matcher) matchUnlinked(st *matchState, ev *calendar.Event) {
	if ev.IsCancelled() || ev.IsForeign(st.in.Employee.Email) {
		return
	}

	typ, ok := m.registry.MatchByKeyword(ev.Summary)
	if !ok && ev.IsOutOfOffice() {
		typ, ok = m.registry.OutOfOfficeType()
		if !ok {
			st.skip(Skip{Reason: SkipUnknownType, Action: ActionCreateTimeOffFromEvent, EventID: ev.ID})
			return
		}
	}
	if !ok {
		return
	}

	duration, err := ev.Duration()
	if err != nil {
		st.skip(Skip{Reason: SkipInvalidTime, Action: ActionCreateTimeOffFromEvent, EventID: ev.ID, Err: err})
		return
	}
	if duration < m.registry.MinimumDuration(typ) {
		st.skip(Skip{Reason: SkipTooShort, Action: ActionCreateTimeOffFromEvent, EventID: ev.ID})
		return
	}

	desired, err := m.desiredFromEvent(ev, typ)
	if err != nil {
		st.skip(Skip{Reason: SkipInvalidTime, Action: ActionCreateTimeOffFromEvent, EventID: ev.ID, Err: err})
		return
	}

	action := Action{Kind: ActionCreateTimeOffFromEvent, Event: ev, Desired: &desired}
	if orphan := st.findOrphan(desired); orphan != nil {
		st.consumed[orphan.ID] = true
		action.TimeOff = orphan
	}
	m.emit(st, action)
}

// findOrphan looks for an unlinked time-off identical to desired, left behind
// by a create whose link write-back failed.
func (st *matchState) findOrphan(desired DesiredTimeOff) *timeoff.TimeOff {
	for i := range st.in.TimeOffs {
		to := &st.in.TimeOffs[i]
		if st.consumed[to.ID] {
			continue
		}
		if to.TypeID == desired.Type.ID && to.Start.Equal(desired.Start) && to.End.Equal(desired.End) {
			return to
		}
	}
	return nil
}

// findRelinkTarget looks for the replacement a recreate created before its
// link write-back failed: an unlinked time-off identical to what the event
// describes. The event still carries the id of the deleted record.
func (m *Matcher) findRelinkTarget(st *matchState, ev *calendar.Event) (*timeoff.TimeOff, DesiredTimeOff) {
	for i := range st.in.TimeOffs {
		to := &st.in.TimeOffs[i]
		if st.consumed[to.ID] || st.linked[to.ID] {
			continue
		}
		typ, ok := m.registry.MatchByKeyword(ev.Summary)
		if !ok && ev.IsOutOfOffice() {
			typ, ok = m.registry.OutOfOfficeType()
		}
		if !ok {
			typ = m.storedType(to)
		}
		if typ.ID != to.TypeID {
			continue
		}
		desired, err := m.desiredFromEvent(ev, typ)
		if err != nil {
			return nil, DesiredTimeOff{}
		}
		if desired.Start.Equal(to.Start) && desired.End.Equal(to.End) {
			return to, desired
		}
	}
	return nil, DesiredTimeOff{}
}

func (m *Matcher) desiredFromEvent(ev *calendar.Event, typ timeoff.Type) (DesiredTimeOff, error) {
	start, end, err := ev.WallClockRange(m.offset)
	if err != nil {
		return DesiredTimeOff{}, err
	}
	start = start.NormalizeForRole(false, typ.HalfDaysAllowed)
	end = end.NormalizeForRole(true, typ.HalfDaysAllowed)
	if end.Compare(start) < 0 {
		return DesiredTimeOff{}, fmt.Errorf("%w: event %s ends before it starts", wallclock.ErrInvalidTimestamp, ev.ID)
	}
	return DesiredTimeOff{Type: typ, Start: start, End: end, Comment: ev.Summary}, nil
}

func (m *Matcher) storedType(to *timeoff.TimeOff) timeoff.Type {
	if typ, ok := m.registry.ByID(to.TypeID); ok {
		return typ
	}
	return timeoff.Type{ID: to.TypeID, Name: to.TypeName, HalfDaysAllowed: true}
}

// emit appends the action unless one of its records is still settling or
// the ledger says its last attempt failed on the same version.
func (m *Matcher) emit(st *matchState, a Action) {
	cutoff := st.in.Now.Add(-m.deadZone)
	if a.Event != nil && a.Event.UpdatedAt.After(cutoff) {
		st.skip(Skip{Reason: SkipDeadZone, Action: a.Kind, EventID: a.Event.ID, TimeOffID: timeOffID(a)})
		return
	}
	if a.TimeOff != nil && a.TimeOff.UpdatedAt.After(cutoff) {
		st.skip(Skip{Reason: SkipDeadZone, Action: a.Kind, EventID: eventID(a), TimeOffID: a.TimeOff.ID})
		return
	}

	if m.suppressor != nil {
		key, stamp := a.LedgerKey(st.in.Employee.ID)
		if m.suppressor.IsSuppressed(st.ctx, key, stamp) {
			st.skip(Skip{Reason: SkipSuppressed, Action: a.Kind, EventID: eventID(a), TimeOffID: timeOffID(a)})
			return
		}
	}

	st.plan.Actions = append(st.plan.Actions, a)
}

func (st *matchState) skip(s Skip) {
	st.plan.Skipped = append(st.plan.Skipped, s)
}

func eventID(a Action) string {
	if a.Event == nil {
		return ""
	}
	return a.Event.ID
}

func timeOffID(a Action) string {
	if a.TimeOff == nil {
		return ""
	}
	return a.TimeOff.ID
}
