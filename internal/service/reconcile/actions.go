package reconcile

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/cmlabs-hris/timeoff-sync/internal/domain/calendar"
	"github.com/cmlabs-hris/timeoff-sync/internal/domain/timeoff"
)

// Executor applies single actions. Every call is one attempt; retrying is
// left to the next pass, which re-derives state from both systems.
type Executor struct {
	hr         timeoff.Client
	registry   *Registry
	calendarID string
}

func NewExecutor(hr timeoff.Client, registry *Registry, calendarID string) *Executor {
	return &Executor{hr: hr, registry: registry, calendarID: calendarID}
}

func (x *Executor) Apply(ctx context.Context, cal calendar.Client, emp timeoff.Employee, a Action) error {
	switch a.Kind {
	case ActionDeleteTimeOff:
		return x.deleteTimeOff(ctx, a)
	case ActionCancelEvent:
		return x.cancelEvent(ctx, cal, a)
	case ActionCreateEventFromTimeOff:
		return x.createEventFromTimeOff(ctx, cal, a)
	case ActionCreateTimeOffFromEvent:
		return x.createTimeOffFromEvent(ctx, cal, emp, a)
	case ActionUpdateEventFromTimeOff:
		return x.updateEventFromTimeOff(ctx, cal, a)
	case ActionRecreateTimeOffFromEvent:
		return x.recreateTimeOffFromEvent(ctx, cal, emp, a)
	default:
		return fmt.Errorf("%w: %s", ErrUnknownAction, a.Kind)
	}
}

func (x *Executor) deleteTimeOff(ctx context.Context, a Action) error {
	if err := x.hr.DeleteTimeOff(ctx, a.TimeOff.ID); err != nil {
		return fmt.Errorf("delete time-off %s: %w", a.TimeOff.ID, err)
	}
	return nil
}

func (x *Executor) cancelEvent(ctx context.Context, cal calendar.Client, a Action) error {
	ev := *a.Event
	ev.Status = calendar.EventStatusCancelled
	if _, err := cal.UpdateEvent(ctx, x.calendarID, ev.ID, ev); err != nil {
		return fmt.Errorf("cancel event %s: %w", ev.ID, err)
	}
	return nil
}

func (x *Executor) createEventFromTimeOff(ctx context.Context, cal calendar.Client, a Action) error {
	ev := x.eventFromTimeOff(*a.TimeOff, nil)
	if _, err := cal.InsertEvent(ctx, x.calendarID, ev); err != nil {
		return fmt.Errorf("insert event for time-off %s: %w", a.TimeOff.ID, err)
	}
	return nil
}

func (x *Executor) updateEventFromTimeOff(ctx context.Context, cal calendar.Client, a Action) error {
	ev := x.eventFromTimeOff(*a.TimeOff, a.Event)
	if _, err := cal.UpdateEvent(ctx, x.calendarID, ev.ID, ev); err != nil {
		return fmt.Errorf("update event %s from time-off %s: %w", ev.ID, a.TimeOff.ID, err)
	}
	return nil
}

func (x *Executor) createTimeOffFromEvent(ctx context.Context, cal calendar.Client, emp timeoff.Employee, a Action) error {
	created := a.TimeOff
	if created == nil {
		to, err := x.hr.CreateTimeOff(ctx, x.createRequest(emp, *a.Desired))
		if err != nil {
			return fmt.Errorf("create time-off for event %s: %w", a.Event.ID, err)
		}
		created = &to
	} else {
		slog.Info("Reconcile: adopting unlinked time-off", "employee_id", emp.ID, "event_id", a.Event.ID, "time_off_id", created.ID)
	}
	return x.writeBackLink(ctx, cal, *a.Event, created.ID)
}

// recreateTimeOffFromEvent replaces the HR record because the HR API cannot
// move an existing one. The replacement gets a new id.
func (x *Executor) recreateTimeOffFromEvent(ctx context.Context, cal calendar.Client, emp timeoff.Employee, a Action) error {
	if err := x.hr.DeleteTimeOff(ctx, a.TimeOff.ID); err != nil {
		return fmt.Errorf("recreate: delete time-off %s: %w", a.TimeOff.ID, err)
	}

	created, err := x.hr.CreateTimeOff(ctx, x.createRequest(emp, *a.Desired))
	if err != nil {
		// The event still points at the deleted record. Unlink it so the
		// next pass creates a record instead of cancelling the event.
		ev := *a.Event
		ev.TimeOffID = ""
		if _, unlinkErr := cal.UpdateEvent(ctx, x.calendarID, ev.ID, ev); unlinkErr != nil {
			slog.Error("Reconcile: failed to unlink event after recreate failure",
				"employee_id", emp.ID,
				"event_id", ev.ID,
				"deleted_time_off_id", a.TimeOff.ID,
				"error", unlinkErr)
		}
		return fmt.Errorf("recreate: create time-off for event %s: %w", a.Event.ID, err)
	}

	return x.writeBackLink(ctx, cal, *a.Event, created.ID)
}

func (x *Executor) writeBackLink(ctx context.Context, cal calendar.Client, ev calendar.Event, timeOffID string) error {
	ev.TimeOffID = timeOffID
	if _, err := cal.UpdateEvent(ctx, x.calendarID, ev.ID, ev); err != nil {
		return fmt.Errorf("%w: event %s, time-off %s: %w", ErrLinkWriteBack, ev.ID, timeOffID, err)
	}
	return nil
}

func (x *Executor) createRequest(emp timeoff.Employee, d DesiredTimeOff) timeoff.CreateTimeOffRequest {
	startDate, endDate, halfStart, halfEnd := timeoff.FlagsFromRange(d.Start, d.End)
	return timeoff.CreateTimeOffRequest{
		EmployeeID:   emp.ID,
		TypeID:       d.Type.ID,
		StartDate:    startDate,
		EndDate:      endDate,
		HalfDayStart: halfStart,
		HalfDayEnd:   halfEnd,
		Comment:      d.Comment,
		SkipApproval: x.registry.IsApprovalSkippable(d.Type.ID),
	}
}

// eventFromTimeOff renders a time-off as a calendar event. Whole days become
// all-day events; anything with a half-day boundary becomes a timed event.
// Out-of-office events cannot be all-day and always stay timed. base carries
// over the fields the reconciler does not own.
func (x *Executor) eventFromTimeOff(to timeoff.TimeOff, base *calendar.Event) calendar.Event {
	ev := calendar.Event{EventType: calendar.EventTypeDefault}
	if base != nil {
		ev = *base
	}

	ev.Status = calendar.EventStatusConfirmed
	ev.Summary = x.summaryFor(to)
	ev.Description = to.Comment
	ev.TimeOffID = to.ID

	wholeDays := to.Start.Hour() == 0 && to.End.Hour() == 24
	if wholeDays && !ev.IsOutOfOffice() {
		ev.Start = calendar.EventTime{Date: to.Start.Date()}
		ev.End = calendar.EventTime{Date: to.End.SwitchHour24ToMidnight().Date()}
	} else {
		ev.Start = calendar.EventTime{DateTime: to.Start.Time()}
		ev.End = calendar.EventTime{DateTime: to.End.Time()}
	}
	return ev
}

func (x *Executor) summaryFor(to timeoff.TimeOff) string {
	if to.TypeName != "" {
		return to.TypeName
	}
	if typ, ok := x.registry.ByID(to.TypeID); ok {
		return typ.Name
	}
	return "Time off"
}
