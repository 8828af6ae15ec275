package reconcile

import (
	"time"

	"github.com/cmlabs-hris/timeoff-sync/internal/domain/calendar"
	"github.com/cmlabs-hris/timeoff-sync/internal/domain/timeoff"
	"github.com/cmlabs-hris/timeoff-sync/internal/pkg/failledger"
	"github.com/cmlabs-hris/timeoff-sync/internal/pkg/wallclock"
)

type ActionKind string

const (
	ActionDeleteTimeOff            ActionKind = "delete_time_off"
	ActionCancelEvent              ActionKind = "cancel_event"
	ActionCreateEventFromTimeOff   ActionKind = "create_event_from_time_off"
	ActionCreateTimeOffFromEvent   ActionKind = "create_time_off_from_event"
	ActionUpdateEventFromTimeOff   ActionKind = "update_event_from_time_off"
	ActionRecreateTimeOffFromEvent ActionKind = "recreate_time_off_from_event"
)

// DesiredTimeOff is what the HR record should look like according to the
// calendar event.
type DesiredTimeOff struct {
	Type    timeoff.Type
	Start   wallclock.Value
	End     wallclock.Value
	Comment string
}

// Action is one unit of reconciliation work.
//
// For ActionCreateTimeOffFromEvent a non-nil TimeOff means the record
// already exists in HR (an earlier attempt created it but could not link it)
// and only the link has to be written.
type Action struct {
	Kind    ActionKind
	Event   *calendar.Event
	TimeOff *timeoff.TimeOff
	Desired *DesiredTimeOff
}

// LedgerKey is the failure-ledger entry guarding this action, along with the
// updatedAt the entry is compared against. Actions touching a pair are keyed
// on the event and stamped with the later of the two updatedAt values, so an
// edit on either side lifts the suppression.
func (a Action) LedgerKey(employeeID string) (failledger.Key, time.Time) {
	if a.Event != nil {
		stamp := a.Event.UpdatedAt
		if a.TimeOff != nil && a.TimeOff.UpdatedAt.After(stamp) {
			stamp = a.TimeOff.UpdatedAt
		}
		return failledger.Key{EmployeeID: employeeID, Kind: failledger.KindEvent, RecordID: a.Event.ID}, stamp
	}
	return failledger.Key{EmployeeID: employeeID, Kind: failledger.KindTimeOff, RecordID: a.TimeOff.ID}, a.TimeOff.UpdatedAt
}

func (a Action) String() string {
	s := string(a.Kind)
	if a.Event != nil {
		s += " event=" + a.Event.ID
	}
	if a.TimeOff != nil {
		s += " time_off=" + a.TimeOff.ID
	}
	return s
}

type SkipReason string

const (
	SkipDeadZone      SkipReason = "dead_zone"
	SkipSuppressed    SkipReason = "suppressed"
	SkipInvalidTime   SkipReason = "invalid_time"
	SkipDuplicateLink SkipReason = "duplicate_link"
	SkipTooShort      SkipReason = "too_short"
	SkipUnknownType   SkipReason = "unknown_type"
)

// Skip records a record the matcher deliberately left alone this pass.
type Skip struct {
	Reason    SkipReason
	Action    ActionKind
	EventID   string
	TimeOffID string
	Err       error
}

type Plan struct {
	Actions []Action
	Skipped []Skip
}
