package reconcile

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/cmlabs-hris/timeoff-sync/internal/domain/calendar"
	"github.com/cmlabs-hris/timeoff-sync/internal/domain/timeoff"
	"github.com/cmlabs-hris/timeoff-sync/internal/pkg/failledger"
)

type State string

const (
	StateFetching State = "fetching"
	StateMatching State = "matching"
	StateApplying State = "applying"
	StateDone     State = "done"
	// StateHalted means the failure ceiling stopped this employee's pass.
	StateHalted  State = "halted"
	StateAborted State = "aborted"
)

// Window is the time range fetched from both systems.
type Window struct {
	Start time.Time `json:"start"`
	End   time.Time `json:"end"`
}

// Job is one employee's share of a run.
type Job struct {
	Employee timeoff.Employee
	Window   Window
	Deadline time.Time
	// TimeOffs holds the employee's records when the run prefetched them.
	TimeOffs       []timeoff.TimeOff
	TimeOffsLoaded bool
}

type EmployeeResult struct {
	EmployeeID string `json:"employee_id"`
	State      State  `json:"state"`
	Planned    int    `json:"planned"`
	Applied    int    `json:"applied"`
	Failed     int    `json:"failed"`
	Skipped    int    `json:"skipped"`
	// Incomplete is set when the deadline cut the pass short.
	Incomplete bool   `json:"incomplete"`
	Error      string `json:"error,omitempty"`
}

// Shuffler permutes n items in place through swap.
type Shuffler func(n int, swap func(i, j int))

// EmployeeReconciler runs one employee through fetch, match and apply.
type EmployeeReconciler struct {
	hr          timeoff.Client
	calendars   calendar.ClientFactory
	matcher     *Matcher
	executor    *Executor
	ledger      *failledger.Ledger
	calendarID  string
	maxFailures int
	now         func() time.Time
	shuffle     Shuffler
}

func NewEmployeeReconciler(
	hr timeoff.Client,
	calendars calendar.ClientFactory,
	matcher *Matcher,
	executor *Executor,
	ledger *failledger.Ledger,
	calendarID string,
	maxFailures int,
	now func() time.Time,
	shuffle Shuffler,
) *EmployeeReconciler {
	return &EmployeeReconciler{
		hr:          hr,
		calendars:   calendars,
		matcher:     matcher,
		executor:    executor,
		ledger:      ledger,
		calendarID:  calendarID,
		maxFailures: maxFailures,
		now:         now,
		shuffle:     shuffle,
	}
}

// Reconcile returns an error only for failures that prevent the employee
// from being processed at all. Action failures are counted, logged and put
// in the failure ledger.
func (r *EmployeeReconciler) Reconcile(ctx context.Context, job Job) (EmployeeResult, error) {
	emp := job.Employee
	result := EmployeeResult{EmployeeID: emp.ID, State: StateFetching}

	cal, err := r.calendars.ForEmployee(ctx, emp.Email)
	if err != nil {
		return result, fmt.Errorf("calendar access for %s: %w", emp.Email, err)
	}
	events, err := cal.ListEvents(ctx, r.calendarID, job.Window.Start, job.Window.End)
	if err != nil {
		return result, fmt.Errorf("list events for %s: %w", emp.Email, err)
	}
	timeOffs := job.TimeOffs
	if !job.TimeOffsLoaded {
		timeOffs, err = r.hr.ListTimeOffs(ctx, job.Window.Start, job.Window.End, emp.ID)
		if err != nil {
			return result, fmt.Errorf("list time-offs for employee %s: %w", emp.ID, err)
		}
	}

	result.State = StateMatching
	plan := r.matcher.Match(ctx, MatchInput{
		Employee: emp,
		Events:   events,
		TimeOffs: timeOffs,
		Now:      r.now(),
	})
	result.Planned = len(plan.Actions)
	result.Skipped = len(plan.Skipped)
	for _, s := range plan.Skipped {
		slog.Debug("Reconcile: skipped record",
			"employee_id", emp.ID,
			"reason", s.Reason,
			"action", s.Action,
			"event_id", s.EventID,
			"time_off_id", s.TimeOffID,
			"error", s.Err)
	}

	result.State = StateApplying
	actions := plan.Actions
	r.shuffle(len(actions), func(i, j int) { actions[i], actions[j] = actions[j], actions[i] })

	for _, action := range actions {
		if ctx.Err() != nil || !r.now().Before(job.Deadline) {
			result.State = StateAborted
			result.Incomplete = true
			slog.Warn("Reconcile: deadline reached, stopping employee",
				"employee_id", emp.ID,
				"applied", result.Applied,
				"remaining", result.Planned-result.Applied-result.Failed)
			return result, nil
		}

		key, stamp := action.LedgerKey(emp.ID)
		if err := r.executor.Apply(ctx, cal, emp, action); err != nil {
			result.Failed++
			r.ledger.RecordFailure(ctx, key, stamp)
			slog.Error("Reconcile: action failed",
				"employee_id", emp.ID,
				"action", action.Kind,
				"target", action.String(),
				"error", err)

			if result.Failed >= r.maxFailures {
				result.State = StateHalted
				slog.Warn("Reconcile: failure ceiling reached, skipping rest of employee",
					"employee_id", emp.ID,
					"failed", result.Failed)
				return result, nil
			}
			continue
		}

		r.ledger.Clear(ctx, key)
		result.Applied++
		slog.Info("Reconcile: action applied", "employee_id", emp.ID, "action", action.Kind, "target", action.String())
	}

	result.State = StateDone
	return result, nil
}
