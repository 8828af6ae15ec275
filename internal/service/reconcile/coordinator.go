package reconcile

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"math/rand/v2"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/cmlabs-hris/timeoff-sync/internal/config"
	"github.com/cmlabs-hris/timeoff-sync/internal/domain/calendar"
	"github.com/cmlabs-hris/timeoff-sync/internal/domain/timeoff"
	"github.com/cmlabs-hris/timeoff-sync/internal/pkg/failledger"
	"github.com/cmlabs-hris/timeoff-sync/internal/pkg/lock"
	"github.com/cmlabs-hris/timeoff-sync/internal/pkg/validator"
)

// RunReport summarizes one coordinator run.
type RunReport struct {
	RunID      string           `json:"run_id"`
	StartedAt  time.Time        `json:"started_at"`
	FinishedAt time.Time        `json:"finished_at"`
	Window     Window           `json:"window"`
	Employees  []EmployeeResult `json:"employees"`
	// Aborted is set when the run deadline stopped the run early.
	Aborted bool   `json:"aborted"`
	Error   string `json:"error,omitempty"`
}

// Coordinator drives a full run over every eligible employee.
type Coordinator struct {
	hr         timeoff.Client
	calendars  calendar.ClientFactory
	mutex      lock.Mutex
	ledger     *failledger.Ledger
	cfg        config.SyncConfig
	calendarID string
	now        func() time.Time
	shuffle    Shuffler

	mu   sync.RWMutex
	last *RunReport
}

type CoordinatorOption func(*Coordinator)

// WithClock replaces time.Now.
func WithClock(now func() time.Time) CoordinatorOption {
	return func(c *Coordinator) { c.now = now }
}

// WithShuffler replaces the random permutation applied to employees and
// actions.
func WithShuffler(shuffle Shuffler) CoordinatorOption {
	return func(c *Coordinator) { c.shuffle = shuffle }
}

func NewCoordinator(
	hr timeoff.Client,
	calendars calendar.ClientFactory,
	mutex lock.Mutex,
	ledger *failledger.Ledger,
	cfg config.SyncConfig,
	calendarID string,
	opts ...CoordinatorOption,
) *Coordinator {
	c := &Coordinator{
		hr:         hr,
		calendars:  calendars,
		mutex:      mutex,
		ledger:     ledger,
		cfg:        cfg,
		calendarID: calendarID,
		now:        time.Now,
		shuffle:    rand.Shuffle,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Run reconciles every eligible employee. It fails fast with
// lock.ErrConcurrentRun when another run holds the lock. Otherwise it keeps
// going past per-employee errors and returns the first one once the run ends.
func (c *Coordinator) Run(ctx context.Context) (RunReport, error) {
	report := RunReport{
		RunID:     uuid.Must(uuid.NewV7()).String(),
		StartedAt: c.now(),
		Employees: []EmployeeResult{},
	}
	logger := slog.With("run_id", report.RunID)

	err := lock.WithLock(ctx, c.mutex, c.cfg.LockTimeout, func(ctx context.Context) error {
		return c.run(ctx, logger, &report)
	})
	report.FinishedAt = c.now()
	if err != nil {
		report.Error = err.Error()
	}

	if errors.Is(err, lock.ErrConcurrentRun) {
		logger.Warn("Run skipped, lock held by another run")
		return report, err
	}

	c.mu.Lock()
	stored := report
	c.last = &stored
	c.mu.Unlock()

	logger.Info("Run finished",
		"employees", len(report.Employees),
		"aborted", report.Aborted,
		"duration", report.FinishedAt.Sub(report.StartedAt).String(),
		"error", err)
	return report, err
}

// LastReport returns the most recent run that got past the lock.
func (c *Coordinator) LastReport() (RunReport, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	if c.last == nil {
		return RunReport{}, false
	}
	return *c.last, true
}

func (c *Coordinator) run(ctx context.Context, logger *slog.Logger, report *RunReport) error {
	now := c.now()
	deadline := report.StartedAt.Add(c.cfg.RunTimeout)
	report.Window = c.window(now)
	logger.Info("Run started", "window_start", report.Window.Start, "window_end", report.Window.End, "deadline", deadline)

	types, err := c.hr.ListAbsenceTypes(ctx)
	if err != nil {
		return fmt.Errorf("list absence types: %w", err)
	}
	registry := NewRegistry(types, c.cfg.SkipApprovalBlacklist, c.cfg.OutOfOfficeType)

	all, err := c.hr.ListEmployees(ctx)
	if err != nil {
		return fmt.Errorf("list employees: %w", err)
	}
	employees := c.eligible(all)
	c.shuffle(len(employees), func(i, j int) { employees[i], employees[j] = employees[j], employees[i] })
	logger.Info("Employees loaded", "total", len(all), "eligible", len(employees))

	var prefetched map[string][]timeoff.TimeOff
	if c.cfg.PrefetchTimeOffs {
		records, err := c.hr.ListTimeOffs(ctx, report.Window.Start, report.Window.End, "")
		if err != nil {
			return fmt.Errorf("prefetch time-offs: %w", err)
		}
		prefetched = make(map[string][]timeoff.TimeOff, len(employees))
		for _, to := range records {
			prefetched[to.EmployeeID] = append(prefetched[to.EmployeeID], to)
		}
		logger.Info("Time-offs prefetched", "count", len(records))
	}

	matcher := NewMatcher(registry, c.ledger, c.cfg.DeadZone, c.cfg.UTCOffset)
	executor := NewExecutor(c.hr, registry, c.calendarID)
	reconciler := NewEmployeeReconciler(c.hr, c.calendars, matcher, executor, c.ledger,
		c.calendarID, c.cfg.MaxFailuresPerEmployee, c.now, c.shuffle)

	var firstErr error
	for _, emp := range employees {
		if ctx.Err() != nil || !c.now().Before(deadline) {
			report.Aborted = true
			logger.Warn("Run deadline reached, stopping", "processed", len(report.Employees), "eligible", len(employees))
			break
		}

		job := Job{Employee: emp, Window: report.Window, Deadline: deadline}
		if prefetched != nil {
			job.TimeOffs = prefetched[emp.ID]
			job.TimeOffsLoaded = true
		}

		result, err := reconciler.Reconcile(ctx, job)
		if err != nil {
			result.Error = err.Error()
			logger.Error("Employee reconciliation failed", "employee_id", emp.ID, "error", err)
			if firstErr == nil {
				firstErr = fmt.Errorf("employee %s: %w", emp.ID, err)
			}
		}
		report.Employees = append(report.Employees, result)

		if result.Incomplete {
			report.Aborted = true
			break
		}
	}

	return firstErr
}

// window starts lookback days before today's midnight in the configured
// offset and ends lookahead days after now.
func (c *Coordinator) window(now time.Time) Window {
	zone := time.FixedZone("", int(c.cfg.UTCOffset/time.Second))
	local := now.In(zone)
	midnight := time.Date(local.Year(), local.Month(), local.Day(), 0, 0, 0, 0, zone)
	return Window{
		Start: midnight.AddDate(0, 0, -c.cfg.LookbackDays).UTC(),
		End:   now.AddDate(0, 0, c.cfg.LookaheadDays).UTC(),
	}
}

// eligible keeps active employees with a usable email in an allowed domain.
// An explicit email allow-list narrows the set further.
func (c *Coordinator) eligible(all []timeoff.Employee) []timeoff.Employee {
	domains := make(map[string]struct{}, len(c.cfg.AllowedDomains))
	for _, d := range c.cfg.AllowedDomains {
		domains[strings.ToLower(strings.TrimPrefix(d, "@"))] = struct{}{}
	}
	emails := make(map[string]struct{}, len(c.cfg.AllowedEmails))
	for _, e := range c.cfg.AllowedEmails {
		emails[strings.ToLower(e)] = struct{}{}
	}

	out := make([]timeoff.Employee, 0, len(all))
	for _, emp := range all {
		if !emp.Active || !validator.IsValidEmail(emp.Email) {
			continue
		}
		email := strings.ToLower(emp.Email)
		if len(domains) > 0 {
			domain := email[strings.LastIndex(email, "@")+1:]
			if _, ok := domains[domain]; !ok {
				continue
			}
		}
		if len(emails) > 0 {
			if _, ok := emails[email]; !ok {
				continue
			}
		}
		out = append(out, emp)
	}
	return out
}
