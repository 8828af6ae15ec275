package cron

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/cmlabs-hris/timeoff-sync/internal/pkg/lock"
	"github.com/cmlabs-hris/timeoff-sync/internal/service/reconcile"
)

func TestScheduler_RunsImmediatelyAndOnInterval(t *testing.T) {
	s := NewScheduler(context.Background())
	var calls atomic.Int32
	s.AddJob("tick", 10*time.Millisecond, func(context.Context) error {
		calls.Add(1)
		return nil
	})

	s.Start()
	assert.Eventually(t, func() bool { return calls.Load() >= 3 }, time.Second, 5*time.Millisecond)
	s.Stop()

	stopped := calls.Load()
	time.Sleep(30 * time.Millisecond)
	assert.Equal(t, stopped, calls.Load(), "no runs after Stop")
}

func TestScheduler_SkipsOverlappingRuns(t *testing.T) {
	s := NewScheduler(context.Background())
	release := make(chan struct{})
	var inFlight, maxInFlight, calls atomic.Int32
	s.AddJob("slow", time.Hour, func(context.Context) error {
		calls.Add(1)
		n := inFlight.Add(1)
		defer inFlight.Add(-1)
		if n > maxInFlight.Load() {
			maxInFlight.Store(n)
		}
		<-release
		return nil
	})

	done := make(chan error, 1)
	go func() { done <- s.RunOnce(context.Background()) }()
	require.Eventually(t, func() bool { return calls.Load() == 1 }, time.Second, time.Millisecond)

	require.NoError(t, s.RunOnce(context.Background()), "skipped tick is not an error")
	close(release)
	require.NoError(t, <-done)

	assert.Equal(t, int32(1), calls.Load())
	assert.Equal(t, int32(1), maxInFlight.Load())
}

func TestScheduler_RunOnceReturnsFirstError(t *testing.T) {
	s := NewScheduler(context.Background())
	first := errors.New("first")
	var ran []string
	s.AddJob("a", time.Hour, func(context.Context) error { ran = append(ran, "a"); return first })
	s.AddJob("b", time.Hour, func(context.Context) error { ran = append(ran, "b"); return errors.New("second") })

	err := s.RunOnce(context.Background())

	assert.ErrorIs(t, err, first)
	assert.Equal(t, []string{"a", "b"}, ran)
}

func TestScheduler_ParentCancelStopsJobs(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	s := NewScheduler(ctx)
	var gotCancel atomic.Bool
	s.AddJob("wait", time.Hour, func(ctx context.Context) error {
		<-ctx.Done()
		gotCancel.Store(true)
		return ctx.Err()
	})

	s.Start()
	cancel()
	s.Stop()
	assert.True(t, gotCancel.Load())
}

type fakeRunner struct {
	report reconcile.RunReport
	err    error
	calls  int
}

func (f *fakeRunner) Run(context.Context) (reconcile.RunReport, error) {
	f.calls++
	return f.report, f.err
}

func TestSyncJobs(t *testing.T) {
	t.Run("concurrent run is not an error", func(t *testing.T) {
		runner := &fakeRunner{err: lock.ErrConcurrentRun}
		assert.NoError(t, NewSyncJobs(runner, time.Minute).ReconcileTimeOffs(context.Background()))
	})

	t.Run("run error is returned", func(t *testing.T) {
		boom := errors.New("boom")
		runner := &fakeRunner{
			report: reconcile.RunReport{Employees: []reconcile.EmployeeResult{{EmployeeID: "e-1", Failed: 1}}},
			err:    boom,
		}
		assert.ErrorIs(t, NewSyncJobs(runner, time.Minute).ReconcileTimeOffs(context.Background()), boom)
	})

	t.Run("registers on the scheduler", func(t *testing.T) {
		runner := &fakeRunner{}
		s := NewScheduler(context.Background())
		NewSyncJobs(runner, time.Minute).RegisterJobs(s)

		require.NoError(t, s.RunOnce(context.Background()))
		assert.Equal(t, 1, runner.calls)
		require.Len(t, s.jobs, 1)
		assert.Equal(t, "reconcile_time_offs", s.jobs[0].Name)
		assert.Equal(t, time.Minute, s.jobs[0].Interval)
	})
}
