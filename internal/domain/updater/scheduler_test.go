package updater

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"
	"time"

	"github.com/jonboulle/clockwork"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type schedulerProbe struct {
	boots  chan struct{}
	cycles chan struct{}
	fail   atomic.Bool
}

func newSchedulerProbe() *schedulerProbe {
	return &schedulerProbe{
		boots:  make(chan struct{}, 4),
		cycles: make(chan struct{}, 4),
	}
}

func (p *schedulerProbe) boot(context.Context) {
	p.boots <- struct{}{}
}

func (p *schedulerProbe) cycle(context.Context) error {
	p.cycles <- struct{}{}
	if p.fail.Load() {
		return errors.New("restart failed")
	}
	return nil
}

func waitFor(t *testing.T, ch <-chan struct{}, what string) {
	t.Helper()
	select {
	case <-ch:
	case <-time.After(2 * time.Second):
		t.Fatalf("timed out waiting for %s", what)
	}
}

func blockUntil(t *testing.T, clock *clockwork.FakeClock, n int) {
	t.Helper()
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	require.NoError(t, clock.BlockUntilContext(ctx, n))
}

func TestNewScheduler(t *testing.T) {
	t.Parallel()

	probe := newSchedulerProbe()

	_, err := NewScheduler(DefaultConfig(), nil, probe.cycle)
	assert.ErrorIs(t, err, ErrMissingDependency)

	_, err = NewScheduler(Config{UpdateInterval: -5}, probe.boot, probe.cycle)
	assert.Error(t, err)

	s, err := NewScheduler(Config{}, probe.boot, probe.cycle)
	require.NoError(t, err)
	assert.Equal(t, time.Hour, s.Interval())
	assert.Equal(t, SchedulerStopped, s.State())
}

func TestScheduler_BootstrapThenInterval(t *testing.T) {
	t.Parallel()

	clock := clockwork.NewFakeClock()
	probe := newSchedulerProbe()
	s, err := NewScheduler(Config{UpdateInterval: 60, BootstrapDelay: 500 * time.Millisecond},
		probe.boot, probe.cycle, WithSchedulerClock(clock))
	require.NoError(t, err)

	require.NoError(t, s.Start(context.Background()))
	defer func() { _ = s.Stop(context.Background()) }()
	assert.Equal(t, SchedulerStarting, s.State())
	assert.ErrorIs(t, s.Start(context.Background()), ErrAlreadyStarted)

	blockUntil(t, clock, 2)
	clock.Advance(499 * time.Millisecond)
	select {
	case <-probe.boots:
		t.Fatal("bootstrap ran before its delay")
	case <-time.After(20 * time.Millisecond):
	}

	clock.Advance(time.Millisecond)
	waitFor(t, probe.boots, "bootstrap")
	assert.Eventually(t, func() bool { return s.State() == SchedulerRunning }, time.Second, 5*time.Millisecond)
	assert.Equal(t, s.Status().StartedAt.Add(60*time.Second), s.Status().NextCycleAt)

	// The interval counts from Start, not from the bootstrap scan.
	assert.Empty(t, probe.cycles)
	clock.Advance(60*time.Second - 500*time.Millisecond)
	waitFor(t, probe.cycles, "first cycle")

	assert.Eventually(t, func() bool { return s.Status().CycleCount == 1 }, time.Second, 5*time.Millisecond)

	clock.Advance(60 * time.Second)
	waitFor(t, probe.cycles, "second cycle")
	assert.Eventually(t, func() bool { return s.Status().CycleCount == 2 }, time.Second, 5*time.Millisecond)

	status := s.Status()
	assert.Equal(t, 0, status.ErrorCount)
	assert.False(t, status.StartedAt.IsZero())
	assert.Equal(t, status.LastCycleAt.Add(60*time.Second), status.NextCycleAt)
}

func TestScheduler_TickBeforeBootstrapIsDropped(t *testing.T) {
	t.Parallel()

	clock := clockwork.NewFakeClock()
	probe := newSchedulerProbe()
	s, err := NewScheduler(Config{UpdateInterval: 1, BootstrapDelay: 1500 * time.Millisecond},
		probe.boot, probe.cycle, WithSchedulerClock(clock))
	require.NoError(t, err)
	require.NoError(t, s.Start(context.Background()))
	defer func() { _ = s.Stop(context.Background()) }()

	blockUntil(t, clock, 2)
	clock.Advance(time.Second)
	select {
	case <-probe.cycles:
		t.Fatal("cycle ran before bootstrap")
	case <-time.After(20 * time.Millisecond):
	}
	assert.Equal(t, SchedulerStarting, s.State())

	clock.Advance(500 * time.Millisecond)
	waitFor(t, probe.boots, "bootstrap")
	assert.Eventually(t, func() bool { return s.State() == SchedulerRunning }, time.Second, 5*time.Millisecond)

	clock.Advance(500 * time.Millisecond)
	waitFor(t, probe.cycles, "first cycle after bootstrap")
	assert.Eventually(t, func() bool { return s.Status().CycleCount == 1 }, time.Second, 5*time.Millisecond)
}

func TestScheduler_RecordsCycleErrors(t *testing.T) {
	t.Parallel()

	clock := clockwork.NewFakeClock()
	probe := newSchedulerProbe()
	probe.fail.Store(true)
	s, err := NewScheduler(Config{UpdateInterval: 1, BootstrapDelay: time.Millisecond},
		probe.boot, probe.cycle, WithSchedulerClock(clock))
	require.NoError(t, err)
	require.NoError(t, s.Start(context.Background()))
	defer func() { _ = s.Stop(context.Background()) }()

	blockUntil(t, clock, 2)
	clock.Advance(time.Millisecond)
	waitFor(t, probe.boots, "bootstrap")
	assert.Eventually(t, func() bool { return s.State() == SchedulerRunning }, time.Second, 5*time.Millisecond)

	clock.Advance(time.Second - time.Millisecond)
	waitFor(t, probe.cycles, "cycle")

	assert.Eventually(t, func() bool { return s.Status().ErrorCount == 1 }, time.Second, 5*time.Millisecond)
	assert.Equal(t, "restart failed", s.Status().LastError)
	assert.Eventually(t, func() bool { return s.State() == SchedulerRunning }, time.Second, 5*time.Millisecond)
}

func TestScheduler_StopBeforeBootstrap(t *testing.T) {
	t.Parallel()

	clock := clockwork.NewFakeClock()
	probe := newSchedulerProbe()
	s, err := NewScheduler(DefaultConfig(), probe.boot, probe.cycle, WithSchedulerClock(clock))
	require.NoError(t, err)

	require.NoError(t, s.Start(context.Background()))
	blockUntil(t, clock, 2)

	require.NoError(t, s.Stop(context.Background()))
	assert.Equal(t, SchedulerStopped, s.State())

	clock.Advance(time.Hour)
	assert.Empty(t, probe.boots)
	assert.Empty(t, probe.cycles)

	// Stopping again is a no-op.
	require.NoError(t, s.Stop(context.Background()))
}

func TestScheduler_Restart(t *testing.T) {
	t.Parallel()

	clock := clockwork.NewFakeClock()
	probe := newSchedulerProbe()
	s, err := NewScheduler(DefaultConfig(), probe.boot, probe.cycle, WithSchedulerClock(clock))
	require.NoError(t, err)

	require.NoError(t, s.Start(context.Background()))
	require.NoError(t, s.Stop(context.Background()))
	require.NoError(t, s.Start(context.Background()))
	defer func() { _ = s.Stop(context.Background()) }()

	blockUntil(t, clock, 2)
	clock.Advance(DefaultBootstrapDelay)
	waitFor(t, probe.boots, "bootstrap after restart")
}

func TestScheduler_StopWaitsForCycle(t *testing.T) {
	t.Parallel()

	clock := clockwork.NewFakeClock()
	entered := make(chan struct{})
	var finished atomic.Bool
	s, err := NewScheduler(Config{UpdateInterval: 1, BootstrapDelay: time.Millisecond},
		func(context.Context) {},
		func(ctx context.Context) error {
			close(entered)
			<-ctx.Done()
			finished.Store(true)
			return ctx.Err()
		},
		WithSchedulerClock(clock))
	require.NoError(t, err)
	require.NoError(t, s.Start(context.Background()))

	blockUntil(t, clock, 2)
	clock.Advance(time.Millisecond)
	assert.Eventually(t, func() bool { return s.State() == SchedulerRunning }, time.Second, 5*time.Millisecond)
	clock.Advance(time.Second - time.Millisecond)
	waitFor(t, entered, "cycle start")
	assert.Equal(t, SchedulerCycling, s.State())

	require.NoError(t, s.Stop(context.Background()))
	assert.True(t, finished.Load())
	assert.Equal(t, SchedulerStopped, s.State())
}
