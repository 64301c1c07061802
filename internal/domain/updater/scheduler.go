package updater

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/felixgeelhaar/statekit"
	"github.com/jonboulle/clockwork"

	"github.com/felixgeelhaar/dyna/internal/ports"
)

// SchedulerState represents the scheduler's lifecycle state.
type SchedulerState string

const (
	// SchedulerStopped indicates the scheduler is not running.
	SchedulerStopped SchedulerState = "stopped"
	// SchedulerStarting indicates the scheduler waits for the bootstrap scan.
	SchedulerStarting SchedulerState = "starting"
	// SchedulerRunning indicates the scheduler waits for the next cycle.
	SchedulerRunning SchedulerState = "running"
	// SchedulerCycling indicates an update cycle is in progress.
	SchedulerCycling SchedulerState = "cycling"
)

// Event types for the scheduler state machine.
const (
	EventStart         = "START"
	EventBootstrapped  = "BOOTSTRAPPED"
	EventTick          = "TICK"
	EventCycleComplete = "CYCLE_COMPLETE"
	EventStop          = "STOP"
)

// SchedulerContext is the statekit context of the scheduler machine.
type SchedulerContext struct {
	StartedAt   time.Time
	LastCycleAt time.Time
	CycleCount  int
	ErrorCount  int
	LastError   error
}

// schedulerRuntime wraps SchedulerContext with thread-safe access.
type schedulerRuntime struct {
	mu  sync.RWMutex
	ctx SchedulerContext
}

func (r *schedulerRuntime) recordStart(now time.Time) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.ctx.StartedAt = now
}

func (r *schedulerRuntime) recordCycle(now time.Time, err error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.ctx.LastCycleAt = now
	r.ctx.CycleCount++
	if err != nil {
		r.ctx.ErrorCount++
		r.ctx.LastError = err
	}
}

func (r *schedulerRuntime) snapshot() SchedulerContext {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.ctx
}

// SchedulerStatus is a snapshot of the scheduler.
type SchedulerStatus struct {
	State       SchedulerState `json:"state"`
	StartedAt   time.Time      `json:"started_at,omitempty"`
	LastCycleAt time.Time      `json:"last_cycle_at,omitempty"`
	NextCycleAt time.Time      `json:"next_cycle_at,omitempty"`
	CycleCount  int            `json:"cycle_count"`
	ErrorCount  int            `json:"error_count"`
	LastError   string         `json:"last_error,omitempty"`
}

// Scheduler triggers the bootstrap scan once after a delay and update
// cycles on a fixed interval.
type Scheduler struct {
	interval  time.Duration
	bootstrap time.Duration
	onBoot    func(ctx context.Context)
	onCycle   func(ctx context.Context) error
	clock     clockwork.Clock
	logger    ports.Logger
	runtime   *schedulerRuntime

	mu        sync.Mutex
	interp    *statekit.Interpreter[SchedulerContext]
	cancel    context.CancelFunc
	stopCh    chan struct{}
	stoppedCh chan struct{}
}

// SchedulerOption configures a Scheduler.
type SchedulerOption func(*Scheduler)

// WithSchedulerClock sets the clock driving timers.
func WithSchedulerClock(c clockwork.Clock) SchedulerOption {
	return func(s *Scheduler) {
		if c != nil {
			s.clock = c
		}
	}
}

// WithSchedulerLogger sets the scheduler logger.
func WithSchedulerLogger(l ports.Logger) SchedulerOption {
	return func(s *Scheduler) {
		if l != nil {
			s.logger = l
		}
	}
}

// NewScheduler creates a scheduler calling boot once after the bootstrap
// delay and cycle on every interval tick.
func NewScheduler(cfg Config, boot func(context.Context), cycle func(context.Context) error, opts ...SchedulerOption) (*Scheduler, error) {
	if boot == nil || cycle == nil {
		return nil, fmt.Errorf("%w: scheduler callbacks", ErrMissingDependency)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	s := &Scheduler{
		interval:  cfg.Interval(),
		bootstrap: cfg.Bootstrap(),
		onBoot:    boot,
		onCycle:   cycle,
		clock:     clockwork.NewRealClock(),
		logger:    ports.Discard(),
		runtime:   &schedulerRuntime{},
	}
	for _, opt := range opts {
		opt(s)
	}
	return s, nil
}

// buildSchedulerMachine constructs the scheduler state machine.
func buildSchedulerMachine(runtime *schedulerRuntime, clock clockwork.Clock) (*statekit.Interpreter[SchedulerContext], error) {
	machine, err := statekit.NewMachine[SchedulerContext]("dyna-scheduler").
		WithInitial("stopped").
		WithContext(runtime.snapshot()).
		WithAction("recordStart", func(_ *SchedulerContext, _ statekit.Event) {
			runtime.recordStart(clock.Now())
		}).
		State("stopped").
		On(EventStart).Target("starting").Done().
		State("starting").
		OnEntry("recordStart").
		On(EventBootstrapped).Target("running").
		On(EventStop).Target("stopped").Done().
		State("running").
		On(EventTick).Target("cycling").
		On(EventStop).Target("stopped").Done().
		State("cycling").
		On(EventCycleComplete).Target("running").
		On(EventStop).Target("stopped").Done().
		Build()
	if err != nil {
		return nil, err
	}
	return statekit.NewInterpreter(machine), nil
}

// Start arms the bootstrap timer and the interval ticker together.
func (s *Scheduler) Start(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.interp != nil {
		return ErrAlreadyStarted
	}

	interp, err := buildSchedulerMachine(s.runtime, s.clock)
	if err != nil {
		return fmt.Errorf("failed to build state machine: %w", err)
	}
	s.interp = interp
	s.stopCh = make(chan struct{})
	s.stoppedCh = make(chan struct{})

	loopCtx, cancel := context.WithCancel(ctx)
	s.cancel = cancel

	s.interp.Start()
	s.interp.Send(statekit.Event{Type: EventStart})

	go s.loop(loopCtx, s.stopCh, s.stoppedCh)
	s.logger.Debug(ctx, "scheduler started",
		ports.F("interval", s.interval),
		ports.F("bootstrap", s.bootstrap),
	)
	return nil
}

// Stop halts the scheduler and waits for an in-flight cycle to return.
// Stopping a stopped scheduler is a no-op.
func (s *Scheduler) Stop(ctx context.Context) error {
	s.mu.Lock()
	interp := s.interp
	if interp == nil {
		s.mu.Unlock()
		return nil
	}
	stopCh, stoppedCh, cancel := s.stopCh, s.stoppedCh, s.cancel
	select {
	case <-stopCh:
	default:
		close(stopCh)
	}
	interp.Send(statekit.Event{Type: EventStop})
	s.mu.Unlock()

	cancel()

	select {
	case <-stoppedCh:
	case <-ctx.Done():
		return ctx.Err()
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if s.interp == interp {
		interp.Stop()
		s.interp = nil
	}
	return nil
}

// State returns the current state.
func (s *Scheduler) State() SchedulerState {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.interp == nil {
		return SchedulerStopped
	}
	return SchedulerState(s.interp.State().Value)
}

// Status returns a snapshot of the scheduler.
func (s *Scheduler) Status() SchedulerStatus {
	rc := s.runtime.snapshot()
	status := SchedulerStatus{
		State:       s.State(),
		StartedAt:   rc.StartedAt,
		LastCycleAt: rc.LastCycleAt,
		CycleCount:  rc.CycleCount,
		ErrorCount:  rc.ErrorCount,
	}
	if rc.LastError != nil {
		status.LastError = rc.LastError.Error()
	}
	if status.State == SchedulerRunning || status.State == SchedulerCycling {
		if !rc.LastCycleAt.IsZero() {
			status.NextCycleAt = rc.LastCycleAt.Add(s.interval)
		} else {
			status.NextCycleAt = rc.StartedAt.Add(s.interval)
		}
	}
	return status
}

// Interval returns the cycle interval.
func (s *Scheduler) Interval() time.Duration {
	return s.interval
}

func (s *Scheduler) send(event string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.interp != nil {
		s.interp.Send(statekit.Event{Type: statekit.EventType(event)})
	}
}

func (s *Scheduler) loop(ctx context.Context, stopCh <-chan struct{}, stoppedCh chan<- struct{}) {
	defer close(stoppedCh)

	// Both timers start together; ticks before bootstrap are dropped.
	timer := s.clock.NewTimer(s.bootstrap)
	defer timer.Stop()
	ticker := s.clock.NewTicker(s.interval)
	defer ticker.Stop()

	bootCh := timer.Chan()
	for {
		select {
		case <-ctx.Done():
			return
		case <-stopCh:
			return
		case <-bootCh:
			bootCh = nil
			s.onBoot(ctx)
			s.send(EventBootstrapped)
		case <-ticker.Chan():
			s.tick(ctx)
		}
	}
}

func (s *Scheduler) tick(ctx context.Context) {
	if s.State() != SchedulerRunning {
		return
	}
	s.send(EventTick)

	err := s.onCycle(ctx)
	s.runtime.recordCycle(s.clock.Now(), err)
	if err != nil {
		s.logger.Error(ctx, "update cycle failed", ports.Err(err))
	}

	s.send(EventCycleComplete)
}
