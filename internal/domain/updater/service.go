package updater

import (
	"context"
	"fmt"
	"sync"
	"sync/atomic"

	"github.com/jonboulle/clockwork"

	"github.com/felixgeelhaar/dyna/internal/domain/plugin"
	"github.com/felixgeelhaar/dyna/internal/domain/remote"
	"github.com/felixgeelhaar/dyna/internal/ports"
)

// Dependencies are the collaborators a Service is built from.
type Dependencies struct {
	Host      plugin.Host
	Manifests ManifestSource
	Artifacts ArtifactSource

	// Optional.
	Resolver remote.Resolver
	Notifier ports.RestartNotifier
	Reloader ports.Reloader
	Sink     ports.ProgressSink
	Metrics  MetricsRecorder
	Logger   ports.Logger
	Clock    clockwork.Clock
}

// Service is the updater's public surface: lifecycle, queries and the
// debug surface.
type Service struct {
	cfg          Config
	store        *plugin.Store
	loader       *plugin.Loader
	manifests    ManifestSource
	artifacts    ArtifactSource
	orchestrator *Orchestrator
	scheduler    *Scheduler
	logger       ports.Logger

	active atomic.Bool

	debugMu    sync.Mutex
	debug      *DebugSurface
	debugHooks []func(*DebugSurface)
}

// NewService wires a service. It is active from construction; Init starts
// the scheduler.
func NewService(cfg Config, deps Dependencies) (*Service, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	switch {
	case deps.Host == nil:
		return nil, fmt.Errorf("%w: host", ErrMissingDependency)
	case deps.Manifests == nil:
		return nil, fmt.Errorf("%w: manifest source", ErrMissingDependency)
	case deps.Artifacts == nil:
		return nil, fmt.Errorf("%w: artifact source", ErrMissingDependency)
	}
	if deps.Logger == nil {
		deps.Logger = ports.Discard()
	}
	if deps.Clock == nil {
		deps.Clock = clockwork.NewRealClock()
	}
	if deps.Resolver == (remote.Resolver{}) {
		deps.Resolver = remote.DefaultResolver()
	}
	if cfg.Trusted.Author == "" {
		cfg.Trusted = plugin.DefaultTrustedIdentity()
	}

	s := &Service{
		cfg:       cfg,
		manifests: deps.Manifests,
		artifacts: deps.Artifacts,
		logger:    deps.Logger,
	}
	s.active.Store(true)

	store, err := plugin.NewStore(deps.Host,
		plugin.WithStoreLogger(deps.Logger),
		plugin.WithTrustedIdentity(cfg.Trusted),
		plugin.WithDebugHook(s.installDebug),
	)
	if err != nil {
		return nil, err
	}
	s.store = store

	loader, err := plugin.NewLoader(deps.Host, deps.Logger)
	if err != nil {
		return nil, err
	}
	s.loader = loader

	s.orchestrator, err = NewOrchestrator(store, deps.Manifests, deps.Artifacts, loader,
		WithResolver(deps.Resolver),
		WithRestartPolicy(NewRestartPolicy(deps.Notifier, deps.Reloader, deps.Logger)),
		WithProgressSink(deps.Sink),
		WithMetrics(deps.Metrics),
		WithLogger(deps.Logger),
		WithClock(deps.Clock),
		WithActiveCheck(s.Active),
	)
	if err != nil {
		return nil, err
	}

	s.scheduler, err = NewScheduler(cfg,
		func(ctx context.Context) { s.store.Rebuild(ctx) },
		func(ctx context.Context) error {
			_, err := s.orchestrator.RunCycle(ctx)
			return err
		},
		WithSchedulerClock(deps.Clock),
		WithSchedulerLogger(deps.Logger),
	)
	if err != nil {
		return nil, err
	}
	return s, nil
}

// Init starts the scheduler: the store is populated after the bootstrap
// delay and the first cycle runs one interval after Init.
func (s *Service) Init(ctx context.Context) error {
	if !s.Active() {
		return ErrInactive
	}
	if err := s.scheduler.Start(ctx); err != nil {
		return err
	}
	s.logger.Info(ctx, "updater started", ports.F("interval", s.scheduler.Interval()))
	return nil
}

// Shutdown stops the scheduler, clears the store and removes the debug
// surface. A cycle in flight stops at its next entry. Calling Shutdown again
// is a no-op.
func (s *Service) Shutdown(ctx context.Context) error {
	if !s.active.CompareAndSwap(true, false) {
		return nil
	}

	err := s.scheduler.Stop(ctx)
	s.store.Clear()

	s.debugMu.Lock()
	s.debug = nil
	s.debugHooks = nil
	s.debugMu.Unlock()

	s.logger.Info(ctx, "updater stopped")
	return err
}

// Active reports whether the service has not been shut down.
func (s *Service) Active() bool {
	return s.active.Load()
}

// SetUpdateInterval changes the cycle interval in seconds. It only takes
// effect before Init.
func (s *Service) SetUpdateInterval(seconds int) error {
	if s.scheduler.State() != SchedulerStopped {
		return ErrAlreadyStarted
	}
	cfg := s.cfg
	cfg.UpdateInterval = seconds
	if err := cfg.Validate(); err != nil {
		return err
	}
	s.cfg = cfg
	s.scheduler.interval = cfg.Interval()
	return nil
}

// Config returns the effective configuration.
func (s *Service) Config() Config {
	return s.cfg
}

// Plugins returns the current store snapshot.
func (s *Service) Plugins() []plugin.Record {
	return s.store.Records()
}

// Rebuild rescans the host registry. After Shutdown it returns an empty
// result and leaves the store empty.
func (s *Service) Rebuild(ctx context.Context) *plugin.ScanResult {
	if !s.Active() {
		return &plugin.ScanResult{Records: []plugin.Record{}, Skipped: []plugin.ScanError{}}
	}
	return s.store.Rebuild(ctx)
}

// RunCycle runs an update cycle now.
func (s *Service) RunCycle(ctx context.Context) (*CycleReport, error) {
	if !s.Active() {
		return nil, ErrInactive
	}
	return s.orchestrator.RunCycle(ctx)
}

// SetProgressSink replaces the sink receiving cycle progress.
func (s *Service) SetProgressSink(sink ports.ProgressSink) {
	s.orchestrator.SetProgressSink(sink)
}

// SchedulerStatus returns a snapshot of the scheduler.
func (s *Service) SchedulerStatus() SchedulerStatus {
	return s.scheduler.Status()
}

// CheckUpdatesForPlugin reports whether a newer version of the plugin is
// published. It returns false when the plugin is up to date, unknown, in
// developer mode, or when its manifest cannot be fetched. It always returns
// false after Shutdown.
func (s *Service) CheckUpdatesForPlugin(ctx context.Context, author, id string) bool {
	if !s.Active() {
		return false
	}
	if s.store.IsEmpty() {
		s.store.Rebuild(ctx)
	}

	rec, ok := s.store.Find(author, id)
	if !ok {
		s.logger.Debug(ctx, "plugin not tracked", ports.F("author", author), ports.F("id", id))
		return false
	}
	if rec.Dev {
		return false
	}

	m, err := s.manifests.Fetch(ctx, coordinates(rec))
	if err != nil {
		s.logger.Warn(ctx, "could not check for updates", ports.F("plugin", rec.Key()), ports.Err(err))
		return false
	}
	return m.IsNewerThan(rec.Version)
}
