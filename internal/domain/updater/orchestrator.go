package updater

import (
	"context"
	"fmt"
	"sync"

	"github.com/google/uuid"
	"github.com/jonboulle/clockwork"
	"golang.org/x/sync/singleflight"

	"github.com/felixgeelhaar/dyna/internal/domain/plugin"
	"github.com/felixgeelhaar/dyna/internal/domain/remote"
	"github.com/felixgeelhaar/dyna/internal/ports"
)

// Orchestrator runs update cycles over the plugin store.
type Orchestrator struct {
	store     *plugin.Store
	manifests ManifestSource
	artifacts ArtifactSource
	loader    PluginLoader

	resolver remote.Resolver
	restart  *RestartPolicy
	metrics  MetricsRecorder
	logger   ports.Logger
	clock    clockwork.Clock
	active   func() bool

	mu   sync.RWMutex
	sink ports.ProgressSink

	group singleflight.Group
}

// OrchestratorOption configures an Orchestrator.
type OrchestratorOption func(*Orchestrator)

// WithResolver sets the resolver used for artifact URLs.
func WithResolver(r remote.Resolver) OrchestratorOption {
	return func(o *Orchestrator) {
		o.resolver = r
	}
}

// WithRestartPolicy sets the policy applied after a cycle that requested a restart.
func WithRestartPolicy(p *RestartPolicy) OrchestratorOption {
	return func(o *Orchestrator) {
		o.restart = p
	}
}

// WithProgressSink sets the sink receiving cycle progress.
func WithProgressSink(s ports.ProgressSink) OrchestratorOption {
	return func(o *Orchestrator) {
		o.sink = s
	}
}

// WithMetrics sets the recorder observing finished cycles.
func WithMetrics(m MetricsRecorder) OrchestratorOption {
	return func(o *Orchestrator) {
		o.metrics = m
	}
}

// WithLogger sets the logger.
func WithLogger(l ports.Logger) OrchestratorOption {
	return func(o *Orchestrator) {
		if l != nil {
			o.logger = l
		}
	}
}

// WithClock sets the clock used for cycle timestamps.
func WithClock(c clockwork.Clock) OrchestratorOption {
	return func(o *Orchestrator) {
		if c != nil {
			o.clock = c
		}
	}
}

// WithActiveCheck sets the function consulted between entries; a cycle stops
// early once it returns false.
func WithActiveCheck(fn func() bool) OrchestratorOption {
	return func(o *Orchestrator) {
		if fn != nil {
			o.active = fn
		}
	}
}

// NewOrchestrator creates an orchestrator.
func NewOrchestrator(store *plugin.Store, manifests ManifestSource, artifacts ArtifactSource, loader PluginLoader, opts ...OrchestratorOption) (*Orchestrator, error) {
	switch {
	case store == nil:
		return nil, fmt.Errorf("%w: store", ErrMissingDependency)
	case manifests == nil:
		return nil, fmt.Errorf("%w: manifest source", ErrMissingDependency)
	case artifacts == nil:
		return nil, fmt.Errorf("%w: artifact source", ErrMissingDependency)
	case loader == nil:
		return nil, fmt.Errorf("%w: loader", ErrMissingDependency)
	}

	o := &Orchestrator{
		store:     store,
		manifests: manifests,
		artifacts: artifacts,
		loader:    loader,
		resolver:  remote.DefaultResolver(),
		logger:    ports.Discard(),
		clock:     clockwork.NewRealClock(),
		active:    func() bool { return true },
	}
	for _, opt := range opts {
		opt(o)
	}
	return o, nil
}

// SetProgressSink replaces the progress sink used by subsequent cycles.
func (o *Orchestrator) SetProgressSink(s ports.ProgressSink) {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.sink = s
}

func (o *Orchestrator) progressSink() ports.ProgressSink {
	o.mu.RLock()
	defer o.mu.RUnlock()
	if o.sink == nil {
		return nopSink{}
	}
	return o.sink
}

// RunCycle checks every record in the store and replaces outdated plugins.
// Concurrent callers share the cycle already in flight and receive its report.
// Per-entry failures are reported as outcomes; the returned error is only set
// when the restart policy fails.
func (o *Orchestrator) RunCycle(ctx context.Context) (*CycleReport, error) {
	v, err, _ := o.group.Do("cycle", func() (interface{}, error) {
		return o.runCycle(ctx)
	})
	report, _ := v.(*CycleReport)
	return report, err
}

func (o *Orchestrator) runCycle(ctx context.Context) (*CycleReport, error) {
	report := &CycleReport{
		ID:        uuid.NewString(),
		StartedAt: o.clock.Now(),
	}
	logger := o.logger.With(ports.F("cycle", report.ID))
	sink := o.progressSink()
	defer sink.OnFinished()

	if o.store.IsEmpty() {
		o.store.Rebuild(ctx)
	}
	records := o.store.Records()
	total := len(records)
	sink.OnCountKnown(total)
	logger.Debug(ctx, "starting update cycle", ports.F("plugins", total))

	var restartFor []string
	for i, rec := range records {
		if !o.active() || ctx.Err() != nil {
			report.Aborted = true
			logger.Info(ctx, "update cycle aborted", ports.F("remaining", total-i))
			break
		}

		outcome := o.process(ctx, logger, rec)
		report.Outcomes = append(report.Outcomes, outcome)
		if outcome.State == StateLoaded && rec.ShouldRestart {
			restartFor = append(restartFor, rec.Key())
		}

		sink.OnProgress(float64(i+1) / float64(total) * 100)
	}
	if total == 0 {
		sink.OnProgress(100)
	}

	report.RestartRequested = len(restartFor) > 0

	var err error
	if report.RestartRequested && !report.Aborted && o.restart != nil {
		if err = o.restart.Apply(ctx, restartFor); err != nil {
			logger.Error(ctx, "restart failed", ports.Err(err))
			err = fmt.Errorf("applying restart policy: %w", err)
		} else {
			report.Restarted = true
		}
	}

	report.FinishedAt = o.clock.Now()
	logger.Info(ctx, "update cycle finished",
		ports.F("checked", len(report.Outcomes)),
		ports.F("loaded", report.Count(StateLoaded)),
		ports.F("failed", report.Count(StateFailed)),
		ports.F("duration", report.Duration()),
	)
	if o.metrics != nil {
		o.metrics.ObserveCycle(report)
	}
	return report, err
}

func (o *Orchestrator) process(ctx context.Context, logger ports.Logger, rec plugin.Record) Outcome {
	out := Outcome{Record: rec}
	out.transition(StatePending)
	logger = logger.With(ports.F("author", rec.Author), ports.F("id", rec.ID), ports.F("repo", rec.Repo))

	coords := coordinates(rec)
	m, err := o.manifests.Fetch(ctx, coords)
	if err != nil {
		logger.Warn(ctx, "could not determine update status", ports.Err(err))
		out.fail(err)
		return out
	}
	out.Manifest = m
	out.transition(StateManifestFetched)

	switch next := Decide(rec, m); next {
	case StateUpToDate:
		logger.Debug(ctx, "plugin is up to date", ports.F("version", rec.Version), ports.F("latest", m.Latest))
		out.transition(next)
		return out
	case StateDevSkipped:
		logger.Info(ctx, "update available but plugin is in dev mode, skipping", ports.F("latest", m.Latest))
		out.transition(next)
		return out
	}

	url, err := o.resolver.ArtifactURL(coords, artifactName(rec, m))
	if err != nil {
		logger.Warn(ctx, "invalid artifact location", ports.Err(err))
		out.fail(err)
		return out
	}
	out.URL = url
	out.transition(StateDownloading)
	logger.Info(ctx, "updating plugin", ports.F("from", rec.Version), ports.F("to", m.Latest))

	raw, err := o.artifacts.Download(ctx, url)
	if err != nil {
		logger.Warn(ctx, "could not download plugin", ports.F("url", url), ports.Err(err))
		out.fail(err)
		return out
	}

	if _, err := o.loader.Load(ctx, raw); err != nil {
		logger.Warn(ctx, "could not load plugin", ports.Err(err))
		out.fail(err)
		return out
	}

	out.transition(StateLoaded)
	return out
}

type nopSink struct{}

func (nopSink) OnCountKnown(int)                {}
func (nopSink) OnProgress(float64)              {}
func (nopSink) OnTransfer(string, int64, int64) {}
func (nopSink) OnFinished()                     {}
