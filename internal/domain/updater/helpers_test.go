package updater

import (
	"sync"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/felixgeelhaar/dyna/internal/domain/plugin"
	"github.com/felixgeelhaar/dyna/internal/domain/remote"
	"github.com/felixgeelhaar/dyna/internal/testutil/mocks"
)

const rawBase = "https://raw.githubusercontent.com"

func artifactURL(repo, file string) string {
	return rawBase + "/" + repo + "/main/" + file
}

type fixture struct {
	host      *mocks.Host
	manifests *mocks.ManifestSource
	artifacts *mocks.ArtifactSource
	sink      *mocks.ProgressSink
	notifier  *mocks.RestartNotifier
	reloader  *mocks.Reloader
	metrics   *recordingMetrics
	store     *plugin.Store
}

func newFixture(t *testing.T) *fixture {
	t.Helper()

	f := &fixture{
		host:      mocks.NewHost(),
		manifests: mocks.NewManifestSource(),
		artifacts: mocks.NewArtifactSource(),
		sink:      mocks.NewProgressSink(),
		notifier:  mocks.NewRestartNotifier(),
		reloader:  mocks.NewReloader(),
		metrics:   &recordingMetrics{},
	}
	store, err := plugin.NewStore(f.host)
	require.NoError(t, err)
	f.store = store
	return f
}

func (f *fixture) orchestrator(t *testing.T, opts ...OrchestratorOption) *Orchestrator {
	t.Helper()

	loader, err := plugin.NewLoader(f.host, nil)
	require.NoError(t, err)

	base := []OrchestratorOption{
		WithProgressSink(f.sink),
		WithRestartPolicy(NewRestartPolicy(f.notifier, f.reloader, nil)),
		WithMetrics(f.metrics),
	}
	o, err := NewOrchestrator(f.store, f.manifests, f.artifacts, loader, append(base, opts...)...)
	require.NoError(t, err)
	return o
}

func (f *fixture) deps() Dependencies {
	return Dependencies{
		Host:      f.host,
		Manifests: f.manifests,
		Artifacts: f.artifacts,
		Notifier:  f.notifier,
		Reloader:  f.reloader,
		Sink:      f.sink,
		Metrics:   f.metrics,
	}
}

// publish serves a manifest and, when an artifact body is given, the artifact.
func (f *fixture) publish(repo string, latest int, artifact string) {
	f.manifests.SetManifest(repo, remote.Manifest{Latest: latest})
	if artifact != "" {
		f.artifacts.SetBody(artifactURL(repo, remote.DefaultTarget), artifact)
	}
}

type recordingMetrics struct {
	mu      sync.Mutex
	reports []*CycleReport
}

func (m *recordingMetrics) ObserveCycle(r *CycleReport) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.reports = append(m.reports, r)
}

func (m *recordingMetrics) count() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.reports)
}
