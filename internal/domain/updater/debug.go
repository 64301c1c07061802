package updater

import (
	"context"

	"github.com/felixgeelhaar/dyna/internal/domain/plugin"
	"github.com/felixgeelhaar/dyna/internal/domain/remote"
)

// DebugSurface exposes pipeline internals to a trusted developer. It only
// holds function references into the running service.
type DebugSurface struct {
	// UpdatePlugins forces an update cycle.
	UpdatePlugins func(ctx context.Context) (*CycleReport, error)
	// RebuildStore forces a store rescan.
	RebuildStore func(ctx context.Context) *plugin.ScanResult
	// Download fetches raw artifact text.
	Download func(ctx context.Context, url string) (string, error)
	// FetchManifest fetches a raw manifest.
	FetchManifest func(ctx context.Context, c remote.Coordinates) (*remote.Manifest, error)
	// LoadPlugin parses and registers artifact text.
	LoadPlugin func(ctx context.Context, raw string) (plugin.Object, error)
	// Plugins returns the store snapshot.
	Plugins func() []plugin.Record
}

func (s *Service) newDebugSurface() *DebugSurface {
	return &DebugSurface{
		UpdatePlugins: s.orchestrator.RunCycle,
		RebuildStore:  s.Rebuild,
		Download:      s.artifacts.Download,
		FetchManifest: s.manifests.Fetch,
		LoadPlugin:    s.loader.Load,
		Plugins:       s.store.Records,
	}
}

// installDebug is the store's debug hook. It installs the surface at most
// once and never after shutdown.
func (s *Service) installDebug() {
	s.debugMu.Lock()
	if !s.active.Load() || s.debug != nil {
		s.debugMu.Unlock()
		return
	}
	s.debug = s.newDebugSurface()
	surface := s.debug
	hooks := append([]func(*DebugSurface){}, s.debugHooks...)
	s.debugMu.Unlock()

	s.logger.Warn(context.Background(), "developer identity detected, debug surface installed")
	for _, fn := range hooks {
		fn(surface)
	}
}

// Debug returns the installed debug surface, or nil.
func (s *Service) Debug() *DebugSurface {
	s.debugMu.Lock()
	defer s.debugMu.Unlock()
	return s.debug
}

// OnDebugInstalled registers fn to be called when the debug surface is
// installed. If it already is, fn is called immediately.
func (s *Service) OnDebugInstalled(fn func(*DebugSurface)) {
	s.debugMu.Lock()
	surface := s.debug
	if surface == nil {
		s.debugHooks = append(s.debugHooks, fn)
	}
	s.debugMu.Unlock()

	if surface != nil {
		fn(surface)
	}
}
