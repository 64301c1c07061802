// Package mcp exposes the updater's debug surface as MCP tools.
package mcp

import (
	"context"
	"fmt"

	"github.com/felixgeelhaar/mcp-go"

	"github.com/felixgeelhaar/dyna/internal/domain/plugin"
	"github.com/felixgeelhaar/dyna/internal/domain/remote"
	"github.com/felixgeelhaar/dyna/internal/domain/updater"
	"github.com/felixgeelhaar/dyna/internal/validation"
)

// maxContentPreview limits how much artifact text dyna_download returns.
const maxContentPreview = 64 << 10

// EmptyInput is the input for tools without arguments.
type EmptyInput struct{}

// PluginOutput is one store record.
type PluginOutput struct {
	Key           string `json:"key"`
	Repo          string `json:"repo"`
	Forge         string `json:"forge,omitempty"`
	Target        string `json:"target,omitempty"`
	Version       int    `json:"version"`
	Dev           bool   `json:"dev"`
	ShouldRestart bool   `json:"should_restart"`
}

// PluginsOutput is the output for the dyna_plugins tool.
type PluginsOutput struct {
	Plugins []PluginOutput `json:"plugins"`
}

// SkippedOutput is a descriptor the store could not use.
type SkippedOutput struct {
	Key   string `json:"key"`
	Error string `json:"error"`
}

// RebuildOutput is the output for the dyna_rebuild tool.
type RebuildOutput struct {
	Plugins []PluginOutput  `json:"plugins"`
	Skipped []SkippedOutput `json:"skipped,omitempty"`
	Ignored int             `json:"ignored"`
}

// OutcomeOutput is the result for one plugin in a cycle.
type OutcomeOutput struct {
	Key    string   `json:"key"`
	State  string   `json:"state"`
	Latest *int     `json:"latest,omitempty"`
	URL    string   `json:"url,omitempty"`
	Error  string   `json:"error,omitempty"`
	Path   []string `json:"path"`
}

// UpdateOutput is the output for the dyna_update tool.
type UpdateOutput struct {
	CycleID          string          `json:"cycle_id"`
	Duration         string          `json:"duration"`
	Outcomes         []OutcomeOutput `json:"outcomes"`
	RestartRequested bool            `json:"restart_requested"`
	Restarted        bool            `json:"restarted"`
	Aborted          bool            `json:"aborted"`
	Error            string          `json:"error,omitempty"`
}

// DownloadInput is the input for the dyna_download tool.
type DownloadInput struct {
	URL string `json:"url" jsonschema:"required,description=Artifact URL (http or https)"`
}

// DownloadOutput is the output for the dyna_download tool.
type DownloadOutput struct {
	URL       string `json:"url"`
	Bytes     int    `json:"bytes"`
	Content   string `json:"content"`
	Truncated bool   `json:"truncated,omitempty"`
}

// ManifestInput is the input for the dyna_manifest tool.
type ManifestInput struct {
	Repo  string `json:"repo" jsonschema:"required,description=Repository in owner/name form"`
	Forge string `json:"forge,omitempty" jsonschema:"description=Forge hostname (default: GitHub raw content)"`
}

// ManifestOutput is the output for the dyna_manifest tool.
type ManifestOutput struct {
	Latest       int    `json:"latest"`
	Target       string `json:"target,omitempty"`
	ArtifactName string `json:"artifact_name"`
}

// LoadInput is the input for the dyna_load tool.
type LoadInput struct {
	Content string `json:"content" jsonschema:"required,description=Plugin artifact JSON"`
	Confirm bool   `json:"confirm" jsonschema:"required,description=Must be true to register the plugin with the host"`
}

// LoadOutput is the output for the dyna_load tool.
type LoadOutput struct {
	Loaded  bool   `json:"loaded"`
	Key     string `json:"key,omitempty"`
	Version *int   `json:"version,omitempty"`
}

// NewDebugServer creates an MCP server exposing surface.
func NewDebugServer(surface *updater.DebugSurface, version string) *mcp.Server {
	srv := mcp.NewServer(mcp.ServerInfo{
		Name:    "dyna-debug",
		Version: version,
	})
	RegisterDebugTools(srv, surface)
	return srv
}

// RegisterDebugTools registers one tool per debug surface handle.
func RegisterDebugTools(srv *mcp.Server, surface *updater.DebugSurface) {
	registerPluginsTool(srv, surface)
	registerRebuildTool(srv, surface)
	registerUpdateTool(srv, surface)
	registerDownloadTool(srv, surface)
	registerManifestTool(srv, surface)
	registerLoadTool(srv, surface)
}

func registerPluginsTool(srv *mcp.Server, surface *updater.DebugSurface) {
	srv.Tool("dyna_plugins").
		Description("List the plugins currently tracked for updates.").
		ReadOnly().
		Handler(func(_ context.Context, _ EmptyInput) (*PluginsOutput, error) {
			return &PluginsOutput{Plugins: toPluginOutputs(surface.Plugins())}, nil
		})
}

func registerRebuildTool(srv *mcp.Server, surface *updater.DebugSurface) {
	srv.Tool("dyna_rebuild").
		Description("Rescan the host plugin registry and rebuild the update store.").
		Handler(func(ctx context.Context, _ EmptyInput) (*RebuildOutput, error) {
			result := surface.RebuildStore(ctx)
			out := &RebuildOutput{
				Plugins: toPluginOutputs(result.Records),
				Ignored: result.Ignored,
			}
			for _, s := range result.Skipped {
				out.Skipped = append(out.Skipped, SkippedOutput{Key: s.Key, Error: s.Err.Error()})
			}
			return out, nil
		})
}

func registerUpdateTool(srv *mcp.Server, surface *updater.DebugSurface) {
	srv.Tool("dyna_update").
		Description("Run an update cycle now. Outdated plugins are replaced and the host may restart.").
		Destructive().
		Handler(func(ctx context.Context, _ EmptyInput) (*UpdateOutput, error) {
			report, err := surface.UpdatePlugins(ctx)
			if report == nil {
				return nil, err
			}
			out := toUpdateOutput(report)
			if err != nil {
				out.Error = err.Error()
			}
			return out, nil
		})
}

func registerDownloadTool(srv *mcp.Server, surface *updater.DebugSurface) {
	srv.Tool("dyna_download").
		Description("Download raw artifact text from a URL without loading it.").
		ReadOnly().
		Handler(func(ctx context.Context, in DownloadInput) (*DownloadOutput, error) {
			if err := validation.ValidateURL(in.URL); err != nil {
				return nil, fmt.Errorf("invalid url: %w", err)
			}
			content, err := surface.Download(ctx, in.URL)
			if err != nil {
				return nil, err
			}
			out := &DownloadOutput{URL: in.URL, Bytes: len(content), Content: content}
			if len(content) > maxContentPreview {
				out.Content = content[:maxContentPreview]
				out.Truncated = true
			}
			return out, nil
		})
}

func registerManifestTool(srv *mcp.Server, surface *updater.DebugSurface) {
	srv.Tool("dyna_manifest").
		Description("Fetch and validate the update manifest of a repository.").
		ReadOnly().
		Handler(func(ctx context.Context, in ManifestInput) (*ManifestOutput, error) {
			if err := validation.ValidateRepo(in.Repo); err != nil {
				return nil, fmt.Errorf("invalid repo: %w", err)
			}
			if err := validation.ValidateHostname(in.Forge); err != nil {
				return nil, fmt.Errorf("invalid forge: %w", err)
			}
			m, err := surface.FetchManifest(ctx, remote.Coordinates{Repo: in.Repo, Forge: in.Forge})
			if err != nil {
				return nil, err
			}
			return &ManifestOutput{Latest: m.Latest, Target: m.Target, ArtifactName: m.ArtifactName()}, nil
		})
}

func registerLoadTool(srv *mcp.Server, surface *updater.DebugSurface) {
	srv.Tool("dyna_load").
		Description("Parse plugin artifact JSON and register it with the host. REQUIRES confirm=true.").
		Destructive().
		Handler(func(ctx context.Context, in LoadInput) (*LoadOutput, error) {
			if !in.Confirm {
				return &LoadOutput{Loaded: false}, nil
			}
			obj, err := surface.LoadPlugin(ctx, in.Content)
			if err != nil {
				return nil, err
			}
			out := &LoadOutput{Loaded: true, Key: obj.Key()}
			if v, ok := obj.Version(); ok {
				out.Version = &v
			}
			return out, nil
		})
}

func toPluginOutputs(records []plugin.Record) []PluginOutput {
	out := make([]PluginOutput, 0, len(records))
	for _, r := range records {
		out = append(out, PluginOutput{
			Key:           r.Key(),
			Repo:          r.Repo,
			Forge:         r.Forge,
			Target:        r.Target,
			Version:       r.Version,
			Dev:           r.Dev,
			ShouldRestart: r.ShouldRestart,
		})
	}
	return out
}

func toUpdateOutput(report *updater.CycleReport) *UpdateOutput {
	out := &UpdateOutput{
		CycleID:          report.ID,
		Duration:         report.Duration().String(),
		Outcomes:         make([]OutcomeOutput, 0, len(report.Outcomes)),
		RestartRequested: report.RestartRequested,
		Restarted:        report.Restarted,
		Aborted:          report.Aborted,
	}
	for _, o := range report.Outcomes {
		oo := OutcomeOutput{
			Key:   o.Record.Key(),
			State: string(o.State),
			URL:   o.URL,
			Path:  make([]string, 0, len(o.Path)),
		}
		if o.Manifest != nil {
			latest := o.Manifest.Latest
			oo.Latest = &latest
		}
		if o.Err != nil {
			oo.Error = o.Err.Error()
		}
		for _, s := range o.Path {
			oo.Path = append(oo.Path, string(s))
		}
		out.Outcomes = append(out.Outcomes, oo)
	}
	return out
}
