package tui

import (
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"github.com/felixgeelhaar/dyna/internal/domain/plugin"
	"github.com/felixgeelhaar/dyna/internal/domain/remote"
	"github.com/felixgeelhaar/dyna/internal/domain/updater"
)

func TestStateLabel(t *testing.T) {
	t.Parallel()

	assert.Equal(t, "Up To Date", StateLabel(updater.StateUpToDate))
	assert.Equal(t, "Dev Skipped", StateLabel(updater.StateDevSkipped))
	assert.Equal(t, "Loaded", StateLabel(updater.StateLoaded))
}

func TestRenderPlugins(t *testing.T) {
	t.Parallel()

	t.Run("empty", func(t *testing.T) {
		t.Parallel()
		assert.Contains(t, RenderPlugins(nil), "No plugins use dyna.")
	})

	t.Run("records", func(t *testing.T) {
		t.Parallel()
		out := RenderPlugins([]plugin.Record{
			{Author: "amy", ID: "theme", Repo: "amy/theme", Version: 3},
			{Author: "bob", ID: "tabs", Repo: "bob/tabs", Forge: "codeberg.org", Version: 1, Dev: true, ShouldRestart: true},
		})
		assert.Contains(t, out, "PLUGIN")
		assert.Contains(t, out, "amy/theme")
		assert.Contains(t, out, "codeberg.org/bob/tabs")
		assert.Contains(t, out, "dev,restart")
	})
}

func TestRenderReport(t *testing.T) {
	t.Parallel()

	t.Run("empty", func(t *testing.T) {
		t.Parallel()
		assert.Contains(t, RenderReport(nil), "No plugins were checked.")
	})

	t.Run("outcomes", func(t *testing.T) {
		t.Parallel()
		start := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
		out := RenderReport(&updater.CycleReport{
			StartedAt:  start,
			FinishedAt: start.Add(1500 * time.Millisecond),
			Outcomes: []updater.Outcome{
				{Record: plugin.Record{Author: "amy", ID: "theme", Version: 1}, State: updater.StateLoaded, Manifest: &remote.Manifest{Latest: 2}},
				{Record: plugin.Record{Author: "bob", ID: "tabs", Version: 4}, State: updater.StateUpToDate, Manifest: &remote.Manifest{Latest: 4}},
				{Record: plugin.Record{Author: "cat", ID: "nav", Version: 1}, State: updater.StateFailed, Err: errors.New("manifest unavailable")},
			},
			RestartRequested: true,
		})
		assert.Contains(t, out, "1 → 2")
		assert.Contains(t, out, "Up To Date")
		assert.Contains(t, out, "latest 4")
		assert.Contains(t, out, "manifest unavailable")
		assert.Contains(t, out, "1 loaded, 1 up to date, 0 skipped, 1 failed in 1.5s")
		assert.Contains(t, out, "restart was requested")
	})
}
