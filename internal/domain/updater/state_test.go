package updater

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"github.com/felixgeelhaar/dyna/internal/domain/plugin"
)

func TestEntryState_IsTerminal(t *testing.T) {
	t.Parallel()

	terminal := []EntryState{StateUpToDate, StateDevSkipped, StateLoaded, StateFailed}
	for _, s := range terminal {
		assert.True(t, s.IsTerminal(), s)
	}
	for _, s := range []EntryState{StatePending, StateManifestFetched, StateDownloading} {
		assert.False(t, s.IsTerminal(), s)
	}
}

func TestCycleReport(t *testing.T) {
	t.Parallel()

	start := time.Date(2026, 1, 2, 3, 4, 5, 0, time.UTC)
	report := &CycleReport{
		StartedAt:  start,
		FinishedAt: start.Add(2 * time.Second),
		Outcomes: []Outcome{
			{Record: plugin.Record{Author: "a", ID: "one"}, State: StateLoaded},
			{Record: plugin.Record{Author: "a", ID: "two"}, State: StateFailed},
			{Record: plugin.Record{Author: "b", ID: "three"}, State: StateLoaded},
		},
	}

	assert.Equal(t, 2, report.Count(StateLoaded))
	assert.Equal(t, 1, report.Count(StateFailed))
	assert.Equal(t, 0, report.Count(StateDevSkipped))
	assert.Equal(t, 2*time.Second, report.Duration())

	o, ok := report.Outcome("a/two")
	assert.True(t, ok)
	assert.Equal(t, StateFailed, o.State)

	_, ok = report.Outcome("c/none")
	assert.False(t, ok)
}
