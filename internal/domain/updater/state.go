// Package updater runs the self-update pipeline: it checks every participating
// plugin against its remote manifest, replaces outdated ones and applies the
// restart policy. It also owns the scheduler and the service lifecycle.
package updater

import (
	"time"

	"github.com/felixgeelhaar/dyna/internal/domain/plugin"
	"github.com/felixgeelhaar/dyna/internal/domain/remote"
)

// EntryState is the per-plugin state within one update cycle.
type EntryState string

const (
	// StatePending is the state of an entry that has not been checked yet.
	StatePending EntryState = "pending"
	// StateManifestFetched means the remote manifest was retrieved.
	StateManifestFetched EntryState = "manifest_fetched"
	// StateUpToDate means the remote version is not newer than the local one.
	StateUpToDate EntryState = "up_to_date"
	// StateDevSkipped means an update exists but the plugin is in developer mode.
	StateDevSkipped EntryState = "dev_skipped"
	// StateDownloading means the replacement artifact is being fetched.
	StateDownloading EntryState = "downloading"
	// StateLoaded means the replacement was registered with the host.
	StateLoaded EntryState = "loaded"
	// StateFailed means the entry could not be checked or replaced.
	StateFailed EntryState = "failed"
)

// IsTerminal reports whether no further transition can follow.
func (s EntryState) IsTerminal() bool {
	switch s {
	case StateUpToDate, StateDevSkipped, StateLoaded, StateFailed:
		return true
	default:
		return false
	}
}

// Outcome is the result of processing one plugin within a cycle.
type Outcome struct {
	Record   plugin.Record
	State    EntryState
	Manifest *remote.Manifest
	// URL is the artifact URL when a download was attempted.
	URL string
	Err error
	// Path lists every state the entry passed through, in order.
	Path []EntryState
}

func (o *Outcome) transition(to EntryState) {
	o.State = to
	o.Path = append(o.Path, to)
}

func (o *Outcome) fail(err error) {
	o.Err = err
	o.transition(StateFailed)
}

// CycleReport summarizes one update cycle.
type CycleReport struct {
	ID         string
	StartedAt  time.Time
	FinishedAt time.Time
	Outcomes   []Outcome
	// RestartRequested is set when a restart-requesting plugin was replaced.
	RestartRequested bool
	// Restarted is set when the restart policy ran successfully.
	Restarted bool
	// Aborted is set when the service shut down before every entry was processed.
	Aborted bool
}

// Count returns the number of outcomes in the given state.
func (r *CycleReport) Count(state EntryState) int {
	n := 0
	for _, o := range r.Outcomes {
		if o.State == state {
			n++
		}
	}
	return n
}

// Duration returns how long the cycle took.
func (r *CycleReport) Duration() time.Duration {
	return r.FinishedAt.Sub(r.StartedAt)
}

// Outcome returns the outcome for the plugin with the given key.
func (r *CycleReport) Outcome(key string) (Outcome, bool) {
	for _, o := range r.Outcomes {
		if o.Record.Key() == key {
			return o, true
		}
	}
	return Outcome{}, false
}
