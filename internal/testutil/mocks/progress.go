package mocks

import (
	"sync"

	"github.com/felixgeelhaar/dyna/internal/ports"
)

// Transfer is one recorded OnTransfer call.
type Transfer struct {
	URL    string
	Loaded int64
	Total  int64
}

// ProgressSink records every notification it receives.
type ProgressSink struct {
	mu        sync.RWMutex
	counts    []int
	progress  []float64
	transfers []Transfer
	finished  int
}

// NewProgressSink creates a new ProgressSink mock.
func NewProgressSink() *ProgressSink {
	return &ProgressSink{}
}

func (m *ProgressSink) OnCountKnown(n int) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.counts = append(m.counts, n)
}

func (m *ProgressSink) OnProgress(percent float64) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.progress = append(m.progress, percent)
}

func (m *ProgressSink) OnTransfer(url string, loaded, total int64) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.transfers = append(m.transfers, Transfer{URL: url, Loaded: loaded, Total: total})
}

func (m *ProgressSink) OnFinished() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.finished++
}

// Counts returns the values passed to OnCountKnown.
func (m *ProgressSink) Counts() []int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return append([]int(nil), m.counts...)
}

// Progress returns the values passed to OnProgress.
func (m *ProgressSink) Progress() []float64 {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return append([]float64(nil), m.progress...)
}

// LastProgress returns the most recent progress value, or -1.
func (m *ProgressSink) LastProgress() float64 {
	m.mu.RLock()
	defer m.mu.RUnlock()
	if len(m.progress) == 0 {
		return -1
	}
	return m.progress[len(m.progress)-1]
}

// Transfers returns the recorded transfer notifications.
func (m *ProgressSink) Transfers() []Transfer {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return append([]Transfer(nil), m.transfers...)
}

// Finished returns how often OnFinished was called.
func (m *ProgressSink) Finished() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.finished
}

// Ensure ProgressSink implements ports.ProgressSink.
var _ ports.ProgressSink = (*ProgressSink)(nil)
