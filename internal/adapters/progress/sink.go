// Package progress provides progress sinks that do not need a terminal.
package progress

import (
	"context"
	"sync"

	"github.com/felixgeelhaar/dyna/internal/ports"
)

// NopSink discards every notification.
type NopSink struct{}

// OnCountKnown implements ports.ProgressSink.
func (NopSink) OnCountKnown(int) {}

// OnProgress implements ports.ProgressSink.
func (NopSink) OnProgress(float64) {}

// OnTransfer implements ports.ProgressSink.
func (NopSink) OnTransfer(string, int64, int64) {}

// OnFinished implements ports.ProgressSink.
func (NopSink) OnFinished() {}

// LogSink writes cycle progress as log entries. Per-byte transfer updates
// are logged at debug level only when a download completes.
type LogSink struct {
	mu     sync.Mutex
	logger ports.Logger
	total  int
	last   float64
}

// NewLogSink creates a sink logging through logger.
func NewLogSink(logger ports.Logger) *LogSink {
	if logger == nil {
		logger = ports.Discard()
	}
	return &LogSink{logger: logger}
}

// OnCountKnown implements ports.ProgressSink.
func (s *LogSink) OnCountKnown(n int) {
	s.mu.Lock()
	s.total = n
	s.last = 0
	s.mu.Unlock()
	s.logger.Info(context.Background(), "checking plugins for updates", ports.F("count", n))
}

// OnProgress implements ports.ProgressSink.
func (s *LogSink) OnProgress(percent float64) {
	s.mu.Lock()
	if percent <= s.last {
		s.mu.Unlock()
		return
	}
	s.last = percent
	s.mu.Unlock()
	s.logger.Debug(context.Background(), "update progress", ports.F("percent", percent))
}

// OnTransfer implements ports.ProgressSink.
func (s *LogSink) OnTransfer(url string, loaded, total int64) {
	if loaded < total {
		return
	}
	s.logger.Debug(context.Background(), "artifact received", ports.F("url", url), ports.F("bytes", total))
}

// OnFinished implements ports.ProgressSink.
func (s *LogSink) OnFinished() {
	s.mu.Lock()
	total := s.total
	s.mu.Unlock()
	s.logger.Info(context.Background(), "update check finished", ports.F("count", total))
}

// Fanout forwards every notification to each sink in order.
type Fanout []ports.ProgressSink

// NewFanout drops nil sinks.
func NewFanout(sinks ...ports.ProgressSink) Fanout {
	out := make(Fanout, 0, len(sinks))
	for _, s := range sinks {
		if s != nil {
			out = append(out, s)
		}
	}
	return out
}

// OnCountKnown implements ports.ProgressSink.
func (f Fanout) OnCountKnown(n int) {
	for _, s := range f {
		s.OnCountKnown(n)
	}
}

// OnProgress implements ports.ProgressSink.
func (f Fanout) OnProgress(percent float64) {
	for _, s := range f {
		s.OnProgress(percent)
	}
}

// OnTransfer implements ports.ProgressSink.
func (f Fanout) OnTransfer(url string, loaded, total int64) {
	for _, s := range f {
		s.OnTransfer(url, loaded, total)
	}
}

// OnFinished implements ports.ProgressSink.
func (f Fanout) OnFinished() {
	for _, s := range f {
		s.OnFinished()
	}
}

var (
	_ ports.ProgressSink = NopSink{}
	_ ports.ProgressSink = (*LogSink)(nil)
	_ ports.ProgressSink = Fanout(nil)
)
