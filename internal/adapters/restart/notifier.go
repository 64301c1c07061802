// Package restart provides adapters that warn the user about a host restart
// and carry the restart out.
package restart

import (
	"context"
	"fmt"
	"io"
	"os"
	"strings"
	"sync"
	"time"

	"github.com/charmbracelet/lipgloss"
	"github.com/jonboulle/clockwork"

	"github.com/felixgeelhaar/dyna/internal/ports"
)

var (
	colorWarning = lipgloss.AdaptiveColor{Light: "#df8e1d", Dark: "#f9e2af"}
	colorMuted   = lipgloss.AdaptiveColor{Light: "#6c6f85", Dark: "#6c7086"}

	bannerStyle = lipgloss.NewStyle().
			Border(lipgloss.RoundedBorder()).
			BorderForeground(colorWarning).
			Padding(0, 1)
	titleStyle = lipgloss.NewStyle().Bold(true).Foreground(colorWarning)
	itemStyle  = lipgloss.NewStyle().Foreground(colorMuted)
)

// ConsoleNotifier prints a restart banner and holds the restart back for a
// grace period so the warning can be read.
type ConsoleNotifier struct {
	mu    sync.Mutex
	out   io.Writer
	grace time.Duration
	clock clockwork.Clock
}

// NotifierOption configures a ConsoleNotifier.
type NotifierOption func(*ConsoleNotifier)

// WithWriter sets where the banner is written (default: os.Stderr).
func WithWriter(w io.Writer) NotifierOption {
	return func(n *ConsoleNotifier) {
		n.out = w
	}
}

// WithGrace sets how long Warn waits after printing.
func WithGrace(d time.Duration) NotifierOption {
	return func(n *ConsoleNotifier) {
		n.grace = d
	}
}

// WithNotifierClock sets the clock used for the grace period.
func WithNotifierClock(c clockwork.Clock) NotifierOption {
	return func(n *ConsoleNotifier) {
		n.clock = c
	}
}

// NewConsoleNotifier creates a console notifier.
func NewConsoleNotifier(opts ...NotifierOption) *ConsoleNotifier {
	n := &ConsoleNotifier{
		out:   os.Stderr,
		grace: 3 * time.Second,
		clock: clockwork.NewRealClock(),
	}
	for _, opt := range opts {
		opt(n)
	}
	return n
}

// Warn prints the banner and blocks for the grace period or until ctx ends.
func (n *ConsoleNotifier) Warn(ctx context.Context, plugins []string) error {
	n.mu.Lock()
	_, err := fmt.Fprintln(n.out, Banner(plugins))
	n.mu.Unlock()
	if err != nil {
		return fmt.Errorf("writing restart warning: %w", err)
	}

	if n.grace <= 0 {
		return nil
	}
	timer := n.clock.NewTimer(n.grace)
	defer timer.Stop()

	select {
	case <-timer.Chan():
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Banner renders the restart warning for the given plugin keys.
func Banner(plugins []string) string {
	var b strings.Builder
	b.WriteString(titleStyle.Render("Restarting to finish plugin updates"))
	for _, p := range plugins {
		b.WriteString("\n")
		b.WriteString(itemStyle.Render("  • " + p))
	}
	return bannerStyle.Render(b.String())
}

// Ensure ConsoleNotifier implements ports.RestartNotifier.
var _ ports.RestartNotifier = (*ConsoleNotifier)(nil)
