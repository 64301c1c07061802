// Package tui renders update progress and plugin listings in the terminal.
package tui

import (
	"context"
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/charmbracelet/bubbles/progress"
	tea "github.com/charmbracelet/bubbletea"

	"github.com/felixgeelhaar/dyna/internal/ports"
	"github.com/felixgeelhaar/dyna/internal/tui/ui"
)

// CountMsg starts a cycle with N plugins to check.
type CountMsg struct {
	N int
}

// ProgressMsg reports overall cycle progress in percent.
type ProgressMsg struct {
	Percent float64
}

// TransferMsg reports bytes received for one artifact.
type TransferMsg struct {
	URL    string
	Loaded int64
	Total  int64
}

// FinishedMsg ends a cycle.
type FinishedMsg struct{}

// indicatorModel is the Bubble Tea model for the update indicator.
type indicatorModel struct {
	bar          progress.Model
	styles       ui.Styles
	keys         ui.KeyMap
	width        int
	total        int
	percent      float64
	transfer     *TransferMsg
	showTransfer bool
	active       bool
	cycles       int
	quitting     bool
}

func newIndicatorModel() indicatorModel {
	return indicatorModel{
		bar:          progress.New(progress.WithDefaultGradient(), progress.WithWidth(ui.DefaultProgressBarWidth)),
		styles:       ui.DefaultStyles(),
		keys:         ui.DefaultKeyMap(),
		width:        80,
		showTransfer: true,
	}
}

// Init initializes the model.
func (m indicatorModel) Init() tea.Cmd {
	return nil
}

// Update handles messages.
func (m indicatorModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.styles = m.styles.WithWidth(msg.Width)
		m.bar.Width = min(max(msg.Width-12, 10), 60)
		return m, nil

	case tea.KeyMsg:
		switch {
		case ui.Matches(msg, m.keys.Quit):
			m.quitting = true
			return m, tea.Quit
		case ui.Matches(msg, m.keys.Detail):
			m.showTransfer = !m.showTransfer
		}
		return m, nil

	case CountMsg:
		m.active = true
		m.total = msg.N
		m.percent = 0
		m.transfer = nil
		return m, nil

	case ProgressMsg:
		m.percent = min(max(msg.Percent, 0), 100)
		return m, nil

	case TransferMsg:
		t := msg
		m.transfer = &t
		return m, nil

	case FinishedMsg:
		m.active = false
		m.transfer = nil
		m.cycles++
		return m, nil
	}

	return m, nil
}

// View renders the model.
func (m indicatorModel) View() string {
	if m.quitting {
		return ""
	}

	var b strings.Builder
	b.WriteString(m.styles.Title.Render("dyna"))
	b.WriteString("\n")

	switch {
	case m.active:
		b.WriteString(m.styles.Info.Render(fmt.Sprintf("Checking %d %s for updates", m.total, plural(m.total))))
		b.WriteString("\n\n")
		b.WriteString(m.bar.ViewAs(m.percent / 100))
		b.WriteString("\n")
		if m.showTransfer && m.transfer != nil {
			b.WriteString(m.styles.Help.Render(fmt.Sprintf("Downloading %s (%s of %s)",
				m.transfer.URL, formatBytes(m.transfer.Loaded), formatBytes(m.transfer.Total))))
			b.WriteString("\n")
		}
	case m.cycles == 0:
		b.WriteString(m.styles.Help.Render("Waiting for the first update check"))
		b.WriteString("\n")
	default:
		b.WriteString(m.styles.Success.Render(fmt.Sprintf("Update check finished (%d %s)", m.total, plural(m.total))))
		b.WriteString("\n")
	}

	b.WriteString("\n")
	b.WriteString(ui.ShortHelp(m.styles, m.keys.Detail, m.keys.Quit))
	return b.String()
}

func plural(n int) string {
	if n == 1 {
		return "plugin"
	}
	return "plugins"
}

func formatBytes(n int64) string {
	const unit = 1024
	if n < unit {
		return fmt.Sprintf("%d B", n)
	}
	div, exp := int64(unit), 0
	for v := n / unit; v >= unit; v /= unit {
		div *= unit
		exp++
	}
	return fmt.Sprintf("%.1f %ciB", float64(n)/float64(div), "KMGT"[exp])
}

// sender is the part of tea.Program the sink needs.
type sender interface {
	Send(msg tea.Msg)
}

// Sink forwards progress notifications to a running indicator.
type Sink struct {
	to sender
}

// OnCountKnown implements ports.ProgressSink.
func (s Sink) OnCountKnown(n int) { s.to.Send(CountMsg{N: n}) }

// OnProgress implements ports.ProgressSink.
func (s Sink) OnProgress(percent float64) { s.to.Send(ProgressMsg{Percent: percent}) }

// OnTransfer implements ports.ProgressSink.
func (s Sink) OnTransfer(url string, loaded, total int64) {
	s.to.Send(TransferMsg{URL: url, Loaded: loaded, Total: total})
}

// OnFinished implements ports.ProgressSink.
func (s Sink) OnFinished() { s.to.Send(FinishedMsg{}) }

// Indicator is a full-screen progress view for the update daemon.
type Indicator struct {
	program *tea.Program
	done    chan struct{}
}

// NewIndicator creates an indicator bound to ctx. It renders to out and reads
// keys from in; a nil in disables input.
func NewIndicator(ctx context.Context, in io.Reader, out io.Writer) *Indicator {
	opts := []tea.ProgramOption{tea.WithContext(ctx), tea.WithOutput(out)}
	if in == nil {
		opts = append(opts, tea.WithInput(nil))
	} else {
		opts = append(opts, tea.WithInput(in))
	}
	return &Indicator{
		program: tea.NewProgram(newIndicatorModel(), opts...),
		done:    make(chan struct{}),
	}
}

// Sink returns the progress sink feeding this indicator. Notifications sent
// before Run starts block until it does.
func (i *Indicator) Sink() Sink {
	return Sink{to: i.program}
}

// Run blocks until the user quits or the context ends.
func (i *Indicator) Run() error {
	defer close(i.done)
	_, err := i.program.Run()
	if errors.Is(err, tea.ErrProgramKilled) {
		return nil
	}
	return err
}

// Stop quits the program and waits until Run has returned and the terminal
// is restored. Run must have been started. Stop is safe to call more than
// once.
func (i *Indicator) Stop() {
	i.program.Quit()
	<-i.done
}

// Done is closed when Run returns.
func (i *Indicator) Done() <-chan struct{} {
	return i.done
}

var _ ports.ProgressSink = Sink{}
