package tui

import (
	"bytes"
	"context"
	"sync"
	"testing"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func update(t *testing.T, m indicatorModel, msgs ...tea.Msg) indicatorModel {
	t.Helper()
	for _, msg := range msgs {
		next, _ := m.Update(msg)
		var ok bool
		m, ok = next.(indicatorModel)
		require.True(t, ok)
	}
	return m
}

func TestIndicatorModel_Init(t *testing.T) {
	t.Parallel()

	m := newIndicatorModel()
	assert.Nil(t, m.Init())
	assert.Contains(t, m.View(), "Waiting for the first update check")
}

func TestIndicatorModel_Cycle(t *testing.T) {
	t.Parallel()

	m := update(t, newIndicatorModel(), CountMsg{N: 2}, ProgressMsg{Percent: 50})
	assert.True(t, m.active)
	assert.Equal(t, 2, m.total)
	assert.InDelta(t, 50, m.percent, 0)
	assert.Contains(t, m.View(), "Checking 2 plugins for updates")
	assert.Contains(t, m.View(), "50%")

	m = update(t, m, TransferMsg{URL: "https://raw.githubusercontent.com/amy/theme/main/plugin.json", Loaded: 1536, Total: 4096})
	assert.Contains(t, m.View(), "1.5 KiB of 4.0 KiB")

	m = update(t, m, ProgressMsg{Percent: 100}, FinishedMsg{})
	assert.False(t, m.active)
	assert.Nil(t, m.transfer)
	assert.Equal(t, 1, m.cycles)
	assert.Contains(t, m.View(), "Update check finished (2 plugins)")
}

func TestIndicatorModel_ClampsProgress(t *testing.T) {
	t.Parallel()

	m := update(t, newIndicatorModel(), CountMsg{N: 1}, ProgressMsg{Percent: 140})
	assert.InDelta(t, 100, m.percent, 0)
	assert.Contains(t, m.View(), "Checking 1 plugin for")

	m = update(t, m, ProgressMsg{Percent: -3})
	assert.InDelta(t, 0, m.percent, 0)
}

func TestIndicatorModel_Keys(t *testing.T) {
	t.Parallel()

	t.Run("toggle downloads", func(t *testing.T) {
		t.Parallel()
		m := update(t, newIndicatorModel(),
			CountMsg{N: 1},
			TransferMsg{URL: "https://example.com/plugin.json", Loaded: 10, Total: 20},
			tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune("d")},
		)
		assert.False(t, m.showTransfer)
		assert.NotContains(t, m.View(), "Downloading")
	})

	t.Run("quit", func(t *testing.T) {
		t.Parallel()
		next, cmd := newIndicatorModel().Update(tea.KeyMsg{Type: tea.KeyCtrlC})
		require.NotNil(t, cmd)
		m := next.(indicatorModel)
		assert.True(t, m.quitting)
		assert.Empty(t, m.View())
	})
}

func TestIndicatorModel_WindowResize(t *testing.T) {
	t.Parallel()

	m := update(t, newIndicatorModel(), tea.WindowSizeMsg{Width: 120, Height: 40})
	assert.Equal(t, 120, m.width)
	assert.Equal(t, 60, m.bar.Width)

	m = update(t, m, tea.WindowSizeMsg{Width: 15, Height: 40})
	assert.Equal(t, 10, m.bar.Width)
}

type recordingSender struct {
	mu   sync.Mutex
	msgs []tea.Msg
}

func (r *recordingSender) Send(msg tea.Msg) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.msgs = append(r.msgs, msg)
}

func TestSink(t *testing.T) {
	t.Parallel()

	rec := &recordingSender{}
	s := Sink{to: rec}

	s.OnCountKnown(3)
	s.OnProgress(33)
	s.OnTransfer("u", 1, 2)
	s.OnFinished()

	assert.Equal(t, []tea.Msg{
		CountMsg{N: 3},
		ProgressMsg{Percent: 33},
		TransferMsg{URL: "u", Loaded: 1, Total: 2},
		FinishedMsg{},
	}, rec.msgs)
}

func TestFormatBytes(t *testing.T) {
	t.Parallel()

	tests := map[int64]string{
		0:       "0 B",
		1023:    "1023 B",
		1024:    "1.0 KiB",
		5 << 20: "5.0 MiB",
	}
	for in, want := range tests {
		assert.Equal(t, want, formatBytes(in))
	}
}

func TestIndicator_Stop(t *testing.T) {
	t.Parallel()

	var out bytes.Buffer
	ind := NewIndicator(context.Background(), nil, &out)
	go func() { _ = ind.Run() }()

	stopped := make(chan struct{})
	go func() {
		ind.Stop()
		ind.Stop()
		close(stopped)
	}()

	select {
	case <-stopped:
	case <-time.After(5 * time.Second):
		t.Fatal("Stop did not return")
	}
	select {
	case <-ind.Done():
	default:
		t.Fatal("Run still active after Stop")
	}
}
