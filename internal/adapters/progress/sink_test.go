package progress

import (
	"bytes"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/felixgeelhaar/dyna/internal/adapters/logging"
	"github.com/felixgeelhaar/dyna/internal/ports"
	"github.com/felixgeelhaar/dyna/internal/testutil/mocks"
)

func newTestLogger(buf *bytes.Buffer) ports.Logger {
	return logging.NewConsoleLogger(
		logging.WithOutput(buf),
		logging.WithLevel(ports.LevelDebug),
		logging.WithTimestamp(false),
		logging.WithLevelLabel(false),
	)
}

func TestNopSink(t *testing.T) {
	t.Parallel()

	var s NopSink
	s.OnCountKnown(2)
	s.OnProgress(50)
	s.OnTransfer("https://example.com/plugin.json", 1, 2)
	s.OnFinished()
}

func TestLogSink(t *testing.T) {
	t.Parallel()

	var buf bytes.Buffer
	s := NewLogSink(newTestLogger(&buf))

	s.OnCountKnown(2)
	s.OnProgress(50)
	s.OnProgress(50)
	s.OnTransfer("https://example.com/plugin.json", 10, 20)
	s.OnTransfer("https://example.com/plugin.json", 20, 20)
	s.OnProgress(100)
	s.OnFinished()

	lines := strings.Split(strings.TrimSpace(buf.String()), "\n")
	assert.Equal(t, []string{
		"checking plugins for updates count=2",
		"update progress percent=50",
		"artifact received url=https://example.com/plugin.json bytes=20",
		"update progress percent=100",
		"update check finished count=2",
	}, lines)
}

func TestLogSink_NilLogger(t *testing.T) {
	t.Parallel()

	s := NewLogSink(nil)
	s.OnCountKnown(1)
	s.OnFinished()
}

func TestFanout(t *testing.T) {
	t.Parallel()

	a := mocks.NewProgressSink()
	b := mocks.NewProgressSink()
	f := NewFanout(a, nil, b)
	assert.Len(t, f, 2)

	f.OnCountKnown(3)
	f.OnProgress(100)
	f.OnTransfer("u", 5, 5)
	f.OnFinished()

	for _, s := range []*mocks.ProgressSink{a, b} {
		assert.Equal(t, []int{3}, s.Counts())
		assert.Equal(t, float64(100), s.LastProgress())
		assert.Len(t, s.Transfers(), 1)
		assert.Equal(t, 1, s.Finished())
	}
}
