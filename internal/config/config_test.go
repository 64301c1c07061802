package config

import (
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/felixgeelhaar/dyna/internal/domain/plugin"
	"github.com/felixgeelhaar/dyna/internal/domain/remote"
	"github.com/felixgeelhaar/dyna/internal/ports"
)

func writeFile(t *testing.T, name, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

func TestDefault_IsValid(t *testing.T) {
	t.Parallel()

	cfg := Default()

	require.NoError(t, cfg.Validate())
	assert.Equal(t, 3600, cfg.UpdateInterval)
	assert.Equal(t, 500*time.Millisecond, cfg.BootstrapDelay.Std())
	assert.Equal(t, "amycatgirl", cfg.Debug.Author)
	assert.Equal(t, []string{"dyna", "dyna-devel"}, cfg.Debug.IDs)
	assert.Equal(t, 3*time.Second, cfg.Restart.Grace.Std())
	assert.Equal(t, ports.LevelInfo, cfg.LogLevel())
}

func TestDuration_Text(t *testing.T) {
	t.Parallel()

	var d Duration
	require.NoError(t, d.UnmarshalText([]byte("1m30s")))
	assert.Equal(t, 90*time.Second, d.Std())

	text, err := d.MarshalText()
	require.NoError(t, err)
	assert.Equal(t, "1m30s", string(text))

	assert.Error(t, d.UnmarshalText([]byte("soon")))
}

func TestValidate(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name   string
		modify func(*Config)
		fields []string
	}{
		{
			name:   "negative interval",
			modify: func(c *Config) { c.UpdateInterval = -1 },
			fields: []string{"updateInterval"},
		},
		{
			name: "negative durations",
			modify: func(c *Config) {
				c.FetchTimeout = Duration(-time.Second)
				c.Restart.Grace = Duration(-time.Second)
			},
			fields: []string{"fetchTimeout", "restart.grace"},
		},
		{
			name: "bad remote",
			modify: func(c *Config) {
				c.Remote.RawBase = "ftp://mirror"
				c.Remote.ForgeScheme = "gopher"
			},
			fields: []string{"remote.rawBase", "remote.forgeScheme"},
		},
		{
			name:   "zero attempts",
			modify: func(c *Config) { c.Retry.MaxAttempts = 0 },
			fields: []string{"retry.maxAttempts"},
		},
		{
			name:   "missing registry",
			modify: func(c *Config) { c.Registry.Path = "" },
			fields: []string{"registry.path"},
		},
		{
			name: "debug author without ids",
			modify: func(c *Config) {
				c.Debug.Author = "amy"
				c.Debug.IDs = nil
			},
			fields: []string{"debug.ids"},
		},
		{
			name:   "bad debug author",
			modify: func(c *Config) { c.Debug.Author = "amy cat" },
			fields: []string{"debug.author"},
		},
		{
			name: "bad listen addresses",
			modify: func(c *Config) {
				c.Debug.Listen = "localhost"
				c.Metrics.Listen = ":http"
			},
			fields: []string{"debug.listen", "metrics.listen"},
		},
		{
			name:   "multi-line restart command",
			modify: func(c *Config) { c.Restart.Command = "systemctl restart host\nrm -rf /" },
			fields: []string{"restart.command"},
		},
		{
			name:   "multi-line socket path",
			modify: func(c *Config) { c.Control.Socket = "/run/dyna.sock\n" },
			fields: []string{"control.socket"},
		},
		{
			name:   "unknown log level",
			modify: func(c *Config) { c.Log.Level = "chatty" },
			fields: []string{"log.level"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			cfg := Default()
			tt.modify(&cfg)

			err := cfg.Validate()
			require.Error(t, err)
			assert.True(t, IsUserError(err, ErrCodeValidationFailed))

			var list *ErrorList
			require.True(t, errors.As(err, &list))
			got := make([]string, 0, len(list.Errors()))
			for _, e := range list.Errors() {
				got = append(got, e.Context)
			}
			assert.Equal(t, tt.fields, got)
		})
	}
}

func TestValidate_DebugDisabled(t *testing.T) {
	t.Parallel()

	cfg := Default()
	cfg.Debug.Author = ""
	cfg.Debug.IDs = nil

	require.NoError(t, cfg.Validate())
	assert.False(t, cfg.Trusted().Matches(plugin.Record{Author: "amycatgirl", ID: "dyna", Dev: true}))
}

func TestConverters(t *testing.T) {
	t.Parallel()

	cfg := Default()
	cfg.UpdateInterval = 60
	cfg.BootstrapDelay = Duration(time.Second)
	cfg.FetchTimeout = Duration(5 * time.Second)
	cfg.Retry.MaxAttempts = 2
	cfg.Retry.InitialInterval = Duration(100 * time.Millisecond)

	up := cfg.Updater()
	assert.Equal(t, time.Minute, up.Interval())
	assert.Equal(t, time.Second, up.Bootstrap())
	assert.Equal(t, "amycatgirl", up.Trusted.Author)

	fc := cfg.Fetcher("dyna/test")
	assert.Equal(t, 5*time.Second, fc.Timeout)
	assert.Equal(t, 2, fc.MaxAttempts)
	assert.Equal(t, 100*time.Millisecond, fc.InitialInterval)
	assert.Equal(t, "dyna/test", fc.UserAgent)

	cfg.Remote.RawBase = "http://127.0.0.1:8080"
	url, err := cfg.Resolver().ManifestURL(remote.Coordinates{Repo: "amy/theme"})
	require.NoError(t, err)
	assert.Equal(t, "http://127.0.0.1:8080/amy/theme/main/dyna.json", url)
}

func TestLogFile(t *testing.T) {
	t.Parallel()

	cfg := Default()
	_, ok := cfg.LogFile()
	assert.False(t, ok)

	cfg.Log.File = "/var/log/dyna.log"
	cfg.Log.Level = "debug"
	cfg.Log.JSON = true
	fc, ok := cfg.LogFile()
	require.True(t, ok)
	assert.Equal(t, "/var/log/dyna.log", fc.Path)
	assert.Equal(t, ports.LevelDebug, fc.Level)
	assert.True(t, fc.JSON)
	assert.Positive(t, fc.MaxSizeMB)
}

func TestExpandPaths(t *testing.T) {
	t.Parallel()

	home, err := os.UserHomeDir()
	require.NoError(t, err)

	cfg := Default()
	cfg.Registry.Path = "~/host/plugins"
	cfg.Log.File = "/var/log/dyna.log"
	cfg.Control.Socket = "~/.dyna/control.sock"
	cfg.ExpandPaths()

	assert.Equal(t, filepath.Join(home, "host", "plugins"), cfg.Registry.Path)
	assert.Equal(t, "/var/log/dyna.log", cfg.Log.File)
	assert.Equal(t, filepath.Join(home, ".dyna", "control.sock"), cfg.Control.Socket)
}
