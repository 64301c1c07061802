// Package config loads the dyna daemon configuration from YAML or TOML.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/felixgeelhaar/dyna/internal/adapters/logging"
	"github.com/felixgeelhaar/dyna/internal/domain/plugin"
	"github.com/felixgeelhaar/dyna/internal/domain/remote"
	"github.com/felixgeelhaar/dyna/internal/domain/updater"
	"github.com/felixgeelhaar/dyna/internal/ports"
	"github.com/felixgeelhaar/dyna/internal/validation"
)

// Duration is a time.Duration written as "500ms" or "10s" in config files.
type Duration time.Duration

// UnmarshalText implements encoding.TextUnmarshaler.
func (d *Duration) UnmarshalText(text []byte) error {
	v, err := time.ParseDuration(string(text))
	if err != nil {
		return err
	}
	*d = Duration(v)
	return nil
}

// MarshalText implements encoding.TextMarshaler.
func (d Duration) MarshalText() ([]byte, error) {
	return []byte(time.Duration(d).String()), nil
}

// Std returns the value as a time.Duration.
func (d Duration) Std() time.Duration {
	return time.Duration(d)
}

// Config is the daemon configuration.
type Config struct {
	// UpdateInterval is the time between update cycles in seconds.
	UpdateInterval int `yaml:"updateInterval" toml:"updateInterval"`
	// BootstrapDelay is the delay before the first registry scan.
	BootstrapDelay Duration `yaml:"bootstrapDelay" toml:"bootstrapDelay"`
	// FetchTimeout bounds each manifest request.
	FetchTimeout Duration `yaml:"fetchTimeout" toml:"fetchTimeout"`

	Remote   RemoteConfig   `yaml:"remote" toml:"remote"`
	Retry    RetryConfig    `yaml:"retry" toml:"retry"`
	Download DownloadConfig `yaml:"download" toml:"download"`
	Registry RegistryConfig `yaml:"registry" toml:"registry"`
	Debug    DebugConfig    `yaml:"debug" toml:"debug"`
	Restart  RestartConfig  `yaml:"restart" toml:"restart"`
	Log      LogConfig      `yaml:"log" toml:"log"`
	Metrics  MetricsConfig  `yaml:"metrics" toml:"metrics"`
	Control  ControlConfig  `yaml:"control" toml:"control"`
}

// RemoteConfig locates raw repository files.
type RemoteConfig struct {
	// RawBase serves repositories that name no forge.
	RawBase string `yaml:"rawBase" toml:"rawBase"`
	// ForgeScheme is "https" unless a forge is served over plain http.
	ForgeScheme string `yaml:"forgeScheme" toml:"forgeScheme"`
}

// RetryConfig configures manifest fetch retries.
type RetryConfig struct {
	MaxAttempts     int      `yaml:"maxAttempts" toml:"maxAttempts"`
	InitialInterval Duration `yaml:"initialInterval" toml:"initialInterval"`
}

// DownloadConfig configures artifact downloads.
type DownloadConfig struct {
	Timeout  Duration `yaml:"timeout" toml:"timeout"`
	MaxBytes int64    `yaml:"maxBytes" toml:"maxBytes"`
}

// RegistryConfig locates the host plugin registry.
type RegistryConfig struct {
	Path string `yaml:"path" toml:"path"`
}

// DebugConfig configures the developer debug surface.
type DebugConfig struct {
	Author string   `yaml:"author" toml:"author"`
	IDs    []string `yaml:"ids" toml:"ids"`
	// Listen is the address serving debug tools once the surface is installed.
	Listen string `yaml:"listen" toml:"listen"`
}

// RestartConfig configures how the host is restarted.
type RestartConfig struct {
	// Command is run to restart the host. Empty means log only.
	Command string   `yaml:"command" toml:"command"`
	Grace   Duration `yaml:"grace" toml:"grace"`
}

// LogConfig configures logging.
type LogConfig struct {
	Level string `yaml:"level" toml:"level"`
	JSON  bool   `yaml:"json" toml:"json"`
	// File enables a rotating log file in addition to the console.
	File string `yaml:"file" toml:"file"`
}

// MetricsConfig configures the Prometheus endpoint.
type MetricsConfig struct {
	Listen string `yaml:"listen" toml:"listen"`
}

// ControlConfig configures the daemon control socket.
type ControlConfig struct {
	// Socket is the Unix socket path. Empty means ~/.dyna/dyna.sock.
	Socket   string `yaml:"socket" toml:"socket"`
	Disabled bool   `yaml:"disabled" toml:"disabled"`
}

// Default returns the default configuration.
func Default() Config {
	trusted := plugin.DefaultTrustedIdentity()
	fetch := remote.DefaultFetcherConfig()
	return Config{
		UpdateInterval: updater.DefaultUpdateInterval,
		BootstrapDelay: Duration(updater.DefaultBootstrapDelay),
		FetchTimeout:   Duration(fetch.Timeout),
		Remote: RemoteConfig{
			RawBase:     remote.DefaultRawBase,
			ForgeScheme: "https",
		},
		Retry: RetryConfig{
			MaxAttempts:     fetch.MaxAttempts,
			InitialInterval: Duration(fetch.InitialInterval),
		},
		Download: DownloadConfig{
			Timeout:  Duration(remote.DefaultDownloadTimeout),
			MaxBytes: remote.DefaultMaxArtifactSize,
		},
		Registry: RegistryConfig{Path: "plugins"},
		Debug: DebugConfig{
			Author: trusted.Author,
			IDs:    trusted.IDs,
		},
		Restart: RestartConfig{Grace: Duration(3 * time.Second)},
		Log:     LogConfig{Level: "info"},
	}
}

// Validate checks every field and reports all problems at once.
func (c Config) Validate() error {
	errs := NewErrorList()

	if c.UpdateInterval < 0 {
		errs.AddValidation("updateInterval", fmt.Sprintf("must not be negative, got %d", c.UpdateInterval),
			"Use 0 for the default of one hour.")
	}
	for _, d := range []struct {
		field string
		value Duration
	}{
		{"bootstrapDelay", c.BootstrapDelay},
		{"fetchTimeout", c.FetchTimeout},
		{"retry.initialInterval", c.Retry.InitialInterval},
		{"download.timeout", c.Download.Timeout},
		{"restart.grace", c.Restart.Grace},
	} {
		if d.value < 0 {
			errs.AddValidation(d.field, "must not be negative", "Use a duration such as 500ms or 10s.")
		}
	}
	if err := validation.ValidateURL(c.Remote.RawBase); err != nil {
		errs.AddValidation("remote.rawBase", err.Error(), "Use an http(s) URL such as https://raw.githubusercontent.com.")
	}
	if c.Remote.ForgeScheme != "http" && c.Remote.ForgeScheme != "https" {
		errs.AddValidation("remote.forgeScheme", fmt.Sprintf("must be http or https, got %q", c.Remote.ForgeScheme), "")
	}
	if c.Retry.MaxAttempts < 1 {
		errs.AddValidation("retry.maxAttempts", "must be at least 1", "Use 1 to disable retries.")
	}
	if c.Download.MaxBytes < 0 {
		errs.AddValidation("download.maxBytes", "must not be negative", "Use 0 for the default of 4 MiB.")
	}
	if c.Registry.Path == "" {
		errs.AddValidation("registry.path", "is required", "Point it at the host's plugin directory.")
	}
	if c.Debug.Author != "" {
		if err := validation.ValidateIdentifier(c.Debug.Author); err != nil {
			errs.AddValidation("debug.author", err.Error(), "")
		}
		if len(c.Debug.IDs) == 0 {
			errs.AddValidation("debug.ids", "must list at least one plugin id when debug.author is set", "")
		}
	}
	if err := validation.ValidateListenAddress(c.Debug.Listen); err != nil {
		errs.AddValidation("debug.listen", err.Error(), "Use host:port, e.g. 127.0.0.1:7777.")
	}
	if err := validation.ValidateListenAddress(c.Metrics.Listen); err != nil {
		errs.AddValidation("metrics.listen", err.Error(), "Use host:port, e.g. :9090.")
	}
	if err := validation.ValidateCommandLine(c.Restart.Command); err != nil {
		errs.AddValidation("restart.command", err.Error(), "Put the command on a single line.")
	}
	if strings.ContainsAny(c.Control.Socket, "\n\r\x00") {
		errs.AddValidation("control.socket", "must be a single-line path", "")
	}
	if _, err := ports.ParseLevel(c.Log.Level); err != nil {
		errs.AddValidation("log.level", err.Error(), "")
	}

	return errs.AsError()
}

// Updater returns the updater settings.
func (c Config) Updater() updater.Config {
	return updater.Config{
		UpdateInterval: c.UpdateInterval,
		BootstrapDelay: c.BootstrapDelay.Std(),
		Trusted:        c.Trusted(),
	}
}

// Trusted returns the identity allowed to unlock the debug surface.
func (c Config) Trusted() plugin.TrustedIdentity {
	return plugin.TrustedIdentity{Author: c.Debug.Author, IDs: c.Debug.IDs}
}

// Resolver returns the raw file URL resolver.
func (c Config) Resolver() remote.Resolver {
	return remote.Resolver{DefaultBase: c.Remote.RawBase, ForgeScheme: c.Remote.ForgeScheme}
}

// Fetcher returns the manifest fetcher settings.
func (c Config) Fetcher(userAgent string) remote.FetcherConfig {
	return remote.FetcherConfig{
		Timeout:         c.FetchTimeout.Std(),
		MaxAttempts:     c.Retry.MaxAttempts,
		InitialInterval: c.Retry.InitialInterval.Std(),
		UserAgent:       userAgent,
	}
}

// ExpandPaths replaces a leading ~/ in path settings with the home directory.
func (c *Config) ExpandPaths() {
	c.Registry.Path = expandPath(c.Registry.Path)
	c.Log.File = expandPath(c.Log.File)
	c.Control.Socket = expandPath(c.Control.Socket)
}

func expandPath(path string) string {
	if strings.HasPrefix(path, "~/") {
		home, err := os.UserHomeDir()
		if err != nil {
			return path
		}
		return filepath.Join(home, path[2:])
	}
	return path
}

// LogLevel returns the parsed log level.
func (c Config) LogLevel() ports.Level {
	level, _ := ports.ParseLevel(c.Log.Level)
	return level
}

// LogFile returns the rotating file settings, or false when disabled.
func (c Config) LogFile() (logging.FileConfig, bool) {
	if c.Log.File == "" {
		return logging.FileConfig{}, false
	}
	fc := logging.DefaultFileConfig(c.Log.File)
	fc.Level = c.LogLevel()
	fc.JSON = c.Log.JSON
	return fc, true
}
