package updater

import (
	"fmt"
	"time"

	"github.com/felixgeelhaar/dyna/internal/domain/plugin"
)

// Defaults.
const (
	// DefaultUpdateInterval is the cycle interval in seconds.
	DefaultUpdateInterval = 3600
	// DefaultBootstrapDelay is the delay before the first store scan.
	DefaultBootstrapDelay = 500 * time.Millisecond
)

// Config holds the updater configuration.
type Config struct {
	// UpdateInterval is the time between cycles in seconds.
	UpdateInterval int `yaml:"updateInterval" json:"updateInterval"`

	// BootstrapDelay is the delay between start and the first store scan.
	BootstrapDelay time.Duration `yaml:"bootstrapDelay" json:"bootstrapDelay"`

	// Trusted is the identity that unlocks the debug surface.
	Trusted plugin.TrustedIdentity `yaml:"-" json:"-"`
}

// DefaultConfig returns the default configuration.
func DefaultConfig() Config {
	return Config{
		UpdateInterval: DefaultUpdateInterval,
		BootstrapDelay: DefaultBootstrapDelay,
		Trusted:        plugin.DefaultTrustedIdentity(),
	}
}

// Interval returns the cycle interval. An unset interval means one hour.
func (c Config) Interval() time.Duration {
	if c.UpdateInterval <= 0 {
		return DefaultUpdateInterval * time.Second
	}
	return time.Duration(c.UpdateInterval) * time.Second
}

// Bootstrap returns the bootstrap delay.
func (c Config) Bootstrap() time.Duration {
	if c.BootstrapDelay <= 0 {
		return DefaultBootstrapDelay
	}
	return c.BootstrapDelay
}

// Validate checks the configuration for errors.
func (c Config) Validate() error {
	if c.UpdateInterval < 0 {
		return fmt.Errorf("updateInterval must not be negative, got %d", c.UpdateInterval)
	}
	if c.BootstrapDelay < 0 {
		return fmt.Errorf("bootstrapDelay must not be negative, got %s", c.BootstrapDelay)
	}
	return nil
}
