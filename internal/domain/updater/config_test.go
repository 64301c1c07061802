package updater

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestDefaultConfig(t *testing.T) {
	t.Parallel()

	cfg := DefaultConfig()
	assert.Equal(t, 3600, cfg.UpdateInterval)
	assert.Equal(t, 500*time.Millisecond, cfg.BootstrapDelay)
	assert.Equal(t, "amycatgirl", cfg.Trusted.Author)
	assert.NoError(t, cfg.Validate())
}

func TestConfig_Interval(t *testing.T) {
	t.Parallel()

	t.Run("unset interval means one hour", func(t *testing.T) {
		t.Parallel()
		cfg := Config{}
		assert.Equal(t, time.Hour, cfg.Interval())
		assert.Equal(t, int64(3600000), cfg.Interval().Milliseconds())
	})

	t.Run("seconds are converted", func(t *testing.T) {
		t.Parallel()
		cfg := Config{UpdateInterval: 90}
		assert.Equal(t, 90*time.Second, cfg.Interval())
	})

	t.Run("unset bootstrap delay", func(t *testing.T) {
		t.Parallel()
		assert.Equal(t, DefaultBootstrapDelay, Config{}.Bootstrap())
		assert.Equal(t, time.Second, Config{BootstrapDelay: time.Second}.Bootstrap())
	})
}

func TestConfig_Validate(t *testing.T) {
	t.Parallel()

	assert.Error(t, Config{UpdateInterval: -1}.Validate())
	assert.Error(t, Config{BootstrapDelay: -time.Second}.Validate())
	assert.NoError(t, Config{}.Validate())
}
