// File: internal/config/config_test.go
package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// -- Constructor and Defaults Tests --

func TestNewDefaultConfig(t *testing.T) {
	cfg := NewDefaultConfig()

	assert.Equal(t, "info", cfg.Logger.Level)
	assert.Equal(t, "dialogskip.log", cfg.Logger.LogFile)
	assert.Equal(t, 5, cfg.Logger.MaxSize)
	assert.Equal(t, "Genshin Impact", cfg.Window.Title)
	assert.Equal(t, 1920, cfg.Screen.BaseWidth)
	assert.Equal(t, 84, cfg.Screen.PlayingIcon.X)
	assert.Equal(t, 10, cfg.Detection.ColorTolerance)
	assert.Equal(t, RGBConfig{R: 236, G: 229, B: 216}, cfg.Detection.PlayingColor)
	assert.Equal(t, 150*time.Millisecond, cfg.Detection.ActiveInterval)
	assert.Equal(t, 130*time.Millisecond, cfg.Timing.StandardDelayMin)
	assert.Equal(t, 170*time.Millisecond, cfg.Timing.StandardDelayMax)
	assert.Equal(t, 30*time.Second, cfg.Timing.BreakCheckInterval)
	assert.Equal(t, 350*time.Millisecond, cfg.Loop.MaxSleep)
	assert.Equal(t, 4*time.Second, cfg.BurstTask.Duration)
	assert.Equal(t, uint16(0x46), cfg.Keys.Primary)
	assert.Equal(t, uint16(0x7B), cfg.Hotkeys.Exit)
	assert.False(t, cfg.Publisher.Enabled)

	require.NoError(t, cfg.Validate(), "defaults must validate")
}

// -- Validation Logic Tests --

func TestConfigValidation(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(c *Config)
		wantErr string
	}{
		{"empty window title", func(c *Config) { c.Window.Title = "  " }, "window.title"},
		{"zero base resolution", func(c *Config) { c.Screen.BaseWidth = 0 }, "base_width"},
		{"negative override", func(c *Config) { c.Screen.Height = -1 }, "screen.width and screen.height"},
		{"zero active interval", func(c *Config) { c.Detection.ActiveInterval = 0 }, "detection intervals"},
		{"zero max sleep", func(c *Config) { c.Loop.MaxSleep = 0 }, "loop sleeps"},
		{"zero failure burst", func(c *Config) { c.Loop.FailureBurst = 0 }, "loop.failure_burst"},
		{"publisher without broker", func(c *Config) {
			c.Publisher.Enabled = true
			c.Publisher.Broker = ""
		}, "publisher.broker"},
		{"publisher without retry interval", func(c *Config) {
			c.Publisher.Enabled = true
			c.Publisher.RetryInterval = 0
		}, "publisher.retry_interval"},
		{"bad qos", func(c *Config) { c.Publisher.QoS = 3 }, "publisher.qos"},
		{"probability above one", func(c *Config) { c.Timing.SkipChance = 1.5 }, "skip_chance"},
		{"negative probability", func(c *Config) { c.Timing.FastBurstChance = -0.1 }, "fast_burst_chance"},
		{"break chances overflow", func(c *Config) {
			c.Timing.ShortBreakChance = 0.7
			c.Timing.LongBreakChance = 0.7
		}, "must not exceed 1"},
		{"empty pool range", func(c *Config) { c.Timing.BurstPoolMax = c.Timing.BurstPoolMin }, "burst pool range"},
		{"empty run range", func(c *Config) { c.Timing.BurstRunMin = 0 }, "burst run range"},
		{"zero multiplier", func(c *Config) { c.Timing.FastBurstMultiplier = 0 }, "fast_burst_multiplier"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := NewDefaultConfig()
			tt.mutate(cfg)
			err := cfg.Validate()
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.wantErr)
		})
	}
}

func TestNormalize(t *testing.T) {
	t.Run("clamps and orders standard delays", func(t *testing.T) {
		cfg := NewDefaultConfig()
		cfg.Timing.StandardDelayMin = 9 * time.Second
		cfg.Timing.StandardDelayMax = time.Millisecond
		cfg.Normalize()

		assert.Equal(t, 10*time.Millisecond, cfg.Timing.StandardDelayMin)
		assert.Equal(t, 5*time.Second, cfg.Timing.StandardDelayMax)
	})

	t.Run("clamps tolerance", func(t *testing.T) {
		cfg := NewDefaultConfig()
		cfg.Detection.ColorTolerance = 300
		cfg.Normalize()
		assert.Equal(t, 255, cfg.Detection.ColorTolerance)

		cfg.Detection.ColorTolerance = -4
		cfg.Normalize()
		assert.Equal(t, 0, cfg.Detection.ColorTolerance)
	})

	t.Run("swaps reversed ranges", func(t *testing.T) {
		cfg := NewDefaultConfig()
		cfg.BurstTask.DelayMin, cfg.BurstTask.DelayMax = 200*time.Millisecond, 100*time.Millisecond
		cfg.Timing.ShortBreakMin, cfg.Timing.ShortBreakMax = 6*time.Second, 2*time.Second
		cfg.Normalize()

		assert.Equal(t, 100*time.Millisecond, cfg.BurstTask.DelayMin)
		assert.Equal(t, 200*time.Millisecond, cfg.BurstTask.DelayMax)
		assert.Equal(t, 2*time.Second, cfg.Timing.ShortBreakMin)
		assert.Equal(t, 6*time.Second, cfg.Timing.ShortBreakMax)
	})
}

// -- Loading Tests --

func TestLoad(t *testing.T) {
	t.Run("missing file is created from defaults", func(t *testing.T) {
		path := filepath.Join(t.TempDir(), "config.json")

		cfg, err := Load(path)
		require.NoError(t, err)
		assert.Empty(t, cmp.Diff(NewDefaultConfig(), cfg))

		_, statErr := os.Stat(path)
		require.NoError(t, statErr, "defaults should be persisted")

		// The persisted file must load back to the same values.
		reloaded, err := Load(path)
		require.NoError(t, err)
		assert.Empty(t, cmp.Diff(cfg, reloaded))
	})

	t.Run("file values override defaults", func(t *testing.T) {
		path := filepath.Join(t.TempDir(), "config.json")
		content := `{
			"window": {"title": "Star Rail"},
			"timing": {"standard_delay_min": "200ms", "standard_delay_max": "250ms"},
			"detection": {"color_tolerance": 12}
		}`
		require.NoError(t, os.WriteFile(path, []byte(content), 0o600))

		cfg, err := Load(path)
		require.NoError(t, err)
		assert.Equal(t, "Star Rail", cfg.Window.Title)
		assert.Equal(t, 200*time.Millisecond, cfg.Timing.StandardDelayMin)
		assert.Equal(t, 250*time.Millisecond, cfg.Timing.StandardDelayMax)
		assert.Equal(t, 12, cfg.Detection.ColorTolerance)
		assert.Equal(t, 0.1, cfg.Timing.SpaceChance, "untouched keys keep their defaults")
	})

	t.Run("malformed file falls back to defaults", func(t *testing.T) {
		path := filepath.Join(t.TempDir(), "config.json")
		require.NoError(t, os.WriteFile(path, []byte("{not json"), 0o600))

		cfg, err := Load(path)
		require.Error(t, err)
		require.NotNil(t, cfg)
		assert.Empty(t, cmp.Diff(NewDefaultConfig(), cfg))
	})

	t.Run("invalid values fall back to defaults", func(t *testing.T) {
		path := filepath.Join(t.TempDir(), "config.json")
		require.NoError(t, os.WriteFile(path, []byte(`{"timing": {"skip_chance": 4}}`), 0o600))

		cfg, err := Load(path)
		require.Error(t, err)
		assert.Contains(t, err.Error(), "skip_chance")
		assert.Equal(t, 0.025, cfg.Timing.SkipChance)
	})

	t.Run("environment overrides file", func(t *testing.T) {
		t.Setenv("DIALOGSKIP_WINDOW_TITLE", "From Env")
		path := filepath.Join(t.TempDir(), "config.json")

		cfg, err := Load(path)
		require.NoError(t, err)
		assert.Equal(t, "From Env", cfg.Window.Title)
	})
}

func TestApplyResolutionOverride(t *testing.T) {
	t.Run("applies width and height", func(t *testing.T) {
		path := filepath.Join(t.TempDir(), ".env")
		require.NoError(t, os.WriteFile(path, []byte("WIDTH=2560\nHEIGHT=1080\n"), 0o600))

		cfg := NewDefaultConfig()
		applied, err := cfg.ApplyResolutionOverride(path)
		require.NoError(t, err)
		assert.True(t, applied)
		assert.Equal(t, 2560, cfg.Screen.Width)
		assert.Equal(t, 1080, cfg.Screen.Height)
	})

	t.Run("missing file is ignored", func(t *testing.T) {
		cfg := NewDefaultConfig()
		applied, err := cfg.ApplyResolutionOverride(filepath.Join(t.TempDir(), "nope.env"))
		require.NoError(t, err)
		assert.False(t, applied)
		assert.Zero(t, cfg.Screen.Width)
	})

	t.Run("partial override is ignored", func(t *testing.T) {
		path := filepath.Join(t.TempDir(), ".env")
		require.NoError(t, os.WriteFile(path, []byte("WIDTH=2560\n"), 0o600))

		cfg := NewDefaultConfig()
		applied, err := cfg.ApplyResolutionOverride(path)
		require.NoError(t, err)
		assert.False(t, applied)
	})

	t.Run("non-numeric values are an error", func(t *testing.T) {
		path := filepath.Join(t.TempDir(), ".env")
		require.NoError(t, os.WriteFile(path, []byte("WIDTH=wide\nHEIGHT=1080\n"), 0o600))

		cfg := NewDefaultConfig()
		applied, err := cfg.ApplyResolutionOverride(path)
		require.Error(t, err)
		assert.False(t, applied)
		assert.Zero(t, cfg.Screen.Width)
	})
}
