// File: internal/config/humanoid_config.go
// This file defines the HumanoidConfig struct, which contains all the tunable
// parameters of the press timing model. These settings control the interval
// distribution, fast bursts, breaks, per-press modifiers and the sticky burst
// mode, so the "personality" of the input can be changed without touching code.
package config

import (
	"fmt"
	"time"

	"github.com/spf13/viper"
)

// HumanoidConfig holds the probability and duration parameters of the timing model.
type HumanoidConfig struct {
	// Seed fixes the random source. Zero seeds from the clock.
	Seed int64 `mapstructure:"seed"`

	// -- Interval --
	StandardDelayMin    time.Duration `mapstructure:"standard_delay_min"`
	StandardDelayMax    time.Duration `mapstructure:"standard_delay_max"`
	FastBurstChance     float64       `mapstructure:"fast_burst_chance"`
	FastBurstMultiplier float64       `mapstructure:"fast_burst_multiplier"`
	BurstPoolMin        int           `mapstructure:"burst_pool_min"`
	BurstPoolMax        int           `mapstructure:"burst_pool_max"`

	// -- Breaks --
	BreakCheckInterval time.Duration `mapstructure:"break_check_interval"`
	ShortBreakChance   float64       `mapstructure:"short_break_chance"`
	ShortBreakMin      time.Duration `mapstructure:"short_break_min"`
	ShortBreakMax      time.Duration `mapstructure:"short_break_max"`
	LongBreakChance    float64       `mapstructure:"long_break_chance"`
	LongBreakMin       time.Duration `mapstructure:"long_break_min"`
	LongBreakMax       time.Duration `mapstructure:"long_break_max"`

	// -- Per-press modifiers --
	SkipChance       float64 `mapstructure:"skip_chance"`
	DoubleChance     float64 `mapstructure:"double_chance"`
	BurstModeChance  float64 `mapstructure:"burst_mode_chance"`
	BurstRunMin      int     `mapstructure:"burst_run_min"`
	BurstRunMax      int     `mapstructure:"burst_run_max"`
	SpaceChance      float64 `mapstructure:"space_chance"`
	BurstSpaceChance float64 `mapstructure:"burst_space_chance"`

	PostBurstPauseMin time.Duration `mapstructure:"post_burst_pause_min"`
	PostBurstPauseMax time.Duration `mapstructure:"post_burst_pause_max"`
}

func setHumanoidDefaults(v *viper.Viper) {
	v.SetDefault("timing.seed", 0)

	v.SetDefault("timing.standard_delay_min", "130ms")
	v.SetDefault("timing.standard_delay_max", "170ms")
	v.SetDefault("timing.fast_burst_chance", 0.02)
	v.SetDefault("timing.fast_burst_multiplier", 0.5)
	v.SetDefault("timing.burst_pool_min", 2)
	v.SetDefault("timing.burst_pool_max", 6)

	v.SetDefault("timing.break_check_interval", "30s")
	v.SetDefault("timing.short_break_chance", 0.04)
	v.SetDefault("timing.short_break_min", "2s")
	v.SetDefault("timing.short_break_max", "6s")
	v.SetDefault("timing.long_break_chance", 0.01)
	v.SetDefault("timing.long_break_min", "4s")
	v.SetDefault("timing.long_break_max", "10s")

	v.SetDefault("timing.skip_chance", 0.025)
	v.SetDefault("timing.double_chance", 0.0286)
	v.SetDefault("timing.burst_mode_chance", 0.0167)
	v.SetDefault("timing.burst_run_min", 3)
	v.SetDefault("timing.burst_run_max", 6)
	v.SetDefault("timing.space_chance", 0.1)
	v.SetDefault("timing.burst_space_chance", 0.1)

	v.SetDefault("timing.post_burst_pause_min", "400ms")
	v.SetDefault("timing.post_burst_pause_max", "1s")
}

// Validate checks probabilities and integer ranges. Durations are repaired by
// Config.Normalize before this runs.
func (h *HumanoidConfig) Validate() error {
	probabilities := map[string]float64{
		"fast_burst_chance":  h.FastBurstChance,
		"short_break_chance": h.ShortBreakChance,
		"long_break_chance":  h.LongBreakChance,
		"skip_chance":        h.SkipChance,
		"double_chance":      h.DoubleChance,
		"burst_mode_chance":  h.BurstModeChance,
		"space_chance":       h.SpaceChance,
		"burst_space_chance": h.BurstSpaceChance,
	}
	for name, p := range probabilities {
		if p < 0 || p > 1 {
			return fmt.Errorf("%s must be within [0, 1], got %v", name, p)
		}
	}
	if h.ShortBreakChance+h.LongBreakChance > 1 {
		return fmt.Errorf("short_break_chance + long_break_chance must not exceed 1")
	}
	if h.FastBurstMultiplier <= 0 {
		return fmt.Errorf("fast_burst_multiplier must be positive")
	}
	if h.BurstPoolMin < 1 || h.BurstPoolMin >= h.BurstPoolMax {
		return fmt.Errorf("burst pool range [%d, %d) is empty", h.BurstPoolMin, h.BurstPoolMax)
	}
	if h.BurstRunMin < 1 || h.BurstRunMin >= h.BurstRunMax {
		return fmt.Errorf("burst run range [%d, %d) is empty", h.BurstRunMin, h.BurstRunMax)
	}
	if h.BreakCheckInterval <= 0 {
		return fmt.Errorf("break_check_interval must be positive")
	}
	return nil
}
