// File: internal/config/config.go
package config

import (
	"errors"
	"fmt"
	"io/fs"
	"math"
	"os"
	"strings"
	"time"

	"github.com/mitchellh/go-homedir"
	"github.com/spf13/viper"
)

// EnvPrefix is the prefix for environment variable overrides (DIALOGSKIP_WINDOW_TITLE).
const EnvPrefix = "DIALOGSKIP"

// Config holds the entire application configuration.
type Config struct {
	Logger    LoggerConfig    `mapstructure:"logger"`
	Window    WindowConfig    `mapstructure:"window"`
	Screen    ScreenConfig    `mapstructure:"screen"`
	Detection DetectionConfig `mapstructure:"detection"`
	Timing    HumanoidConfig  `mapstructure:"timing"`
	Loop      LoopConfig      `mapstructure:"loop"`
	BurstTask BurstTaskConfig `mapstructure:"burst_task"`
	Keys      KeysConfig      `mapstructure:"keys"`
	Hotkeys   HotkeysConfig   `mapstructure:"hotkeys"`
	Publisher PublisherConfig `mapstructure:"publisher"`
}

// LoggerConfig holds all the configuration for the logger.
type LoggerConfig struct {
	Level       string      `mapstructure:"level"`
	Format      string      `mapstructure:"format"`
	AddSource   bool        `mapstructure:"add_source"`
	ServiceName string      `mapstructure:"service_name"`
	LogFile     string      `mapstructure:"log_file"`
	FileEnabled bool        `mapstructure:"file_enabled"`
	MaxSize     int         `mapstructure:"max_size"`
	MaxBackups  int         `mapstructure:"max_backups"`
	MaxAge      int         `mapstructure:"max_age"`
	Compress    bool        `mapstructure:"compress"`
	QueueSize   int         `mapstructure:"queue_size"`
	Colors      ColorConfig `mapstructure:"colors"`
}

// ColorConfig defines the color codes for different log levels.
type ColorConfig struct {
	Debug  string `mapstructure:"debug"`
	Info   string `mapstructure:"info"`
	Warn   string `mapstructure:"warn"`
	Error  string `mapstructure:"error"`
	DPanic string `mapstructure:"dpanic"`
	Panic  string `mapstructure:"panic"`
	Fatal  string `mapstructure:"fatal"`
}

// WindowConfig identifies the target window.
type WindowConfig struct {
	Title string `mapstructure:"title"`
	// InactivePauseAfter pauses the run once the window has been out of the
	// foreground this long. Zero disables the auto-pause.
	InactivePauseAfter time.Duration `mapstructure:"inactive_pause_after"`
}

// ScreenConfig describes the resolution and the reference pixel layout at the
// base resolution. A zero Width or Height means "ask the platform".
type ScreenConfig struct {
	Width        int               `mapstructure:"width"`
	Height       int               `mapstructure:"height"`
	BaseWidth    int               `mapstructure:"base_width"`
	BaseHeight   int               `mapstructure:"base_height"`
	PlayingIcon  PlayingIconConfig `mapstructure:"playing_icon"`
	DialogueIcon DialogueConfig    `mapstructure:"dialogue_icon"`
	LoadingPixel PointConfig       `mapstructure:"loading_pixel"`
}

// PointConfig is a coordinate at the base resolution.
type PointConfig struct {
	X int `mapstructure:"x"`
	Y int `mapstructure:"y"`
}

// PlayingIconConfig locates the "playing" icon. WideX is its x position on a
// widescreen layout at the reference widescreen width.
type PlayingIconConfig struct {
	X     int `mapstructure:"x"`
	Y     int `mapstructure:"y"`
	WideX int `mapstructure:"wide_x"`
}

// DialogueConfig locates the two choice pixels.
type DialogueConfig struct {
	X         int     `mapstructure:"x"`
	WideX     int     `mapstructure:"wide_x"`
	WideExtra float64 `mapstructure:"wide_extra"`
	LowY      int     `mapstructure:"low_y"`
	HighY     int     `mapstructure:"high_y"`
	WideLowY  int     `mapstructure:"wide_low_y"`
	WideHighY int     `mapstructure:"wide_high_y"`
}

// RGBConfig is a reference color.
type RGBConfig struct {
	R int `mapstructure:"r"`
	G int `mapstructure:"g"`
	B int `mapstructure:"b"`
}

// DetectionConfig tunes the dialogue detector and its sampling cadence.
type DetectionConfig struct {
	ColorTolerance   int           `mapstructure:"color_tolerance"`
	PlayingColor     RGBConfig     `mapstructure:"playing_color"`
	ChoiceColor      RGBConfig     `mapstructure:"choice_color"`
	LoadingColor     RGBConfig     `mapstructure:"loading_color"`
	ActiveInterval   time.Duration `mapstructure:"active_interval"`
	IdleInterval     time.Duration `mapstructure:"idle_interval"`
	IdleSleep        time.Duration `mapstructure:"idle_sleep"`
	ProbeRetries     int           `mapstructure:"probe_retries"`
	ProbeRetryDelay  time.Duration `mapstructure:"probe_retry_delay"`
	FailureWarnEvery int           `mapstructure:"failure_warn_every"`
}

// LoopConfig holds the scheduler's fixed sleeps and its failure cap.
type LoopConfig struct {
	PausedWait     time.Duration `mapstructure:"paused_wait"`
	InactiveSleep  time.Duration `mapstructure:"inactive_sleep"`
	MaxSleep       time.Duration `mapstructure:"max_sleep"`
	FailureBurst   int           `mapstructure:"failure_burst"`
	FailureWindow  time.Duration `mapstructure:"failure_window"`
	FailureBackoff time.Duration `mapstructure:"failure_backoff"`
}

// BurstTaskConfig configures the on-demand rapid press task.
type BurstTaskConfig struct {
	Duration time.Duration `mapstructure:"duration"`
	DelayMin time.Duration `mapstructure:"delay_min"`
	DelayMax time.Duration `mapstructure:"delay_max"`
}

// KeysConfig holds the virtual key codes that get emitted.
type KeysConfig struct {
	Primary   uint16 `mapstructure:"primary"`
	Alternate uint16 `mapstructure:"alternate"`
	Remap     uint16 `mapstructure:"remap"`
}

// HotkeysConfig binds global hooks to operations. Keyboard bindings are
// virtual key codes, mouse bindings are button numbers.
type HotkeysConfig struct {
	ToggleLog   uint16 `mapstructure:"toggle_log"`
	Start       uint16 `mapstructure:"start"`
	Pause       uint16 `mapstructure:"pause"`
	Exit        uint16 `mapstructure:"exit"`
	RemapButton uint16 `mapstructure:"remap_button"`
	BurstButton uint16 `mapstructure:"burst_button"`
}

// PublisherConfig configures the optional MQTT milestone publisher.
type PublisherConfig struct {
	Enabled        bool          `mapstructure:"enabled"`
	Broker         string        `mapstructure:"broker"`
	ClientID       string        `mapstructure:"client_id"`
	Topic          string        `mapstructure:"topic"`
	QoS            byte          `mapstructure:"qos"`
	ConnectTimeout time.Duration `mapstructure:"connect_timeout"`
	RetryInterval  time.Duration `mapstructure:"retry_interval"`
}

// NewDefaultConfig creates a new configuration struct populated with default values.
func NewDefaultConfig() *Config {
	v := viper.New()
	SetDefaults(v)

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		panic(fmt.Sprintf("failed to unmarshal default config: %v", err))
	}
	return &cfg
}

// SetDefaults initializes default values for every configuration parameter.
func SetDefaults(v *viper.Viper) {
	// -- Logger --
	v.SetDefault("logger.level", "info")
	v.SetDefault("logger.format", "console")
	v.SetDefault("logger.add_source", false)
	v.SetDefault("logger.service_name", "dialogskip")
	v.SetDefault("logger.log_file", "dialogskip.log")
	v.SetDefault("logger.file_enabled", false)
	v.SetDefault("logger.max_size", 5)
	v.SetDefault("logger.max_backups", 3)
	v.SetDefault("logger.max_age", 28)
	v.SetDefault("logger.compress", false)
	v.SetDefault("logger.queue_size", 1024)
	v.SetDefault("logger.colors.debug", "cyan")
	v.SetDefault("logger.colors.info", "green")
	v.SetDefault("logger.colors.warn", "yellow")
	v.SetDefault("logger.colors.error", "red")
	v.SetDefault("logger.colors.dpanic", "magenta")
	v.SetDefault("logger.colors.panic", "magenta")
	v.SetDefault("logger.colors.fatal", "magenta")

	// -- Window --
	v.SetDefault("window.title", "Genshin Impact")
	v.SetDefault("window.inactive_pause_after", "5m")

	// -- Screen --
	v.SetDefault("screen.width", 0)
	v.SetDefault("screen.height", 0)
	v.SetDefault("screen.base_width", 1920)
	v.SetDefault("screen.base_height", 1080)
	v.SetDefault("screen.playing_icon.x", 84)
	v.SetDefault("screen.playing_icon.y", 46)
	v.SetDefault("screen.playing_icon.wide_x", 230)
	v.SetDefault("screen.dialogue_icon.x", 1301)
	v.SetDefault("screen.dialogue_icon.wide_x", 2770)
	v.SetDefault("screen.dialogue_icon.wide_extra", 0.02)
	v.SetDefault("screen.dialogue_icon.low_y", 808)
	v.SetDefault("screen.dialogue_icon.high_y", 790)
	v.SetDefault("screen.dialogue_icon.wide_low_y", 810)
	v.SetDefault("screen.dialogue_icon.wide_high_y", 792)
	v.SetDefault("screen.loading_pixel.x", 1200)
	v.SetDefault("screen.loading_pixel.y", 700)

	// -- Detection --
	v.SetDefault("detection.color_tolerance", 10)
	setColorDefault(v, "detection.playing_color", 236, 229, 216)
	setColorDefault(v, "detection.choice_color", 255, 255, 255)
	setColorDefault(v, "detection.loading_color", 255, 255, 255)
	v.SetDefault("detection.active_interval", "150ms")
	v.SetDefault("detection.idle_interval", "250ms")
	v.SetDefault("detection.idle_sleep", "250ms")
	v.SetDefault("detection.probe_retries", 3)
	v.SetDefault("detection.probe_retry_delay", "5ms")
	v.SetDefault("detection.failure_warn_every", 25)

	// -- Timing (humanoid model) --
	setHumanoidDefaults(v)

	// -- Loop --
	v.SetDefault("loop.paused_wait", "500ms")
	v.SetDefault("loop.inactive_sleep", "400ms")
	v.SetDefault("loop.max_sleep", "350ms")
	v.SetDefault("loop.failure_burst", 5)
	v.SetDefault("loop.failure_window", "10s")
	v.SetDefault("loop.failure_backoff", "2s")

	// -- Burst task --
	v.SetDefault("burst_task.duration", "4s")
	v.SetDefault("burst_task.delay_min", "100ms")
	v.SetDefault("burst_task.delay_max", "180ms")

	// -- Keys (virtual key codes) --
	v.SetDefault("keys.primary", 0x46)
	v.SetDefault("keys.alternate", 0x20)
	v.SetDefault("keys.remap", 0x54)

	// -- Hotkeys --
	v.SetDefault("hotkeys.toggle_log", 0x76)
	v.SetDefault("hotkeys.start", 0x77)
	v.SetDefault("hotkeys.pause", 0x78)
	v.SetDefault("hotkeys.exit", 0x7B)
	v.SetDefault("hotkeys.remap_button", 4)
	v.SetDefault("hotkeys.burst_button", 5)

	// -- Publisher --
	v.SetDefault("publisher.enabled", false)
	v.SetDefault("publisher.broker", "tcp://localhost:1883")
	v.SetDefault("publisher.client_id", "dialogskip")
	v.SetDefault("publisher.topic", "dialogskip/events")
	v.SetDefault("publisher.qos", 0)
	v.SetDefault("publisher.connect_timeout", "5s")
	v.SetDefault("publisher.retry_interval", "5s")
}

func setColorDefault(v *viper.Viper, key string, r, g, b int) {
	v.SetDefault(key+".r", r)
	v.SetDefault(key+".g", g)
	v.SetDefault(key+".b", b)
}

// newViper returns a viper instance carrying the defaults and the env bindings.
func newViper() *viper.Viper {
	v := viper.New()
	SetDefaults(v)
	v.SetConfigType("json")
	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()
	return v
}

// NewConfigFromViper creates a new configuration instance from a viper object.
func NewConfigFromViper(v *viper.Viper) (*Config, error) {
	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("error unmarshaling config: %w", err)
	}

	cfg.Normalize()
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}
	return &cfg, nil
}

// Load reads the JSON config at path. A missing file is created from the
// defaults. Any other failure returns the defaults together with the error so
// the caller can log it and carry on.
func Load(path string) (*Config, error) {
	expanded, err := homedir.Expand(path)
	if err != nil {
		return NewDefaultConfig(), fmt.Errorf("expanding config path %q: %w", path, err)
	}

	v := newViper()
	v.SetConfigFile(expanded)

	if _, statErr := os.Stat(expanded); errors.Is(statErr, fs.ErrNotExist) {
		cfg, cfgErr := NewConfigFromViper(v)
		if cfgErr != nil {
			return NewDefaultConfig(), cfgErr
		}
		if err := v.SafeWriteConfigAs(expanded); err != nil {
			return cfg, fmt.Errorf("persisting default config to %q: %w", expanded, err)
		}
		return cfg, nil
	}

	if err := v.ReadInConfig(); err != nil {
		return NewDefaultConfig(), fmt.Errorf("reading config file %q: %w", expanded, err)
	}
	cfg, err := NewConfigFromViper(v)
	if err != nil {
		return NewDefaultConfig(), err
	}
	return cfg, nil
}

// Normalize clamps values into usable ranges and repairs reversed bounds.
func (c *Config) Normalize() {
	c.Timing.StandardDelayMin = clampDuration(c.Timing.StandardDelayMin, 10*time.Millisecond, 5*time.Second)
	c.Timing.StandardDelayMax = clampDuration(c.Timing.StandardDelayMax, 10*time.Millisecond, 5*time.Second)
	orderDurations(&c.Timing.StandardDelayMin, &c.Timing.StandardDelayMax)
	orderDurations(&c.Timing.ShortBreakMin, &c.Timing.ShortBreakMax)
	orderDurations(&c.Timing.LongBreakMin, &c.Timing.LongBreakMax)
	orderDurations(&c.Timing.PostBurstPauseMin, &c.Timing.PostBurstPauseMax)
	orderDurations(&c.BurstTask.DelayMin, &c.BurstTask.DelayMax)

	c.Detection.ColorTolerance = int(math.Max(0, math.Min(255, float64(c.Detection.ColorTolerance))))
	if c.Logger.QueueSize <= 0 {
		c.Logger.QueueSize = 1
	}
}

// Validate checks the configuration for required fields and sane values.
func (c *Config) Validate() error {
	if strings.TrimSpace(c.Window.Title) == "" {
		return fmt.Errorf("window.title must not be empty")
	}
	if c.Window.InactivePauseAfter < 0 {
		return fmt.Errorf("window.inactive_pause_after must not be negative")
	}
	if c.Screen.BaseWidth <= 0 || c.Screen.BaseHeight <= 0 {
		return fmt.Errorf("screen.base_width and screen.base_height must be positive")
	}
	if c.Screen.Width < 0 || c.Screen.Height < 0 {
		return fmt.Errorf("screen.width and screen.height must not be negative")
	}
	if c.Detection.ActiveInterval <= 0 || c.Detection.IdleInterval <= 0 {
		return fmt.Errorf("detection intervals must be positive")
	}
	if c.Detection.ProbeRetries < 0 {
		return fmt.Errorf("detection.probe_retries must not be negative")
	}
	if c.Loop.PausedWait <= 0 || c.Loop.InactiveSleep <= 0 || c.Loop.MaxSleep <= 0 {
		return fmt.Errorf("loop sleeps must be positive")
	}
	if c.Loop.FailureBurst < 1 || c.Loop.FailureWindow <= 0 {
		return fmt.Errorf("loop.failure_burst and loop.failure_window must be positive")
	}
	if c.BurstTask.Duration <= 0 || c.BurstTask.DelayMin <= 0 {
		return fmt.Errorf("burst_task.duration and burst_task.delay_min must be positive")
	}
	if c.Publisher.Enabled && (c.Publisher.Broker == "" || c.Publisher.Topic == "") {
		return fmt.Errorf("publisher.broker and publisher.topic are required when the publisher is enabled")
	}
	if c.Publisher.Enabled && (c.Publisher.ConnectTimeout <= 0 || c.Publisher.RetryInterval <= 0) {
		return fmt.Errorf("publisher.connect_timeout and publisher.retry_interval must be positive")
	}
	if c.Publisher.QoS > 2 {
		return fmt.Errorf("publisher.qos must be 0, 1 or 2")
	}
	if err := c.Timing.Validate(); err != nil {
		return fmt.Errorf("timing configuration invalid: %w", err)
	}
	return nil
}

func clampDuration(d, lo, hi time.Duration) time.Duration {
	if d < lo {
		return lo
	}
	if d > hi {
		return hi
	}
	return d
}

func orderDurations(lo, hi *time.Duration) {
	if *lo > *hi {
		*lo, *hi = *hi, *lo
	}
}
