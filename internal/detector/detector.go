// Package detector classifies the dialogue state of the target window from a
// handful of reference pixels.
package detector

import (
	"fmt"
	"time"

	"go.uber.org/zap"
	"golang.org/x/time/rate"

	"github.com/xkilldash9x/dialogskip/internal/config"
	"github.com/xkilldash9x/dialogskip/internal/observability"
)

// Probe reads the color of one screen pixel. It returns InvalidColor on a
// transient failure.
type Probe interface {
	Pixel(x, y int) Color
}

// State is the classified UI state.
type State int

const (
	StateNone State = iota
	StatePlaying
	StateChoice
)

func (s State) String() string {
	switch s {
	case StatePlaying:
		return "playing"
	case StateChoice:
		return "choice"
	default:
		return "none"
	}
}

// InDialogue reports whether the state has an advanceable prompt.
func (s State) InDialogue() bool {
	return s == StatePlaying || s == StateChoice
}

// Reading is the result of one observation. Changed is set only when
// InDialogue differs from the previous observation.
type Reading struct {
	State      State
	InDialogue bool
	Changed    bool
}

// FailureStats summarizes unreadable pixels.
type FailureStats struct {
	Total  int
	Unique int
}

// Detector samples the layout's pixels through a Probe. It is not safe for
// concurrent use; the scheduler owns it.
type Detector struct {
	probe  Probe
	layout Layout
	sink   observability.Sink

	tolerance int
	playing   config.RGBConfig
	choice    config.RGBConfig
	loading   config.RGBConfig

	retries    int
	retryDelay time.Duration
	sleep      func(time.Duration)

	failures   int
	failedAt   map[Point]int
	warnFailed rate.Sometimes

	inDialogue bool
}

// New creates a Detector sampling layout through probe.
func New(cfg config.DetectionConfig, layout Layout, probe Probe, sink observability.Sink) *Detector {
	every := cfg.FailureWarnEvery
	if every < 1 {
		every = 1
	}
	return &Detector{
		probe:      probe,
		layout:     layout,
		sink:       sink,
		tolerance:  cfg.ColorTolerance,
		playing:    cfg.PlayingColor,
		choice:     cfg.ChoiceColor,
		loading:    cfg.LoadingColor,
		retries:    cfg.ProbeRetries,
		retryDelay: cfg.ProbeRetryDelay,
		sleep:      time.Sleep,
		failedAt:   make(map[Point]int),
		warnFailed: rate.Sometimes{First: 1, Every: every},
	}
}

// Detect classifies the current screen. The playing icon wins outright. The
// choice pixels are only consulted when the loading pixel shows the screen is
// not mid-transition.
func (d *Detector) Detect() State {
	if d.matchAt("playing", d.layout.Playing, d.playing) {
		return StatePlaying
	}
	if d.matchAt("loading", d.layout.Loading, d.loading) {
		return StateNone
	}
	if d.matchAt("choice low", d.layout.ChoiceLow, d.choice) ||
		d.matchAt("choice high", d.layout.ChoiceHigh, d.choice) {
		return StateChoice
	}
	return StateNone
}

// Observe runs Detect and flags a change in the in-dialogue boolean.
func (d *Detector) Observe() Reading {
	state := d.Detect()
	in := state.InDialogue()
	changed := in != d.inDialogue
	d.inDialogue = in
	return Reading{State: state, InDialogue: in, Changed: changed}
}

// Failures returns the unreadable pixel counters.
func (d *Detector) Failures() FailureStats {
	return FailureStats{Total: d.failures, Unique: len(d.failedAt)}
}

func (d *Detector) matchAt(name string, p Point, ref config.RGBConfig) bool {
	c, ok := d.sample(p)
	if !ok {
		return false
	}
	match := ColorsMatch(c, ref.R, ref.G, ref.B, d.tolerance)
	d.sink.Debug(func() string {
		return fmt.Sprintf("%s pixel (%d,%d) = %s match=%t", name, p.X, p.Y, c, match)
	})
	return match
}

// sample reads p, retrying a bounded number of times while the probe reports
// InvalidColor.
func (d *Detector) sample(p Point) (Color, bool) {
	for attempt := 0; ; attempt++ {
		if c := d.probe.Pixel(p.X, p.Y); c != InvalidColor {
			return c, true
		}
		if attempt >= d.retries {
			break
		}
		if d.retryDelay > 0 {
			d.sleep(d.retryDelay)
		}
	}

	d.failures++
	d.failedAt[p]++
	d.warnFailed.Do(func() {
		d.sink.Log(observability.Event{
			Level:   zap.WarnLevel,
			Kind:    observability.EventProbeFailure,
			Message: "Pixel reads are failing",
			Fields: []zap.Field{
				zap.Int("total", d.failures),
				zap.Int("unique", len(d.failedAt)),
				zap.Int("x", p.X),
				zap.Int("y", p.Y),
			},
		})
	})
	return InvalidColor, false
}
