package scheduler

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/xkilldash9x/dialogskip/internal/config"
	"github.com/xkilldash9x/dialogskip/internal/detector"
	"github.com/xkilldash9x/dialogskip/internal/humanoid"
	"github.com/xkilldash9x/dialogskip/internal/keys"
	"github.com/xkilldash9x/dialogskip/internal/observability"
)

// The loop runs synchronously on the test goroutine against a simulated
// clock. Waits advance the clock instead of sleeping.

type simClock struct{ now time.Duration }

func (c *simClock) Now() time.Duration { return c.now }

// simWaiter moves the clock at most step per wait so hooks see intermediate
// times, the way a real wait can end early.
type simWaiter struct {
	t        *testing.T
	clock    *simClock
	step     time.Duration
	onWait   []func(now time.Duration)
	woken    bool
	shutdown bool
	waits    int
}

const maxSimWaits = 200000

func (w *simWaiter) WaitUntil(deadline time.Duration) {
	if w.shutdown {
		return
	}
	if w.woken {
		w.woken = false
		return
	}
	w.waits++
	if w.waits > maxSimWaits {
		w.t.Fatalf("simulation did not terminate by %s", w.clock.now)
	}
	next := deadline
	if w.step > 0 && next > w.clock.now+w.step {
		next = w.clock.now + w.step
	}
	if next > w.clock.now {
		w.clock.now = next
	}
	for _, fn := range w.onWait {
		fn(w.clock.now)
	}
}

func (w *simWaiter) Wake()     { w.woken = true }
func (w *simWaiter) Shutdown() { w.shutdown = true }

type tapRecord struct {
	at  time.Duration
	key keys.Code
}

type simEmitter struct {
	clock *simClock
	taps  []tapRecord
	fail  func(n int) error
	onTap func(key keys.Code)
}

func (e *simEmitter) KeyTap(key keys.Code) error {
	if e.onTap != nil {
		e.onTap(key)
	}
	if e.fail != nil {
		if err := e.fail(len(e.taps)); err != nil {
			return err
		}
	}
	e.taps = append(e.taps, tapRecord{at: e.clock.now, key: key})
	return nil
}

func (e *simEmitter) tapsIn(from, to time.Duration) int {
	n := 0
	for _, tp := range e.taps {
		if tp.at >= from && tp.at < to {
			n++
		}
	}
	return n
}

type simWindow struct {
	clock  *simClock
	active func(now time.Duration) bool
}

func (w *simWindow) Matches(string) bool {
	if w.active == nil {
		return true
	}
	return w.active(w.clock.now)
}

type simDetector struct {
	clock  *simClock
	dialog func(now time.Duration) bool
	last   bool
	calls  int
}

func (d *simDetector) Observe() detector.Reading {
	d.calls++
	in := d.dialog == nil || d.dialog(d.clock.now)
	changed := in != d.last
	d.last = in
	state := detector.StateNone
	if in {
		state = detector.StatePlaying
	}
	return detector.Reading{State: state, InDialogue: in, Changed: changed}
}

func (d *simDetector) Failures() detector.FailureStats { return detector.FailureStats{} }

type timedEvent struct {
	at time.Duration
	observability.Event
}

// simSink stamps each event with the simulated time.
type simSink struct {
	clock  *simClock
	events []timedEvent
}

func (s *simSink) Log(ev observability.Event) {
	s.events = append(s.events, timedEvent{at: s.clock.now, Event: ev})
}

func (s *simSink) Debug(func() string) {}

func (s *simSink) ofKind(kind observability.EventKind) []timedEvent {
	var out []timedEvent
	for _, ev := range s.events {
		if ev.Kind == kind {
			out = append(out, ev)
		}
	}
	return out
}

func (s *simSink) withMessage(msg string) []timedEvent {
	var out []timedEvent
	for _, ev := range s.events {
		if ev.Message == msg {
			out = append(out, ev)
		}
	}
	return out
}

func fieldKeys(fields []zap.Field) []string {
	out := make([]string, 0, len(fields))
	for _, f := range fields {
		out = append(out, f.Key)
	}
	return out
}

type simEnv struct {
	cfg     *config.Config
	s       *Scheduler
	clock   *simClock
	waiter  *simWaiter
	emitter *simEmitter
	window  *simWindow
	det     *simDetector
	sink    *simSink
}

// quietTiming turns off every random behavior and pins the standard delay
// range.
func quietTiming(c *config.HumanoidConfig) {
	c.Seed = 7
	c.StandardDelayMin = 130 * time.Millisecond
	c.StandardDelayMax = 170 * time.Millisecond
	c.FastBurstChance = 0
	c.ShortBreakChance = 0
	c.LongBreakChance = 0
	c.SkipChance = 0
	c.DoubleChance = 0
	c.BurstModeChance = 0
	c.SpaceChance = 0
	c.BurstSpaceChance = 0
}

func newSimEnv(t *testing.T, mutate func(cfg *config.Config)) *simEnv {
	t.Helper()
	cfg := config.NewDefaultConfig()
	quietTiming(&cfg.Timing)
	if mutate != nil {
		mutate(cfg)
	}

	clock := &simClock{}
	env := &simEnv{
		cfg:     cfg,
		clock:   clock,
		waiter:  &simWaiter{t: t, clock: clock, step: 50 * time.Millisecond},
		emitter: &simEmitter{clock: clock},
		window:  &simWindow{clock: clock},
		det:     &simDetector{clock: clock},
		sink:    &simSink{clock: clock},
	}
	env.s = New(cfg, Deps{
		Clock:    clock,
		Waiter:   env.waiter,
		Emitter:  env.emitter,
		Window:   env.window,
		Detector: env.det,
		Model:    humanoid.New(cfg.Timing),
		Sink:     env.sink,
	})
	return env
}

// onWait registers a hook run after every wait that advanced the clock.
func (e *simEnv) onWait(fn func(now time.Duration)) {
	e.waiter.onWait = append(e.waiter.onWait, fn)
}

// runUntil starts dispatch and runs the loop until the clock reaches limit.
func (e *simEnv) runUntil(t *testing.T, limit time.Duration) {
	t.Helper()
	e.onWait(func(now time.Duration) {
		if now >= limit {
			e.s.RequestExit()
		}
	})
	e.s.ToggleRun(true)
	require.NoError(t, e.s.Run(context.Background()))
}
