// Package scheduler drives the automation: a single-goroutine tick loop that
// decides when to press, pause, take breaks and re-check the screen, plus the
// cross-goroutine ingress operations that steer it.
package scheduler

import (
	"context"
	"fmt"
	"runtime/debug"
	"sync/atomic"
	"time"

	"go.uber.org/zap"
	"golang.org/x/time/rate"

	"github.com/xkilldash9x/dialogskip/internal/config"
	"github.com/xkilldash9x/dialogskip/internal/humanoid"
	"github.com/xkilldash9x/dialogskip/internal/keys"
	"github.com/xkilldash9x/dialogskip/internal/observability"
	"github.com/xkilldash9x/dialogskip/internal/timing"
)

// Deps are the collaborators the scheduler is built from.
type Deps struct {
	Clock    timing.Clock
	Waiter   Waiter
	Emitter  KeyEmitter
	Window   WindowWatcher
	Detector Detector
	Model    *humanoid.Model
	Sink     observability.Sink
}

type keySet struct {
	primary   keys.Code
	alternate keys.Code
	remap     keys.Code
}

// Scheduler owns the run state. Run must be called from exactly one
// goroutine; the ingress operations may be called from any goroutine.
type Scheduler struct {
	title  string
	window config.WindowConfig
	detect config.DetectionConfig
	loop   config.LoopConfig
	timing config.HumanoidConfig
	keys   keySet

	clock    timing.Clock
	waiter   Waiter
	emitter  KeyEmitter
	watcher  WindowWatcher
	detector Detector
	model    *humanoid.Model
	sink     observability.Sink
	bursts   *burstRunner

	running    atomic.Bool
	shouldExit atomic.Bool

	failures *rate.Limiter

	// loop goroutine only
	state runState
	stats sessionStats
}

// New creates a paused scheduler.
func New(cfg *config.Config, deps Deps) *Scheduler {
	s := &Scheduler{
		title:  cfg.Window.Title,
		window: cfg.Window,
		detect: cfg.Detection,
		loop:   cfg.Loop,
		timing: cfg.Timing,
		keys: keySet{
			primary:   keys.Code(cfg.Keys.Primary),
			alternate: keys.Code(cfg.Keys.Alternate),
			remap:     keys.Code(cfg.Keys.Remap),
		},
		clock:    deps.Clock,
		waiter:   deps.Waiter,
		emitter:  deps.Emitter,
		watcher:  deps.Window,
		detector: deps.Detector,
		model:    deps.Model,
		sink:     deps.Sink,
		failures: newFailureLimiter(cfg.Loop),
	}
	s.bursts = &burstRunner{
		cfg:     cfg.BurstTask,
		title:   cfg.Window.Title,
		key:     s.keys.primary,
		emitter: deps.Emitter,
		window:  deps.Window,
		model:   deps.Model,
		sink:    deps.Sink,
	}
	return s
}

func newFailureLimiter(cfg config.LoopConfig) *rate.Limiter {
	burst := cfg.FailureBurst
	if burst < 1 {
		burst = 1
	}
	return rate.NewLimiter(rate.Every(cfg.FailureWindow/time.Duration(burst)), burst)
}

// Running reports whether action dispatch is enabled.
func (s *Scheduler) Running() bool {
	return s.running.Load()
}

// Run executes the tick loop until RequestExit is called or ctx is done. Tick
// failures are logged and never end the loop.
func (s *Scheduler) Run(ctx context.Context) error {
	stop := context.AfterFunc(ctx, s.RequestExit)
	defer stop()
	defer s.bursts.stop()

	now := s.clock.Now()
	s.state = runState{
		lastPressTime:    now,
		lastBreakCheck:   now,
		lastActiveSeen:   now,
		sessionStartTime: now,
		nextInterval:     s.model.NextInterval(),
	}
	s.stats = sessionStats{startedAt: now}

	for !s.shouldExit.Load() {
		if err := s.safeTick(); err != nil {
			s.onTickFailure(err)
		}
	}

	s.summary()
	return nil
}

// Close cancels any burst task and waits for it. Run does the same on return.
func (s *Scheduler) Close() {
	s.bursts.stop()
}

type tickPanic struct {
	value any
	stack []byte
}

func (p *tickPanic) Error() string {
	return fmt.Sprintf("tick panicked: %v", p.value)
}

func (s *Scheduler) safeTick() (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = &tickPanic{value: r, stack: debug.Stack()}
		}
	}()
	return s.tick()
}

func (s *Scheduler) onTickFailure(err error) {
	s.stats.failures++
	fields := []zap.Field{zap.Error(err), zap.Int("total_failures", s.stats.failures)}
	if p, ok := err.(*tickPanic); ok {
		fields = append(fields, zap.ByteString("stack", p.stack))
	}
	s.sink.Log(observability.Event{
		Level:   zap.ErrorLevel,
		Kind:    observability.EventTickFailure,
		Message: "Tick failed",
		Fields:  fields,
	})

	if !s.failures.Allow() {
		s.sink.Log(observability.Event{
			Level:   zap.WarnLevel,
			Message: "Too many tick failures, backing off",
			Fields:  []zap.Field{zap.Duration("backoff", s.loop.FailureBackoff)},
		})
		s.waiter.WaitUntil(s.clock.Now() + s.loop.FailureBackoff)
	}
}

// tick evaluates the loop's states in priority order. Every path either
// waits or changes state so the next tick makes progress.
func (s *Scheduler) tick() error {
	st := &s.state
	now := s.clock.Now()

	if !s.running.Load() {
		s.waiter.WaitUntil(now + s.loop.PausedWait)
		now = s.clock.Now()
		st.lastPressTime = now
		st.lastActiveSeen = now
		return nil
	}

	active := s.watcher.Matches(s.title)
	if active != st.windowActive {
		st.windowActive = active
		if active {
			s.milestone(now, observability.EventWindowActive, "Window active")
		} else {
			s.milestone(now, observability.EventWindowInactive, "Window inactive")
		}
	}
	if !active {
		idle := now - st.lastActiveSeen
		if s.window.InactivePauseAfter > 0 && idle >= s.window.InactivePauseAfter {
			s.running.Store(false)
			s.milestone(now, observability.EventAutoPause,
				fmt.Sprintf("Auto-paused: window inactive for %s", idle.Round(time.Second)))
			return nil
		}
		s.waiter.WaitUntil(now + s.loop.InactiveSleep)
		return nil
	}
	st.lastActiveSeen = now

	if now < st.breakUntil {
		s.waiter.WaitUntil(st.breakUntil)
		return nil
	}

	if now-st.lastBreakCheck >= s.timing.BreakCheckInterval {
		st.lastBreakCheck = now
		if kind := s.model.MaybeBreak(); kind != humanoid.BreakNone {
			d := s.model.BreakDuration(kind)
			st.breakUntil = now + d
			st.nextInterval = s.model.NextInterval()
			s.stats.breaks++
			s.milestone(now, observability.EventBreak,
				fmt.Sprintf("Taking a %s break for %s", kind, d.Round(time.Millisecond)),
				zap.Stringer("break", kind), zap.Duration("duration", d))
			return nil
		}
	}

	if now >= st.nextStateCheck {
		r := s.detector.Observe()
		if r.Changed {
			if r.InDialogue {
				s.milestone(now, observability.EventDialogueStart, "Dialogue detected",
					zap.Stringer("state", r.State))
			} else {
				s.milestone(now, observability.EventDialogueEnd, "Dialogue ended")
			}
		}
		st.inDialogue = r.InDialogue
		if !r.InDialogue {
			st.nextStateCheck = now + s.detect.IdleInterval
			s.waiter.WaitUntil(now + s.detect.IdleSleep)
			return nil
		}
		st.nextStateCheck = now + s.detect.ActiveInterval
	} else if !st.inDialogue {
		s.waiter.WaitUntil(min(st.nextStateCheck, now+s.detect.IdleSleep))
		return nil
	}

	if now < st.postBurstPauseUntil {
		s.waiter.WaitUntil(st.postBurstPauseUntil)
		return nil
	}

	if now-st.lastPressTime >= st.nextInterval || st.burstMode {
		if err := s.dispatch(now); err != nil {
			return err
		}
	}

	s.waiter.WaitUntil(s.nextWake(now))
	return nil
}

// nextWake is the earliest pending deadline, never further than MaxSleep.
func (s *Scheduler) nextWake(now time.Duration) time.Duration {
	st := &s.state
	wake := st.lastPressTime + st.nextInterval
	if st.breakUntil > now {
		wake = min(wake, st.breakUntil)
	}
	wake = min(wake, st.nextStateCheck)
	if st.postBurstPauseUntil > now {
		wake = min(wake, st.postBurstPauseUntil)
	}
	return min(wake, now+s.loop.MaxSleep)
}

// milestone logs a transition and resets the press counter.
func (s *Scheduler) milestone(now time.Duration, kind observability.EventKind, msg string, fields ...zap.Field) {
	st := &s.state
	s.sink.Log(observability.Event{
		Level:   zap.InfoLevel,
		Kind:    kind,
		Message: msg,
		Presses: st.pressCount,
		Since:   now - st.sessionStartTime,
		Fields:  fields,
	})
	st.pressCount = 0
	st.sessionStartTime = now
}

func (s *Scheduler) summary() {
	now := s.clock.Now()
	probe := s.detector.Failures()
	s.sink.Log(observability.Event{
		Level:   zap.InfoLevel,
		Kind:    observability.EventLoopClosed,
		Message: "Loop closed",
		Presses: s.state.pressCount,
		Since:   now - s.state.sessionStartTime,
		Fields: []zap.Field{
			zap.Int("total_presses", s.stats.presses),
			zap.Int("skips", s.stats.skips),
			zap.Int("breaks", s.stats.breaks),
			zap.Int("bursts", s.stats.bursts),
			zap.Int("tick_failures", s.stats.failures),
			zap.Int("probe_failures", probe.Total),
			zap.Int("probe_failed_pixels", probe.Unique),
			zap.Duration("uptime", now-s.stats.startedAt),
		},
	})
}
