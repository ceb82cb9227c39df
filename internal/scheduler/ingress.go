package scheduler

import (
	"go.uber.org/zap"

	"github.com/xkilldash9x/dialogskip/internal/observability"
)

// The operations below are called from the hook goroutine. They only touch
// atomic flags, the burst slot and the waiter, and return quickly.

// ToggleRun enables or disables action dispatch. Setting the current value is
// a no-op.
func (s *Scheduler) ToggleRun(on bool) {
	if !s.running.CompareAndSwap(!on, on) {
		return
	}
	ev := observability.Event{Level: zap.InfoLevel, Kind: observability.EventPause, Message: "PAUSE"}
	if on {
		ev.Kind, ev.Message = observability.EventRun, "RUN"
	}
	s.sink.Log(ev)
	s.waiter.Wake()
}

// RequestExit stops the loop after the current tick and cancels any burst
// task.
func (s *Scheduler) RequestExit() {
	if s.shouldExit.Swap(true) {
		return
	}
	s.sink.Log(observability.Event{Level: zap.InfoLevel, Kind: observability.EventExit, Message: "EXIT"})
	s.bursts.cancel()
	s.waiter.Shutdown()
}

// RequestBurstTask replaces any running burst task with a fresh one. Ignored
// while the target window is in the background.
func (s *Scheduler) RequestBurstTask() {
	if s.shouldExit.Load() {
		return
	}
	if !s.watcher.Matches(s.title) {
		s.sink.Debug(func() string { return "Burst request ignored: window inactive" })
		return
	}
	s.bursts.start()
}

// RequestRemap taps the remap key right away, outside the loop's timing.
func (s *Scheduler) RequestRemap() {
	if !s.watcher.Matches(s.title) {
		s.sink.Debug(func() string { return "Remap ignored: window inactive" })
		return
	}
	if err := s.emitter.KeyTap(s.keys.remap); err != nil {
		s.sink.Log(observability.Event{
			Level:   zap.WarnLevel,
			Message: "Remap press failed",
			Fields:  []zap.Field{zap.Error(err)},
		})
		return
	}
	s.sink.Log(observability.Event{
		Level:   zap.InfoLevel,
		Kind:    observability.EventRemap,
		Message: "Remap: " + s.keys.remap.String(),
	})
}
