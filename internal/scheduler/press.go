package scheduler

import (
	"fmt"
	"time"

	"github.com/xkilldash9x/dialogskip/internal/keys"
	"github.com/xkilldash9x/dialogskip/internal/observability"
)

// dispatch draws the per-action modifiers and either skips or presses. The
// skip and double flags never outlive the dispatch that consumed them.
func (s *Scheduler) dispatch(now time.Duration) error {
	st := &s.state
	mods := s.model.Modifiers()
	st.skipNext = st.skipNext || mods.Skip
	st.doubleNext = st.doubleNext || mods.Double
	if mods.EnterBurst && !st.burstMode {
		st.burstMode = true
		st.burstRemaining = mods.BurstRun
		s.stats.bursts++
		s.milestone(now, observability.EventBurstMode,
			fmt.Sprintf("Burst mode for %d presses", mods.BurstRun))
	}

	var err error
	if st.skipNext {
		s.stats.skips++
		s.sink.Debug(func() string { return "Skipped a press" })
	} else {
		err = s.performPress(now)
	}

	st.skipNext = false
	st.doubleNext = false
	st.lastPressTime = now
	st.nextInterval = s.model.NextInterval()
	return err
}

func (s *Scheduler) performPress(now time.Duration) error {
	st := &s.state
	alternate := s.model.UseAlternate(st.burstMode)
	key := s.keys.primary
	if alternate {
		key = s.keys.alternate
	}
	if err := s.tap(key); err != nil {
		return err
	}

	if !alternate && st.doubleNext {
		if err := s.tap(s.keys.primary); err != nil {
			return err
		}
		st.postBurstPauseUntil = now + s.model.PostBurstPause()
	}

	if st.burstMode {
		st.burstRemaining--
		if st.burstRemaining <= 0 {
			st.burstMode = false
			st.burstRemaining = 0
			st.postBurstPauseUntil = now + s.model.PostBurstPause()
			s.sink.Debug(func() string { return "Burst mode finished" })
		}
	}
	return nil
}

func (s *Scheduler) tap(key keys.Code) error {
	if err := s.emitter.KeyTap(key); err != nil {
		return fmt.Errorf("pressing %s: %w", key, err)
	}
	s.state.pressCount++
	s.stats.presses++
	s.sink.Debug(func() string { return "Pressed " + key.String() })
	return nil
}
