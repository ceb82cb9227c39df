package scheduler

import "time"

// runState is owned by the loop goroutine. Deadlines are clock offsets; zero
// means unset.
type runState struct {
	windowActive bool
	inDialogue   bool

	skipNext   bool
	doubleNext bool

	burstMode      bool
	burstRemaining int

	breakUntil          time.Duration
	postBurstPauseUntil time.Duration
	lastBreakCheck      time.Duration
	nextStateCheck      time.Duration
	lastPressTime       time.Duration
	nextInterval        time.Duration

	// lastActiveSeen anchors the inactivity auto-pause.
	lastActiveSeen time.Duration

	// presses since the last milestone, and when that milestone happened
	pressCount       int
	sessionStartTime time.Duration
}

// sessionStats are totals reported when the loop closes.
type sessionStats struct {
	startedAt time.Duration
	presses   int
	skips     int
	breaks    int
	bursts    int
	failures  int
}
