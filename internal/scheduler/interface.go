package scheduler

import (
	"time"

	"github.com/xkilldash9x/dialogskip/internal/detector"
	"github.com/xkilldash9x/dialogskip/internal/keys"
)

// KeyEmitter synthesizes a key down/up pair. Implementations must be safe for
// concurrent use; the loop, burst tasks and remaps all press keys.
type KeyEmitter interface {
	KeyTap(code keys.Code) error
}

// WindowWatcher reports whether the foreground window has the given title.
type WindowWatcher interface {
	Matches(title string) bool
}

// Detector classifies the screen on demand.
type Detector interface {
	Observe() detector.Reading
	Failures() detector.FailureStats
}

// Waiter is the loop's interruptible sleep.
type Waiter interface {
	WaitUntil(deadline time.Duration)
	Wake()
	Shutdown()
}
