package platform

import (
	"context"
	"errors"
	"time"

	hook "github.com/robotn/gohook"

	"github.com/xkilldash9x/dialogskip/internal/ingress"
)

// ErrHookUnavailable is returned when the global input hook cannot be
// installed.
var ErrHookUnavailable = errors.New("global input hook unavailable")

// hookQueue bounds the events buffered between the OS callback and the
// dispatcher. Overflow is dropped so the callback never stalls.
const hookQueue = 64

// hookReadyTimeout bounds the wait for the hook's enabled notification.
const hookReadyTimeout = 2 * time.Second

// Hooks is the process-wide keyboard and mouse hook.
type Hooks struct {
	start func() chan hook.Event
	end   func()
	ready time.Duration
}

func NewHooks() *Hooks {
	return &Hooks{start: hook.Start, end: hook.End, ready: hookReadyTimeout}
}

// Start installs the hook and streams key and button presses until ctx is
// done. The returned channel is closed after the hook is removed. It fails
// with ErrHookUnavailable when the hook does not report itself enabled in
// time.
func (h *Hooks) Start(ctx context.Context) (<-chan ingress.RawEvent, error) {
	src := h.start()
	if src == nil {
		return nil, ErrHookUnavailable
	}
	if err := h.awaitEnabled(ctx, src); err != nil {
		h.end()
		return nil, err
	}

	out := make(chan ingress.RawEvent, hookQueue)
	go func() {
		defer close(out)
		defer h.end()
		for {
			select {
			case <-ctx.Done():
				return
			case ev, ok := <-src:
				if !ok {
					return
				}
				raw, ok := translate(ev)
				if !ok {
					continue
				}
				select {
				case out <- raw:
				default:
				}
			}
		}
	}()
	return out, nil
}

func (h *Hooks) awaitEnabled(ctx context.Context, src <-chan hook.Event) error {
	timer := time.NewTimer(h.ready)
	defer timer.Stop()
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-timer.C:
			return ErrHookUnavailable
		case ev, ok := <-src:
			if !ok {
				return ErrHookUnavailable
			}
			if ev.Kind == hook.HookEnabled {
				return nil
			}
		}
	}
}

// translate keeps presses only. gohook reports a physical press as KeyHold or
// MouseHold; Rawcode is the virtual key code and Button counts from 1.
func translate(ev hook.Event) (ingress.RawEvent, bool) {
	switch ev.Kind {
	case hook.KeyHold:
		return ingress.RawEvent{Kind: ingress.KeyDown, Code: ev.Rawcode}, true
	case hook.MouseHold:
		return ingress.RawEvent{Kind: ingress.MouseDown, Code: ev.Button}, true
	default:
		return ingress.RawEvent{}, false
	}
}
