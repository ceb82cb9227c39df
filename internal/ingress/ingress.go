// Package ingress turns raw global input events into scheduler requests.
package ingress

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"github.com/xkilldash9x/dialogskip/internal/config"
	"github.com/xkilldash9x/dialogskip/internal/keys"
	"github.com/xkilldash9x/dialogskip/internal/observability"
)

// Kind distinguishes keyboard from mouse events.
type Kind int

const (
	KeyDown Kind = iota + 1
	MouseDown
)

func (k Kind) String() string {
	switch k {
	case KeyDown:
		return "key_down"
	case MouseDown:
		return "mouse_down"
	default:
		return fmt.Sprintf("kind(%d)", int(k))
	}
}

// RawEvent is a platform-neutral input event. Code is a virtual key code for
// KeyDown and a button number for MouseDown.
type RawEvent struct {
	Kind Kind
	Code uint16
}

// Controller is the set of operations hotkeys can trigger.
type Controller interface {
	ToggleRun(on bool)
	RequestExit()
	RequestBurstTask()
	RequestRemap()
}

// Dispatcher maps bound hotkeys to Controller calls. Unbound events are
// ignored.
type Dispatcher struct {
	hotkeys   config.HotkeysConfig
	ctrl      Controller
	toggleLog func() bool
	sink      observability.Sink
}

// NewDispatcher creates a Dispatcher. toggleLog flips file logging and
// returns the new state; nil disables that hotkey.
func NewDispatcher(hotkeys config.HotkeysConfig, ctrl Controller, toggleLog func() bool, sink observability.Sink) *Dispatcher {
	return &Dispatcher{
		hotkeys:   hotkeys,
		ctrl:      ctrl,
		toggleLog: toggleLog,
		sink:      sink,
	}
}

// Serve handles events until ctx is done or events is closed.
func (d *Dispatcher) Serve(ctx context.Context, events <-chan RawEvent) error {
	for {
		select {
		case <-ctx.Done():
			return nil
		case ev, ok := <-events:
			if !ok {
				return nil
			}
			d.Handle(ev)
		}
	}
}

// Handle routes one event. It never blocks beyond the Controller call.
func (d *Dispatcher) Handle(ev RawEvent) {
	switch ev.Kind {
	case KeyDown:
		d.handleKey(ev.Code)
	case MouseDown:
		d.handleButton(ev.Code)
	}
}

func (d *Dispatcher) handleKey(code uint16) {
	switch code {
	case 0:
		return
	case d.hotkeys.Start:
		d.ctrl.ToggleRun(true)
	case d.hotkeys.Pause:
		d.ctrl.ToggleRun(false)
	case d.hotkeys.Exit:
		d.ctrl.RequestExit()
	case d.hotkeys.ToggleLog:
		d.flipFileLogging()
	default:
		d.sink.Debug(func() string { return "Unbound key " + keys.Code(code).String() })
	}
}

func (d *Dispatcher) handleButton(button uint16) {
	switch button {
	case 0:
		return
	case d.hotkeys.RemapButton:
		d.ctrl.RequestRemap()
	case d.hotkeys.BurstButton:
		d.ctrl.RequestBurstTask()
	}
}

func (d *Dispatcher) flipFileLogging() {
	if d.toggleLog == nil {
		return
	}
	on := d.toggleLog()
	state := "disabled"
	if on {
		state = "enabled"
	}
	d.sink.Log(observability.Event{
		Level:   zap.InfoLevel,
		Kind:    observability.EventFileLogging,
		Message: "File logging " + state,
		Fields:  []zap.Field{zap.Bool("enabled", on)},
	})
}
