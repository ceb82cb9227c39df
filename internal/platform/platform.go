// Package platform binds the automation to the desktop through robotgo and
// gohook: pixel reads, synthesized key taps, the foreground window title and
// global input hooks.
package platform

import (
	"fmt"
	"strings"
	"sync"
	"sync/atomic"

	"github.com/go-vgo/robotgo"

	"github.com/xkilldash9x/dialogskip/internal/detector"
	"github.com/xkilldash9x/dialogskip/internal/keys"
)

// Screen reads pixels from the primary display.
type Screen struct {
	pixelHex func(x, y int) string
	size     func() (int, int)
	closed   atomic.Bool
}

// NewScreen acquires the screen. Call Close on every exit path.
func NewScreen() *Screen {
	return &Screen{
		pixelHex: func(x, y int) string { return robotgo.GetPixelColor(x, y) },
		size:     robotgo.GetScreenSize,
	}
}

// Pixel returns the color at (x, y), or detector.InvalidColor when the read
// fails or the screen has been closed.
func (s *Screen) Pixel(x, y int) detector.Color {
	if s.closed.Load() {
		return detector.InvalidColor
	}
	c, err := detector.ParseHex(s.pixelHex(x, y))
	if err != nil {
		return detector.InvalidColor
	}
	return c
}

// Size reports the primary display resolution.
func (s *Screen) Size() (width, height int) {
	return s.size()
}

// Close releases the screen. Later reads fail with InvalidColor.
func (s *Screen) Close() error {
	s.closed.Store(true)
	return nil
}

// Emitter synthesizes key taps. Taps from the loop, burst tasks and remaps
// are serialized so their down/up pairs never interleave.
type Emitter struct {
	mu  sync.Mutex
	tap func(name string) error
}

func NewEmitter() *Emitter {
	return &Emitter{tap: func(name string) error { return robotgo.KeyTap(name) }}
}

func (e *Emitter) KeyTap(code keys.Code) error {
	name, err := keys.Name(code)
	if err != nil {
		return err
	}
	e.mu.Lock()
	defer e.mu.Unlock()
	if err := e.tap(name); err != nil {
		return fmt.Errorf("tap %q: %w", name, err)
	}
	return nil
}

// Window checks the foreground window title.
type Window struct {
	title func() string
}

func NewWindow() *Window {
	return &Window{title: func() string { return robotgo.GetTitle() }}
}

// Matches reports whether the foreground window's title equals title,
// ignoring case.
func (w *Window) Matches(title string) bool {
	return strings.EqualFold(w.title(), title)
}
