// File: internal/mocks/mocks.go
package mocks

import (
	"sync"

	"github.com/stretchr/testify/mock"
	"go.uber.org/zap"

	"github.com/xkilldash9x/dialogskip/internal/keys"
	"github.com/xkilldash9x/dialogskip/internal/observability"
)

// -- Sink --

// RecordingSink is an observability.Sink that keeps every event in memory.
type RecordingSink struct {
	mu           sync.Mutex
	events       []observability.Event
	debugEnabled bool
}

// NewRecordingSink creates a sink. With debug false, Debug closures are never run.
func NewRecordingSink(debug bool) *RecordingSink {
	return &RecordingSink{debugEnabled: debug}
}

func (s *RecordingSink) Log(ev observability.Event) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.events = append(s.events, ev)
}

func (s *RecordingSink) Debug(msg func() string) {
	if !s.debugEnabled {
		return
	}
	s.Log(observability.Event{Level: zap.DebugLevel, Message: msg()})
}

// Events returns a copy of everything logged so far.
func (s *RecordingSink) Events() []observability.Event {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]observability.Event(nil), s.events...)
}

// Kinds returns the kinds of the milestone events, in order.
func (s *RecordingSink) Kinds() []observability.EventKind {
	var out []observability.EventKind
	for _, ev := range s.Events() {
		if ev.Kind != "" {
			out = append(out, ev.Kind)
		}
	}
	return out
}

// OfKind returns the events of one kind.
func (s *RecordingSink) OfKind(kind observability.EventKind) []observability.Event {
	var out []observability.Event
	for _, ev := range s.Events() {
		if ev.Kind == kind {
			out = append(out, ev)
		}
	}
	return out
}

// -- Input --

// MockKeyEmitter mocks the key tap collaborator.
type MockKeyEmitter struct {
	mock.Mock
}

func (m *MockKeyEmitter) KeyTap(code keys.Code) error {
	args := m.Called(code)
	return args.Error(0)
}

// MockWindowWatcher mocks the foreground window check.
type MockWindowWatcher struct {
	mock.Mock
}

func (m *MockWindowWatcher) Matches(title string) bool {
	args := m.Called(title)
	return args.Bool(0)
}

// -- Ingress --

// MockController mocks the scheduler's ingress operations.
type MockController struct {
	mock.Mock
}

func (m *MockController) ToggleRun(on bool) { m.Called(on) }
func (m *MockController) RequestExit()      { m.Called() }
func (m *MockController) RequestBurstTask() { m.Called() }
func (m *MockController) RequestRemap()     { m.Called() }
