package observability

import (
	"sync"
	"sync/atomic"
	"time"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// EventKind names a milestone in the automation's life.
type EventKind string

const (
	EventRun            EventKind = "run"
	EventPause          EventKind = "pause"
	EventAutoPause      EventKind = "auto_pause"
	EventExit           EventKind = "exit"
	EventWindowActive   EventKind = "window_active"
	EventWindowInactive EventKind = "window_inactive"
	EventDialogueStart  EventKind = "dialogue_start"
	EventDialogueEnd    EventKind = "dialogue_end"
	EventBreak          EventKind = "break"
	EventBurstMode      EventKind = "burst_mode"
	EventBurstTaskStart EventKind = "burst_task_start"
	EventBurstTaskEnd   EventKind = "burst_task_end"
	EventRemap          EventKind = "remap"
	EventFileLogging    EventKind = "file_logging"
	EventTickFailure    EventKind = "tick_failure"
	EventProbeFailure   EventKind = "probe_failure"
	EventLoopClosed     EventKind = "loop_closed"
)

// Event is one log record travelling through a Sink. Kind is empty for plain
// log lines; milestone events carry the presses counted since the previous
// milestone and the time elapsed since it.
type Event struct {
	Time    time.Time
	Level   zapcore.Level
	Kind    EventKind
	Message string
	Presses int
	Since   time.Duration
	Fields  []zap.Field
}

// Sink is the logging capability handed to the automation core.
type Sink interface {
	// Log records an event without blocking the caller.
	Log(ev Event)
	// Debug records the message built by msg. msg is only called when debug
	// output is enabled.
	Debug(msg func() string)
}

// Subscriber receives milestone events from the sink's consumer goroutine.
type Subscriber interface {
	Notify(ev Event)
}

// closeTimeout bounds how long Close waits for the queue to drain.
const closeTimeout = 1500 * time.Millisecond

// AsyncSink is a Sink backed by a bounded queue and a single consumer that
// writes to zap and fans milestone events out to subscribers. Enqueueing never
// blocks; events are dropped and counted when the queue is full.
type AsyncSink struct {
	logger *zap.Logger

	mu          sync.RWMutex
	closed      bool
	queue       chan Event
	subscribers []Subscriber

	dropped atomic.Uint64
	done    chan struct{}
}

// NewAsyncSink starts the consumer goroutine. Call Close to stop it.
func NewAsyncSink(logger *zap.Logger, queueSize int) *AsyncSink {
	if queueSize < 1 {
		queueSize = 1
	}
	s := &AsyncSink{
		logger: logger,
		queue:  make(chan Event, queueSize),
		done:   make(chan struct{}),
	}
	go s.consume()
	return s
}

// Subscribe registers a milestone subscriber.
func (s *AsyncSink) Subscribe(sub Subscriber) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.subscribers = append(s.subscribers, sub)
}

func (s *AsyncSink) Log(ev Event) {
	if ev.Time.IsZero() {
		ev.Time = time.Now()
	}

	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.closed {
		return
	}
	select {
	case s.queue <- ev:
	default:
		s.dropped.Add(1)
	}
}

func (s *AsyncSink) Debug(msg func() string) {
	if !s.logger.Core().Enabled(zap.DebugLevel) {
		return
	}
	s.Log(Event{Level: zap.DebugLevel, Message: msg()})
}

// Dropped returns the number of events discarded because the queue was full.
func (s *AsyncSink) Dropped() uint64 {
	return s.dropped.Load()
}

// Close stops accepting events and waits a bounded time for the queue to drain.
func (s *AsyncSink) Close() {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return
	}
	s.closed = true
	close(s.queue)
	s.mu.Unlock()

	select {
	case <-s.done:
	case <-time.After(closeTimeout):
		s.logger.Warn("Log queue did not drain before shutdown.")
	}
	if n := s.dropped.Load(); n > 0 {
		s.logger.Warn("Log events were dropped because the queue was full.", zap.Uint64("dropped", n))
	}
}

func (s *AsyncSink) consume() {
	defer close(s.done)
	for ev := range s.queue {
		s.write(ev)
		if ev.Kind != "" && ev.Level >= zap.InfoLevel {
			s.notify(ev)
		}
	}
}

func (s *AsyncSink) write(ev Event) {
	ce := s.logger.Check(ev.Level, ev.Message)
	if ce == nil {
		return
	}
	ce.Time = ev.Time

	fields := ev.Fields
	if ev.Kind != "" {
		fields = append(fields[:len(fields):len(fields)],
			zap.String("event", string(ev.Kind)),
			zap.Int("presses", ev.Presses),
			zap.Duration("since", ev.Since),
		)
	}
	ce.Write(fields...)
}

func (s *AsyncSink) notify(ev Event) {
	s.mu.RLock()
	subs := s.subscribers
	s.mu.RUnlock()

	for _, sub := range subs {
		func() {
			defer func() {
				if r := recover(); r != nil {
					s.logger.Error("Event subscriber panicked.", zap.Any("panic", r), zap.String("event", string(ev.Kind)))
				}
			}()
			sub.Notify(ev)
		}()
	}
}
