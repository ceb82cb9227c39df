package scheduler

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/xkilldash9x/dialogskip/internal/config"
	"github.com/xkilldash9x/dialogskip/internal/humanoid"
	"github.com/xkilldash9x/dialogskip/internal/keys"
	"github.com/xkilldash9x/dialogskip/internal/observability"
)

// burstRunner keeps at most one burst task emitting at a time. The slot swap
// happens under mu; the replacement waits for its predecessor to finish before
// pressing, so start never blocks the caller.
type burstRunner struct {
	cfg     config.BurstTaskConfig
	title   string
	key     keys.Code
	emitter KeyEmitter
	window  WindowWatcher
	model   *humanoid.Model
	sink    observability.Sink

	mu      sync.Mutex
	current *burstTask
	closed  bool
}

type burstTask struct {
	id     string
	cancel context.CancelFunc
	done   chan struct{}
}

func (b *burstRunner) start() {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.closed {
		return
	}

	var prev <-chan struct{}
	if b.current != nil {
		b.current.cancel()
		prev = b.current.done
	}
	ctx, cancel := context.WithTimeout(context.Background(), b.cfg.Duration)
	task := &burstTask{id: uuid.NewString(), cancel: cancel, done: make(chan struct{})}
	b.current = task
	go b.run(ctx, task, prev)
}

// cancel stops the current task without waiting for it.
func (b *burstRunner) cancel() {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.closed = true
	if b.current != nil {
		b.current.cancel()
	}
}

// stop cancels the current task, refuses new ones and waits for the last one
// to exit.
func (b *burstRunner) stop() {
	b.mu.Lock()
	b.closed = true
	task := b.current
	b.mu.Unlock()

	if task != nil {
		task.cancel()
		<-task.done
	}
}

func (b *burstRunner) run(ctx context.Context, task *burstTask, prev <-chan struct{}) {
	defer close(task.done)
	defer task.cancel()
	defer func() {
		if r := recover(); r != nil {
			b.sink.Log(observability.Event{
				Level:   zap.ErrorLevel,
				Message: "Burst task panicked",
				Fields:  []zap.Field{zap.String("task", task.id), zap.Any("panic", r)},
			})
		}
	}()

	if prev != nil {
		<-prev
	}
	if ctx.Err() != nil {
		return
	}

	b.sink.Log(observability.Event{
		Level:   zap.InfoLevel,
		Kind:    observability.EventBurstTaskStart,
		Message: fmt.Sprintf("Burst task started for %s", b.cfg.Duration),
		Fields:  []zap.Field{zap.String("task", task.id)},
	})

	presses := b.loop(ctx, task.id)

	reason := "cancelled"
	if errors.Is(ctx.Err(), context.DeadlineExceeded) {
		reason = "expired"
	}
	b.sink.Log(observability.Event{
		Level:   zap.InfoLevel,
		Kind:    observability.EventBurstTaskEnd,
		Message: "Burst task " + reason,
		Presses: presses,
		Fields:  []zap.Field{zap.String("task", task.id), zap.String("reason", reason)},
	})
}

// loop presses until ctx is done. Cancellation is observed at each sleep.
func (b *burstRunner) loop(ctx context.Context, id string) int {
	presses := 0
	for ctx.Err() == nil {
		if b.window.Matches(b.title) {
			if err := b.emitter.KeyTap(b.key); err != nil {
				b.sink.Log(observability.Event{
					Level:   zap.WarnLevel,
					Message: "Burst press failed",
					Fields:  []zap.Field{zap.String("task", id), zap.Error(err)},
				})
			} else {
				presses++
			}
		}

		timer := time.NewTimer(b.model.Uniform(b.cfg.DelayMin, b.cfg.DelayMax))
		select {
		case <-ctx.Done():
			timer.Stop()
			return presses
		case <-timer.C:
		}
	}
	return presses
}
