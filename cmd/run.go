package cmd

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/xkilldash9x/dialogskip/internal/config"
	"github.com/xkilldash9x/dialogskip/internal/detector"
	"github.com/xkilldash9x/dialogskip/internal/humanoid"
	"github.com/xkilldash9x/dialogskip/internal/ingress"
	"github.com/xkilldash9x/dialogskip/internal/observability"
	"github.com/xkilldash9x/dialogskip/internal/platform"
	"github.com/xkilldash9x/dialogskip/internal/publisher"
	"github.com/xkilldash9x/dialogskip/internal/scheduler"
	"github.com/xkilldash9x/dialogskip/internal/timing"
)

// screen is the pixel source plus its resolution.
type screen interface {
	detector.Probe
	Size() (width, height int)
	Close() error
}

type hookSource interface {
	Start(ctx context.Context) (<-chan ingress.RawEvent, error)
}

// desktop bundles the OS-facing collaborators.
type desktop struct {
	screen  screen
	emitter scheduler.KeyEmitter
	window  scheduler.WindowWatcher
	hooks   hookSource
}

func openDesktop() desktop {
	return desktop{
		screen:  platform.NewScreen(),
		emitter: platform.NewEmitter(),
		window:  platform.NewWindow(),
		hooks:   platform.NewHooks(),
	}
}

// newPublisher is swapped out in tests.
var newPublisher = func(cfg config.PublisherConfig) (publisher.Publisher, error) {
	return publisher.NewMQTT(cfg)
}

// resolveLayout picks the resolution: configured (or overridden) first, then
// the live screen.
func resolveLayout(cfg *config.Config, scr screen) detector.Layout {
	w, h := cfg.Screen.Width, cfg.Screen.Height
	if w <= 0 || h <= 0 {
		w, h = scr.Size()
	}
	return detector.NewLayout(cfg.Screen, w, h)
}

// runAutomation wires the scheduler to the desktop and runs it with the hook
// dispatcher until exit is requested or ctx ends.
func runAutomation(ctx context.Context, cfg *config.Config, open func() desktop) error {
	logger := observability.GetLogger()
	session := uuid.NewString()
	logger = logger.With(zap.String("session", session))

	d := open()
	defer d.screen.Close()

	layout := resolveLayout(cfg, d.screen)
	logger.Info("Screen layout resolved.",
		zap.Int("width", layout.Width),
		zap.Int("height", layout.Height),
		zap.Bool("widescreen", layout.Widescreen))

	sink := observability.NewAsyncSink(logger, cfg.Logger.QueueSize)
	var pub publisher.Publisher
	defer func() {
		sink.Close()
		if pub != nil {
			_ = pub.Close()
		}
		if n := sink.Dropped(); n > 0 {
			logger.Warn("Log events were dropped.", zap.Uint64("dropped", n))
		}
	}()

	if cfg.Publisher.Enabled {
		p, err := newPublisher(cfg.Publisher)
		if err != nil {
			logger.Warn("MQTT publisher unavailable, continuing without it.", zap.Error(err))
		} else {
			pub = p
			sink.Subscribe(publisher.NewSubscriber(pub, session, logger))
		}
	}

	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	// hooks must be in place before the scheduler exists
	events, err := d.hooks.Start(ctx)
	if err != nil {
		return fmt.Errorf("installing input hooks: %w", err)
	}

	clock := timing.NewMonotonic()
	sched := scheduler.New(cfg, scheduler.Deps{
		Clock:    clock,
		Waiter:   timing.NewWaiter(clock),
		Emitter:  d.emitter,
		Window:   d.window,
		Detector: detector.New(cfg.Detection, layout, d.screen, sink),
		Model:    humanoid.New(cfg.Timing),
		Sink:     sink,
	})
	dispatcher := ingress.NewDispatcher(cfg.Hotkeys, sched, observability.ToggleFileLogging, sink)

	logger.Info("Ready. Waiting for the start hotkey.",
		zap.String("window", cfg.Window.Title),
		zap.Uint16("start", cfg.Hotkeys.Start),
		zap.Uint16("pause", cfg.Hotkeys.Pause),
		zap.Uint16("exit", cfg.Hotkeys.Exit))

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		defer cancel()
		return sched.Run(gctx)
	})
	g.Go(func() error {
		return dispatcher.Serve(gctx, events)
	})
	return g.Wait()
}
