// Package observability owns the process logger and the event sink that
// serializes scheduler output.
package observability

import (
	"errors"
	"fmt"
	"os"
	"strings"
	"sync"
	"sync/atomic"
	"syscall"

	"github.com/xkilldash9x/dialogskip/internal/config"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"gopkg.in/natefinch/lumberjack.v2"
)

var (
	// globalLogger stores the global logger instance safely across goroutines.
	globalLogger atomic.Pointer[zap.Logger]
	// fileSwitch gates the rotating file core. Nil when no log file is configured.
	fileSwitch atomic.Pointer[atomic.Bool]
	// once ensures that initialization happens exactly once.
	once sync.Once
)

const (
	colorRed     = "\x1b[31m"
	colorGreen   = "\x1b[32m"
	colorYellow  = "\x1b[33m"
	colorBlue    = "\x1b[34m"
	colorMagenta = "\x1b[35m"
	colorCyan    = "\x1b[36m"
	colorWhite   = "\x1b[37m"
	colorReset   = "\x1b[0m"
)

var ansi = map[string]string{
	"red":     colorRed,
	"green":   colorGreen,
	"yellow":  colorYellow,
	"blue":    colorBlue,
	"magenta": colorMagenta,
	"cyan":    colorCyan,
	"white":   colorWhite,
}

// switchCore wraps a core so it can be turned on and off at runtime.
type switchCore struct {
	zapcore.Core
	on *atomic.Bool
}

func (c switchCore) Enabled(lvl zapcore.Level) bool {
	return c.on.Load() && c.Core.Enabled(lvl)
}

func (c switchCore) With(fields []zapcore.Field) zapcore.Core {
	return switchCore{Core: c.Core.With(fields), on: c.on}
}

func (c switchCore) Check(ent zapcore.Entry, ce *zapcore.CheckedEntry) *zapcore.CheckedEntry {
	if !c.on.Load() {
		return ce
	}
	return c.Core.Check(ent, ce)
}

// Initialize sets up the global Zap logger based on configuration and a specified output writer.
// The file core is always built when a log file is configured; FileEnabled only
// decides its starting state.
func Initialize(cfg config.LoggerConfig, consoleWriter zapcore.WriteSyncer) {
	once.Do(func() {
		level := zap.NewAtomicLevel()
		if err := level.UnmarshalText([]byte(cfg.Level)); err != nil {
			level.SetLevel(zap.InfoLevel)
		}

		consoleCore := zapcore.NewCore(getEncoder(cfg), consoleWriter, level)
		cores := []zapcore.Core{consoleCore}

		if cfg.LogFile != "" {
			// File encoder is always JSON for structured logging.
			fileEncoder := getEncoder(config.LoggerConfig{Format: "json"})
			// lumberjack opens the file on first write, so a disabled core never creates it.
			fileWriter := zapcore.AddSync(&lumberjack.Logger{
				Filename:   cfg.LogFile,
				MaxSize:    cfg.MaxSize,
				MaxBackups: cfg.MaxBackups,
				MaxAge:     cfg.MaxAge,
				Compress:   cfg.Compress,
			})
			on := new(atomic.Bool)
			on.Store(cfg.FileEnabled)
			fileSwitch.Store(on)
			cores = append(cores, switchCore{Core: zapcore.NewCore(fileEncoder, fileWriter, level), on: on})
		}

		options := []zap.Option{zap.AddStacktrace(zap.ErrorLevel)}
		if cfg.AddSource {
			options = append(options, zap.AddCaller())
		}

		logger := zap.New(zapcore.NewTee(cores...), options...).Named(cfg.ServiceName)
		globalLogger.Store(logger)

		zap.ReplaceGlobals(logger)
		zap.RedirectStdLog(logger)
	})
}

// InitializeLogger is a convenience wrapper around Initialize for production use.
// It defaults console output to a locked Stdout.
func InitializeLogger(cfg config.LoggerConfig) {
	Initialize(cfg, zapcore.Lock(os.Stdout))
}

// ToggleFileLogging flips the file core and returns its new state. It is a
// no-op returning false when no log file is configured.
func ToggleFileLogging() bool {
	on := fileSwitch.Load()
	if on == nil {
		return false
	}
	for {
		cur := on.Load()
		if on.CompareAndSwap(cur, !cur) {
			return !cur
		}
	}
}

// FileLoggingEnabled reports whether log lines currently reach the log file.
func FileLoggingEnabled() bool {
	on := fileSwitch.Load()
	return on != nil && on.Load()
}

// ResetForTest resets the sync.Once and clears the global logger.
// This function should ONLY be used in tests to ensure isolation.
func ResetForTest() {
	globalLogger.Store(nil)
	fileSwitch.Store(nil)
	once = sync.Once{}
}

// levelPalette resolves the configured color names. Unknown or empty names
// leave the level uncolored.
func levelPalette(colors config.ColorConfig) map[zapcore.Level]string {
	named := map[zapcore.Level]string{
		zapcore.DebugLevel:  colors.Debug,
		zapcore.InfoLevel:   colors.Info,
		zapcore.WarnLevel:   colors.Warn,
		zapcore.ErrorLevel:  colors.Error,
		zapcore.DPanicLevel: colors.DPanic,
		zapcore.PanicLevel:  colors.Panic,
		zapcore.FatalLevel:  colors.Fatal,
	}
	palette := make(map[zapcore.Level]string, len(named))
	for lvl, name := range named {
		if code, ok := ansi[strings.ToLower(name)]; ok {
			palette[lvl] = code
		}
	}
	return palette
}

func newColorizedLevelEncoder(colors config.ColorConfig) zapcore.LevelEncoder {
	palette := levelPalette(colors)
	return func(level zapcore.Level, enc zapcore.PrimitiveArrayEncoder) {
		label := level.CapitalString()
		if code, ok := palette[level]; ok {
			label = code + label + colorReset
		}
		enc.AppendString(label)
	}
}

// getEncoder picks "json" for structured output or the colorized single-line
// "console" format for the terminal.
func getEncoder(cfg config.LoggerConfig) zapcore.Encoder {
	encoderConfig := zap.NewProductionEncoderConfig()
	encoderConfig.EncodeTime = zapcore.TimeEncoderOfLayout("2006-01-02T15:04:05.000Z07:00")

	if cfg.Format == "console" {
		encoderConfig.EncodeLevel = newColorizedLevelEncoder(cfg.Colors)
		return newConsoleEncoder(encoderConfig)
	}

	encoderConfig.EncodeLevel = zapcore.CapitalLevelEncoder
	return zapcore.NewJSONEncoder(encoderConfig)
}

// newConsoleEncoder suffixes the logger name with a dot so the component reads
// as a prefix ("dialogskip.scheduler.").
func newConsoleEncoder(cfg zapcore.EncoderConfig) zapcore.Encoder {
	consoleCfg := cfg
	consoleCfg.EncodeName = func(loggerName string, enc zapcore.PrimitiveArrayEncoder) {
		enc.AppendString(loggerName + ".")
	}
	return zapcore.NewConsoleEncoder(consoleCfg)
}

// GetLogger returns the global logger, or a development logger named
// "fallback" when Initialize has not run yet.
func GetLogger() *zap.Logger {
	if logger := globalLogger.Load(); logger != nil {
		return logger
	}
	l, err := zap.NewDevelopment()
	if err != nil {
		return zap.NewNop()
	}
	return l.Named("fallback")
}

// Sync flushes buffered entries. Terminals reject fsync, so those errors are
// dropped.
func Sync() {
	logger := globalLogger.Load()
	if logger == nil {
		return
	}
	err := logger.Sync()
	if err == nil || errors.Is(err, syscall.EINVAL) || errors.Is(err, syscall.ENOTTY) ||
		strings.Contains(err.Error(), "/dev/stdout") {
		return
	}
	fmt.Fprintln(os.Stderr, "dialogskip: log sync:", err)
}
