// Package logger provides a global, Sugared Zap logger. It supports
// configuring log level and destination via functional options and emits
// JSON logs to a file by default: the terminal itself is owned by the UI,
// so nothing may ever be written to stdout or stderr while a session runs.
package logger

import (
	"context"
	"os"
	"sync"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// DefaultFile is the log destination used when no option overrides it.
const DefaultFile = "poke.log"

var (
	// logger is the global SugaredLogger instance. It is initialized once by Init.
	logger *zap.SugaredLogger

	// initOnce ensures the logger is only configured a single time.
	initOnce sync.Once
)

// config holds configuration options for the logger.
type config struct {
	level string // the minimum log level (debug, info, warn, error, panic, fatal)
	file  string // destination file path
}

// Option configures the logger before initialization.
type Option func(*config)

// WithLevel sets the minimum log level for the global logger.
// Example levels: "debug", "info", "warn", "error", "panic", "fatal".
func WithLevel(l string) Option {
	return func(c *config) {
		c.level = l
	}
}

// WithFile redirects log output to the given file path.
func WithFile(path string) Option {
	return func(c *config) {
		c.file = path
	}
}

// Init configures the global logger. It accepts zero or more Option values to
// customize behavior (e.g. WithLevel, WithFile). By default, it appends JSON
// entries to DefaultFile at the "info" level. Only the first call with a valid
// level configures the logger; later calls have no effect, even when that
// first call failed to open the file.
//
// Returns an error if parsing the log level or opening the file fails.
func Init(opts ...Option) error {
	cfg := config{level: "info", file: DefaultFile}
	for _, opt := range opts {
		opt(&cfg)
	}

	// Parse the configured log level.
	level, err := zapcore.ParseLevel(cfg.level)
	if err != nil {
		return err
	}

	var initErr error
	initOnce.Do(func() {
		sink, err := os.OpenFile(cfg.file, os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0o644)
		if err != nil {
			initErr = err
			return
		}

		core := zapcore.NewCore(
			zapcore.NewJSONEncoder(zap.NewProductionEncoderConfig()),
			zapcore.AddSync(sink),
			level,
		)

		logger = zap.New(core).Sugar()
	})

	return initErr
}

// Sync flushes any buffered log entries. It should be called on application
// shutdown to ensure all logs are written out.
func Sync() error {
	if logger == nil {
		return nil
	}
	return logger.Sync()
}

// Debug logs a debug-level message with optional key/value context.
func Debug(ctx context.Context, msg string, keysAndValues ...any) {
	if logger != nil {
		logger.Debugw(msg, keysAndValues...)
	}
}

// Info logs an info-level message with optional key/value context.
func Info(ctx context.Context, msg string, keysAndValues ...any) {
	if logger != nil {
		logger.Infow(msg, keysAndValues...)
	}
}

// Warn logs a warn-level message with optional key/value context.
func Warn(ctx context.Context, msg string, keysAndValues ...any) {
	if logger != nil {
		logger.Warnw(msg, keysAndValues...)
	}
}

// Error logs an error-level message with optional key/value context.
func Error(ctx context.Context, msg string, keysAndValues ...any) {
	if logger != nil {
		logger.Errorw(msg, keysAndValues...)
	}
}

// Fatal logs a fatal-level message (and then exits) with optional key/value context.
func Fatal(ctx context.Context, msg string, keysAndValues ...any) {
	if logger != nil {
		logger.Fatalw(msg, keysAndValues...)
	}
}
