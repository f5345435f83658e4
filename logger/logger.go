// Package logger provides the service-wide zap logger.
package logger

import (
	"fmt"
	"os"
	"strings"
	"sync"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// Logger wraps zap.SugaredLogger
type Logger struct {
	*zap.SugaredLogger
	config *Config
}

// Config holds logger configuration options
type Config struct {
	// Level is the minimum log level (debug, info, warn, error)
	Level string

	// Format is "console" or "json"
	Format string

	// OutputPath is an optional log file written alongside stderr
	OutputPath string

	EnableCaller bool
}

var (
	mu            sync.RWMutex
	defaultLogger *Logger
)

// New creates a logger. A nil config yields an info-level console logger.
func New(cfg *Config) (*Logger, error) {
	if cfg == nil {
		cfg = &Config{Level: "info", Format: "console"}
	}

	level, err := parseLevel(cfg.Level)
	if err != nil {
		return nil, err
	}

	var encoder zapcore.Encoder
	switch cfg.Format {
	case "json":
		encoderConfig := zap.NewProductionEncoderConfig()
		encoderConfig.EncodeTime = zapcore.ISO8601TimeEncoder
		encoder = zapcore.NewJSONEncoder(encoderConfig)
	case "", "console":
		encoderConfig := zap.NewDevelopmentEncoderConfig()
		encoderConfig.EncodeLevel = zapcore.CapitalColorLevelEncoder
		encoderConfig.EncodeTime = zapcore.ISO8601TimeEncoder
		encoder = zapcore.NewConsoleEncoder(encoderConfig)
	default:
		return nil, fmt.Errorf("invalid log format %q", cfg.Format)
	}

	// stdout is reserved for CLI output such as extracted card JSON
	writeSyncs := []zapcore.WriteSyncer{zapcore.Lock(zapcore.AddSync(os.Stderr))}
	if cfg.OutputPath != "" {
		file, err := os.OpenFile(cfg.OutputPath, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0644)
		if err != nil {
			return nil, fmt.Errorf("failed to open log file %s: %w", cfg.OutputPath, err)
		}
		writeSyncs = append(writeSyncs, zapcore.AddSync(file))
	}

	core := zapcore.NewCore(encoder, zapcore.NewMultiWriteSyncer(writeSyncs...), level)

	opts := []zap.Option{zap.AddStacktrace(zapcore.ErrorLevel)}
	if cfg.EnableCaller {
		opts = append(opts, zap.AddCaller(), zap.AddCallerSkip(1))
	}

	return &Logger{
		SugaredLogger: zap.New(core, opts...).Sugar(),
		config:        cfg,
	}, nil
}

// Init replaces the global logger
func Init(cfg *Config) error {
	l, err := New(cfg)
	if err != nil {
		return err
	}
	mu.Lock()
	defaultLogger = l
	mu.Unlock()
	return nil
}

// Get returns the global logger, creating a default one on first use
func Get() *Logger {
	mu.RLock()
	l := defaultLogger
	mu.RUnlock()
	if l != nil {
		return l
	}

	mu.Lock()
	defer mu.Unlock()
	if defaultLogger == nil {
		defaultLogger, _ = New(nil)
	}
	return defaultLogger
}

// WithFields returns a child logger with key/value pairs attached
func (l *Logger) WithFields(fields ...interface{}) *Logger {
	return &Logger{
		SugaredLogger: l.With(fields...),
		config:        l.config,
	}
}

// WithSessionID tags entries with an upload session id
func (l *Logger) WithSessionID(id string) *Logger {
	return l.WithFields("session_id", id)
}

// WithError tags entries with an error
func (l *Logger) WithError(err error) *Logger {
	return l.WithFields("error", err)
}

func parseLevel(level string) (zapcore.Level, error) {
	switch strings.ToLower(strings.TrimSpace(level)) {
	case "debug":
		return zapcore.DebugLevel, nil
	case "", "info":
		return zapcore.InfoLevel, nil
	case "warn", "warning":
		return zapcore.WarnLevel, nil
	case "error":
		return zapcore.ErrorLevel, nil
	default:
		return zapcore.InfoLevel, fmt.Errorf("invalid log level %q", level)
	}
}

// Debug logs a debug message
func Debug(args ...interface{}) { Get().Debug(args...) }

// Debugf logs a formatted debug message
func Debugf(template string, args ...interface{}) { Get().Debugf(template, args...) }

// Info logs an info message
func Info(args ...interface{}) { Get().Info(args...) }

// Infof logs a formatted info message
func Infof(template string, args ...interface{}) { Get().Infof(template, args...) }

// Warn logs a warning message
func Warn(args ...interface{}) { Get().Warn(args...) }

// Warnf logs a formatted warning message
func Warnf(template string, args ...interface{}) { Get().Warnf(template, args...) }

// Error logs an error message
func Error(args ...interface{}) { Get().Error(args...) }

// Errorf logs a formatted error message
func Errorf(template string, args ...interface{}) { Get().Errorf(template, args...) }

// Fatalf logs a formatted message and exits
func Fatalf(template string, args ...interface{}) { Get().Fatalf(template, args...) }

// WithFields returns the global logger with key/value pairs attached
func WithFields(fields ...interface{}) *Logger { return Get().WithFields(fields...) }

// WithSessionID returns the global logger tagged with a session id
func WithSessionID(id string) *Logger { return Get().WithSessionID(id) }

// Sync flushes buffered entries
func Sync() error { return Get().Sync() }
