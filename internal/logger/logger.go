package logger

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"os"
	"time"

	"github.com/lmittmann/tint"
	"gopkg.in/natefinch/lumberjack.v2"

	"github.com/ekisa-team/modelmem/internal/env"
)

// Options configure the logger.
type Options struct {
	logToFile bool
	logFile   string
	level     slog.Leveler
}

// Option is a functional option for the logger.
type Option func(*Options)

// WithLogToFile enables or disables logging to a size-rotated file.
func WithLogToFile(enabled bool) Option {
	return func(o *Options) {
		o.logToFile = enabled
	}
}

// WithLogFile sets the log file path.
func WithLogFile(path string) Option {
	return func(o *Options) {
		o.logFile = path
	}
}

// WithLevel sets the minimum log level.
func WithLevel(level slog.Leveler) Option {
	return func(o *Options) {
		o.level = level
	}
}

// New builds a slog.Logger for the given environment.
// Development logs colorized output to stderr; production logs JSON.
// When file logging is enabled, records are also written to a rotated file.
func New(environment env.Environment, opts ...Option) *slog.Logger {
	options := &Options{
		logFile: "logs/modelmem.log",
	}
	for _, opt := range opts {
		opt(options)
	}

	level := options.level
	if level == nil {
		if environment.IsProduction() {
			level = slog.LevelInfo
		} else {
			level = slog.LevelDebug
		}
	}

	var fileWriter io.Writer
	if options.logToFile {
		fileWriter = &lumberjack.Logger{
			Filename:   options.logFile,
			MaxSize:    10, // megabytes
			MaxBackups: 3,
			MaxAge:     28, // days
			Compress:   true,
		}
	}

	if environment.IsProduction() {
		w := io.Writer(os.Stderr)
		if fileWriter != nil {
			w = io.MultiWriter(os.Stderr, fileWriter)
		}
		return slog.New(slog.NewJSONHandler(w, &slog.HandlerOptions{Level: level}))
	}

	terminal := tint.NewHandler(os.Stderr, &tint.Options{
		Level:      level,
		TimeFormat: time.Kitchen,
	})

	if fileWriter == nil {
		return slog.New(terminal)
	}

	file := slog.NewJSONHandler(fileWriter, &slog.HandlerOptions{Level: level})
	return slog.New(fanoutHandler{terminal, file})
}

// fanoutHandler duplicates records across multiple handlers.
type fanoutHandler []slog.Handler

func (h fanoutHandler) Enabled(ctx context.Context, level slog.Level) bool {
	for _, hh := range h {
		if hh.Enabled(ctx, level) {
			return true
		}
	}
	return false
}

func (h fanoutHandler) Handle(ctx context.Context, record slog.Record) error {
	var errs []error
	for _, hh := range h {
		if hh.Enabled(ctx, record.Level) {
			errs = append(errs, hh.Handle(ctx, record.Clone()))
		}
	}
	return errors.Join(errs...)
}

func (h fanoutHandler) WithAttrs(attrs []slog.Attr) slog.Handler {
	next := make(fanoutHandler, len(h))
	for i, hh := range h {
		next[i] = hh.WithAttrs(attrs)
	}
	return next
}

func (h fanoutHandler) WithGroup(name string) slog.Handler {
	next := make(fanoutHandler, len(h))
	for i, hh := range h {
		next[i] = hh.WithGroup(name)
	}
	return next
}
