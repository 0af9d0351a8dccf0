// Package logger provides structured logging for the stream engine, backed
// by zerolog. Log records are JSON lines with a timestamp, level, message
// and any caller-supplied fields.
package logger

import (
	"fmt"
	"io"
	"os"

	"github.com/rs/zerolog"

	"example.com/streamcore/internal/config"
)

// LogFields holds the structured key/value pairs attached to a log record.
type LogFields map[string]interface{}

// Logger wraps a zerolog.Logger with the field-map call style used
// throughout the engine.
type Logger struct {
	zl     zerolog.Logger
	output io.WriteCloser // non-nil only for file targets
}

// NewLogger creates a Logger from cfg. A nil cfg yields an INFO-level logger
// writing to stderr.
func NewLogger(cfg *config.LoggingConfig) (*Logger, error) {
	level := zerolog.InfoLevel
	target := "stderr"
	if cfg != nil {
		switch cfg.LogLevel {
		case config.LogLevelDebug:
			level = zerolog.DebugLevel
		case config.LogLevelInfo, "":
			level = zerolog.InfoLevel
		case config.LogLevelWarning:
			level = zerolog.WarnLevel
		case config.LogLevelError:
			level = zerolog.ErrorLevel
		default:
			return nil, fmt.Errorf("unknown log level %q", cfg.LogLevel)
		}
		if cfg.Target != "" {
			target = cfg.Target
		}
	}

	l := &Logger{}
	var w io.Writer
	switch {
	case target == "stderr":
		w = os.Stderr
	case target == "stdout":
		w = os.Stdout
	case config.IsFilePath(target):
		file, err := os.OpenFile(target, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0644)
		if err != nil {
			return nil, fmt.Errorf("opening log file %s: %w", target, err)
		}
		l.output = file
		w = file
	default:
		return nil, fmt.Errorf("invalid log target: %s", target)
	}

	l.zl = zerolog.New(w).Level(level).With().Timestamp().Logger()
	return l, nil
}

// NewTestLogger returns a debug-level Logger writing to w, for tests.
func NewTestLogger(w io.Writer) *Logger {
	return &Logger{zl: zerolog.New(w).Level(zerolog.DebugLevel).With().Timestamp().Logger()}
}

// NewDiscardLogger returns a Logger that drops everything.
func NewDiscardLogger() *Logger {
	return &Logger{zl: zerolog.Nop()}
}

// WithComponent returns a child Logger tagging every record with the
// component name.
func (l *Logger) WithComponent(name string) *Logger {
	return &Logger{
		zl:     l.zl.With().Str("component", name).Logger(),
		output: l.output,
	}
}

// Debug logs at DEBUG level.
func (l *Logger) Debug(msg string, fields LogFields) { l.emit(l.zl.Debug(), msg, fields) }

// Info logs at INFO level.
func (l *Logger) Info(msg string, fields LogFields) { l.emit(l.zl.Info(), msg, fields) }

// Warn logs at WARNING level.
func (l *Logger) Warn(msg string, fields LogFields) { l.emit(l.zl.Warn(), msg, fields) }

// Error logs at ERROR level.
func (l *Logger) Error(msg string, fields LogFields) { l.emit(l.zl.Error(), msg, fields) }

func (l *Logger) emit(ev *zerolog.Event, msg string, fields LogFields) {
	for k, v := range fields {
		ev = ev.Interface(k, v)
	}
	ev.Msg(msg)
}

// CloseLogFile closes the file target, if the logger has one.
func (l *Logger) CloseLogFile() error {
	if l.output != nil {
		return l.output.Close()
	}
	return nil
}
