package logger

import (
	"fmt"
	"io"
	"os"
	"strings"

	"fx-agent/src/models"

	"github.com/rs/zerolog"
)

// -----------------------------------------------------------------------------

// Logger provides named, leveled logging for one component.
type Logger struct {
	name   string
	base   zerolog.Logger
	logger zerolog.Logger
	exit   func(int)
}

// -----------------------------------------------------------------------------

// NewLogger creates a new Logger instance writing to stdout.
// The level comes from cfg.LogLevel when cfg is non-nil.
func NewLogger(cfg *models.MConfig, name string) *Logger {
	level := "info"
	if cfg != nil && cfg.LogLevel != "" {
		level = cfg.LogLevel
	}
	return NewLoggerTo(os.Stdout, level, name)
}

// -----------------------------------------------------------------------------

// NewLoggerTo creates a Logger on an arbitrary writer.
func NewLoggerTo(w io.Writer, level string, name string) *Logger {
	lvl, err := zerolog.ParseLevel(strings.ToLower(level))
	if err != nil || lvl == zerolog.NoLevel {
		lvl = zerolog.InfoLevel
	}
	base := zerolog.New(w).With().Timestamp().Logger().Level(lvl)
	return &Logger{
		name:   name,
		base:   base,
		logger: base.With().Str("component", name).Logger(),
		exit:   os.Exit,
	}
}

// -----------------------------------------------------------------------------

// NewNopLogger discards everything. Used by tests.
func NewNopLogger() *Logger {
	return &Logger{name: "nop", base: zerolog.Nop(), logger: zerolog.Nop(), exit: func(int) {}}
}

// -----------------------------------------------------------------------------

// Named returns a logger for a sub-component sharing the same sink and level.
func (l *Logger) Named(name string) *Logger {
	return &Logger{
		name:   name,
		base:   l.base,
		logger: l.base.With().Str("component", name).Logger(),
		exit:   l.exit,
	}
}

// -----------------------------------------------------------------------------

// Debug logs debugging messages
func (l *Logger) Debug(format string, args ...interface{}) {
	l.logger.Debug().Msg(fmt.Sprintf(format, args...))
}

// -----------------------------------------------------------------------------

// Warning logs recoverable problems
func (l *Logger) Warning(format string, args ...interface{}) {
	l.logger.Warn().Msg(fmt.Sprintf(format, args...))
}

// -----------------------------------------------------------------------------

// Info logs informational messages
func (l *Logger) Info(format string, args ...interface{}) {
	l.logger.Info().Msg(fmt.Sprintf(format, args...))
}

// -----------------------------------------------------------------------------

// Error logs error messages
func (l *Logger) Error(format string, args ...interface{}) {
	l.logger.Error().Msg(fmt.Sprintf(format, args...))
}

// -----------------------------------------------------------------------------

// Critical logs critical errors and exits the application
func (l *Logger) Critical(format string, args ...interface{}) {
	l.logger.WithLevel(zerolog.FatalLevel).Msg(fmt.Sprintf(format, args...))
	l.exit(1)
}
