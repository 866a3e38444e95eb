// Package logger provides structured logging for PRS
package logger

import (
	"io"
	"os"
	"time"

	"github.com/rs/zerolog"
)

// Logger wraps zerolog with databank-specific helpers
type Logger struct {
	zlog zerolog.Logger
}

// Config holds logger configuration
type Config struct {
	Level  string // debug, info, warn, error
	Pretty bool   // console output for interactive runs
	Output io.Writer
}

// ParseLevel maps a configured level name to a zerolog level.
// Unknown names fall back to info.
func ParseLevel(level string) zerolog.Level {
	switch level {
	case "debug":
		return zerolog.DebugLevel
	case "warn":
		return zerolog.WarnLevel
	case "error":
		return zerolog.ErrorLevel
	default:
		return zerolog.InfoLevel
	}
}

// New creates a new structured logger
func New(cfg Config) *Logger {
	output := cfg.Output
	if output == nil {
		output = os.Stderr
	}

	if cfg.Pretty {
		output = zerolog.ConsoleWriter{
			Out:        output,
			TimeFormat: time.RFC3339,
		}
	}

	zlog := zerolog.New(output).
		Level(ParseLevel(cfg.Level)).
		With().
		Timestamp().
		Str("service", "prs").
		Logger()

	return &Logger{zlog: zlog}
}

// Nop returns a logger that discards everything
func Nop() *Logger {
	return &Logger{zlog: zerolog.Nop()}
}

// Zerolog returns the underlying zerolog logger
func (l *Logger) Zerolog() *zerolog.Logger {
	return &l.zlog
}

// Info starts an info event
func (l *Logger) Info() *zerolog.Event {
	return l.zlog.Info()
}

// Debug starts a debug event
func (l *Logger) Debug() *zerolog.Event {
	return l.zlog.Debug()
}

// Warn starts a warning event
func (l *Logger) Warn() *zerolog.Event {
	return l.zlog.Warn()
}

// Error starts an error event
func (l *Logger) Error() *zerolog.Event {
	return l.zlog.Error()
}

// Databank returns a logger for one build session
func (l *Logger) Databank(name string, generation int64, session string) *Logger {
	return &Logger{
		zlog: l.zlog.With().
			Str("component", "databank").
			Str("databank", name).
			Int64("generation", generation).
			Str("session", session).
			Logger(),
	}
}

// Component returns a logger tagged with a component name
func (l *Logger) Component(name string) *Logger {
	return &Logger{
		zlog: l.zlog.With().Str("component", name).Logger(),
	}
}

// LogLoad logs the bulk load of one attribute table
func (l *Logger) LogLoad(table string, rows int, duration time.Duration, err error) {
	if err != nil {
		l.zlog.Error().
			Str("operation", "load").
			Str("table", table).
			Dur("duration_ms", duration).
			Err(err).
			Msg("bulk load failed")
		return
	}
	l.zlog.Debug().
		Str("operation", "load").
		Str("table", table).
		Int("record_count", rows).
		Dur("duration_ms", duration).
		Msg("bulk load completed")
}

// LogCommit logs the outcome of a commit
func (l *Logger) LogCommit(rows int, reclaimed int, duration time.Duration, err error) {
	if err != nil {
		l.zlog.Error().
			Str("operation", "commit").
			Dur("duration_ms", duration).
			Err(err).
			Msg("commit failed")
		return
	}
	l.zlog.Info().
		Str("operation", "commit").
		Int("record_count", rows).
		Int("reclaimed_generations", reclaimed).
		Dur("duration_ms", duration).
		Msg("generation committed")
}
