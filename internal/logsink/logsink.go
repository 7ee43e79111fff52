// Package logsink writes the two fixed-path logging streams the shim
// produces: a line-structured event log and a fallback-query log,
// grounded in the teacher's util.InitSlog but mapped to the spec's
// three-level enum and two fixed files instead of a single stderr
// handler (§6 "A logging sink writes line-structured events to a fixed
// path ... and a fallback-query sink ... records SQL that failed
// translation").
package logsink

import (
	"io"
	"log/slog"
	"os"
	"sync"
)

// Level is the spec's three-level severity enum (§6 "PLEX_PG_LOG_LEVEL
// ∈ {ERROR=0, INFO=1, DEBUG=2}").
type Level int

const (
	LevelError Level = iota
	LevelInfo
	LevelDebug
)

func (l Level) slogLevel() slog.Level {
	switch l {
	case LevelError:
		return slog.LevelError
	case LevelDebug:
		return slog.LevelDebug
	default:
		return slog.LevelInfo
	}
}

const (
	// EventLogPath is where redirect/translation events are written.
	EventLogPath = "/tmp/plex_redirect_pg.log"
	// FallbackLogPath is where SQL that failed translation and fell
	// back to the embedded engine is recorded.
	FallbackLogPath = "/tmp/plex_pg_fallbacks.log"
)

// Sink owns the two fixed log files as slog loggers.
type Sink struct {
	events    *slog.Logger
	fallbacks *slog.Logger
	closers   []io.Closer
}

var (
	once    sync.Once
	process *Sink
)

// Init opens both fixed-path log files at the given level and installs
// the result as the process-wide sink, matching §5's "process-wide
// singletons with well-defined initialisation at library load". Safe to
// call more than once; only the first call takes effect.
func Init(level Level) (*Sink, error) {
	var initErr error
	once.Do(func() {
		process, initErr = open(level)
	})
	return process, initErr
}

func open(level Level) (*Sink, error) {
	eventsFile, err := os.OpenFile(EventLogPath, os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0o644)
	if err != nil {
		return nil, err
	}
	fallbacksFile, err := os.OpenFile(FallbackLogPath, os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0o644)
	if err != nil {
		eventsFile.Close()
		return nil, err
	}

	opts := &slog.HandlerOptions{Level: level.slogLevel()}
	return &Sink{
		events:    slog.New(slog.NewTextHandler(eventsFile, opts)),
		fallbacks: slog.New(slog.NewTextHandler(fallbacksFile, opts)),
		closers:   []io.Closer{eventsFile, fallbacksFile},
	}, nil
}

// Events returns the event-stream logger.
func (s *Sink) Events() *slog.Logger { return s.events }

// Fallbacks returns the fallback-query logger.
func (s *Sink) Fallbacks() *slog.Logger { return s.fallbacks }

// Close closes both underlying files.
func (s *Sink) Close() error {
	var firstErr error
	for _, c := range s.closers {
		if err := c.Close(); err != nil && firstErr == nil {
			firstErr = err
		}
	}
	return firstErr
}

// NewForTesting builds a Sink writing to arbitrary writers instead of
// the fixed paths, bypassing the process-wide singleton so tests don't
// touch /tmp.
func NewForTesting(level Level, events, fallbacks io.Writer) *Sink {
	opts := &slog.HandlerOptions{Level: level.slogLevel()}
	return &Sink{
		events:    slog.New(slog.NewTextHandler(events, opts)),
		fallbacks: slog.New(slog.NewTextHandler(fallbacks, opts)),
	}
}
