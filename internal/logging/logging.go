// Package logging re-expresses the teacher's process-wide `log.Printf`
// idiom as a dependency-injected sink, per spec.md section 9's note on the
// source's global logger. Workers receive a Sink at construction instead
// of reaching for a package-level logger.
package logging

import (
	"log"
	"os"
)

// Level mirrors the original Java RennLogger's line classification, used
// by a view to filter synchronisation chatter from race-significant
// events (spec.md section 7).
type Level int

const (
	Debug Level = iota
	Info
	Race
	Warn
	Error
)

func (l Level) String() string {
	switch l {
	case Debug:
		return "DEBUG"
	case Info:
		return "INFO"
	case Race:
		return "RACE"
	case Warn:
		return "WARN"
	case Error:
		return "ERROR"
	default:
		return "UNKNOWN"
	}
}

// Sink is the interface every worker logs through.
type Sink interface {
	Event(level Level, msg string, fields ...any)
}

// StdSink wraps a standard log.Logger, the teacher's own backing store.
type StdSink struct {
	logger *log.Logger
	min    Level
}

// NewStdSink builds a StdSink writing to stderr, as the teacher does via
// the default log package.
func NewStdSink(min Level) *StdSink {
	return &StdSink{
		logger: log.New(os.Stderr, "", log.LstdFlags),
		min:    min,
	}
}

func (s *StdSink) Event(level Level, msg string, fields ...any) {
	if level < s.min {
		return
	}
	if len(fields) > 0 {
		s.logger.Printf("[%s] "+msg, append([]any{level}, fields...)...)
		return
	}
	s.logger.Printf("[%s] %s", level, msg)
}

// Discard drops every event; useful for tests that don't want log noise.
type Discard struct{}

func (Discard) Event(Level, string, ...any) {}
