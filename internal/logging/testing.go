package logging

import (
	"strings"
	"testing"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"
)

// Observed is a logger that records every entry for assertions.
type Observed struct {
	Logger *zap.Logger
	logs   *observer.ObservedLogs
}

// NewObserved creates a debug-level observed logger.
func NewObserved() *Observed {
	core, logs := observer.New(zapcore.DebugLevel)
	return &Observed{Logger: zap.New(core), logs: logs}
}

// Entries returns all recorded entries.
func (o *Observed) Entries() []observer.LoggedEntry {
	return o.logs.All()
}

// AssertLogged fails tb unless an entry at level contains msg.
func (o *Observed) AssertLogged(tb testing.TB, level zapcore.Level, msg string) {
	tb.Helper()
	for _, entry := range o.logs.All() {
		if entry.Level == level && strings.Contains(entry.Message, msg) {
			return
		}
	}
	tb.Errorf("expected log at %v containing %q, got %+v", level, msg, o.logs.All())
}
