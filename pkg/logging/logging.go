// Package logging wraps charmbracelet/log behind ports.Logger, the same
// structured key/value style used directly across pkg/tasks, pkg/push, and
// pkg/eventqueue. RequestHandler and other C10 call sites depend on the
// port rather than the concrete library so a test can substitute a
// recording logger without touching global log state.
package logging

import (
	"github.com/charmbracelet/log"
	"github.com/theapemachine/a2a-go/pkg/ports"
)

// CharmLogger adapts charmbracelet/log to ports.Logger.
type CharmLogger struct {
	logger *log.Logger
}

// New wraps the given charmbracelet logger, or the package-level default
// logger when nil.
func New(logger *log.Logger) *CharmLogger {
	if logger == nil {
		logger = log.Default()
	}
	return &CharmLogger{logger: logger}
}

func (l *CharmLogger) Info(msg string, kv ...any)  { l.logger.Info(msg, kv...) }
func (l *CharmLogger) Warn(msg string, kv ...any)  { l.logger.Warn(msg, kv...) }
func (l *CharmLogger) Error(msg string, kv ...any) { l.logger.Error(msg, kv...) }
func (l *CharmLogger) Debug(msg string, kv ...any) { l.logger.Debug(msg, kv...) }

var _ ports.Logger = (*CharmLogger)(nil)
