package bus

import (
	"fmt"
	"log/slog"
)

// hubLogger adapts slog to the pubsub.Logger interface.
type hubLogger struct {
	l *slog.Logger
}

func (h hubLogger) Errorf(format string, args ...interface{}) {
	h.l.Error(fmt.Sprintf(format, args...), "component", "hub")
}

func (h hubLogger) Warningf(format string, args ...interface{}) {
	h.l.Warn(fmt.Sprintf(format, args...), "component", "hub")
}

func (h hubLogger) Infof(format string, args ...interface{}) {
	h.l.Info(fmt.Sprintf(format, args...), "component", "hub")
}

func (h hubLogger) Debugf(format string, args ...interface{}) {
	h.l.Debug(fmt.Sprintf(format, args...), "component", "hub")
}

// Tracef logs at Debug; slog has no trace level.
func (h hubLogger) Tracef(format string, args ...interface{}) {
	h.l.Debug(fmt.Sprintf(format, args...), "component", "hub")
}
