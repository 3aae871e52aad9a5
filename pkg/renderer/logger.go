package renderer

import (
	"context"
	"log/slog"
	"sync/atomic"
)

// nopHandler discards all log records. Enabled returns false so disabled
// logging skips message formatting entirely.
type nopHandler struct{}

func (nopHandler) Enabled(context.Context, slog.Level) bool  { return false }
func (nopHandler) Handle(context.Context, slog.Record) error { return nil }
func (nopHandler) WithAttrs([]slog.Attr) slog.Handler        { return nopHandler{} }
func (nopHandler) WithGroup(string) slog.Handler             { return nopHandler{} }

func newNopLogger() *slog.Logger { return slog.New(nopHandler{}) }

// loggerPtr stores the active logger. Accessed atomically so SetLogger can
// race with logging from worker goroutines.
var loggerPtr atomic.Pointer[slog.Logger]

func init() {
	loggerPtr.Store(newNopLogger())
}

// SetLogger configures the logger used by the renderer and cluster packages.
// By default no log output is produced. Pass nil to restore the silent
// default. Safe for concurrent use.
//
// Levels used:
//   - [slog.LevelDebug]: per-request diagnostics (pixel ranges, worker counts)
//   - [slog.LevelInfo]: lifecycle events (connections, chunk dispatch)
//   - [slog.LevelWarn]: non-fatal issues (degraded pixels, worker loss)
func SetLogger(l *slog.Logger) {
	if l == nil {
		l = newNopLogger()
	}
	loggerPtr.Store(l)
}

// Logger returns the current logger. The cluster package calls this to share
// the configuration without an import cycle.
func Logger() *slog.Logger {
	return loggerPtr.Load()
}
