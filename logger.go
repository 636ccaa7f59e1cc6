package texmemo

import (
	"context"
	"log/slog"
	"sync/atomic"

	"github.com/gogpu/texmemo/backend"
	"github.com/gogpu/texmemo/memo"
	"github.com/gogpu/texmemo/notify"
)

// nopHandler is a slog.Handler that silently discards all log records.
// The Enabled method returns false so the caller skips message formatting
// entirely, making disabled logging effectively zero-cost.
type nopHandler struct{}

func (nopHandler) Enabled(context.Context, slog.Level) bool  { return false }
func (nopHandler) Handle(context.Context, slog.Record) error { return nil }
func (nopHandler) WithAttrs([]slog.Attr) slog.Handler        { return nopHandler{} }
func (nopHandler) WithGroup(string) slog.Handler             { return nopHandler{} }

// newNopLogger creates a logger that silently discards all output.
func newNopLogger() *slog.Logger { return slog.New(nopHandler{}) }

// loggerPtr stores the active logger. Accessed atomically so that
// SetLogger can be called concurrently with logging from any goroutine.
var loggerPtr atomic.Pointer[slog.Logger]

func init() {
	l := newNopLogger()
	loggerPtr.Store(l)
}

// SetLogger configures the logger for texmemo and all its sub-packages
// (memo, notify, backend). By default, texmemo produces no log output.
//
// SetLogger is safe for concurrent use: it stores the new logger atomically.
// Pass nil to disable logging (restore default silent behavior).
//
// Log levels used by texmemo:
//   - [slog.LevelDebug]: lookups, subscriptions, texture reuse
//   - [slog.LevelInfo]: lifecycle events (backend selected, cache closed)
//   - [slog.LevelWarn]: non-fatal issues (backend fallback, release problems)
//   - [slog.LevelError]: ownership violations, logged right before the panic
//
// Example:
//
//	// Enable debug-level logging for full diagnostics:
//	texmemo.SetLogger(slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{
//	    Level: slog.LevelDebug,
//	})))
func SetLogger(l *slog.Logger) {
	if l == nil {
		l = newNopLogger()
	}
	loggerPtr.Store(l)

	memo.SetLogger(l)
	notify.SetLogger(l)
	backend.SetLogger(l)
}

// Logger returns the current logger used by texmemo.
//
// Logger is safe for concurrent use.
func Logger() *slog.Logger {
	return loggerPtr.Load()
}

// slogger returns the current logger for internal use.
func slogger() *slog.Logger {
	return loggerPtr.Load()
}
