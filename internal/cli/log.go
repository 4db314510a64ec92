// Package cli implements the viastitch command-line interface.
//
// Commands read a JSON board document (see package board), run the
// stitching pipeline on it and optionally write the result back.
//
// # Commands
//
//   - nets: list nets that can be stitched
//   - zones: list zones of other nets, for building an ignore list
//   - stitch: place stitching vias
//   - preview: draw the planned vias as a PNG
//   - serve: expose a board over HTTP
//   - history: show past runs
//   - cache: manage the plan cache
//
// # Logging
//
// All commands support --verbose (-v) for debug-level logging. Loggers are
// passed through context.Context.
package cli

import (
	"context"
	"io"
	"time"

	"github.com/charmbracelet/log"
)

// newLogger creates a logger writing to w at level, with timestamps as
// "HH:MM:SS.ms" (e.g. "14:32:01.45").
func newLogger(w io.Writer, level log.Level) *log.Logger {
	return log.NewWithOptions(w, log.Options{
		ReportTimestamp: true,
		TimeFormat:      "15:04:05.00",
		Level:           level,
	})
}

// timer logs the completion of a step with its elapsed time. It is meant
// for sequential use by one goroutine.
type timer struct {
	logger *log.Logger
	start  time.Time
}

func startTimer(l *log.Logger) *timer {
	return &timer{logger: l, start: time.Now()}
}

// elapsed returns the time since the timer started, rounded to the
// millisecond.
func (t *timer) elapsed() time.Duration {
	return time.Since(t.start).Round(time.Millisecond)
}

// done logs msg at info level with a "duration" field and any extra
// key/value pairs.
func (t *timer) done(msg string, keyvals ...any) {
	t.logger.Info(msg, append(keyvals, "duration", t.elapsed())...)
}

type ctxKey int

const loggerKey ctxKey = 0

// withLogger returns a copy of ctx carrying l.
func withLogger(ctx context.Context, l *log.Logger) context.Context {
	return context.WithValue(ctx, loggerKey, l)
}

// loggerFromContext returns the logger attached to ctx, or log.Default().
func loggerFromContext(ctx context.Context) *log.Logger {
	if l, ok := ctx.Value(loggerKey).(*log.Logger); ok {
		return l
	}
	return log.Default()
}
