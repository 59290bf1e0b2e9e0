package pool

import (
	"context"
	"log/slog"
)

// Reporter receives each task's Result as soon as the task ends. It is
// called from the task's goroutine and must be safe for concurrent use.
type Reporter interface {
	Report(Result)
}

// ReporterFunc adapts a function to Reporter.
type ReporterFunc func(Result)

// Report calls f(r).
func (f ReporterFunc) Report(r Result) { f(r) }

// LogReporter returns a Reporter that writes one structured line per task.
func LogReporter(logger *slog.Logger) Reporter {
	if logger == nil {
		logger = slog.Default()
	}
	return ReporterFunc(func(r Result) {
		level := slog.LevelInfo
		if r.Status != StatusOK {
			level = slog.LevelWarn
		}
		attrs := []slog.Attr{
			slog.String("task_id", r.ID.String()),
			slog.Int("index", r.Index),
			slog.String("task", r.Name),
			slog.String("status", string(r.Status)),
			slog.Int64("duration_ms", r.Duration.Milliseconds()),
		}
		if r.Detail != "" {
			attrs = append(attrs, slog.String("detail", r.Detail))
		}
		logger.LogAttrs(context.Background(), level, "task finished", attrs...)
	})
}
