// Package log builds the slog handlers used by the playground and tests.
package log

import (
	"fmt"
	"io"
	"log/slog"
	"strings"
	"time"

	charmlog "github.com/charmbracelet/log"

	"github.com/iliamunaev/coordination-core/internal/apperr"
)

const (
	JSONFormat   = "json"
	TextFormat   = "text"
	LogfmtFormat = "logfmt"
)

// Formats lists the accepted format names.
var Formats = []string{TextFormat, LogfmtFormat, JSONFormat}

// CreateHandler creates a [slog.Handler] writing to w by strings.
// An empty format selects text.
func CreateHandler(w io.Writer, logLevel, logFormat string) (slog.Handler, error) {
	level := GetLevel(logLevel)

	switch strings.ToLower(logFormat) {
	case JSONFormat:
		return slog.NewJSONHandler(w, &slog.HandlerOptions{Level: level}), nil
	case LogfmtFormat:
		return charmHandler(w, level, charmlog.LogfmtFormatter), nil
	case TextFormat, "":
		return charmHandler(w, level, charmlog.TextFormatter), nil
	default:
		return nil, fmt.Errorf("unknown log format %q: %w", logFormat, apperr.ErrInvalidConfig)
	}
}

// New returns a logger built with CreateHandler.
func New(w io.Writer, logLevel, logFormat string) (*slog.Logger, error) {
	h, err := CreateHandler(w, logLevel, logFormat)
	if err != nil {
		return nil, err
	}
	return slog.New(h), nil
}

func charmHandler(w io.Writer, level slog.Level, f charmlog.Formatter) slog.Handler {
	return charmlog.NewWithOptions(w, charmlog.Options{
		Level:           charmlog.Level(level),
		Formatter:       f,
		ReportTimestamp: true,
		TimeFormat:      time.TimeOnly,
	})
}

// GetLevel parses a level name. Unknown names map to info.
func GetLevel(level string) slog.Level {
	switch strings.ToLower(level) {
	case "error":
		return slog.LevelError
	case "warn", "warning":
		return slog.LevelWarn
	case "info":
		return slog.LevelInfo
	case "debug", "trace":
		return slog.LevelDebug
	default:
		return slog.LevelInfo
	}
}
