// Package logger configures the process-wide slog logger. Components derive
// their loggers from slog.Default with a "component" attribute; per-sentence
// logging goes through FromContext.
package logger

import (
	"context"
	"log/slog"
	"os"

	charmlog "github.com/charmbracelet/log"
)

type contextKey struct{}

// Setup installs the default logger. format is "json", "pretty" (colourised
// console output) or anything else for plain text.
func Setup(level string, format string) {
	var handler slog.Handler
	opts := &slog.HandlerOptions{
		Level: parseLevel(level),
	}
	switch format {
	case "json":
		handler = slog.NewJSONHandler(os.Stderr, opts)
	case "pretty":
		handler = charmlog.NewWithOptions(os.Stderr, charmlog.Options{
			Level:           charmLevel(opts.Level.Level()),
			ReportTimestamp: true,
		})
	default:
		handler = slog.NewTextHandler(os.Stderr, opts)
	}
	slog.SetDefault(slog.New(handler))
}

// WithSentenceID tags ctx so FromContext logs carry the sentence ID.
func WithSentenceID(ctx context.Context, sentenceID string) context.Context {
	return context.WithValue(ctx, contextKey{}, sentenceID)
}

// FromContext returns the default logger, tagged with the sentence ID if ctx
// carries one.
func FromContext(ctx context.Context) *slog.Logger {
	logger := slog.Default()
	if sentenceID, ok := ctx.Value(contextKey{}).(string); ok {
		logger = logger.With("sentence_id", sentenceID)
	}
	return logger
}

func parseLevel(level string) slog.Level {
	switch level {
	case "debug":
		return slog.LevelDebug
	case "warn":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}

func charmLevel(l slog.Level) charmlog.Level {
	switch {
	case l <= slog.LevelDebug:
		return charmlog.DebugLevel
	case l <= slog.LevelInfo:
		return charmlog.InfoLevel
	case l <= slog.LevelWarn:
		return charmlog.WarnLevel
	default:
		return charmlog.ErrorLevel
	}
}
