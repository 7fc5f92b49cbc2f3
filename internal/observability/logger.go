package observability

import (
	"io"
	"log/slog"
	"os"
)

// NewLogger returns the process logger. Every record carries the service
// name; records logged with a request context also carry request, actor
// and trace ids (see ContextHandler). dev gets debug-level text output,
// every other env gets JSON at info.
func NewLogger(env, service string) *slog.Logger {
	return newLogger(os.Stdout, env).With("service", service)
}

func newLogger(w io.Writer, env string) *slog.Logger {
	var handler slog.Handler

	switch env {
	case "dev":
		handler = slog.NewTextHandler(w, &slog.HandlerOptions{Level: slog.LevelDebug})
	case "test":
		handler = slog.NewJSONHandler(w, &slog.HandlerOptions{Level: slog.LevelWarn})
	default:
		handler = slog.NewJSONHandler(w, &slog.HandlerOptions{Level: slog.LevelInfo})
	}

	return slog.New(NewContextHandler(handler))
}
