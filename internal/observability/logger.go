package observability

import (
	"context"
	"io"
	"log/slog"

	"github.com/uniquery/uniquery/internal/config"
)

type ctxKey string

const traceIDKey ctxKey = "trace_id"

// NewLogger builds the service logger. Every line carries the service,
// profile, database driver and model provider so fallback-heavy periods can
// be told apart from model outages when reading logs.
func NewLogger(cfg config.Config, writer io.Writer) *slog.Logger {
	if writer == nil {
		writer = io.Discard
	}
	options := &slog.HandlerOptions{Level: cfg.Observability.LogLevel}
	var handler slog.Handler
	if cfg.Observability.LogJSON {
		handler = slog.NewJSONHandler(writer, options)
	} else {
		handler = slog.NewTextHandler(writer, options)
	}

	attrs := []any{
		slog.String("service", cfg.Service.Name),
		slog.String("profile", string(cfg.Profile)),
	}
	if cfg.Database.Driver != "" {
		attrs = append(attrs, slog.String("db_driver", cfg.Database.Driver))
	}
	if cfg.Model.Provider != "" {
		attrs = append(attrs, slog.String("model_provider", cfg.Model.Provider))
	}
	return slog.New(handler).With(attrs...)
}

// WithTrace returns logger annotated with the trace id carried by ctx, or
// logger itself when there is none.
func WithTrace(ctx context.Context, logger *slog.Logger) *slog.Logger {
	if logger == nil {
		return nil
	}
	if traceID := TraceIDFromContext(ctx); traceID != "" {
		return logger.With(slog.String("trace_id", traceID))
	}
	return logger
}

func ContextWithTraceID(ctx context.Context, traceID string) context.Context {
	return context.WithValue(ctx, traceIDKey, traceID)
}

func TraceIDFromContext(ctx context.Context) string {
	value, _ := ctx.Value(traceIDKey).(string)
	return value
}
