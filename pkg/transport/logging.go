package transport

import (
	"context"
	"log/slog"
	"time"

	"github.com/rhuss/ollabridge/pkg/api"
)

// Logging returns middleware that emits one structured log entry per
// request with the request ID, endpoint, model and duration.
//
// Client-side failures are logged at warn level. Upstream and internal
// failures are logged at error level with the full cause, which is never
// sent to the client.
func Logging(logger *slog.Logger) Middleware {
	if logger == nil {
		logger = slog.Default()
	}
	return func(next Handler) Handler {
		return HandlerFunc(func(ctx context.Context, req *Request, w ResponseWriter) error {
			start := time.Now()

			err := next.Handle(ctx, req, w)

			attrs := []slog.Attr{
				slog.String("request_id", RequestIDFromContext(ctx)),
				slog.String("endpoint", string(req.Endpoint)),
				slog.String("model", req.Model()),
				slog.Duration("duration", time.Since(start)),
			}

			if err == nil {
				logger.LogAttrs(ctx, slog.LevelInfo, "request completed", attrs...)
				return nil
			}

			apiErr := api.AsAPIError(err)
			attrs = append(attrs,
				slog.String("kind", string(apiErr.Kind)),
				slog.String("code", apiErr.Code),
				slog.String("error", err.Error()),
			)
			level := slog.LevelError
			if apiErr.Kind == api.KindValidation || apiErr.Kind == api.KindAuth {
				level = slog.LevelWarn
			}
			logger.LogAttrs(ctx, level, "request failed", attrs...)
			return err
		})
	}
}
