package transport

import (
	"context"

	"github.com/google/uuid"
)

// RequestID returns middleware that assigns a unique request ID to each
// request. If the incoming context already carries one (set by the HTTP
// adapter from the X-Request-ID header), that value is kept.
func RequestID() Middleware {
	return func(next Handler) Handler {
		return HandlerFunc(func(ctx context.Context, req *Request, w ResponseWriter) error {
			if RequestIDFromContext(ctx) == "" {
				ctx = ContextWithRequestID(ctx, uuid.NewString())
			}
			return next.Handle(ctx, req, w)
		})
	}
}
