package transport

import (
	"context"
	"fmt"

	"github.com/rhuss/ollabridge/pkg/api"
)

// Recovery returns middleware that catches panics in the handler and
// converts them to internal errors. The server keeps accepting requests
// after a panic is recovered.
func Recovery() Middleware {
	return func(next Handler) Handler {
		return HandlerFunc(func(ctx context.Context, req *Request, w ResponseWriter) (retErr error) {
			defer func() {
				if r := recover(); r != nil {
					retErr = api.NewInternalError(fmt.Sprintf("panic: %v", r), nil)
				}
			}()
			return next.Handle(ctx, req, w)
		})
	}
}
