// Package noop provides the authenticator installed when inbound auth is
// disabled.
package noop

import (
	"context"
	"net/http"

	"github.com/rhuss/ollabridge/pkg/auth"
)

// Authenticator accepts every request as auth.Anonymous, which may call
// every operation.
type Authenticator struct{}

func (Authenticator) Authenticate(_ context.Context, _ *http.Request) auth.Result {
	return auth.Result{Decision: auth.Yes, Identity: auth.Anonymous()}
}
