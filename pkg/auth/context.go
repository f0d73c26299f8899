package auth

import (
	"context"
	"fmt"

	"github.com/rhuss/ollabridge/pkg/api"
)

type identityKey struct{}

// WithIdentity returns a context carrying id.
func WithIdentity(ctx context.Context, id *Identity) context.Context {
	return context.WithValue(ctx, identityKey{}, id)
}

// IdentityFrom returns the caller stored by the middleware, or nil.
func IdentityFrom(ctx context.Context) *Identity {
	id, _ := ctx.Value(identityKey{}).(*Identity)
	return id
}

// Authorize checks that the caller may use endpoint. A context without an
// identity never passed through the auth middleware and is not restricted.
func Authorize(ctx context.Context, endpoint api.Endpoint) error {
	id := IdentityFrom(ctx)
	op := GrantFor(endpoint)
	if id == nil || id.Grant.Allows(op) {
		return nil
	}
	return api.NewAuthError(api.CodeForbidden,
		fmt.Sprintf("Access denied: scope '%s' is required", op))
}
