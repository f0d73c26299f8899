package auth

import (
	"context"
	"errors"
	"net/http"
)

// Decision is an authenticator's vote.
type Decision int

const (
	// Yes identifies the caller. The chain stops and the identity is used.
	Yes Decision = iota

	// No rejects credentials this authenticator understands. The chain
	// stops and the request fails with 401.
	No

	// Abstain passes the request on to the next authenticator.
	Abstain
)

// Result carries one vote. Identity is set only for Yes, Err only for No.
type Result struct {
	Decision Decision
	Identity *Identity
	Err      error
}

// Identity is an authenticated caller.
type Identity struct {
	// Subject names the caller in logs. Never empty.
	Subject string

	// Grant lists the operations the caller may invoke.
	Grant Grant
}

// Anonymous is the identity assigned when inbound auth is disabled.
func Anonymous() *Identity {
	return &Identity{Subject: "anonymous", Grant: GrantAll}
}

// Authenticator votes on the credentials of one request.
type Authenticator interface {
	Authenticate(ctx context.Context, r *http.Request) Result
}

// ErrUnauthenticated is the vote error when no authenticator accepted the
// request.
var ErrUnauthenticated = errors.New("authentication required")

// Chain evaluates authenticators left to right.
type Chain struct {
	Authenticators []Authenticator

	// AllowAnonymous accepts requests on which every authenticator
	// abstained, as Anonymous. Otherwise they are rejected.
	AllowAnonymous bool
}

// Authenticate returns the first Yes or No vote, or the chain's default
// when all authenticators abstain.
func (c *Chain) Authenticate(ctx context.Context, r *http.Request) Result {
	for _, authn := range c.Authenticators {
		if res := authn.Authenticate(ctx, r); res.Decision != Abstain {
			return res
		}
	}
	if c.AllowAnonymous {
		return Result{Decision: Yes, Identity: Anonymous()}
	}
	return Result{Decision: No, Err: ErrUnauthenticated}
}
