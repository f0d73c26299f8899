// Package jwt authenticates callers by bearer JWTs signed with a key
// published at a JWKS endpoint. RSA and ECDSA signatures are accepted.
//
// The token's scope claim is translated into a gateway grant: the names
// configured as ChatScope and EmbeddingsScope unlock the corresponding
// operations, other values are ignored. A token without the claim may call
// everything.
package jwt

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	jwtlib "github.com/golang-jwt/jwt/v5"
	"github.com/rhuss/ollabridge/pkg/auth"
	"github.com/rhuss/ollabridge/pkg/debug"
)

// Config holds the JWT authenticator configuration.
type Config struct {
	// Issuer and Audience are checked when set.
	Issuer   string
	Audience string

	// JWKSURL serves the verification keys. Required.
	JWKSURL string

	SubjectClaim string // default "sub"

	// ScopesClaim holds the token's scopes as a space-separated string or
	// an array. Default "scope".
	ScopesClaim string

	// Scope values that grant chat and embeddings. Defaults "chat" and
	// "embeddings".
	ChatScope       string
	EmbeddingsScope string

	CacheTTL time.Duration // default 1h
	Leeway   time.Duration // clock skew tolerated on exp, nbf and iat

	HTTPClient *http.Client
}

func (c *Config) applyDefaults() {
	if c.SubjectClaim == "" {
		c.SubjectClaim = "sub"
	}
	if c.ScopesClaim == "" {
		c.ScopesClaim = "scope"
	}
	if c.ChatScope == "" {
		c.ChatScope = auth.ScopeChat
	}
	if c.EmbeddingsScope == "" {
		c.EmbeddingsScope = auth.ScopeEmbeddings
	}
	if c.CacheTTL <= 0 {
		c.CacheTTL = time.Hour
	}
	if c.HTTPClient == nil {
		c.HTTPClient = &http.Client{Timeout: fetchTimeout}
	}
}

var errNoGrant = errors.New("token grants no gateway scope")

// Authenticator verifies bearer JWTs.
type Authenticator struct {
	cfg    Config
	keys   *keySet
	parser *jwtlib.Parser
}

// New validates cfg and builds the authenticator. Keys are fetched on first
// use.
func New(cfg Config) (*Authenticator, error) {
	if cfg.JWKSURL == "" {
		return nil, errors.New("jwt: JWKS URL is required")
	}
	cfg.applyDefaults()
	if cfg.ChatScope == cfg.EmbeddingsScope {
		return nil, fmt.Errorf("jwt: chat and embeddings scope are both %q", cfg.ChatScope)
	}

	opts := []jwtlib.ParserOption{
		jwtlib.WithValidMethods([]string{"RS256", "RS384", "RS512", "ES256", "ES384"}),
		jwtlib.WithExpirationRequired(),
		jwtlib.WithLeeway(cfg.Leeway),
	}
	if cfg.Issuer != "" {
		opts = append(opts, jwtlib.WithIssuer(cfg.Issuer))
	}
	if cfg.Audience != "" {
		opts = append(opts, jwtlib.WithAudience(cfg.Audience))
	}

	return &Authenticator{
		cfg:    cfg,
		keys:   newKeySet(cfg.JWKSURL, cfg.HTTPClient, cfg.CacheTTL),
		parser: jwtlib.NewParser(opts...),
	}, nil
}

// Authenticate abstains on requests without a bearer token or whose token
// is not a compact JWS, so opaque tokens can be handled elsewhere.
func (a *Authenticator) Authenticate(ctx context.Context, r *http.Request) auth.Result {
	raw, ok := bearerToken(r)
	if !ok || strings.Count(raw, ".") != 2 {
		return auth.Result{Decision: auth.Abstain}
	}

	claims := jwtlib.MapClaims{}
	_, err := a.parser.ParseWithClaims(raw, claims, func(t *jwtlib.Token) (any, error) {
		kid, _ := t.Header["kid"].(string)
		return a.keys.lookup(ctx, kid)
	})
	if err != nil {
		debug.Log("auth", "jwt rejected", "error", err)
		return auth.Result{Decision: auth.No, Err: fmt.Errorf("invalid token: %w", err)}
	}

	subject, _ := claims[a.cfg.SubjectClaim].(string)
	if subject == "" {
		return auth.Result{Decision: auth.No, Err: fmt.Errorf("token has no %q claim", a.cfg.SubjectClaim)}
	}
	grant, err := a.grant(claims)
	if err != nil {
		debug.Log("auth", "jwt rejected", "subject", subject, "error", err)
		return auth.Result{Decision: auth.No, Err: err}
	}
	return auth.Result{Decision: auth.Yes, Identity: &auth.Identity{Subject: subject, Grant: grant}}
}

func (a *Authenticator) grant(claims jwtlib.MapClaims) (auth.Grant, error) {
	raw, present := claims[a.cfg.ScopesClaim]
	if !present {
		return auth.GrantAll, nil
	}
	var g auth.Grant
	for _, s := range scopeValues(raw) {
		switch s {
		case a.cfg.ChatScope:
			g |= auth.GrantChat
		case a.cfg.EmbeddingsScope:
			g |= auth.GrantEmbeddings
		}
	}
	if g == auth.GrantNone {
		return g, fmt.Errorf("%w: want %q or %q in %q", errNoGrant, a.cfg.ChatScope, a.cfg.EmbeddingsScope, a.cfg.ScopesClaim)
	}
	return g, nil
}

func scopeValues(v any) []string {
	switch v := v.(type) {
	case string:
		return strings.Fields(v)
	case []any:
		out := make([]string, 0, len(v))
		for _, item := range v {
			if s, ok := item.(string); ok {
				out = append(out, s)
			}
		}
		return out
	}
	return nil
}

func bearerToken(r *http.Request) (string, bool) {
	scheme, token, found := strings.Cut(r.Header.Get("Authorization"), " ")
	if !found || !strings.EqualFold(scheme, "Bearer") {
		return "", false
	}
	return strings.TrimSpace(token), true
}
