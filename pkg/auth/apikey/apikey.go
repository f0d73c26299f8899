// Package apikey authenticates callers by static API keys. Keys are held
// only as SHA-256 digests and compared in constant time.
package apikey

import (
	"context"
	"crypto/sha256"
	"crypto/subtle"
	"errors"
	"fmt"
	"net/http"
	"strings"

	"github.com/rhuss/ollabridge/pkg/auth"
)

// HeaderName is the alternative to an Authorization bearer token used by
// clients that cannot set Authorization.
const HeaderName = "X-API-Key"

// ErrUnknownKey is the vote error for a key that matches no entry.
var ErrUnknownKey = errors.New("unknown API key")

// Key configures one accepted key.
type Key struct {
	Secret  string
	Subject string
	// Scopes limit the key to chat and/or embeddings. Empty means both.
	Scopes []string
}

type entry struct {
	digest [sha256.Size]byte
	id     auth.Identity
}

// Authenticator matches presented keys against the configured set.
type Authenticator struct {
	entries []entry
}

// New hashes keys and resolves their grants. Empty secrets, duplicate
// secrets and unknown scope names are configuration errors.
func New(keys []Key) (*Authenticator, error) {
	if len(keys) == 0 {
		return nil, errors.New("no API keys configured")
	}
	a := &Authenticator{entries: make([]entry, 0, len(keys))}
	seen := make(map[[sha256.Size]byte]int, len(keys))
	for i, k := range keys {
		if k.Secret == "" {
			return nil, fmt.Errorf("api key %d: empty key", i)
		}
		digest := sha256.Sum256([]byte(k.Secret))
		if j, dup := seen[digest]; dup {
			return nil, fmt.Errorf("api key %d: same key as entry %d", i, j)
		}
		seen[digest] = i

		grant, err := auth.ParseScopes(k.Scopes)
		if err != nil {
			return nil, fmt.Errorf("api key %d: %w", i, err)
		}
		subject := k.Subject
		if subject == "" {
			subject = fmt.Sprintf("apikey-%d", i)
		}
		a.entries = append(a.entries, entry{digest: digest, id: auth.Identity{Subject: subject, Grant: grant}})
	}
	return a, nil
}

// Authenticate abstains when no key is presented, so other authenticators
// in the chain may handle the request.
func (a *Authenticator) Authenticate(_ context.Context, r *http.Request) auth.Result {
	key, ok := presentedKey(r)
	if !ok {
		return auth.Result{Decision: auth.Abstain}
	}
	if key == "" {
		return auth.Result{Decision: auth.No, Err: ErrUnknownKey}
	}

	digest := sha256.Sum256([]byte(key))
	match := -1
	for i := range a.entries {
		// Scan all entries so timing does not reveal the matching index.
		if subtle.ConstantTimeCompare(digest[:], a.entries[i].digest[:]) == 1 {
			match = i
		}
	}
	if match < 0 {
		return auth.Result{Decision: auth.No, Err: ErrUnknownKey}
	}
	id := a.entries[match].id
	return auth.Result{Decision: auth.Yes, Identity: &id}
}

func presentedKey(r *http.Request) (string, bool) {
	if h := r.Header.Get("Authorization"); h != "" {
		scheme, token, found := strings.Cut(h, " ")
		if !found || !strings.EqualFold(scheme, "Bearer") {
			return "", false
		}
		return strings.TrimSpace(token), true
	}
	if vals, ok := r.Header[HeaderName]; ok && len(vals) > 0 {
		return strings.TrimSpace(vals[0]), true
	}
	return "", false
}
