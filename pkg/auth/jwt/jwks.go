package jwt

import (
	"context"
	"crypto"
	"crypto/ecdsa"
	"crypto/elliptic"
	"crypto/rsa"
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"math/big"
	"net/http"
	"sync"
	"time"

	"golang.org/x/sync/singleflight"
)

const (
	fetchTimeout = 10 * time.Second

	// minRefresh bounds how often lookups can trigger a fetch.
	minRefresh = 30 * time.Second

	maxJWKSBytes = 1 << 20
)

// keySet caches the verification keys of one JWKS endpoint. Concurrent
// misses share a single fetch.
type keySet struct {
	url    string
	client *http.Client
	ttl    time.Duration
	now    func() time.Time

	flight singleflight.Group

	mu          sync.RWMutex
	keys        map[string]crypto.PublicKey
	fetchedAt   time.Time // last successful fetch
	attemptedAt time.Time // last fetch, successful or not
}

func newKeySet(url string, client *http.Client, ttl time.Duration) *keySet {
	return &keySet{url: url, client: client, ttl: ttl, now: time.Now}
}

// lookup returns the key for kid. Expired keys are refreshed; if the
// endpoint is unreachable the stale key is still used.
func (s *keySet) lookup(ctx context.Context, kid string) (crypto.PublicKey, error) {
	if kid == "" {
		return nil, errors.New("token header has no kid")
	}

	s.mu.RLock()
	key, known := s.keys[kid]
	now := s.now()
	fresh := now.Sub(s.fetchedAt) < s.ttl
	attempted := s.attemptedAt
	s.mu.RUnlock()

	if known && fresh {
		return key, nil
	}
	if !attempted.IsZero() && now.Sub(attempted) < minRefresh {
		if known {
			return key, nil
		}
		return nil, fmt.Errorf("unknown kid %q", kid)
	}

	if err := s.refresh(ctx, attempted); err != nil {
		if known {
			slog.Warn("JWKS refresh failed, using cached key", "kid", kid, "error", err)
			return key, nil
		}
		return nil, err
	}

	s.mu.RLock()
	key, known = s.keys[kid]
	s.mu.RUnlock()
	if !known {
		return nil, fmt.Errorf("unknown kid %q", kid)
	}
	return key, nil
}

// refresh fetches the key set unless another caller already did so after
// seen.
func (s *keySet) refresh(ctx context.Context, seen time.Time) error {
	_, err, _ := s.flight.Do("jwks", func() (any, error) {
		s.mu.RLock()
		done := s.attemptedAt.After(seen)
		s.mu.RUnlock()
		if done {
			return nil, nil
		}

		// The fetch outlives the request that triggered it.
		fctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), fetchTimeout)
		defer cancel()
		keys, err := s.fetch(fctx)

		s.mu.Lock()
		defer s.mu.Unlock()
		s.attemptedAt = s.now()
		if err != nil {
			return nil, err
		}
		s.keys = keys
		s.fetchedAt = s.attemptedAt
		slog.Debug("JWKS refreshed", "keys", len(keys), "url", s.url)
		return nil, nil
	})
	return err
}

func (s *keySet) fetch(ctx context.Context) (map[string]crypto.PublicKey, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, s.url, nil)
	if err != nil {
		return nil, fmt.Errorf("creating JWKS request: %w", err)
	}
	resp, err := s.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("fetching JWKS: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("JWKS endpoint returned status %d", resp.StatusCode)
	}
	body, err := io.ReadAll(io.LimitReader(resp.Body, maxJWKSBytes+1))
	if err != nil {
		return nil, fmt.Errorf("reading JWKS: %w", err)
	}
	if len(body) > maxJWKSBytes {
		return nil, fmt.Errorf("JWKS document exceeds %d bytes", maxJWKSBytes)
	}

	var doc struct {
		Keys []jwk `json:"keys"`
	}
	if err := json.Unmarshal(body, &doc); err != nil {
		return nil, fmt.Errorf("parsing JWKS: %w", err)
	}

	keys := make(map[string]crypto.PublicKey, len(doc.Keys))
	for _, k := range doc.Keys {
		if k.Kid == "" || (k.Use != "" && k.Use != "sig") {
			continue
		}
		pub, err := k.publicKey()
		if err != nil {
			slog.Warn("skipping JWKS key", "kid", k.Kid, "error", err)
			continue
		}
		keys[k.Kid] = pub
	}
	if len(keys) == 0 {
		return nil, errors.New("JWKS contains no usable signing keys")
	}
	return keys, nil
}

type jwk struct {
	Kty string `json:"kty"`
	Kid string `json:"kid"`
	Use string `json:"use"`

	N string `json:"n"`
	E string `json:"e"`

	Crv string `json:"crv"`
	X   string `json:"x"`
	Y   string `json:"y"`
}

func (k jwk) publicKey() (crypto.PublicKey, error) {
	switch k.Kty {
	case "RSA":
		return k.rsaKey()
	case "EC":
		return k.ecKey()
	}
	return nil, fmt.Errorf("unsupported key type %q", k.Kty)
}

func (k jwk) rsaKey() (*rsa.PublicKey, error) {
	n, err := base64.RawURLEncoding.DecodeString(k.N)
	if err != nil {
		return nil, fmt.Errorf("decoding n: %w", err)
	}
	e, err := base64.RawURLEncoding.DecodeString(k.E)
	if err != nil {
		return nil, fmt.Errorf("decoding e: %w", err)
	}
	exp := new(big.Int).SetBytes(e)
	if !exp.IsInt64() || exp.Int64() < 3 || exp.Int64() > 1<<31-1 {
		return nil, errors.New("invalid RSA exponent")
	}
	if len(n) == 0 {
		return nil, errors.New("empty RSA modulus")
	}
	return &rsa.PublicKey{N: new(big.Int).SetBytes(n), E: int(exp.Int64())}, nil
}

func (k jwk) ecKey() (*ecdsa.PublicKey, error) {
	var curve elliptic.Curve
	switch k.Crv {
	case "P-256":
		curve = elliptic.P256()
	case "P-384":
		curve = elliptic.P384()
	default:
		return nil, fmt.Errorf("unsupported curve %q", k.Crv)
	}
	x, err := base64.RawURLEncoding.DecodeString(k.X)
	if err != nil {
		return nil, fmt.Errorf("decoding x: %w", err)
	}
	y, err := base64.RawURLEncoding.DecodeString(k.Y)
	if err != nil {
		return nil, fmt.Errorf("decoding y: %w", err)
	}
	size := (curve.Params().BitSize + 7) / 8
	if len(x) != size || len(y) != size {
		return nil, fmt.Errorf("coordinates must be %d bytes for %s", size, k.Crv)
	}
	point := make([]byte, 0, 1+2*size)
	point = append(point, 4)
	point = append(point, x...)
	point = append(point, y...)
	return ecdsa.ParseUncompressedPublicKey(curve, point)
}
