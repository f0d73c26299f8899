package provider

import (
	"errors"
	"sort"

	"github.com/rhuss/ollabridge/pkg/api"
)

// Set holds the provider handles created at startup, keyed by provider
// name. It is never mutated after NewSet returns.
type Set struct {
	providers map[string]Provider
}

// NewSet builds a Set from the given providers. A later provider with the
// same name replaces an earlier one.
func NewSet(providers ...Provider) *Set {
	s := &Set{providers: make(map[string]Provider, len(providers))}
	for _, p := range providers {
		if p == nil {
			continue
		}
		s.providers[p.Name()] = p
	}
	return s
}

// Resolve returns the provider registered under name. Providers that were
// never credentialed are not in the set and fail with provider_unavailable.
func (s *Set) Resolve(name string) (Provider, error) {
	p, ok := s.providers[name]
	if !ok {
		return nil, api.NewProviderUnavailableError(name)
	}
	return p, nil
}

// Available reports whether name resolves to a provider.
func (s *Set) Available(name string) bool {
	_, ok := s.providers[name]
	return ok
}

// Names returns the registered provider names in sorted order.
func (s *Set) Names() []string {
	names := make([]string, 0, len(s.providers))
	for name := range s.providers {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Close closes every provider and joins their errors.
func (s *Set) Close() error {
	var errs []error
	for _, p := range s.providers {
		if err := p.Close(); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}
