// Package registry holds the set of models served by the gateway.
//
// The registry is built once at startup from configuration and never
// mutated afterwards, so handlers may read it concurrently without locking.
// Models are partitioned into two disjoint views, chat and embedding.
package registry

import (
	"fmt"
	"log/slog"
	"sort"
	"strings"

	"github.com/rhuss/ollabridge/pkg/api"
)

// Kind classifies a configured model.
type Kind string

const (
	KindChat      Kind = "chat"
	KindEmbedding Kind = "embedding"
)

// ModelConfig is one configured model entry.
type ModelConfig struct {
	// Name is the model name clients use on the wire.
	Name string `yaml:"name" json:"name"`

	// Provider names the upstream provider serving this model.
	Provider string `yaml:"provider" json:"provider"`

	// UpstreamModel is the model identifier sent to the provider.
	UpstreamModel string `yaml:"upstream_model" json:"upstream_model"`

	// Kind is "chat" or "embedding". Empty means chat.
	Kind Kind `yaml:"kind,omitempty" json:"kind,omitempty"`
}

// Availability reports whether a provider has credentials configured.
type Availability interface {
	Available(name string) bool
}

// Registry is an immutable mapping of model names to configurations.
type Registry struct {
	chat      map[string]ModelConfig
	embedding map[string]ModelConfig
	providers Availability
}

// Load builds a Registry from configured entries. Invalid entries are
// logged and skipped; loading never fails. When two entries share a name
// the later one wins.
func Load(entries []ModelConfig, providers Availability, logger *slog.Logger) *Registry {
	if logger == nil {
		logger = slog.Default()
	}
	r := &Registry{
		chat:      make(map[string]ModelConfig),
		embedding: make(map[string]ModelConfig),
		providers: providers,
	}

	for i, entry := range entries {
		entry.Name = strings.TrimSpace(entry.Name)
		if entry.Name == "" {
			logger.Warn("skipping model without name", "index", i)
			continue
		}
		if entry.Provider == "" || entry.UpstreamModel == "" {
			logger.Warn("skipping model with missing provider or upstream model",
				"model", entry.Name, "provider", entry.Provider, "upstream_model", entry.UpstreamModel)
			continue
		}
		if providers != nil && !providers.Available(entry.Provider) {
			logger.Warn("skipping model for unconfigured provider",
				"model", entry.Name, "provider", entry.Provider)
			continue
		}
		if entry.Kind == "" {
			entry.Kind = KindChat
		}

		var target, other map[string]ModelConfig
		switch entry.Kind {
		case KindChat:
			target, other = r.chat, r.embedding
		case KindEmbedding:
			target, other = r.embedding, r.chat
		default:
			logger.Warn("skipping model with unknown kind", "model", entry.Name, "kind", entry.Kind)
			continue
		}

		_, dupChat := r.chat[entry.Name]
		_, dupEmbed := r.embedding[entry.Name]
		if dupChat || dupEmbed {
			logger.Warn("duplicate model name, later entry wins", "model", entry.Name)
		}
		delete(other, entry.Name)
		target[entry.Name] = entry
	}

	logger.Info("model registry loaded", "chat_models", len(r.chat), "embedding_models", len(r.embedding))
	return r
}

// LookupChat resolves a chat model by name.
func (r *Registry) LookupChat(name string) (ModelConfig, error) {
	if m, ok := r.chat[name]; ok {
		return m, r.checkProvider(m)
	}
	if _, ok := r.embedding[name]; ok {
		return ModelConfig{}, api.NewValidationError(api.CodeWrongKind, "model",
			fmt.Sprintf("Model '%s' is an embedding model and cannot be used for chat", name))
	}
	return ModelConfig{}, modelNotFound(name)
}

// LookupEmbedding resolves an embedding model by name.
func (r *Registry) LookupEmbedding(name string) (ModelConfig, error) {
	if m, ok := r.embedding[name]; ok {
		return m, r.checkProvider(m)
	}
	if _, ok := r.chat[name]; ok {
		return ModelConfig{}, api.NewValidationError(api.CodeWrongKind, "model",
			fmt.Sprintf("Model '%s' is not an embedding model", name))
	}
	return ModelConfig{}, modelNotFound(name)
}

// CheckEmbedding reports whether name can be used for embeddings.
func (r *Registry) CheckEmbedding(name string) error {
	_, err := r.LookupEmbedding(name)
	return err
}

// Models returns every registered model sorted by name.
func (r *Registry) Models() []ModelConfig {
	out := make([]ModelConfig, 0, len(r.chat)+len(r.embedding))
	for _, m := range r.chat {
		out = append(out, m)
	}
	for _, m := range r.embedding {
		out = append(out, m)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out
}

// Len returns the number of registered models.
func (r *Registry) Len() int {
	return len(r.chat) + len(r.embedding)
}

func (r *Registry) checkProvider(m ModelConfig) error {
	if r.providers != nil && !r.providers.Available(m.Provider) {
		return api.NewProviderUnavailableError(m.Provider)
	}
	return nil
}

func modelNotFound(name string) error {
	return api.NewValidationError(api.CodeModelNotFound, "model",
		fmt.Sprintf("Model '%s' not found", name))
}
