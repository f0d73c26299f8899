package engine

import (
	"crypto/sha256"
	"encoding/hex"

	"github.com/rhuss/ollabridge/pkg/api"
	"github.com/rhuss/ollabridge/pkg/registry"
)

// Tags lists every served model, chat and embedding alike. The gateway has
// no local weights, so size is zero, modified_at is the startup time and the
// digest is derived from the model name.
func (e *Engine) Tags() *api.TagsResponse {
	models := e.models.Models()
	resp := &api.TagsResponse{Models: make([]api.ModelTag, 0, len(models))}
	modified := api.FormatTimestamp(e.started)
	for _, m := range models {
		resp.Models = append(resp.Models, api.ModelTag{
			Name:       m.Name,
			Model:      m.Name,
			ModifiedAt: modified,
			Size:       0,
			Digest:     digest(m.Name),
			Details: api.ModelDetails{
				Family:            family(m.Kind),
				Format:            "api",
				ParameterSize:     "unknown",
				QuantizationLevel: "none",
			},
		})
	}
	return resp
}

// Version reports the gateway version.
func (e *Engine) Version() *api.VersionResponse {
	return &api.VersionResponse{Version: e.cfg.version()}
}

func family(kind registry.Kind) string {
	if kind == registry.KindEmbedding {
		return "embedding"
	}
	return "chat"
}

func digest(name string) string {
	sum := sha256.Sum256([]byte(name))
	return hex.EncodeToString(sum[:])
}
