package engine

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/rhuss/ollabridge/pkg/api"
	"github.com/rhuss/ollabridge/pkg/debug"
	"github.com/rhuss/ollabridge/pkg/observability"
	"github.com/rhuss/ollabridge/pkg/provider"
	"github.com/rhuss/ollabridge/pkg/registry"
	"github.com/rhuss/ollabridge/pkg/transport"
)

// EmbeddingResult holds the vectors of one request in input order.
// Dimensions is the length of the first vector and is informational only.
type EmbeddingResult struct {
	Vectors    [][]float64
	Model      string
	Dimensions int
}

// embed serves /api/embeddings and /api/embed.
func (e *Engine) embed(ctx context.Context, endpoint api.Endpoint, body api.RawBody, w transport.ResponseWriter) error {
	req, err := api.ValidateEmbedding(body, e.models)
	if err != nil {
		return err
	}
	model, err := e.models.LookupEmbedding(req.Model)
	if err != nil {
		return err
	}

	result, err := e.GenerateEmbeddings(ctx, model, req.Inputs)
	if err != nil {
		return err
	}

	envelope := Shape(result, endpoint, req.Single, req.Model, e.timestamp())
	data, err := json.Marshal(envelope)
	if err != nil {
		return api.NewInternalError("marshal embedding envelope", err)
	}
	if err := VerifyEnvelope(data, len(req.Inputs)); err != nil {
		return err
	}
	return w.WriteResponse(ctx, data)
}

// GenerateEmbeddings issues one upstream call per input, at most
// EmbedConcurrency at a time. The first failure cancels the batch: items
// not yet started are skipped and no partial result is returned.
func (e *Engine) GenerateEmbeddings(ctx context.Context, model registry.ModelConfig, inputs []string) (*EmbeddingResult, error) {
	if len(inputs) == 0 {
		return nil, api.NewValidationError(api.CodeEmptyInput, "input", "Field 'input' cannot be empty")
	}
	p, err := e.providers.Resolve(model.Provider)
	if err != nil {
		return nil, err
	}
	if err := provider.RequireCapability(p, provider.CapabilityEmbeddings); err != nil {
		return nil, err
	}

	observability.EmbeddingInputsTotal.WithLabelValues(model.Name).Add(float64(len(inputs)))
	debug.Log("embeddings", "batch", "provider", p.Name(), "model", model.UpstreamModel,
		"inputs", len(inputs), "concurrency", e.cfg.embedConcurrency())

	vectors := make([][]float64, len(inputs))
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(e.cfg.embedConcurrency())

	for i, text := range inputs {
		if gctx.Err() != nil {
			break
		}
		g.Go(func() error {
			if gctx.Err() != nil {
				return gctx.Err()
			}
			vec, err := e.embedOne(gctx, p, model, text)
			if err != nil {
				e.logger.Error("embedding failed",
					"request_id", transport.RequestIDFromContext(ctx),
					"model", model.Name,
					"provider", p.Name(),
					"index", i,
					"error", err,
				)
				return err
			}
			vectors[i] = vec
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	return &EmbeddingResult{
		Vectors:    vectors,
		Model:      model.Name,
		Dimensions: len(vectors[0]),
	}, nil
}

func (e *Engine) embedOne(ctx context.Context, p provider.Provider, model registry.ModelConfig, text string) ([]float64, error) {
	start := time.Now()
	emb, err := p.Embed(ctx, &provider.EmbedRequest{Model: model.UpstreamModel, Text: text})
	if err == nil && (emb == nil || len(emb.Vector) == 0) {
		err = api.NewUnavailableError(api.CodeInvalidUpstreamEmbedding,
			fmt.Sprintf("Provider '%s' returned an empty embedding", p.Name()), nil)
	}
	observability.ObserveProvider(p.Name(), model.Name, "embed", start, err)
	if err != nil {
		return nil, err
	}
	return emb.Vector, nil
}

// Shape builds the response envelope. /api/embed always gets bare vectors.
// On /api/embeddings only a request that used "prompt" gets the
// single-vector form; everything else gets the batch form.
func Shape(result *EmbeddingResult, endpoint api.Endpoint, single bool, model, createdAt string) any {
	if endpoint == api.EndpointEmbed {
		return &api.EmbedResponse{
			Model:      model,
			Embeddings: result.Vectors,
			CreatedAt:  createdAt,
		}
	}
	if single {
		return &api.EmbeddingResponse{
			Embedding: result.Vectors[0],
			Model:     model,
			CreatedAt: createdAt,
		}
	}
	items := make([]api.EmbeddingItem, len(result.Vectors))
	for i, v := range result.Vectors {
		items[i] = api.EmbeddingItem{Embedding: v}
	}
	return &api.BatchEmbeddingResponse{
		Embeddings: items,
		Model:      model,
		CreatedAt:  createdAt,
	}
}

// VerifyEnvelope re-reads serialized envelope bytes and checks that every
// vector, bare or wrapped in an {"embedding"} object, is a non-empty numeric
// array, that the vector count matches the input count and that model and
// created_at are strings.
func VerifyEnvelope(data []byte, expected int) error {
	var env map[string]any
	if err := json.Unmarshal(data, &env); err != nil {
		return invalidEnvelope("not a JSON object", err)
	}
	for _, key := range []string{"model", "created_at"} {
		if s, ok := env[key].(string); !ok || s == "" {
			return invalidEnvelope(fmt.Sprintf("field %q is not a non-empty string", key), nil)
		}
	}

	if raw, ok := env["embedding"]; ok {
		if _, batch := env["embeddings"]; batch {
			return invalidEnvelope("both embedding and embeddings present", nil)
		}
		if expected != 1 {
			return invalidEnvelope(fmt.Sprintf("single envelope for %d inputs", expected), nil)
		}
		return checkVector(raw, 0)
	}

	items, ok := env["embeddings"].([]any)
	if !ok {
		return invalidEnvelope("missing embeddings array", nil)
	}
	if len(items) != expected {
		return invalidEnvelope(fmt.Sprintf("got %d vectors for %d inputs", len(items), expected), nil)
	}
	for i, item := range items {
		vector := item
		if obj, ok := item.(map[string]any); ok {
			vector = obj["embedding"]
		}
		if err := checkVector(vector, i); err != nil {
			return err
		}
	}
	return nil
}

func checkVector(raw any, index int) error {
	values, ok := raw.([]any)
	if !ok || len(values) == 0 {
		return invalidEnvelope(fmt.Sprintf("vector %d is empty or not an array", index), nil)
	}
	for _, v := range values {
		if _, ok := v.(float64); !ok {
			return invalidEnvelope(fmt.Sprintf("vector %d contains a non-numeric value", index), nil)
		}
	}
	return nil
}

func invalidEnvelope(detail string, cause error) error {
	apiErr := api.NewInternalError("invalid embedding envelope: "+detail, cause)
	apiErr.Code = api.CodeInvalidEnvelope
	return apiErr
}
