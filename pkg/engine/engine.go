package engine

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/rhuss/ollabridge/pkg/api"
	"github.com/rhuss/ollabridge/pkg/auth"
	"github.com/rhuss/ollabridge/pkg/provider"
	"github.com/rhuss/ollabridge/pkg/registry"
	"github.com/rhuss/ollabridge/pkg/transport"
)

// Engine routes validated requests to providers. It is safe for concurrent
// use; all of its state is read-only after New.
type Engine struct {
	models    *registry.Registry
	providers *provider.Set
	inflight  *transport.InFlightRegistry
	cfg       Config
	logger    *slog.Logger

	now     func() time.Time
	started time.Time
}

// Ensure Engine implements transport.Handler at compile time.
var _ transport.Handler = (*Engine)(nil)

// New creates an Engine. The registry and provider set must not be nil.
func New(models *registry.Registry, providers *provider.Set, cfg Config, logger *slog.Logger) (*Engine, error) {
	if models == nil {
		return nil, errors.New("engine: registry must not be nil")
	}
	if providers == nil {
		return nil, errors.New("engine: provider set must not be nil")
	}
	if logger == nil {
		logger = slog.Default()
	}
	e := &Engine{
		models:    models,
		providers: providers,
		inflight:  transport.NewInFlightRegistry(),
		cfg:       cfg,
		logger:    logger,
		now:       time.Now,
	}
	e.started = e.now()
	return e, nil
}

// InFlight returns the registry of active streams.
func (e *Engine) InFlight() *transport.InFlightRegistry {
	return e.inflight
}

// Handle validates the body for the request's endpoint and dispatches it.
func (e *Engine) Handle(ctx context.Context, req *transport.Request, w transport.ResponseWriter) error {
	if err := auth.Authorize(ctx, req.Endpoint); err != nil {
		return err
	}

	switch req.Endpoint {
	case api.EndpointChat:
		chat, err := api.ValidateChat(req.Body)
		if err != nil {
			return err
		}
		return e.generate(ctx, chat, w)

	case api.EndpointGenerate:
		chat, err := api.ValidateGenerate(req.Body)
		if err != nil {
			return err
		}
		return e.generate(ctx, chat, w)

	case api.EndpointEmbeddings, api.EndpointEmbed:
		return e.embed(ctx, req.Endpoint, req.Body, w)

	default:
		return api.NewInternalError(fmt.Sprintf("unknown endpoint %q", req.Endpoint), nil)
	}
}

// generate serves chat and generate requests.
func (e *Engine) generate(ctx context.Context, req *api.ChatRequest, w transport.ResponseWriter) error {
	if len(req.Messages) == 0 {
		return api.NewNoValidMessagesError()
	}

	model, err := e.models.LookupChat(req.Model)
	if err != nil {
		return err
	}
	p, err := e.providers.Resolve(model.Provider)
	if err != nil {
		return err
	}
	if err := provider.RequireCapability(p, provider.CapabilityChat); err != nil {
		return err
	}

	preq := provider.NewRequest(model.UpstreamModel, req)
	if req.Stream {
		if err := provider.RequireCapability(p, provider.CapabilityStreaming); err != nil {
			return err
		}
		return e.stream(ctx, p, req, preq, w)
	}
	return e.respond(ctx, p, req, preq, w)
}

func (e *Engine) timestamp() string {
	return api.FormatTimestamp(e.now())
}
