package main

import (
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"strconv"

	"github.com/rhuss/ollabridge/pkg/auth"
	"github.com/rhuss/ollabridge/pkg/auth/apikey"
	"github.com/rhuss/ollabridge/pkg/auth/jwt"
	"github.com/rhuss/ollabridge/pkg/auth/noop"
	"github.com/rhuss/ollabridge/pkg/config"
	"github.com/rhuss/ollabridge/pkg/engine"
	"github.com/rhuss/ollabridge/pkg/provider"
	"github.com/rhuss/ollabridge/pkg/provider/anthropic"
	"github.com/rhuss/ollabridge/pkg/provider/gemini"
	"github.com/rhuss/ollabridge/pkg/provider/openaicompat"
	"github.com/rhuss/ollabridge/pkg/registry"
	transporthttp "github.com/rhuss/ollabridge/pkg/transport/http"
)

// app is the fully wired gateway.
type app struct {
	addr      string
	providers *provider.Set
	models    *registry.Registry
	engine    *engine.Engine
	server    *transporthttp.Server
}

func newApp(cfg *config.Config, logger *slog.Logger) (*app, error) {
	providers, err := buildProviders(cfg.Providers, logger)
	if err != nil {
		return nil, err
	}

	models := registry.Load(cfg.Models, providers, logger)

	eng, err := engine.New(models, providers, engine.Config{
		EmbedConcurrency: cfg.Engine.EmbedConcurrency,
		Version:          Version,
	}, logger)
	if err != nil {
		providers.Close()
		return nil, fmt.Errorf("creating engine: %w", err)
	}

	addr := net.JoinHostPort(cfg.Server.Host, strconv.Itoa(cfg.Server.Port))
	opts := []transporthttp.ServerOption{
		transporthttp.WithAddr(addr),
		transporthttp.WithMaxBodySize(cfg.Server.MaxBodySize),
		transporthttp.WithShutdownTimeout(cfg.Server.ShutdownTimeout),
		transporthttp.WithLogger(logger),
		transporthttp.WithAllowedOrigins(cfg.Server.AllowedOrigins),
		transporthttp.WithMetrics(cfg.Observability.Metrics.Enabled),
		transporthttp.WithInFlight(eng.InFlight()),
	}
	authMW, err := buildAuth(cfg.Auth)
	if err != nil {
		providers.Close()
		return nil, fmt.Errorf("configuring auth: %w", err)
	}
	opts = append(opts, transporthttp.WithAuth(authMW))

	return &app{
		addr:      addr,
		providers: providers,
		models:    models,
		engine:    eng,
		server:    transporthttp.NewServer(eng, eng, opts...),
	}, nil
}

// Close releases the provider clients.
func (a *app) Close() error {
	return a.providers.Close()
}

// buildProviders creates a client for every provider with credentials.
// Providers without an API key are left out of the set, so their models
// are dropped by the registry and calls naming them fail as unavailable.
func buildProviders(cfg config.ProvidersConfig, logger *slog.Logger) (*provider.Set, error) {
	httpConfig := func(p config.ProviderConfig) provider.HTTPConfig {
		return provider.HTTPConfig{
			Timeout:    p.Timeout,
			MaxRetries: p.MaxRetries,
			Logger:     logger,
		}
	}

	var list []provider.Provider
	if p := cfg.Gemini; p.Configured() {
		c, err := gemini.New(gemini.Config{
			Name:    config.ProviderGemini,
			BaseURL: p.BaseURL,
			APIKey:  p.APIKey,
			HTTP:    httpConfig(p),
		})
		if err != nil {
			return nil, err
		}
		list = append(list, c)
	}
	for _, oc := range []struct {
		name string
		cfg  config.ProviderConfig
	}{
		{config.ProviderOpenAI, cfg.OpenAI},
		{config.ProviderQwen, cfg.Qwen},
	} {
		if !oc.cfg.Configured() {
			continue
		}
		c, err := openaicompat.New(openaicompat.Config{
			Name:    oc.name,
			BaseURL: oc.cfg.BaseURL,
			APIKey:  oc.cfg.APIKey,
			HTTP:    httpConfig(oc.cfg),
		})
		if err != nil {
			return nil, err
		}
		list = append(list, c)
	}
	if p := cfg.Anthropic; p.Configured() {
		c, err := anthropic.New(anthropic.Config{
			Name:      config.ProviderAnthropic,
			BaseURL:   p.BaseURL,
			APIKey:    p.APIKey,
			MaxTokens: p.MaxTokens,
			HTTP:      httpConfig(p),
		})
		if err != nil {
			return nil, err
		}
		list = append(list, c)
	}

	set := provider.NewSet(list...)
	if len(list) == 0 {
		logger.Warn("no provider credentials configured; every model call will fail")
	}
	return set, nil
}

// buildAuth returns the inbound authentication middleware. With auth.type
// "none" every caller is accepted as an anonymous identity that may call
// every operation.
func buildAuth(cfg config.AuthConfig) (func(http.Handler) http.Handler, error) {
	var authn auth.Authenticator
	switch cfg.Type {
	case "apikey":
		keys := make([]apikey.Key, 0, len(cfg.APIKeys))
		for _, k := range cfg.APIKeys {
			keys = append(keys, apikey.Key{Secret: k.Key, Subject: k.Subject, Scopes: k.Scopes})
		}
		a, err := apikey.New(keys)
		if err != nil {
			return nil, err
		}
		authn = a
	case "jwt":
		a, err := jwt.New(jwt.Config{
			Issuer:          cfg.JWT.Issuer,
			Audience:        cfg.JWT.Audience,
			JWKSURL:         cfg.JWT.JWKSURL,
			SubjectClaim:    cfg.JWT.UserClaim,
			ScopesClaim:     cfg.JWT.ScopesClaim,
			ChatScope:       cfg.JWT.ChatScope,
			EmbeddingsScope: cfg.JWT.EmbeddingsScope,
			CacheTTL:        cfg.JWT.CacheTTL,
			Leeway:          cfg.JWT.Leeway,
		})
		if err != nil {
			return nil, err
		}
		authn = a
	default:
		authn = noop.Authenticator{}
	}

	chain := &auth.Chain{Authenticators: []auth.Authenticator{authn}}
	return auth.Middleware(chain, auth.DefaultBypassEndpoints), nil
}
