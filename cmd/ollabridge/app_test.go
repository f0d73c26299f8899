package main

import (
	"bytes"
	"encoding/json"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/rhuss/ollabridge/pkg/api"
	"github.com/rhuss/ollabridge/pkg/config"
	"github.com/rhuss/ollabridge/pkg/registry"
)

func discardLogger() *slog.Logger {
	return slog.New(slog.DiscardHandler)
}

func TestBuildProvidersOnlyConfigured(t *testing.T) {
	cfg := config.Defaults().Providers
	cfg.Gemini.APIKey = "g"
	cfg.Qwen.APIKey = "q"

	set, err := buildProviders(cfg, discardLogger())
	if err != nil {
		t.Fatalf("buildProviders() error: %v", err)
	}
	defer set.Close()

	names := set.Names()
	if len(names) != 2 || names[0] != "gemini" || names[1] != "qwen" {
		t.Errorf("providers = %v, want [gemini qwen]", names)
	}
	if set.Available("openai") || set.Available("anthropic") {
		t.Error("providers without keys must not be available")
	}
}

func TestBuildProvidersNone(t *testing.T) {
	set, err := buildProviders(config.Defaults().Providers, discardLogger())
	if err != nil {
		t.Fatalf("buildProviders() error: %v", err)
	}
	if len(set.Names()) != 0 {
		t.Errorf("providers = %v, want none", set.Names())
	}
}

func TestBuildAuth(t *testing.T) {
	ok := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	})

	open, err := buildAuth(config.AuthConfig{Type: "none"})
	if err != nil {
		t.Fatalf("buildAuth(none) error: %v", err)
	}
	rec := httptest.NewRecorder()
	open(ok).ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/api/chat", nil))
	if rec.Code != http.StatusOK {
		t.Errorf("auth type none: status = %d, want 200", rec.Code)
	}

	mw, err := buildAuth(config.AuthConfig{
		Type:    "apikey",
		APIKeys: []config.APIKeyConfig{{Key: "sk-test", Subject: "ci"}},
	})
	if err != nil {
		t.Fatalf("buildAuth(apikey) error: %v", err)
	}
	h := mw(ok)

	tests := []struct {
		name   string
		path   string
		header string
		want   int
	}{
		{"no credentials", "/api/chat", "", http.StatusUnauthorized},
		{"wrong key", "/api/chat", "Bearer nope", http.StatusUnauthorized},
		{"valid key", "/api/chat", "Bearer sk-test", http.StatusOK},
		{"liveness bypass", "/", "", http.StatusOK},
		{"version bypass", "/api/version", "", http.StatusOK},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodPost, tt.path, nil)
			if tt.header != "" {
				req.Header.Set("Authorization", tt.header)
			}
			rec := httptest.NewRecorder()
			h.ServeHTTP(rec, req)
			if rec.Code != tt.want {
				t.Errorf("status = %d, want %d", rec.Code, tt.want)
			}
		})
	}
}

func TestBuildAuthRejectsBadConfig(t *testing.T) {
	tests := []struct {
		name string
		cfg  config.AuthConfig
	}{
		{"unknown key scope", config.AuthConfig{Type: "apikey", APIKeys: []config.APIKeyConfig{{Key: "k", Scopes: []string{"admin"}}}}},
		{"duplicate keys", config.AuthConfig{Type: "apikey", APIKeys: []config.APIKeyConfig{{Key: "k"}, {Key: "k"}}}},
		{"jwt scope collision", config.AuthConfig{Type: "jwt", JWT: config.JWTConfig{JWKSURL: "https://idp.example/jwks", ChatScope: "x", EmbeddingsScope: "x"}}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, err := buildAuth(tt.cfg); err == nil {
				t.Error("expected error")
			}
		})
	}

	cfg := config.Defaults()
	cfg.Auth = tests[0].cfg
	if _, err := newApp(&cfg, discardLogger()); err == nil || !strings.Contains(err.Error(), "configuring auth") {
		t.Errorf("newApp() error = %v, want auth configuration error", err)
	}
}

func TestScopedKeyIsLimitedToItsOperation(t *testing.T) {
	cfg := config.Defaults()
	cfg.Providers.Gemini.APIKey = "g"
	cfg.Auth = config.AuthConfig{
		Type:    "apikey",
		APIKeys: []config.APIKeyConfig{{Key: "sk-chat", Subject: "chat-only", Scopes: []string{"chat"}}},
	}
	a, err := newApp(&cfg, discardLogger())
	if err != nil {
		t.Fatalf("newApp() error: %v", err)
	}
	defer a.Close()

	for _, path := range []string{"/api/embeddings", "/api/embed"} {
		req := httptest.NewRequest(http.MethodPost, path,
			strings.NewReader(`{"model":"text-embedding-004","input":"hi","prompt":"hi"}`))
		req.Header.Set("Authorization", "Bearer sk-chat")
		rec := httptest.NewRecorder()
		a.server.Handler().ServeHTTP(rec, req)

		if rec.Code != http.StatusUnauthorized {
			t.Errorf("%s: status = %d, want 401", path, rec.Code)
		}
		if !strings.Contains(rec.Body.String(), "scope 'embeddings' is required") {
			t.Errorf("%s: body = %s", path, rec.Body.String())
		}
	}
}

func TestNewAppServesConfiguredModels(t *testing.T) {
	cfg := config.Defaults()
	cfg.Providers.Gemini.APIKey = "g"
	cfg.Server.Host = "127.0.0.1"
	cfg.Server.Port = 18080

	a, err := newApp(&cfg, discardLogger())
	if err != nil {
		t.Fatalf("newApp() error: %v", err)
	}
	defer a.Close()

	if a.addr != "127.0.0.1:18080" {
		t.Errorf("addr = %q", a.addr)
	}

	rec := httptest.NewRecorder()
	a.server.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/tags", nil))
	if rec.Code != http.StatusOK {
		t.Fatalf("GET /api/tags status = %d", rec.Code)
	}

	var tags api.TagsResponse
	if err := json.Unmarshal(rec.Body.Bytes(), &tags); err != nil {
		t.Fatalf("invalid tags body: %v", err)
	}
	if len(tags.Models) == 0 {
		t.Fatal("no models listed")
	}
	for _, m := range tags.Models {
		if !strings.HasPrefix(m.Name, "gemini") && m.Name != "text-embedding-004" {
			t.Errorf("model %q served without provider credentials", m.Name)
		}
	}

	rec = httptest.NewRecorder()
	a.server.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/version", nil))
	if !strings.Contains(rec.Body.String(), Version) {
		t.Errorf("version body = %q, want %q", rec.Body.String(), Version)
	}
}

func TestNewAppUnavailableProvider(t *testing.T) {
	cfg := config.Defaults()
	cfg.Providers.Gemini.APIKey = "g"

	a, err := newApp(&cfg, discardLogger())
	if err != nil {
		t.Fatalf("newApp() error: %v", err)
	}
	defer a.Close()

	req := httptest.NewRequest(http.MethodPost, "/api/chat",
		strings.NewReader(`{"model":"gpt-4o","messages":[{"role":"user","content":"hi"}]}`))
	rec := httptest.NewRecorder()
	a.server.Handler().ServeHTTP(rec, req)
	if rec.Code != http.StatusBadRequest {
		t.Errorf("status = %d, want 400 for a model dropped at load", rec.Code)
	}
}

func TestPrintModels(t *testing.T) {
	models := []registry.ModelConfig{
		{Name: "gemini-2.0-flash", Provider: "gemini", UpstreamModel: "gemini-2.0-flash"},
		{Name: "qwen-embedding", Provider: "qwen", UpstreamModel: "text-embedding-v3", Kind: registry.KindEmbedding},
	}
	var buf bytes.Buffer
	if err := printModels(&buf, models, func(name string) bool { return name == "gemini" }); err != nil {
		t.Fatal(err)
	}

	lines := strings.Split(strings.TrimSpace(buf.String()), "\n")
	if len(lines) != 3 {
		t.Fatalf("got %d lines, want header + 2:\n%s", len(lines), buf.String())
	}
	if !strings.Contains(lines[1], "chat") || !strings.Contains(lines[1], "available") {
		t.Errorf("chat line = %q", lines[1])
	}
	if !strings.Contains(lines[2], "embedding") || !strings.Contains(lines[2], "unavailable") {
		t.Errorf("embedding line = %q", lines[2])
	}
}

func TestLoadDotEnv(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "test.env")
	if err := os.WriteFile(path, []byte("OLLABRIDGE_TEST_DOTENV=from-file\n"), 0o600); err != nil {
		t.Fatal(err)
	}
	t.Setenv("OLLABRIDGE_TEST_DOTENV", "")
	os.Unsetenv("OLLABRIDGE_TEST_DOTENV")

	if err := loadDotEnv(path); err != nil {
		t.Fatalf("loadDotEnv() error: %v", err)
	}
	if got := os.Getenv("OLLABRIDGE_TEST_DOTENV"); got != "from-file" {
		t.Errorf("OLLABRIDGE_TEST_DOTENV = %q", got)
	}

	if err := loadDotEnv(filepath.Join(dir, "missing.env")); err == nil {
		t.Error("expected error for a missing explicit env file")
	}

	t.Chdir(dir)
	if err := loadDotEnv(".env"); err != nil {
		t.Errorf("missing default .env should be ignored, got %v", err)
	}
}

func TestVersionCommand(t *testing.T) {
	var buf bytes.Buffer
	versionCmd.SetOut(&buf)
	versionCmd.Run(versionCmd, nil)

	if !strings.Contains(buf.String(), "ollabridge "+Version) {
		t.Errorf("version output = %q", buf.String())
	}
}

func TestCommandsRegistered(t *testing.T) {
	want := map[string]bool{"serve": false, "models": false, "version": false}
	for _, c := range rootCmd.Commands() {
		if _, ok := want[c.Name()]; ok {
			want[c.Name()] = true
		}
	}
	for name, found := range want {
		if !found {
			t.Errorf("command %q not registered", name)
		}
	}
	if rootCmd.RunE == nil {
		t.Error("root command should serve by default")
	}
}
