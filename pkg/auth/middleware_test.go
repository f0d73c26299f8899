package auth

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
)

func okHandler() http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	})
}

func TestMiddleware_BypassEndpoints(t *testing.T) {
	chain := &Chain{}
	handler := Middleware(chain, DefaultBypassEndpoints)(okHandler())

	for _, path := range []string{"/", "/api/version", "/healthz", "/metrics"} {
		req := httptest.NewRequest("GET", path, nil)
		rec := httptest.NewRecorder()
		handler.ServeHTTP(rec, req)

		if rec.Code != http.StatusOK {
			t.Errorf("bypass %s: status = %d, want 200", path, rec.Code)
		}
	}
}

func TestMiddleware_OptionsBypasses(t *testing.T) {
	chain := &Chain{}
	handler := Middleware(chain, nil)(okHandler())

	req := httptest.NewRequest("OPTIONS", "/api/chat", nil)
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Errorf("OPTIONS: status = %d, want 200", rec.Code)
	}
}

func TestMiddleware_NoAuth_Rejects(t *testing.T) {
	chain := &Chain{}
	handler := Middleware(chain, DefaultBypassEndpoints)(okHandler())

	for _, path := range []string{"/api/chat", "/api/tags", "/api/embeddings"} {
		req := httptest.NewRequest("POST", path, nil)
		rec := httptest.NewRecorder()
		handler.ServeHTTP(rec, req)

		if rec.Code != http.StatusUnauthorized {
			t.Errorf("%s: status = %d, want 401", path, rec.Code)
		}
		var body map[string]any
		if err := json.NewDecoder(rec.Body).Decode(&body); err != nil {
			t.Fatalf("%s: invalid JSON body: %v", path, err)
		}
		if body["error"] != MessageUnauthenticated {
			t.Errorf("%s: body = %v", path, body)
		}
	}
}

func TestMiddleware_ValidAuth_Passes(t *testing.T) {
	chain := &Chain{Authenticators: []Authenticator{yes("alice", GrantEmbeddings)}}

	handler := Middleware(chain, DefaultBypassEndpoints)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		id := IdentityFrom(r.Context())
		if id == nil || id.Subject != "alice" || id.Grant != GrantEmbeddings {
			t.Errorf("identity in context = %+v, want alice with embeddings grant", id)
		}
		w.WriteHeader(http.StatusOK)
	}))

	req := httptest.NewRequest("POST", "/api/chat", nil)
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Errorf("valid auth: status = %d, want 200", rec.Code)
	}
}

func TestMiddleware_EmptySubject(t *testing.T) {
	chain := &Chain{Authenticators: []Authenticator{yes("", GrantAll)}}
	handler := Middleware(chain, nil)(okHandler())

	req := httptest.NewRequest("POST", "/api/generate", nil)
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)

	if rec.Code != http.StatusInternalServerError {
		t.Errorf("empty subject: status = %d, want 500", rec.Code)
	}
}

func TestMiddleware_AnonymousWhenAllowed(t *testing.T) {
	chain := &Chain{AllowAnonymous: true}
	var got *Identity
	handler := Middleware(chain, nil)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		got = IdentityFrom(r.Context())
	}))

	handler.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest("POST", "/api/embed", nil))
	if got == nil || got.Subject != "anonymous" || got.Grant != GrantAll {
		t.Errorf("identity = %+v, want anonymous with all grants", got)
	}
}
