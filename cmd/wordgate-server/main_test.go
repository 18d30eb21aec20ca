package main

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/wordgate/wordgate"
	"github.com/wordgate/wordgate/store"
)

type captureDeliverer struct {
	mu   sync.Mutex
	last string
}

func (d *captureDeliverer) Deliver(_ context.Context, _, code string, _ time.Duration) error {
	d.mu.Lock()
	d.last = code
	d.mu.Unlock()
	return nil
}

func newTestRouter(t *testing.T) (*gin.Engine, *captureDeliverer) {
	t.Helper()
	gin.SetMode(gin.TestMode)

	cfg := wordgate.DefaultConfig()
	cfg.Token.Secret = []byte("test-secret-at-least-32-bytes-long!!")

	deliverer := &captureDeliverer{}
	engine, err := wordgate.New().
		WithConfig(cfg).
		WithCodeStore(store.NewMemoryCodes(cfg.RateLimit.Window)).
		WithUserStore(store.NewMemoryUsers()).
		WithDeliverer(deliverer).
		Build()
	if err != nil {
		t.Fatalf("Build: %v", err)
	}
	t.Cleanup(engine.Close)

	return newRouter(engine), deliverer
}

func doJSON(t *testing.T, router *gin.Engine, method, path string, body any, header http.Header) (*httptest.ResponseRecorder, map[string]any) {
	t.Helper()

	var buf bytes.Buffer
	if body != nil {
		if err := json.NewEncoder(&buf).Encode(body); err != nil {
			t.Fatalf("encode: %v", err)
		}
	}

	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	for k, vs := range header {
		for _, v := range vs {
			req.Header.Add(k, v)
		}
	}

	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	decoded := map[string]any{}
	_ = json.Unmarshal(rec.Body.Bytes(), &decoded)
	return rec, decoded
}

func TestAuthFlow(t *testing.T) {
	router, deliverer := newTestRouter(t)

	rec, body := doJSON(t, router, http.MethodPost, "/auth/send-code", map[string]any{"email": "a@x.com"}, nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("send-code status = %d, body %s", rec.Code, rec.Body)
	}
	if body["ttl_seconds"].(float64) != 600 {
		t.Fatalf("ttl_seconds = %v, want 600", body["ttl_seconds"])
	}

	// Wrong code is a 400.
	rec, _ = doJSON(t, router, http.MethodPost, "/auth/verify", map[string]any{"email": "a@x.com", "code": "wrong wrong"}, nil)
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("verify wrong code status = %d", rec.Code)
	}

	// The plain verify route does not provision identities.
	rec, _ = doJSON(t, router, http.MethodPost, "/auth/send-code", map[string]any{"email": "b@x.com"}, nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("send-code status = %d", rec.Code)
	}
	rec, _ = doJSON(t, router, http.MethodPost, "/auth/verify", map[string]any{"email": "b@x.com", "code": deliverer.last}, nil)
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("verify unknown user status = %d, want 400", rec.Code)
	}

	// register-and-verify does, and returns a usable bearer token.
	rec, _ = doJSON(t, router, http.MethodPost, "/auth/send-code", map[string]any{"email": "c@x.com"}, nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("send-code status = %d", rec.Code)
	}
	rec, body = doJSON(t, router, http.MethodPost, "/auth/register-and-verify", map[string]any{"email": "c@x.com", "code": deliverer.last}, nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("register-and-verify status = %d, body %s", rec.Code, rec.Body)
	}
	tok, _ := body["access_token"].(string)
	if tok == "" {
		t.Fatal("no access_token in response")
	}

	header := http.Header{"Authorization": {"Bearer " + tok}}
	rec, body = doJSON(t, router, http.MethodGet, "/auth/me", nil, header)
	if rec.Code != http.StatusOK {
		t.Fatalf("me status = %d", rec.Code)
	}
	if body["email"] != "c@x.com" {
		t.Fatalf("me email = %v", body["email"])
	}

	rec, _ = doJSON(t, router, http.MethodPost, "/auth/logout", nil, header)
	if rec.Code != http.StatusOK {
		t.Fatalf("logout status = %d", rec.Code)
	}
}

func TestAuthFlowRejections(t *testing.T) {
	router, _ := newTestRouter(t)

	rec, _ := doJSON(t, router, http.MethodPost, "/auth/send-code", map[string]any{}, nil)
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("send-code without email status = %d", rec.Code)
	}

	rec, _ = doJSON(t, router, http.MethodPost, "/auth/send-code", map[string]any{"email": "a@x.com"}, nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("send-code status = %d", rec.Code)
	}
	rec, _ = doJSON(t, router, http.MethodPost, "/auth/send-code", map[string]any{"email": "a@x.com"}, nil)
	if rec.Code != http.StatusTooManyRequests {
		t.Fatalf("rate-limited send-code status = %d, want 429", rec.Code)
	}

	rec, _ = doJSON(t, router, http.MethodGet, "/auth/me", nil, nil)
	if rec.Code != http.StatusUnauthorized {
		t.Fatalf("me without token status = %d, want 401", rec.Code)
	}

	header := http.Header{"Authorization": {"Bearer not-a-token"}}
	rec, _ = doJSON(t, router, http.MethodGet, "/auth/me", nil, header)
	if rec.Code != http.StatusUnauthorized {
		t.Fatalf("me with garbage token status = %d, want 401", rec.Code)
	}
}

func TestEngineConfigMapping(t *testing.T) {
	var cfg serverConfig
	cfg.Code.Words = 3
	cfg.Code.Separator = "-"
	cfg.Code.TTLMinutes = 5
	cfg.RateLimit.WindowSeconds = 30
	cfg.Token.Secret = "secret"
	cfg.Token.TTLDays = 1

	ec := engineConfig(&cfg)
	if ec.Code.WordCount != 3 || ec.Code.Separator != "-" {
		t.Fatalf("code config = %+v", ec.Code)
	}
	if ec.Code.TTL != 5*time.Minute {
		t.Fatalf("code TTL = %v", ec.Code.TTL)
	}
	if ec.RateLimit.Window != 30*time.Second {
		t.Fatalf("window = %v", ec.RateLimit.Window)
	}
	if ec.Token.TTL != 24*time.Hour {
		t.Fatalf("token TTL = %v", ec.Token.TTL)
	}

	// Unset fields keep the engine defaults.
	defaults := engineConfig(&serverConfig{})
	want := wordgate.DefaultConfig()
	if defaults.Code.WordCount != want.Code.WordCount || defaults.Code.TTL != want.Code.TTL {
		t.Fatalf("defaults not preserved: %+v", defaults.Code)
	}
}
