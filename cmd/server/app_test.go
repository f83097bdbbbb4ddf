package main

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/tbourn/go-contact-intake/internal/config"
	"github.com/tbourn/go-contact-intake/internal/domain"
)

func baseConfig(t *testing.T) config.Config {
	t.Helper()
	dir := t.TempDir()
	return config.Config{
		Port:         "0",
		GinMode:      "test",
		APIBasePath:  "/api",
		MaxBodyBytes: 1 << 20,
		Backend:      config.BackendFile,
		File:         config.FileConfig{Path: filepath.Join(dir, "submissions.jsonl")},
		DBPath:       filepath.Join(dir, "contact.db"),
		RateRPS:      100,
		RateBurst:    100,
		OTEL:         config.OTELConfig{ServiceName: "test"},
	}
}

func post(a *app, body, key string) *httptest.ResponseRecorder {
	return postWithHeaders(a, body, map[string]string{"Idempotency-Key": key})
}

func postWithHeaders(a *app, body string, hdr map[string]string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(http.MethodPost, "/api/contact", strings.NewReader(body))
	for k, v := range hdr {
		if v != "" {
			req.Header.Set(k, v)
		}
	}
	w := httptest.NewRecorder()
	a.engine.ServeHTTP(w, req)
	return w
}

func TestNewApp_FileBackendWithoutLedger(t *testing.T) {
	cfg := baseConfig(t)
	a, err := newApp(context.Background(), cfg)
	if err != nil {
		t.Fatalf("newApp: %v", err)
	}
	defer a.close(context.Background())

	if a.db != nil {
		t.Fatalf("no sqlite handle expected when neither sqlite nor idempotency is used")
	}
	if w := post(a, `{"name":"Ann","email":"ann@x.com","message":"hi"}`, ""); w.Code != http.StatusOK {
		t.Fatalf("submit = %d %s", w.Code, w.Body.String())
	}
	if _, err := os.Stat(cfg.File.Path); err != nil {
		t.Fatalf("submissions file missing: %v", err)
	}
	if _, err := os.Stat(cfg.DBPath); !os.IsNotExist(err) {
		t.Fatalf("db file should not be created, stat err = %v", err)
	}
}

func TestNewApp_IdempotentReplay(t *testing.T) {
	cfg := baseConfig(t)
	cfg.IdempotencyEnabled = true
	cfg.IdempotencyTTL = time.Hour

	a, err := newApp(context.Background(), cfg)
	if err != nil {
		t.Fatalf("newApp: %v", err)
	}
	defer a.close(context.Background())

	body := `{"name":"Ann","email":"ann@x.com","message":"hi"}`
	first := post(a, body, "key-1")
	second := post(a, body, "key-1")
	if first.Code != http.StatusOK || second.Code != http.StatusOK {
		t.Fatalf("codes %d %d", first.Code, second.Code)
	}
	if first.Body.String() != second.Body.String() {
		t.Fatalf("replay returned a different body: %s vs %s", first.Body.String(), second.Body.String())
	}
	if second.Header().Get("Idempotent-Replayed") != "true" {
		t.Fatalf("replay header missing")
	}

	raw, err := os.ReadFile(cfg.File.Path)
	if err != nil {
		t.Fatalf("read: %v", err)
	}
	if n := strings.Count(string(raw), "\n"); n != 1 {
		t.Fatalf("expected exactly one stored line, got %d", n)
	}
}

func TestNewApp_SQLiteBackend(t *testing.T) {
	cfg := baseConfig(t)
	cfg.Backend = config.BackendSQLite

	a, err := newApp(context.Background(), cfg)
	if err != nil {
		t.Fatalf("newApp: %v", err)
	}
	if a.backend.Name() != config.BackendSQLite || a.db == nil {
		t.Fatalf("sqlite backend not wired")
	}
	if w := post(a, `{"name":"Ann","email":"ann@x.com","message":"hi"}`, ""); w.Code != http.StatusOK {
		t.Fatalf("submit = %d %s", w.Code, w.Body.String())
	}
	if err := a.close(context.Background()); err != nil {
		t.Fatalf("close: %v", err)
	}
	if a.db != nil {
		t.Fatalf("db handle should be released")
	}
}

func TestServer_UsesConfig(t *testing.T) {
	cfg := baseConfig(t)
	cfg.Port = "5055"
	cfg.MaxHeaderBytes = 4096
	a, err := newApp(context.Background(), cfg)
	if err != nil {
		t.Fatalf("newApp: %v", err)
	}
	defer a.close(context.Background())

	srv := a.server(cfg)
	if srv.Addr != ":5055" || srv.MaxHeaderBytes != 4096 || srv.Handler == nil {
		t.Fatalf("server misconfigured: %+v", srv)
	}
}

func TestNewApp_ForwardedForIgnoredWithoutTrustedProxies(t *testing.T) {
	cfg := baseConfig(t)
	cfg.RateRPS = 0.0001
	cfg.RateBurst = 1

	a, err := newApp(context.Background(), cfg)
	if err != nil {
		t.Fatalf("newApp: %v", err)
	}
	defer a.close(context.Background())

	body := `{"name":"Ann","email":"ann@x.com","message":"hi"}`
	if w := postWithHeaders(a, body, map[string]string{"X-Forwarded-For": "10.0.0.1"}); w.Code != http.StatusOK {
		t.Fatalf("first = %d %s", w.Code, w.Body.String())
	}
	for _, ip := range []string{"10.0.0.2", "10.0.0.3"} {
		w := postWithHeaders(a, body, map[string]string{"X-Forwarded-For": ip})
		if w.Code != http.StatusTooManyRequests {
			t.Fatalf("spoofed %s should share the bucket, got %d", ip, w.Code)
		}
	}

	raw, err := os.ReadFile(cfg.File.Path)
	if err != nil {
		t.Fatalf("read: %v", err)
	}
	var s domain.Submission
	if err := json.Unmarshal(raw, &s); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if s.IP != "192.0.2.1" {
		t.Fatalf("stored ip = %q, want the peer address", s.IP)
	}
}

func TestNewApp_TrustedProxyForwardsClientIP(t *testing.T) {
	cfg := baseConfig(t)
	cfg.TrustedProxies = []string{"192.0.2.0/24"}

	a, err := newApp(context.Background(), cfg)
	if err != nil {
		t.Fatalf("newApp: %v", err)
	}
	defer a.close(context.Background())

	w := postWithHeaders(a, `{"name":"Ann","email":"ann@x.com","message":"hi"}`, map[string]string{"X-Forwarded-For": "203.0.113.7"})
	if w.Code != http.StatusOK {
		t.Fatalf("submit = %d %s", w.Code, w.Body.String())
	}
	raw, err := os.ReadFile(cfg.File.Path)
	if err != nil {
		t.Fatalf("read: %v", err)
	}
	if !strings.Contains(string(raw), `"ip":"203.0.113.7"`) {
		t.Fatalf("forwarded client ip not stored: %s", raw)
	}
}

func TestNewApp_RejectsBadTrustedProxy(t *testing.T) {
	cfg := baseConfig(t)
	cfg.TrustedProxies = []string{"not-an-ip"}
	if _, err := newApp(context.Background(), cfg); err == nil {
		t.Fatalf("invalid TRUSTED_PROXIES entry should fail startup")
	}
}
