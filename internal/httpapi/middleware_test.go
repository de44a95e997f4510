package httpapi

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/shineum/mail-relay-lite/internal/logging"
	"github.com/shineum/mail-relay-lite/internal/relay"
)

type panicSubmitter struct{}

func (panicSubmitter) Submit(context.Context, relay.Request) relay.Result {
	panic("boom")
}

func TestRecoverer_ReturnsInternalServerError(t *testing.T) {
	t.Parallel()

	h := NewHandler(Config{Relay: panicSubmitter{}})
	rec := doRequest(t, h, http.MethodPost, "/api/send-codelist-email",
		`{"to":"a@example.com","subject":"s","html":"h"}`)

	if rec.Code != http.StatusInternalServerError {
		t.Fatalf("status: got %d, want %d", rec.Code, http.StatusInternalServerError)
	}
	if got := strings.TrimSpace(rec.Body.String()); got != `{"ok":false,"error":"Internal server error"}` {
		t.Errorf("body: got %q", got)
	}
	if rec.Header().Get(HeaderRequestID) == "" {
		t.Error("expected request ID on panic response")
	}
}

func TestBodyLimit_DeclaredLength(t *testing.T) {
	t.Parallel()

	fake := &fakeProvider{status: http.StatusAccepted}
	h := NewHandler(Config{
		Relay:       relay.New(relay.Options{Provider: fake}),
		MaxBodySize: 16,
	})

	rec := doRequest(t, h, http.MethodPost, "/api/send-codelist-email",
		`{"to":"a@example.com","subject":"s","html":"h"}`)

	if rec.Code != http.StatusRequestEntityTooLarge {
		t.Fatalf("status: got %d, want %d", rec.Code, http.StatusRequestEntityTooLarge)
	}
	if resp := decodeBody(t, rec); resp["error"] != bodyTooLargeMessage {
		t.Errorf("error: got %v, want %q", resp["error"], bodyTooLargeMessage)
	}
	if fake.calls.Load() != 0 {
		t.Errorf("provider calls: got %d, want 0", fake.calls.Load())
	}
}

func TestBodyLimit_StreamedBody(t *testing.T) {
	t.Parallel()

	fake := &fakeProvider{status: http.StatusAccepted}
	h := NewHandler(Config{
		Relay:       relay.New(relay.Options{Provider: fake}),
		MaxBodySize: 16,
	})

	req := httptest.NewRequest(http.MethodPost, "/api/send-codelist-email",
		strings.NewReader(`{"to":"a@example.com","subject":"s","html":"h"}`))
	req.ContentLength = -1
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)

	if rec.Code != http.StatusRequestEntityTooLarge {
		t.Fatalf("status: got %d, want %d", rec.Code, http.StatusRequestEntityTooLarge)
	}
	if fake.calls.Load() != 0 {
		t.Errorf("provider calls: got %d, want 0", fake.calls.Load())
	}
}

func TestRequestID_Generated(t *testing.T) {
	t.Parallel()

	rec := doRequest(t, newTestHandler(&fakeProvider{}), http.MethodGet, "/api/health", "")

	if got := rec.Header().Get(HeaderRequestID); len(got) != 36 {
		t.Errorf("%s: got %q, want a UUID", HeaderRequestID, got)
	}
}

func TestRequestID_Propagated(t *testing.T) {
	t.Parallel()

	var seen string
	h := Chain(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		seen = logging.RequestID(r.Context())
	}), middlewareRequestID)

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.Header.Set(HeaderRequestID, "  abc-123  ")
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)

	if seen != "abc-123" {
		t.Errorf("context request ID: got %q, want %q", seen, "abc-123")
	}
	if got := rec.Header().Get(HeaderRequestID); got != "abc-123" {
		t.Errorf("response header: got %q, want %q", got, "abc-123")
	}
}

func TestNormalizeRequestID(t *testing.T) {
	t.Parallel()

	if got := normalizeRequestID("bad\r\nid"); got != "" {
		t.Errorf("header injection: got %q, want empty", got)
	}
	if got := normalizeRequestID(strings.Repeat("x", 200)); len(got) != 128 {
		t.Errorf("length: got %d, want 128", len(got))
	}
}

func TestCORS_Preflight(t *testing.T) {
	t.Parallel()

	h := newTestHandler(&fakeProvider{})

	req := httptest.NewRequest(http.MethodOptions, "/api/send-codelist-email", nil)
	req.Header.Set("Origin", "https://dashboard.example.com")
	req.Header.Set("Access-Control-Request-Method", http.MethodPost)
	req.Header.Set("Access-Control-Request-Headers", "Content-Type")
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("status: got %d, want %d", rec.Code, http.StatusOK)
	}
	if rec.Body.Len() != 0 {
		t.Errorf("body: got %q, want empty", rec.Body.String())
	}
	if got := rec.Header().Get("Access-Control-Allow-Origin"); got == "" {
		t.Error("expected Access-Control-Allow-Origin header")
	}
}

func TestCORS_SimpleRequest(t *testing.T) {
	t.Parallel()

	h := newTestHandler(&fakeProvider{})

	req := httptest.NewRequest(http.MethodGet, "/api/health", nil)
	req.Header.Set("Origin", "https://anywhere.example.org")
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)

	if got := rec.Header().Get("Access-Control-Allow-Origin"); got != "*" {
		t.Errorf("Access-Control-Allow-Origin: got %q, want %q", got, "*")
	}
}

func TestCORS_PreflightAnyRequestHeaders(t *testing.T) {
	t.Parallel()

	h := newTestHandler(&fakeProvider{})

	req := httptest.NewRequest(http.MethodOptions, "/api/send-codelist-email", nil)
	req.Header.Set("Origin", "https://dashboard.example.com")
	req.Header.Set("Access-Control-Request-Method", http.MethodPost)
	req.Header.Set("Access-Control-Request-Headers", "Authorization, X-Custom")
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("status: got %d, want %d", rec.Code, http.StatusOK)
	}
	if got := rec.Header().Get("Access-Control-Allow-Origin"); got != "*" {
		t.Errorf("Access-Control-Allow-Origin: got %q, want %q", got, "*")
	}
	if got := rec.Header().Get("Access-Control-Allow-Headers"); got == "" {
		t.Error("expected Access-Control-Allow-Headers header")
	}
}

func TestCORS_PreflightCarriesRequestID(t *testing.T) {
	t.Parallel()

	h := newTestHandler(&fakeProvider{})

	req := httptest.NewRequest(http.MethodOptions, "/api/send-codelist-email", nil)
	req.Header.Set("Origin", "https://dashboard.example.com")
	req.Header.Set("Access-Control-Request-Method", http.MethodPost)
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)

	if got := rec.Header().Get(HeaderRequestID); got == "" {
		t.Error("expected X-Request-ID on preflight response")
	}

	req = httptest.NewRequest(http.MethodOptions, "/api/send-codelist-email", nil)
	req.Header.Set("Origin", "https://dashboard.example.com")
	req.Header.Set("Access-Control-Request-Method", http.MethodPost)
	req.Header.Set(HeaderRequestID, "preflight-123")
	rec = httptest.NewRecorder()
	h.ServeHTTP(rec, req)

	if got := rec.Header().Get(HeaderRequestID); got != "preflight-123" {
		t.Errorf("X-Request-ID: got %q, want %q", got, "preflight-123")
	}
}
