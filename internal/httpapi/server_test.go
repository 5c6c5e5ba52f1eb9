package httpapi

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"go.uber.org/zap"

	apimw "github.com/hamed0406/dlprobe/internal/httpapi/middleware"
	"github.com/hamed0406/dlprobe/internal/index"
	"github.com/hamed0406/dlprobe/internal/render"
	"github.com/hamed0406/dlprobe/internal/repo/memory"
)

func newTestServer(t *testing.T, origins []string) http.Handler {
	t.Helper()
	rnd, err := render.New("")
	if err != nil {
		t.Fatal(err)
	}
	svc := index.New(zap.NewNop(), memory.New(), fakeProber{}, 1)
	return NewServer(zap.NewNop(), svc, rnd).Router(apimw.Keys{}, origins, 0, 0, 0, 0)
}

func TestHealthz(t *testing.T) {
	rec := httptest.NewRecorder()
	newTestServer(t, nil).ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/healthz", nil))
	if rec.Code != http.StatusOK || rec.Body.String() != "ok" {
		t.Fatalf("healthz: %d %q", rec.Code, rec.Body.String())
	}
}

func TestCORS_AllowedOrigins(t *testing.T) {
	h := newTestServer(t, []string{"https://epics.test"})

	preflight := func(origin string) *httptest.ResponseRecorder {
		req := httptest.NewRequest(http.MethodOptions, "/api/downloads", nil)
		req.Header.Set("Origin", origin)
		req.Header.Set("Access-Control-Request-Method", http.MethodGet)
		rec := httptest.NewRecorder()
		h.ServeHTTP(rec, req)
		return rec
	}

	if got := preflight("https://epics.test").Header().Get("Access-Control-Allow-Origin"); got != "https://epics.test" {
		t.Fatalf("allowed origin not echoed: %q", got)
	}
	if got := preflight("https://evil.test").Header().Get("Access-Control-Allow-Origin"); got != "" {
		t.Fatalf("foreign origin allowed: %q", got)
	}
}

func TestAddDownload_BadJSON(t *testing.T) {
	req := httptest.NewRequest(http.MethodPost, "/api/downloads", nil)
	rec := httptest.NewRecorder()
	newTestServer(t, nil).ServeHTTP(rec, req)
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("want 400, got %d", rec.Code)
	}
}
