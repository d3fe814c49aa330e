package server

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"runtime"
	"testing"
	"time"

	"github.com/gin-gonic/gin"

	mng "github.com/devhatch/devhatch/internal/manager"
	"github.com/devhatch/devhatch/internal/prober"
)

type emptyProber struct{}

func (emptyProber) FindByPath(context.Context, []string, string) ([]prober.Info, error) {
	return nil, nil
}
func (emptyProber) Kill(context.Context, int32) error { return nil }

func setupRouter(t *testing.T, base string) (http.Handler, *mng.Manager) {
	t.Helper()
	gin.SetMode(gin.TestMode)
	mgr := mng.New(mng.Config{
		Logger:      slog.New(slog.NewTextHandler(io.Discard, nil)),
		Prober:      emptyProber{},
		StopGrace:   2 * time.Second,
		OpenBrowser: func(string) error { return nil },
	})
	t.Cleanup(func() { mgr.Shutdown(context.Background()) })
	return NewRouter(mgr, base).Handler(), mgr
}

func doReq(t *testing.T, h http.Handler, method, path string, body any) *httptest.ResponseRecorder {
	t.Helper()
	var rdr io.Reader
	if body != nil {
		b, _ := json.Marshal(body)
		rdr = bytes.NewReader(b)
	}
	req := httptest.NewRequest(method, path, rdr)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	return rec
}

func TestStartRejectsBadRequests(t *testing.T) {
	h, _ := setupRouter(t, "/api")
	cases := []startRequest{
		{Command: "npm run dev"},                      // missing key
		{Key: "relative/path", Command: "npm run dev"}, // not absolute
		{Key: "/p/../etc", Command: "npm run dev"},     // traversal
		{Key: "/p/web"},                                // missing command
	}
	for i, req := range cases {
		rec := doReq(t, h, http.MethodPost, "/api/servers/start", req)
		if rec.Code != http.StatusBadRequest {
			t.Fatalf("case %d: expected 400, got %d: %s", i, rec.Code, rec.Body.String())
		}
	}
}

func TestStopRequiresKey(t *testing.T) {
	h, _ := setupRouter(t, "")
	rec := doReq(t, h, http.MethodPost, "/servers/stop", nil)
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d", rec.Code)
	}
}

func TestStopUnknownKey(t *testing.T) {
	h, _ := setupRouter(t, "/api")
	rec := doReq(t, h, http.MethodPost, "/api/servers/stop?key=/p/nothing", nil)
	if rec.Code != http.StatusNotFound {
		t.Fatalf("expected 404, got %d: %s", rec.Code, rec.Body.String())
	}
	var res mng.Result
	if err := json.Unmarshal(rec.Body.Bytes(), &res); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if res.Success || res.Error == "" {
		t.Fatalf("result = %+v", res)
	}
}

func TestServerLifecycleOverHTTP(t *testing.T) {
	if runtime.GOOS == "windows" {
		t.Skip("unix-only test")
	}
	h, _ := setupRouter(t, "/api")
	dir := t.TempDir()

	rec := doReq(t, h, http.MethodPost, "/api/servers/start", startRequest{
		Key:     dir,
		Command: "sleep 30",
	})
	if rec.Code != http.StatusOK {
		t.Fatalf("start: %d %s", rec.Code, rec.Body.String())
	}

	// Duplicate start conflicts.
	rec = doReq(t, h, http.MethodPost, "/api/servers/start", startRequest{Key: dir, Command: "sleep 30"})
	if rec.Code != http.StatusConflict {
		t.Fatalf("duplicate start: %d", rec.Code)
	}

	rec = doReq(t, h, http.MethodGet, "/api/servers", nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("list: %d", rec.Code)
	}
	var sts []mng.Status
	if err := json.Unmarshal(rec.Body.Bytes(), &sts); err != nil {
		t.Fatalf("decode list: %v", err)
	}
	if len(sts) != 1 || sts[0].Key != dir || !sts[0].Running {
		t.Fatalf("statuses = %+v", sts)
	}

	rec = doReq(t, h, http.MethodGet, "/api/servers/url?key="+dir, nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("url: %d", rec.Code)
	}
	var ur urlResp
	if err := json.Unmarshal(rec.Body.Bytes(), &ur); err != nil {
		t.Fatalf("decode url: %v", err)
	}
	if !ur.Running || ur.URL != "" {
		t.Fatalf("url resp = %+v", ur)
	}

	rec = doReq(t, h, http.MethodPost, "/api/servers/stop?key="+dir, nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("stop: %d %s", rec.Code, rec.Body.String())
	}
}

func TestHealthz(t *testing.T) {
	h, _ := setupRouter(t, "/api")
	rec := doReq(t, h, http.MethodGet, "/healthz", nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("healthz: %d", rec.Code)
	}
}

func TestHistoryWithoutStore(t *testing.T) {
	h, _ := setupRouter(t, "/api")
	rec := doReq(t, h, http.MethodGet, "/api/history", nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("history: %d", rec.Code)
	}
	rec = doReq(t, h, http.MethodGet, "/api/history?limit=bogus", nil)
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("bad limit: %d", rec.Code)
	}
}

func TestSanitizeBase(t *testing.T) {
	cases := map[string]string{
		"":      "",
		"/":     "",
		"api":   "/api",
		"/api/": "/api",
		" /x ":  "/x",
	}
	for in, want := range cases {
		if got := sanitizeBase(in); got != want {
			t.Fatalf("sanitizeBase(%q) = %q, want %q", in, got, want)
		}
	}
}
