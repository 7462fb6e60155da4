package server

import (
	"bytes"
	"context"
	"encoding/json"
	"log/slog"
	"net"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/ziadkadry99/pagekit/internal/db"
)

func newTestServer(t *testing.T, cfg Config) *Server {
	t.Helper()
	database, err := db.OpenMemory()
	if err != nil {
		t.Fatalf("OpenMemory: %v", err)
	}
	t.Cleanup(func() { database.Close() })
	return New(cfg, database, nil)
}

func TestHealthCheck(t *testing.T) {
	srv := newTestServer(t, Config{Port: 0})

	req := httptest.NewRequest("GET", "/healthz", nil)
	w := httptest.NewRecorder()
	srv.Router().ServeHTTP(w, req)

	if w.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", w.Code)
	}

	var body map[string]string
	if err := json.Unmarshal(w.Body.Bytes(), &body); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if body["status"] != "ok" {
		t.Errorf("expected status 'ok', got %q", body["status"])
	}
}

func TestHealthCheckDatabaseDown(t *testing.T) {
	database, err := db.OpenMemory()
	if err != nil {
		t.Fatal(err)
	}
	srv := New(Config{}, database, nil)
	database.Close()

	w := httptest.NewRecorder()
	srv.Router().ServeHTTP(w, httptest.NewRequest("GET", "/healthz", nil))
	if w.Code != http.StatusServiceUnavailable {
		t.Fatalf("expected 503, got %d", w.Code)
	}
	if !strings.Contains(w.Body.String(), "unavailable") {
		t.Errorf("body = %s", w.Body.String())
	}
}

func TestCORSHeaders(t *testing.T) {
	tests := []struct {
		name   string
		cfg    Config
		origin string
		allow  bool
	}{
		{"allow all", Config{AllowAll: true}, "http://example.com", true},
		{"localhost default", Config{}, "http://localhost:3000", true},
		{"foreign default", Config{}, "http://example.com", false},
		{"configured", Config{AllowedOrigins: []string{"https://gratipay.com"}}, "https://gratipay.com", true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			srv := newTestServer(t, tt.cfg)
			req := httptest.NewRequest("OPTIONS", "/healthz", nil)
			req.Header.Set("Origin", tt.origin)
			req.Header.Set("Access-Control-Request-Method", "POST")
			req.Header.Set("Access-Control-Request-Headers", "X-CSRF-TOKEN")
			w := httptest.NewRecorder()
			srv.Router().ServeHTTP(w, req)

			got := w.Header().Get("Access-Control-Allow-Origin") != ""
			if got != tt.allow {
				t.Errorf("Allow-Origin present = %v, want %v", got, tt.allow)
			}
		})
	}
}

func TestRequestLogging(t *testing.T) {
	database, err := db.OpenMemory()
	if err != nil {
		t.Fatal(err)
	}
	defer database.Close()
	var buf bytes.Buffer
	srv := New(Config{}, database, slog.New(slog.NewTextHandler(&buf, nil)))

	srv.Router().ServeHTTP(httptest.NewRecorder(), httptest.NewRequest("GET", "/healthz", nil))
	if !strings.Contains(buf.String(), "/healthz") {
		t.Errorf("request not logged: %q", buf.String())
	}
}

func TestServeAndShutdown(t *testing.T) {
	srv := newTestServer(t, Config{})
	hookRan := false
	srv.OnShutdown(func() { hookRan = true })

	ln, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		t.Fatal(err)
	}
	done := make(chan error, 1)
	go func() { done <- srv.Serve(ln) }()

	url := "http://" + ln.Addr().String() + "/healthz"
	var resp *http.Response
	for i := 0; i < 50; i++ {
		resp, err = http.Get(url)
		if err == nil {
			break
		}
		time.Sleep(10 * time.Millisecond)
	}
	if err != nil {
		t.Fatalf("GET: %v", err)
	}
	resp.Body.Close()

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := srv.Shutdown(ctx); err != nil {
		t.Fatalf("Shutdown: %v", err)
	}
	if err := <-done; err != nil {
		t.Errorf("Serve: %v", err)
	}
	if !hookRan {
		t.Error("shutdown hook should run")
	}
}

func TestSiteDir(t *testing.T) {
	dir := t.TempDir()
	if err := os.WriteFile(filepath.Join(dir, "index.html"), []byte("<h1>Docs</h1>"), 0o644); err != nil {
		t.Fatal(err)
	}
	srv := newTestServer(t, Config{SiteDir: dir})

	tests := []struct {
		path string
		code int
		body string
	}{
		{"/", http.StatusOK, "<h1>Docs</h1>"},
		{"/healthz", http.StatusOK, `{"status":"ok"}`},
		{"/missing.html", http.StatusNotFound, ""},
	}
	for _, tt := range tests {
		w := httptest.NewRecorder()
		srv.Router().ServeHTTP(w, httptest.NewRequest("GET", tt.path, nil))
		if w.Code != tt.code {
			t.Errorf("GET %s = %d, want %d", tt.path, w.Code, tt.code)
		}
		if tt.body != "" && !strings.Contains(w.Body.String(), tt.body) {
			t.Errorf("GET %s body = %q", tt.path, w.Body.String())
		}
	}
}
