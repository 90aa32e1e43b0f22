package server

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"reflect"
	"testing"
	"time"

	"github.com/ayusman/mukha/internal/gallery"
)

// stubGallery serves a fixed label list.
type stubGallery struct {
	labels  []string
	reloads int
}

func (g *stubGallery) Labels() []string              { return g.labels }
func (g *stubGallery) Skipped() []gallery.Diagnostic { return nil }
func (g *stubGallery) Reload() error                 { g.reloads++; return nil }

func get(t *testing.T, h http.Handler, path string) *httptest.ResponseRecorder {
	t.Helper()
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, path, nil))
	return rec
}

func TestServer_Health(t *testing.T) {
	s := New(Config{})

	rec := get(t, s, "/api/health")
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want %d", rec.Code, http.StatusOK)
	}
	if ct := rec.Header().Get("Content-Type"); ct != "application/json" {
		t.Errorf("Content-Type = %s, want application/json", ct)
	}

	var health struct {
		Status string `json:"status"`
		Uptime string `json:"uptime"`
	}
	if err := json.NewDecoder(rec.Body).Decode(&health); err != nil {
		t.Fatalf("decode error = %v", err)
	}
	if health.Status != "ok" || health.Uptime == "" {
		t.Errorf("health = %+v, want status ok with uptime", health)
	}

	post := httptest.NewRecorder()
	s.ServeHTTP(post, httptest.NewRequest(http.MethodPost, "/api/health", nil))
	if post.Code != http.StatusMethodNotAllowed {
		t.Errorf("POST status = %d, want %d", post.Code, http.StatusMethodNotAllowed)
	}
}

func TestServer_GalleryOnlyRoutes(t *testing.T) {
	g := &stubGallery{labels: []string{"alice", "bob"}}
	s := New(Config{Gallery: g})

	rec := get(t, s, "/api/faces")
	if rec.Code != http.StatusOK {
		t.Fatalf("GET /api/faces status = %d, want %d", rec.Code, http.StatusOK)
	}
	var list struct {
		Labels []string `json:"labels"`
		Count  int      `json:"count"`
	}
	if err := json.NewDecoder(rec.Body).Decode(&list); err != nil {
		t.Fatalf("decode error = %v", err)
	}
	if !reflect.DeepEqual(list.Labels, g.labels) || list.Count != 2 {
		t.Errorf("faces = %+v, want %v", list, g.labels)
	}

	reload := httptest.NewRecorder()
	s.ServeHTTP(reload, httptest.NewRequest(http.MethodPost, "/api/faces/reload", nil))
	if reload.Code != http.StatusOK || g.reloads != 1 {
		t.Errorf("reload status = %d reloads = %d, want 200 and 1", reload.Code, g.reloads)
	}

	// Without an App there is no camera to enroll from or stream.
	enroll := httptest.NewRecorder()
	s.ServeHTTP(enroll, httptest.NewRequest(http.MethodPost, "/api/faces", nil))
	if enroll.Code != http.StatusServiceUnavailable {
		t.Errorf("enroll status = %d, want %d", enroll.Code, http.StatusServiceUnavailable)
	}

	for _, path := range []string{"/api/status", "/api/stream", "/api/snapshot", "/api/recognitions", "/"} {
		if rec := get(t, s, path); rec.Code != http.StatusNotFound {
			t.Errorf("GET %s status = %d, want %d", path, rec.Code, http.StatusNotFound)
		}
	}
}

func TestServer_AppRoutes(t *testing.T) {
	a, _ := newTestApp(t)
	s := New(Config{App: a})

	if rec := get(t, s, "/api/snapshot"); rec.Code != http.StatusServiceUnavailable {
		t.Errorf("snapshot before first frame status = %d, want %d", rec.Code, http.StatusServiceUnavailable)
	}

	// The gallery comes from the App when none is given.
	rec := get(t, s, "/api/faces")
	if rec.Code != http.StatusOK {
		t.Errorf("GET /api/faces status = %d, want %d", rec.Code, http.StatusOK)
	}

	rec = get(t, s, "/api/status")
	if rec.Code != http.StatusOK {
		t.Fatalf("GET /api/status status = %d, want %d", rec.Code, http.StatusOK)
	}
	var status struct {
		Enabled bool `json:"enabled"`
		Running bool `json:"running"`
	}
	json.NewDecoder(rec.Body).Decode(&status)
	if !status.Enabled || status.Running {
		t.Errorf("status = %+v, want enabled and not running", status)
	}
}

func TestServer_StaticFiles(t *testing.T) {
	dir := t.TempDir()
	page := "<html><body>mukha</body></html>"
	if err := os.WriteFile(filepath.Join(dir, "index.html"), []byte(page), 0644); err != nil {
		t.Fatalf("WriteFile() error = %v", err)
	}

	s := New(Config{StaticDir: dir})

	tests := []struct {
		path string
		code int
		body string
	}{
		{path: "/", code: http.StatusOK, body: page},
		{path: "/missing.css", code: http.StatusNotFound},
		{path: "/api/unknown", code: http.StatusNotFound},
	}

	for _, tt := range tests {
		t.Run(tt.path, func(t *testing.T) {
			rec := get(t, s, tt.path)
			if rec.Code != tt.code {
				t.Errorf("status = %d, want %d", rec.Code, tt.code)
			}
			if tt.body != "" && rec.Body.String() != tt.body {
				t.Errorf("body = %q, want %q", rec.Body.String(), tt.body)
			}
		})
	}
}

func TestServer_RunStopsOnCancel(t *testing.T) {
	s := New(Config{})

	ctx, cancel := context.WithCancel(context.Background())
	errCh := make(chan error, 1)
	go func() {
		errCh <- s.Run(ctx, "127.0.0.1:0")
	}()

	time.Sleep(50 * time.Millisecond)
	cancel()

	select {
	case err := <-errCh:
		if err != nil {
			t.Errorf("Run() error = %v", err)
		}
	case <-time.After(ShutdownTimeout + time.Second):
		t.Fatal("Run() did not return after cancel")
	}
}
