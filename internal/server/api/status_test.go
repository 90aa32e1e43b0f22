package api

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
)

type fakeController struct {
	enabled bool
	running bool
}

func (f *fakeController) IsEnabled() bool         { return f.enabled }
func (f *fakeController) SetEnabled(enabled bool) { f.enabled = enabled }
func (f *fakeController) Running() bool           { return f.running }

func TestStatusHandler(t *testing.T) {
	ctl := &fakeController{enabled: true, running: true}
	handler := NewStatusHandler(ctl)

	t.Run("reports state", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodGet, "/api/status", nil)
		rec := httptest.NewRecorder()
		handler.ServeHTTP(rec, req)

		var response statusResponse
		if err := json.NewDecoder(rec.Body).Decode(&response); err != nil {
			t.Fatalf("failed to decode response: %v", err)
		}
		if !response.Enabled || !response.Running {
			t.Errorf("unexpected status %+v", response)
		}
	})

	t.Run("toggles recognition", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodPut, "/api/status", bytes.NewBufferString(`{"enabled": false}`))
		rec := httptest.NewRecorder()
		handler.ServeHTTP(rec, req)

		if rec.Code != http.StatusOK {
			t.Fatalf("expected status %d, got %d", http.StatusOK, rec.Code)
		}
		if ctl.enabled {
			t.Error("expected recognition to be disabled")
		}
	})

	t.Run("rejects missing field", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodPut, "/api/status", bytes.NewBufferString(`{}`))
		rec := httptest.NewRecorder()
		handler.ServeHTTP(rec, req)

		if rec.Code != http.StatusBadRequest {
			t.Errorf("expected status %d, got %d", http.StatusBadRequest, rec.Code)
		}
	})

	t.Run("rejects other methods", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodDelete, "/api/status", nil)
		rec := httptest.NewRecorder()
		handler.ServeHTTP(rec, req)

		if rec.Code != http.StatusMethodNotAllowed {
			t.Errorf("expected status %d, got %d", http.StatusMethodNotAllowed, rec.Code)
		}
	})
}
