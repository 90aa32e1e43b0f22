// Package server provides the HTTP server for the Mukha face recognition system.
package server

import (
	"context"
	"encoding/json"
	"errors"
	"log"
	"net"
	"net/http"
	"time"

	"github.com/ayusman/mukha/internal/app"
	"github.com/ayusman/mukha/internal/server/api"
)

// ShutdownTimeout bounds how long Run waits for open requests on exit.
const ShutdownTimeout = 5 * time.Second

// Config holds the server configuration.
type Config struct {
	StaticDir string
	// Gallery serves /api/faces. It defaults to the App's gallery.
	Gallery api.Gallery
	// App enables enrollment, status, streaming and live recognitions.
	App *app.App
	// StreamInterval is the delay between MJPEG frames.
	StreamInterval time.Duration
}

// Server represents the HTTP server for the Mukha application.
type Server struct {
	config       Config
	mux          *http.ServeMux
	start        time.Time
	recognitions *RecognitionsHandler
}

// New creates a new Server with the given configuration.
func New(config Config) *Server {
	if config.Gallery == nil && config.App != nil {
		config.Gallery = config.App.Gallery()
	}

	s := &Server{
		config: config,
		mux:    http.NewServeMux(),
		start:  time.Now(),
	}
	s.setupRoutes()
	return s
}

// setupRoutes configures all HTTP routes for the server.
func (s *Server) setupRoutes() {
	s.mux.HandleFunc("/api/health", s.handleHealth)

	if s.config.Gallery != nil {
		var enroller api.Enroller
		if s.config.App != nil {
			enroller = s.config.App
		}
		faces := api.NewFacesHandler(s.config.Gallery, enroller)
		s.mux.Handle("/api/faces", faces)
		s.mux.Handle("/api/faces/", faces)
	}

	if s.config.App != nil {
		s.mux.Handle("/api/status", api.NewStatusHandler(s.config.App))
		s.mux.Handle("/api/stream", NewStreamHandler(s.config.App, s.config.StreamInterval))
		s.mux.HandleFunc("/api/snapshot", s.handleSnapshot)

		s.recognitions = NewRecognitionsHandler()
		s.config.App.OnRecognition(s.recognitions.Broadcast)
		s.mux.Handle("/api/recognitions", s.recognitions)
	}

	// Serve static files if StaticDir is configured
	if s.config.StaticDir != "" {
		fs := http.FileServer(http.Dir(s.config.StaticDir))
		s.mux.Handle("/", fs)
	}
}

// ServeHTTP implements the http.Handler interface.
func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.mux.ServeHTTP(w, r)
}

// handleHealth handles GET requests to /api/health.
func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	uptime := time.Since(s.start)

	response := map[string]interface{}{
		"status": "ok",
		"uptime": uptime.String(),
	}

	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(response); err != nil {
		http.Error(w, "Failed to encode response", http.StatusInternalServerError)
		return
	}
}

// handleSnapshot serves the latest annotated frame as a single JPEG.
func (s *Server) handleSnapshot(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	data, ok := s.config.App.LatestFrame()
	if !ok {
		http.Error(w, "No frame available", http.StatusServiceUnavailable)
		return
	}

	w.Header().Set("Content-Type", "image/jpeg")
	w.Header().Set("Cache-Control", "no-cache")
	w.Write(data)
}

// Run serves on addr until ctx is cancelled, then shuts down gracefully.
// Open streams and WebSocket clients are closed on the way out.
func (s *Server) Run(ctx context.Context, addr string) error {
	srv := &http.Server{
		Addr:              addr,
		Handler:           s,
		ReadHeaderTimeout: 10 * time.Second,
		BaseContext: func(net.Listener) context.Context {
			return ctx
		},
	}
	if s.recognitions != nil {
		srv.RegisterOnShutdown(s.recognitions.Close)
	}

	errCh := make(chan error, 1)
	go func() {
		errCh <- srv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	log.Println("server: shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), ShutdownTimeout)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		return err
	}
	if err := <-errCh; err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}
