// Package api exposes the background estimation service over HTTP: image
// uploads are fitted into grid models, persisted as snapshots, and served
// back as reconstructed images, plots, and charts.
package api

import (
	"context"
	"net/http"
	"time"

	"github.com/banshee-data/backgrid/internal/monitoring"
	sqlite "github.com/banshee-data/backgrid/internal/storage/sqlite"
)

// maxUploadBytes bounds the accepted PNG payload size (32 MiB).
const maxUploadBytes = 32 << 20

// Server handles the HTTP interface for the background estimation service.
type Server struct {
	address string
	store   *sqlite.SnapshotStore
	server  *http.Server
}

// Config contains configuration options for the API server.
type Config struct {
	Address string
	Store   *sqlite.SnapshotStore
}

// NewServer creates an API server with the provided configuration.
func NewServer(config Config) *Server {
	s := &Server{
		address: config.Address,
		store:   config.Store,
	}
	s.server = &http.Server{
		Addr:    s.address,
		Handler: s.ServeMux(),
	}
	return s
}

// ServeMux configures the HTTP routes and handlers.
func (s *Server) ServeMux() *http.ServeMux {
	mux := http.NewServeMux()
	mux.HandleFunc("/health", s.handleHealth)
	mux.HandleFunc("/api/backgrounds", s.handleBackgrounds)
	mux.HandleFunc("/api/background", s.handleBackground)
	mux.HandleFunc("/api/background/image.png", s.handleImagePNG)
	mux.HandleFunc("/api/background/stats.png", s.handleStatsPNG)
	mux.HandleFunc("/api/background/profile.png", s.handleProfilePNG)
	mux.HandleFunc("/api/background/chart", s.handleChart)
	return mux
}

// Start begins the HTTP server and blocks until ctx is cancelled, then
// shuts the server down gracefully.
func (s *Server) Start(ctx context.Context) error {
	go func() {
		monitoring.Logf("starting HTTP server on %s", s.address)
		if err := s.server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			monitoring.Logf("HTTP server error: %v", err)
		}
	}()

	<-ctx.Done()
	monitoring.Logf("shutting down HTTP server...")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	if err := s.server.Shutdown(shutdownCtx); err != nil {
		monitoring.Logf("HTTP server shutdown error: %v", err)
		if err := s.server.Close(); err != nil {
			monitoring.Logf("HTTP server force close error: %v", err)
		}
	}
	return nil
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	w.Write([]byte(`{"status":"ok"}`))
}
