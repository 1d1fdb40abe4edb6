// Package health exposes liveness and metrics endpoints for long-running
// backup commands.
package health

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"

	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/vietddude/cloudvault/internal/vault"
)

// Server provides HTTP endpoints for health monitoring.
type Server struct {
	client *vault.Client
	server *http.Server
}

// NewServer creates a new health server.
func NewServer(client *vault.Client, port int) *Server {
	mux := http.NewServeMux()
	s := &Server{
		client: client,
		server: &http.Server{
			Addr:    fmt.Sprintf(":%d", port),
			Handler: mux,
		},
	}

	mux.HandleFunc("/health", s.handleHealth)
	mux.Handle("/metrics", promhttp.Handler())

	return s
}

// Start starts the HTTP server.
func (s *Server) Start() error {
	return s.server.ListenAndServe()
}

// Stop stops the HTTP server.
func (s *Server) Stop(ctx context.Context) error {
	return s.server.Shutdown(ctx)
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	available, status := s.client.CheckServiceAccess(r.Context())

	response := map[string]any{
		"status":    string(status),
		"available": available,
	}
	w.Header().Set("Content-Type", "application/json")

	if !available {
		w.WriteHeader(http.StatusServiceUnavailable)
	} else {
		w.WriteHeader(http.StatusOK)
	}

	json.NewEncoder(w).Encode(response)
}
