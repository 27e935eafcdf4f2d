package monitoring

import (
	"context"
	"errors"
	"fmt"
	"log"
	"net/http"
	"time"
)

type HealthServer struct {
	monitor *Monitor
	server  *http.Server
}

func NewHealthServer(monitor *Monitor, port string) *HealthServer {
	if port == "" || port == "0" {
		port = "8080"
	}

	h := &HealthServer{monitor: monitor}
	h.server = &http.Server{
		Addr:              ":" + port,
		Handler:           h.Handler(),
		ReadHeaderTimeout: 5 * time.Second,
	}
	return h
}

// Handler serves /health and /status.
func (h *HealthServer) Handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("/health", h.healthHandler)
	mux.HandleFunc("/status", h.statusHandler)
	return mux
}

func (h *HealthServer) Start() {
	log.Printf("Health check server starting on %s", h.server.Addr)
	go func() {
		if err := h.server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Printf("Health server error: %v", err)
		}
	}()
}

func (h *HealthServer) Shutdown(ctx context.Context) error {
	return h.server.Shutdown(ctx)
}

func (h *HealthServer) healthHandler(w http.ResponseWriter, r *http.Request) {
	if h.monitor.IsHealthy() {
		w.WriteHeader(http.StatusOK)
		fmt.Fprintf(w, "OK - %s", h.monitor.GetStatusSummary())
	} else {
		w.WriteHeader(http.StatusServiceUnavailable)
		fmt.Fprintf(w, "Service unhealthy - %s", h.monitor.GetStatusSummary())
	}
}

func (h *HealthServer) statusHandler(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "text/plain")
	w.WriteHeader(http.StatusOK)
	fmt.Fprintf(w, "%s", h.monitor.GetStatusSummary())
}
