// Package server exposes the projector's operational HTTP surface: health and
// Prometheus metrics. There is no data-plane API; the projector is driven
// entirely by the change stream.
package server

import (
	"encoding/json"
	"net/http"

	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/carelog-systems/carelog-projector/internal/projector"
)

// NewRouter wires HTTP routes for the projector service.
func NewRouter(h *projector.Handler) http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("/healthz", healthHandler(h))
	mux.Handle("/metrics", promhttp.Handler())
	return mux
}

func healthHandler(h *projector.Handler) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodGet {
			w.WriteHeader(http.StatusMethodNotAllowed)
			return
		}
		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(map[string]any{
			"status": "ok",
			"stats":  h.Health(),
		})
	}
}
