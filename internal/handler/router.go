package handler

import (
	"context"
	"net/http"

	"github.com/rs/zerolog/log"

	"github.com/freeeve/reward-moran/internal/middleware"
	"github.com/freeeve/reward-moran/internal/model"
)

// ProgressSource returns the latest progress of an experiment, or nil if
// it is unknown.
type ProgressSource interface {
	LatestProgress(ctx context.Context, experimentID string) (*model.ProgressEvent, error)
}

// NewRouter wires the progress endpoints. src may be nil.
func NewRouter(hub *Hub, src ProgressSource) http.Handler {
	ws := NewWSHandler(hub)
	mux := http.NewServeMux()

	mux.HandleFunc("GET /healthz", func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, map[string]any{
			"status":      "ok",
			"connections": hub.ConnectionCount(),
		})
	})
	mux.HandleFunc("GET /ws", ws.ServeWS)
	mux.HandleFunc("GET /progress/{id}", func(w http.ResponseWriter, r *http.Request) {
		if src == nil {
			writeError(w, http.StatusNotFound, "progress store not configured")
			return
		}
		snap, err := src.LatestProgress(r.Context(), r.PathValue("id"))
		if err != nil {
			log.Error().Err(err).Str("experimentId", r.PathValue("id")).Msg("Progress lookup failed")
			writeError(w, http.StatusInternalServerError, "progress lookup failed")
			return
		}
		if snap == nil {
			writeError(w, http.StatusNotFound, "unknown experiment")
			return
		}
		writeJSON(w, http.StatusOK, snap)
	})
	return middleware.Chain(mux, middleware.Logger, middleware.CORS("*"))
}
