package api

import (
	"context"
	"net/http"
)

// handleLightingStatus returns reachability of WLED and Home Assistant.
func (s *Server) handleLightingStatus(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{
		"connectivity": s.lights.Connectivity(),
		"stats":        s.lights.Stats(),
	})
}

// handleLightingProbe re-runs the reachability probes.
func (s *Server) handleLightingProbe(w http.ResponseWriter, r *http.Request) {
	conn := s.lights.Initialize(context.WithoutCancel(r.Context()))
	writeJSON(w, http.StatusOK, conn)
}
