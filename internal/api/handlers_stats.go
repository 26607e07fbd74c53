package api

import (
	"net/http"
)

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	var device any
	if d, ok := s.models.Device(); ok {
		device = d
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"status":        "healthy",
		"models_loaded": s.models.IsReady(),
		"device":        device,
	})
}

func (s *Server) handleInferenceStats(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{
		"models_loaded": s.models.IsReady(),
		"stats":         s.models.Stats(),
	})
}
