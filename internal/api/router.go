package api

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/nerrad567/tavernlight-core/internal/panel"
)

// buildRouter creates the HTTP router with all routes and middleware.
func (s *Server) buildRouter() http.Handler {
	r := chi.NewRouter()

	// Global middleware
	r.Use(s.requestIDMiddleware)
	r.Use(s.loggingMiddleware)
	r.Use(s.recoveryMiddleware)
	r.Use(s.corsMiddleware)
	r.Use(s.bodySizeLimitMiddleware)

	r.NotFound(func(w http.ResponseWriter, _ *http.Request) {
		writeNotFound(w, "route not found")
	})
	r.MethodNotAllowed(func(w http.ResponseWriter, _ *http.Request) {
		writeError(w, http.StatusMethodNotAllowed, ErrCodeMethodNotAllow, "method not allowed")
	})

	// Control panel (embedded, or served from api.panel_dir)
	r.Handle("/panel/*", http.StripPrefix("/panel", panel.Handler(s.cfg.PanelDir)))
	r.Handle("/panel", http.RedirectHandler("/panel/", http.StatusMovedPermanently))

	if s.metrics != nil && s.metricsPath != "" {
		r.Handle(s.metricsPath, s.metrics.Handler())
	}

	r.Route("/api/v1", func(r chi.Router) {
		r.Get("/health", s.handleHealth)
		r.Get("/status", s.handleStatus)
		r.Get("/system", s.handleSystemMetrics)

		r.Route("/scenes", func(r chi.Router) {
			r.Get("/", s.handleListScenes)
			r.Post("/stop", s.handleStopScene)
			r.Route("/{id}", func(r chi.Router) {
				r.Get("/", s.handleGetScene)
				r.Post("/start", s.handleStartScene)
				r.Post("/music", s.handleSceneMusic)
			})
		})

		r.Route("/triggers", func(r chi.Router) {
			r.Get("/", s.handleListTriggers)
			r.Get("/{id}", s.handleGetTrigger)
			r.Post("/{id}/execute", s.handleExecuteTrigger)
		})

		r.Post("/stop", s.handleStopAll)

		r.Route("/audio", func(r chi.Router) {
			r.Get("/", s.handleAudioStatus)
			r.Put("/volume", s.handleSetVolume)
			r.Route("/music", func(r chi.Router) {
				r.Get("/", s.handleCurrentTrack)
				r.Post("/", s.handlePlayMusic)
				r.Post("/{action}", s.handleMusicTransport)
			})
			r.Post("/ambient", s.handlePlayAmbient)
			r.Delete("/ambient", s.handleStopAmbient)
			r.Post("/trigger", s.handlePlayTriggerSound)
		})

		r.Get("/library", s.handleLibrary)

		r.Route("/lighting", func(r chi.Router) {
			r.Get("/", s.handleLightingStatus)
			r.Post("/probe", s.handleLightingProbe)
		})

		r.Route("/history", func(r chi.Router) {
			r.Get("/", s.handleListHistory)
			r.Get("/{id}", s.handleGetHistory)
		})

		r.Get(s.wsPath(), s.handleWebSocket)
	})

	return r
}

// handleHealth returns the server health status.
func (s *Server) handleHealth(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{
		"status":  "ok",
		"version": s.version,
	})
}

// wsPath is the WebSocket route under /api/v1.
func (s *Server) wsPath() string {
	if s.wsCfg.Path == "" {
		return "/ws"
	}
	return s.wsCfg.Path
}
