package api

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/nerrad567/tavernlight-core/internal/audio"
)

// maxIDLen limits scene and trigger IDs taken from the URL.
const maxIDLen = 100

// urlID reads and bounds the {id} URL parameter.
func urlID(r *http.Request) (string, bool) {
	id := chi.URLParam(r, "id")
	return id, id != "" && len(id) <= maxIDLen
}

// decodeOptionalJSON decodes r's body into v. An empty body leaves v untouched.
func decodeOptionalJSON(r *http.Request, v any) error {
	err := json.NewDecoder(r.Body).Decode(v)
	if errors.Is(err, io.EOF) {
		return nil
	}
	return err
}

// handleStatus returns the presentation read surface in one document.
func (s *Server) handleStatus(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, s.manager.Status())
}

// handleListScenes returns every scene as id and name.
func (s *Server) handleListScenes(w http.ResponseWriter, _ *http.Request) {
	scenes := s.manager.Scenes()
	writeJSON(w, http.StatusOK, map[string]any{"scenes": scenes, "count": len(scenes)})
}

// handleGetScene returns the full definition of one scene.
func (s *Server) handleGetScene(w http.ResponseWriter, r *http.Request) {
	id, ok := urlID(r)
	if !ok {
		writeBadRequest(w, "invalid scene ID")
		return
	}
	if s.definitions == nil {
		writeNotFound(w, "scene definitions unavailable")
		return
	}
	scene, err := s.definitions.Scene(id)
	if err != nil {
		writeDomainError(w, err, "failed to get scene")
		return
	}
	writeJSON(w, http.StatusOK, scene)
}

// handleStartScene starts a scene, or stops it when it is already active.
func (s *Server) handleStartScene(w http.ResponseWriter, r *http.Request) {
	id, ok := urlID(r)
	if !ok {
		writeBadRequest(w, "invalid scene ID")
		return
	}

	if err := s.manager.StartScene(r.Context(), id); err != nil {
		writeDomainError(w, err, "failed to start scene")
		return
	}
	writeJSON(w, http.StatusOK, s.manager.Status())
}

// handleStopScene stops the active scene, if any.
func (s *Server) handleStopScene(w http.ResponseWriter, r *http.Request) {
	s.manager.StopScene(r.Context())
	writeJSON(w, http.StatusOK, s.manager.Status())
}

// sceneMusicRequest is the body of POST /scenes/{id}/music.
type sceneMusicRequest struct {
	Loop    *bool `json:"loop"`
	Shuffle bool  `json:"shuffle"`
}

// handleSceneMusic loads the scene's music source onto the music channel.
// Scene activation never starts music on its own.
func (s *Server) handleSceneMusic(w http.ResponseWriter, r *http.Request) {
	id, ok := urlID(r)
	if !ok {
		writeBadRequest(w, "invalid scene ID")
		return
	}
	if s.definitions == nil {
		writeNotFound(w, "scene definitions unavailable")
		return
	}

	var req sceneMusicRequest
	if err := decodeOptionalJSON(r, &req); err != nil {
		writeBadRequest(w, "invalid JSON body")
		return
	}

	scene, err := s.definitions.Scene(id)
	if err != nil {
		writeDomainError(w, err, "failed to get scene")
		return
	}
	if scene.Audio == nil || scene.Audio.Music.IsZero() {
		writeError(w, http.StatusConflict, ErrCodeConflict, "scene has no music")
		return
	}

	tracks, list, err := s.resolver.Resolve(scene.Audio.Music)
	if err != nil {
		writeDomainError(w, err, "failed to resolve music")
		return
	}

	loop := true
	if req.Loop != nil {
		loop = *req.Loop
	}
	if err := s.mixer.PlayMusic(context.WithoutCancel(r.Context()), audio.Source{Tracks: tracks, List: list}, loop, req.Shuffle); err != nil {
		writeDomainError(w, err, "failed to play music")
		return
	}
	writeJSON(w, http.StatusOK, s.mixer.CurrentTrack())
}

// handleListTriggers returns every trigger as id and name.
func (s *Server) handleListTriggers(w http.ResponseWriter, _ *http.Request) {
	triggers := s.manager.Triggers()
	writeJSON(w, http.StatusOK, map[string]any{"triggers": triggers, "count": len(triggers)})
}

// handleGetTrigger returns the full definition of one trigger.
func (s *Server) handleGetTrigger(w http.ResponseWriter, r *http.Request) {
	id, ok := urlID(r)
	if !ok {
		writeBadRequest(w, "invalid trigger ID")
		return
	}
	if s.definitions == nil {
		writeNotFound(w, "trigger definitions unavailable")
		return
	}
	trig, err := s.definitions.Trigger(id)
	if err != nil {
		writeDomainError(w, err, "failed to get trigger")
		return
	}
	writeJSON(w, http.StatusOK, trig)
}

// handleExecuteTrigger launches a trigger sequence and returns at once.
// The sequence keeps running after the response is written.
func (s *Server) handleExecuteTrigger(w http.ResponseWriter, r *http.Request) {
	id, ok := urlID(r)
	if !ok {
		writeBadRequest(w, "invalid trigger ID")
		return
	}

	executionID, err := s.manager.ExecuteTrigger(r.Context(), id)
	if err != nil {
		writeDomainError(w, err, "failed to execute trigger")
		return
	}
	writeJSON(w, http.StatusAccepted, map[string]any{
		"execution_id": executionID,
		"trigger_id":   id,
	})
}

// handleStopAll silences and darkens everything.
func (s *Server) handleStopAll(w http.ResponseWriter, r *http.Request) {
	s.manager.StopAll(r.Context())
	writeJSON(w, http.StatusOK, s.manager.Status())
}
