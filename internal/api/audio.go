package api

import (
	"context"
	"encoding/json"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/nerrad567/tavernlight-core/internal/audio"
	"github.com/nerrad567/tavernlight-core/internal/catalog"
	"github.com/nerrad567/tavernlight-core/internal/orchestrator"
)

// volumeRequest is the body of PUT /audio/volume.
type volumeRequest struct {
	Category string   `json:"category"`
	Volume   *float64 `json:"volume"`
}

// playMusicRequest is the body of POST /audio/music. Exactly one of Source
// or Category+Collection selects the tracks.
type playMusicRequest struct {
	Source     catalog.MusicSource `json:"source"`
	Category   string              `json:"category"`
	Collection string              `json:"collection"`
	Loop       *bool               `json:"loop"`
	Shuffle    bool                `json:"shuffle"`
}

// ambientRequest is the body of POST /audio/ambient.
type ambientRequest struct {
	Sources catalog.StringList `json:"sources"`
}

// triggerSoundRequest is the body of POST /audio/trigger.
type triggerSoundRequest struct {
	Source string `json:"source"`
}

// handleAudioStatus returns volumes, the current track and live layers.
func (s *Server) handleAudioStatus(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, s.mixer.Status())
}

// handleSetVolume sets one category volume and announces the change.
func (s *Server) handleSetVolume(w http.ResponseWriter, r *http.Request) {
	var req volumeRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeBadRequest(w, "invalid JSON body")
		return
	}
	if req.Volume == nil {
		writeError(w, http.StatusBadRequest, ErrCodeValidation, "volume is required")
		return
	}

	cat, err := audio.ParseCategory(req.Category)
	if err != nil {
		writeDomainError(w, err, "failed to set volume")
		return
	}
	if err := s.mixer.SetVolume(cat, *req.Volume); err != nil {
		writeDomainError(w, err, "failed to set volume")
		return
	}

	if s.publisher != nil {
		s.publisher.Publish(orchestrator.Event{
			Type: orchestrator.EventVolumeChanged,
			Data: map[string]any{"category": string(cat), "volume": *req.Volume},
			At:   time.Now().UTC(),
		})
	}
	writeJSON(w, http.StatusOK, map[string]any{"category": cat, "volume": *req.Volume})
}

// handleCurrentTrack returns the music channel state, or 204 when idle.
func (s *Server) handleCurrentTrack(w http.ResponseWriter, _ *http.Request) {
	track := s.mixer.CurrentTrack()
	if track == nil {
		w.WriteHeader(http.StatusNoContent)
		return
	}
	writeJSON(w, http.StatusOK, track)
}

// handlePlayMusic replaces the music channel with a source or a library
// collection.
func (s *Server) handlePlayMusic(w http.ResponseWriter, r *http.Request) {
	var req playMusicRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeBadRequest(w, "invalid JSON body")
		return
	}

	var src audio.Source
	switch {
	case !req.Source.IsZero():
		tracks, list, err := s.resolver.Resolve(req.Source)
		if err != nil {
			writeDomainError(w, err, "failed to resolve music")
			return
		}
		src = audio.Source{Tracks: tracks, List: list}
	case req.Category != "" && req.Collection != "":
		tracks, err := s.collectionTracks(req.Category, req.Collection)
		if err != nil {
			writeDomainError(w, err, "failed to read library")
			return
		}
		if len(tracks) == 0 {
			writeNotFound(w, "collection not found")
			return
		}
		src = audio.Source{Tracks: tracks, List: true}
	default:
		writeError(w, http.StatusBadRequest, ErrCodeValidation, "source or category and collection are required")
		return
	}

	loop := true
	if req.Loop != nil {
		loop = *req.Loop
	}
	if err := s.mixer.PlayMusic(context.WithoutCancel(r.Context()), src, loop, req.Shuffle); err != nil {
		writeDomainError(w, err, "failed to play music")
		return
	}
	writeJSON(w, http.StatusOK, s.mixer.CurrentTrack())
}

// handleMusicTransport runs pause, resume, next, prev or stop.
func (s *Server) handleMusicTransport(w http.ResponseWriter, r *http.Request) {
	var err error
	switch action := chi.URLParam(r, "action"); action {
	case "pause":
		err = s.mixer.PauseMusic()
	case "resume":
		err = s.mixer.ResumeMusic()
	case "next":
		err = s.mixer.NextTrack()
	case "prev", "previous":
		err = s.mixer.PreviousTrack()
	case "stop":
		s.mixer.StopMusic(context.WithoutCancel(r.Context()))
	default:
		writeNotFound(w, "unknown music action: "+action)
		return
	}
	if err != nil {
		writeDomainError(w, err, "music control failed")
		return
	}

	track := s.mixer.CurrentTrack()
	if track == nil {
		w.WriteHeader(http.StatusNoContent)
		return
	}
	writeJSON(w, http.StatusOK, track)
}

// handlePlayAmbient replaces the ambient layers outside of any scene.
func (s *Server) handlePlayAmbient(w http.ResponseWriter, r *http.Request) {
	var req ambientRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeBadRequest(w, "invalid JSON body")
		return
	}
	if len(req.Sources) == 0 {
		writeError(w, http.StatusBadRequest, ErrCodeValidation, "sources are required")
		return
	}
	if err := s.mixer.PlayAmbient(context.WithoutCancel(r.Context()), req.Sources); err != nil {
		writeDomainError(w, err, "failed to play ambient")
		return
	}
	writeJSON(w, http.StatusOK, s.mixer.Status())
}

// handleStopAmbient fades out every ambient layer.
func (s *Server) handleStopAmbient(w http.ResponseWriter, r *http.Request) {
	s.mixer.StopAmbient(context.WithoutCancel(r.Context()))
	writeJSON(w, http.StatusOK, s.mixer.Status())
}

// handlePlayTriggerSound plays a one-shot sound on the trigger channel.
func (s *Server) handlePlayTriggerSound(w http.ResponseWriter, r *http.Request) {
	var req triggerSoundRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeBadRequest(w, "invalid JSON body")
		return
	}
	if req.Source == "" {
		writeError(w, http.StatusBadRequest, ErrCodeValidation, "source is required")
		return
	}
	if err := s.mixer.PlayTrigger(req.Source); err != nil {
		writeDomainError(w, err, "failed to play sound")
		return
	}
	w.WriteHeader(http.StatusAccepted)
}
