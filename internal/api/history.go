package api

import (
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"github.com/nerrad567/tavernlight-core/internal/orchestrator"
)

// handleListHistory returns session history, most recent first.
//
// Query parameters:
//   - kind: scene, trigger or stop_all
//   - ref_id: scene or trigger ID
//   - limit: page size (default 50, max 200)
//   - offset: records to skip
func (s *Server) handleListHistory(w http.ResponseWriter, r *http.Request) {
	if s.history == nil {
		writeNotFound(w, "history is disabled")
		return
	}

	q := r.URL.Query()
	filter := orchestrator.HistoryFilter{
		Kind:  orchestrator.RecordKind(q.Get("kind")),
		RefID: q.Get("ref_id"),
	}
	if len(filter.RefID) > maxIDLen {
		writeBadRequest(w, "ref_id exceeds maximum length")
		return
	}
	switch filter.Kind {
	case "", orchestrator.KindScene, orchestrator.KindTrigger, orchestrator.KindStopAll:
	default:
		writeBadRequest(w, "invalid kind")
		return
	}

	var err error
	if filter.Limit, err = intParam(q.Get("limit")); err != nil {
		writeBadRequest(w, "invalid limit")
		return
	}
	if filter.Offset, err = intParam(q.Get("offset")); err != nil {
		writeBadRequest(w, "invalid offset")
		return
	}

	page, err := s.history.List(r.Context(), filter)
	if err != nil {
		s.logger.Error("history query failed", "error", err)
		writeInternalError(w, "failed to list history")
		return
	}
	writeJSON(w, http.StatusOK, page)
}

// handleGetHistory returns one history record.
func (s *Server) handleGetHistory(w http.ResponseWriter, r *http.Request) {
	if s.history == nil {
		writeNotFound(w, "history is disabled")
		return
	}
	id := chi.URLParam(r, "id")
	if id == "" || len(id) > maxIDLen {
		writeBadRequest(w, "invalid record ID")
		return
	}
	rec, err := s.history.Get(r.Context(), id)
	if err != nil {
		writeDomainError(w, err, "failed to get history record")
		return
	}
	writeJSON(w, http.StatusOK, rec)
}

func intParam(v string) (int, error) {
	if v == "" {
		return 0, nil
	}
	n, err := strconv.Atoi(v)
	if err != nil || n < 0 {
		return 0, strconv.ErrSyntax
	}
	return n, nil
}
