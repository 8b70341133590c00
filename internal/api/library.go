package api

import (
	"net/http"

	"github.com/nerrad567/tavernlight-core/internal/catalog"
)

// libraryResponse is the body of GET /library.
type libraryResponse struct {
	Categories  int                  `json:"categories"`
	Collections int                  `json:"collections"`
	Tracks      int                  `json:"tracks"`
	Index       catalog.LibraryIndex `json:"index"`
}

// handleLibrary scans the music library and returns its index.
func (s *Server) handleLibrary(w http.ResponseWriter, _ *http.Request) {
	if s.libraryDir == "" {
		writeNotFound(w, "no music library configured")
		return
	}
	idx, err := catalog.ScanLibrary(s.libraryDir)
	if err != nil {
		s.logger.Warn("library scan failed", "dir", s.libraryDir, "error", err)
		writeInternalError(w, "failed to scan library")
		return
	}
	cats, cols, tracks := idx.Counts()
	writeJSON(w, http.StatusOK, libraryResponse{
		Categories:  cats,
		Collections: cols,
		Tracks:      tracks,
		Index:       idx,
	})
}

// collectionTracks returns the library-relative tracks of one collection.
func (s *Server) collectionTracks(category, collection string) ([]string, error) {
	if s.libraryDir == "" {
		return nil, nil
	}
	idx, err := catalog.ScanLibrary(s.libraryDir)
	if err != nil {
		return nil, err
	}
	return idx.Collection(category, collection), nil
}
