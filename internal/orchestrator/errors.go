package orchestrator

import (
	"errors"

	"github.com/nerrad567/tavernlight-core/internal/catalog"
)

// Domain errors for the orchestrator package.
//
// Only lookup misses cross the orchestration boundary; audio and lighting
// failures are logged and absorbed.
//
//	if errors.Is(err, orchestrator.ErrSceneNotFound) {
//	    // respond 404
//	}
var (
	// ErrSceneNotFound is returned when a scene ID is not in the catalog.
	ErrSceneNotFound = catalog.ErrSceneNotFound

	// ErrTriggerNotFound is returned when a trigger ID is not in the catalog.
	ErrTriggerNotFound = catalog.ErrTriggerNotFound

	// ErrRecordNotFound is returned when a history record ID does not exist.
	ErrRecordNotFound = errors.New("history: record not found")

	// ErrShuttingDown is returned when a trigger is requested after Shutdown.
	ErrShuttingDown = errors.New("orchestrator: shutting down")
)
