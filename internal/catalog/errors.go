package catalog

import "errors"

// Domain errors for the scene and trigger catalog.
var (
	// ErrSceneNotFound is returned when a scene ID is not in the catalog.
	ErrSceneNotFound = errors.New("scene: not found")

	// ErrTriggerNotFound is returned when a trigger ID is not in the catalog.
	ErrTriggerNotFound = errors.New("trigger: not found")

	// ErrInvalidCatalog wraps every validation failure found while loading.
	ErrInvalidCatalog = errors.New("catalog: invalid definition")

	// ErrPlaylistNotFound is returned for an unknown "playlist:<name>" reference.
	ErrPlaylistNotFound = errors.New("playlist: not found")

	// ErrEmptyPlaylist is returned when a playlist file lists no tracks.
	ErrEmptyPlaylist = errors.New("playlist: no tracks")
)
