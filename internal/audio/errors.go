package audio

import "errors"

// Domain errors for the audio mixer.
var (
	// ErrInvalidVolume is returned when a volume is outside [0,1].
	ErrInvalidVolume = errors.New("audio: volume must be between 0 and 1")

	// ErrUnknownCategory is returned for a category other than music, ambient or trigger.
	ErrUnknownCategory = errors.New("audio: unknown category")

	// ErrPlaybackRejected is returned when the backend cannot open or start a source.
	ErrPlaybackRejected = errors.New("audio: playback rejected")

	// ErrNoMusic is returned by transport controls when no music is loaded.
	ErrNoMusic = errors.New("audio: no music loaded")

	// ErrEmptySource is returned when asked to play nothing.
	ErrEmptySource = errors.New("audio: empty source")

	// ErrUnsupportedFormat is returned by the ebiten backend for undecodable files.
	ErrUnsupportedFormat = errors.New("audio: unsupported format")
)
