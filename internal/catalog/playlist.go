package catalog

import (
	"bufio"
	"fmt"
	"os"
	"path/filepath"
	"strings"
)

// ReadPlaylist parses a playlist file.
//
// Non-empty lines that do not start with '#' are track paths. Relative paths
// are resolved against the playlist file's own directory; absolute paths and
// http(s) URLs pass through unchanged.
func ReadPlaylist(path string) ([]string, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("opening playlist: %w", err)
	}
	defer f.Close()

	dir := filepath.Dir(path)
	var tracks []string

	scanner := bufio.NewScanner(f)
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		line = strings.TrimPrefix(line, "\ufeff")
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		tracks = append(tracks, resolveEntry(dir, line))
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("reading playlist: %w", err)
	}
	if len(tracks) == 0 {
		return nil, fmt.Errorf("%s: %w", path, ErrEmptyPlaylist)
	}
	return tracks, nil
}

func resolveEntry(dir, entry string) string {
	if IsURL(entry) || filepath.IsAbs(entry) {
		return entry
	}
	return filepath.Join(dir, filepath.FromSlash(entry))
}

// IsURL reports whether a source is a network path rather than a local file.
func IsURL(s string) bool {
	return strings.HasPrefix(s, "http://") || strings.HasPrefix(s, "https://")
}

// Resolver turns music sources into ordered track lists.
type Resolver struct {
	// LibraryDir anchors relative playlist file paths.
	LibraryDir string

	// Playlists maps names used in "playlist:<name>" references to files.
	Playlists map[string]string
}

// Resolve expands a music source. Playlist entries inside LibraryDir come
// back relative to it.
//
// Returns:
//   - tracks: the ordered track list
//   - list: true when the source is a playlist or an explicit list, which
//     disables native single-file looping on the music channel
//   - error: ErrPlaylistNotFound, ErrEmptyPlaylist, or a file error
func (r Resolver) Resolve(src MusicSource) (tracks []string, list bool, err error) {
	if src.IsZero() {
		return nil, false, fmt.Errorf("%w: empty music source", ErrEmptyPlaylist)
	}

	ref, named, isPlaylist := src.Playlist()
	if !isPlaylist {
		return src.Clone(), len(src.StringList) > 1, nil
	}

	path := ref
	if named {
		p, ok := r.Playlists[ref]
		if !ok {
			return nil, false, fmt.Errorf("%w: %q", ErrPlaylistNotFound, ref)
		}
		path = p
	}
	if !filepath.IsAbs(path) && r.LibraryDir != "" {
		path = filepath.Join(r.LibraryDir, path)
	}

	tracks, err = ReadPlaylist(path)
	if err != nil {
		return nil, false, err
	}
	return r.relativeToLibrary(tracks), true, nil
}

// relativeToLibrary expresses local tracks inside LibraryDir relative to it,
// the same form scenes use, so the mixer anchors each path exactly once.
// URLs and tracks outside the library are returned unchanged.
func (r Resolver) relativeToLibrary(tracks []string) []string {
	if r.LibraryDir == "" {
		return tracks
	}
	for i, t := range tracks {
		if IsURL(t) {
			continue
		}
		rel, err := filepath.Rel(r.LibraryDir, t)
		if err != nil || rel == ".." || strings.HasPrefix(rel, ".."+string(filepath.Separator)) {
			continue
		}
		tracks[i] = filepath.ToSlash(rel)
	}
	return tracks
}
