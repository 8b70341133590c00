package catalog

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
)

// audioExtensions are the file types listed in the music library index.
var audioExtensions = map[string]bool{
	".mp3":  true,
	".wav":  true,
	".ogg":  true,
	".flac": true,
	".m4a":  true,
	".aac":  true,
	".wma":  true,
}

// LibraryIndex maps category → collection → track paths relative to the
// library root (category/collection/file).
type LibraryIndex map[string]map[string][]string

// IsAudioFile reports whether name has a recognised audio extension.
func IsAudioFile(name string) bool {
	return audioExtensions[strings.ToLower(filepath.Ext(name))]
}

// ScanLibrary indexes a music library laid out as
// <root>/<category>/<collection>/<track>.
//
// Categories and collections are sorted by name, tracks by file name.
// Collections without audio files are skipped; categories are kept even
// when empty so the panel can show them. Files directly under a category
// are ignored.
func ScanLibrary(root string) (LibraryIndex, error) {
	categories, err := os.ReadDir(root)
	if err != nil {
		return nil, fmt.Errorf("reading library: %w", err)
	}

	idx := make(LibraryIndex)
	for _, cat := range categories {
		if !cat.IsDir() {
			continue
		}
		collections, err := os.ReadDir(filepath.Join(root, cat.Name()))
		if err != nil {
			return nil, fmt.Errorf("reading category %s: %w", cat.Name(), err)
		}

		idx[cat.Name()] = make(map[string][]string)
		for _, col := range collections {
			if !col.IsDir() {
				continue
			}
			files, err := os.ReadDir(filepath.Join(root, cat.Name(), col.Name()))
			if err != nil {
				return nil, fmt.Errorf("reading collection %s/%s: %w", cat.Name(), col.Name(), err)
			}
			var tracks []string
			for _, f := range files {
				if !f.Type().IsRegular() || !IsAudioFile(f.Name()) {
					continue
				}
				tracks = append(tracks, filepath.ToSlash(filepath.Join(cat.Name(), col.Name(), f.Name())))
			}
			if len(tracks) > 0 {
				idx[cat.Name()][col.Name()] = tracks
			}
		}
	}
	return idx, nil
}

// Counts returns the number of categories, collections and tracks.
func (idx LibraryIndex) Counts() (categories, collections, tracks int) {
	for _, cols := range idx {
		categories++
		for _, t := range cols {
			collections++
			tracks += len(t)
		}
	}
	return categories, collections, tracks
}

// Collection returns the tracks of one collection, or nil.
func (idx LibraryIndex) Collection(category, collection string) []string {
	return idx[category][collection]
}

// Categories returns category names, sorted.
func (idx LibraryIndex) Categories() []string {
	names := make([]string, 0, len(idx))
	for n := range idx {
		names = append(names, n)
	}
	sort.Strings(names)
	return names
}

// WriteIndex writes the index as indented JSON (music-index.json).
func (idx LibraryIndex) WriteIndex(path string) error {
	data, err := json.MarshalIndent(idx, "", "  ")
	if err != nil {
		return fmt.Errorf("encoding index: %w", err)
	}
	if err := os.WriteFile(path, append(data, '\n'), 0o644); err != nil {
		return fmt.Errorf("writing index: %w", err)
	}
	return nil
}
