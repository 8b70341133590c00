package panel

import (
	"embed"
	"fmt"
	"io/fs"
	"net/http"
	"os"
	"path"
	"strings"
)

//go:embed web/*
var content embed.FS

// indexFile is served for the root and for every unknown path.
const indexFile = "index.html"

// Handler returns an http.Handler that serves the game master's control panel.
//
// When dir names an existing directory the assets are read from disk on every
// request, so the panel can be edited without rebuilding the binary. Otherwise
// the embedded copy is served.
//
// Unknown paths fall back to index.html with status 200, so deep links into
// the panel's views keep working after a reload. Paths that look like files
// (they carry an extension) get a plain 404 instead.
// Panics if the embedded web assets cannot be loaded (build error).
func Handler(dir string) http.Handler {
	fileSystem := assets(dir)
	fileServer := http.FileServer(fileSystem)

	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		// The panel is tiny and changes with the binary; always revalidate.
		w.Header().Set("Cache-Control", "no-cache, must-revalidate")

		upath := path.Clean("/" + r.URL.Path)
		if upath == "/" || upath == "/"+indexFile {
			serveIndex(w, r, fileServer)
			return
		}

		f, err := fileSystem.Open(strings.TrimPrefix(upath, "/"))
		if err == nil {
			f.Close()
			fileServer.ServeHTTP(w, r)
			return
		}

		if path.Ext(upath) != "" {
			http.NotFound(w, r)
			return
		}
		serveIndex(w, r, fileServer)
	})
}

// assets picks the filesystem override or the embedded build.
func assets(dir string) http.FileSystem {
	if dir != "" {
		if info, err := os.Stat(dir); err == nil && info.IsDir() {
			return http.Dir(dir)
		}
	}
	webFS, err := fs.Sub(content, "web")
	if err != nil {
		panic(fmt.Sprintf("panel: failed to load embedded web assets: %v", err))
	}
	return http.FS(webFS)
}

// serveIndex rewrites the request to the root so FileServer answers with
// index.html instead of redirecting.
func serveIndex(w http.ResponseWriter, r *http.Request, fileServer http.Handler) {
	r2 := r.Clone(r.Context())
	r2.URL.Path = "/"
	fileServer.ServeHTTP(w, r2)
}
