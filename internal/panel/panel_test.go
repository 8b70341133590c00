package panel

import (
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func get(t *testing.T, h http.Handler, target string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(http.MethodGet, target, nil)
	w := httptest.NewRecorder()
	h.ServeHTTP(w, req)
	return w
}

func TestHandlerServesRoot(t *testing.T) {
	w := get(t, Handler(""), "/")

	if w.Code != http.StatusOK {
		t.Errorf("GET /: got status %d, want 200", w.Code)
	}
	if !strings.Contains(w.Body.String(), "<!DOCTYPE html>") {
		t.Error("GET /: response doesn't contain HTML doctype")
	}
	if got := w.Header().Get("Cache-Control"); got != "no-cache, must-revalidate" {
		t.Errorf("Cache-Control = %q", got)
	}
}

func TestHandlerServesIndexByName(t *testing.T) {
	w := get(t, Handler(""), "/index.html")

	if w.Code != http.StatusOK {
		t.Errorf("GET /index.html: got status %d, want 200 (no redirect)", w.Code)
	}
	if !strings.Contains(w.Body.String(), "<!DOCTYPE html>") {
		t.Error("GET /index.html: expected index page")
	}
}

func TestHandlerServesStaticAssets(t *testing.T) {
	handler := Handler("")

	for _, asset := range []string{"/app.js", "/style.css", "/manifest.json"} {
		w := get(t, handler, asset)
		if w.Code != http.StatusOK {
			t.Errorf("GET %s: got status %d, want 200", asset, w.Code)
		}
		if w.Body.Len() == 0 {
			t.Errorf("GET %s: empty response body", asset)
		}
	}
}

func TestHandlerScriptTargetsAPI(t *testing.T) {
	body := get(t, Handler(""), "/app.js").Body.String()

	for _, want := range []string{"/api/v1", "/ws"} {
		if !strings.Contains(body, want) {
			t.Errorf("app.js does not reference %q", want)
		}
	}
}

func TestHandlerFallback(t *testing.T) {
	handler := Handler("")

	for _, route := range []string{"/triggers", "/some/deep/route"} {
		w := get(t, handler, route)
		if w.Code != http.StatusOK {
			t.Errorf("GET %s: got status %d, want 200 (fallback)", route, w.Code)
		}
		if !strings.Contains(w.Body.String(), "<!DOCTYPE html>") {
			t.Errorf("GET %s: fallback didn't serve index.html", route)
		}
	}
}

func TestHandlerMissingFileIs404(t *testing.T) {
	w := get(t, Handler(""), "/missing.js")
	if w.Code != http.StatusNotFound {
		t.Errorf("GET /missing.js: got status %d, want 404", w.Code)
	}
}

func TestHandlerFilesystemMode(t *testing.T) {
	dir := t.TempDir()
	indexContent := `<!DOCTYPE html><html><body>filesystem panel</body></html>`
	if err := os.WriteFile(filepath.Join(dir, "index.html"), []byte(indexContent), 0o644); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(filepath.Join(dir, "test.js"), []byte("console.log('test')"), 0o644); err != nil {
		t.Fatal(err)
	}

	handler := Handler(dir)

	if w := get(t, handler, "/"); !strings.Contains(w.Body.String(), "filesystem panel") {
		t.Errorf("filesystem GET /: expected filesystem content, got %q", w.Body.String())
	}
	if w := get(t, handler, "/test.js"); w.Code != http.StatusOK {
		t.Errorf("filesystem GET /test.js: got status %d, want 200", w.Code)
	}
	if w := get(t, handler, "/deep/route"); !strings.Contains(w.Body.String(), "filesystem panel") {
		t.Error("filesystem fallback didn't serve filesystem index.html")
	}
	if w := get(t, handler, "/app.js"); w.Code != http.StatusNotFound {
		t.Errorf("filesystem mode served embedded app.js (status %d)", w.Code)
	}
}

func TestHandlerInvalidDirFallsBackToEmbed(t *testing.T) {
	w := get(t, Handler("/nonexistent/dir/that/does/not/exist"), "/")

	if w.Code != http.StatusOK {
		t.Errorf("invalid dir GET /: got status %d, want 200", w.Code)
	}
	if !strings.Contains(w.Body.String(), "<!DOCTYPE html>") {
		t.Error("invalid dir: didn't fall back to embedded index.html")
	}
}
