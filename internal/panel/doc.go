// Package panel serves the game master's control panel.
//
// The panel is a single static page (HTML, CSS and one script) embedded into
// the binary with go:embed. It talks to the REST API under /api/v1 and
// follows session events over the WebSocket endpoint.
//
// # Usage
//
//	r.Handle("/panel/*", http.StripPrefix("/panel", panel.Handler(cfg.API.PanelDir)))
//
// An empty dir serves the embedded copy; a directory path serves files from
// disk so the page can be tweaked during a session without a rebuild.
package panel
