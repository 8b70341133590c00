// Package api implements the HTTP REST API and WebSocket server for Tavernlight.
//
// This package provides:
//   - REST endpoints for scenes, triggers, audio channels and lighting
//   - WebSocket hub pushing session events to the control panel
//   - Session history queries backed by SQLite
//   - Middleware stack (request ID, logging, recovery, CORS)
//
// # Architecture
//
// The API server is the presentation surface over the orchestrator. Reads
// are pure getters; writes call the orchestrator or the mixer directly.
// Session events reach WebSocket clients through the event bus, on which
// the Hub is registered as one sink:
//
//	bus.Add("websocket", hub)
//	srv, _ := api.New(api.Deps{..., ExternalHub: hub})
//
// A panel subscribes with a filter of event types ("scene.started",
// "trigger.*" or "*") and optionally one scene or trigger ID. The reply
// carries a Status snapshot and the hub's current sequence number; every
// event after it is numbered, so a gap means the panel missed events.
//
// # Routes
//
//	GET    /api/v1/health
//	GET    /api/v1/status
//	GET    /api/v1/system
//	GET    /api/v1/scenes            POST /api/v1/scenes/stop
//	GET    /api/v1/scenes/{id}       POST /api/v1/scenes/{id}/start
//	POST   /api/v1/scenes/{id}/music
//	GET    /api/v1/triggers          POST /api/v1/triggers/{id}/execute
//	POST   /api/v1/stop
//	GET    /api/v1/audio             PUT  /api/v1/audio/volume
//	GET    /api/v1/audio/music       POST /api/v1/audio/music[/{action}]
//	POST   /api/v1/audio/ambient     DELETE /api/v1/audio/ambient
//	POST   /api/v1/audio/trigger
//	GET    /api/v1/library
//	GET    /api/v1/lighting          POST /api/v1/lighting/probe
//	GET    /api/v1/history[/{id}]
//	GET    /api/v1/ws
//	GET    /metrics                  (Prometheus, when enabled)
//	GET    /panel/
//
// # Errors
//
// Errors use a {status, code, message} body. Unknown scenes and triggers
// map to 404, invalid volumes to 400.
//
// # Graceful Degradation
//
// MQTT, InfluxDB and history are optional. Without them the session
// endpoints keep working; /history answers 404.
package api
