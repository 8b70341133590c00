package api

import (
	"net/http"
	"runtime"
	"time"
)

// SystemMetrics represents the complete system metrics response.
type SystemMetrics struct {
	Timestamp     string           `json:"timestamp"`
	Version       string           `json:"version"`
	UptimeSeconds int64            `json:"uptime_seconds"`
	Runtime       RuntimeMetrics   `json:"runtime"`
	WebSocket     WSMetrics        `json:"websocket"`
	MQTT          MQTTMetrics      `json:"mqtt"`
	Lighting      LightingMetrics  `json:"lighting"`
	Session       SessionMetrics   `json:"session"`
	Database      *DatabaseMetrics `json:"database,omitempty"`
}

// RuntimeMetrics contains Go runtime statistics.
type RuntimeMetrics struct {
	Goroutines    int     `json:"goroutines"`
	MemoryAllocMB float64 `json:"memory_alloc_mb"`
	MemoryTotalMB float64 `json:"memory_total_mb"`
	NumGC         uint32  `json:"num_gc"`
}

// WSMetrics contains WebSocket hub statistics.
type WSMetrics struct {
	ConnectedClients int `json:"connected_clients"`
}

// MQTTMetrics contains MQTT client statistics.
type MQTTMetrics struct {
	Enabled   bool `json:"enabled"`
	Connected bool `json:"connected"`
}

// LightingMetrics contains request counters per integration.
type LightingMetrics struct {
	WLEDRequests uint64 `json:"wled_requests"`
	WLEDFailures uint64 `json:"wled_failures"`
	HubRequests  uint64 `json:"hub_requests"`
	HubFailures  uint64 `json:"hub_failures"`
}

// SessionMetrics summarises the orchestrator.
type SessionMetrics struct {
	ActiveScene     string `json:"active_scene,omitempty"`
	RunningTriggers int    `json:"running_triggers"`
	Scenes          int    `json:"scenes"`
	Triggers        int    `json:"triggers"`
}

// DatabaseMetrics contains database connection pool statistics.
type DatabaseMetrics struct {
	OpenConnections int   `json:"open_connections"`
	InUse           int   `json:"in_use"`
	Idle            int   `json:"idle"`
	WaitCount       int64 `json:"wait_count"`
}

// handleSystemMetrics returns a JSON snapshot of process and service state.
// Prometheus scrapes the text endpoint; this one feeds the panel.
func (s *Server) handleSystemMetrics(w http.ResponseWriter, _ *http.Request) {
	var memStats runtime.MemStats
	runtime.ReadMemStats(&memStats)

	status := s.manager.Status()
	lightStats := s.lights.Stats()

	metrics := SystemMetrics{
		Timestamp:     time.Now().UTC().Format(time.RFC3339),
		Version:       s.version,
		UptimeSeconds: int64(time.Since(s.startTime).Seconds()),
		Runtime: RuntimeMetrics{
			Goroutines:    runtime.NumGoroutine(),
			MemoryAllocMB: float64(memStats.Alloc) / 1024 / 1024,
			MemoryTotalMB: float64(memStats.TotalAlloc) / 1024 / 1024,
			NumGC:         memStats.NumGC,
		},
		Lighting: LightingMetrics{
			WLEDRequests: lightStats.WLEDRequests,
			WLEDFailures: lightStats.WLEDFailures,
			HubRequests:  lightStats.HubRequests,
			HubFailures:  lightStats.HubFailures,
		},
		Session: SessionMetrics{
			RunningTriggers: status.RunningTriggers,
			Scenes:          len(s.manager.Scenes()),
			Triggers:        len(s.manager.Triggers()),
		},
	}
	if status.ActiveScene != nil {
		metrics.Session.ActiveScene = status.ActiveScene.ID
	}
	if s.hub != nil {
		metrics.WebSocket.ConnectedClients = s.hub.ClientCount()
	}

	if s.mqtt != nil {
		metrics.MQTT = MQTTMetrics{
			Enabled:   true,
			Connected: s.mqtt.IsConnected(),
		}
	}

	if s.db != nil {
		dbStats := s.db.Stats()
		metrics.Database = &DatabaseMetrics{
			OpenConnections: dbStats.OpenConnections,
			InUse:           dbStats.InUse,
			Idle:            dbStats.Idle,
			WaitCount:       dbStats.WaitCount,
		}
	}

	writeJSON(w, http.StatusOK, metrics)
}
