package influxdb

import (
	"time"

	"github.com/influxdata/influxdb-client-go/v2/api/write"
)

// Measurement names.
const (
	MeasurementSessionEvents = "session_events"
	MeasurementVolume        = "audio_volume"
	MeasurementLighting      = "lighting_requests"
)

// SessionEvent is one orchestrator event as written to InfluxDB.
type SessionEvent struct {
	Type       string // e.g. "trigger.completed"
	SceneID    string
	TriggerID  string
	DurationMS int // only meaningful for *.stopped and *.completed
	At         time.Time
}

// WriteSessionEvent records a scene, trigger or session event.
//
// Tags: site, type, and scene_id / trigger_id when set (low cardinality,
// bounded by the catalog). Fields: count=1 and duration_ms when non-zero.
//
// Example:
//
//	client.WriteSessionEvent(influxdb.SessionEvent{
//	    Type: "trigger.completed", TriggerID: "lightning", DurationMS: 3100,
//	})
func (c *Client) WriteSessionEvent(ev SessionEvent) {
	tags := map[string]string{"type": ev.Type}
	if ev.SceneID != "" {
		tags["scene_id"] = ev.SceneID
	}
	if ev.TriggerID != "" {
		tags["trigger_id"] = ev.TriggerID
	}
	fields := map[string]interface{}{"count": 1}
	if ev.DurationMS > 0 {
		fields["duration_ms"] = ev.DurationMS
	}
	at := ev.At
	if at.IsZero() {
		at = time.Now()
	}
	c.WritePointWithTime(MeasurementSessionEvents, tags, fields, at)
}

// WriteVolume records a category volume change.
func (c *Client) WriteVolume(category string, level float64) {
	c.WritePoint(MeasurementVolume,
		map[string]string{"category": category},
		map[string]interface{}{"level": level})
}

// WriteLightingStats records cumulative request and failure counters for
// one lighting integration ("wled" or "home_assistant").
func (c *Client) WriteLightingStats(integration string, requests, failures uint64) {
	c.WritePoint(MeasurementLighting,
		map[string]string{"integration": integration},
		map[string]interface{}{"requests": requests, "failures": failures})
}

// WritePoint writes a point stamped now.
func (c *Client) WritePoint(measurement string, tags map[string]string, fields map[string]interface{}) {
	c.WritePointWithTime(measurement, tags, fields, time.Now())
}

// WritePointWithTime writes a point with an explicit timestamp. The site
// tag is added when the caller did not set one.
func (c *Client) WritePointWithTime(measurement string, tags map[string]string, fields map[string]interface{}, timestamp time.Time) {
	if !c.IsConnected() {
		return
	}
	if tags == nil {
		tags = make(map[string]string, 1)
	}
	if _, ok := tags["site"]; !ok && c.site != "" {
		tags["site"] = c.site
	}
	c.writeAPI.WritePoint(write.NewPoint(measurement, tags, fields, timestamp))
}
