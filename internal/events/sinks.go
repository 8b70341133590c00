package events

import (
	"time"

	"github.com/nerrad567/tavernlight-core/internal/infrastructure/influxdb"
	"github.com/nerrad567/tavernlight-core/internal/infrastructure/mqtt"
	"github.com/nerrad567/tavernlight-core/internal/orchestrator"
)

// ─── MQTT ──────────────────────────────────────────────────────────

// JSONPublisher is the subset of the MQTT client used by MQTTSink.
type JSONPublisher interface {
	PublishJSON(topic string, v any, retained bool) error
}

// SceneState is the retained body of tavernlight/state/scene.
type SceneState struct {
	Active bool      `json:"active"`
	ID     string    `json:"id,omitempty"`
	Name   string    `json:"name,omitempty"`
	Since  time.Time `json:"since"`
}

// MQTTSink mirrors every event to tavernlight/event/<type> and keeps the
// retained scene state topic current.
type MQTTSink struct {
	pub    JSONPublisher
	topics mqtt.Topics
	logger Logger
}

// NewMQTTSink creates a sink publishing through pub.
func NewMQTTSink(pub JSONPublisher, logger Logger) *MQTTSink {
	if logger == nil {
		logger = noopLogger{}
	}
	return &MQTTSink{pub: pub, logger: logger}
}

// HandleEvent publishes ev. Failures are logged; the broker may be away.
func (s *MQTTSink) HandleEvent(ev orchestrator.Event) {
	if err := s.pub.PublishJSON(s.topics.Event(string(ev.Type)), ev, false); err != nil {
		s.logger.Warn("mqtt event publish failed", "type", ev.Type, "error", err)
	}

	var state *SceneState
	switch ev.Type {
	case orchestrator.EventSceneStarted:
		state = &SceneState{Active: true, ID: ev.SceneID, Name: ev.SceneName, Since: ev.At}
	case orchestrator.EventSceneStopped:
		state = &SceneState{Since: ev.At}
	}
	if state == nil {
		return
	}
	if err := s.pub.PublishJSON(s.topics.SceneState(), state, true); err != nil {
		s.logger.Warn("mqtt scene state publish failed", "error", err)
	}
}

// ─── InfluxDB ──────────────────────────────────────────────────────

// TelemetryWriter is the subset of the InfluxDB client used by InfluxSink.
type TelemetryWriter interface {
	WriteSessionEvent(ev influxdb.SessionEvent)
	WriteVolume(category string, level float64)
}

// InfluxSink writes events as session telemetry.
type InfluxSink struct {
	w TelemetryWriter
}

// NewInfluxSink creates a sink writing through w.
func NewInfluxSink(w TelemetryWriter) *InfluxSink {
	return &InfluxSink{w: w}
}

// HandleEvent writes ev. Volume changes also go to the volume measurement.
func (s *InfluxSink) HandleEvent(ev orchestrator.Event) {
	s.w.WriteSessionEvent(influxdb.SessionEvent{
		Type:       string(ev.Type),
		SceneID:    ev.SceneID,
		TriggerID:  ev.TriggerID,
		DurationMS: ev.DurationMS,
		At:         ev.At,
	})
	if ev.Type == orchestrator.EventVolumeChanged {
		if cat, level, ok := volumeData(ev); ok {
			s.w.WriteVolume(cat, level)
		}
	}
}

// ─── Prometheus ────────────────────────────────────────────────────

// Recorder is the subset of the metrics registry used by MetricsSink.
type Recorder interface {
	SceneStarted(sceneID string)
	TriggerStarted(triggerID string)
	TriggerCompleted(triggerID string, d time.Duration)
	SessionStopped()
	VolumeChanged(category string)
}

// MetricsSink turns events into Prometheus counters.
type MetricsSink struct {
	r Recorder
}

// NewMetricsSink creates a sink updating r.
func NewMetricsSink(r Recorder) *MetricsSink {
	return &MetricsSink{r: r}
}

// HandleEvent updates the counter matching ev.
func (s *MetricsSink) HandleEvent(ev orchestrator.Event) {
	switch ev.Type {
	case orchestrator.EventSceneStarted:
		s.r.SceneStarted(ev.SceneID)
	case orchestrator.EventTriggerStarted:
		s.r.TriggerStarted(ev.TriggerID)
	case orchestrator.EventTriggerCompleted:
		s.r.TriggerCompleted(ev.TriggerID, time.Duration(ev.DurationMS)*time.Millisecond)
	case orchestrator.EventSessionStopped:
		s.r.SessionStopped()
	case orchestrator.EventVolumeChanged:
		if cat, _, ok := volumeData(ev); ok {
			s.r.VolumeChanged(cat)
		}
	}
}

// volumeData reads the category and level of a volume_changed event.
func volumeData(ev orchestrator.Event) (string, float64, bool) {
	cat, ok := ev.Data["category"].(string)
	if !ok {
		return "", 0, false
	}
	level, ok := ev.Data["volume"].(float64)
	return cat, level, ok
}
