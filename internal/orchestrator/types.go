package orchestrator

import (
	"time"

	"github.com/google/uuid"
	"github.com/nerrad567/tavernlight-core/internal/audio"
	"github.com/nerrad567/tavernlight-core/internal/catalog"
	"github.com/nerrad567/tavernlight-core/internal/lighting"
)

// EventType names a session event pushed to subscribers.
type EventType string

const (
	EventSceneStarted     EventType = "scene.started"
	EventSceneStopped     EventType = "scene.stopped"
	EventTriggerStarted   EventType = "trigger.started"
	EventTriggerCompleted EventType = "trigger.completed"
	EventVolumeChanged    EventType = "audio.volume_changed"
	EventSessionStopped   EventType = "session.stopped"
)

// Event is a session change published after it has been applied.
type Event struct {
	Type        EventType      `json:"type"`
	SceneID     string         `json:"scene_id,omitempty"`
	SceneName   string         `json:"scene_name,omitempty"`
	TriggerID   string         `json:"trigger_id,omitempty"`
	TriggerName string         `json:"trigger_name,omitempty"`
	ExecutionID string         `json:"execution_id,omitempty"`
	DurationMS  int            `json:"duration_ms,omitempty"`
	Data        map[string]any `json:"data,omitempty"`
	At          time.Time      `json:"at"`
}

// RecordKind classifies a history record.
type RecordKind string

const (
	KindScene   RecordKind = "scene"
	KindTrigger RecordKind = "trigger"
	KindStopAll RecordKind = "stop_all"
)

// RecordStatus is the lifecycle state of a history record.
type RecordStatus string

const (
	StatusActive    RecordStatus = "active"    // scene currently running
	StatusRunning   RecordStatus = "running"   // trigger sequence in flight
	StatusStopped   RecordStatus = "stopped"   // scene ended by stop, toggle or replacement
	StatusCompleted RecordStatus = "completed" // trigger sequence finished
	StatusCancelled RecordStatus = "cancelled" // trigger sequence aborted by shutdown
)

// Record is one entry of the session history.
type Record struct {
	ID         string       `json:"id"`
	Kind       RecordKind   `json:"kind"`
	RefID      string       `json:"ref_id,omitempty"`
	Name       string       `json:"name,omitempty"`
	Status     RecordStatus `json:"status"`
	Events     int          `json:"events,omitempty"`
	StartedAt  time.Time    `json:"started_at"`
	EndedAt    *time.Time   `json:"ended_at,omitempty"`
	DurationMS *int         `json:"duration_ms,omitempty"`
}

// finish stamps the end time and duration.
func (r *Record) finish(status RecordStatus, at time.Time) {
	r.Status = status
	r.EndedAt = &at
	d := int(at.Sub(r.StartedAt).Milliseconds())
	r.DurationMS = &d
}

// Status is a read-only snapshot of the whole session.
type Status struct {
	ActiveScene     *catalog.Summary      `json:"active_scene"`
	RunningTriggers int                   `json:"running_triggers"`
	Audio           audio.Status          `json:"audio"`
	Lighting        lighting.Connectivity `json:"lighting"`
}

// GenerateID creates a new execution or record ID.
func GenerateID() string {
	return uuid.New().String()
}
