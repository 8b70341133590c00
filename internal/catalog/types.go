package catalog

import (
	"encoding/json"
	"fmt"
	"path/filepath"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/nerrad567/tavernlight-core/internal/lighting"
)

// PlaylistPrefix marks a named playlist reference in a music source.
const PlaylistPrefix = "playlist:"

// StringList is a list of strings that may be written as a single scalar
// or as a sequence in YAML and JSON.
type StringList []string

// UnmarshalYAML accepts either "a.mp3" or ["a.mp3", "b.mp3"].
func (l *StringList) UnmarshalYAML(node *yaml.Node) error {
	switch node.Kind {
	case yaml.ScalarNode:
		var s string
		if err := node.Decode(&s); err != nil {
			return err
		}
		*l = StringList{s}
		return nil
	case yaml.SequenceNode:
		var items []string
		if err := node.Decode(&items); err != nil {
			return err
		}
		*l = items
		return nil
	default:
		return fmt.Errorf("line %d: expected a string or a list of strings", node.Line)
	}
}

// UnmarshalJSON accepts either "a.mp3" or ["a.mp3", "b.mp3"].
func (l *StringList) UnmarshalJSON(data []byte) error {
	var s string
	if err := json.Unmarshal(data, &s); err == nil {
		*l = StringList{s}
		return nil
	}
	var items []string
	if err := json.Unmarshal(data, &items); err != nil {
		return fmt.Errorf("expected a string or a list of strings")
	}
	*l = items
	return nil
}

// Clone returns an independent copy.
func (l StringList) Clone() StringList {
	if l == nil {
		return nil
	}
	return append(StringList(nil), l...)
}

// MusicSource names what to play on the music channel: a single file, an
// explicit ordered list, or a playlist reference ("playlist:<name>" or a
// path ending in .m3u, .m3u8 or .txt).
type MusicSource struct {
	StringList
}

// UnmarshalYAML delegates to StringList.
func (m *MusicSource) UnmarshalYAML(node *yaml.Node) error {
	return m.StringList.UnmarshalYAML(node)
}

// UnmarshalJSON delegates to StringList.
func (m *MusicSource) UnmarshalJSON(data []byte) error {
	return m.StringList.UnmarshalJSON(data)
}

// MarshalYAML writes a single entry as a scalar.
func (m MusicSource) MarshalYAML() (any, error) {
	if len(m.StringList) == 1 {
		return m.StringList[0], nil
	}
	return []string(m.StringList), nil
}

// MarshalJSON writes a single entry as a string.
func (m MusicSource) MarshalJSON() ([]byte, error) {
	if len(m.StringList) == 1 {
		return json.Marshal(m.StringList[0])
	}
	return json.Marshal([]string(m.StringList))
}

// IsZero reports whether no source is set.
func (m MusicSource) IsZero() bool { return len(m.StringList) == 0 }

// Playlist returns the playlist reference when the source is one.
// Named references return the name with named=true; playlist files return
// the path with named=false.
func (m MusicSource) Playlist() (ref string, named bool, ok bool) {
	if len(m.StringList) != 1 {
		return "", false, false
	}
	s := strings.TrimSpace(m.StringList[0])
	if name, found := strings.CutPrefix(s, PlaylistPrefix); found {
		return name, true, true
	}
	switch strings.ToLower(filepath.Ext(s)) {
	case ".m3u", ".m3u8", ".txt":
		return s, false, true
	}
	return "", false, false
}

// Scene is a named ambient preset: looping audio layers plus a lighting state.
// Scenes are immutable once loaded.
type Scene struct {
	ID       string         `yaml:"id" json:"id"`
	Name     string         `yaml:"name" json:"name"`
	Audio    *SceneAudio    `yaml:"audio,omitempty" json:"audio,omitempty"`
	Lighting *LightingBlock `yaml:"lighting,omitempty" json:"lighting,omitempty"`
}

// SceneAudio describes a scene's sound. Music is offered to the music
// channel on request and is never started by scene activation.
type SceneAudio struct {
	Music   MusicSource `yaml:"music,omitempty" json:"music,omitempty"`
	Ambient StringList  `yaml:"ambient,omitempty" json:"ambient,omitempty"`
}

// LightingBlock is the lighting part of a scene or a trigger event.
type LightingBlock struct {
	WLED          *lighting.Intent `yaml:"wled,omitempty" json:"wled,omitempty"`
	HomeAssistant StringList       `yaml:"home_assistant,omitempty" json:"home_assistant,omitempty"`
}

// Trigger is a named one-shot sequence of timed events.
type Trigger struct {
	ID       string  `yaml:"id" json:"id"`
	Name     string  `yaml:"name" json:"name"`
	Sequence []Event `yaml:"sequence" json:"sequence"`
}

// Event is one step of a trigger sequence. Delay is in milliseconds and is
// measured from the previous event's start.
type Event struct {
	Delay    int            `yaml:"delay,omitempty" json:"delay,omitempty"`
	Audio    *EventAudio    `yaml:"audio,omitempty" json:"audio,omitempty"`
	Lighting *LightingBlock `yaml:"lighting,omitempty" json:"lighting,omitempty"`
}

// EventAudio lists the sounds an event starts.
type EventAudio struct {
	Trigger string     `yaml:"trigger,omitempty" json:"trigger,omitempty"`
	Ambient StringList `yaml:"ambient,omitempty" json:"ambient,omitempty"`
}

// Summary is the id and name pair shown in scene and trigger pickers.
type Summary struct {
	ID   string `json:"id"`
	Name string `json:"name"`
}

// DeepCopy returns an independent copy of the lighting block.
func (b *LightingBlock) DeepCopy() *LightingBlock {
	if b == nil {
		return nil
	}
	return &LightingBlock{
		WLED:          b.WLED.DeepCopy(),
		HomeAssistant: b.HomeAssistant.Clone(),
	}
}

// DeepCopy returns an independent copy of the scene.
func (s *Scene) DeepCopy() *Scene {
	if s == nil {
		return nil
	}
	cp := &Scene{ID: s.ID, Name: s.Name, Lighting: s.Lighting.DeepCopy()}
	if s.Audio != nil {
		cp.Audio = &SceneAudio{
			Music:   MusicSource{s.Audio.Music.Clone()},
			Ambient: s.Audio.Ambient.Clone(),
		}
	}
	return cp
}

// DeepCopy returns an independent copy of the event.
func (e Event) DeepCopy() Event {
	cp := Event{Delay: e.Delay, Lighting: e.Lighting.DeepCopy()}
	if e.Audio != nil {
		cp.Audio = &EventAudio{Trigger: e.Audio.Trigger, Ambient: e.Audio.Ambient.Clone()}
	}
	return cp
}

// DeepCopy returns an independent copy of the trigger, sequence included.
func (t *Trigger) DeepCopy() *Trigger {
	if t == nil {
		return nil
	}
	cp := &Trigger{ID: t.ID, Name: t.Name}
	if t.Sequence != nil {
		cp.Sequence = make([]Event, len(t.Sequence))
		for i, ev := range t.Sequence {
			cp.Sequence[i] = ev.DeepCopy()
		}
	}
	return cp
}

// Ambient returns the scene's ambient layers, or nil.
func (s *Scene) Ambient() []string {
	if s == nil || s.Audio == nil {
		return nil
	}
	return s.Audio.Ambient
}

// WLED returns the scene's WLED intent, or nil.
func (s *Scene) WLED() *lighting.Intent {
	if s == nil || s.Lighting == nil {
		return nil
	}
	return s.Lighting.WLED
}

// HubCommands returns the scene's Home Assistant commands, or nil.
func (s *Scene) HubCommands() []string {
	if s == nil || s.Lighting == nil {
		return nil
	}
	return s.Lighting.HomeAssistant
}

// Duration returns the total of the sequence's relative delays.
func (t *Trigger) Duration() int {
	total := 0
	for _, ev := range t.Sequence {
		total += ev.Delay
	}
	return total
}
