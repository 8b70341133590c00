package catalog

import (
	"errors"
	"fmt"
	"os"
	"strings"

	"gopkg.in/yaml.v3"
)

// file is the on-disk layout of a catalog file.
type file struct {
	Scenes   []*Scene   `yaml:"scenes"`
	Triggers []*Trigger `yaml:"triggers"`
}

// Catalog is the immutable set of scenes and triggers for a session.
//
// Lookups return deep copies, so callers may transform what they receive
// without affecting the stored definitions.
//
// Thread Safety: a Catalog is never modified after Parse, so all methods are
// safe for concurrent use.
type Catalog struct {
	scenes     []*Scene
	sceneByID  map[string]*Scene
	triggers   []*Trigger
	triggerIdx map[string]*Trigger
}

// Load reads and validates a catalog file.
func Load(path string) (*Catalog, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading catalog: %w", err)
	}
	c, err := Parse(data)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return c, nil
}

// Parse decodes and validates catalog YAML.
//
// Returns:
//   - *Catalog: the parsed catalog, scenes and triggers in declaration order
//   - error: a YAML syntax error, or ErrInvalidCatalog listing every problem found
func Parse(data []byte) (*Catalog, error) {
	var f file
	if err := yaml.Unmarshal(data, &f); err != nil {
		return nil, fmt.Errorf("parsing catalog: %w", err)
	}

	c := &Catalog{
		sceneByID:  make(map[string]*Scene, len(f.Scenes)),
		triggerIdx: make(map[string]*Trigger, len(f.Triggers)),
	}

	var errs []string
	for i, s := range f.Scenes {
		if s == nil {
			errs = append(errs, fmt.Sprintf("scenes[%d]: empty entry", i))
			continue
		}
		errs = append(errs, validateScene(i, s)...)
		if _, dup := c.sceneByID[s.ID]; dup && s.ID != "" {
			errs = append(errs, fmt.Sprintf("scenes[%d]: duplicate id %q", i, s.ID))
			continue
		}
		if s.Name == "" {
			s.Name = s.ID
		}
		c.scenes = append(c.scenes, s)
		c.sceneByID[s.ID] = s
	}

	for i, t := range f.Triggers {
		if t == nil {
			errs = append(errs, fmt.Sprintf("triggers[%d]: empty entry", i))
			continue
		}
		errs = append(errs, validateTrigger(i, t)...)
		if _, dup := c.triggerIdx[t.ID]; dup && t.ID != "" {
			errs = append(errs, fmt.Sprintf("triggers[%d]: duplicate id %q", i, t.ID))
			continue
		}
		if t.Name == "" {
			t.Name = t.ID
		}
		c.triggers = append(c.triggers, t)
		c.triggerIdx[t.ID] = t
	}

	if len(errs) > 0 {
		return nil, fmt.Errorf("%w: %s", ErrInvalidCatalog, strings.Join(errs, "; "))
	}
	return c, nil
}

func validateScene(i int, s *Scene) []string {
	var errs []string
	if s.ID == "" {
		errs = append(errs, fmt.Sprintf("scenes[%d]: id is required", i))
	}
	if s.Audio != nil {
		for j, p := range s.Audio.Ambient {
			if strings.TrimSpace(p) == "" {
				errs = append(errs, fmt.Sprintf("scenes[%d].audio.ambient[%d]: empty path", i, j))
			}
		}
	}
	if s.Lighting != nil && s.Lighting.WLED != nil && s.Lighting.WLED.Restore {
		errs = append(errs, fmt.Sprintf("scenes[%d].lighting.wled: restore is only valid in trigger events", i))
	}
	return errs
}

func validateTrigger(i int, t *Trigger) []string {
	var errs []string
	if t.ID == "" {
		errs = append(errs, fmt.Sprintf("triggers[%d]: id is required", i))
	}
	if len(t.Sequence) == 0 {
		errs = append(errs, fmt.Sprintf("triggers[%d]: sequence is empty", i))
	}
	for j, ev := range t.Sequence {
		if ev.Delay < 0 {
			errs = append(errs, fmt.Sprintf("triggers[%d].sequence[%d]: delay must not be negative", i, j))
		}
		if ev.Lighting != nil && ev.Lighting.WLED != nil && ev.Lighting.WLED.Duration != nil && *ev.Lighting.WLED.Duration < 0 {
			errs = append(errs, fmt.Sprintf("triggers[%d].sequence[%d]: duration must not be negative", i, j))
		}
	}
	return errs
}

// Scene returns a copy of the scene with the given ID.
func (c *Catalog) Scene(id string) (*Scene, error) {
	s, ok := c.sceneByID[id]
	if !ok {
		return nil, ErrSceneNotFound
	}
	return s.DeepCopy(), nil
}

// Scenes returns copies of all scenes in declaration order.
func (c *Catalog) Scenes() []*Scene {
	out := make([]*Scene, len(c.scenes))
	for i, s := range c.scenes {
		out[i] = s.DeepCopy()
	}
	return out
}

// Trigger returns a copy of the trigger with the given ID.
func (c *Catalog) Trigger(id string) (*Trigger, error) {
	t, ok := c.triggerIdx[id]
	if !ok {
		return nil, ErrTriggerNotFound
	}
	return t.DeepCopy(), nil
}

// Triggers returns copies of all triggers in declaration order.
func (c *Catalog) Triggers() []*Trigger {
	out := make([]*Trigger, len(c.triggers))
	for i, t := range c.triggers {
		out[i] = t.DeepCopy()
	}
	return out
}

// SceneSummaries returns id and name pairs in declaration order.
func (c *Catalog) SceneSummaries() []Summary {
	out := make([]Summary, len(c.scenes))
	for i, s := range c.scenes {
		out[i] = Summary{ID: s.ID, Name: s.Name}
	}
	return out
}

// TriggerSummaries returns id and name pairs in declaration order.
func (c *Catalog) TriggerSummaries() []Summary {
	out := make([]Summary, len(c.triggers))
	for i, t := range c.triggers {
		out[i] = Summary{ID: t.ID, Name: t.Name}
	}
	return out
}

// IsNotFound reports whether err is a scene or trigger lookup miss.
func IsNotFound(err error) bool {
	return errors.Is(err, ErrSceneNotFound) || errors.Is(err, ErrTriggerNotFound)
}
