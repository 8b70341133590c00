package api

import (
	"context"
	"fmt"
	"sync"

	"github.com/nerrad567/tavernlight-core/internal/audio"
	"github.com/nerrad567/tavernlight-core/internal/catalog"
	"github.com/nerrad567/tavernlight-core/internal/lighting"
	"github.com/nerrad567/tavernlight-core/internal/orchestrator"
)

// ─── Mock Dependencies ─────────────────────────────────────────────

// mockManager records orchestrator calls.
type mockManager struct {
	mu         sync.Mutex
	scenes     map[string]catalog.Summary
	triggers   map[string]catalog.Summary
	active     *catalog.Summary
	calls      []string
	shutdown   bool
	statusFunc func() orchestrator.Status
}

func newMockManager() *mockManager {
	return &mockManager{
		scenes: map[string]catalog.Summary{
			"tavern": {ID: "tavern", Name: "The Tavern"},
			"forest": {ID: "forest", Name: "Deep Forest"},
		},
		triggers: map[string]catalog.Summary{
			"lightning": {ID: "lightning", Name: "Lightning Strike"},
		},
	}
}

func (m *mockManager) record(call string) {
	m.mu.Lock()
	m.calls = append(m.calls, call)
	m.mu.Unlock()
}

func (m *mockManager) lastCall() string {
	m.mu.Lock()
	defer m.mu.Unlock()
	if len(m.calls) == 0 {
		return ""
	}
	return m.calls[len(m.calls)-1]
}

func (m *mockManager) StartScene(_ context.Context, id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	sc, ok := m.scenes[id]
	if !ok {
		return fmt.Errorf("starting scene %q: %w", id, orchestrator.ErrSceneNotFound)
	}
	m.calls = append(m.calls, "start "+id)
	if m.active != nil && m.active.ID == id {
		m.active = nil
		return nil
	}
	m.active = &sc
	return nil
}

func (m *mockManager) StopScene(context.Context) {
	m.mu.Lock()
	m.active = nil
	m.mu.Unlock()
	m.record("stop")
}

func (m *mockManager) Scenes() []catalog.Summary {
	return []catalog.Summary{m.scenes["tavern"], m.scenes["forest"]}
}

func (m *mockManager) Triggers() []catalog.Summary {
	return []catalog.Summary{m.triggers["lightning"]}
}

func (m *mockManager) ExecuteTrigger(_ context.Context, id string) (string, error) {
	if m.shutdown {
		return "", orchestrator.ErrShuttingDown
	}
	if _, ok := m.triggers[id]; !ok {
		return "", fmt.Errorf("executing trigger %q: %w", id, orchestrator.ErrTriggerNotFound)
	}
	m.record("trigger " + id)
	return "exec-" + id, nil
}

func (m *mockManager) StopAll(context.Context) {
	m.mu.Lock()
	m.active = nil
	m.mu.Unlock()
	m.record("stop_all")
}

func (m *mockManager) Status() orchestrator.Status {
	if m.statusFunc != nil {
		return m.statusFunc()
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	st := orchestrator.Status{Audio: audio.Status{Volumes: map[audio.Category]float64{}}}
	if m.active != nil {
		a := *m.active
		st.ActiveScene = &a
	}
	return st
}

// mockMixer mirrors the mixer's validation rules without playing anything.
type mockMixer struct {
	mu        sync.Mutex
	volumes   map[audio.Category]float64
	music     *audio.Source
	loop      bool
	shuffle   bool
	paused    bool
	ambient   []string
	triggers  []string
	transport []string
}

func newMockMixer() *mockMixer {
	return &mockMixer{volumes: map[audio.Category]float64{
		audio.CategoryMusic: 1, audio.CategoryAmbient: 1, audio.CategoryTrigger: 1,
	}}
}

func (m *mockMixer) PlayMusic(_ context.Context, src audio.Source, loop, shuffle bool) error {
	if len(src.Tracks) == 0 {
		return audio.ErrEmptySource
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.music = &src
	m.loop, m.shuffle, m.paused = loop, shuffle, false
	return nil
}

func (m *mockMixer) transportCall(name string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.music == nil {
		return audio.ErrNoMusic
	}
	m.transport = append(m.transport, name)
	return nil
}

func (m *mockMixer) NextTrack() error     { return m.transportCall("next") }
func (m *mockMixer) PreviousTrack() error { return m.transportCall("prev") }
func (m *mockMixer) PauseMusic() error    { return m.transportCall("pause") }
func (m *mockMixer) ResumeMusic() error   { return m.transportCall("resume") }

func (m *mockMixer) StopMusic(context.Context) {
	m.mu.Lock()
	m.music = nil
	m.mu.Unlock()
}

func (m *mockMixer) CurrentTrack() *audio.TrackInfo {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.music == nil {
		return nil
	}
	return &audio.TrackInfo{Path: m.music.Tracks[0], Name: m.music.Tracks[0], Playing: true, Loop: m.loop, Shuffle: m.shuffle, Length: len(m.music.Tracks)}
}

func (m *mockMixer) PlayAmbient(_ context.Context, sources []string) error {
	m.mu.Lock()
	m.ambient = append([]string(nil), sources...)
	m.mu.Unlock()
	return nil
}

func (m *mockMixer) StopAmbient(context.Context) {
	m.mu.Lock()
	m.ambient = nil
	m.mu.Unlock()
}

func (m *mockMixer) PlayTrigger(source string) error {
	if source == "missing.mp3" {
		return fmt.Errorf("%w: %s", audio.ErrPlaybackRejected, source)
	}
	m.mu.Lock()
	m.triggers = append(m.triggers, source)
	m.mu.Unlock()
	return nil
}

func (m *mockMixer) SetVolume(cat audio.Category, v float64) error {
	if v < 0 || v > 1 {
		return audio.ErrInvalidVolume
	}
	m.mu.Lock()
	m.volumes[cat] = v
	m.mu.Unlock()
	return nil
}

func (m *mockMixer) Status() audio.Status {
	m.mu.Lock()
	defer m.mu.Unlock()
	vols := make(map[audio.Category]float64, len(m.volumes))
	for k, v := range m.volumes {
		vols[k] = v
	}
	return audio.Status{Volumes: vols, AmbientLayers: append([]string{}, m.ambient...)}
}

// mockLights reports fixed connectivity and counts probes.
type mockLights struct {
	mu     sync.Mutex
	probes int
	conn   lighting.Connectivity
}

func (l *mockLights) Initialize(context.Context) lighting.Connectivity {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.probes++
	l.conn.WLEDEnabled, l.conn.WLED = true, true
	return l.conn
}

func (l *mockLights) Connectivity() lighting.Connectivity {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.conn
}

func (l *mockLights) Stats() lighting.Stats {
	return lighting.Stats{WLEDRequests: 3, WLEDFailures: 1}
}

// mockDefinitions serves full scene and trigger definitions.
type mockDefinitions struct {
	scenes map[string]*catalog.Scene
}

func (d *mockDefinitions) Scene(id string) (*catalog.Scene, error) {
	sc, ok := d.scenes[id]
	if !ok {
		return nil, fmt.Errorf("%w: %s", catalog.ErrSceneNotFound, id)
	}
	return sc, nil
}

func (d *mockDefinitions) Trigger(id string) (*catalog.Trigger, error) {
	if id == "lightning" {
		return &catalog.Trigger{ID: "lightning", Name: "Lightning Strike", Sequence: []catalog.Event{{Delay: 0}}}, nil
	}
	return nil, fmt.Errorf("%w: %s", catalog.ErrTriggerNotFound, id)
}

// mockPublisher collects events.
type mockPublisher struct {
	mu     sync.Mutex
	events []orchestrator.Event
}

func (p *mockPublisher) Publish(ev orchestrator.Event) {
	p.mu.Lock()
	p.events = append(p.events, ev)
	p.mu.Unlock()
}

// mockHistory serves a fixed set of records.
type mockHistory struct {
	records    []orchestrator.Record
	lastFilter orchestrator.HistoryFilter
}

func (h *mockHistory) Create(context.Context, *orchestrator.Record) error   { return nil }
func (h *mockHistory) Complete(context.Context, *orchestrator.Record) error { return nil }

func (h *mockHistory) Get(_ context.Context, id string) (*orchestrator.Record, error) {
	for i := range h.records {
		if h.records[i].ID == id {
			rec := h.records[i]
			return &rec, nil
		}
	}
	return nil, orchestrator.ErrRecordNotFound
}

func (h *mockHistory) List(_ context.Context, f orchestrator.HistoryFilter) (*orchestrator.HistoryPage, error) {
	h.lastFilter = f
	var out []orchestrator.Record
	for _, r := range h.records {
		if f.Kind != "" && r.Kind != f.Kind {
			continue
		}
		out = append(out, r)
	}
	return &orchestrator.HistoryPage{Records: out, Total: len(out), Limit: f.Limit, Offset: f.Offset}, nil
}

// mockBroker reports a fixed MQTT state.
type mockBroker struct{ connected bool }

func (b mockBroker) IsConnected() bool { return b.connected }
