package orchestrator

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/nerrad567/tavernlight-core/internal/audio"
	"github.com/nerrad567/tavernlight-core/internal/catalog"
	"github.com/nerrad567/tavernlight-core/internal/lighting"
)

// ─── Shared Call Log ───────────────────────────────────────────────

// callLog records audio and lighting calls in one ordered list.
type callLog struct {
	mu    sync.Mutex
	calls []string
	at    []time.Time
}

func (l *callLog) add(format string, args ...any) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.calls = append(l.calls, fmt.Sprintf(format, args...))
	l.at = append(l.at, time.Now())
}

func (l *callLog) snapshot() []string {
	l.mu.Lock()
	defer l.mu.Unlock()
	return append([]string(nil), l.calls...)
}

func (l *callLog) index(call string) int {
	for i, c := range l.snapshot() {
		if c == call {
			return i
		}
	}
	return -1
}

func (l *callLog) count(prefix string) int {
	n := 0
	for _, c := range l.snapshot() {
		if strings.HasPrefix(c, prefix) {
			n++
		}
	}
	return n
}

// ─── Mock Mixer ────────────────────────────────────────────────────

type mockMixer struct {
	log *callLog

	mu       sync.Mutex
	ambient  []string
	triggers []string

	// stopAmbientGate, when set, blocks StopAmbient until closed.
	stopAmbientGate chan struct{}
}

func (m *mockMixer) PlayAmbient(_ context.Context, sources []string) error {
	m.mu.Lock()
	m.ambient = append([]string(nil), sources...)
	m.mu.Unlock()
	m.log.add("ambient.play %s", strings.Join(sources, ","))
	return nil
}

func (m *mockMixer) StopAmbient(context.Context) {
	if m.stopAmbientGate != nil {
		<-m.stopAmbientGate
	}
	m.mu.Lock()
	m.ambient = nil
	m.mu.Unlock()
	m.log.add("ambient.stop")
}

func (m *mockMixer) StopMusic(context.Context) { m.log.add("music.stop") }

func (m *mockMixer) PlayTrigger(source string) error {
	m.mu.Lock()
	m.triggers = append(m.triggers, source)
	m.mu.Unlock()
	m.log.add("trigger.play %s", source)
	return nil
}

func (m *mockMixer) FadeOutTriggers() <-chan struct{} {
	m.mu.Lock()
	m.triggers = nil
	m.mu.Unlock()
	m.log.add("trigger.fade")
	done := make(chan struct{})
	close(done)
	return done
}

func (m *mockMixer) StopTriggers(context.Context) {
	m.mu.Lock()
	m.triggers = nil
	m.mu.Unlock()
	m.log.add("trigger.stop")
}

func (m *mockMixer) Status() audio.Status {
	m.mu.Lock()
	defer m.mu.Unlock()
	return audio.Status{AmbientLayers: append([]string{}, m.ambient...), TriggerSounds: len(m.triggers)}
}

func (m *mockMixer) ambientLayers() []string {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]string(nil), m.ambient...)
}

func (m *mockMixer) triggerSounds() []string {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]string(nil), m.triggers...)
}

// ─── Mock Lights ───────────────────────────────────────────────────

// lightState models what the strip would show.
type lightState struct {
	on         bool
	brightness int
	color      lighting.RGB
	effect     string
}

type mockLights struct {
	log *callLog

	mu       sync.Mutex
	state    lightState
	saved    *lightState
	intents  []*lighting.Intent
	hub      []string
	fadeGate chan struct{}

	// applyDelay stands in for a slow controller on every ApplyIntent.
	applyDelay time.Duration
}

func (l *mockLights) ApplyIntent(_ context.Context, intent *lighting.Intent) {
	if l.applyDelay > 0 {
		time.Sleep(l.applyDelay)
	}
	l.mu.Lock()
	defer l.mu.Unlock()
	l.intents = append(l.intents, intent.DeepCopy())
	if intent.Restore {
		if l.saved != nil {
			l.state = *l.saved
		}
		l.log.add("wled.restore")
		return
	}
	if intent.IsVisual() {
		l.state.on = true
	}
	if intent.Brightness != nil {
		l.state.brightness = *intent.Brightness
	}
	if intent.Color != nil {
		l.state.color = *intent.Color
	}
	if intent.Effect != "" {
		l.state.effect = intent.Effect
	}
	l.log.add("wled.apply bri=%d color=%v effect=%s duration=%d",
		derefInt(intent.Brightness), colorOf(intent), intent.Effect, intent.DurationMS())
}

func (l *mockLights) SaveState(context.Context) {
	l.mu.Lock()
	s := l.state
	l.saved = &s
	l.mu.Unlock()
	l.log.add("wled.save")
}

func (l *mockLights) RestoreState(context.Context) {
	l.mu.Lock()
	if l.saved != nil {
		l.state = *l.saved
	}
	l.mu.Unlock()
	l.log.add("wled.restore")
}

func (l *mockLights) SendHubCommands(_ context.Context, texts []string) {
	l.mu.Lock()
	l.hub = append(l.hub, texts...)
	l.mu.Unlock()
	l.log.add("hub %s", strings.Join(texts, "|"))
}

func (l *mockLights) TurnOffAll(context.Context) {
	l.mu.Lock()
	l.state.on = false
	l.mu.Unlock()
	l.log.add("wled.off")
}

func (l *mockLights) FadeOut(_ context.Context, d time.Duration) {
	if l.fadeGate != nil {
		<-l.fadeGate
	}
	l.mu.Lock()
	l.state.on = false
	l.mu.Unlock()
	l.log.add("wled.fade %v", d)
}

func (l *mockLights) Connectivity() lighting.Connectivity {
	return lighting.Connectivity{WLEDEnabled: true, WLED: true}
}

func (l *mockLights) current() lightState {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.state
}

func (l *mockLights) applied() []*lighting.Intent {
	l.mu.Lock()
	defer l.mu.Unlock()
	return append([]*lighting.Intent(nil), l.intents...)
}

func colorOf(i *lighting.Intent) any {
	if i.Color == nil {
		return "-"
	}
	return *i.Color
}

// ─── Mock Publisher ────────────────────────────────────────────────

type mockPublisher struct {
	mu     sync.Mutex
	events []Event
}

func (p *mockPublisher) Publish(ev Event) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.events = append(p.events, ev)
}

func (p *mockPublisher) types() []EventType {
	p.mu.Lock()
	defer p.mu.Unlock()
	out := make([]EventType, len(p.events))
	for i, ev := range p.events {
		out[i] = ev.Type
	}
	return out
}

// ─── Fixtures ──────────────────────────────────────────────────────

const testCatalog = `
scenes:
  - id: tavern
    name: The Tavern
    audio:
      music: tavern.m3u
      ambient: [a.mp3, b.mp3]
    lighting:
      wled: {brightness: 128, color: [255, 140, 60]}
  - id: forest
    name: Dark Forest
    audio:
      ambient: wind.mp3
    lighting:
      wled: {brightness: 60, color: [20, 80, 30], effect: aurora, duration: 2500}
      home_assistant: ["dim the hallway lamp", "close the blinds"]
  - id: plain
    name: Plain
    lighting:
      wled: {effect: candle}
  - id: hubonly
    name: Hub Only
    lighting:
      home_assistant: "turn on the fireplace"
triggers:
  - id: lightning
    name: Lightning
    sequence:
      - delay: 0
        lighting:
          wled: {brightness: 255, color: [255, 255, 255], duration: 100}
      - delay: 1500
        audio: {trigger: thunder.mp3}
      - delay: 1500
        lighting:
          wled: {restore: true}
  - id: flash
    name: Flash and Fade
    sequence:
      - lighting:
          wled: {brightness: 255, color: [255, 255, 255], effect: strobe}
      - delay: 200
        lighting:
          wled: {brightness: 5, color: [0, 0, 0], duration: 800, effect: fire}
  - id: door
    name: Door Creak
    sequence:
      - audio: {trigger: door.mp3}
  - id: storm
    name: Storm Front
    sequence:
      - audio: {trigger: gust.mp3, ambient: [rain.mp3, wind.mp3]}
        lighting:
          home_assistant: "flicker the porch light"
`

type harness struct {
	mgr    *Manager
	mixer  *mockMixer
	lights *mockLights
	pub    *mockPublisher
	log    *callLog
	sleeps *sleepRecorder
}

// sleepRecorder replaces real waits; it can optionally scale them down.
type sleepRecorder struct {
	mu    sync.Mutex
	waits []time.Duration
	scale time.Duration // divisor; zero returns at once
}

func (s *sleepRecorder) sleep(ctx context.Context, d time.Duration) error {
	s.mu.Lock()
	s.waits = append(s.waits, d)
	scale := s.scale
	s.mu.Unlock()
	if scale == 0 {
		return ctx.Err()
	}
	return sleepCtx(ctx, d/scale)
}

func (s *sleepRecorder) recorded() []time.Duration {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]time.Duration(nil), s.waits...)
}

func newHarness(t *testing.T, opts Options) *harness {
	t.Helper()
	cat, err := catalog.Parse([]byte(testCatalog))
	if err != nil {
		t.Fatalf("catalog.Parse() error = %v", err)
	}
	log := &callLog{}
	h := &harness{
		mixer:  &mockMixer{log: log},
		lights: &mockLights{log: log},
		pub:    &mockPublisher{},
		log:    log,
		sleeps: &sleepRecorder{},
	}
	if opts.Publisher == nil {
		opts.Publisher = h.pub
	}
	h.mgr = NewManager(cat, h.mixer, h.lights, opts)
	h.mgr.sleep = h.sleeps.sleep
	t.Cleanup(func() { _ = h.mgr.Shutdown(context.Background()) })
	return h
}
