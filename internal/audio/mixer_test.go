package audio

import (
	"context"
	"errors"
	"fmt"
	"math"
	"math/rand/v2"
	"sort"
	"strings"
	"sync"
	"testing"
	"time"
)

// ─── Fake Backend ──────────────────────────────────────────────────

type fakeBackend struct {
	mu       sync.Mutex
	log      []string
	elements []*fakeElement
	reject   map[string]bool
}

func newFakeBackend() *fakeBackend {
	return &fakeBackend{reject: make(map[string]bool)}
}

func (b *fakeBackend) record(entry string) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.log = append(b.log, entry)
}

func (b *fakeBackend) entries() []string {
	b.mu.Lock()
	defer b.mu.Unlock()
	return append([]string(nil), b.log...)
}

func (b *fakeBackend) Open(p string, loop bool) (Element, error) {
	b.mu.Lock()
	rejected := b.reject[p]
	b.mu.Unlock()
	if rejected {
		b.record("reject " + p)
		return nil, errors.New("decoder refused")
	}
	el := &fakeElement{backend: b, path: p, loop: loop, volume: 1, ended: make(chan struct{})}
	b.mu.Lock()
	b.elements = append(b.elements, el)
	b.mu.Unlock()
	b.record(fmt.Sprintf("open %s loop=%v", p, loop))
	return el, nil
}

// latest returns the most recently opened element for path.
func (b *fakeBackend) latest(p string) *fakeElement {
	b.mu.Lock()
	defer b.mu.Unlock()
	for i := len(b.elements) - 1; i >= 0; i-- {
		if b.elements[i].path == p {
			return b.elements[i]
		}
	}
	return nil
}

type fakeElement struct {
	backend *fakeBackend
	path    string
	loop    bool

	mu      sync.Mutex
	playing bool
	volume  float64
	volumes []float64
	rewound bool
	closed  bool
	ended   chan struct{}
	endOnce sync.Once
}

func (e *fakeElement) Play() error {
	e.mu.Lock()
	e.playing = true
	e.mu.Unlock()
	e.backend.record("play " + e.path)
	return nil
}

func (e *fakeElement) Pause() {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.playing = false
}

func (e *fakeElement) Rewind() error {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.rewound = true
	return nil
}

func (e *fakeElement) IsPlaying() bool {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.playing
}

func (e *fakeElement) Volume() float64 {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.volume
}

func (e *fakeElement) SetVolume(v float64) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.volume = v
	e.volumes = append(e.volumes, v)
}

func (e *fakeElement) Position() time.Duration { return 3 * time.Second }
func (e *fakeElement) Duration() time.Duration { return time.Minute }
func (e *fakeElement) Ended() <-chan struct{}  { return e.ended }

func (e *fakeElement) Close() error {
	e.mu.Lock()
	e.closed = true
	e.mu.Unlock()
	e.backend.record("close " + e.path)
	return nil
}

// finish simulates natural end of stream.
func (e *fakeElement) finish() {
	e.mu.Lock()
	e.playing = false
	e.mu.Unlock()
	e.endOnce.Do(func() { close(e.ended) })
}

func (e *fakeElement) isClosed() bool {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.closed
}

// ─── Helpers ───────────────────────────────────────────────────────

func newTestMixer(b Backend, opts Options) *Mixer {
	if opts.Rand == nil {
		opts.Rand = rand.New(rand.NewPCG(1, 2))
	}
	m := NewMixer(b, opts)
	m.sleep = func(context.Context, time.Duration) error { return nil }
	return m
}

func waitFor(t *testing.T, what string, cond func() bool) {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		if cond() {
			return
		}
		time.Sleep(5 * time.Millisecond)
	}
	t.Fatalf("timed out waiting for %s", what)
}

func indexOf(entries []string, entry string) int {
	for i, e := range entries {
		if e == entry {
			return i
		}
	}
	return -1
}

// ─── Music ─────────────────────────────────────────────────────────

func TestMixer_CurrentTrackNilWhenUnloaded(t *testing.T) {
	m := newTestMixer(newFakeBackend(), Options{})
	if m.CurrentTrack() != nil {
		t.Error("CurrentTrack() should be nil before any music")
	}
}

func TestMixer_SingleFileLoops(t *testing.T) {
	tests := []struct {
		name string
		loop bool
	}{
		{"loops by default", true},
		{"loop disabled", false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			b := newFakeBackend()
			m := newTestMixer(b, Options{})

			if err := m.PlayMusic(context.Background(), Source{Tracks: []string{"calm.mp3"}}, tt.loop, false); err != nil {
				t.Fatalf("PlayMusic() error = %v", err)
			}
			if el := b.latest("calm.mp3"); el.loop != tt.loop {
				t.Errorf("native loop = %v, want %v", el.loop, tt.loop)
			}

			info := m.CurrentTrack()
			if info == nil || !info.Playing || info.Name != "calm.mp3" {
				t.Fatalf("CurrentTrack() = %+v", info)
			}
			if info.Length != 0 {
				t.Errorf("bare file reports list length %d", info.Length)
			}
		})
	}
}

func TestMixer_ListNeverLoopsNatively(t *testing.T) {
	b := newFakeBackend()
	m := newTestMixer(b, Options{})

	_ = m.PlayMusic(context.Background(), Source{Tracks: []string{"one.mp3"}, List: true}, true, false)

	if b.latest("one.mp3").loop {
		t.Error("list-backed track must not loop natively")
	}
}

func TestMixer_PlaylistAutoAdvance(t *testing.T) {
	b := newFakeBackend()
	m := newTestMixer(b, Options{})
	tracks := []string{"a.mp3", "b.mp3", "c.mp3"}

	_ = m.PlayMusic(context.Background(), Source{Tracks: tracks}, true, false)

	for i, want := range []string{"b.mp3", "c.mp3", "a.mp3"} {
		prev := m.CurrentTrack().Path
		b.latest(prev).finish()
		waitFor(t, "advance to "+want, func() bool {
			info := m.CurrentTrack()
			return info != nil && info.Path == want && info.Playing
		})
		if got := m.CurrentTrack().Index; got != (i+1)%3 {
			t.Errorf("Index = %d, want %d", got, (i+1)%3)
		}
		if !b.latest(prev).isClosed() {
			t.Errorf("%s not released after advancing", prev)
		}
	}
}

func TestMixer_PlaylistWraparound(t *testing.T) {
	m := newTestMixer(newFakeBackend(), Options{})
	tracks := []string{"a.mp3", "b.mp3", "c.mp3", "d.mp3"}
	_ = m.PlayMusic(context.Background(), Source{Tracks: tracks}, true, false)

	for i := 0; i < len(tracks); i++ {
		if err := m.NextTrack(); err != nil {
			t.Fatalf("NextTrack() error = %v", err)
		}
	}
	if got := m.CurrentTrack(); got.Index != 0 || got.Path != "a.mp3" {
		t.Errorf("after N nexts: index %d path %s, want 0 a.mp3", got.Index, got.Path)
	}

	if err := m.PreviousTrack(); err != nil {
		t.Fatalf("PreviousTrack() error = %v", err)
	}
	if got := m.CurrentTrack(); got.Index != len(tracks)-1 || got.Path != "d.mp3" {
		t.Errorf("previous from 0: index %d path %s, want 3 d.mp3", got.Index, got.Path)
	}
}

func TestMixer_ShuffleVisitsEveryTrackOnce(t *testing.T) {
	m := newTestMixer(newFakeBackend(), Options{Rand: rand.New(rand.NewPCG(42, 7))})
	tracks := []string{"a.mp3", "b.mp3", "c.mp3", "d.mp3", "e.mp3", "f.mp3"}
	canonical := append([]string(nil), tracks...)

	_ = m.PlayMusic(context.Background(), Source{Tracks: tracks}, true, true)

	var seen []string
	for i := 0; i < len(tracks); i++ {
		info := m.CurrentTrack()
		if !info.Shuffle || info.Index != i {
			t.Fatalf("step %d: %+v", i, info)
		}
		seen = append(seen, info.Path)
		_ = m.NextTrack()
	}
	if m.CurrentTrack().Path != seen[0] {
		t.Error("shuffled ordering does not wrap to its first track")
	}

	sort.Strings(seen)
	for i := range canonical {
		if seen[i] != canonical[i] {
			t.Fatalf("shuffled ordering is not a permutation: %v", seen)
		}
	}
	if strings.Join(tracks, ",") != strings.Join(canonical, ",") {
		t.Error("caller's track slice was reordered")
	}
}

func TestMixer_PlayMusicReplacesWithFade(t *testing.T) {
	b := newFakeBackend()
	m := newTestMixer(b, Options{Fade: time.Second})
	ctx := context.Background()

	_ = m.PlayMusic(ctx, Source{Tracks: []string{"old.mp3"}}, true, false)
	_ = m.PlayMusic(ctx, Source{Tracks: []string{"new.mp3"}}, true, false)

	log := b.entries()
	if indexOf(log, "close old.mp3") > indexOf(log, "open new.mp3 loop=true") {
		t.Errorf("old music not released before new music opened: %v", log)
	}
}

func TestMixer_PlaybackRejected(t *testing.T) {
	b := newFakeBackend()
	b.reject["broken.mp3"] = true
	m := newTestMixer(b, Options{})

	err := m.PlayMusic(context.Background(), Source{Tracks: []string{"broken.mp3"}}, true, false)
	if !errors.Is(err, ErrPlaybackRejected) {
		t.Fatalf("PlayMusic() error = %v, want ErrPlaybackRejected", err)
	}
	info := m.CurrentTrack()
	if info == nil || info.Playing {
		t.Errorf("rejected track should be loaded but not playing: %+v", info)
	}
	if err := m.PauseMusic(); !errors.Is(err, ErrNoMusic) {
		t.Errorf("PauseMusic() error = %v, want ErrNoMusic", err)
	}
}

func TestMixer_EmptySource(t *testing.T) {
	m := newTestMixer(newFakeBackend(), Options{})
	if err := m.PlayMusic(context.Background(), Source{}, true, false); !errors.Is(err, ErrEmptySource) {
		t.Errorf("PlayMusic() error = %v, want ErrEmptySource", err)
	}
	if err := m.NextTrack(); !errors.Is(err, ErrNoMusic) {
		t.Errorf("NextTrack() error = %v, want ErrNoMusic", err)
	}
}

func TestMixer_PauseResume(t *testing.T) {
	b := newFakeBackend()
	m := newTestMixer(b, Options{})
	_ = m.PlayMusic(context.Background(), Source{Tracks: []string{"calm.mp3"}}, false, false)

	if err := m.PauseMusic(); err != nil {
		t.Fatalf("PauseMusic() error = %v", err)
	}
	if info := m.CurrentTrack(); info.Playing || !info.Paused {
		t.Errorf("after pause: %+v", info)
	}

	if err := m.ResumeMusic(); err != nil {
		t.Fatalf("ResumeMusic() error = %v", err)
	}
	if info := m.CurrentTrack(); !info.Playing || info.Paused {
		t.Errorf("after resume: %+v", info)
	}
}

func TestMixer_SingleFileEndWithoutLoop(t *testing.T) {
	b := newFakeBackend()
	m := newTestMixer(b, Options{})
	_ = m.PlayMusic(context.Background(), Source{Tracks: []string{"once.mp3"}}, false, false)

	b.latest("once.mp3").finish()
	waitFor(t, "track to end", func() bool { return !m.CurrentTrack().Playing })

	if err := m.ResumeMusic(); err != nil {
		t.Fatalf("ResumeMusic() error = %v", err)
	}
	el := b.latest("once.mp3")
	if !el.rewound || !el.IsPlaying() {
		t.Error("resume after end should rewind and play")
	}
}

func TestMixer_StopMusic(t *testing.T) {
	b := newFakeBackend()
	m := newTestMixer(b, Options{})
	_ = m.PlayMusic(context.Background(), Source{Tracks: []string{"a.mp3", "b.mp3"}}, true, false)

	m.StopMusic(context.Background())

	if m.CurrentTrack() != nil {
		t.Error("music still loaded after StopMusic")
	}
	if !b.latest("a.mp3").isClosed() {
		t.Error("track not released")
	}
}

func TestDisplayName(t *testing.T) {
	tests := map[string]string{
		"music/tavern/Drunken Sailor.mp3":            "Drunken Sailor.mp3",
		"/srv/music/rain.ogg":                        "rain.ogg",
		"https://cdn.example/audio/Storm%20Wind.mp3": "Storm Wind.mp3",
	}
	for in, want := range tests {
		if got := displayName(in); got != want {
			t.Errorf("displayName(%q) = %q, want %q", in, got, want)
		}
	}
}

// ─── Ambient ───────────────────────────────────────────────────────

func TestMixer_PlayAmbientLayers(t *testing.T) {
	b := newFakeBackend()
	m := newTestMixer(b, Options{Volumes: map[Category]float64{CategoryAmbient: 0.6}})
	ctx := context.Background()

	if err := m.PlayAmbient(ctx, []string{"a.mp3", "b.mp3"}); err != nil {
		t.Fatalf("PlayAmbient() error = %v", err)
	}
	st := m.Status()
	if len(st.AmbientLayers) != 2 {
		t.Fatalf("layers = %v", st.AmbientLayers)
	}
	for _, p := range []string{"a.mp3", "b.mp3"} {
		el := b.latest(p)
		if !el.loop || !el.IsPlaying() || el.Volume() != 0.6 {
			t.Errorf("%s: loop=%v playing=%v volume=%v", p, el.loop, el.IsPlaying(), el.Volume())
		}
	}

	_ = m.PlayAmbient(ctx, []string{"c.mp3"})

	log := b.entries()
	for _, p := range []string{"a.mp3", "b.mp3"} {
		if indexOf(log, "close "+p) > indexOf(log, "open c.mp3 loop=true") {
			t.Errorf("%s not released before replacement opened: %v", p, log)
		}
	}
	if got := m.Status().AmbientLayers; len(got) != 1 || got[0] != "c.mp3" {
		t.Errorf("layers = %v", got)
	}
}

func TestMixer_PlayAmbientPartialFailure(t *testing.T) {
	b := newFakeBackend()
	b.reject["missing.mp3"] = true
	m := newTestMixer(b, Options{})

	err := m.PlayAmbient(context.Background(), []string{"missing.mp3", "rain.mp3"})
	if !errors.Is(err, ErrPlaybackRejected) {
		t.Errorf("PlayAmbient() error = %v", err)
	}
	if got := m.Status().AmbientLayers; len(got) != 1 || got[0] != "rain.mp3" {
		t.Errorf("layers = %v, want the one that started", got)
	}
}

// gatedFade makes every fade step wait for gate.
func gatedFade(gate <-chan struct{}) func(context.Context, time.Duration) error {
	return func(ctx context.Context, _ time.Duration) error {
		select {
		case <-gate:
			return nil
		case <-ctx.Done():
			return ctx.Err()
		}
	}
}

func TestMixer_PlayAmbientLastWriterWins(t *testing.T) {
	b := newFakeBackend()
	m := newTestMixer(b, Options{Fade: 300 * time.Millisecond})
	ctx := context.Background()
	_ = m.PlayAmbient(ctx, []string{"scene.mp3"})

	gate := make(chan struct{})
	m.sleep = gatedFade(gate)

	done := make(chan error, 1)
	go func() { done <- m.PlayAmbient(ctx, []string{"first.mp3"}) }()
	waitFor(t, "scene layer detached", func() bool { return len(m.Status().AmbientLayers) == 0 })

	if err := m.PlayAmbient(ctx, []string{"second.mp3"}); err != nil {
		t.Fatalf("PlayAmbient(second) error = %v", err)
	}
	close(gate)
	if err := <-done; err != nil {
		t.Fatalf("PlayAmbient(first) error = %v", err)
	}

	if got := m.Status().AmbientLayers; len(got) != 1 || got[0] != "second.mp3" {
		t.Errorf("layers = %v, want [second.mp3]", got)
	}
	if b.latest("first.mp3") != nil {
		t.Errorf("superseded layer was opened: %v", b.entries())
	}
}

func TestMixer_StopAmbientSupersedesPendingPlay(t *testing.T) {
	b := newFakeBackend()
	m := newTestMixer(b, Options{Fade: 300 * time.Millisecond})
	ctx := context.Background()
	_ = m.PlayAmbient(ctx, []string{"scene.mp3"})

	gate := make(chan struct{})
	m.sleep = gatedFade(gate)

	done := make(chan error, 1)
	go func() { done <- m.PlayAmbient(ctx, []string{"rain.mp3"}) }()
	waitFor(t, "scene layer detached", func() bool { return len(m.Status().AmbientLayers) == 0 })

	m.StopAmbient(ctx)
	close(gate)
	<-done

	if got := m.Status().AmbientLayers; len(got) != 0 {
		t.Errorf("layers = %v after stop, want none", got)
	}
}

func TestMixer_FadeAlgorithm(t *testing.T) {
	b := newFakeBackend()
	m := newTestMixer(b, Options{Fade: time.Second, Volumes: map[Category]float64{CategoryAmbient: 0.8}})

	var mu sync.Mutex
	var steps []time.Duration
	m.sleep = func(_ context.Context, d time.Duration) error {
		mu.Lock()
		steps = append(steps, d)
		mu.Unlock()
		return nil
	}

	_ = m.PlayAmbient(context.Background(), []string{"wind.mp3"})
	m.StopAmbient(context.Background())

	if len(steps) != DefaultFadeSteps {
		t.Fatalf("fade used %d steps, want %d", len(steps), DefaultFadeSteps)
	}
	if steps[0] != 20*time.Millisecond {
		t.Errorf("step = %v, want 20ms", steps[0])
	}

	el := b.latest("wind.mp3")
	vols := el.volumes
	// First entry is the initial level, then 50 ramp steps, then the restore.
	if len(vols) != DefaultFadeSteps+2 {
		t.Fatalf("volume writes = %d", len(vols))
	}
	for i := 2; i <= DefaultFadeSteps; i++ {
		if vols[i] > vols[i-1] {
			t.Fatalf("ramp not monotonic at step %d: %v", i, vols[:i+1])
		}
	}
	if vols[DefaultFadeSteps] != 0 {
		t.Errorf("ramp ends at %v, want 0", vols[DefaultFadeSteps])
	}
	if math.Abs(vols[DefaultFadeSteps+1]-0.8) > 1e-9 {
		t.Errorf("pre-fade volume not restored: %v", vols[DefaultFadeSteps+1])
	}
	if !el.rewound || el.IsPlaying() || !el.isClosed() {
		t.Errorf("after fade: rewound=%v playing=%v closed=%v", el.rewound, el.IsPlaying(), el.isClosed())
	}
}

func TestMixer_ZeroFadeStopsImmediately(t *testing.T) {
	m := newTestMixer(newFakeBackend(), Options{})
	calls := 0
	m.sleep = func(context.Context, time.Duration) error { calls++; return nil }

	_ = m.PlayAmbient(context.Background(), []string{"x.mp3"})
	m.StopAmbient(context.Background())

	if calls != 0 {
		t.Errorf("zero fade slept %d times", calls)
	}
}

// ─── Triggers ──────────────────────────────────────────────────────

func TestMixer_TriggerSelfRemoves(t *testing.T) {
	b := newFakeBackend()
	m := newTestMixer(b, Options{})

	_ = m.PlayTrigger("door.mp3")
	_ = m.PlayTrigger("creak.mp3")
	if got := m.Status().TriggerSounds; got != 2 {
		t.Fatalf("TriggerSounds = %d, want 2", got)
	}
	if b.latest("door.mp3").loop {
		t.Error("trigger sounds must not loop")
	}

	b.latest("door.mp3").finish()
	waitFor(t, "trigger removal", func() bool { return m.Status().TriggerSounds == 1 })
	waitFor(t, "trigger release", b.latest("door.mp3").isClosed)
	if b.latest("creak.mp3").isClosed() {
		t.Error("finishing one trigger sound released another")
	}
}

func TestMixer_FadeOutTriggersDetachesSynchronously(t *testing.T) {
	b := newFakeBackend()
	m := newTestMixer(b, Options{Fade: 100 * time.Millisecond})
	release := make(chan struct{})
	m.sleep = func(context.Context, time.Duration) error {
		<-release
		return nil
	}

	_ = m.PlayTrigger("old.mp3")
	done := m.FadeOutTriggers()

	if got := m.Status().TriggerSounds; got != 0 {
		t.Errorf("TriggerSounds during fade = %d, want 0", got)
	}
	_ = m.PlayTrigger("new.mp3")
	if got := m.Status().TriggerSounds; got != 1 {
		t.Errorf("TriggerSounds = %d, want 1", got)
	}

	close(release)
	<-done

	if !b.latest("old.mp3").isClosed() {
		t.Error("faded trigger not released")
	}
	if b.latest("new.mp3").isClosed() {
		t.Error("new trigger released by earlier fade")
	}
}

// ─── Volume ────────────────────────────────────────────────────────

func TestMixer_SetVolumeBounds(t *testing.T) {
	m := newTestMixer(newFakeBackend(), Options{Volumes: map[Category]float64{CategoryMusic: 0.4}})

	for _, v := range []float64{-0.01, 1.01, math.NaN(), math.Inf(1)} {
		if err := m.SetVolume(CategoryMusic, v); !errors.Is(err, ErrInvalidVolume) {
			t.Errorf("SetVolume(%v) error = %v, want ErrInvalidVolume", v, err)
		}
		if got := m.Volume(CategoryMusic); got != 0.4 {
			t.Errorf("volume changed to %v by rejected value %v", got, v)
		}
	}

	for _, v := range []float64{0, 1} {
		if err := m.SetVolume(CategoryMusic, v); err != nil {
			t.Errorf("SetVolume(%v) error = %v", v, err)
		}
	}

	if err := m.SetVolume("voice", 0.5); !errors.Is(err, ErrUnknownCategory) {
		t.Errorf("unknown category error = %v", err)
	}
}

func TestMixer_SetVolumeAppliesToLiveAndFuture(t *testing.T) {
	b := newFakeBackend()
	m := newTestMixer(b, Options{})
	ctx := context.Background()

	_ = m.PlayAmbient(ctx, []string{"a.mp3"})
	_ = m.SetVolume(CategoryAmbient, 0.25)

	if got := b.latest("a.mp3").Volume(); got != 0.25 {
		t.Errorf("live layer volume = %v, want 0.25", got)
	}

	_ = m.PlayAmbient(ctx, []string{"b.mp3"})
	if got := b.latest("b.mp3").Volume(); got != 0.25 {
		t.Errorf("new layer volume = %v, want 0.25", got)
	}
}

func TestMixer_FileVolumeMultiplier(t *testing.T) {
	b := newFakeBackend()
	m := newTestMixer(b, Options{
		Volumes:     map[Category]float64{CategoryTrigger: 0.8},
		FileVolumes: map[string]float64{"quiet.mp3": 0.5, "loud.mp3": 3},
	})

	_ = m.PlayTrigger("quiet.mp3")
	_ = m.PlayTrigger("loud.mp3")
	_ = m.PlayTrigger("plain.mp3")

	if got := b.latest("quiet.mp3").Volume(); math.Abs(got-0.4) > 1e-9 {
		t.Errorf("quiet volume = %v, want 0.4", got)
	}
	if got := b.latest("loud.mp3").Volume(); got != 1 {
		t.Errorf("loud volume = %v, want capped at 1", got)
	}
	if got := b.latest("plain.mp3").Volume(); got != 0.8 {
		t.Errorf("plain volume = %v, want 0.8", got)
	}
}

func TestMixer_ResolvesRelativePaths(t *testing.T) {
	b := newFakeBackend()
	m := newTestMixer(b, Options{Root: "/srv/music"})

	_ = m.PlayTrigger("sfx/thunder.mp3")
	_ = m.PlayTrigger("https://cdn.example/wind.mp3")

	if b.latest("/srv/music/sfx/thunder.mp3") == nil {
		t.Errorf("relative path not resolved: %v", b.entries())
	}
	if b.latest("https://cdn.example/wind.mp3") == nil {
		t.Errorf("URL altered: %v", b.entries())
	}
}

func TestMixer_Close(t *testing.T) {
	b := newFakeBackend()
	m := newTestMixer(b, Options{Fade: time.Hour})
	ctx := context.Background()

	_ = m.PlayMusic(ctx, Source{Tracks: []string{"m.mp3"}}, true, false)
	_ = m.PlayAmbient(ctx, []string{"a.mp3"})
	_ = m.PlayTrigger("t.mp3")

	m.Close()

	for _, p := range []string{"m.mp3", "a.mp3", "t.mp3"} {
		if !b.latest(p).isClosed() {
			t.Errorf("%s not released by Close", p)
		}
	}
	st := m.Status()
	if st.Music != nil || len(st.AmbientLayers) != 0 || st.TriggerSounds != 0 {
		t.Errorf("status after Close = %+v", st)
	}
}

func TestParseCategory(t *testing.T) {
	for _, s := range []string{"music", "Ambient", "TRIGGER"} {
		if _, err := ParseCategory(s); err != nil {
			t.Errorf("ParseCategory(%q) error = %v", s, err)
		}
	}
	if _, err := ParseCategory("voice"); !errors.Is(err, ErrUnknownCategory) {
		t.Errorf("ParseCategory(voice) error = %v", err)
	}
}

func TestNullBackend(t *testing.T) {
	m := NewMixer(NullBackend{}, Options{})
	if err := m.PlayMusic(context.Background(), Source{Tracks: []string{"x.mp3"}}, true, false); err != nil {
		t.Fatalf("PlayMusic() error = %v", err)
	}
	if info := m.CurrentTrack(); info == nil || !info.Playing {
		t.Errorf("null backend track = %+v", info)
	}
	m.Close()
}

func TestNullBackend_OneShotEnds(t *testing.T) {
	m := NewMixer(NullBackend{Length: 20 * time.Millisecond}, Options{})
	defer m.Close()

	if err := m.PlayTrigger("thunder.mp3"); err != nil {
		t.Fatalf("PlayTrigger() error = %v", err)
	}
	if got := m.Status().TriggerSounds; got != 1 {
		t.Fatalf("TriggerSounds = %d, want 1", got)
	}
	waitFor(t, "one-shot to clear itself", func() bool { return m.Status().TriggerSounds == 0 })
}

func TestNullBackend_LoopingNeverEnds(t *testing.T) {
	el, _ := NullBackend{Length: 10 * time.Millisecond}.Open("rain.mp3", true)
	_ = el.Play()
	select {
	case <-el.Ended():
		t.Fatal("looping element ended")
	case <-time.After(50 * time.Millisecond):
	}
	if el.Duration() != 0 {
		t.Errorf("looping Duration() = %v, want 0", el.Duration())
	}
}

func TestNullBackend_PauseHoldsTheClock(t *testing.T) {
	el, _ := NullBackend{Length: 40 * time.Millisecond}.Open("door.mp3", false)
	_ = el.Play()
	el.Pause()

	select {
	case <-el.Ended():
		t.Fatal("paused element ended")
	case <-time.After(80 * time.Millisecond):
	}

	_ = el.Play()
	select {
	case <-el.Ended():
	case <-time.After(2 * time.Second):
		t.Fatal("resumed element never ended")
	}
	if el.IsPlaying() || el.Position() != 40*time.Millisecond {
		t.Errorf("after end: playing=%v position=%v", el.IsPlaying(), el.Position())
	}
}
