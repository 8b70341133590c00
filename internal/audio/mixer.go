package audio

import (
	"context"
	"errors"
	"fmt"
	"math"
	"math/rand/v2"
	"net/url"
	"path"
	"path/filepath"
	"strings"
	"sync"
	"time"
)

// Category is an independent mixer channel with its own volume.
type Category string

const (
	CategoryMusic   Category = "music"
	CategoryAmbient Category = "ambient"
	CategoryTrigger Category = "trigger"
)

// ParseCategory validates a category name.
func ParseCategory(s string) (Category, error) {
	switch c := Category(strings.ToLower(s)); c {
	case CategoryMusic, CategoryAmbient, CategoryTrigger:
		return c, nil
	}
	return "", fmt.Errorf("%w: %q", ErrUnknownCategory, s)
}

// DefaultFadeSteps is the number of volume steps in a fade-out.
const DefaultFadeSteps = 50

// Logger is the logging interface used by the mixer.
type Logger interface {
	Debug(msg string, args ...any)
	Info(msg string, args ...any)
	Warn(msg string, args ...any)
	Error(msg string, args ...any)
}

type noopLogger struct{}

func (noopLogger) Debug(string, ...any) {}
func (noopLogger) Info(string, ...any)  {}
func (noopLogger) Warn(string, ...any)  {}
func (noopLogger) Error(string, ...any) {}

// Options configures a Mixer.
type Options struct {
	// Volumes holds the initial per-category volumes. Missing categories start at 1.
	Volumes map[Category]float64

	// FileVolumes maps a source path (as written in scenes) to a multiplier.
	FileVolumes map[string]float64

	// Fade is the fade-out duration of every stop operation. Zero stops immediately.
	Fade time.Duration

	// FadeSteps is the number of volume steps per fade. Default: 50.
	FadeSteps int

	// Root anchors relative source paths.
	Root string

	// Rand drives shuffling. Default: time-seeded.
	Rand *rand.Rand
}

// Source is a resolved music source.
type Source struct {
	Tracks []string
	// List marks a playlist or explicit list even when it holds one track.
	List bool
}

// TrackInfo describes the music channel.
type TrackInfo struct {
	Path     string        `json:"path"`
	Name     string        `json:"name"`
	Playing  bool          `json:"playing"`
	Paused   bool          `json:"paused"`
	Position time.Duration `json:"position_ns"`
	Duration time.Duration `json:"duration_ns"`
	Shuffle  bool          `json:"shuffle"`
	Loop     bool          `json:"loop"`

	// Index and Length describe the active ordering; both are zero for a
	// bare single file.
	Index  int `json:"index"`
	Length int `json:"length"`
}

// Status is a snapshot of every channel.
type Status struct {
	Volumes       map[Category]float64 `json:"volumes"`
	Music         *TrackInfo           `json:"music,omitempty"`
	AmbientLayers []string             `json:"ambient_layers"`
	TriggerSounds int                  `json:"trigger_sounds"`
}

// voice is an element tracked by the mixer.
type voice struct {
	el       Element
	path     string
	category Category
	done     chan struct{}
	once     sync.Once
}

func newVoice(el Element, path string, cat Category) *voice {
	return &voice{el: el, path: path, category: cat, done: make(chan struct{})}
}

// release stops the element and frees it. Safe to call more than once.
func (v *voice) release() {
	v.once.Do(func() {
		v.el.Pause()
		_ = v.el.Close()
		close(v.done)
	})
}

type musicState struct {
	tracks  []string
	order   []int // active ordering as indices into tracks
	pos     int   // position within order
	list    bool
	loop    bool
	shuffle bool
	paused  bool
	ended   bool
	voice   *voice // nil when playback was rejected
}

func (ms *musicState) current() string { return ms.tracks[ms.order[ms.pos]] }

// Mixer owns the music channel, ambient layers and trigger one-shots.
//
// Stop operations detach the affected elements synchronously and then fade
// them out, so a new sound started right after a stop never shares tracking
// with the sounds being faded.
//
// Thread Safety: all methods are safe for concurrent use.
type Mixer struct {
	backend   Backend
	fade      time.Duration
	fadeSteps int
	root      string

	mu          sync.Mutex
	volumes     map[Category]float64
	fileVolumes map[string]float64
	rand        *rand.Rand
	music       *musicState
	ambient     []*voice
	ambientGen  uint64 // bumped by every ambient replacement or stop
	triggers    map[*voice]struct{}

	logger Logger
	sleep  func(ctx context.Context, d time.Duration) error
}

// NewMixer creates a mixer playing through backend.
func NewMixer(backend Backend, opts Options) *Mixer {
	if opts.FadeSteps <= 0 {
		opts.FadeSteps = DefaultFadeSteps
	}
	if opts.Rand == nil {
		now := uint64(time.Now().UnixNano())
		opts.Rand = rand.New(rand.NewPCG(now, now>>17))
	}
	volumes := map[Category]float64{
		CategoryMusic:   1,
		CategoryAmbient: 1,
		CategoryTrigger: 1,
	}
	for c, v := range opts.Volumes {
		volumes[c] = v
	}
	fileVolumes := make(map[string]float64, len(opts.FileVolumes))
	for p, v := range opts.FileVolumes {
		fileVolumes[p] = v
	}
	return &Mixer{
		backend:     backend,
		fade:        opts.Fade,
		fadeSteps:   opts.FadeSteps,
		root:        opts.Root,
		volumes:     volumes,
		fileVolumes: fileVolumes,
		rand:        opts.Rand,
		triggers:    make(map[*voice]struct{}),
		logger:      noopLogger{},
		sleep:       sleepCtx,
	}
}

// SetLogger sets the logger for the mixer.
func (m *Mixer) SetLogger(logger Logger) {
	if logger == nil {
		logger = noopLogger{}
	}
	m.logger = logger
}

// ─── Music ─────────────────────────────────────────────────────────

// PlayMusic replaces the music channel with src.
//
// Current music is faded out first. A source with several tracks (or
// marked as a list) auto-advances on natural end and wraps around; a bare
// single file loops natively unless loop is false. With shuffle, playback
// follows a Fisher-Yates permutation kept apart from the canonical order.
//
// Returns ErrPlaybackRejected when the first track cannot start; the channel
// then reports the track as loaded but not playing.
func (m *Mixer) PlayMusic(ctx context.Context, src Source, loop, shuffle bool) error {
	if len(src.Tracks) == 0 {
		return ErrEmptySource
	}
	m.StopMusic(ctx)

	ms := &musicState{
		tracks:  append([]string(nil), src.Tracks...),
		list:    src.List || len(src.Tracks) > 1,
		loop:    loop,
		shuffle: shuffle,
	}
	ms.order = make([]int, len(ms.tracks))
	for i := range ms.order {
		ms.order[i] = i
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	if shuffle {
		m.rand.Shuffle(len(ms.order), func(i, j int) {
			ms.order[i], ms.order[j] = ms.order[j], ms.order[i]
		})
	}
	if prev := m.music; prev != nil && prev.voice != nil {
		// A concurrent PlayMusic won the race; drop its track without fading.
		prev.voice.release()
	}
	m.music = ms
	return m.startTrackLocked(ms)
}

// startTrackLocked opens and starts the track at ms.pos. Caller holds m.mu.
func (m *Mixer) startTrackLocked(ms *musicState) error {
	ms.paused = false
	ms.ended = false
	ms.voice = nil

	p := ms.current()
	v, err := m.openLocked(p, CategoryMusic, !ms.list && ms.loop)
	if err != nil {
		m.logger.Warn("music playback rejected", "path", p, "error", err)
		return err
	}
	ms.voice = v
	m.logger.Info("music started", "path", p, "index", ms.pos, "tracks", len(ms.tracks))

	go m.watchMusic(v)
	return nil
}

func (m *Mixer) watchMusic(v *voice) {
	select {
	case <-v.el.Ended():
	case <-v.done:
		return
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	ms := m.music
	if ms == nil || ms.voice != v {
		return
	}
	if !ms.list {
		ms.ended = true
		return
	}
	m.stepLocked(ms, 1)
}

// stepLocked moves delta tracks through the active ordering, wrapping.
func (m *Mixer) stepLocked(ms *musicState, delta int) {
	if ms.voice != nil {
		ms.voice.release()
	}
	n := len(ms.order)
	ms.pos = ((ms.pos+delta)%n + n) % n
	_ = m.startTrackLocked(ms)
}

// NextTrack advances the music channel, wrapping past the end.
func (m *Mixer) NextTrack() error { return m.step(1) }

// PreviousTrack steps back, wrapping from the first track to the last.
func (m *Mixer) PreviousTrack() error { return m.step(-1) }

func (m *Mixer) step(delta int) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.music == nil {
		return ErrNoMusic
	}
	m.stepLocked(m.music, delta)
	if m.music.voice == nil {
		return ErrPlaybackRejected
	}
	return nil
}

// PauseMusic pauses the music channel.
func (m *Mixer) PauseMusic() error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.music == nil || m.music.voice == nil {
		return ErrNoMusic
	}
	m.music.voice.el.Pause()
	m.music.paused = true
	return nil
}

// ResumeMusic resumes paused music, restarting a finished single file.
func (m *Mixer) ResumeMusic() error {
	m.mu.Lock()
	defer m.mu.Unlock()
	ms := m.music
	if ms == nil || ms.voice == nil {
		return ErrNoMusic
	}
	if ms.ended {
		_ = ms.voice.el.Rewind()
		ms.ended = false
	}
	if err := ms.voice.el.Play(); err != nil {
		m.logger.Warn("music resume rejected", "path", ms.current(), "error", err)
		return fmt.Errorf("%w: %w", ErrPlaybackRejected, err)
	}
	ms.paused = false
	return nil
}

// StopMusic fades the music channel out and unloads it.
func (m *Mixer) StopMusic(ctx context.Context) {
	m.mu.Lock()
	ms := m.music
	m.music = nil
	m.mu.Unlock()

	if ms == nil || ms.voice == nil {
		return
	}
	m.fadeOut(ctx, []*voice{ms.voice})
}

// CurrentTrack describes the music channel, or returns nil when nothing is loaded.
func (m *Mixer) CurrentTrack() *TrackInfo {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.currentTrackLocked()
}

func (m *Mixer) currentTrackLocked() *TrackInfo {
	ms := m.music
	if ms == nil {
		return nil
	}
	p := ms.current()
	info := &TrackInfo{
		Path:    p,
		Name:    displayName(p),
		Paused:  ms.paused,
		Shuffle: ms.shuffle,
		Loop:    ms.loop,
	}
	if ms.list {
		info.Index = ms.pos
		info.Length = len(ms.order)
	}
	if ms.voice != nil {
		info.Playing = ms.voice.el.IsPlaying() && !ms.paused && !ms.ended
		info.Position = ms.voice.el.Position()
		info.Duration = ms.voice.el.Duration()
	}
	return info
}

// ─── Ambient ───────────────────────────────────────────────────────

// PlayAmbient fades out the current ambient layers, then starts one looping
// layer per source. Layers that fail to start are logged and skipped.
//
// Replacement is last-writer-wins: when another PlayAmbient or StopAmbient
// arrives during the fade, this call starts nothing.
func (m *Mixer) PlayAmbient(ctx context.Context, sources []string) error {
	gen := m.stopAmbient(ctx)

	m.mu.Lock()
	defer m.mu.Unlock()
	if gen != m.ambientGen {
		m.logger.Debug("ambient replaced during fade", "layers", len(sources))
		return nil
	}

	var errs []error
	for _, p := range sources {
		v, err := m.openLocked(p, CategoryAmbient, true)
		if err != nil {
			m.logger.Warn("ambient layer rejected", "path", p, "error", err)
			errs = append(errs, err)
			continue
		}
		m.ambient = append(m.ambient, v)
	}
	if len(sources) > 0 {
		m.logger.Info("ambient started", "layers", len(m.ambient))
	}
	return errors.Join(errs...)
}

// StopAmbient fades every ambient layer out and releases it. A PlayAmbient
// still fading its predecessor is superseded.
func (m *Mixer) StopAmbient(ctx context.Context) {
	m.stopAmbient(ctx)
}

// stopAmbient detaches the layers and takes a new ambient generation under
// one lock, fades the detached layers, and returns the generation.
func (m *Mixer) stopAmbient(ctx context.Context) uint64 {
	m.mu.Lock()
	layers := m.ambient
	m.ambient = nil
	m.ambientGen++
	gen := m.ambientGen
	m.mu.Unlock()

	m.fadeOut(ctx, layers)
	return gen
}

// ─── Triggers ──────────────────────────────────────────────────────

// PlayTrigger starts a one-shot sound alongside any already playing.
// The sound stops being tracked when it ends.
func (m *Mixer) PlayTrigger(source string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	v, err := m.openLocked(source, CategoryTrigger, false)
	if err != nil {
		m.logger.Warn("trigger sound rejected", "path", source, "error", err)
		return err
	}
	m.triggers[v] = struct{}{}
	go m.watchTrigger(v)
	return nil
}

func (m *Mixer) watchTrigger(v *voice) {
	select {
	case <-v.el.Ended():
	case <-v.done:
		return
	}

	m.mu.Lock()
	_, tracked := m.triggers[v]
	delete(m.triggers, v)
	m.mu.Unlock()

	if tracked {
		v.release()
	}
}

// FadeOutTriggers detaches every playing trigger sound and fades them out in
// the background. The returned channel closes when the fade has finished.
func (m *Mixer) FadeOutTriggers() <-chan struct{} {
	m.mu.Lock()
	voices := make([]*voice, 0, len(m.triggers))
	for v := range m.triggers {
		voices = append(voices, v)
	}
	clear(m.triggers)
	m.mu.Unlock()

	done := make(chan struct{})
	go func() {
		defer close(done)
		m.fadeOut(context.Background(), voices)
	}()
	return done
}

// StopTriggers fades every trigger sound out and waits for the fade.
func (m *Mixer) StopTriggers(ctx context.Context) {
	done := m.FadeOutTriggers()
	select {
	case <-done:
	case <-ctx.Done():
	}
}

// ─── Volume ────────────────────────────────────────────────────────

// SetVolume sets a category volume. Values outside [0,1] are rejected and
// leave the volume unchanged. The new volume applies to live elements of the
// category and to every element started later.
func (m *Mixer) SetVolume(cat Category, value float64) error {
	if value < 0 || value > 1 || math.IsNaN(value) {
		m.logger.Warn("volume rejected", "category", cat, "value", value)
		return fmt.Errorf("%w: %v", ErrInvalidVolume, value)
	}
	if _, err := ParseCategory(string(cat)); err != nil {
		return err
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	m.volumes[cat] = value

	for _, v := range m.liveLocked(cat) {
		v.el.SetVolume(m.effectiveLocked(cat, v.path))
	}
	m.logger.Debug("volume changed", "category", cat, "value", value)
	return nil
}

// Volume returns a category volume.
func (m *Mixer) Volume(cat Category) float64 {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.volumes[cat]
}

// Volumes returns every category volume.
func (m *Mixer) Volumes() map[Category]float64 {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make(map[Category]float64, len(m.volumes))
	for c, v := range m.volumes {
		out[c] = v
	}
	return out
}

// Status returns a snapshot of every channel.
func (m *Mixer) Status() Status {
	m.mu.Lock()
	defer m.mu.Unlock()

	s := Status{
		Volumes:       make(map[Category]float64, len(m.volumes)),
		Music:         m.currentTrackLocked(),
		AmbientLayers: make([]string, 0, len(m.ambient)),
		TriggerSounds: len(m.triggers),
	}
	for c, v := range m.volumes {
		s.Volumes[c] = v
	}
	for _, v := range m.ambient {
		s.AmbientLayers = append(s.AmbientLayers, v.path)
	}
	return s
}

// Close stops every channel without fading.
func (m *Mixer) Close() {
	m.mu.Lock()
	var all []*voice
	if m.music != nil && m.music.voice != nil {
		all = append(all, m.music.voice)
	}
	all = append(all, m.ambient...)
	for v := range m.triggers {
		all = append(all, v)
	}
	m.music = nil
	m.ambient = nil
	m.ambientGen++
	clear(m.triggers)
	m.mu.Unlock()

	for _, v := range all {
		v.release()
	}
}

// ─── Internals ─────────────────────────────────────────────────────

func (m *Mixer) liveLocked(cat Category) []*voice {
	switch cat {
	case CategoryMusic:
		if m.music != nil && m.music.voice != nil {
			return []*voice{m.music.voice}
		}
	case CategoryAmbient:
		return m.ambient
	case CategoryTrigger:
		out := make([]*voice, 0, len(m.triggers))
		for v := range m.triggers {
			out = append(out, v)
		}
		return out
	}
	return nil
}

// effectiveLocked is the category volume times the file multiplier, capped at 1.
func (m *Mixer) effectiveLocked(cat Category, p string) float64 {
	v := m.volumes[cat]
	if mult, ok := m.fileVolumes[p]; ok {
		v *= mult
	}
	return min(v, 1)
}

// openLocked opens, levels and starts a source.
func (m *Mixer) openLocked(p string, cat Category, loop bool) (*voice, error) {
	el, err := m.backend.Open(m.resolve(p), loop)
	if err != nil {
		return nil, fmt.Errorf("%w: %s: %w", ErrPlaybackRejected, p, err)
	}
	el.SetVolume(m.effectiveLocked(cat, p))
	if err := el.Play(); err != nil {
		_ = el.Close()
		return nil, fmt.Errorf("%w: %s: %w", ErrPlaybackRejected, p, err)
	}
	return newVoice(el, p, cat), nil
}

func (m *Mixer) resolve(p string) string {
	if m.root == "" || isURL(p) || filepath.IsAbs(p) {
		return p
	}
	return filepath.Join(m.root, filepath.FromSlash(p))
}

// fadeOut ramps each voice linearly to silence, then pauses, rewinds,
// restores the pre-fade volume and releases it.
func (m *Mixer) fadeOut(ctx context.Context, voices []*voice) {
	if len(voices) == 0 {
		return
	}
	start := make([]float64, len(voices))
	for i, v := range voices {
		start[i] = v.el.Volume()
	}

	if m.fade > 0 {
		step := m.fade / time.Duration(m.fadeSteps)
		for i := 1; i <= m.fadeSteps; i++ {
			if err := m.sleep(ctx, step); err != nil {
				break
			}
			f := 1 - float64(i)/float64(m.fadeSteps)
			for j, v := range voices {
				v.el.SetVolume(start[j] * f)
			}
		}
	}

	for j, v := range voices {
		v.el.Pause()
		_ = v.el.Rewind()
		v.el.SetVolume(start[j])
		v.release()
	}
}

func isURL(s string) bool {
	return strings.HasPrefix(s, "http://") || strings.HasPrefix(s, "https://")
}

// displayName is the last path segment of a file path or URL.
func displayName(p string) string {
	if isURL(p) {
		if u, err := url.Parse(p); err == nil {
			if name, err := url.PathUnescape(path.Base(u.Path)); err == nil {
				return name
			}
		}
	}
	return filepath.Base(filepath.FromSlash(p))
}

func sleepCtx(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return nil
	}
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}
