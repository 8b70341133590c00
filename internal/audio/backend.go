package audio

import (
	"cmp"
	"sync"
	"time"
)

// Element is one playing (or playable) sound.
//
// Ended is closed when playback reaches the end of a non-looping source.
// It is never closed by Pause or Close.
type Element interface {
	Play() error
	Pause()
	Rewind() error
	IsPlaying() bool
	Volume() float64
	SetVolume(v float64)
	Position() time.Duration
	Duration() time.Duration
	Ended() <-chan struct{}
	Close() error
}

// Backend opens sources for playback. Looping elements never end.
type Backend interface {
	Open(path string, loop bool) (Element, error)
}

// DefaultNullLength is how long a non-looping NullBackend source plays.
const DefaultNullLength = 3 * time.Second

// NullBackend accepts every source and plays silence. It keeps the service
// usable on hosts without an audio device. Looping sources never end;
// other sources end after Length of playback, so one-shots clear themselves
// as they would on a real device.
type NullBackend struct {
	// Length is the nominal length of non-looping sources. Default: 3s.
	Length time.Duration
}

// Open returns a silent element.
func (b NullBackend) Open(_ string, loop bool) (Element, error) {
	e := &nullElement{volume: 1, ended: make(chan struct{})}
	if !loop {
		e.length = cmp.Or(b.Length, DefaultNullLength)
	}
	return e, nil
}

type nullElement struct {
	mu      sync.Mutex
	playing bool
	volume  float64
	started time.Time
	offset  time.Duration
	length  time.Duration // zero when looping

	timer   *time.Timer
	gen     uint64 // invalidates a timer that fired after it was stopped
	ended   chan struct{}
	endOnce sync.Once
}

func (e *nullElement) Play() error {
	e.mu.Lock()
	defer e.mu.Unlock()
	if !e.playing {
		e.playing = true
		e.started = time.Now()
		e.armLocked()
	}
	return nil
}

func (e *nullElement) Pause() {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.playing {
		e.offset += time.Since(e.started)
		e.playing = false
		e.disarmLocked()
	}
}

func (e *nullElement) Rewind() error {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.offset = 0
	e.started = time.Now()
	if e.playing {
		e.disarmLocked()
		e.armLocked()
	}
	return nil
}

func (e *nullElement) IsPlaying() bool {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.playing
}

func (e *nullElement) Volume() float64 {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.volume
}

func (e *nullElement) SetVolume(v float64) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.volume = v
}

func (e *nullElement) Position() time.Duration {
	e.mu.Lock()
	defer e.mu.Unlock()
	pos := e.offset
	if e.playing {
		pos += time.Since(e.started)
	}
	if e.length > 0 {
		pos = min(pos, e.length)
	}
	return pos
}

func (e *nullElement) Duration() time.Duration { return e.length }

func (e *nullElement) Ended() <-chan struct{} { return e.ended }

func (e *nullElement) Close() error {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.disarmLocked()
	return nil
}

// armLocked schedules the natural end of a non-looping element.
func (e *nullElement) armLocked() {
	if e.length == 0 {
		return
	}
	gen := e.gen
	e.timer = time.AfterFunc(max(e.length-e.offset, 0), func() { e.finish(gen) })
}

func (e *nullElement) disarmLocked() {
	e.gen++
	if e.timer != nil {
		e.timer.Stop()
		e.timer = nil
	}
}

func (e *nullElement) finish(gen uint64) {
	e.mu.Lock()
	if gen != e.gen || !e.playing {
		e.mu.Unlock()
		return
	}
	e.playing = false
	e.offset = e.length
	e.timer = nil
	e.mu.Unlock()
	e.endOnce.Do(func() { close(e.ended) })
}
