package audio

import (
	"bytes"
	"fmt"
	"io"
	"net/http"
	"os"
	"path"
	"path/filepath"
	"strings"
	"sync"
	"time"

	ebaudio "github.com/hajimehoshi/ebiten/v2/audio"
	"github.com/hajimehoshi/ebiten/v2/audio/mp3"
	"github.com/hajimehoshi/ebiten/v2/audio/vorbis"
	"github.com/hajimehoshi/ebiten/v2/audio/wav"
)

// bytesPerFrame is the size of one decoded frame: 16-bit stereo.
const bytesPerFrame = 4

// endPollInterval is how often elements check for natural end of stream.
const endPollInterval = 100 * time.Millisecond

// EbitenBackend plays MP3, Ogg Vorbis and WAV sources through ebiten's audio
// context. Only one EbitenBackend may exist per process.
type EbitenBackend struct {
	ctx        *ebaudio.Context
	sampleRate int
	http       *http.Client
}

// NewEbitenBackend creates the process-wide audio context.
func NewEbitenBackend(sampleRate int) *EbitenBackend {
	if sampleRate <= 0 {
		sampleRate = 44100
	}
	return &EbitenBackend{
		ctx:        ebaudio.NewContext(sampleRate),
		sampleRate: sampleRate,
		http:       &http.Client{Timeout: 30 * time.Second},
	}
}

// decodedStream is what every ebiten decoder returns.
type decodedStream interface {
	io.ReadSeeker
	Length() int64
}

// Open decodes a local file or http(s) URL.
func (b *EbitenBackend) Open(source string, loop bool) (Element, error) {
	r, closer, err := b.open(source)
	if err != nil {
		return nil, err
	}

	stream, err := b.decode(source, r)
	if err != nil {
		closer.Close()
		return nil, err
	}

	var src io.Reader = stream
	if loop {
		src = ebaudio.NewInfiniteLoop(stream, stream.Length())
	}

	player, err := b.ctx.NewPlayer(src)
	if err != nil {
		closer.Close()
		return nil, fmt.Errorf("creating player: %w", err)
	}

	el := &ebitenElement{
		player:   player,
		closer:   closer,
		duration: time.Duration(stream.Length()/bytesPerFrame) * time.Second / time.Duration(b.sampleRate),
		loop:     loop,
		ended:    make(chan struct{}),
		quit:     make(chan struct{}),
	}
	if !loop {
		go el.watch()
	}
	return el, nil
}

func (b *EbitenBackend) open(source string) (io.ReadSeeker, io.Closer, error) {
	if strings.HasPrefix(source, "http://") || strings.HasPrefix(source, "https://") {
		resp, err := b.http.Get(source)
		if err != nil {
			return nil, nil, fmt.Errorf("fetching %s: %w", source, err)
		}
		defer resp.Body.Close()
		if resp.StatusCode != http.StatusOK {
			return nil, nil, fmt.Errorf("fetching %s: status %d", source, resp.StatusCode)
		}
		data, err := io.ReadAll(resp.Body)
		if err != nil {
			return nil, nil, fmt.Errorf("fetching %s: %w", source, err)
		}
		return bytes.NewReader(data), io.NopCloser(nil), nil
	}

	f, err := os.Open(source)
	if err != nil {
		return nil, nil, err
	}
	return f, f, nil
}

func (b *EbitenBackend) decode(source string, r io.ReadSeeker) (decodedStream, error) {
	ext := filepath.Ext(source)
	if strings.Contains(source, "://") {
		ext = path.Ext(strings.SplitN(source, "?", 2)[0])
	}
	switch strings.ToLower(ext) {
	case ".mp3":
		return mp3.DecodeWithSampleRate(b.sampleRate, r)
	case ".ogg", ".oga":
		return vorbis.DecodeWithSampleRate(b.sampleRate, r)
	case ".wav":
		return wav.DecodeWithSampleRate(b.sampleRate, r)
	default:
		return nil, fmt.Errorf("%w: %s", ErrUnsupportedFormat, ext)
	}
}

type ebitenElement struct {
	player   *ebaudio.Player
	closer   io.Closer
	duration time.Duration
	loop     bool

	mu      sync.Mutex
	wanted  bool // Play called and not paused since
	ended   chan struct{}
	endOnce sync.Once
	quit    chan struct{}
	closed  bool
}

// watch closes ended once the player stops on its own.
func (e *ebitenElement) watch() {
	ticker := time.NewTicker(endPollInterval)
	defer ticker.Stop()
	for {
		select {
		case <-e.quit:
			return
		case <-ticker.C:
			e.mu.Lock()
			finished := e.wanted && !e.player.IsPlaying()
			e.mu.Unlock()
			if finished {
				e.endOnce.Do(func() { close(e.ended) })
				return
			}
		}
	}
}

func (e *ebitenElement) Play() error {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.closed {
		return ErrPlaybackRejected
	}
	e.player.Play()
	e.wanted = true
	return nil
}

func (e *ebitenElement) Pause() {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.wanted = false
	e.player.Pause()
}

func (e *ebitenElement) Rewind() error { return e.player.SetPosition(0) }

func (e *ebitenElement) IsPlaying() bool { return e.player.IsPlaying() }

func (e *ebitenElement) Volume() float64 { return e.player.Volume() }

func (e *ebitenElement) SetVolume(v float64) { e.player.SetVolume(v) }

func (e *ebitenElement) Position() time.Duration { return e.player.Position() }

func (e *ebitenElement) Duration() time.Duration { return e.duration }

func (e *ebitenElement) Ended() <-chan struct{} { return e.ended }

func (e *ebitenElement) Close() error {
	e.mu.Lock()
	if e.closed {
		e.mu.Unlock()
		return nil
	}
	e.closed = true
	e.wanted = false
	close(e.quit)
	e.mu.Unlock()

	err := e.player.Close()
	if cerr := e.closer.Close(); err == nil {
		err = cerr
	}
	return err
}
