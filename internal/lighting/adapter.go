package lighting

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"github.com/nerrad567/tavernlight-core/internal/lighting/wled"
)

// Logger is the logging interface used by the lighting adapter.
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

// WLEDClient is the subset of the WLED JSON API the adapter drives.
type WLEDClient interface {
	Info(ctx context.Context) (*wled.Info, error)
	State(ctx context.Context) (json.RawMessage, error)
	SetState(ctx context.Context, s wled.State) error
	SetRawState(ctx context.Context, raw json.RawMessage) error
}

// HubClient is the subset of the Home Assistant API the adapter drives.
type HubClient interface {
	Ping(ctx context.Context) error
	Process(ctx context.Context, text string) error
}

// Options tunes adapter policy.
type Options struct {
	// OverrideLive adds lor=1 to every intent so realtime streams are suspended.
	OverrideLive bool

	// ReleaseLiveOnStop adds lor=0 to FadeOut.
	ReleaseLiveOnStop bool

	// ProbeTimeout bounds each reachability probe. Default: 3s.
	ProbeTimeout time.Duration

	// HubCommandGap separates sequential hub commands. Default: 100ms.
	HubCommandGap time.Duration
}

// Connectivity is a read-only snapshot of integration reachability.
type Connectivity struct {
	WLEDEnabled  bool       `json:"wled_enabled"`
	WLED         bool       `json:"wled"`
	WLEDName     string     `json:"wled_name,omitempty"`
	HubEnabled   bool       `json:"hub_enabled"`
	Hub          bool       `json:"hub"`
	HasSnapshot  bool       `json:"has_snapshot"`
	LastProbedAt *time.Time `json:"last_probed_at,omitempty"`
}

// Stats holds request counters for metrics export.
type Stats struct {
	WLEDRequests uint64
	WLEDFailures uint64
	HubRequests  uint64
	HubFailures  uint64
}

// Adapter translates lighting intents into calls on the WLED controller and
// the Home Assistant hub.
//
// Every remote call is a single best-effort attempt. Failures are logged and
// counted but never returned to callers; the reachability flags follow the
// outcome of the most recent call.
//
// Thread Safety: all methods are safe for concurrent use.
type Adapter struct {
	wled WLEDClient // nil when disabled
	hub  HubClient  // nil when disabled
	opts Options

	mu       sync.RWMutex
	conn     Connectivity
	snapshot json.RawMessage

	wledRequests atomic.Uint64
	wledFailures atomic.Uint64
	hubRequests  atomic.Uint64
	hubFailures  atomic.Uint64

	logger Logger
	sleep  func(ctx context.Context, d time.Duration) error
}

// NewAdapter creates an adapter. Pass a nil client to disable that integration.
func NewAdapter(wledClient WLEDClient, hub HubClient, opts Options) *Adapter {
	if opts.ProbeTimeout <= 0 {
		opts.ProbeTimeout = 3 * time.Second
	}
	if opts.HubCommandGap <= 0 {
		opts.HubCommandGap = 100 * time.Millisecond
	}
	return &Adapter{
		wled: wledClient,
		hub:  hub,
		opts: opts,
		conn: Connectivity{
			WLEDEnabled: wledClient != nil,
			HubEnabled:  hub != nil,
		},
		logger: noopLogger{},
		sleep:  sleepCtx,
	}
}

// SetLogger sets the logger for the adapter.
func (a *Adapter) SetLogger(logger Logger) {
	if logger == nil {
		logger = noopLogger{}
	}
	a.logger = logger
}

// Initialize probes each enabled integration independently. A failed probe
// marks that integration unreachable and never aborts the other.
//
// Returns the resulting connectivity snapshot.
func (a *Adapter) Initialize(ctx context.Context) Connectivity {
	var wg sync.WaitGroup

	if a.wled != nil {
		wg.Add(1)
		go func() {
			defer wg.Done()
			pctx, cancel := context.WithTimeout(ctx, a.opts.ProbeTimeout)
			defer cancel()
			info, err := a.wled.Info(pctx)
			err = a.recordWLED(err)
			if err != nil {
				a.logger.Warn("wled unreachable", "error", err)
				return
			}
			a.mu.Lock()
			a.conn.WLEDName = info.Name
			a.mu.Unlock()
			a.logger.Info("wled reachable", "name", info.Name, "version", info.Version, "leds", info.LEDs.Count)
		}()
	}

	if a.hub != nil {
		wg.Add(1)
		go func() {
			defer wg.Done()
			pctx, cancel := context.WithTimeout(ctx, a.opts.ProbeTimeout)
			defer cancel()
			err := a.hub.Ping(pctx)
			err = a.recordHub(err)
			if err != nil {
				a.logger.Warn("home assistant unreachable", "error", err)
				return
			}
			a.logger.Info("home assistant reachable")
		}()
	}

	wg.Wait()

	now := time.Now().UTC()
	a.mu.Lock()
	a.conn.LastProbedAt = &now
	a.mu.Unlock()

	return a.Connectivity()
}

// Connectivity returns the current reachability snapshot.
func (a *Adapter) Connectivity() Connectivity {
	a.mu.RLock()
	defer a.mu.RUnlock()
	c := a.conn
	c.HasSnapshot = a.snapshot != nil
	return c
}

// Stats returns request and failure counters.
func (a *Adapter) Stats() Stats {
	return Stats{
		WLEDRequests: a.wledRequests.Load(),
		WLEDFailures: a.wledFailures.Load(),
		HubRequests:  a.hubRequests.Load(),
		HubFailures:  a.hubFailures.Load(),
	}
}

// ApplyIntent sends an intent to the WLED controller. An intent with Restore
// set re-sends the saved snapshot instead.
func (a *Adapter) ApplyIntent(ctx context.Context, intent *Intent) {
	if intent == nil || a.wled == nil {
		return
	}
	if intent.Restore {
		a.RestoreState(ctx)
		return
	}

	state := BuildState(intent, a.opts.OverrideLive)
	if intent.Effect != "" {
		if _, known := EffectID(intent.Effect); !known {
			a.logger.Warn("unknown effect, using solid", "effect", intent.Effect)
		}
	}

	err := a.wled.SetState(ctx, state)
	err = a.recordWLED(err)
	if err != nil {
		a.logger.Warn("wled state update failed", "error", err)
		return
	}
	a.logger.Debug("wled state applied", "effect", intent.Effect, "duration_ms", intent.DurationMS())
}

// SaveState captures the controller's current state verbatim.
func (a *Adapter) SaveState(ctx context.Context) {
	if a.wled == nil {
		return
	}
	raw, err := a.wled.State(ctx)
	err = a.recordWLED(err)
	if err != nil {
		a.logger.Warn("wled state snapshot failed", "error", err)
		return
	}
	a.mu.Lock()
	a.snapshot = raw
	a.mu.Unlock()
}

// RestoreState re-sends the last snapshot. Without one it logs a warning and
// does nothing.
func (a *Adapter) RestoreState(ctx context.Context) {
	if a.wled == nil {
		return
	}
	a.mu.RLock()
	raw := a.snapshot
	a.mu.RUnlock()

	if raw == nil {
		a.logger.Warn("wled restore skipped", "error", ErrNoSavedState)
		return
	}
	err := a.wled.SetRawState(ctx, raw)
	err = a.recordWLED(err)
	if err != nil {
		a.logger.Warn("wled restore failed", "error", err)
	}
}

// SendHubCommand forwards one natural-language command to the hub.
func (a *Adapter) SendHubCommand(ctx context.Context, text string) {
	if a.hub == nil {
		a.logger.Debug("hub command dropped", "text", text, "error", ErrDisabled)
		return
	}
	err := a.hub.Process(ctx, text)
	err = a.recordHub(err)
	if err != nil {
		a.logger.Warn("hub command failed", "text", text, "error", err)
		return
	}
	a.logger.Debug("hub command sent", "text", text)
}

// SendHubCommands sends commands in order, pausing between consecutive ones.
func (a *Adapter) SendHubCommands(ctx context.Context, texts []string) {
	for i, text := range texts {
		if i > 0 {
			if err := a.sleep(ctx, a.opts.HubCommandGap); err != nil {
				return
			}
		}
		a.SendHubCommand(ctx, text)
	}
}

// TurnOffAll powers off the WLED strip. Hub-controlled devices are left alone.
func (a *Adapter) TurnOffAll(ctx context.Context) {
	if a.wled == nil {
		return
	}
	err := a.wled.SetState(ctx, wled.State{On: wled.Bool(false)})
	err = a.recordWLED(err)
	if err != nil {
		a.logger.Warn("wled power off failed", "error", err)
	}
}

// FadeOut powers the strip off over d and waits for the transition to finish.
// When configured, it also hands control back to realtime sources (lor=0).
func (a *Adapter) FadeOut(ctx context.Context, d time.Duration) {
	if a.wled == nil {
		return
	}
	state := wled.State{
		On:         wled.Bool(false),
		Transition: wled.Int(wled.TransitionUnits(int(d.Milliseconds()))),
	}
	if a.opts.ReleaseLiveOnStop {
		state.LiveLock = wled.Int(0)
	}
	err := a.wled.SetState(ctx, state)
	err = a.recordWLED(err)
	if err != nil {
		a.logger.Warn("wled fade out failed", "error", err)
		return
	}
	_ = a.sleep(ctx, d)
}

// recordWLED updates reachability and counters, returning err wrapped as
// ErrRequestFailed.
func (a *Adapter) recordWLED(err error) error {
	a.wledRequests.Add(1)
	if err != nil {
		a.wledFailures.Add(1)
	}
	a.mu.Lock()
	a.conn.WLED = err == nil
	a.mu.Unlock()
	if err != nil {
		return fmt.Errorf("%w: wled: %w", ErrRequestFailed, err)
	}
	return nil
}

func (a *Adapter) recordHub(err error) error {
	a.hubRequests.Add(1)
	if err != nil {
		a.hubFailures.Add(1)
	}
	a.mu.Lock()
	a.conn.Hub = err == nil
	a.mu.Unlock()
	if err != nil {
		return fmt.Errorf("%w: home assistant: %w", ErrRequestFailed, err)
	}
	return nil
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
