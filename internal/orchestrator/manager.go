package orchestrator

import (
	"context"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/nerrad567/tavernlight-core/internal/audio"
	"github.com/nerrad567/tavernlight-core/internal/catalog"
	"github.com/nerrad567/tavernlight-core/internal/lighting"
)

// Logger is the logging interface used by the orchestrator.
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

// Catalog is the read-only scene and trigger source.
type Catalog interface {
	Scene(id string) (*catalog.Scene, error)
	Trigger(id string) (*catalog.Trigger, error)
	SceneSummaries() []catalog.Summary
	TriggerSummaries() []catalog.Summary
}

// Mixer is the subset of the audio mixer the orchestrator drives.
type Mixer interface {
	PlayAmbient(ctx context.Context, sources []string) error
	StopAmbient(ctx context.Context)
	StopMusic(ctx context.Context)
	PlayTrigger(source string) error
	FadeOutTriggers() <-chan struct{}
	StopTriggers(ctx context.Context)
	Status() audio.Status
}

// Lights is the subset of the lighting adapter the orchestrator drives.
type Lights interface {
	ApplyIntent(ctx context.Context, intent *lighting.Intent)
	SaveState(ctx context.Context)
	RestoreState(ctx context.Context)
	SendHubCommands(ctx context.Context, texts []string)
	TurnOffAll(ctx context.Context)
	FadeOut(ctx context.Context, d time.Duration)
	Connectivity() lighting.Connectivity
}

// Publisher receives session events. Publish must not block.
type Publisher interface {
	Publish(ev Event)
}

// Options configures a Manager.
type Options struct {
	// Transition is the lighting fade used when a scene starts or stops.
	// Default: 1s.
	Transition time.Duration

	// Publisher receives session events (may be nil).
	Publisher Publisher

	// History persists the session log (may be nil).
	History Repository
}

// Manager owns the active scene slot and runs trigger sequences.
//
// Scene transitions are serialised by a transition mutex held across the
// stop of the old scene and the start of the new one. The active scene
// itself sits behind a separate RW mutex so trigger sequences can read it
// without waiting for a transition to finish.
//
// Trigger sequences run in their own goroutines and outlive the request
// that started them. Within a sequence events are strictly ordered; across
// sequences nothing is ordered.
//
// Thread Safety: all methods are safe for concurrent use.
type Manager struct {
	catalog Catalog
	mixer   Mixer
	lights  Lights
	opts    Options

	transition sync.Mutex

	mu          sync.RWMutex
	active      *catalog.Scene
	activeSince *Record

	runs    sync.WaitGroup
	running atomic.Int32
	closed  atomic.Bool
	base    context.Context
	cancel  context.CancelFunc

	logger Logger
	sleep  func(ctx context.Context, d time.Duration) error
	now    func() time.Time
}

// NewManager creates a manager over the given catalog and devices.
//
// Parameters:
//   - cat: Scene and trigger definitions
//   - mixer: Audio mixer driving music, ambient and trigger channels
//   - lights: Lighting adapter driving WLED and the hub
//   - opts: Transition time, event publisher and history repository
func NewManager(cat Catalog, mixer Mixer, lights Lights, opts Options) *Manager {
	if opts.Transition <= 0 {
		opts.Transition = time.Second
	}
	base, cancel := context.WithCancel(context.Background())
	return &Manager{
		catalog: cat,
		mixer:   mixer,
		lights:  lights,
		opts:    opts,
		base:    base,
		cancel:  cancel,
		logger:  noopLogger{},
		sleep:   sleepCtx,
		now:     func() time.Time { return time.Now().UTC() },
	}
}

// SetLogger sets the logger for the manager.
func (m *Manager) SetLogger(logger Logger) {
	if logger == nil {
		logger = noopLogger{}
	}
	m.logger = logger
}

// ─── Scenes ────────────────────────────────────────────────────────

// StartScene makes id the active scene.
//
// Starting the scene that is already active toggles it off. Starting a
// different scene first stops the current one completely, awaiting both
// the ambient fade and the light fade, before the new scene is applied.
// Scene music is never started here; it belongs to the music channel.
//
// Returns:
//   - error: nil on success, or ErrSceneNotFound (no side effects)
func (m *Manager) StartScene(ctx context.Context, id string) error {
	scene, err := m.catalog.Scene(id)
	if err != nil {
		m.logger.Warn("scene start rejected", "scene_id", id, "error", err)
		return fmt.Errorf("starting scene %q: %w", id, err)
	}
	ctx = context.WithoutCancel(ctx)

	m.transition.Lock()
	defer m.transition.Unlock()

	if current := m.ActiveScene(); current != nil {
		if current.ID == id {
			m.logger.Info("scene toggled off", "scene_id", id)
			m.stopSceneLocked(ctx)
			return nil
		}
		m.stopSceneLocked(ctx)
	}

	rec := &Record{
		ID:        GenerateID(),
		Kind:      KindScene,
		RefID:     scene.ID,
		Name:      scene.Name,
		Status:    StatusActive,
		StartedAt: m.now(),
	}
	m.mu.Lock()
	m.active = scene
	m.activeSince = rec
	m.mu.Unlock()
	m.createRecord(ctx, rec)

	if ambient := scene.Ambient(); len(ambient) > 0 {
		if err := m.mixer.PlayAmbient(ctx, ambient); err != nil {
			m.logger.Warn("scene ambient incomplete", "scene_id", id, "error", err)
		}
	}
	if intent := m.sceneIntent(scene); intent != nil {
		m.lights.ApplyIntent(ctx, intent)
	}
	if cmds := scene.HubCommands(); len(cmds) > 0 {
		m.lights.SendHubCommands(ctx, cmds)
	}

	m.logger.Info("scene started", "scene_id", scene.ID, "scene_name", scene.Name, "layers", len(scene.Ambient()))
	m.publish(Event{Type: EventSceneStarted, SceneID: scene.ID, SceneName: scene.Name, ExecutionID: rec.ID})
	return nil
}

// StopScene stops the active scene. It does nothing when no scene is active.
func (m *Manager) StopScene(ctx context.Context) {
	ctx = context.WithoutCancel(ctx)
	m.transition.Lock()
	defer m.transition.Unlock()
	m.stopSceneLocked(ctx)
}

// stopSceneLocked fades ambient audio and lights concurrently and waits for
// both. Caller holds m.transition.
func (m *Manager) stopSceneLocked(ctx context.Context) {
	m.mu.Lock()
	scene, rec := m.active, m.activeSince
	m.active, m.activeSince = nil, nil
	m.mu.Unlock()

	if scene == nil {
		return
	}

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		m.mixer.StopAmbient(gctx)
		return nil
	})
	g.Go(func() error {
		m.lights.FadeOut(gctx, m.opts.Transition)
		return nil
	})
	_ = g.Wait()

	m.completeRecord(ctx, rec, StatusStopped)
	m.logger.Info("scene stopped", "scene_id", scene.ID)
	m.publish(Event{Type: EventSceneStopped, SceneID: scene.ID, SceneName: scene.Name, ExecutionID: rec.ID, DurationMS: derefInt(rec.DurationMS)})
}

// ActiveScene returns a copy of the active scene, or nil.
func (m *Manager) ActiveScene() *catalog.Scene {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.active.DeepCopy()
}

// Scenes returns scene summaries in declaration order.
func (m *Manager) Scenes() []catalog.Summary { return m.catalog.SceneSummaries() }

// Triggers returns trigger summaries in declaration order.
func (m *Manager) Triggers() []catalog.Summary { return m.catalog.TriggerSummaries() }

// sceneIntent is the scene's WLED intent with the solid effect and the
// configured transition filled in where the scene leaves them out.
func (m *Manager) sceneIntent(scene *catalog.Scene) *lighting.Intent {
	intent := scene.WLED().DeepCopy()
	if intent == nil {
		return nil
	}
	if intent.Effect == "" {
		intent.Effect = lighting.EffectSolid
	}
	if intent.Duration == nil {
		intent.Duration = lighting.Int(int(m.opts.Transition.Milliseconds()))
	}
	return intent
}

// ─── Triggers ──────────────────────────────────────────────────────

// ExecuteTrigger starts trigger id and returns at once with its execution ID.
//
// Trigger sounds still playing from earlier triggers fade out; earlier
// sequences keep running and their lighting is never cancelled. The
// sequence is adapted to the scene active at this moment.
//
// Returns:
//   - string: Execution ID for tracking
//   - error: nil on success, ErrTriggerNotFound or ErrShuttingDown
func (m *Manager) ExecuteTrigger(ctx context.Context, id string) (string, error) {
	if m.closed.Load() {
		return "", ErrShuttingDown
	}
	trig, err := m.catalog.Trigger(id)
	if err != nil {
		m.logger.Warn("trigger rejected", "trigger_id", id, "error", err)
		return "", fmt.Errorf("executing trigger %q: %w", id, err)
	}

	m.mixer.FadeOutTriggers()

	scene := m.ActiveScene()
	adapted := AdaptTrigger(trig, scene)

	rec := &Record{
		ID:        GenerateID(),
		Kind:      KindTrigger,
		RefID:     trig.ID,
		Name:      trig.Name,
		Status:    StatusRunning,
		Events:    len(trig.Sequence),
		StartedAt: m.now(),
	}

	m.logger.Info("trigger started", "trigger_id", trig.ID, "execution_id", rec.ID, "events", len(trig.Sequence), "scene_id", sceneID(scene))
	m.publish(Event{Type: EventTriggerStarted, TriggerID: trig.ID, TriggerName: trig.Name, ExecutionID: rec.ID, SceneID: sceneID(scene)})

	runCtx, cancel := context.WithCancel(context.WithoutCancel(ctx))
	stop := context.AfterFunc(m.base, cancel)

	m.runs.Add(1)
	m.running.Add(1)
	go func() {
		defer m.runs.Done()
		defer m.running.Add(-1)
		defer stop()
		defer cancel()
		m.runTrigger(runCtx, adapted, rec)
	}()
	return rec.ID, nil
}

// runTrigger executes one adapted sequence and restores lighting afterwards.
func (m *Manager) runTrigger(ctx context.Context, trig *catalog.Trigger, rec *Record) {
	m.createRecord(ctx, rec)

	lanes := newSequenceLanes(len(trig.Sequence) + 1)
	lanes.wled.submit(func() { m.lights.SaveState(ctx) })
	status := StatusCompleted
	for i, ev := range trig.Sequence {
		if ev.Delay > 0 {
			if err := m.sleep(ctx, time.Duration(ev.Delay)*time.Millisecond); err != nil {
				m.logger.Warn("trigger sequence cancelled", "trigger_id", trig.ID, "execution_id", rec.ID, "event", i)
				status = StatusCancelled
				break
			}
		}
		m.dispatch(ctx, lanes, trig.ID, i, ev)
	}
	lanes.drain()

	m.restoreLighting(ctx)

	m.completeRecord(context.WithoutCancel(ctx), rec, status)
	m.logger.Info("trigger completed", "trigger_id", trig.ID, "execution_id", rec.ID, "status", status, "duration_ms", derefInt(rec.DurationMS))
	m.publish(Event{Type: EventTriggerCompleted, TriggerID: trig.ID, TriggerName: trig.Name, ExecutionID: rec.ID, DurationMS: derefInt(rec.DurationMS)})
}

// dispatch starts one event's side effects and returns at once. Trigger
// sounds start inline; ambient changes, WLED updates and hub commands go to
// the sequence's lanes, which keep each channel in event order. The lanes
// are drained before the sequence restores lighting.
func (m *Manager) dispatch(ctx context.Context, lanes *sequenceLanes, triggerID string, index int, ev catalog.Event) {
	if a := ev.Audio; a != nil {
		if a.Trigger != "" {
			if err := m.mixer.PlayTrigger(a.Trigger); err != nil {
				m.logger.Warn("trigger sound failed", "trigger_id", triggerID, "event", index, "error", err)
			}
		}
		if len(a.Ambient) > 0 {
			sources := a.Ambient.Clone()
			lanes.ambient.submit(func() {
				if err := m.mixer.PlayAmbient(ctx, sources); err != nil {
					m.logger.Warn("trigger ambient failed", "trigger_id", triggerID, "event", index, "error", err)
				}
			})
		}
	}

	if l := ev.Lighting; l != nil {
		if intent := l.WLED; intent != nil {
			lanes.wled.submit(func() { m.lights.ApplyIntent(ctx, intent) })
		}
		if len(l.HomeAssistant) > 0 {
			cmds := l.HomeAssistant.Clone()
			lanes.hub.submit(func() { m.lights.SendHubCommands(ctx, cmds) })
		}
	}
	m.logger.Debug("trigger event dispatched", "trigger_id", triggerID, "event", index, "delay_ms", ev.Delay)
}

// restoreLighting returns the lights to the active scene, or turns them off
// when no scene is active. A scene without WLED lighting gets the snapshot
// taken before the sequence.
func (m *Manager) restoreLighting(ctx context.Context) {
	scene := m.ActiveScene()
	switch {
	case scene == nil:
		m.lights.TurnOffAll(ctx)
	case scene.WLED() == nil:
		m.lights.RestoreState(ctx)
	default:
		m.lights.ApplyIntent(ctx, m.sceneIntent(scene))
	}
}

// ─── Session ───────────────────────────────────────────────────────

// StopAll ends the session: the scene slot is cleared, music, ambient and
// trigger sounds fade out together and the lights are turned off. In-flight
// trigger sequences keep running.
func (m *Manager) StopAll(ctx context.Context) {
	ctx = context.WithoutCancel(ctx)
	m.transition.Lock()
	defer m.transition.Unlock()

	m.mu.Lock()
	scene, rec := m.active, m.activeSince
	m.active, m.activeSince = nil, nil
	m.mu.Unlock()

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error { m.mixer.StopMusic(gctx); return nil })
	g.Go(func() error { m.mixer.StopAmbient(gctx); return nil })
	g.Go(func() error { m.mixer.StopTriggers(gctx); return nil })
	_ = g.Wait()

	m.lights.TurnOffAll(ctx)

	if rec != nil {
		m.completeRecord(ctx, rec, StatusStopped)
		m.publish(Event{Type: EventSceneStopped, SceneID: scene.ID, SceneName: scene.Name, ExecutionID: rec.ID, DurationMS: derefInt(rec.DurationMS)})
	}

	now := m.now()
	stopRec := &Record{ID: GenerateID(), Kind: KindStopAll, Status: StatusCompleted, StartedAt: now}
	stopRec.finish(StatusCompleted, now)
	m.createRecord(ctx, stopRec)

	m.logger.Info("session stopped", "scene_id", sceneID(scene))
	m.publish(Event{Type: EventSessionStopped, SceneID: sceneID(scene)})
}

// Status returns a snapshot of the scene slot, audio and lighting.
func (m *Manager) Status() Status {
	s := Status{
		RunningTriggers: int(m.running.Load()),
		Audio:           m.mixer.Status(),
		Lighting:        m.lights.Connectivity(),
	}
	m.mu.RLock()
	if m.active != nil {
		s.ActiveScene = &catalog.Summary{ID: m.active.ID, Name: m.active.Name}
	}
	m.mu.RUnlock()
	return s
}

// RunningTriggers returns the number of trigger sequences in flight.
func (m *Manager) RunningTriggers() int { return int(m.running.Load()) }

// Wait blocks until every in-flight trigger sequence has finished.
func (m *Manager) Wait() { m.runs.Wait() }

// Shutdown refuses new triggers and waits for in-flight sequences. When ctx
// expires first, the remaining sequences are cancelled and awaited.
func (m *Manager) Shutdown(ctx context.Context) error {
	m.closed.Store(true)

	done := make(chan struct{})
	go func() {
		m.runs.Wait()
		close(done)
	}()

	select {
	case <-done:
		m.cancel()
		return nil
	case <-ctx.Done():
		m.cancel()
		<-done
		return fmt.Errorf("waiting for trigger sequences: %w", ctx.Err())
	}
}

// ─── Internals ─────────────────────────────────────────────────────

func (m *Manager) publish(ev Event) {
	if m.opts.Publisher == nil {
		return
	}
	if ev.At.IsZero() {
		ev.At = m.now()
	}
	m.opts.Publisher.Publish(ev)
}

func (m *Manager) createRecord(ctx context.Context, rec *Record) {
	if m.opts.History == nil {
		return
	}
	if err := m.opts.History.Create(ctx, rec); err != nil {
		// History is best-effort; the session carries on without it.
		m.logger.Error("failed to create history record", "kind", rec.Kind, "error", err)
	}
}

func (m *Manager) completeRecord(ctx context.Context, rec *Record, status RecordStatus) {
	if rec == nil {
		return
	}
	rec.finish(status, m.now())
	if m.opts.History == nil {
		return
	}
	if err := m.opts.History.Complete(ctx, rec); err != nil {
		m.logger.Error("failed to update history record", "kind", rec.Kind, "error", err)
	}
}

func sceneID(s *catalog.Scene) string {
	if s == nil {
		return ""
	}
	return s.ID
}

func derefInt(p *int) int {
	if p == nil {
		return 0
	}
	return *p
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
