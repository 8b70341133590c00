package api

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/nerrad567/tavernlight-core/internal/audio"
	"github.com/nerrad567/tavernlight-core/internal/catalog"
	"github.com/nerrad567/tavernlight-core/internal/infrastructure/config"
	"github.com/nerrad567/tavernlight-core/internal/infrastructure/logging"
	"github.com/nerrad567/tavernlight-core/internal/infrastructure/metrics"
	"github.com/nerrad567/tavernlight-core/internal/orchestrator"
)

// ─── Test Helpers ──────────────────────────────────────────────────

type testEnv struct {
	srv       *Server
	router    http.Handler
	manager   *mockManager
	mixer     *mockMixer
	lights    *mockLights
	publisher *mockPublisher
	history   *mockHistory
}

func testLogger() *logging.Logger {
	return logging.New(config.LoggingConfig{Level: "error", Format: "text", Output: "discard"}, "test")
}

// testServer creates a Server over mocks. Extra options may adjust Deps.
func testServer(t *testing.T, opts ...func(*Deps)) *testEnv {
	t.Helper()

	env := &testEnv{
		manager:   newMockManager(),
		mixer:     newMockMixer(),
		lights:    &mockLights{},
		publisher: &mockPublisher{},
		history: &mockHistory{records: []orchestrator.Record{
			{ID: "rec-1", Kind: orchestrator.KindScene, RefID: "tavern", Status: orchestrator.StatusStopped},
			{ID: "rec-2", Kind: orchestrator.KindTrigger, RefID: "lightning", Status: orchestrator.StatusCompleted},
		}},
	}

	deps := Deps{
		Config: config.APIConfig{
			Host:     "127.0.0.1",
			Port:     0,
			Timeouts: config.APITimeoutConfig{Read: 5, Write: 5, Idle: 5},
		},
		WS:      config.WebSocketConfig{Path: "/ws", MaxMessageSize: 8192, PingInterval: 30, PongTimeout: 10},
		Logger:  testLogger(),
		Manager: env.manager,
		Mixer:   env.mixer,
		Lights:  env.lights,
		Definitions: &mockDefinitions{scenes: map[string]*catalog.Scene{
			"tavern": {ID: "tavern", Name: "The Tavern", Audio: &catalog.SceneAudio{
				Music:   catalog.MusicSource{StringList: catalog.StringList{"music/tavern/a.mp3", "music/tavern/b.mp3"}},
				Ambient: catalog.StringList{"ambient/fire.mp3"},
			}},
			"forest": {ID: "forest", Name: "Deep Forest"},
		}},
		History:   env.history,
		Publisher: env.publisher,
		Version:   "test",
	}
	for _, opt := range opts {
		opt(&deps)
	}

	srv, err := New(deps)
	if err != nil {
		t.Fatalf("New() error: %v", err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	t.Cleanup(cancel)
	srv.hub = NewHub(srv.wsCfg, srv.logger)
	srv.hub.SetStatusSource(srv.manager.Status)
	go srv.hub.Run(ctx)

	env.srv = srv
	env.router = srv.buildRouter()
	return env
}

func (e *testEnv) do(t *testing.T, method, path, body string) *httptest.ResponseRecorder {
	t.Helper()
	var req *http.Request
	if body == "" {
		req = httptest.NewRequest(method, path, nil)
	} else {
		req = httptest.NewRequest(method, path, strings.NewReader(body))
		req.Header.Set("Content-Type", "application/json")
	}
	w := httptest.NewRecorder()
	e.router.ServeHTTP(w, req)
	return w
}

func decode[T any](t *testing.T, w *httptest.ResponseRecorder) T {
	t.Helper()
	var v T
	if err := json.Unmarshal(w.Body.Bytes(), &v); err != nil {
		t.Fatalf("decode %q: %v", w.Body.String(), err)
	}
	return v
}

func wantStatus(t *testing.T, w *httptest.ResponseRecorder, want int) {
	t.Helper()
	if w.Code != want {
		t.Fatalf("status = %d, want %d (body: %s)", w.Code, want, w.Body.String())
	}
}

// ─── Health & Middleware ───────────────────────────────────────────

func TestHealth(t *testing.T) {
	env := testServer(t)

	w := env.do(t, http.MethodGet, "/api/v1/health", "")
	wantStatus(t, w, http.StatusOK)

	resp := decode[map[string]any](t, w)
	if resp["status"] != "ok" || resp["version"] != "test" {
		t.Errorf("health = %v", resp)
	}
	if ct := w.Header().Get("Content-Type"); ct != "application/json" {
		t.Errorf("Content-Type = %q", ct)
	}
}

func TestRequestID_Generated(t *testing.T) {
	env := testServer(t)

	w := env.do(t, http.MethodGet, "/api/v1/health", "")
	if id := w.Header().Get("X-Request-ID"); len(id) != requestIDBytes*2 {
		t.Errorf("X-Request-ID = %q, want %d hex chars", id, requestIDBytes*2)
	}
}

func TestRequestID_PreservesClient(t *testing.T) {
	env := testServer(t)

	req := httptest.NewRequest(http.MethodGet, "/api/v1/health", nil)
	req.Header.Set("X-Request-ID", "panel-123")
	w := httptest.NewRecorder()
	env.router.ServeHTTP(w, req)

	if got := w.Header().Get("X-Request-ID"); got != "panel-123" {
		t.Errorf("X-Request-ID = %q, want panel-123", got)
	}
}

func TestCORS(t *testing.T) {
	env := testServer(t, func(d *Deps) {
		d.Config.CORS.AllowedOrigins = []string{"http://table.local"}
	})

	req := httptest.NewRequest(http.MethodOptions, "/api/v1/scenes", nil)
	req.Header.Set("Origin", "http://table.local")
	w := httptest.NewRecorder()
	env.router.ServeHTTP(w, req)

	if w.Code != http.StatusNoContent {
		t.Errorf("preflight status = %d, want 204", w.Code)
	}
	if got := w.Header().Get("Access-Control-Allow-Origin"); got != "http://table.local" {
		t.Errorf("Allow-Origin = %q", got)
	}

	req = httptest.NewRequest(http.MethodGet, "/api/v1/health", nil)
	req.Header.Set("Origin", "http://elsewhere")
	w = httptest.NewRecorder()
	env.router.ServeHTTP(w, req)
	if got := w.Header().Get("Access-Control-Allow-Origin"); got != "" {
		t.Errorf("disallowed origin got Allow-Origin %q", got)
	}
}

func TestNotFoundRoute(t *testing.T) {
	env := testServer(t)

	w := env.do(t, http.MethodGet, "/api/v1/nope", "")
	wantStatus(t, w, http.StatusNotFound)
	if e := decode[Error](t, w); e.Code != ErrCodeNotFound || e.Status != http.StatusNotFound {
		t.Errorf("error body = %+v", e)
	}
}

func TestRecovery(t *testing.T) {
	env := testServer(t)
	env.manager.statusFunc = func() orchestrator.Status { panic("boom") }

	w := env.do(t, http.MethodGet, "/api/v1/status", "")
	wantStatus(t, w, http.StatusInternalServerError)
}

func TestNew_RequiresDependencies(t *testing.T) {
	tests := []struct {
		name string
		deps Deps
	}{
		{"logger", Deps{}},
		{"manager", Deps{Logger: testLogger()}},
		{"mixer", Deps{Logger: testLogger(), Manager: newMockManager()}},
		{"lights", Deps{Logger: testLogger(), Manager: newMockManager(), Mixer: newMockMixer()}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, err := New(tt.deps); err == nil {
				t.Errorf("New() without %s succeeded", tt.name)
			}
		})
	}
}

// ─── Scenes & Triggers ─────────────────────────────────────────────

func TestListScenes(t *testing.T) {
	env := testServer(t)

	w := env.do(t, http.MethodGet, "/api/v1/scenes", "")
	wantStatus(t, w, http.StatusOK)

	resp := decode[struct {
		Scenes []catalog.Summary `json:"scenes"`
		Count  int               `json:"count"`
	}](t, w)
	if resp.Count != 2 || resp.Scenes[0].ID != "tavern" || resp.Scenes[1].Name != "Deep Forest" {
		t.Errorf("scenes = %+v", resp)
	}
}

func TestGetScene(t *testing.T) {
	env := testServer(t)

	w := env.do(t, http.MethodGet, "/api/v1/scenes/tavern", "")
	wantStatus(t, w, http.StatusOK)
	if sc := decode[catalog.Scene](t, w); sc.Audio == nil || len(sc.Audio.Ambient) != 1 {
		t.Errorf("scene = %+v", sc)
	}

	w = env.do(t, http.MethodGet, "/api/v1/scenes/dungeon", "")
	wantStatus(t, w, http.StatusNotFound)
}

func TestStartScene_Toggle(t *testing.T) {
	env := testServer(t)

	w := env.do(t, http.MethodPost, "/api/v1/scenes/tavern/start", "")
	wantStatus(t, w, http.StatusOK)
	if st := decode[orchestrator.Status](t, w); st.ActiveScene == nil || st.ActiveScene.ID != "tavern" {
		t.Fatalf("active scene after start = %+v", st.ActiveScene)
	}

	w = env.do(t, http.MethodPost, "/api/v1/scenes/tavern/start", "")
	wantStatus(t, w, http.StatusOK)
	if st := decode[orchestrator.Status](t, w); st.ActiveScene != nil {
		t.Errorf("active scene after toggle = %+v, want none", st.ActiveScene)
	}
}

func TestStartScene_NotFound(t *testing.T) {
	env := testServer(t)

	w := env.do(t, http.MethodPost, "/api/v1/scenes/dungeon/start", "")
	wantStatus(t, w, http.StatusNotFound)
	if len(env.manager.calls) != 0 {
		t.Errorf("calls = %v, want none", env.manager.calls)
	}
}

func TestStopScene(t *testing.T) {
	env := testServer(t)

	env.do(t, http.MethodPost, "/api/v1/scenes/forest/start", "")
	w := env.do(t, http.MethodPost, "/api/v1/scenes/stop", "")
	wantStatus(t, w, http.StatusOK)
	if env.manager.lastCall() != "stop" {
		t.Errorf("last call = %q, want stop", env.manager.lastCall())
	}
}

func TestSceneMusic(t *testing.T) {
	env := testServer(t)

	w := env.do(t, http.MethodPost, "/api/v1/scenes/tavern/music", `{"shuffle":true}`)
	wantStatus(t, w, http.StatusOK)

	if env.mixer.music == nil || len(env.mixer.music.Tracks) != 2 || !env.mixer.music.List {
		t.Fatalf("music source = %+v", env.mixer.music)
	}
	if !env.mixer.loop || !env.mixer.shuffle {
		t.Errorf("loop=%v shuffle=%v, want both true", env.mixer.loop, env.mixer.shuffle)
	}
}

func TestSceneMusic_NoMusic(t *testing.T) {
	env := testServer(t)

	w := env.do(t, http.MethodPost, "/api/v1/scenes/forest/music", "")
	wantStatus(t, w, http.StatusConflict)
}

func TestSceneMusic_NamedPlaylist(t *testing.T) {
	dir := t.TempDir()
	if err := os.WriteFile(filepath.Join(dir, "battle.m3u"), []byte("# battle\ndrums.mp3\nhorns.mp3\n"), 0o600); err != nil {
		t.Fatal(err)
	}
	env := testServer(t, func(d *Deps) {
		d.Resolver = catalog.Resolver{LibraryDir: dir, Playlists: map[string]string{"battle": "battle.m3u"}}
		d.Definitions = &mockDefinitions{scenes: map[string]*catalog.Scene{
			"arena": {ID: "arena", Audio: &catalog.SceneAudio{Music: catalog.MusicSource{StringList: catalog.StringList{"playlist:battle"}}}},
		}}
	})

	w := env.do(t, http.MethodPost, "/api/v1/scenes/arena/music", `{"loop":false}`)
	wantStatus(t, w, http.StatusOK)
	if got := env.mixer.music.Tracks; len(got) != 2 || got[0] != "drums.mp3" {
		t.Errorf("tracks = %v", got)
	}
	if env.mixer.loop {
		t.Error("loop = true, want false")
	}
}

func TestListTriggers(t *testing.T) {
	env := testServer(t)

	w := env.do(t, http.MethodGet, "/api/v1/triggers", "")
	wantStatus(t, w, http.StatusOK)
	if resp := decode[map[string]any](t, w); resp["count"] != float64(1) {
		t.Errorf("triggers = %v", resp)
	}

	w = env.do(t, http.MethodGet, "/api/v1/triggers/lightning", "")
	wantStatus(t, w, http.StatusOK)
	w = env.do(t, http.MethodGet, "/api/v1/triggers/earthquake", "")
	wantStatus(t, w, http.StatusNotFound)
}

func TestExecuteTrigger(t *testing.T) {
	env := testServer(t)

	w := env.do(t, http.MethodPost, "/api/v1/triggers/lightning/execute", "")
	wantStatus(t, w, http.StatusAccepted)
	resp := decode[map[string]string](t, w)
	if resp["execution_id"] != "exec-lightning" || resp["trigger_id"] != "lightning" {
		t.Errorf("response = %v", resp)
	}
}

func TestExecuteTrigger_Errors(t *testing.T) {
	env := testServer(t)

	w := env.do(t, http.MethodPost, "/api/v1/triggers/earthquake/execute", "")
	wantStatus(t, w, http.StatusNotFound)

	env.manager.shutdown = true
	w = env.do(t, http.MethodPost, "/api/v1/triggers/lightning/execute", "")
	wantStatus(t, w, http.StatusServiceUnavailable)
	if e := decode[Error](t, w); e.Code != ErrCodeUnavailable {
		t.Errorf("code = %q", e.Code)
	}
}

func TestStopAll(t *testing.T) {
	env := testServer(t)

	w := env.do(t, http.MethodPost, "/api/v1/stop", "")
	wantStatus(t, w, http.StatusOK)
	if env.manager.lastCall() != "stop_all" {
		t.Errorf("last call = %q", env.manager.lastCall())
	}
}

// ─── Audio ─────────────────────────────────────────────────────────

func TestSetVolume(t *testing.T) {
	env := testServer(t)

	w := env.do(t, http.MethodPut, "/api/v1/audio/volume", `{"category":"music","volume":0.4}`)
	wantStatus(t, w, http.StatusOK)

	if got := env.mixer.volumes[audio.CategoryMusic]; got != 0.4 {
		t.Errorf("music volume = %v, want 0.4", got)
	}
	if len(env.publisher.events) != 1 {
		t.Fatalf("published %d events, want 1", len(env.publisher.events))
	}
	ev := env.publisher.events[0]
	if ev.Type != orchestrator.EventVolumeChanged || ev.Data["category"] != "music" || ev.Data["volume"] != 0.4 {
		t.Errorf("event = %+v", ev)
	}
}

func TestSetVolume_Invalid(t *testing.T) {
	tests := []struct {
		name string
		body string
		want int
	}{
		{"above range", `{"category":"music","volume":1.5}`, http.StatusBadRequest},
		{"below range", `{"category":"ambient","volume":-0.1}`, http.StatusBadRequest},
		{"unknown category", `{"category":"voice","volume":0.5}`, http.StatusBadRequest},
		{"missing volume", `{"category":"music"}`, http.StatusBadRequest},
		{"malformed", `{`, http.StatusBadRequest},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			env := testServer(t)
			w := env.do(t, http.MethodPut, "/api/v1/audio/volume", tt.body)
			wantStatus(t, w, tt.want)
			if len(env.publisher.events) != 0 {
				t.Errorf("rejected change published %d events", len(env.publisher.events))
			}
		})
	}
}

func TestMusicTransport(t *testing.T) {
	env := testServer(t)

	w := env.do(t, http.MethodPost, "/api/v1/audio/music/pause", "")
	wantStatus(t, w, http.StatusConflict)

	w = env.do(t, http.MethodPost, "/api/v1/audio/music", `{"source":["a.mp3","b.mp3"]}`)
	wantStatus(t, w, http.StatusOK)

	for _, action := range []string{"pause", "resume", "next", "prev"} {
		w = env.do(t, http.MethodPost, "/api/v1/audio/music/"+action, "")
		wantStatus(t, w, http.StatusOK)
	}
	if got := strings.Join(env.mixer.transport, ","); got != "pause,resume,next,prev" {
		t.Errorf("transport = %s", got)
	}

	w = env.do(t, http.MethodPost, "/api/v1/audio/music/rewind", "")
	wantStatus(t, w, http.StatusNotFound)

	w = env.do(t, http.MethodPost, "/api/v1/audio/music/stop", "")
	wantStatus(t, w, http.StatusNoContent)
	w = env.do(t, http.MethodGet, "/api/v1/audio/music", "")
	wantStatus(t, w, http.StatusNoContent)
}

func TestPlayMusic_FromLibraryCollection(t *testing.T) {
	dir := t.TempDir()
	col := filepath.Join(dir, "music", "tavern")
	if err := os.MkdirAll(col, 0o755); err != nil {
		t.Fatal(err)
	}
	for _, name := range []string{"b-jig.mp3", "a-reel.ogg", "notes.txt"} {
		if err := os.WriteFile(filepath.Join(col, name), []byte("x"), 0o600); err != nil {
			t.Fatal(err)
		}
	}
	env := testServer(t, func(d *Deps) { d.LibraryDir = dir })

	w := env.do(t, http.MethodPost, "/api/v1/audio/music", `{"category":"music","collection":"tavern"}`)
	wantStatus(t, w, http.StatusOK)
	want := []string{"music/tavern/a-reel.ogg", "music/tavern/b-jig.mp3"}
	if got := env.mixer.music.Tracks; len(got) != 2 || got[0] != want[0] || got[1] != want[1] {
		t.Errorf("tracks = %v, want %v", got, want)
	}

	w = env.do(t, http.MethodPost, "/api/v1/audio/music", `{"category":"music","collection":"dungeon"}`)
	wantStatus(t, w, http.StatusNotFound)

	w = env.do(t, http.MethodPost, "/api/v1/audio/music", `{}`)
	wantStatus(t, w, http.StatusBadRequest)
}

func TestAmbientAndTriggerSounds(t *testing.T) {
	env := testServer(t)

	w := env.do(t, http.MethodPost, "/api/v1/audio/ambient", `{"sources":["rain.mp3","wind.mp3"]}`)
	wantStatus(t, w, http.StatusOK)
	if st := decode[audio.Status](t, w); len(st.AmbientLayers) != 2 {
		t.Errorf("ambient layers = %v", st.AmbientLayers)
	}

	w = env.do(t, http.MethodDelete, "/api/v1/audio/ambient", "")
	wantStatus(t, w, http.StatusOK)
	if len(env.mixer.ambient) != 0 {
		t.Errorf("ambient after stop = %v", env.mixer.ambient)
	}

	w = env.do(t, http.MethodPost, "/api/v1/audio/trigger", `{"source":"door.mp3"}`)
	wantStatus(t, w, http.StatusAccepted)
	w = env.do(t, http.MethodPost, "/api/v1/audio/trigger", `{"source":"missing.mp3"}`)
	wantStatus(t, w, http.StatusUnprocessableEntity)
	w = env.do(t, http.MethodPost, "/api/v1/audio/trigger", `{}`)
	wantStatus(t, w, http.StatusBadRequest)
}

// ─── Library, Lighting, History ────────────────────────────────────

func TestLibrary(t *testing.T) {
	dir := t.TempDir()
	for _, p := range []string{"music/tavern/jig.mp3", "ambient/weather/rain.wav", "ambient/empty/readme.md"} {
		full := filepath.Join(dir, p)
		if err := os.MkdirAll(filepath.Dir(full), 0o755); err != nil {
			t.Fatal(err)
		}
		if err := os.WriteFile(full, []byte("x"), 0o600); err != nil {
			t.Fatal(err)
		}
	}
	env := testServer(t, func(d *Deps) { d.LibraryDir = dir })

	w := env.do(t, http.MethodGet, "/api/v1/library", "")
	wantStatus(t, w, http.StatusOK)
	resp := decode[libraryResponse](t, w)
	if resp.Categories != 2 || resp.Collections != 2 || resp.Tracks != 2 {
		t.Errorf("counts = %d/%d/%d, want 2/2/2", resp.Categories, resp.Collections, resp.Tracks)
	}
	if _, ok := resp.Index["ambient"]["empty"]; ok {
		t.Error("empty collection listed")
	}
}

func TestLibrary_NotConfigured(t *testing.T) {
	env := testServer(t)
	wantStatus(t, env.do(t, http.MethodGet, "/api/v1/library", ""), http.StatusNotFound)
}

func TestLighting(t *testing.T) {
	env := testServer(t)

	w := env.do(t, http.MethodPost, "/api/v1/lighting/probe", "")
	wantStatus(t, w, http.StatusOK)
	if env.lights.probes != 1 {
		t.Errorf("probes = %d, want 1", env.lights.probes)
	}

	w = env.do(t, http.MethodGet, "/api/v1/lighting", "")
	wantStatus(t, w, http.StatusOK)
	if !strings.Contains(w.Body.String(), `"wled":true`) {
		t.Errorf("lighting = %s", w.Body.String())
	}
}

func TestHistory(t *testing.T) {
	env := testServer(t)

	w := env.do(t, http.MethodGet, "/api/v1/history?kind=trigger&limit=10&offset=0", "")
	wantStatus(t, w, http.StatusOK)
	page := decode[orchestrator.HistoryPage](t, w)
	if page.Total != 1 || page.Records[0].ID != "rec-2" {
		t.Errorf("page = %+v", page)
	}
	if env.history.lastFilter.Limit != 10 {
		t.Errorf("limit passed = %d", env.history.lastFilter.Limit)
	}

	w = env.do(t, http.MethodGet, "/api/v1/history/rec-1", "")
	wantStatus(t, w, http.StatusOK)
	w = env.do(t, http.MethodGet, "/api/v1/history/rec-9", "")
	wantStatus(t, w, http.StatusNotFound)
}

func TestHistory_BadQuery(t *testing.T) {
	env := testServer(t)

	for _, q := range []string{"kind=dance", "limit=abc", "offset=-1"} {
		w := env.do(t, http.MethodGet, "/api/v1/history?"+q, "")
		if w.Code != http.StatusBadRequest {
			t.Errorf("?%s status = %d, want 400", q, w.Code)
		}
	}
}

func TestHistory_Disabled(t *testing.T) {
	env := testServer(t, func(d *Deps) { d.History = nil })
	wantStatus(t, env.do(t, http.MethodGet, "/api/v1/history", ""), http.StatusNotFound)
}

// ─── Metrics ───────────────────────────────────────────────────────

func TestPrometheusEndpoint(t *testing.T) {
	m := metrics.New()
	env := testServer(t, func(d *Deps) {
		d.Metrics = m
		d.MetricsPath = "/metrics"
	})

	env.do(t, http.MethodGet, "/api/v1/health", "")
	w := env.do(t, http.MethodGet, "/metrics", "")
	wantStatus(t, w, http.StatusOK)
	if !strings.Contains(w.Body.String(), `tavernlight_http_requests_total{code="200",method="GET"}`) {
		t.Errorf("metrics output missing http counter:\n%s", w.Body.String())
	}
}

func TestSystemMetrics(t *testing.T) {
	env := testServer(t, func(d *Deps) { d.MQTT = mockBroker{connected: true} })

	w := env.do(t, http.MethodGet, "/api/v1/system", "")
	wantStatus(t, w, http.StatusOK)
	sys := decode[SystemMetrics](t, w)
	if !sys.MQTT.Enabled || !sys.MQTT.Connected {
		t.Errorf("mqtt = %+v", sys.MQTT)
	}
	if sys.Lighting.WLEDRequests != 3 || sys.Session.Scenes != 2 || sys.Database != nil {
		t.Errorf("system = %+v", sys)
	}
}

// ─── Server Lifecycle ──────────────────────────────────────────────

func TestServer_StartAndClose(t *testing.T) {
	port := 19180
	env := testServer(t, func(d *Deps) { d.Config.Port = port })
	srv := env.srv
	srv.hub = nil // let Start create its own

	if err := srv.Start(context.Background()); err != nil {
		t.Fatalf("Start() error: %v", err)
	}
	if err := srv.HealthCheck(context.Background()); err != nil {
		t.Errorf("HealthCheck() after Start = %v", err)
	}

	addr := fmt.Sprintf("http://127.0.0.1:%d/api/v1/health", port)
	var resp *http.Response
	var err error
	for i := 0; i < 20; i++ {
		resp, err = http.Get(addr) //nolint:noctx // test helper
		if err == nil {
			break
		}
		time.Sleep(25 * time.Millisecond)
	}
	if err != nil {
		t.Fatalf("health check failed: %v", err)
	}
	resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		t.Errorf("health status = %d, want 200", resp.StatusCode)
	}

	if err := srv.Close(); err != nil {
		t.Errorf("Close() error: %v", err)
	}
	if _, err := http.Get(addr); err == nil { //nolint:noctx // test helper
		t.Error("server still responding after Close()")
	}
}

func TestServer_HealthCheckBeforeStart(t *testing.T) {
	env := testServer(t)
	if err := env.srv.HealthCheck(context.Background()); err == nil {
		t.Error("HealthCheck() before Start = nil, want error")
	}
	if err := env.srv.Close(); err != nil {
		t.Errorf("Close() before Start = %v", err)
	}
}
