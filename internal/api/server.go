package api

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/nerrad567/tavernlight-core/internal/audio"
	"github.com/nerrad567/tavernlight-core/internal/catalog"
	"github.com/nerrad567/tavernlight-core/internal/infrastructure/config"
	"github.com/nerrad567/tavernlight-core/internal/infrastructure/database"
	"github.com/nerrad567/tavernlight-core/internal/infrastructure/logging"
	"github.com/nerrad567/tavernlight-core/internal/infrastructure/metrics"
	"github.com/nerrad567/tavernlight-core/internal/lighting"
	"github.com/nerrad567/tavernlight-core/internal/orchestrator"
)

// gracefulShutdownTimeout is the maximum time to wait for in-flight requests
// to complete during shutdown.
const gracefulShutdownTimeout = 10 * time.Second

// Manager is the orchestrator surface exposed over HTTP.
type Manager interface {
	StartScene(ctx context.Context, id string) error
	StopScene(ctx context.Context)
	Scenes() []catalog.Summary
	Triggers() []catalog.Summary
	ExecuteTrigger(ctx context.Context, id string) (string, error)
	StopAll(ctx context.Context)
	Status() orchestrator.Status
}

// Mixer is the audio surface exposed over HTTP.
type Mixer interface {
	PlayMusic(ctx context.Context, src audio.Source, loop, shuffle bool) error
	NextTrack() error
	PreviousTrack() error
	PauseMusic() error
	ResumeMusic() error
	StopMusic(ctx context.Context)
	CurrentTrack() *audio.TrackInfo
	PlayAmbient(ctx context.Context, sources []string) error
	StopAmbient(ctx context.Context)
	PlayTrigger(source string) error
	SetVolume(cat audio.Category, value float64) error
	Status() audio.Status
}

// Lights is the lighting surface exposed over HTTP.
type Lights interface {
	Initialize(ctx context.Context) lighting.Connectivity
	Connectivity() lighting.Connectivity
	Stats() lighting.Stats
}

// Definitions looks up full scene and trigger definitions.
type Definitions interface {
	Scene(id string) (*catalog.Scene, error)
	Trigger(id string) (*catalog.Trigger, error)
}

// BrokerStatus reports MQTT connectivity.
type BrokerStatus interface {
	IsConnected() bool
}

// Deps holds the dependencies required by the API server.
type Deps struct {
	Config      config.APIConfig
	WS          config.WebSocketConfig
	MetricsPath string // empty disables the Prometheus endpoint
	Logger      *logging.Logger

	Manager     Manager
	Mixer       Mixer
	Lights      Lights
	Definitions Definitions
	Resolver    catalog.Resolver
	LibraryDir  string

	History   orchestrator.Repository // optional
	Publisher orchestrator.Publisher  // optional: receives volume changes
	Metrics   *metrics.Metrics        // optional
	MQTT      BrokerStatus            // optional
	DB        *database.DB            // optional: pool stats in /system

	ExternalHub *Hub // If set, the server uses this hub instead of creating its own
	Version     string
}

// Server is the HTTP API server.
//
// It manages the HTTP listener, routes, middleware, and WebSocket hub.
// The server is created with New() and started with Start().
type Server struct {
	cfg         config.APIConfig
	wsCfg       config.WebSocketConfig
	metricsPath string
	logger      *logging.Logger

	manager     Manager
	mixer       Mixer
	lights      Lights
	definitions Definitions
	resolver    catalog.Resolver
	libraryDir  string

	history   orchestrator.Repository
	publisher orchestrator.Publisher
	metrics   *metrics.Metrics
	mqtt      BrokerStatus
	db        *database.DB

	version     string
	startTime   time.Time
	server      *http.Server
	hub         *Hub
	externalHub bool               // true if hub was injected externally
	cancel      context.CancelFunc // cancels background goroutines on Close()
}

// New creates a new API server with the given dependencies.
//
// The server is not started until Start() is called.
//
// Parameters:
//   - deps: Required dependencies (config, logger, manager, mixer, lights)
//
// Returns:
//   - *Server: Configured server ready to start
//   - error: If required dependencies are missing
func New(deps Deps) (*Server, error) {
	if deps.Logger == nil {
		return nil, fmt.Errorf("logger is required")
	}
	if deps.Manager == nil {
		return nil, fmt.Errorf("orchestrator is required")
	}
	if deps.Mixer == nil {
		return nil, fmt.Errorf("audio mixer is required")
	}
	if deps.Lights == nil {
		return nil, fmt.Errorf("lighting adapter is required")
	}

	s := &Server{
		cfg:         deps.Config,
		wsCfg:       deps.WS,
		metricsPath: deps.MetricsPath,
		logger:      deps.Logger,
		manager:     deps.Manager,
		mixer:       deps.Mixer,
		lights:      deps.Lights,
		definitions: deps.Definitions,
		resolver:    deps.Resolver,
		libraryDir:  deps.LibraryDir,
		history:     deps.History,
		publisher:   deps.Publisher,
		metrics:     deps.Metrics,
		mqtt:        deps.MQTT,
		db:          deps.DB,
		version:     deps.Version,
		startTime:   time.Now(),
	}

	// The event bus needs the hub before the server starts.
	if deps.ExternalHub != nil {
		s.hub = deps.ExternalHub
		s.externalHub = true
		s.hub.SetStatusSource(s.manager.Status)
	}

	return s, nil
}

// Hub returns the WebSocket hub, or nil before Start when none was injected.
func (s *Server) Hub() *Hub {
	return s.hub
}

// Start begins listening for HTTP connections.
//
// It sets up the router, starts the WebSocket hub (unless one was injected)
// and launches the HTTP listener in a background goroutine. The server can
// be stopped with Close().
//
// Parameters:
//   - ctx: Context for cancellation (not used for listener lifetime)
//
// Returns:
//   - error: If the server fails to start
func (s *Server) Start(ctx context.Context) error {
	var srvCtx context.Context
	srvCtx, s.cancel = context.WithCancel(ctx)

	if s.hub == nil {
		s.hub = NewHub(s.wsCfg, s.logger)
		s.hub.SetStatusSource(s.manager.Status)
		go s.hub.Run(srvCtx)
	}

	router := s.buildRouter()

	s.server = &http.Server{
		Addr:              fmt.Sprintf("%s:%d", s.cfg.Host, s.cfg.Port),
		Handler:           router,
		ReadTimeout:       time.Duration(s.cfg.Timeouts.Read) * time.Second,
		ReadHeaderTimeout: time.Duration(s.cfg.Timeouts.Read) * time.Second,
		WriteTimeout:      time.Duration(s.cfg.Timeouts.Write) * time.Second,
		IdleTimeout:       time.Duration(s.cfg.Timeouts.Idle) * time.Second,
	}

	go func() {
		s.logger.Info("API server starting", "address", s.server.Addr)
		if err := s.server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			s.logger.Error("API server error", "error", err)
		}
	}()

	return nil
}

// Close gracefully shuts down the API server.
//
// It waits up to 10 seconds for in-flight requests to complete,
// then forcefully closes remaining connections.
func (s *Server) Close() error {
	if s.server == nil {
		return nil
	}

	if s.cancel != nil {
		s.cancel()
	}

	ctx, cancel := context.WithTimeout(context.Background(), gracefulShutdownTimeout)
	defer cancel()

	s.logger.Info("API server shutting down")
	if err := s.server.Shutdown(ctx); err != nil {
		return fmt.Errorf("shutting down API server: %w", err)
	}
	return nil
}

// HealthCheck verifies the API server is running.
func (s *Server) HealthCheck(ctx context.Context) error {
	select {
	case <-ctx.Done():
		return fmt.Errorf("api health check: %w", ctx.Err())
	default:
	}

	if s.server == nil {
		return fmt.Errorf("api server not started")
	}

	return nil
}
