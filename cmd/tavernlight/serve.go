package main

import (
	"context"
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/nerrad567/tavernlight-core/internal/api"
	"github.com/nerrad567/tavernlight-core/internal/catalog"
	"github.com/nerrad567/tavernlight-core/internal/control"
	"github.com/nerrad567/tavernlight-core/internal/events"
	"github.com/nerrad567/tavernlight-core/internal/infrastructure/config"
	"github.com/nerrad567/tavernlight-core/internal/infrastructure/database"
	"github.com/nerrad567/tavernlight-core/internal/infrastructure/influxdb"
	"github.com/nerrad567/tavernlight-core/internal/infrastructure/logging"
	"github.com/nerrad567/tavernlight-core/internal/infrastructure/metrics"
	"github.com/nerrad567/tavernlight-core/internal/infrastructure/mqtt"
	"github.com/nerrad567/tavernlight-core/internal/lighting"
	"github.com/nerrad567/tavernlight-core/internal/orchestrator"
)

const (
	// shutdownTimeout bounds the wait for in-flight trigger sequences.
	shutdownTimeout = 10 * time.Second

	// telemetryInterval is how often lighting counters are written to InfluxDB.
	telemetryInterval = time.Minute

	eventQueueSize = 256
)

func newServeCmd(opts *globalOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Run the session service (API, panel, MQTT control)",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return run(cmd.Context(), getConfigPath(opts.configPath))
		},
	}
}

// run is the actual service logic, separated from the command for testability.
// Returning an error allows main to handle exit codes consistently.
//
// Parameters:
//   - ctx: Context for cancellation and shutdown signals
//   - configPath: YAML configuration file
//
// Returns:
//   - error: nil on clean shutdown, or error describing failure
func run(ctx context.Context, configPath string) error {
	// Use default logger until config is loaded
	log := logging.Default()
	log.Info("starting Tavernlight Core",
		"version", version,
		"commit", commit,
		"build_date", date,
	)

	cfg, err := config.Load(configPath)
	if err != nil {
		return fmt.Errorf("loading config: %w", err)
	}
	log.Info("configuration loaded", "path", configPath)

	// Reinitialise logger with config settings
	log = logging.New(cfg.Logging, version)
	log.Info("logger initialised",
		"level", cfg.Logging.Level,
		"format", cfg.Logging.Format,
	)

	cat, err := catalog.Load(cfg.Catalog.Path)
	if err != nil {
		return fmt.Errorf("loading catalog: %w", err)
	}
	log.Info("catalog loaded",
		"path", cfg.Catalog.Path,
		"scenes", len(cat.Scenes()),
		"triggers", len(cat.Triggers()),
	)

	// Open session history database
	db, err := database.Open(cfg.Database)
	if err != nil {
		return fmt.Errorf("opening database: %w", err)
	}
	defer func() {
		log.Info("closing database")
		if closeErr := db.Close(); closeErr != nil {
			log.Error("error closing database", "error", closeErr)
		}
	}()
	if migrateErr := db.Migrate(ctx); migrateErr != nil {
		return fmt.Errorf("running migrations: %w", migrateErr)
	}
	log.Info("database ready", "path", cfg.Database.Path)

	// Connect to MQTT broker (optional)
	var mqttClient *mqtt.Client
	if cfg.MQTT.Enabled {
		mqttClient, err = mqtt.Connect(cfg.MQTT)
		if err != nil {
			return fmt.Errorf("connecting to MQTT: %w", err)
		}
		defer func() {
			log.Info("disconnecting from MQTT")
			if closeErr := mqttClient.Close(); closeErr != nil {
				log.Error("error closing MQTT", "error", closeErr)
			}
		}()
		mqttClient.SetLogger(log.With("component", "mqtt"))
		mqttClient.SetOnConnect(func() { log.Info("MQTT reconnected") })
		mqttClient.SetOnDisconnect(func(err error) { log.Warn("MQTT disconnected", "error", err) })
		log.Info("MQTT connected",
			"broker", fmt.Sprintf("%s:%d", cfg.MQTT.Broker.Host, cfg.MQTT.Broker.Port),
			"client_id", cfg.MQTT.Broker.ClientID,
		)
	} else {
		log.Info("MQTT disabled")
	}

	// Connect to InfluxDB (optional)
	var influxClient *influxdb.Client
	if cfg.InfluxDB.Enabled {
		influxClient, err = influxdb.Connect(cfg.InfluxDB, cfg.Site.ID)
		if err != nil {
			return fmt.Errorf("connecting to InfluxDB: %w", err)
		}
		defer func() {
			log.Info("closing InfluxDB connection")
			if closeErr := influxClient.Close(); closeErr != nil {
				log.Error("error closing InfluxDB", "error", closeErr)
			}
		}()
		influxClient.SetOnError(func(err error) {
			log.Error("InfluxDB write error", "error", err)
		})
		log.Info("InfluxDB connected", "url", cfg.InfluxDB.URL, "bucket", cfg.InfluxDB.Bucket)
	} else {
		log.Info("InfluxDB disabled")
	}

	var m *metrics.Metrics
	if cfg.Metrics.Enabled {
		m = metrics.New()
	}

	// Devices
	mixer := newMixer(cfg.Audio, newBackend(cfg.Audio), log)
	defer mixer.Close()

	lights := newLights(cfg.Lighting, log)
	conn := lights.Initialize(ctx)
	log.Info("lighting probed", "wled", conn.WLED, "home_assistant", conn.Hub)

	// Event fan-out: WebSocket, MQTT, InfluxDB, Prometheus
	hub := api.NewHub(cfg.WebSocket, log)
	bus := events.NewBus(events.Options{QueueSize: eventQueueSize, OnDrop: func() {
		if m != nil {
			m.EventDropped()
		}
	}})
	bus.SetLogger(log.With("component", "events"))
	bus.Add("websocket", hub)
	if mqttClient != nil {
		bus.Add("mqtt", events.NewMQTTSink(mqttClient, log.With("component", "mqtt")))
	}
	if influxClient != nil {
		bus.Add("influxdb", events.NewInfluxSink(influxClient))
	}
	if m != nil {
		bus.Add("metrics", events.NewMetricsSink(m))
	}

	// Orchestrator
	history := orchestrator.NewSQLiteRepository(db.DB)
	manager := orchestrator.NewManager(cat, mixer, lights, orchestrator.Options{
		Transition: time.Duration(cfg.Lighting.TransitionMS) * time.Millisecond,
		Publisher:  bus,
		History:    history,
	})
	manager.SetLogger(log.With("component", "orchestrator"))

	if m != nil {
		m.RegisterLighting(lights.Stats)
		m.RegisterGauge("running_triggers", "Trigger sequences in flight",
			func() float64 { return float64(manager.RunningTriggers()) })
		m.RegisterGauge("websocket_clients", "Connected WebSocket clients",
			func() float64 { return float64(hub.ClientCount()) })
		if mqttClient != nil {
			m.RegisterGauge("mqtt_connected", "1 when the MQTT broker is reachable",
				func() float64 { return boolGauge(mqttClient.IsConnected()) })
		}
	}

	// Background workers share one cancellable context so shutdown can stop
	// them after the API is closed.
	workCtx, stopWork := context.WithCancel(context.WithoutCancel(ctx))
	defer stopWork()
	go hub.Run(workCtx)
	go bus.Run(workCtx)
	if influxClient != nil {
		go writeLightingTelemetry(workCtx, influxClient, lights.Stats)
	}

	// MQTT remote control
	var commands *control.Handler
	if mqttClient != nil {
		commands = control.NewHandler(mqttClient, manager)
		commands.SetLogger(log.With("component", "control"))
		if startErr := commands.Start(workCtx); startErr != nil {
			return fmt.Errorf("starting MQTT control: %w", startErr)
		}
		log.Info("MQTT control listening", "topic", mqtt.Topics{}.AllCommands())
	}

	// REST API + WebSocket + panel
	deps := api.Deps{
		Config:      cfg.API,
		WS:          cfg.WebSocket,
		Logger:      log,
		Manager:     manager,
		Mixer:       mixer,
		Lights:      lights,
		Definitions: cat,
		Resolver:    newResolver(cfg.Audio),
		LibraryDir:  cfg.Audio.LibraryDir,
		History:     history,
		Publisher:   bus,
		DB:          db,
		ExternalHub: hub,
		Version:     version,
	}
	if m != nil {
		deps.Metrics = m
		deps.MetricsPath = cfg.Metrics.Path
	}
	if mqttClient != nil {
		deps.MQTT = mqttClient
	}
	apiServer, err := api.New(deps)
	if err != nil {
		return fmt.Errorf("creating API server: %w", err)
	}
	if startErr := apiServer.Start(workCtx); startErr != nil {
		return fmt.Errorf("starting API server: %w", startErr)
	}

	if err := healthCheck(ctx, db, mqttClient, influxClient); err != nil {
		return fmt.Errorf("health check failed: %w", err)
	}
	log.Info("initialisation complete, waiting for shutdown signal",
		"address", fmt.Sprintf("%s:%d", cfg.API.Host, cfg.API.Port),
	)

	<-ctx.Done()
	log.Info("shutdown signal received, cleaning up")

	// Stop accepting requests before tearing the session down.
	if closeErr := apiServer.Close(); closeErr != nil {
		log.Error("error closing API server", "error", closeErr)
	}
	if commands != nil {
		commands.Stop()
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	manager.StopAll(shutdownCtx)
	if shutdownErr := manager.Shutdown(shutdownCtx); shutdownErr != nil {
		log.Warn("trigger sequences cancelled", "error", shutdownErr)
	}

	// Drain queued events to the sinks, then close the hub.
	stopWork()
	<-bus.Done()

	// Deferred Close() calls run in reverse order:
	// mixer, InfluxDB (if enabled), MQTT (if enabled), database.
	log.Info("Tavernlight Core stopped")
	return nil
}

// healthCheck verifies all infrastructure connections are healthy.
//
// Parameters:
//   - ctx: Context for timeout/cancellation
//   - db: Database connection to check
//   - mqttClient: MQTT client to check (may be nil if disabled)
//   - influxClient: InfluxDB client to check (may be nil if disabled)
//
// Returns:
//   - error: First health check failure, or nil if all healthy
func healthCheck(ctx context.Context, db *database.DB, mqttClient *mqtt.Client, influxClient *influxdb.Client) error {
	if err := db.HealthCheck(ctx); err != nil {
		return fmt.Errorf("database: %w", err)
	}
	if mqttClient != nil {
		if err := mqttClient.HealthCheck(ctx); err != nil {
			return fmt.Errorf("mqtt: %w", err)
		}
	}
	if influxClient != nil {
		if err := influxClient.HealthCheck(ctx); err != nil {
			return fmt.Errorf("influxdb: %w", err)
		}
	}
	return nil
}

// lightingStatsWriter is the subset of the InfluxDB client used for
// periodic lighting counters.
type lightingStatsWriter interface {
	WriteLightingStats(integration string, requests, failures uint64)
}

// writeLightingTelemetry records lighting request counters until ctx ends.
func writeLightingTelemetry(ctx context.Context, w lightingStatsWriter, stats func() lighting.Stats) {
	ticker := time.NewTicker(telemetryInterval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			s := stats()
			w.WriteLightingStats("wled", s.WLEDRequests, s.WLEDFailures)
			w.WriteLightingStats("home_assistant", s.HubRequests, s.HubFailures)
		}
	}
}

func boolGauge(v bool) float64 {
	if v {
		return 1
	}
	return 0
}
