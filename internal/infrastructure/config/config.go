package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

// Config is the root configuration structure for Tavernlight Core.
// All configuration is loaded from YAML and can be overridden by environment variables.
type Config struct {
	Site      SiteConfig      `yaml:"site"`
	Database  DatabaseConfig  `yaml:"database"`
	MQTT      MQTTConfig      `yaml:"mqtt"`
	API       APIConfig       `yaml:"api"`
	WebSocket WebSocketConfig `yaml:"websocket"`
	InfluxDB  InfluxDBConfig  `yaml:"influxdb"`
	Metrics   MetricsConfig   `yaml:"metrics"`
	Logging   LoggingConfig   `yaml:"logging"`
	Audio     AudioConfig     `yaml:"audio"`
	Lighting  LightingConfig  `yaml:"lighting"`
	Catalog   CatalogConfig   `yaml:"catalog"`
}

// SiteConfig identifies the table this instance runs.
type SiteConfig struct {
	ID   string `yaml:"id"`
	Name string `yaml:"name"`
}

// DatabaseConfig contains SQLite database settings for the session history.
type DatabaseConfig struct {
	Path        string `yaml:"path"`
	WALMode     bool   `yaml:"wal_mode"`
	BusyTimeout int    `yaml:"busy_timeout"`
}

// MQTTConfig contains MQTT broker connection settings.
type MQTTConfig struct {
	Enabled   bool                `yaml:"enabled"`
	Broker    MQTTBrokerConfig    `yaml:"broker"`
	Auth      MQTTAuthConfig      `yaml:"auth"`
	QoS       int                 `yaml:"qos"`
	Reconnect MQTTReconnectConfig `yaml:"reconnect"`
}

// MQTTBrokerConfig contains MQTT broker connection details.
type MQTTBrokerConfig struct {
	Host     string `yaml:"host"`
	Port     int    `yaml:"port"`
	TLS      bool   `yaml:"tls"`
	ClientID string `yaml:"client_id"`
}

// MQTTAuthConfig contains MQTT authentication credentials.
type MQTTAuthConfig struct {
	Username string `yaml:"username"`
	Password string `yaml:"password"`
}

// MQTTReconnectConfig contains MQTT reconnection settings.
type MQTTReconnectConfig struct {
	InitialDelay int `yaml:"initial_delay"`
	MaxDelay     int `yaml:"max_delay"`
}

// APIConfig contains HTTP API server settings.
type APIConfig struct {
	Host     string           `yaml:"host"`
	Port     int              `yaml:"port"`
	Timeouts APITimeoutConfig `yaml:"timeouts"`
	CORS     CORSConfig       `yaml:"cors"`
	PanelDir string           `yaml:"panel_dir"` // optional override for the embedded panel
}

// APITimeoutConfig contains HTTP timeout settings in seconds.
type APITimeoutConfig struct {
	Read  int `yaml:"read"`
	Write int `yaml:"write"`
	Idle  int `yaml:"idle"`
}

// CORSConfig contains Cross-Origin Resource Sharing settings.
type CORSConfig struct {
	AllowedOrigins []string `yaml:"allowed_origins"`
}

// WebSocketConfig contains WebSocket server settings.
type WebSocketConfig struct {
	Path           string `yaml:"path"`
	MaxMessageSize int    `yaml:"max_message_size"`
	PingInterval   int    `yaml:"ping_interval"`
	PongTimeout    int    `yaml:"pong_timeout"`
}

// InfluxDBConfig contains InfluxDB connection settings for session telemetry.
type InfluxDBConfig struct {
	Enabled       bool   `yaml:"enabled"`
	URL           string `yaml:"url"`
	Token         string `yaml:"token"`
	Org           string `yaml:"org"`
	Bucket        string `yaml:"bucket"`
	BatchSize     int    `yaml:"batch_size"`
	FlushInterval int    `yaml:"flush_interval"`
}

// MetricsConfig controls the Prometheus endpoint.
type MetricsConfig struct {
	Enabled bool   `yaml:"enabled"`
	Path    string `yaml:"path"`
}

// LoggingConfig contains logging settings.
type LoggingConfig struct {
	Level  string `yaml:"level"`
	Format string `yaml:"format"`
	Output string `yaml:"output"`
}

// AudioConfig contains mixer settings.
type AudioConfig struct {
	// Backend selects the playback implementation: "ebiten" or "null".
	Backend string `yaml:"backend"`

	// SampleRate is the output sample rate used by the ebiten backend.
	SampleRate int `yaml:"sample_rate"`

	// LibraryDir is the root of the music library
	// (<library>/<category>/<collection>/<track>).
	LibraryDir string `yaml:"library_dir"`

	// FadeMS is the fade-out duration applied by every stop operation.
	// Default: 1000
	FadeMS int `yaml:"fade_ms"`

	// Volumes holds the initial per-category volumes in [0,1].
	Volumes VolumeConfig `yaml:"volumes"`

	// FileVolumes maps a source path to a volume multiplier.
	FileVolumes map[string]float64 `yaml:"file_volumes"`

	// Playlists maps a playlist name to a playlist file, referenced from
	// scenes and the API as "playlist:<name>".
	Playlists map[string]string `yaml:"playlists"`
}

// VolumeConfig holds per-category volumes.
type VolumeConfig struct {
	Music   float64 `yaml:"music"`
	Ambient float64 `yaml:"ambient"`
	Trigger float64 `yaml:"trigger"`
}

// LightingConfig contains the remote lighting integrations.
type LightingConfig struct {
	// TransitionMS is the fade used when applying and tearing down scene lighting.
	// Default: 1000
	TransitionMS int `yaml:"transition_ms"`

	// ProbeTimeoutMS bounds the reachability probes run by Initialize.
	// Default: 3000
	ProbeTimeoutMS int `yaml:"probe_timeout_ms"`

	// HubCommandGapMS separates sequential hub commands.
	// Default: 100
	HubCommandGapMS int `yaml:"hub_command_gap_ms"`

	WLED          WLEDConfig          `yaml:"wled"`
	HomeAssistant HomeAssistantConfig `yaml:"home_assistant"`
}

// WLEDConfig contains WLED controller settings.
type WLEDConfig struct {
	Enabled bool   `yaml:"enabled"`
	Host    string `yaml:"host"`
	Port    int    `yaml:"port"`

	// OverrideLive sets lor=1 on every state write so realtime sources
	// (e.g. a DDP stream) are suspended while a scene is lit.
	OverrideLive bool `yaml:"override_live"`

	// ReleaseLiveOnStop sends lor=0 with the final fade-out.
	ReleaseLiveOnStop bool `yaml:"release_live_on_stop"`
}

// HomeAssistantConfig contains Home Assistant hub settings.
type HomeAssistantConfig struct {
	Enabled bool   `yaml:"enabled"`
	Host    string `yaml:"host"`
	Port    int    `yaml:"port"`
	TLS     bool   `yaml:"tls"`
	Token   string `yaml:"token"`
}

// CatalogConfig points at the scene and trigger definitions.
type CatalogConfig struct {
	Path string `yaml:"path"`
}

// Load reads configuration from a YAML file and applies environment variable overrides.
//
// The configuration loading order is:
//  1. Default values (hardcoded)
//  2. YAML file values (override defaults)
//  3. .env file next to the process (populates the environment, never overrides it)
//  4. Environment variables (override file values)
//
// Environment variables follow the pattern: TAVERNLIGHT_SECTION_KEY
// For example: TAVERNLIGHT_WLED_HOST, TAVERNLIGHT_HA_TOKEN
//
// Parameters:
//   - path: Path to the YAML configuration file
//
// Returns:
//   - *Config: Loaded and validated configuration
//   - error: If file cannot be read, parsed, or validation fails
func Load(path string) (*Config, error) {
	cfg := defaultConfig()

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading config file: %w", err)
	}

	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("parsing config file: %w", err)
	}

	if err := LoadDotEnv(".env"); err != nil {
		return nil, err
	}
	applyEnvOverrides(cfg)

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("validating config: %w", err)
	}

	return cfg, nil
}

// LoadDotEnv loads KEY=VALUE pairs from the given files into the process
// environment. Missing files are ignored; variables already set win.
func LoadDotEnv(paths ...string) error {
	for _, p := range paths {
		if err := godotenv.Load(p); err != nil {
			if errors.Is(err, fs.ErrNotExist) {
				continue
			}
			return fmt.Errorf("loading %s: %w", p, err)
		}
	}
	return nil
}

// defaultConfig returns a Config with sensible defaults.
func defaultConfig() *Config {
	return &Config{
		Site: SiteConfig{
			ID:   "table-001",
			Name: "Tavernlight",
		},
		Database: DatabaseConfig{
			Path:        "./data/tavernlight.db",
			WALMode:     true,
			BusyTimeout: 5,
		},
		MQTT: MQTTConfig{
			Broker: MQTTBrokerConfig{
				Host:     "localhost",
				Port:     1883,
				ClientID: "tavernlight-core",
			},
			QoS: 1,
			Reconnect: MQTTReconnectConfig{
				InitialDelay: 1,
				MaxDelay:     60,
			},
		},
		API: APIConfig{
			Host: "0.0.0.0",
			Port: 8080,
			Timeouts: APITimeoutConfig{
				Read:  30,
				Write: 30,
				Idle:  60,
			},
		},
		WebSocket: WebSocketConfig{
			Path:           "/ws",
			MaxMessageSize: 8192,
			PingInterval:   30,
			PongTimeout:    10,
		},
		InfluxDB: InfluxDBConfig{
			BatchSize:     100,
			FlushInterval: 10,
		},
		Metrics: MetricsConfig{
			Enabled: true,
			Path:    "/metrics",
		},
		Logging: LoggingConfig{
			Level:  "info",
			Format: "json",
			Output: "stdout",
		},
		Audio: AudioConfig{
			Backend:    "ebiten",
			SampleRate: 44100,
			LibraryDir: "./music",
			FadeMS:     1000,
			Volumes: VolumeConfig{
				Music:   0.5,
				Ambient: 0.5,
				Trigger: 0.8,
			},
		},
		Lighting: LightingConfig{
			TransitionMS:    1000,
			ProbeTimeoutMS:  3000,
			HubCommandGapMS: 100,
			WLED: WLEDConfig{
				Port:              80,
				OverrideLive:      true,
				ReleaseLiveOnStop: true,
			},
			HomeAssistant: HomeAssistantConfig{
				Port: 8123,
			},
		},
		Catalog: CatalogConfig{
			Path: "./configs/scenes.yaml",
		},
	}
}

// applyEnvOverrides applies environment variable overrides to the configuration.
// Environment variables follow the pattern: TAVERNLIGHT_SECTION_KEY
func applyEnvOverrides(cfg *Config) {
	// Database
	if v := os.Getenv("TAVERNLIGHT_DATABASE_PATH"); v != "" {
		cfg.Database.Path = v
	}

	// MQTT
	if v := os.Getenv("TAVERNLIGHT_MQTT_HOST"); v != "" {
		cfg.MQTT.Broker.Host = v
	}
	if v := os.Getenv("TAVERNLIGHT_MQTT_USERNAME"); v != "" {
		cfg.MQTT.Auth.Username = v
	}
	if v := os.Getenv("TAVERNLIGHT_MQTT_PASSWORD"); v != "" {
		cfg.MQTT.Auth.Password = v
	}

	// API
	if v := os.Getenv("TAVERNLIGHT_API_HOST"); v != "" {
		cfg.API.Host = v
	}
	cfg.API.Port = envInt("TAVERNLIGHT_API_PORT", cfg.API.Port)

	// InfluxDB
	if v := os.Getenv("TAVERNLIGHT_INFLUXDB_TOKEN"); v != "" {
		cfg.InfluxDB.Token = v
	}

	// Audio
	if v := os.Getenv("TAVERNLIGHT_AUDIO_LIBRARY_DIR"); v != "" {
		cfg.Audio.LibraryDir = v
	}
	if v := os.Getenv("TAVERNLIGHT_AUDIO_BACKEND"); v != "" {
		cfg.Audio.Backend = v
	}

	// Lighting
	if v := os.Getenv("TAVERNLIGHT_WLED_HOST"); v != "" {
		cfg.Lighting.WLED.Host = v
	}
	if v := os.Getenv("TAVERNLIGHT_HA_HOST"); v != "" {
		cfg.Lighting.HomeAssistant.Host = v
	}
	// Long-lived access tokens belong in .env, not the YAML file.
	if v := os.Getenv("TAVERNLIGHT_HA_TOKEN"); v != "" {
		cfg.Lighting.HomeAssistant.Token = v
	}

	// Catalog
	if v := os.Getenv("TAVERNLIGHT_CATALOG_PATH"); v != "" {
		cfg.Catalog.Path = v
	}
}

// envInt returns the integer value of key, or fallback if unset or malformed.
func envInt(key string, fallback int) int {
	if s := os.Getenv(key); s != "" {
		if n, err := strconv.Atoi(s); err == nil {
			return n
		}
	}
	return fallback
}

// Validate checks the configuration for errors.
//
// Returns:
//   - error: Description of every validation failure, or nil if valid
func (c *Config) Validate() error {
	var errs []string

	if c.Site.ID == "" {
		errs = append(errs, "site.id is required")
	}

	if c.Database.Path == "" {
		errs = append(errs, "database.path is required")
	}

	if c.MQTT.QoS < 0 || c.MQTT.QoS > 2 {
		errs = append(errs, "mqtt.qos must be 0, 1, or 2")
	}

	if c.API.Port < 1 || c.API.Port > 65535 {
		errs = append(errs, "api.port must be between 1 and 65535")
	}

	// Audio
	switch c.Audio.Backend {
	case "ebiten", "null":
	default:
		errs = append(errs, fmt.Sprintf("audio.backend %q must be ebiten or null", c.Audio.Backend))
	}
	if c.Audio.FadeMS < 0 {
		errs = append(errs, "audio.fade_ms must not be negative")
	}
	for name, v := range map[string]float64{
		"music":   c.Audio.Volumes.Music,
		"ambient": c.Audio.Volumes.Ambient,
		"trigger": c.Audio.Volumes.Trigger,
	} {
		if v < 0 || v > 1 {
			errs = append(errs, fmt.Sprintf("audio.volumes.%s must be between 0 and 1", name))
		}
	}
	for path, v := range c.Audio.FileVolumes {
		if v < 0 {
			errs = append(errs, fmt.Sprintf("audio.file_volumes[%s] must not be negative", path))
		}
	}

	// Lighting
	if c.Lighting.TransitionMS < 0 {
		errs = append(errs, "lighting.transition_ms must not be negative")
	}
	if c.Lighting.WLED.Enabled && c.Lighting.WLED.Host == "" {
		errs = append(errs, "lighting.wled.host is required when wled is enabled")
	}
	if c.Lighting.HomeAssistant.Enabled {
		if c.Lighting.HomeAssistant.Host == "" {
			errs = append(errs, "lighting.home_assistant.host is required when home_assistant is enabled")
		}
		if c.Lighting.HomeAssistant.Token == "" {
			errs = append(errs, "lighting.home_assistant.token is required (set TAVERNLIGHT_HA_TOKEN environment variable)")
		}
	}

	if c.Catalog.Path == "" {
		errs = append(errs, "catalog.path is required")
	}

	if len(errs) > 0 {
		return fmt.Errorf("configuration errors: %s", strings.Join(errs, "; "))
	}

	return nil
}

// GetReadTimeout returns the API read timeout as a Duration.
func (c *Config) GetReadTimeout() time.Duration {
	return time.Duration(c.API.Timeouts.Read) * time.Second
}

// GetWriteTimeout returns the API write timeout as a Duration.
func (c *Config) GetWriteTimeout() time.Duration {
	return time.Duration(c.API.Timeouts.Write) * time.Second
}

// GetIdleTimeout returns the API idle timeout as a Duration.
func (c *Config) GetIdleTimeout() time.Duration {
	return time.Duration(c.API.Timeouts.Idle) * time.Second
}

// FadeDuration returns the mixer fade-out duration.
func (a AudioConfig) FadeDuration() time.Duration {
	return time.Duration(a.FadeMS) * time.Millisecond
}
