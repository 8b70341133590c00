package main

import (
	"fmt"
	"time"

	"github.com/nerrad567/tavernlight-core/internal/audio"
	"github.com/nerrad567/tavernlight-core/internal/catalog"
	"github.com/nerrad567/tavernlight-core/internal/infrastructure/config"
	"github.com/nerrad567/tavernlight-core/internal/infrastructure/logging"
	"github.com/nerrad567/tavernlight-core/internal/lighting"
	"github.com/nerrad567/tavernlight-core/internal/lighting/homeassistant"
	"github.com/nerrad567/tavernlight-core/internal/lighting/wled"
)

// loadConfig reads the configuration file named by the flag or environment.
func loadConfig(opts *globalOptions) (*config.Config, string, error) {
	path := getConfigPath(opts.configPath)
	cfg, err := config.Load(path)
	if err != nil {
		return nil, path, fmt.Errorf("loading config: %w", err)
	}
	return cfg, path, nil
}

// newBackend selects the playback backend named in the audio section.
func newBackend(cfg config.AudioConfig) audio.Backend {
	if cfg.Backend == "null" {
		return audio.NullBackend{}
	}
	return audio.NewEbitenBackend(cfg.SampleRate)
}

// newMixer builds the audio mixer from the audio section.
func newMixer(cfg config.AudioConfig, backend audio.Backend, log *logging.Logger) *audio.Mixer {
	mixer := audio.NewMixer(backend, audio.Options{
		Volumes: map[audio.Category]float64{
			audio.CategoryMusic:   cfg.Volumes.Music,
			audio.CategoryAmbient: cfg.Volumes.Ambient,
			audio.CategoryTrigger: cfg.Volumes.Trigger,
		},
		FileVolumes: cfg.FileVolumes,
		Fade:        cfg.FadeDuration(),
		Root:        cfg.LibraryDir,
	})
	mixer.SetLogger(log.With("component", "audio"))
	return mixer
}

// newLights builds the lighting adapter. Disabled integrations get a nil
// client so the adapter skips them.
func newLights(cfg config.LightingConfig, log *logging.Logger) *lighting.Adapter {
	var wledClient lighting.WLEDClient
	if cfg.WLED.Enabled {
		wledClient = wled.NewClient(wled.BaseURL(cfg.WLED.Host, cfg.WLED.Port))
	}
	var hub lighting.HubClient
	if cfg.HomeAssistant.Enabled {
		hub = homeassistant.NewClient(
			homeassistant.BaseURL(cfg.HomeAssistant.Host, cfg.HomeAssistant.Port, cfg.HomeAssistant.TLS),
			cfg.HomeAssistant.Token,
		)
	}

	lights := lighting.NewAdapter(wledClient, hub, lighting.Options{
		OverrideLive:      cfg.WLED.OverrideLive,
		ReleaseLiveOnStop: cfg.WLED.ReleaseLiveOnStop,
		ProbeTimeout:      time.Duration(cfg.ProbeTimeoutMS) * time.Millisecond,
		HubCommandGap:     time.Duration(cfg.HubCommandGapMS) * time.Millisecond,
	})
	lights.SetLogger(log.With("component", "lighting"))
	return lights
}

// newResolver builds the music source resolver from the audio section.
func newResolver(cfg config.AudioConfig) catalog.Resolver {
	return catalog.Resolver{LibraryDir: cfg.LibraryDir, Playlists: cfg.Playlists}
}
