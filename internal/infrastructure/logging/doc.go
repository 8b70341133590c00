// Package logging provides structured logging for Tavernlight Core.
//
// This package wraps Go's standard log/slog package so every component logs
// with the same handler, level and default fields.
//
// # Configuration
//
//	logging:
//	  level: "info"      # debug, info, warn, error
//	  format: "json"     # json, text
//	  output: "stdout"   # stdout, stderr, discard
//
// # Usage
//
//	logger := logging.New(cfg.Logging, "1.0.0")
//	logger.Info("scene started", "scene_id", "tavern")
//	logger.Warn("wled unreachable", "error", err)
//
// Never log the Home Assistant token or MQTT credentials.
package logging
