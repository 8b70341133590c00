// Package config handles loading and validating Tavernlight Core configuration.
//
// This package manages:
//   - Loading configuration from YAML files
//   - Populating the environment from a .env file
//   - Overriding with environment variables
//   - Validation of required fields
//
// Security Considerations:
//   - The Home Assistant long-lived token should be set via TAVERNLIGHT_HA_TOKEN
//     (directly or through .env), never committed in the YAML file
//   - The config file should have restricted permissions (0600)
//
// Usage:
//
//	cfg, err := config.Load("configs/config.yaml")
//	if err != nil {
//	    log.Fatal(err)
//	}
//	fmt.Println(cfg.Lighting.WLED.Host)
package config
