// Package config provides centralized configuration for the report service and CLI.
//
// # Configuration Sources
//
// Configuration is built in three layers, each overriding the previous one:
//
//	1. Default() values
//	2. A YAML file (READY_CONFIG_FILE, or config.yaml / configs/config.yaml)
//	3. Environment variables
//
// # Environment Variables
//
// All environment variables use the READY_ prefix followed by the section name:
//
//	READY_SERVER_PORT=8080
//	READY_LOGGING_LEVEL=debug
//	READY_PATHS_MEDIA_DIR=/var/lib/readyparser/media
//	READY_REPORT_BATCH_WORKERS=8
//	READY_TELEMETRY_TRACE_EXPORTER=stdout
//
// # Path Management
//
// GetPaths resolves the media staging directories and the logs directory
// relative to a base directory, which defaults to the executable location:
//
//	paths, err := config.GetPaths(cfg.Paths)
//	if err != nil {
//	    return err
//	}
//	err = paths.EnsureDirectories()
package config
