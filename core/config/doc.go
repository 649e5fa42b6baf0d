// Package config provides configuration management for the protection
// reconciler.
//
// It utilizes Viper for loading configuration from environment variables
// and an optional .env file.
//
// # Configuration Structure
//
// The Config struct is the central repository for all application settings, divided into subsections:
//   - Protect: policy thresholds, feed URLs, executor pacing
//   - Database: wiki replica (MariaDB) connection details
//   - Storage: S3/MinIO credentials and archive bucket settings
//   - Server: report HTTP server settings (port, API key)
//   - Log: logging level and format
//
// Loading also validates the protection policy: a cooldown limit at or
// above the entity usage limit is rejected before any work starts.
//
// # Usage
//
//	cfg, err := config.LoadConfig(".")
//	if err != nil {
//	    log.Fatal(err)
//	}
//	fmt.Println(cfg.Protect.Policy.EntityUsageLimit)
package config
