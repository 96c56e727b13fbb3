package config

import (
	"os"
	"strconv"
)

// LoadFromEnv loads configuration from environment variables
// Environment variables override file and default values
func LoadFromEnv(cfg *Config) {
	// Database configuration
	if dbPath := os.Getenv("INPUTSUM_DB_PATH"); dbPath != "" {
		cfg.Database.Path = dbPath
	}

	// Recorder configuration
	if display := os.Getenv("INPUTSUM_DISPLAY"); display != "" {
		cfg.Recorder.Display = display
	}

	if store := os.Getenv("INPUTSUM_STORE"); store != "" {
		if val, err := strconv.ParseBool(store); err == nil {
			cfg.Recorder.Store = val
		}
	}

	// Daemon configuration
	if pidFile := os.Getenv("INPUTSUM_PID_FILE"); pidFile != "" {
		cfg.Daemon.PIDFile = pidFile
	}

	if logFile := os.Getenv("INPUTSUM_LOG_FILE"); logFile != "" {
		cfg.Daemon.LogFile = logFile
	}

	// Report configuration
	if timeZone := os.Getenv("INPUTSUM_TIMEZONE"); timeZone != "" {
		cfg.Report.TimeZone = timeZone
	}

	// Web configuration
	if webHost := os.Getenv("INPUTSUM_WEB_HOST"); webHost != "" {
		cfg.Web.Host = webHost
	}

	if webPort := os.Getenv("INPUTSUM_WEB_PORT"); webPort != "" {
		if port, err := strconv.Atoi(webPort); err == nil && port > 0 && port <= 65535 {
			cfg.Web.Port = port
		}
	}
}

// New creates a new Config with default values, applies an optional config
// file and then environment overrides
func New() *Config {
	cfg := Default()
	if err := LoadFromFile(cfg, ""); err != nil {
		// A broken config file should not silently vanish, but defaults
		// still let the recorder run.
		warnConfigFile(err)
	}
	LoadFromEnv(cfg)
	return cfg
}
