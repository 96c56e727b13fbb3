package config

import (
	"fmt"
	"os"
)

// Config holds all application configuration
type Config struct {
	// Database configuration
	Database DatabaseConfig `yaml:"database"`

	// Recorder configuration
	Recorder RecorderConfig `yaml:"recorder"`

	// Daemon configuration
	Daemon DaemonConfig `yaml:"daemon"`

	// Report configuration
	Report ReportConfig `yaml:"report"`

	// Web server configuration
	Web WebConfig `yaml:"web"`
}

// DatabaseConfig holds database-related configuration
type DatabaseConfig struct {
	Path string `yaml:"path"` // Path to SQLite database file
}

// RecorderConfig holds recording behavior configuration
type RecorderConfig struct {
	Display string `yaml:"display"` // X display to record; empty means $DISPLAY
	Store   bool   `yaml:"store"`   // Whether to persist events to the database
}

// DaemonConfig holds daemon process configuration
type DaemonConfig struct {
	PIDFile string `yaml:"pid_file"` // Path to PID file for daemon management
	LogFile string `yaml:"log_file"` // Path to log file in daemon mode
}

// ReportConfig holds report generation configuration
type ReportConfig struct {
	TimeZone string `yaml:"time_zone"`
}

// WebConfig holds web server configuration
type WebConfig struct {
	Host string `yaml:"host"` // Host to bind web server to
	Port int    `yaml:"port"` // Port for web server
}

// Default returns a Config with sensible default values
func Default() *Config {
	return &Config{
		Database: DatabaseConfig{
			Path: "", // Empty means use default ~/.config/inputsum/inputsum.db
		},
		Recorder: RecorderConfig{
			Display: "", // Empty means use $DISPLAY
			Store:   true,
		},
		Daemon: DaemonConfig{
			PIDFile: fmt.Sprintf("/tmp/inputsum-%d.pid", os.Getuid()),
			LogFile: "/tmp/inputsum.log",
		},
		Report: ReportConfig{
			TimeZone: "Local",
		},
		Web: WebConfig{
			Host: "localhost",
			Port: 10000 + os.Getuid(), // Per-user default port
		},
	}
}

// Validate checks if the configuration is valid
func (c *Config) Validate() error {
	// Validate web config
	if c.Web.Port < 1 || c.Web.Port > 65535 {
		return fmt.Errorf("web port must be between 1 and 65535, got %d", c.Web.Port)
	}

	if c.Web.Host == "" {
		return fmt.Errorf("web host cannot be empty")
	}

	// Validate daemon config
	if c.Daemon.PIDFile == "" {
		return fmt.Errorf("PID file path cannot be empty")
	}

	return nil
}

// SetWebPort sets the web server port with validation
func (c *Config) SetWebPort(port int) error {
	if port < 1 || port > 65535 {
		return fmt.Errorf("port must be between 1 and 65535, got %d", port)
	}
	c.Web.Port = port
	return nil
}

// String returns a string representation of the config
func (c *Config) String() string {
	display := c.Recorder.Display
	if display == "" {
		display = "$DISPLAY"
	}
	return fmt.Sprintf(`Configuration:
  Database:
    Path: %s
  Recorder:
    Display: %s
    Store Events: %v
  Daemon:
    PID File: %s
    Log File: %s
  Report:
    Time Zone: %s
  Web:
    Host: %s
    Port: %d`,
		c.Database.Path,
		display,
		c.Recorder.Store,
		c.Daemon.PIDFile,
		c.Daemon.LogFile,
		c.Report.TimeZone,
		c.Web.Host,
		c.Web.Port,
	)
}
