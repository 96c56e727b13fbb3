package config

import (
	"fmt"
	"log"
	"os"
	"path/filepath"

	"gopkg.in/yaml.v3"
)

const defaultConfigName = "config.yaml"

// DefaultConfigPath returns ~/.config/inputsum/config.yaml.
func DefaultConfigPath() (string, error) {
	homeDir, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("failed to get home directory: %w", err)
	}
	return filepath.Join(homeDir, ".config", "inputsum", defaultConfigName), nil
}

// LoadFromFile applies settings from a YAML config file on top of cfg.
// With an empty path it tries INPUTSUM_CONFIG, then the default location;
// a missing file is not an error.
func LoadFromFile(cfg *Config, path string) error {
	explicit := path != ""
	if path == "" {
		if env := os.Getenv("INPUTSUM_CONFIG"); env != "" {
			path = env
			explicit = true
		} else {
			var err error
			path, err = DefaultConfigPath()
			if err != nil {
				return err
			}
		}
	}

	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) && !explicit {
			return nil
		}
		return fmt.Errorf("failed to read config file %s: %w", path, err)
	}

	if err := yaml.Unmarshal(data, cfg); err != nil {
		return fmt.Errorf("failed to parse config file %s: %w", path, err)
	}
	return nil
}

func warnConfigFile(err error) {
	log.Printf("Ignoring config file: %v", err)
}
