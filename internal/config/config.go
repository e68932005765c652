package config

import (
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v2"
)

// Config holds the gateway settings.
type Config struct {
	Serial    Serial   `yaml:"serial"`
	Detection Detect   `yaml:"detection"`
	Storage   Storage  `yaml:"storage"`
	Operator  Operator `yaml:"operator"`
}

// Serial restricts which ports the gateway touches. An empty list
// means every serial port the system reports.
type Serial struct {
	Ports             []string `yaml:"ports"`
	PreferredBaudRate int      `yaml:"preferred_baud_rate"`
}

// Detect bounds the probe loop.
type Detect struct {
	TimeoutSeconds int `yaml:"timeout_seconds"`
}

// Storage points at the detected-device cache.
type Storage struct {
	ProfilesPath string `yaml:"profiles_path"`
}

// Operator overrides the per-dialect default cashier credentials when
// set.
type Operator struct {
	ID       string `yaml:"id"`
	Password string `yaml:"password"`
}

// Default returns the configuration used when no file is given.
func Default() *Config {
	return &Config{
		Serial: Serial{
			PreferredBaudRate: 115200,
		},
		Detection: Detect{
			TimeoutSeconds: 30,
		},
		Storage: Storage{
			ProfilesPath: "data/profiles.json",
		},
	}
}

// Load reads the configuration file at path, falling back to the
// FISCALGW_CONFIG environment variable and then to defaults when no
// file exists.
func Load(path string) (*Config, error) {
	if path == "" {
		path = os.Getenv("FISCALGW_CONFIG")
	}
	if path == "" {
		return Default(), nil
	}

	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("config: opening %s: %w", path, err)
	}
	defer f.Close()

	cfg := Default()
	decoder := yaml.NewDecoder(f)
	if err := decoder.Decode(cfg); err != nil {
		return nil, fmt.Errorf("config: parsing %s: %w", path, err)
	}

	return cfg, nil
}

// DetectionTimeout returns the probe deadline as a duration.
func (c *Config) DetectionTimeout() time.Duration {
	return time.Duration(c.Detection.TimeoutSeconds) * time.Second
}
