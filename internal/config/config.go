// Package config loads the optional yaml configuration file. CLI flags
// override whatever is loaded here.
package config

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

// Viewport is the capture page size.
type Viewport struct {
	Width  int `yaml:"width"`
	Height int `yaml:"height"`
}

// Config is the application configuration.
type Config struct {
	Provider    string   `yaml:"provider"`
	Model       string   `yaml:"model"`
	ProfileID   string   `yaml:"profile_id"`
	StorePath   string   `yaml:"store_path"`
	MetricsAddr string   `yaml:"metrics_addr"`
	RecordPath  string   `yaml:"record_path"`
	ProfileDir  string   `yaml:"profile_dir"`
	Viewport    Viewport `yaml:"viewport"`
	LogLevel    string   `yaml:"log_level"`
}

// Default returns the built-in configuration.
func Default() Config {
	return Config{
		Provider: "claude",
		Viewport: Viewport{Width: 1280, Height: 720},
		LogLevel: "info",
	}
}

// Load reads the yaml file at path over the defaults. A missing file is not
// an error: the defaults apply.
func Load(path string) (Config, error) {
	cfg := Default()
	if path == "" {
		return cfg, nil
	}

	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return cfg, nil
		}
		return cfg, fmt.Errorf("read config: %w", err)
	}
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return cfg, fmt.Errorf("parse config: %w", err)
	}

	if cfg.Viewport.Width <= 0 {
		cfg.Viewport.Width = 1280
	}
	if cfg.Viewport.Height <= 0 {
		cfg.Viewport.Height = 720
	}
	return cfg, nil
}
