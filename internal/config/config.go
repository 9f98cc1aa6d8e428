// SPDX-License-Identifier: GPL-2.0-or-later
// Copyright (c) 2025 Kaz Walker, Thermoquad

// Package config loads the optional netbus configuration file. Flags on
// the command line always win; the file exists so a monitoring box can
// pin its feed and serve settings.
package config

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

// Config is the top-level configuration document.
type Config struct {
	Bus   BusConfig   `yaml:"bus"`
	Feed  FeedConfig  `yaml:"feed"`
	Serve ServeConfig `yaml:"serve"`
}

// BusConfig tunes the protocol engine.
type BusConfig struct {
	PassiveMode     bool `yaml:"passive_mode"`
	UpdateActive    bool `yaml:"update_active"`
	TransmitCount   int  `yaml:"transmit_count"`
	ThrottleSeconds int  `yaml:"throttle_seconds"`
	PulseDebug      bool `yaml:"pulse_debug"`
}

// FeedConfig selects where pulse captures come from.
type FeedConfig struct {
	Port     string `yaml:"port"`
	Baud     int    `yaml:"baud"`
	URL      string `yaml:"url"`
	Username string `yaml:"username"`
	Replay   string `yaml:"replay"`
}

// ServeConfig configures the websocket state stream.
type ServeConfig struct {
	Addr     string `yaml:"addr"`
	Username string `yaml:"username"`
	Password string `yaml:"password"`
}

// Default returns the configuration used when no file is present.
func Default() Config {
	return Config{
		Bus: BusConfig{
			PassiveMode:   true,
			TransmitCount: 8,
		},
		Feed: FeedConfig{
			Baud: 115200,
		},
		Serve: ServeConfig{
			Addr: ":8777",
		},
	}
}

// Load reads and validates a configuration file. An empty path returns
// the defaults.
func Load(path string) (Config, error) {
	cfg := Default()
	if path == "" {
		return cfg, nil
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return cfg, fmt.Errorf("failed to read config %s: %w", path, err)
	}
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return cfg, fmt.Errorf("failed to parse config %s: %w", path, err)
	}
	if err := Validate(&cfg); err != nil {
		return cfg, err
	}
	return cfg, nil
}
