// SPDX-License-Identifier: GPL-2.0-or-later
// Copyright (c) 2025 Kaz Walker, Thermoquad

package config

import (
	"os"
	"path/filepath"
	"testing"
)

func TestValidate_Defaults(t *testing.T) {
	cfg := Default()
	if err := Validate(&cfg); err != nil {
		t.Fatalf("defaults should validate: %v", err)
	}
}

func TestValidate_Rejections(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*Config)
	}{
		{"transmit count too high", func(c *Config) { c.Bus.TransmitCount = 64 }},
		{"negative throttle", func(c *Config) { c.Bus.ThrottleSeconds = -1 }},
		{"two feed sources", func(c *Config) { c.Feed.Port = "/dev/ttyUSB0"; c.Feed.URL = "ws://x/y" }},
		{"bad url scheme", func(c *Config) { c.Feed.URL = "http://x/y" }},
		{"password without username", func(c *Config) { c.Serve.Password = "secret" }},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := Default()
			tt.mutate(&cfg)
			if err := Validate(&cfg); err == nil {
				t.Error("expected validation error")
			}
		})
	}
}

func TestLoad_File(t *testing.T) {
	path := filepath.Join(t.TempDir(), "netbus.yaml")
	doc := []byte("bus:\n  passive_mode: false\n  transmit_count: 4\nfeed:\n  port: /dev/ttyUSB0\n  baud: 230400\n")
	if err := os.WriteFile(path, doc, 0o644); err != nil {
		t.Fatal(err)
	}
	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.Bus.PassiveMode {
		t.Error("passive_mode should be false")
	}
	if cfg.Bus.TransmitCount != 4 {
		t.Errorf("transmit_count = %d, want 4", cfg.Bus.TransmitCount)
	}
	if cfg.Feed.Port != "/dev/ttyUSB0" || cfg.Feed.Baud != 230400 {
		t.Errorf("feed = %+v", cfg.Feed)
	}
}

func TestLoad_EmptyPathUsesDefaults(t *testing.T) {
	cfg, err := Load("")
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if !cfg.Bus.PassiveMode || cfg.Bus.TransmitCount != 8 {
		t.Errorf("defaults not applied: %+v", cfg.Bus)
	}
}

func TestLoad_MissingFileErrors(t *testing.T) {
	if _, err := Load("/nonexistent/netbus.yaml"); err == nil {
		t.Error("missing file should error")
	}
}
