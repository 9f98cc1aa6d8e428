// SPDX-License-Identifier: GPL-2.0-or-later
// Copyright (c) 2025 Kaz Walker, Thermoquad

package config

import (
	"errors"
	"fmt"
	"strings"
)

// Validate checks a loaded configuration for inconsistencies.
func Validate(cfg *Config) error {
	if cfg.Bus.TransmitCount < 0 || cfg.Bus.TransmitCount > 32 {
		return fmt.Errorf("bus.transmit_count %d out of range (0..32)", cfg.Bus.TransmitCount)
	}
	if cfg.Bus.ThrottleSeconds < 0 {
		return errors.New("bus.throttle_seconds must not be negative")
	}
	if cfg.Feed.Baud < 0 {
		return errors.New("feed.baud must not be negative")
	}
	sources := 0
	if cfg.Feed.Port != "" {
		sources++
	}
	if cfg.Feed.URL != "" {
		sources++
	}
	if cfg.Feed.Replay != "" {
		sources++
	}
	if sources > 1 {
		return errors.New("feed: port, url and replay are mutually exclusive")
	}
	if cfg.Feed.URL != "" && !strings.HasPrefix(cfg.Feed.URL, "ws://") &&
		!strings.HasPrefix(cfg.Feed.URL, "wss://") {
		return fmt.Errorf("feed.url %q must use ws:// or wss://", cfg.Feed.URL)
	}
	if cfg.Serve.Password != "" && cfg.Serve.Username == "" {
		return errors.New("serve.password set without serve.username")
	}
	return nil
}
