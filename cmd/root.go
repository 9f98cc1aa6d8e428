// SPDX-License-Identifier: GPL-2.0-or-later
// Copyright (c) 2025 Kaz Walker, Thermoquad

package cmd

import (
	"github.com/Thermoquad/netbus/internal/config"
	"github.com/spf13/cobra"
)

var (
	// Serial probe flags
	portName string
	baudRate int

	// WebSocket feed flags
	wsURL         string
	wsUsername    string
	wsNoSSLVerify bool

	// Replay flag
	replayPath string

	// Config file
	configPath string
	cfg        config.Config
)

var rootCmd = &cobra.Command{
	Use:   "netbus",
	Short: "Hayward NET Port Protocol Analyzer",
	Long: `Netbus - A CLI tool for monitoring and analyzing the Hayward pool heat
pump NET port bus.

The NET port is a single-wire pulse-width encoded bus shared by the heat
pump main board and the OEM keypad. Netbus decodes both signaling
polarities, tracks the canonical heat pump state, and can schedule
command frames between the keypad's transmissions.

Feed modes:
  Serial probe: --port /dev/ttyUSB0 [--baud 115200]
  WebSocket:    --url ws://host/path [--username user]
  Replay:       --replay capture.cbor

For WebSocket authentication, the password is read from the NETBUS_PASSWORD
environment variable, or prompted interactively if not set. The --password
flag is intentionally not provided to avoid leaking credentials in shell
history.`,
	Version: "1.2.0",
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		loaded, err := config.Load(configPath)
		if err != nil {
			return err
		}
		cfg = loaded
		// Flags win over the file.
		if portName == "" {
			portName = cfg.Feed.Port
		}
		if !cmd.Flags().Changed("baud") && cfg.Feed.Baud > 0 {
			baudRate = cfg.Feed.Baud
		}
		if wsURL == "" {
			wsURL = cfg.Feed.URL
		}
		if wsUsername == "" {
			wsUsername = cfg.Feed.Username
		}
		if replayPath == "" {
			replayPath = cfg.Feed.Replay
		}
		return nil
	},
}

func init() {
	rootCmd.PersistentFlags().StringVarP(&portName, "port", "p", "", "Serial probe device")
	rootCmd.PersistentFlags().IntVarP(&baudRate, "baud", "b", 115200, "Baud rate (serial only)")
	rootCmd.PersistentFlags().StringVarP(&wsURL, "url", "u", "", "WebSocket URL (ws:// or wss://)")
	rootCmd.PersistentFlags().StringVar(&wsUsername, "username", "", "Username for HTTP Basic auth")
	rootCmd.PersistentFlags().BoolVar(&wsNoSSLVerify, "no-ssl-verify", false, "Skip TLS certificate verification (wss:// only)")
	rootCmd.PersistentFlags().StringVar(&replayPath, "replay", "", "Replay a CBOR capture file instead of a live feed")
	rootCmd.PersistentFlags().StringVarP(&configPath, "config", "c", "", "Configuration file (yaml)")
}

// Execute runs the root command
func Execute() error {
	return rootCmd.Execute()
}
