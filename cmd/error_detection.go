// SPDX-License-Identifier: Apache-2.0
// Copyright (c) 2025 Kaz Walker, Thermoquad

package cmd

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"time"

	"github.com/Thermoquad/netbus/pkg/hwp"
	"github.com/spf13/cobra"
)

var (
	showAll       bool
	statsInterval int
)

var errorDetectionCmd = &cobra.Command{
	Use:   "error_detection",
	Short: "Detect and analyze malformed frames and bus errors",
	Long: `Track checksum failures, framer resets and capture overruns with
statistics.

This command validates every frame and reports:
  - Checksum errors (frames invalid under both polarities)
  - Framer resets (collisions, out-of-tolerance pulse widths)
  - Capture ring overruns (dropped edge pairs)
  - Statistics and trends (frame rate, error rate, per-type counts)

By default, valid frames appear only as bus log lines when their payload
changes. Use --show-all to list every valid frame. Statistics print at
the configured interval.`,
	RunE: runErrorDetection,
}

func init() {
	rootCmd.AddCommand(errorDetectionCmd)
	errorDetectionCmd.Flags().BoolVar(&showAll, "show-all", false, "Show all frames (not just errors)")
	errorDetectionCmd.Flags().IntVar(&statsInterval, "stats-interval", 10, "Statistics update interval (seconds)")
}

func runErrorDetection(cmd *cobra.Command, args []string) error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	stats := hwp.NewStatistics()
	bus := newEngine(hwp.BusConfig{
		Stats: stats,
		Logf: func(format string, args ...any) {
			timestamp := time.Now().Format("15:04:05.000")
			fmt.Printf("[%s] \033[1;31mBUS:\033[0m %s\n", timestamp, fmt.Sprintf(format, args...))
		},
		OnFrame: func(f hwp.Frame, changed bool) {
			if !showAll {
				return
			}
			timestamp := f.FrameTime().Format("15:04:05.000")
			fmt.Printf("[%s] %s(%s) len=%d\n", timestamp, f.TypeString(), f.Source(), f.RawPacket().Len)
		},
	})
	defer bus.Close()

	conn, info, pump, err := runFeed(ctx, bus)
	if err != nil {
		return err
	}
	if conn != nil {
		defer conn.Close()
	}

	fmt.Printf("Netbus - Error Detection\n")
	fmt.Printf("Feed: %s\n", info)
	fmt.Printf("Press Ctrl+C to exit\n\n")

	done := make(chan error, 1)
	go func() { done <- pump() }()

	ticker := time.NewTicker(time.Duration(statsInterval) * time.Second)
	defer ticker.Stop()
	for {
		select {
		case err := <-done:
			stats.PulseDrops = bus.PulseDrops()
			fmt.Print(stats.String())
			return err
		case <-ticker.C:
			stats.PulseDrops = bus.PulseDrops()
			fmt.Print(stats.String())
		case <-ctx.Done():
			stats.PulseDrops = bus.PulseDrops()
			fmt.Print(stats.String())
			return nil
		}
	}
}
