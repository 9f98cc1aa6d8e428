// SPDX-License-Identifier: GPL-2.0-or-later
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
	dumpGenerateCode bool
	dumpErrors       bool
	dumpListen       int
)

var dumpCmd = &cobra.Command{
	Use:   "dump",
	Short: "Dump the known-frame catalog",
	Long: `Listen to the feed for a while, then print one line per known frame
kind with its latest raw bytes and decoded fields.

--code emits the catalog as Go source literals instead, ready to paste
into replay fixtures. --errors prints the heater status dictionary and
exits without touching the feed.`,
	RunE: runDump,
}

func init() {
	rootCmd.AddCommand(dumpCmd)
	dumpCmd.Flags().BoolVar(&dumpGenerateCode, "code", false, "Emit the catalog as Go literals")
	dumpCmd.Flags().BoolVar(&dumpErrors, "errors", false, "Print the heater status dictionary and exit")
	dumpCmd.Flags().IntVar(&dumpListen, "listen", 70, "Seconds to listen before dumping")
}

func runDump(cmd *cobra.Command, args []string) error {
	if dumpErrors {
		fmt.Println("Heater status dictionary:")
		for _, e := range hwp.ErrorCatalog() {
			fmt.Printf("  %3d  %-4s %-20s %s\n", e.Value, e.Code, e.Source, e.Description)
		}
		return nil
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	bus := newEngine(hwp.BusConfig{})
	defer bus.Close()

	conn, info, pump, err := runFeed(ctx, bus)
	if err != nil {
		return err
	}
	if conn != nil {
		defer conn.Close()
	}

	fmt.Printf("Netbus - Frame Catalog Dump\n")
	fmt.Printf("Feed: %s\n", info)
	fmt.Printf("Listening for %ds (Ctrl+C to dump early)...\n\n", dumpListen)

	done := make(chan struct{})
	go func() {
		pump()
		close(done)
	}()
	select {
	case <-done:
	case <-ctx.Done():
	case <-time.After(time.Duration(dumpListen) * time.Second):
	}
	// Let the receive worker drain the tail.
	time.Sleep(300 * time.Millisecond)

	if dumpGenerateCode {
		fmt.Print(bus.Registry().DumpGoCode())
		return nil
	}
	lines := bus.Registry().DumpKnownPackets()
	if len(lines) == 0 {
		fmt.Println("No frames captured.")
		return nil
	}
	fmt.Println("Known frames:")
	for _, line := range lines {
		fmt.Println(line)
	}
	return nil
}
