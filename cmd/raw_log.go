// SPDX-License-Identifier: GPL-2.0-or-later
// Copyright (c) 2025 Kaz Walker, Thermoquad

package cmd

import (
	"context"
	"fmt"
	"log"
	"os"
	"os/signal"
	"time"

	"github.com/Thermoquad/netbus/pkg/hwp"
	"github.com/spf13/cobra"
)

var (
	rawLogShowSame bool
	rawLogRecord   string
)

var rawLogCmd = &cobra.Command{
	Use:   "raw_log",
	Short: "Display decoded frames in human-readable format",
	Long: `Continuously decode and display NET port frames as they arrive.

Each frame prints with its hex header, type, source (heater or keypad
controller) and decoded payload fields; changed fields are highlighted
against the previous frame of the same kind.

Supports serial probe, WebSocket and replay feeds. Use --record to
append every decoded frame to a CBOR capture file for later replay.`,
	RunE: runRawLog,
}

func init() {
	rootCmd.AddCommand(rawLogCmd)
	rawLogCmd.Flags().BoolVar(&rawLogShowSame, "show-same", false, "Also print frames whose payload did not change")
	rawLogCmd.Flags().StringVar(&rawLogRecord, "record", "", "Append decoded frames to a CBOR capture file")
}

func runRawLog(cmd *cobra.Command, args []string) error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	var recorder *hwp.RecordWriter
	if rawLogRecord != "" {
		f, err := os.OpenFile(rawLogRecord, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
		if err != nil {
			return fmt.Errorf("failed to open record file: %v", err)
		}
		defer f.Close()
		recorder, err = hwp.NewRecordWriter(f)
		if err != nil {
			return err
		}
	}

	bus := newEngine(hwp.BusConfig{
		OnFrame: func(f hwp.Frame, changed bool) {
			if recorder != nil {
				if err := recorder.Write(hwp.NewFrameRecord(f, changed)); err != nil {
					log.Printf("record error: %v", err)
				}
			}
			if !changed && !rawLogShowSame {
				return
			}
			timestamp := f.FrameTime().Format("15:04:05.000")
			prev, ok := f.PrevRawPacket()
			prefix := "New"
			var prevRef *hwp.Packet
			if ok {
				prefix = "Chg"
				prevRef = &prev
			}
			fmt.Printf("[%s] %s%s\n", timestamp,
				hwp.HeaderFormat(prefix, f.RawPacket(), prevRef, f.TypeString(), f.Source(), f.FrameAge()),
				f.Format(false))
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

	fmt.Printf("Netbus - Raw Frame Log\n")
	fmt.Printf("Feed: %s\n", info)
	fmt.Printf("Press Ctrl+C to exit\n\n")

	if err := pump(); err != nil {
		return err
	}
	// Give the receive worker a moment to drain the tail of the feed.
	time.Sleep(300 * time.Millisecond)
	return nil
}
