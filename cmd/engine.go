// SPDX-License-Identifier: GPL-2.0-or-later
// Copyright (c) 2025 Kaz Walker, Thermoquad

package cmd

import (
	"context"
	"fmt"
	"io"
	"os"
	"time"

	"github.com/Thermoquad/netbus/pkg/hwp"
)

// nullPin satisfies hwp.Pin for analyzer feeds: the CLI never drives a
// GPIO directly, pulses arrive from the probe and transmit requests go
// back through it.
type nullPin struct{}

func (nullPin) SetInput()  {}
func (nullPin) SetOutput() {}
func (nullPin) Write(bool) {}

// newEngine builds a bus engine fed by pulse injection. The configured
// hooks are preserved; transmit stays gated by passive mode.
func newEngine(busCfg hwp.BusConfig) *hwp.Bus {
	busCfg.Passive = true // the CLI transmits through the probe, not the pin
	if cfg.Bus.TransmitCount > 0 {
		busCfg.TransmitCount = cfg.Bus.TransmitCount
	}
	if cfg.Bus.ThrottleSeconds > 0 {
		busCfg.Throttle = time.Duration(cfg.Bus.ThrottleSeconds) * time.Second
	}
	busCfg.Debug = busCfg.Debug || cfg.Bus.PulseDebug
	bus := hwp.NewBus(nullPin{}, busCfg)
	bus.SetUpdateActive(cfg.Bus.UpdateActive)
	return bus
}

// pumpConnection reads probe records and injects them into the engine
// until the feed ends or the context is canceled.
func pumpConnection(ctx context.Context, bus *hwp.Bus, conn Connection) error {
	reader := NewPulseReader(conn)
	for {
		select {
		case <-ctx.Done():
			return nil
		default:
		}
		pulse, err := reader.ReadPulse()
		if err == io.EOF || err == ErrConnectionClosed {
			return nil
		}
		if err != nil {
			return fmt.Errorf("feed read error: %v", err)
		}
		bus.InjectPulse(pulse)
	}
}

// pumpReplay re-renders a CBOR capture file as pulses and injects them,
// pacing just enough for the receive worker to keep up.
func pumpReplay(ctx context.Context, bus *hwp.Bus, path string) error {
	f, err := os.Open(path)
	if err != nil {
		return fmt.Errorf("failed to open replay file: %v", err)
	}
	defer f.Close()

	reader := hwp.NewRecordReader(f)
	for {
		select {
		case <-ctx.Done():
			return nil
		default:
		}
		rec, err := reader.Read()
		if err == io.EOF {
			return nil
		}
		if err != nil {
			return err
		}
		pkt, err := rec.Packet()
		if err != nil {
			return err
		}
		if rec.Source == hwp.SourceHeater.String() {
			pkt.Inverse() // restore the on-wire polarity
		}
		for _, pulse := range hwp.EncodeFramePulses(&pkt) {
			bus.InjectPulse(pulse)
		}
		bus.InjectPulse(hwp.FrameEndPulse())
		time.Sleep(time.Millisecond)
	}
}

// runFeed opens the selected feed (probe, websocket or replay), starts
// the engine and pumps until the feed ends. The returned connection is
// nil for replay feeds.
func runFeed(ctx context.Context, bus *hwp.Bus) (Connection, string, func() error, error) {
	bus.Setup(ctx)
	if replayPath != "" {
		return nil, fmt.Sprintf("Replay: %s", replayPath), func() error {
			return pumpReplay(ctx, bus, replayPath)
		}, nil
	}
	conn, info, err := OpenConnection()
	if err != nil {
		bus.Close()
		return nil, "", nil, err
	}
	return conn, info, func() error {
		return pumpConnection(ctx, bus, conn)
	}, nil
}
