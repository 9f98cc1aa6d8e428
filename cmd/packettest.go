// SPDX-License-Identifier: GPL-2.0-or-later
// Copyright (c) 2025 Kaz Walker, Thermoquad

package cmd

import (
	"fmt"
	"time"

	"github.com/Thermoquad/netbus/pkg/hwp"
	"github.com/spf13/cobra"
)

var packetTestCmd = &cobra.Command{
	Use:   "packettest",
	Short: "Run the built-in frame codec self-test",
	Long: `Run known captures through the full pulse encode/decode path and
verify checksums, polarity resolution and field decoding. Useful as a
smoke test after protocol changes and as documentation of the known
frame layouts.`,
	RunE: runPacketTest,
}

func init() {
	rootCmd.AddCommand(packetTestCmd)
}

// selfTestVectors are captures taken from a live bus.
var selfTestVectors = []struct {
	name   string
	data   []byte
	invert bool
	check  func(d *hwp.HeatPumpData) error
}{
	{
		name:   "heater conditions frame (0xD2)",
		data:   []byte{0xD2, 0xB1, 0x11, 0x66, 0x75, 0x52, 0x5F, 0x00, 0x64, 0x00, 0x00, 0x84},
		invert: true,
		check: func(d *hwp.HeatPumpData) error {
			if d.OutletTemp == nil || *d.OutletTemp != 28.5 {
				return fmt.Errorf("outlet temperature not 28.5")
			}
			if d.ExhaustTemp == nil || *d.ExhaustTemp != 11.0 {
				return fmt.Errorf("exhaust temperature not 11.0")
			}
			if d.CoilTemp == nil || *d.CoilTemp != 17.5 {
				return fmt.Errorf("coil temperature not 17.5")
			}
			return nil
		},
	},
	{
		name:   "heater mode/setpoint frame (0x81)",
		data:   checksummed([]byte{0x81, 0xB1, 0x17, 0x06, 0x77, 0x78, 0x3D, 0x3D, 0x3D, 0x3D, 0x00, 0x00}),
		invert: true,
		check: func(d *hwp.HeatPumpData) error {
			if d.Mode == nil || *d.Mode != hwp.ClimateModeHeat {
				return fmt.Errorf("mode not Heat")
			}
			if d.ModeRestrictions == nil || *d.ModeRestrictions != hwp.RestrictAny {
				return fmt.Errorf("restriction not Any")
			}
			return nil
		},
	},
}

func checksummed(data []byte) []byte {
	p, err := hwp.NewPacket(data)
	if err != nil {
		panic(err)
	}
	p.SetChecksum()
	out := make([]byte, p.Len)
	copy(out, p.Bytes())
	return out
}

func runPacketTest(cmd *cobra.Command, args []string) error {
	fmt.Println("Netbus - Frame Codec Self-Test")
	fmt.Println()

	failures := 0
	for _, v := range selfTestVectors {
		reg := hwp.NewRegistry()
		data := &hwp.HeatPumpData{}

		pkt, err := hwp.NewPacket(v.data)
		if err != nil {
			fmt.Printf("FAIL %-40s %v\n", v.name, err)
			failures++
			continue
		}
		wire := pkt
		if v.invert {
			wire.Inverse()
		}

		// Full path: render the wire pulses, run them through the
		// framer, validate polarity, dispatch and parse.
		dec := hwp.NewDecoder()
		for _, pulse := range hwp.EncodeFramePulses(&wire) {
			switch {
			case pulse.IsStartFrame():
				dec.StartNewFrame()
			case pulse.IsLongBit():
				dec.AppendBit(true)
			case pulse.IsShortBit():
				dec.AppendBit(false)
			}
		}
		decoded, src, ok := dec.Finalize(time.Now())
		if !ok {
			fmt.Printf("FAIL %-40s frame did not finalize\n", v.name)
			failures++
			continue
		}
		wantSrc := hwp.SourceController
		if v.invert {
			wantSrc = hwp.SourceHeater
		}
		if src != wantSrc {
			fmt.Printf("FAIL %-40s source %v, want %v\n", v.name, src, wantSrc)
			failures++
			continue
		}
		reg.Process(decoded, src, time.Now(), data)
		if err := v.check(data); err != nil {
			fmt.Printf("FAIL %-40s %v\n", v.name, err)
			failures++
			continue
		}
		fmt.Printf("PASS %-40s (%s)\n", v.name, src)
	}

	fmt.Println()
	if failures > 0 {
		return fmt.Errorf("%d of %d vectors failed", failures, len(selfTestVectors))
	}
	fmt.Printf("All %d vectors passed.\n", len(selfTestVectors))
	return nil
}
