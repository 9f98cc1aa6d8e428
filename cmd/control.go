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
	ctlTargetTemp     float64
	ctlMode           string
	ctlFanMode        string
	ctlRestriction    string
	ctlDefrostStart   float64
	ctlDefrostEnd     float64
	ctlDefrostCycle   float64
	ctlDefrostMax     float64
	ctlDefrostMinEco  float64
	ctlDefrostEco     string
	ctlFlowMeter      string
	ctlPulsesPerLiter int
	ctlWaitSeconds    int
	ctlDryRun         bool
)

var controlCmd = &cobra.Command{
	Use:   "control",
	Short: "Send a command frame to the heat pump",
	Long: `Build a change request, derive the command frames from the last
observed bus state, and transmit them through the capture probe.

The NET protocol has no read-modify-write primitive: a command frame
carries the complete configuration, so netbus first listens to the bus
until it has observed the frames it needs to clone. The transmit is
scheduled between the keypad's once-per-minute transmissions and
throttled to one change per 10 seconds.

A replay feed combined with --dry-run exercises the whole path without
a live bus.`,
	RunE: runControl,
}

func init() {
	rootCmd.AddCommand(controlCmd)
	f := controlCmd.Flags()
	f.Float64Var(&ctlTargetTemp, "target-temp", 0, "Target temperature in °C")
	f.StringVar(&ctlMode, "mode", "", "Climate mode: off, cool, heat, auto")
	f.StringVar(&ctlFanMode, "fan-mode", "", "Fan mode: low, high, ambient, scheduled, ambient-scheduled")
	f.StringVar(&ctlRestriction, "restriction", "", "Mode restriction: cooling, any, heating")
	f.Float64Var(&ctlDefrostStart, "defrost-start", 0, "Defrost start temperature (d01)")
	f.Float64Var(&ctlDefrostEnd, "defrost-end", 0, "Defrost end temperature (d02)")
	f.Float64Var(&ctlDefrostCycle, "defrost-cycle", 0, "Defrost cycle time in minutes (d03)")
	f.Float64Var(&ctlDefrostMax, "defrost-max", 0, "Maximum defrost time in minutes (d04)")
	f.Float64Var(&ctlDefrostMinEco, "defrost-min-eco", 0, "Minimum economy defrost time in minutes (d05)")
	f.StringVar(&ctlDefrostEco, "defrost-eco", "", "Economy defrost mode: eco, normal (d06)")
	f.StringVar(&ctlFlowMeter, "flow-meter", "", "Flow meter enable: on, off (u01)")
	f.IntVar(&ctlPulsesPerLiter, "pulses-per-liter", 0, "Flow meter calibration (u02)")
	f.IntVar(&ctlWaitSeconds, "wait", 90, "Seconds to listen for the initial state before giving up")
	f.BoolVar(&ctlDryRun, "dry-run", false, "Derive and print the command frames without transmitting")
}

// buildCall translates the flags into a change request.
func buildCall(flags *cobra.Command) (*hwp.Call, error) {
	call := hwp.NewCall()
	f := flags.Flags()
	if f.Changed("target-temp") {
		call.SetTargetTemperature(ctlTargetTemp)
	}
	if ctlMode != "" {
		m, ok := hwp.ClimateModeFromString(ctlMode)
		if !ok {
			return nil, fmt.Errorf("unknown mode %q", ctlMode)
		}
		call.SetMode(m)
	}
	if ctlFanMode != "" {
		m, ok := hwp.FanModeFromString(ctlFanMode)
		if !ok {
			return nil, fmt.Errorf("unknown fan mode %q", ctlFanMode)
		}
		call.SetFanMode(m)
	}
	if ctlRestriction != "" {
		r, ok := hwp.ModeRestrictionFromString(ctlRestriction)
		if !ok {
			return nil, fmt.Errorf("unknown restriction %q", ctlRestriction)
		}
		call.SetModeRestriction(r)
	}
	if f.Changed("defrost-start") {
		call.SetDefrostStart(ctlDefrostStart)
	}
	if f.Changed("defrost-end") {
		call.SetDefrostEnd(ctlDefrostEnd)
	}
	if f.Changed("defrost-cycle") {
		call.SetDefrostCycleMinutes(ctlDefrostCycle)
	}
	if f.Changed("defrost-max") {
		call.SetMaxDefrostMinutes(ctlDefrostMax)
	}
	if f.Changed("defrost-min-eco") {
		call.SetMinEcoDefrostMinutes(ctlDefrostMinEco)
	}
	switch ctlDefrostEco {
	case "":
	case "eco":
		call.SetDefrostEcoMode(hwp.DefrostEco)
	case "normal":
		call.SetDefrostEcoMode(hwp.DefrostNormal)
	default:
		return nil, fmt.Errorf("unknown defrost-eco %q", ctlDefrostEco)
	}
	switch ctlFlowMeter {
	case "":
	case "on":
		call.SetFlowMeter(hwp.FlowMeterEnabled)
	case "off":
		call.SetFlowMeter(hwp.FlowMeterDisabled)
	default:
		return nil, fmt.Errorf("unknown flow-meter %q", ctlFlowMeter)
	}
	if f.Changed("pulses-per-liter") {
		if ctlPulsesPerLiter < 0 || ctlPulsesPerLiter > 0xFFFF {
			return nil, fmt.Errorf("pulses-per-liter %d out of range", ctlPulsesPerLiter)
		}
		call.SetPulsesPerLiter(uint16(ctlPulsesPerLiter))
	}
	if call.IsEmpty() {
		return nil, fmt.Errorf("no change requested (see --help for the available fields)")
	}
	return call, nil
}

func runControl(cmd *cobra.Command, args []string) error {
	call, err := buildCall(cmd)
	if err != nil {
		return err
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
	go pump()

	fmt.Printf("Netbus - Control\n")
	fmt.Printf("Feed: %s\n", info)
	fmt.Printf("Listening for the current heat pump state...\n")

	// Derive the command frames once the relevant state was observed.
	var frames []hwp.Packet
	deadline := time.Now().Add(time.Duration(ctlWaitSeconds) * time.Second)
	for {
		frames = bus.DeriveFrames(call)
		if len(frames) > 0 || len(call.Rejections()) > 0 {
			break
		}
		if time.Now().After(deadline) {
			return fmt.Errorf("no matching state observed within %ds; cannot derive a command frame", ctlWaitSeconds)
		}
		select {
		case <-ctx.Done():
			return nil
		case <-time.After(500 * time.Millisecond):
		}
	}
	if len(call.Rejections()) > 0 {
		return fmt.Errorf("request rejected: %s", call.Rejections()[0])
	}
	if len(frames) == 0 {
		fmt.Println("Nothing to send: the requested values match the current state.")
		return nil
	}

	for _, pkt := range frames {
		fmt.Printf("%s\n", hwp.HeaderFormat("TXQ", pkt, nil,
			fmt.Sprintf("TYPE_%02X   ", pkt.Type()), hwp.SourceLocal, 0))
	}
	if ctlDryRun {
		fmt.Println("Dry run: not transmitting.")
		return nil
	}
	if cfg.Bus.PassiveMode {
		return fmt.Errorf("passive mode is enabled in the configuration; refusing to transmit")
	}
	if conn == nil {
		return fmt.Errorf("replay feeds cannot transmit; use --dry-run")
	}

	keypadClear := func() bool {
		if bus.HasController() && bus.IsControllerTimeout() {
			return true
		}
		next, ok := bus.NextControllerPacket()
		burst := time.Duration(hwp.DefaultTransmitCount) * hwp.SingleFrameMaxDuration
		return !ok || time.Now().Add(burst).Before(next)
	}
	var lastSent time.Time
	for _, pkt := range frames {
		// Respect the keypad's cadence and the throttle before each burst.
		for !bus.IsTimeForNext() || bus.Mode() != hwp.BusModeRX || !keypadClear() ||
			(!lastSent.IsZero() && time.Since(lastSent) < hwp.DelayBetweenMessages) {
			select {
			case <-ctx.Done():
				return nil
			case <-time.After(1500 * time.Millisecond):
			}
		}
		if err := WriteProbeTransmit(conn, &pkt, hwp.DefaultTransmitCount); err != nil {
			return err
		}
		lastSent = time.Now()
		fmt.Printf("Transmitted type 0x%02X (%d repeats).\n", pkt.Type(), hwp.DefaultTransmitCount)
	}
	return nil
}
