// SPDX-License-Identifier: Apache-2.0
// Copyright (c) 2025 Kaz Walker, Thermoquad

package hwp

import "fmt"

// Conf5 is the payload of the 0x85 frame: flow meter and economy defrost
// configuration. The pulses-per-liter calibration sits byte-swapped in
// the last two payload bytes.
type Conf5 struct {
	ID                   uint8
	Flags                Conf5Flags
	MinEcoDefrostMinutes DecimalNumber // d05
	Unknown4             Bits
	Unknown5             Bits
	Unknown6             Bits
	Unknown7             Bits
	Unknown8             Bits
	PulsesPerLiter       LargeInteger // u02
}

func conf5FromPacket(p *Packet) Conf5 {
	return Conf5{
		ID:                   p.Data[1],
		Flags:                Conf5Flags(p.Data[2]),
		MinEcoDefrostMinutes: DecimalNumber(p.Data[3]),
		Unknown4:             Bits(p.Data[4]),
		Unknown5:             Bits(p.Data[5]),
		Unknown6:             Bits(p.Data[6]),
		Unknown7:             Bits(p.Data[7]),
		Unknown8:             Bits(p.Data[8]),
		PulsesPerLiter:       LargeInteger{p.Data[9], p.Data[10]},
	}
}

func (c *Conf5) put(p *Packet) {
	p.Len = FrameDataLength
	p.Data[1] = c.ID
	p.Data[2] = uint8(c.Flags)
	p.Data[3] = uint8(c.MinEcoDefrostMinutes)
	p.Data[4] = uint8(c.Unknown4)
	p.Data[5] = uint8(c.Unknown5)
	p.Data[6] = uint8(c.Unknown6)
	p.Data[7] = uint8(c.Unknown7)
	p.Data[8] = uint8(c.Unknown8)
	p.Data[9] = c.PulsesPerLiter[0]
	p.Data[10] = c.PulsesPerLiter[1]
	p.SetChecksum()
}

// FrameConf5 decodes and controls the flow-meter/economy-defrost frame
// (0x85).
type FrameConf5 struct {
	frameState[Conf5]
}

// NewFrameConf5 creates the registry entry for the 0x85 frame.
func NewFrameConf5() *FrameConf5 {
	f := &FrameConf5{}
	f.decode = conf5FromPacket
	return f
}

// TypeString returns the fixed-width catalog name.
func (f *FrameConf5) TypeString() string { return "CONFIG_5  " }

// Matches tests the frame type id.
func (f *FrameConf5) Matches(p *Packet) bool { return p.Type() == FrameIDConf5 }

// Parse folds the flow meter and economy defrost settings into the
// canonical state.
func (f *FrameConf5) Parse(d *HeatPumpData) {
	if f.data == nil {
		return
	}
	c := f.data
	d.DefrostEcoModeSetting = ecoModePtr(c.Flags.DefrostEco())
	d.FlowMeter = flowMeterPtr(c.Flags.FlowMeter())
	d.MinEcoDefrostMinutes = floatPtr(c.MinEcoDefrostMinutes.Decode())
	d.PulsesPerLiter = uint16Ptr(c.PulsesPerLiter.Decode())
}

// Control derives an outbound 0x85 command from the call.
func (f *FrameConf5) Control(call *Call) (Packet, bool) {
	if call.DefrostEcoMode == nil && call.FlowMeter == nil &&
		call.MinEcoDefrostMinutes == nil && call.PulsesPerLiter == nil {
		return Packet{}, false
	}
	if f.data == nil {
		call.warn("waiting for initial flow meter state")
		return Packet{}, false
	}
	cmd := *f.data
	if call.DefrostEcoMode != nil {
		cmd.Flags.SetDefrostEco(*call.DefrostEcoMode)
	}
	if call.FlowMeter != nil {
		cmd.Flags.SetFlowMeter(*call.FlowMeter)
	}
	if call.MinEcoDefrostMinutes != nil {
		cmd.MinEcoDefrostMinutes = EncodeDecimalNumber(*call.MinEcoDefrostMinutes)
	}
	if call.PulsesPerLiter != nil {
		cmd.PulsesPerLiter = EncodeLargeInteger(*call.PulsesPerLiter)
	}
	if cmd == *f.data {
		return Packet{}, false
	}
	pkt := f.packet
	cmd.put(&pkt)
	return pkt, true
}

// Format renders the payload field by field, diffed against the previous
// payload.
func (f *FrameConf5) Format(noDiff bool) string {
	val, ref, ok := f.payload(noDiff)
	if !ok {
		return "N/A"
	}
	return f.format(val, ref)
}

// FormatPrev renders the previous payload without diffing.
func (f *FrameConf5) FormatPrev() string {
	if f.prevD == nil {
		return "N/A"
	}
	return f.format(*f.prevD, *f.prevD)
}

func (f *FrameConf5) format(val, ref Conf5) string {
	flowName := func(c Conf5) string {
		if c.Flags.FlowMeter() == FlowMeterEnabled {
			return "ON "
		}
		return "OFF"
	}
	return fmt.Sprintf("u01 flow meter: %s, d06 defrost: %s, d05 min_eco_defrost: %s, [%s, %s, %s, %s, %s] u02 pulses/L: %s",
		FormatDiff(flowName(val), flowName(ref)),
		FormatDiff(val.Flags.DefrostEco().LogString(), ref.Flags.DefrostEco().LogString()),
		FormatDiff(val.MinEcoDefrostMinutes.Format(), ref.MinEcoDefrostMinutes.Format()),
		FormatBitsDiff(uint8(val.Unknown4), uint8(ref.Unknown4)),
		FormatBitsDiff(uint8(val.Unknown5), uint8(ref.Unknown5)),
		FormatBitsDiff(uint8(val.Unknown6), uint8(ref.Unknown6)),
		FormatBitsDiff(uint8(val.Unknown7), uint8(ref.Unknown7)),
		FormatBitsDiff(uint8(val.Unknown8), uint8(ref.Unknown8)),
		FormatDiff(val.PulsesPerLiter.Format(), ref.PulsesPerLiter.Format()))
}
