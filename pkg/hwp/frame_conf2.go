// SPDX-License-Identifier: Apache-2.0
// Copyright (c) 2025 Kaz Walker, Thermoquad

package hwp

import "fmt"

// Conf2 is the payload of the 0x82 frame: fan mode nibble and the defrost
// configuration.
type Conf2 struct {
	ID                  uint8
	FanMode             FanModeByte
	DefrostStart        TemperatureExtended // d01
	DefrostEnd          Temperature         // d02
	DefrostCycleMinutes DecimalNumber       // d03
	MaxDefrostMinutes   DecimalNumber       // d04
	Unknown5            Bits
	Unknown6            Bits
	Unknown7            Bits
	Unknown8            Bits
}

func conf2FromPacket(p *Packet) Conf2 {
	return Conf2{
		ID:                  p.Data[1],
		FanMode:             FanModeByte(p.Data[2]),
		DefrostStart:        TemperatureExtended(p.Data[3]),
		DefrostEnd:          Temperature(p.Data[4]),
		DefrostCycleMinutes: DecimalNumber(p.Data[5]),
		MaxDefrostMinutes:   DecimalNumber(p.Data[6]),
		Unknown5:            Bits(p.Data[7]),
		Unknown6:            Bits(p.Data[8]),
		Unknown7:            Bits(p.Data[9]),
		Unknown8:            Bits(p.Data[10]),
	}
}

func (c *Conf2) put(p *Packet) {
	p.Len = FrameDataLength
	p.Data[1] = c.ID
	p.Data[2] = uint8(c.FanMode)
	p.Data[3] = uint8(c.DefrostStart)
	p.Data[4] = uint8(c.DefrostEnd)
	p.Data[5] = uint8(c.DefrostCycleMinutes)
	p.Data[6] = uint8(c.MaxDefrostMinutes)
	p.Data[7] = uint8(c.Unknown5)
	p.Data[8] = uint8(c.Unknown6)
	p.Data[9] = uint8(c.Unknown7)
	p.Data[10] = uint8(c.Unknown8)
	p.SetChecksum()
}

// FrameConf2 decodes and controls the fan-mode/defrost frame (0x82).
type FrameConf2 struct {
	frameState[Conf2]
}

// NewFrameConf2 creates the registry entry for the 0x82 frame.
func NewFrameConf2() *FrameConf2 {
	f := &FrameConf2{}
	f.decode = conf2FromPacket
	return f
}

// TypeString returns the fixed-width catalog name.
func (f *FrameConf2) TypeString() string { return "CONFIG_2  " }

// Matches tests the frame type id.
func (f *FrameConf2) Matches(p *Packet) bool { return p.Type() == FrameIDConf2 }

// Parse folds the fan mode and defrost parameters into the canonical
// state.
func (f *FrameConf2) Parse(d *HeatPumpData) {
	if f.data == nil {
		return
	}
	c := f.data
	d.DefrostStart = floatPtr(c.DefrostStart.Decode())
	d.DefrostEnd = floatPtr(c.DefrostEnd.Decode())
	d.DefrostCycleMinutes = floatPtr(c.DefrostCycleMinutes.Decode())
	d.MaxDefrostMinutes = floatPtr(c.MaxDefrostMinutes.Decode())
	d.FanMode = fanModePtr(c.FanMode.FanMode())
}

// Control derives an outbound 0x82 command from the call.
func (f *FrameConf2) Control(call *Call) (Packet, bool) {
	if call.FanMode == nil && call.DefrostStart == nil && call.DefrostEnd == nil &&
		call.DefrostCycleMinutes == nil && call.MaxDefrostMinutes == nil {
		return Packet{}, false
	}
	if f.data == nil {
		call.warn("waiting for initial fan mode state")
		return Packet{}, false
	}
	cmd := *f.data
	if call.DefrostStart != nil {
		cmd.DefrostStart = EncodeTemperatureExtended(*call.DefrostStart)
	}
	if call.DefrostEnd != nil {
		cmd.DefrostEnd = EncodeTemperature(*call.DefrostEnd)
	}
	if call.DefrostCycleMinutes != nil {
		cmd.DefrostCycleMinutes = EncodeDecimalNumber(*call.DefrostCycleMinutes)
	}
	if call.MaxDefrostMinutes != nil {
		cmd.MaxDefrostMinutes = EncodeDecimalNumber(*call.MaxDefrostMinutes)
	}
	if call.FanMode != nil {
		cmd.FanMode.SetFanMode(*call.FanMode)
	}
	if cmd == *f.data {
		return Packet{}, false
	}
	pkt := f.packet
	cmd.put(&pkt)
	return pkt, true
}

// Traits contributes the supported fan modes.
func (f *FrameConf2) Traits(t *Traits, d *HeatPumpData) {
	t.SupportedFanModes = []FanMode{FanLow, FanHigh, FanAmbient, FanScheduled, FanAmbientScheduled}
}

// Format renders the payload field by field, diffed against the previous
// payload.
func (f *FrameConf2) Format(noDiff bool) string {
	val, ref, ok := f.payload(noDiff)
	if !ok {
		return "N/A"
	}
	return f.format(val, ref)
}

// FormatPrev renders the previous payload without diffing.
func (f *FrameConf2) FormatPrev() string {
	if f.prevD == nil {
		return "N/A"
	}
	return f.format(*f.prevD, *f.prevD)
}

func (f *FrameConf2) format(val, ref Conf2) string {
	return fmt.Sprintf("f01 fan mode %s, Defrost: d01-start %s d03-time %s d04-max time %s d02-end %s [%s, %s, %s, %s, %s]",
		FormatDiff(val.FanMode.FanMode().LogString(), ref.FanMode.FanMode().LogString()),
		FormatDiff(val.DefrostStart.Format(), ref.DefrostStart.Format()),
		FormatDiff(val.DefrostCycleMinutes.Format(), ref.DefrostCycleMinutes.Format()),
		FormatDiff(val.MaxDefrostMinutes.Format(), ref.MaxDefrostMinutes.Format()),
		FormatDiff(val.DefrostEnd.Format(), ref.DefrostEnd.Format()),
		FormatBitsDiff(uint8(val.FanMode), uint8(ref.FanMode)),
		FormatBitsDiff(uint8(val.Unknown5), uint8(ref.Unknown5)),
		FormatBitsDiff(uint8(val.Unknown6), uint8(ref.Unknown6)),
		FormatBitsDiff(uint8(val.Unknown7), uint8(ref.Unknown7)),
		FormatBitsDiff(uint8(val.Unknown8), uint8(ref.Unknown8)))
}
