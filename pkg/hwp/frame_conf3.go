// SPDX-License-Identifier: Apache-2.0
// Copyright (c) 2025 Kaz Walker, Thermoquad

package hwp

import "fmt"

// Conf3 is the payload of the 0x83 frame: the setpoint extrema for both
// operating modes. The leading five bytes are reserved.
type Conf3 struct {
	ID              uint8
	Unknown1        Bits
	Unknown2        Bits
	Unknown3        Bits
	Unknown4        Bits
	Unknown5        Bits
	MinCoolSetpoint TemperatureExtended // r08
	MaxCoolSetpoint TemperatureExtended // r09
	MinHeatSetpoint TemperatureExtended // r10
	MaxHeatSetpoint TemperatureExtended // r11
}

func conf3FromPacket(p *Packet) Conf3 {
	return Conf3{
		ID:              p.Data[1],
		Unknown1:        Bits(p.Data[2]),
		Unknown2:        Bits(p.Data[3]),
		Unknown3:        Bits(p.Data[4]),
		Unknown4:        Bits(p.Data[5]),
		Unknown5:        Bits(p.Data[6]),
		MinCoolSetpoint: TemperatureExtended(p.Data[7]),
		MaxCoolSetpoint: TemperatureExtended(p.Data[8]),
		MinHeatSetpoint: TemperatureExtended(p.Data[9]),
		MaxHeatSetpoint: TemperatureExtended(p.Data[10]),
	}
}

// FrameConf3 decodes the setpoint-limit frame (0x83).
type FrameConf3 struct {
	frameState[Conf3]
}

// NewFrameConf3 creates the registry entry for the 0x83 frame.
func NewFrameConf3() *FrameConf3 {
	f := &FrameConf3{}
	f.decode = conf3FromPacket
	return f
}

// TypeString returns the fixed-width catalog name.
func (f *FrameConf3) TypeString() string { return "CONFIG_3  " }

// Matches tests the frame type id.
func (f *FrameConf3) Matches(p *Packet) bool { return p.Type() == FrameIDConf3 }

// Parse folds the setpoint extrema into the canonical state and derives
// the target window for the active mode.
func (f *FrameConf3) Parse(d *HeatPumpData) {
	if f.data == nil {
		return
	}
	c := f.data
	minCool := c.MinCoolSetpoint.Decode()
	maxCool := c.MaxCoolSetpoint.Decode()
	minHeat := c.MinHeatSetpoint.Decode()
	maxHeat := c.MaxHeatSetpoint.Decode()
	d.MinCoolSetpoint = floatPtr(minCool)
	d.MaxCoolSetpoint = floatPtr(maxCool)
	d.MinHeatSetpoint = floatPtr(minHeat)
	d.MaxHeatSetpoint = floatPtr(maxHeat)

	mode := ClimateModeHeat
	if d.Mode != nil && *d.Mode != ClimateModeOff {
		mode = *d.Mode
	}
	switch mode {
	case ClimateModeHeat:
		d.MinTargetTemp = floatPtr(minHeat)
		d.MaxTargetTemp = floatPtr(maxHeat)
	case ClimateModeCool:
		d.MinTargetTemp = floatPtr(minCool)
		d.MaxTargetTemp = floatPtr(maxCool)
	default:
		d.MinTargetTemp = floatPtr(minCool)
		d.MaxTargetTemp = floatPtr(maxHeat)
	}
}

// Traits contributes the visual setpoint window.
func (f *FrameConf3) Traits(t *Traits, d *HeatPumpData) {
	t.VisualMinTemp = d.MinTarget()
	t.VisualMaxTemp = d.MaxTarget()
	t.VisualStep = 0.5
}

// Format renders the payload field by field, diffed against the previous
// payload.
func (f *FrameConf3) Format(noDiff bool) string {
	val, ref, ok := f.payload(noDiff)
	if !ok {
		return "N/A"
	}
	return f.format(val, ref)
}

// FormatPrev renders the previous payload without diffing.
func (f *FrameConf3) FormatPrev() string {
	if f.prevD == nil {
		return "N/A"
	}
	return f.format(*f.prevD, *f.prevD)
}

func (f *FrameConf3) format(val, ref Conf3) string {
	return fmt.Sprintf("[%s, %s, %s, %s, %s] r08 min_cool:%s, r09 max_cool:%s, r10 min_heat:%s, r11 max_heat:%s",
		FormatBitsDiff(uint8(val.Unknown1), uint8(ref.Unknown1)),
		FormatBitsDiff(uint8(val.Unknown2), uint8(ref.Unknown2)),
		FormatBitsDiff(uint8(val.Unknown3), uint8(ref.Unknown3)),
		FormatBitsDiff(uint8(val.Unknown4), uint8(ref.Unknown4)),
		FormatBitsDiff(uint8(val.Unknown5), uint8(ref.Unknown5)),
		FormatDiff(val.MinCoolSetpoint.Format(), ref.MinCoolSetpoint.Format()),
		FormatDiff(val.MaxCoolSetpoint.Format(), ref.MaxCoolSetpoint.Format()),
		FormatDiff(val.MinHeatSetpoint.Format(), ref.MinHeatSetpoint.Format()),
		FormatDiff(val.MaxHeatSetpoint.Format(), ref.MaxHeatSetpoint.Format()))
}
