// SPDX-License-Identifier: Apache-2.0
// Copyright (c) 2025 Kaz Walker, Thermoquad

package hwp

import "fmt"

// Conf1 is the payload of the 0x81 frame: power/mode selection, the three
// setpoints, and the four differential tuning temperatures.
type Conf1 struct {
	ID                  uint8
	Mode                ModeByte
	SetpointCooling     Temperature         // r01
	SetpointHeating     Temperature         // r02
	SetpointAuto        Temperature         // r03
	ReturnDiffCooling   TemperatureExtended // r04
	ShutdownDiffCooling TemperatureExtended // r05
	ReturnDiffHeating   TemperatureExtended // r06
	ShutdownDiffHeating TemperatureExtended // r07
	Reserved            Bits
}

func conf1FromPacket(p *Packet) Conf1 {
	return Conf1{
		ID:                  p.Data[1],
		Mode:                ModeByte(p.Data[2]),
		SetpointCooling:     Temperature(p.Data[3]),
		SetpointHeating:     Temperature(p.Data[4]),
		SetpointAuto:        Temperature(p.Data[5]),
		ReturnDiffCooling:   TemperatureExtended(p.Data[6]),
		ShutdownDiffCooling: TemperatureExtended(p.Data[7]),
		ReturnDiffHeating:   TemperatureExtended(p.Data[8]),
		ShutdownDiffHeating: TemperatureExtended(p.Data[9]),
		Reserved:            Bits(p.Data[10]),
	}
}

// put writes the payload back into a packet and finalizes the checksum.
func (c *Conf1) put(p *Packet) {
	p.Len = FrameDataLength
	p.Data[1] = c.ID
	p.Data[2] = uint8(c.Mode)
	p.Data[3] = uint8(c.SetpointCooling)
	p.Data[4] = uint8(c.SetpointHeating)
	p.Data[5] = uint8(c.SetpointAuto)
	p.Data[6] = uint8(c.ReturnDiffCooling)
	p.Data[7] = uint8(c.ShutdownDiffCooling)
	p.Data[8] = uint8(c.ReturnDiffHeating)
	p.Data[9] = uint8(c.ShutdownDiffHeating)
	p.Data[10] = uint8(c.Reserved)
	p.SetChecksum()
}

// targetTemperature returns the setpoint selected by the active mode.
func (c *Conf1) targetTemperature() float64 {
	switch c.Mode.ActiveMode() {
	case StateAutoMode:
		return c.SetpointAuto.Decode()
	case StateCoolingMode:
		return c.SetpointCooling.Decode()
	default:
		return c.SetpointHeating.Decode()
	}
}

// FrameConf1 decodes and controls the mode/setpoint frame (0x81).
// Controller-originated command frames carry this type id.
type FrameConf1 struct {
	frameState[Conf1]
}

// NewFrameConf1 creates the registry entry for the 0x81 frame.
func NewFrameConf1() *FrameConf1 {
	f := &FrameConf1{}
	f.decode = conf1FromPacket
	return f
}

// TypeString returns the fixed-width catalog name.
func (f *FrameConf1) TypeString() string { return "CONFIG_1  " }

// Matches tests the frame type id.
func (f *FrameConf1) Matches(p *Packet) bool { return p.Type() == FrameIDConf1 }

// Parse folds mode, target and setpoints into the canonical state. Only
// heater-originated frames count: the keypad echoes this frame too, and
// its copy may lag the heater's truth.
func (f *FrameConf1) Parse(d *HeatPumpData) {
	if f.source != SourceHeater || f.data == nil {
		return
	}
	c := f.data
	d.setMode(c.Mode.ActiveMode().ClimateMode())
	d.TargetTemperature = floatPtr(c.targetTemperature())
	d.ModeRestrictions = restrictPtr(c.Mode.Restriction())
	d.SetpointCooling = floatPtr(c.SetpointCooling.Decode())
	d.SetpointHeating = floatPtr(c.SetpointHeating.Decode())
	d.SetpointAuto = floatPtr(c.SetpointAuto.Decode())
	d.ReturnDiffCooling = floatPtr(c.ReturnDiffCooling.Decode())
	d.ShutdownDiffCooling = floatPtr(c.ShutdownDiffCooling.Decode())
	d.ReturnDiffHeating = floatPtr(c.ReturnDiffHeating.Decode())
	d.ShutdownDiffHeating = floatPtr(c.ShutdownDiffHeating.Decode())
}

// Control derives an outbound 0x81 command from the call. The latest
// observed payload is cloned, the requested deltas applied, and the
// checksum finalized; an unchanged payload produces nothing.
func (f *FrameConf1) Control(call *Call) (Packet, bool) {
	if call.Mode == nil && call.ModeRestriction == nil && call.TargetTemperature == nil &&
		call.ReturnDiffCooling == nil && call.ShutdownDiffCooling == nil &&
		call.ReturnDiffHeating == nil && call.ShutdownDiffHeating == nil {
		return Packet{}, false
	}
	if f.data == nil {
		call.warn("waiting for initial heater state")
		return Packet{}, false
	}
	cmd := *f.data
	if call.Mode != nil {
		cmd.Mode.SetClimateMode(*call.Mode)
	}
	if call.ModeRestriction != nil {
		cmd.Mode.SetRestriction(*call.ModeRestriction)
	}
	if call.TargetTemperature != nil {
		f.applyTarget(call, &cmd)
	}
	if call.ReturnDiffCooling != nil {
		cmd.ReturnDiffCooling = EncodeTemperatureExtended(*call.ReturnDiffCooling)
	}
	if call.ShutdownDiffCooling != nil {
		cmd.ShutdownDiffCooling = EncodeTemperatureExtended(*call.ShutdownDiffCooling)
	}
	if call.ReturnDiffHeating != nil {
		cmd.ReturnDiffHeating = EncodeTemperatureExtended(*call.ReturnDiffHeating)
	}
	if call.ShutdownDiffHeating != nil {
		cmd.ShutdownDiffHeating = EncodeTemperatureExtended(*call.ShutdownDiffHeating)
	}
	if cmd == *f.data {
		return Packet{}, false
	}
	pkt := f.packet
	cmd.put(&pkt)
	return pkt, true
}

// applyTarget writes the requested target into the setpoint owned by the
// command frame's active mode. When the heat pump is off, the mode
// restriction picks the setpoint the keypad would edit.
func (f *FrameConf1) applyTarget(call *Call, cmd *Conf1) {
	v := *call.TargetTemperature
	if call.data != nil && !call.data.IsTemperatureValid(v) {
		call.reject(fmt.Sprintf("invalid temperature %.1f: must be between %.1fC and %.1fC",
			v, call.data.MinTarget(), call.data.MaxTarget()))
		return
	}
	switch cmd.Mode.ActiveMode() {
	case StateCoolingMode:
		cmd.SetpointCooling = EncodeTemperature(v)
	case StateHeatingMode:
		cmd.SetpointHeating = EncodeTemperature(v)
	case StateAutoMode:
		cmd.SetpointAuto = EncodeTemperature(v)
	case StateOff:
		if cmd.Mode.Restriction() == RestrictCooling {
			cmd.SetpointCooling = EncodeTemperature(v)
		} else {
			cmd.SetpointHeating = EncodeTemperature(v)
		}
	}
}

// Traits contributes the climate modes the mode restriction allows.
func (f *FrameConf1) Traits(t *Traits, d *HeatPumpData) {
	t.addMode(ClimateModeOff)
	if f.data == nil {
		t.addMode(ClimateModeHeat)
		t.addMode(ClimateModeCool)
		t.addMode(ClimateModeAuto)
		return
	}
	switch f.data.Mode.Restriction() {
	case RestrictAny:
		t.addMode(ClimateModeHeat)
		t.addMode(ClimateModeCool)
		t.addMode(ClimateModeAuto)
	case RestrictHeating:
		t.addMode(ClimateModeHeat)
	case RestrictCooling:
		t.addMode(ClimateModeCool)
	}
}

// Format renders the payload field by field, diffed against the previous
// payload.
func (f *FrameConf1) Format(noDiff bool) string {
	val, ref, ok := f.payload(noDiff)
	if !ok {
		return "N/A"
	}
	return f.format(val, ref)
}

// FormatPrev renders the previous payload without diffing.
func (f *FrameConf1) FormatPrev() string {
	if f.prevD == nil {
		return "N/A"
	}
	return f.format(*f.prevD, *f.prevD)
}

func (f *FrameConf1) format(val, ref Conf1) string {
	power := func(c Conf1) string {
		if c.Mode.Power() {
			return "ON "
		}
		return "OFF"
	}
	return fmt.Sprintf("cool:%s heat:%s auto:%s, r04 cool_ret_diff:%s, r05 cool_shutdown_diff:%s, r06 heat_ret_diff:%s, Mode: ([%s] %s/%s/%s) r07 heat_shutdown_diff:%s [%s]",
		FormatDiff(val.SetpointCooling.Format(), ref.SetpointCooling.Format()),
		FormatDiff(val.SetpointHeating.Format(), ref.SetpointHeating.Format()),
		FormatDiff(val.SetpointAuto.Format(), ref.SetpointAuto.Format()),
		FormatDiff(val.ReturnDiffCooling.Format(), ref.ReturnDiffCooling.Format()),
		FormatDiff(val.ShutdownDiffCooling.Format(), ref.ShutdownDiffCooling.Format()),
		FormatDiff(val.ReturnDiffHeating.Format(), ref.ReturnDiffHeating.Format()),
		FormatBitsDiff(uint8(val.Mode), uint8(ref.Mode)),
		FormatDiff(power(val), power(ref)),
		FormatDiff(val.Mode.ActiveMode().String(), ref.Mode.ActiveMode().String()),
		FormatDiff(val.Mode.Restriction().LogString(), ref.Mode.Restriction().LogString()),
		FormatDiff(val.ShutdownDiffHeating.Format(), ref.ShutdownDiffHeating.Format()),
		FormatBitsDiff(uint8(val.Reserved), uint8(ref.Reserved)))
}
