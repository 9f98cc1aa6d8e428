// SPDX-License-Identifier: Apache-2.0
// Copyright (c) 2025 Kaz Walker, Thermoquad

package hwp

import "fmt"

// Conditions1 is the first flavor of the 0xD1 frame: the inlet
// temperature at byte 8 with everything else reserved. It is told apart
// from the B flavor by its first reserved byte reading 0x05.
type Conditions1 struct {
	ID        uint8
	Reserved1 Bits
	Reserved2 Bits
	Reserved3 Bits
	Reserved4 Bits
	Reserved5 Bits
	Reserved6 Bits
	Reserved7 Bits
	InletTemp Temperature // t02
	Reserved8 Bits
}

func conditions1FromPacket(p *Packet) Conditions1 {
	return Conditions1{
		ID:        p.Data[1],
		Reserved1: Bits(p.Data[2]),
		Reserved2: Bits(p.Data[3]),
		Reserved3: Bits(p.Data[4]),
		Reserved4: Bits(p.Data[5]),
		Reserved5: Bits(p.Data[6]),
		Reserved6: Bits(p.Data[7]),
		Reserved7: Bits(p.Data[8]),
		InletTemp: Temperature(p.Data[9]),
		Reserved8: Bits(p.Data[10]),
	}
}

// FrameConditions1 decodes the 0xD1 flavor-A conditions frame.
type FrameConditions1 struct {
	frameState[Conditions1]
}

// NewFrameConditions1 creates the registry entry for the flavor-A 0xD1
// frame.
func NewFrameConditions1() *FrameConditions1 {
	f := &FrameConditions1{}
	f.decode = conditions1FromPacket
	return f
}

// TypeString returns the fixed-width catalog name.
func (f *FrameConditions1) TypeString() string { return "COND_1    " }

// Matches tests the frame type id and the flavor discriminator byte.
func (f *FrameConditions1) Matches(p *Packet) bool {
	return p.Type() == FrameIDConditions1 && p.Data[2] == 0x05
}

// Parse folds the inlet temperature into the canonical state.
func (f *FrameConditions1) Parse(d *HeatPumpData) {
	if f.data == nil {
		return
	}
	d.InletTemp = floatPtr(f.data.InletTemp.Decode())
}

// Format renders the payload field by field, diffed against the previous
// payload.
func (f *FrameConditions1) Format(noDiff bool) string {
	val, ref, ok := f.payload(noDiff)
	if !ok {
		return "N/A"
	}
	return f.format(val, ref)
}

// FormatPrev renders the previous payload without diffing.
func (f *FrameConditions1) FormatPrev() string {
	if f.prevD == nil {
		return "N/A"
	}
	return f.format(*f.prevD, *f.prevD)
}

func (f *FrameConditions1) format(val, ref Conditions1) string {
	return fmt.Sprintf("t02 inlet:%s, R[%s, %s, %s, %s, %s, %s, %s], R8 %s",
		FormatDiff(val.InletTemp.Format(), ref.InletTemp.Format()),
		FormatBitsDiff(uint8(val.Reserved1), uint8(ref.Reserved1)),
		FormatBitsDiff(uint8(val.Reserved2), uint8(ref.Reserved2)),
		FormatBitsDiff(uint8(val.Reserved3), uint8(ref.Reserved3)),
		FormatBitsDiff(uint8(val.Reserved4), uint8(ref.Reserved4)),
		FormatBitsDiff(uint8(val.Reserved5), uint8(ref.Reserved5)),
		FormatBitsDiff(uint8(val.Reserved6), uint8(ref.Reserved6)),
		FormatBitsDiff(uint8(val.Reserved7), uint8(ref.Reserved7)),
		FormatBitsDiff(uint8(val.Reserved8), uint8(ref.Reserved8)))
}

// Conditions1B is the second flavor of the 0xD1 frame: it adds the
// water-flow bit in byte 3 alongside the inlet temperature.
type Conditions1B struct {
	ID        uint8
	Reserved1 Bits
	Reserved2 Bits
	Flow      FlowByte // s02 water flow in bit 1
	Reserved4 Bits
	Reserved5 Bits
	Reserved6 Bits
	Reserved7 Bits
	InletTemp Temperature // t02
	Reserved8 Bits
}

func conditions1BFromPacket(p *Packet) Conditions1B {
	return Conditions1B{
		ID:        p.Data[1],
		Reserved1: Bits(p.Data[2]),
		Reserved2: Bits(p.Data[3]),
		Flow:      FlowByte(p.Data[4]),
		Reserved4: Bits(p.Data[5]),
		Reserved5: Bits(p.Data[6]),
		Reserved6: Bits(p.Data[7]),
		Reserved7: Bits(p.Data[8]),
		InletTemp: Temperature(p.Data[9]),
		Reserved8: Bits(p.Data[10]),
	}
}

// FrameConditions1B decodes the 0xD1 flavor-B conditions frame.
type FrameConditions1B struct {
	frameState[Conditions1B]
}

// NewFrameConditions1B creates the registry entry for the flavor-B 0xD1
// frame.
func NewFrameConditions1B() *FrameConditions1B {
	f := &FrameConditions1B{}
	f.decode = conditions1BFromPacket
	return f
}

// TypeString returns the fixed-width catalog name.
func (f *FrameConditions1B) TypeString() string { return "COND_1B   " }

// Matches tests the frame type id with the flavor discriminator absent.
func (f *FrameConditions1B) Matches(p *Packet) bool {
	return p.Type() == FrameIDConditions1 && p.Data[2] != 0x05
}

// Parse folds the inlet temperature and the water-flow flag into the
// canonical state.
func (f *FrameConditions1B) Parse(d *HeatPumpData) {
	if f.data == nil {
		return
	}
	d.WaterFlow = boolPtr(f.data.Flow.WaterFlowing())
	d.InletTemp = floatPtr(f.data.InletTemp.Decode())
}

// Format renders the payload field by field, diffed against the previous
// payload.
func (f *FrameConditions1B) Format(noDiff bool) string {
	val, ref, ok := f.payload(noDiff)
	if !ok {
		return "N/A"
	}
	return f.format(val, ref)
}

// FormatPrev renders the previous payload without diffing.
func (f *FrameConditions1B) FormatPrev() string {
	if f.prevD == nil {
		return "N/A"
	}
	return f.format(*f.prevD, *f.prevD)
}

func flowString(flowing bool) string {
	if flowing {
		return "FLOWING    "
	}
	return "NOT FLOWING"
}

func (f *FrameConditions1B) format(val, ref Conditions1B) string {
	return fmt.Sprintf("t02 inlet:%s, s02 %s, R[%s, %s, %s, %s, %s, %s], R8 %s",
		FormatDiff(val.InletTemp.Format(), ref.InletTemp.Format()),
		FormatDiff(flowString(val.Flow.WaterFlowing()), flowString(ref.Flow.WaterFlowing())),
		FormatBitsDiff(uint8(val.Reserved1), uint8(ref.Reserved1)),
		FormatBitsDiff(uint8(val.Reserved2), uint8(ref.Reserved2)),
		FormatBitsDiff(uint8(val.Reserved4), uint8(ref.Reserved4)),
		FormatBitsDiff(uint8(val.Reserved5), uint8(ref.Reserved5)),
		FormatBitsDiff(uint8(val.Reserved6), uint8(ref.Reserved6)),
		FormatBitsDiff(uint8(val.Reserved7), uint8(ref.Reserved7)),
		FormatBitsDiff(uint8(val.Reserved8), uint8(ref.Reserved8)))
}
