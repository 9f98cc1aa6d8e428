// SPDX-License-Identifier: Apache-2.0
// Copyright (c) 2025 Kaz Walker, Thermoquad

package hwp

import "fmt"

// Conditions2 is the long 0xD2 frame: outlet, exhaust and coil
// temperatures plus a fourth probe whose role is still unidentified.
type Conditions2 struct {
	ID          uint8
	Reserved1   Bits
	Reserved2   Bits
	OutletTemp  Temperature // t03
	ExhaustTemp Temperature // t06
	CoilTemp    Temperature // t04
	Reserved5   Bits
	Temp4       Temperature
	Reserved7   Bits
	Reserved8   Bits
}

func conditions2FromPacket(p *Packet) Conditions2 {
	return Conditions2{
		ID:          p.Data[1],
		Reserved1:   Bits(p.Data[2]),
		Reserved2:   Bits(p.Data[3]),
		OutletTemp:  Temperature(p.Data[4]),
		ExhaustTemp: Temperature(p.Data[5]),
		CoilTemp:    Temperature(p.Data[6]),
		Reserved5:   Bits(p.Data[7]),
		Temp4:       Temperature(p.Data[8]),
		Reserved7:   Bits(p.Data[9]),
		Reserved8:   Bits(p.Data[10]),
	}
}

// FrameConditions2 decodes the long 0xD2 conditions frame.
type FrameConditions2 struct {
	frameState[Conditions2]
}

// NewFrameConditions2 creates the registry entry for the long 0xD2
// frame.
func NewFrameConditions2() *FrameConditions2 {
	f := &FrameConditions2{}
	f.decode = conditions2FromPacket
	return f
}

// TypeString returns the fixed-width catalog name.
func (f *FrameConditions2) TypeString() string { return "COND_2    " }

// Matches tests the frame type id and the long-frame size.
func (f *FrameConditions2) Matches(p *Packet) bool {
	return p.Type() == FrameIDConditions2 && p.IsLongFrame()
}

// Parse folds the outlet, coil and exhaust temperatures into the
// canonical state.
func (f *FrameConditions2) Parse(d *HeatPumpData) {
	if f.data == nil {
		return
	}
	d.OutletTemp = floatPtr(f.data.OutletTemp.Decode())
	d.CoilTemp = floatPtr(f.data.CoilTemp.Decode())
	d.ExhaustTemp = floatPtr(f.data.ExhaustTemp.Decode())
}

// Format renders the payload field by field, diffed against the previous
// payload.
func (f *FrameConditions2) Format(noDiff bool) string {
	val, ref, ok := f.payload(noDiff)
	if !ok {
		return "N/A"
	}
	return f.format(val, ref)
}

// FormatPrev renders the previous payload without diffing.
func (f *FrameConditions2) FormatPrev() string {
	if f.prevD == nil {
		return "N/A"
	}
	return f.format(*f.prevD, *f.prevD)
}

func (f *FrameConditions2) format(val, ref Conditions2) string {
	return fmt.Sprintf("t03 outlet %s, t04 coil %s, t06 exhaust %s, 4?? %s, R12[%s, %s], R578[%s, %s, %s]",
		FormatDiff(val.OutletTemp.Format(), ref.OutletTemp.Format()),
		FormatDiff(val.CoilTemp.Format(), ref.CoilTemp.Format()),
		FormatDiff(val.ExhaustTemp.Format(), ref.ExhaustTemp.Format()),
		FormatDiff(val.Temp4.Format(), ref.Temp4.Format()),
		FormatBitsDiff(uint8(val.Reserved1), uint8(ref.Reserved1)),
		FormatBitsDiff(uint8(val.Reserved2), uint8(ref.Reserved2)),
		FormatBitsDiff(uint8(val.Reserved5), uint8(ref.Reserved5)),
		FormatBitsDiff(uint8(val.Reserved7), uint8(ref.Reserved7)),
		FormatBitsDiff(uint8(val.Reserved8), uint8(ref.Reserved8)))
}

// Conditions2B is the short 0xD2 frame. Whether it is a distinct frame or
// a continuation of the long one is still unresolved; no fields are
// parsed from it yet.
type Conditions2B struct {
	ID        uint8
	Reserved1 Bits
	Reserved2 Bits
	Reserved3 Bits
	Reserved4 Bits
	Reserved5 Bits
	Reserved6 Bits
	Reserved7 Bits
}

func conditions2BFromPacket(p *Packet) Conditions2B {
	return Conditions2B{
		ID:        p.Data[1],
		Reserved1: Bits(p.Data[2]),
		Reserved2: Bits(p.Data[3]),
		Reserved3: Bits(p.Data[4]),
		Reserved4: Bits(p.Data[5]),
		Reserved5: Bits(p.Data[6]),
		Reserved6: Bits(p.Data[7]),
		Reserved7: Bits(p.Data[8]),
	}
}

// FrameConditions2B preserves the short 0xD2 conditions frame.
type FrameConditions2B struct {
	frameState[Conditions2B]
}

// NewFrameConditions2B creates the registry entry for the short 0xD2
// frame.
func NewFrameConditions2B() *FrameConditions2B {
	f := &FrameConditions2B{}
	f.decode = conditions2BFromPacket
	return f
}

// TypeString returns the fixed-width catalog name.
func (f *FrameConditions2B) TypeString() string { return "COND_2_B  " }

// Matches tests the frame type id and the short-frame size.
func (f *FrameConditions2B) Matches(p *Packet) bool {
	return p.Type() == FrameIDConditions2 && p.IsShortFrame()
}

// Format renders the reserved bytes as bit diffs.
func (f *FrameConditions2B) Format(noDiff bool) string {
	val, ref, ok := f.payload(noDiff)
	if !ok {
		return "N/A"
	}
	return f.format(val, ref)
}

// FormatPrev renders the previous payload without diffing.
func (f *FrameConditions2B) FormatPrev() string {
	if f.prevD == nil {
		return "N/A"
	}
	return f.format(*f.prevD, *f.prevD)
}

func (f *FrameConditions2B) format(val, ref Conditions2B) string {
	return fmt.Sprintf("[%s, %s, %s, %s, %s, %s, %s]",
		FormatBitsDiff(uint8(val.Reserved1), uint8(ref.Reserved1)),
		FormatBitsDiff(uint8(val.Reserved2), uint8(ref.Reserved2)),
		FormatBitsDiff(uint8(val.Reserved3), uint8(ref.Reserved3)),
		FormatBitsDiff(uint8(val.Reserved4), uint8(ref.Reserved4)),
		FormatBitsDiff(uint8(val.Reserved5), uint8(ref.Reserved5)),
		FormatBitsDiff(uint8(val.Reserved6), uint8(ref.Reserved6)),
		FormatBitsDiff(uint8(val.Reserved7), uint8(ref.Reserved7)))
}
