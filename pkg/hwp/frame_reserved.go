// SPDX-License-Identifier: Apache-2.0
// Copyright (c) 2025 Kaz Walker, Thermoquad

package hwp

import "fmt"

// ConfReserved is the payload shared by the 0x84 and 0x86 frames. Every
// bit is of unknown purpose; the bytes are preserved verbatim and only
// surfaced through bit-level diffing.
type ConfReserved struct {
	ID       uint8
	Unknown1 Bits
	Unknown2 Bits
	Unknown3 Bits
	Unknown4 Bits
	Unknown5 Bits
	Unknown6 Bits
	Unknown7 Bits
	Unknown8 Bits
	Unknown9 Bits
}

func confReservedFromPacket(p *Packet) ConfReserved {
	return ConfReserved{
		ID:       p.Data[1],
		Unknown1: Bits(p.Data[2]),
		Unknown2: Bits(p.Data[3]),
		Unknown3: Bits(p.Data[4]),
		Unknown4: Bits(p.Data[5]),
		Unknown5: Bits(p.Data[6]),
		Unknown6: Bits(p.Data[7]),
		Unknown7: Bits(p.Data[8]),
		Unknown8: Bits(p.Data[9]),
		Unknown9: Bits(p.Data[10]),
	}
}

// frameReserved is the shared implementation behind FrameConf4 and
// FrameConf6.
type frameReserved struct {
	frameState[ConfReserved]
	typeID uint8
	name   string
}

func newFrameReserved(typeID uint8, name string) frameReserved {
	f := frameReserved{typeID: typeID, name: name}
	f.decode = confReservedFromPacket
	return f
}

// TypeString returns the fixed-width catalog name.
func (f *frameReserved) TypeString() string { return f.name }

// Matches tests the frame type id.
func (f *frameReserved) Matches(p *Packet) bool { return p.Type() == f.typeID }

// Format renders the reserved bytes as bit diffs.
func (f *frameReserved) Format(noDiff bool) string {
	val, ref, ok := f.payload(noDiff)
	if !ok {
		return "N/A"
	}
	return f.format(val, ref)
}

// FormatPrev renders the previous payload without diffing.
func (f *frameReserved) FormatPrev() string {
	if f.prevD == nil {
		return "N/A"
	}
	return f.format(*f.prevD, *f.prevD)
}

func (f *frameReserved) format(val, ref ConfReserved) string {
	return fmt.Sprintf("[%s, %s, %s, %s, %s, %s, %s, %s, %s]",
		FormatBitsDiff(uint8(val.Unknown1), uint8(ref.Unknown1)),
		FormatBitsDiff(uint8(val.Unknown2), uint8(ref.Unknown2)),
		FormatBitsDiff(uint8(val.Unknown3), uint8(ref.Unknown3)),
		FormatBitsDiff(uint8(val.Unknown4), uint8(ref.Unknown4)),
		FormatBitsDiff(uint8(val.Unknown5), uint8(ref.Unknown5)),
		FormatBitsDiff(uint8(val.Unknown6), uint8(ref.Unknown6)),
		FormatBitsDiff(uint8(val.Unknown7), uint8(ref.Unknown7)),
		FormatBitsDiff(uint8(val.Unknown8), uint8(ref.Unknown8)),
		FormatBitsDiff(uint8(val.Unknown9), uint8(ref.Unknown9)))
}

// FrameConf4 preserves the reserved 0x84 frame verbatim.
type FrameConf4 struct {
	frameReserved
}

// NewFrameConf4 creates the registry entry for the 0x84 frame.
func NewFrameConf4() *FrameConf4 {
	return &FrameConf4{newFrameReserved(FrameIDConf4, "CONFIG_4  ")}
}

// FrameConf6 preserves the reserved 0x86 frame verbatim.
type FrameConf6 struct {
	frameReserved
}

// NewFrameConf6 creates the registry entry for the 0x86 frame.
func NewFrameConf6() *FrameConf6 {
	return &FrameConf6{newFrameReserved(FrameIDConf6, "CONFIG_6  ")}
}
