// SPDX-License-Identifier: Apache-2.0
// Copyright (c) 2025 Kaz Walker, Thermoquad

package hwp

import (
	"fmt"
	"strings"
)

// Packet is a raw NET port frame: up to 12 bytes plus the live length.
// Byte 0 is the type id, the last byte the checksum. Long frames checksum
// bytes 0..len-2; short frames skip the type byte and checksum bytes
// 1..len-2.
type Packet struct {
	Data [FrameDataLength]byte
	Len  int
}

// NewPacket builds a packet from raw bytes. The slice length becomes the
// live length; bytes beyond FrameDataLength are rejected.
func NewPacket(data []byte) (Packet, error) {
	var p Packet
	if len(data) > FrameDataLength {
		return p, fmt.Errorf("packet too long: %d bytes (max %d)", len(data), FrameDataLength)
	}
	copy(p.Data[:], data)
	p.Len = len(data)
	return p, nil
}

// Type returns the frame type id (byte 0).
func (p *Packet) Type() uint8 { return p.Data[0] }

// IsLongFrame reports whether the packet has the long-frame length.
func (p *Packet) IsLongFrame() bool { return p.Len == FrameDataLength }

// IsShortFrame reports whether the packet has the short-frame length.
func (p *Packet) IsShortFrame() bool { return p.Len == FrameDataLengthShort }

// IsSizeValid reports whether the live length is one of the two frame
// sizes the bus uses.
func (p *Packet) IsSizeValid() bool { return p.IsLongFrame() || p.IsShortFrame() }

// checksumPos returns the index of the checksum byte.
func (p *Packet) checksumPos() int {
	if p.Len == 0 || p.Len > FrameDataLength {
		return FrameDataLength - 1
	}
	return p.Len - 1
}

// BusChecksum returns the checksum byte as captured from the bus.
func (p *Packet) BusChecksum() uint8 { return p.Data[p.checksumPos()] }

// CalculateChecksum computes the modular sum over the checksummed range:
// bytes 0..len-2 for long frames, bytes 1..len-2 for short frames.
func (p *Packet) CalculateChecksum() uint8 {
	start := 0
	if p.IsShortFrame() {
		start = 1
	}
	var total uint32
	for i := start; i < p.checksumPos(); i++ {
		total += uint32(p.Data[i])
	}
	return uint8(total % 256)
}

// SetChecksum writes the calculated checksum into the checksum byte.
func (p *Packet) SetChecksum() { p.Data[p.checksumPos()] = p.CalculateChecksum() }

// IsChecksumValid reports whether the stored checksum matches the
// calculated one. Packets with an invalid size never validate.
func (p *Packet) IsChecksumValid() bool {
	if !p.IsSizeValid() {
		return false
	}
	return p.BusChecksum() == p.CalculateChecksum()
}

// Inverse complements every live byte in place. The heater transmits with
// inverted polarity; complementing recovers its frames.
func (p *Packet) Inverse() {
	for i := 0; i < p.Len && i < FrameDataLength; i++ {
		p.Data[i] = ^p.Data[i]
	}
}

// Inverted returns a complemented copy of the packet.
func (p Packet) Inverted() Packet {
	p.Inverse()
	return p
}

// ValidateSource resolves the frame source from checksum polarity:
// a packet valid as captured came from the controller; one valid only
// after complementing every byte came from the heater (and the
// complemented packet is the one to parse). Frames valid under neither
// polarity are rejected.
func (p Packet) ValidateSource() (Packet, Source, bool) {
	if p.IsChecksumValid() {
		return p, SourceController, true
	}
	inv := p.Inverted()
	if inv.IsChecksumValid() {
		return inv, SourceHeater, true
	}
	return p, SourceUnknown, false
}

// ExplainChecksum describes the checksum computation, byte by byte. Used
// for debug logging of rejected frames.
func (p *Packet) ExplainChecksum() string {
	start := 0
	if p.IsShortFrame() {
		start = 1
	}
	var b strings.Builder
	var total uint32
	for i := start; i < p.checksumPos(); i++ {
		total += uint32(p.Data[i])
		fmt.Fprintf(&b, "%02X(%d),", p.Data[i], total)
	}
	fmt.Fprintf(&b, "calculated:%02X stored:%02X", total%256, p.BusChecksum())
	return b.String()
}

// Bytes returns the live bytes of the packet.
func (p *Packet) Bytes() []byte { return p.Data[:p.Len] }

// Equal reports byte-for-byte equality over the live length.
func (p *Packet) Equal(other *Packet) bool {
	return p.Len == other.Len && p.Data == other.Data
}

// Reset zeroes the buffer and length.
func (p *Packet) Reset() {
	p.Data = [FrameDataLength]byte{}
	p.Len = 0
}

// HexString renders the live bytes as "0xAA, 0xBB, ...".
func (p *Packet) HexString() string {
	parts := make([]string, 0, p.Len)
	for _, b := range p.Bytes() {
		parts = append(parts, fmt.Sprintf("0x%02X", b))
	}
	return strings.Join(parts, ", ")
}
