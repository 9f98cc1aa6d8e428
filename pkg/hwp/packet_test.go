// SPDX-License-Identifier: Apache-2.0
// Copyright (c) 2025 Kaz Walker, Thermoquad

package hwp

import "testing"

// Known-good captures used across the test suite.
var (
	// Long 0xD2 conditions frame: outlet 28.5C, exhaust 11.0C,
	// coil 17.5C. Valid in controller polarity.
	conditionsFrame = []byte{0xD2, 0xB1, 0x11, 0x66, 0x75, 0x52, 0x5F, 0x00, 0x64, 0x00, 0x00, 0x84}

	// 0x81 mode/setpoint frame: power on, heat mode, restriction Any.
	conf1Frame = mustChecksummed([]byte{0x81, 0xB1, 0x17, 0x06, 0x77, 0x78, 0x3D, 0x3D, 0x3D, 0x3D, 0x00, 0x00})
)

// mustChecksummed finalizes the checksum byte of a test vector.
func mustChecksummed(data []byte) []byte {
	p, err := NewPacket(data)
	if err != nil {
		panic(err)
	}
	p.SetChecksum()
	out := make([]byte, p.Len)
	copy(out, p.Bytes())
	return out
}

func mustPacket(t *testing.T, data []byte) Packet {
	t.Helper()
	p, err := NewPacket(data)
	if err != nil {
		t.Fatalf("NewPacket: %v", err)
	}
	return p
}

// ============================================================
// Checksum
// ============================================================

func TestPacket_ChecksumLongFrame(t *testing.T) {
	p := mustPacket(t, conditionsFrame)
	if got := p.CalculateChecksum(); got != 0x84 {
		t.Errorf("CalculateChecksum = 0x%02X, want 0x84", got)
	}
	if !p.IsChecksumValid() {
		t.Error("checksum should validate")
	}
}

func TestPacket_ChecksumShortFrameSkipsTypeByte(t *testing.T) {
	data := []byte{0xD2, 0x10, 0x20, 0x30, 0x40, 0x50, 0x60, 0x70, 0x00}
	p := mustPacket(t, data)
	// Short frames sum bytes 1..len-2: 0x10+..+0x70 = 0x1C0 -> 0xC0.
	if got := p.CalculateChecksum(); got != 0xC0 {
		t.Errorf("CalculateChecksum = 0x%02X, want 0xC0", got)
	}
	p.SetChecksum()
	if !p.IsChecksumValid() {
		t.Error("checksum should validate after SetChecksum")
	}
}

func TestPacket_InvalidSizeNeverValidates(t *testing.T) {
	p := mustPacket(t, []byte{0x81, 0x00, 0x81})
	if p.IsChecksumValid() {
		t.Error("3-byte packet must not validate")
	}
}

// ============================================================
// Polarity
// ============================================================

func TestPacket_ValidateSourceController(t *testing.T) {
	p := mustPacket(t, conf1Frame)
	resolved, src, ok := p.ValidateSource()
	if !ok || src != SourceController {
		t.Fatalf("ValidateSource = (%v, %v), want controller", src, ok)
	}
	if !resolved.Equal(&p) {
		t.Error("controller packets must come back unmodified")
	}
}

func TestPacket_ValidateSourceHeater(t *testing.T) {
	// The heater signals with inverted polarity: the capture is the
	// complement of the logical frame.
	logical := mustPacket(t, conditionsFrame)
	captured := logical.Inverted()
	resolved, src, ok := captured.ValidateSource()
	if !ok || src != SourceHeater {
		t.Fatalf("ValidateSource = (%v, %v), want heater", src, ok)
	}
	if !resolved.Equal(&logical) {
		t.Error("heater packets must be complemented back for parsing")
	}
}

func TestPacket_ValidateSourceRejectsCorrupt(t *testing.T) {
	data := make([]byte, len(conf1Frame))
	copy(data, conf1Frame)
	data[5] ^= 0x08 // flip one bit in byte 5
	p := mustPacket(t, data)
	if _, src, ok := p.ValidateSource(); ok || src != SourceUnknown {
		t.Errorf("corrupt frame validated as %v", src)
	}
}

func TestPacket_PolarityDual(t *testing.T) {
	// Decoding the complement under heater polarity yields the same
	// logical frame as decoding the original under controller polarity.
	orig := mustPacket(t, conditionsFrame)
	a, _, ok1 := orig.ValidateSource()
	b, _, ok2 := orig.Inverted().ValidateSource()
	if !ok1 || !ok2 {
		t.Fatal("both polarities should validate")
	}
	if !a.Equal(&b) {
		t.Errorf("polarity dual broken: % X vs % X", a.Bytes(), b.Bytes())
	}
}

// ============================================================
// Misc
// ============================================================

func TestNewPacket_RejectsOverlong(t *testing.T) {
	if _, err := NewPacket(make([]byte, 13)); err == nil {
		t.Error("13-byte packet should be rejected")
	}
}

func TestPacket_Reset(t *testing.T) {
	p := mustPacket(t, conf1Frame)
	p.Reset()
	if p.Len != 0 || p.Data != [FrameDataLength]byte{} {
		t.Error("Reset should zero the buffer and length")
	}
}
