// SPDX-License-Identifier: Apache-2.0
// Copyright (c) 2025 Kaz Walker, Thermoquad

package hwp

import (
	"math"
	"testing"
)

// ============================================================
// Temperature (standard encoding)
// ============================================================

func TestTemperature_DecodeKnownValues(t *testing.T) {
	tests := []struct {
		name     string
		raw      uint8
		expected float64
	}{
		{"outlet 28.5C", 0x75, 28.5},
		{"exhaust 11.0C", 0x52, 11.0},
		{"coil 17.5C", 0x5F, 17.5},
		{"zero", 0x00, 0.0},
		{"half degree only", 0x01, 0.5},
		{"offset only", 0x40, 2.0},
		{"negative 1.0C", 0x82, -1.0},
		{"negative 3.5C", 0xC3, -3.5},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := Temperature(tt.raw).Decode()
			if got != tt.expected {
				t.Errorf("Decode(0x%02X) = %.1f, want %.1f", tt.raw, got, tt.expected)
			}
		})
	}
}

func TestTemperature_EncodeRoundTrip(t *testing.T) {
	for v := -33.0; v <= 33.0; v += 0.5 {
		enc := EncodeTemperature(v)
		got := enc.Decode()
		if math.Abs(got-v) > 0.01 {
			t.Errorf("round trip %.1f -> 0x%02X -> %.1f", v, uint8(enc), got)
		}
	}
}

func TestTemperature_HalfDegreeBit(t *testing.T) {
	enc := EncodeTemperature(28.5)
	if uint8(enc)&0x01 == 0 {
		t.Errorf("28.5 should set the half-degree bit, got 0x%02X", uint8(enc))
	}
	enc = EncodeTemperature(28.0)
	if uint8(enc)&0x01 != 0 {
		t.Errorf("28.0 should clear the half-degree bit, got 0x%02X", uint8(enc))
	}
}

// ============================================================
// TemperatureExtended (biased encoding)
// ============================================================

func TestTemperatureExtended_DecodeKnownValues(t *testing.T) {
	tests := []struct {
		name     string
		raw      uint8
		expected float64
	}{
		{"bias origin", 0x00, -30.0},
		{"half above bias", 0x01, -29.5},
		{"zero degrees", uint8(30) << 1, 0.0},
		{"five degrees", uint8(35) << 1, 5.0},
		{"five and a half", uint8(35)<<1 | 1, 5.5},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := TemperatureExtended(tt.raw).Decode()
			if got != tt.expected {
				t.Errorf("Decode(0x%02X) = %.1f, want %.1f", tt.raw, got, tt.expected)
			}
		})
	}
}

func TestTemperatureExtended_EncodeRoundTrip(t *testing.T) {
	for v := -30.0; v <= 30.0; v += 0.5 {
		enc := EncodeTemperatureExtended(v)
		got := enc.Decode()
		if math.Abs(got-v) > 0.01 {
			t.Errorf("round trip %.1f -> 0x%02X -> %.1f", v, uint8(enc), got)
		}
	}
}

func TestTemperatureExtended_HalfDegreeBit(t *testing.T) {
	enc := EncodeTemperatureExtended(3.5)
	if uint8(enc)&0x01 == 0 {
		t.Errorf("3.5 should set the half-degree bit, got 0x%02X", uint8(enc))
	}
}

// ============================================================
// DecimalNumber
// ============================================================

func TestDecimalNumber_RoundTrip(t *testing.T) {
	tests := []float64{0, 0.5, 1, 12.5, 45, 63}
	for _, v := range tests {
		enc := EncodeDecimalNumber(v)
		if got := enc.Decode(); got != v {
			t.Errorf("round trip %.1f -> 0x%02X -> %.1f", v, uint8(enc), got)
		}
	}
}

func TestDecimalNumber_NegativeSignAppliesToInteger(t *testing.T) {
	// The sign bit negates the integer part only; the half bit still
	// adds. -3 encodes and decodes cleanly, -3.5 decodes as -3+0.5.
	enc := EncodeDecimalNumber(-3)
	if got := enc.Decode(); got != -3 {
		t.Errorf("Decode = %.1f, want -3.0", got)
	}
	raw := DecimalNumber(0x80 | 3<<1 | 1)
	if got := raw.Decode(); got != -2.5 {
		t.Errorf("Decode(0x%02X) = %.1f, want -2.5", uint8(raw), got)
	}
}

// ============================================================
// LargeInteger
// ============================================================

func TestLargeInteger_ByteSwap(t *testing.T) {
	enc := EncodeLargeInteger(4000)
	if enc[0] != 0x0F || enc[1] != 0xA0 {
		t.Errorf("EncodeLargeInteger(4000) = {0x%02X, 0x%02X}, want {0x0F, 0xA0}", enc[0], enc[1])
	}
	if got := enc.Decode(); got != 4000 {
		t.Errorf("Decode = %d, want 4000", got)
	}
}

// ============================================================
// ModeByte
// ============================================================

func TestModeByte_DecodeScenarioFrame(t *testing.T) {
	// 0x17: power on, unknown, enable-auto, heat.
	m := ModeByte(0x17)
	if !m.Power() {
		t.Error("expected power on")
	}
	if m.ActiveMode() != StateHeatingMode {
		t.Errorf("ActiveMode = %v, want heating", m.ActiveMode())
	}
	if m.Restriction() != RestrictAny {
		t.Errorf("Restriction = %v, want Any", m.Restriction())
	}
}

func TestModeByte_ActiveModePriority(t *testing.T) {
	tests := []struct {
		name     string
		raw      uint8
		expected ActiveMode
	}{
		{"power off wins", 0x30, StateOff},
		{"auto beats heat", 0x31, StateAutoMode},
		{"heat", 0x11, StateHeatingMode},
		{"cool is the default", 0x01, StateCoolingMode},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := ModeByte(tt.raw).ActiveMode(); got != tt.expected {
				t.Errorf("ActiveMode(0x%02X) = %v, want %v", tt.raw, got, tt.expected)
			}
		})
	}
}

func TestModeByte_SetClimateMode(t *testing.T) {
	var m ModeByte
	m.SetClimateMode(ClimateModeHeat)
	if !m.Power() || m.ActiveMode() != StateHeatingMode {
		t.Errorf("after SetClimateMode(Heat): 0x%02X", uint8(m))
	}
	m.SetClimateMode(ClimateModeOff)
	if m.Power() {
		t.Errorf("after SetClimateMode(Off): 0x%02X", uint8(m))
	}
}

func TestModeByte_RestrictionRoundTrip(t *testing.T) {
	for _, r := range []ModeRestriction{RestrictCooling, RestrictAny, RestrictHeating} {
		var m ModeByte
		m.SetRestriction(r)
		if got := m.Restriction(); got != r {
			t.Errorf("restriction round trip %v -> %v", r, got)
		}
	}
}

// ============================================================
// FanModeByte / Conf5Flags / FlowByte
// ============================================================

func TestFanModeByte_Nibble(t *testing.T) {
	var f FanModeByte
	f.SetFanMode(FanScheduled)
	if uint8(f)>>4 != 3 {
		t.Errorf("SetFanMode(Scheduled) = 0x%02X, want high nibble 3", uint8(f))
	}
	if f.FanMode() != FanScheduled {
		t.Errorf("FanMode = %v, want Scheduled", f.FanMode())
	}
	// Low nibble is preserved.
	f = FanModeByte(0x0A)
	f.SetFanMode(FanHigh)
	if uint8(f) != 0x1A {
		t.Errorf("low nibble not preserved: 0x%02X", uint8(f))
	}
}

func TestFanModeByte_OutOfRange(t *testing.T) {
	f := FanModeByte(0xF0)
	if f.FanMode() != FanLow {
		t.Errorf("out-of-range nibble should decode as Low, got %v", f.FanMode())
	}
}

func TestConf5Flags_Bits(t *testing.T) {
	var c Conf5Flags
	c.SetFlowMeter(FlowMeterEnabled)
	if uint8(c) != 0x04 {
		t.Errorf("flow meter bit = 0x%02X, want 0x04", uint8(c))
	}
	c.SetDefrostEco(DefrostEco)
	if uint8(c) != 0x44 {
		t.Errorf("eco bit = 0x%02X, want 0x44", uint8(c))
	}
	if c.FlowMeter() != FlowMeterEnabled || c.DefrostEco() != DefrostEco {
		t.Error("flag decode mismatch")
	}
	c.SetFlowMeter(FlowMeterDisabled)
	if c.FlowMeter() != FlowMeterDisabled {
		t.Error("flow meter should clear")
	}
}

func TestFlowByte_WaterFlowing(t *testing.T) {
	if !(FlowByte(0x02)).WaterFlowing() {
		t.Error("bit 1 set should report flowing")
	}
	if (FlowByte(0x01)).WaterFlowing() {
		t.Error("bit 1 clear should not report flowing")
	}
}
