// SPDX-License-Identifier: Apache-2.0
// Copyright (c) 2025 Kaz Walker, Thermoquad

package hwp

import (
	"testing"
	"time"
)

func processBytes(t *testing.T, r *Registry, data *HeatPumpData, raw []byte, src Source) Frame {
	t.Helper()
	pkt := mustPacket(t, raw)
	frame, _ := r.Process(pkt, src, time.Now(), data)
	return frame
}

// ============================================================
// Registry dispatch
// ============================================================

func TestRegistry_SingletonStability(t *testing.T) {
	r := NewRegistry()
	data := &HeatPumpData{}
	first := processBytes(t, r, data, conditionsFrame, SourceHeater)
	second := processBytes(t, r, data, conditionsFrame, SourceHeater)
	if first != second {
		t.Error("registry must return the same instance for a type id")
	}
}

func TestRegistry_UnknownTypePassthrough(t *testing.T) {
	r := NewRegistry()
	data := &HeatPumpData{}
	before := len(r.Frames())

	raw := mustChecksummed([]byte{0xAB, 0x01, 0x02, 0x03, 0x04, 0x05, 0x06, 0x07, 0x08, 0x09, 0x0A, 0x00})
	frame := processBytes(t, r, data, raw, SourceHeater)

	if len(r.Frames()) != before+1 {
		t.Errorf("registry grew by %d entries, want 1", len(r.Frames())-before)
	}
	if frame.TypeString() != "TYPE_AB   " {
		t.Errorf("TypeString = %q", frame.TypeString())
	}
	// Canonical state untouched except the frame timestamp.
	if data.InletTemp != nil || data.Mode != nil || data.OutletTemp != nil {
		t.Error("unknown frames must not touch decoded state")
	}
	if data.LastHeaterFrame == nil {
		t.Error("heater frame timestamp should be stamped")
	}
	// A second unknown frame of the same kind reuses the entry.
	again := processBytes(t, r, data, raw, SourceHeater)
	if again != frame {
		t.Error("unknown type must be deduplicated after registration")
	}
}

func TestRegistry_SourceTimestamps(t *testing.T) {
	r := NewRegistry()
	data := &HeatPumpData{}
	processBytes(t, r, data, conf1Frame, SourceController)
	if data.LastControllerFrame == nil {
		t.Fatal("controller timestamp missing")
	}
	if data.LastHeaterFrame != nil {
		t.Error("heater timestamp should stay unset")
	}
}

// ============================================================
// Conditions frames
// ============================================================

func TestFrameConditions2_ParseTemperatures(t *testing.T) {
	r := NewRegistry()
	data := &HeatPumpData{}
	frame := processBytes(t, r, data, conditionsFrame, SourceHeater)
	if frame.TypeString() != "COND_2    " {
		t.Fatalf("dispatched to %q", frame.TypeString())
	}
	checks := []struct {
		name string
		got  *float64
		want float64
	}{
		{"outlet", data.OutletTemp, 28.5},
		{"exhaust", data.ExhaustTemp, 11.0},
		{"coil", data.CoilTemp, 17.5},
	}
	for _, c := range checks {
		if c.got == nil {
			t.Errorf("%s temperature not set", c.name)
		} else if *c.got != c.want {
			t.Errorf("%s = %.1f, want %.1f", c.name, *c.got, c.want)
		}
	}
}

func TestFrameConditions2B_ShortFrameOwnEntry(t *testing.T) {
	r := NewRegistry()
	data := &HeatPumpData{}
	short := mustChecksummed([]byte{0xD2, 0x10, 0x20, 0x30, 0x40, 0x50, 0x60, 0x70, 0x00})
	frame := processBytes(t, r, data, short, SourceHeater)
	if frame.TypeString() != "COND_2_B  " {
		t.Errorf("short 0xD2 dispatched to %q", frame.TypeString())
	}
	if data.OutletTemp != nil {
		t.Error("short 0xD2 parses no fields")
	}
}

func TestFrameConditions1_FlavorDispatch(t *testing.T) {
	r := NewRegistry()
	data := &HeatPumpData{}

	// Flavor A: discriminator byte 0x05, inlet temperature at the
	// second-to-last payload byte.
	flavorA := mustChecksummed([]byte{0xD1, 0x00, 0x05, 0x00, 0x00, 0x00, 0x00, 0x00, 0x00, 0x75, 0x00, 0x00})
	frame := processBytes(t, r, data, flavorA, SourceHeater)
	if frame.TypeString() != "COND_1    " {
		t.Fatalf("flavor A dispatched to %q", frame.TypeString())
	}
	if data.InletTemp == nil || *data.InletTemp != 28.5 {
		t.Error("flavor A inlet temperature not parsed")
	}

	// Flavor B: any other discriminator; carries the water-flow bit.
	flavorB := mustChecksummed([]byte{0xD1, 0x00, 0x00, 0x00, 0x02, 0x00, 0x00, 0x00, 0x00, 0x52, 0x00, 0x00})
	frame = processBytes(t, r, data, flavorB, SourceHeater)
	if frame.TypeString() != "COND_1B   " {
		t.Fatalf("flavor B dispatched to %q", frame.TypeString())
	}
	if data.WaterFlow == nil || !*data.WaterFlow {
		t.Error("flavor B water flow not parsed")
	}
	if data.InletTemp == nil || *data.InletTemp != 11.0 {
		t.Error("flavor B inlet temperature not parsed")
	}
}

// ============================================================
// Conf1: mode and setpoints
// ============================================================

func TestFrameConf1_ParseHeaterFrame(t *testing.T) {
	r := NewRegistry()
	data := &HeatPumpData{}
	processBytes(t, r, data, conf1Frame, SourceHeater)

	if data.Mode == nil || *data.Mode != ClimateModeHeat {
		t.Error("mode should decode as Heat")
	}
	if data.ModeRestrictions == nil || *data.ModeRestrictions != RestrictAny {
		t.Error("restriction should decode as Any")
	}
	if data.SetpointCooling == nil || *data.SetpointCooling != Temperature(0x06).Decode() {
		t.Error("cooling setpoint mismatch")
	}
	if data.SetpointHeating == nil || *data.SetpointHeating != Temperature(0x77).Decode() {
		t.Error("heating setpoint mismatch")
	}
	if data.SetpointAuto == nil || *data.SetpointAuto != Temperature(0x78).Decode() {
		t.Error("auto setpoint mismatch")
	}
	if data.TargetTemperature == nil || *data.TargetTemperature != Temperature(0x77).Decode() {
		t.Error("target should follow the heating setpoint in heat mode")
	}
}

func TestFrameConf1_ControllerFrameIgnored(t *testing.T) {
	r := NewRegistry()
	data := &HeatPumpData{}
	processBytes(t, r, data, conf1Frame, SourceController)
	if data.Mode != nil {
		t.Error("keypad copies of the config frame must not update state")
	}
}

func TestFrameConf1_ModeOffForcesActionOff(t *testing.T) {
	r := NewRegistry()
	data := &HeatPumpData{}
	raw := make([]byte, len(conf1Frame))
	copy(raw, conf1Frame)
	raw[2] = 0x16 // clear the power bit
	processBytes(t, r, data, mustChecksummed(raw), SourceHeater)
	if data.Mode == nil || *data.Mode != ClimateModeOff {
		t.Fatal("mode should decode as Off")
	}
	if data.Action == nil || *data.Action != ClimateActionOff {
		t.Error("off mode must force the action to Off")
	}
}

// ============================================================
// Control: minimality and diff-only
// ============================================================

func TestControl_UntouchedFrameReturnsNothing(t *testing.T) {
	r := NewRegistry()
	data := &HeatPumpData{}
	processBytes(t, r, data, conf1Frame, SourceHeater)

	// A fan-mode-only call owns nothing in the 0x81 frame.
	call := NewCall().SetFanMode(FanScheduled)
	call.attachData(data)
	conf1 := r.Frames()[0].(*FrameConf1)
	if _, ok := conf1.Control(call); ok {
		t.Error("0x81 must not respond to a fan-mode call")
	}
}

func TestControl_NoOpDeltaReturnsNothing(t *testing.T) {
	r := NewRegistry()
	data := &HeatPumpData{}
	processBytes(t, r, data, conf1Frame, SourceHeater)

	// Request the mode the frame already holds.
	call := NewCall().SetMode(ClimateModeHeat)
	call.attachData(data)
	if out := r.Control(call); len(out) != 0 {
		t.Errorf("no-op delta produced %d frames", len(out))
	}
}

func TestControl_WithoutDataWarns(t *testing.T) {
	r := NewRegistry()
	call := NewCall().SetMode(ClimateModeCool)
	if out := r.Control(call); len(out) != 0 {
		t.Error("control before the first observed frame must not transmit")
	}
	if len(call.Warnings()) == 0 {
		t.Error("control before the first observed frame should warn")
	}
	if len(call.Rejections()) != 0 {
		t.Error("a missing first observation is not a validation failure")
	}
}

func TestControl_ModeChangeProducesCommand(t *testing.T) {
	r := NewRegistry()
	data := &HeatPumpData{}
	processBytes(t, r, data, conf1Frame, SourceHeater)

	call := NewCall().SetMode(ClimateModeCool)
	call.attachData(data)
	out := r.Control(call)
	if len(out) != 1 {
		t.Fatalf("got %d outbound frames, want 1", len(out))
	}
	pkt := out[0]
	if pkt.Type() != FrameIDConf1 {
		t.Errorf("outbound type = 0x%02X, want 0x81", pkt.Type())
	}
	if !pkt.IsChecksumValid() {
		t.Error("outbound checksum not finalized")
	}
	if ModeByte(pkt.Data[2]).ActiveMode() != StateCoolingMode {
		t.Errorf("outbound mode byte = 0x%02X, want cooling", pkt.Data[2])
	}
}

func TestControl_TargetTemperatureOutOfBand(t *testing.T) {
	r := NewRegistry()
	data := &HeatPumpData{}
	processBytes(t, r, data, conf1Frame, SourceHeater)

	call := NewCall().SetTargetTemperature(95)
	call.attachData(data)
	out := r.Control(call)
	if len(out) != 0 {
		t.Error("out-of-band target must not transmit")
	}
	if len(call.Rejections()) != 1 {
		t.Fatalf("rejections = %v", call.Rejections())
	}
}

func TestControl_TargetTemperatureInHeatMode(t *testing.T) {
	r := NewRegistry()
	data := &HeatPumpData{}
	processBytes(t, r, data, conf1Frame, SourceHeater)

	call := NewCall().SetTargetTemperature(30)
	call.attachData(data)
	out := r.Control(call)
	if len(out) != 1 {
		t.Fatalf("got %d outbound frames, want 1", len(out))
	}
	if got := Temperature(out[0].Data[4]).Decode(); got != 30 {
		t.Errorf("heating setpoint byte decodes to %.1f, want 30.0", got)
	}
}

// ============================================================
// Conf2: fan mode
// ============================================================

func conf2Fixture() []byte {
	// Fan mode Low, defrost start -7C, end 13C, cycle 45min, max 8min.
	return mustChecksummed([]byte{
		0x82, 0xB1,
		0x00,
		uint8(EncodeTemperatureExtended(-7)),
		uint8(EncodeTemperature(13)),
		uint8(EncodeDecimalNumber(45)),
		uint8(EncodeDecimalNumber(8)),
		0x00, 0x00, 0x00, 0x00,
		0x00,
	})
}

func TestFrameConf2_Parse(t *testing.T) {
	r := NewRegistry()
	data := &HeatPumpData{}
	processBytes(t, r, data, conf2Fixture(), SourceHeater)
	if data.FanMode == nil || *data.FanMode != FanLow {
		t.Error("fan mode should decode as Low")
	}
	if data.DefrostStart == nil || *data.DefrostStart != -7 {
		t.Error("defrost start mismatch")
	}
	if data.DefrostEnd == nil || *data.DefrostEnd != 13 {
		t.Error("defrost end mismatch")
	}
	if data.DefrostCycleMinutes == nil || *data.DefrostCycleMinutes != 45 {
		t.Error("defrost cycle mismatch")
	}
	if data.MaxDefrostMinutes == nil || *data.MaxDefrostMinutes != 8 {
		t.Error("max defrost mismatch")
	}
}

func TestControl_FanModeLowToScheduled(t *testing.T) {
	r := NewRegistry()
	data := &HeatPumpData{}
	processBytes(t, r, data, conf2Fixture(), SourceHeater)

	call := NewCall().SetFanMode(FanScheduled)
	call.attachData(data)
	out := r.Control(call)
	if len(out) != 1 {
		t.Fatalf("got %d outbound frames, want 1", len(out))
	}
	pkt := out[0]
	if pkt.Type() != FrameIDConf2 {
		t.Errorf("outbound type = 0x%02X, want 0x82", pkt.Type())
	}
	if pkt.Data[2]>>4 != 3 {
		t.Errorf("fan nibble = %d, want 3 (Scheduled)", pkt.Data[2]>>4)
	}
	if !pkt.IsChecksumValid() {
		t.Error("outbound checksum not finalized")
	}
}

// ============================================================
// Conf3: setpoint limits
// ============================================================

func TestFrameConf3_ParseTargetWindow(t *testing.T) {
	r := NewRegistry()
	data := &HeatPumpData{}
	processBytes(t, r, data, conf1Frame, SourceHeater) // heat mode

	raw := mustChecksummed([]byte{
		0x83, 0xB1, 0x00, 0x00, 0x00, 0x00, 0x00,
		uint8(EncodeTemperatureExtended(8)),  // r08 min cool
		uint8(EncodeTemperatureExtended(28)), // r09 max cool
		uint8(EncodeTemperatureExtended(15)), // r10 min heat
		uint8(EncodeTemperatureExtended(32)), // r11 max heat
		0x00,
	})
	processBytes(t, r, data, raw, SourceHeater)

	if data.MinTargetTemp == nil || *data.MinTargetTemp != 15 {
		t.Error("heat mode window must use the heating minimum")
	}
	if data.MaxTargetTemp == nil || *data.MaxTargetTemp != 32 {
		t.Error("heat mode window must use the heating maximum")
	}
	if !data.IsTemperatureValid(20) || data.IsTemperatureValid(40) {
		t.Error("IsTemperatureValid should follow the decoded window")
	}
}

// ============================================================
// Conf5: flow meter
// ============================================================

func conf5Fixture() []byte {
	enc := EncodeLargeInteger(4000)
	return mustChecksummed([]byte{
		0x85, 0xB1, 0x04, uint8(EncodeDecimalNumber(10)),
		0x00, 0x00, 0x00, 0x00, 0x00,
		enc[0], enc[1],
		0x00,
	})
}

func TestFrameConf5_Parse(t *testing.T) {
	r := NewRegistry()
	data := &HeatPumpData{}
	processBytes(t, r, data, conf5Fixture(), SourceHeater)
	if data.FlowMeter == nil || *data.FlowMeter != FlowMeterEnabled {
		t.Error("flow meter should decode as enabled")
	}
	if data.DefrostEcoModeSetting == nil || *data.DefrostEcoModeSetting != DefrostNormal {
		t.Error("defrost eco mode should decode as normal")
	}
	if data.PulsesPerLiter == nil || *data.PulsesPerLiter != 4000 {
		t.Error("pulses per liter mismatch")
	}
	if data.MinEcoDefrostMinutes == nil || *data.MinEcoDefrostMinutes != 10 {
		t.Error("min eco defrost mismatch")
	}
}

func TestControl_PulsesPerLiter(t *testing.T) {
	r := NewRegistry()
	data := &HeatPumpData{}
	processBytes(t, r, data, conf5Fixture(), SourceHeater)

	call := NewCall().SetPulsesPerLiter(2500)
	call.attachData(data)
	out := r.Control(call)
	if len(out) != 1 {
		t.Fatalf("got %d outbound frames, want 1", len(out))
	}
	got := LargeInteger{out[0].Data[9], out[0].Data[10]}.Decode()
	if got != 2500 {
		t.Errorf("pulses per liter on the wire = %d, want 2500", got)
	}
}

// ============================================================
// Clock
// ============================================================

func TestFrameClock_ParseVerbatim(t *testing.T) {
	r := NewRegistry()
	data := &HeatPumpData{}
	raw := mustChecksummed([]byte{0xCF, 0x00, 0x00, 0x00, 0x02, 0x07, 0x15, 0x0B, 0x2A, 0x00, 0x00, 0x00})
	processBytes(t, r, data, raw, SourceHeater)
	if data.Clock == nil {
		t.Fatal("clock not parsed")
	}
	if data.Clock.Year != 2 || data.Clock.Month != 7 || data.Clock.Day != 21 ||
		data.Clock.Hour != 11 || data.Clock.Minute != 42 {
		t.Errorf("clock = %+v", *data.Clock)
	}
}

// ============================================================
// Diff bookkeeping
// ============================================================

func TestFrame_ChangeDetection(t *testing.T) {
	r := NewRegistry()
	data := &HeatPumpData{}
	_, changed := r.Process(mustPacket(t, conditionsFrame), SourceHeater, time.Now(), data)
	if !changed {
		t.Error("first frame of a kind counts as changed")
	}
	_, changed = r.Process(mustPacket(t, conditionsFrame), SourceHeater, time.Now(), data)
	if changed {
		t.Error("identical payload must not count as changed")
	}
	raw := make([]byte, len(conditionsFrame))
	copy(raw, conditionsFrame)
	raw[4] = uint8(EncodeTemperature(29))
	_, changed = r.Process(mustPacket(t, mustChecksummed(raw)), SourceHeater, time.Now(), data)
	if !changed {
		t.Error("new outlet temperature must count as changed")
	}
}

func TestFrame_FormatShowsValues(t *testing.T) {
	r := NewRegistry()
	data := &HeatPumpData{}
	frame := processBytes(t, r, data, conditionsFrame, SourceHeater)
	s := frame.Format(true)
	if s == "N/A" || len(s) == 0 {
		t.Errorf("Format = %q", s)
	}
}

// ============================================================
// Traits
// ============================================================

func TestTraits_RestrictionGatesModes(t *testing.T) {
	r := NewRegistry()
	data := &HeatPumpData{}

	raw := make([]byte, len(conf1Frame))
	copy(raw, conf1Frame)
	raw[2] = 0x19 // power, heating-only restriction, heat
	processBytes(t, r, data, mustChecksummed(raw), SourceHeater)

	traits := r.Traits(data)
	hasCool := false
	hasHeat := false
	for _, m := range traits.SupportedModes {
		switch m {
		case ClimateModeCool:
			hasCool = true
		case ClimateModeHeat:
			hasHeat = true
		}
	}
	if hasCool || !hasHeat {
		t.Errorf("heating-only restriction gave modes %v", traits.SupportedModes)
	}
	if len(traits.SupportedFanModes) == 0 {
		t.Error("fan modes missing from traits")
	}
}
