// SPDX-License-Identifier: Apache-2.0
// Copyright (c) 2025 Kaz Walker, Thermoquad

package hwp

import "time"

// Default setpoint bounds used until a 0x83 frame supplies the real ones.
const (
	DefaultTempMin = 15
	DefaultTempMax = 33
)

// ClockValue holds the raw counters from the 0xCF frame. The year/month/
// day bytes count powered-on elapsed units, not calendar dates, so they
// are surfaced verbatim and never converted to a wall-clock time.
type ClockValue struct {
	Year   uint8
	Month  uint8
	Day    uint8
	Hour   uint8
	Minute uint8
}

// HeatPumpData is the canonical aggregate of everything decoded from the
// bus. Every field is optional: nil means never observed. Only the
// receive worker mutates it; consumers read between polls without
// locking, which is safe because each field is an independently
// assignable pointer.
type HeatPumpData struct {
	Clock *ClockValue

	Mode             *ClimateMode
	Action           *ClimateAction
	ModeRestrictions *ModeRestriction
	FanMode          *FanMode

	// Defrost configuration (d01..d06).
	DefrostStart          *float64
	DefrostEnd            *float64
	DefrostCycleMinutes   *float64
	MaxDefrostMinutes     *float64
	MinEcoDefrostMinutes  *float64
	DefrostEcoModeSetting *DefrostEcoMode

	// Temperature probes (t01..t06). The suction probe's buffer position
	// is still undetermined, so no frame writes it.
	SuctionTemp *float64
	InletTemp   *float64
	OutletTemp  *float64
	CoilTemp    *float64
	AmbientTemp *float64
	ExhaustTemp *float64

	WaterFlow *bool

	TargetTemperature *float64
	MinTargetTemp     *float64
	MaxTargetTemp     *float64

	// Setpoints and differential tuning (r01..r11).
	SetpointCooling     *float64
	SetpointHeating     *float64
	SetpointAuto        *float64
	ReturnDiffCooling   *float64
	ShutdownDiffCooling *float64
	ReturnDiffHeating   *float64
	ShutdownDiffHeating *float64
	MinCoolSetpoint     *float64
	MaxCoolSetpoint     *float64
	MinHeatSetpoint     *float64
	MaxHeatSetpoint     *float64

	LastHeaterFrame     *time.Time
	LastControllerFrame *time.Time

	// Flow meter configuration (u01/u02).
	FlowMeter      *FlowMeterEnable
	PulsesPerLiter *uint16
}

// MinTarget returns the lowest accepted target temperature.
func (d *HeatPumpData) MinTarget() float64 {
	if d.MinTargetTemp != nil {
		return *d.MinTargetTemp
	}
	return DefaultTempMin
}

// MaxTarget returns the highest accepted target temperature.
func (d *HeatPumpData) MaxTarget() float64 {
	if d.MaxTargetTemp != nil {
		return *d.MaxTargetTemp
	}
	return DefaultTempMax
}

// IsTemperatureValid reports whether temp lies in the accepted target
// window.
func (d *HeatPumpData) IsTemperatureValid(temp float64) bool {
	return temp >= d.MinTarget() && temp <= d.MaxTarget()
}

// setMode records the climate mode and keeps the action invariant: an
// off mode forces an off action.
func (d *HeatPumpData) setMode(m ClimateMode) {
	d.Mode = &m
	if m == ClimateModeOff {
		a := ClimateActionOff
		d.Action = &a
	}
}

func floatPtr(v float64) *float64               { return &v }
func uint16Ptr(v uint16) *uint16                { return &v }
func boolPtr(v bool) *bool                      { return &v }
func fanModePtr(v FanMode) *FanMode             { return &v }
func restrictPtr(v ModeRestriction) *ModeRestriction { return &v }
func ecoModePtr(v DefrostEcoMode) *DefrostEcoMode    { return &v }
func flowMeterPtr(v FlowMeterEnable) *FlowMeterEnable { return &v }
