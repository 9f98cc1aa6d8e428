// SPDX-License-Identifier: Apache-2.0
// Copyright (c) 2025 Kaz Walker, Thermoquad

package hwp

// Call is a user-level change request. Every field is optional; each
// specialized frame inspects only the fields it owns and produces an
// outbound packet when the request differs from the last observed state.
type Call struct {
	TargetTemperature *float64
	Mode              *ClimateMode
	FanMode           *FanMode
	ModeRestriction   *ModeRestriction

	DefrostStart         *float64 // d01
	DefrostEnd           *float64 // d02
	DefrostCycleMinutes  *float64 // d03
	MaxDefrostMinutes    *float64 // d04
	MinEcoDefrostMinutes *float64 // d05
	DefrostEcoMode       *DefrostEcoMode

	ReturnDiffCooling   *float64 // r04
	ShutdownDiffCooling *float64 // r05
	ReturnDiffHeating   *float64 // r06
	ShutdownDiffHeating *float64 // r07

	FlowMeter      *FlowMeterEnable // u01
	PulsesPerLiter *uint16          // u02

	// Errors accumulated while applying the call, e.g. an out-of-band
	// target temperature. Surfaced by the control façade.
	rejections []string
	// Informational notes, e.g. a frame that cannot act before its
	// first observation.
	warnings []string

	// Canonical state the call is validated against; attached by the bus
	// before the registry walk.
	data *HeatPumpData
}

// NewCall creates an empty change request.
func NewCall() *Call { return &Call{} }

// SetTargetTemperature requests a new target temperature for the active
// mode.
func (c *Call) SetTargetTemperature(v float64) *Call {
	c.TargetTemperature = &v
	return c
}

// SetMode requests a climate mode change.
func (c *Call) SetMode(m ClimateMode) *Call {
	c.Mode = &m
	return c
}

// SetFanMode requests a fan mode change.
func (c *Call) SetFanMode(m FanMode) *Call {
	c.FanMode = &m
	return c
}

// SetModeRestriction requests a mode restriction change.
func (c *Call) SetModeRestriction(r ModeRestriction) *Call {
	c.ModeRestriction = &r
	return c
}

// SetDefrostStart requests a new defrost start temperature (d01).
func (c *Call) SetDefrostStart(v float64) *Call {
	c.DefrostStart = &v
	return c
}

// SetDefrostEnd requests a new defrost end temperature (d02).
func (c *Call) SetDefrostEnd(v float64) *Call {
	c.DefrostEnd = &v
	return c
}

// SetDefrostCycleMinutes requests a new defrost cycle time (d03).
func (c *Call) SetDefrostCycleMinutes(v float64) *Call {
	c.DefrostCycleMinutes = &v
	return c
}

// SetMaxDefrostMinutes requests a new maximum defrost time (d04).
func (c *Call) SetMaxDefrostMinutes(v float64) *Call {
	c.MaxDefrostMinutes = &v
	return c
}

// SetMinEcoDefrostMinutes requests a new minimum economy defrost time
// (d05).
func (c *Call) SetMinEcoDefrostMinutes(v float64) *Call {
	c.MinEcoDefrostMinutes = &v
	return c
}

// SetDefrostEcoMode requests an economy defrost mode change (d06).
func (c *Call) SetDefrostEcoMode(m DefrostEcoMode) *Call {
	c.DefrostEcoMode = &m
	return c
}

// SetReturnDiffCooling requests a new cooling return differential (r04).
func (c *Call) SetReturnDiffCooling(v float64) *Call {
	c.ReturnDiffCooling = &v
	return c
}

// SetShutdownDiffCooling requests a new cooling shutdown differential
// (r05).
func (c *Call) SetShutdownDiffCooling(v float64) *Call {
	c.ShutdownDiffCooling = &v
	return c
}

// SetReturnDiffHeating requests a new heating return differential (r06).
func (c *Call) SetReturnDiffHeating(v float64) *Call {
	c.ReturnDiffHeating = &v
	return c
}

// SetShutdownDiffHeating requests a new heating shutdown differential
// (r07).
func (c *Call) SetShutdownDiffHeating(v float64) *Call {
	c.ShutdownDiffHeating = &v
	return c
}

// SetFlowMeter requests a flow meter enable change (u01).
func (c *Call) SetFlowMeter(v FlowMeterEnable) *Call {
	c.FlowMeter = &v
	return c
}

// SetPulsesPerLiter requests a new flow meter calibration (u02).
func (c *Call) SetPulsesPerLiter(v uint16) *Call {
	c.PulsesPerLiter = &v
	return c
}

// IsEmpty reports whether the call carries no requested change.
func (c *Call) IsEmpty() bool {
	return c.TargetTemperature == nil && c.Mode == nil && c.FanMode == nil &&
		c.ModeRestriction == nil && c.DefrostStart == nil && c.DefrostEnd == nil &&
		c.DefrostCycleMinutes == nil && c.MaxDefrostMinutes == nil &&
		c.MinEcoDefrostMinutes == nil && c.DefrostEcoMode == nil &&
		c.ReturnDiffCooling == nil && c.ShutdownDiffCooling == nil &&
		c.ReturnDiffHeating == nil && c.ShutdownDiffHeating == nil &&
		c.FlowMeter == nil && c.PulsesPerLiter == nil
}

// attachData binds the canonical state used for range validation.
func (c *Call) attachData(d *HeatPumpData) { c.data = d }

// reject records a validation failure against the call.
func (c *Call) reject(msg string) { c.rejections = append(c.rejections, msg) }

// warn records an informational note against the call.
func (c *Call) warn(msg string) { c.warnings = append(c.warnings, msg) }

// Rejections returns the validation failures accumulated while the call
// was applied.
func (c *Call) Rejections() []string { return c.rejections }

// Warnings returns the informational notes accumulated while the call
// was applied.
func (c *Call) Warnings() []string { return c.warnings }
