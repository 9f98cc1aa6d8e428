// SPDX-License-Identifier: Apache-2.0
// Copyright (c) 2025 Kaz Walker, Thermoquad

package hwp

// Heater status dictionary. The heat pump reports its condition as a raw
// status byte on the keypad display; this table maps the byte to the
// vendor's code, a description and the suggested action. No frame kind is
// known to carry the byte yet (the keypad likely reads it from a status
// frame that has not been captured), so the dictionary is consulted only
// through LookupError.

// ErrorSource classifies a status entry.
type ErrorSource int

// Error sources.
const (
	ErrorSourceHardware ErrorSource = iota
	ErrorSourceOperational
)

// String implements fmt.Stringer.
func (s ErrorSource) String() string {
	if s == ErrorSourceHardware {
		return "Hardware Issue"
	}
	return "Operational Problem"
}

// ErrorEntry is one row of the heater status dictionary.
type ErrorEntry struct {
	Value       uint8
	Code        string
	Source      ErrorSource
	Description string
	Solution    string
}

// String renders the entry in display form.
func (e ErrorEntry) String() string {
	return "Code: " + e.Code + "\nDescription: " + e.Description +
		"\nSolution: " + e.Solution + "\nSource: " + e.Source.String()
}

// errorCodes is the static status dictionary, in vendor order.
var errorCodes = []ErrorEntry{
	{0, "S00", ErrorSourceOperational, "Operational", ""},
	{1, "P01", ErrorSourceHardware, "Water inlet sensor malfunction", "Check or replace the sensor."},
	{2, "P02", ErrorSourceHardware, "Water outlet sensor malfunction", "Check or replace the sensor."},
	{5, "P05", ErrorSourceHardware, "Defrost sensor malfunction", "Check or replace the sensor."},
	{4, "P04", ErrorSourceHardware, "Outside temperature sensor malfunction", "Check or replace the sensor."},
	{6, "E06", ErrorSourceOperational, "Large temperature difference between inlet and outlet water",
		"Check the water flow or system obstruction."},
	{7, "E07", ErrorSourceOperational, "Antifreeze protection in cooling mode",
		"Check the water flow or outlet water temperature sensor."},
	{19, "E19", ErrorSourceOperational, "Level 1 antifreeze protection",
		"Ambient or inlet water temperature is too low."},
	{29, "E29", ErrorSourceOperational, "Level 2 antifreeze protection",
		"Ambient or inlet water temperature is even lower."},
	{1, "E01", ErrorSourceOperational, "High pressure protection",
		"Check the high pressure switch and refrigerant circuit pressure.\nCheck the water or air flow.\nEnsure the flow controller is working properly.\nCheck the inlet/outlet water valves.\nCheck the bypass setting."},
	{2, "E02", ErrorSourceOperational, "Low pressure protection",
		"Check the low pressure switch and refrigerant circuit pressure for leaks.\nClean the evaporator surface.\nCheck the fan speed.\nEnsure air can circulate freely through the evaporator."},
	{3, "E03", ErrorSourceOperational, "Flow detector malfunction",
		"Check the water flow.\nCheck the filtration pump and flow detector for faults."},
	{8, "EE8", ErrorSourceOperational, "Communication problem", "Check the cable connections."},
}

// waitingForData is the entry reported before any status byte was seen.
var waitingForData = ErrorEntry{0, "S99", ErrorSourceOperational, "Waiting For Data", ""}

// LookupError maps a raw status byte to its dictionary entry. Unknown
// bytes fall back to "Operational".
func LookupError(value uint8) ErrorEntry {
	for _, e := range errorCodes {
		if e.Value == value {
			return e
		}
	}
	return errorCodes[0]
}

// ErrorCatalog returns the full dictionary, in vendor order.
func ErrorCatalog() []ErrorEntry { return errorCodes }

// HeaterStatus tracks the current dictionary entry for a bus.
type HeaterStatus struct {
	entry ErrorEntry
	seen  bool
}

// NewHeaterStatus creates a status tracker reporting "Waiting For Data".
func NewHeaterStatus() *HeaterStatus {
	return &HeaterStatus{entry: waitingForData}
}

// Update resolves the entry for a newly observed status byte.
func (h *HeaterStatus) Update(value uint8) {
	h.entry = LookupError(value)
	h.seen = true
}

// Code returns the vendor code of the current entry.
func (h *HeaterStatus) Code() string { return h.entry.Code }

// Description returns the description of the current entry.
func (h *HeaterStatus) Description() string { return h.entry.Description }

// Solution returns the suggested action of the current entry.
func (h *HeaterStatus) Solution() string { return h.entry.Solution }

// Source returns the source classification of the current entry.
func (h *HeaterStatus) Source() ErrorSource { return h.entry.Source }

// String renders the current entry in display form.
func (h *HeaterStatus) String() string { return h.entry.String() }
