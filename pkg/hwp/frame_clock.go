// SPDX-License-Identifier: Apache-2.0
// Copyright (c) 2025 Kaz Walker, Thermoquad

package hwp

import "fmt"

// Clock is the payload of the 0xCF frame. The year/month/day bytes appear
// to count powered-on elapsed units rather than calendar dates, so the
// values are carried verbatim and never folded into a wall-clock time.
type Clock struct {
	ID        uint8
	Reserved1 Bits
	Reserved2 Bits
	Year      uint8
	Month     uint8
	Day       uint8
	Hour      uint8
	Minute    uint8
	Reserved3 Bits
	Reserved4 Bits
}

func clockFromPacket(p *Packet) Clock {
	return Clock{
		ID:        p.Data[1],
		Reserved1: Bits(p.Data[2]),
		Reserved2: Bits(p.Data[3]),
		Year:      p.Data[4],
		Month:     p.Data[5],
		Day:       p.Data[6],
		Hour:      p.Data[7],
		Minute:    p.Data[8],
		Reserved3: Bits(p.Data[9]),
		Reserved4: Bits(p.Data[10]),
	}
}

// FormatValue renders the counters in clock notation.
func (c Clock) FormatValue() string {
	return fmt.Sprintf("%04d/%02d/%02d - %02d:%02d", c.Year, c.Month, c.Day, c.Hour, c.Minute)
}

// FrameClock decodes the elapsed-time counter frame (0xCF).
type FrameClock struct {
	frameState[Clock]
}

// NewFrameClock creates the registry entry for the 0xCF frame.
func NewFrameClock() *FrameClock {
	f := &FrameClock{}
	f.decode = clockFromPacket
	return f
}

// TypeString returns the fixed-width catalog name.
func (f *FrameClock) TypeString() string { return "CLOCK     " }

// Matches tests the frame type id.
func (f *FrameClock) Matches(p *Packet) bool { return p.Type() == FrameIDClock }

// Parse stores the raw counters into the canonical state.
func (f *FrameClock) Parse(d *HeatPumpData) {
	if f.data == nil {
		return
	}
	d.Clock = &ClockValue{
		Year:   f.data.Year,
		Month:  f.data.Month,
		Day:    f.data.Day,
		Hour:   f.data.Hour,
		Minute: f.data.Minute,
	}
}

// Format renders the counters, highlighting digits that changed.
func (f *FrameClock) Format(noDiff bool) string {
	val, ref, ok := f.payload(noDiff)
	if !ok {
		return "N/A"
	}
	return f.format(val, ref)
}

// FormatPrev renders the previous payload without diffing.
func (f *FrameClock) FormatPrev() string {
	if f.prevD == nil {
		return "N/A"
	}
	return f.format(*f.prevD, *f.prevD)
}

func (f *FrameClock) format(val, ref Clock) string {
	cur := val.FormatValue()
	prev := ref.FormatValue()
	if cur == prev {
		return cur
	}
	out := make([]byte, 0, len(cur)+16)
	for i := 0; i < len(cur); i++ {
		if i < len(prev) && cur[i] != prev[i] {
			out = append(out, []byte(csInvert)...)
			out = append(out, cur[i])
			out = append(out, []byte(csInvertReset)...)
		} else {
			out = append(out, cur[i])
		}
	}
	return string(out)
}
