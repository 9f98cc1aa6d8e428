// SPDX-License-Identifier: Apache-2.0
// Copyright (c) 2025 Kaz Walker, Thermoquad

package hwp

import (
	"fmt"
	"strings"
	"time"
)

// Diff-highlighting helpers for frame logging. Changed fields render in
// inverted video so a scrolling log makes byte-level changes visible at a
// glance.

const (
	csInvert      = "\033[7m"
	csInvertReset = "\033[27m"
)

// FormatDiff renders val, highlighted when it differs from ref.
func FormatDiff(val, ref string) string {
	if val == ref {
		return val
	}
	return csInvert + val + csInvertReset
}

// FormatHexDiff renders a byte in hex, highlighted when it differs from
// the reference byte.
func FormatHexDiff(val, ref uint8) string {
	if val == ref {
		return fmt.Sprintf("%02X", val)
	}
	return fmt.Sprintf("%s%02X%s", csInvert, val, csInvertReset)
}

// FormatBitsDiff renders a byte MSB-first as bits, inverting runs of bits
// that differ from the reference byte.
func FormatBitsDiff(val, ref uint8) string {
	var b strings.Builder
	inverted := false
	for i := 7; i >= 0; i-- {
		bit := val >> i & 1
		differs := bit != ref>>i&1
		if differs && !inverted {
			b.WriteString(csInvert)
			inverted = true
		} else if !differs && inverted {
			b.WriteString(csInvertReset)
			inverted = false
		}
		b.WriteByte('0' + bit)
	}
	if inverted {
		b.WriteString(csInvertReset)
	}
	return b.String()
}

// HeaderFormat renders the fixed-width frame header used by every frame
// log line: prefix, type byte, payload bytes (diffed against prev),
// checksum, type and source labels, and the frame age.
func HeaderFormat(prefix string, pkt Packet, prev *Packet, typeString string, source Source, age time.Duration) string {
	if len(prefix) > 5 {
		prefix = prefix[:5]
	} else {
		prefix += strings.Repeat(" ", 5-len(prefix))
	}
	ref := pkt
	if prev != nil {
		ref = *prev
	}

	var b strings.Builder
	b.WriteString(prefix)
	b.WriteString(" [")
	b.WriteString(FormatHexDiff(pkt.Data[0], ref.Data[0]))
	b.WriteString("][")
	for i := 1; i < FrameDataLength-1; i++ {
		if i < pkt.Len-1 {
			b.WriteString(FormatHexDiff(pkt.Data[i], ref.Data[i]))
		} else {
			b.WriteString("  ")
		}
		if i < FrameDataLength-2 {
			b.WriteString(" ")
		}
	}
	checksum := uint8(0)
	if pkt.Len > 0 {
		checksum = pkt.Data[pkt.Len-1]
	}
	fmt.Fprintf(&b, "][%02X] %s(%s) (%4.1fs) ", checksum, typeString, source, age.Seconds())
	return b.String()
}

// PulseLog accumulates formatted pulses and renders them compressed:
// eight consecutive bits collapse to "B", twelve bytes to "F".
type PulseLog struct {
	pulses []string
}

// Append records one pulse.
func (l *PulseLog) Append(p *Pulse) {
	l.pulses = append(l.pulses, p.Format())
}

// Reset discards the accumulated pulses.
func (l *PulseLog) Reset() { l.pulses = l.pulses[:0] }

// Len returns the number of recorded pulses.
func (l *PulseLog) Len() int { return len(l.pulses) }

// String renders the compressed pulse trace.
func (l *PulseLog) String() string {
	var b strings.Builder
	b.WriteString("PULSES:")
	bits, bytes, frames := 0, 0, 0
	flush := func() {
		b.WriteString(strings.Repeat("F", frames))
		b.WriteString(strings.Repeat("B", bytes))
		b.WriteString(strings.Repeat(".", bits))
		bits, bytes, frames = 0, 0, 0
	}
	for _, s := range l.pulses {
		if s == "b" {
			bits++
			if bits == 8 {
				bytes++
				bits = 0
			}
			if bytes == FrameDataLength {
				frames++
				bytes = 0
			}
			continue
		}
		flush()
		b.WriteString(" ")
		b.WriteString(s)
	}
	flush()
	b.WriteString(" END.")
	return b.String()
}
