// SPDX-License-Identifier: Apache-2.0
// Copyright (c) 2025 Kaz Walker, Thermoquad

package hwp

import (
	"fmt"
	"time"
)

// Decoder implements the bit framer state machine. Pulses classified by
// the receive worker are appended LSB-first into the current byte; after
// eight bits the byte is pushed into the packet buffer. A frame is
// complete once its length is one of the two valid sizes and its checksum
// validates under either polarity.
type Decoder struct {
	packet      Packet
	currentByte uint8
	bitIndex    int
	started     bool
	finalized   bool
	source      Source
	frameTime   time.Time
	overflowed  bool
}

// NewDecoder creates a decoder in the idle state.
func NewDecoder() *Decoder {
	return &Decoder{}
}

// Reset returns the decoder to idle and zeroes the packet buffer.
func (d *Decoder) Reset() {
	d.packet.Reset()
	d.currentByte = 0
	d.bitIndex = 0
	d.started = false
	d.finalized = false
	d.overflowed = false
	d.source = SourceUnknown
}

// StartNewFrame resets the decoder and marks a frame in progress.
func (d *Decoder) StartNewFrame() {
	d.Reset()
	d.started = true
}

// IsStarted reports whether a frame is in progress.
func (d *Decoder) IsStarted() bool { return d.started }

// AppendBit accumulates one bit, LSB first. Overflow beyond the long
// frame length marks the frame invalid; it resynchronizes at the next
// preamble.
func (d *Decoder) AppendBit(long bool) {
	if !d.started {
		return
	}
	if long {
		d.currentByte |= 1 << d.bitIndex
	}
	d.bitIndex++
	if d.bitIndex == 8 {
		if d.packet.Len < FrameDataLength {
			d.packet.Data[d.packet.Len] = d.currentByte
		} else {
			d.overflowed = true
		}
		d.packet.Len++
		d.bitIndex = 0
		d.currentByte = 0
	}
}

// IsComplete reports whether the in-progress frame has a valid size and a
// checksum that validates under either polarity.
func (d *Decoder) IsComplete() bool {
	if !d.started || d.overflowed || !d.packet.IsSizeValid() {
		return false
	}
	_, _, ok := d.packet.ValidateSource()
	return ok
}

// Length returns the number of whole bytes accumulated so far.
func (d *Decoder) Length() int { return d.packet.Len }

// Packet returns the raw packet as captured, before polarity resolution.
func (d *Decoder) Packet() Packet { return d.packet }

// Finalize validates the current frame and resolves its source. On
// success it returns the packet in controller polarity (heater frames are
// complemented) together with the source. The decoder keeps its state;
// callers reset it once the frame has been dispatched.
func (d *Decoder) Finalize(now time.Time) (Packet, Source, bool) {
	d.source = SourceUnknown
	d.finalized = false
	if !d.started || d.overflowed || !d.packet.IsSizeValid() {
		return Packet{}, SourceUnknown, false
	}
	pkt, source, ok := d.packet.ValidateSource()
	if !ok {
		return Packet{}, SourceUnknown, false
	}
	d.source = source
	d.finalized = true
	d.frameTime = now
	return pkt, source, true
}

// Source returns the source resolved by the last successful Finalize.
func (d *Decoder) Source() Source { return d.source }

// FrameTime returns the receive time recorded by the last successful
// Finalize.
func (d *Decoder) FrameTime() time.Time { return d.frameTime }

// DebugString summarizes the decoder state for recovery logging.
func (d *Decoder) DebugString() string {
	status := "NOT STARTED"
	if d.started {
		status = "STARTED"
	}
	inv := d.packet.Inverted()
	return fmt.Sprintf("%s, len=%d bit=%d byte=0x%02X checksum=%02X inv=%02X",
		status, d.packet.Len, d.bitIndex, d.currentByte,
		d.packet.CalculateChecksum(), inv.CalculateChecksum())
}
