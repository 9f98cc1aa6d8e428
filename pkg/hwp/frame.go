// SPDX-License-Identifier: Apache-2.0
// Copyright (c) 2025 Kaz Walker, Thermoquad

package hwp

import (
	"fmt"
	"strings"
	"time"
)

// Frame is one entry in the registry: a singleton holding the last seen
// and previous payloads for its frame kind.
//
// Lifecycle per received frame: Matches selects the entry, Stage copies
// the decoded packet in (previous data is retained for diffing), Parse
// folds the fields into the canonical state, and Transfer promotes the
// staged data to "previous". Control runs outside that cycle, on the
// caller's thread, and derives an outbound packet from the latest
// observed payload.
type Frame interface {
	// TypeString returns the fixed-width catalog name.
	TypeString() string
	// Matches tests whether a decoded base packet belongs to this entry.
	Matches(p *Packet) bool
	// Stage copies a decoded packet into the entry as the staged data.
	Stage(p Packet, src Source, at time.Time)
	// Parse folds the staged payload into the canonical state.
	Parse(d *HeatPumpData)
	// Control derives an outbound packet from the call, or reports false
	// when the call touches nothing this frame owns or changes nothing.
	Control(call *Call) (Packet, bool)
	// Transfer promotes the staged data to the previous payload.
	Transfer()
	// IsChanged reports whether the staged data differs from the
	// previous payload.
	IsChanged() bool
	// HasPreviousData reports whether both payload generations exist.
	HasPreviousData() bool
	// Format renders the staged payload field by field; unless noDiff is
	// set, differences against the previous payload are highlighted.
	Format(noDiff bool) string
	// FormatPrev renders the previous payload without diffing.
	FormatPrev() string
	// Traits contributes to the outward-facing capability set.
	Traits(t *Traits, d *HeatPumpData)
	// Source returns the origin of the staged packet.
	Source() Source
	// FrameTime returns when the staged packet was received.
	FrameTime() time.Time
	// RawPacket returns the staged packet.
	RawPacket() Packet
	// PrevRawPacket returns the previously staged packet, if any.
	PrevRawPacket() (Packet, bool)
	// FrameAge returns the interval between the two latest receptions.
	FrameAge() time.Duration
}

// baseFrame carries the per-entry bookkeeping shared by every frame kind.
type baseFrame struct {
	packet    Packet
	prev      *Packet
	source    Source
	frameTime time.Time
	frameAge  time.Duration
}

func (f *baseFrame) stageBase(p Packet, src Source, at time.Time) {
	if f.packet.Len > 0 {
		saved := f.packet
		f.prev = &saved
		f.frameAge = at.Sub(f.frameTime)
	}
	f.packet = p
	f.source = src
	f.frameTime = at
}

// Source returns the origin of the staged packet.
func (f *baseFrame) Source() Source { return f.source }

// FrameTime returns when the staged packet was received.
func (f *baseFrame) FrameTime() time.Time { return f.frameTime }

// FrameAge returns the interval between the two latest receptions.
func (f *baseFrame) FrameAge() time.Duration { return f.frameAge }

// RawPacket returns the staged packet.
func (f *baseFrame) RawPacket() Packet { return f.packet }

// PrevRawPacket returns the previously staged packet, if any.
func (f *baseFrame) PrevRawPacket() (Packet, bool) {
	if f.prev == nil {
		return Packet{}, false
	}
	return *f.prev, true
}

// Control is the default: the frame owns no controllable field.
func (f *baseFrame) Control(call *Call) (Packet, bool) { return Packet{}, false }

// Parse is the default: the frame contributes nothing to the canonical
// state.
func (f *baseFrame) Parse(d *HeatPumpData) {}

// Traits is the default: the frame contributes no capabilities.
func (f *baseFrame) Traits(t *Traits, d *HeatPumpData) {}

// frameState adds the typed staged/previous payload pair on top of
// baseFrame. T is the decoded payload struct; decode extracts it from a
// raw packet.
type frameState[T comparable] struct {
	baseFrame
	decode func(p *Packet) T
	data   *T
	prevD  *T
}

// Stage copies a decoded packet into the entry as the staged data.
func (f *frameState[T]) Stage(p Packet, src Source, at time.Time) {
	f.stageBase(p, src, at)
	v := f.decode(&p)
	f.data = &v
}

// IsChanged reports whether the staged data differs from the previous
// payload. Entries that have not yet seen both generations count as
// changed.
func (f *frameState[T]) IsChanged() bool {
	return f.data == nil || f.prevD == nil || *f.data != *f.prevD
}

// HasPreviousData reports whether both payload generations exist.
func (f *frameState[T]) HasPreviousData() bool { return f.data != nil && f.prevD != nil }

// Transfer promotes the staged data to the previous payload.
func (f *frameState[T]) Transfer() {
	if f.data != nil {
		v := *f.data
		f.prevD = &v
	}
}

// payload returns the staged data together with the payload used as the
// diff reference.
func (f *frameState[T]) payload(noDiff bool) (val T, ref T, ok bool) {
	if f.data == nil {
		return val, ref, false
	}
	val = *f.data
	ref = val
	if !noDiff && f.prevD != nil {
		ref = *f.prevD
	}
	return val, ref, true
}

// BaseFrame is the pass-through entry registered on the fly for unknown
// type ids. It preserves the payload verbatim and renders raw bit
// differences byte by byte.
type BaseFrame struct {
	baseFrame
	signature uint8
}

// NewBaseFrame creates a pass-through entry keyed by the observed type
// byte.
func NewBaseFrame(signature uint8) *BaseFrame {
	return &BaseFrame{signature: signature}
}

// TypeString returns the fixed-width catalog name.
func (f *BaseFrame) TypeString() string { return fmt.Sprintf("TYPE_%02X   ", f.signature) }

// Matches tests the observed type byte against the entry's signature.
func (f *BaseFrame) Matches(p *Packet) bool { return p.Type() == f.signature }

// Stage copies a decoded packet into the entry.
func (f *BaseFrame) Stage(p Packet, src Source, at time.Time) { f.stageBase(p, src, at) }

// IsChanged reports whether the staged packet differs from the previous
// one.
func (f *BaseFrame) IsChanged() bool {
	return f.prev == nil || !f.packet.Equal(f.prev)
}

// HasPreviousData reports whether a previous packet exists.
func (f *BaseFrame) HasPreviousData() bool { return f.prev != nil && f.packet.Len > 0 }

// Transfer is a no-op: the pass-through entry keeps only raw packets,
// which stageBase already rotates.
func (f *BaseFrame) Transfer() {}

// Format dumps raw bit differences byte by byte.
func (f *BaseFrame) Format(noDiff bool) string {
	if f.packet.Len == 0 {
		return "N/A"
	}
	ref := f.packet
	if !noDiff && f.prev != nil {
		ref = *f.prev
	}
	var b strings.Builder
	b.WriteString("[ ")
	for i := 1; i < f.packet.Len-1; i++ {
		b.WriteString(FormatBitsDiff(f.packet.Data[i], ref.Data[i]))
		b.WriteString(" ")
	}
	b.WriteString("]")
	return b.String()
}

// FormatPrev renders the previous packet without diffing.
func (f *BaseFrame) FormatPrev() string {
	if f.prev == nil {
		return "N/A"
	}
	var b strings.Builder
	b.WriteString("[ ")
	for i := 1; i < f.prev.Len-1; i++ {
		b.WriteString(FormatBitsDiff(f.prev.Data[i], f.prev.Data[i]))
		b.WriteString(" ")
	}
	b.WriteString("]")
	return b.String()
}

// Registry is the ordered catalog of frame kinds. Lookup scans entries in
// insertion order and returns the first match; unknown type ids grow the
// catalog with a pass-through BaseFrame so subsequent frames of the same
// kind are deduplicated against it.
type Registry struct {
	entries []Frame
}

// NewRegistry creates a registry populated with every known frame kind,
// in the catalog's canonical order.
func NewRegistry() *Registry {
	r := &Registry{}
	r.Register(NewFrameConf1())
	r.Register(NewFrameConf2())
	r.Register(NewFrameConf3())
	r.Register(NewFrameConf4())
	r.Register(NewFrameConf5())
	r.Register(NewFrameConf6())
	r.Register(NewFrameClock())
	r.Register(NewFrameConditions1())
	r.Register(NewFrameConditions1B())
	r.Register(NewFrameConditions2())
	r.Register(NewFrameConditions2B())
	return r
}

// Register appends an entry to the catalog.
func (r *Registry) Register(f Frame) { r.entries = append(r.entries, f) }

// Frames returns the catalog in registration order.
func (r *Registry) Frames() []Frame { return r.entries }

// Lookup returns the entry owning the packet, registering a pass-through
// entry when no known kind matches.
func (r *Registry) Lookup(p *Packet) Frame {
	for _, e := range r.entries {
		if e.Matches(p) {
			return e
		}
	}
	e := NewBaseFrame(p.Type())
	r.Register(e)
	return e
}

// Process dispatches one decoded frame: rotates the entry's payload
// generations, stages the frame into the entry, parses it into the
// canonical state, and stamps the source's last-frame time. It returns the
// entry and whether the staged payload differed from the previous one.
func (r *Registry) Process(pkt Packet, src Source, at time.Time, data *HeatPumpData) (Frame, bool) {
	entry := r.Lookup(&pkt)
	entry.Transfer()
	entry.Stage(pkt, src, at)
	changed := entry.IsChanged()
	entry.Parse(data)
	switch src {
	case SourceHeater:
		t := at
		data.LastHeaterFrame = &t
	case SourceController:
		t := at
		data.LastControllerFrame = &t
	}
	return entry, changed
}

// Control walks the catalog in insertion order, letting every entry
// derive an outbound packet from the call.
func (r *Registry) Control(call *Call) []Packet {
	var out []Packet
	for _, e := range r.entries {
		if pkt, ok := e.Control(call); ok {
			out = append(out, pkt)
		}
	}
	return out
}

// Traits aggregates the capability set across the catalog.
func (r *Registry) Traits(data *HeatPumpData) Traits {
	t := Traits{VisualStep: 0.5}
	for _, e := range r.entries {
		e.Traits(&t, data)
	}
	return t
}
