// SPDX-License-Identifier: Apache-2.0
// Copyright (c) 2025 Kaz Walker, Thermoquad

package hwp

import (
	"fmt"
	"strings"
)

// DumpKnownPackets renders every catalog entry that has captured data,
// one line per entry, in registration order.
func (r *Registry) DumpKnownPackets() []string {
	var out []string
	for _, f := range r.entries {
		pkt := f.RawPacket()
		if pkt.Len == 0 {
			continue
		}
		out = append(out, HeaderFormat("   - ", pkt, nil, f.TypeString(), f.Source(), f.FrameAge())+f.Format(true))
	}
	return out
}

// DumpGoCode renders the captured frames as Go source literals, ready to
// paste into replay fixtures or tests.
func (r *Registry) DumpGoCode() string {
	var frames []Frame
	for _, f := range r.entries {
		if f.RawPacket().Len > 0 {
			frames = append(frames, f)
		}
	}
	var b strings.Builder
	fmt.Fprintf(&b, "// %d known frames\n", len(frames))
	b.WriteString("var knownFrames = [][]byte{\n")
	for _, f := range frames {
		pkt := f.RawPacket()
		b.WriteString("\t{")
		for i, by := range pkt.Bytes() {
			if i > 0 {
				b.WriteString(", ")
			}
			fmt.Fprintf(&b, "0x%02X", by)
		}
		fmt.Fprintf(&b, "}, // %s\n", strings.TrimSpace(f.TypeString()))
	}
	b.WriteString("}\n")
	return b.String()
}
