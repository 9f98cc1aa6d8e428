// SPDX-License-Identifier: Apache-2.0
// Copyright (c) 2025 Kaz Walker, Thermoquad

package hwp

import (
	"strings"
	"testing"
	"time"
)

func TestFormatBitsDiff_NoChangePlain(t *testing.T) {
	if got := FormatBitsDiff(0xA5, 0xA5); got != "10100101" {
		t.Errorf("FormatBitsDiff = %q", got)
	}
}

func TestFormatBitsDiff_HighlightsChangedRun(t *testing.T) {
	got := FormatBitsDiff(0xFF, 0xF0)
	if !strings.Contains(got, csInvert) || !strings.Contains(got, csInvertReset) {
		t.Errorf("changed bits not highlighted: %q", got)
	}
	stripped := strings.ReplaceAll(strings.ReplaceAll(got, csInvert, ""), csInvertReset, "")
	if stripped != "11111111" {
		t.Errorf("bit content mangled: %q", stripped)
	}
}

func TestHeaderFormat_FixedShape(t *testing.T) {
	pkt := Packet{}
	copy(pkt.Data[:], conditionsFrame)
	pkt.Len = len(conditionsFrame)
	s := HeaderFormat("RX", pkt, nil, "COND_2    ", SourceHeater, 2*time.Second)
	if !strings.HasPrefix(s, "RX    [D2][") {
		t.Errorf("header prefix wrong: %q", s)
	}
	if !strings.Contains(s, "COND_2    (HEAT)") {
		t.Errorf("type/source missing: %q", s)
	}
	if !strings.Contains(s, "[84]") {
		t.Errorf("checksum missing: %q", s)
	}
}

func TestPulseLog_Compression(t *testing.T) {
	var l PulseLog
	pre := Pulse{false, 9 * time.Millisecond, true, 5 * time.Millisecond}
	l.Append(&pre)
	bit := Pulse{false, time.Millisecond, true, 3 * time.Millisecond}
	for i := 0; i < 8; i++ {
		l.Append(&bit)
	}
	s := l.String()
	if !strings.Contains(s, "S") || !strings.Contains(s, "B") {
		t.Errorf("compressed log = %q", s)
	}
	l.Reset()
	if l.Len() != 0 {
		t.Error("Reset should clear the log")
	}
}

func TestStatistics_CountsAndRates(t *testing.T) {
	s := NewStatistics()
	s.CountFrame(0xD2, SourceHeater)
	s.CountFrame(0xD2, SourceHeater)
	s.CountFrame(0x81, SourceController)
	s.ChecksumErrors++

	if s.TotalFrames != 3 || s.HeaterFrames != 2 || s.ControllerFrames != 1 {
		t.Errorf("counters: %+v", s)
	}
	if s.FramesByType[0xD2] != 2 {
		t.Errorf("FramesByType[0xD2] = %d", s.FramesByType[0xD2])
	}
	out := s.String()
	if !strings.Contains(out, "Total Frames") || !strings.Contains(out, "0xD2") {
		t.Errorf("summary missing fields: %q", out)
	}
	s.Reset()
	if s.TotalFrames != 0 || len(s.FramesByType) != 0 {
		t.Error("Reset should clear counters")
	}
}
