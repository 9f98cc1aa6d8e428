// SPDX-License-Identifier: Apache-2.0
// Copyright (c) 2025 Kaz Walker, Thermoquad

package hwp

import (
	"bytes"
	"io"
	"testing"
	"time"
)

func TestRecord_StreamRoundTrip(t *testing.T) {
	r := NewRegistry()
	data := &HeatPumpData{}
	frame, changed := r.Process(mustPacket(t, conditionsFrame), SourceHeater, time.Now(), data)

	var buf bytes.Buffer
	w, err := NewRecordWriter(&buf)
	if err != nil {
		t.Fatalf("NewRecordWriter: %v", err)
	}
	rec := NewFrameRecord(frame, changed)
	if err := w.Write(rec); err != nil {
		t.Fatalf("Write: %v", err)
	}
	if err := w.Write(rec); err != nil {
		t.Fatalf("Write: %v", err)
	}

	reader := NewRecordReader(&buf)
	count := 0
	for {
		got, err := reader.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			t.Fatalf("Read: %v", err)
		}
		count++
		if got.Type != FrameIDConditions2 {
			t.Errorf("Type = 0x%02X, want 0xD2", got.Type)
		}
		pkt, err := got.Packet()
		if err != nil {
			t.Fatalf("Packet: %v", err)
		}
		want := mustPacket(t, conditionsFrame)
		if !pkt.Equal(&want) {
			t.Errorf("payload % X, want % X", pkt.Bytes(), want.Bytes())
		}
	}
	if count != 2 {
		t.Errorf("read %d records, want 2", count)
	}
}

func TestRecord_MessageRoundTrip(t *testing.T) {
	rec := FrameRecord{
		At:     time.Date(2024, 6, 1, 12, 0, 0, 0, time.UTC),
		Source: "HEAT",
		Type:   0xD2,
		Name:   "COND_2    ",
		Data:   conditionsFrame,
	}
	raw, err := MarshalRecord(rec)
	if err != nil {
		t.Fatalf("MarshalRecord: %v", err)
	}
	got, err := UnmarshalRecord(raw)
	if err != nil {
		t.Fatalf("UnmarshalRecord: %v", err)
	}
	if got.Source != rec.Source || got.Type != rec.Type || !bytes.Equal(got.Data, rec.Data) {
		t.Errorf("round trip mismatch: %+v", got)
	}
}
