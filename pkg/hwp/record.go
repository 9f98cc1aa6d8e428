// SPDX-License-Identifier: Apache-2.0
// Copyright (c) 2025 Kaz Walker, Thermoquad

package hwp

import (
	"errors"
	"fmt"
	"io"
	"time"

	"github.com/fxamacker/cbor/v2"
)

// Capture records. A capture file is a plain CBOR stream of FrameRecord
// values; the same encoding rides the websocket state stream. Integer
// keys keep the records compact on the wire.

// FrameRecord is one decoded frame with its reception metadata.
type FrameRecord struct {
	At      time.Time `cbor:"1,keyasint"`
	Source  string    `cbor:"2,keyasint"`
	Type    uint8     `cbor:"3,keyasint"`
	Name    string    `cbor:"4,keyasint"`
	Data    []byte    `cbor:"5,keyasint"`
	Changed bool      `cbor:"6,keyasint"`
}

// NewFrameRecord snapshots a registry entry after a decode.
func NewFrameRecord(f Frame, changed bool) FrameRecord {
	pkt := f.RawPacket()
	data := make([]byte, pkt.Len)
	copy(data, pkt.Bytes())
	return FrameRecord{
		At:      f.FrameTime(),
		Source:  f.Source().String(),
		Type:    pkt.Type(),
		Name:    f.TypeString(),
		Data:    data,
		Changed: changed,
	}
}

// Packet rebuilds the raw packet carried by the record.
func (r *FrameRecord) Packet() (Packet, error) {
	return NewPacket(r.Data)
}

// RecordWriter encodes frame records onto a stream.
type RecordWriter struct {
	enc *cbor.Encoder
}

// NewRecordWriter creates a writer using canonical CBOR encoding.
func NewRecordWriter(w io.Writer) (*RecordWriter, error) {
	mode, err := cbor.CanonicalEncOptions().EncMode()
	if err != nil {
		return nil, fmt.Errorf("failed to create CBOR encoder: %w", err)
	}
	return &RecordWriter{enc: mode.NewEncoder(w)}, nil
}

// Write appends one record to the stream.
func (w *RecordWriter) Write(r FrameRecord) error {
	if err := w.enc.Encode(r); err != nil {
		return fmt.Errorf("failed to encode frame record: %w", err)
	}
	return nil
}

// MarshalRecord encodes a single record to bytes, for message-oriented
// transports.
func MarshalRecord(r FrameRecord) ([]byte, error) {
	return cbor.Marshal(r)
}

// UnmarshalRecord decodes a single record from bytes.
func UnmarshalRecord(data []byte) (FrameRecord, error) {
	var r FrameRecord
	if err := cbor.Unmarshal(data, &r); err != nil {
		return r, fmt.Errorf("failed to decode frame record: %w", err)
	}
	return r, nil
}

// RecordReader decodes frame records from a stream.
type RecordReader struct {
	dec *cbor.Decoder
}

// NewRecordReader creates a reader over a capture stream.
func NewRecordReader(r io.Reader) *RecordReader {
	return &RecordReader{dec: cbor.NewDecoder(r)}
}

// Read returns the next record, or io.EOF at end of stream.
func (r *RecordReader) Read() (FrameRecord, error) {
	var rec FrameRecord
	err := r.dec.Decode(&rec)
	if errors.Is(err, io.EOF) {
		return rec, io.EOF
	}
	if err != nil {
		return rec, fmt.Errorf("failed to decode frame record: %w", err)
	}
	return rec, nil
}
