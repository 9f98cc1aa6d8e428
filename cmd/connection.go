// SPDX-License-Identifier: GPL-2.0-or-later
// Copyright (c) 2025 Kaz Walker, Thermoquad

package cmd

import (
	"bufio"
	"context"
	"crypto/tls"
	"encoding/base64"
	"encoding/binary"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"os"
	"strings"
	"syscall"
	"time"

	"github.com/Thermoquad/netbus/pkg/hwp"
	"github.com/gorilla/websocket"
	"go.bug.st/serial"
	"golang.org/x/term"
)

// Connection provides a common interface for reading/writing bytes from
// a serial probe or a WebSocket bridge.
type Connection interface {
	io.Reader
	io.Writer
	io.Closer
}

// Probe record framing. The capture probe timestamps each edge pair and
// streams it as a 10-byte record:
//
//	[0xA5][flags][dur0 us, u32 LE][dur1 us, u32 LE]
//
// flags bit 0 is level0, bit 1 level1. Outbound, a transmit request is
// framed as [0xA5][0x54][repeat][len][frame bytes]; the probe bit-bangs
// the burst with the exact wire timings.
const (
	probeSync       = 0xA5
	probeTxOpcode   = 0x54
	probeRecordSize = 10
)

// ErrConnectionClosed is returned when reading from a closed WebSocket
// connection.
var ErrConnectionClosed = fmt.Errorf("websocket connection closed")

// SerialConnection wraps a serial port.
type SerialConnection struct {
	port serial.Port
}

func (s *SerialConnection) Read(p []byte) (int, error) {
	return s.port.Read(p)
}

func (s *SerialConnection) Write(p []byte) (int, error) {
	return s.port.Write(p)
}

func (s *SerialConnection) Close() error {
	return s.port.Close()
}

// WebSocketConnection wraps a WebSocket connection for byte-level
// reading.
type WebSocketConnection struct {
	conn      *websocket.Conn
	buf       []byte
	bufOffset int
	closed    bool
}

func (w *WebSocketConnection) Read(p []byte) (int, error) {
	if w.closed {
		return 0, ErrConnectionClosed
	}
	if w.bufOffset < len(w.buf) {
		n := copy(p, w.buf[w.bufOffset:])
		w.bufOffset += n
		return n, nil
	}
	for {
		messageType, data, err := w.conn.ReadMessage()
		if err != nil {
			w.closed = true
			return 0, err
		}
		if messageType != websocket.BinaryMessage {
			continue
		}
		w.buf = data
		w.bufOffset = 0
		n := copy(p, w.buf)
		w.bufOffset = n
		return n, nil
	}
}

func (w *WebSocketConnection) Write(p []byte) (int, error) {
	if err := w.conn.WriteMessage(websocket.BinaryMessage, p); err != nil {
		return 0, err
	}
	return len(p), nil
}

func (w *WebSocketConnection) Close() error {
	return w.conn.Close()
}

// OpenSerialConnection opens a serial probe connection.
func OpenSerialConnection(portName string, baudRate int) (Connection, error) {
	mode := &serial.Mode{
		BaudRate: baudRate,
		DataBits: 8,
		Parity:   serial.NoParity,
		StopBits: serial.OneStopBit,
	}
	port, err := serial.Open(portName, mode)
	if err != nil {
		return nil, fmt.Errorf("failed to open serial port %s: %v", portName, err)
	}
	return &SerialConnection{port: port}, nil
}

// OpenWebSocketConnection opens a WebSocket connection with HTTP Basic
// auth.
func OpenWebSocketConnection(wsURL, username, password string, skipSSLVerify bool) (Connection, error) {
	u, err := url.Parse(wsURL)
	if err != nil {
		return nil, fmt.Errorf("invalid URL: %v", err)
	}
	switch u.Scheme {
	case "ws", "wss":
		// OK
	default:
		return nil, fmt.Errorf("unsupported URL scheme: %s (use ws:// or wss://)", u.Scheme)
	}

	dialer := websocket.Dialer{
		HandshakeTimeout: 10 * time.Second,
	}
	if u.Scheme == "wss" {
		dialer.TLSClientConfig = &tls.Config{
			InsecureSkipVerify: skipSSLVerify,
		}
	}

	headers := http.Header{}
	if username != "" && password != "" {
		credentials := base64.StdEncoding.EncodeToString([]byte(username + ":" + password))
		headers.Set("Authorization", "Basic "+credentials)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()

	conn, resp, err := dialer.DialContext(ctx, wsURL, headers)
	if err != nil {
		if resp != nil {
			return nil, fmt.Errorf("WebSocket connection failed (HTTP %d): %v", resp.StatusCode, err)
		}
		return nil, fmt.Errorf("WebSocket connection failed: %v", err)
	}
	return &WebSocketConnection{conn: conn}, nil
}

// GetPassword retrieves the feed password from the environment or
// prompts the user.
func GetPassword() (string, error) {
	if pw := os.Getenv("NETBUS_PASSWORD"); pw != "" {
		return pw, nil
	}

	fmt.Fprint(os.Stderr, "Password: ")
	passwordBytes, err := term.ReadPassword(int(syscall.Stdin))
	if err != nil {
		// Fallback to regular input if terminal functions fail
		reader := bufio.NewReader(os.Stdin)
		password, err := reader.ReadString('\n')
		if err != nil {
			return "", fmt.Errorf("failed to read password: %v", err)
		}
		fmt.Fprintln(os.Stderr)
		return strings.TrimSpace(password), nil
	}
	fmt.Fprintln(os.Stderr)
	return string(passwordBytes), nil
}

// OpenConnection opens either a serial or WebSocket feed based on
// flags.
func OpenConnection() (Connection, string, error) {
	if wsURL != "" {
		password := ""
		if wsUsername != "" {
			var err error
			password, err = GetPassword()
			if err != nil {
				return nil, "", err
			}
		}
		conn, err := OpenWebSocketConnection(wsURL, wsUsername, password, wsNoSSLVerify)
		if err != nil {
			return nil, "", err
		}
		return conn, fmt.Sprintf("WebSocket: %s", wsURL), nil
	}

	if portName != "" {
		conn, err := OpenSerialConnection(portName, baudRate)
		if err != nil {
			return nil, "", err
		}
		return conn, fmt.Sprintf("Serial: %s @ %d baud", portName, baudRate), nil
	}

	return nil, "", fmt.Errorf("either --port, --url or --replay must be specified")
}

// PulseReader decodes probe records from a byte stream into pulse
// pairs, resynchronizing on the sync byte after framing slips.
type PulseReader struct {
	r   *bufio.Reader
	buf [probeRecordSize]byte
}

// NewPulseReader wraps a feed connection.
func NewPulseReader(conn io.Reader) *PulseReader {
	return &PulseReader{r: bufio.NewReader(conn)}
}

// ReadPulse returns the next captured pulse pair.
func (p *PulseReader) ReadPulse() (hwp.Pulse, error) {
	for {
		sync, err := p.r.ReadByte()
		if err != nil {
			return hwp.Pulse{}, err
		}
		if sync != probeSync {
			continue
		}
		if _, err := io.ReadFull(p.r, p.buf[:probeRecordSize-1]); err != nil {
			return hwp.Pulse{}, err
		}
		flags := p.buf[0]
		return hwp.Pulse{
			Level0: flags&0x01 != 0,
			Dur0:   time.Duration(binary.LittleEndian.Uint32(p.buf[1:5])) * time.Microsecond,
			Level1: flags&0x02 != 0,
			Dur1:   time.Duration(binary.LittleEndian.Uint32(p.buf[5:9])) * time.Microsecond,
		}, nil
	}
}

// WriteProbeTransmit asks the probe to bit-bang one command burst.
func WriteProbeTransmit(conn io.Writer, pkt *hwp.Packet, repeats int) error {
	msg := make([]byte, 0, 4+pkt.Len)
	msg = append(msg, probeSync, probeTxOpcode, byte(repeats), byte(pkt.Len))
	msg = append(msg, pkt.Bytes()...)
	if _, err := conn.Write(msg); err != nil {
		return fmt.Errorf("failed to write transmit request: %v", err)
	}
	return nil
}
