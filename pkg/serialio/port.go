package serialio

import (
	"fmt"
	"io"

	"go.bug.st/serial"

	"github.com/pinecone-robotics/sentry-core/internal/log"
)

// DefaultDevicePath is used when no override is configured.
const DefaultDevicePath = "/dev/ttyUSB0"

// DefaultBaud is the wire baud rate: 115200 8N1, no flow control.
const DefaultBaud = 115200

// Port wraps a serial.Port with the frame encode/decode of this package,
// mirroring the open/configure/send/close lifecycle of the original
// USBCommunication class.
type Port struct {
	path string
	port serial.Port
}

// Open opens and configures the serial device at path for 8N1 at baud, no
// parity, no flow control, matching the original's raw-mode termios setup.
func Open(path string, baud int) (*Port, error) {
	if path == "" {
		path = DefaultDevicePath
	}
	if baud <= 0 {
		baud = DefaultBaud
	}
	mode := &serial.Mode{
		BaudRate: baud,
		DataBits: 8,
		Parity:   serial.NoParity,
		StopBits: serial.OneStopBit,
	}
	p, err := serial.Open(path, mode)
	if err != nil {
		return nil, fmt.Errorf("serialio: open %s: %w", path, err)
	}
	// Non-blocking reads: the original sets VMIN=0/VTIME=0 so a read
	// never stalls the RX poll loop indefinitely.
	if err := p.SetReadTimeout(0); err != nil {
		p.Close()
		return nil, fmt.Errorf("serialio: set read timeout on %s: %w", path, err)
	}
	log.Component("usb").Info("device opened", "path", path, "baud", baud)
	return &Port{path: path, port: p}, nil
}

// Close closes the underlying device.
func (p *Port) Close() error {
	log.Component("usb").Info("closing device", "path", p.path)
	return p.port.Close()
}

// Send encodes and writes a command frame, returning an error if fewer
// than FrameSize bytes were written (WriteShort).
func (p *Port) Send(f Frame) error {
	wire := Encode(f)
	n, err := p.port.Write(wire[:])
	if err != nil {
		return fmt.Errorf("serialio: write: %w", err)
	}
	if n != FrameSize {
		return fmt.Errorf("serialio: short write: wrote %d of %d bytes", n, FrameSize)
	}
	return nil
}

// ReadTelemetry reads exactly one telemetry frame, or io.EOF-wrapping
// errors if the non-blocking read returned fewer bytes than expected
// (treated by callers as ReadTimeout, not fatal).
func (p *Port) ReadTelemetry() (TelemetryFrame, error) {
	buf := make([]byte, TelemetryFrameSize)
	n, err := io.ReadFull(p.port, buf)
	if err != nil {
		return TelemetryFrame{}, fmt.Errorf("serialio: read telemetry (%d/%d bytes): %w", n, TelemetryFrameSize, err)
	}
	return DecodeTelemetry(buf)
}
