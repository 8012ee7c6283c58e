// Package serialio implements the 11-byte TX frame format and RX
// telemetry parsing for the USB link to the gimbal MCU, plus the serial
// port configuration used to open it.
package serialio

import (
	"encoding/binary"
	"fmt"
	"math"
)

// FrameSize is the length in bytes of a TX command frame.
const FrameSize = 11

// header marks the start of a TX command frame.
const header = 0xAA

// Frame is a decoded TX command frame: gimbal yaw/pitch setpoints and a
// fire flag, wire-encoded little-endian with a trailing XOR checksum.
type Frame struct {
	Yaw   float32
	Pitch float32
	Fire  bool
}

// Encode serialises f into the 11-byte wire format:
// [0xAA][yaw_f32_le][pitch_f32_le][fire_u8][xor8].
func Encode(f Frame) [FrameSize]byte {
	var buf [FrameSize]byte
	buf[0] = header
	binary.LittleEndian.PutUint32(buf[1:5], math.Float32bits(f.Yaw))
	binary.LittleEndian.PutUint32(buf[5:9], math.Float32bits(f.Pitch))
	if f.Fire {
		buf[9] = 0x01
	}
	buf[10] = checksum(buf[:10])
	return buf
}

// Decode parses an 11-byte wire frame, verifying the header byte and the
// checksum before returning the triple.
func Decode(buf []byte) (Frame, error) {
	if len(buf) != FrameSize {
		return Frame{}, fmt.Errorf("serialio: frame length %d, want %d", len(buf), FrameSize)
	}
	if buf[0] != header {
		return Frame{}, fmt.Errorf("serialio: bad header byte 0x%02x, want 0x%02x", buf[0], header)
	}
	want := checksum(buf[:10])
	if buf[10] != want {
		return Frame{}, fmt.Errorf("serialio: checksum mismatch: got 0x%02x, want 0x%02x", buf[10], want)
	}
	f := Frame{
		Yaw:   math.Float32frombits(binary.LittleEndian.Uint32(buf[1:5])),
		Pitch: math.Float32frombits(binary.LittleEndian.Uint32(buf[5:9])),
		Fire:  buf[9] != 0,
	}
	return f, nil
}

func checksum(b []byte) byte {
	var c byte
	for _, x := range b {
		c ^= x
	}
	return c
}

// TelemetryFrame is an RX frame from the MCU carrying muzzle-velocity
// telemetry, used to update SharedScalars.bullet_speed out-of-band. The
// original source only specifies the TX direction; the wire layout here
// mirrors it: a distinct header byte, a single little-endian float32
// payload, and the same trailing XOR-of-preceding-bytes checksum.
type TelemetryFrame struct {
	BulletSpeed float32
}

// telemetryHeader distinguishes an RX telemetry frame from a TX command
// echoed back on a loopback-wired link.
const telemetryHeader = 0xBB

// TelemetryFrameSize is the length in bytes of an RX telemetry frame:
// [0xBB][bullet_speed_f32_le][xor8].
const TelemetryFrameSize = 6

// EncodeTelemetry serialises a TelemetryFrame, used by tests and by any
// bench fixture emulating the MCU side of the link.
func EncodeTelemetry(t TelemetryFrame) [TelemetryFrameSize]byte {
	var buf [TelemetryFrameSize]byte
	buf[0] = telemetryHeader
	binary.LittleEndian.PutUint32(buf[1:5], math.Float32bits(t.BulletSpeed))
	buf[5] = checksum(buf[:5])
	return buf
}

// DecodeTelemetry parses an RX telemetry frame.
func DecodeTelemetry(buf []byte) (TelemetryFrame, error) {
	if len(buf) != TelemetryFrameSize {
		return TelemetryFrame{}, fmt.Errorf("serialio: telemetry frame length %d, want %d", len(buf), TelemetryFrameSize)
	}
	if buf[0] != telemetryHeader {
		return TelemetryFrame{}, fmt.Errorf("serialio: bad telemetry header byte 0x%02x, want 0x%02x", buf[0], telemetryHeader)
	}
	want := checksum(buf[:5])
	if buf[5] != want {
		return TelemetryFrame{}, fmt.Errorf("serialio: telemetry checksum mismatch: got 0x%02x, want 0x%02x", buf[5], want)
	}
	return TelemetryFrame{BulletSpeed: math.Float32frombits(binary.LittleEndian.Uint32(buf[1:5]))}, nil
}
