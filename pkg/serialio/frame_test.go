package serialio

import (
	"math"
	"testing"
)

func TestFrame_RoundTrip(t *testing.T) {
	cases := []Frame{
		{Yaw: 0, Pitch: 0, Fire: false},
		{Yaw: 1.5708, Pitch: -0.87, Fire: true},
		{Yaw: -3.14159, Pitch: 0.17, Fire: false},
		{Yaw: float32(math.Pi), Pitch: float32(-math.Pi / 2), Fire: true},
	}
	for _, want := range cases {
		wire := Encode(want)
		got, err := Decode(wire[:])
		if err != nil {
			t.Fatalf("Decode(%+v) error: %v", want, err)
		}
		if got != want {
			t.Errorf("round trip = %+v, want %+v", got, want)
		}
	}
}

func TestFrame_ChecksumIsXorOfFirstTenBytes(t *testing.T) {
	wire := Encode(Frame{Yaw: 2.5, Pitch: -1.25, Fire: true})
	var c byte
	for _, b := range wire[:10] {
		c ^= b
	}
	if wire[10] != c {
		t.Errorf("checksum byte = 0x%02x, want 0x%02x", wire[10], c)
	}
}

func TestDecode_RejectsBadHeader(t *testing.T) {
	wire := Encode(Frame{Yaw: 1, Pitch: 1})
	wire[0] = 0x00
	if _, err := Decode(wire[:]); err == nil {
		t.Error("expected error for bad header byte")
	}
}

func TestDecode_RejectsBadChecksum(t *testing.T) {
	wire := Encode(Frame{Yaw: 1, Pitch: 1})
	wire[10] ^= 0xFF
	if _, err := Decode(wire[:]); err == nil {
		t.Error("expected error for corrupted checksum")
	}
}

func TestDecode_RejectsWrongLength(t *testing.T) {
	if _, err := Decode([]byte{0xAA, 0x01, 0x02}); err == nil {
		t.Error("expected error for short frame")
	}
}

func TestTelemetryFrame_RoundTrip(t *testing.T) {
	want := TelemetryFrame{BulletSpeed: 23.7}
	wire := EncodeTelemetry(want)
	got, err := DecodeTelemetry(wire[:])
	if err != nil {
		t.Fatalf("DecodeTelemetry error: %v", err)
	}
	if got != want {
		t.Errorf("telemetry round trip = %+v, want %+v", got, want)
	}
}
