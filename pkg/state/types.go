// Package state defines the data model exchanged between pipeline workers:
// camera frames, IMU readings, per-armor detections, the fused robot state,
// and the gimbal command emitted at the end of the pipeline.
package state

import (
	"math"
	"time"
)

// CameraFrame is a single grabbed frame, immutable once published.
type CameraFrame struct {
	Timestamp time.Time
	Width     int
	Height    int
	// RawData is width*height*3 bytes (BGR/RGB packed, camera-driver defined).
	RawData []byte
}

// EulerAngle is roll/pitch/yaw in degrees, world frame, as read off the wire.
type EulerAngle struct {
	Roll  float64
	Pitch float64
	Yaw   float64
}

// IMUState is a single IMU sample.
type IMUState struct {
	Timestamp  time.Time
	Time       float64 // driver-reported sample time, seconds
	EulerAngle EulerAngle
}

// PFState marks how the particle filter should treat a detection.
type PFState int

const (
	// PFTrack is a normal predict+update measurement.
	PFTrack PFState = iota
	// PFReset instructs the PF to reinitialise its particle set from this measurement.
	PFReset
)

// DetectionResult is a single armor-plate observation. TVec and YawRad start
// in camera frame; the detection worker rotates the selected group into world
// frame before publishing.
type DetectionResult struct {
	ClassID    int
	Keypoints  [][2]float64
	Confidence float64
	TVec       [3]float64 // x, y, z in metres
	YawRad     float64
}

// Norm returns the Euclidean norm of TVec.
func (d DetectionResult) Norm() float64 {
	x, y, z := d.TVec[0], d.TVec[1], d.TVec[2]
	return math.Sqrt(x*x + y*y + z*z)
}

// RobotState is the 15-slot fused state vector plus bookkeeping fields.
//
// State layout: [x, y, z, vx, vy, vz, ax, ay, az, yaw, yaw_rate, yaw_acc, r1, r2, h]
type RobotState struct {
	State     [15]float64
	ClassID   int
	Timestamp time.Time
	PFState   PFState
}

// Indices into RobotState.State, named for readability at call sites.
const (
	IX = iota
	IY
	IZ
	IVX
	IVY
	IVZ
	IAX
	IAY
	IAZ
	IYaw
	IYawRate
	IYawAcc
	IR1
	IR2
	IH
)

// PredictionOut is the final gimbal command, in camera/gimbal frame.
type PredictionOut struct {
	YawCmd    float64
	PitchCmd  float64
	Fire      bool
	Chase     bool
	Aim       bool
	Timestamp time.Time
}
