// Package prediction implements the convergent lead-time computation,
// motion model, ballistic drop and gimbal command derivation that run in
// the prediction worker. The decomposition into small pure functions
// mirrors the original source's prediction_worker.cpp so each step stays
// independently testable.
package prediction

import (
	"math"

	"github.com/pinecone-robotics/sentry-core/pkg/geometry"
	"github.com/pinecone-robotics/sentry-core/pkg/state"
)

const (
	// AlphaBulletSpeed is the smoothing factor for the muzzle-velocity EMA.
	AlphaBulletSpeed = 0.1
	// AlphaProcessingTime is the smoothing factor for the processing-latency EMA.
	AlphaProcessingTime = 0.1
	// ConvergenceThreshold is the lead-time convergence tolerance, seconds.
	ConvergenceThreshold = 0.01
	// ChaseThreshold is the camera-frame Z distance beyond which Chase is set.
	ChaseThreshold = 6.0
	// MaxConvergenceIters bounds the lead-time fixed-point iteration.
	MaxConvergenceIters = 10
	// WidthTolerance is the fire-window full-width base, metres; ShouldFire
	// halves it.
	WidthTolerance = 0.13
	// HeightTolerance is the fire-window full-height base, metres; ShouldFire
	// halves it.
	HeightTolerance = 0.13
	// ToleranceCoeff scales the fire window empirically.
	ToleranceCoeff = 1.0
	// Gravity, m/s^2.
	Gravity = 9.81
)

// Filter applies one step of exponential smoothing: value <- alpha*measurement + (1-alpha)*value.
func Filter(value, measurement, alpha float64) float64 {
	return alpha*measurement + (1-alpha)*value
}

// Converged reports whether a lead-time delta is within the convergence threshold.
func Converged(delta, threshold float64) bool {
	return math.Abs(delta) < threshold
}

// LeadTime computes distance/bulletSpeed for a position vector. Caller must
// ensure bulletSpeed > 0.
func LeadTime(pos [3]float64, bulletSpeed float64) float64 {
	dist := math.Sqrt(pos[0]*pos[0] + pos[1]*pos[1] + pos[2]*pos[2])
	return dist / bulletSpeed
}

// MotionModel projects a RobotState.State forward by t seconds in world
// frame, applying the armor-ring offset for whichever sector the projected
// yaw falls into.
func MotionModel(s [15]float64, t float64) [3]float64 {
	tt := t * t
	var pos [3]float64
	pos[0] = s[state.IX] + s[state.IVX]*t + 0.5*s[state.IAX]*tt
	pos[1] = s[state.IY] + s[state.IVY]*t + 0.5*s[state.IAY]*tt
	pos[2] = s[state.IZ] + s[state.IVZ]*t + 0.5*s[state.IAZ]*tt

	yawT := s[state.IYaw] + s[state.IYawRate]*t + 0.5*s[state.IYawAcc]*tt
	sector := geometry.Sector(yawT)

	yawRestrict := math.Mod(yawT+math.Pi/4, math.Pi) - math.Pi/4

	radius := s[state.IR1]
	if sector%2 != 0 {
		radius = s[state.IR2]
	}

	pos[0] += radius * math.Sin(yawRestrict)
	pos[2] -= radius * math.Cos(yawRestrict)
	pos[1] += s[state.IH]

	return pos
}

// ConvergeLeadTime iterates the lead-time fixed point:
// t_lead = |pos|/v + t_processing + t_gimbal_actuation, pos = MotionModel(state, t_lead),
// until the change is below ConvergenceThreshold or MaxConvergenceIters is reached.
// Returns the converged lead time and the projected world-frame position at that time.
func ConvergeLeadTime(s [15]float64, bulletSpeed, processingTime, gimbalActuation float64) (tLead float64, pos [3]float64) {
	tvec := [3]float64{s[state.IX], s[state.IY], s[state.IZ]}
	tLead = LeadTime(tvec, bulletSpeed) + processingTime + gimbalActuation

	for iter := 0; iter < MaxConvergenceIters; iter++ {
		pos = MotionModel(s, tLead)
		next := LeadTime(pos, bulletSpeed) + processingTime + gimbalActuation
		delta := next - tLead
		tLead = next
		if Converged(delta, ConvergenceThreshold) {
			break
		}
	}
	return tLead, pos
}

// BallisticDrop returns the vertical correction (added to pos_cam.y) for a
// target at the given camera-frame distance and bullet speed.
func BallisticDrop(distance, bulletSpeed float64) float64 {
	return 0.5 * Gravity * distance * distance / (bulletSpeed * bulletSpeed)
}

// GimbalCorrection returns (yaw_cmd, pitch_cmd) for a camera-frame position,
// already accounting for the world-to-camera rotation applied upstream.
func GimbalCorrection(posCam [3]float64) (yawCmd, pitchCmd float64) {
	x, y, z := posCam[0], posCam[1], posCam[2]
	return math.Atan2(x, z), math.Atan2(y, z)
}

// ShouldFire reports whether a camera-frame position is inside the fire window.
func ShouldFire(posCam [3]float64) bool {
	xTol := WidthTolerance * ToleranceCoeff * 0.5
	yTol := HeightTolerance * ToleranceCoeff * 0.5
	return math.Abs(posCam[0]) < xTol && math.Abs(posCam[1]) < yTol
}
