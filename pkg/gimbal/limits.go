// Package gimbal holds the mechanical-limit constants and the clamp policy
// applied to the final yaw/pitch command. Defaults mirror the calibration
// artifact's field names from the original source's helper header; a real
// deployment overrides them from the YAML-backed config registry after
// running the one-shot calibration tool.
package gimbal

import "github.com/pinecone-robotics/sentry-core/pkg/geometry"

// Limits holds the gimbal-limit policy baked from the calibration artifact.
type Limits struct {
	PitchMin      float64
	PitchMax      float64
	YawMin        float64
	YawMax        float64
	HasYawLimits  bool
	SafetyMargin  float64
}

// DefaultLimits mirrors the original source's uncalibrated defaults: a
// pitch range from roughly -10 deg to +50 deg, and an unlimited (wrap-only)
// yaw axis on a 360-degree gimbal.
func DefaultLimits() Limits {
	return Limits{
		PitchMin:     -0.17,
		PitchMax:     0.87,
		YawMin:       -3.14,
		YawMax:       3.14,
		HasYawLimits: false,
		SafetyMargin: 0.05,
	}
}

// Clamp applies the gimbal-limit policy: pitch is always clamped into
// [PitchMin+margin, PitchMax-margin]; yaw is wrapped to (-pi, pi] if the
// gimbal has no yaw limits, otherwise clamped with the same margin.
func (l Limits) Clamp(yaw, pitch float64) (clampedYaw, clampedPitch float64) {
	clampedPitch = clampFloat(pitch, l.PitchMin+l.SafetyMargin, l.PitchMax-l.SafetyMargin)

	if !l.HasYawLimits {
		clampedYaw = geometry.WrapPi(yaw)
		return clampedYaw, clampedPitch
	}
	clampedYaw = clampFloat(yaw, l.YawMin+l.SafetyMargin, l.YawMax-l.SafetyMargin)
	return clampedYaw, clampedPitch
}

// AtPitchLimit reports whether pitch is within tolerance of a mechanical
// stop, used to decide whether the gimbal can keep chasing a target.
func (l Limits) AtPitchLimit(pitch float64) bool {
	const tolerance = 0.08
	return pitch < l.PitchMin+tolerance || pitch > l.PitchMax-tolerance
}

// Reachable reports whether the given command is within mechanical range.
// Yaw is always reachable when the gimbal has no yaw limits.
func (l Limits) Reachable(yaw, pitch float64) bool {
	if pitch < l.PitchMin || pitch > l.PitchMax {
		return false
	}
	if !l.HasYawLimits {
		return true
	}
	return yaw >= l.YawMin && yaw <= l.YawMax
}

func clampFloat(v, min, max float64) float64 {
	if v < min {
		return min
	}
	if v > max {
		return max
	}
	return v
}
