package armor

import (
	"math"

	"github.com/pinecone-robotics/sentry-core/pkg/geometry"
	"github.com/pinecone-robotics/sentry-core/pkg/state"
)

// DefaultRadius is the seed radius used for both rings on first acquisition,
// before any two-armor observation has calibrated the real geometry.
const DefaultRadius = 0.2

// FromOneArmor reconstructs a RobotState from a single visible armor. If
// prior is non-nil, the candidate yaw closest to the detection's camera-yaw
// among {prev_yaw, prev_yaw +- pi/2, prev_yaw + pi} is chosen, disambiguating
// which ring face is visible; otherwise the detection's own yaw is used and
// both radii are seeded to DefaultRadius.
func FromOneArmor(prior *state.RobotState, det state.DetectionResult) state.RobotState {
	var out state.RobotState
	out.ClassID = det.ClassID

	var chosenYaw, r1, r2 float64

	if prior == nil {
		chosenYaw = det.YawRad
		r1, r2 = DefaultRadius, DefaultRadius
	} else {
		prevYaw := prior.State[state.IYaw]
		r1, r2 = prior.State[state.IR1], prior.State[state.IR2]
		if r1 <= 0 {
			r1 = DefaultRadius
		}
		if r2 <= 0 {
			r2 = DefaultRadius
		}
		chosenYaw = closestCandidateYaw(prevYaw, det.YawRad)
	}

	sector := geometry.Sector(chosenYaw)
	r := r1
	if sector%2 != 0 {
		r = r2
	}

	tx := det.TVec[0] - r*math.Sin(det.YawRad)
	ty := det.TVec[1]
	tz := det.TVec[2] + r*math.Cos(det.YawRad)

	out.State[state.IX] = tx
	out.State[state.IY] = ty
	out.State[state.IZ] = tz
	out.State[state.IYaw] = chosenYaw
	out.State[state.IR1] = r1
	out.State[state.IR2] = r2
	return out
}

// closestCandidateYaw picks the candidate among {prevYaw, prevYaw+-pi/2,
// prevYaw+pi} that minimises |wrap_pi(candidate - detYaw)|, wrapped to (-pi, pi].
func closestCandidateYaw(prevYaw, detYaw float64) float64 {
	candidates := [4]float64{
		prevYaw,
		prevYaw + math.Pi/2,
		prevYaw - math.Pi/2,
		prevYaw + math.Pi,
	}

	best := candidates[0]
	bestAbs := math.Inf(1)
	for _, c := range candidates {
		d := math.Abs(geometry.WrapPi(c - detYaw))
		if d < bestAbs {
			bestAbs = d
			best = c
		}
	}
	return geometry.WrapPi(best)
}

// FromTwoArmors reconstructs a RobotState from two simultaneously visible
// armors on the same robot's two rings. The original source declares the
// interface but leaves the body unimplemented ("implementer must fit a
// robot frame whose two armor rings produce the observed pair"); this does
// so by solving the exact 2x2 linear system for the two ring radii that
// makes both armors project from a common centre using the one-armor
// formula (armor = centre + r*(sin(yaw), 0, -cos(yaw))), then assigns r1 to
// whichever armor's yaw falls in an even sector and r2 to the other. Since
// the assignment is keyed by each armor's own yaw rather than by argument
// order, swapping which armor is passed first yields the same RobotState.
func FromTwoArmors(a, b state.DetectionResult) state.RobotState {
	yawA, yawB := a.YawRad, b.YawRad
	sinA, cosA := math.Sin(yawA), math.Cos(yawA)
	sinB, cosB := math.Sin(yawB), math.Cos(yawB)

	// [-sinA  sinB] [rA]   [b.tx - a.tx]
	// [ cosA -cosB] [rB] = [b.tz - a.tz]
	det := sinA*cosB - sinB*cosA
	rhsX := b.TVec[0] - a.TVec[0]
	rhsZ := b.TVec[2] - a.TVec[2]

	var rA, rB float64
	if math.Abs(det) > 1e-9 {
		rA = (rhsX*(-cosB) - sinB*rhsZ) / det
		rB = (-sinA*rhsZ - cosA*rhsX) / det
	} else {
		// Near-degenerate (armors nearly coplanar in yaw): fall back to
		// the single-armor default radius for both.
		rA, rB = DefaultRadius, DefaultRadius
	}

	cxFromA := a.TVec[0] - rA*sinA
	czFromA := a.TVec[2] + rA*cosA
	cxFromB := b.TVec[0] - rB*sinB
	czFromB := b.TVec[2] + rB*cosB

	var out state.RobotState
	out.ClassID = a.ClassID
	out.State[state.IX] = (cxFromA + cxFromB) / 2
	out.State[state.IY] = (a.TVec[1] + b.TVec[1]) / 2
	out.State[state.IZ] = (czFromA + czFromB) / 2

	if geometry.Sector(yawA)%2 == 0 {
		out.State[state.IYaw] = yawA
		out.State[state.IR1] = math.Abs(rA)
		out.State[state.IR2] = math.Abs(rB)
	} else {
		out.State[state.IYaw] = yawB
		out.State[state.IR1] = math.Abs(rB)
		out.State[state.IR2] = math.Abs(rA)
	}
	return out
}
