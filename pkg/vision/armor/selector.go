// Package armor implements per-cycle armor grouping, the tracked-id
// selector state machine, and one/two-armor robot-pose reconstruction.
package armor

import (
	"math"

	"github.com/pinecone-robotics/sentry-core/pkg/state"
)

// Group is a set of 1 or 2 armor detections belonging to the same robot
// (same ClassID). form_robot in the original source discards groups of more
// than two; GroupByClass never produces those in the first place.
type Group struct {
	ClassID int
	Armors  []state.DetectionResult
}

// GroupByClass buckets detections by ClassID, discarding any class with more
// than two simultaneous armors (a robot has exactly two rings).
func GroupByClass(dets []state.DetectionResult) []Group {
	byClass := map[int][]state.DetectionResult{}
	order := []int{}
	for _, d := range dets {
		if _, ok := byClass[d.ClassID]; !ok {
			order = append(order, d.ClassID)
		}
		byClass[d.ClassID] = append(byClass[d.ClassID], d)
	}

	groups := make([]Group, 0, len(order))
	for _, id := range order {
		armors := byClass[id]
		if len(armors) > 2 {
			continue
		}
		groups = append(groups, Group{ClassID: id, Armors: armors})
	}
	return groups
}

// meanDistance is the mean of the armors' TVec norms in a group.
func meanDistance(g Group) float64 {
	if len(g.Armors) == 0 {
		return math.Inf(1)
	}
	sum := 0.0
	for _, a := range g.Armors {
		sum += a.Norm()
	}
	return sum / float64(len(g.Armors))
}

// bestGroup returns the index of the group with the smallest mean armor
// distance. Returns -1 if groups is empty.
func bestGroup(groups []Group) int {
	best := -1
	bestDist := math.Inf(1)
	for i, g := range groups {
		d := meanDistance(g)
		if d < bestDist {
			bestDist = d
			best = i
		}
	}
	return best
}

// Selector implements the tracked-id state machine of the detection
// worker: it holds onto a selected robot id across brief detection gaps
// (a TTL grace window) rather than re-acquiring every frame.
type Selector struct {
	MaxTTL float64

	selectedID *int
	ttl        float64
	initialYaw float64
}

// NewSelector returns a Selector with no target and the given TTL budget.
func NewSelector(maxTTL float64) *Selector {
	return &Selector{MaxTTL: maxTTL}
}

// SelectedID returns the currently tracked robot id, or nil if idle.
func (s *Selector) SelectedID() *int {
	return s.selectedID
}

// InitialYaw returns the yaw of the first armor of the group chosen at the
// last (re)acquisition, in the frame the groups were given in (world frame
// when the detection worker had an IMU sample to rotate by). Nothing in the
// pipeline reads it; FromOneArmor takes its yaw from the prior RobotState or
// the detection.
func (s *Selector) InitialYaw() float64 {
	return s.initialYaw
}

// Update advances the selector by one detection cycle of length dt and
// returns the armors to feed into pose reconstruction this cycle (nil if
// none should be emitted).
func (s *Selector) Update(groups []Group, dt float64) []state.DetectionResult {
	if len(groups) == 0 {
		s.decayOrClear(dt)
		return nil
	}

	if s.selectedID == nil {
		return s.acquire(groups)
	}

	for _, g := range groups {
		if g.ClassID == *s.selectedID {
			s.ttl = s.MaxTTL
			return g.Armors
		}
	}

	// Tracked id absent this cycle.
	s.ttl -= dt
	if s.ttl > 0 {
		return nil
	}
	// Grace window exhausted: re-acquire.
	return s.acquire(groups)
}

func (s *Selector) acquire(groups []Group) []state.DetectionResult {
	idx := bestGroup(groups)
	if idx < 0 {
		return nil
	}
	g := groups[idx]
	id := g.ClassID
	s.selectedID = &id
	s.ttl = s.MaxTTL
	if len(g.Armors) > 0 {
		s.initialYaw = g.Armors[0].YawRad
	}
	return g.Armors
}

func (s *Selector) decayOrClear(dt float64) {
	s.ttl -= dt
	if s.ttl <= 0 {
		s.selectedID = nil
	}
}
