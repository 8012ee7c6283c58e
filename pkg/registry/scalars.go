package registry

import (
	"math"
	"sync/atomic"
)

// SharedScalars holds the small out-of-band values updated by USB RX and read
// by Prediction. Relaxed-ordering atomics are fine here: approximate
// freshness is acceptable per the design's shared-resource policy.
type SharedScalars struct {
	bulletSpeed atomic.Uint64 // math.Float64bits-encoded
}

// SetBulletSpeed stores the most recently measured muzzle velocity, m/s.
func (s *SharedScalars) SetBulletSpeed(v float64) {
	s.bulletSpeed.Store(math.Float64bits(v))
}

// BulletSpeed returns the most recently measured muzzle velocity, m/s.
// Zero if never set.
func (s *SharedScalars) BulletSpeed() float64 {
	return math.Float64frombits(s.bulletSpeed.Load())
}
