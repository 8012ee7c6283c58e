// Package registry implements the lock-free latest-value exchange the
// pipeline workers use to hand off state: each slot holds an immutable
// snapshot handle plus a monotonically increasing version counter. Publish
// is release, read is acquire — a reader observing version v is guaranteed
// to see the snapshot published at v or later.
package registry

import (
	"sync/atomic"

	"github.com/pinecone-robotics/sentry-core/pkg/state"
)

// Slot is a single-producer, multi-consumer latest-value cell for values of
// type T. T should be treated as immutable once published: publishers must
// hand ownership of a fresh value to Publish rather than mutating a value
// obtained from Snapshot.
type Slot[T any] struct {
	ptr     atomic.Pointer[T]
	version atomic.Uint64
}

// Publish atomically replaces the slot's value and bumps its version.
// Never blocks and never fails (allocation exhaustion aside).
func (s *Slot[T]) Publish(v T) {
	s.ptr.Store(&v)
	s.version.Add(1)
}

// Snapshot returns the current value and its version. ok is false if the
// slot has never been published to.
func (s *Slot[T]) Snapshot() (value T, version uint64, ok bool) {
	version = s.version.Load()
	p := s.ptr.Load()
	if p == nil {
		return value, version, false
	}
	return *p, version, true
}

// Version returns the current version without paying for a value load.
// Used by edge-triggered consumers that only need to know "did this change".
func (s *Slot[T]) Version() uint64 {
	return s.version.Load()
}

// SharedLatest is the process-wide registry of pipeline slots. One field per
// stage output, matching the shared-registry contract of the design: camera,
// imu, detection, pf and prediction each get their own independently
// versioned slot so unequal-rate producers never couple.
type SharedLatest struct {
	Camera     Slot[state.CameraFrame]
	IMU        Slot[state.IMUState]
	Detection  Slot[state.RobotState]
	PF         Slot[state.RobotState]
	Prediction Slot[state.PredictionOut]
}

// New returns a freshly zeroed registry. All slots start unpublished
// (Snapshot returns ok=false) until their owning worker publishes.
func New() *SharedLatest {
	return &SharedLatest{}
}
