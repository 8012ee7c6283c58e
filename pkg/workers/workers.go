// Package workers implements the six periodic/edge-triggered loops of the
// pipeline (Camera, IMU, Detection, particle filter, Prediction, USB) that
// read and publish through the shared registry. Each loop follows the same
// shape as the original source's worker classes: a tight for-loop guarded
// by ctx cancellation, sampling `version` at the top of each iteration and
// backing off briefly when nothing new has arrived.
package workers

import (
	"context"
	"time"
)

// edgeBackoff is the sleep applied when a worker polls a version counter
// and finds it unchanged, matching the original source's 1ms edge-wait.
const edgeBackoff = time.Millisecond

// waitForEdge blocks until cur() differs from last, ctx is cancelled, or
// the edgeBackoff timer fires once per unchanged sample. Returns the new
// version and false if ctx was cancelled first.
func waitForEdge(ctx context.Context, last uint64, cur func() uint64) (uint64, bool) {
	for {
		v := cur()
		if v != last {
			return v, true
		}
		select {
		case <-ctx.Done():
			return v, false
		case <-time.After(edgeBackoff):
		}
	}
}

// sleepUntil blocks until deadline or ctx cancellation, matching the
// original source's std::this_thread::sleep_until absolute-deadline
// scheduling for the 100Hz particle-filter loop.
func sleepUntil(ctx context.Context, deadline time.Time) bool {
	d := time.Until(deadline)
	if d <= 0 {
		return ctx.Err() == nil
	}
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return false
	case <-t.C:
		return true
	}
}
