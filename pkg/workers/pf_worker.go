package workers

import (
	"context"
	"time"

	"github.com/pinecone-robotics/sentry-core/internal/log"
	"github.com/pinecone-robotics/sentry-core/pkg/pf"
	"github.com/pinecone-robotics/sentry-core/pkg/registry"
	"github.com/pinecone-robotics/sentry-core/pkg/state"
)

// PFPeriod is the fixed particle-filter tick rate.
const PFPeriod = 10 * time.Millisecond

// PFWorker runs the particle filter kernel at a strict 100Hz, consuming a
// fresh Detection snapshot when one has arrived since the last tick and
// otherwise predicting the cloud forward on its own.
type PFWorker struct {
	Filter *pf.Filter
	Shared *registry.SharedLatest

	lastDetVer    uint64
	lastTick      time.Time
	lastMeasStamp time.Time
}

// Run blocks on an absolute-deadline 10ms loop until ctx is cancelled.
func (w *PFWorker) Run(ctx context.Context) {
	logger := log.Component("pf")
	logger.Info("started")
	defer func() {
		logger.Info("stopped", "version", w.Shared.PF.Version())
	}()

	next := time.Now()
	for {
		next = next.Add(PFPeriod)

		curVer := w.Shared.Detection.Version()
		hasNew := curVer != w.lastDetVer

		now := time.Now()
		dt := PFPeriod.Seconds()
		if !w.lastTick.IsZero() {
			dt = now.Sub(w.lastTick).Seconds()
		}
		w.lastTick = now

		var out state.RobotState
		consumed := false
		if hasNew {
			w.lastDetVer = curVer
			if det, _, ok := w.Shared.Detection.Snapshot(); ok {
				out = w.Filter.Step(det, dt)
				w.lastMeasStamp = det.Timestamp
				consumed = true
			}
		}
		if !consumed {
			out = w.Filter.Predict(dt)
		}
		// pf.timestamp carries the CameraFrame timestamp that produced the
		// measurement, not the wall clock of this tick, per the shared-state
		// contract; before any detection has arrived there is no measurement
		// to carry, so the first few ticks fall back to now.
		out.Timestamp = w.lastMeasStamp
		if out.Timestamp.IsZero() {
			out.Timestamp = now
		}
		w.Shared.PF.Publish(out)

		if !sleepUntil(ctx, next) {
			return
		}
	}
}
