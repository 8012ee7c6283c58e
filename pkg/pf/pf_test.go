package pf

import (
	"math"
	"testing"

	"golang.org/x/exp/rand"

	"github.com/pinecone-robotics/sentry-core/pkg/state"
)

func newTestFilter() *Filter {
	cfg := DefaultConfig()
	cfg.ParticleCount = 500
	cfg.Source = rand.NewSource(42)
	return New(cfg)
}

func TestFilter_ResetCentersOnMeasurement(t *testing.T) {
	f := newTestFilter()
	var meas state.RobotState
	meas.State[state.IX] = 3
	meas.State[state.IZ] = 5
	meas.ClassID = 7
	f.Reset(meas)

	got := f.mean()
	if math.Abs(got.State[state.IX]-3) > 1e-9 || math.Abs(got.State[state.IZ]-5) > 1e-9 {
		t.Errorf("mean after reset = %+v, want centred on (3,_,5)", got.State)
	}
	if got.ClassID != 7 {
		t.Errorf("ClassID = %d, want 7", got.ClassID)
	}
}

func TestFilter_PredictAdvancesPositionByVelocity(t *testing.T) {
	f := newTestFilter()
	var meas state.RobotState
	meas.State[state.IVX] = 2
	f.Reset(meas)

	out := f.Predict(1.0)
	if math.Abs(out.State[state.IX]-2) > 0.5 {
		t.Errorf("predicted x = %v, want near 2 (dt=1, vx=2)", out.State[state.IX])
	}
}

func TestFilter_StepPullsCloudTowardMeasurement(t *testing.T) {
	f := newTestFilter()
	var seed state.RobotState
	f.Reset(seed)

	var meas state.RobotState
	meas.State[state.IX] = 10
	meas.State[state.IZ] = 10

	var out state.RobotState
	for i := 0; i < 20; i++ {
		out = f.Step(meas, 0.01)
	}
	if math.Abs(out.State[state.IX]-10) > 1.0 {
		t.Errorf("after repeated steps, x = %v, want near 10", out.State[state.IX])
	}
}

func TestFilter_StepHonoursPFReset(t *testing.T) {
	f := newTestFilter()
	var seed state.RobotState
	seed.State[state.IX] = 100
	f.Reset(seed)

	var meas state.RobotState
	meas.State[state.IX] = -5
	meas.PFState = state.PFReset

	out := f.Step(meas, 0.01)
	if math.Abs(out.State[state.IX]-(-5)) > 1e-9 {
		t.Errorf("Step with PFReset = %v, want cloud reset onto -5", out.State[state.IX])
	}
}

// TestFilter_StepRunsPredictAfterReset pins the reset measurement's velocity
// nonzero so a Step that stops at Reset (returning the raw measurement) is
// distinguishable from one that falls through into propagate/reweight/
// resample/mean afterward: the former leaves position untouched, the latter
// advances it by v*dt.
func TestFilter_StepRunsPredictAfterReset(t *testing.T) {
	f := newTestFilter()
	var seed state.RobotState
	f.Reset(seed)

	var meas state.RobotState
	meas.State[state.IX] = 0
	meas.State[state.IVX] = 5
	meas.PFState = state.PFReset

	out := f.Step(meas, 1.0)
	if math.Abs(out.State[state.IX]) < 1.0 {
		t.Errorf("Step with PFReset returned raw measurement (x=%v) instead of running predict-then-update after reset", out.State[state.IX])
	}
	if math.Abs(out.State[state.IX]-5) > 1.0 {
		t.Errorf("after reset+step with vx=5, dt=1, x = %v, want near 5", out.State[state.IX])
	}
}
