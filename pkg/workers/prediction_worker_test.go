package workers

import (
	"context"
	"math"
	"testing"
	"time"

	"github.com/pinecone-robotics/sentry-core/pkg/gimbal"
	"github.com/pinecone-robotics/sentry-core/pkg/prediction"
	"github.com/pinecone-robotics/sentry-core/pkg/registry"
	"github.com/pinecone-robotics/sentry-core/pkg/state"
)

// TestPredictionWorker_BallisticDropUsesFullNorm pins a RobotState with
// nonzero x and z components and no IMU sample, so the world-to-camera
// rotation is the identity and camPos == worldPos exactly. With a
// zero-velocity, zero-acceleration state the lead-time convergence is
// time-invariant, so the resulting camPos is known ahead of time: (3, 0, 4).
// The z-only bug computes BallisticDrop(4, ...); the fix computes
// BallisticDrop(5, ...) off the full Euclidean norm. The two diverge, which
// is what this test asserts.
func TestPredictionWorker_BallisticDropUsesFullNorm(t *testing.T) {
	shared := registry.New()
	scalars := &registry.SharedScalars{}
	scalars.SetBulletSpeed(20)

	var rs state.RobotState
	rs.State[state.IX] = 3
	rs.State[state.IZ] = 4
	shared.PF.Publish(rs)

	w := &PredictionWorker{Shared: shared, Scalars: scalars, Limits: gimbal.DefaultLimits()}

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()
	w.Run(ctx)

	out, _, ok := shared.Prediction.Snapshot()
	if !ok {
		t.Fatal("expected a published PredictionOut")
	}

	const wrongDist = 4.0
	const rightDist = 5.0 // math.Sqrt(3*3+0*0+4*4)

	wrongDrop := prediction.BallisticDrop(wrongDist, 20)
	rightDrop := prediction.BallisticDrop(rightDist, 20)
	if wrongDrop == rightDrop {
		t.Fatal("test fixture degenerate: wrong and right distances give the same drop")
	}

	wantYaw, wantPitch := prediction.GimbalCorrection([3]float64{3, rightDrop, 4})
	wantYaw, wantPitch = gimbal.DefaultLimits().Clamp(wantYaw, wantPitch)

	badYaw, badPitch := prediction.GimbalCorrection([3]float64{3, wrongDrop, 4})
	badYaw, badPitch = gimbal.DefaultLimits().Clamp(badYaw, badPitch)

	const eps = 1e-9
	if math.Abs(out.YawCmd-wantYaw) > eps || math.Abs(out.PitchCmd-wantPitch) > eps {
		t.Fatalf("got yaw=%v pitch=%v, want yaw=%v pitch=%v (full-norm distance %v)",
			out.YawCmd, out.PitchCmd, wantYaw, wantPitch, rightDist)
	}
	if math.Abs(out.PitchCmd-badPitch) < eps && badPitch != wantPitch {
		t.Fatalf("pitch command matches the z-only distance bug: got %v", out.PitchCmd)
	}
}
