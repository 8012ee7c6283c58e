package prediction

import (
	"math"
	"testing"

	"github.com/pinecone-robotics/sentry-core/pkg/state"
)

func TestMotionModel_ConstantVelocity(t *testing.T) {
	var s [15]float64
	s[state.IVX] = 1
	// r1 = r2 = 0 so the ring offset vanishes.
	pos := MotionModel(s, 2)
	if math.Abs(pos[0]-2) > 1e-9 || math.Abs(pos[1]) > 1e-9 || math.Abs(pos[2]) > 1e-9 {
		t.Errorf("MotionModel = %v, want (2, 0, 0)", pos)
	}
}

func TestBallisticDrop_MatchesWorkedExample(t *testing.T) {
	// pos_cam = (0,0,10), v = 20 -> drop = 0.5*9.81*100/400 = 1.22625
	drop := BallisticDrop(10, 20)
	want := 0.5 * 9.81 * 100 / 400
	if math.Abs(drop-want) > 1e-9 {
		t.Errorf("BallisticDrop = %v, want %v", drop, want)
	}

	yawCmd, pitchCmd := GimbalCorrection([3]float64{0, drop, 10})
	if math.Abs(yawCmd) > 1e-9 {
		t.Errorf("yawCmd = %v, want 0", yawCmd)
	}
	wantPitch := math.Atan2(drop, 10)
	if math.Abs(pitchCmd-wantPitch) > 1e-9 {
		t.Errorf("pitchCmd = %v, want %v", pitchCmd, wantPitch)
	}
}

func TestConvergeLeadTime_ConvergesWithinBudget(t *testing.T) {
	cases := []struct {
		dist  float64
		speed float64
	}{
		{1, 5}, {20, 5}, {20, 40}, {5, 15}, {0.5, 40},
	}
	for _, c := range cases {
		var s [15]float64
		s[state.IX] = c.dist
		s[state.IVX] = 0.5
		tLead, pos := ConvergeLeadTime(s, c.speed, 0.02, 0.1)
		if tLead <= 0 {
			t.Errorf("dist=%v speed=%v: tLead = %v, want > 0", c.dist, c.speed, tLead)
		}
		if math.IsNaN(pos[0]) || math.IsInf(pos[0], 0) {
			t.Errorf("dist=%v speed=%v: pos = %v, not finite", c.dist, c.speed, pos)
		}
	}
}

func TestShouldFire_InsideAndOutsideWindow(t *testing.T) {
	if !ShouldFire([3]float64{0, 0, 5}) {
		t.Error("expected fire at dead centre")
	}
	if ShouldFire([3]float64{1, 0, 5}) {
		t.Error("expected no fire when far outside x tolerance")
	}
}

func TestFilter_ConvergesTowardMeasurement(t *testing.T) {
	v := 10.0
	for i := 0; i < 200; i++ {
		v = Filter(v, 20.0, AlphaBulletSpeed)
	}
	if math.Abs(v-20.0) > 1e-6 {
		t.Errorf("Filter did not converge: got %v, want ~20", v)
	}
}
