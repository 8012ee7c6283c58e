package vision

import "testing"

func TestRefineKeypoints_ClampsToFrameBounds(t *testing.T) {
	kps := [][2]float64{
		{-5, -5},
		{650, -5},
		{650, 650},
		{-5, 650},
	}
	out := refineKeypoints(kps, 640, 480)
	want := [][2]float64{
		{0, 0},
		{640, 0},
		{640, 480},
		{0, 480},
	}
	for i := range want {
		if out[i] != want[i] {
			t.Errorf("keypoint %d = %v, want %v", i, out[i], want[i])
		}
	}
}

func TestRefineKeypoints_LeavesInBoundsUnchanged(t *testing.T) {
	kps := [][2]float64{{10, 20}, {30, 40}}
	out := refineKeypoints(kps, 640, 480)
	for i := range kps {
		if out[i] != kps[i] {
			t.Errorf("keypoint %d = %v, want unchanged %v", i, out[i], kps[i])
		}
	}
}

func TestDefaultConfig_HasSaneDimensions(t *testing.T) {
	cfg := DefaultConfig()
	if cfg.InputWidth <= 0 || cfg.InputHeight <= 0 {
		t.Error("expected positive model input dimensions")
	}
	if cfg.ArmorWidth <= 0 || cfg.ArmorHeight <= 0 {
		t.Error("expected positive physical armor dimensions")
	}
}
