package registry

import (
	"sync"
	"testing"

	"github.com/pinecone-robotics/sentry-core/pkg/state"
)

func TestSlot_SnapshotAbsentBeforeFirstPublish(t *testing.T) {
	var s Slot[state.RobotState]
	_, ver, ok := s.Snapshot()
	if ok {
		t.Error("expected ok=false before any publish")
	}
	if ver != 0 {
		t.Errorf("expected version 0 before any publish, got %d", ver)
	}
}

func TestSlot_VersionMonotoneAcrossPublishes(t *testing.T) {
	var s Slot[state.RobotState]
	var last uint64
	for i := 0; i < 100; i++ {
		s.Publish(state.RobotState{ClassID: i})
		v := s.Version()
		if v < last {
			t.Fatalf("version decreased: %d -> %d", last, v)
		}
		last = v
	}
}

func TestSlot_SnapshotImmutableAfterFurtherPublish(t *testing.T) {
	var s Slot[state.RobotState]
	s.Publish(state.RobotState{ClassID: 1})
	first, _, _ := s.Snapshot()

	s.Publish(state.RobotState{ClassID: 2})

	if first.ClassID != 1 {
		t.Errorf("held snapshot mutated: ClassID = %d, want 1", first.ClassID)
	}
}

func TestSlot_ConcurrentPublishAndSnapshot(t *testing.T) {
	var s Slot[state.RobotState]
	var wg sync.WaitGroup
	wg.Add(2)

	go func() {
		defer wg.Done()
		for i := 0; i < 1000; i++ {
			s.Publish(state.RobotState{ClassID: i})
		}
	}()
	go func() {
		defer wg.Done()
		for i := 0; i < 1000; i++ {
			s.Snapshot()
		}
	}()
	wg.Wait()
}

func TestSharedScalars_RoundTrip(t *testing.T) {
	var sc SharedScalars
	sc.SetBulletSpeed(23.7)
	if got := sc.BulletSpeed(); got != 23.7 {
		t.Errorf("BulletSpeed = %v, want 23.7", got)
	}
}

func TestNew_AllSlotsStartAbsent(t *testing.T) {
	shared := New()
	if _, _, ok := shared.Camera.Snapshot(); ok {
		t.Error("expected Camera slot absent on a fresh registry")
	}
	if _, _, ok := shared.Prediction.Snapshot(); ok {
		t.Error("expected Prediction slot absent on a fresh registry")
	}
}
