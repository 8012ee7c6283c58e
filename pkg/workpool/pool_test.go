package workpool

import (
	"errors"
	"sync/atomic"
	"testing"
)

func TestPool_RunsSubmittedTasks(t *testing.T) {
	p := New(4)
	defer p.Close()

	var count atomic.Int64
	futures := make([]*Future, 0, 20)
	for i := 0; i < 20; i++ {
		futures = append(futures, p.Submit(func() error {
			count.Add(1)
			return nil
		}))
	}
	for _, f := range futures {
		if err := f.Wait(); err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
	}
	if count.Load() != 20 {
		t.Errorf("count = %d, want 20", count.Load())
	}
}

func TestPool_PropagatesTaskError(t *testing.T) {
	p := New(1)
	defer p.Close()

	wantErr := errors.New("write failed")
	f := p.Submit(func() error { return wantErr })
	if err := f.Wait(); err != wantErr {
		t.Errorf("Wait() = %v, want %v", err, wantErr)
	}
}

func TestPool_CloseDrainsQueueBeforeExit(t *testing.T) {
	p := New(1)
	var count atomic.Int64
	futures := make([]*Future, 0, 10)
	for i := 0; i < 10; i++ {
		futures = append(futures, p.Submit(func() error {
			count.Add(1)
			return nil
		}))
	}
	p.Close()
	for _, f := range futures {
		f.Wait()
	}
	if count.Load() != 10 {
		t.Errorf("count = %d, want 10 (Close must drain the queue)", count.Load())
	}
}
