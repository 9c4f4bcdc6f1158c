package worker

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
)

func TestWorkerPool_RunsSubmittedJobs(t *testing.T) {
	pool := NewWorkerPool(2)
	pool.Start(context.Background())

	var ran int32
	for i := 0; i < 10; i++ {
		fail := i%2 == 0
		ok := pool.Submit(func(context.Context) error {
			atomic.AddInt32(&ran, 1)
			if fail {
				return errors.New("boom")
			}
			return nil
		})
		if !ok {
			t.Fatalf("Submit() = false, want queued")
		}
	}

	pool.Stop()
	pool.Stop()

	if ran != 10 {
		t.Errorf("ran = %d, want 10", ran)
	}
}

func TestWorkerPool_DropsWhenFull(t *testing.T) {
	pool := NewWorkerPool(1)
	noop := func(context.Context) error { return nil }

	for i := 0; i < 16; i++ {
		if !pool.Submit(noop) {
			t.Fatalf("Submit(%d) = false, want queued", i)
		}
	}
	if pool.Submit(noop) {
		t.Errorf("Submit() on full queue = true, want false")
	}
}

func TestWorkerPool_SubmitAfterStop(t *testing.T) {
	pool := NewWorkerPool(1)
	pool.Start(context.Background())
	pool.Stop()

	var ran int32
	if pool.Submit(func(context.Context) error { atomic.AddInt32(&ran, 1); return nil }) {
		t.Errorf("Submit() after Stop() = true, want false")
	}
	if atomic.LoadInt32(&ran) != 0 {
		t.Errorf("ran = %d, want 0", ran)
	}
}

func TestWorkerPool_SubmitDuringStop(t *testing.T) {
	pool := NewWorkerPool(2)
	pool.Start(context.Background())
	noop := func(context.Context) error { return nil }

	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for j := 0; j < 100; j++ {
				pool.Submit(noop)
			}
		}()
	}
	pool.Stop()
	wg.Wait()

	if pool.Submit(noop) {
		t.Errorf("Submit() after Stop() = true, want false")
	}
}
