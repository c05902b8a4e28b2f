package utils

import (
	"errors"
	"sync/atomic"
	"testing"
	"time"
)

func TestConcLimiter(t *testing.T) {
	limiter := NewConcLimiter(3)
	var running, peak, done int32
	for i := 0; i < 20; i++ {
		limiter.Go(func() error {
			n := atomic.AddInt32(&running, 1)
			for {
				p := atomic.LoadInt32(&peak)
				if n <= p || atomic.CompareAndSwapInt32(&peak, p, n) {
					break
				}
			}
			time.Sleep(time.Millisecond)
			atomic.AddInt32(&running, -1)
			atomic.AddInt32(&done, 1)
			return nil
		})
	}
	if err := limiter.Wait(); err != nil {
		t.Fatal(err)
	}
	if done != 20 {
		t.Errorf("expected 20 functions to run, got %d", done)
	}
	if peak > 3 {
		t.Errorf("expected at most 3 concurrent functions, got %d", peak)
	}
}

func TestConcLimiterError(t *testing.T) {
	limiter := NewConcLimiter(1)
	failure := errors.New("failed")
	var after int32
	limiter.Go(func() error { return failure })
	limiter.Go(func() error {
		atomic.AddInt32(&after, 1)
		return nil
	})
	if err := limiter.Wait(); err != failure {
		t.Errorf("expected the first error, got %v", err)
	}
	if after != 0 {
		t.Error("expected functions after a failure to be skipped")
	}
}
