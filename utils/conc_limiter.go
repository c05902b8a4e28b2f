package utils

import (
	"sync"
)

// ConcLimiter runs functions on goroutines, a bounded number at a time,
// and keeps the first error they return.
type ConcLimiter struct {
	wg   sync.WaitGroup
	pool chan struct{}

	mu  sync.Mutex
	err error
}

func NewConcLimiter(cLevel int) *ConcLimiter {
	if cLevel < 1 {
		cLevel = 1
	}
	return &ConcLimiter{pool: make(chan struct{}, cLevel)}
}

// Go blocks until a slot is free, then runs f on its own goroutine.
// Once a function has failed, the rest are skipped.
func (c *ConcLimiter) Go(f func() error) {
	c.pool <- struct{}{}
	c.wg.Add(1)
	go func() {
		defer func() {
			<-c.pool
			c.wg.Done()
		}()
		if c.Err() != nil {
			return
		}
		if err := f(); err != nil {
			c.mu.Lock()
			if c.err == nil {
				c.err = err
			}
			c.mu.Unlock()
		}
	}()
}

func (c *ConcLimiter) Err() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.err
}

// Wait waits for every started function and returns the first error.
func (c *ConcLimiter) Wait() error {
	c.wg.Wait()
	return c.Err()
}
