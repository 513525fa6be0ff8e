package mosaic

import (
	"sync"
)

// ConcLimiter bounds the number of concurrently running fetch workers with
// a token pool and tracks them with an embedded WaitGroup so a batch can
// join on all of its members.
type ConcLimiter struct {
	*sync.WaitGroup
	Pool chan struct{}
}

func NewConcLimiter(cLevel int) *ConcLimiter {
	var wg sync.WaitGroup
	return &ConcLimiter{&wg, make(chan struct{}, cLevel)}
}

func (c *ConcLimiter) Increase() {
	c.Add(1)
	c.Pool <- struct{}{}
}

func (c *ConcLimiter) Decrease() {
	<-c.Pool
	c.Done()
}
