package nats

import "sync"

// Dispatcher fans subscription handlers out to a bounded number of
// goroutines. NATS delivers async-subscription messages from a single
// dispatch goroutine, so without this fan-out a worker process never runs
// more than one task at a time. Go blocks when all slots are busy, which
// backpressures message delivery instead of buffering unbounded work.
type Dispatcher struct {
	slots chan struct{}
	wg    sync.WaitGroup
}

func NewDispatcher(concurrency int) *Dispatcher {
	if concurrency <= 0 {
		concurrency = 1
	}
	return &Dispatcher{slots: make(chan struct{}, concurrency)}
}

// Go runs fn on its own goroutine once a slot frees up.
func (d *Dispatcher) Go(fn func()) {
	d.slots <- struct{}{}
	d.wg.Add(1)
	go func() {
		defer func() {
			<-d.slots
			d.wg.Done()
		}()
		fn()
	}()
}

// Wait blocks until every dispatched function has returned. Called after the
// subscription drains so in-flight tasks finish before the process exits.
func (d *Dispatcher) Wait() {
	d.wg.Wait()
}
