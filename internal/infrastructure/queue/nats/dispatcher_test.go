package nats

import (
	"sync/atomic"
	"testing"
	"time"
)

func TestDispatcherRunsTasksConcurrently(t *testing.T) {
	d := NewDispatcher(2)

	firstDone := make(chan struct{})
	secondStarted := make(chan struct{})

	// The first task only finishes once the second has started, so the test
	// deadlocks unless both run at the same time.
	d.Go(func() {
		<-secondStarted
		close(firstDone)
	})
	d.Go(func() {
		close(secondStarted)
		<-firstDone
	})

	done := make(chan struct{})
	go func() {
		d.Wait()
		close(done)
	}()
	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatalf("tasks did not overlap within one process")
	}
}

func TestDispatcherBlocksWhenSlotsAreFull(t *testing.T) {
	d := NewDispatcher(2)

	release := make(chan struct{})
	started := make(chan int, 3)
	for i := 1; i <= 2; i++ {
		d.Go(func() {
			started <- i
			<-release
		})
	}
	<-started
	<-started

	thirdDispatched := make(chan struct{})
	go func() {
		d.Go(func() {
			started <- 3
			<-release
		})
		close(thirdDispatched)
	}()

	select {
	case <-started:
		t.Fatalf("third task must wait for a free slot")
	case <-time.After(50 * time.Millisecond):
	}

	close(release)
	<-thirdDispatched
	if got := <-started; got != 3 {
		t.Fatalf("expected third task to run after release, got %d", got)
	}
	d.Wait()
}

func TestDispatcherWaitSeesEveryTask(t *testing.T) {
	d := NewDispatcher(3)

	var completed atomic.Int32
	for i := 0; i < 9; i++ {
		d.Go(func() {
			completed.Add(1)
		})
	}
	d.Wait()
	if got := completed.Load(); got != 9 {
		t.Fatalf("expected 9 completed tasks after Wait, got %d", got)
	}
}
