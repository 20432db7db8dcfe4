package sim

import (
	"context"
	"sync"
	"time"
)

// Task is a running recurring job.
type Task interface {
	// Cancel stops the task. It returns after any in-flight run has finished
	// and is safe to call more than once. It must not be called from inside
	// the task's own callback; return false from the callback instead.
	Cancel()
}

// Scheduler runs fn every period until fn returns false or the task is cancelled.
type Scheduler interface {
	Every(period time.Duration, fn func() bool) Task
}

// TickerScheduler drives tasks from a time.Ticker in one goroutine per task.
type TickerScheduler struct{}

func (TickerScheduler) Every(period time.Duration, fn func() bool) Task {
	ctx, cancel := context.WithCancel(context.Background())
	t := &tickerTask{cancel: cancel, done: make(chan struct{})}
	go t.run(ctx, period, fn)
	return t
}

type tickerTask struct {
	mu      sync.Mutex // held for the duration of each run
	stopped bool
	cancel  context.CancelFunc
	done    chan struct{}
}

func (t *tickerTask) run(ctx context.Context, period time.Duration, fn func() bool) {
	defer close(t.done)
	tick := time.NewTicker(period)
	defer tick.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-tick.C:
		}
		t.mu.Lock()
		if t.stopped {
			t.mu.Unlock()
			return
		}
		more := fn()
		if !more {
			t.stopped = true
		}
		t.mu.Unlock()
		if !more {
			return
		}
	}
}

func (t *tickerTask) Cancel() {
	t.mu.Lock()
	t.stopped = true
	t.mu.Unlock()
	t.cancel()
	<-t.done
}
