package timer

import (
	"sync"
	"sync/atomic"
	"time"
)

// Loop is a single-goroutine event loop. Posted jobs and timer callbacks run
// one at a time on the loop goroutine. AfterFunc, Every and Stop must be
// called from the loop goroutine; Post and Do are safe from anywhere.
type Loop struct {
	jobs    chan func()
	done    chan struct{}
	stopped chan struct{}
	once    sync.Once
	started atomic.Bool
}

// NewLoop creates a loop with the given job queue capacity.
func NewLoop(queue int) *Loop {
	if queue <= 0 {
		queue = 64
	}
	return &Loop{
		jobs:    make(chan func(), queue),
		done:    make(chan struct{}),
		stopped: make(chan struct{}),
	}
}

// Start runs the loop in a new goroutine. Calling Start twice is a no-op.
func (l *Loop) Start() {
	if !l.started.CompareAndSwap(false, true) {
		return
	}
	go l.run()
}

func (l *Loop) run() {
	defer close(l.stopped)
	for {
		select {
		case fn := <-l.jobs:
			select {
			case <-l.done:
				return
			default:
			}
			fn()
		case <-l.done:
			return
		}
	}
}

// Post enqueues fn. Returns false if the loop is closed.
func (l *Loop) Post(fn func()) bool {
	select {
	case <-l.done:
		return false
	default:
	}
	select {
	case l.jobs <- fn:
		return true
	case <-l.done:
		return false
	}
}

// Do enqueues fn and waits for it to finish. Returns false if the loop was
// closed before fn ran.
func (l *Loop) Do(fn func()) bool {
	finished := make(chan struct{})
	if !l.Post(func() {
		defer close(finished)
		fn()
	}) {
		return false
	}
	select {
	case <-finished:
		return true
	case <-l.stopped:
		return false
	}
}

// Close stops the loop. Jobs still queued are dropped.
func (l *Loop) Close() {
	l.once.Do(func() {
		close(l.done)
	})
	if l.started.Load() {
		<-l.stopped
	}
}

// Now returns the wall-clock time.
func (l *Loop) Now() time.Time {
	return time.Now()
}

// AfterFunc runs fn on the loop once d has elapsed.
func (l *Loop) AfterFunc(d time.Duration, fn func()) Timer {
	return l.schedule(d, 0, fn)
}

// Every runs fn on the loop every d until stopped.
func (l *Loop) Every(d time.Duration, fn func()) Timer {
	return l.schedule(d, d, fn)
}

func (l *Loop) schedule(d, every time.Duration, fn func()) Timer {
	lt := &loopTimer{loop: l, every: every, fn: fn}
	lt.mu.Lock()
	lt.t = time.AfterFunc(d, lt.fire)
	lt.mu.Unlock()
	return lt
}

type loopTimer struct {
	loop    *Loop
	every   time.Duration
	fn      func()
	mu      sync.Mutex
	t       *time.Timer
	stopped atomic.Bool
}

// fire runs on the runtime timer goroutine and hands the callback to the loop.
func (lt *loopTimer) fire() {
	if lt.stopped.Load() {
		return
	}
	lt.loop.Post(func() {
		// Stopped between posting and running.
		if lt.stopped.Load() {
			return
		}
		if lt.every == 0 {
			lt.stopped.Store(true)
		}
		lt.fn()
		if lt.every > 0 && !lt.stopped.Load() {
			lt.mu.Lock()
			lt.t.Reset(lt.every)
			lt.mu.Unlock()
		}
	})
}

func (lt *loopTimer) Stop() {
	if lt.stopped.Swap(true) {
		return
	}
	lt.mu.Lock()
	lt.t.Stop()
	lt.mu.Unlock()
}
