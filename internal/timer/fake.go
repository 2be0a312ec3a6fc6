package timer

import (
	"sort"
	"time"
)

// Fake is a virtual-time Scheduler for tests. Nothing fires until Advance is
// called. Not safe for concurrent use.
type Fake struct {
	now    time.Time
	seq    int
	timers []*fakeTimer
}

// NewFake creates a fake scheduler whose clock starts at start.
func NewFake(start time.Time) *Fake {
	return &Fake{now: start}
}

type fakeTimer struct {
	fake    *Fake
	due     time.Time
	every   time.Duration
	seq     int
	fn      func()
	stopped bool
}

func (t *fakeTimer) Stop() {
	if t.stopped {
		return
	}
	t.stopped = true
	t.fake.remove(t)
}

// Now returns the virtual time.
func (f *Fake) Now() time.Time {
	return f.now
}

// AfterFunc registers fn to run once d of virtual time has passed.
func (f *Fake) AfterFunc(d time.Duration, fn func()) Timer {
	return f.add(d, 0, fn)
}

// Every registers fn to run every d of virtual time.
func (f *Fake) Every(d time.Duration, fn func()) Timer {
	return f.add(d, d, fn)
}

func (f *Fake) add(d, every time.Duration, fn func()) *fakeTimer {
	if d < 0 {
		d = 0
	}
	f.seq++
	t := &fakeTimer{fake: f, due: f.now.Add(d), every: every, seq: f.seq, fn: fn}
	f.timers = append(f.timers, t)
	return t
}

func (f *Fake) remove(t *fakeTimer) {
	for i, ft := range f.timers {
		if ft == t {
			f.timers = append(f.timers[:i], f.timers[i+1:]...)
			return
		}
	}
}

// Advance moves the clock forward by d, firing every timer that comes due in
// due-time order. Timers registered by callbacks fire too if they come due
// before the target time.
func (f *Fake) Advance(d time.Duration) {
	target := f.now.Add(d)
	for {
		next := f.next(target)
		if next == nil {
			break
		}
		f.now = next.due
		if next.every > 0 {
			f.seq++
			next.seq = f.seq
			next.due = next.due.Add(next.every)
		} else {
			next.stopped = true
			f.remove(next)
		}
		next.fn()
	}
	f.now = target
}

func (f *Fake) next(target time.Time) *fakeTimer {
	if len(f.timers) == 0 {
		return nil
	}
	sort.SliceStable(f.timers, func(i, j int) bool {
		if f.timers[i].due.Equal(f.timers[j].due) {
			return f.timers[i].seq < f.timers[j].seq
		}
		return f.timers[i].due.Before(f.timers[j].due)
	})
	if f.timers[0].due.After(target) {
		return nil
	}
	return f.timers[0]
}

// Pending returns the number of live timers.
func (f *Fake) Pending() int {
	return len(f.timers)
}
