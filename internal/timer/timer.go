package timer

import "time"

// Timer is a handle to a registered callback. Stop is idempotent.
type Timer interface {
	Stop()
}

// Scheduler registers wall-clock callbacks. Callbacks never run concurrently
// with each other; implementations run them one at a time to completion.
type Scheduler interface {
	Now() time.Time
	AfterFunc(d time.Duration, fn func()) Timer
	Every(d time.Duration, fn func()) Timer
}

// Stop stops t if it is non-nil. It lets owners clear optional handles
// without a nil check at every call site.
func Stop(t Timer) {
	if t != nil {
		t.Stop()
	}
}
