package recording

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/matheus3301/spark/internal/timer"
)

// DefaultTick is the recording clock resolution.
const DefaultTick = 250 * time.Millisecond

var (
	ErrAlreadyRecording = errors.New("recording already in progress")
	ErrUnknownMode      = errors.New("unknown recording mode")
)

// Mode selects what is being captured.
type Mode string

const (
	Audio Mode = "AUDIO"
	Video Mode = "VIDEO"
)

// ParseMode accepts mode names case-insensitively.
func ParseMode(s string) (Mode, error) {
	switch m := Mode(strings.ToUpper(strings.TrimSpace(s))); m {
	case Audio, Video:
		return m, nil
	default:
		return "", fmt.Errorf("%w: %q", ErrUnknownMode, s)
	}
}

// MaxDuration is the per-mode recording cap.
func MaxDuration(m Mode) time.Duration {
	switch m {
	case Audio:
		return 60 * time.Second
	case Video:
		return 15 * time.Second
	default:
		return 0
	}
}

// State of a recording.
type State string

const (
	Idle      State = "IDLE"
	Recording State = "RECORDING"
	Sent      State = "SENT"
	Cancelled State = "CANCELLED"
)

// Result describes a finished recording.
type Result struct {
	Mode    Mode
	Elapsed time.Duration
	Send    bool
	Auto    bool // stopped by the duration cap
}

// View is an immutable copy of the session for presentation.
type View struct {
	Mode    Mode
	State   State
	Elapsed time.Duration
	Max     time.Duration
}

// Session captures a single audio or video message at a time.
type Session struct {
	sched    timer.Scheduler
	tick     time.Duration
	state    State
	mode     Mode
	elapsed  time.Duration
	ticker   timer.Timer
	onFinish func(Result)
	onTick   func(View)
}

// NewSession creates an idle session. A zero tick uses DefaultTick.
func NewSession(sched timer.Scheduler, tick time.Duration) *Session {
	if tick <= 0 {
		tick = DefaultTick
	}
	return &Session{sched: sched, tick: tick, state: Idle}
}

// OnFinish registers the callback for every stop, manual or automatic.
func (s *Session) OnFinish(fn func(Result)) {
	s.onFinish = fn
}

// OnTick registers a callback invoked after each clock tick.
func (s *Session) OnTick(fn func(View)) {
	s.onTick = fn
}

// Active reports whether a recording is running.
func (s *Session) Active() bool {
	return s.state == Recording
}

// View returns the current state.
func (s *Session) View() View {
	return View{Mode: s.mode, State: s.state, Elapsed: s.elapsed, Max: MaxDuration(s.mode)}
}

// Start begins recording in mode.
func (s *Session) Start(mode Mode) error {
	if s.state == Recording {
		return ErrAlreadyRecording
	}
	if MaxDuration(mode) == 0 {
		return fmt.Errorf("%w: %q", ErrUnknownMode, mode)
	}
	s.state = Recording
	s.mode = mode
	s.elapsed = 0
	s.ticker = s.sched.Every(s.tick, s.advance)
	return nil
}

func (s *Session) advance() {
	if s.state != Recording {
		return
	}
	s.elapsed += s.tick
	if s.elapsed >= MaxDuration(s.mode) {
		s.elapsed = MaxDuration(s.mode)
		s.finish(true, true)
		return
	}
	if s.onTick != nil {
		s.onTick(s.View())
	}
}

// Stop ends the recording, sending the clip if send is true. Returns false
// when nothing was recording.
func (s *Session) Stop(send bool) (Result, bool) {
	if s.state != Recording {
		return Result{}, false
	}
	return s.finish(send, false), true
}

// Cancel discards the recording.
func (s *Session) Cancel() bool {
	_, ok := s.Stop(false)
	return ok
}

// Close stops the clock without reporting a result.
func (s *Session) Close() {
	timer.Stop(s.ticker)
	s.ticker = nil
	if s.state == Recording {
		s.state = Cancelled
	}
	s.onFinish = nil
	s.onTick = nil
}

func (s *Session) finish(send, auto bool) Result {
	timer.Stop(s.ticker)
	s.ticker = nil
	if send {
		s.state = Sent
	} else {
		s.state = Cancelled
	}
	r := Result{Mode: s.mode, Elapsed: s.elapsed, Send: send, Auto: auto}
	if s.onFinish != nil {
		s.onFinish(r)
	}
	return r
}
