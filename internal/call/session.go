package call

import (
	"errors"
	"fmt"
	"slices"
	"strings"
	"time"

	"github.com/matheus3301/spark/internal/message"
	"github.com/matheus3301/spark/internal/timer"
)

const (
	DefaultConnectDelay = 3 * time.Second
	DefaultTick         = time.Second
)

var (
	ErrInvalidTransition = errors.New("invalid call transition")
	ErrUnknownType       = errors.New("unknown call type")
)

// Status of the call state machine. Idle is both initial and terminal.
type Status string

const (
	Idle     Status = "IDLE"
	Outgoing Status = "OUTGOING"
	Incoming Status = "INCOMING"
	Active   Status = "ACTIVE"
)

// validTransitions defines allowed state transitions.
var validTransitions = map[Status][]Status{
	Idle:     {Outgoing, Incoming},
	Outgoing: {Active, Idle},
	Incoming: {Active, Idle},
	Active:   {Idle},
}

// Type is voice or video.
type Type = message.CallType

const (
	Voice = message.VoiceCall
	Video = message.VideoCall
)

// ParseType accepts call type names case-insensitively.
func ParseType(s string) (Type, error) {
	switch t := Type(strings.ToUpper(strings.TrimSpace(s))); t {
	case Voice, Video:
		return t, nil
	default:
		return "", fmt.Errorf("%w: %q", ErrUnknownType, s)
	}
}

// Log describes a terminated call.
type Log struct {
	Type      Type
	Direction string
	Outcome   message.CallOutcome
	Elapsed   time.Duration
}

// Info converts the log into message call info.
func (l Log) Info() *message.CallInfo {
	return &message.CallInfo{
		Type:      l.Type,
		Duration:  message.FormatDuration(l.Elapsed),
		Outcome:   l.Outcome,
		Direction: l.Direction,
	}
}

// View is an immutable copy of the call for presentation.
type View struct {
	Status    Status
	Type      Type
	Direction string
	Elapsed   time.Duration
	MicMuted  bool
	CameraOff bool
}

// Session is the voice/video call state machine of one conversation.
type Session struct {
	sched        timer.Scheduler
	connectDelay time.Duration
	tickEvery    time.Duration

	status    Status
	typ       Type
	direction string
	elapsed   time.Duration
	micMuted  bool
	cameraOff bool

	connect  timer.Timer
	ticker   timer.Timer
	onChange func(View)
}

// Config holds call timings; zero values use the defaults.
type Config struct {
	ConnectDelay time.Duration
	Tick         time.Duration
}

// NewSession creates an idle call session.
func NewSession(sched timer.Scheduler, cfg Config) *Session {
	if cfg.ConnectDelay <= 0 {
		cfg.ConnectDelay = DefaultConnectDelay
	}
	if cfg.Tick <= 0 {
		cfg.Tick = DefaultTick
	}
	return &Session{
		sched:        sched,
		connectDelay: cfg.ConnectDelay,
		tickEvery:    cfg.Tick,
		status:       Idle,
	}
}

// OnChange registers a callback invoked on every transition and tick.
func (s *Session) OnChange(fn func(View)) {
	s.onChange = fn
}

// Status returns the current status.
func (s *Session) Status() Status {
	return s.status
}

// View returns the current state.
func (s *Session) View() View {
	return View{
		Status:    s.status,
		Type:      s.typ,
		Direction: s.direction,
		Elapsed:   s.elapsed,
		MicMuted:  s.micMuted,
		CameraOff: s.cameraOff,
	}
}

func (s *Session) transition(to Status) error {
	if !slices.Contains(validTransitions[s.status], to) {
		return fmt.Errorf("%w: %s -> %s", ErrInvalidTransition, s.status, to)
	}
	from := s.status
	s.status = to
	if from == Active {
		timer.Stop(s.ticker)
		s.ticker = nil
	}
	if to == Active {
		s.ticker = s.sched.Every(s.tickEvery, s.tick)
	}
	if to == Idle {
		timer.Stop(s.connect)
		s.connect = nil
		s.elapsed = 0
	}
	return nil
}

// StartOutgoing dials the peer. The call becomes active after the connect
// delay unless it was ended first.
func (s *Session) StartOutgoing(t Type) error {
	if t != Voice && t != Video {
		return fmt.Errorf("%w: %q", ErrUnknownType, t)
	}
	if err := s.transition(Outgoing); err != nil {
		return err
	}
	s.typ = t
	s.direction = "outgoing"
	s.micMuted = false
	s.cameraOff = false
	s.connect = s.sched.AfterFunc(s.connectDelay, func() {
		s.connect = nil
		if s.status != Outgoing {
			return
		}
		if s.transition(Active) == nil {
			s.changed()
		}
	})
	s.changed()
	return nil
}

// ReceiveIncoming rings for an incoming call. Only legal while idle.
func (s *Session) ReceiveIncoming(t Type) error {
	if t != Voice && t != Video {
		return fmt.Errorf("%w: %q", ErrUnknownType, t)
	}
	if err := s.transition(Incoming); err != nil {
		return err
	}
	s.typ = t
	s.direction = "incoming"
	s.micMuted = false
	s.cameraOff = false
	s.changed()
	return nil
}

// Accept answers a ringing incoming call.
func (s *Session) Accept() error {
	if s.status != Incoming {
		return fmt.Errorf("%w: accept while %s", ErrInvalidTransition, s.status)
	}
	if err := s.transition(Active); err != nil {
		return err
	}
	s.changed()
	return nil
}

// End hangs up from any non-idle state and returns the call log. Ending a
// ringing call, or a dial that never connected, is a missed call.
func (s *Session) End() (Log, bool) {
	if s.status == Idle {
		return Log{}, false
	}
	from := s.status
	l := Log{Type: s.typ, Direction: s.direction, Elapsed: s.elapsed, Outcome: message.Completed}
	if from == Incoming || (from == Outgoing && s.elapsed == 0) {
		l.Outcome = message.Missed
	}
	_ = s.transition(Idle)
	s.changed()
	return l, true
}

// ToggleMic flips the mute flag while active.
func (s *Session) ToggleMic() bool {
	if s.status != Active {
		return false
	}
	s.micMuted = !s.micMuted
	s.changed()
	return true
}

// ToggleCamera flips the camera flag during an active video call.
func (s *Session) ToggleCamera() bool {
	if s.status != Active || s.typ != Video {
		return false
	}
	s.cameraOff = !s.cameraOff
	s.changed()
	return true
}

// Close cancels all timers and drops callbacks without producing a log.
func (s *Session) Close() {
	timer.Stop(s.connect)
	timer.Stop(s.ticker)
	s.connect = nil
	s.ticker = nil
	s.onChange = nil
}

func (s *Session) tick() {
	if s.status != Active {
		return
	}
	s.elapsed += s.tickEvery
	s.changed()
}

func (s *Session) changed() {
	if s.onChange != nil {
		s.onChange(s.View())
	}
}
