package conversation

import (
	"time"

	"github.com/google/uuid"
	"github.com/matheus3301/spark/internal/call"
	"github.com/matheus3301/spark/internal/delivery"
	"github.com/matheus3301/spark/internal/peer"
	"github.com/matheus3301/spark/internal/recording"
	"github.com/matheus3301/spark/internal/schedule"
	"go.uber.org/zap"
)

// DefaultReplyDelay is how long the peer "types" before answering.
const DefaultReplyDelay = 3500 * time.Millisecond

// DefaultCountdownInterval is how often the first-move countdown refreshes.
const DefaultCountdownInterval = time.Minute

// Timings groups every timer duration used by a session.
type Timings struct {
	Delivery         time.Duration
	Read             time.Duration
	Reply            time.Duration
	DispatchInterval time.Duration
	Countdown        time.Duration
	CallConnect      time.Duration
	CallTick         time.Duration
	RecordingTick    time.Duration
}

// DefaultTimings returns the production timer durations.
func DefaultTimings() Timings {
	return Timings{
		Delivery:         delivery.DefaultDeliveryDelay,
		Read:             delivery.DefaultReadDelay,
		Reply:            DefaultReplyDelay,
		DispatchInterval: schedule.DefaultInterval,
		Countdown:        DefaultCountdownInterval,
		CallConnect:      call.DefaultConnectDelay,
		CallTick:         call.DefaultTick,
		RecordingTick:    recording.DefaultTick,
	}
}

// withDefaults fills zero durations from DefaultTimings.
func (t Timings) withDefaults() Timings {
	d := DefaultTimings()
	fill := func(v *time.Duration, def time.Duration) {
		if *v <= 0 {
			*v = def
		}
	}
	fill(&t.Delivery, d.Delivery)
	fill(&t.Read, d.Read)
	fill(&t.Reply, d.Reply)
	fill(&t.DispatchInterval, d.DispatchInterval)
	fill(&t.Countdown, d.Countdown)
	fill(&t.CallConnect, d.CallConnect)
	fill(&t.CallTick, d.CallTick)
	fill(&t.RecordingTick, d.RecordingTick)
	return t
}

type settings struct {
	logger       *zap.Logger
	responder    peer.Responder
	notifier     Notifier
	listener     func(Snapshot)
	timings      Timings
	readReceipts bool
	newID        func() string
}

// Option configures a Session.
type Option func(*settings)

func defaultSettings() settings {
	return settings{
		logger:       zap.NewNop(),
		responder:    peer.NewCanned(nil, nil),
		notifier:     NotifierFunc(func(Event) {}),
		timings:      DefaultTimings(),
		readReceipts: true,
		newID:        uuid.NewString,
	}
}

// WithLogger sets the session logger.
func WithLogger(l *zap.Logger) Option {
	return func(s *settings) {
		if l != nil {
			s.logger = l
		}
	}
}

// WithResponder sets the strategy producing the peer's replies.
func WithResponder(r peer.Responder) Option {
	return func(s *settings) {
		if r != nil {
			s.responder = r
		}
	}
}

// WithNotifier sets the collaborator informed of sends, call ends and
// recording sends.
func WithNotifier(n Notifier) Option {
	return func(s *settings) {
		if n != nil {
			s.notifier = n
		}
	}
}

// WithSnapshotListener registers the presentation callback. It runs on the
// scheduler's goroutine after every mutation.
func WithSnapshotListener(fn func(Snapshot)) Option {
	return func(s *settings) {
		s.listener = fn
	}
}

// WithTimings overrides timer durations; zero fields keep their defaults.
func WithTimings(t Timings) Option {
	return func(s *settings) {
		s.timings = t.withDefaults()
	}
}

// WithReadReceipts sets the local user's read-receipt preference.
func WithReadReceipts(on bool) Option {
	return func(s *settings) {
		s.readReceipts = on
	}
}

// WithIDGenerator overrides message id generation.
func WithIDGenerator(fn func() string) Option {
	return func(s *settings) {
		if fn != nil {
			s.newID = fn
		}
	}
}
