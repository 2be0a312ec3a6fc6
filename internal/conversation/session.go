// Package conversation composes the message store, delivery pipeline,
// first-move gate, scheduled dispatcher, recording session and call session
// into the single object a presentation layer drives.
//
// A Session is owned by one timer.Scheduler. Every method and every timer
// callback must run on that scheduler's goroutine.
package conversation

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/matheus3301/spark/internal/call"
	"github.com/matheus3301/spark/internal/delivery"
	"github.com/matheus3301/spark/internal/firstmove"
	"github.com/matheus3301/spark/internal/message"
	"github.com/matheus3301/spark/internal/peer"
	"github.com/matheus3301/spark/internal/recording"
	"github.com/matheus3301/spark/internal/schedule"
	"github.com/matheus3301/spark/internal/timer"
	"go.uber.org/zap"
)

var (
	ErrEmptyText       = schedule.ErrEmptyText
	ErrInvalidSchedule = schedule.ErrInvalidSchedule

	// ErrBlockedByGate is returned when the local user may not send yet.
	ErrBlockedByGate = errors.New("blocked by first-move gate")
	// ErrBusy is returned when a call and a recording would overlap.
	ErrBusy = errors.New("call or recording in progress")
	// ErrClosed is returned by every operation after Close.
	ErrClosed = errors.New("conversation closed")
	// ErrInvalidMatch is returned by Open for a match without a peer id.
	ErrInvalidMatch = errors.New("invalid match")
)

// Match is what the match provider knows about the conversation.
type Match struct {
	PeerID                 string
	PeerName               string
	FirstMessagePreference firstmove.Preference
	PeerReadReceipts       bool
	ExpiresAt              time.Time // gate deadline seed; zero means now + 24h
}

// Session is the live state of one open conversation.
type Session struct {
	match     Match
	sched     timer.Scheduler
	logger    *zap.Logger
	responder peer.Responder
	notifier  Notifier
	listener  func(Snapshot)
	timings   Timings
	newID     func() string

	store      *message.Store
	pipeline   *delivery.Pipeline
	gate       *firstmove.Gate
	dispatcher *schedule.Dispatcher
	recorder   *recording.Session
	call       *call.Session

	countdown timer.Timer
	replies   map[int]timer.Timer
	replySeq  int
	closed    bool
}

// Open starts a session for match on sched. The dispatcher and, while the
// gate is closed, the countdown start immediately.
func Open(match Match, sched timer.Scheduler, opts ...Option) (*Session, error) {
	if strings.TrimSpace(match.PeerID) == "" || match.PeerID == message.Me {
		return nil, fmt.Errorf("%w: peer id %q", ErrInvalidMatch, match.PeerID)
	}
	cfg := defaultSettings()
	for _, opt := range opts {
		opt(&cfg)
	}

	gate, err := firstmove.New(match.FirstMessagePreference, sched.Now(), match.ExpiresAt)
	if err != nil {
		return nil, fmt.Errorf("open conversation: %w", err)
	}

	logger := cfg.logger.With(zap.String("peer_id", match.PeerID))
	store := message.NewStore()
	s := &Session{
		match:     match,
		sched:     sched,
		logger:    logger,
		responder: cfg.responder,
		notifier:  cfg.notifier,
		listener:  cfg.listener,
		timings:   cfg.timings,
		newID:     cfg.newID,
		store:     store,
		gate:      gate,
		replies:   make(map[int]timer.Timer),
	}

	s.pipeline = delivery.New(store, sched, delivery.Config{
		DeliveryDelay: cfg.timings.Delivery,
		ReadDelay:     cfg.timings.Read,
		LocalReceipts: cfg.readReceipts,
		PeerReceipts:  match.PeerReadReceipts,
	}, logger)
	s.pipeline.OnChange(func([]message.Message) { s.emit() })

	s.dispatcher = schedule.NewDispatcher(store, sched, cfg.timings.DispatchInterval, cfg.newID, logger)
	s.dispatcher.OnDispatch(s.dispatched)

	s.recorder = recording.NewSession(sched, cfg.timings.RecordingTick)
	s.recorder.OnTick(func(recording.View) { s.emit() })
	s.recorder.OnFinish(func(r recording.Result) {
		if r.Auto {
			s.recordingFinished(r)
		}
	})

	s.call = call.NewSession(sched, call.Config{
		ConnectDelay: cfg.timings.CallConnect,
		Tick:         cfg.timings.CallTick,
	})
	s.call.OnChange(func(call.View) { s.emit() })

	s.dispatcher.Start()
	if gate.State() == firstmove.Gated {
		s.countdown = sched.Every(cfg.timings.Countdown, s.emit)
	}

	logger.Info("conversation opened",
		zap.String("first_message_preference", string(match.FirstMessagePreference)),
		zap.String("gate", string(gate.State())),
	)
	s.emit()
	return s, nil
}

// Send sends text from the local user.
func (s *Session) Send(text string) (message.Message, error) {
	if s.closed {
		return message.Message{}, ErrClosed
	}
	if strings.TrimSpace(text) == "" {
		return message.Message{}, ErrEmptyText
	}
	if s.gate.Blocks(firstmove.Me) {
		return message.Message{}, ErrBlockedByGate
	}
	return s.send(text)
}

// ForceSend sends text without consulting the gate. It stands for a send
// through a path the input block does not cover; the gate still opens.
func (s *Session) ForceSend(text string) (message.Message, error) {
	if s.closed {
		return message.Message{}, ErrClosed
	}
	if strings.TrimSpace(text) == "" {
		return message.Message{}, ErrEmptyText
	}
	return s.send(text)
}

func (s *Session) send(text string) (message.Message, error) {
	m := message.Message{
		ID:        s.newID(),
		Text:      text,
		SenderID:  message.Me,
		Timestamp: s.sched.Now(),
		Status:    message.Sent,
	}
	if err := s.store.Append(m); err != nil {
		return message.Message{}, fmt.Errorf("send: %w", err)
	}
	s.logger.Debug("message sent", zap.String("msg_id", m.ID))
	s.liftGate()
	s.pipeline.Sync()
	s.notify(MessageSent, &m)
	s.expectReply(text)
	s.emit()
	return m, nil
}

// Schedule queues text for dispatch at when.
func (s *Session) Schedule(text string, when time.Time) (message.Message, error) {
	if s.closed {
		return message.Message{}, ErrClosed
	}
	if s.gate.Blocks(firstmove.Me) {
		return message.Message{}, ErrBlockedByGate
	}
	m, err := s.dispatcher.Schedule(text, when)
	if err != nil {
		return message.Message{}, err
	}
	s.emit()
	return m, nil
}

// CancelScheduled drops an unsent scheduled message.
func (s *Session) CancelScheduled(id string) error {
	if s.closed {
		return ErrClosed
	}
	if err := s.dispatcher.Cancel(id); err != nil {
		return err
	}
	s.emit()
	return nil
}

// EditScheduled drops an unsent scheduled message and returns its text.
func (s *Session) EditScheduled(id string) (string, error) {
	if s.closed {
		return "", ErrClosed
	}
	text, err := s.dispatcher.Edit(id)
	if err != nil {
		return "", err
	}
	s.emit()
	return text, nil
}

// StartRecording begins an audio or video clip.
func (s *Session) StartRecording(mode recording.Mode) error {
	if s.closed {
		return ErrClosed
	}
	if s.gate.Blocks(firstmove.Me) {
		return ErrBlockedByGate
	}
	if s.call.Status() != call.Idle {
		return ErrBusy
	}
	if err := s.recorder.Start(mode); err != nil {
		return err
	}
	s.logger.Debug("recording started", zap.String("mode", string(mode)))
	s.emit()
	return nil
}

// StopRecording ends the clip. With send the clip becomes a message, which
// is returned.
func (s *Session) StopRecording(send bool) (message.Message, bool) {
	if s.closed {
		return message.Message{}, false
	}
	r, ok := s.recorder.Stop(send)
	if !ok {
		return message.Message{}, false
	}
	return s.recordingFinished(r)
}

// CancelRecording discards the clip.
func (s *Session) CancelRecording() bool {
	_, ok := s.StopRecording(false)
	return ok
}

func (s *Session) recordingFinished(r recording.Result) (message.Message, bool) {
	if s.closed {
		return message.Message{}, false
	}
	if !r.Send {
		s.logger.Debug("recording discarded", zap.String("mode", string(r.Mode)))
		s.emit()
		return message.Message{}, false
	}
	kind, ext := message.Audio, "m4a"
	if r.Mode == recording.Video {
		kind, ext = message.Video, "mp4"
	}
	id := s.newID()
	m := message.Message{
		ID:        id,
		SenderID:  message.Me,
		Timestamp: s.sched.Now(),
		Status:    message.Sent,
		Media: &message.MediaRef{
			Kind:     kind,
			URL:      fmt.Sprintf("file://recordings/%s.%s", id, ext),
			Duration: message.FormatDuration(r.Elapsed),
		},
	}
	if err := s.store.Append(m); err != nil {
		s.logger.Error("append recording", zap.Error(err))
		return message.Message{}, false
	}
	s.logger.Info("recording sent",
		zap.String("msg_id", id),
		zap.String("mode", string(r.Mode)),
		zap.Duration("elapsed", r.Elapsed),
		zap.Bool("auto", r.Auto),
	)
	s.liftGate()
	s.pipeline.Sync()
	s.expectReply("")
	s.notify(RecordingSent, &m)
	s.emit()
	return m, true
}

// StartCall dials the peer.
func (s *Session) StartCall(t call.Type) error {
	if s.closed {
		return ErrClosed
	}
	if s.recorder.Active() {
		return ErrBusy
	}
	return s.call.StartOutgoing(t)
}

// ReceiveCall rings for an incoming call from the peer.
func (s *Session) ReceiveCall(t call.Type) error {
	if s.closed {
		return ErrClosed
	}
	if s.recorder.Active() {
		return ErrBusy
	}
	return s.call.ReceiveIncoming(t)
}

// AcceptCall answers a ringing call.
func (s *Session) AcceptCall() error {
	if s.closed {
		return ErrClosed
	}
	return s.call.Accept()
}

// EndCall hangs up and appends the call log, which is returned. Nothing is
// logged when no call was in progress.
func (s *Session) EndCall() (message.Message, bool) {
	if s.closed {
		return message.Message{}, false
	}
	l, ok := s.call.End()
	if !ok {
		return message.Message{}, false
	}
	m := message.Message{
		ID:        s.newID(),
		SenderID:  message.Me,
		Timestamp: s.sched.Now(),
		Status:    message.Sent,
		Call:      l.Info(),
	}
	if l.Direction == "incoming" {
		m.SenderID = s.match.PeerID
		m.Status = message.Read
	}
	if err := s.store.Append(m); err != nil {
		s.logger.Error("append call log", zap.Error(err))
		return message.Message{}, false
	}
	s.logger.Info("call ended",
		zap.String("msg_id", m.ID),
		zap.String("type", string(l.Type)),
		zap.String("outcome", string(l.Outcome)),
		zap.Duration("elapsed", l.Elapsed),
	)
	s.pipeline.Sync()
	s.notify(CallEnded, &m)
	s.emit()
	return m, true
}

// ToggleMic flips mute during an active call.
func (s *Session) ToggleMic() bool {
	if s.closed {
		return false
	}
	return s.call.ToggleMic()
}

// ToggleCamera flips the camera during an active video call.
func (s *Session) ToggleCamera() bool {
	if s.closed {
		return false
	}
	return s.call.ToggleCamera()
}

// ReceiveMessage appends a message from the peer.
func (s *Session) ReceiveMessage(text string) (message.Message, error) {
	if s.closed {
		return message.Message{}, ErrClosed
	}
	if strings.TrimSpace(text) == "" {
		return message.Message{}, ErrEmptyText
	}
	return s.receive(text)
}

func (s *Session) receive(text string) (message.Message, error) {
	m := message.Message{
		ID:        s.newID(),
		Text:      text,
		SenderID:  s.match.PeerID,
		Timestamp: s.sched.Now(),
		Status:    message.Read,
	}
	if err := s.store.Append(m); err != nil {
		return message.Message{}, fmt.Errorf("receive: %w", err)
	}
	s.liftGate()
	s.emit()
	return m, nil
}

// SetReadReceipts sets the local read-receipt preference.
func (s *Session) SetReadReceipts(on bool) error {
	if s.closed {
		return ErrClosed
	}
	_, peerOn := s.pipeline.ReadReceipts()
	s.pipeline.SetReadReceipts(on, peerOn)
	s.emit()
	return nil
}

// Search filters the conversation without modifying it.
func (s *Session) Search(q Query) []message.Message {
	return Filter(s.store.List(), q, s.sched.Now())
}

// Clear deletes the conversation's messages and the timers working on them.
func (s *Session) Clear() error {
	if s.closed {
		return ErrClosed
	}
	s.store.Clear()
	s.pipeline.Reset()
	s.stopReplies()
	s.logger.Info("conversation cleared")
	s.emit()
	return nil
}

// Snapshot returns a copy of the current state.
func (s *Session) Snapshot() Snapshot {
	now := s.sched.Now()
	local, peerOn := s.pipeline.ReadReceipts()
	return Snapshot{
		PeerID:       s.match.PeerID,
		PeerName:     s.match.PeerName,
		Messages:     s.store.List(),
		FirstMove:    s.gate.View(now),
		InputBlocked: s.gate.Blocks(firstmove.Me),
		Call:         s.call.View(),
		Recording:    s.recorder.View(),
		PeerTyping:   len(s.replies) > 0,
		ReadReceipts: ReadReceipts{Local: local, Peer: peerOn},
		At:           now,
		Closed:       s.closed,
	}
}

// Close cancels every timer. The listener receives one last snapshot with
// Closed set and is then dropped. Close is idempotent.
func (s *Session) Close() {
	if s.closed {
		return
	}
	s.closed = true
	s.pipeline.Stop()
	s.dispatcher.Stop()
	s.recorder.Close()
	s.call.Close()
	timer.Stop(s.countdown)
	s.countdown = nil
	s.stopReplies()
	if s.listener != nil {
		s.listener(s.Snapshot())
		s.listener = nil
	}
	s.logger.Info("conversation closed")
}

func (s *Session) dispatched(msgs []message.Message) {
	if s.closed {
		return
	}
	s.liftGate()
	s.pipeline.Sync()
	for i := range msgs {
		s.notify(MessageDispatched, &msgs[i])
		s.expectReply(msgs[i].Text)
	}
	s.emit()
}

// expectReply schedules the peer's answer to prompt.
func (s *Session) expectReply(prompt string) {
	s.replySeq++
	id := s.replySeq
	s.replies[id] = s.sched.AfterFunc(s.timings.Reply, func() {
		delete(s.replies, id)
		if s.closed {
			return
		}
		text, ok := s.responder.Reply(peer.Request{
			PeerID:   s.match.PeerID,
			PeerName: s.match.PeerName,
			Prompt:   prompt,
		})
		if !ok || strings.TrimSpace(text) == "" {
			s.emit()
			return
		}
		if _, err := s.receive(text); err != nil {
			s.logger.Error("append reply", zap.Error(err))
		}
	})
}

func (s *Session) stopReplies() {
	for id, t := range s.replies {
		t.Stop()
		delete(s.replies, id)
	}
}

func (s *Session) liftGate() {
	if !s.gate.Lift() {
		return
	}
	timer.Stop(s.countdown)
	s.countdown = nil
	s.logger.Info("first-move gate lifted")
	s.notify(GateLifted, nil)
}

func (s *Session) notify(kind EventKind, m *message.Message) {
	evt := Event{Kind: kind, PeerID: s.match.PeerID, At: s.sched.Now()}
	if m != nil {
		c := *m
		evt.Message = &c
	}
	s.notifier.Notify(evt)
}

func (s *Session) emit() {
	if s.closed || s.listener == nil {
		return
	}
	s.listener(s.Snapshot())
}
