package conversation

import (
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/matheus3301/spark/internal/call"
	"github.com/matheus3301/spark/internal/firstmove"
	"github.com/matheus3301/spark/internal/message"
	"github.com/matheus3301/spark/internal/peer"
	"github.com/matheus3301/spark/internal/recording"
	"github.com/matheus3301/spark/internal/timer"
)

var start = time.Date(2026, 3, 14, 12, 0, 0, 0, time.UTC)

type harness struct {
	fake      *timer.Fake
	sess      *Session
	events    []Event
	snapshots []Snapshot
}

func open(t *testing.T, match Match, opts ...Option) *harness {
	t.Helper()
	h := &harness{fake: timer.NewFake(start)}
	seq := 0
	base := []Option{
		WithResponder(peer.Echo{Prefix: "re: "}),
		WithNotifier(NotifierFunc(func(e Event) { h.events = append(h.events, e) })),
		WithSnapshotListener(func(s Snapshot) { h.snapshots = append(h.snapshots, s) }),
		WithIDGenerator(func() string {
			seq++
			return fmt.Sprintf("m%d", seq)
		}),
	}
	if match.PeerID == "" {
		match.PeerID = "p_alex"
		match.PeerName = "Alex"
	}
	sess, err := Open(match, h.fake, append(base, opts...)...)
	if err != nil {
		t.Fatalf("Open() error: %v", err)
	}
	h.sess = sess
	t.Cleanup(sess.Close)
	return h
}

func (h *harness) kinds() []EventKind {
	out := make([]EventKind, len(h.events))
	for i, e := range h.events {
		out[i] = e.Kind
	}
	return out
}

func lastMessage(t *testing.T, s *Session) message.Message {
	t.Helper()
	msgs := s.Snapshot().Messages
	if len(msgs) == 0 {
		t.Fatal("no messages")
	}
	return msgs[len(msgs)-1]
}

func TestOpenRejectsBadMatch(t *testing.T) {
	fake := timer.NewFake(start)
	tests := []struct {
		name  string
		match Match
		want  error
	}{
		{"empty peer", Match{}, ErrInvalidMatch},
		{"peer is me", Match{PeerID: message.Me}, ErrInvalidMatch},
		{"bad preference", Match{PeerID: "p", FirstMessagePreference: "WHOEVER"}, firstmove.ErrUnknownPreference},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, err := Open(tt.match, fake); !errors.Is(err, tt.want) {
				t.Errorf("Open() = %v, want %v", err, tt.want)
			}
		})
	}
}

func TestSendDeliversReadsAndReplies(t *testing.T) {
	h := open(t, Match{PeerReadReceipts: true})
	m, err := h.sess.Send("hi")
	if err != nil {
		t.Fatalf("Send() error: %v", err)
	}
	if m.Status != message.Sent || !m.FromMe() {
		t.Fatalf("Send() = %+v", m)
	}
	if !h.sess.Snapshot().PeerTyping {
		t.Error("peer should be typing after a send")
	}

	h.fake.Advance(time.Second)
	if got, _ := h.sess.store.Get(m.ID); got.Status != message.Delivered {
		t.Errorf("after 1s status = %s, want delivered", got.Status)
	}
	h.fake.Advance(2500 * time.Millisecond)
	if got, _ := h.sess.store.Get(m.ID); got.Status != message.Read {
		t.Errorf("after 3.5s status = %s, want read", got.Status)
	}

	snap := h.sess.Snapshot()
	if snap.PeerTyping {
		t.Error("peer still typing after the reply")
	}
	if len(snap.Messages) != 2 {
		t.Fatalf("got %d messages, want 2", len(snap.Messages))
	}
	reply := snap.Messages[1]
	if reply.Text != "re: hi" || reply.SenderID != "p_alex" || reply.Status != message.Read {
		t.Errorf("reply = %+v", reply)
	}
	if len(h.events) != 1 || h.events[0].Kind != MessageSent {
		t.Errorf("events = %v", h.kinds())
	}
}

func TestDeliveryNeverRegresses(t *testing.T) {
	h := open(t, Match{PeerReadReceipts: true}, WithResponder(peer.Silent{}))
	a, _ := h.sess.Send("one")
	h.fake.Advance(500 * time.Millisecond)
	b, _ := h.sess.Send("two")

	for step := 0; step < 20; step++ {
		h.fake.Advance(250 * time.Millisecond)
		elapsed := time.Duration(step+3) * 250 * time.Millisecond
		for _, id := range []string{a.ID, b.ID} {
			got, _ := h.sess.store.Get(id)
			if elapsed >= 1500*time.Millisecond && got.Status == message.Sent {
				t.Fatalf("%s still sent at %v", id, elapsed)
			}
		}
	}
	for _, id := range []string{a.ID, b.ID} {
		if got, _ := h.sess.store.Get(id); got.Status != message.Read {
			t.Errorf("%s = %s, want read", id, got.Status)
		}
	}
}

func TestReadGating(t *testing.T) {
	tests := []struct {
		name        string
		local, peer bool
	}{
		{"local off", false, true},
		{"peer off", true, false},
		{"both off", false, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			h := open(t, Match{PeerReadReceipts: tt.peer}, WithReadReceipts(tt.local), WithResponder(peer.Silent{}))
			m, _ := h.sess.Send("hello")
			h.fake.Advance(24 * time.Hour)
			if got, _ := h.sess.store.Get(m.ID); got.Status != message.Delivered {
				t.Errorf("status = %s, want delivered", got.Status)
			}
		})
	}
}

func TestSetReadReceiptsOffCancelsPendingRead(t *testing.T) {
	h := open(t, Match{PeerReadReceipts: true}, WithResponder(peer.Silent{}))
	m, _ := h.sess.Send("hello")
	h.fake.Advance(2 * time.Second)
	if err := h.sess.SetReadReceipts(false); err != nil {
		t.Fatal(err)
	}
	h.fake.Advance(time.Hour)
	if got, _ := h.sess.store.Get(m.ID); got.Status != message.Delivered {
		t.Errorf("status = %s, want delivered", got.Status)
	}
	if rr := h.sess.Snapshot().ReadReceipts; rr.Local || !rr.Peer {
		t.Errorf("read receipts = %+v", rr)
	}
}

func TestGateBlocksLocalUser(t *testing.T) {
	h := open(t, Match{FirstMessagePreference: firstmove.ThemFirst})
	if !h.sess.Snapshot().InputBlocked {
		t.Fatal("input should be blocked")
	}
	if _, err := h.sess.Send("hi"); !errors.Is(err, ErrBlockedByGate) {
		t.Errorf("Send() = %v", err)
	}
	if _, err := h.sess.Schedule("hi", start.Add(time.Hour)); !errors.Is(err, ErrBlockedByGate) {
		t.Errorf("Schedule() = %v", err)
	}
	if err := h.sess.StartRecording(recording.Audio); !errors.Is(err, ErrBlockedByGate) {
		t.Errorf("StartRecording() = %v", err)
	}
	if n := len(h.sess.Snapshot().Messages); n != 0 {
		t.Errorf("rejections changed state: %d messages", n)
	}
}

func TestGateLiftOnForcedSend(t *testing.T) {
	h := open(t, Match{FirstMessagePreference: firstmove.ThemFirst})
	v := h.sess.Snapshot().FirstMove
	if v.State != firstmove.Gated || v.Allowed != firstmove.Them || !v.ExpiresAt.Equal(start.Add(24*time.Hour)) {
		t.Fatalf("initial gate = %+v", v)
	}

	if _, err := h.sess.ForceSend("hey"); err != nil {
		t.Fatalf("ForceSend() error: %v", err)
	}
	if got := h.sess.Snapshot().FirstMove.State; got != firstmove.Open {
		t.Fatalf("gate = %s, want OPEN", got)
	}
	if _, err := h.sess.Send("again"); err != nil {
		t.Errorf("Send() after lift = %v", err)
	}
	if _, err := h.sess.ReceiveMessage("hello"); err != nil {
		t.Errorf("ReceiveMessage() after lift = %v", err)
	}
	if h.sess.Snapshot().InputBlocked {
		t.Error("input blocked after lift")
	}

	lifted := 0
	for _, e := range h.events {
		if e.Kind == GateLifted {
			lifted++
		}
	}
	if lifted != 1 {
		t.Errorf("gate_lifted emitted %d times, want 1", lifted)
	}
}

func TestPeerMessageLiftsGate(t *testing.T) {
	h := open(t, Match{FirstMessagePreference: firstmove.ThemFirst})
	if _, err := h.sess.ReceiveMessage("hi there"); err != nil {
		t.Fatal(err)
	}
	if _, err := h.sess.Send("hello"); err != nil {
		t.Errorf("Send() = %v", err)
	}
}

func TestCountdownRefreshesUntilLift(t *testing.T) {
	h := open(t, Match{FirstMessagePreference: firstmove.MeFirst, ExpiresAt: start.Add(90 * time.Minute)})
	before := len(h.snapshots)
	h.fake.Advance(31 * time.Minute)
	if got := len(h.snapshots) - before; got != 31 {
		t.Errorf("countdown emitted %d snapshots, want 31", got)
	}
	v := h.sess.Snapshot().FirstMove
	if v.Countdown != "0h 59m" || !v.Urgent {
		t.Errorf("countdown = %q urgent=%v", v.Countdown, v.Urgent)
	}
	h.fake.Advance(time.Hour)
	if got := h.sess.Snapshot().FirstMove.Countdown; got != "Expired" {
		t.Errorf("countdown = %q, want Expired", got)
	}

	if _, err := h.sess.Send("made it"); err != nil {
		t.Fatal(err)
	}
	h.fake.Advance(10 * time.Second)
	before = len(h.snapshots)
	h.fake.Advance(10 * time.Minute)
	if got := len(h.snapshots) - before; got != 0 {
		t.Errorf("countdown still running after lift: %d snapshots", got)
	}
}

func TestScheduledDispatchExactlyOnce(t *testing.T) {
	h := open(t, Match{}, WithResponder(peer.Silent{}))
	m, err := h.sess.Schedule("later", start.Add(time.Second))
	if err != nil {
		t.Fatalf("Schedule() error: %v", err)
	}
	if m.Status != message.Scheduled || !m.IsScheduled {
		t.Fatalf("Schedule() = %+v", m)
	}

	h.fake.Advance(11 * time.Second)

	dispatched := 0
	for _, e := range h.events {
		if e.Kind == MessageDispatched {
			dispatched++
			if e.Message.ID != m.ID {
				t.Errorf("dispatched %s, want %s", e.Message.ID, m.ID)
			}
		}
	}
	if dispatched != 1 {
		t.Fatalf("dispatched %d times, want 1", dispatched)
	}
	got, _ := h.sess.store.Get(m.ID)
	if got.IsScheduled || got.ScheduledFor != nil || got.Status == message.Scheduled {
		t.Errorf("after dispatch = %+v", got)
	}
	if !got.Timestamp.Equal(start.Add(5 * time.Second)) {
		t.Errorf("timestamp = %v, want dispatch time", got.Timestamp)
	}
}

func TestDispatchTriggersReply(t *testing.T) {
	h := open(t, Match{})
	if _, err := h.sess.Schedule("ping", start.Add(time.Second)); err != nil {
		t.Fatal(err)
	}
	h.fake.Advance(5 * time.Second)
	if !h.sess.Snapshot().PeerTyping {
		t.Error("peer should be typing after dispatch")
	}
	h.fake.Advance(3500 * time.Millisecond)
	if last := lastMessage(t, h.sess); last.Text != "re: ping" {
		t.Errorf("last message = %+v", last)
	}
}

func TestDispatchedMessageWaitsFullDeliveryDelay(t *testing.T) {
	h := open(t, Match{})
	later, err := h.sess.Schedule("later", start.Add(4500*time.Millisecond))
	if err != nil {
		t.Fatal(err)
	}
	h.fake.Advance(4 * time.Second)
	now, err := h.sess.Send("now")
	if err != nil {
		t.Fatal(err)
	}

	// The dispatch tick and the pending delivery timer both fire at 5s.
	h.fake.Advance(time.Second)
	if got, _ := h.sess.store.Get(now.ID); got.Status != message.Delivered {
		t.Errorf("sent message at 5s = %s, want delivered", got.Status)
	}
	got, _ := h.sess.store.Get(later.ID)
	if got.IsScheduled || got.Status != message.Sent {
		t.Fatalf("dispatched message at 5s = %+v, want sent", got)
	}

	h.fake.Advance(999 * time.Millisecond)
	if got, _ := h.sess.store.Get(later.ID); got.Status != message.Sent {
		t.Errorf("dispatched message 999ms later = %s, want sent", got.Status)
	}
	h.fake.Advance(time.Millisecond)
	if got, _ := h.sess.store.Get(later.ID); got.Status != message.Delivered {
		t.Errorf("dispatched message 1s later = %s, want delivered", got.Status)
	}
}

func TestScheduleRejections(t *testing.T) {
	h := open(t, Match{})
	tests := []struct {
		name string
		text string
		when time.Time
		want error
	}{
		{"empty text", "  ", start.Add(time.Hour), ErrEmptyText},
		{"now", "hi", start, ErrInvalidSchedule},
		{"past", "hi", start.Add(-time.Minute), ErrInvalidSchedule},
		{"missing", "hi", time.Time{}, ErrInvalidSchedule},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, err := h.sess.Schedule(tt.text, tt.when); !errors.Is(err, tt.want) {
				t.Errorf("Schedule() = %v, want %v", err, tt.want)
			}
		})
	}
	if n := len(h.sess.Snapshot().Messages); n != 0 {
		t.Errorf("rejections appended %d messages", n)
	}
}

func TestCancelAndEditScheduled(t *testing.T) {
	h := open(t, Match{})
	a, _ := h.sess.Schedule("first", start.Add(time.Hour))
	b, _ := h.sess.Schedule("second", start.Add(time.Hour))

	if err := h.sess.CancelScheduled(a.ID); err != nil {
		t.Fatalf("CancelScheduled() error: %v", err)
	}
	text, err := h.sess.EditScheduled(b.ID)
	if err != nil || text != "second" {
		t.Fatalf("EditScheduled() = %q, %v", text, err)
	}
	if n := len(h.sess.Snapshot().Messages); n != 0 {
		t.Errorf("%d messages left", n)
	}
	if err := h.sess.CancelScheduled(a.ID); !errors.Is(err, message.ErrNotFound) {
		t.Errorf("second cancel = %v", err)
	}

	sent, _ := h.sess.Send("plain")
	if _, err := h.sess.EditScheduled(sent.ID); !errors.Is(err, message.ErrNotScheduled) {
		t.Errorf("EditScheduled(sent) = %v", err)
	}
}

func TestRecordingAutoCap(t *testing.T) {
	h := open(t, Match{})
	if err := h.sess.StartRecording(recording.Audio); err != nil {
		t.Fatalf("StartRecording() error: %v", err)
	}
	if err := h.sess.StartRecording(recording.Video); !errors.Is(err, recording.ErrAlreadyRecording) {
		t.Errorf("second StartRecording() = %v", err)
	}
	h.fake.Advance(61 * time.Second)

	var clips []message.Message
	for _, m := range h.sess.Snapshot().Messages {
		if m.Media != nil {
			clips = append(clips, m)
		}
	}
	if len(clips) != 1 {
		t.Fatalf("got %d clips, want 1", len(clips))
	}
	clip := clips[0]
	if clip.Media.Kind != message.Audio || clip.Media.Duration != "1:00" {
		t.Errorf("clip media = %+v", clip.Media)
	}
	if clip.Media.URL != "file://recordings/"+clip.ID+".m4a" {
		t.Errorf("clip url = %q", clip.Media.URL)
	}
	if got := h.sess.Snapshot().Recording.State; got != recording.Sent {
		t.Errorf("recording state = %s", got)
	}
	if len(h.events) != 1 || h.events[0].Kind != RecordingSent {
		t.Errorf("events = %v", h.kinds())
	}
	if !h.sess.Snapshot().PeerTyping {
		t.Error("peer should be typing after a clip is sent")
	}
	h.fake.Advance(3500 * time.Millisecond)
	if last := lastMessage(t, h.sess); last.SenderID != "p_alex" || last.Status != message.Read {
		t.Errorf("last message = %+v, want the peer's reply", last)
	}
}

func TestStopAndCancelRecording(t *testing.T) {
	h := open(t, Match{})
	if err := h.sess.StartRecording(recording.Video); err != nil {
		t.Fatal(err)
	}
	h.fake.Advance(3 * time.Second)
	m, ok := h.sess.StopRecording(true)
	if !ok || m.Media == nil || m.Media.Kind != message.Video || m.Media.Duration != "0:03" {
		t.Fatalf("StopRecording(true) = %+v, %v", m, ok)
	}
	if _, ok := h.sess.StopRecording(true); ok {
		t.Error("StopRecording() while idle reported a clip")
	}

	if err := h.sess.StartRecording(recording.Audio); err != nil {
		t.Fatal(err)
	}
	h.fake.Advance(time.Second)
	if !h.sess.CancelRecording() {
		t.Error("CancelRecording() = false")
	}
	if n := len(h.sess.Snapshot().Messages); n != 1 {
		t.Errorf("got %d messages, want 1", n)
	}
	if got := h.sess.Snapshot().Recording.State; got != recording.Cancelled {
		t.Errorf("recording state = %s", got)
	}
}

func TestCallDurationReset(t *testing.T) {
	h := open(t, Match{})
	if err := h.sess.StartCall(call.Voice); err != nil {
		t.Fatal(err)
	}
	h.fake.Advance(3 * time.Second)
	if got := h.sess.Snapshot().Call.Status; got != call.Active {
		t.Fatalf("call status = %s, want ACTIVE", got)
	}
	h.fake.Advance(5 * time.Second)

	m, ok := h.sess.EndCall()
	if !ok || m.Call == nil {
		t.Fatalf("EndCall() = %+v, %v", m, ok)
	}
	if m.Call.Duration != "0:05" || m.Call.Outcome != message.Completed {
		t.Errorf("call info = %+v", m.Call)
	}
	if !m.FromMe() || m.Status != message.Sent {
		t.Errorf("outgoing call log = %+v", m)
	}

	if err := h.sess.StartCall(call.Video); err != nil {
		t.Fatal(err)
	}
	if got := h.sess.Snapshot().Call.Elapsed; got != 0 {
		t.Errorf("new call elapsed = %v, want 0", got)
	}
	if len(h.events) != 1 || h.events[0].Kind != CallEnded {
		t.Errorf("events = %v", h.kinds())
	}
}

func TestMissedCalls(t *testing.T) {
	t.Run("outgoing ended before connect", func(t *testing.T) {
		h := open(t, Match{})
		_ = h.sess.StartCall(call.Voice)
		h.fake.Advance(2 * time.Second)
		m, ok := h.sess.EndCall()
		if !ok || m.Call.Outcome != message.Missed {
			t.Fatalf("EndCall() = %+v, %v", m.Call, ok)
		}
		h.fake.Advance(5 * time.Second)
		if got := h.sess.Snapshot().Call.Status; got != call.Idle {
			t.Errorf("connect timer revived the call: %s", got)
		}
	})
	t.Run("incoming never answered", func(t *testing.T) {
		h := open(t, Match{})
		_ = h.sess.ReceiveCall(call.Video)
		m, ok := h.sess.EndCall()
		if !ok || m.Call.Outcome != message.Missed || m.Call.Type != call.Video {
			t.Fatalf("EndCall() = %+v, %v", m.Call, ok)
		}
		if m.SenderID != "p_alex" || m.Status != message.Read {
			t.Errorf("incoming call log = %+v", m)
		}
	})
	t.Run("end while idle", func(t *testing.T) {
		h := open(t, Match{})
		if _, ok := h.sess.EndCall(); ok {
			t.Error("EndCall() while idle logged a call")
		}
		if n := len(h.sess.Snapshot().Messages); n != 0 {
			t.Errorf("%d messages", n)
		}
	})
}

func TestAcceptAndToggles(t *testing.T) {
	h := open(t, Match{})
	if err := h.sess.AcceptCall(); !errors.Is(err, call.ErrInvalidTransition) {
		t.Errorf("AcceptCall() while idle = %v", err)
	}
	if h.sess.ToggleMic() {
		t.Error("ToggleMic() while idle = true")
	}
	_ = h.sess.ReceiveCall(call.Video)
	if err := h.sess.AcceptCall(); err != nil {
		t.Fatal(err)
	}
	if !h.sess.ToggleMic() || !h.sess.ToggleCamera() {
		t.Error("toggles during active video call failed")
	}
	v := h.sess.Snapshot().Call
	if !v.MicMuted || !v.CameraOff {
		t.Errorf("call view = %+v", v)
	}
	h.fake.Advance(65 * time.Second)
	m, _ := h.sess.EndCall()
	if m.Call.Duration != "1:05" || m.Call.Outcome != message.Completed {
		t.Errorf("call info = %+v", m.Call)
	}
}

func TestCallAndRecordingAreExclusive(t *testing.T) {
	h := open(t, Match{})
	_ = h.sess.StartRecording(recording.Audio)
	if err := h.sess.StartCall(call.Voice); !errors.Is(err, ErrBusy) {
		t.Errorf("StartCall() while recording = %v", err)
	}
	if err := h.sess.ReceiveCall(call.Voice); !errors.Is(err, ErrBusy) {
		t.Errorf("ReceiveCall() while recording = %v", err)
	}
	h.sess.CancelRecording()

	_ = h.sess.StartCall(call.Voice)
	if err := h.sess.StartRecording(recording.Audio); !errors.Is(err, ErrBusy) {
		t.Errorf("StartRecording() during call = %v", err)
	}
}

func TestClearCancelsPendingWork(t *testing.T) {
	h := open(t, Match{PeerReadReceipts: true})
	_, _ = h.sess.Send("one")
	_, _ = h.sess.Send("two")
	if err := h.sess.Clear(); err != nil {
		t.Fatal(err)
	}
	h.fake.Advance(time.Minute)
	snap := h.sess.Snapshot()
	if len(snap.Messages) != 0 || snap.PeerTyping {
		t.Errorf("after Clear: %d messages, typing=%v", len(snap.Messages), snap.PeerTyping)
	}
	if _, err := h.sess.Send("fresh"); err != nil {
		t.Fatal(err)
	}
	h.fake.Advance(time.Second)
	if last := h.sess.Snapshot().Messages[0]; last.Status != message.Delivered {
		t.Errorf("pipeline dead after Clear: %s", last.Status)
	}
}

func TestCloseTearsDownEveryTimer(t *testing.T) {
	h := open(t, Match{FirstMessagePreference: firstmove.MeFirst, PeerReadReceipts: true})
	_, _ = h.sess.Send("hi")
	_, _ = h.sess.Schedule("later", start.Add(2*time.Second))
	_ = h.sess.StartCall(call.Voice)
	if h.fake.Pending() == 0 {
		t.Fatal("expected live timers")
	}

	h.sess.Close()
	if n := h.fake.Pending(); n != 0 {
		t.Errorf("%d timers alive after Close", n)
	}
	last := h.snapshots[len(h.snapshots)-1]
	if !last.Closed {
		t.Error("last snapshot not marked closed")
	}

	count := len(h.snapshots)
	before := h.sess.Snapshot().Messages
	h.fake.Advance(time.Hour)
	if len(h.snapshots) != count {
		t.Error("listener called after Close")
	}
	after := h.sess.Snapshot().Messages
	if len(after) != len(before) || after[0].Status != before[0].Status {
		t.Error("state mutated after Close")
	}

	if _, err := h.sess.Send("x"); !errors.Is(err, ErrClosed) {
		t.Errorf("Send() after Close = %v", err)
	}
	if err := h.sess.StartCall(call.Voice); !errors.Is(err, ErrClosed) {
		t.Errorf("StartCall() after Close = %v", err)
	}
	h.sess.Close()
}

func TestSnapshotIsACopy(t *testing.T) {
	h := open(t, Match{})
	_, _ = h.sess.Send("original")
	snap := h.sess.Snapshot()
	snap.Messages[0].Text = "changed"
	if got := h.sess.Snapshot().Messages[0].Text; got != "original" {
		t.Errorf("store saw snapshot mutation: %q", got)
	}
}
