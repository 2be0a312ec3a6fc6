package message

import (
	"errors"
	"testing"
	"time"
)

var epoch = time.Date(2026, 10, 14, 12, 0, 0, 0, time.UTC)

func textMsg(id string, status Status) Message {
	return Message{ID: id, Text: "hi " + id, SenderID: Me, Timestamp: epoch, Status: status}
}

func TestAppendAndListKeepsOrder(t *testing.T) {
	s := NewStore()
	for _, id := range []string{"a", "b", "c"} {
		if err := s.Append(textMsg(id, Sent)); err != nil {
			t.Fatal(err)
		}
	}
	got := s.List()
	if len(got) != 3 {
		t.Fatalf("got %d messages, want 3", len(got))
	}
	for i, id := range []string{"a", "b", "c"} {
		if got[i].ID != id {
			t.Errorf("List()[%d] = %q, want %q", i, got[i].ID, id)
		}
	}
}

func TestAppendRejectsInvalid(t *testing.T) {
	tests := []struct {
		name string
		msg  Message
	}{
		{"empty id", Message{Text: "x"}},
		{"media and call", Message{ID: "m", Media: &MediaRef{Kind: Audio}, Call: &CallInfo{Type: VoiceCall}}},
		{"text and media", Message{ID: "m", Text: "look", Media: &MediaRef{Kind: Image}}},
		{"text and call", Message{ID: "m", Text: "ring", Call: &CallInfo{Type: VoiceCall}}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s := NewStore()
			if err := s.Append(tt.msg); !errors.Is(err, ErrInvalidMessage) {
				t.Errorf("Append() error = %v, want ErrInvalidMessage", err)
			}
			if s.Len() != 0 {
				t.Errorf("Len() = %d, want 0", s.Len())
			}
		})
	}
}

func TestAppendRejectsDuplicateID(t *testing.T) {
	s := NewStore()
	if err := s.Append(textMsg("a", Sent)); err != nil {
		t.Fatal(err)
	}
	if err := s.Append(textMsg("a", Sent)); !errors.Is(err, ErrInvalidMessage) {
		t.Errorf("duplicate Append() error = %v, want ErrInvalidMessage", err)
	}
}

func TestUpdateStatusForwardOnly(t *testing.T) {
	s := NewStore()
	if err := s.Append(textMsg("a", Sent)); err != nil {
		t.Fatal(err)
	}
	if err := s.UpdateStatus("a", Delivered); err != nil {
		t.Fatalf("sent -> delivered: %v", err)
	}
	if err := s.UpdateStatus("a", Sent); !errors.Is(err, ErrStatusRegression) {
		t.Errorf("delivered -> sent error = %v, want ErrStatusRegression", err)
	}
	if err := s.UpdateStatus("a", Read); err != nil {
		t.Fatalf("delivered -> read: %v", err)
	}
	if err := s.UpdateStatus("a", Read); !errors.Is(err, ErrStatusRegression) {
		t.Errorf("read -> read error = %v, want ErrStatusRegression", err)
	}
	if err := s.UpdateStatus("missing", Read); !errors.Is(err, ErrNotFound) {
		t.Errorf("missing id error = %v, want ErrNotFound", err)
	}
}

func TestUpdateStatusRefusesScheduled(t *testing.T) {
	s := NewStore()
	at := epoch.Add(time.Hour)
	if err := s.Append(Message{ID: "s", Text: "later", SenderID: Me, Status: Scheduled, IsScheduled: true, ScheduledFor: &at}); err != nil {
		t.Fatal(err)
	}
	if err := s.UpdateStatus("s", Delivered); !errors.Is(err, ErrStatusRegression) {
		t.Errorf("UpdateStatus(scheduled) error = %v, want ErrStatusRegression", err)
	}
}

func TestMutateSkipsReadAndNeverRegresses(t *testing.T) {
	s := NewStore()
	_ = s.Append(textMsg("a", Read))
	_ = s.Append(textMsg("b", Delivered))

	changed := s.Mutate(func(m *Message) bool {
		m.Status = Sent
		m.Text = "edited"
		return true
	})
	if len(changed) != 1 || changed[0].ID != "b" {
		t.Fatalf("changed = %+v, want only b", changed)
	}
	a, _ := s.Get("a")
	if a.Text != "hi a" {
		t.Errorf("read message text = %q, want it frozen", a.Text)
	}
	b, _ := s.Get("b")
	if b.Status != Delivered {
		t.Errorf("b status = %s, want delivered (no regression)", b.Status)
	}
}

func TestRemoveScheduled(t *testing.T) {
	s := NewStore()
	at := epoch.Add(time.Hour)
	_ = s.Append(textMsg("sent", Sent))
	_ = s.Append(Message{ID: "sch", Text: "later", SenderID: Me, Status: Scheduled, IsScheduled: true, ScheduledFor: &at})

	if _, err := s.RemoveScheduled("sent"); !errors.Is(err, ErrNotScheduled) {
		t.Errorf("RemoveScheduled(sent) error = %v, want ErrNotScheduled", err)
	}
	m, err := s.RemoveScheduled("sch")
	if err != nil {
		t.Fatal(err)
	}
	if m.Text != "later" {
		t.Errorf("removed text = %q, want later", m.Text)
	}
	if s.Len() != 1 {
		t.Errorf("Len() = %d, want 1", s.Len())
	}
}

func TestListReturnsCopies(t *testing.T) {
	s := NewStore()
	_ = s.Append(Message{ID: "v", SenderID: Me, Status: Sent, Media: &MediaRef{Kind: Video, Duration: "0:10"}})

	list := s.List()
	list[0].Media.Duration = "9:99"
	list[0].Status = Read

	got, _ := s.Get("v")
	if got.Media.Duration != "0:10" || got.Status != Sent {
		t.Errorf("store mutated through List(): %+v", got)
	}
}

func TestFormatDuration(t *testing.T) {
	tests := []struct {
		in   time.Duration
		want string
	}{
		{0, "0:00"},
		{5 * time.Second, "0:05"},
		{59*time.Second + 999*time.Millisecond, "0:59"},
		{time.Minute, "1:00"},
		{12*time.Minute + 34*time.Second, "12:34"},
		{-time.Second, "0:00"},
	}
	for _, tt := range tests {
		if got := FormatDuration(tt.in); got != tt.want {
			t.Errorf("FormatDuration(%v) = %q, want %q", tt.in, got, tt.want)
		}
	}
}

func TestKind(t *testing.T) {
	tests := []struct {
		msg  Message
		want string
	}{
		{Message{Text: "x"}, "text"},
		{Message{Media: &MediaRef{Kind: Image}}, "image"},
		{Message{Media: &MediaRef{Kind: Audio}}, "audio"},
		{Message{Call: &CallInfo{Type: VideoCall}}, "call"},
	}
	for _, tt := range tests {
		if got := tt.msg.Kind(); got != tt.want {
			t.Errorf("Kind() = %q, want %q", got, tt.want)
		}
	}
}
