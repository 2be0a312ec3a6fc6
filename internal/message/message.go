package message

import (
	"fmt"
	"time"
)

// Me is the sender id of the local user.
const Me = "me"

// Status is the delivery state of a message.
type Status string

const (
	Scheduled Status = "scheduled"
	Sent      Status = "sent"
	Delivered Status = "delivered"
	Read      Status = "read"
)

// rank orders statuses along the only legal direction of travel.
func (s Status) rank() int {
	switch s {
	case Scheduled:
		return 0
	case Sent:
		return 1
	case Delivered:
		return 2
	case Read:
		return 3
	default:
		return -1
	}
}

// MediaKind is the type of attached media.
type MediaKind string

const (
	Image MediaKind = "image"
	Audio MediaKind = "audio"
	Video MediaKind = "video"
)

// MediaRef points at an attached image, audio or video clip.
type MediaRef struct {
	Kind     MediaKind
	URL      string
	Duration string // M:SS, empty for images
}

// CallType distinguishes voice from video calls.
type CallType string

const (
	VoiceCall CallType = "VOICE"
	VideoCall CallType = "VIDEO"
)

// CallOutcome classifies a finished call.
type CallOutcome string

const (
	Missed    CallOutcome = "MISSED"
	Completed CallOutcome = "COMPLETED"
)

// CallInfo is attached to call-log messages.
type CallInfo struct {
	Type      CallType
	Duration  string
	Outcome   CallOutcome
	Direction string // outgoing, incoming
}

// Message is one entry of a conversation.
type Message struct {
	ID           string
	Text         string
	SenderID     string
	Timestamp    time.Time
	Status       Status
	Media        *MediaRef
	Call         *CallInfo
	ScheduledFor *time.Time
	IsScheduled  bool
}

// FromMe reports whether the local user sent the message.
func (m *Message) FromMe() bool {
	return m.SenderID == Me
}

// Kind returns a short label for the payload: text, image, audio, video or call.
func (m *Message) Kind() string {
	switch {
	case m.Call != nil:
		return "call"
	case m.Media != nil:
		return string(m.Media.Kind)
	default:
		return "text"
	}
}

// clone returns a deep copy so callers never share pointers with the store.
func (m Message) clone() Message {
	if m.Media != nil {
		media := *m.Media
		m.Media = &media
	}
	if m.Call != nil {
		call := *m.Call
		m.Call = &call
	}
	if m.ScheduledFor != nil {
		at := *m.ScheduledFor
		m.ScheduledFor = &at
	}
	return m
}

// FormatDuration renders d as M:SS, dropping fractional seconds.
func FormatDuration(d time.Duration) string {
	if d < 0 {
		d = 0
	}
	total := int(d / time.Second)
	return fmt.Sprintf("%d:%02d", total/60, total%60)
}
