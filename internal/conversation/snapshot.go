package conversation

import (
	"strings"
	"time"

	"github.com/matheus3301/spark/internal/call"
	"github.com/matheus3301/spark/internal/firstmove"
	"github.com/matheus3301/spark/internal/message"
	"github.com/matheus3301/spark/internal/recording"
)

// ReadReceipts holds both parties' read-receipt opt-in.
type ReadReceipts struct {
	Local bool
	Peer  bool
}

// Snapshot is an immutable copy of the session state handed to the
// presentation layer. It shares no memory with the live session.
type Snapshot struct {
	PeerID       string
	PeerName     string
	Messages     []message.Message
	FirstMove    firstmove.View
	InputBlocked bool
	Call         call.View
	Recording    recording.View
	PeerTyping   bool
	ReadReceipts ReadReceipts
	At           time.Time
	Closed       bool
}

// Scheduled returns the unsent scheduled messages.
func (s Snapshot) Scheduled() []message.Message {
	var out []message.Message
	for _, m := range s.Messages {
		if m.IsScheduled {
			out = append(out, m)
		}
	}
	return out
}

// FindScheduled returns the unsent scheduled message whose id starts with
// prefix. Sent messages never match, even when they share the prefix.
func (s Snapshot) FindScheduled(prefix string) (message.Message, bool) {
	if prefix == "" {
		return message.Message{}, false
	}
	for _, m := range s.Scheduled() {
		if strings.HasPrefix(m.ID, prefix) {
			return m, true
		}
	}
	return message.Message{}, false
}
