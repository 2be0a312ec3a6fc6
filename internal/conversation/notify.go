package conversation

import (
	"time"

	"github.com/matheus3301/spark/internal/bus"
	"github.com/matheus3301/spark/internal/message"
)

// EventKind names a notification.
type EventKind string

const (
	MessageSent       EventKind = "message_sent"
	MessageDispatched EventKind = "message_dispatched"
	CallEnded         EventKind = "call_ended"
	RecordingSent     EventKind = "recording_sent"
	GateLifted        EventKind = "gate_lifted"
)

// BusNamespace prefixes every kind published by BusNotifier.
const BusNamespace = "conversation."

// Event is a fire-and-forget notification about the conversation.
type Event struct {
	Kind    EventKind
	PeerID  string
	Message *message.Message
	At      time.Time
}

// Notifier is informed of sends, call ends and recording sends. Its return
// value, if any, is never consumed.
type Notifier interface {
	Notify(evt Event)
}

// NotifierFunc adapts a function to Notifier.
type NotifierFunc func(evt Event)

func (f NotifierFunc) Notify(evt Event) {
	f(evt)
}

// BusNotifier publishes notifications on the event bus as
// "conversation.<kind>".
type BusNotifier struct {
	Bus *bus.Bus
}

func (n BusNotifier) Notify(evt Event) {
	if n.Bus == nil {
		return
	}
	n.Bus.Publish(bus.Event{
		Kind:      BusNamespace + string(evt.Kind),
		Timestamp: evt.At,
		Payload:   evt,
	})
}
