package bus

import (
	"testing"
	"time"
)

func TestPublishSubscribe(t *testing.T) {
	b := New()
	ch, unsub := b.Subscribe("conversation.", 10)
	defer unsub()

	b.Publish(Event{Kind: "conversation.message_sent", Timestamp: time.Now(), Payload: "m1"})

	select {
	case evt := <-ch:
		if evt.Kind != "conversation.message_sent" || evt.Payload != "m1" {
			t.Errorf("got %+v", evt)
		}
	case <-time.After(time.Second):
		t.Fatal("timeout waiting for event")
	}
}

func TestNamespaceFiltering(t *testing.T) {
	b := New()
	ch, unsub := b.Subscribe("conversation.", 10)
	defer unsub()

	b.Publish(Event{Kind: "app.started"})
	b.Publish(Event{Kind: "conversation.call_ended"})

	select {
	case evt := <-ch:
		if evt.Kind != "conversation.call_ended" {
			t.Errorf("got kind %q, want conversation.call_ended", evt.Kind)
		}
	case <-time.After(time.Second):
		t.Fatal("timeout waiting for event")
	}

	select {
	case evt := <-ch:
		t.Errorf("unexpected event: %v", evt)
	case <-time.After(50 * time.Millisecond):
	}
}

func TestUnsubscribeClosesChannel(t *testing.T) {
	b := New()
	ch, unsub := b.Subscribe("conversation.", 10)
	unsub()
	unsub()

	b.Publish(Event{Kind: "conversation.message_sent"})

	select {
	case evt, ok := <-ch:
		if ok {
			t.Errorf("received event after unsubscribe: %v", evt)
		}
	case <-time.After(time.Second):
		t.Fatal("channel not closed")
	}
}

func TestDropOnFullBuffer(t *testing.T) {
	b := New()
	ch, unsub := b.Subscribe("test.", 1)
	defer unsub()

	b.Publish(Event{Kind: "test.one"})
	b.Publish(Event{Kind: "test.two"})

	evt := <-ch
	if evt.Kind != "test.one" {
		t.Errorf("got %q, want test.one", evt.Kind)
	}
	if got := b.Dropped(); got != 1 {
		t.Errorf("Dropped() = %d, want 1", got)
	}
}

func TestClose(t *testing.T) {
	b := New()
	ch, unsub := b.Subscribe("", 1)
	b.Close()
	unsub()

	if _, ok := <-ch; ok {
		t.Error("channel open after Close")
	}
	b.Publish(Event{Kind: "x"})

	late, _ := b.Subscribe("", 1)
	if _, ok := <-late; ok {
		t.Error("subscription after Close should be closed")
	}
}

func TestNamespace(t *testing.T) {
	tests := map[string]string{
		"conversation.message_sent": "conversation",
		"plain":                     "plain",
		"":                          "",
	}
	for kind, want := range tests {
		if got := (Event{Kind: kind}).Namespace(); got != want {
			t.Errorf("Namespace(%q) = %q, want %q", kind, got, want)
		}
	}
}
