package message

import (
	"errors"
	"fmt"
)

var (
	// ErrInvalidMessage is returned when a message carries more than one payload.
	ErrInvalidMessage = errors.New("invalid message")
	// ErrStatusRegression is returned for a backward status change.
	ErrStatusRegression = errors.New("status regression")
	// ErrNotFound is returned when no message has the given id.
	ErrNotFound = errors.New("message not found")
	// ErrNotScheduled is returned when removing a message that is not an unsent scheduled one.
	ErrNotScheduled = errors.New("message is not scheduled")
)

// Store is the ordered message log of one conversation. It is owned by a
// single event loop and is not safe for concurrent use.
type Store struct {
	msgs []Message
}

// NewStore creates an empty store.
func NewStore() *Store {
	return &Store{}
}

// Append adds m at the end of the log.
func (s *Store) Append(m Message) error {
	if m.ID == "" {
		return fmt.Errorf("%w: empty id", ErrInvalidMessage)
	}
	payloads := 0
	for _, set := range []bool{m.Text != "", m.Media != nil, m.Call != nil} {
		if set {
			payloads++
		}
	}
	if payloads > 1 {
		return fmt.Errorf("%w: %s carries more than one of text, media and call info", ErrInvalidMessage, m.ID)
	}
	if s.index(m.ID) >= 0 {
		return fmt.Errorf("%w: duplicate id %s", ErrInvalidMessage, m.ID)
	}
	s.msgs = append(s.msgs, m.clone())
	return nil
}

// Get returns a copy of the message with the given id.
func (s *Store) Get(id string) (Message, bool) {
	i := s.index(id)
	if i < 0 {
		return Message{}, false
	}
	return s.msgs[i].clone(), true
}

// Remove deletes the message with the given id and returns it.
func (s *Store) Remove(id string) (Message, bool) {
	i := s.index(id)
	if i < 0 {
		return Message{}, false
	}
	m := s.msgs[i]
	s.msgs = append(s.msgs[:i], s.msgs[i+1:]...)
	return m, true
}

// RemoveScheduled deletes a message only if it is still waiting for dispatch.
func (s *Store) RemoveScheduled(id string) (Message, error) {
	i := s.index(id)
	if i < 0 {
		return Message{}, fmt.Errorf("%w: %s", ErrNotFound, id)
	}
	if !s.msgs[i].IsScheduled {
		return Message{}, fmt.Errorf("%w: %s", ErrNotScheduled, id)
	}
	m, _ := s.Remove(id)
	return m, nil
}

// UpdateStatus moves a message forward to status. Scheduled messages only
// leave the scheduled state through dispatch.
func (s *Store) UpdateStatus(id string, status Status) error {
	i := s.index(id)
	if i < 0 {
		return fmt.Errorf("%w: %s", ErrNotFound, id)
	}
	m := &s.msgs[i]
	if m.IsScheduled || status.rank() <= m.Status.rank() {
		return fmt.Errorf("%w: %s %s -> %s", ErrStatusRegression, id, m.Status, status)
	}
	m.Status = status
	return nil
}

// Mutate applies fn to every message in one pass and returns copies of the
// messages fn reported as changed. Read messages are frozen and skipped.
func (s *Store) Mutate(fn func(m *Message) bool) []Message {
	var changed []Message
	for i := range s.msgs {
		m := &s.msgs[i]
		if m.Status == Read {
			continue
		}
		before := m.Status
		if !fn(m) {
			continue
		}
		if m.Status.rank() < before.rank() {
			m.Status = before
		}
		changed = append(changed, m.clone())
	}
	return changed
}

// List returns a copy of all messages in insertion order.
func (s *Store) List() []Message {
	out := make([]Message, len(s.msgs))
	for i, m := range s.msgs {
		out[i] = m.clone()
	}
	return out
}

// Len returns the number of messages.
func (s *Store) Len() int {
	return len(s.msgs)
}

// Clear removes every message.
func (s *Store) Clear() {
	s.msgs = nil
}

func (s *Store) index(id string) int {
	for i := range s.msgs {
		if s.msgs[i].ID == id {
			return i
		}
	}
	return -1
}
