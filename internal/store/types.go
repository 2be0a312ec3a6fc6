package store

// Event is one recorded conversation notification.
type Event struct {
	ID         int64
	Kind       string
	PeerID     string
	MessageID  string
	Detail     string
	OccurredAt int64 // unix millis
}

// KindCount is the number of events of one kind.
type KindCount struct {
	Kind  string
	Count int
}

// SessionRecord is one opened conversation.
type SessionRecord struct {
	ID       string
	PeerID   string
	OpenedAt int64
	ClosedAt int64 // zero while open
}
