package store

import (
	"errors"
	"fmt"
)

// ErrEmptyKind is returned when inserting an event without a kind.
var ErrEmptyKind = errors.New("event kind is required")

// InsertEvent appends e and returns its row id.
func (db *DB) InsertEvent(e *Event) (int64, error) {
	if e.Kind == "" {
		return 0, ErrEmptyKind
	}
	res, err := db.Exec(`
		INSERT INTO events (kind, peer_id, message_id, detail, occurred_at)
		VALUES (?, ?, ?, ?, ?)`,
		e.Kind, e.PeerID, e.MessageID, e.Detail, e.OccurredAt)
	if err != nil {
		return 0, fmt.Errorf("insert event: %w", err)
	}
	return res.LastInsertId()
}

// ListEvents returns the newest events, optionally restricted to one kind.
func (db *DB) ListEvents(kind string, limit int) ([]Event, error) {
	if limit <= 0 {
		limit = 50
	}
	q := `SELECT id, kind, peer_id, message_id, detail, occurred_at FROM events`
	var args []any
	if kind != "" {
		q += ` WHERE kind = ?`
		args = append(args, kind)
	}
	q += ` ORDER BY occurred_at DESC, id DESC LIMIT ?`
	args = append(args, limit)

	rows, err := db.Query(q, args...)
	if err != nil {
		return nil, err
	}
	defer func() { _ = rows.Close() }()

	var events []Event
	for rows.Next() {
		var e Event
		if err := rows.Scan(&e.ID, &e.Kind, &e.PeerID, &e.MessageID, &e.Detail, &e.OccurredAt); err != nil {
			return nil, err
		}
		events = append(events, e)
	}
	return events, rows.Err()
}

// EventCounts returns the number of events per kind, most frequent first.
func (db *DB) EventCounts() ([]KindCount, error) {
	rows, err := db.Query(`
		SELECT kind, COUNT(*) AS n FROM events
		GROUP BY kind ORDER BY n DESC, kind ASC`)
	if err != nil {
		return nil, err
	}
	defer func() { _ = rows.Close() }()

	var counts []KindCount
	for rows.Next() {
		var c KindCount
		if err := rows.Scan(&c.Kind, &c.Count); err != nil {
			return nil, err
		}
		counts = append(counts, c)
	}
	return counts, rows.Err()
}
