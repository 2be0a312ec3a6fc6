package store

import "database/sql"

// OpenSession records that a conversation was opened.
func (db *DB) OpenSession(id, peerID string, openedAt int64) error {
	_, err := db.Exec(`INSERT INTO sessions (id, peer_id, opened_at) VALUES (?, ?, ?)`, id, peerID, openedAt)
	return err
}

// CloseSession stamps the close time of an open session.
func (db *DB) CloseSession(id string, closedAt int64) error {
	_, err := db.Exec(`UPDATE sessions SET closed_at = ? WHERE id = ? AND closed_at IS NULL`, closedAt, id)
	return err
}

// ListSessions returns the most recently opened sessions.
func (db *DB) ListSessions(limit int) ([]SessionRecord, error) {
	if limit <= 0 {
		limit = 20
	}
	rows, err := db.Query(`
		SELECT id, peer_id, opened_at, closed_at FROM sessions
		ORDER BY opened_at DESC LIMIT ?`, limit)
	if err != nil {
		return nil, err
	}
	defer func() { _ = rows.Close() }()

	var out []SessionRecord
	for rows.Next() {
		var r SessionRecord
		var closed sql.NullInt64
		if err := rows.Scan(&r.ID, &r.PeerID, &r.OpenedAt, &closed); err != nil {
			return nil, err
		}
		r.ClosedAt = closed.Int64
		out = append(out, r)
	}
	return out, rows.Err()
}
