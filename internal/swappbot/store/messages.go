package store

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
)

// Message is one chat-log row.
type Message struct {
	ID        string    `json:"id"`
	Sender    string    `json:"sender"` // "user" or "bot"
	Text      string    `json:"text"`
	CreatedAt time.Time `json:"createdAt"`
}

// RecordMessage appends a message to the chat log.
//
// Callers on the reply path treat failures here as non-fatal: the chat log is
// a best-effort side effect and must never abort a reply.
func (s *Store) RecordMessage(ctx context.Context, sender, text string) error {
	if sender != "user" && sender != "bot" {
		return fmt.Errorf("store: invalid sender %q", sender)
	}
	_, err := s.db.ExecContext(ctx, `
INSERT INTO messages (id, sender, text, created_at)
VALUES (?, ?, ?, ?)
`, uuid.New().String(), sender, text, time.Now().UTC().Format(time.RFC3339Nano))
	if err != nil {
		return fmt.Errorf("store: record message: %w", err)
	}
	return nil
}

// RecentMessages returns up to limit chat-log rows, newest first.
func (s *Store) RecentMessages(ctx context.Context, limit int) ([]Message, error) {
	if limit <= 0 {
		limit = 50
	}
	rows, err := s.db.QueryContext(ctx, `
SELECT id, sender, text, created_at
FROM messages
ORDER BY created_at DESC
LIMIT ?
`, limit)
	if err != nil {
		return nil, fmt.Errorf("store: query messages: %w", err)
	}
	defer rows.Close()

	var out []Message
	for rows.Next() {
		var m Message
		var createdStr string
		if err := rows.Scan(&m.ID, &m.Sender, &m.Text, &createdStr); err != nil {
			return nil, fmt.Errorf("store: scan message: %w", err)
		}
		m.CreatedAt, _ = time.Parse(time.RFC3339Nano, createdStr)
		out = append(out, m)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("store: iterate messages: %w", err)
	}
	return out, nil
}

// MessageCount returns the total number of chat-log rows. Used by /status.
func (s *Store) MessageCount(ctx context.Context) (int, error) {
	var n int
	if err := s.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM messages`).Scan(&n); err != nil {
		return 0, fmt.Errorf("store: count messages: %w", err)
	}
	return n, nil
}
