package store

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/erazemk/soseska/internal/model"
)

// CreateMessage stores a message from one user to another.
func CreateMessage(ctx context.Context, db *sql.DB, fromID, toID int64, body string) (*model.Message, error) {
	result, err := db.ExecContext(ctx,
		`INSERT INTO messages (from_id, to_id, body) VALUES (?, ?, ?)`,
		fromID, toID, body,
	)
	if err != nil {
		return nil, fmt.Errorf("creating message: %w", err)
	}

	id, err := result.LastInsertId()
	if err != nil {
		return nil, fmt.Errorf("getting message id: %w", err)
	}

	return GetMessage(ctx, db, id)
}

// GetMessage returns a message by ID.
func GetMessage(ctx context.Context, db *sql.DB, id int64) (*model.Message, error) {
	m := &model.Message{}
	err := db.QueryRowContext(ctx,
		`SELECT id, from_id, to_id, body, created_at, read_at FROM messages WHERE id = ?`, id,
	).Scan(&m.ID, &m.FromID, &m.ToID, &m.Body, &m.CreatedAt, &m.ReadAt)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("getting message: %w", err)
	}
	return m, nil
}

// ListConversation returns the messages exchanged between two users, oldest first.
func ListConversation(ctx context.Context, db *sql.DB, userID, peerID int64) ([]model.Message, error) {
	rows, err := db.QueryContext(ctx,
		`SELECT id, from_id, to_id, body, created_at, read_at
		 FROM messages
		 WHERE (from_id = ? AND to_id = ?) OR (from_id = ? AND to_id = ?)
		 ORDER BY created_at, id`,
		userID, peerID, peerID, userID,
	)
	if err != nil {
		return nil, fmt.Errorf("listing conversation: %w", err)
	}
	defer rows.Close()

	var messages []model.Message
	for rows.Next() {
		var m model.Message
		if err := rows.Scan(&m.ID, &m.FromID, &m.ToID, &m.Body, &m.CreatedAt, &m.ReadAt); err != nil {
			return nil, fmt.Errorf("scanning message: %w", err)
		}
		messages = append(messages, m)
	}
	return messages, rows.Err()
}

// ListConversations returns one entry per peer the user has exchanged
// messages with, most recent conversation first.
func ListConversations(ctx context.Context, db *sql.DB, userID int64) ([]model.Conversation, error) {
	rows, err := db.QueryContext(ctx,
		`SELECT m.id, m.from_id, m.to_id, m.body, m.created_at, m.read_at,
		        p.id, p.name, p.email,
		        (SELECT COUNT(*) FROM messages x
		         WHERE x.from_id = p.id AND x.to_id = ? AND x.read_at IS NULL)
		 FROM messages m
		 JOIN users p ON p.id = CASE WHEN m.from_id = ? THEN m.to_id ELSE m.from_id END
		 WHERE m.id IN (
		     SELECT MAX(id) FROM messages
		     WHERE from_id = ? OR to_id = ?
		     GROUP BY CASE WHEN from_id = ? THEN to_id ELSE from_id END
		 )
		 ORDER BY m.id DESC`,
		userID, userID, userID, userID, userID,
	)
	if err != nil {
		return nil, fmt.Errorf("listing conversations: %w", err)
	}
	defer rows.Close()

	var conversations []model.Conversation
	for rows.Next() {
		var c model.Conversation
		m := &c.LastMessage
		if err := rows.Scan(&m.ID, &m.FromID, &m.ToID, &m.Body, &m.CreatedAt, &m.ReadAt,
			&c.Peer.ID, &c.Peer.Name, &c.Peer.Email, &c.Unread); err != nil {
			return nil, fmt.Errorf("scanning conversation: %w", err)
		}
		conversations = append(conversations, c)
	}
	return conversations, rows.Err()
}

// MarkMessageRead marks a message read if it is addressed to userID.
// It reports whether such an unread message existed.
func MarkMessageRead(ctx context.Context, db *sql.DB, id, userID int64) (bool, error) {
	result, err := db.ExecContext(ctx,
		`UPDATE messages SET read_at = CURRENT_TIMESTAMP
		 WHERE id = ? AND to_id = ? AND read_at IS NULL`,
		id, userID,
	)
	if err != nil {
		return false, fmt.Errorf("marking message read: %w", err)
	}
	n, err := result.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("checking message update: %w", err)
	}
	return n > 0, nil
}
