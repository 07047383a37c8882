package db

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/courier-im/courier/internal/models"
	"github.com/courier-im/courier/internal/principal"
)

// Message repository errors.
var (
	ErrInvalidContent = errors.New("invalid message content")
	ErrSelfMessage    = errors.New("sender and receiver are the same principal")
)

// MessageRepository handles message persistence. It owns the store's logical
// clock: message timestamps are nanosecond-scale and strictly increasing,
// even when the wall clock stalls or steps backwards.
type MessageRepository struct {
	db  *DB
	now func() time.Time

	mu   sync.Mutex
	last int64
}

// NewMessageRepository creates a MessageRepository.
func NewMessageRepository(db *DB) *MessageRepository {
	return &MessageRepository{db: db, now: func() time.Time { return time.Now().UTC() }}
}

// nextTimestamp advances the logical clock.
func (r *MessageRepository) nextTimestamp() int64 {
	r.mu.Lock()
	defer r.mu.Unlock()

	ts := r.now().UnixNano()
	if ts <= r.last {
		ts = r.last + 1
	}
	r.last = ts
	return ts
}

// Send stores a new message from sender to receiver and returns it with the
// assigned id and timestamp. Content is validated against the same limits
// clients enforce locally.
func (r *MessageRepository) Send(ctx context.Context, sender, receiver principal.Principal, content string) (models.ChatMessage, error) {
	if result := models.ValidateMessage(content); !result.Valid {
		return models.ChatMessage{}, fmt.Errorf("%w: %s", ErrInvalidContent, result.Error)
	}
	if sender.Equal(receiver) {
		return models.ChatMessage{}, ErrSelfMessage
	}

	msg := models.ChatMessage{
		Sender:    sender,
		Receiver:  receiver,
		Content:   content,
		Timestamp: r.nextTimestamp(),
	}

	err := r.db.TransactionWithRetry(ctx, 0, 0, func(tx *sql.Tx) error {
		res, err := tx.ExecContext(ctx, `
			INSERT INTO messages (sender, receiver, content, is_read, timestamp)
			VALUES (?, ?, ?, 0, ?)
		`, msg.Sender.String(), msg.Receiver.String(), msg.Content, msg.Timestamp)
		if err != nil {
			return fmt.Errorf("failed to insert message: %w", err)
		}
		msg.ID, err = res.LastInsertId()
		if err != nil {
			return fmt.Errorf("failed to read message id: %w", err)
		}
		return nil
	})
	if err != nil {
		return models.ChatMessage{}, err
	}
	return msg, nil
}

// Between returns every message exchanged between the two principals, in
// insertion order.
func (r *MessageRepository) Between(ctx context.Context, a, b principal.Principal) ([]models.ChatMessage, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT id, sender, receiver, content, is_read, timestamp
		FROM messages
		WHERE (sender = ? AND receiver = ?) OR (sender = ? AND receiver = ?)
		ORDER BY id
	`, a.String(), b.String(), b.String(), a.String())
	if err != nil {
		return nil, fmt.Errorf("failed to query messages: %w", err)
	}
	defer rows.Close()

	var messages []models.ChatMessage
	for rows.Next() {
		msg, err := scanMessage(rows)
		if err != nil {
			return nil, err
		}
		messages = append(messages, msg)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating messages: %w", err)
	}
	return messages, nil
}

// UnreadCount returns how many messages from `from` to `viewer` are unread.
func (r *MessageRepository) UnreadCount(ctx context.Context, viewer, from principal.Principal) (int64, error) {
	var count int64
	err := r.db.QueryRowContext(ctx, `
		SELECT COUNT(*) FROM messages
		WHERE receiver = ? AND sender = ? AND is_read = 0
	`, viewer.String(), from.String()).Scan(&count)
	if err != nil {
		return 0, fmt.Errorf("failed to count unread messages: %w", err)
	}
	return count, nil
}

// MarkRead marks every message from `from` to `viewer` as read. The flag
// only ever moves from unread to read; already-read messages are untouched.
func (r *MessageRepository) MarkRead(ctx context.Context, viewer, from principal.Principal) error {
	err := r.db.TransactionWithRetry(ctx, 0, 0, func(tx *sql.Tx) error {
		_, err := tx.ExecContext(ctx, `
			UPDATE messages SET is_read = 1
			WHERE receiver = ? AND sender = ? AND is_read = 0
		`, viewer.String(), from.String())
		return err
	})
	if err != nil {
		return fmt.Errorf("failed to mark messages read: %w", err)
	}
	return nil
}

// ChatList returns one entry per conversation partner of the viewer, with
// the timestamp of the latest message between the pair. Unsorted; the pair
// is reported in canonical (text ascending) order, not viewer-first.
func (r *MessageRepository) ChatList(ctx context.Context, viewer principal.Principal) ([]models.ChatListEntry, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT CASE WHEN sender = ? THEN receiver ELSE sender END AS other,
		       MAX(timestamp) AS last_activity
		FROM messages
		WHERE sender = ? OR receiver = ?
		GROUP BY other
	`, viewer.String(), viewer.String(), viewer.String())
	if err != nil {
		return nil, fmt.Errorf("failed to query chat list: %w", err)
	}
	defer rows.Close()

	var entries []models.ChatListEntry
	for rows.Next() {
		var other string
		var lastActivity int64
		if err := rows.Scan(&other, &lastActivity); err != nil {
			return nil, fmt.Errorf("failed to scan chat list row: %w", err)
		}
		pair := [2]principal.Principal{viewer, principal.Principal(other)}
		if pair[1] < pair[0] {
			pair[0], pair[1] = pair[1], pair[0]
		}
		entries = append(entries, models.ChatListEntry{
			Participants: pair,
			LastActivity: lastActivity,
		})
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating chat list: %w", err)
	}
	return entries, nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanMessage(row rowScanner) (models.ChatMessage, error) {
	var msg models.ChatMessage
	var sender, receiver string
	var isRead int

	if err := row.Scan(&msg.ID, &sender, &receiver, &msg.Content, &isRead, &msg.Timestamp); err != nil {
		return models.ChatMessage{}, fmt.Errorf("failed to scan message: %w", err)
	}
	msg.Sender = principal.Principal(sender)
	msg.Receiver = principal.Principal(receiver)
	msg.IsRead = isRead != 0
	return msg, nil
}
