package sqlite

import (
	"context"
	"database/sql"
	"time"

	"github.com/example/chat-relay/internal/persistence"
)

// MessageRepository implements persistence.MessageRepository using SQLite.
// Timestamps are stored as unix seconds, the unit of the client watermark.
type MessageRepository struct {
	pool *ConnectionPool
}

// NewMessageRepository creates a new SQLite message repository.
func NewMessageRepository(pool *ConnectionPool) *MessageRepository {
	return &MessageRepository{pool: pool}
}

// AppendMessage persists a message at the tail of its room's log. A single
// INSERT through the one-writer pool keeps concurrent appends from losing
// updates; rowid preserves arrival order within one second.
func (r *MessageRepository) AppendMessage(ctx context.Context, message persistence.Message) (persistence.Message, error) {
	if message.ID == "" || message.Room == "" {
		return persistence.Message{}, persistence.ErrConstraintViolation
	}

	query := `
		INSERT INTO messages (id, room, author, body, kind, attachment_id, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?)
	`

	var attachmentID sql.NullString
	if message.AttachmentID != nil {
		attachmentID = sql.NullString{String: *message.AttachmentID, Valid: true}
	}

	_, err := r.pool.db.ExecContext(ctx, query,
		message.ID,
		message.Room,
		message.Author,
		message.Body,
		string(message.Kind),
		attachmentID,
		message.CreatedAt.Unix(),
	)
	if err != nil {
		return persistence.Message{}, mapError(err)
	}

	message.CreatedAt = time.Unix(message.CreatedAt.Unix(), 0).UTC()
	return message, nil
}

// ListMessages returns the room's full log in append order.
func (r *MessageRepository) ListMessages(ctx context.Context, room string) ([]persistence.Message, error) {
	query := `
		SELECT id, room, author, body, kind, attachment_id, created_at
		FROM messages
		WHERE room = ?
		ORDER BY created_at ASC, rowid ASC
	`
	return r.queryMessages(ctx, query, room)
}

// ListMessagesSince returns messages appended strictly after the watermark,
// in append order.
func (r *MessageRepository) ListMessagesSince(ctx context.Context, room string, watermark time.Time) ([]persistence.Message, error) {
	query := `
		SELECT id, room, author, body, kind, attachment_id, created_at
		FROM messages
		WHERE room = ? AND created_at > ?
		ORDER BY created_at ASC, rowid ASC
	`
	return r.queryMessages(ctx, query, room, watermark.Unix())
}

// DeleteMessages drops the room's entire log. Idempotent.
func (r *MessageRepository) DeleteMessages(ctx context.Context, room string) error {
	if room == "" {
		return nil
	}
	if _, err := r.pool.db.ExecContext(ctx, `DELETE FROM messages WHERE room = ?`, room); err != nil {
		return mapError(err)
	}
	return nil
}

func (r *MessageRepository) queryMessages(ctx context.Context, query string, args ...any) ([]persistence.Message, error) {
	rows, err := r.pool.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, mapError(err)
	}
	defer rows.Close()

	var messages []persistence.Message
	for rows.Next() {
		var message persistence.Message
		var kind string
		var attachmentID sql.NullString
		var createdAtUnix int64

		err := rows.Scan(
			&message.ID,
			&message.Room,
			&message.Author,
			&message.Body,
			&kind,
			&attachmentID,
			&createdAtUnix,
		)
		if err != nil {
			return nil, mapError(err)
		}

		message.Kind = persistence.MessageKind(kind)
		if attachmentID.Valid {
			value := attachmentID.String
			message.AttachmentID = &value
		}
		message.CreatedAt = time.Unix(createdAtUnix, 0).UTC()

		messages = append(messages, message)
	}
	if err := rows.Err(); err != nil {
		return nil, mapError(err)
	}
	return messages, nil
}
