package sqlite

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/example/chat-relay/internal/persistence"
)

// RoomRepository implements persistence.RoomRepository using SQLite.
type RoomRepository struct {
	pool *ConnectionPool
}

// NewRoomRepository creates a new SQLite room repository.
func NewRoomRepository(pool *ConnectionPool) *RoomRepository {
	return &RoomRepository{pool: pool}
}

// CreateRoom inserts a new room. The PRIMARY KEY on name makes the
// check-then-insert atomic: a concurrent create of the same name surfaces as
// persistence.ErrDuplicate instead of a second success.
func (r *RoomRepository) CreateRoom(ctx context.Context, room persistence.Room) error {
	if room.Name == "" {
		return persistence.ErrConstraintViolation
	}

	query := `INSERT INTO rooms (name, created_at) VALUES (?, ?)`

	_, err := r.pool.db.ExecContext(ctx, query,
		room.Name,
		room.CreatedAt.UTC().Format(time.RFC3339),
	)
	if err != nil {
		return mapError(err)
	}
	return nil
}

// ListRooms returns all rooms in creation order.
func (r *RoomRepository) ListRooms(ctx context.Context) ([]persistence.Room, error) {
	query := `SELECT name, created_at FROM rooms ORDER BY rowid ASC`

	rows, err := r.pool.db.QueryContext(ctx, query)
	if err != nil {
		return nil, mapError(err)
	}
	defer rows.Close()

	var rooms []persistence.Room
	for rows.Next() {
		var room persistence.Room
		var createdAtStr string
		if err := rows.Scan(&room.Name, &createdAtStr); err != nil {
			return nil, mapError(err)
		}
		if room.CreatedAt, err = time.Parse(time.RFC3339, createdAtStr); err != nil {
			return nil, fmt.Errorf("parse created_at: %w", err)
		}
		rooms = append(rooms, room)
	}
	if err := rows.Err(); err != nil {
		return nil, mapError(err)
	}
	return rooms, nil
}

// DeleteRoom removes the room and its message log in one transaction.
// Deleting a room that does not exist is not an error.
func (r *RoomRepository) DeleteRoom(ctx context.Context, name string) error {
	if name == "" {
		return nil
	}

	return r.pool.WithTransaction(ctx, func(tx *sql.Tx) error {
		if _, err := tx.ExecContext(ctx, `DELETE FROM messages WHERE room = ?`, name); err != nil {
			return mapError(err)
		}
		if _, err := tx.ExecContext(ctx, `DELETE FROM rooms WHERE name = ?`, name); err != nil {
			return mapError(err)
		}
		return nil
	})
}
