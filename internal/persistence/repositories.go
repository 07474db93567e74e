package persistence

import (
	"context"
	"time"
)

// RoomRepository exposes the durable room catalog. Creation order is the
// list order. CreateRoom must be atomic with respect to the uniqueness
// check: two concurrent creates of the same name must not both succeed.
type RoomRepository interface {
	CreateRoom(ctx context.Context, room Room) error
	ListRooms(ctx context.Context) ([]Room, error)
	// DeleteRoom removes the room and its entire message log. Deleting a
	// room that does not exist is not an error.
	DeleteRoom(ctx context.Context, name string) error
}

// MessageRepository stores each room's append-only, time-ordered message log.
type MessageRepository interface {
	// AppendMessage persists the message and returns the stored form.
	// CreatedAt is assigned by the caller from the server clock, never
	// taken from client input.
	AppendMessage(ctx context.Context, message Message) (Message, error)
	// ListMessages returns the full log in append order.
	ListMessages(ctx context.Context, room string) ([]Message, error)
	// ListMessagesSince returns messages with CreatedAt strictly after the
	// watermark, in append order.
	ListMessagesSince(ctx context.Context, room string, watermark time.Time) ([]Message, error)
	// DeleteMessages drops the room's whole log. Idempotent.
	DeleteMessages(ctx context.Context, room string) error
}

// SessionRepository stores authentication session state.
type SessionRepository interface {
	CreateSession(ctx context.Context, session Session) (Session, error)
	GetSession(ctx context.Context, token string) (Session, error)
	RevokeSession(ctx context.Context, token string, revokedAt time.Time) (Session, error)
	DeleteExpiredSessions(ctx context.Context, reference time.Time) error
}
