package persistence

import "time"

// Room represents a named chat channel. Names are unique and case-sensitive.
type Room struct {
	Name      string
	CreatedAt time.Time
}

// MessageKind classifies how a stored message body should be interpreted.
type MessageKind string

const (
	// KindText marks a chat text message; the stored body is plaintext and
	// is re-sealed before leaving the server.
	KindText MessageKind = "text"
	// KindImage marks an uploaded image; the body is the display filename.
	KindImage MessageKind = "image"
	// KindFile marks a generic uploaded file; the body is the display filename.
	KindFile MessageKind = "file"
)

// Message represents one entry in a room's append-only log. Messages are
// immutable once appended and are removed only when their room is deleted.
type Message struct {
	ID           string
	Room         string
	Author       string
	Body         string
	Kind         MessageKind
	AttachmentID *string
	CreatedAt    time.Time
}

// Session represents an authenticated login persisted for its lifetime.
type Session struct {
	ID          string
	Token       string
	DisplayName string
	IsAdmin     bool
	ExpiresAt   time.Time
	CreatedAt   time.Time
	UpdatedAt   time.Time
	RevokedAt   *time.Time
}
