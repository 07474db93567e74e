package testfixtures

import (
	"fmt"
	"sync/atomic"
	"time"

	"github.com/example/chat-relay/internal/application"
	"github.com/example/chat-relay/internal/persistence"
)

var (
	roomCounter    uint64
	messageCounter uint64
	sessionCounter uint64
)

var referenceTime = time.Date(2024, time.January, 2, 15, 4, 5, 0, time.UTC)

// ReferenceTime returns the canonical baseline timestamp used by fixtures.
func ReferenceTime() time.Time {
	return referenceTime
}

// ----------------------------- Room fixtures -----------------------------

// RoomFixture represents a deterministic room record.
type RoomFixture struct {
	Name      string
	CreatedAt time.Time
}

// RoomOption configures the generated room fixture.
type RoomOption func(*RoomFixture)

// NewRoomFixture returns a deterministic room fixture with optional overrides.
func NewRoomFixture(opts ...RoomOption) RoomFixture {
	idx := atomic.AddUint64(&roomCounter, 1)
	fixture := RoomFixture{
		Name:      fmt.Sprintf("room-%03d", idx),
		CreatedAt: referenceTime.Add(time.Duration(idx) * time.Minute),
	}
	for _, opt := range opts {
		opt(&fixture)
	}
	return fixture
}

// WithRoomName overrides the generated room name.
func WithRoomName(name string) RoomOption {
	return func(f *RoomFixture) {
		f.Name = name
	}
}

// WithRoomCreatedAt sets the created timestamp on the fixture.
func WithRoomCreatedAt(t time.Time) RoomOption {
	return func(f *RoomFixture) {
		f.CreatedAt = t
	}
}

// Application returns the fixture as an application.Room value.
func (f RoomFixture) Application() application.Room {
	return application.Room{Name: f.Name, CreatedAt: f.CreatedAt}
}

// Persistence returns the fixture as a persistence.Room value.
func (f RoomFixture) Persistence() persistence.Room {
	return persistence.Room{Name: f.Name, CreatedAt: f.CreatedAt}
}

// ---------------------------- Message fixtures ---------------------------

// MessageFixture represents a deterministic stored message.
type MessageFixture struct {
	ID           string
	Room         string
	Author       string
	Body         string
	Kind         persistence.MessageKind
	AttachmentID *string
	CreatedAt    time.Time
}

// MessageOption configures the generated message fixture.
type MessageOption func(*MessageFixture)

// NewMessageFixture returns a deterministic text message fixture with
// optional overrides.
func NewMessageFixture(opts ...MessageOption) MessageFixture {
	idx := atomic.AddUint64(&messageCounter, 1)
	fixture := MessageFixture{
		ID:        fmt.Sprintf("message-%03d", idx),
		Room:      "general",
		Author:    fmt.Sprintf("user-%03d", idx),
		Body:      fmt.Sprintf("message body %03d", idx),
		Kind:      persistence.KindText,
		CreatedAt: referenceTime.Add(time.Duration(idx) * time.Second),
	}
	for _, opt := range opts {
		opt(&fixture)
	}
	return fixture
}

// WithMessageID overrides the generated message ID.
func WithMessageID(id string) MessageOption {
	return func(f *MessageFixture) {
		f.ID = id
	}
}

// WithMessageRoom sets the room the message belongs to.
func WithMessageRoom(room string) MessageOption {
	return func(f *MessageFixture) {
		f.Room = room
	}
}

// WithMessageAuthor sets the author name.
func WithMessageAuthor(author string) MessageOption {
	return func(f *MessageFixture) {
		f.Author = author
	}
}

// WithMessageBody sets the stored body.
func WithMessageBody(body string) MessageOption {
	return func(f *MessageFixture) {
		f.Body = body
	}
}

// WithMessageKind sets the message kind.
func WithMessageKind(kind persistence.MessageKind) MessageOption {
	return func(f *MessageFixture) {
		f.Kind = kind
	}
}

// WithMessageAttachment sets the attachment id and flips the kind to file
// unless an image kind was already chosen.
func WithMessageAttachment(id string) MessageOption {
	return func(f *MessageFixture) {
		value := id
		f.AttachmentID = &value
		if f.Kind == persistence.KindText {
			f.Kind = persistence.KindFile
		}
	}
}

// WithMessageCreatedAt sets the append timestamp.
func WithMessageCreatedAt(t time.Time) MessageOption {
	return func(f *MessageFixture) {
		f.CreatedAt = t
	}
}

// Application returns the fixture as an application.Message value.
func (f MessageFixture) Application() application.Message {
	return application.Message{
		ID:           f.ID,
		Room:         f.Room,
		Author:       f.Author,
		Body:         f.Body,
		Kind:         application.MessageKind(f.Kind),
		AttachmentID: copyStringPtr(f.AttachmentID),
		CreatedAt:    f.CreatedAt,
	}
}

// Persistence returns the fixture as a persistence.Message value.
func (f MessageFixture) Persistence() persistence.Message {
	return persistence.Message{
		ID:           f.ID,
		Room:         f.Room,
		Author:       f.Author,
		Body:         f.Body,
		Kind:         f.Kind,
		AttachmentID: copyStringPtr(f.AttachmentID),
		CreatedAt:    f.CreatedAt,
	}
}

// ---------------------------- Session fixtures ---------------------------

// SessionFixture represents a deterministic session record.
type SessionFixture struct {
	ID          string
	Token       string
	DisplayName string
	IsAdmin     bool
	ExpiresAt   time.Time
	CreatedAt   time.Time
	UpdatedAt   time.Time
	RevokedAt   *time.Time
}

// SessionOption configures the generated session fixture.
type SessionOption func(*SessionFixture)

// NewSessionFixture returns a deterministic session fixture with optional overrides.
func NewSessionFixture(opts ...SessionOption) SessionFixture {
	idx := atomic.AddUint64(&sessionCounter, 1)
	created := referenceTime
	fixture := SessionFixture{
		ID:          fmt.Sprintf("session-%03d", idx),
		Token:       fmt.Sprintf("token-%03d", idx),
		DisplayName: fmt.Sprintf("user-%03d", idx),
		ExpiresAt:   created.Add(24 * time.Hour),
		CreatedAt:   created,
		UpdatedAt:   created,
	}
	for _, opt := range opts {
		opt(&fixture)
	}
	return fixture
}

// WithSessionToken overrides the token value.
func WithSessionToken(token string) SessionOption {
	return func(f *SessionFixture) {
		f.Token = token
	}
}

// WithSessionDisplayName sets the display name.
func WithSessionDisplayName(name string) SessionOption {
	return func(f *SessionFixture) {
		f.DisplayName = name
	}
}

// WithSessionAdmin sets the admin flag.
func WithSessionAdmin(isAdmin bool) SessionOption {
	return func(f *SessionFixture) {
		f.IsAdmin = isAdmin
	}
}

// WithSessionExpiresAt sets the expiration timestamp.
func WithSessionExpiresAt(t time.Time) SessionOption {
	return func(f *SessionFixture) {
		f.ExpiresAt = t
	}
}

// WithSessionRevokedAt sets the optional revoked timestamp.
func WithSessionRevokedAt(t time.Time) SessionOption {
	return func(f *SessionFixture) {
		revoked := t
		f.RevokedAt = &revoked
	}
}

// Application returns the fixture as an application.Session value.
func (f SessionFixture) Application() application.Session {
	return application.Session{
		ID:          f.ID,
		Token:       f.Token,
		DisplayName: f.DisplayName,
		IsAdmin:     f.IsAdmin,
		ExpiresAt:   f.ExpiresAt,
		CreatedAt:   f.CreatedAt,
		UpdatedAt:   f.UpdatedAt,
		RevokedAt:   copyTimePtr(f.RevokedAt),
	}
}

// Persistence returns the fixture as a persistence.Session value.
func (f SessionFixture) Persistence() persistence.Session {
	return persistence.Session{
		ID:          f.ID,
		Token:       f.Token,
		DisplayName: f.DisplayName,
		IsAdmin:     f.IsAdmin,
		ExpiresAt:   f.ExpiresAt,
		CreatedAt:   f.CreatedAt,
		UpdatedAt:   f.UpdatedAt,
		RevokedAt:   copyTimePtr(f.RevokedAt),
	}
}

func copyStringPtr(src *string) *string {
	if src == nil {
		return nil
	}
	value := *src
	return &value
}

func copyTimePtr(src *time.Time) *time.Time {
	if src == nil {
		return nil
	}
	value := *src
	return &value
}
