package testfixtures

import (
	"bytes"
	"context"
	"io"
	"sort"
	"sync"
	"time"

	"github.com/example/chat-relay/internal/application"
	"github.com/example/chat-relay/internal/persistence"
)

// MemoryRoomRepository is an in-memory application.RoomRepository for
// service-level tests.
type MemoryRoomRepository struct {
	mu    sync.Mutex
	rooms []application.Room
}

// NewMemoryRoomRepository returns an empty room repository.
func NewMemoryRoomRepository() *MemoryRoomRepository {
	return &MemoryRoomRepository{}
}

// CreateRoom appends the room, failing with persistence.ErrDuplicate on a
// name collision.
func (r *MemoryRoomRepository) CreateRoom(_ context.Context, room application.Room) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, existing := range r.rooms {
		if existing.Name == room.Name {
			return persistence.ErrDuplicate
		}
	}
	r.rooms = append(r.rooms, room)
	return nil
}

// ListRooms returns rooms in creation order.
func (r *MemoryRoomRepository) ListRooms(_ context.Context) ([]application.Room, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]application.Room(nil), r.rooms...), nil
}

// DeleteRoom removes the room if present. Idempotent.
func (r *MemoryRoomRepository) DeleteRoom(_ context.Context, name string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	kept := r.rooms[:0]
	for _, room := range r.rooms {
		if room.Name != name {
			kept = append(kept, room)
		}
	}
	r.rooms = kept
	return nil
}

// MemoryMessageRepository is an in-memory application.MessageRepository.
type MemoryMessageRepository struct {
	mu       sync.Mutex
	messages []application.Message
}

// NewMemoryMessageRepository returns an empty message repository.
func NewMemoryMessageRepository() *MemoryMessageRepository {
	return &MemoryMessageRepository{}
}

// AppendMessage stores the message and returns it unchanged.
func (r *MemoryMessageRepository) AppendMessage(_ context.Context, message application.Message) (application.Message, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.messages = append(r.messages, message)
	return message, nil
}

// ListMessages returns the room's log in append order.
func (r *MemoryMessageRepository) ListMessages(_ context.Context, room string) ([]application.Message, error) {
	return r.list(room, time.Time{})
}

// ListMessagesSince returns messages strictly newer than the watermark.
func (r *MemoryMessageRepository) ListMessagesSince(_ context.Context, room string, watermark time.Time) ([]application.Message, error) {
	return r.list(room, watermark)
}

func (r *MemoryMessageRepository) list(room string, watermark time.Time) ([]application.Message, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	var out []application.Message
	for _, m := range r.messages {
		if m.Room != room {
			continue
		}
		if !watermark.IsZero() && !m.CreatedAt.After(watermark) {
			continue
		}
		out = append(out, m)
	}
	sort.SliceStable(out, func(i, j int) bool {
		return out[i].CreatedAt.Before(out[j].CreatedAt)
	})
	return out, nil
}

// MemorySessionRepository is an in-memory application.SessionRepository.
type MemorySessionRepository struct {
	mu       sync.Mutex
	sessions map[string]application.Session
}

// NewMemorySessionRepository returns an empty session repository.
func NewMemorySessionRepository() *MemorySessionRepository {
	return &MemorySessionRepository{sessions: make(map[string]application.Session)}
}

// CreateSession stores the session keyed by its token.
func (r *MemorySessionRepository) CreateSession(_ context.Context, session application.Session) (application.Session, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, exists := r.sessions[session.Token]; exists {
		return application.Session{}, persistence.ErrDuplicate
	}
	r.sessions[session.Token] = session
	return session, nil
}

// GetSession looks up a session by token.
func (r *MemorySessionRepository) GetSession(_ context.Context, token string) (application.Session, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	session, ok := r.sessions[token]
	if !ok {
		return application.Session{}, application.ErrNotFound
	}
	return session, nil
}

// RevokeSession marks the session revoked at the given time.
func (r *MemorySessionRepository) RevokeSession(_ context.Context, token string, revokedAt time.Time) (application.Session, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	session, ok := r.sessions[token]
	if !ok {
		return application.Session{}, application.ErrNotFound
	}
	session.RevokedAt = &revokedAt
	session.UpdatedAt = revokedAt
	r.sessions[token] = session
	return session, nil
}

// DeleteExpiredSessions drops sessions whose expiry is at or before the
// reference time.
func (r *MemorySessionRepository) DeleteExpiredSessions(_ context.Context, reference time.Time) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	for token, session := range r.sessions {
		if !session.ExpiresAt.IsZero() && !session.ExpiresAt.After(reference) {
			delete(r.sessions, token)
		}
	}
	return nil
}

// MemoryBlobStore is an in-memory attachment store for chat-service and
// download-handler tests.
type MemoryBlobStore struct {
	mu    sync.Mutex
	blobs map[string][]byte
}

// NewMemoryBlobStore returns an empty blob store.
func NewMemoryBlobStore() *MemoryBlobStore {
	return &MemoryBlobStore{blobs: make(map[string][]byte)}
}

// Save reads the payload into memory under the given id.
func (s *MemoryBlobStore) Save(id string, r io.Reader) (int64, error) {
	data, err := io.ReadAll(r)
	if err != nil {
		return 0, err
	}
	s.mu.Lock()
	s.blobs[id] = data
	s.mu.Unlock()
	return int64(len(data)), nil
}

// Open returns a reader over the stored blob and its size.
func (s *MemoryBlobStore) Open(id string) (io.ReadSeekCloser, int64, error) {
	s.mu.Lock()
	data, ok := s.blobs[id]
	s.mu.Unlock()
	if !ok {
		return nil, 0, persistence.ErrNotFound
	}
	return nopSeekCloser{bytes.NewReader(data)}, int64(len(data)), nil
}

// Delete drops a stored blob so tests can simulate missing attachments.
func (s *MemoryBlobStore) Delete(id string) {
	s.mu.Lock()
	delete(s.blobs, id)
	s.mu.Unlock()
}

// Bytes returns the stored payload for assertions.
func (s *MemoryBlobStore) Bytes(id string) ([]byte, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	data, ok := s.blobs[id]
	return data, ok
}

type nopSeekCloser struct {
	*bytes.Reader
}

func (nopSeekCloser) Close() error { return nil }
