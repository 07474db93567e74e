package application

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/example/chat-relay/internal/persistence"
)

// RoomRepository captures the persistence operations needed by the service.
type RoomRepository interface {
	CreateRoom(ctx context.Context, room Room) error
	ListRooms(ctx context.Context) ([]Room, error)
	DeleteRoom(ctx context.Context, name string) error
}

// RoomService orchestrates validation, authorization, and persistence for
// rooms. Creating and deleting rooms is restricted to administrators;
// listing is open to everyone, authenticated or not.
type RoomService struct {
	rooms  RoomRepository
	now    func() time.Time
	logger *slog.Logger
}

// NewRoomService constructs a room service with the provided dependencies.
func NewRoomService(rooms RoomRepository, now func() time.Time) *RoomService {
	return NewRoomServiceWithLogger(rooms, now, nil)
}

// NewRoomServiceWithLogger constructs a room service with a specified logger.
func NewRoomServiceWithLogger(rooms RoomRepository, now func() time.Time, logger *slog.Logger) *RoomService {
	if now == nil {
		now = time.Now
	}
	return &RoomService{rooms: rooms, now: now, logger: defaultLogger(logger)}
}

func (s *RoomService) loggerWith(ctx context.Context, operation string, attrs ...any) *slog.Logger {
	return serviceLogger(ctx, s.logger, "RoomService", operation, attrs...)
}

// CreateRoom validates input and persists a new room for administrators.
func (s *RoomService) CreateRoom(ctx context.Context, principal Principal, name string) (room Room, err error) {
	if s == nil {
		err = fmt.Errorf("RoomService is nil")
		return
	}
	if s.rooms == nil {
		err = fmt.Errorf("room repository not configured")
		return
	}

	logger := s.loggerWith(ctx, "CreateRoom", "principal", principal.Name)
	defer func() {
		if err != nil {
			logger.ErrorContext(ctx, "failed to create room", "error", err, "error_kind", ErrorKind(err))
			return
		}
		logger.With("room", room.Name).InfoContext(ctx, "room created")
	}()

	if !principal.IsAdmin {
		err = ErrUnauthorized
		return
	}

	trimmed := strings.TrimSpace(name)
	if trimmed == "" {
		vErr := &ValidationError{}
		vErr.add("room_name", "room name is required")
		err = vErr
		return
	}

	room = Room{Name: trimmed, CreatedAt: s.now()}
	if err = s.rooms.CreateRoom(ctx, room); err != nil {
		err = mapRoomRepoError(err)
		room = Room{}
		return
	}
	return
}

// DeleteRoom removes a room and its message log when requested by an
// administrator. Deleting a room that does not exist is not an error.
// Attachment blobs referenced by the deleted log stay on disk; pruning them
// is an operator task via the upload store.
func (s *RoomService) DeleteRoom(ctx context.Context, principal Principal, name string) error {
	if s == nil {
		return fmt.Errorf("RoomService is nil")
	}
	if s.rooms == nil {
		return fmt.Errorf("room repository not configured")
	}

	logger := s.loggerWith(ctx, "DeleteRoom", "principal", principal.Name, "room", name)

	if !principal.IsAdmin {
		logger.ErrorContext(ctx, "failed to delete room", "error", ErrUnauthorized, "error_kind", ErrorKind(ErrUnauthorized))
		return ErrUnauthorized
	}

	if err := s.rooms.DeleteRoom(ctx, name); err != nil {
		err = mapRoomRepoError(err)
		logger.ErrorContext(ctx, "failed to delete room", "error", err, "error_kind", ErrorKind(err))
		return err
	}

	logger.InfoContext(ctx, "room deleted")
	return nil
}

// ListRooms returns the room catalog in creation order.
func (s *RoomService) ListRooms(ctx context.Context) (rooms []Room, err error) {
	if s == nil {
		err = fmt.Errorf("RoomService is nil")
		return
	}
	if s.rooms == nil {
		return nil, nil
	}

	logger := s.loggerWith(ctx, "ListRooms")
	defer func() {
		if err != nil {
			logger.ErrorContext(ctx, "failed to list rooms", "error", err, "error_kind", ErrorKind(err))
		}
	}()

	rooms, err = s.rooms.ListRooms(ctx)
	if err != nil {
		return nil, err
	}
	return rooms, nil
}

func mapRoomRepoError(err error) error {
	if err == nil {
		return nil
	}
	if errors.Is(err, persistence.ErrNotFound) || errors.Is(err, ErrNotFound) {
		return ErrNotFound
	}
	if errors.Is(err, persistence.ErrDuplicate) {
		return ErrAlreadyExists
	}
	if errors.Is(err, persistence.ErrConstraintViolation) {
		vErr := &ValidationError{}
		vErr.add("room_name", "room name is required")
		return vErr
	}
	return err
}
