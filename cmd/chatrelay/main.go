package main

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/google/uuid"

	"github.com/example/chat-relay/internal/application"
	"github.com/example/chat-relay/internal/config"
	"github.com/example/chat-relay/internal/crypto"
	httptransport "github.com/example/chat-relay/internal/http"
	"github.com/example/chat-relay/internal/obs"
	"github.com/example/chat-relay/internal/persistence"
	"github.com/example/chat-relay/internal/persistence/blob"
	"github.com/example/chat-relay/internal/persistence/sqlite"
)

func main() {
	logger := slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelInfo}))
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	cfg, err := config.Load()
	if err != nil {
		logger.Error("failed to load configuration", "error", err)
		os.Exit(1)
	}

	pool, err := sqlite.Open(cfg.SQLiteDSN)
	if err != nil {
		logger.Error("failed to open storage", "error", err)
		os.Exit(1)
	}
	defer func() {
		if cerr := pool.Close(); cerr != nil {
			logger.Error("failed to close storage", "error", cerr)
		}
	}()

	if err := pool.Migrate(context.Background()); err != nil {
		logger.Error("failed to apply migrations", "error", err)
		os.Exit(1)
	}

	store, err := blob.NewStore(cfg.UploadsDir)
	if err != nil {
		logger.Error("failed to prepare uploads directory", "error", err)
		os.Exit(1)
	}

	keyring, err := crypto.NewKeyring(cfg.Secret)
	if err != nil {
		logger.Error("failed to derive keys", "error", err)
		os.Exit(1)
	}

	idGenerator := uuid.NewString
	tokenGenerator := func() string { return randomHex(32) }
	now := time.Now

	roomRepo := newRoomRepositoryAdapter(sqlite.NewRoomRepository(pool))
	messageRepo := newMessageRepositoryAdapter(sqlite.NewMessageRepository(pool))
	sessionRepo := newSessionRepositoryAdapter(sqlite.NewSessionRepository(pool))

	policy := application.NewStaticAuthPolicy(cfg.PIN, cfg.AdminUsers)
	authService := application.NewAuthServiceWithLogger(policy, sessionRepo, idGenerator, tokenGenerator, now, cfg.SessionTTL, logger)
	roomService := application.NewRoomServiceWithLogger(roomRepo, now, logger)
	tokenService := application.NewAccessTokenService(keyring.Tokens(), now, cfg.TokenTTL)
	chatService := application.NewChatServiceWithLogger(messageRepo, store, keyring.Messages(), tokenService, idGenerator, now, logger)

	obs.Init()

	chatHandler := httptransport.NewChatHandler(authService, roomService, chatService, logger)
	downloadHandler := httptransport.NewDownloadHandler(tokenService, store, logger)

	handler := httptransport.NewRouter(httptransport.RouterConfig{
		Chat:     chatHandler,
		Download: downloadHandler,
		Metrics:  obs.Handler(),
		Middleware: []func(http.Handler) http.Handler{
			obs.Instrument,
			httptransport.RequestLogger(logger),
		},
	})

	server := &http.Server{
		Addr:              fmt.Sprintf(":%d", cfg.HTTPPort),
		Handler:           handler,
		ReadHeaderTimeout: 10 * time.Second,
		ReadTimeout:       30 * time.Second,
		WriteTimeout:      30 * time.Second,
		IdleTimeout:       60 * time.Second,
	}

	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := server.Shutdown(shutdownCtx); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error("failed to shutdown server", "error", err)
		}
	}()

	logger.Info("chat relay listening", "addr", server.Addr)
	if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		logger.Error("server encountered error", "error", err)
		os.Exit(1)
	}
}

func randomHex(bytes int) string {
	if bytes <= 0 {
		bytes = 16
	}
	buf := make([]byte, bytes)
	if _, err := io.ReadFull(rand.Reader, buf); err != nil {
		return fmt.Sprintf("fallback-%d", time.Now().UnixNano())
	}
	return hex.EncodeToString(buf)
}

type roomRepositoryAdapter struct {
	repo persistence.RoomRepository
}

func newRoomRepositoryAdapter(repo persistence.RoomRepository) *roomRepositoryAdapter {
	return &roomRepositoryAdapter{repo: repo}
}

func (a *roomRepositoryAdapter) CreateRoom(ctx context.Context, room application.Room) error {
	return a.repo.CreateRoom(ctx, persistence.Room{Name: room.Name, CreatedAt: room.CreatedAt})
}

func (a *roomRepositoryAdapter) ListRooms(ctx context.Context) ([]application.Room, error) {
	models, err := a.repo.ListRooms(ctx)
	if err != nil {
		return nil, err
	}
	if len(models) == 0 {
		return nil, nil
	}
	rooms := make([]application.Room, 0, len(models))
	for _, model := range models {
		rooms = append(rooms, application.Room{Name: model.Name, CreatedAt: model.CreatedAt})
	}
	return rooms, nil
}

func (a *roomRepositoryAdapter) DeleteRoom(ctx context.Context, name string) error {
	return a.repo.DeleteRoom(ctx, name)
}

type messageRepositoryAdapter struct {
	repo persistence.MessageRepository
}

func newMessageRepositoryAdapter(repo persistence.MessageRepository) *messageRepositoryAdapter {
	return &messageRepositoryAdapter{repo: repo}
}

func (a *messageRepositoryAdapter) AppendMessage(ctx context.Context, message application.Message) (application.Message, error) {
	stored, err := a.repo.AppendMessage(ctx, toPersistenceMessage(message))
	if err != nil {
		return application.Message{}, err
	}
	return toApplicationMessage(stored), nil
}

func (a *messageRepositoryAdapter) ListMessages(ctx context.Context, room string) ([]application.Message, error) {
	models, err := a.repo.ListMessages(ctx, room)
	if err != nil {
		return nil, err
	}
	return toApplicationMessages(models), nil
}

func (a *messageRepositoryAdapter) ListMessagesSince(ctx context.Context, room string, watermark time.Time) ([]application.Message, error) {
	models, err := a.repo.ListMessagesSince(ctx, room, watermark)
	if err != nil {
		return nil, err
	}
	return toApplicationMessages(models), nil
}

type sessionRepositoryAdapter struct {
	repo persistence.SessionRepository
}

func newSessionRepositoryAdapter(repo persistence.SessionRepository) *sessionRepositoryAdapter {
	return &sessionRepositoryAdapter{repo: repo}
}

func (a *sessionRepositoryAdapter) CreateSession(ctx context.Context, session application.Session) (application.Session, error) {
	stored, err := a.repo.CreateSession(ctx, toPersistenceSession(session))
	if err != nil {
		return application.Session{}, err
	}
	return toApplicationSession(stored), nil
}

func (a *sessionRepositoryAdapter) GetSession(ctx context.Context, token string) (application.Session, error) {
	stored, err := a.repo.GetSession(ctx, token)
	if err != nil {
		if errors.Is(err, persistence.ErrNotFound) {
			return application.Session{}, application.ErrNotFound
		}
		return application.Session{}, err
	}
	return toApplicationSession(stored), nil
}

func (a *sessionRepositoryAdapter) RevokeSession(ctx context.Context, token string, revokedAt time.Time) (application.Session, error) {
	stored, err := a.repo.RevokeSession(ctx, token, revokedAt)
	if err != nil {
		if errors.Is(err, persistence.ErrNotFound) {
			return application.Session{}, application.ErrNotFound
		}
		return application.Session{}, err
	}
	return toApplicationSession(stored), nil
}

func (a *sessionRepositoryAdapter) DeleteExpiredSessions(ctx context.Context, reference time.Time) error {
	return a.repo.DeleteExpiredSessions(ctx, reference)
}

func toPersistenceMessage(message application.Message) persistence.Message {
	return persistence.Message{
		ID:           message.ID,
		Room:         message.Room,
		Author:       message.Author,
		Body:         message.Body,
		Kind:         persistence.MessageKind(message.Kind),
		AttachmentID: cloneString(message.AttachmentID),
		CreatedAt:    message.CreatedAt,
	}
}

func toApplicationMessage(model persistence.Message) application.Message {
	return application.Message{
		ID:           model.ID,
		Room:         model.Room,
		Author:       model.Author,
		Body:         model.Body,
		Kind:         application.MessageKind(model.Kind),
		AttachmentID: cloneString(model.AttachmentID),
		CreatedAt:    model.CreatedAt,
	}
}

func toApplicationMessages(models []persistence.Message) []application.Message {
	if len(models) == 0 {
		return nil
	}
	messages := make([]application.Message, 0, len(models))
	for _, model := range models {
		messages = append(messages, toApplicationMessage(model))
	}
	return messages
}

func toPersistenceSession(session application.Session) persistence.Session {
	return persistence.Session{
		ID:          session.ID,
		Token:       session.Token,
		DisplayName: session.DisplayName,
		IsAdmin:     session.IsAdmin,
		ExpiresAt:   session.ExpiresAt,
		CreatedAt:   session.CreatedAt,
		UpdatedAt:   session.UpdatedAt,
		RevokedAt:   cloneTime(session.RevokedAt),
	}
}

func toApplicationSession(model persistence.Session) application.Session {
	return application.Session{
		ID:          model.ID,
		Token:       model.Token,
		DisplayName: model.DisplayName,
		IsAdmin:     model.IsAdmin,
		ExpiresAt:   model.ExpiresAt,
		CreatedAt:   model.CreatedAt,
		UpdatedAt:   model.UpdatedAt,
		RevokedAt:   cloneTime(model.RevokedAt),
	}
}

func cloneString(value *string) *string {
	if value == nil {
		return nil
	}
	clone := *value
	return &clone
}

func cloneTime(value *time.Time) *time.Time {
	if value == nil {
		return nil
	}
	clone := *value
	return &clone
}
