package application

import (
	"bytes"
	"context"
	"encoding/base64"
	"fmt"
	"io"
	"log/slog"
	"regexp"
	"strings"
	"time"

	"github.com/example/chat-relay/internal/crypto"
	"github.com/example/chat-relay/internal/persistence/blob"
)

// MessageRepository captures the persistence operations needed by ChatService.
type MessageRepository interface {
	AppendMessage(ctx context.Context, message Message) (Message, error)
	ListMessages(ctx context.Context, room string) ([]Message, error)
	ListMessagesSince(ctx context.Context, room string, watermark time.Time) ([]Message, error)
}

// AttachmentStore persists uploaded attachment payloads by id.
type AttachmentStore interface {
	Save(id string, r io.Reader) (int64, error)
}

// imageMimeTypes is the allow-list that classifies an upload as an inline
// image rather than a generic file.
var imageMimeTypes = map[string]struct{}{
	"image/jpeg": {},
	"image/png":  {},
	"image/gif":  {},
	"image/webp": {},
	"image/bmp":  {},
}

var clipboardDataURLPattern = regexp.MustCompile(`^data:image/(\w+);base64,(.+)$`)

// ChatService handles message exchange: accepting sealed text from clients,
// storing uploads, and producing the per-poll outbound view. Text bodies are
// stored as validated plaintext and re-sealed with a fresh nonce on every
// read, so the at-rest and in-flight representations never coincide.
type ChatService struct {
	messages    MessageRepository
	store       AttachmentStore
	cipher      *crypto.Cipher
	tokens      *AccessTokenService
	idGenerator func() string
	now         func() time.Time
	logger      *slog.Logger
}

// NewChatService constructs a chat service with the provided dependencies.
func NewChatService(messages MessageRepository, store AttachmentStore, cipher *crypto.Cipher, tokens *AccessTokenService, idGenerator func() string, now func() time.Time) *ChatService {
	return NewChatServiceWithLogger(messages, store, cipher, tokens, idGenerator, now, nil)
}

// NewChatServiceWithLogger constructs a chat service with a specified logger.
func NewChatServiceWithLogger(messages MessageRepository, store AttachmentStore, cipher *crypto.Cipher, tokens *AccessTokenService, idGenerator func() string, now func() time.Time, logger *slog.Logger) *ChatService {
	if idGenerator == nil {
		idGenerator = func() string { return "" }
	}
	if now == nil {
		now = time.Now
	}
	return &ChatService{
		messages:    messages,
		store:       store,
		cipher:      cipher,
		tokens:      tokens,
		idGenerator: idGenerator,
		now:         now,
		logger:      defaultLogger(logger),
	}
}

func (s *ChatService) loggerWith(ctx context.Context, operation string, attrs ...any) *slog.Logger {
	return serviceLogger(ctx, s.logger, "ChatService", operation, attrs...)
}

// SendMessage opens the client-sealed body, validates the plaintext, and
// appends it to the room's log. The room is not checked for existence:
// sending to an unknown room creates its log implicitly, exactly as reading
// from one yields an empty log.
func (s *ChatService) SendMessage(ctx context.Context, principal Principal, room, sealedBody string) (message Message, err error) {
	if s == nil {
		err = fmt.Errorf("ChatService is nil")
		return
	}
	if s.messages == nil || s.cipher == nil {
		err = fmt.Errorf("chat service not configured")
		return
	}

	logger := s.loggerWith(ctx, "SendMessage", "principal", principal.Name, "room", room)
	defer func() {
		if err != nil {
			logger.ErrorContext(ctx, "failed to send message", "error", err, "error_kind", ErrorKind(err))
			return
		}
		logger.With("message_id", message.ID).InfoContext(ctx, "message stored")
	}()

	plaintext, openErr := s.cipher.Open(sealedBody)
	if openErr != nil {
		err = ErrDecryptionFailed
		return
	}

	body := strings.TrimSpace(string(plaintext))
	if body == "" {
		err = ErrEmptyMessage
		return
	}

	message = Message{
		ID:        s.idGenerator(),
		Room:      room,
		Author:    principal.Name,
		Body:      body,
		Kind:      KindText,
		CreatedAt: s.now(),
	}
	message, err = s.messages.AppendMessage(ctx, message)
	if err != nil {
		message = Message{}
	}
	return
}

// UploadAttachment stores the file payload and appends a message announcing
// it. The message body is the sanitized original filename; the kind is image
// when the declared MIME type is on the inline-image allow-list and file
// otherwise.
func (s *ChatService) UploadAttachment(ctx context.Context, principal Principal, room, filename, mimeType string, payload io.Reader) (message Message, err error) {
	if s == nil {
		err = fmt.Errorf("ChatService is nil")
		return
	}
	if s.messages == nil || s.store == nil {
		err = fmt.Errorf("chat service not configured")
		return
	}

	logger := s.loggerWith(ctx, "UploadAttachment", "principal", principal.Name, "room", room)
	defer func() {
		if err != nil {
			logger.ErrorContext(ctx, "failed to store upload", "error", err, "error_kind", ErrorKind(err))
			return
		}
		logger.With("message_id", message.ID, "attachment_id", derefString(message.AttachmentID)).InfoContext(ctx, "upload stored")
	}()

	if payload == nil || strings.TrimSpace(filename) == "" {
		err = ErrNoFile
		return
	}

	now := s.now()
	attachmentID := blob.NewID(now, filename)
	if _, err = s.store.Save(attachmentID, payload); err != nil {
		return
	}

	kind := KindFile
	if _, ok := imageMimeTypes[mimeType]; ok {
		kind = KindImage
	}

	message = Message{
		ID:           s.idGenerator(),
		Room:         room,
		Author:       principal.Name,
		Body:         blob.SanitizeName(filename),
		Kind:         kind,
		AttachmentID: &attachmentID,
		CreatedAt:    now,
	}
	message, err = s.messages.AppendMessage(ctx, message)
	if err != nil {
		message = Message{}
	}
	return
}

// UploadClipboardImage stores a pasted image delivered as a base64 data URL
// and appends an image message labeled "Pasted Image".
func (s *ChatService) UploadClipboardImage(ctx context.Context, principal Principal, room, dataURL string) (message Message, err error) {
	if s == nil {
		err = fmt.Errorf("ChatService is nil")
		return
	}
	if s.messages == nil || s.store == nil {
		err = fmt.Errorf("chat service not configured")
		return
	}

	logger := s.loggerWith(ctx, "UploadClipboardImage", "principal", principal.Name, "room", room)
	defer func() {
		if err != nil {
			logger.ErrorContext(ctx, "failed to store clipboard image", "error", err, "error_kind", ErrorKind(err))
			return
		}
		logger.With("message_id", message.ID, "attachment_id", derefString(message.AttachmentID)).InfoContext(ctx, "clipboard image stored")
	}()

	match := clipboardDataURLPattern.FindStringSubmatch(dataURL)
	if match == nil {
		err = ErrBadUploadFormat
		return
	}

	payload, decodeErr := base64.StdEncoding.DecodeString(match[2])
	if decodeErr != nil {
		err = ErrBadUploadEncoding
		return
	}

	now := s.now()
	attachmentID := fmt.Sprintf("%d_clipboard.%s", now.Unix(), match[1])
	if _, err = s.store.Save(attachmentID, bytes.NewReader(payload)); err != nil {
		return
	}

	message = Message{
		ID:           s.idGenerator(),
		Room:         room,
		Author:       principal.Name,
		Body:         "Pasted Image",
		Kind:         KindImage,
		AttachmentID: &attachmentID,
		CreatedAt:    now,
	}
	message, err = s.messages.AppendMessage(ctx, message)
	if err != nil {
		message = Message{}
	}
	return
}

// Messages returns the room's full log as the outbound view.
func (s *ChatService) Messages(ctx context.Context, room string) ([]OutboundMessage, error) {
	if s == nil || s.messages == nil {
		return nil, fmt.Errorf("chat service not configured")
	}

	stored, err := s.messages.ListMessages(ctx, room)
	if err != nil {
		s.loggerWith(ctx, "Messages", "room", room).ErrorContext(ctx, "failed to list messages", "error", err, "error_kind", ErrorKind(err))
		return nil, err
	}
	return s.outbound(ctx, "Messages", room, stored)
}

// MessagesSince returns the messages strictly newer than the client's
// watermark, a unix-second timestamp. A zero watermark yields the full log.
func (s *ChatService) MessagesSince(ctx context.Context, room string, watermark int64) ([]OutboundMessage, error) {
	if s == nil || s.messages == nil {
		return nil, fmt.Errorf("chat service not configured")
	}

	stored, err := s.messages.ListMessagesSince(ctx, room, time.Unix(watermark, 0))
	if err != nil {
		s.loggerWith(ctx, "MessagesSince", "room", room).ErrorContext(ctx, "failed to list messages", "error", err, "error_kind", ErrorKind(err))
		return nil, err
	}
	return s.outbound(ctx, "MessagesSince", room, stored)
}

// outbound converts stored messages to the client view: text bodies are
// re-sealed under a fresh nonce, attachment messages get a fresh download
// token. The slice is never nil so handlers always serialize an array.
func (s *ChatService) outbound(ctx context.Context, operation, room string, stored []Message) ([]OutboundMessage, error) {
	out := make([]OutboundMessage, 0, len(stored))
	for _, m := range stored {
		entry := OutboundMessage{
			Username:  m.Author,
			Body:      m.Body,
			Timestamp: m.CreatedAt.Unix(),
			Kind:      string(m.Kind),
		}

		if m.Kind == KindText {
			if s.cipher == nil {
				return nil, fmt.Errorf("chat service not configured")
			}
			sealed, err := s.cipher.Seal([]byte(m.Body))
			if err != nil {
				s.loggerWith(ctx, operation, "room", room).ErrorContext(ctx, "failed to seal message", "error", err, "error_kind", ErrorKind(err))
				return nil, err
			}
			entry.Body = sealed
			entry.Encrypted = true
		}

		if m.AttachmentID != nil && *m.AttachmentID != "" {
			entry.AttachmentID = *m.AttachmentID
			if s.tokens != nil {
				token, err := s.tokens.Issue(*m.AttachmentID)
				if err != nil {
					s.loggerWith(ctx, operation, "room", room).ErrorContext(ctx, "failed to issue download token", "error", err, "error_kind", ErrorKind(err))
					return nil, err
				}
				entry.DownloadToken = token
			}
		}

		out = append(out, entry)
	}
	return out, nil
}

func derefString(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}
