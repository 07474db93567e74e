package http

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/example/chat-relay/internal/application"
)

// maxUploadBytes bounds multipart parsing for file uploads.
const maxUploadBytes = 32 << 20

type authService interface {
	Login(ctx context.Context, name, pin string) (application.Session, error)
	ValidateSession(ctx context.Context, token string) (application.Principal, error)
	Logout(ctx context.Context, token string) error
}

type roomService interface {
	CreateRoom(ctx context.Context, principal application.Principal, name string) (application.Room, error)
	DeleteRoom(ctx context.Context, principal application.Principal, name string) error
	ListRooms(ctx context.Context) ([]application.Room, error)
}

type chatService interface {
	SendMessage(ctx context.Context, principal application.Principal, room, sealedBody string) (application.Message, error)
	UploadAttachment(ctx context.Context, principal application.Principal, room, filename, mimeType string, payload io.Reader) (application.Message, error)
	UploadClipboardImage(ctx context.Context, principal application.Principal, room, dataURL string) (application.Message, error)
	Messages(ctx context.Context, room string) ([]application.OutboundMessage, error)
	MessagesSince(ctx context.Context, room string, watermark int64) ([]application.OutboundMessage, error)
}

// ChatHandler serves the single action-multiplexed chat endpoint.
type ChatHandler struct {
	auth      authService
	rooms     roomService
	chat      chatService
	responder responder
	logger    *slog.Logger
}

// NewChatHandler constructs the handler for the action endpoint.
func NewChatHandler(auth authService, rooms roomService, chat chatService, logger *slog.Logger) *ChatHandler {
	base := defaultLogger(logger)
	return &ChatHandler{auth: auth, rooms: rooms, chat: chat, responder: newResponder(base), logger: base}
}

func (h *ChatHandler) log(ctx context.Context, operation string, attrs ...any) *slog.Logger {
	if h == nil {
		return slog.Default()
	}
	return handlerLogger(ctx, h.logger, "ChatHandler", operation, attrs...)
}

// HandleAction dispatches a POST by its form-encoded action field. login and
// get_rooms are open; every other action resolves the session first.
func (h *ChatHandler) HandleAction(w http.ResponseWriter, r *http.Request) {
	if h == nil || h.auth == nil || h.rooms == nil || h.chat == nil {
		http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
		return
	}

	ctx := r.Context()

	if strings.HasPrefix(r.Header.Get("Content-Type"), "multipart/form-data") {
		if err := r.ParseMultipartForm(maxUploadBytes); err != nil {
			h.log(ctx, "HandleAction", "error_kind", "bad_request").ErrorContext(ctx, "failed to parse multipart form", "error", err)
			h.responder.writeFailure(ctx, w, http.StatusBadRequest, msgBadRequest)
			return
		}
	} else if err := r.ParseForm(); err != nil {
		h.log(ctx, "HandleAction", "error_kind", "bad_request").ErrorContext(ctx, "failed to parse form", "error", err)
		h.responder.writeFailure(ctx, w, http.StatusBadRequest, msgBadRequest)
		return
	}

	action := r.PostFormValue("action")
	switch action {
	case "login":
		h.login(w, r)
		return
	case "get_rooms":
		h.getRooms(w, r)
		return
	}

	principal, err := h.auth.ValidateSession(ctx, extractTokenFromRequest(r))
	if err != nil {
		h.log(ctx, "HandleAction", "action", action).ErrorContext(ctx, "session validation failed", "error", err, "error_kind", application.ErrorKind(err))
		h.responder.writeFailure(ctx, w, http.StatusUnauthorized, msgNotAuthorized)
		return
	}
	r = r.WithContext(ContextWithPrincipal(ctx, principal))

	switch action {
	case "create_room":
		h.createRoom(w, r)
	case "delete_room":
		h.deleteRoom(w, r)
	case "send_message":
		h.sendMessage(w, r)
	case "upload_file":
		h.uploadFile(w, r)
	case "upload_clipboard":
		h.uploadClipboard(w, r)
	case "get_messages":
		h.getMessages(w, r)
	case "get_all_messages":
		h.getAllMessages(w, r)
	default:
		h.responder.writeFailure(r.Context(), w, http.StatusBadRequest, msgBadRequest)
	}
}

func (h *ChatHandler) login(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	name := strings.TrimSpace(r.PostFormValue("name"))
	logger := h.log(ctx, "login", "name", name)

	session, err := h.auth.Login(ctx, name, r.PostFormValue("pin"))
	if err != nil {
		logger.ErrorContext(ctx, "login rejected", "error", err, "error_kind", application.ErrorKind(err))
		h.responder.handleServiceError(ctx, w, err)
		return
	}

	setSessionCookie(w, session.Token, session.ExpiresAt)
	logger.With("session_id", session.ID, "is_admin", session.IsAdmin).InfoContext(ctx, "login succeeded")

	isAdmin := session.IsAdmin
	h.responder.writeJSON(ctx, w, http.StatusOK, actionResponse{
		Success: true,
		IsAdmin: &isAdmin,
		Token:   session.Token,
	})
}

// requirePrincipal resolves the authenticated principal stored on the request
// context by HandleAction.
func (h *ChatHandler) requirePrincipal(w http.ResponseWriter, r *http.Request) (application.Principal, bool) {
	principal, ok := PrincipalFromContext(r.Context())
	if !ok {
		h.responder.writeFailure(r.Context(), w, http.StatusUnauthorized, msgNotAuthorized)
	}
	return principal, ok
}

func (h *ChatHandler) createRoom(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	principal, ok := h.requirePrincipal(w, r)
	if !ok {
		return
	}
	name := r.PostFormValue("room_name")
	logger := h.log(ctx, "createRoom", "principal", principal.Name)

	if _, err := h.rooms.CreateRoom(ctx, principal, name); err != nil {
		logger.ErrorContext(ctx, "room creation rejected", "error", err, "error_kind", application.ErrorKind(err))
		h.responder.handleServiceError(ctx, w, err)
		return
	}
	h.responder.writeJSON(ctx, w, http.StatusOK, actionResponse{Success: true})
}

func (h *ChatHandler) deleteRoom(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	principal, ok := h.requirePrincipal(w, r)
	if !ok {
		return
	}
	name := r.PostFormValue("room_name")
	logger := h.log(ctx, "deleteRoom", "principal", principal.Name, "room", name)

	if err := h.rooms.DeleteRoom(ctx, principal, name); err != nil {
		logger.ErrorContext(ctx, "room deletion rejected", "error", err, "error_kind", application.ErrorKind(err))
		h.responder.handleServiceError(ctx, w, err)
		return
	}
	h.responder.writeJSON(ctx, w, http.StatusOK, actionResponse{Success: true})
}

func (h *ChatHandler) sendMessage(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	principal, ok := h.requirePrincipal(w, r)
	if !ok {
		return
	}
	room := r.PostFormValue("room")
	sealed := r.PostFormValue("message")

	if room == "" || sealed == "" {
		h.responder.writeFailure(ctx, w, http.StatusBadRequest, "Missing room or message")
		return
	}

	if _, err := h.chat.SendMessage(ctx, principal, room, sealed); err != nil {
		h.responder.handleServiceError(ctx, w, err)
		return
	}
	h.responder.writeJSON(ctx, w, http.StatusOK, actionResponse{Success: true})
}

func (h *ChatHandler) uploadFile(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	principal, ok := h.requirePrincipal(w, r)
	if !ok {
		return
	}
	room := r.PostFormValue("room")

	file, header, err := r.FormFile("file")
	if err != nil {
		h.responder.handleServiceError(ctx, w, application.ErrNoFile)
		return
	}
	defer file.Close()

	_, err = h.chat.UploadAttachment(ctx, principal, room, header.Filename, header.Header.Get("Content-Type"), file)
	if err != nil {
		h.responder.handleServiceError(ctx, w, err)
		return
	}
	h.responder.writeJSON(ctx, w, http.StatusOK, actionResponse{Success: true})
}

func (h *ChatHandler) uploadClipboard(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	principal, ok := h.requirePrincipal(w, r)
	if !ok {
		return
	}
	room := r.PostFormValue("room")
	imageData := r.PostFormValue("image_data")

	if room == "" || imageData == "" {
		h.responder.writeFailure(ctx, w, http.StatusBadRequest, "Missing data")
		return
	}

	if _, err := h.chat.UploadClipboardImage(ctx, principal, room, imageData); err != nil {
		h.responder.handleServiceError(ctx, w, err)
		return
	}
	h.responder.writeJSON(ctx, w, http.StatusOK, actionResponse{Success: true})
}

func (h *ChatHandler) getMessages(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	room := r.PostFormValue("room")
	watermark, _ := strconv.ParseInt(r.PostFormValue("last_timestamp"), 10, 64)

	var (
		messages []application.OutboundMessage
		err      error
	)
	if watermark > 0 {
		messages, err = h.chat.MessagesSince(ctx, room, watermark)
	} else {
		messages, err = h.chat.Messages(ctx, room)
	}
	if err != nil {
		h.responder.handleServiceError(ctx, w, err)
		return
	}
	h.responder.writeJSON(ctx, w, http.StatusOK, messages)
}

func (h *ChatHandler) getAllMessages(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	room := r.PostFormValue("room")

	messages, err := h.chat.Messages(ctx, room)
	if err != nil {
		h.responder.handleServiceError(ctx, w, err)
		return
	}
	h.responder.writeJSON(ctx, w, http.StatusOK, messages)
}

func (h *ChatHandler) getRooms(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	rooms, err := h.rooms.ListRooms(ctx)
	if err != nil {
		h.responder.handleServiceError(ctx, w, err)
		return
	}

	names := make([]string, 0, len(rooms))
	for _, room := range rooms {
		names = append(names, room.Name)
	}
	h.responder.writeJSON(ctx, w, http.StatusOK, names)
}

// HandleLogout revokes the current session, clears the cookie, and sends the
// client back to the root page.
func (h *ChatHandler) HandleLogout(w http.ResponseWriter, r *http.Request) {
	if h == nil || h.auth == nil {
		http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
		return
	}

	ctx := r.Context()
	if token := extractTokenFromRequest(r); token != "" {
		if err := h.auth.Logout(ctx, token); err != nil && !errors.Is(err, application.ErrInvalidCredentials) {
			h.log(ctx, "HandleLogout").ErrorContext(ctx, "failed to revoke session", "error", err, "error_kind", application.ErrorKind(err))
		}
	}
	clearSessionCookie(w)
	http.Redirect(w, r, "/", http.StatusSeeOther)
}

func setSessionCookie(w http.ResponseWriter, token string, expires time.Time) {
	cookie := &http.Cookie{
		Name:     "session_token",
		Value:    token,
		HttpOnly: true,
		Secure:   true,
		Path:     "/",
	}
	if !expires.IsZero() {
		cookie.Expires = expires.UTC()
	}
	http.SetCookie(w, cookie)
}

func clearSessionCookie(w http.ResponseWriter) {
	http.SetCookie(w, &http.Cookie{
		Name:     "session_token",
		Value:    "",
		Path:     "/",
		Expires:  time.Unix(0, 0),
		MaxAge:   -1,
		HttpOnly: true,
		Secure:   true,
	})
}

func extractTokenFromRequest(r *http.Request) string {
	if r == nil {
		return ""
	}
	if header := strings.TrimSpace(r.Header.Get("Authorization")); header != "" {
		const prefix = "Bearer "
		if strings.HasPrefix(header, prefix) {
			return strings.TrimSpace(strings.TrimPrefix(header, prefix))
		}
	}
	if cookie, err := r.Cookie("session_token"); err == nil {
		return cookie.Value
	}
	return ""
}
