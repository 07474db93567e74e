package http

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/example/chat-relay/internal/application"
	"github.com/example/chat-relay/internal/persistence/blob"
)

type tokenRedeemer interface {
	Redeem(token string) (string, error)
}

type attachmentOpener interface {
	Open(id string) (io.ReadSeekCloser, int64, error)
}

// DownloadHandler streams attachments to holders of a valid download token.
// Every failure, whether the token is malformed, expired, or the blob is
// gone, collapses into the same 404 so an observer learns nothing from the
// response.
type DownloadHandler struct {
	tokens tokenRedeemer
	store  attachmentOpener
	logger *slog.Logger
}

// NewDownloadHandler constructs the download endpoint handler.
func NewDownloadHandler(tokens tokenRedeemer, store attachmentOpener, logger *slog.Logger) *DownloadHandler {
	return &DownloadHandler{tokens: tokens, store: store, logger: defaultLogger(logger)}
}

func (h *DownloadHandler) log(ctx context.Context, operation string, attrs ...any) *slog.Logger {
	if h == nil {
		return slog.Default()
	}
	return handlerLogger(ctx, h.logger, "DownloadHandler", operation, attrs...)
}

// HandleDownload redeems the dl token and streams the attachment.
func (h *DownloadHandler) HandleDownload(w http.ResponseWriter, r *http.Request) {
	if h == nil || h.tokens == nil || h.store == nil {
		http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
		return
	}

	ctx := r.Context()
	token := r.URL.Query().Get("dl")

	attachmentID, err := h.tokens.Redeem(token)
	if err != nil {
		h.log(ctx, "HandleDownload").ErrorContext(ctx, "token rejected", "error", err, "error_kind", application.ErrorKind(err))
		h.notFound(w)
		return
	}

	file, size, err := h.store.Open(attachmentID)
	if err != nil {
		h.log(ctx, "HandleDownload", "attachment_id", attachmentID).ErrorContext(ctx, "attachment missing", "error", err, "error_kind", application.ErrorKind(err))
		h.notFound(w)
		return
	}
	defer file.Close()

	w.Header().Set("Content-Type", "application/octet-stream")
	w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=%q", blob.DisplayName(attachmentID)))
	w.Header().Set("Content-Length", strconv.FormatInt(size, 10))

	if _, err := io.Copy(w, file); err != nil {
		h.log(ctx, "HandleDownload", "attachment_id", attachmentID).ErrorContext(ctx, "failed to stream attachment", "error", err)
		return
	}
	h.log(ctx, "HandleDownload", "attachment_id", attachmentID).InfoContext(ctx, "attachment served", "bytes", size)
}

func (h *DownloadHandler) notFound(w http.ResponseWriter) {
	http.Error(w, "File not found", http.StatusNotFound)
}
