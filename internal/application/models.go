package application

import "time"

// Principal represents the authenticated identity invoking a service method.
type Principal struct {
	Name    string
	IsAdmin bool
}

// Session represents an authenticated login issued by AuthService. The token
// is an opaque bearer credential; everything else about the session lives
// server-side.
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

// Room represents a chat channel exposed by the application services.
type Room struct {
	Name      string
	CreatedAt time.Time
}

// MessageKind classifies a stored message.
type MessageKind string

const (
	// KindText is an end-to-end encrypted chat line.
	KindText MessageKind = "text"
	// KindImage is an uploaded image attachment.
	KindImage MessageKind = "image"
	// KindFile is a generic uploaded file attachment.
	KindFile MessageKind = "file"
)

// Message represents one stored entry of a room's log as seen by the
// services. For text messages Body holds the validated plaintext, which
// never leaves the server unsealed.
type Message struct {
	ID           string
	Room         string
	Author       string
	Body         string
	Kind         MessageKind
	AttachmentID *string
	CreatedAt    time.Time
}

// OutboundMessage is the per-poll view of a message returned to clients.
// Text bodies are re-sealed with a fresh nonce on every call, so the same
// stored message yields a different Body on each poll; Timestamp is the
// stable identity clients use as their watermark.
type OutboundMessage struct {
	Username      string `json:"username"`
	Body          string `json:"message"`
	Timestamp     int64  `json:"timestamp"`
	Kind          string `json:"type"`
	Encrypted     bool   `json:"encrypted,omitempty"`
	AttachmentID  string `json:"file,omitempty"`
	DownloadToken string `json:"download_token,omitempty"`
}
