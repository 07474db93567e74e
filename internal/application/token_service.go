package application

import (
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/example/chat-relay/internal/crypto"
)

// AccessTokenService issues and redeems short-lived download tokens for
// attachments. A token is the sealed pair "attachmentID|issuedAt", so it is
// both confidential and tamper-proof; possession of a fresh token is the only
// credential a download needs.
type AccessTokenService struct {
	cipher *crypto.Cipher
	now    func() time.Time
	ttl    time.Duration
}

// NewAccessTokenService constructs a token service. The cipher must be the
// token-context cipher, not the message one, so tokens can never be replayed
// as messages or vice versa.
func NewAccessTokenService(cipher *crypto.Cipher, now func() time.Time, ttl time.Duration) *AccessTokenService {
	if now == nil {
		now = time.Now
	}
	if ttl <= 0 {
		ttl = time.Hour
	}
	return &AccessTokenService{cipher: cipher, now: now, ttl: ttl}
}

// Issue mints a fresh token for the attachment. Each call produces a
// different token for the same attachment because sealing uses a new nonce.
func (s *AccessTokenService) Issue(attachmentID string) (string, error) {
	if s == nil || s.cipher == nil {
		return "", fmt.Errorf("token cipher not configured")
	}
	payload := attachmentID + "|" + strconv.FormatInt(s.now().Unix(), 10)
	return s.cipher.Seal([]byte(payload))
}

// Redeem opens a token and returns the attachment id it grants access to.
// Returns ErrTokenInvalid for anything that fails to open or parse and
// ErrTokenExpired for well-formed tokens older than the TTL.
func (s *AccessTokenService) Redeem(token string) (string, error) {
	if s == nil || s.cipher == nil {
		return "", fmt.Errorf("token cipher not configured")
	}

	plaintext, err := s.cipher.Open(token)
	if err != nil {
		return "", ErrTokenInvalid
	}

	// The attachment id may itself contain "|", so split on the last one.
	payload := string(plaintext)
	sep := strings.LastIndex(payload, "|")
	if sep <= 0 || sep == len(payload)-1 {
		return "", ErrTokenInvalid
	}

	attachmentID := payload[:sep]
	issuedAt, err := strconv.ParseInt(payload[sep+1:], 10, 64)
	if err != nil {
		return "", ErrTokenInvalid
	}

	if s.now().Unix()-issuedAt >= int64(s.ttl/time.Second) {
		return "", ErrTokenExpired
	}
	return attachmentID, nil
}
