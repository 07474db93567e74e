package application

import (
	"errors"
	"testing"
	"time"

	"github.com/example/chat-relay/internal/crypto"
)

func newTestTokenCipher(t *testing.T) *crypto.Cipher {
	t.Helper()
	keyring, err := crypto.NewKeyring("token-service-test-secret")
	if err != nil {
		t.Fatalf("failed to build keyring: %v", err)
	}
	return keyring.Tokens()
}

func TestAccessTokenService_IssueAndRedeem(t *testing.T) {
	cipher := newTestTokenCipher(t)
	now := time.Date(2024, time.March, 14, 9, 0, 0, 0, time.UTC)

	t.Run("round trips an attachment id", func(t *testing.T) {
		svc := NewAccessTokenService(cipher, func() time.Time { return now }, time.Hour)

		token, err := svc.Issue("1710406800_notes.txt")
		if err != nil {
			t.Fatalf("failed to issue token: %v", err)
		}

		id, err := svc.Redeem(token)
		if err != nil {
			t.Fatalf("failed to redeem token: %v", err)
		}
		if id != "1710406800_notes.txt" {
			t.Fatalf("expected original id, got %q", id)
		}
	})

	t.Run("attachment ids containing the separator survive", func(t *testing.T) {
		svc := NewAccessTokenService(cipher, func() time.Time { return now }, time.Hour)

		token, err := svc.Issue("1710406800_report|final.pdf")
		if err != nil {
			t.Fatalf("failed to issue token: %v", err)
		}

		id, err := svc.Redeem(token)
		if err != nil {
			t.Fatalf("failed to redeem token: %v", err)
		}
		if id != "1710406800_report|final.pdf" {
			t.Fatalf("expected original id, got %q", id)
		}
	})

	t.Run("each issue produces a distinct token", func(t *testing.T) {
		svc := NewAccessTokenService(cipher, func() time.Time { return now }, time.Hour)

		first, err := svc.Issue("1710406800_notes.txt")
		if err != nil {
			t.Fatalf("failed to issue token: %v", err)
		}
		second, err := svc.Issue("1710406800_notes.txt")
		if err != nil {
			t.Fatalf("failed to issue token: %v", err)
		}
		if first == second {
			t.Fatalf("expected fresh nonce per token")
		}
	})
}

func TestAccessTokenService_Expiry(t *testing.T) {
	cipher := newTestTokenCipher(t)
	issued := time.Date(2024, time.March, 14, 9, 0, 0, 0, time.UTC)

	t.Run("valid just inside the ttl", func(t *testing.T) {
		current := issued
		svc := NewAccessTokenService(cipher, func() time.Time { return current }, time.Hour)

		token, err := svc.Issue("1710406800_notes.txt")
		if err != nil {
			t.Fatalf("failed to issue token: %v", err)
		}

		current = issued.Add(59*time.Minute + 59*time.Second)
		if _, err := svc.Redeem(token); err != nil {
			t.Fatalf("expected token still valid, got %v", err)
		}
	})

	t.Run("expired at the ttl boundary", func(t *testing.T) {
		current := issued
		svc := NewAccessTokenService(cipher, func() time.Time { return current }, time.Hour)

		token, err := svc.Issue("1710406800_notes.txt")
		if err != nil {
			t.Fatalf("failed to issue token: %v", err)
		}

		current = issued.Add(time.Hour)
		if _, err := svc.Redeem(token); !errors.Is(err, ErrTokenExpired) {
			t.Fatalf("expected ErrTokenExpired, got %v", err)
		}
	})

	t.Run("expired well past the ttl", func(t *testing.T) {
		current := issued
		svc := NewAccessTokenService(cipher, func() time.Time { return current }, time.Hour)

		token, err := svc.Issue("1710406800_notes.txt")
		if err != nil {
			t.Fatalf("failed to issue token: %v", err)
		}

		current = issued.Add(3601 * time.Second)
		if _, err := svc.Redeem(token); !errors.Is(err, ErrTokenExpired) {
			t.Fatalf("expected ErrTokenExpired, got %v", err)
		}
	})
}

func TestAccessTokenService_RedeemRejectsGarbage(t *testing.T) {
	cipher := newTestTokenCipher(t)
	now := time.Date(2024, time.March, 14, 9, 0, 0, 0, time.UTC)
	svc := NewAccessTokenService(cipher, func() time.Time { return now }, time.Hour)

	cases := []struct {
		name  string
		token func(t *testing.T) string
	}{
		{name: "empty token", token: func(t *testing.T) string { return "" }},
		{name: "not base64", token: func(t *testing.T) string { return "%%%" }},
		{name: "random base64", token: func(t *testing.T) string { return "aGVsbG8gd29ybGQ=" }},
		{
			name: "sealed payload without separator",
			token: func(t *testing.T) string {
				token, err := cipher.Seal([]byte("no separator here"))
				if err != nil {
					t.Fatalf("failed to seal: %v", err)
				}
				return token
			},
		},
		{
			name: "sealed payload with non-numeric timestamp",
			token: func(t *testing.T) string {
				token, err := cipher.Seal([]byte("file.txt|yesterday"))
				if err != nil {
					t.Fatalf("failed to seal: %v", err)
				}
				return token
			},
		},
		{
			name: "sealed payload with empty id",
			token: func(t *testing.T) string {
				token, err := cipher.Seal([]byte("|1710406800"))
				if err != nil {
					t.Fatalf("failed to seal: %v", err)
				}
				return token
			},
		},
		{
			name: "sealed payload with trailing separator",
			token: func(t *testing.T) string {
				token, err := cipher.Seal([]byte("file.txt|"))
				if err != nil {
					t.Fatalf("failed to seal: %v", err)
				}
				return token
			},
		},
		{
			name: "token sealed under the message context",
			token: func(t *testing.T) string {
				keyring, err := crypto.NewKeyring("token-service-test-secret")
				if err != nil {
					t.Fatalf("failed to build keyring: %v", err)
				}
				token, err := keyring.Messages().Seal([]byte("file.txt|1710406800"))
				if err != nil {
					t.Fatalf("failed to seal: %v", err)
				}
				return token
			},
		},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			if _, err := svc.Redeem(tc.token(t)); !errors.Is(err, ErrTokenInvalid) {
				t.Fatalf("expected ErrTokenInvalid, got %v", err)
			}
		})
	}
}
