package crypto

import (
	"bytes"
	"encoding/base64"
	"errors"
	"strings"
	"testing"
)

func testKeyring(t *testing.T) *Keyring {
	t.Helper()
	keyring, err := NewKeyring("unit-test-secret")
	if err != nil {
		t.Fatalf("NewKeyring returned error: %v", err)
	}
	return keyring
}

func TestSealOpenRoundTrip(t *testing.T) {
	cipher := testKeyring(t).Messages()

	cases := []struct {
		name      string
		plaintext string
	}{
		{name: "short", plaintext: "hi"},
		{name: "unicode", plaintext: "こんにちは 🔐"},
		{name: "long", plaintext: strings.Repeat("chat relay payload ", 256)},
		{name: "empty", plaintext: ""},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			blob, err := cipher.Seal([]byte(tc.plaintext))
			if err != nil {
				t.Fatalf("Seal returned error: %v", err)
			}

			opened, err := cipher.Open(blob)
			if err != nil {
				t.Fatalf("Open returned error: %v", err)
			}
			if !bytes.Equal(opened, []byte(tc.plaintext)) {
				t.Fatalf("round trip mismatch: got %q, want %q", opened, tc.plaintext)
			}
		})
	}
}

func TestSealUsesFreshNonce(t *testing.T) {
	cipher := testKeyring(t).Messages()

	first, err := cipher.Seal([]byte("same plaintext"))
	if err != nil {
		t.Fatalf("first Seal returned error: %v", err)
	}
	second, err := cipher.Seal([]byte("same plaintext"))
	if err != nil {
		t.Fatalf("second Seal returned error: %v", err)
	}

	if first == second {
		t.Fatal("sealing the same plaintext twice produced identical blobs")
	}
}

func TestOpenRejectsTamperedBlob(t *testing.T) {
	cipher := testKeyring(t).Messages()

	blob, err := cipher.Seal([]byte("integrity matters"))
	if err != nil {
		t.Fatalf("Seal returned error: %v", err)
	}

	raw, err := base64.StdEncoding.DecodeString(blob)
	if err != nil {
		t.Fatalf("decode sealed blob: %v", err)
	}

	// Flip one byte in every region: nonce, ciphertext body, and tag.
	for _, offset := range []int{0, nonceSize + 1, len(raw) - 1} {
		t.Run("", func(t *testing.T) {
			tampered := make([]byte, len(raw))
			copy(tampered, raw)
			tampered[offset] ^= 0x01

			_, err := cipher.Open(base64.StdEncoding.EncodeToString(tampered))
			if !errors.Is(err, ErrInvalidCiphertext) {
				t.Fatalf("Open(tampered at %d) = %v, want ErrInvalidCiphertext", offset, err)
			}
		})
	}
}

func TestOpenRejectsMalformedInput(t *testing.T) {
	cipher := testKeyring(t).Messages()

	cases := []struct {
		name string
		blob string
	}{
		{name: "not base64", blob: "!!not-base64!!"},
		{name: "empty", blob: ""},
		{name: "too short", blob: base64.StdEncoding.EncodeToString(make([]byte, nonceSize+tagSize-1))},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			if _, err := cipher.Open(tc.blob); !errors.Is(err, ErrInvalidCiphertext) {
				t.Fatalf("Open(%q) = %v, want ErrInvalidCiphertext", tc.blob, err)
			}
		})
	}
}

func TestKeyringContextsAreIndependent(t *testing.T) {
	keyring := testKeyring(t)

	blob, err := keyring.Messages().Seal([]byte("cross-context"))
	if err != nil {
		t.Fatalf("Seal returned error: %v", err)
	}

	if _, err := keyring.Tokens().Open(blob); !errors.Is(err, ErrInvalidCiphertext) {
		t.Fatalf("token cipher opened a message blob: err=%v", err)
	}
}

func TestKeyringNormalizesSecretLength(t *testing.T) {
	short, err := NewKeyring("abc")
	if err != nil {
		t.Fatalf("NewKeyring(short) returned error: %v", err)
	}
	long, err := NewKeyring(strings.Repeat("x", 100))
	if err != nil {
		t.Fatalf("NewKeyring(long) returned error: %v", err)
	}

	blob, err := short.Messages().Seal([]byte("payload"))
	if err != nil {
		t.Fatalf("Seal returned error: %v", err)
	}
	if _, err := long.Messages().Open(blob); !errors.Is(err, ErrInvalidCiphertext) {
		t.Fatal("distinct secrets unexpectedly derived the same key")
	}

	// A secret longer than 32 bytes is truncated: only the first 32 count.
	truncatedTwin, err := NewKeyring(strings.Repeat("x", 32) + "tail-ignored")
	if err != nil {
		t.Fatalf("NewKeyring returned error: %v", err)
	}
	twinBlob, err := long.Messages().Seal([]byte("payload"))
	if err != nil {
		t.Fatalf("Seal returned error: %v", err)
	}
	if _, err := truncatedTwin.Messages().Open(twinBlob); err != nil {
		t.Fatalf("truncated twin failed to open blob: %v", err)
	}
}

func TestNewKeyringRejectsEmptySecret(t *testing.T) {
	if _, err := NewKeyring(""); err == nil {
		t.Fatal("NewKeyring accepted an empty secret")
	}
}
