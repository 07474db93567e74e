package crypto

import (
	"crypto/aes"
	"crypto/cipher"
	"crypto/rand"
	"crypto/sha256"
	"encoding/base64"
	"errors"
	"fmt"
	"io"

	"golang.org/x/crypto/hkdf"
)

// ErrInvalidCiphertext is returned for every decryption failure: malformed
// base64, blobs shorter than nonce+tag, and authentication tag mismatches all
// collapse into this one error so callers cannot distinguish a wrong key from
// corrupted data.
var ErrInvalidCiphertext = errors.New("crypto: invalid ciphertext")

const (
	keySize   = 32
	nonceSize = 12
	tagSize   = 16
)

// Cipher seals and opens AEAD blobs with a single AES-256-GCM key. The wire
// form is base64(nonce || ciphertext || tag) with a fresh random nonce per
// Seal, matching what browser WebCrypto AES-GCM clients produce.
type Cipher struct {
	aead cipher.AEAD
}

// NewCipher constructs a cipher from a 32-byte key.
func NewCipher(key []byte) (*Cipher, error) {
	if len(key) != keySize {
		return nil, fmt.Errorf("crypto: key must be %d bytes, got %d", keySize, len(key))
	}
	block, err := aes.NewCipher(key)
	if err != nil {
		return nil, err
	}
	aead, err := cipher.NewGCM(block)
	if err != nil {
		return nil, err
	}
	return &Cipher{aead: aead}, nil
}

// Seal encrypts plaintext under a fresh random nonce and returns the
// base64-encoded nonce||ciphertext||tag blob. Sealing the same plaintext
// twice yields different blobs.
func (c *Cipher) Seal(plaintext []byte) (string, error) {
	nonce := make([]byte, nonceSize)
	if _, err := rand.Read(nonce); err != nil {
		return "", fmt.Errorf("crypto: generate nonce: %w", err)
	}
	sealed := c.aead.Seal(nonce, nonce, plaintext, nil)
	return base64.StdEncoding.EncodeToString(sealed), nil
}

// Open decodes and decrypts a blob produced by Seal (or by a compatible
// client-side AES-GCM implementation). Any failure is ErrInvalidCiphertext.
func (c *Cipher) Open(blob string) ([]byte, error) {
	combined, err := base64.StdEncoding.DecodeString(blob)
	if err != nil {
		return nil, ErrInvalidCiphertext
	}
	if len(combined) < nonceSize+tagSize {
		return nil, ErrInvalidCiphertext
	}
	nonce := combined[:nonceSize]
	plaintext, err := c.aead.Open(nil, nonce, combined[nonceSize:], nil)
	if err != nil {
		return nil, ErrInvalidCiphertext
	}
	return plaintext, nil
}

// Keyring derives the per-purpose ciphers used by the relay from one master
// secret. Message payloads and download tokens are unrelated semantic
// domains, so each gets its own HKDF context: a nonce-discipline failure in
// one never weakens the other.
type Keyring struct {
	messages *Cipher
	tokens   *Cipher
}

// NewKeyring normalizes the configured secret to exactly 32 bytes by
// zero-padding or truncating, then derives the two context keys with
// HKDF-SHA256. The pad/truncate step is not a KDF and a short secret stays
// weak; it is kept deliberately for compatibility with deployed client keys.
func NewKeyring(secret string) (*Keyring, error) {
	if secret == "" {
		return nil, errors.New("crypto: secret must not be empty")
	}
	master := normalizeKey(secret)

	messages, err := NewCipher(deriveKey(master, "chat/messages"))
	if err != nil {
		return nil, err
	}
	tokens, err := NewCipher(deriveKey(master, "chat/tokens"))
	if err != nil {
		return nil, err
	}
	return &Keyring{messages: messages, tokens: tokens}, nil
}

// Messages returns the cipher for chat payload confidentiality.
func (k *Keyring) Messages() *Cipher { return k.messages }

// Tokens returns the cipher for attachment access tokens.
func (k *Keyring) Tokens() *Cipher { return k.tokens }

func normalizeKey(secret string) []byte {
	key := make([]byte, keySize)
	copy(key, secret)
	return key
}

func deriveKey(master []byte, info string) []byte {
	reader := hkdf.New(sha256.New, master, nil, []byte(info))
	key := make([]byte, keySize)
	if _, err := io.ReadFull(reader, key); err != nil {
		// HKDF-SHA256 can produce far more than 32 bytes; a short read here
		// means the parameters above are broken, not a runtime condition.
		panic(fmt.Sprintf("crypto: hkdf expand failed: %v", err))
	}
	return key
}
