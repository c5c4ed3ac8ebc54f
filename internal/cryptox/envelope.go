// Package cryptox implements the envelope cipher used to protect item
// values at rest. A value is encrypted with AES-256-CBC under a key derived
// from one configured secret, and stored as "<ivHex>:<cipherHex>".
package cryptox

import (
	"context"
	"crypto/aes"
	"crypto/cipher"
	"crypto/rand"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"strings"

	"github.com/copypaster/server/internal/logging"
)

// IVLength is the AES block size; the hex half before the separator is
// always twice this many characters.
const IVLength = aes.BlockSize

const separator = ":"

var (
	errEmptyCiphertext     = errors.New("empty ciphertext")
	errInvalidBlockLength  = errors.New("ciphertext is not a multiple of the block size")
	errInvalidPadding      = errors.New("invalid padding")
	errInvalidPaddingBytes = errors.New("invalid padding bytes")
)

// EnvelopeCipher encrypts and decrypts single string values. The key is
// derived once from the configured secret and is read-only afterwards, so a
// single instance is safe for concurrent use.
type EnvelopeCipher struct {
	key    []byte
	logger logging.Logger
}

// NewEnvelopeCipher derives an AES-256 key from secret via SHA-256 and
// returns a cipher bound to it.
func NewEnvelopeCipher(secret string, logger logging.Logger) *EnvelopeCipher {
	key := sha256.Sum256([]byte(secret))
	return &EnvelopeCipher{
		key:    key[:],
		logger: logger.With("module", "envelope_cipher"),
	}
}

// Encrypt encrypts plaintext into an envelope token. The empty string is
// not considered sensitive and is returned unchanged. A fresh random IV is
// generated on every call, so encrypting the same plaintext twice yields
// different envelopes.
func (c *EnvelopeCipher) Encrypt(plaintext string) (string, error) {
	if plaintext == "" {
		return plaintext, nil
	}

	block, err := aes.NewCipher(c.key)
	if err != nil {
		return "", fmt.Errorf("cipher init error: %w", err)
	}

	iv := make([]byte, IVLength)
	if _, err := rand.Read(iv); err != nil {
		return "", fmt.Errorf("iv generation error: %w", err)
	}

	padded := pkcs7Pad([]byte(plaintext), aes.BlockSize)
	ciphertext := make([]byte, len(padded))
	cipher.NewCBCEncrypter(block, iv).CryptBlocks(ciphertext, padded)

	return hex.EncodeToString(iv) + separator + hex.EncodeToString(ciphertext), nil
}

// Decrypt reverses Encrypt. Values that do not look like envelopes (empty,
// no separator, IV half not exactly 16 bytes of hex) are treated as legacy
// plaintext and returned unchanged. Any other failure is logged and the
// original string is returned, so a bad record degrades to showing its
// stored form instead of failing the request.
func (c *EnvelopeCipher) Decrypt(ctx context.Context, s string) string {
	if s == "" || !strings.Contains(s, separator) {
		return s
	}

	ivHex, cipherHex, _ := strings.Cut(s, separator)

	iv, err := hex.DecodeString(ivHex)
	if err != nil || len(iv) != IVLength {
		// not this system's envelope format
		return s
	}

	plaintext, err := c.decrypt(iv, cipherHex)
	if err != nil {
		c.logFailure(ctx, s, err)
		return s
	}

	return plaintext
}

func (c *EnvelopeCipher) decrypt(iv []byte, cipherHex string) (string, error) {
	ciphertext, err := hex.DecodeString(cipherHex)
	if err != nil {
		return "", fmt.Errorf("ciphertext decode error: %w", err)
	}
	if len(ciphertext) == 0 {
		return "", errEmptyCiphertext
	}
	if len(ciphertext)%aes.BlockSize != 0 {
		return "", errInvalidBlockLength
	}

	block, err := aes.NewCipher(c.key)
	if err != nil {
		return "", fmt.Errorf("cipher init error: %w", err)
	}

	plaintext := make([]byte, len(ciphertext))
	cipher.NewCBCDecrypter(block, iv).CryptBlocks(plaintext, ciphertext)

	unpadded, err := pkcs7Unpad(plaintext, aes.BlockSize)
	if err != nil {
		return "", err
	}

	return string(unpadded), nil
}

func (c *EnvelopeCipher) logFailure(ctx context.Context, value string, err error) {
	preview := value
	if len(preview) > 20 {
		preview = preview[:20] + "..."
	}
	c.logger.Error(ctx, "decryption failed, returning stored value", "value", preview, "error", err.Error())
}

func pkcs7Pad(data []byte, blockSize int) []byte {
	padLen := blockSize - len(data)%blockSize
	padded := make([]byte, len(data)+padLen)
	copy(padded, data)
	for i := len(data); i < len(padded); i++ {
		padded[i] = byte(padLen)
	}
	return padded
}

func pkcs7Unpad(data []byte, blockSize int) ([]byte, error) {
	if len(data) == 0 || len(data)%blockSize != 0 {
		return nil, errInvalidPadding
	}
	padLen := int(data[len(data)-1])
	if padLen == 0 || padLen > blockSize {
		return nil, errInvalidPadding
	}
	for _, b := range data[len(data)-padLen:] {
		if int(b) != padLen {
			return nil, errInvalidPaddingBytes
		}
	}
	return data[:len(data)-padLen], nil
}
