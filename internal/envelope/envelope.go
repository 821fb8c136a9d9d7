// Package envelope defines the stored form of an encrypted chat message: a fixed prefix marker
// followed by the sealed payload. Classification is a prefix test only, so messages can be sorted
// into plain and enveloped before any key is available.
package envelope

import (
	"encoding/base64"
	"errors"
	"fmt"
	"strings"

	"github.com/thebluefowl/parley/internal/enc"
)

// Prefix marks a stored message as encrypted. It is followed by base64(salt || nonce || ct).
const Prefix = "ENC:"

var (
	// ErrDecryptionFailed covers a wrong key and a corrupted or truncated payload alike.
	ErrDecryptionFailed = errors.New("envelope: decryption failed")

	// ErrEncryptionFailed is returned when a plaintext could not be sealed.
	ErrEncryptionFailed = errors.New("envelope: encryption failed")
)

var payloadEncoding = base64.StdEncoding

// IsEnvelope reports whether s carries the envelope prefix.
func IsEnvelope(s string) bool {
	return strings.HasPrefix(s, Prefix)
}

// Encrypt seals plaintext under key and returns Prefix + payload.
func Encrypt(plaintext, key string) (string, error) {
	sealed, err := enc.SealMessage(key, []byte(plaintext))
	if err != nil {
		return "", fmt.Errorf("%w: %w", ErrEncryptionFailed, err)
	}
	return Prefix + payloadEncoding.EncodeToString(sealed), nil
}

// Decrypt opens an envelope with key. Input that is not an envelope is returned unchanged.
func Decrypt(s, key string) (string, error) {
	if !IsEnvelope(s) {
		return s, nil
	}
	sealed, err := payloadEncoding.DecodeString(s[len(Prefix):])
	if err != nil {
		return "", fmt.Errorf("%w: decode payload: %w", ErrDecryptionFailed, err)
	}
	pt, err := enc.OpenMessage(key, sealed)
	if err != nil {
		return "", fmt.Errorf("%w: %w", ErrDecryptionFailed, err)
	}
	return string(pt), nil
}
