package enc

import (
	"crypto/rand"
	"crypto/sha256"
	"errors"
	"fmt"
	"io"

	"golang.org/x/crypto/chacha20poly1305"
	"golang.org/x/crypto/hkdf"
)

const aeadVersionTag = "parley.msg.v1"

const (
	MessageSaltSize = 16
	aeadTagSize     = 16

	// sealed layout: salt || nonce || ciphertext+tag
	sealedOverhead = MessageSaltSize + chacha20poly1305.NonceSizeX + aeadTagSize
)

var (
	ErrEmptyKey       = errors.New("aead: key is empty")
	ErrSealedTooShort = errors.New("aead: sealed message too short")
	ErrAuthFailed     = errors.New("aead: message authentication failed")
)

// DeriveMessageKey stretches a user passphrase into a per-message XChaCha20 key.
// HKDF is a plain extract-and-expand; it adds no work factor.
func DeriveMessageKey(passphrase string, salt []byte) ([]byte, error) {
	if passphrase == "" {
		return nil, ErrEmptyKey
	}
	if len(salt) != MessageSaltSize {
		return nil, fmt.Errorf("aead: salt must be %d bytes", MessageSaltSize)
	}
	r := hkdf.New(sha256.New, []byte(passphrase), salt, []byte("parley/message"))
	k := make([]byte, chacha20poly1305.KeySize)
	if _, err := io.ReadFull(r, k); err != nil {
		return nil, fmt.Errorf("aead: hkdf: %w", err)
	}
	return k, nil
}

// SealMessage encrypts plaintext under a key derived from passphrase and a fresh salt.
// Every call draws a new salt and nonce, so sealing the same plaintext twice never yields the
// same bytes.
func SealMessage(passphrase string, plaintext []byte) ([]byte, error) {
	salt := make([]byte, MessageSaltSize)
	if _, err := rand.Read(salt); err != nil {
		return nil, fmt.Errorf("aead: salt gen: %w", err)
	}
	key, err := DeriveMessageKey(passphrase, salt)
	if err != nil {
		return nil, err
	}
	defer zeroBytes(key)

	aead, err := chacha20poly1305.NewX(key)
	if err != nil {
		return nil, err
	}
	nonce := make([]byte, chacha20poly1305.NonceSizeX)
	if _, err := rand.Read(nonce); err != nil {
		return nil, fmt.Errorf("aead: nonce gen: %w", err)
	}

	out := make([]byte, 0, sealedOverhead+len(plaintext))
	out = append(out, salt...)
	out = append(out, nonce...)
	return aead.Seal(out, nonce, plaintext, []byte(aeadVersionTag)), nil
}

// OpenMessage reverses SealMessage. A wrong passphrase and a corrupted payload both surface as
// ErrAuthFailed.
func OpenMessage(passphrase string, sealed []byte) ([]byte, error) {
	if passphrase == "" {
		return nil, ErrEmptyKey
	}
	if len(sealed) < sealedOverhead {
		return nil, ErrSealedTooShort
	}
	salt := sealed[:MessageSaltSize]
	nonce := sealed[MessageSaltSize : MessageSaltSize+chacha20poly1305.NonceSizeX]
	ct := sealed[MessageSaltSize+chacha20poly1305.NonceSizeX:]

	key, err := DeriveMessageKey(passphrase, salt)
	if err != nil {
		return nil, err
	}
	defer zeroBytes(key)

	aead, err := chacha20poly1305.NewX(key)
	if err != nil {
		return nil, err
	}
	pt, err := aead.Open(nil, nonce, ct, []byte(aeadVersionTag))
	if err != nil {
		return nil, ErrAuthFailed
	}
	return pt, nil
}

func zeroBytes(b []byte) {
	for i := range b {
		b[i] = 0
	}
}
