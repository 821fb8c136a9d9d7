// Package keystore tracks whether message encryption is turned on and holds the unlocked key
// for the current session.
//
// Durable state is a small JSON blob: the enabled flag and a SHA-256 of the key. The key itself
// only ever lives in the session store. The hash exists to check a key typed later, not to
// resist an attacker who can read the durable store; it is a plain digest with no work factor.
package keystore

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/sirupsen/logrus"

	"github.com/thebluefowl/parley/internal/kv"
	"github.com/thebluefowl/parley/internal/logging"
)

const (
	SettingsKey    = "encryption_settings"
	SessionKeySlot = "encryption_session_key"
)

var (
	ErrEmptyKey = errors.New("keystore: encryption key is empty")

	// ErrKeyMismatch is returned by callers that gate an action on VerifyKey.
	ErrKeyMismatch = errors.New("keystore: invalid encryption key")

	// ErrSettingsCorrupted is logged, never returned: corrupted settings read as disabled.
	ErrSettingsCorrupted = errors.New("keystore: settings blob is corrupted")
)

// Settings is the durable encryption state. KeyHash is set iff a key was set up.
type Settings struct {
	Enabled bool   `json:"enabled"`
	KeyHash string `json:"keyHash,omitempty"`
}

type Store struct {
	durable kv.Durable
	session kv.Session
	log     logrus.FieldLogger
}

func New(durable kv.Durable, session kv.Session, log logrus.FieldLogger) *Store {
	return &Store{
		durable: durable,
		session: session,
		log:     logging.OrDiscard(log),
	}
}

// HashKey is the one-way digest persisted in Settings.KeyHash.
func HashKey(key string) string {
	sum := sha256.Sum256([]byte(key))
	return hex.EncodeToString(sum[:])
}

// GetSettings never fails: a missing, unreadable or malformed blob reads as disabled.
func (s *Store) GetSettings(ctx context.Context) Settings {
	raw, ok, err := s.durable.Get(ctx, SettingsKey)
	if err != nil {
		s.log.WithError(err).Warn("reading encryption settings failed, treating encryption as disabled")
		return Settings{}
	}
	if !ok {
		return Settings{}
	}
	var st Settings
	if err := json.Unmarshal([]byte(raw), &st); err != nil {
		s.log.WithError(fmt.Errorf("%w: %w", ErrSettingsCorrupted, err)).
			Warn("treating encryption as disabled")
		return Settings{}
	}
	return st
}

// SaveSettings overwrites the durable blob in a single write.
func (s *Store) SaveSettings(ctx context.Context, st Settings) error {
	raw, err := json.Marshal(st)
	if err != nil {
		return fmt.Errorf("marshal settings: %w", err)
	}
	if err := s.durable.Set(ctx, SettingsKey, string(raw)); err != nil {
		return fmt.Errorf("save settings: %w", err)
	}
	return nil
}

// SetupEncryption enables encryption and records the hash of key. The key is not stored.
func (s *Store) SetupEncryption(ctx context.Context, key string) error {
	if key == "" {
		return ErrEmptyKey
	}
	return s.SaveSettings(ctx, Settings{Enabled: true, KeyHash: HashKey(key)})
}

// DisableEncryption drops the flag and the hash. Stored ciphertext is left as it is.
func (s *Store) DisableEncryption(ctx context.Context) error {
	return s.SaveSettings(ctx, Settings{Enabled: false})
}

func (s *Store) VerifyKey(ctx context.Context, key string) bool {
	st := s.GetSettings(ctx)
	if !st.Enabled || st.KeyHash == "" {
		return false
	}
	return HashKey(key) == st.KeyHash
}

func (s *Store) Enabled(ctx context.Context) bool {
	return s.GetSettings(ctx).Enabled
}

func (s *Store) SetSessionKey(key string) {
	s.session.Set(SessionKeySlot, key)
}

func (s *Store) SessionKey() (string, bool) {
	k, ok := s.session.Get(SessionKeySlot)
	if !ok || k == "" {
		return "", false
	}
	return k, true
}

func (s *Store) ClearSessionKey() {
	s.session.Remove(SessionKeySlot)
}

func (s *Store) HasSessionKey() bool {
	_, ok := s.SessionKey()
	return ok
}
