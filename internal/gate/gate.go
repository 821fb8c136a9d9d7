// Package gate decides what an outgoing message is stored as.
//
// Sending is never blocked by encryption. When encryption is on but no key is held, or the
// cipher fails, the plaintext is stored and the caller gets a warning to surface. This favours
// availability over confidentiality: a user who believes encryption is active can end up with
// messages stored in the clear, flagged only by that warning.
package gate

import (
	"context"
	"errors"

	"github.com/sirupsen/logrus"

	"github.com/thebluefowl/parley/internal/envelope"
	"github.com/thebluefowl/parley/internal/logging"
)

const (
	WarnEncryptFailed  = "Failed to encrypt message. It was stored unencrypted."
	WarnKeyUnavailable = "Encryption is enabled but no key is unlocked. Message sent unencrypted."
)

// ErrKeyUnavailable reports the enabled-but-locked state. It is expected, not exceptional.
var ErrKeyUnavailable = errors.New("gate: encryption key unavailable")

// Fallback reasons passed to Observer.EncryptFallback.
const (
	ReasonCipherError    = "cipher_error"
	ReasonKeyUnavailable = "key_unavailable"
)

type KeyState interface {
	Enabled(ctx context.Context) bool
	SessionKey() (string, bool)
}

type Observer interface {
	MessageEncrypted()
	EncryptFallback(reason string)
}

// SealResult is the outcome of one encryption attempt: an envelope or the error that
// prevented it. Callers pick the fallback explicitly with UnwrapOrPlaintext.
type SealResult struct {
	Envelope envelope.Content
	Err      error
}

func (r SealResult) OK() bool { return r.Err == nil }

// UnwrapOrPlaintext returns the envelope, or plaintext as plain content when sealing failed.
// ok reports which one it is.
func (r SealResult) UnwrapOrPlaintext(plaintext string) (c envelope.Content, ok bool) {
	if r.Err != nil {
		return envelope.Plain(plaintext), false
	}
	return r.Envelope, true
}

// Prepared is what to hand to the persistence call.
type Prepared struct {
	Stored       envelope.Content
	WasEncrypted bool
	Warning      string // empty when there is nothing to surface
	Err          error  // envelope.ErrEncryptionFailed or ErrKeyUnavailable alongside Warning
}

type Gate struct {
	keys     KeyState
	observer Observer
	log      logrus.FieldLogger

	seal func(plaintext, key string) (envelope.Content, error)
}

func New(keys KeyState, observer Observer, log logrus.FieldLogger) *Gate {
	if observer == nil {
		observer = nopObserver{}
	}
	return &Gate{
		keys:     keys,
		observer: observer,
		log:      logging.OrDiscard(log),
		seal:     envelope.Seal,
	}
}

// Seal encrypts plaintext under key. It does not consult the key store.
func (g *Gate) Seal(plaintext, key string) SealResult {
	c, err := g.seal(plaintext, key)
	if err != nil {
		return SealResult{Err: err}
	}
	return SealResult{Envelope: c}
}

// PrepareForStorage never fails; every degraded outcome is reported through Warning and Err.
func (g *Gate) PrepareForStorage(ctx context.Context, plaintext string) Prepared {
	if !g.keys.Enabled(ctx) {
		return Prepared{Stored: envelope.Plain(plaintext)}
	}

	key, ok := g.keys.SessionKey()
	if !ok {
		g.observer.EncryptFallback(ReasonKeyUnavailable)
		g.log.Warn("encryption enabled but locked, storing message unencrypted")
		return Prepared{
			Stored:  envelope.Plain(plaintext),
			Warning: WarnKeyUnavailable,
			Err:     ErrKeyUnavailable,
		}
	}

	res := g.Seal(plaintext, key)
	stored, sealed := res.UnwrapOrPlaintext(plaintext)
	if !sealed {
		g.observer.EncryptFallback(ReasonCipherError)
		g.log.WithError(res.Err).Warn("encryption failed, storing message unencrypted")
		return Prepared{
			Stored:  stored,
			Warning: WarnEncryptFailed,
			Err:     res.Err,
		}
	}

	g.observer.MessageEncrypted()
	return Prepared{Stored: stored, WasEncrypted: true}
}

type nopObserver struct{}

func (nopObserver) MessageEncrypted()      {}
func (nopObserver) EncryptFallback(string) {}
