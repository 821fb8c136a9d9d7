// Package encryption wires the key store, the outbound gate and the history processor into one
// value that is passed explicitly to whatever sends or loads messages.
package encryption

import (
	"context"
	"errors"

	"github.com/sirupsen/logrus"

	"github.com/thebluefowl/parley/internal/conversation"
	"github.com/thebluefowl/parley/internal/gate"
	"github.com/thebluefowl/parley/internal/history"
	"github.com/thebluefowl/parley/internal/keystore"
	"github.com/thebluefowl/parley/internal/logging"
)

var (
	ErrAlreadyEnabled = errors.New("encryption: already enabled")
	ErrNotEnabled     = errors.New("encryption: not enabled")
)

type State int

const (
	Disabled State = iota
	// SetupPending is an enabled flag with no key hash behind it. Nothing can be verified in
	// this state, so only Setup leaves it.
	SetupPending
	Locked
	Unlocked
)

func (s State) String() string {
	switch s {
	case Disabled:
		return "disabled"
	case SetupPending:
		return "setup-pending"
	case Locked:
		return "locked"
	case Unlocked:
		return "unlocked"
	}
	return "unknown"
}

// Observer receives both send-side and load-side events.
type Observer interface {
	gate.Observer
	history.Observer
}

type Options struct {
	Workers  int
	Observer Observer
	Logger   logrus.FieldLogger
}

// Turn is a message as replayed to the model: role and sender plus whatever text the user sees.
type Turn struct {
	Role    conversation.Role `json:"role"`
	Sender  string            `json:"sender,omitempty"`
	Content string            `json:"content"`
}

type Context struct {
	keys      *keystore.Store
	gate      *gate.Gate
	processor *history.Processor
	log       logrus.FieldLogger
}

func New(keys *keystore.Store, opts Options) *Context {
	log := logging.OrDiscard(opts.Logger)

	var (
		gateObs gate.Observer
		histObs history.Observer
	)
	if opts.Observer != nil {
		gateObs, histObs = opts.Observer, opts.Observer
	}

	return &Context{
		keys: keys,
		gate: gate.New(keys, gateObs, log.WithField("component", "gate")),
		processor: history.NewProcessor(keys, history.Options{
			Workers:  opts.Workers,
			Observer: histObs,
			Logger:   log.WithField("component", "history"),
		}),
		log: log,
	}
}

func (c *Context) Keys() *keystore.Store { return c.keys }

func (c *Context) State(ctx context.Context) State {
	st := c.keys.GetSettings(ctx)
	switch {
	case !st.Enabled:
		return Disabled
	case st.KeyHash == "":
		return SetupPending
	case c.keys.HasSessionKey():
		return Unlocked
	default:
		return Locked
	}
}

// Setup turns encryption on with key and unlocks the session with it.
func (c *Context) Setup(ctx context.Context, key string) error {
	if s := c.State(ctx); s == Locked || s == Unlocked {
		return ErrAlreadyEnabled
	}
	if err := c.keys.SetupEncryption(ctx, key); err != nil {
		return err
	}
	c.keys.SetSessionKey(key)
	c.log.Info("message encryption enabled")
	return nil
}

// Unlock holds key for the session if it matches the stored hash. On mismatch nothing changes.
func (c *Context) Unlock(ctx context.Context, key string) error {
	st := c.keys.GetSettings(ctx)
	if !st.Enabled {
		return ErrNotEnabled
	}
	if !c.keys.VerifyKey(ctx, key) {
		return keystore.ErrKeyMismatch
	}
	c.keys.SetSessionKey(key)
	c.log.Debug("session unlocked")
	return nil
}

// Lock forgets the session key. Durable settings are untouched.
func (c *Context) Lock() {
	c.keys.ClearSessionKey()
	c.log.Debug("session locked")
}

// Disable turns encryption off once key is verified. Existing envelopes stay as they are and
// will show as raw ciphertext from now on.
func (c *Context) Disable(ctx context.Context, key string) error {
	if !c.keys.Enabled(ctx) {
		return ErrNotEnabled
	}
	if !c.keys.VerifyKey(ctx, key) {
		return keystore.ErrKeyMismatch
	}
	if err := c.keys.DisableEncryption(ctx); err != nil {
		return err
	}
	c.keys.ClearSessionKey()
	c.log.Info("message encryption disabled")
	return nil
}

func (c *Context) ProcessMessages(ctx context.Context, msgs []conversation.Message) []history.Display {
	return c.processor.ProcessMessages(ctx, msgs)
}

func (c *Context) PrepareForStorage(ctx context.Context, plaintext string) gate.Prepared {
	return c.gate.PrepareForStorage(ctx, plaintext)
}

// ModelContext replays history as model input. Locked or undecryptable turns contribute their
// placeholder text rather than ciphertext, and the replay never fails.
func (c *Context) ModelContext(ctx context.Context, msgs []conversation.Message) []Turn {
	shown := c.processor.ProcessMessages(ctx, msgs)
	turns := make([]Turn, len(shown))
	for i, d := range shown {
		turns[i] = Turn{Role: d.Role, Sender: d.Sender, Content: d.Text}
	}
	return turns
}
