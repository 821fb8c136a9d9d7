// Package history turns stored conversation messages into display-ready messages, decrypting
// enveloped content when a key is held and marking it unreadable otherwise.
package history

import (
	"context"
	"sync"

	"github.com/sirupsen/logrus"

	"github.com/thebluefowl/parley/internal/conversation"
	"github.com/thebluefowl/parley/internal/logging"
)

const (
	LockedPlaceholder        = "🔒 Encrypted message. Enter your key to view."
	UndecryptablePlaceholder = "⚠️ Unable to decrypt this message. Check your key."
)

// KeyState is the part of the key store the processor reads.
type KeyState interface {
	Enabled(ctx context.Context) bool
	SessionKey() (string, bool)
}

// Observer receives one call per enveloped message processed.
type Observer interface {
	MessageDecrypted()
	DecryptFailed()
	MessageLocked()
}

// Display is a message ready to show. Message.Content is never modified; Text is what to
// render. OriginalContent keeps the ciphertext of enveloped messages so a later unlock can
// retry without a refetch.
type Display struct {
	conversation.Message

	Text            string `json:"text"`
	IsEncrypted     bool   `json:"is_encrypted"`  // enveloped and currently unreadable
	WasEncrypted    bool   `json:"was_encrypted"` // enveloped and decrypted for display
	OriginalContent string `json:"original_content,omitempty"`
}

type Options struct {
	// Workers bounds concurrent decryption. <= 1 processes messages in order on the caller's
	// goroutine.
	Workers  int
	Observer Observer
	Logger   logrus.FieldLogger
}

type Processor struct {
	keys     KeyState
	workers  int
	observer Observer
	log      logrus.FieldLogger
}

func NewProcessor(keys KeyState, opts Options) *Processor {
	obs := opts.Observer
	if obs == nil {
		obs = nopObserver{}
	}
	return &Processor{
		keys:     keys,
		workers:  opts.Workers,
		observer: obs,
		log:      logging.OrDiscard(opts.Logger),
	}
}

// ProcessMessages is total: it returns one Display per input message, in input order, and
// never fails. A message that cannot be decrypted is flagged without affecting the others.
func (p *Processor) ProcessMessages(ctx context.Context, msgs []conversation.Message) []Display {
	out := make([]Display, len(msgs))

	if !p.keys.Enabled(ctx) {
		for i, m := range msgs {
			out[i] = passthrough(m)
		}
		return out
	}

	key, unlocked := p.keys.SessionKey()
	process := func(i int) {
		out[i] = p.processOne(msgs[i], key, unlocked)
	}

	if p.workers <= 1 || len(msgs) < 2 {
		for i := range msgs {
			process(i)
		}
		return out
	}

	// each worker writes only its own indices of out
	idx := make(chan int)
	var wg sync.WaitGroup
	for w := 0; w < min(p.workers, len(msgs)); w++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for i := range idx {
				process(i)
			}
		}()
	}
	for i := range msgs {
		idx <- i
	}
	close(idx)
	wg.Wait()
	return out
}

func (p *Processor) processOne(m conversation.Message, key string, unlocked bool) Display {
	if !m.Content.IsEnveloped() {
		return passthrough(m)
	}

	d := Display{Message: m, OriginalContent: m.Content.String()}
	if !unlocked {
		d.Text = LockedPlaceholder
		d.IsEncrypted = true
		p.observer.MessageLocked()
		return d
	}

	text, err := m.Content.Open(key)
	if err != nil {
		d.Text = UndecryptablePlaceholder
		d.IsEncrypted = true
		p.observer.DecryptFailed()
		p.log.WithError(err).WithField("message_id", m.ID).Debug("message could not be decrypted")
		return d
	}

	d.Text = text
	d.WasEncrypted = true
	p.observer.MessageDecrypted()
	return d
}

func passthrough(m conversation.Message) Display {
	return Display{Message: m, Text: m.Content.String()}
}

type nopObserver struct{}

func (nopObserver) MessageDecrypted() {}
func (nopObserver) DecryptFailed()    {}
func (nopObserver) MessageLocked()    {}
