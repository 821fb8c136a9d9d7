package enc

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"

	"filippo.io/age"
	"filippo.io/age/armor"
)

const agePrivateKeyPrefix = "AGE-SECRET-KEY-"

// GenerateIdentity returns a fresh age X25519 recipient/identity pair for transcript exports.
func GenerateIdentity() (recipient, identity string, err error) {
	id, err := age.GenerateX25519Identity()
	if err != nil {
		return "", "", fmt.Errorf("age keygen: %w", err)
	}
	return id.Recipient().String(), id.String(), nil
}

// SealConfig selects passphrase- or recipient-based sealing of an export stream.
// Exactly one of Passphrase or Recipients must be provided.
type SealConfig struct {
	Passphrase string   // scrypt recipient
	Recipients []string // "age1..." X25519 public keys
	Armor      bool

	// ScryptWorkFactor overrides age's default (18) when > 0. Only meaningful with Passphrase.
	ScryptWorkFactor int
}

// OpenConfig selects the identity used to open an export stream.
// Exactly one of Passphrase or Identities must be provided. Identities are either
// "AGE-SECRET-KEY-1..." strings or paths to identity files.
type OpenConfig struct {
	Passphrase string
	Identities []string
}

// NewSealWriter returns a WriteCloser that encrypts everything written to it into dst.
// Close finalizes the age stream and then the armor wrapper; dst itself is not closed.
func NewSealWriter(dst io.Writer, cfg SealConfig) (io.WriteCloser, error) {
	rcpts, err := cfg.recipients()
	if err != nil {
		return nil, err
	}

	out := dst
	var closers []io.Closer
	var aw io.WriteCloser
	if cfg.Armor {
		aw = armor.NewWriter(dst)
		out = aw
	}

	w, err := age.Encrypt(out, rcpts...)
	if err != nil {
		if aw != nil {
			_ = aw.Close()
		}
		return nil, fmt.Errorf("age encrypt: %w", err)
	}

	// age writer first so the final chunk lands before the armor footer
	closers = append(closers, w)
	if aw != nil {
		closers = append(closers, aw)
	}
	return &multiCloseWriter{Writer: w, finals: closers}, nil
}

// NewOpenReader returns a Reader yielding plaintext from an age stream, armored or binary.
func NewOpenReader(src io.Reader, cfg OpenConfig) (io.Reader, error) {
	ids, err := cfg.identities()
	if err != nil {
		return nil, err
	}

	br := bufio.NewReader(src)
	head, err := br.Peek(len(armor.Header))
	if err != nil && !errors.Is(err, io.EOF) {
		return nil, fmt.Errorf("peek age header: %w", err)
	}
	var in io.Reader = br
	if string(head) == armor.Header {
		in = armor.NewReader(br)
	}

	r, err := age.Decrypt(in, ids...)
	if err != nil {
		return nil, fmt.Errorf("age decrypt: %w", err)
	}
	return r, nil
}

func (cfg SealConfig) recipients() ([]age.Recipient, error) {
	pass := cfg.Passphrase != ""
	keys := len(cfg.Recipients) > 0
	if pass == keys {
		return nil, errors.New("seal config: exactly one of Passphrase or Recipients must be set")
	}

	if pass {
		r, err := age.NewScryptRecipient(cfg.Passphrase)
		if err != nil {
			return nil, fmt.Errorf("age scrypt: %w", err)
		}
		if cfg.ScryptWorkFactor > 0 {
			r.SetWorkFactor(cfg.ScryptWorkFactor)
		}
		return []age.Recipient{r}, nil
	}

	var out []age.Recipient
	for _, k := range cfg.Recipients {
		k = strings.TrimSpace(k)
		if k == "" {
			continue
		}
		rcpt, err := age.ParseX25519Recipient(k)
		if err != nil {
			return nil, fmt.Errorf("parse recipient %q: %w", k, err)
		}
		out = append(out, rcpt)
	}
	if len(out) == 0 {
		return nil, errors.New("no valid recipients provided")
	}
	return out, nil
}

func (cfg OpenConfig) identities() ([]age.Identity, error) {
	pass := cfg.Passphrase != ""
	keys := len(cfg.Identities) > 0
	if pass == keys {
		return nil, errors.New("open config: exactly one of Passphrase or Identities must be set")
	}

	if pass {
		id, err := age.NewScryptIdentity(cfg.Passphrase)
		if err != nil {
			return nil, fmt.Errorf("age scrypt: %w", err)
		}
		return []age.Identity{id}, nil
	}

	var out []age.Identity
	for _, k := range cfg.Identities {
		k = strings.TrimSpace(k)
		if k == "" {
			continue
		}
		if strings.HasPrefix(k, agePrivateKeyPrefix) {
			id, err := age.ParseX25519Identity(k)
			if err != nil {
				return nil, fmt.Errorf("parse identity: %w", err)
			}
			out = append(out, id)
			continue
		}
		f, err := os.Open(k)
		if err != nil {
			return nil, fmt.Errorf("read identity file %q: %w", k, err)
		}
		ids, err := age.ParseIdentities(f)
		_ = f.Close()
		if err != nil {
			return nil, fmt.Errorf("parse identity file %q: %w", k, err)
		}
		out = append(out, ids...)
	}
	if len(out) == 0 {
		return nil, errors.New("no valid identities provided")
	}
	return out, nil
}

type multiCloseWriter struct {
	io.Writer
	finals []io.Closer
}

func (m *multiCloseWriter) Close() error {
	var firstErr error
	for _, c := range m.finals {
		if err := c.Close(); err != nil && firstErr == nil {
			firstErr = err
		}
	}
	return firstErr
}
