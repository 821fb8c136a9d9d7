// Package export writes a conversation, as the user currently sees it, to an age-encrypted
// transcript: JSON lines, optionally zstd-compressed, then sealed with age.
//
// Messages that are locked or undecryptable at export time are written with their placeholder
// text and flags. The export never contains the message envelopes.
package export

import (
	"bufio"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"time"

	"github.com/segmentio/ksuid"
	"github.com/sirupsen/logrus"

	"github.com/thebluefowl/parley/internal/archive"
	"github.com/thebluefowl/parley/internal/conversation"
	"github.com/thebluefowl/parley/internal/enc"
	"github.com/thebluefowl/parley/internal/history"
	"github.com/thebluefowl/parley/internal/logging"
	"github.com/thebluefowl/parley/internal/pipeline"
	"github.com/thebluefowl/parley/internal/progress"
	"github.com/thebluefowl/parley/internal/storage"
)

const contentType = "application/age"

var errUploadStopped = errors.New("upload stopped reading")

// Record is one line of a transcript.
type Record struct {
	ID             string            `json:"id"`
	ConversationID string            `json:"conversation_id"`
	Role           conversation.Role `json:"role"`
	Sender         string            `json:"sender,omitempty"`
	Text           string            `json:"text"`
	IsEncrypted    bool              `json:"is_encrypted,omitempty"`
	WasEncrypted   bool              `json:"was_encrypted,omitempty"`
	CreatedAt      time.Time         `json:"created_at"`
}

func recordOf(d history.Display) Record {
	return Record{
		ID:             d.ID,
		ConversationID: d.ConversationID,
		Role:           d.Role,
		Sender:         d.Sender,
		Text:           d.Text,
		IsEncrypted:    d.IsEncrypted,
		WasEncrypted:   d.WasEncrypted,
		CreatedAt:      d.CreatedAt,
	}
}

type Options struct {
	Seal        enc.SealConfig
	Compression archive.Options

	// Progress receives a message counter. Nil disables it.
	Progress io.Writer
	Logger   logrus.FieldLogger
}

type Result struct {
	Messages    int
	Compression *archive.Stats
	// Key is set by ToStorage.
	Key string
}

// Write encodes msgs into dst. dst is not closed.
func Write(ctx context.Context, dst io.Writer, msgs []history.Display, opts Options) (*Result, error) {
	log := logging.OrDiscard(opts.Logger)
	res := &Result{}

	bar := progress.NewMessageBar(opts.Progress, "exporting", int64(len(msgs)))
	defer bar.Close()

	encode := pipeline.Stage{Name: "encode", Run: func(ctx context.Context, _ io.Reader, w io.Writer) error {
		bw := bufio.NewWriter(w)
		je := json.NewEncoder(bw)
		for _, d := range msgs {
			if err := ctx.Err(); err != nil {
				return err
			}
			if err := je.Encode(recordOf(d)); err != nil {
				return err
			}
			res.Messages++
			_ = bar.Add(1)
		}
		return bw.Flush()
	}}

	compress := pipeline.Stage{Name: "compress", Run: func(_ context.Context, r io.Reader, w io.Writer) error {
		cw, stats, err := archive.NewWriter(w, opts.Compression)
		if err != nil {
			return err
		}
		res.Compression = stats
		if _, err := io.Copy(cw, r); err != nil {
			_ = cw.Close()
			return err
		}
		return cw.Close()
	}}

	seal := pipeline.Stage{Name: "seal", Run: func(_ context.Context, r io.Reader, w io.Writer) error {
		sw, err := enc.NewSealWriter(w, opts.Seal)
		if err != nil {
			return err
		}
		if _, err := io.Copy(sw, r); err != nil {
			_ = sw.Close()
			return err
		}
		return sw.Close()
	}}

	if err := pipeline.Run(ctx, dst, encode, compress, seal); err != nil {
		return nil, fmt.Errorf("export: %w", err)
	}

	log.WithFields(logrus.Fields{
		"messages":    res.Messages,
		"compression": res.Compression.Used,
		"bytes_in":    res.Compression.BytesIn,
		"bytes_out":   res.Compression.BytesOut,
	}).Info("transcript written")
	return res, nil
}

// StorageKey is where ToStorage puts a new export of conversationID.
func StorageKey(conversationID string) string {
	return "exports/" + conversationID + "/" + ksuid.New().String() + ".age"
}

// ToStorage streams the transcript straight into s under a fresh StorageKey.
func ToStorage(ctx context.Context, s storage.Storage, conversationID string, msgs []history.Display, opts Options) (*Result, error) {
	if err := conversation.ValidateID(conversationID); err != nil {
		return nil, err
	}
	key := StorageKey(conversationID)

	pr, pw := io.Pipe()
	type outcome struct {
		res *Result
		err error
	}
	done := make(chan outcome, 1)
	go func() {
		res, err := Write(ctx, pw, msgs, opts)
		_ = pw.CloseWithError(err)
		done <- outcome{res, err}
	}()

	upErr := s.Upload(ctx, key, pr, contentType)
	// unblocks the writer if the upload returned before reading everything
	_ = pr.CloseWithError(errUploadStopped)
	out := <-done

	switch {
	case out.err != nil && !errors.Is(out.err, errUploadStopped):
		return nil, out.err
	case upErr != nil:
		return nil, fmt.Errorf("upload export: %w", upErr)
	case out.err != nil:
		return nil, out.err
	}
	out.res.Key = key
	return out.res, nil
}

// Read opens a transcript written by Write.
func Read(src io.Reader, cfg enc.OpenConfig) ([]Record, error) {
	plain, err := enc.NewOpenReader(src, cfg)
	if err != nil {
		return nil, fmt.Errorf("open transcript: %w", err)
	}
	dr, err := archive.NewReader(plain)
	if err != nil {
		return nil, err
	}
	defer dr.Close()

	var out []Record
	dec := json.NewDecoder(dr)
	for {
		var rec Record
		err := dec.Decode(&rec)
		if errors.Is(err, io.EOF) {
			return out, nil
		}
		if err != nil {
			return nil, fmt.Errorf("decode transcript line %d: %w", len(out)+1, err)
		}
		out = append(out, rec)
	}
}
