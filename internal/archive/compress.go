// Package archive compresses exported transcripts.
package archive

import (
	"bufio"
	"bytes"
	"fmt"
	"io"

	"github.com/klauspost/compress/zstd"
)

type Mode string

const (
	ModeNone Mode = "none"
	ModeZstd Mode = "zstd"
	// ModeAuto compresses only if a sample of the stream shrinks by at least MinSaving.
	ModeAuto Mode = "auto"
)

// zstdMagic opens every zstd frame.
var zstdMagic = []byte{0x28, 0xb5, 0x2f, 0xfd}

type Options struct {
	Mode        Mode
	Level       int     // zstd level 1..19, 3 when zero
	MinSaving   float64 // auto threshold, 0.05 when zero
	SampleBytes int     // auto sample size, 64KiB when zero
}

// Stats is filled in as the stream is written and is final after Close.
type Stats struct {
	Requested Mode
	Used      Mode

	// EstimatedSaving is the saving measured on the auto sample, -1 outside auto.
	EstimatedSaving float64

	BytesIn  int64
	BytesOut int64
}

// Saving is 1 - out/in, or 0 when nothing was written.
func (s *Stats) Saving() float64 {
	if s.BytesIn == 0 {
		return 0
	}
	return 1 - float64(s.BytesOut)/float64(s.BytesIn)
}

func (o *Options) withDefaults() {
	if o.Mode == "" {
		o.Mode = ModeAuto
	}
	if o.Level == 0 {
		o.Level = 3
	}
	if o.MinSaving <= 0 {
		o.MinSaving = 0.05
	}
	if o.SampleBytes <= 0 {
		o.SampleBytes = 64 << 10
	}
}

// NewWriter returns a writer that compresses into dst according to opts.
func NewWriter(dst io.Writer, opts Options) (io.WriteCloser, *Stats, error) {
	opts.withDefaults()
	stats := &Stats{Requested: opts.Mode, Used: opts.Mode, EstimatedSaving: -1}
	out := &countingWriter{dst: dst}

	w := &writer{opts: opts, out: out, stats: stats}
	switch opts.Mode {
	case ModeNone:
		w.decided = true
	case ModeZstd:
		enc, err := newEncoder(out, opts.Level)
		if err != nil {
			return nil, nil, err
		}
		w.enc = enc
		w.decided = true
	case ModeAuto:
		w.sample = &bytes.Buffer{}
	default:
		return nil, nil, fmt.Errorf("unknown compression mode %q", opts.Mode)
	}
	return w, stats, nil
}

// NewReader undoes NewWriter in any mode by checking for the zstd magic number.
func NewReader(src io.Reader) (io.ReadCloser, error) {
	br := bufio.NewReader(src)
	head, err := br.Peek(len(zstdMagic))
	if err != nil && err != io.EOF {
		return nil, fmt.Errorf("peek stream: %w", err)
	}
	if !bytes.Equal(head, zstdMagic) {
		return io.NopCloser(br), nil
	}
	dec, err := zstd.NewReader(br)
	if err != nil {
		return nil, fmt.Errorf("open zstd stream: %w", err)
	}
	return dec.IOReadCloser(), nil
}

type countingWriter struct {
	dst io.Writer
	n   int64
}

func (c *countingWriter) Write(p []byte) (int, error) {
	n, err := c.dst.Write(p)
	c.n += int64(n)
	return n, err
}

func newEncoder(w io.Writer, level int) (*zstd.Encoder, error) {
	level = max(1, min(level, 19))
	return zstd.NewWriter(w, zstd.WithEncoderLevel(zstd.EncoderLevelFromZstd(level)))
}

type writer struct {
	opts  Options
	out   *countingWriter
	stats *Stats

	// auto mode buffers into sample until it can decide
	sample  *bytes.Buffer
	decided bool

	enc *zstd.Encoder // nil writes through
}

func (w *writer) Write(p []byte) (int, error) {
	w.stats.BytesIn += int64(len(p))
	if !w.decided {
		w.sample.Write(p)
		if w.sample.Len() < w.opts.SampleBytes {
			return len(p), nil
		}
		if err := w.decide(); err != nil {
			return 0, err
		}
		return len(p), nil
	}
	if w.enc != nil {
		return w.enc.Write(p)
	}
	return w.out.Write(p)
}

func (w *writer) decide() error {
	w.decided = true
	sample := w.sample.Bytes()
	w.sample = nil

	var probe bytes.Buffer
	enc, err := newEncoder(&probe, w.opts.Level)
	if err != nil {
		return err
	}
	if _, err := enc.Write(sample); err != nil {
		return err
	}
	if err := enc.Close(); err != nil {
		return err
	}
	if len(sample) > 0 {
		w.stats.EstimatedSaving = 1 - float64(probe.Len())/float64(len(sample))
	}

	if len(sample) == 0 || w.stats.EstimatedSaving < w.opts.MinSaving {
		w.stats.Used = ModeNone
		_, err := w.out.Write(sample)
		return err
	}

	w.stats.Used = ModeZstd
	if w.enc, err = newEncoder(w.out, w.opts.Level); err != nil {
		return err
	}
	_, err = w.enc.Write(sample)
	return err
}

func (w *writer) Close() error {
	if !w.decided {
		if err := w.decide(); err != nil {
			return err
		}
	}
	var err error
	if w.enc != nil {
		err = w.enc.Close()
	}
	w.stats.BytesOut = w.out.n
	return err
}
