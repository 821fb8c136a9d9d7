package archive

import (
	"bytes"
	"crypto/rand"
	"io"
	"strings"
	"testing"
)

func compress(t *testing.T, data []byte, opts Options) ([]byte, *Stats) {
	t.Helper()
	var buf bytes.Buffer
	w, stats, err := NewWriter(&buf, opts)
	if err != nil {
		t.Fatalf("NewWriter: %v", err)
	}
	if _, err := w.Write(data); err != nil {
		t.Fatalf("Write: %v", err)
	}
	if err := w.Close(); err != nil {
		t.Fatalf("Close: %v", err)
	}
	return buf.Bytes(), stats
}

func decompress(t *testing.T, data []byte) []byte {
	t.Helper()
	r, err := NewReader(bytes.NewReader(data))
	if err != nil {
		t.Fatalf("NewReader: %v", err)
	}
	defer r.Close()
	out, err := io.ReadAll(r)
	if err != nil {
		t.Fatalf("ReadAll: %v", err)
	}
	return out
}

func TestRoundTrip(t *testing.T) {
	text := []byte(strings.Repeat(`{"role":"user","text":"hello there"}`+"\n", 4000))
	noise := make([]byte, 128<<10)
	if _, err := rand.Read(noise); err != nil {
		t.Fatal(err)
	}

	tests := []struct {
		name     string
		data     []byte
		mode     Mode
		wantUsed Mode
	}{
		{"none", text, ModeNone, ModeNone},
		{"zstd", text, ModeZstd, ModeZstd},
		{"auto compressible", text, ModeAuto, ModeZstd},
		{"auto incompressible", noise, ModeAuto, ModeNone},
		{"auto short stream", []byte("short"), ModeAuto, ModeNone},
		{"auto empty", nil, ModeAuto, ModeNone},
		{"default mode is auto", text, "", ModeZstd},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			out, stats := compress(t, tt.data, Options{Mode: tt.mode})
			if stats.Used != tt.wantUsed {
				t.Errorf("Used = %q, want %q", stats.Used, tt.wantUsed)
			}
			if stats.BytesIn != int64(len(tt.data)) {
				t.Errorf("BytesIn = %d, want %d", stats.BytesIn, len(tt.data))
			}
			if stats.BytesOut != int64(len(out)) {
				t.Errorf("BytesOut = %d, want %d", stats.BytesOut, len(out))
			}
			if got := decompress(t, out); !bytes.Equal(got, tt.data) {
				t.Errorf("round trip mismatch: got %d bytes, want %d", len(got), len(tt.data))
			}
		})
	}
}

func TestSaving(t *testing.T) {
	text := []byte(strings.Repeat("abcdefgh", 10000))
	_, stats := compress(t, text, Options{Mode: ModeZstd})
	if s := stats.Saving(); s <= 0.5 {
		t.Errorf("Saving = %f, want > 0.5", s)
	}
	if s := (&Stats{}).Saving(); s != 0 {
		t.Errorf("empty Saving = %f, want 0", s)
	}
}

func TestUnknownMode(t *testing.T) {
	if _, _, err := NewWriter(io.Discard, Options{Mode: "lz4"}); err == nil {
		t.Fatal("expected error for unknown mode")
	}
}
