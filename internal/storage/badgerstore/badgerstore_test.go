package badgerstore

import (
	"bytes"
	"context"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/thebluefowl/parley/internal/storage"
)

func newStore(t *testing.T) *Store {
	t.Helper()
	s, err := Open(Opts{InMemory: true})
	require.NoError(t, err)
	t.Cleanup(func() { _ = s.Close() })
	return s
}

func TestUploadDownload(t *testing.T) {
	ctx := context.Background()
	s := newStore(t)

	require.NoError(t, s.Upload(ctx, "a/b.json", strings.NewReader(`{"x":1}`), "application/json"))

	var buf bytes.Buffer
	require.NoError(t, s.Download(ctx, "a/b.json", &buf))
	assert.Equal(t, `{"x":1}`, buf.String())

	require.NoError(t, s.Upload(ctx, "a/b.json", strings.NewReader("replaced"), ""))
	buf.Reset()
	require.NoError(t, s.Download(ctx, "a/b.json", &buf))
	assert.Equal(t, "replaced", buf.String())
}

func TestDownloadMissing(t *testing.T) {
	s := newStore(t)
	err := s.Download(context.Background(), "nope", &bytes.Buffer{})
	assert.ErrorIs(t, err, storage.ErrNotFound)
}

func TestListPrefixOrdered(t *testing.T) {
	ctx := context.Background()
	s := newStore(t)

	for _, k := range []string{"c/2", "c/1", "d/1", "c/3"} {
		require.NoError(t, s.Upload(ctx, k, strings.NewReader(k), ""))
	}

	objs, err := s.List(ctx, "c/")
	require.NoError(t, err)
	var keys []string
	for _, o := range objs {
		keys = append(keys, o.Key)
		assert.Equal(t, int64(3), o.Size)
	}
	assert.Equal(t, []string{"c/1", "c/2", "c/3"}, keys)

	all, err := s.List(ctx, "")
	require.NoError(t, err)
	assert.Len(t, all, 4)
}

func TestDelete(t *testing.T) {
	ctx := context.Background()
	s := newStore(t)

	require.NoError(t, s.Upload(ctx, "k", strings.NewReader("v"), ""))
	require.NoError(t, s.Delete(ctx, "k"))
	assert.ErrorIs(t, s.Download(ctx, "k", &bytes.Buffer{}), storage.ErrNotFound)
	assert.ErrorIs(t, s.Delete(ctx, "k"), storage.ErrNotFound)
}

func TestCanceledContext(t *testing.T) {
	s := newStore(t)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	assert.ErrorIs(t, s.Upload(ctx, "k", strings.NewReader("v"), ""), context.Canceled)
}

func TestOpenRequiresPath(t *testing.T) {
	_, err := Open(Opts{})
	assert.Error(t, err)
}
