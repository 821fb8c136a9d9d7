package export

import (
	"bytes"
	"context"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/thebluefowl/parley/internal/archive"
	"github.com/thebluefowl/parley/internal/conversation"
	"github.com/thebluefowl/parley/internal/enc"
	"github.com/thebluefowl/parley/internal/envelope"
	"github.com/thebluefowl/parley/internal/history"
	"github.com/thebluefowl/parley/internal/storage/badgerstore"
)

func displays() []history.Display {
	at := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	sealed, _ := envelope.Seal("locked away", "k")
	return []history.Display{
		{
			Message: conversation.Message{ID: "1", ConversationID: "c1", Role: conversation.RoleUser,
				Content: envelope.Plain("hi"), CreatedAt: at},
			Text: "hi",
		},
		{
			Message: conversation.Message{ID: "2", ConversationID: "c1", Role: conversation.RoleAssistant,
				Sender: "Ada", Content: sealed, CreatedAt: at.Add(time.Second)},
			Text:            history.LockedPlaceholder,
			IsEncrypted:     true,
			OriginalContent: sealed.String(),
		},
	}
}

func TestWriteReadRecipient(t *testing.T) {
	recipient, identity, err := enc.GenerateIdentity()
	require.NoError(t, err)

	for _, mode := range []archive.Mode{archive.ModeNone, archive.ModeZstd, archive.ModeAuto} {
		t.Run(string(mode), func(t *testing.T) {
			var buf bytes.Buffer
			res, err := Write(context.Background(), &buf, displays(), Options{
				Seal:        enc.SealConfig{Recipients: []string{recipient}},
				Compression: archive.Options{Mode: mode},
			})
			require.NoError(t, err)
			assert.Equal(t, 2, res.Messages)
			require.NotNil(t, res.Compression)

			recs, err := Read(&buf, enc.OpenConfig{Identities: []string{identity}})
			require.NoError(t, err)
			require.Len(t, recs, 2)
			assert.Equal(t, "hi", recs[0].Text)
			assert.Equal(t, "Ada", recs[1].Sender)
			assert.Equal(t, history.LockedPlaceholder, recs[1].Text)
			assert.True(t, recs[1].IsEncrypted)
			assert.Equal(t, displays()[1].CreatedAt, recs[1].CreatedAt)
		})
	}
}

func TestWriteArmoredPassphrase(t *testing.T) {
	var buf bytes.Buffer
	_, err := Write(context.Background(), &buf, displays(), Options{
		Seal: enc.SealConfig{Passphrase: "export pass", Armor: true, ScryptWorkFactor: 10},
	})
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(buf.String(), "-----BEGIN AGE ENCRYPTED FILE-----"))
	assert.NotContains(t, buf.String(), envelope.Prefix)

	recs, err := Read(&buf, enc.OpenConfig{Passphrase: "export pass"})
	require.NoError(t, err)
	assert.Len(t, recs, 2)
}

func TestWriteBadSealConfig(t *testing.T) {
	var buf bytes.Buffer
	_, err := Write(context.Background(), &buf, displays(), Options{})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "seal")
}

func TestReadWrongIdentity(t *testing.T) {
	recipient, _, err := enc.GenerateIdentity()
	require.NoError(t, err)
	_, other, err := enc.GenerateIdentity()
	require.NoError(t, err)

	var buf bytes.Buffer
	_, err = Write(context.Background(), &buf, displays(), Options{Seal: enc.SealConfig{Recipients: []string{recipient}}})
	require.NoError(t, err)

	_, err = Read(&buf, enc.OpenConfig{Identities: []string{other}})
	assert.Error(t, err)
}

func TestToStorage(t *testing.T) {
	ctx := context.Background()
	db, err := badgerstore.Open(badgerstore.Opts{InMemory: true})
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })

	recipient, identity, err := enc.GenerateIdentity()
	require.NoError(t, err)

	res, err := ToStorage(ctx, db, "c1", displays(), Options{Seal: enc.SealConfig{Recipients: []string{recipient}}})
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(res.Key, "exports/c1/"))
	assert.True(t, strings.HasSuffix(res.Key, ".age"))

	var buf bytes.Buffer
	require.NoError(t, db.Download(ctx, res.Key, &buf))
	recs, err := Read(&buf, enc.OpenConfig{Identities: []string{identity}})
	require.NoError(t, err)
	assert.Len(t, recs, 2)

	_, err = ToStorage(ctx, db, "bad/id", displays(), Options{Seal: enc.SealConfig{Recipients: []string{recipient}}})
	assert.ErrorIs(t, err, conversation.ErrInvalidConversationID)
}
