package chat

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/thebluefowl/parley/internal/conversation"
	"github.com/thebluefowl/parley/internal/encryption"
	"github.com/thebluefowl/parley/internal/gate"
	"github.com/thebluefowl/parley/internal/history"
	"github.com/thebluefowl/parley/internal/keystore"
	"github.com/thebluefowl/parley/internal/kv"
	"github.com/thebluefowl/parley/internal/storage/badgerstore"
)

type fixture struct {
	svc   *Service
	enc   *encryption.Context
	store *conversation.Store
}

func newFixture(t *testing.T) fixture {
	t.Helper()
	db, err := badgerstore.Open(badgerstore.Opts{InMemory: true})
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })

	keys := keystore.New(kv.NewObjects(db, "settings/"), kv.NewMemorySession(), nil)
	ec := encryption.New(keys, encryption.Options{Workers: 2})
	store := conversation.NewStore(db)
	return fixture{svc: NewService(store, ec, nil), enc: ec, store: store}
}

func TestSendPlainWhenDisabled(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)

	res, err := f.svc.Send(ctx, SendRequest{ConversationID: "c1", Text: "hello"})
	require.NoError(t, err)
	assert.False(t, res.WasEncrypted)
	assert.Empty(t, res.Warning)
	assert.Equal(t, conversation.RoleUser, res.Message.Role)
	assert.Equal(t, "hello", res.Message.Content.String())
}

func TestSendEncryptsAndHistoryDecrypts(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	require.NoError(t, f.enc.Setup(ctx, "k"))

	res, err := f.svc.Send(ctx, SendRequest{ConversationID: "c1", Text: "secret"})
	require.NoError(t, err)
	assert.True(t, res.WasEncrypted)

	stored, err := f.store.List(ctx, "c1")
	require.NoError(t, err)
	require.Len(t, stored, 1)
	assert.True(t, stored[0].Content.IsEnveloped())
	assert.NotContains(t, stored[0].Content.String(), "secret")

	shown, err := f.svc.History(ctx, "c1")
	require.NoError(t, err)
	require.Len(t, shown, 1)
	assert.Equal(t, "secret", shown[0].Text)

	f.enc.Lock()
	shown, err = f.svc.History(ctx, "c1")
	require.NoError(t, err)
	assert.Equal(t, history.LockedPlaceholder, shown[0].Text)
}

func TestSendWhileLockedWarns(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	require.NoError(t, f.enc.Setup(ctx, "k"))
	f.enc.Lock()

	res, err := f.svc.Send(ctx, SendRequest{ConversationID: "c1", Text: "hello"})
	require.NoError(t, err)
	assert.False(t, res.WasEncrypted)
	assert.Equal(t, gate.WarnKeyUnavailable, res.Warning)
	assert.Equal(t, "hello", res.Message.Content.String())
}

func TestModelContext(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	require.NoError(t, f.enc.Setup(ctx, "k"))

	_, err := f.svc.Send(ctx, SendRequest{ConversationID: "c1", Text: "question"})
	require.NoError(t, err)
	_, err = f.svc.Send(ctx, SendRequest{ConversationID: "c1", Role: conversation.RoleAssistant, Sender: "Ada", Text: "answer"})
	require.NoError(t, err)

	turns, err := f.svc.ModelContext(ctx, "c1")
	require.NoError(t, err)
	assert.Equal(t, []encryption.Turn{
		{Role: conversation.RoleUser, Content: "question"},
		{Role: conversation.RoleAssistant, Sender: "Ada", Content: "answer"},
	}, turns)
}

func TestSendValidation(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)

	_, err := f.svc.Send(ctx, SendRequest{ConversationID: "c1"})
	assert.ErrorIs(t, err, ErrEmptyMessage)

	_, err = f.svc.Send(ctx, SendRequest{ConversationID: "", Text: "x"})
	assert.ErrorIs(t, err, conversation.ErrInvalidConversationID)

	ids, err := f.svc.Conversations(ctx)
	require.NoError(t, err)
	assert.Empty(t, ids)
}
