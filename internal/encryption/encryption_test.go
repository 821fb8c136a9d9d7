package encryption

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/thebluefowl/parley/internal/conversation"
	"github.com/thebluefowl/parley/internal/envelope"
	"github.com/thebluefowl/parley/internal/gate"
	"github.com/thebluefowl/parley/internal/history"
	"github.com/thebluefowl/parley/internal/keystore"
	"github.com/thebluefowl/parley/internal/kv"
)

func newContext(t *testing.T) (*Context, *keystore.Store) {
	t.Helper()
	ks := keystore.New(kv.NewMemory(), kv.NewMemorySession(), nil)
	return New(ks, Options{}), ks
}

func TestLifecycle(t *testing.T) {
	ctx := context.Background()
	c, ks := newContext(t)

	assert.Equal(t, Disabled, c.State(ctx))
	assert.ErrorIs(t, c.Unlock(ctx, "k"), ErrNotEnabled)

	require.NoError(t, c.Setup(ctx, "k"))
	assert.Equal(t, Unlocked, c.State(ctx))
	assert.ErrorIs(t, c.Setup(ctx, "other"), ErrAlreadyEnabled)

	c.Lock()
	assert.Equal(t, Locked, c.State(ctx))
	assert.False(t, ks.HasSessionKey())

	assert.ErrorIs(t, c.Unlock(ctx, "wrong"), keystore.ErrKeyMismatch)
	assert.Equal(t, Locked, c.State(ctx))

	require.NoError(t, c.Unlock(ctx, "k"))
	assert.Equal(t, Unlocked, c.State(ctx))

	assert.ErrorIs(t, c.Disable(ctx, "wrong"), keystore.ErrKeyMismatch)
	assert.Equal(t, Unlocked, c.State(ctx))

	require.NoError(t, c.Disable(ctx, "k"))
	assert.Equal(t, Disabled, c.State(ctx))
	assert.False(t, ks.HasSessionKey())
	assert.Empty(t, ks.GetSettings(ctx).KeyHash)
	assert.ErrorIs(t, c.Disable(ctx, "k"), ErrNotEnabled)
}

func TestSetupPending(t *testing.T) {
	ctx := context.Background()
	c, ks := newContext(t)
	require.NoError(t, ks.SaveSettings(ctx, keystore.Settings{Enabled: true}))

	assert.Equal(t, SetupPending, c.State(ctx))
	assert.ErrorIs(t, c.Unlock(ctx, "anything"), keystore.ErrKeyMismatch)

	require.NoError(t, c.Setup(ctx, "k"))
	assert.Equal(t, Unlocked, c.State(ctx))
}

func TestSetupEmptyKey(t *testing.T) {
	ctx := context.Background()
	c, _ := newContext(t)

	assert.ErrorIs(t, c.Setup(ctx, ""), keystore.ErrEmptyKey)
	assert.Equal(t, Disabled, c.State(ctx))
}

func TestSendThenLoad(t *testing.T) {
	ctx := context.Background()
	c, _ := newContext(t)
	require.NoError(t, c.Setup(ctx, "k"))

	p := c.PrepareForStorage(ctx, "hello there")
	require.True(t, p.WasEncrypted)

	msgs := []conversation.Message{
		{ID: "1", Role: conversation.RoleUser, Content: p.Stored},
		{ID: "2", Role: conversation.RoleAssistant, Sender: "Ada", Content: envelope.Plain("hi")},
	}

	shown := c.ProcessMessages(ctx, msgs)
	assert.Equal(t, "hello there", shown[0].Text)
	assert.True(t, shown[0].WasEncrypted)

	assert.Equal(t, []Turn{
		{Role: conversation.RoleUser, Content: "hello there"},
		{Role: conversation.RoleAssistant, Sender: "Ada", Content: "hi"},
	}, c.ModelContext(ctx, msgs))

	c.Lock()
	turns := c.ModelContext(ctx, msgs)
	assert.Equal(t, history.LockedPlaceholder, turns[0].Content)

	p = c.PrepareForStorage(ctx, "while locked")
	assert.Equal(t, gate.WarnKeyUnavailable, p.Warning)
	assert.False(t, p.Stored.IsEnveloped())
}

func TestStateString(t *testing.T) {
	tests := []struct {
		s    State
		want string
	}{
		{Disabled, "disabled"},
		{SetupPending, "setup-pending"},
		{Locked, "locked"},
		{Unlocked, "unlocked"},
		{State(42), "unknown"},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, tt.s.String())
	}
}
