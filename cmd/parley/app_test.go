package main

import (
	"bytes"
	"context"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/thebluefowl/parley/internal/chat"
	"github.com/thebluefowl/parley/internal/config"
	"github.com/thebluefowl/parley/internal/encryption"
	"github.com/thebluefowl/parley/internal/keystore"
	"github.com/thebluefowl/parley/internal/storage/s3compat"
)

// writeConfig points the command-line globals at a fresh config under a temp dir.
func writeConfig(t *testing.T, mutate func(*config.Config)) {
	t.Helper()
	dir := t.TempDir()

	cfg := config.Default()
	cfg.Profile.Path = filepath.Join(dir, "profile")
	cfg.Storage.Badger.Path = filepath.Join(dir, "data")
	if mutate != nil {
		mutate(&cfg)
	}

	path := filepath.Join(dir, "config.yaml")
	require.NoError(t, config.Save(cfg, path))

	oldPath, oldUnlock := configPath, unlockFlag
	configPath, unlockFlag = path, false
	t.Cleanup(func() { configPath, unlockFlag = oldPath, oldUnlock })
}

func TestSettingsStayOutOfConversationStore(t *testing.T) {
	ctx := context.Background()
	writeConfig(t, nil)

	a, err := openApp(ctx)
	require.NoError(t, err)

	require.NoError(t, a.enc.Setup(ctx, "hunter2"))
	res, err := a.chat.Send(ctx, chat.SendRequest{ConversationID: "c1", Text: "hello"})
	require.NoError(t, err)
	require.True(t, res.WasEncrypted)

	hash := keystore.HashKey("hunter2")

	objs, err := a.objects.List(ctx, "")
	require.NoError(t, err)
	require.NotEmpty(t, objs)
	for _, o := range objs {
		assert.True(t, strings.HasPrefix(o.Key, "conversations/"), "unexpected object %s", o.Key)
		var buf bytes.Buffer
		require.NoError(t, a.objects.Download(ctx, o.Key, &buf))
		assert.NotContains(t, buf.String(), hash)
		assert.NotContains(t, buf.String(), "hello")
	}

	var settings bytes.Buffer
	require.NoError(t, a.profile.Download(ctx, settingsPrefix+keystore.SettingsKey, &settings))
	assert.Contains(t, settings.String(), hash)
	a.Close()

	// settings survive the process, the session key does not
	a, err = openApp(ctx)
	require.NoError(t, err)
	defer a.Close()
	assert.Equal(t, encryption.Locked, a.enc.State(ctx))
	assert.False(t, a.keys.HasSessionKey())
}

func TestS3BackendNeverHoldsSettings(t *testing.T) {
	ctx := context.Background()
	t.Setenv("AWS_EC2_METADATA_DISABLED", "true")
	writeConfig(t, func(cfg *config.Config) {
		cfg.Storage.Backend = config.BackendS3
		cfg.Storage.S3.Bucket = "chats"
		// nothing listens here, so any request to the bucket fails
		cfg.Storage.S3.Endpoint = "http://127.0.0.1:1"
		cfg.Storage.S3.PathStyle = true
		cfg.Storage.S3.AccessKeyID = "test"
		cfg.Storage.S3.SecretAccessKey = "test"
	})

	a, err := openApp(ctx)
	require.NoError(t, err)
	defer a.Close()

	_, isS3 := a.objects.(*s3compat.Client)
	require.True(t, isS3)

	assert.Equal(t, encryption.Disabled, a.enc.State(ctx))
	require.NoError(t, a.enc.Setup(ctx, "hunter2"))
	assert.Equal(t, encryption.Unlocked, a.enc.State(ctx))
	assert.True(t, a.keys.VerifyKey(ctx, "hunter2"))

	var settings bytes.Buffer
	require.NoError(t, a.profile.Download(ctx, settingsPrefix+keystore.SettingsKey, &settings))
	assert.Contains(t, settings.String(), keystore.HashKey("hunter2"))
}

func TestUnlockFlagWithEncryptionDisabled(t *testing.T) {
	writeConfig(t, nil)
	unlockFlag = true

	a, err := openApp(context.Background())
	require.NoError(t, err)
	defer a.Close()
	assert.False(t, a.keys.HasSessionKey())
}
