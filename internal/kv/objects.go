package kv

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/thebluefowl/parley/internal/storage"
)

// Objects adapts an object store into a Durable. Each key becomes one object under Prefix.
type Objects struct {
	Storage storage.Storage
	Prefix  string
}

var _ Durable = (*Objects)(nil)

func NewObjects(s storage.Storage, prefix string) *Objects {
	return &Objects{Storage: s, Prefix: prefix}
}

func (o *Objects) Get(ctx context.Context, key string) (string, bool, error) {
	var buf bytes.Buffer
	err := o.Storage.Download(ctx, o.Prefix+key, &buf)
	if errors.Is(err, storage.ErrNotFound) {
		return "", false, nil
	}
	if err != nil {
		return "", false, fmt.Errorf("kv get %s: %w", key, err)
	}
	return buf.String(), true, nil
}

func (o *Objects) Set(ctx context.Context, key, value string) error {
	if err := o.Storage.Upload(ctx, o.Prefix+key, strings.NewReader(value), "application/json"); err != nil {
		return fmt.Errorf("kv set %s: %w", key, err)
	}
	return nil
}
