package storage

import (
	"context"
	"errors"
	"io"
)

// ErrNotFound is returned by Download and Delete when the key does not exist.
var ErrNotFound = errors.New("storage: object not found")

// Storage is the object store that stands in for the hosted chat backend.
// Keys are slash-separated paths; List returns objects in lexicographic key order.
type Storage interface {
	// Upload stores body under key, replacing any existing object.
	// contentType may be empty.
	Upload(ctx context.Context, key string, body io.Reader, contentType string) error

	// Download writes the object stored under key to w.
	Download(ctx context.Context, key string, w io.Writer) error

	// List returns all objects whose key starts with prefix. An empty prefix lists everything.
	List(ctx context.Context, prefix string) ([]ObjectInfo, error)

	// Delete removes the object stored under key.
	Delete(ctx context.Context, key string) error
}

// ObjectInfo describes a stored object.
type ObjectInfo struct {
	Key          string
	Size         int64
	LastModified string
}
