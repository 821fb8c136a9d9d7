// Package kv holds the two small key/value collaborators the key store depends on: a durable
// store for settings and a session store for the unlocked key.
package kv

import (
	"context"
	"sync"
)

// Durable persists string values across sessions.
// Get reports ok=false with a nil error when the key does not exist.
type Durable interface {
	Get(ctx context.Context, key string) (value string, ok bool, err error)
	Set(ctx context.Context, key, value string) error
}

// Session holds values for the lifetime of the current session only. Implementations must
// never write to disk or send values anywhere.
type Session interface {
	Get(key string) (string, bool)
	Set(key, value string)
	Remove(key string)
}

// Memory is an in-process Durable, used in tests and as a scratch store.
type Memory struct {
	mu   sync.RWMutex
	vals map[string]string
}

var _ Durable = (*Memory)(nil)

func NewMemory() *Memory {
	return &Memory{vals: make(map[string]string)}
}

func (m *Memory) Get(_ context.Context, key string) (string, bool, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	v, ok := m.vals[key]
	return v, ok, nil
}

func (m *Memory) Set(_ context.Context, key, value string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.vals[key] = value
	return nil
}

// MemorySession is the only Session implementation: values live in process memory and are
// gone when the process exits.
type MemorySession struct {
	mu   sync.RWMutex
	vals map[string]string
}

var _ Session = (*MemorySession)(nil)

func NewMemorySession() *MemorySession {
	return &MemorySession{vals: make(map[string]string)}
}

func (s *MemorySession) Get(key string) (string, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	v, ok := s.vals[key]
	return v, ok
}

func (s *MemorySession) Set(key, value string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.vals[key] = value
}

func (s *MemorySession) Remove(key string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.vals, key)
}
