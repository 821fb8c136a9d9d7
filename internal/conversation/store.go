package conversation

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"path"
	"sort"
	"strings"
	"time"

	"github.com/segmentio/ksuid"

	"github.com/thebluefowl/parley/internal/storage"
)

const rootPrefix = "conversations/"

var (
	ErrInvalidConversationID = errors.New("conversation: invalid conversation id")
	ErrInvalidRole           = errors.New("conversation: invalid role")
)

// Store persists messages as one JSON object each under
// conversations/<conversation id>/messages/<message id>.json.
type Store struct {
	objects storage.Storage
	now     func() time.Time
}

func NewStore(objects storage.Storage) *Store {
	return &Store{objects: objects, now: time.Now}
}

func ValidateID(id string) error {
	if id == "" || strings.Contains(id, "/") {
		return fmt.Errorf("%w: %q", ErrInvalidConversationID, id)
	}
	return nil
}

func messagesPrefix(conversationID string) string {
	return rootPrefix + conversationID + "/messages/"
}

// Append assigns m an ID and timestamp and stores it. m.Content is written as is.
func (s *Store) Append(ctx context.Context, m Message) (Message, error) {
	if err := ValidateID(m.ConversationID); err != nil {
		return Message{}, err
	}
	if !m.Role.Valid() {
		return Message{}, fmt.Errorf("%w: %q", ErrInvalidRole, m.Role)
	}

	m.ID = ksuid.New().String()
	m.CreatedAt = s.now().UTC()

	body, err := json.Marshal(m)
	if err != nil {
		return Message{}, fmt.Errorf("marshal message: %w", err)
	}
	key := messagesPrefix(m.ConversationID) + m.ID + ".json"
	if err := s.objects.Upload(ctx, key, bytes.NewReader(body), "application/json"); err != nil {
		return Message{}, fmt.Errorf("store message: %w", err)
	}
	return m, nil
}

// List returns every message of a conversation, oldest first. An unknown conversation is empty.
func (s *Store) List(ctx context.Context, conversationID string) ([]Message, error) {
	if err := ValidateID(conversationID); err != nil {
		return nil, err
	}

	objs, err := s.objects.List(ctx, messagesPrefix(conversationID))
	if err != nil {
		return nil, fmt.Errorf("list messages: %w", err)
	}

	msgs := make([]Message, 0, len(objs))
	for _, o := range objs {
		if path.Ext(o.Key) != ".json" {
			continue
		}
		var buf bytes.Buffer
		if err := s.objects.Download(ctx, o.Key, &buf); err != nil {
			return nil, fmt.Errorf("fetch %s: %w", o.Key, err)
		}
		var m Message
		if err := json.Unmarshal(buf.Bytes(), &m); err != nil {
			return nil, fmt.Errorf("decode %s: %w", o.Key, err)
		}
		msgs = append(msgs, m)
	}

	// ksuids only resolve to the second
	sort.SliceStable(msgs, func(i, j int) bool {
		if !msgs[i].CreatedAt.Equal(msgs[j].CreatedAt) {
			return msgs[i].CreatedAt.Before(msgs[j].CreatedAt)
		}
		return msgs[i].ID < msgs[j].ID
	})
	return msgs, nil
}

// Conversations lists the IDs of conversations with at least one message, sorted.
func (s *Store) Conversations(ctx context.Context) ([]string, error) {
	objs, err := s.objects.List(ctx, rootPrefix)
	if err != nil {
		return nil, fmt.Errorf("list conversations: %w", err)
	}

	seen := make(map[string]struct{})
	var ids []string
	for _, o := range objs {
		rest := strings.TrimPrefix(o.Key, rootPrefix)
		id, _, ok := strings.Cut(rest, "/")
		if !ok || id == "" {
			continue
		}
		if _, dup := seen[id]; dup {
			continue
		}
		seen[id] = struct{}{}
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids, nil
}
