// Package chat is the send and load path of a conversation, with message encryption applied on
// the way in and out of the store.
package chat

import (
	"context"
	"errors"
	"fmt"

	"github.com/sirupsen/logrus"

	"github.com/thebluefowl/parley/internal/conversation"
	"github.com/thebluefowl/parley/internal/encryption"
	"github.com/thebluefowl/parley/internal/history"
	"github.com/thebluefowl/parley/internal/logging"
)

var ErrEmptyMessage = errors.New("chat: message is empty")

type SendRequest struct {
	ConversationID string
	Role           conversation.Role // RoleUser when empty
	Sender         string
	Text           string
}

type SendResult struct {
	Message      conversation.Message
	WasEncrypted bool
	// Warning is set when the message was stored in the clear although encryption is on.
	Warning string
}

type Service struct {
	store *conversation.Store
	enc   *encryption.Context
	log   logrus.FieldLogger
}

func NewService(store *conversation.Store, enc *encryption.Context, log logrus.FieldLogger) *Service {
	return &Service{store: store, enc: enc, log: logging.OrDiscard(log)}
}

// Send stores one message. Encryption trouble never stops a send; it shows up as a Warning.
func (s *Service) Send(ctx context.Context, req SendRequest) (SendResult, error) {
	if req.Text == "" {
		return SendResult{}, ErrEmptyMessage
	}
	if req.Role == "" {
		req.Role = conversation.RoleUser
	}

	prepared := s.enc.PrepareForStorage(ctx, req.Text)
	if prepared.Err != nil {
		s.log.WithError(prepared.Err).WithField("conversation", req.ConversationID).
			Warn("message stored without encryption")
	}

	msg, err := s.store.Append(ctx, conversation.Message{
		ConversationID: req.ConversationID,
		Role:           req.Role,
		Sender:         req.Sender,
		Content:        prepared.Stored,
	})
	if err != nil {
		return SendResult{}, fmt.Errorf("send: %w", err)
	}

	return SendResult{
		Message:      msg,
		WasEncrypted: prepared.WasEncrypted,
		Warning:      prepared.Warning,
	}, nil
}

// History loads a conversation ready for display.
func (s *Service) History(ctx context.Context, conversationID string) ([]history.Display, error) {
	msgs, err := s.store.List(ctx, conversationID)
	if err != nil {
		return nil, fmt.Errorf("history: %w", err)
	}
	return s.enc.ProcessMessages(ctx, msgs), nil
}

// ModelContext loads a conversation as it would be replayed to the model.
func (s *Service) ModelContext(ctx context.Context, conversationID string) ([]encryption.Turn, error) {
	msgs, err := s.store.List(ctx, conversationID)
	if err != nil {
		return nil, fmt.Errorf("model context: %w", err)
	}
	return s.enc.ModelContext(ctx, msgs), nil
}

func (s *Service) Conversations(ctx context.Context) ([]string, error) {
	return s.store.Conversations(ctx)
}
