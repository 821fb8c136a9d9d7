package conversation

import (
	"time"

	"github.com/thebluefowl/parley/internal/envelope"
)

type Role string

const (
	RoleUser      Role = "user"
	RoleAssistant Role = "assistant"
	RoleSystem    Role = "system"
)

func (r Role) Valid() bool {
	switch r {
	case RoleUser, RoleAssistant, RoleSystem:
		return true
	}
	return false
}

// Message is one stored chat turn. Content is exactly what was persisted: plaintext or an
// envelope. Sender names the persona for assistant turns in multi-persona spaces.
type Message struct {
	ID             string           `json:"id"`
	ConversationID string           `json:"conversation_id"`
	Role           Role             `json:"role"`
	Sender         string           `json:"sender,omitempty"`
	Content        envelope.Content `json:"content"`
	CreatedAt      time.Time        `json:"created_at"`
}
