package types

import (
	"time"
)

// MessageRole represents the role of a message sender.
type MessageRole string

const (
	RoleUser      MessageRole = "user"
	RoleAssistant MessageRole = "assistant"
	RoleSystem    MessageRole = "system"
)

// Conversation represents a chat conversation.
type Conversation struct {
	ID         string     `json:"id"`
	UserID     string     `json:"user_id"`
	Title      *string    `json:"title"`
	CreatedAt  time.Time  `json:"created_at"`
	UpdatedAt  time.Time  `json:"updated_at"`
	ArchivedAt *time.Time `json:"archived_at,omitempty"`
}

// Message represents a single message in a conversation transcript.
//
// IDs are opaque strings: UUIDs minted by the client for user messages,
// database-generated for assistant messages, and timestamp-derived for
// locally created system notices that never reach the server.
type Message struct {
	ID             string      `json:"id"`
	ConversationID string      `json:"conversation_id,omitempty"`
	Role           MessageRole `json:"role"`
	Content        string      `json:"content"`
	Timestamp      time.Time   `json:"timestamp"`
	IsApproved     bool        `json:"is_approved,omitempty"`
	IsRejected     bool        `json:"is_rejected,omitempty"`
	VideoID        string      `json:"video_id,omitempty"`
}
