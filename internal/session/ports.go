package session

import (
	"context"

	"github.com/manu-0990/motion/internal/types"
)

// StatusSuccess is the status value a ReviewVerdict must carry, together
// with a video id, for an approval to count as successful.
const StatusSuccess = "success"

// GenerateResult is what the generation backend returns for one prompt.
type GenerateResult struct {
	Assistant      types.Message `json:"message"`
	ConversationID string        `json:"conversation_id"`
	TitleGenerated bool          `json:"title_generated"`
}

// ReviewVerdict is the outcome of an approve-and-render request.
type ReviewVerdict struct {
	Status  string `json:"status"`
	Message string `json:"message"`
	VideoID string `json:"video_id,omitempty"`
}

// RejectResult is the outcome of a rejection request.
type RejectResult struct {
	Success bool   `json:"success"`
	Message string `json:"message"`
}

// Generator produces an assistant response for a user prompt. An empty
// conversation id asks the backend to create a new conversation; the
// returned id is then freshly minted, otherwise it echoes the input.
type Generator interface {
	Generate(ctx context.Context, conversationID, userID, prompt string) (*GenerateResult, error)
}

// Reviewer settles the approval workflow for a single assistant message.
type Reviewer interface {
	Approve(ctx context.Context, messageID, code, quality string) (*ReviewVerdict, error)
	Reject(ctx context.Context, messageID string) (*RejectResult, error)
}

// HistorySource fetches the stored transcript of a conversation. It must be
// idempotent and side-effect free.
type HistorySource interface {
	History(ctx context.Context, conversationID string) ([]types.Message, error)
}

// Navigator is the surrounding environment's notion of the displayed
// location. Location returns the conversation id the environment currently
// shows ("" for none); Navigate asks it to show another one.
type Navigator interface {
	Location() string
	Navigate(conversationID string)
}

// Notifier surfaces transient user-visible notices.
type Notifier interface {
	Success(message string)
	Error(message string)
}

// ConversationCache invalidates any externally cached conversation list,
// so that list views refresh after a title is newly generated.
type ConversationCache interface {
	Invalidate(ctx context.Context) error
}
