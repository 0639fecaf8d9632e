package api

import (
	"context"

	"github.com/sirupsen/logrus"

	"github.com/manu-0990/motion/internal/cache/redis"
	"github.com/manu-0990/motion/internal/service"
	"github.com/manu-0990/motion/internal/service/chat"
	"github.com/manu-0990/motion/internal/service/review"
	"github.com/manu-0990/motion/internal/types"
)

// ChatService produces assistant responses.
type ChatService interface {
	Respond(ctx context.Context, conversationID, userID, prompt string) (*chat.Result, error)
}

// ReviewService settles approvals and rejections.
type ReviewService interface {
	Approve(ctx context.Context, messageID, code, quality string) (*review.ApproveOutcome, error)
	Reject(ctx context.Context, messageID string) (*review.RejectOutcome, error)
}

// ConversationStore is the conversation surface the handlers need.
type ConversationStore interface {
	GetByID(ctx context.Context, id, userID string) (*types.Conversation, error)
	List(ctx context.Context, userID string, skip, take int) ([]types.Conversation, int, error)
	Archive(ctx context.Context, id, userID string) error
}

// MessageStore is the message surface the handlers need.
type MessageStore interface {
	GetByConversationID(ctx context.Context, convID string) ([]types.Message, error)
}

// ListCache caches per-user conversation lists.
type ListCache interface {
	Get(ctx context.Context, userID string) (*redis.ConversationList, error)
	Put(ctx context.Context, userID string, list *redis.ConversationList) error
	Invalidate(ctx context.Context, userID string) error
}

// Server holds API dependencies.
type Server struct {
	authService   *service.AuthService
	chatService   ChatService
	reviewService ReviewService
	convRepo      ConversationStore
	msgRepo       MessageStore
	listCache     ListCache
	logger        *logrus.Logger
}

// NewServer creates a new API server. listCache may be nil.
func NewServer(
	authService *service.AuthService,
	chatService ChatService,
	reviewService ReviewService,
	convRepo ConversationStore,
	msgRepo MessageStore,
	listCache ListCache,
	logger *logrus.Logger,
) *Server {
	return &Server{
		authService:   authService,
		chatService:   chatService,
		reviewService: reviewService,
		convRepo:      convRepo,
		msgRepo:       msgRepo,
		listCache:     listCache,
		logger:        logger,
	}
}
