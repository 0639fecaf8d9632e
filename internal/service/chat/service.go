package chat

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/sirupsen/logrus"

	"github.com/manu-0990/motion/internal/ai/anthropic"
	"github.com/manu-0990/motion/internal/types"
)

// maxTitleLength caps generated conversation titles.
const maxTitleLength = 60

// TextCompleter is the LLM surface the service needs.
type TextCompleter interface {
	SendMessage(ctx context.Context, req *anthropic.Request) (*anthropic.Response, error)
}

// ConversationStore is the conversation persistence surface.
type ConversationStore interface {
	Create(ctx context.Context, userID string) (*types.Conversation, error)
	GetByID(ctx context.Context, id, userID string) (*types.Conversation, error)
	UpdateTitle(ctx context.Context, id, title string) error
}

// MessageStore is the message persistence surface.
type MessageStore interface {
	Create(ctx context.Context, msg *types.Message) error
	GetByConversationID(ctx context.Context, convID string) ([]types.Message, error)
}

// ListInvalidator drops a user's cached conversation list.
type ListInvalidator interface {
	Invalidate(ctx context.Context, userID string) error
}

// Service produces assistant responses: it persists the user prompt, calls
// the LLM with the conversation history, persists the reply, and titles
// brand-new conversations.
type Service struct {
	llm        TextCompleter
	convs      ConversationStore
	msgs       MessageStore
	cache      ListInvalidator
	logger     *logrus.Logger
	titleModel string
}

// NewService creates a chat service. cache may be nil.
func NewService(llm TextCompleter, convs ConversationStore, msgs MessageStore, cache ListInvalidator, logger *logrus.Logger, titleModel string) *Service {
	return &Service{
		llm:        llm,
		convs:      convs,
		msgs:       msgs,
		cache:      cache,
		logger:     logger,
		titleModel: titleModel,
	}
}

// Result is the outcome of one generation round trip. ConversationID echoes
// the request's id, or carries the freshly minted one when the request's id
// was empty.
type Result struct {
	Message        types.Message `json:"message"`
	ConversationID string        `json:"conversation_id"`
	TitleGenerated bool          `json:"title_generated"`
}

// Respond handles one user prompt. An empty conversationID creates a new
// conversation owned by userID.
func (s *Service) Respond(ctx context.Context, conversationID, userID, prompt string) (*Result, error) {
	var conv *types.Conversation
	var err error

	if conversationID == "" {
		conv, err = s.convs.Create(ctx, userID)
		if err != nil {
			return nil, fmt.Errorf("create conversation: %w", err)
		}
	} else {
		conv, err = s.convs.GetByID(ctx, conversationID, userID)
		if err != nil {
			return nil, err
		}
	}

	userMsg := &types.Message{
		ConversationID: conv.ID,
		Role:           types.RoleUser,
		Content:        prompt,
	}
	if err := s.msgs.Create(ctx, userMsg); err != nil {
		return nil, fmt.Errorf("store user message: %w", err)
	}

	history, err := s.msgs.GetByConversationID(ctx, conv.ID)
	if err != nil {
		return nil, fmt.Errorf("get conversation history: %w", err)
	}

	resp, err := s.llm.SendMessage(ctx, &anthropic.Request{
		System:   SystemPrompt,
		Messages: anthropicMessages(history),
	})
	if err != nil {
		return nil, fmt.Errorf("call anthropic: %w", err)
	}

	text := resp.Text()
	if text == "" {
		return nil, errors.New("empty response from anthropic")
	}

	assistantMsg := &types.Message{
		ConversationID: conv.ID,
		Role:           types.RoleAssistant,
		Content:        text,
	}
	if err := s.msgs.Create(ctx, assistantMsg); err != nil {
		return nil, fmt.Errorf("store assistant message: %w", err)
	}

	titleGenerated := false
	if conv.Title == nil {
		if err := s.generateTitle(ctx, conv.ID, prompt); err != nil {
			s.logger.WithError(err).WithField("conversation_id", conv.ID).Warn("title generation failed")
		} else {
			titleGenerated = true
			if s.cache != nil {
				if err := s.cache.Invalidate(ctx, userID); err != nil {
					s.logger.WithError(err).Warn("failed to invalidate conversation list cache")
				}
			}
		}
	}

	return &Result{
		Message:        *assistantMsg,
		ConversationID: conv.ID,
		TitleGenerated: titleGenerated,
	}, nil
}

// generateTitle asks the cheap model for a short title and stores it.
func (s *Service) generateTitle(ctx context.Context, convID, prompt string) error {
	resp, err := s.llm.SendMessage(ctx, &anthropic.Request{
		Model:     s.titleModel,
		MaxTokens: 64,
		Messages: []anthropic.Message{
			{Role: "user", Content: TitlePrompt + prompt},
		},
	})
	if err != nil {
		return fmt.Errorf("call anthropic: %w", err)
	}

	title := sanitizeTitle(resp.Text())
	if title == "" {
		return errors.New("empty title from anthropic")
	}

	if err := s.convs.UpdateTitle(ctx, convID, title); err != nil {
		return fmt.Errorf("store title: %w", err)
	}

	s.logger.WithFields(logrus.Fields{
		"conversation_id": convID,
		"title":           title,
	}).Info("conversation title generated")
	return nil
}

func sanitizeTitle(raw string) string {
	title := strings.TrimSpace(raw)
	if i := strings.IndexByte(title, '\n'); i >= 0 {
		title = title[:i]
	}
	title = strings.Trim(title, `"'`)
	if len(title) > maxTitleLength {
		title = strings.TrimSpace(title[:maxTitleLength])
	}
	return title
}

// anthropicMessages converts stored history to Anthropic message format,
// skipping system notices.
func anthropicMessages(history []types.Message) []anthropic.Message {
	var msgs []anthropic.Message
	for _, msg := range history {
		if msg.Role == types.RoleSystem {
			continue
		}
		msgs = append(msgs, anthropic.Message{
			Role:    string(msg.Role),
			Content: msg.Content,
		})
	}
	return msgs
}
