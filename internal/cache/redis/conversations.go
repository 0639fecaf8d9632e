package redis

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/manu-0990/motion/internal/types"
)

const (
	// conversationsKeyPrefix namespaces per-user conversation list entries.
	conversationsKeyPrefix = "motion:conversations:"
	// conversationsTTL bounds staleness if an invalidation is ever missed.
	conversationsTTL = 10 * time.Minute
)

// ConversationList is the cached shape of a user's conversation list.
type ConversationList struct {
	Conversations []types.Conversation `json:"conversations"`
	TotalCount    int                  `json:"total_count"`
}

// ConversationListCache caches per-user conversation lists. The chat service
// invalidates an entry whenever a title is newly generated so list views
// pick it up on their next read.
type ConversationListCache struct {
	client *Client
}

// NewConversationListCache creates a cache over an existing redis client.
func NewConversationListCache(client *Client) *ConversationListCache {
	return &ConversationListCache{client: client}
}

func conversationsKey(userID string) string {
	return conversationsKeyPrefix + userID
}

// Get returns the cached list for a user, or nil on a miss.
func (c *ConversationListCache) Get(ctx context.Context, userID string) (*ConversationList, error) {
	raw, err := c.client.Get(ctx, conversationsKey(userID))
	if err != nil {
		if errors.Is(err, Nil) {
			return nil, nil
		}
		return nil, fmt.Errorf("get conversation list: %w", err)
	}

	var list ConversationList
	if err := json.Unmarshal([]byte(raw), &list); err != nil {
		return nil, fmt.Errorf("decode conversation list: %w", err)
	}
	return &list, nil
}

// Put stores the list for a user.
func (c *ConversationListCache) Put(ctx context.Context, userID string, list *ConversationList) error {
	raw, err := json.Marshal(list)
	if err != nil {
		return fmt.Errorf("encode conversation list: %w", err)
	}
	if err := c.client.Set(ctx, conversationsKey(userID), string(raw), conversationsTTL); err != nil {
		return fmt.Errorf("store conversation list: %w", err)
	}
	return nil
}

// Invalidate drops the cached list for a user.
func (c *ConversationListCache) Invalidate(ctx context.Context, userID string) error {
	if err := c.client.Delete(ctx, conversationsKey(userID)); err != nil {
		return fmt.Errorf("invalidate conversation list: %w", err)
	}
	return nil
}
