package api

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/labstack/echo/v4"

	"github.com/manu-0990/motion/internal/cache/redis"
	"github.com/manu-0990/motion/internal/storage/postgres"
	"github.com/manu-0990/motion/internal/types"
)

const defaultListTake = 20

// ListConversationsResponse is the response for listing conversations.
type ListConversationsResponse struct {
	Conversations []types.Conversation `json:"conversations"`
	TotalCount    int                  `json:"total_count"`
}

// ListConversations handles GET /api/conversations. The default first page
// is served through the redis cache; explicit pagination bypasses it.
func (s *Server) ListConversations(c echo.Context) error {
	userID := GetUserID(c)

	skip, _ := strconv.Atoi(c.QueryParam("skip"))
	take, _ := strconv.Atoi(c.QueryParam("take"))
	if take <= 0 {
		take = defaultListTake
	}
	if take > 100 {
		take = 100
	}
	if skip < 0 {
		skip = 0
	}

	cacheable := s.listCache != nil && skip == 0 && take == defaultListTake
	if cacheable {
		cached, err := s.listCache.Get(c.Request().Context(), userID)
		if err != nil {
			s.logger.WithError(err).Warn("conversation list cache read failed")
		} else if cached != nil {
			return c.JSON(http.StatusOK, ListConversationsResponse(*cached))
		}
	}

	conversations, totalCount, err := s.convRepo.List(c.Request().Context(), userID, skip, take)
	if err != nil {
		s.logger.WithError(err).Error("failed to list conversations")
		return c.JSON(http.StatusInternalServerError, ErrorResponse{Error: "failed to list conversations"})
	}

	if conversations == nil {
		conversations = []types.Conversation{}
	}

	resp := ListConversationsResponse{
		Conversations: conversations,
		TotalCount:    totalCount,
	}

	if cacheable {
		list := redis.ConversationList(resp)
		if err := s.listCache.Put(c.Request().Context(), userID, &list); err != nil {
			s.logger.WithError(err).Warn("conversation list cache write failed")
		}
	}

	return c.JSON(http.StatusOK, resp)
}

// DeleteConversation archives a conversation (soft delete).
func (s *Server) DeleteConversation(c echo.Context) error {
	convID := c.Param("id")
	userID := GetUserID(c)

	if err := s.convRepo.Archive(c.Request().Context(), convID, userID); err != nil {
		if errors.Is(err, postgres.ErrNotFound) {
			return c.JSON(http.StatusNotFound, ErrorResponse{Error: "conversation not found"})
		}
		s.logger.WithError(err).Error("failed to delete conversation")
		return c.JSON(http.StatusInternalServerError, ErrorResponse{Error: "failed to delete conversation"})
	}

	if s.listCache != nil {
		if err := s.listCache.Invalidate(c.Request().Context(), userID); err != nil {
			s.logger.WithError(err).Warn("conversation list cache invalidation failed")
		}
	}

	return c.JSON(http.StatusOK, SuccessResponse{Success: true})
}
