package api

import (
	"errors"
	"net/http"
	"strings"

	"github.com/labstack/echo/v4"

	"github.com/manu-0990/motion/internal/storage/postgres"
	"github.com/manu-0990/motion/internal/types"
)

// SendMessageRequest is the request body for POST /api/chat.
type SendMessageRequest struct {
	ConversationID string `json:"conversation_id"`
	Prompt         string `json:"prompt"`
}

// GetHistory handles GET /api/chat/:id — the stored transcript of a
// conversation the caller owns.
func (s *Server) GetHistory(c echo.Context) error {
	convID := c.Param("id")
	userID := GetUserID(c)

	if _, err := s.convRepo.GetByID(c.Request().Context(), convID, userID); err != nil {
		if errors.Is(err, postgres.ErrNotFound) {
			return c.JSON(http.StatusNotFound, ErrorResponse{Error: "conversation not found"})
		}
		s.logger.WithError(err).Error("failed to get conversation")
		return c.JSON(http.StatusInternalServerError, ErrorResponse{Error: "failed to get conversation"})
	}

	msgs, err := s.msgRepo.GetByConversationID(c.Request().Context(), convID)
	if err != nil {
		s.logger.WithError(err).Error("failed to get chat history")
		return c.JSON(http.StatusInternalServerError, ErrorResponse{Error: "failed to get chat history"})
	}

	if msgs == nil {
		msgs = []types.Message{}
	}
	return c.JSON(http.StatusOK, msgs)
}

// SendMessage handles POST /api/chat — one generation round trip. An empty
// conversation_id creates a new conversation for the caller.
func (s *Server) SendMessage(c echo.Context) error {
	var req SendMessageRequest
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, ErrorResponse{Error: "invalid request body"})
	}

	req.Prompt = strings.TrimSpace(req.Prompt)
	if req.Prompt == "" {
		return c.JSON(http.StatusBadRequest, ErrorResponse{Error: "prompt is required"})
	}

	userID := GetUserID(c)

	result, err := s.chatService.Respond(c.Request().Context(), req.ConversationID, userID, req.Prompt)
	if err != nil {
		if errors.Is(err, postgres.ErrNotFound) {
			return c.JSON(http.StatusNotFound, ErrorResponse{Error: "conversation not found"})
		}
		s.logger.WithError(err).Error("failed to process message")
		return c.JSON(http.StatusInternalServerError, ErrorResponse{Error: "failed to process message"})
	}

	return c.JSON(http.StatusOK, result)
}
