package api

import (
	"net/http"

	"github.com/labstack/echo/v4"
)

// defaultQuality is the render preset used when the client sends none.
const defaultQuality = "-qm"

// ApproveRequest is the request body for POST /api/review/:id/approve.
type ApproveRequest struct {
	Code    string `json:"code"`
	Quality string `json:"quality"`
}

// Approve handles POST /api/review/:id/approve — render the approved code
// and attach the resulting video to the message.
func (s *Server) Approve(c echo.Context) error {
	messageID := c.Param("id")

	var req ApproveRequest
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, ErrorResponse{Error: "invalid request body"})
	}
	if req.Quality == "" {
		req.Quality = defaultQuality
	}

	outcome, err := s.reviewService.Approve(c.Request().Context(), messageID, req.Code, req.Quality)
	if err != nil {
		s.logger.WithError(err).Error("failed to approve message")
		return c.JSON(http.StatusInternalServerError, ErrorResponse{Error: "failed to approve message"})
	}

	return c.JSON(http.StatusOK, outcome)
}

// Reject handles POST /api/review/:id/reject.
func (s *Server) Reject(c echo.Context) error {
	messageID := c.Param("id")

	outcome, err := s.reviewService.Reject(c.Request().Context(), messageID)
	if err != nil {
		s.logger.WithError(err).Error("failed to reject message")
		return c.JSON(http.StatusInternalServerError, ErrorResponse{Error: "failed to reject message"})
	}

	return c.JSON(http.StatusOK, outcome)
}
