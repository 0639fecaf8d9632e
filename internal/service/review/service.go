package review

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/sirupsen/logrus"

	"github.com/manu-0990/motion/internal/render"
	"github.com/manu-0990/motion/internal/storage/postgres"
	"github.com/manu-0990/motion/internal/types"
)

// StatusSuccess and StatusError are the approve outcome statuses.
const (
	StatusSuccess = "success"
	StatusError   = "error"
)

// VideoRenderer submits code to the render farm.
type VideoRenderer interface {
	Render(ctx context.Context, req *render.RenderRequest) (string, error)
}

// MessageStore is the message persistence surface the workflow needs.
type MessageStore interface {
	GetByID(ctx context.Context, id string) (*types.Message, error)
	SetApproved(ctx context.Context, id, videoID string) error
	SetRejected(ctx context.Context, id string) error
}

// Service settles approval workflow transitions: approval renders the code
// and marks the message, rejection just marks it.
type Service struct {
	renderer VideoRenderer
	msgs     MessageStore
	logger   *logrus.Logger
}

// NewService creates a review service.
func NewService(renderer VideoRenderer, msgs MessageStore, logger *logrus.Logger) *Service {
	return &Service{renderer: renderer, msgs: msgs, logger: logger}
}

// ApproveOutcome is the business result of an approval. Render-farm and
// lookup failures are reported here, not as errors; only transport and
// storage faults surface as errors.
type ApproveOutcome struct {
	Status  string `json:"status"`
	Message string `json:"message"`
	VideoID string `json:"video_id,omitempty"`
}

// RejectOutcome is the business result of a rejection.
type RejectOutcome struct {
	Success bool   `json:"success"`
	Message string `json:"message"`
}

// Approve renders the code and, on success, marks the message approved with
// the returned video id.
func (s *Service) Approve(ctx context.Context, messageID, code, quality string) (*ApproveOutcome, error) {
	if strings.TrimSpace(code) == "" {
		return &ApproveOutcome{Status: StatusError, Message: "No code to render."}, nil
	}

	msg, err := s.msgs.GetByID(ctx, messageID)
	if err != nil {
		if errors.Is(err, postgres.ErrNotFound) {
			return &ApproveOutcome{Status: StatusError, Message: "Message not found."}, nil
		}
		return nil, fmt.Errorf("get message: %w", err)
	}
	if msg.Role != types.RoleAssistant {
		return &ApproveOutcome{Status: StatusError, Message: "Only assistant code can be approved."}, nil
	}

	videoID, err := s.renderer.Render(ctx, &render.RenderRequest{
		MessageID: messageID,
		Code:      code,
		Quality:   quality,
	})
	if err != nil {
		var renderErr *render.RenderError
		if errors.As(err, &renderErr) {
			s.logger.WithField("message_id", messageID).WithError(err).Warn("render farm rejected code")
			return &ApproveOutcome{Status: StatusError, Message: renderErr.Message}, nil
		}
		return nil, fmt.Errorf("render: %w", err)
	}

	if err := s.msgs.SetApproved(ctx, messageID, videoID); err != nil {
		return nil, fmt.Errorf("mark approved: %w", err)
	}

	s.logger.WithFields(logrus.Fields{
		"message_id": messageID,
		"video_id":   videoID,
	}).Info("code approved, video rendered")

	return &ApproveOutcome{
		Status:  StatusSuccess,
		Message: "Video generated successfully.",
		VideoID: videoID,
	}, nil
}

// Reject marks the message rejected.
func (s *Service) Reject(ctx context.Context, messageID string) (*RejectOutcome, error) {
	if err := s.msgs.SetRejected(ctx, messageID); err != nil {
		if errors.Is(err, postgres.ErrNotFound) {
			return &RejectOutcome{Success: false, Message: "Message not found."}, nil
		}
		return nil, fmt.Errorf("mark rejected: %w", err)
	}

	s.logger.WithField("message_id", messageID).Info("code rejected")
	return &RejectOutcome{Success: true, Message: "Code rejected."}, nil
}
