package session

import (
	"context"
	"errors"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"

	"github.com/manu-0990/motion/internal/types"
)

// DefaultQuality is the Manim quality preset sent with every approval.
// TODO: expose as a user setting once the settings surface exists.
const DefaultQuality = "-qm"

const (
	genericGenerateError = "Failed to get a response. Please try again."
	approveFallbackError = "Failed to generate video."
	approveGenericError  = "Failed to generate video. Please try again."
	rejectGenericError   = "Rejection failed, please try again later."

	rejectionGuidance = "You've rejected the code. Please provide more details about what changes you'd like to make."
)

// ErrReviewInFlight is returned when an approval or rejection is requested
// while another one has not settled yet.
var ErrReviewInFlight = errors.New("a code review is already in flight")

// Config carries the collaborators a Controller needs. Generator, Reviewer,
// History, Navigator and Notifier are required; Cache and Logger may be nil.
type Config struct {
	UserID    string
	Generator Generator
	Reviewer  Reviewer
	History   HistorySource
	Navigator Navigator
	Notifier  Notifier
	Cache     ConversationCache
	Logger    logrus.FieldLogger

	// Timeout bounds every backend call. Zero means DefaultTimeout.
	Timeout time.Duration

	// Now and NewID exist for tests; zero values mean time.Now and
	// uuid.NewString.
	Now   func() time.Time
	NewID func() string
}

// DefaultTimeout bounds backend calls. Rendering a scene can take a while,
// so this is deliberately generous.
const DefaultTimeout = 2 * time.Minute

// Controller owns one conversation session: the transcript, the canonical
// conversation id, and the in-flight flags. All state is mutated only by its
// own methods, under a single mutex, so partial updates are never observed.
// Backend calls run outside the lock and may interleave freely.
type Controller struct {
	mu             sync.Mutex
	conversationID string
	log            *transcript
	draft          string
	awaiting       bool
	reviewingID    string

	userID    string
	generator Generator
	reviewer  Reviewer
	history   HistorySource
	nav       Navigator
	notifier  Notifier
	cache     ConversationCache
	logger    logrus.FieldLogger
	timeout   time.Duration

	now   func() time.Time
	newID func() string
}

// New creates a session controller. The session starts unbound; call
// Bootstrap to pick up the navigation-supplied conversation and hydrate
// the transcript.
func New(cfg Config) *Controller {
	c := &Controller{
		userID:    cfg.UserID,
		log:       newTranscript(),
		generator: cfg.Generator,
		reviewer:  cfg.Reviewer,
		history:   cfg.History,
		nav:       cfg.Navigator,
		notifier:  cfg.Notifier,
		cache:     cfg.Cache,
		logger:    cfg.Logger,
		timeout:   cfg.Timeout,
		now:       cfg.Now,
		newID:     cfg.NewID,
	}
	if c.logger == nil {
		c.logger = logrus.StandardLogger()
	}
	if c.timeout <= 0 {
		c.timeout = DefaultTimeout
	}
	if c.now == nil {
		c.now = time.Now
	}
	if c.newID == nil {
		c.newID = uuid.NewString
	}
	return c
}

// Bootstrap reconciles the conversation id with the navigation environment
// and hydrates the transcript from stored history. Without an authenticated
// identity the session performs no work. A failed history fetch is logged
// and leaves the transcript unchanged.
func (c *Controller) Bootstrap(ctx context.Context) {
	if c.userID == "" {
		return
	}

	c.mu.Lock()
	if loc := c.nav.Location(); loc != "" && loc != c.conversationID {
		c.conversationID = loc
	}
	convID := c.conversationID
	c.mu.Unlock()

	if convID == "" {
		return
	}

	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	msgs, err := c.history.History(ctx, convID)
	if err != nil {
		c.logger.WithError(err).WithField("conversation_id", convID).Error("failed to load chat history")
		return
	}

	c.mu.Lock()
	c.log.replace(msgs)
	c.mu.Unlock()
}

// SendMessage runs one generation round trip: append the user message
// optimistically, call the backend, append the assistant reply, and bind a
// freshly created conversation. Empty or whitespace-only prompts are
// silently ignored.
func (c *Controller) SendMessage(ctx context.Context, userPrompt string) error {
	if c.userID == "" {
		return nil
	}
	userPrompt = strings.TrimSpace(userPrompt)
	if userPrompt == "" {
		return nil
	}

	userMsg := types.Message{
		ID:        c.newID(),
		Role:      types.RoleUser,
		Content:   userPrompt,
		Timestamp: c.now(),
	}

	c.mu.Lock()
	c.log.append(userMsg)
	c.draft = ""
	c.awaiting = true
	convID := c.conversationID
	c.mu.Unlock()

	defer func() {
		c.mu.Lock()
		c.awaiting = false
		c.mu.Unlock()
	}()

	callCtx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	res, err := c.generator.Generate(callCtx, convID, c.userID, userPrompt)
	if err != nil {
		c.logger.WithError(err).Error("generation request failed")
		c.notifier.Error(genericGenerateError)
		return err
	}

	if res.TitleGenerated && c.cache != nil {
		if err := c.cache.Invalidate(ctx); err != nil {
			c.logger.WithError(err).Warn("failed to invalidate conversation list cache")
		}
	}

	c.mu.Lock()
	c.log.append(res.Assistant)
	bound := false
	if convID == "" && c.conversationID == "" {
		c.conversationID = res.ConversationID
		bound = true
	}
	c.mu.Unlock()

	if bound && c.nav.Location() != res.ConversationID {
		c.nav.Navigate(res.ConversationID)
	}
	return nil
}

// Approve submits the code block of the given message for rendering. On a
// success verdict carrying a video id the message is marked approved and the
// backend's notice is surfaced; every other shape surfaces an error and
// leaves the message untouched.
func (c *Controller) Approve(ctx context.Context, messageID, codeContent string) error {
	if c.userID == "" {
		return nil
	}
	if !c.beginReview(messageID) {
		return ErrReviewInFlight
	}
	defer c.endReview()

	callCtx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	verdict, err := c.reviewer.Approve(callCtx, messageID, codeContent, DefaultQuality)
	if err != nil {
		c.logger.WithError(err).WithField("message_id", messageID).Error("approval / video generation failed")
		c.notifier.Error(approveGenericError)
		return err
	}

	if verdict.Status == StatusSuccess && verdict.VideoID != "" {
		c.notifier.Success(verdict.Message)
		c.mu.Lock()
		c.log.updateByID(messageID, func(m *types.Message) {
			m.IsApproved = true
			m.IsRejected = false
			m.VideoID = verdict.VideoID
		})
		c.mu.Unlock()
		return nil
	}

	msg := verdict.Message
	if msg == "" {
		msg = approveFallbackError
	}
	c.notifier.Error(msg)
	return nil
}

// Reject reports the code of the given message as rejected. The rejection
// flag is only set when the backend reports success; the guidance message
// inviting the user to clarify is appended once the call settles either way.
// A transport failure surfaces a generic error and appends nothing.
func (c *Controller) Reject(ctx context.Context, messageID string) error {
	if c.userID == "" {
		return nil
	}
	if !c.beginReview(messageID) {
		return ErrReviewInFlight
	}
	defer c.endReview()

	callCtx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	res, err := c.reviewer.Reject(callCtx, messageID)
	if err != nil {
		c.logger.WithError(err).WithField("message_id", messageID).Error("rejection failed")
		c.notifier.Error(rejectGenericError)
		return err
	}

	c.mu.Lock()
	if res.Success {
		c.log.updateByID(messageID, func(m *types.Message) {
			m.IsRejected = true
		})
	}
	c.mu.Unlock()
	if !res.Success {
		c.notifier.Error(res.Message)
	}

	now := c.now()
	c.mu.Lock()
	c.log.append(types.Message{
		ID:        strconv.FormatInt(now.UnixMilli(), 10),
		Role:      types.RoleSystem,
		Content:   rejectionGuidance,
		Timestamp: now,
	})
	c.mu.Unlock()
	return nil
}

// beginReview claims the shared loading slot for messageID. A single value
// covers both approve and reject across all messages, a deliberate
// simplification rather than a per-message lock.
func (c *Controller) beginReview(messageID string) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.reviewingID != "" {
		return false
	}
	c.reviewingID = messageID
	return true
}

func (c *Controller) endReview() {
	c.mu.Lock()
	c.reviewingID = ""
	c.mu.Unlock()
}

// Messages returns the transcript in append order.
func (c *Controller) Messages() []types.Message {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.log.snapshot()
}

// ConversationID returns the bound conversation id, or "" while unbound.
func (c *Controller) ConversationID() string {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.conversationID
}

// AwaitingResponse reports whether a generation round trip is in flight.
func (c *Controller) AwaitingResponse() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.awaiting
}

// ReviewingID returns the id of the message whose approval or rejection is
// in flight, or "" when none is.
func (c *Controller) ReviewingID() string {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.reviewingID
}

// SetDraft stores the pending input buffer; SendMessage clears it.
func (c *Controller) SetDraft(text string) {
	c.mu.Lock()
	c.draft = text
	c.mu.Unlock()
}

// Draft returns the pending input buffer.
func (c *Controller) Draft() string {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.draft
}
