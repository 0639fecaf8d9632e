package session_test

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/manu-0990/motion/internal/session"
	"github.com/manu-0990/motion/internal/types"
)

type fakeGenerator struct {
	mu      sync.Mutex
	result  *session.GenerateResult
	err     error
	stall   bool // never answer, wait for ctx cancellation
	calls   int
	gotConv string
	gotUser string
	gotText string
}

func (g *fakeGenerator) Generate(ctx context.Context, conversationID, userID, prompt string) (*session.GenerateResult, error) {
	g.mu.Lock()
	g.calls++
	g.gotConv = conversationID
	g.gotUser = userID
	g.gotText = prompt
	g.mu.Unlock()
	if g.stall {
		<-ctx.Done()
		return nil, ctx.Err()
	}
	if g.err != nil {
		return nil, g.err
	}
	return g.result, nil
}

type fakeReviewer struct {
	mu          sync.Mutex
	verdict     *session.ReviewVerdict
	approveErr  error
	rejectRes   *session.RejectResult
	rejectErr   error
	stall       bool // never answer, wait for ctx cancellation
	gotQuality  string
	gotCode     string
	started     chan struct{} // closed when a call begins, if set
	release     chan struct{} // blocks the call until closed, if set
	approvCalls int
	rejectCalls int
}

func (r *fakeReviewer) Approve(ctx context.Context, messageID, code, quality string) (*session.ReviewVerdict, error) {
	r.mu.Lock()
	r.approvCalls++
	r.gotCode = code
	r.gotQuality = quality
	started, release := r.started, r.release
	r.mu.Unlock()
	if started != nil {
		close(started)
	}
	if release != nil {
		<-release
	}
	if r.stall {
		<-ctx.Done()
		return nil, ctx.Err()
	}
	if r.approveErr != nil {
		return nil, r.approveErr
	}
	return r.verdict, nil
}

func (r *fakeReviewer) Reject(ctx context.Context, messageID string) (*session.RejectResult, error) {
	r.mu.Lock()
	r.rejectCalls++
	r.mu.Unlock()
	if r.stall {
		<-ctx.Done()
		return nil, ctx.Err()
	}
	if r.rejectErr != nil {
		return nil, r.rejectErr
	}
	return r.rejectRes, nil
}

type fakeHistory struct {
	msgs  []types.Message
	err   error
	calls int
}

func (h *fakeHistory) History(_ context.Context, conversationID string) ([]types.Message, error) {
	h.calls++
	if h.err != nil {
		return nil, h.err
	}
	return h.msgs, nil
}

type fakeNav struct {
	location  string
	navigated []string
}

func (n *fakeNav) Location() string { return n.location }

func (n *fakeNav) Navigate(conversationID string) {
	n.location = conversationID
	n.navigated = append(n.navigated, conversationID)
}

type fakeNotifier struct {
	successes []string
	errors    []string
}

func (n *fakeNotifier) Success(message string) { n.successes = append(n.successes, message) }
func (n *fakeNotifier) Error(message string)   { n.errors = append(n.errors, message) }

type fakeCache struct {
	invalidations int
}

func (c *fakeCache) Invalidate(context.Context) error {
	c.invalidations++
	return nil
}

type deps struct {
	gen      *fakeGenerator
	reviewer *fakeReviewer
	history  *fakeHistory
	nav      *fakeNav
	notifier *fakeNotifier
	cache    *fakeCache
	timeout  time.Duration
}

func newController(t *testing.T, userID string, mod func(*deps)) (*session.Controller, *deps) {
	t.Helper()
	d := &deps{
		gen:      &fakeGenerator{},
		reviewer: &fakeReviewer{},
		history:  &fakeHistory{},
		nav:      &fakeNav{},
		notifier: &fakeNotifier{},
		cache:    &fakeCache{},
	}
	if mod != nil {
		mod(d)
	}
	seq := 0
	ctrl := session.New(session.Config{
		UserID:    userID,
		Generator: d.gen,
		Reviewer:  d.reviewer,
		History:   d.history,
		Navigator: d.nav,
		Notifier:  d.notifier,
		Cache:     d.cache,
		Timeout:   d.timeout,
		Now:       func() time.Time { return time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC) },
		NewID: func() string {
			seq++
			return map[int]string{1: "id-1", 2: "id-2", 3: "id-3"}[seq]
		},
	})
	return ctrl, d
}

func assistant(id, content string) types.Message {
	return types.Message{ID: id, Role: types.RoleAssistant, Content: content}
}

func TestSendMessageNewConversation(t *testing.T) {
	ctrl, d := newController(t, "u1", func(d *deps) {
		d.gen.result = &session.GenerateResult{
			Assistant:      assistant("a1", "Here is the scene."),
			ConversationID: "c1",
			TitleGenerated: true,
		}
	})

	require.NoError(t, ctrl.SendMessage(context.Background(), "explain derivatives"))

	msgs := ctrl.Messages()
	require.Len(t, msgs, 2)
	assert.Equal(t, types.RoleUser, msgs[0].Role)
	assert.Equal(t, "explain derivatives", msgs[0].Content)
	assert.Equal(t, "id-1", msgs[0].ID)
	assert.Equal(t, "a1", msgs[1].ID)

	assert.Equal(t, "c1", ctrl.ConversationID())
	assert.Equal(t, []string{"c1"}, d.nav.navigated)
	assert.Equal(t, 1, d.cache.invalidations)
	assert.Equal(t, "", d.gen.gotConv)
	assert.Equal(t, "u1", d.gen.gotUser)
	assert.False(t, ctrl.AwaitingResponse())
}

func TestSendMessageTrimsPrompt(t *testing.T) {
	ctrl, d := newController(t, "u1", func(d *deps) {
		d.gen.result = &session.GenerateResult{Assistant: assistant("a1", "ok"), ConversationID: "c1"}
	})

	require.NoError(t, ctrl.SendMessage(context.Background(), "  hello  "))
	assert.Equal(t, "hello", d.gen.gotText)
	assert.Equal(t, "hello", ctrl.Messages()[0].Content)
}

func TestSendMessageEmptyPromptIsNoOp(t *testing.T) {
	ctrl, d := newController(t, "u1", nil)

	require.NoError(t, ctrl.SendMessage(context.Background(), "   \n\t "))
	assert.Empty(t, ctrl.Messages())
	assert.Zero(t, d.gen.calls)
}

func TestSendMessageExistingConversationDoesNotNavigate(t *testing.T) {
	ctrl, d := newController(t, "u1", func(d *deps) {
		d.nav.location = "c1"
		d.gen.result = &session.GenerateResult{Assistant: assistant("a1", "ok"), ConversationID: "c1"}
	})
	ctrl.Bootstrap(context.Background())
	require.Equal(t, "c1", ctrl.ConversationID())

	require.NoError(t, ctrl.SendMessage(context.Background(), "more"))
	assert.Empty(t, d.nav.navigated)
	assert.Equal(t, "c1", d.gen.gotConv)
	assert.Zero(t, d.cache.invalidations)
}

func TestSendMessageGenerationFailure(t *testing.T) {
	ctrl, d := newController(t, "u1", func(d *deps) {
		d.gen.err = errors.New("backend down")
	})

	err := ctrl.SendMessage(context.Background(), "explain limits")
	require.Error(t, err)

	// Optimistic user message stays; no assistant append, awaiting cleared.
	msgs := ctrl.Messages()
	require.Len(t, msgs, 1)
	assert.Equal(t, types.RoleUser, msgs[0].Role)
	assert.False(t, ctrl.AwaitingResponse())
	assert.Len(t, d.notifier.errors, 1)
	assert.Equal(t, "", ctrl.ConversationID())
}

func TestSendMessageTimesOutStalledBackend(t *testing.T) {
	ctrl, d := newController(t, "u1", func(d *deps) {
		d.timeout = 10 * time.Millisecond
		d.gen.stall = true
	})

	err := ctrl.SendMessage(context.Background(), "explain limits")
	require.ErrorIs(t, err, context.DeadlineExceeded)

	require.Len(t, ctrl.Messages(), 1) // optimistic user message stays
	assert.False(t, ctrl.AwaitingResponse())
	assert.Len(t, d.notifier.errors, 1)
}

func TestSendMessageClearsDraft(t *testing.T) {
	ctrl, _ := newController(t, "u1", func(d *deps) {
		d.gen.result = &session.GenerateResult{Assistant: assistant("a1", "ok"), ConversationID: "c1"}
	})
	ctrl.SetDraft("explain derivatives")
	require.NoError(t, ctrl.SendMessage(context.Background(), ctrl.Draft()))
	assert.Empty(t, ctrl.Draft())
}

func TestSendMessageWithoutIdentityIsNoOp(t *testing.T) {
	ctrl, d := newController(t, "", nil)
	require.NoError(t, ctrl.SendMessage(context.Background(), "hello"))
	assert.Empty(t, ctrl.Messages())
	assert.Zero(t, d.gen.calls)
}

func TestBootstrapHydratesTranscript(t *testing.T) {
	ctrl, d := newController(t, "u1", func(d *deps) {
		d.nav.location = "c1"
		d.history.msgs = []types.Message{
			{ID: "m1", Role: types.RoleUser, Content: "hi"},
			{ID: "m2", Role: types.RoleAssistant, Content: "hello"},
		}
	})

	ctrl.Bootstrap(context.Background())

	assert.Equal(t, "c1", ctrl.ConversationID())
	require.Len(t, ctrl.Messages(), 2)
	assert.Equal(t, 1, d.history.calls)
}

func TestBootstrapHistoryFailureLeavesTranscriptUnchanged(t *testing.T) {
	ctrl, _ := newController(t, "u1", func(d *deps) {
		d.nav.location = "c1"
		d.history.err = errors.New("unreachable")
	})

	ctrl.Bootstrap(context.Background())
	assert.Empty(t, ctrl.Messages())
}

func TestBootstrapUnboundWithoutLocation(t *testing.T) {
	ctrl, d := newController(t, "u1", nil)
	ctrl.Bootstrap(context.Background())
	assert.Equal(t, "", ctrl.ConversationID())
	assert.Zero(t, d.history.calls)
}

func TestBootstrapWithoutIdentityIsNoOp(t *testing.T) {
	ctrl, d := newController(t, "", func(d *deps) {
		d.nav.location = "c1"
	})
	ctrl.Bootstrap(context.Background())
	assert.Equal(t, "", ctrl.ConversationID())
	assert.Zero(t, d.history.calls)
}

func TestBindingIsMonotonic(t *testing.T) {
	ctrl, d := newController(t, "u1", func(d *deps) {
		d.gen.result = &session.GenerateResult{Assistant: assistant("a1", "ok"), ConversationID: "c1"}
	})
	require.NoError(t, ctrl.SendMessage(context.Background(), "first"))
	require.Equal(t, "c1", ctrl.ConversationID())

	// A later completion must not silently overwrite the bound id.
	d.gen.result = &session.GenerateResult{Assistant: assistant("a2", "ok"), ConversationID: "c2"}
	require.NoError(t, ctrl.SendMessage(context.Background(), "second"))
	assert.Equal(t, "c1", ctrl.ConversationID())
	assert.Equal(t, []string{"c1"}, d.nav.navigated)

	// An explicitly changed navigation value does rebind.
	d.nav.location = "c9"
	ctrl.Bootstrap(context.Background())
	assert.Equal(t, "c9", ctrl.ConversationID())
}

func seedTranscript(t *testing.T, ctrl *session.Controller, d *deps, msgs ...types.Message) {
	t.Helper()
	d.nav.location = "c1"
	d.history.msgs = msgs
	ctrl.Bootstrap(context.Background())
	require.Len(t, ctrl.Messages(), len(msgs))
}

func TestApproveSuccess(t *testing.T) {
	ctrl, d := newController(t, "u1", func(d *deps) {
		d.reviewer.verdict = &session.ReviewVerdict{
			Status:  session.StatusSuccess,
			Message: "Rendered",
			VideoID: "v1",
		}
	})
	seedTranscript(t, ctrl, d, assistant("m1", "```python\ncode\n```"))

	require.NoError(t, ctrl.Approve(context.Background(), "m1", "code"))

	msg := ctrl.Messages()[0]
	assert.True(t, msg.IsApproved)
	assert.False(t, msg.IsRejected)
	assert.Equal(t, "v1", msg.VideoID)
	assert.Equal(t, []string{"Rendered"}, d.notifier.successes)
	assert.Equal(t, session.DefaultQuality, d.reviewer.gotQuality)
	assert.Equal(t, "", ctrl.ReviewingID())
}

func TestApproveClearsPriorRejection(t *testing.T) {
	ctrl, d := newController(t, "u1", func(d *deps) {
		d.reviewer.verdict = &session.ReviewVerdict{Status: session.StatusSuccess, Message: "ok", VideoID: "v1"}
	})
	rejected := assistant("m1", "code")
	rejected.IsRejected = true
	seedTranscript(t, ctrl, d, rejected)

	require.NoError(t, ctrl.Approve(context.Background(), "m1", "code"))

	msg := ctrl.Messages()[0]
	assert.True(t, msg.IsApproved)
	assert.False(t, msg.IsRejected)
}

func TestApproveBusinessFailureLeavesEntityUnchanged(t *testing.T) {
	ctrl, d := newController(t, "u1", func(d *deps) {
		d.reviewer.verdict = &session.ReviewVerdict{Status: "error", Message: "Compile failed"}
	})
	seedTranscript(t, ctrl, d, assistant("m2", "bad code"))

	require.NoError(t, ctrl.Approve(context.Background(), "m2", "bad code"))

	msg := ctrl.Messages()[0]
	assert.False(t, msg.IsApproved)
	assert.Empty(t, msg.VideoID)
	assert.Equal(t, []string{"Compile failed"}, d.notifier.errors)
}

func TestApproveSuccessWithoutVideoIDIsFailure(t *testing.T) {
	ctrl, d := newController(t, "u1", func(d *deps) {
		d.reviewer.verdict = &session.ReviewVerdict{Status: session.StatusSuccess, Message: ""}
	})
	seedTranscript(t, ctrl, d, assistant("m1", "code"))

	require.NoError(t, ctrl.Approve(context.Background(), "m1", "code"))

	assert.False(t, ctrl.Messages()[0].IsApproved)
	require.Len(t, d.notifier.errors, 1)
	assert.NotEmpty(t, d.notifier.errors[0]) // fallback text
}

func TestApproveTransportFailure(t *testing.T) {
	ctrl, d := newController(t, "u1", func(d *deps) {
		d.reviewer.approveErr = errors.New("connection reset")
	})
	seedTranscript(t, ctrl, d, assistant("m1", "code"))

	require.Error(t, ctrl.Approve(context.Background(), "m1", "code"))

	assert.False(t, ctrl.Messages()[0].IsApproved)
	assert.Len(t, d.notifier.errors, 1)
	assert.Equal(t, "", ctrl.ReviewingID())
}

func TestApproveTimesOutStalledBackend(t *testing.T) {
	ctrl, d := newController(t, "u1", func(d *deps) {
		d.timeout = 10 * time.Millisecond
		d.reviewer.stall = true
	})
	seedTranscript(t, ctrl, d, assistant("m1", "code"))

	err := ctrl.Approve(context.Background(), "m1", "code")
	require.ErrorIs(t, err, context.DeadlineExceeded)

	assert.False(t, ctrl.Messages()[0].IsApproved)
	assert.Len(t, d.notifier.errors, 1)
	assert.Equal(t, "", ctrl.ReviewingID())
}

func TestRejectTimesOutStalledBackend(t *testing.T) {
	ctrl, d := newController(t, "u1", func(d *deps) {
		d.timeout = 10 * time.Millisecond
		d.reviewer.stall = true
	})
	seedTranscript(t, ctrl, d, assistant("m1", "code"))

	err := ctrl.Reject(context.Background(), "m1")
	require.ErrorIs(t, err, context.DeadlineExceeded)

	// Transport-shaped failure: no guidance append, slot freed.
	require.Len(t, ctrl.Messages(), 1)
	assert.Len(t, d.notifier.errors, 1)
	assert.Equal(t, "", ctrl.ReviewingID())
}

func TestRejectSuccessAppendsGuidance(t *testing.T) {
	ctrl, d := newController(t, "u1", func(d *deps) {
		d.reviewer.rejectRes = &session.RejectResult{Success: true, Message: "ok"}
	})
	seedTranscript(t, ctrl, d, assistant("m3", "code"))

	require.NoError(t, ctrl.Reject(context.Background(), "m3"))

	msgs := ctrl.Messages()
	require.Len(t, msgs, 2)
	assert.True(t, msgs[0].IsRejected)
	assert.Equal(t, types.RoleSystem, msgs[1].Role)
	assert.Contains(t, msgs[1].Content, "rejected the code")
	assert.Empty(t, d.notifier.errors)
	assert.Equal(t, "", ctrl.ReviewingID())
}

func TestRejectBusinessFailureStillAppendsGuidance(t *testing.T) {
	ctrl, d := newController(t, "u1", func(d *deps) {
		d.reviewer.rejectRes = &session.RejectResult{Success: false, Message: "Message not found."}
	})
	seedTranscript(t, ctrl, d, assistant("m3", "code"))

	require.NoError(t, ctrl.Reject(context.Background(), "m3"))

	msgs := ctrl.Messages()
	require.Len(t, msgs, 2)
	assert.False(t, msgs[0].IsRejected) // entity only mutated on success
	assert.Equal(t, types.RoleSystem, msgs[1].Role)
	assert.Equal(t, []string{"Message not found."}, d.notifier.errors)
}

func TestRejectTransportFailureAppendsNothing(t *testing.T) {
	ctrl, d := newController(t, "u1", func(d *deps) {
		d.reviewer.rejectErr = errors.New("connection reset")
	})
	seedTranscript(t, ctrl, d, assistant("m3", "code"))

	require.Error(t, ctrl.Reject(context.Background(), "m3"))

	require.Len(t, ctrl.Messages(), 1)
	assert.Len(t, d.notifier.errors, 1)
	assert.Equal(t, "", ctrl.ReviewingID())
}

func TestReviewGateRefusesConcurrentReviews(t *testing.T) {
	started := make(chan struct{})
	release := make(chan struct{})
	ctrl, d := newController(t, "u1", func(d *deps) {
		d.reviewer.started = started
		d.reviewer.release = release
		d.reviewer.verdict = &session.ReviewVerdict{Status: session.StatusSuccess, Message: "ok", VideoID: "v1"}
		d.reviewer.rejectRes = &session.RejectResult{Success: true, Message: "ok"}
	})
	seedTranscript(t, ctrl, d, assistant("m1", "code"), assistant("m2", "code"))

	done := make(chan error, 1)
	go func() {
		done <- ctrl.Approve(context.Background(), "m1", "code")
	}()

	<-started
	assert.Equal(t, "m1", ctrl.ReviewingID())
	assert.ErrorIs(t, ctrl.Approve(context.Background(), "m2", "code"), session.ErrReviewInFlight)
	assert.ErrorIs(t, ctrl.Reject(context.Background(), "m1"), session.ErrReviewInFlight)

	close(release)
	require.NoError(t, <-done)
	assert.Equal(t, "", ctrl.ReviewingID())

	// The slot is free again once the first review settles.
	d.reviewer.started = nil
	d.reviewer.release = nil
	require.NoError(t, ctrl.Reject(context.Background(), "m2"))
}

func TestApproveUnknownMessageIsStoreNoOp(t *testing.T) {
	ctrl, d := newController(t, "u1", func(d *deps) {
		d.reviewer.verdict = &session.ReviewVerdict{Status: session.StatusSuccess, Message: "ok", VideoID: "v1"}
	})
	seedTranscript(t, ctrl, d, assistant("m1", "code"))

	require.NoError(t, ctrl.Approve(context.Background(), "ghost", "code"))

	// No entity matched; the transcript is untouched beyond the notification.
	msg := ctrl.Messages()[0]
	assert.False(t, msg.IsApproved)
	assert.Empty(t, msg.VideoID)
}
