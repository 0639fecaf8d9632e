package client_test

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/manu-0990/motion/internal/client"
	"github.com/manu-0990/motion/internal/types"
)

func newServer(t *testing.T, handler http.HandlerFunc) *client.Client {
	t.Helper()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, "Bearer test-token", r.Header.Get("Authorization"))
		handler(w, r)
	}))
	t.Cleanup(srv.Close)
	return client.New(srv.URL, "test-token")
}

func TestGenerate(t *testing.T) {
	c := newServer(t, func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, http.MethodPost, r.Method)
		require.Equal(t, "/api/chat", r.URL.Path)

		var req struct {
			ConversationID string `json:"conversation_id"`
			Prompt         string `json:"prompt"`
		}
		require.NoError(t, json.NewDecoder(r.Body).Decode(&req))
		assert.Equal(t, "explain derivatives", req.Prompt)

		json.NewEncoder(w).Encode(map[string]any{
			"message":         types.Message{ID: "a1", Role: types.RoleAssistant, Content: "reply"},
			"conversation_id": "c1",
			"title_generated": true,
		})
	})

	res, err := c.Generate(context.Background(), "", "u1", "explain derivatives")
	require.NoError(t, err)
	assert.Equal(t, "c1", res.ConversationID)
	assert.True(t, res.TitleGenerated)
	assert.Equal(t, "a1", res.Assistant.ID)
}

func TestGenerateServerError(t *testing.T) {
	c := newServer(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
		json.NewEncoder(w).Encode(map[string]string{"error": "failed to process message"})
	})

	_, err := c.Generate(context.Background(), "", "u1", "hi")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "failed to process message")
}

func TestApprove(t *testing.T) {
	c := newServer(t, func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, "/api/review/m1/approve", r.URL.Path)
		json.NewEncoder(w).Encode(map[string]string{
			"status":   "success",
			"message":  "Rendered",
			"video_id": "v1",
		})
	})

	verdict, err := c.Approve(context.Background(), "m1", "code", "-qm")
	require.NoError(t, err)
	assert.Equal(t, "success", verdict.Status)
	assert.Equal(t, "v1", verdict.VideoID)
}

func TestReject(t *testing.T) {
	c := newServer(t, func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, "/api/review/m3/reject", r.URL.Path)
		json.NewEncoder(w).Encode(map[string]any{"success": true, "message": "ok"})
	})

	res, err := c.Reject(context.Background(), "m3")
	require.NoError(t, err)
	assert.True(t, res.Success)
}

func TestHistory(t *testing.T) {
	c := newServer(t, func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, http.MethodGet, r.Method)
		require.Equal(t, "/api/chat/c1", r.URL.Path)
		json.NewEncoder(w).Encode([]types.Message{
			{ID: "m1", Role: types.RoleUser, Content: "hi"},
			{ID: "m2", Role: types.RoleAssistant, Content: "hello"},
		})
	})

	msgs, err := c.History(context.Background(), "c1")
	require.NoError(t, err)
	require.Len(t, msgs, 2)
	assert.Equal(t, "m2", msgs[1].ID)
}

func TestConversations(t *testing.T) {
	c := newServer(t, func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, "/api/conversations", r.URL.Path)
		json.NewEncoder(w).Encode(map[string]any{
			"conversations": []types.Conversation{{ID: "c1", UserID: "u1"}},
			"total_count":   1,
		})
	})

	convs, err := c.Conversations(context.Background())
	require.NoError(t, err)
	require.Len(t, convs, 1)
	assert.Equal(t, "c1", convs[0].ID)
}
