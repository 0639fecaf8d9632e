// Package client is a typed HTTP client for the motion server API. It
// implements the session controller's backend ports (Generator, Reviewer,
// HistorySource) so a frontend can wire a Controller straight to it.
package client

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/manu-0990/motion/internal/session"
	"github.com/manu-0990/motion/internal/types"
)

// Client talks to the motion server.
type Client struct {
	baseURL    string
	token      string
	httpClient *http.Client
}

// New creates a client for the given server, authenticating with token.
func New(baseURL, token string) *Client {
	return &Client{
		baseURL: baseURL,
		token:   token,
		httpClient: &http.Client{
			// Generation and rendering both run within one request.
			Timeout: 150 * time.Second,
		},
	}
}

// apiError is the server's error body.
type apiError struct {
	Error string `json:"error"`
}

func (c *Client) do(ctx context.Context, method, path string, reqBody, respBody any) error {
	var body io.Reader
	if reqBody != nil {
		raw, err := json.Marshal(reqBody)
		if err != nil {
			return fmt.Errorf("marshal request: %w", err)
		}
		body = bytes.NewReader(raw)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, body)
	if err != nil {
		return fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+c.token)
	if reqBody != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("http request: %w", err)
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("read response: %w", err)
	}

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		var apiErr apiError
		if err := json.Unmarshal(raw, &apiErr); err == nil && apiErr.Error != "" {
			return fmt.Errorf("%s %s: %s", method, path, apiErr.Error)
		}
		return fmt.Errorf("%s %s: unexpected status %d", method, path, resp.StatusCode)
	}

	if respBody != nil {
		if err := json.Unmarshal(raw, respBody); err != nil {
			return fmt.Errorf("decode response: %w", err)
		}
	}
	return nil
}

// Generate implements session.Generator.
func (c *Client) Generate(ctx context.Context, conversationID, userID, prompt string) (*session.GenerateResult, error) {
	req := struct {
		ConversationID string `json:"conversation_id"`
		Prompt         string `json:"prompt"`
	}{ConversationID: conversationID, Prompt: prompt}

	var res session.GenerateResult
	if err := c.do(ctx, http.MethodPost, "/api/chat", req, &res); err != nil {
		return nil, err
	}
	return &res, nil
}

// Approve implements the approval half of session.Reviewer.
func (c *Client) Approve(ctx context.Context, messageID, code, quality string) (*session.ReviewVerdict, error) {
	req := struct {
		Code    string `json:"code"`
		Quality string `json:"quality"`
	}{Code: code, Quality: quality}

	var verdict session.ReviewVerdict
	if err := c.do(ctx, http.MethodPost, "/api/review/"+messageID+"/approve", req, &verdict); err != nil {
		return nil, err
	}
	return &verdict, nil
}

// Reject implements the rejection half of session.Reviewer.
func (c *Client) Reject(ctx context.Context, messageID string) (*session.RejectResult, error) {
	var res session.RejectResult
	if err := c.do(ctx, http.MethodPost, "/api/review/"+messageID+"/reject", nil, &res); err != nil {
		return nil, err
	}
	return &res, nil
}

// History implements session.HistorySource.
func (c *Client) History(ctx context.Context, conversationID string) ([]types.Message, error) {
	var msgs []types.Message
	if err := c.do(ctx, http.MethodGet, "/api/chat/"+conversationID, nil, &msgs); err != nil {
		return nil, err
	}
	return msgs, nil
}

// Conversations fetches the caller's conversation list.
func (c *Client) Conversations(ctx context.Context) ([]types.Conversation, error) {
	var resp struct {
		Conversations []types.Conversation `json:"conversations"`
		TotalCount    int                  `json:"total_count"`
	}
	if err := c.do(ctx, http.MethodGet, "/api/conversations", nil, &resp); err != nil {
		return nil, err
	}
	return resp.Conversations, nil
}
