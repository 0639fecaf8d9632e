package render

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"
)

// Client is a client for the Manim render farm.
type Client struct {
	baseURL    string
	httpClient *http.Client
}

// NewClient creates a new render farm client.
func NewClient(baseURL string) *Client {
	return &Client{
		baseURL: baseURL,
		httpClient: &http.Client{
			// Rendering a scene is slow; leave plenty of headroom.
			Timeout: 120 * time.Second,
		},
	}
}

// RenderRequest is the request body for POST /render.
type RenderRequest struct {
	MessageID string `json:"message_id"`
	Code      string `json:"code"`
	Quality   string `json:"quality"`
}

// RenderResponse is the response from POST /render.
type RenderResponse struct {
	VideoID string `json:"video_id"`
	Error   string `json:"error,omitempty"`
}

// Render submits a code block for rendering and returns the video id.
// A farm-reported failure (non-2xx or an error body) is returned as an
// *RenderError so callers can distinguish it from transport faults.
func (c *Client) Render(ctx context.Context, req *RenderRequest) (string, error) {
	url := fmt.Sprintf("%s/render", c.baseURL)

	body, err := json.Marshal(req)
	if err != nil {
		return "", fmt.Errorf("marshal request: %w", err)
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(body))
	if err != nil {
		return "", fmt.Errorf("create request: %w", err)
	}
	httpReq.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(httpReq)
	if err != nil {
		return "", fmt.Errorf("http request: %w", err)
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", fmt.Errorf("read response: %w", err)
	}

	var renderResp RenderResponse
	if err := json.Unmarshal(respBody, &renderResp); err != nil {
		if resp.StatusCode != http.StatusOK {
			return "", fmt.Errorf("unexpected status %d: %s", resp.StatusCode, string(respBody))
		}
		return "", fmt.Errorf("decode response: %w", err)
	}

	if resp.StatusCode != http.StatusOK || renderResp.Error != "" {
		msg := renderResp.Error
		if msg == "" {
			msg = fmt.Sprintf("unexpected status %d", resp.StatusCode)
		}
		return "", &RenderError{Message: msg}
	}

	if renderResp.VideoID == "" {
		return "", &RenderError{Message: "render farm returned no video id"}
	}
	return renderResp.VideoID, nil
}

// RenderError is a failure reported by the render farm itself, as opposed
// to a transport fault reaching it.
type RenderError struct {
	Message string
}

func (e *RenderError) Error() string {
	return fmt.Sprintf("render: %s", e.Message)
}
