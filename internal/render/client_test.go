package render_test

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/manu-0990/motion/internal/render"
)

func TestRenderSuccess(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, http.MethodPost, r.Method)
		require.Equal(t, "/render", r.URL.Path)

		var req render.RenderRequest
		require.NoError(t, json.NewDecoder(r.Body).Decode(&req))
		assert.Equal(t, "m1", req.MessageID)
		assert.Equal(t, "-qm", req.Quality)

		json.NewEncoder(w).Encode(render.RenderResponse{VideoID: "v1"})
	}))
	defer srv.Close()

	client := render.NewClient(srv.URL)
	videoID, err := client.Render(context.Background(), &render.RenderRequest{
		MessageID: "m1",
		Code:      "from manim import *",
		Quality:   "-qm",
	})
	require.NoError(t, err)
	assert.Equal(t, "v1", videoID)
}

func TestRenderFarmError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusUnprocessableEntity)
		json.NewEncoder(w).Encode(render.RenderResponse{Error: "Compile failed"})
	}))
	defer srv.Close()

	client := render.NewClient(srv.URL)
	_, err := client.Render(context.Background(), &render.RenderRequest{Code: "bad"})

	var renderErr *render.RenderError
	require.ErrorAs(t, err, &renderErr)
	assert.Equal(t, "Compile failed", renderErr.Message)
}

func TestRenderMissingVideoIDIsError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		json.NewEncoder(w).Encode(render.RenderResponse{})
	}))
	defer srv.Close()

	client := render.NewClient(srv.URL)
	_, err := client.Render(context.Background(), &render.RenderRequest{Code: "ok"})

	var renderErr *render.RenderError
	require.ErrorAs(t, err, &renderErr)
}

func TestRenderTransportError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
	srv.Close() // connection refused

	client := render.NewClient(srv.URL)
	_, err := client.Render(context.Background(), &render.RenderRequest{Code: "ok"})

	require.Error(t, err)
	var renderErr *render.RenderError
	assert.NotErrorAs(t, err, &renderErr)
}
