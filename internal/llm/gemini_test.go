package llm

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestGenerateMissingAPIKey(t *testing.T) {
	t.Setenv("TEST_GEMINI_KEY", "")
	c := NewClient(Config{APIKeyEnv: "TEST_GEMINI_KEY"})
	_, err := c.Generate(context.Background(), "hello")
	require.ErrorIs(t, err, ErrMissingAPIKey)
}

func TestGenerateSuccess(t *testing.T) {
	var gotPath, gotKey string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotPath = r.URL.Path
		gotKey = r.Header.Get("x-goog-api-key")
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"candidates":[{"content":{"parts":[{"text":"Thirty days."}]}}]}`))
	}))
	defer srv.Close()

	t.Setenv("TEST_GEMINI_KEY", "secret")
	c := NewClient(Config{BaseURL: srv.URL, APIKeyEnv: "TEST_GEMINI_KEY", Model: "gemini-1.5-flash"})

	text, err := c.Generate(context.Background(), "What is the grace period?")
	require.NoError(t, err)
	assert.Equal(t, "Thirty days.", text)
	assert.Equal(t, "/models/gemini-1.5-flash:generateContent", gotPath)
	assert.Equal(t, "secret", gotKey)
}

func TestGenerateUpstreamError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, `{"error":"quota exceeded"}`, http.StatusTooManyRequests)
	}))
	defer srv.Close()

	t.Setenv("TEST_GEMINI_KEY", "secret")
	c := NewClient(Config{BaseURL: srv.URL, APIKeyEnv: "TEST_GEMINI_KEY"})

	_, err := c.Generate(context.Background(), "anything")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "429")
}

func TestGenerateNoCandidates(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"candidates":[]}`))
	}))
	defer srv.Close()

	t.Setenv("TEST_GEMINI_KEY", "secret")
	c := NewClient(Config{BaseURL: srv.URL, APIKeyEnv: "TEST_GEMINI_KEY"})

	_, err := c.Generate(context.Background(), "anything")
	require.Error(t, err)
}
