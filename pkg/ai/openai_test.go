package ai

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestGenerateText(t *testing.T) {
	var gotReq oaiChatRequest
	backend := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, "/v1/chat/completions", r.URL.Path)
		require.Equal(t, "Bearer test-key", r.Header.Get("Authorization"))
		require.NoError(t, json.NewDecoder(r.Body).Decode(&gotReq))
		json.NewEncoder(w).Encode(map[string]any{
			"choices": []map[string]any{
				{"message": map[string]string{"role": "assistant", "content": "Title: A Story\nOnce upon a time."}},
			},
		})
	}))
	defer backend.Close()

	client := NewOpenAIClient(Options{BaseURL: backend.URL + "/v1", APIKey: "test-key"})
	text, err := client.GenerateText(context.Background(), "You are a writer.", "Write a story.")
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(text, "Title: A Story"))

	require.Len(t, gotReq.Messages, 2)
	assert.Equal(t, "system", gotReq.Messages[0].Role)
	assert.Equal(t, "user", gotReq.Messages[1].Role)
	assert.Equal(t, "gpt-3.5-turbo", gotReq.Model)
}

func TestGenerateTextEmptyChoices(t *testing.T) {
	backend := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		json.NewEncoder(w).Encode(map[string]any{"choices": []any{}})
	}))
	defer backend.Close()

	client := NewOpenAIClient(Options{BaseURL: backend.URL})
	_, err := client.GenerateText(context.Background(), "", "prompt")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "empty response")
}

func TestAPIErrorMessageSurfaces(t *testing.T) {
	backend := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusTooManyRequests)
		json.NewEncoder(w).Encode(map[string]any{
			"error": map[string]string{"message": "Rate limit reached", "type": "rate_limit_error"},
		})
	}))
	defer backend.Close()

	client := NewOpenAIClient(Options{BaseURL: backend.URL})
	_, err := client.GenerateText(context.Background(), "", "prompt")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "Rate limit reached")
}

func TestGenerateImage(t *testing.T) {
	var gotReq oaiImageRequest
	backend := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, "/images/generations", r.URL.Path)
		require.NoError(t, json.NewDecoder(r.Body).Decode(&gotReq))
		json.NewEncoder(w).Encode(map[string]any{
			"data": []map[string]string{{"url": "https://images.test/temp.png"}},
		})
	}))
	defer backend.Close()

	client := NewOpenAIClient(Options{BaseURL: backend.URL})
	url, err := client.GenerateImage(context.Background(), "a fox in a forest")
	require.NoError(t, err)
	assert.Equal(t, "https://images.test/temp.png", url)

	assert.Equal(t, "dall-e-3", gotReq.Model)
	assert.Equal(t, 1, gotReq.N)
	assert.Equal(t, "1024x1024", gotReq.Size)
	assert.Equal(t, "standard", gotReq.Quality)
	assert.Equal(t, "vivid", gotReq.Style)
}

func TestGenerateSpeech(t *testing.T) {
	var gotReq oaiSpeechRequest
	backend := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, "/audio/speech", r.URL.Path)
		require.NoError(t, json.NewDecoder(r.Body).Decode(&gotReq))
		w.Write([]byte("raw-mp3-bytes"))
	}))
	defer backend.Close()

	client := NewOpenAIClient(Options{BaseURL: backend.URL, Voice: "alloy"})
	audio, err := client.GenerateSpeech(context.Background(), "Once upon a time.", "Narrate warmly.")
	require.NoError(t, err)
	assert.Equal(t, []byte("raw-mp3-bytes"), audio)

	assert.Equal(t, "gpt-4o-mini-tts", gotReq.Model)
	assert.Equal(t, "alloy", gotReq.Voice)
	assert.Equal(t, "mp3", gotReq.ResponseFormat)
	assert.Equal(t, "Narrate warmly.", gotReq.Instructions)
}

func TestGenerateSpeechEmptyBody(t *testing.T) {
	backend := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
	}))
	defer backend.Close()

	client := NewOpenAIClient(Options{BaseURL: backend.URL})
	_, err := client.GenerateSpeech(context.Background(), "text", "")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "empty response")
}
