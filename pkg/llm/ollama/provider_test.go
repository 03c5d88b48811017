package ollama

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	"trawell-be/pkg/llm"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestServer(t *testing.T, handler http.HandlerFunc) *OllamaProvider {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)
	return NewOllamaProvider(srv.URL, "llama3")
}

func TestChatSendsJSONFormat(t *testing.T) {
	p := newTestServer(t, func(w http.ResponseWriter, r *http.Request) {
		var req ollamaChatRequest
		require.NoError(t, json.NewDecoder(r.Body).Decode(&req))
		assert.Equal(t, "json", req.Format)
		assert.False(t, req.Stream)
		assert.Equal(t, "system", req.Messages[0].Role)

		_ = json.NewEncoder(w).Encode(ollamaChatResponse{Message: ollamaMessage{Role: "assistant", Content: `{"ok":true}`}, Done: true})
	})

	out, err := p.Chat(context.Background(), []llm.Message{{Role: llm.RoleSystem, Content: "judge"}}, llm.WithJSON())
	require.NoError(t, err)
	assert.Equal(t, `{"ok":true}`, out)
}

func TestChatErrorsAreTyped(t *testing.T) {
	tests := []struct {
		name    string
		handler http.HandlerFunc
	}{
		{
			name: "http failure",
			handler: func(w http.ResponseWriter, r *http.Request) {
				http.Error(w, "model not found", http.StatusNotFound)
			},
		},
		{
			name: "empty text",
			handler: func(w http.ResponseWriter, r *http.Request) {
				_ = json.NewEncoder(w).Encode(ollamaChatResponse{Done: true})
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			p := newTestServer(t, tt.handler)
			_, err := p.Generate(context.Background(), "hello")
			assert.ErrorIs(t, err, llm.ErrUnderstanding)
		})
	}
}

func TestChatStreamDeliversChunksThenEndMarker(t *testing.T) {
	p := newTestServer(t, func(w http.ResponseWriter, r *http.Request) {
		for _, tok := range []string{"Lis", "bon"} {
			fmt.Fprintf(w, `{"message":{"role":"assistant","content":%q},"done":false}`+"\n", tok)
		}
		fmt.Fprintln(w, `{"message":{"role":"assistant","content":""},"done":true}`)
	})

	stream, err := p.ChatStream(context.Background(), []llm.Message{{Role: llm.RoleUser, Content: "where?"}})
	require.NoError(t, err)

	var chunks []llm.StreamChunk
	for c := range stream {
		chunks = append(chunks, c)
	}

	require.Len(t, chunks, 3)
	assert.Equal(t, "Lis", chunks[0].Text)
	assert.Equal(t, "bon", chunks[1].Text)
	assert.True(t, chunks[2].Done)
	assert.NoError(t, chunks[2].Err)
}

func TestChatStreamTruncatedBody(t *testing.T) {
	p := newTestServer(t, func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprintln(w, `{"message":{"role":"assistant","content":"Lis"},"done":false}`)
	})

	stream, err := p.ChatStream(context.Background(), nil)
	require.NoError(t, err)

	text, err := llm.Collect(context.Background(), stream)
	assert.Equal(t, "Lis", text)
	assert.ErrorIs(t, err, llm.ErrUnderstanding)
}
