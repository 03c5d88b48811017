package llm

import (
	"context"
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestWrap(t *testing.T) {
	assert.NoError(t, Wrap("ollama", "chat", nil))

	err := Wrap("ollama", "chat", fmt.Errorf("dial: %w", context.DeadlineExceeded))
	assert.ErrorIs(t, err, ErrUnderstanding)
	assert.ErrorIs(t, err, context.DeadlineExceeded)
	assert.True(t, IsTimeout(err))

	plain := Wrap("gemini", "stream", errors.New("quota"))
	assert.ErrorIs(t, plain, ErrUnderstanding)
	assert.False(t, IsTimeout(plain))

	// Wrapping twice keeps the original provider.
	again := Wrap("other", "chat", plain)
	var ue *UnderstandingError
	assert.ErrorAs(t, again, &ue)
	assert.Equal(t, "gemini", ue.Provider)
}

func TestCollect(t *testing.T) {
	ch := make(chan StreamChunk, 3)
	ch <- StreamChunk{Text: "Hello "}
	ch <- StreamChunk{Text: "there"}
	ch <- StreamChunk{Done: true}

	text, err := Collect(context.Background(), ch)
	assert.NoError(t, err)
	assert.Equal(t, "Hello there", text)

	failing := make(chan StreamChunk, 2)
	failing <- StreamChunk{Text: "partial"}
	failing <- StreamChunk{Done: true, Err: Wrap("fake", "stream", errors.New("boom"))}

	text, err = Collect(context.Background(), failing)
	assert.Equal(t, "partial", text)
	assert.ErrorIs(t, err, ErrUnderstanding)
}
