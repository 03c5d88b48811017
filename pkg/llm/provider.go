package llm

import (
	"context"
)

const (
	RoleSystem    = "system"
	RoleUser      = "user"
	RoleAssistant = "assistant"
)

// Message represents a chat message in a provider-agnostic format
type Message struct {
	Role    string // "user", "assistant", "system"
	Content string
}

// Option allows for optional parameters like Temperature, MaxTokens, etc.
type Option func(*Options)

type Options struct {
	Temperature float64
	MaxTokens   int
	Model       string // Override default model
	JSON        bool   // Ask the backend for a JSON object response
}

func WithTemperature(temp float64) Option {
	return func(o *Options) {
		o.Temperature = temp
	}
}

func WithModel(model string) Option {
	return func(o *Options) {
		o.Model = model
	}
}

func WithMaxTokens(n int) Option {
	return func(o *Options) {
		o.MaxTokens = n
	}
}

func WithJSON() Option {
	return func(o *Options) {
		o.JSON = true
	}
}

// ApplyOptions resolves options over the package defaults.
func ApplyOptions(opts ...Option) *Options {
	options := &Options{
		Temperature: 0.7,
	}
	for _, opt := range opts {
		opt(options)
	}
	return options
}

// StreamChunk is one piece of a streamed completion. The last chunk on a
// stream has Done set (and Err, if the generation failed); the channel is
// closed right after it.
type StreamChunk struct {
	Text string
	Done bool
	Err  error
}

// LLMProvider defines the contract for any LLM backend
type LLMProvider interface {
	// Chat sends a chat history to the model and returns the response
	Chat(ctx context.Context, history []Message, options ...Option) (string, error)

	// Generate sends a single prompt to the model (convenience method)
	Generate(ctx context.Context, prompt string, options ...Option) (string, error)

	// ChatStream starts a streamed completion. Errors that happen before the
	// first token are returned directly; later ones arrive on the final chunk.
	ChatStream(ctx context.Context, history []Message, options ...Option) (<-chan StreamChunk, error)
}

// Collect drains a stream into the full text.
func Collect(ctx context.Context, stream <-chan StreamChunk) (string, error) {
	var text []byte
	for {
		select {
		case <-ctx.Done():
			return string(text), ctx.Err()
		case chunk, ok := <-stream:
			if !ok {
				return string(text), nil
			}
			text = append(text, chunk.Text...)
			if chunk.Done {
				return string(text), chunk.Err
			}
		}
	}
}
