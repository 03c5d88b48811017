// Package llmtest provides a scripted llm.LLMProvider for tests.
package llmtest

import (
	"context"
	"strings"
	"sync"

	"trawell-be/pkg/llm"
)

// Reply is one scripted answer. Err takes precedence over Text.
type Reply struct {
	Text string
	Err  error
}

// Provider replays Replies in order and then repeats Fallback.
// Streams split the reply text on spaces, keeping the separators.
type Provider struct {
	mu       sync.Mutex
	replies  []Reply
	Fallback Reply
	Calls    [][]llm.Message

	// Gate, when set, blocks streams until it is closed.
	Gate chan struct{}
}

var _ llm.LLMProvider = &Provider{}

func New(replies ...Reply) *Provider {
	return &Provider{replies: replies}
}

// Texts is shorthand for successful replies.
func Texts(texts ...string) *Provider {
	p := &Provider{}
	for _, t := range texts {
		p.replies = append(p.replies, Reply{Text: t})
	}
	return p
}

func (p *Provider) next(history []llm.Message) Reply {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.Calls = append(p.Calls, history)
	if len(p.replies) == 0 {
		return p.Fallback
	}
	r := p.replies[0]
	p.replies = p.replies[1:]
	return r
}

func (p *Provider) CallCount() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return len(p.Calls)
}

func (p *Provider) Chat(ctx context.Context, history []llm.Message, _ ...llm.Option) (string, error) {
	r := p.next(history)
	if r.Err != nil {
		return "", llm.Wrap("fake", "chat", r.Err)
	}
	return r.Text, nil
}

func (p *Provider) Generate(ctx context.Context, prompt string, opts ...llm.Option) (string, error) {
	return p.Chat(ctx, []llm.Message{{Role: llm.RoleUser, Content: prompt}}, opts...)
}

func (p *Provider) ChatStream(ctx context.Context, history []llm.Message, _ ...llm.Option) (<-chan llm.StreamChunk, error) {
	r := p.next(history)
	out := make(chan llm.StreamChunk)
	go func() {
		defer close(out)
		if p.Gate != nil {
			select {
			case <-p.Gate:
			case <-ctx.Done():
				return
			}
		}
		if r.Err != nil {
			select {
			case out <- llm.StreamChunk{Done: true, Err: llm.Wrap("fake", "stream", r.Err)}:
			case <-ctx.Done():
			}
			return
		}
		for _, tok := range splitKeep(r.Text) {
			select {
			case out <- llm.StreamChunk{Text: tok}:
			case <-ctx.Done():
				return
			}
		}
		select {
		case out <- llm.StreamChunk{Done: true}:
		case <-ctx.Done():
		}
	}()
	return out, nil
}

func splitKeep(s string) []string {
	if s == "" {
		return nil
	}
	parts := strings.SplitAfter(s, " ")
	out := parts[:0]
	for _, p := range parts {
		if p != "" {
			out = append(out, p)
		}
	}
	return out
}
