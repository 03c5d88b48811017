package gemini

import (
	"context"
	"fmt"
	"strings"

	"trawell-be/pkg/llm"

	"google.golang.org/genai"
)

const providerName = "gemini"

type GeminiProvider struct {
	client    *genai.Client
	modelName string
}

var _ llm.LLMProvider = &GeminiProvider{}

func NewGeminiProvider(ctx context.Context, apiKey, modelName string) (*GeminiProvider, error) {
	if apiKey == "" {
		return nil, fmt.Errorf("gemini: api key is required")
	}
	if modelName == "" {
		modelName = "gemini-2.0-flash"
	}

	client, err := genai.NewClient(ctx, &genai.ClientConfig{
		APIKey:  apiKey,
		Backend: genai.BackendGeminiAPI,
	})
	if err != nil {
		return nil, fmt.Errorf("gemini: create client: %w", err)
	}

	return &GeminiProvider{client: client, modelName: modelName}, nil
}

func (g *GeminiProvider) Chat(ctx context.Context, history []llm.Message, opts ...llm.Option) (string, error) {
	model, contents, config := g.request(history, opts...)

	resp, err := g.client.Models.GenerateContent(ctx, model, contents, config)
	if err != nil {
		return "", llm.Wrap(providerName, "chat", err)
	}
	text := resp.Text()
	if strings.TrimSpace(text) == "" {
		return "", llm.Wrap(providerName, "chat", llm.ErrEmptyResponse)
	}
	return text, nil
}

func (g *GeminiProvider) Generate(ctx context.Context, prompt string, opts ...llm.Option) (string, error) {
	return g.Chat(ctx, []llm.Message{{Role: llm.RoleUser, Content: prompt}}, opts...)
}

func (g *GeminiProvider) ChatStream(ctx context.Context, history []llm.Message, opts ...llm.Option) (<-chan llm.StreamChunk, error) {
	model, contents, config := g.request(history, opts...)

	out := make(chan llm.StreamChunk, 16)
	go func() {
		defer close(out)

		produced := false
		for resp, err := range g.client.Models.GenerateContentStream(ctx, model, contents, config) {
			if err != nil {
				select {
				case out <- llm.StreamChunk{Done: true, Err: llm.Wrap(providerName, "stream", err)}:
				case <-ctx.Done():
				}
				return
			}
			text := resp.Text()
			if text == "" {
				continue
			}
			produced = true
			select {
			case out <- llm.StreamChunk{Text: text}:
			case <-ctx.Done():
				return
			}
		}

		var endErr error
		if !produced {
			endErr = llm.Wrap(providerName, "stream", llm.ErrEmptyResponse)
		}
		select {
		case out <- llm.StreamChunk{Done: true, Err: endErr}:
		case <-ctx.Done():
		}
	}()

	return out, nil
}

// request maps the provider-agnostic history onto genai contents. System
// messages are folded into the system instruction.
func (g *GeminiProvider) request(history []llm.Message, opts ...llm.Option) (string, []*genai.Content, *genai.GenerateContentConfig) {
	options := llm.ApplyOptions(opts...)

	model := g.modelName
	if options.Model != "" {
		model = options.Model
	}

	config := &genai.GenerateContentConfig{
		Temperature: genai.Ptr[float32](float32(options.Temperature)),
	}
	if options.MaxTokens > 0 {
		config.MaxOutputTokens = int32(options.MaxTokens)
	}
	if options.JSON {
		config.ResponseMIMEType = "application/json"
	}

	var system []string
	contents := make([]*genai.Content, 0, len(history))
	for _, msg := range history {
		switch msg.Role {
		case llm.RoleSystem:
			system = append(system, msg.Content)
		case llm.RoleAssistant, "model":
			contents = append(contents, genai.NewContentFromText(msg.Content, genai.RoleModel))
		default:
			contents = append(contents, genai.NewContentFromText(msg.Content, genai.RoleUser))
		}
	}
	switch {
	case len(system) > 0 && len(contents) == 0:
		// Gemini rejects a request with no user turn; a lone system prompt
		// is sent as the user message instead.
		contents = append(contents, genai.NewContentFromText(strings.Join(system, "\n\n"), genai.RoleUser))
	case len(system) > 0:
		config.SystemInstruction = genai.NewContentFromText(strings.Join(system, "\n\n"), genai.RoleUser)
	}

	return model, contents, config
}
