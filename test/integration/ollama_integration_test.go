package integration

import (
	"context"
	"os"
	"testing"
	"time"

	"trawell-be/internal/pkg/logger"
	"trawell-be/pkg/llm"
	"trawell-be/pkg/llm/ollama"
	"trawell-be/pkg/profiling"
	"trawell-be/pkg/prompts"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// ollamaProvider talks to a local Ollama server. Set OLLAMA_BASE_URL (and
// optionally LLM_MODEL) to run these.
func ollamaProvider(t *testing.T) *ollama.OllamaProvider {
	t.Helper()
	baseURL := os.Getenv("OLLAMA_BASE_URL")
	if baseURL == "" {
		t.Skip("Skipping integration test: OLLAMA_BASE_URL not set")
	}
	model := os.Getenv("LLM_MODEL")
	if model == "" {
		model = "llama3"
	}
	return ollama.NewOllamaProvider(baseURL, model)
}

func TestOllamaChat(t *testing.T) {
	provider := ollamaProvider(t)
	ctx, cancel := context.WithTimeout(context.Background(), 120*time.Second)
	defer cancel()

	reply, err := provider.Chat(ctx, []llm.Message{
		{Role: llm.RoleUser, Content: "Say 'Ollama works!' in one sentence."},
	})
	require.NoError(t, err)
	assert.NotEmpty(t, reply)
	t.Logf("✅ Response: %s", reply)
}

func TestOllamaChatStream(t *testing.T) {
	provider := ollamaProvider(t)
	ctx, cancel := context.WithTimeout(context.Background(), 120*time.Second)
	defer cancel()

	stream, err := provider.ChatStream(ctx, []llm.Message{
		{Role: llm.RoleUser, Content: "Name three beach destinations in Europe."},
	})
	require.NoError(t, err)

	text, err := llm.Collect(ctx, stream)
	require.NoError(t, err)
	assert.NotEmpty(t, text)
}

// TestOllamaAnswerValidator runs the real validation prompt. Model output
// varies, so only the shape of the verdict is asserted.
func TestOllamaAnswerValidator(t *testing.T) {
	provider := ollamaProvider(t)
	ctx, cancel := context.WithTimeout(context.Background(), 120*time.Second)
	defer cancel()

	loader := prompts.NewLoader("")
	set, err := loader.Set("profiling")
	require.NoError(t, err)
	raw, err := loader.Raw("profiling")
	require.NoError(t, err)
	catalog, err := profiling.LoadCatalog(raw)
	require.NoError(t, err)

	validator := profiling.NewAnswerValidator(provider, set, logger.NewNop())

	q, ok := catalog.ByID("environment")
	require.True(t, ok)
	verdict := validator.Validate(ctx, q, "Definitely beaches, warm water and white sand.", 0)
	require.NoError(t, verdict.Err)
	t.Logf("status=%s value=%q feedback=%q", verdict.Status, verdict.Value.String(), verdict.Feedback)
	if verdict.Status != profiling.Insufficient {
		assert.Equal(t, profiling.KindEnum, verdict.Value.Kind)
		assert.Contains(t, q.AllowedValues, verdict.Value.Text)
	}
}
