package profiling

import (
	"context"
	"errors"
	"testing"

	"trawell-be/pkg/llm"
	"trawell-be/pkg/llm/llmtest"
	"trawell-be/pkg/prompts"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func profilingPrompts(t *testing.T) *prompts.Set {
	t.Helper()
	set, err := prompts.NewLoader("").Set("profiling")
	require.NoError(t, err)
	return set
}

func question(t *testing.T, id string) QuestionDefinition {
	t.Helper()
	q, ok := embeddedCatalog(t).ByID(id)
	require.True(t, ok, id)
	return q
}

func TestAnswerValidator_ShortAnswerSkipsLLM(t *testing.T) {
	fake := llmtest.Texts(`{"status":"complete"}`)
	v := NewAnswerValidator(fake, profilingPrompts(t), nil)

	for _, answer := range []string{"", "yes", "  beach  ", "beach please"} {
		a := v.Validate(context.Background(), question(t, "traveler_type"), answer, 0)
		assert.Equal(t, Insufficient, a.Status, answer)
		assert.Equal(t, shortAnswerFeedback, a.Feedback)
	}
	assert.Zero(t, fake.CallCount())
}

func TestAnswerValidator_Validate(t *testing.T) {
	tests := []struct {
		name       string
		questionID string
		reply      llmtest.Reply
		wantStatus ValidationStatus
		wantValue  ExtractedValue
		wantErr    bool
	}{
		{
			name:       "EnumComplete",
			questionID: "traveler_type",
			reply:      llmtest.Reply{Text: `{"status":"complete","feedback":"Got it","extracted_value":"Explorer"}`},
			wantStatus: Complete,
			wantValue:  EnumValue("explorer"),
		},
		{
			name:       "EnumOutsideVocabularyUsesDefault",
			questionID: "traveler_type",
			reply:      llmtest.Reply{Text: `{"status":"sufficient","extracted_value":"party animal"}`},
			wantStatus: Sufficient,
			wantValue:  EnumValue("mixed"),
		},
		{
			name:       "ListFromArray",
			questionID: "dietary_restrictions",
			reply:      llmtest.Reply{Text: "```json\n{\"status\":\"sufficient\",\"extracted_value\":[\"vegan\",\"no nuts\"]}\n```"},
			wantStatus: Sufficient,
			wantValue:  ListValue([]string{"vegan", "no nuts"}),
		},
		{
			name:       "ListNone",
			questionID: "dietary_restrictions",
			reply:      llmtest.Reply{Text: `{"status":"complete","extracted_value":"none"}`},
			wantStatus: Complete,
			wantValue:  ListValue([]string{}),
		},
		{
			name:       "Insufficient",
			questionID: "environment",
			reply:      llmtest.Reply{Text: `{"status":"insufficient","feedback":"City or nature?"}`},
			wantStatus: Insufficient,
			wantValue:  EnumValue("mixed"),
		},
		{
			name:       "UnreadableReply",
			questionID: "environment",
			reply:      llmtest.Reply{Text: "I think they like mountains"},
			wantStatus: Insufficient,
			wantErr:    true,
		},
		{
			name:       "ProviderTimeout",
			questionID: "environment",
			reply:      llmtest.Reply{Err: context.DeadlineExceeded},
			wantStatus: Insufficient,
			wantErr:    true,
		},
		{
			name:       "ProviderDown",
			questionID: "environment",
			reply:      llmtest.Reply{Err: errors.New("connection refused")},
			wantStatus: Insufficient,
			wantErr:    true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			fake := llmtest.New(tt.reply)
			v := NewAnswerValidator(fake, profilingPrompts(t), nil)

			a := v.Validate(context.Background(), question(t, tt.questionID), "I think I like mountains and lakes mostly", 0)
			assert.Equal(t, tt.wantStatus, a.Status)
			assert.Equal(t, 1, fake.CallCount())
			if tt.wantErr {
				assert.Error(t, a.Err)
				assert.NotEmpty(t, a.Feedback)
				assert.True(t, a.Value.IsZero())
				return
			}
			assert.NoError(t, a.Err)
			assert.Equal(t, tt.wantValue, a.Value)
		})
	}
}

func TestAnswerValidator_FailureFeedbackNamesCause(t *testing.T) {
	v := NewAnswerValidator(llmtest.New(llmtest.Reply{Err: context.DeadlineExceeded}), profilingPrompts(t), nil)
	a := v.Validate(context.Background(), question(t, "environment"), "mountains and lakes please", 0)
	assert.Contains(t, a.Feedback, "timed out")
	assert.True(t, errors.Is(a.Err, llm.ErrUnderstanding))
}

func TestAnswerValidator_PromptCarriesChecklist(t *testing.T) {
	fake := llmtest.Texts(`{"status":"complete","extracted_value":"high"}`)
	v := NewAnswerValidator(fake, profilingPrompts(t), nil)
	q := question(t, "activity_level")

	v.Validate(context.Background(), q, "hiking every single day", 0)
	require.Len(t, fake.Calls, 1)
	prompt := fake.Calls[0][0].Content
	for _, info := range q.RequiredInfo {
		assert.Contains(t, prompt, info)
	}
	assert.Contains(t, prompt, "hiking every single day")
}

func TestAnswerValidator_FollowUp(t *testing.T) {
	q := question(t, "traveler_type")
	require.Len(t, q.FollowUpTemplates, 2)

	t.Run("TemplateInRange", func(t *testing.T) {
		fake := llmtest.Texts("unused")
		v := NewAnswerValidator(fake, profilingPrompts(t), nil)
		assert.Equal(t, q.FollowUpTemplates[1], v.FollowUp(context.Background(), q, "meh", 1))
		assert.Zero(t, fake.CallCount())
	})

	t.Run("GeneratedPastTemplates", func(t *testing.T) {
		fake := llmtest.Texts(`"Do you pack your days or keep them loose?"`)
		v := NewAnswerValidator(fake, profilingPrompts(t), nil)
		assert.Equal(t, "Do you pack your days or keep them loose?", v.FollowUp(context.Background(), q, "meh", 2))
		assert.Equal(t, 1, fake.CallCount())
	})

	t.Run("GenericWhenProviderFails", func(t *testing.T) {
		fake := llmtest.New(llmtest.Reply{Err: errors.New("boom")})
		v := NewAnswerValidator(fake, profilingPrompts(t), nil)
		got := v.FollowUp(context.Background(), q, "meh", 2)
		assert.Contains(t, got, genericFollowUp)
		assert.Contains(t, got, "beach and a book")
	})
}
