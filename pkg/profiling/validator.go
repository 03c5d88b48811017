package profiling

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"trawell-be/internal/pkg/logger"
	"trawell-be/pkg/llm"
	"trawell-be/pkg/prompts"
)

const (
	shortAnswerFeedback = "Could you provide a bit more detail?"
	unavailableFeedback = "I had trouble understanding that just now (%s). Could you say it another way?"
	genericFollowUp     = "Could you tell me a little more about that?"
)

// Assessment is the validator's verdict on one answer.
type Assessment struct {
	Status   ValidationStatus
	Feedback string
	Value    ExtractedValue
	// Err is set when the understanding function failed and the verdict
	// defaulted to Insufficient.
	Err error
}

// AnswerChecker is what the state machine needs from a validator.
type AnswerChecker interface {
	Validate(ctx context.Context, q QuestionDefinition, answer string, followUpCount int) Assessment
	FollowUp(ctx context.Context, q QuestionDefinition, answer string, followUpCount int) string
}

// CountTokens counts whitespace separated words.
func CountTokens(answer string) int {
	return len(strings.Fields(answer))
}

type AnswerValidator struct {
	llm     llm.LLMProvider
	prompts *prompts.Set
	logger  logger.ILogger
}

var _ AnswerChecker = &AnswerValidator{}

// NewAnswerValidator needs the "profiling" prompt set for validation_prompt
// and follow_up_prompt.
func NewAnswerValidator(provider llm.LLMProvider, set *prompts.Set, log logger.ILogger) *AnswerValidator {
	return &AnswerValidator{llm: provider, prompts: set, logger: log}
}

type validationReply struct {
	Status         string      `json:"status"`
	Feedback       string      `json:"feedback"`
	ExtractedValue interface{} `json:"extracted_value"`
}

func (v *AnswerValidator) Validate(ctx context.Context, q QuestionDefinition, answer string, followUpCount int) Assessment {
	if CountTokens(answer) < q.MinAnswerTokens {
		return Assessment{Status: Insufficient, Feedback: shortAnswerFeedback}
	}

	prompt, err := v.prompts.Render("validation_prompt", map[string]interface{}{
		"Question":      q.Prompt,
		"Context":       q.Context,
		"RequiredInfo":  strings.Join(q.RequiredInfo, ", "),
		"AllowedValues": strings.Join(q.AllowedValues, ", "),
		"ValueKind":     string(q.ValueKind),
		"Answer":        answer,
	})
	if err != nil {
		return v.failed(q, err)
	}

	raw, err := v.llm.Chat(ctx, []llm.Message{{Role: llm.RoleSystem, Content: prompt}}, llm.WithTemperature(0.2), llm.WithJSON())
	if err != nil {
		return v.failed(q, err)
	}

	reply, err := parseValidationReply(raw)
	if err != nil {
		return v.failed(q, err)
	}

	status := Insufficient
	switch strings.ToLower(strings.TrimSpace(reply.Status)) {
	case "sufficient":
		status = Sufficient
	case "complete":
		status = Complete
	}

	return Assessment{
		Status:   status,
		Feedback: strings.TrimSpace(reply.Feedback),
		Value:    normalizeValue(q, reply.ExtractedValue),
	}
}

func (v *AnswerValidator) failed(q QuestionDefinition, err error) Assessment {
	if v.logger != nil {
		v.logger.Warn("ANSWER_VALIDATOR", "Validation fell back to insufficient", map[string]interface{}{
			"question_id": q.ID,
			"error":       err.Error(),
			"timeout":     llm.IsTimeout(err),
		})
	}
	reason := "the assistant is unavailable"
	switch {
	case llm.IsTimeout(err):
		reason = "the assistant timed out"
	case !errors.Is(err, llm.ErrUnderstanding):
		reason = "the reply could not be read"
	}
	return Assessment{Status: Insufficient, Feedback: fmt.Sprintf(unavailableFeedback, reason), Err: err}
}

// FollowUp picks follow_up_templates[followUpCount] when present and asks
// the understanding function for a contextual question otherwise.
func (v *AnswerValidator) FollowUp(ctx context.Context, q QuestionDefinition, answer string, followUpCount int) string {
	if followUpCount >= 0 && followUpCount < len(q.FollowUpTemplates) {
		return q.FollowUpTemplates[followUpCount]
	}

	prompt, err := v.prompts.Render("follow_up_prompt", map[string]interface{}{
		"Question": q.Prompt,
		"Context":  q.Context,
		"Answer":   answer,
		"Examples": strings.Join(q.ExamplesIfUnclear, ", "),
	})
	if err == nil {
		var text string
		text, err = v.llm.Chat(ctx, []llm.Message{{Role: llm.RoleSystem, Content: prompt}}, llm.WithTemperature(0.7))
		if err == nil {
			if text = strings.Trim(strings.TrimSpace(text), `"`); text != "" {
				return text
			}
		}
	}

	if v.logger != nil && err != nil {
		v.logger.Warn("ANSWER_VALIDATOR", "Follow-up generation failed, using generic prompt", map[string]interface{}{
			"question_id": q.ID,
			"error":       err.Error(),
		})
	}
	if len(q.ExamplesIfUnclear) > 0 {
		return fmt.Sprintf("%s For example: %s.", genericFollowUp, strings.Join(q.ExamplesIfUnclear, ", "))
	}
	return genericFollowUp
}

// parseValidationReply tolerates code fences and chatter around the JSON
// object.
func parseValidationReply(raw string) (validationReply, error) {
	var reply validationReply
	start := strings.Index(raw, "{")
	end := strings.LastIndex(raw, "}")
	if start < 0 || end <= start {
		return reply, errors.New("validation reply has no JSON object")
	}
	if err := json.Unmarshal([]byte(raw[start:end+1]), &reply); err != nil {
		return reply, fmt.Errorf("decode validation reply: %w", err)
	}
	return reply, nil
}
