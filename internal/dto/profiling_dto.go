package dto

import (
	"time"

	"trawell-be/pkg/profiling"
)

type QuestionCatalogResponse struct {
	Questions   []profiling.QuestionDefinition `json:"questions"`
	CriticalIds []string                       `json:"critical_ids"`
	Total       int                            `json:"total"`
	Intro       string                         `json:"intro"`
}

type StartProfilingRequest struct {
	// Resume returns the caller's active session instead of failing.
	Resume bool `json:"resume"`
}

type ProfilingSessionResponse struct {
	SessionId       string                        `json:"session_id"`
	Owner           string                        `json:"owner"`
	Status          string                        `json:"status"`
	CurrentQuestion *profiling.QuestionDefinition `json:"current_question,omitempty"`
	Progress        profiling.Progress            `json:"progress"`
	CanComplete     bool                          `json:"can_complete"`
	IsComplete      bool                          `json:"is_complete"`
	Responses       []*profiling.Response         `json:"responses"`
	Intro           string                        `json:"intro,omitempty"`
	Resumed         bool                          `json:"resumed,omitempty"`
	CreatedAt       time.Time                     `json:"created_at"`
	CompletedAt     *time.Time                    `json:"completed_at,omitempty"`
}

type SubmitAnswerRequest struct {
	QuestionId string `json:"question_id" validate:"required,max=64"`
	Answer     string `json:"answer" validate:"required,max=4000"`
}

type SubmitAnswerResponse struct {
	Outcome      profiling.Outcome             `json:"outcome"`
	NextQuestion *profiling.QuestionDefinition `json:"next_question,omitempty"`
	Progress     profiling.Progress            `json:"progress"`
	Status       string                        `json:"status"`
	Profile      *ProfileResponse              `json:"profile,omitempty"`
	Message      string                        `json:"message,omitempty"`
	// Stale is set when the answer targeted a question that is no longer
	// pending; NextQuestion repeats the current one.
	Stale        bool                          `json:"stale,omitempty"`
}

type CompleteProfilingResponse struct {
	Profile *ProfileResponse `json:"profile"`
	Message string           `json:"message"`
}
