package profiling

import (
	"strings"
	"time"

	"trawell-be/pkg/identity"

	"github.com/google/uuid"
)

type Status string

const (
	StatusNotStarted Status = "not_started"
	StatusInProgress Status = "in_progress"
	StatusCompleted  Status = "completed"
	StatusAbandoned  Status = "abandoned"
)

func (s Status) Terminal() bool {
	return s == StatusCompleted || s == StatusAbandoned
}

type ValidationStatus string

const (
	NotAnswered  ValidationStatus = "not_answered"
	Insufficient ValidationStatus = "insufficient"
	Sufficient   ValidationStatus = "sufficient"
	Complete     ValidationStatus = "complete"
)

// Accepted reports whether the status counts towards completeness.
func (s ValidationStatus) Accepted() bool {
	return s == Sufficient || s == Complete
}

// Response is the latest attempt at one question.
type Response struct {
	QuestionID    string           `json:"question_id"`
	RawAnswer     string           `json:"raw_answer"`
	Status        ValidationStatus `json:"validation_status"`
	Value         ExtractedValue   `json:"extracted_value"`
	FollowUpCount int              `json:"follow_up_count"`
	AnsweredAt    time.Time        `json:"answered_at"`
}

// Session is one profiling attempt. It is mutated only through Machine.
type Session struct {
	ID           string            `json:"session_id"`
	Owner        identity.Identity `json:"owner"`
	Status       Status            `json:"status"`
	CurrentIndex int               `json:"current_question_index"`
	// Responses is kept in answer order; ids are unique.
	Responses    []*Response `json:"responses"`
	Completeness float64     `json:"completeness"`
	CreatedAt    time.Time   `json:"created_at"`
	UpdatedAt    time.Time   `json:"updated_at"`
	CompletedAt  *time.Time  `json:"completed_at,omitempty"`
}

// NewSessionID returns an opaque "prof_" token.
func NewSessionID() string {
	raw := strings.ReplaceAll(uuid.NewString(), "-", "")
	return "prof_" + raw[:12]
}

func (s *Session) Response(questionID string) (*Response, bool) {
	for _, r := range s.Responses {
		if r.QuestionID == questionID {
			return r, true
		}
	}
	return nil, false
}

// Clone returns a deep copy so callers can mutate without touching a
// cached original.
func (s *Session) Clone() *Session {
	if s == nil {
		return nil
	}
	out := *s
	out.Responses = make([]*Response, len(s.Responses))
	for i, r := range s.Responses {
		rc := *r
		rc.Value.List = append([]string(nil), r.Value.List...)
		if r.Value.Kind == KindList && rc.Value.List == nil {
			rc.Value.List = []string{}
		}
		out.Responses[i] = &rc
	}
	if s.CompletedAt != nil {
		t := *s.CompletedAt
		out.CompletedAt = &t
	}
	return &out
}

// Progress summarises where a session stands.
type Progress struct {
	Current           int     `json:"current"`
	Total             int     `json:"total"`
	Completeness      float64 `json:"completeness"`
	CurrentQuestionID string  `json:"current_question_id,omitempty"`
}
