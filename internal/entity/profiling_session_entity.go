package entity

import (
	"time"

	"github.com/google/uuid"
)

// ProfilingSession is the persisted header of a profiling attempt. Its
// responses live in QuestionResponse rows.
type ProfilingSession struct {
	Id                   string
	OwnerKey             string
	UserId               *uuid.UUID
	Status               string
	CurrentQuestionIndex int
	Completeness         float64
	Responses            []*QuestionResponse
	CreatedAt            time.Time
	UpdatedAt            *time.Time
	CompletedAt          *time.Time
}

type QuestionResponse struct {
	Id               uuid.UUID
	SessionId        string
	QuestionId       string
	Position         int
	RawAnswer        string
	ValidationStatus string
	ValueKind        string
	ValueText        string
	ValueList        []string
	FollowUpCount    int
	AnsweredAt       time.Time
}
