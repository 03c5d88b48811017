package model

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/datatypes"
)

type ProfilingSession struct {
	Id                   string     `gorm:"type:varchar(32);primaryKey"`
	OwnerKey             string     `gorm:"type:varchar(80);not null;index:idx_profiling_owner_created,priority:1"`
	UserId               *uuid.UUID `gorm:"type:uuid;index"`
	Status               string     `gorm:"type:varchar(20);not null;index"`
	CurrentQuestionIndex int        `gorm:"not null;default:0"`
	Completeness         float64    `gorm:"not null;default:0"`
	CreatedAt            time.Time  `gorm:"autoCreateTime;index:idx_profiling_owner_created,priority:2"`
	UpdatedAt            time.Time  `gorm:"autoUpdateTime"`
	CompletedAt          *time.Time

	Responses []QuestionResponse `gorm:"foreignKey:SessionId;references:Id;constraint:OnDelete:CASCADE"`
}

func (ProfilingSession) TableName() string {
	return "profiling_sessions"
}

// QuestionResponse is keyed by (session_id, question_id).
type QuestionResponse struct {
	Id               uuid.UUID                   `gorm:"type:uuid;primaryKey;default:gen_random_uuid()"`
	SessionId        string                      `gorm:"type:varchar(32);not null;uniqueIndex:idx_response_session_question,priority:1"`
	QuestionId       string                      `gorm:"type:varchar(64);not null;uniqueIndex:idx_response_session_question,priority:2"`
	Position         int                         `gorm:"not null"`
	RawAnswer        string                      `gorm:"type:text;not null"`
	ValidationStatus string                      `gorm:"type:varchar(20);not null"`
	ValueKind        string                      `gorm:"type:varchar(10)"`
	ValueText        string                      `gorm:"type:text"`
	ValueList        datatypes.JSONSlice[string] `gorm:"type:jsonb"`
	FollowUpCount    int                         `gorm:"not null;default:0"`
	AnsweredAt       time.Time                   `gorm:"not null"`
}

func (QuestionResponse) TableName() string {
	return "question_responses"
}
