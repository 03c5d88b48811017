package model

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

type BrainstormSession struct {
	Id        uuid.UUID      `gorm:"type:uuid;primaryKey;default:gen_random_uuid()"`
	OwnerKey  string         `gorm:"type:varchar(80);not null;index"` // owner isolation
	Title     string         `gorm:"type:text;not null"`
	CreatedAt time.Time      `gorm:"autoCreateTime"`
	UpdatedAt time.Time      `gorm:"autoUpdateTime"`
	DeletedAt gorm.DeletedAt `gorm:"index"`
}

func (BrainstormSession) TableName() string {
	return "brainstorm_sessions"
}

type BrainstormMessage struct {
	Id                  uuid.UUID `gorm:"type:uuid;primaryKey;default:gen_random_uuid()"`
	BrainstormSessionId uuid.UUID `gorm:"type:uuid;not null;index"`
	Role                string    `gorm:"type:varchar(50);not null"`
	Chat                string    `gorm:"type:text;not null"`
	CreatedAt           time.Time `gorm:"autoCreateTime"`
}

func (BrainstormMessage) TableName() string {
	return "brainstorm_messages"
}
