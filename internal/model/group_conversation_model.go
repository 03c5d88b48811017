package model

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/datatypes"
)

type GroupConversation struct {
	Id            uuid.UUID      `gorm:"type:uuid;primaryKey;default:gen_random_uuid()"`
	RoomCode      string         `gorm:"type:varchar(16);not null;uniqueIndex"`
	Status        string         `gorm:"type:varchar(20);not null"`
	CreatorKey    string         `gorm:"type:varchar(80);not null"`
	Compatibility datatypes.JSON `gorm:"type:jsonb"`
	LastSequence  int64          `gorm:"not null;default:0"`
	CreatedAt     time.Time      `gorm:"autoCreateTime"`
	UpdatedAt     time.Time      `gorm:"autoUpdateTime"`
}

func (GroupConversation) TableName() string {
	return "group_conversations"
}

// GroupParticipant is unique per (conversation_id, identity_key).
type GroupParticipant struct {
	Id              uuid.UUID                               `gorm:"type:uuid;primaryKey;default:gen_random_uuid()"`
	ConversationId  uuid.UUID                               `gorm:"type:uuid;not null;uniqueIndex:idx_participant_conversation_identity,priority:1"`
	IdentityKey     string                                  `gorm:"type:varchar(80);not null;uniqueIndex:idx_participant_conversation_identity,priority:2"`
	DisplayName     string                                  `gorm:"type:varchar(100);not null"`
	Preferences     datatypes.JSONType[map[string]string]   `gorm:"type:jsonb;not null"`
	Constraints     datatypes.JSONType[map[string][]string] `gorm:"type:jsonb"`
	IndividualScore *float64
	IsActive        bool      `gorm:"not null;default:true"`
	JoinedAt        time.Time `gorm:"not null"`
	LastActiveAt    time.Time `gorm:"not null"`
}

func (GroupParticipant) TableName() string {
	return "group_participants"
}

// GroupMessage rows are append-only; (conversation_id, sequence) is unique.
type GroupMessage struct {
	Id             uuid.UUID         `gorm:"type:uuid;primaryKey;default:gen_random_uuid()"`
	ConversationId uuid.UUID         `gorm:"type:uuid;not null;uniqueIndex:idx_message_conversation_sequence,priority:1"`
	Sequence       int64             `gorm:"not null;uniqueIndex:idx_message_conversation_sequence,priority:2"`
	AuthorKey      *string           `gorm:"type:varchar(80)"`
	DisplayName    string            `gorm:"type:varchar(100)"`
	Body           string            `gorm:"type:text;not null"`
	Kind           string            `gorm:"type:varchar(20);not null"`
	Metadata       datatypes.JSONMap `gorm:"type:jsonb"`
	CreatedAt      time.Time         `gorm:"autoCreateTime"`
}

func (GroupMessage) TableName() string {
	return "group_messages"
}
