package entity

import (
	"time"

	"trawell-be/pkg/compatibility"

	"github.com/google/uuid"
)

type GroupConversation struct {
	Id            uuid.UUID
	RoomCode      string
	Status        string
	CreatorKey    string
	Compatibility *compatibility.Report
	LastSequence  int64
	CreatedAt     time.Time
	UpdatedAt     *time.Time
}

type GroupParticipant struct {
	Id              uuid.UUID
	ConversationId  uuid.UUID
	IdentityKey     string
	DisplayName     string
	Preferences     map[string]string
	Constraints     map[string][]string
	IndividualScore *float64
	IsActive        bool
	JoinedAt        time.Time
	LastActiveAt    time.Time
}

type GroupMessage struct {
	Id             uuid.UUID
	ConversationId uuid.UUID
	Sequence       int64
	AuthorKey      *string
	DisplayName    string
	Body           string
	Kind           string
	Metadata       map[string]interface{}
	CreatedAt      time.Time
}
