package contract

import (
	"context"
	"time"

	"trawell-be/internal/entity"
	"trawell-be/internal/repository/specification"
	"trawell-be/pkg/compatibility"

	"github.com/google/uuid"
)

type GroupConversationRepository interface {
	// Create fails with a unique violation when the room code is taken.
	Create(ctx context.Context, conversation *entity.GroupConversation) error
	UpdateStatus(ctx context.Context, id uuid.UUID, status string) error
	UpdateCompatibility(ctx context.Context, id uuid.UUID, report *compatibility.Report) error
	AdvanceSequence(ctx context.Context, id uuid.UUID, sequence int64) error
	FindOne(ctx context.Context, specs ...specification.Specification) (*entity.GroupConversation, error)
	FindAll(ctx context.Context, specs ...specification.Specification) ([]*entity.GroupConversation, error)
}

type GroupParticipantRepository interface {
	// Upsert rejoins an existing participant instead of duplicating it.
	Upsert(ctx context.Context, participant *entity.GroupParticipant) error
	SetActive(ctx context.Context, conversationID uuid.UUID, identityKey string, active bool, at time.Time) error
	UpdateScores(ctx context.Context, conversationID uuid.UUID, scores map[string]float64) error
	FindOne(ctx context.Context, specs ...specification.Specification) (*entity.GroupParticipant, error)
	FindAll(ctx context.Context, specs ...specification.Specification) ([]*entity.GroupParticipant, error)
	Count(ctx context.Context, specs ...specification.Specification) (int64, error)
}

type GroupMessageRepository interface {
	Append(ctx context.Context, message *entity.GroupMessage) error
	// ListRecent returns up to limit newest messages, oldest first.
	ListRecent(ctx context.Context, conversationID uuid.UUID, limit int) ([]*entity.GroupMessage, error)
	FindAll(ctx context.Context, specs ...specification.Specification) ([]*entity.GroupMessage, error)
}
