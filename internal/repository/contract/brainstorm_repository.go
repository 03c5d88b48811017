package contract

import (
	"context"

	"trawell-be/internal/entity"
	"trawell-be/internal/repository/specification"

	"github.com/google/uuid"
)

type BrainstormSessionRepository interface {
	Create(ctx context.Context, session *entity.BrainstormSession) error
	Update(ctx context.Context, session *entity.BrainstormSession) error
	Delete(ctx context.Context, id uuid.UUID) error
	FindOne(ctx context.Context, specs ...specification.Specification) (*entity.BrainstormSession, error)
	FindAll(ctx context.Context, specs ...specification.Specification) ([]*entity.BrainstormSession, error)
	Count(ctx context.Context, specs ...specification.Specification) (int64, error)
}

type BrainstormMessageRepository interface {
	Create(ctx context.Context, message *entity.BrainstormMessage) error
	FindAll(ctx context.Context, specs ...specification.Specification) ([]*entity.BrainstormMessage, error)
}
