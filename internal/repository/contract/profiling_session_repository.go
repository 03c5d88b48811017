package contract

import (
	"context"

	"trawell-be/internal/entity"
	"trawell-be/internal/repository/specification"
)

type ProfilingSessionRepository interface {
	Create(ctx context.Context, session *entity.ProfilingSession) error
	// Update writes the session row only; answers go through
	// QuestionResponseRepository.
	Update(ctx context.Context, session *entity.ProfilingSession) error
	FindOne(ctx context.Context, specs ...specification.Specification) (*entity.ProfilingSession, error)
	FindAll(ctx context.Context, specs ...specification.Specification) ([]*entity.ProfilingSession, error)
	Count(ctx context.Context, specs ...specification.Specification) (int64, error)
}

type QuestionResponseRepository interface {
	// Upsert keeps one row per (session, question).
	Upsert(ctx context.Context, response *entity.QuestionResponse) error
	FindAll(ctx context.Context, specs ...specification.Specification) ([]*entity.QuestionResponse, error)
}
