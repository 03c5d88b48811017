package contract

import (
	"context"

	"trawell-be/internal/entity"
	"trawell-be/internal/repository/specification"
)

type UserProfileRepository interface {
	// Upsert replaces the owner's profile. A new profile clears the summary.
	Upsert(ctx context.Context, profile *entity.UserProfile) error
	UpdateSummary(ctx context.Context, ownerKey, summary string) error
	FindOne(ctx context.Context, specs ...specification.Specification) (*entity.UserProfile, error)
	FindAll(ctx context.Context, specs ...specification.Specification) ([]*entity.UserProfile, error)
}
