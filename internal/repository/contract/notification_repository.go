package contract

import (
	"context"
	"errors"

	"trawell-be/internal/entity"
	"trawell-be/internal/repository/specification"

	"github.com/google/uuid"
)

var ErrNotificationNotFound = errors.New("notification not found")

type NotificationRepository interface {
	Create(ctx context.Context, notification *entity.Notification) error
	FindAll(ctx context.Context, specs ...specification.Specification) ([]*entity.Notification, error)
	Count(ctx context.Context, specs ...specification.Specification) (int64, error)
	// MarkAsRead only touches rows owned by ownerKey.
	MarkAsRead(ctx context.Context, ownerKey string, id uuid.UUID) error
	MarkAllAsRead(ctx context.Context, ownerKey string) error
}
