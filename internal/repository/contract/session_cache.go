package contract

import (
	"context"

	"trawell-be/pkg/profiling"
)

// SessionCache is the fast ephemeral store for in-flight profiling sessions.
// Implementations return copies, never the stored instance.
type SessionCache interface {
	Get(ctx context.Context, sessionID string) (*profiling.Session, bool, error)
	Save(ctx context.Context, session *profiling.Session) error
	Delete(ctx context.Context, sessionID string) error
}
