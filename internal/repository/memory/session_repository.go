package memory

import (
	"context"
	"time"

	"trawell-be/internal/repository/contract"
	"trawell-be/pkg/profiling"

	"github.com/patrickmn/go-cache"
)

// SessionRepository keeps profiling sessions in process memory. Suitable for
// a single instance only.
type SessionRepository struct {
	cache *cache.Cache
}

var _ contract.SessionCache = &SessionRepository{}

func NewSessionRepository(ttl time.Duration) *SessionRepository {
	if ttl <= 0 {
		ttl = time.Hour
	}
	// Purge expired items every 10 minutes
	c := cache.New(ttl, 10*time.Minute)
	return &SessionRepository{
		cache: c,
	}
}

func (r *SessionRepository) Save(_ context.Context, session *profiling.Session) error {
	r.cache.Set(session.ID, session.Clone(), cache.DefaultExpiration)
	return nil
}

func (r *SessionRepository) Get(_ context.Context, sessionID string) (*profiling.Session, bool, error) {
	if x, found := r.cache.Get(sessionID); found {
		return x.(*profiling.Session).Clone(), true, nil
	}
	return nil, false, nil
}

func (r *SessionRepository) Delete(_ context.Context, sessionID string) error {
	r.cache.Delete(sessionID)
	return nil
}

func (r *SessionRepository) Len() int {
	return r.cache.ItemCount()
}
