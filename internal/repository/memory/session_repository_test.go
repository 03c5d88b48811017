package memory

import (
	"context"
	"testing"
	"time"

	"trawell-be/pkg/identity"
	"trawell-be/pkg/profiling"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testSession() *profiling.Session {
	return &profiling.Session{
		ID:     "prof_abc123",
		Owner:  identity.Anonymous("anon_tester"),
		Status: profiling.StatusInProgress,
		Responses: []*profiling.Response{{
			QuestionID: "dietary_restrictions",
			Status:     profiling.Sufficient,
			Value:      profiling.ListValue([]string{"vegan"}),
		}},
		CreatedAt: time.Now(),
	}
}

func TestSessionRepository_RoundTrip(t *testing.T) {
	ctx := context.Background()
	repo := NewSessionRepository(time.Minute)

	_, found, err := repo.Get(ctx, "prof_abc123")
	require.NoError(t, err)
	assert.False(t, found)

	s := testSession()
	require.NoError(t, repo.Save(ctx, s))

	got, found, err := repo.Get(ctx, s.ID)
	require.NoError(t, err)
	require.True(t, found)
	assert.Equal(t, s.Owner.Key(), got.Owner.Key())
	assert.Equal(t, []string{"vegan"}, got.Responses[0].Value.List)

	require.NoError(t, repo.Delete(ctx, s.ID))
	assert.Equal(t, 0, repo.Len())
}

func TestSessionRepository_ReturnsCopies(t *testing.T) {
	ctx := context.Background()
	repo := NewSessionRepository(time.Minute)
	s := testSession()
	require.NoError(t, repo.Save(ctx, s))

	// Mutating the caller's value after Save must not leak into the cache.
	s.Responses[0].Value.List[0] = "changed"
	s.CurrentIndex = 7

	got, _, err := repo.Get(ctx, s.ID)
	require.NoError(t, err)
	assert.Equal(t, "vegan", got.Responses[0].Value.List[0])
	assert.Equal(t, 0, got.CurrentIndex)

	got.Status = profiling.StatusAbandoned
	again, _, _ := repo.Get(ctx, s.ID)
	assert.Equal(t, profiling.StatusInProgress, again.Status)
}
