package identity

import (
	"encoding/json"
	"strings"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseRoundTrip(t *testing.T) {
	uid := uuid.New()
	tests := []struct {
		name string
		id   Identity
	}{
		{"registered user", User(uid)},
		{"anonymous handle", Anonymous("anon_abc123")},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			parsed, err := Parse(tt.id.Key())
			require.NoError(t, err)
			assert.Equal(t, tt.id, parsed)
		})
	}
}

func TestParseRejectsGarbage(t *testing.T) {
	for _, key := range []string{"", "user", "user:not-a-uuid", "robot:r2d2", "anon:"} {
		_, err := Parse(key)
		assert.ErrorIs(t, err, ErrInvalidIdentity, key)
	}
}

func TestNewAnonymousIsExplicitVariant(t *testing.T) {
	a := NewAnonymous()
	b := NewAnonymous()

	assert.True(t, a.IsAnonymous())
	assert.NotEqual(t, a.Key(), b.Key())
	assert.True(t, strings.HasPrefix(a.Handle(), "anon_"))

	_, ok := a.UserID()
	assert.False(t, ok)
	assert.Nil(t, a.UserIDPtr())
}

func TestIdentityJSON(t *testing.T) {
	type payload struct {
		Who Identity `json:"who"`
	}
	in := payload{Who: User(uuid.New())}

	raw, err := json.Marshal(in)
	require.NoError(t, err)

	var out payload
	require.NoError(t, json.Unmarshal(raw, &out))
	assert.Equal(t, in.Who, out.Who)
}
