package serverutils

import (
	"net/http/httptest"
	"testing"
	"time"

	"trawell-be/pkg/identity"

	"github.com/gofiber/fiber/v2"
	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const testSecret = "test-secret"

func signed(t *testing.T, secret string, claims jwt.MapClaims) string {
	t.Helper()
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	s, err := token.SignedString([]byte(secret))
	require.NoError(t, err)
	return s
}

func newIdentityApp(seen *identity.Identity) *fiber.App {
	app := fiber.New()
	app.Use(IdentityMiddleware(testSecret))
	app.Get("/", func(ctx *fiber.Ctx) error {
		*seen = IdentityFrom(ctx)
		return ctx.SendStatus(fiber.StatusNoContent)
	})
	return app
}

func TestIdentityMiddleware(t *testing.T) {
	userID := uuid.New()

	t.Run("BearerToken", func(t *testing.T) {
		var seen identity.Identity
		app := newIdentityApp(&seen)

		req := httptest.NewRequest("GET", "/", nil)
		req.Header.Set("Authorization", "Bearer "+signed(t, testSecret, jwt.MapClaims{
			"user_id": userID.String(),
			"exp":     time.Now().Add(time.Hour).Unix(),
		}))
		resp, err := app.Test(req)
		require.NoError(t, err)
		assert.Equal(t, fiber.StatusNoContent, resp.StatusCode)

		got, ok := seen.UserID()
		require.True(t, ok)
		assert.Equal(t, userID, got)
		assert.Empty(t, resp.Header.Get(AnonymousIDHeader))
	})

	t.Run("WrongSecret", func(t *testing.T) {
		var seen identity.Identity
		app := newIdentityApp(&seen)

		req := httptest.NewRequest("GET", "/", nil)
		req.Header.Set("Authorization", "Bearer "+signed(t, "other", jwt.MapClaims{"user_id": userID.String()}))
		resp, err := app.Test(req)
		require.NoError(t, err)
		assert.Equal(t, fiber.StatusUnauthorized, resp.StatusCode)
		assert.True(t, seen.IsZero())
	})

	t.Run("EchoedAnonymousHandle", func(t *testing.T) {
		var seen identity.Identity
		app := newIdentityApp(&seen)

		req := httptest.NewRequest("GET", "/", nil)
		req.Header.Set(AnonymousIDHeader, "anon_0123456789ab")
		resp, err := app.Test(req)
		require.NoError(t, err)

		assert.True(t, seen.IsAnonymous())
		assert.Equal(t, "anon_0123456789ab", seen.Handle())
		assert.Equal(t, "anon_0123456789ab", resp.Header.Get(AnonymousIDHeader))
	})

	t.Run("MintsHandle", func(t *testing.T) {
		var seen identity.Identity
		app := newIdentityApp(&seen)

		req := httptest.NewRequest("GET", "/", nil)
		req.Header.Set(AnonymousIDHeader, "not-a-handle")
		resp, err := app.Test(req)
		require.NoError(t, err)

		assert.True(t, seen.IsAnonymous())
		assert.NotEqual(t, "not-a-handle", seen.Handle())
		assert.Equal(t, seen.Handle(), resp.Header.Get(AnonymousIDHeader))
	})

	t.Run("TokenFromQuery", func(t *testing.T) {
		var seen identity.Identity
		app := newIdentityApp(&seen)

		token := signed(t, testSecret, jwt.MapClaims{"user_id": userID.String()})
		resp, err := app.Test(httptest.NewRequest("GET", "/?token="+token, nil))
		require.NoError(t, err)
		assert.Equal(t, fiber.StatusNoContent, resp.StatusCode)
		assert.False(t, seen.IsAnonymous())
	})
}
