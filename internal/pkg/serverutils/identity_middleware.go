package serverutils

import (
	"errors"
	"strings"

	"trawell-be/pkg/identity"

	"github.com/gofiber/fiber/v2"
	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
)

const (
	LocalIdentity     = "identity"
	AnonymousIDHeader = "X-Anonymous-Id"
)

var errInvalidToken = errors.New("invalid token")

// ParseUserToken validates an HS256 bearer token and returns the user it
// names in its user_id claim.
func ParseUserToken(tokenStr, secret string) (identity.Identity, error) {
	token, err := jwt.Parse(tokenStr, func(t *jwt.Token) (interface{}, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, errInvalidToken
		}
		return []byte(secret), nil
	})
	if err != nil || !token.Valid {
		return identity.Identity{}, errInvalidToken
	}

	claims, ok := token.Claims.(jwt.MapClaims)
	if !ok {
		return identity.Identity{}, errInvalidToken
	}
	userIDStr, _ := claims["user_id"].(string)
	userID, err := uuid.Parse(userIDStr)
	if err != nil {
		return identity.Identity{}, errInvalidToken
	}
	return identity.User(userID), nil
}

func bearerToken(ctx *fiber.Ctx) string {
	authHeader := ctx.Get("Authorization")
	if len(authHeader) > 7 && authHeader[:7] == "Bearer " {
		return authHeader[7:]
	}
	// Browsers cannot set headers on a websocket handshake.
	return ctx.Query("token")
}

// IdentityMiddleware resolves the caller. A bearer token makes a registered
// identity; without one the caller is anonymous, keyed by the
// X-Anonymous-Id header (or anon_id query) or a freshly minted handle that
// is echoed back in the same header.
func IdentityMiddleware(secret string) fiber.Handler {
	return func(ctx *fiber.Ctx) error {
		if tokenStr := bearerToken(ctx); tokenStr != "" {
			id, err := ParseUserToken(tokenStr, secret)
			if err != nil {
				return ctx.Status(fiber.StatusUnauthorized).JSON(ErrorResponse(fiber.StatusUnauthorized, "Invalid token"))
			}
			ctx.Locals(LocalIdentity, id)
			return ctx.Next()
		}

		handle := ctx.Get(AnonymousIDHeader)
		if handle == "" {
			handle = ctx.Query("anon_id")
		}
		var id identity.Identity
		if strings.HasPrefix(handle, "anon_") && len(handle) <= 64 {
			id = identity.Anonymous(handle)
		} else {
			id = identity.NewAnonymous()
		}
		ctx.Set(AnonymousIDHeader, id.Handle())
		ctx.Locals(LocalIdentity, id)
		return ctx.Next()
	}
}

// IdentityFrom reads what IdentityMiddleware stored.
func IdentityFrom(ctx *fiber.Ctx) identity.Identity {
	id, _ := ctx.Locals(LocalIdentity).(identity.Identity)
	return id
}
