package middleware

import (
	"errors"
	"strings"

	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"

	"github.com/example/coimbatore-discount/internal/services"
	"github.com/example/coimbatore-discount/internal/utils"
)

const (
	userContextKey   = "currentUserID"
	claimsContextKey = "sessionClaims"
)

// AuthMiddleware validates the bearer session token and loads its claims
// into context. A missing token is 401; a bad or expired one is 403.
func AuthMiddleware(issuer *utils.SessionIssuer) fiber.Handler {
	return func(c *fiber.Ctx) error {
		authHeader := c.Get("Authorization")
		if authHeader == "" {
			return fiber.NewError(fiber.StatusUnauthorized, "Access denied. No token provided.")
		}

		parts := strings.SplitN(authHeader, " ", 2)
		if len(parts) != 2 || !strings.EqualFold(parts[0], "Bearer") || strings.TrimSpace(parts[1]) == "" {
			return fiber.NewError(fiber.StatusUnauthorized, "Access denied. No token provided.")
		}

		claims, err := issuer.Verify(strings.TrimSpace(parts[1]))
		if err != nil {
			if errors.Is(err, utils.ErrTokenExpired) {
				return fiber.NewError(fiber.StatusForbidden, "Token expired.")
			}
			return fiber.NewError(fiber.StatusForbidden, "Invalid token.")
		}

		userID, err := uuid.Parse(claims.ID)
		if err != nil {
			return fiber.NewError(fiber.StatusForbidden, "Invalid token.")
		}

		c.Locals(userContextKey, userID)
		c.Locals(claimsContextKey, claims)
		return c.Next()
	}
}

// GetCurrentUserID extracts the authenticated user ID from context.
func GetCurrentUserID(c *fiber.Ctx) (uuid.UUID, bool) {
	value := c.Locals(userContextKey)
	if value == nil {
		return uuid.Nil, false
	}

	if id, ok := value.(uuid.UUID); ok {
		return id, true
	}

	return uuid.Nil, false
}

// GetClaims returns the verified session claims.
func GetClaims(c *fiber.Ctx) (*utils.SessionClaims, bool) {
	claims, ok := c.Locals(claimsContextKey).(*utils.SessionClaims)
	return claims, ok && claims != nil
}

// CurrentCaller returns the authenticated identity as the services see it.
func CurrentCaller(c *fiber.Ctx) (services.Caller, bool) {
	id, ok := GetCurrentUserID(c)
	if !ok {
		return services.Caller{}, false
	}
	claims, ok := GetClaims(c)
	if !ok {
		return services.Caller{}, false
	}
	return services.Caller{ID: id, IsAdmin: claims.IsAdmin}, true
}
