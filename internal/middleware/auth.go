package middleware

import (
	"log/slog"
	"strings"

	"github.com/gofiber/fiber/v3"
)

// publicPrefixes are reachable without a token: liveness checks and
// the API docs.
var publicPrefixes = []string{"/api/v1/health", "/swagger"}

// Auth enforces Bearer-token authentication on the API surface. Token
// validation is mocked: any non-empty token passes and is stashed in
// the request locals. Swap in real verification here once an identity
// provider exists.
func Auth() fiber.Handler {
	return func(c fiber.Ctx) error {
		if isPublic(c.Path()) {
			return c.Next()
		}

		token, reason := bearerToken(c.Get("Authorization"))
		if token == "" {
			slog.Warn("rejected unauthenticated request", "path", c.Path(), "reason", reason)
			return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{"error": reason})
		}

		c.Locals("auth_token", token)
		return c.Next()
	}
}

func isPublic(path string) bool {
	for _, prefix := range publicPrefixes {
		if strings.HasPrefix(path, prefix) {
			return true
		}
	}
	return false
}

// bearerToken extracts the token from an Authorization header. An
// empty token comes back with the reason the header was unusable.
func bearerToken(header string) (token, reason string) {
	if header == "" {
		return "", "missing Authorization header"
	}
	if !strings.HasPrefix(header, "Bearer ") {
		return "", "invalid Authorization header format, expected 'Bearer <token>'"
	}
	token = strings.TrimPrefix(header, "Bearer ")
	if token == "" {
		return "", "empty bearer token"
	}
	return token, ""
}
