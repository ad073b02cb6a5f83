package middleware

import (
	"crypto/sha256"
	"crypto/subtle"
	"encoding/hex"
	"strings"

	"github.com/gofiber/fiber/v2"

	"github.com/saturnino-fabrica-de-software/rollcall/internal/domain"
)

// LocalAuthenticated is set to true once a request passed Auth.
const LocalAuthenticated = "authenticated"

// Auth checks the Bearer token against the SHA-256 hex digest in
// expectedHash. An empty expectedHash disables authentication.
func Auth(expectedHash string) fiber.Handler {
	expected := []byte(strings.ToLower(strings.TrimSpace(expectedHash)))

	return func(c *fiber.Ctx) error {
		if len(expected) == 0 {
			return c.Next()
		}

		apiKey := extractBearerToken(c)
		if apiKey == "" {
			// Browsers cannot set headers on websocket upgrades.
			apiKey = c.Query("api_key")
		}
		if apiKey == "" {
			return domain.ErrUnauthorized
		}

		if subtle.ConstantTimeCompare([]byte(HashAPIKey(apiKey)), expected) != 1 {
			return domain.ErrUnauthorized
		}

		c.Locals(LocalAuthenticated, true)
		return c.Next()
	}
}

// extractBearerToken extracts token from Authorization header
func extractBearerToken(c *fiber.Ctx) string {
	auth := c.Get("Authorization")
	if auth == "" {
		return ""
	}

	// Expected format: "Bearer <token>"
	parts := strings.SplitN(auth, " ", 2)
	if len(parts) != 2 || !strings.EqualFold(parts[0], "Bearer") {
		return ""
	}

	return strings.TrimSpace(parts[1])
}

// HashAPIKey returns the hex SHA-256 digest stored in API_KEY_HASH.
func HashAPIKey(apiKey string) string {
	hash := sha256.Sum256([]byte(apiKey))
	return hex.EncodeToString(hash[:])
}
