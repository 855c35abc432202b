package gateway

import (
	"crypto/subtle"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/keyauth"

	"github.com/papercomputeco/chatgate/pkg/llm"
)

// authMiddleware enforces the configured bearer token. With no token
// configured every request passes.
func (s *Server) authMiddleware() fiber.Handler {
	token := []byte(s.config.AuthToken)

	return keyauth.New(keyauth.Config{
		Next: func(*fiber.Ctx) bool {
			return len(token) == 0
		},
		KeyLookup:  "header:" + fiber.HeaderAuthorization,
		AuthScheme: "Bearer",
		Validator: func(_ *fiber.Ctx, key string) (bool, error) {
			if subtle.ConstantTimeCompare([]byte(key), token) == 1 {
				return true, nil
			}
			return false, keyauth.ErrMissingOrMalformedAPIKey
		},
		ErrorHandler: func(c *fiber.Ctx, _ error) error {
			s.logger.Debug("rejected unauthenticated request", "path", c.Path())
			return c.Status(fiber.StatusUnauthorized).JSON(llm.ErrorResponse{Error: "unauthorized"})
		},
	})
}
