// Package middleware holds the Fiber guards for session and admin routes.
package middleware

import (
	"crypto/subtle"
	"strings"

	"github.com/amirasaad/cashfake/pkg/config"
	jwtware "github.com/gofiber/contrib/jwt"
	"github.com/gofiber/fiber/v2"
)

// AdminKeyHeader carries the administration key.
const AdminKeyHeader = "X-Admin-Key"

// SessionCookie is the cookie a login sets alongside the bearer token.
const SessionCookie = "jwt"

const malformedJWT = "missing or malformed JWT"

// JwtProtected verifies the bearer token or session cookie and stores it in Locals("user").
func JwtProtected(cfg *config.Jwt) fiber.Handler {
	return jwtware.New(jwtware.Config{
		SigningKey:   jwtware.SigningKey{Key: []byte(cfg.Secret)},
		TokenLookup:  "header:Authorization,cookie:" + SessionCookie,
		ErrorHandler: jwtError,
	})
}

func jwtError(c *fiber.Ctx, err error) error {
	c.Set(fiber.HeaderContentType, "application/problem+json")
	if strings.EqualFold(err.Error(), malformedJWT) {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"type": "about:blank", "title": "Bad Request", "status": fiber.StatusBadRequest,
			"detail": "Missing or malformed JWT",
		})
	}
	return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{
		"type": "about:blank", "title": "Unauthorized", "status": fiber.StatusUnauthorized,
		"detail": "Invalid or expired JWT",
	})
}

// AdminProtected admits requests whose X-Admin-Key header equals key.
func AdminProtected(key string) fiber.Handler {
	want := []byte(key)
	return func(c *fiber.Ctx) error {
		got := []byte(c.Get(AdminKeyHeader))
		if len(want) == 0 || subtle.ConstantTimeCompare(got, want) != 1 {
			c.Set(fiber.HeaderContentType, "application/problem+json")
			return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{
				"type": "about:blank", "title": "Unauthorized", "status": fiber.StatusUnauthorized,
				"detail": "Admin key required",
			})
		}
		return c.Next()
	}
}
