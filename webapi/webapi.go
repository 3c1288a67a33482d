// Package webapi provides the HTTP boundary of cashfake.
// It is organized into sub-packages for different concerns:
// - auth: registration and login
// - account: the signed-in account, lookup and recent contacts
// - transfer: send-money and withdraw
// - history: transaction list
// - admin: account administration
package webapi

import (
	"errors"
	"strings"

	"github.com/amirasaad/cashfake/pkg/app"
	accountweb "github.com/amirasaad/cashfake/webapi/account"
	adminweb "github.com/amirasaad/cashfake/webapi/admin"
	authweb "github.com/amirasaad/cashfake/webapi/auth"
	"github.com/amirasaad/cashfake/webapi/common"
	historyweb "github.com/amirasaad/cashfake/webapi/history"
	transferweb "github.com/amirasaad/cashfake/webapi/transfer"
	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/limiter"
	"github.com/gofiber/fiber/v2/middleware/logger"
	"github.com/gofiber/fiber/v2/middleware/recover"
	"github.com/gofiber/swagger"
)

// SetupApp Initialize Fiber with custom configuration
func SetupApp(a *app.App) *fiber.App {
	cfg := a.Config

	fiberApp := fiber.New(fiber.Config{
		AppName: "cashfake",
		ErrorHandler: func(c *fiber.Ctx, err error) error {
			title := "Internal Server Error"
			var fe *fiber.Error
			if errors.As(err, &fe) {
				title = fe.Message
			}
			return common.ProblemDetailsJSON(c, title, err)
		},
	})
	fiberApp.Get("/swagger/*", swagger.New(swagger.Config{
		TryItOutEnabled:      true,
		WithCredentials:      true,
		PersistAuthorization: true,
	}))

	// Keyed by the first X-Forwarded-For hop, then X-Real-IP, then the peer address
	if cfg.RateLimit != nil && cfg.RateLimit.MaxRequests > 0 {
		fiberApp.Use(limiter.New(limiter.Config{
			Max:          cfg.RateLimit.MaxRequests,
			Expiration:   cfg.RateLimit.Window,
			KeyGenerator: clientKey,
			LimitReached: func(c *fiber.Ctx) error {
				return common.ProblemDetailsJSON(
					c,
					"Too Many Requests",
					errors.New("rate limit exceeded"),
					"Rate limit exceeded",
					fiber.StatusTooManyRequests,
				)
			},
		}))
	}
	fiberApp.Use(recover.New())
	fiberApp.Use(logger.New())

	// Health check endpoint
	fiberApp.Get("/", func(c *fiber.Ctx) error {
		return c.SendString("cashfake API is running")
	})

	authweb.Routes(fiberApp, a.AccountService, a.AuthService, cfg)
	accountweb.Routes(fiberApp, a.AccountService, a.HistoryService, a.AuthService, cfg)
	transferweb.Routes(fiberApp, a.TransferEngine, a.AuthService, cfg)
	historyweb.Routes(fiberApp, a.HistoryService, a.AuthService, cfg)
	if cfg.Admin != nil {
		adminweb.Routes(fiberApp, a.AccountService, cfg.Admin.APIKey)
	}
	return fiberApp
}

func clientKey(c *fiber.Ctx) string {
	if forwardedFor := c.Get("X-Forwarded-For"); forwardedFor != "" {
		first, _, _ := strings.Cut(forwardedFor, ",")
		return strings.TrimSpace(first)
	}
	if realIP := c.Get("X-Real-IP"); realIP != "" {
		return realIP
	}
	return c.IP()
}
