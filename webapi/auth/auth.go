package auth

import (
	"time"

	"github.com/amirasaad/cashfake/pkg/config"
	"github.com/amirasaad/cashfake/pkg/domain/account"
	"github.com/amirasaad/cashfake/pkg/middleware"
	accountsvc "github.com/amirasaad/cashfake/pkg/service/account"
	authsvc "github.com/amirasaad/cashfake/pkg/service/auth"
	"github.com/amirasaad/cashfake/webapi/common"
	"github.com/gofiber/fiber/v2"
)

func Routes(app *fiber.App, accountSvc *accountsvc.Service, authSvc *authsvc.Service, cfg *config.App) {
	group := app.Group("/api/auth")
	group.Post("/register", Register(accountSvc, authSvc, sessionTTL(cfg)))
	group.Post("/login", Login(authSvc, sessionTTL(cfg)))
}

func sessionTTL(cfg *config.App) time.Duration {
	if cfg != nil && cfg.Auth != nil && cfg.Auth.Jwt != nil && cfg.Auth.Jwt.Expiry > 0 {
		return cfg.Auth.Jwt.Expiry
	}
	return 72 * time.Hour
}

// Register creates an account and starts a session for it.
// @Summary Register
// @Description Create an account with a zero balance and a new account number
// @Tags auth
// @Accept json
// @Produce json
// @Param request body RegisterInput true "Registration data"
// @Success 201 {object} common.Response{data=SessionResponse}
// @Failure 400 {object} common.ProblemDetails
// @Failure 409 {object} common.ProblemDetails
// @Failure 429 {object} common.ProblemDetails
// @Failure 503 {object} common.ProblemDetails
// @Router /api/auth/register [post]
func Register(accountSvc *accountsvc.Service, authSvc *authsvc.Service, ttl time.Duration) fiber.Handler {
	return func(c *fiber.Ctx) error {
		input, err := common.BindAndValidate[RegisterInput](c)
		if input == nil {
			return err
		}
		a, err := accountSvc.Register(c.UserContext(), accountsvc.RegisterInput{
			FullName:        input.FullName,
			Email:           input.Email,
			Password:        input.Password,
			ConfirmPassword: input.Password2,
		})
		if err != nil {
			return common.ProblemDetailsJSON(c, "Registration failed", err)
		}
		return startSession(c, authSvc, a, ttl, fiber.StatusCreated, "Account created")
	}
}

// Login handles authentication and returns a JWT token.
// @Summary Login
// @Description Authenticate with email and password
// @Tags auth
// @Accept json
// @Produce json
// @Param request body LoginInput true "Login credentials"
// @Success 200 {object} common.Response{data=SessionResponse}
// @Failure 400 {object} common.ProblemDetails
// @Failure 403 {object} common.ProblemDetails
// @Failure 429 {object} common.ProblemDetails
// @Router /api/auth/login [post]
func Login(authSvc *authsvc.Service, ttl time.Duration) fiber.Handler {
	return func(c *fiber.Ctx) error {
		input, err := common.BindAndValidate[LoginInput](c)
		if input == nil {
			return err
		}
		a, err := authSvc.Login(c.UserContext(), input.Email, input.Password)
		if err != nil {
			return common.ProblemDetailsJSON(c, "Login failed", err)
		}
		return startSession(c, authSvc, a, ttl, fiber.StatusOK, "Success login")
	}
}

func startSession(c *fiber.Ctx, authSvc *authsvc.Service, a *account.Account, ttl time.Duration, status int, msg string) error {
	token, err := authSvc.GenerateToken(c.UserContext(), a)
	if err != nil {
		return common.ProblemDetailsJSON(c, "Internal Server Error", err)
	}
	if token != "" {
		c.Cookie(&fiber.Cookie{
			Name:     middleware.SessionCookie,
			Value:    token,
			Expires:  time.Now().Add(ttl),
			HTTPOnly: true,
			SameSite: fiber.CookieSameSiteLaxMode,
		})
	}
	return common.SuccessResponseJSON(c, status, msg, SessionResponse{User: a.View(), Token: token})
}
