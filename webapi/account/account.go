// Package account serves the signed-in account, destination lookup and recent contacts.
package account

import (
	"github.com/amirasaad/cashfake/pkg/config"
	"github.com/amirasaad/cashfake/pkg/middleware"
	accountsvc "github.com/amirasaad/cashfake/pkg/service/account"
	authsvc "github.com/amirasaad/cashfake/pkg/service/auth"
	"github.com/amirasaad/cashfake/pkg/service/history"
	"github.com/amirasaad/cashfake/webapi/common"
	"github.com/gofiber/fiber/v2"
)

// ContactsResponse lists recent counterparties.
type ContactsResponse struct {
	Contacts []history.Counterparty `json:"contacts"`
}

func Routes(
	app *fiber.App,
	accountSvc *accountsvc.Service,
	historySvc *history.Service,
	authSvc *authsvc.Service,
	cfg *config.App,
) {
	limit := history.DefaultRecentLimit
	if cfg.Ledger != nil && cfg.Ledger.RecentContacts > 0 {
		limit = cfg.Ledger.RecentContacts
	}
	group := app.Group("/api/user", middleware.JwtProtected(cfg.Auth.Jwt))
	group.Get("/", GetAccount(accountSvc, authSvc))
	group.Get("/lookup", Lookup(accountSvc, authSvc))
	group.Get("/recent-contacts", RecentContacts(historySvc, authSvc, limit))
}

// GetAccount returns the signed-in account.
// @Summary Current account
// @Description Profile, account number and balance of the signed-in account
// @Tags account
// @Produce json
// @Success 200 {object} common.Response{data=account.View}
// @Failure 401 {object} common.ProblemDetails
// @Failure 404 {object} common.ProblemDetails
// @Router /api/user [get]
// @Security BearerAuth
func GetAccount(accountSvc *accountsvc.Service, authSvc *authsvc.Service) fiber.Handler {
	return func(c *fiber.Ctx) error {
		id, ok, err := common.RequireAccountID(c, authSvc)
		if !ok {
			return err
		}
		view, err := accountSvc.GetAccount(c.UserContext(), id)
		if err != nil {
			return common.ProblemDetailsJSON(c, "Account unavailable", err)
		}
		return common.SuccessResponseJSON(c, fiber.StatusOK, "Account fetched", view)
	}
}

// Lookup resolves an account number or email for display before a transfer.
// @Summary Lookup destination
// @Tags account
// @Produce json
// @Param query query string true "Account number or email"
// @Success 200 {object} common.Response{data=accountsvc.LookupResult}
// @Failure 400 {object} common.ProblemDetails
// @Failure 401 {object} common.ProblemDetails
// @Router /api/user/lookup [get]
// @Security BearerAuth
func Lookup(accountSvc *accountsvc.Service, authSvc *authsvc.Service) fiber.Handler {
	return func(c *fiber.Ctx) error {
		if _, ok, err := common.RequireAccountID(c, authSvc); !ok {
			return err
		}
		res, err := accountSvc.Lookup(c.UserContext(), c.Query("query"))
		if err != nil {
			return common.ProblemDetailsJSON(c, "Lookup failed", err)
		}
		return common.SuccessResponseJSON(c, fiber.StatusOK, "Lookup completed", res)
	}
}

// RecentContacts lists the latest distinct recipients of the signed-in account.
// @Summary Recent contacts
// @Tags account
// @Produce json
// @Success 200 {object} common.Response{data=ContactsResponse}
// @Failure 401 {object} common.ProblemDetails
// @Router /api/user/recent-contacts [get]
// @Security BearerAuth
func RecentContacts(historySvc *history.Service, authSvc *authsvc.Service, limit int) fiber.Handler {
	return func(c *fiber.Ctx) error {
		id, ok, err := common.RequireAccountID(c, authSvc)
		if !ok {
			return err
		}
		contacts, err := historySvc.RecentCounterparties(c.UserContext(), id, limit)
		if err != nil {
			return common.ProblemDetailsJSON(c, "Contacts unavailable", err)
		}
		return common.SuccessResponseJSON(c, fiber.StatusOK, "Recent contacts", ContactsResponse{Contacts: contacts})
	}
}
