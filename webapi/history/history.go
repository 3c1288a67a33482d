// Package history serves the transaction list of the signed-in account.
package history

import (
	"github.com/amirasaad/cashfake/pkg/config"
	"github.com/amirasaad/cashfake/pkg/middleware"
	authsvc "github.com/amirasaad/cashfake/pkg/service/auth"
	historysvc "github.com/amirasaad/cashfake/pkg/service/history"
	"github.com/amirasaad/cashfake/webapi/common"
	"github.com/gofiber/fiber/v2"
)

// TransactionsResponse wraps the history list.
type TransactionsResponse struct {
	Transactions []historysvc.EntryView `json:"transactions"`
}

func Routes(app *fiber.App, historySvc *historysvc.Service, authSvc *authsvc.Service, cfg *config.App) {
	app.Get("/api/transactions", middleware.JwtProtected(cfg.Auth.Jwt), Transactions(historySvc, authSvc))
}

// Transactions lists every entry the account sent or received, newest first.
// @Summary Transaction history
// @Tags history
// @Produce json
// @Success 200 {object} common.Response{data=TransactionsResponse}
// @Failure 401 {object} common.ProblemDetails
// @Failure 404 {object} common.ProblemDetails
// @Failure 503 {object} common.ProblemDetails
// @Router /api/transactions [get]
// @Security BearerAuth
func Transactions(historySvc *historysvc.Service, authSvc *authsvc.Service) fiber.Handler {
	return func(c *fiber.Ctx) error {
		id, ok, err := common.RequireAccountID(c, authSvc)
		if !ok {
			return err
		}
		seq, err := historySvc.History(c.UserContext(), id)
		if err != nil {
			return common.ProblemDetailsJSON(c, "History unavailable", err)
		}
		views, err := historysvc.Collect(seq)
		if err != nil {
			return common.ProblemDetailsJSON(c, "History unavailable", err)
		}
		return common.SuccessResponseJSON(c, fiber.StatusOK, "Transactions fetched", TransactionsResponse{Transactions: views})
	}
}
