// Package transfer exposes on-platform and off-platform transfers and bank withdrawals.
package transfer

import (
	"strings"

	"github.com/amirasaad/cashfake/pkg/config"
	"github.com/amirasaad/cashfake/pkg/middleware"
	authsvc "github.com/amirasaad/cashfake/pkg/service/auth"
	transfersvc "github.com/amirasaad/cashfake/pkg/service/transfer"
	"github.com/amirasaad/cashfake/webapi/common"
	"github.com/gofiber/fiber/v2"
)

const (
	// IdempotencyKeyHeader names a client-chosen key scoped to the signed-in account.
	IdempotencyKeyHeader = "Idempotency-Key"
	// ReplayedHeader is set to "true" when the response repeats an earlier result.
	ReplayedHeader = "Idempotent-Replayed"

	maxIdempotencyKey = 255
)

func Routes(app *fiber.App, engine *transfersvc.Engine, authSvc *authsvc.Service, cfg *config.App) {
	protected := middleware.JwtProtected(cfg.Auth.Jwt)
	app.Post("/send-money", protected, SendMoney(engine, authSvc))
	app.Post("/api/withdraw", protected, Withdraw(engine, authSvc))
}

// SendMoney moves money to an account number, an email or an off-platform payee.
// @Summary Send money
// @Description Debit the signed-in account. A destination that resolves to an account is credited; otherwise recipient_name is required and nothing is credited.
// @Tags transfer
// @Accept json
// @Produce json
// @Param Idempotency-Key header string false "Client-chosen key; a retry with the same key is not applied twice"
// @Param request body SendMoneyInput true "Transfer"
// @Success 200 {object} common.Response{data=MovementResponse}
// @Failure 400 {object} common.ProblemDetails
// @Failure 401 {object} common.ProblemDetails
// @Failure 403 {object} common.ProblemDetails
// @Failure 404 {object} common.ProblemDetails
// @Failure 409 {object} common.ProblemDetails
// @Failure 422 {object} common.ProblemDetails
// @Failure 503 {object} common.ProblemDetails
// @Router /send-money [post]
// @Security BearerAuth
func SendMoney(engine *transfersvc.Engine, authSvc *authsvc.Service) fiber.Handler {
	return func(c *fiber.Ctx) error {
		id, ok, err := common.RequireAccountID(c, authSvc)
		if !ok {
			return err
		}
		input, err := common.BindAndValidate[SendMoneyInput](c)
		if input == nil {
			return err
		}
		key, ok, err := idempotencyKey(c)
		if !ok {
			return err
		}
		res, err := engine.Transfer(c.UserContext(), transfersvc.TransferRequest{
			InitiatorID:      id,
			DestinationQuery: input.RecipientAccount,
			Amount:           string(input.Amount),
			Note:             input.Note,
			RecipientName:    input.RecipientName,
			IdempotencyKey:   key,
		})
		if err != nil {
			return common.ProblemDetailsJSON(c, "Transfer failed", err)
		}
		return respond(c, res, "Transfer completed")
	}
}

// Withdraw moves money from the signed-in account to its bank.
// @Summary Withdraw
// @Tags transfer
// @Accept json
// @Produce json
// @Param Idempotency-Key header string false "Client-chosen key; a retry with the same key is not applied twice"
// @Param request body WithdrawInput true "Withdrawal"
// @Success 200 {object} common.Response{data=MovementResponse}
// @Failure 400 {object} common.ProblemDetails
// @Failure 401 {object} common.ProblemDetails
// @Failure 403 {object} common.ProblemDetails
// @Failure 409 {object} common.ProblemDetails
// @Failure 422 {object} common.ProblemDetails
// @Failure 503 {object} common.ProblemDetails
// @Router /api/withdraw [post]
// @Security BearerAuth
func Withdraw(engine *transfersvc.Engine, authSvc *authsvc.Service) fiber.Handler {
	return func(c *fiber.Ctx) error {
		id, ok, err := common.RequireAccountID(c, authSvc)
		if !ok {
			return err
		}
		input, err := common.BindAndValidate[WithdrawInput](c)
		if input == nil {
			return err
		}
		key, ok, err := idempotencyKey(c)
		if !ok {
			return err
		}
		res, err := engine.Withdraw(c.UserContext(), transfersvc.WithdrawRequest{
			InitiatorID:    id,
			Amount:         string(input.Amount),
			IdempotencyKey: key,
		})
		if err != nil {
			return common.ProblemDetailsJSON(c, "Withdrawal failed", err)
		}
		return respond(c, res, "Withdrawal completed")
	}
}

func idempotencyKey(c *fiber.Ctx) (string, bool, error) {
	key := strings.TrimSpace(c.Get(IdempotencyKeyHeader))
	if len(key) > maxIdempotencyKey {
		return "", false, common.ErrorResponseJSON(c, fiber.StatusBadRequest, "Invalid Idempotency-Key",
			map[string]string{"idempotency_key": "Must be at most 255 characters"})
	}
	return key, true, nil
}

func respond(c *fiber.Ctx, res *transfersvc.TransferResult, msg string) error {
	if res.Replayed {
		c.Set(ReplayedHeader, "true")
	}
	return common.SuccessResponseJSON(c, fiber.StatusOK, msg, MovementResponse{
		Transaction: toView(res.Entry),
		UserBalance: res.Balance,
		Replayed:    res.Replayed,
	})
}
