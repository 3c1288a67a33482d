// Package admin serves account administration behind a static API key.
package admin

import (
	"github.com/amirasaad/cashfake/pkg/middleware"
	accountsvc "github.com/amirasaad/cashfake/pkg/service/account"
	"github.com/amirasaad/cashfake/webapi/common"
	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"
)

// ListQuery selects a listing page.
type ListQuery struct {
	Status  string `query:"status" validate:"omitempty,oneof=all active suspended"`
	Sort    string `query:"sort" validate:"omitempty,oneof=createdAt fullName"`
	Order   string `query:"order" validate:"omitempty,oneof=asc desc"`
	Page    int    `query:"page" validate:"gte=0"`
	PerPage int    `query:"perPage" validate:"gte=0,lte=500"`
}

// Routes mounts the admin group. Nothing is mounted without a key.
func Routes(app *fiber.App, accountSvc *accountsvc.Service, apiKey string) {
	if apiKey == "" {
		return
	}
	group := app.Group("/admin", middleware.AdminProtected(apiKey))
	group.Get("/accounts", ListAccounts(accountSvc))
	group.Get("/accounts/:id", GetAccount(accountSvc))
	group.Post("/accounts/:id/suspend", ToggleSuspension(accountSvc))
}

// ListAccounts pages through accounts.
// @Summary List accounts
// @Tags admin
// @Produce json
// @Param status query string false "all, active or suspended"
// @Param sort query string false "createdAt or fullName"
// @Param order query string false "asc or desc"
// @Param page query int false "1-based page"
// @Param perPage query int false "page size, default 100"
// @Success 200 {object} common.Response{data=accountsvc.Page}
// @Failure 400 {object} common.ProblemDetails
// @Failure 401 {object} common.ProblemDetails
// @Router /admin/accounts [get]
// @Security AdminKey
func ListAccounts(accountSvc *accountsvc.Service) fiber.Handler {
	return func(c *fiber.Ctx) error {
		q, err := common.BindQuery[ListQuery](c)
		if q == nil {
			return err
		}
		page, err := accountSvc.ListAccounts(c.UserContext(), accountsvc.ListFilter{
			Status:  q.Status,
			Sort:    q.Sort,
			Order:   q.Order,
			Page:    q.Page,
			PerPage: q.PerPage,
		})
		if err != nil {
			return common.ProblemDetailsJSON(c, "Listing failed", err)
		}
		return common.SuccessResponseJSON(c, fiber.StatusOK, "Accounts fetched", page)
	}
}

// GetAccount returns one account.
// @Summary View account
// @Tags admin
// @Produce json
// @Param id path string true "Account ID"
// @Success 200 {object} common.Response{data=account.View}
// @Failure 400 {object} common.ProblemDetails
// @Failure 401 {object} common.ProblemDetails
// @Failure 404 {object} common.ProblemDetails
// @Router /admin/accounts/{id} [get]
// @Security AdminKey
func GetAccount(accountSvc *accountsvc.Service) fiber.Handler {
	return func(c *fiber.Ctx) error {
		id, ok, err := accountID(c)
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

// ToggleSuspension suspends an active account or reactivates a suspended one.
// @Summary Toggle suspension
// @Tags admin
// @Produce json
// @Param id path string true "Account ID"
// @Success 200 {object} common.Response{data=account.View}
// @Failure 400 {object} common.ProblemDetails
// @Failure 401 {object} common.ProblemDetails
// @Failure 404 {object} common.ProblemDetails
// @Router /admin/accounts/{id}/suspend [post]
// @Security AdminKey
func ToggleSuspension(accountSvc *accountsvc.Service) fiber.Handler {
	return func(c *fiber.Ctx) error {
		id, ok, err := accountID(c)
		if !ok {
			return err
		}
		view, err := accountSvc.ToggleSuspension(c.UserContext(), id)
		if err != nil {
			return common.ProblemDetailsJSON(c, "Suspension failed", err)
		}
		msg := "Account reactivated"
		if view.Suspended {
			msg = "Account suspended"
		}
		return common.SuccessResponseJSON(c, fiber.StatusOK, msg, view)
	}
}

func accountID(c *fiber.Ctx) (uuid.UUID, bool, error) {
	id, err := uuid.Parse(c.Params("id"))
	if err != nil {
		return uuid.Nil, false, common.ProblemDetailsJSON(c, "Invalid account ID", nil, "Account ID must be a valid UUID", fiber.StatusBadRequest)
	}
	return id, true, nil
}
