package common

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/amirasaad/cashfake/pkg/domain"
	authsvc "github.com/amirasaad/cashfake/pkg/service/auth"
	"github.com/gofiber/fiber/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func decodeProblem(t *testing.T, resp *http.Response) ProblemDetails {
	t.Helper()
	defer resp.Body.Close() //nolint:errcheck
	body, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	var pd ProblemDetails
	require.NoError(t, json.Unmarshal(body, &pd), string(body))
	return pd
}

func TestStatusFor(t *testing.T) {
	t.Parallel()
	tests := []struct {
		name string
		err  error
		want int
	}{
		{"validation", domain.ErrInvalidAmount, fiber.StatusBadRequest},
		{"not found", domain.ErrAccountNotFound, fiber.StatusNotFound},
		{"suspended", domain.ErrSenderSuspended, fiber.StatusForbidden},
		{"insufficient", domain.ErrInsufficientBalance, fiber.StatusUnprocessableEntity},
		{"conflict", domain.ErrIdempotencyKeyReused, fiber.StatusConflict},
		{"transient", domain.ErrTransientStore.Wrap(errors.New("timeout")), fiber.StatusServiceUnavailable},
		{"unauthorized", authsvc.ErrUnauthorized, fiber.StatusUnauthorized},
		{"fiber error", fiber.ErrMethodNotAllowed, fiber.StatusMethodNotAllowed},
		{"unclassified", errors.New("boom"), fiber.StatusInternalServerError},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			assert.Equal(t, tt.want, StatusFor(tt.err))
		})
	}
}

func TestProblemDetailsJSON(t *testing.T) {
	app := fiber.New()
	app.Get("/domain", func(c *fiber.Ctx) error {
		return ProblemDetailsJSON(c, "Transfer rejected", domain.ErrRecipientNameRequired)
	})
	app.Get("/transient", func(c *fiber.Ctx) error {
		return ProblemDetailsJSON(c, "Try again", domain.ErrTransientStore)
	})
	app.Get("/internal", func(c *fiber.Ctx) error {
		return ProblemDetailsJSON(c, "Internal Server Error", errors.New("pq: secret table"))
	})
	app.Get("/explicit", func(c *fiber.Ctx) error {
		return ProblemDetailsJSON(c, "Too Many Requests", nil, "slow down", fiber.StatusTooManyRequests)
	})

	resp, err := app.Test(httptest.NewRequest(http.MethodGet, "/domain", nil))
	require.NoError(t, err)
	assert.Equal(t, fiber.StatusBadRequest, resp.StatusCode)
	assert.Equal(t, "application/problem+json", resp.Header.Get(fiber.HeaderContentType))
	pd := decodeProblem(t, resp)
	assert.Equal(t, domain.ErrRecipientNameRequired.Message, pd.Detail)
	assert.Equal(t, domain.ErrRecipientNameRequired.Message, pd.Errors["recipient_name"])
	assert.Equal(t, "/domain", pd.Instance)

	resp, err = app.Test(httptest.NewRequest(http.MethodGet, "/transient", nil))
	require.NoError(t, err)
	assert.Equal(t, fiber.StatusServiceUnavailable, resp.StatusCode)
	assert.Equal(t, "1", resp.Header.Get(fiber.HeaderRetryAfter))

	resp, err = app.Test(httptest.NewRequest(http.MethodGet, "/internal", nil))
	require.NoError(t, err)
	assert.Equal(t, fiber.StatusInternalServerError, resp.StatusCode)
	pd = decodeProblem(t, resp)
	assert.NotContains(t, pd.Detail, "secret")

	resp, err = app.Test(httptest.NewRequest(http.MethodGet, "/explicit", nil))
	require.NoError(t, err)
	assert.Equal(t, fiber.StatusTooManyRequests, resp.StatusCode)
	pd = decodeProblem(t, resp)
	assert.Equal(t, "slow down", pd.Detail)
	assert.Equal(t, fiber.StatusTooManyRequests, pd.Status)
}

type bindInput struct {
	Email  string      `json:"email" validate:"required,email"`
	Amount AmountInput `json:"amount" validate:"required"`
}

func TestBindAndValidate(t *testing.T) {
	app := fiber.New()
	app.Post("/", func(c *fiber.Ctx) error {
		input, err := BindAndValidate[bindInput](c)
		if input == nil {
			return err
		}
		return c.JSON(input)
	})
	post := func(body string) *http.Response {
		req := httptest.NewRequest(http.MethodPost, "/", strings.NewReader(body))
		req.Header.Set(fiber.HeaderContentType, fiber.MIMEApplicationJSON)
		resp, err := app.Test(req)
		require.NoError(t, err)
		return resp
	}

	resp := post(`{"email":"a@example.com","amount":12.5}`)
	require.Equal(t, fiber.StatusOK, resp.StatusCode)
	var got bindInput
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&got))
	assert.Equal(t, AmountInput("12.5"), got.Amount)

	resp = post(`{"email":"a@example.com","amount":" 7.25 "}`)
	require.Equal(t, fiber.StatusOK, resp.StatusCode)
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&got))
	assert.Equal(t, AmountInput("7.25"), got.Amount)

	resp = post(`{"email":"nope"}`)
	assert.Equal(t, fiber.StatusBadRequest, resp.StatusCode)
	pd := decodeProblem(t, resp)
	assert.Equal(t, "Please enter a valid email", pd.Errors["email"])
	assert.Equal(t, "This field is required", pd.Errors["amount"])

	resp = post(`{not json`)
	assert.Equal(t, fiber.StatusBadRequest, resp.StatusCode)
	assert.Equal(t, "Invalid request body", decodeProblem(t, resp).Title)
}

func TestAmountInput_UnmarshalJSON(t *testing.T) {
	t.Parallel()
	var a AmountInput
	require.NoError(t, json.Unmarshal([]byte(`100.10`), &a))
	assert.Equal(t, AmountInput("100.10"), a)
	require.NoError(t, json.Unmarshal([]byte(`null`), &a))
	assert.Equal(t, AmountInput(""), a)
	assert.Error(t, json.Unmarshal([]byte(`true`), &a))
}
