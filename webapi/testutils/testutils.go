package testutils

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"time"

	infracache "github.com/amirasaad/cashfake/infra/cache"
	"github.com/amirasaad/cashfake/infra/memory"
	"github.com/amirasaad/cashfake/pkg/app"
	"github.com/amirasaad/cashfake/pkg/config"
	"github.com/amirasaad/cashfake/pkg/domain/account"
	"github.com/amirasaad/cashfake/pkg/money"
	"github.com/amirasaad/cashfake/webapi"
	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"
	"github.com/stretchr/testify/suite"
)

const (
	// AdminKey is the admin API key of the test app.
	AdminKey = "test-admin-key"
	// Password is the password of every TestAccount.
	Password = "password123"
)

var accountSeq atomic.Int64

// TestAccount is an account registered through the API.
type TestAccount struct {
	ID     uuid.UUID
	Name   string
	Email  string
	Number string
	Token  string
}

// E2ETestSuite runs requests against the full Fiber app over a fresh in-memory store per test.
type E2ETestSuite struct {
	suite.Suite
	App   *app.App
	Fiber *fiber.App
	Cfg   *config.App
}

// TestConfig is the configuration of the test app.
func TestConfig() *config.App {
	return &config.App{
		Env: "test",
		Auth: &config.Auth{
			Strategy:   "jwt",
			Jwt:        &config.Jwt{Secret: "test-secret", Expiry: time.Hour},
			BcryptCost: 4,
		},
		RateLimit: &config.RateLimit{MaxRequests: 10000, Window: time.Minute},
		Ledger: &config.Ledger{
			OperationTimeout:     time.Second,
			ProvisionMaxAttempts: 16,
			IdempotencyTTL:       time.Hour,
			RecentContacts:       5,
		},
		Admin: &config.Admin{APIKey: AdminKey},
	}
}

// SetupTest builds a fresh app. Suites overriding it must call it first.
func (s *E2ETestSuite) SetupTest() {
	s.Cfg = TestConfig()
	s.App = app.New(&config.Deps{
		Uow:              memory.NewStore().UnitOfWork(),
		IdempotencyCache: infracache.NewMemoryIdempotencyCache(),
		Logger:           slog.New(slog.NewTextHandler(io.Discard, nil)),
		Config:           s.Cfg,
	})
	s.Fiber = webapi.SetupApp(s.App)
}

// MakeRequest is a helper for making HTTP requests in tests
func (s *E2ETestSuite) MakeRequest(method, path, body, token string) *http.Response {
	return s.MakeRequestWithHeaders(method, path, body, token, nil)
}

// MakeRequestWithHeaders is MakeRequest with extra request headers.
func (s *E2ETestSuite) MakeRequestWithHeaders(method, path, body, token string, headers map[string]string) *http.Response {
	var req *http.Request
	if body != "" {
		req = httptest.NewRequest(method, path, bytes.NewBufferString(body))
		req.Header.Set("Content-Type", "application/json")
	} else {
		req = httptest.NewRequest(method, path, nil)
	}
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	for k, v := range headers {
		req.Header.Set(k, v)
	}
	resp, err := s.Fiber.Test(req, -1)
	s.Require().NoError(err)
	return resp
}

// Decode reads a JSON body into v and closes it.
func (s *E2ETestSuite) Decode(resp *http.Response, v any) {
	defer resp.Body.Close() //nolint: errcheck
	s.Require().NoError(json.NewDecoder(resp.Body).Decode(v))
}

// Register creates an account through the API and returns it with its session token.
func (s *E2ETestSuite) Register(name string) TestAccount {
	email := fmt.Sprintf("%s-%d@example.com", name, accountSeq.Add(1))
	body := fmt.Sprintf(`{"fullName":%q,"email":%q,"password1":%q,"password2":%q}`, name, email, Password, Password)
	resp := s.MakeRequest(http.MethodPost, "/api/auth/register", body, "")
	s.Require().Equal(fiber.StatusCreated, resp.StatusCode)

	var out struct {
		Data struct {
			User  account.View `json:"user"`
			Token string       `json:"token"`
		} `json:"data"`
	}
	s.Decode(resp, &out)
	s.Require().NotEmpty(out.Data.Token)
	return TestAccount{
		ID:     out.Data.User.ID,
		Name:   name,
		Email:  email,
		Number: out.Data.User.Number,
		Token:  out.Data.Token,
	}
}

// Fund credits an account directly in the store, standing in for money arriving off-platform.
func (s *E2ETestSuite) Fund(a TestAccount, amount string) {
	amt, err := money.Parse(amount)
	s.Require().NoError(err)
	accounts, err := s.App.Deps.Uow.AccountRepository()
	s.Require().NoError(err)
	_, err = accounts.ApplyBalanceDelta(context.Background(), a.ID, amt)
	s.Require().NoError(err)
}

// Balance reads an account's balance through the API.
func (s *E2ETestSuite) Balance(a TestAccount) string {
	resp := s.MakeRequest(http.MethodGet, "/api/user", "", a.Token)
	s.Require().Equal(fiber.StatusOK, resp.StatusCode)
	var out struct {
		Data account.View `json:"data"`
	}
	s.Decode(resp, &out)
	return out.Data.Balance.String()
}
