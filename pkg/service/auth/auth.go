// Package auth verifies credentials and turns session tokens into account ids.
package auth

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/amirasaad/cashfake/pkg/config"
	"github.com/amirasaad/cashfake/pkg/domain"
	"github.com/amirasaad/cashfake/pkg/domain/account"
	"github.com/amirasaad/cashfake/pkg/repository"
	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
)

// ErrUnauthorized is returned when a session cannot be mapped to an account.
var ErrUnauthorized = errors.New("unauthorized")

type contextKey string

const (
	tokenContextKey   contextKey = "user"
	accountContextKey contextKey = "account_id"
)

// WithAccountID stores an already authenticated account id in ctx, for callers such as
// the CLI that hold no token.
func WithAccountID(ctx context.Context, id uuid.UUID) context.Context {
	return context.WithValue(ctx, accountContextKey, id)
}

type Strategy interface {
	Login(ctx context.Context, email, password string) (*account.Account, error)
	GetCurrentAccountID(ctx context.Context) (uuid.UUID, error)
	GenerateToken(ctx context.Context, a *account.Account) (string, error)
}

type Service struct {
	strategy Strategy
	logger   *slog.Logger
}

func New(strategy Strategy, logger *slog.Logger) *Service {
	return &Service{strategy: strategy, logger: logger}
}

func NewWithJWT(
	uow repository.UnitOfWork,
	hasher *Hasher,
	cfg *config.Jwt,
	logger *slog.Logger,
) *Service {
	return New(NewJWTStrategy(uow, hasher, cfg, logger), logger)
}

func NewWithBasic(
	uow repository.UnitOfWork,
	hasher *Hasher,
	logger *slog.Logger,
) *Service {
	return New(NewBasicAuthStrategy(uow, hasher, logger), logger)
}

// Login checks the credentials and returns the account they belong to.
func (s *Service) Login(ctx context.Context, email, password string) (*account.Account, error) {
	log := s.logger.With("context", "Login", "email", account.NormalizeEmail(email))
	a, err := s.strategy.Login(ctx, email, password)
	if err != nil {
		log.Warn("Login failed", "error", err)
		return nil, err
	}
	log.Info("Login successful", "accountID", a.ID)
	return a, nil
}

// Authenticate is Login reduced to the account id.
func (s *Service) Authenticate(ctx context.Context, email, password string) (uuid.UUID, error) {
	a, err := s.Login(ctx, email, password)
	if err != nil {
		return uuid.Nil, err
	}
	return a.ID, nil
}

func (s *Service) GenerateToken(ctx context.Context, a *account.Account) (string, error) {
	token, err := s.strategy.GenerateToken(ctx, a)
	if err != nil {
		s.logger.Error("GenerateToken failed", "accountID", a.ID, "error", err)
		return "", err
	}
	return token, nil
}

// GetCurrentAccountID returns the account id a verified token was issued for.
func (s *Service) GetCurrentAccountID(token *jwt.Token) (uuid.UUID, error) {
	return s.CurrentAccountID(context.WithValue(context.Background(), tokenContextKey, token))
}

// CurrentAccountID resolves the account id carried by ctx.
func (s *Service) CurrentAccountID(ctx context.Context) (uuid.UUID, error) {
	id, err := s.strategy.GetCurrentAccountID(ctx)
	if err != nil {
		s.logger.Debug("GetCurrentAccountID failed", "error", err)
		return uuid.Nil, err
	}
	return id, nil
}

// checkCredentials looks the email up and verifies the password, then the suspension
// flag, in that order.
func checkCredentials(
	ctx context.Context,
	uow repository.UnitOfWork,
	hasher *Hasher,
	email, password string,
) (*account.Account, error) {
	accounts, err := uow.AccountRepository()
	if err != nil {
		return nil, err
	}
	a, err := accounts.GetByEmail(ctx, email)
	if errors.Is(err, domain.ErrAccountNotFound) {
		hasher.CompareDummy(password)
		return nil, domain.ErrIncorrectEmail
	}
	if err != nil {
		return nil, err
	}
	if !hasher.Compare(password, a.PasswordHash) {
		return nil, domain.ErrIncorrectPassword
	}
	if a.Suspended {
		return nil, domain.ErrAccountSuspended
	}
	return a, nil
}

// JWTStrategy issues and reads HS256 tokens carrying the account id.
type JWTStrategy struct {
	uow    repository.UnitOfWork
	hasher *Hasher
	cfg    *config.Jwt
	logger *slog.Logger
	now    func() time.Time
}

func NewJWTStrategy(
	uow repository.UnitOfWork,
	hasher *Hasher,
	cfg *config.Jwt,
	logger *slog.Logger,
) *JWTStrategy {
	return &JWTStrategy{uow: uow, hasher: hasher, cfg: cfg, logger: logger, now: time.Now}
}

func (s *JWTStrategy) Login(ctx context.Context, email, password string) (*account.Account, error) {
	return checkCredentials(ctx, s.uow, s.hasher, email, password)
}

func (s *JWTStrategy) GenerateToken(ctx context.Context, a *account.Account) (string, error) {
	token := jwt.New(jwt.SigningMethodHS256)
	claims := token.Claims.(jwt.MapClaims)
	claims["user_id"] = a.ID.String()
	claims["email"] = a.Email
	claims["exp"] = s.now().Add(s.cfg.Expiry).Unix()
	return token.SignedString([]byte(s.cfg.Secret))
}

func (s *JWTStrategy) GetCurrentAccountID(ctx context.Context) (uuid.UUID, error) {
	token, ok := ctx.Value(tokenContextKey).(*jwt.Token)
	if !ok || token == nil {
		return uuid.Nil, ErrUnauthorized
	}
	claims, ok := token.Claims.(jwt.MapClaims)
	if !ok {
		return uuid.Nil, ErrUnauthorized
	}
	raw, ok := claims["user_id"].(string)
	if !ok {
		return uuid.Nil, ErrUnauthorized
	}
	id, err := uuid.Parse(raw)
	if err != nil {
		return uuid.Nil, ErrUnauthorized
	}
	return id, nil
}

// BasicAuthStrategy checks passwords only. The CLI uses it and carries the account id
// in the context instead of a token.
type BasicAuthStrategy struct {
	uow    repository.UnitOfWork
	hasher *Hasher
	logger *slog.Logger
}

func NewBasicAuthStrategy(
	uow repository.UnitOfWork,
	hasher *Hasher,
	logger *slog.Logger,
) *BasicAuthStrategy {
	return &BasicAuthStrategy{uow: uow, hasher: hasher, logger: logger}
}

func (s *BasicAuthStrategy) Login(ctx context.Context, email, password string) (*account.Account, error) {
	return checkCredentials(ctx, s.uow, s.hasher, email, password)
}

func (s *BasicAuthStrategy) GetCurrentAccountID(ctx context.Context) (uuid.UUID, error) {
	id, ok := ctx.Value(accountContextKey).(uuid.UUID)
	if !ok || id == uuid.Nil {
		return uuid.Nil, ErrUnauthorized
	}
	return id, nil
}

// GenerateToken returns no token.
func (s *BasicAuthStrategy) GenerateToken(ctx context.Context, a *account.Account) (string, error) {
	return "", nil
}
