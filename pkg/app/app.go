// Package app wires the core services over a set of infrastructure dependencies.
package app

import (
	"context"
	"log/slog"

	"github.com/amirasaad/cashfake/pkg/config"
	"github.com/amirasaad/cashfake/pkg/domain/ledger"
	"github.com/amirasaad/cashfake/pkg/eventbus"
	"github.com/amirasaad/cashfake/pkg/service/account"
	"github.com/amirasaad/cashfake/pkg/service/auth"
	"github.com/amirasaad/cashfake/pkg/service/history"
	"github.com/amirasaad/cashfake/pkg/service/transfer"
)

type App struct {
	Deps           *config.Deps
	Config         *config.App
	AuthService    *auth.Service
	AccountService *account.Service
	TransferEngine *transfer.Engine
	HistoryService *history.Service
}

func New(deps *config.Deps) *App {
	cfg := deps.Config
	app := &App{
		Deps:   deps,
		Config: cfg,
	}
	hasher := auth.NewHasher(cfg.Auth.BcryptCost)

	authMap := map[string]func() *auth.Service{
		"jwt": func() *auth.Service {
			return auth.NewWithJWT(deps.Uow, hasher, cfg.Auth.Jwt, deps.Logger)
		},
	}
	if authFactory, ok := authMap[cfg.Auth.Strategy]; ok {
		app.AuthService = authFactory()
	} else {
		app.AuthService = auth.NewWithBasic(deps.Uow, hasher, deps.Logger)
	}

	provisioner := account.NewProvisioner(deps.Uow, cfg.Ledger.ProvisionMaxAttempts, deps.Logger)
	app.AccountService = account.NewService(deps.Uow, provisioner, hasher, deps.Logger)

	opts := []transfer.Option{transfer.WithOperationTimeout(cfg.Ledger.OperationTimeout)}
	if deps.IdempotencyCache != nil {
		opts = append(opts, transfer.WithIdempotencyCache(deps.IdempotencyCache, cfg.Ledger.IdempotencyTTL))
	}
	if deps.EventBus != nil {
		opts = append(opts, transfer.WithEventBus(deps.EventBus))
		deps.EventBus.Register(ledger.EntryRecordedType, activityLog(deps.Logger))
	}
	app.TransferEngine = transfer.New(deps.Uow, deps.Logger, opts...)
	app.HistoryService = history.New(deps.Uow, deps.Logger)
	return app
}

// activityLog writes one line per committed ledger entry.
func activityLog(logger *slog.Logger) eventbus.HandlerFunc {
	log := logger.With("context", "Activity")
	return func(ctx context.Context, e eventbus.Event) error {
		ev, ok := e.(*ledger.EntryRecorded)
		if !ok {
			return nil
		}
		log.InfoContext(ctx, "Ledger entry recorded",
			"entryID", ev.EntryID,
			"kind", ev.Kind,
			"ownerID", ev.OwnerID,
			"destination", ev.DestinationLabel,
			"amount", ev.Amount.String(),
			"ownerBalance", ev.OwnerBalance.String(),
		)
		return nil
	}
}
