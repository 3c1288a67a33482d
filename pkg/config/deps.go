package config

import (
	"log/slog"

	"github.com/amirasaad/cashfake/pkg/cache"
	"github.com/amirasaad/cashfake/pkg/eventbus"
	"github.com/amirasaad/cashfake/pkg/repository"
)

// Deps holds the infrastructure dependencies for building the app and services.
type Deps struct {
	Uow              repository.UnitOfWork
	IdempotencyCache cache.IdempotencyCache
	EventBus         eventbus.Bus
	Logger           *slog.Logger
	Config           *App
	// Closers release infrastructure on shutdown, in order.
	Closers []func() error
}

// Close runs every closer and returns the first error.
func (d *Deps) Close() error {
	var first error
	for _, c := range d.Closers {
		if err := c(); err != nil && first == nil {
			first = err
		}
	}
	return first
}
