package initializer

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/amirasaad/cashfake/infra"
	infracache "github.com/amirasaad/cashfake/infra/cache"
	infraeventbus "github.com/amirasaad/cashfake/infra/eventbus"
	"github.com/amirasaad/cashfake/infra/memory"
	infrarepository "github.com/amirasaad/cashfake/infra/repository"
	"github.com/amirasaad/cashfake/pkg/cache"
	"github.com/amirasaad/cashfake/pkg/config"
	"github.com/amirasaad/cashfake/pkg/eventbus"
	"github.com/amirasaad/cashfake/pkg/repository"
	"github.com/redis/go-redis/v9"
)

const defaultPingTimeout = 5 * time.Second

// InitializeDependencies builds the stores, the idempotency cache and the event bus
// described by cfg. An empty DATABASE_URL selects the in-memory store and an empty
// REDIS_URL the in-memory cache.
func InitializeDependencies(cfg *config.App) (*config.Deps, error) {
	logger := SetupLogger(cfg.Log)
	deps := &config.Deps{Logger: logger, Config: cfg}

	uow, closeDB, err := initStore(cfg, logger)
	if err != nil {
		return nil, err
	}
	deps.Uow = uow
	if closeDB != nil {
		deps.Closers = append(deps.Closers, closeDB)
	}

	idem, closeCache, err := initIdempotencyCache(cfg.Redis, logger)
	if err != nil {
		_ = deps.Close()
		return nil, err
	}
	deps.IdempotencyCache = idem
	if closeCache != nil {
		deps.Closers = append(deps.Closers, closeCache)
	}

	bus, closeBus, err := NewEventBus(cfg, logger)
	if err != nil {
		_ = deps.Close()
		return nil, err
	}
	deps.EventBus = bus
	if closeBus != nil {
		// consumers stop before the stores go away
		deps.Closers = append([]func() error{closeBus}, deps.Closers...)
	}
	return deps, nil
}

func initStore(cfg *config.App, logger *slog.Logger) (repository.UnitOfWork, func() error, error) {
	if cfg.DB == nil || cfg.DB.Url == "" {
		logger.Warn("DATABASE_URL is not set, using the in-memory store")
		return memory.NewStore().UnitOfWork(), nil, nil
	}
	db, err := infra.NewDBConnection(cfg.DB, cfg.Env)
	if err != nil {
		logger.Error("Failed to initialize database", "error", err)
		return nil, nil, err
	}
	sqlDB, err := db.DB()
	if err != nil {
		return nil, nil, err
	}
	if err := infrarepository.Migrate(db); err != nil {
		_ = sqlDB.Close()
		return nil, nil, fmt.Errorf("failed to migrate database: %w", err)
	}
	logger.Info("Database ready")
	return infrarepository.NewUoW(db), sqlDB.Close, nil
}

func initIdempotencyCache(cfg *config.Redis, logger *slog.Logger) (cache.IdempotencyCache, func() error, error) {
	if cfg == nil || cfg.URL == "" {
		logger.Info("REDIS_URL is not set, using the in-memory idempotency cache")
		return infracache.NewMemoryIdempotencyCache(), nil, nil
	}
	opt, err := redis.ParseURL(cfg.URL)
	if err != nil {
		return nil, nil, fmt.Errorf("invalid REDIS_URL: %w", err)
	}
	if cfg.PoolSize > 0 {
		opt.PoolSize = cfg.PoolSize
	}
	if cfg.DialTimeout > 0 {
		opt.DialTimeout = cfg.DialTimeout
	}
	if cfg.ReadTimeout > 0 {
		opt.ReadTimeout = cfg.ReadTimeout
	}
	if cfg.WriteTimeout > 0 {
		opt.WriteTimeout = cfg.WriteTimeout
	}
	c := infracache.NewRedisIdempotencyCache(opt, cfg.KeyPrefix, logger)

	timeout := opt.DialTimeout
	if timeout <= 0 {
		timeout = defaultPingTimeout
	}
	ctx, cancel := context.WithTimeout(context.Background(), timeout)
	defer cancel()
	if err := c.Ping(ctx); err != nil {
		_ = c.Close()
		return nil, nil, fmt.Errorf("failed to connect to Redis: %w", err)
	}
	logger.Info("Redis idempotency cache ready", "prefix", cfg.KeyPrefix)
	return c, c.Close, nil
}

// NewEventBus builds the bus selected by EVENT_BUS_DRIVER and its closer, which is nil for
// the memory bus.
func NewEventBus(cfg *config.App, logger *slog.Logger) (eventbus.Bus, func() error, error) {
	bc := cfg.EventBus
	if bc == nil {
		bc = &config.EventBus{Driver: "memory"}
	}
	switch bc.Driver {
	case "", "memory":
		return infraeventbus.NewWithMemory(logger), nil, nil
	case "redis":
		if cfg.Redis == nil || cfg.Redis.URL == "" {
			return nil, nil, errors.New("event bus driver redis requires REDIS_URL")
		}
		opt, err := redis.ParseURL(cfg.Redis.URL)
		if err != nil {
			return nil, nil, fmt.Errorf("invalid REDIS_URL: %w", err)
		}
		bus := infraeventbus.NewWithRedis(opt, cfg.Redis.KeyPrefix+"events", bc.Group,
			infraeventbus.DefaultFactories(), logger)
		ctx, cancel := context.WithTimeout(context.Background(), defaultPingTimeout)
		defer cancel()
		if err := bus.Ping(ctx); err != nil {
			_ = bus.Close()
			return nil, nil, fmt.Errorf("failed to connect to Redis event bus: %w", err)
		}
		logger.Info("Redis event bus ready")
		return bus, bus.Close, nil
	case "kafka":
		bus, err := infraeventbus.NewWithKafka(bc.KafkaBrokers, bc.TopicPrefix, bc.Group,
			infraeventbus.DefaultFactories(), logger)
		if err != nil {
			return nil, nil, err
		}
		logger.Info("Kafka event bus ready", "brokers", bc.KafkaBrokers, "topicPrefix", bc.TopicPrefix)
		return bus, bus.Close, nil
	}
	return nil, nil, fmt.Errorf("unknown event bus driver %q", bc.Driver)
}
