package infra

import (
	"database/sql"
	"errors"
	"fmt"

	"github.com/amirasaad/cashfake/pkg/config"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

// ErrDatabaseURLMissing is returned when no DATABASE_URL is configured.
var ErrDatabaseURLMissing = errors.New("DATABASE_URL is not set")

// NewDBConnection opens the Postgres pool sized by cnf.
func NewDBConnection(cnf *config.DB, appEnv string) (*gorm.DB, error) {
	if cnf == nil || cnf.Url == "" {
		return nil, ErrDatabaseURLMissing
	}
	db, err := gorm.Open(postgres.Open(cnf.Url), gormConfig(appEnv))
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}
	sqlDB, err := db.DB()
	if err != nil {
		return nil, err
	}
	configurePool(sqlDB, cnf)
	return db, nil
}

// gormConfig logs statements only in development. Every write already runs inside an
// explicit unit of work, so GORM's implicit per-statement transaction is skipped.
func gormConfig(appEnv string) *gorm.Config {
	mode := logger.Silent
	if appEnv == "development" {
		mode = logger.Info
	}
	return &gorm.Config{
		Logger:                 logger.Default.LogMode(mode),
		SkipDefaultTransaction: true,
	}
}

func configurePool(sqlDB *sql.DB, cnf *config.DB) {
	if cnf.MaxOpenConns > 0 {
		sqlDB.SetMaxOpenConns(cnf.MaxOpenConns)
	}
	// more idle than open connections is meaningless
	idle := cnf.MaxIdleConns
	if cnf.MaxOpenConns > 0 && idle > cnf.MaxOpenConns {
		idle = cnf.MaxOpenConns
	}
	sqlDB.SetMaxIdleConns(idle)
	sqlDB.SetConnMaxLifetime(cnf.ConnMaxLifetime)
	sqlDB.SetConnMaxIdleTime(cnf.ConnMaxIdleTime)
}
