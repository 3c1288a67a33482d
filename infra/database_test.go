package infra

import (
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/amirasaad/cashfake/pkg/config"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm/logger"
)

func TestNewDBConnection_RequiresURL(t *testing.T) {
	_, err := NewDBConnection(nil, "development")
	require.ErrorIs(t, err, ErrDatabaseURLMissing)
	_, err = NewDBConnection(&config.DB{MaxOpenConns: 5}, "production")
	require.ErrorIs(t, err, ErrDatabaseURLMissing)
}

func TestGormConfig(t *testing.T) {
	dev := gormConfig("development")
	assert.True(t, dev.SkipDefaultTransaction)
	assert.Equal(t, logger.Default.LogMode(logger.Info), dev.Logger)
	assert.Equal(t, logger.Default.LogMode(logger.Silent), gormConfig("production").Logger)
}

func TestConfigurePool(t *testing.T) {
	sqlDB, _, err := sqlmock.New()
	require.NoError(t, err)
	defer sqlDB.Close()

	configurePool(sqlDB, &config.DB{
		MaxOpenConns:    4,
		MaxIdleConns:    10,
		ConnMaxLifetime: time.Hour,
		ConnMaxIdleTime: time.Minute,
	})
	assert.Equal(t, 4, sqlDB.Stats().MaxOpenConnections)
}
