package db

import (
	"context"
	"regexp"
	"testing"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/restoration-monitor/polyvalidate/internal/config"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

func newMockDB(t *testing.T) (*gorm.DB, sqlmock.Sqlmock) {
	t.Helper()

	sqlDB, mock, err := sqlmock.New()
	require.NoError(t, err)
	t.Cleanup(func() { sqlDB.Close() })

	d, err := gorm.Open(postgres.New(postgres.Config{Conn: sqlDB}), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	require.NoError(t, err)
	return d, mock
}

func TestPostGISVersion(t *testing.T) {
	d, mock := newMockDB(t)
	mock.ExpectQuery(regexp.QuoteMeta("FROM pg_extension")).
		WillReturnRows(sqlmock.NewRows([]string{"extversion"}).AddRow("3.4.2"))

	version, err := PostGISVersion(context.Background(), d)
	require.NoError(t, err)
	assert.Equal(t, "3.4.2", version)
}

func TestPostGISVersionMissingExtension(t *testing.T) {
	d, mock := newMockDB(t)
	mock.ExpectQuery(regexp.QuoteMeta("FROM pg_extension")).
		WillReturnRows(sqlmock.NewRows([]string{"extversion"}))

	_, err := PostGISVersion(context.Background(), d)
	assert.ErrorIs(t, err, ErrPostGISMissing)
}

func TestConnectRequiresDSN(t *testing.T) {
	err := Connect(config.Config{})
	assert.ErrorIs(t, err, config.ErrMissingDatabaseURL)
}

func TestLogLevel(t *testing.T) {
	assert.Equal(t, logger.Silent, logLevel("silent"))
	assert.Equal(t, logger.Error, logLevel("error"))
	assert.Equal(t, logger.Info, logLevel("info"))
	assert.Equal(t, logger.Warn, logLevel("warn"))
	assert.Equal(t, logger.Warn, logLevel(""))
}
