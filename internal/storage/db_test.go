package storage_test

import (
	"path/filepath"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/require"

	"github.com/ajayykmr/sms-dispatch-service/internal/config"
	"github.com/ajayykmr/sms-dispatch-service/internal/models"
	"github.com/ajayykmr/sms-dispatch-service/internal/storage"
)

func TestOpenSQLiteAndMigrate(t *testing.T) {
	path := filepath.Join(t.TempDir(), "ledger.db")
	db, err := storage.Open(config.DatabaseConfig{Driver: "sqlite", DSN: path, MaxOpenConns: 1}, zerolog.Nop())
	require.NoError(t, err)
	t.Cleanup(func() { _ = storage.Close(db) })

	require.NoError(t, storage.AutoMigrate(db))
	require.True(t, db.Migrator().HasTable(&models.DispatchRequest{}))
	require.True(t, db.Migrator().HasTable(&models.BlacklistEntry{}))
	require.True(t, db.Migrator().HasTable(&models.SearchDocument{}))
}

func TestOpenRejectsMissingDirectory(t *testing.T) {
	path := filepath.Join(t.TempDir(), "missing", "ledger.db")
	_, err := storage.Open(config.DatabaseConfig{Driver: "sqlite", DSN: path}, zerolog.Nop())
	require.Error(t, err)
}

func TestOpenRejectsUnknownDriver(t *testing.T) {
	_, err := storage.Open(config.DatabaseConfig{Driver: "oracle"}, zerolog.Nop())
	require.Error(t, err)
}
