package database

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/bhagwatcoding/cms-winfoa-sub000/internal/models"
)

func TestOpenSQLiteMemory(t *testing.T) {
	db, err := Open(Config{Driver: "sqlite"})
	require.NoError(t, err)
	t.Cleanup(func() { _ = Close(db) })

	require.NoError(t, db.Exec("SELECT 1").Error)
}

func TestOpenSQLiteFileCreatesDirectory(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "cms.db")

	db, err := Open(Config{Driver: "sqlite", Path: path, MaxOpenConns: 1})
	require.NoError(t, err)
	t.Cleanup(func() { _ = Close(db) })

	require.NoError(t, AutoMigrate(db))
	require.FileExists(t, path)
}

func TestOpenRejectsUnknownDriver(t *testing.T) {
	_, err := Open(Config{Driver: "oracle"})
	require.ErrorContains(t, err, "unsupported database driver")
}

func TestAutoMigrateCreatesSessionTable(t *testing.T) {
	db, err := Open(Config{Driver: "sqlite"})
	require.NoError(t, err)
	t.Cleanup(func() { _ = Close(db) })

	require.NoError(t, AutoMigrateAndSeed(db))

	migrator := db.Migrator()
	require.True(t, migrator.HasTable(&models.Session{}))
	require.True(t, migrator.HasColumn(&models.Session{}, "device_os"))
	require.True(t, migrator.HasColumn(&models.Session{}, "location_country"))
	require.True(t, migrator.HasColumn(&models.Session{}, "security_risk_level"))
	require.True(t, migrator.HasTable(&models.AuditLog{}))
	require.True(t, migrator.HasTable(&models.CacheEntry{}))
}

func TestAutoMigrateAndSeedRejectsNil(t *testing.T) {
	require.Error(t, AutoMigrateAndSeed(nil))
}

func TestOpenMongoValidatesConfig(t *testing.T) {
	_, _, err := OpenMongo(context.Background(), MongoConfig{Database: "cms"})
	require.ErrorContains(t, err, "uri is required")

	_, _, err = OpenMongo(context.Background(), MongoConfig{URI: "mongodb://localhost:27017"})
	require.ErrorContains(t, err, "database name is required")
}

func TestMongoConfigDefaults(t *testing.T) {
	cfg := MongoConfig{}.withDefaults()
	require.Equal(t, 3, cfg.RetryAttempts)
	require.EqualValues(t, 100, cfg.MaxPoolSize)
	require.Positive(t, cfg.ConnectTimeout)
}
