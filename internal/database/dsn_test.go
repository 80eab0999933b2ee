package database

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestBuildPostgresDSN(t *testing.T) {
	dsn, err := buildPostgresDSN(Config{User: "cms", Name: "cms"})
	require.NoError(t, err)
	require.Equal(t, "host=localhost port=5432 user=cms dbname=cms sslmode=disable", dsn)

	dsn, err = buildPostgresDSN(Config{
		User:     "user",
		Name:     "db",
		Host:     "db.internal",
		Port:     6543,
		Password: "pass",
		Options:  map[string]string{"sslmode": "require", "search_path": "public"},
	})
	require.NoError(t, err)
	require.Equal(t, "host=db.internal port=6543 user=user dbname=db password=pass search_path=public sslmode=require", dsn)

	_, err = buildPostgresDSN(Config{})
	require.Error(t, err)

	dsn, err = buildPostgresDSN(Config{DSN: "postgres://override"})
	require.NoError(t, err)
	require.Equal(t, "postgres://override", dsn)
}

func TestBuildMySQLDSN(t *testing.T) {
	dsn, err := buildMySQLDSN(Config{User: "cms", Name: "cms"})
	require.NoError(t, err)
	require.Equal(t, "cms@tcp(127.0.0.1:3306)/cms?charset=utf8mb4&loc=UTC&parseTime=True", dsn)

	dsn, err = buildMySQLDSN(Config{
		User:     "user",
		Password: "secret",
		Name:     "db",
		Host:     "db.internal",
		Port:     3307,
		Options:  map[string]string{"tls": "skip-verify"},
	})
	require.NoError(t, err)
	require.Equal(t, "user:secret@tcp(db.internal:3307)/db?charset=utf8mb4&loc=UTC&parseTime=True&tls=skip-verify", dsn)

	_, err = buildMySQLDSN(Config{Host: "localhost"})
	require.Error(t, err)
}
