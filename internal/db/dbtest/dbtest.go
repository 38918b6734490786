// Package dbtest opens an in-memory SQLite database with the application
// migrations applied, for repository and service tests.
package dbtest

import (
	"context"
	"testing"

	"github.com/jmoiron/sqlx"
	"github.com/stretchr/testify/require"
	_ "modernc.org/sqlite"

	"github.com/templui/discord-onboarding/internal/db"
)

const dsn = ":memory:?_pragma=foreign_keys(1)&_time_format=sqlite"

// New returns a migrated database that is closed when the test finishes.
func New(t *testing.T) *sqlx.DB {
	t.Helper()

	database, err := sqlx.Connect("sqlite", dsn)
	require.NoError(t, err)

	// Every connection to :memory: is a separate database
	database.SetMaxOpenConns(1)
	database.SetMaxIdleConns(1)
	t.Cleanup(func() { _ = database.Close() })

	require.NoError(t, db.RunMigrations(context.Background(), database.DB, "sqlite"))
	return database
}
