package db_test

import (
	"context"
	"errors"
	"testing"

	"github.com/jmoiron/sqlx"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/templui/discord-onboarding/internal/db"
	"github.com/templui/discord-onboarding/internal/db/dbtest"
)

func countUsers(t *testing.T, database *sqlx.DB) int {
	t.Helper()
	var n int
	require.NoError(t, database.Get(&n, `SELECT COUNT(*) FROM users`))
	return n
}

const insertUser = `INSERT INTO users (id, character_id, character_name, created_at, updated_at)
	VALUES ($1, $2, $3, CURRENT_TIMESTAMP, CURRENT_TIMESTAMP)`

func TestWithTx_CommitsOnSuccess(t *testing.T) {
	database := dbtest.New(t)

	err := db.WithTx(context.Background(), database, func(tx *sqlx.Tx) error {
		_, err := tx.Exec(insertUser, "u1", 1, "Pilot")
		return err
	})
	require.NoError(t, err)
	assert.Equal(t, 1, countUsers(t, database))
}

func TestWithTx_RollsBackOnError(t *testing.T) {
	database := dbtest.New(t)

	err := db.WithTx(context.Background(), database, func(tx *sqlx.Tx) error {
		_, err := tx.Exec(insertUser, "u1", 1, "Pilot")
		require.NoError(t, err)
		return errors.New("boom")
	})
	require.Error(t, err)
	assert.Equal(t, 0, countUsers(t, database))
}

func TestWithTx_RollsBackOnPanic(t *testing.T) {
	database := dbtest.New(t)

	assert.Panics(t, func() {
		_ = db.WithTx(context.Background(), database, func(tx *sqlx.Tx) error {
			_, err := tx.Exec(insertUser, "u1", 1, "Pilot")
			require.NoError(t, err)
			panic("kaput")
		})
	})
	assert.Equal(t, 0, countUsers(t, database))
}

func TestIsUniqueViolation(t *testing.T) {
	database := dbtest.New(t)

	_, err := database.Exec(insertUser, "u1", 1, "Pilot")
	require.NoError(t, err)
	_, err = database.Exec(insertUser, "u2", 1, "Pilot")
	require.Error(t, err)

	assert.True(t, db.IsUniqueViolation(err))
	assert.True(t, db.IsUniqueViolation(errors.New(`ERROR: duplicate key value violates unique constraint "users_pkey"`)))
	assert.False(t, db.IsUniqueViolation(errors.New("connection refused")))
	assert.False(t, db.IsUniqueViolation(nil))
}

func TestMigrationVersion(t *testing.T) {
	database := dbtest.New(t)

	version, err := db.MigrationVersion(context.Background(), database.DB, "sqlite")
	require.NoError(t, err)
	assert.Equal(t, int64(4), version)
}
