package repository

import (
	"time"

	"github.com/jmoiron/sqlx"
)

// Repositories bundles every store bound to the same handle, so a service
// can rebind all of them to a transaction at once.
type Repositories struct {
	Tokens    TokenRepository
	Schedules ScheduleRepository
	Users     UserRepository
	Links     LinkRepository
}

// New binds the repositories to db, which may be a *sqlx.DB or a *sqlx.Tx.
func New(db sqlx.ExtContext, tokenTTL time.Duration) *Repositories {
	return &Repositories{
		Tokens:    NewTokenRepository(db, tokenTTL),
		Schedules: NewScheduleRepository(db),
		Users:     NewUserRepository(db),
		Links:     NewLinkRepository(db),
	}
}

// timestamp normalises times before they reach the database: UTC, whole
// seconds, no monotonic reading. Stored values then compare correctly as
// text on SQLite.
func timestamp(t time.Time) time.Time {
	return t.UTC().Truncate(time.Second)
}

func timestampPtr(t *time.Time) *time.Time {
	if t == nil {
		return nil
	}
	ts := timestamp(*t)
	return &ts
}
