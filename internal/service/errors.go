package service

import (
	"errors"
	"fmt"
	"time"

	"github.com/templui/discord-onboarding/internal/repository"
)

var (
	ErrNotFound         = errors.New("not found")
	ErrExpired          = errors.New("token has expired")
	ErrUsed             = errors.New("token has already been used")
	ErrRateLimited      = errors.New("too many link requests")
	ErrPermissionDenied = errors.New("permission denied")
	ErrExternalDispatch = errors.New("external dispatch failed")
	ErrNoIdentity       = errors.New("no identity found")
	ErrBotAccount       = errors.New("bot accounts cannot be onboarded")

	// ErrDuplicateSchedule is benign: the account is already tracked.
	ErrDuplicateSchedule = repository.ErrDuplicateSchedule
)

// RateLimitError reports when the daily cap frees up again.
type RateLimitError struct {
	Limit   int
	RetryAt time.Time
}

func (e *RateLimitError) Error() string {
	return fmt.Sprintf("%s: limit of %d per day reached, retry after %s", ErrRateLimited, e.Limit, e.RetryAt.Format(time.RFC3339))
}

func (e *RateLimitError) Unwrap() error {
	return ErrRateLimited
}

// DispatchError wraps a failed message or removal so callers can match it
// with errors.Is(err, ErrExternalDispatch) and still reach the cause.
func DispatchError(action string, err error) error {
	return fmt.Errorf("%w: %s: %w", ErrExternalDispatch, action, err)
}

// mapTokenError translates store errors into the onboarding taxonomy.
func mapTokenError(err error) error {
	switch {
	case errors.Is(err, repository.ErrTokenNotFound):
		return ErrNotFound
	case errors.Is(err, repository.ErrTokenUsed):
		return ErrUsed
	case errors.Is(err, repository.ErrTokenExpired):
		return ErrExpired
	default:
		return err
	}
}
