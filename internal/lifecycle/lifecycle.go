// Package lifecycle decides token validity and reminder/kick due-ness.
//
// Every function takes the current time from the caller and never reads the
// clock, so the same inputs always produce the same answer.
package lifecycle

import (
	"time"

	"github.com/templui/discord-onboarding/internal/model"
)

// TokenState distinguishes why a token can or cannot be used.
type TokenState string

const (
	TokenValid   TokenState = "valid"
	TokenExpired TokenState = "expired"
	TokenUsed    TokenState = "used"
)

// IsTokenExpired reports whether now is past the token deadline.
func IsTokenExpired(t *model.Token, now time.Time) bool {
	return now.After(t.ExpiresAt)
}

// IsTokenValid reports whether the token can still complete a flow.
func IsTokenValid(t *model.Token, now time.Time) bool {
	return !t.Used && !IsTokenExpired(t, now)
}

// StateOf reports the token state. A used token is reported as used even
// after it has also expired.
func StateOf(t *model.Token, now time.Time) TokenState {
	switch {
	case t.Used:
		return TokenUsed
	case IsTokenExpired(t, now):
		return TokenExpired
	default:
		return TokenValid
	}
}

// IsDueForReminder reports whether interval has elapsed since the last
// reminder, or since the join when none was sent yet. Schedules past their
// kick deadline still qualify.
func IsDueForReminder(s *model.KickSchedule, now time.Time, interval time.Duration) bool {
	if !s.Active {
		return false
	}
	since := s.JoinedAt
	if s.LastReminderAt != nil {
		since = *s.LastReminderAt
	}
	return !now.Before(since.Add(interval))
}

// IsDueForKick reports whether an active schedule reached its deadline.
func IsDueForKick(s *model.KickSchedule, now time.Time) bool {
	return s.Active && !now.Before(s.KickAt)
}

// ReminderDueBefore returns the latest last-reminder (or join) time that
// makes a schedule due at now.
func ReminderDueBefore(now time.Time, interval time.Duration) time.Time {
	return now.Add(-interval)
}
