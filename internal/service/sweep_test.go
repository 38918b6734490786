package service

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/templui/discord-onboarding/internal/model"
)

func sweep(t *testing.T, env *testEnv) *SweepResult {
	t.Helper()
	result, err := env.sweeper.Run(context.Background())
	require.NoError(t, err)
	return result
}

func reminders(msgs []Message) int {
	n := 0
	for _, m := range msgs {
		if strings.HasPrefix(m.Title, "Reminder") {
			n++
		}
	}
	return n
}

func TestSweep_RemindersEveryInterval(t *testing.T) {
	env := newEnv(t)
	env.join(t, 1, "newbie")

	for i := 1; i <= 3; i++ {
		env.clock.Advance(testInterval)
		result := sweep(t, env)
		assert.Equal(t, 1, result.RemindersSent, "sweep %d", i)
		assert.Equal(t, i, env.activeSchedule(t, 1).ReminderCount)
	}
	assert.Equal(t, 3, reminders(env.messenger.directTo(1)))
	assert.Empty(t, env.remover.removed)
}

func TestSweep_RepeatedSweepSendsOneReminder(t *testing.T) {
	env := newEnv(t)
	env.join(t, 1, "newbie")

	env.clock.Advance(testInterval)
	sweep(t, env)
	env.clock.Advance(15 * time.Minute)
	result := sweep(t, env)

	assert.Zero(t, result.RemindersSent)
	assert.Equal(t, 1, env.activeSchedule(t, 1).ReminderCount)
	assert.Equal(t, 1, reminders(env.messenger.directTo(1)))
}

func TestSweep_ReminderIssuesFreshToken(t *testing.T) {
	env := newEnv(t)
	ctx := context.Background()
	env.join(t, 1, "newbie")

	env.clock.Advance(testInterval)
	sweep(t, env)

	token, err := env.repos.Tokens.LatestValid(ctx, 1, env.clock.Now())
	require.NoError(t, err)
	assert.Equal(t, model.TokenSourceReminder, token.Source)

	msgs := env.messenger.directTo(1)
	assert.Equal(t, env.tokens.Link(token), msgs[len(msgs)-1].URL)
}

func TestSweep_ReminderDMFailureStillRecorded(t *testing.T) {
	env := newEnv(t)
	env.join(t, 1, "newbie")
	env.messenger.failFor[1] = true

	env.clock.Advance(testInterval)
	result := sweep(t, env)

	assert.Zero(t, result.RemindersSent)
	assert.Equal(t, 1, result.ReminderFailures)
	assert.Equal(t, 1, env.activeSchedule(t, 1).ReminderCount)
}

func TestSweep_RemindersDisabled(t *testing.T) {
	env := newEnv(t, func(cfg *SweepConfig) { cfg.RemindersEnabled = false })
	env.join(t, 1, "newbie")

	env.clock.Advance(testInterval)
	result := sweep(t, env)

	assert.Zero(t, result.RemindersSent)
	assert.Zero(t, env.activeSchedule(t, 1).ReminderCount)
}

func TestSweep_KicksAtDeadline(t *testing.T) {
	env := newEnv(t)
	ctx := context.Background()
	env.join(t, 1, "newbie")
	schedule := env.activeSchedule(t, 1)

	env.clock.Set(schedule.KickAt.Add(-time.Minute))
	result := sweep(t, env)
	assert.Zero(t, result.Kicked)

	env.clock.Set(schedule.KickAt)
	result = sweep(t, env)
	assert.Equal(t, 1, result.Kicked)
	assert.Equal(t, []int64{1}, env.remover.removed)

	msgs := env.messenger.directTo(1)
	assert.Equal(t, "Bye newbie, you had 168 hours.", msgs[len(msgs)-1].Content)

	require.Len(t, env.kickLog.events, 1)
	assert.Equal(t, int64(1), env.kickLog.events[0].DiscordID)
	assert.NoError(t, env.kickLog.events[0].RemovalErr)

	got, err := env.repos.Schedules.ByID(ctx, schedule.ID)
	require.NoError(t, err)
	assert.False(t, got.Active)
	assert.Equal(t, model.DeactivatedKicked, got.DeactivationReason)

	// Terminal: no second kick
	env.clock.Advance(time.Hour)
	result = sweep(t, env)
	assert.Zero(t, result.Kicked)
	assert.Len(t, env.remover.removed, 1)
}

func TestSweep_RemovalFailureStillDeactivates(t *testing.T) {
	env := newEnv(t)
	ctx := context.Background()
	env.join(t, 1, "newbie")
	schedule := env.activeSchedule(t, 1)
	env.remover.err = DispatchError("remove member", errors.New("missing permissions"))

	env.clock.Set(schedule.KickAt)
	result := sweep(t, env)

	assert.Zero(t, result.Kicked)
	assert.Equal(t, 1, result.KickFailures)
	require.Len(t, env.kickLog.events, 1)
	assert.ErrorIs(t, env.kickLog.events[0].RemovalErr, ErrExternalDispatch)

	got, err := env.repos.Schedules.ByID(ctx, schedule.ID)
	require.NoError(t, err)
	assert.False(t, got.Active)
}

func TestSweep_KickLogFailureIsIsolated(t *testing.T) {
	env := newEnv(t)
	env.join(t, 1, "first")
	env.join(t, 2, "second")
	env.kickLog.err = errors.New("channel gone")

	env.clock.Advance(testTimeout)
	result := sweep(t, env)

	assert.Equal(t, 2, result.Kicked)
	assert.Len(t, env.kickLog.events, 2)
}

func TestSweep_UsedTokenClosesSchedule(t *testing.T) {
	env := newEnv(t)
	ctx := context.Background()
	env.join(t, 1, "newbie")
	schedule := env.activeSchedule(t, 1)

	// A token consumed outside the completion flow leaves the schedule active
	token, err := env.repos.Tokens.LatestValid(ctx, 1, env.clock.Now())
	require.NoError(t, err)
	user := &model.User{CharacterID: 9001, CharacterName: "Pilot", CreatedAt: t0}
	require.NoError(t, env.repos.Users.Create(ctx, user))
	_, err = env.repos.Tokens.Consume(ctx, token.ID, user.ID, env.clock.Now())
	require.NoError(t, err)

	env.clock.Set(schedule.KickAt)
	result := sweep(t, env)

	assert.Equal(t, 1, result.AlreadyLinked)
	assert.Zero(t, result.Kicked)
	assert.Empty(t, env.remover.removed)

	got, err := env.repos.Schedules.ByID(ctx, schedule.ID)
	require.NoError(t, err)
	assert.False(t, got.Active)
	assert.Equal(t, model.DeactivatedAuthenticated, got.DeactivationReason)
}

func TestSweep_OverdueReminder(t *testing.T) {
	tests := []struct {
		name          string
		skipOverdue   bool
		wantReminders int
	}{
		{name: "last chance reminder", skipOverdue: false, wantReminders: 1},
		{name: "skip overdue", skipOverdue: true, wantReminders: 0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			env := newEnv(t, func(cfg *SweepConfig) { cfg.SkipOverdueReminders = tt.skipOverdue })
			env.join(t, 1, "newbie")

			env.clock.Advance(testTimeout + time.Hour)
			result := sweep(t, env)

			assert.Equal(t, tt.wantReminders, result.RemindersSent)
			assert.Equal(t, 1, result.Kicked)
			assert.Equal(t, tt.wantReminders, reminders(env.messenger.directTo(1)))
		})
	}
}

func TestSweep_IsolatesFailures(t *testing.T) {
	env := newEnv(t)
	env.join(t, 1, "unreachable")
	env.join(t, 2, "reachable")
	env.messenger.failFor[1] = true

	env.clock.Advance(testInterval)
	result := sweep(t, env)

	assert.Equal(t, 1, result.RemindersSent)
	assert.Equal(t, 1, result.ReminderFailures)
	assert.Equal(t, 1, reminders(env.messenger.directTo(2)))
}

func TestNewSweeper_InvalidGoodbyeTemplate(t *testing.T) {
	env := newEnv(t)
	_, err := NewSweeper(env.repos.Schedules, env.repos.Tokens, env.tokens, env.messenger, env.remover, nil, SweepConfig{GoodbyeTemplate: "{{.Username"})
	assert.Error(t, err)
}
