package service

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/templui/discord-onboarding/internal/model"
	"github.com/templui/discord-onboarding/internal/repository"
)

func issue(t *testing.T, env *testEnv, discordID int64) *model.Token {
	t.Helper()
	token, err := env.tokens.Issue(context.Background(), discordID, "member", model.TokenSourceJoin)
	require.NoError(t, err)
	return token
}

func TestStart(t *testing.T) {
	env := newEnv(t)
	ctx := context.Background()

	_, err := env.onboarding.Start(ctx, "missing")
	assert.ErrorIs(t, err, ErrNotFound)

	token := issue(t, env, 1)
	got, err := env.onboarding.Start(ctx, token.Value)
	require.NoError(t, err)
	assert.Equal(t, token.ID, got.ID)

	env.clock.Advance(testTokenTTL + time.Second)
	_, err = env.onboarding.Start(ctx, token.Value)
	assert.ErrorIs(t, err, ErrExpired)
}

func TestStart_UsedToken(t *testing.T) {
	env := newEnv(t)
	ctx := context.Background()

	token := issue(t, env, 1)
	_, err := env.onboarding.Complete(ctx, token.ID, identity(9001, "Pilot"), false)
	require.NoError(t, err)

	_, err = env.onboarding.Start(ctx, token.Value)
	assert.ErrorIs(t, err, ErrUsed)
}

func TestComplete_LinksAndDeactivatesSchedule(t *testing.T) {
	env := newEnv(t)
	ctx := context.Background()

	env.join(t, 1, "newbie")
	token, err := env.repos.Tokens.LatestValid(ctx, 1, env.clock.Now())
	require.NoError(t, err)

	env.clock.Advance(5 * time.Minute)
	result, err := env.onboarding.Complete(ctx, token.ID, identity(9001, "Pilot One"), false)
	require.NoError(t, err)
	assert.True(t, result.ScheduleDeactivated)
	assert.Empty(t, result.PreviousUserID)
	assert.False(t, result.User.Active)

	used, err := env.repos.Tokens.ByID(ctx, token.ID)
	require.NoError(t, err)
	assert.True(t, used.Used)
	require.NotNil(t, used.UserID)
	assert.Equal(t, result.User.ID, *used.UserID)

	link, err := env.repos.Links.ByDiscordID(ctx, 1)
	require.NoError(t, err)
	assert.Equal(t, result.User.ID, link.UserID)

	_, err = env.repos.Schedules.ActiveByDiscordID(ctx, 1)
	assert.ErrorIs(t, err, repository.ErrScheduleNotFound)

	require.Len(t, env.notifier.events, 1)
	evt := env.notifier.events[0]
	assert.Equal(t, int64(1), evt.DiscordID)
	assert.Equal(t, "Pilot One", evt.CharacterName)
	assert.Equal(t, int64(9001), evt.CharacterID)
}

func TestComplete_TwiceIsRejected(t *testing.T) {
	env := newEnv(t)
	ctx := context.Background()

	token := issue(t, env, 1)
	_, err := env.onboarding.Complete(ctx, token.ID, identity(9001, "Pilot"), false)
	require.NoError(t, err)

	_, err = env.onboarding.Complete(ctx, token.ID, identity(9001, "Pilot"), false)
	assert.ErrorIs(t, err, ErrUsed)
	assert.Len(t, env.notifier.events, 1)
}

func TestComplete_ExpiredDuringRoundTrip(t *testing.T) {
	env := newEnv(t)
	ctx := context.Background()

	token := issue(t, env, 1)
	env.clock.Advance(testTokenTTL + time.Minute)

	_, err := env.onboarding.Complete(ctx, token.ID, identity(9001, "Pilot"), false)
	assert.ErrorIs(t, err, ErrExpired)
	assert.Empty(t, env.notifier.events)

	_, err = env.repos.Users.ByCharacterID(ctx, 9001)
	assert.ErrorIs(t, err, repository.ErrUserNotFound, "failed completion must not leave a user behind")
}

func TestComplete_NoIdentity(t *testing.T) {
	env := newEnv(t)

	token := issue(t, env, 1)
	_, err := env.onboarding.Complete(context.Background(), token.ID, model.Identity{}, false)
	assert.ErrorIs(t, err, ErrNoIdentity)
}

func TestComplete_UnknownToken(t *testing.T) {
	env := newEnv(t)

	_, err := env.onboarding.Complete(context.Background(), "missing", identity(9001, "Pilot"), false)
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestComplete_BypassActivatesUser(t *testing.T) {
	env := newEnv(t)
	ctx := context.Background()

	result, err := env.onboarding.Complete(ctx, issue(t, env, 1).ID, identity(9001, "Pilot"), true)
	require.NoError(t, err)
	assert.True(t, result.User.Active)

	// Without bypass an existing active user stays active
	result, err = env.onboarding.Complete(ctx, issue(t, env, 1).ID, identity(9001, "Pilot"), false)
	require.NoError(t, err)
	assert.True(t, result.User.Active)
}

func TestComplete_RelinkLastWriteWins(t *testing.T) {
	env := newEnv(t)
	ctx := context.Background()

	first, err := env.onboarding.Complete(ctx, issue(t, env, 1).ID, identity(9001, "Alt"), false)
	require.NoError(t, err)

	second, err := env.onboarding.Complete(ctx, issue(t, env, 1).ID, identity(9002, "Main"), false)
	require.NoError(t, err)
	assert.Equal(t, first.User.ID, second.PreviousUserID)

	link, err := env.repos.Links.ByDiscordID(ctx, 1)
	require.NoError(t, err)
	assert.Equal(t, second.User.ID, link.UserID)
}

func TestComplete_ThenSweepTakesNoAction(t *testing.T) {
	env := newEnv(t)
	ctx := context.Background()

	env.join(t, 1, "newbie")
	token, err := env.repos.Tokens.LatestValid(ctx, 1, env.clock.Now())
	require.NoError(t, err)
	_, err = env.onboarding.Complete(ctx, token.ID, identity(9001, "Pilot"), false)
	require.NoError(t, err)
	welcome := len(env.messenger.directTo(1))

	env.clock.Advance(testTimeout + time.Hour)
	result, err := env.sweeper.Run(ctx)
	require.NoError(t, err)

	assert.Zero(t, result.Kicked)
	assert.Zero(t, result.RemindersSent)
	assert.Empty(t, env.remover.removed)
	assert.Len(t, env.messenger.directTo(1), welcome)
}
