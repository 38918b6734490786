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

func TestJoined_IssuesTokenScheduleAndWelcome(t *testing.T) {
	env := newEnv(t)

	env.join(t, 1, "newbie")

	msgs := env.messenger.directTo(1)
	require.Len(t, msgs, 1)
	assert.Contains(t, msgs[0].URL, "https://auth.example.com/onboarding/start/")
	assert.Contains(t, msgs[0].Title, "Test Alliance")

	token, err := env.repos.Tokens.LatestValid(context.Background(), 1, env.clock.Now())
	require.NoError(t, err)
	assert.Equal(t, model.TokenSourceJoin, token.Source)
	assert.Equal(t, env.tokens.Link(token), msgs[0].URL)

	s := env.activeSchedule(t, 1)
	assert.True(t, s.KickAt.Equal(t0.Add(testTimeout)))
	assert.Equal(t, testGuildID, s.GuildID)
}

func TestJoined_IgnoresBots(t *testing.T) {
	env := newEnv(t)

	require.NoError(t, env.members.Joined(context.Background(), model.Member{ID: 1, Username: "bot", Bot: true}))

	assert.Empty(t, env.messenger.directTo(1))
	_, err := env.repos.Schedules.ActiveByDiscordID(context.Background(), 1)
	assert.ErrorIs(t, err, repository.ErrScheduleNotFound)
}

func TestJoined_RejoinKeepsSingleSchedule(t *testing.T) {
	env := newEnv(t)

	env.join(t, 1, "newbie")
	first := env.activeSchedule(t, 1)
	env.clock.Advance(10 * time.Minute)
	env.join(t, 1, "newbie")

	assert.Equal(t, first.ID, env.activeSchedule(t, 1).ID)
	assert.Len(t, env.messenger.directTo(1), 2)
}

func TestJoined_DirectMessageRefusedIsNotFatal(t *testing.T) {
	env := newEnv(t)
	env.messenger.failFor[1] = true

	env.join(t, 1, "private")

	env.activeSchedule(t, 1)
}

func TestJoined_AutoKickDisabled(t *testing.T) {
	env := newEnv(t)
	env.members.autoKick = false

	env.join(t, 1, "newbie")

	_, err := env.repos.Schedules.ActiveByDiscordID(context.Background(), 1)
	assert.ErrorIs(t, err, repository.ErrScheduleNotFound)
	assert.Len(t, env.messenger.directTo(1), 1)
}
