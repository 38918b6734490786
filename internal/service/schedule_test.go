package service

import (
	"context"
	"encoding/json"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/templui/discord-onboarding/internal/model"
	"github.com/templui/discord-onboarding/internal/repository"
)

func TestAddOrphaned(t *testing.T) {
	env := newEnv(t)
	ctx := context.Background()

	user := &model.User{CharacterID: 9001, CharacterName: "Pilot", CreatedAt: t0}
	require.NoError(t, env.repos.Users.Create(ctx, user))
	_, err := env.repos.Links.Upsert(ctx, &model.DiscordLink{DiscordID: 2, UserID: user.ID, UpdatedAt: t0})
	require.NoError(t, err)
	env.join(t, 3, "tracked")

	env.lister.members = []model.Member{
		{ID: 1, Username: "robot", Bot: true},
		{ID: 2, Username: "linked"},
		{ID: 3, Username: "tracked"},
		{ID: 4, Username: "orphan", JoinedAt: t0.Add(-30 * 24 * time.Hour)},
	}

	env.clock.Advance(time.Hour)
	result, err := env.schedules.AddOrphaned(ctx)
	require.NoError(t, err)
	assert.Equal(t, OrphanResult{Created: 1, AlreadyTracked: 1, Linked: 1, Bots: 1}, *result)

	orphan := env.activeSchedule(t, 4)
	assert.True(t, orphan.JoinedAt.Equal(env.clock.Now()))
	assert.True(t, orphan.KickAt.Equal(env.clock.Now().Add(testTimeout)))

	_, err = env.repos.Schedules.ActiveByDiscordID(ctx, 1)
	assert.ErrorIs(t, err, repository.ErrScheduleNotFound)

	// Second run finds nothing new
	result, err = env.schedules.AddOrphaned(ctx)
	require.NoError(t, err)
	assert.Zero(t, result.Created)
	assert.Equal(t, 2, result.AlreadyTracked)
}

func TestScheduleDeactivate(t *testing.T) {
	env := newEnv(t)
	ctx := context.Background()

	assert.ErrorIs(t, env.schedules.Deactivate(ctx, 1, model.DeactivatedAdmin), ErrNotFound)

	env.join(t, 1, "newbie")
	schedule := env.activeSchedule(t, 1)
	require.NoError(t, env.schedules.Deactivate(ctx, 1, model.DeactivatedAdmin))

	got, err := env.repos.Schedules.ByID(ctx, schedule.ID)
	require.NoError(t, err)
	assert.False(t, got.Active)
	assert.Equal(t, model.DeactivatedAdmin, got.DeactivationReason)

	assert.ErrorIs(t, env.schedules.Deactivate(ctx, 1, model.DeactivatedAdmin), ErrNotFound)
}

func TestSchedulePurge_ArchivesThenDeletes(t *testing.T) {
	env := newEnv(t)
	ctx := context.Background()

	env.join(t, 1, "gone")
	env.join(t, 2, "still here")
	old := env.activeSchedule(t, 1)
	require.NoError(t, env.schedules.Deactivate(ctx, 1, model.DeactivatedAdmin))

	env.clock.Advance(10 * 24 * time.Hour)
	deleted, err := env.schedules.Purge(ctx, 7*24*time.Hour)
	require.NoError(t, err)
	assert.Equal(t, int64(1), deleted)

	require.Len(t, env.archiver.keys, 1)
	assert.Equal(t, "kick-schedules/20260311T120000Z.json", env.archiver.keys[0])

	var archived []map[string]any
	require.NoError(t, json.Unmarshal(env.archiver.bodies[0], &archived))
	require.Len(t, archived, 1)
	assert.Equal(t, old.ID, archived[0]["id"])
	assert.Equal(t, "1", archived[0]["discord_id"])

	_, err = env.repos.Schedules.ByID(ctx, old.ID)
	assert.ErrorIs(t, err, repository.ErrScheduleNotFound)
	env.activeSchedule(t, 2)
}

func TestSchedulePurge_NothingToArchive(t *testing.T) {
	env := newEnv(t)

	deleted, err := env.schedules.Purge(context.Background(), 7*24*time.Hour)
	require.NoError(t, err)
	assert.Zero(t, deleted)
	assert.Empty(t, env.archiver.keys)
}

func TestSchedulePurge_ArchiveFailureKeepsRows(t *testing.T) {
	env := newEnv(t)
	ctx := context.Background()

	env.join(t, 1, "gone")
	old := env.activeSchedule(t, 1)
	require.NoError(t, env.schedules.Deactivate(ctx, 1, model.DeactivatedAdmin))
	env.archiver.err = errors.New("bucket unavailable")

	env.clock.Advance(10 * 24 * time.Hour)
	_, err := env.schedules.Purge(ctx, 7*24*time.Hour)
	require.Error(t, err)

	_, err = env.repos.Schedules.ByID(ctx, old.ID)
	assert.NoError(t, err)
}
