package service

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/jmoiron/sqlx"

	"github.com/templui/discord-onboarding/internal/db"
	"github.com/templui/discord-onboarding/internal/model"
	"github.com/templui/discord-onboarding/internal/repository"
)

type ScheduleService struct {
	db                 *sqlx.DB
	scheduleRepository repository.ScheduleRepository
	linkRepository     repository.LinkRepository
	members            MemberLister
	archiver           Archiver // optional
	guildID            int64
	timeout            time.Duration
	now                func() time.Time
}

func NewScheduleService(
	database *sqlx.DB,
	scheduleRepository repository.ScheduleRepository,
	linkRepository repository.LinkRepository,
	members MemberLister,
	archiver Archiver,
	guildID int64,
	timeout time.Duration,
) *ScheduleService {
	return &ScheduleService{
		db:                 database,
		scheduleRepository: scheduleRepository,
		linkRepository:     linkRepository,
		members:            members,
		archiver:           archiver,
		guildID:            guildID,
		timeout:            timeout,
		now:                time.Now,
	}
}

// Track starts the auto-kick clock for a member. ErrDuplicateSchedule means
// the member is already tracked and callers should treat it as success.
func (s *ScheduleService) Track(ctx context.Context, member model.Member, joinedAt time.Time) (*model.KickSchedule, error) {
	schedule, err := model.NewKickSchedule(member.ID, member.Username, s.guildID, joinedAt, s.timeout)
	if err != nil {
		return nil, err
	}
	schedule.CreatedAt = s.now()

	err = s.scheduleRepository.Create(ctx, schedule)
	if err != nil {
		return nil, err
	}

	slog.Info("kick schedule created", "discord_id", member.ID, "kick_at", schedule.KickAt)
	return schedule, nil
}

type OrphanResult struct {
	Created        int `json:"created"`
	AlreadyTracked int `json:"already_tracked"`
	Linked         int `json:"linked"`
	Bots           int `json:"bots"`
}

// AddOrphaned tracks every guild member that is neither linked nor already
// scheduled. Tracking starts now, so each of them gets the full timeout.
func (s *ScheduleService) AddOrphaned(ctx context.Context) (*OrphanResult, error) {
	members, err := s.members.ListMembers(ctx, s.guildID)
	if err != nil {
		return nil, fmt.Errorf("failed to list guild members: %w", err)
	}

	linkedIDs, err := s.linkRepository.LinkedDiscordIDs(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to list linked accounts: %w", err)
	}
	activeIDs, err := s.scheduleRepository.ActiveDiscordIDs(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to list active schedules: %w", err)
	}

	linked := toSet(linkedIDs)
	tracked := toSet(activeIDs)
	result := &OrphanResult{}
	now := s.now()

	for _, member := range members {
		switch {
		case member.Bot:
			result.Bots++
			continue
		case linked[member.ID]:
			result.Linked++
			continue
		case tracked[member.ID]:
			result.AlreadyTracked++
			continue
		}

		_, err := s.Track(ctx, member, now)
		if errors.Is(err, ErrDuplicateSchedule) {
			result.AlreadyTracked++
			continue
		}
		if err != nil {
			slog.Error("failed to track orphaned member", "error", err, "discord_id", member.ID)
			continue
		}
		result.Created++
	}

	slog.Info("orphaned members added", "created", result.Created, "already_tracked", result.AlreadyTracked, "linked", result.Linked)
	return result, nil
}

func (s *ScheduleService) List(ctx context.Context, includeInactive bool) ([]model.KickSchedule, error) {
	return s.scheduleRepository.List(ctx, includeInactive)
}

// Deactivate clears the active schedule of an account.
func (s *ScheduleService) Deactivate(ctx context.Context, discordID int64, reason string) error {
	schedule, err := s.scheduleRepository.ActiveByDiscordID(ctx, discordID)
	if errors.Is(err, repository.ErrScheduleNotFound) {
		return ErrNotFound
	}
	if err != nil {
		return err
	}

	_, err = s.scheduleRepository.Deactivate(ctx, schedule.ID, s.now(), reason)
	if err != nil {
		return fmt.Errorf("failed to deactivate schedule: %w", err)
	}

	slog.Info("schedule deactivated", "discord_id", discordID, "reason", reason)
	return nil
}

// Purge deletes schedules deactivated more than olderThan ago. When an
// archiver is configured the rows are exported first; a failed export
// aborts the purge.
func (s *ScheduleService) Purge(ctx context.Context, olderThan time.Duration) (int64, error) {
	now := s.now()
	before := now.Add(-olderThan)
	var deleted int64

	err := db.WithTx(ctx, s.db, func(tx *sqlx.Tx) error {
		schedules := repository.NewScheduleRepository(tx)

		if s.archiver != nil {
			rows, err := schedules.ListInactive(ctx, before)
			if err != nil {
				return fmt.Errorf("failed to list inactive schedules: %w", err)
			}
			if len(rows) == 0 {
				return nil
			}
			body, err := json.Marshal(rows)
			if err != nil {
				return fmt.Errorf("failed to encode archive: %w", err)
			}
			key := fmt.Sprintf("kick-schedules/%s.json", now.UTC().Format("20060102T150405Z"))
			err = s.archiver.Archive(ctx, key, body)
			if err != nil {
				return fmt.Errorf("failed to archive schedules: %w", err)
			}
			slog.Info("kick schedules archived", "key", key, "count", len(rows))
		}

		n, err := schedules.DeleteInactive(ctx, before)
		if err != nil {
			return fmt.Errorf("failed to delete inactive schedules: %w", err)
		}
		deleted = n
		return nil
	})
	if err != nil {
		return 0, err
	}

	slog.Info("inactive schedules purged", "count", deleted)
	return deleted, nil
}

func toSet(ids []int64) map[int64]bool {
	set := make(map[int64]bool, len(ids))
	for _, id := range ids {
		set[id] = true
	}
	return set
}
