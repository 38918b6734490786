package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"text/template"
	"time"

	"github.com/templui/discord-onboarding/internal/lifecycle"
	"github.com/templui/discord-onboarding/internal/model"
	"github.com/templui/discord-onboarding/internal/repository"
)

type SweepConfig struct {
	AppName              string
	GuildID              int64
	RemindersEnabled     bool
	ReminderInterval     time.Duration
	SkipOverdueReminders bool // no reminder for a schedule already due for a kick
	KickTimeout          time.Duration
	GoodbyeTemplate      string
}

type SweepResult struct {
	RemindersSent    int `json:"reminders_sent"`
	ReminderFailures int `json:"reminder_failures"`
	Kicked           int `json:"kicked"`
	KickFailures     int `json:"kick_failures"`
	AlreadyLinked    int `json:"already_linked"`
	Skipped          int `json:"skipped"`
}

// Sweeper runs the periodic reminder and kick pass over active schedules.
// Each schedule is handled on its own: one failure never stops the sweep.
type Sweeper struct {
	scheduleRepository repository.ScheduleRepository
	tokenRepository    repository.TokenRepository
	tokenService       *TokenService
	messenger          Messenger
	remover            MemberRemover
	kickLogger         KickLogger // optional
	cfg                SweepConfig
	goodbye            *template.Template
	now                func() time.Time
}

func NewSweeper(
	scheduleRepository repository.ScheduleRepository,
	tokenRepository repository.TokenRepository,
	tokenService *TokenService,
	messenger Messenger,
	remover MemberRemover,
	kickLogger KickLogger,
	cfg SweepConfig,
) (*Sweeper, error) {
	goodbye, err := parseGoodbyeTemplate(cfg.GoodbyeTemplate)
	if err != nil {
		return nil, err
	}

	return &Sweeper{
		scheduleRepository: scheduleRepository,
		tokenRepository:    tokenRepository,
		tokenService:       tokenService,
		messenger:          messenger,
		remover:            remover,
		kickLogger:         kickLogger,
		cfg:                cfg,
		goodbye:            goodbye,
		now:                time.Now,
	}, nil
}

// Run performs one sweep: reminders first, then kicks.
func (s *Sweeper) Run(ctx context.Context) (*SweepResult, error) {
	now := s.now()
	result := &SweepResult{}

	if s.cfg.RemindersEnabled {
		err := s.remind(ctx, now, result)
		if err != nil {
			return result, err
		}
	}

	err := s.kick(ctx, now, result)
	if err != nil {
		return result, err
	}

	slog.Info("sweep finished",
		"reminders_sent", result.RemindersSent,
		"reminder_failures", result.ReminderFailures,
		"kicked", result.Kicked,
		"kick_failures", result.KickFailures,
		"already_linked", result.AlreadyLinked,
	)
	return result, nil
}

func (s *Sweeper) remind(ctx context.Context, now time.Time, result *SweepResult) error {
	schedules, err := s.scheduleRepository.ListActive(ctx)
	if err != nil {
		return fmt.Errorf("failed to list active schedules: %w", err)
	}

	for i := range schedules {
		if ctx.Err() != nil {
			return ctx.Err()
		}
		schedule := &schedules[i]
		if !lifecycle.IsDueForReminder(schedule, now, s.cfg.ReminderInterval) {
			continue
		}
		if s.cfg.SkipOverdueReminders && lifecycle.IsDueForKick(schedule, now) {
			continue
		}
		s.remindOne(ctx, schedule, now, result)
	}
	return nil
}

func (s *Sweeper) remindOne(ctx context.Context, schedule *model.KickSchedule, now time.Time, result *SweepResult) {
	log := slog.With("discord_id", schedule.DiscordID, "schedule_id", schedule.ID)

	linked, err := s.closeIfLinked(ctx, schedule, now)
	if err != nil {
		log.Error("failed to check used tokens", "error", err)
		result.ReminderFailures++
		return
	}
	if linked {
		result.AlreadyLinked++
		return
	}

	err = s.scheduleRepository.MarkReminderSent(ctx, schedule.ID, now, s.cfg.ReminderInterval)
	if errors.Is(err, repository.ErrScheduleInactive) || errors.Is(err, repository.ErrReminderNotDue) {
		log.Debug("reminder skipped", "reason", err)
		result.Skipped++
		return
	}
	if err != nil {
		log.Error("failed to record reminder", "error", err)
		result.ReminderFailures++
		return
	}

	token, err := s.tokenService.Issue(ctx, schedule.DiscordID, schedule.DiscordUsername, model.TokenSourceReminder)
	if err != nil {
		log.Error("failed to issue reminder token", "error", err)
		result.ReminderFailures++
		return
	}

	msg := reminderMessage(s.cfg.AppName, s.tokenService.Link(token), s.tokenService.TTL(), schedule.ReminderCount+1, schedule.KickAt)
	err = s.messenger.SendDirect(ctx, schedule.DiscordID, msg)
	if err != nil {
		log.Warn("reminder dm failed", "error", err)
		result.ReminderFailures++
		return
	}

	log.Info("reminder sent", "reminder_count", schedule.ReminderCount+1)
	result.RemindersSent++
}

func (s *Sweeper) kick(ctx context.Context, now time.Time, result *SweepResult) error {
	due, err := s.scheduleRepository.ListDueForKick(ctx, now)
	if err != nil {
		return fmt.Errorf("failed to list schedules due for kick: %w", err)
	}

	for i := range due {
		if ctx.Err() != nil {
			return ctx.Err()
		}
		s.kickOne(ctx, due[i].ID, now, result)
	}
	return nil
}

func (s *Sweeper) kickOne(ctx context.Context, scheduleID string, now time.Time, result *SweepResult) {
	log := slog.With("schedule_id", scheduleID)

	// Re-read: the schedule may have been deactivated since it was listed
	schedule, err := s.scheduleRepository.ByID(ctx, scheduleID)
	if err != nil {
		log.Error("failed to reload schedule", "error", err)
		result.KickFailures++
		return
	}
	if !lifecycle.IsDueForKick(schedule, now) {
		result.Skipped++
		return
	}
	log = log.With("discord_id", schedule.DiscordID)

	linked, err := s.closeIfLinked(ctx, schedule, now)
	if err != nil {
		log.Error("failed to check used tokens", "error", err)
		result.KickFailures++
		return
	}
	if linked {
		result.AlreadyLinked++
		return
	}

	goodbye, err := renderGoodbye(s.goodbye, goodbyeData{
		Username:     schedule.DiscordUsername,
		AppName:      s.cfg.AppName,
		TimeoutHours: int(s.cfg.KickTimeout / time.Hour),
		JoinedAt:     schedule.JoinedAt,
	})
	if err != nil {
		log.Error("failed to render goodbye message", "error", err)
	} else {
		err = s.messenger.SendDirect(ctx, schedule.DiscordID, Message{Content: goodbye})
		if err != nil {
			log.Warn("goodbye dm failed", "error", err)
		}
	}

	removalErr := s.remover.RemoveMember(ctx, schedule.GuildID, schedule.DiscordID, "Did not authenticate within the time limit")
	if removalErr != nil {
		log.Warn("member removal failed", "error", removalErr)
		result.KickFailures++
	} else {
		result.Kicked++
		log.Info("member removed")
	}

	if s.kickLogger != nil {
		err = s.kickLogger.LogKick(ctx, KickEvent{
			DiscordID:     schedule.DiscordID,
			Username:      schedule.DiscordUsername,
			GuildID:       schedule.GuildID,
			JoinedAt:      schedule.JoinedAt,
			KickedAt:      now,
			ReminderCount: schedule.ReminderCount,
			RemovalErr:    removalErr,
		})
		if err != nil {
			log.Warn("kick log failed", "error", err)
		}
	}

	// The schedule ends after any removal attempt, successful or not
	_, err = s.scheduleRepository.Deactivate(ctx, schedule.ID, now, model.DeactivatedKicked)
	if err != nil {
		log.Error("failed to deactivate schedule after kick", "error", err)
	}
}

// closeIfLinked deactivates the schedule when any token of the account was
// already used, which covers completions that did not reach the schedule.
func (s *Sweeper) closeIfLinked(ctx context.Context, schedule *model.KickSchedule, now time.Time) (bool, error) {
	used, err := s.tokenRepository.HasUsed(ctx, schedule.DiscordID)
	if err != nil || !used {
		return false, err
	}

	_, err = s.scheduleRepository.Deactivate(ctx, schedule.ID, now, model.DeactivatedAuthenticated)
	if err != nil {
		return false, fmt.Errorf("failed to deactivate linked schedule: %w", err)
	}
	slog.Info("schedule closed for linked account", "discord_id", schedule.DiscordID)
	return true, nil
}
