package repository

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"github.com/templui/discord-onboarding/internal/db"
	"github.com/templui/discord-onboarding/internal/model"
)

var (
	ErrScheduleNotFound  = errors.New("kick schedule not found")
	ErrDuplicateSchedule = errors.New("active kick schedule already exists")
	ErrScheduleInactive  = errors.New("kick schedule is no longer active")
	ErrReminderNotDue    = errors.New("reminder is not due")
)

type ScheduleRepository interface {
	Create(ctx context.Context, schedule *model.KickSchedule) error
	ByID(ctx context.Context, id string) (*model.KickSchedule, error)
	ActiveByDiscordID(ctx context.Context, discordID int64) (*model.KickSchedule, error)
	List(ctx context.Context, includeInactive bool) ([]model.KickSchedule, error)
	ListActive(ctx context.Context) ([]model.KickSchedule, error)
	ListDueForKick(ctx context.Context, now time.Time) ([]model.KickSchedule, error)
	ActiveDiscordIDs(ctx context.Context) ([]int64, error)
	MarkReminderSent(ctx context.Context, id string, now time.Time, interval time.Duration) error
	Deactivate(ctx context.Context, id string, now time.Time, reason string) (bool, error)
	DeactivateByDiscordID(ctx context.Context, discordID int64, now time.Time, reason string) (bool, error)
	ListInactive(ctx context.Context, before time.Time) ([]model.KickSchedule, error)
	DeleteInactive(ctx context.Context, before time.Time) (int64, error)
}

type scheduleRepository struct {
	db sqlx.ExtContext
}

func NewScheduleRepository(db sqlx.ExtContext) ScheduleRepository {
	return &scheduleRepository{db: db}
}

// Create inserts an active schedule. The partial unique index on active rows
// makes the existence check and the insert a single atomic step.
func (r *scheduleRepository) Create(ctx context.Context, s *model.KickSchedule) error {
	if s.JoinedAt.IsZero() {
		return model.ErrJoinedAtRequired
	}
	if s.ID == "" {
		s.ID = uuid.New().String()
	}
	if s.CreatedAt.IsZero() {
		s.CreatedAt = time.Now()
	}
	s.CreatedAt = timestamp(s.CreatedAt)
	s.JoinedAt = timestamp(s.JoinedAt)
	s.KickAt = timestamp(s.KickAt)
	s.Active = true
	s.ReminderCount = 0
	s.LastReminderAt = nil

	query := `
		INSERT INTO kick_schedules (id, discord_id, discord_username, guild_id, joined_at, kick_at, reminder_count, active, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
	`
	_, err := r.db.ExecContext(ctx, query,
		s.ID,
		s.DiscordID,
		s.DiscordUsername,
		s.GuildID,
		s.JoinedAt,
		s.KickAt,
		0,
		true,
		s.CreatedAt,
	)
	if db.IsUniqueViolation(err) {
		return ErrDuplicateSchedule
	}
	return err
}

func (r *scheduleRepository) ByID(ctx context.Context, id string) (*model.KickSchedule, error) {
	return r.get(ctx, `SELECT * FROM kick_schedules WHERE id = $1`, id)
}

func (r *scheduleRepository) ActiveByDiscordID(ctx context.Context, discordID int64) (*model.KickSchedule, error) {
	return r.get(ctx, `SELECT * FROM kick_schedules WHERE discord_id = $1 AND active = $2`, discordID, true)
}

func (r *scheduleRepository) get(ctx context.Context, query string, args ...any) (*model.KickSchedule, error) {
	s := &model.KickSchedule{}
	err := sqlx.GetContext(ctx, r.db, s, query, args...)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrScheduleNotFound
	}
	if err != nil {
		return nil, err
	}
	return s, nil
}

func (r *scheduleRepository) List(ctx context.Context, includeInactive bool) ([]model.KickSchedule, error) {
	if !includeInactive {
		return r.ListActive(ctx)
	}
	var schedules []model.KickSchedule
	err := sqlx.SelectContext(ctx, r.db, &schedules, `SELECT * FROM kick_schedules ORDER BY created_at DESC`)
	return schedules, err
}

func (r *scheduleRepository) ListActive(ctx context.Context) ([]model.KickSchedule, error) {
	var schedules []model.KickSchedule
	query := `SELECT * FROM kick_schedules WHERE active = $1 ORDER BY kick_at ASC`
	err := sqlx.SelectContext(ctx, r.db, &schedules, query, true)
	return schedules, err
}

func (r *scheduleRepository) ListDueForKick(ctx context.Context, now time.Time) ([]model.KickSchedule, error) {
	var schedules []model.KickSchedule
	query := `SELECT * FROM kick_schedules WHERE active = $1 AND kick_at <= $2 ORDER BY kick_at ASC`
	err := sqlx.SelectContext(ctx, r.db, &schedules, query, true, timestamp(now))
	return schedules, err
}

func (r *scheduleRepository) ActiveDiscordIDs(ctx context.Context) ([]int64, error) {
	var ids []int64
	err := sqlx.SelectContext(ctx, r.db, &ids, `SELECT discord_id FROM kick_schedules WHERE active = $1`, true)
	return ids, err
}

// MarkReminderSent records a reminder at now. The update only applies while
// the schedule is active and still due, so two overlapping sweeps cannot
// both record the same reminder.
func (r *scheduleRepository) MarkReminderSent(ctx context.Context, id string, now time.Time, interval time.Duration) error {
	now = timestamp(now)
	dueBefore := timestamp(now.Add(-interval))

	query := `
		UPDATE kick_schedules
		SET last_reminder_at = $1, reminder_count = reminder_count + 1
		WHERE id = $2
		AND active = $3
		AND ((last_reminder_at IS NULL AND joined_at <= $4) OR last_reminder_at <= $4)
	`
	result, err := r.db.ExecContext(ctx, query, now, id, true, dueBefore)
	if err != nil {
		return err
	}
	rows, err := result.RowsAffected()
	if err != nil {
		return err
	}
	if rows > 0 {
		return nil
	}

	s, err := r.ByID(ctx, id)
	if err != nil {
		return err
	}
	if !s.Active {
		return ErrScheduleInactive
	}
	return ErrReminderNotDue
}

// Deactivate ends tracking. It reports whether this call changed the row;
// deactivating an inactive schedule is a no-op.
func (r *scheduleRepository) Deactivate(ctx context.Context, id string, now time.Time, reason string) (bool, error) {
	query := `
		UPDATE kick_schedules
		SET active = $1, deactivated_at = $2, deactivation_reason = $3
		WHERE id = $4 AND active = $5
	`
	result, err := r.db.ExecContext(ctx, query, false, timestamp(now), reason, id, true)
	if err != nil {
		return false, err
	}
	rows, err := result.RowsAffected()
	if err != nil {
		return false, err
	}
	if rows > 0 {
		return true, nil
	}

	_, err = r.ByID(ctx, id)
	if err != nil {
		return false, err
	}
	return false, nil
}

func (r *scheduleRepository) DeactivateByDiscordID(ctx context.Context, discordID int64, now time.Time, reason string) (bool, error) {
	query := `
		UPDATE kick_schedules
		SET active = $1, deactivated_at = $2, deactivation_reason = $3
		WHERE discord_id = $4 AND active = $5
	`
	result, err := r.db.ExecContext(ctx, query, false, timestamp(now), reason, discordID, true)
	if err != nil {
		return false, err
	}
	rows, err := result.RowsAffected()
	if err != nil {
		return false, err
	}
	return rows > 0, nil
}

func (r *scheduleRepository) ListInactive(ctx context.Context, before time.Time) ([]model.KickSchedule, error) {
	var schedules []model.KickSchedule
	query := `SELECT * FROM kick_schedules WHERE active = $1 AND deactivated_at <= $2 ORDER BY deactivated_at ASC`
	err := sqlx.SelectContext(ctx, r.db, &schedules, query, false, timestamp(before))
	return schedules, err
}

// DeleteInactive purges deactivated schedules. Active rows are never touched.
func (r *scheduleRepository) DeleteInactive(ctx context.Context, before time.Time) (int64, error) {
	query := `DELETE FROM kick_schedules WHERE active = $1 AND deactivated_at <= $2`
	result, err := r.db.ExecContext(ctx, query, false, timestamp(before))
	if err != nil {
		return 0, err
	}
	return result.RowsAffected()
}
