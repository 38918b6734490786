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
	ErrUserNotFound       = errors.New("user not found")
	ErrDuplicateCharacter = errors.New("character already belongs to a user")
)

type UserRepository interface {
	Create(ctx context.Context, user *model.User) error
	ByID(ctx context.Context, id string) (*model.User, error)
	ByCharacterID(ctx context.Context, characterID int64) (*model.User, error)
	Update(ctx context.Context, user *model.User) error
}

type userRepository struct {
	db sqlx.ExtContext
}

func NewUserRepository(db sqlx.ExtContext) UserRepository {
	return &userRepository{db: db}
}

func (r *userRepository) Create(ctx context.Context, user *model.User) error {
	if user.ID == "" {
		user.ID = uuid.New().String()
	}
	if user.CreatedAt.IsZero() {
		user.CreatedAt = time.Now()
	}
	user.CreatedAt = timestamp(user.CreatedAt)
	user.UpdatedAt = user.CreatedAt

	query := `
		INSERT INTO users (id, character_id, character_name, owner_hash, active, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
	`
	_, err := r.db.ExecContext(ctx, query,
		user.ID,
		user.CharacterID,
		user.CharacterName,
		user.OwnerHash,
		user.Active,
		user.CreatedAt,
		user.UpdatedAt,
	)
	if db.IsUniqueViolation(err) {
		return ErrDuplicateCharacter
	}
	return err
}

func (r *userRepository) ByID(ctx context.Context, id string) (*model.User, error) {
	return r.get(ctx, `SELECT * FROM users WHERE id = $1`, id)
}

func (r *userRepository) ByCharacterID(ctx context.Context, characterID int64) (*model.User, error) {
	return r.get(ctx, `SELECT * FROM users WHERE character_id = $1`, characterID)
}

func (r *userRepository) get(ctx context.Context, query string, args ...any) (*model.User, error) {
	user := &model.User{}
	err := sqlx.GetContext(ctx, r.db, user, query, args...)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrUserNotFound
	}
	if err != nil {
		return nil, err
	}
	return user, nil
}

func (r *userRepository) Update(ctx context.Context, user *model.User) error {
	if user.UpdatedAt.IsZero() {
		user.UpdatedAt = time.Now()
	}
	user.UpdatedAt = timestamp(user.UpdatedAt)

	query := `UPDATE users SET character_name = $1, owner_hash = $2, active = $3, updated_at = $4 WHERE id = $5`
	result, err := r.db.ExecContext(ctx, query, user.CharacterName, user.OwnerHash, user.Active, user.UpdatedAt, user.ID)
	if err != nil {
		return err
	}

	rows, err := result.RowsAffected()
	if err != nil {
		return err
	}
	if rows == 0 {
		return ErrUserNotFound
	}
	return nil
}
