package postgres

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"github.com/sentinel-iam/auth-service/internal/models"
	"github.com/sentinel-iam/auth-service/internal/storage"
)

// SetResetCode записывает одноразовый код сброса, затирая предыдущий.
// Перезапись намеренно last-writer-wins: действителен всегда только
// последний выданный код.
func (s *Storage) SetResetCode(ctx context.Context, id uuid.UUID, code string, expiresAt time.Time) error {
	const op = "storage.postgres.SetResetCode"

	query := `
		UPDATE users
		SET reset_code = $2, reset_code_expires_at = $3, updated_at = now()
		WHERE id = $1
	`

	cmdTag, err := s.db.Exec(ctx, query, id, code, expiresAt)
	if err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}

	if cmdTag.RowsAffected() == 0 {
		return fmt.Errorf("%s: %w", op, storage.ErrNotFound)
	}

	return nil
}

// UserByResetCode находит пользователя по точному непросроченному коду.
func (s *Storage) UserByResetCode(ctx context.Context, code string, now time.Time) (*models.User, error) {
	const op = "storage.postgres.UserByResetCode"

	query := `SELECT ` + userColumns + ` FROM users
		WHERE reset_code = $1 AND reset_code_expires_at > $2`

	user, err := scanUser(s.db.QueryRow(ctx, query, code, now))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, fmt.Errorf("%s: %w", op, storage.ErrNotFound)
		}

		return nil, fmt.Errorf("%s: %w", op, err)
	}

	return user, nil
}

// UpdatePassword устанавливает новый хэш пароля и одной командой очищает
// код сброса и активную сессию: смена пароля всегда означает re-login.
func (s *Storage) UpdatePassword(ctx context.Context, id uuid.UUID, passwordHash string) error {
	const op = "storage.postgres.UpdatePassword"

	query := `
		UPDATE users
		SET password_hash = $2,
		    reset_code = NULL,
		    reset_code_expires_at = NULL,
		    active_refresh_token_hash = NULL,
		    updated_at = now()
		WHERE id = $1
	`

	cmdTag, err := s.db.Exec(ctx, query, id, passwordHash)
	if err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}

	if cmdTag.RowsAffected() == 0 {
		return fmt.Errorf("%s: %w", op, storage.ErrNotFound)
	}

	return nil
}

// ClearExpiredResetCodes затирает просроченные коды сброса.
// Вызывается фоновой уборкой; количество затронутых строк не важно.
func (s *Storage) ClearExpiredResetCodes(ctx context.Context, now time.Time) error {
	const op = "storage.postgres.ClearExpiredResetCodes"

	query := `
		UPDATE users
		SET reset_code = NULL, reset_code_expires_at = NULL, updated_at = now()
		WHERE reset_code IS NOT NULL AND reset_code_expires_at <= $1
	`

	if _, err := s.db.Exec(ctx, query, now); err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}

	return nil
}
