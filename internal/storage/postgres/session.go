package postgres

import (
	"context"
	"fmt"

	"github.com/google/uuid"

	"github.com/sentinel-iam/auth-service/internal/storage"
)

// nullable конвертирует пустую строку в NULL для параметров запроса.
func nullable(s string) *string {
	if s == "" {
		return nil
	}

	return &s
}

// SwapRefreshTokenHash атомарно заменяет хэш активного refresh-токена.
//
// Условный UPDATE выполняется одной командой, поэтому два конкурентных
// вызова с одним и тем же old никогда не выиграют оба: строковая блокировка
// PostgreSQL сериализует их, и второй увидит уже изменённый слот.
// IS NOT DISTINCT FROM нужен, чтобы old == NULL (пустой слот) тоже
// участвовал в сравнении.
func (s *Storage) SwapRefreshTokenHash(ctx context.Context, id uuid.UUID, old, new string) (bool, error) {
	const op = "storage.postgres.SwapRefreshTokenHash"

	query := `
		UPDATE users
		SET active_refresh_token_hash = $3, updated_at = now()
		WHERE id = $1 AND active_refresh_token_hash IS NOT DISTINCT FROM $2
	`

	cmdTag, err := s.db.Exec(ctx, query, id, nullable(old), nullable(new))
	if err != nil {
		return false, fmt.Errorf("%s: %w", op, err)
	}

	return cmdTag.RowsAffected() > 0, nil
}

// SetRefreshTokenHash безусловно перезаписывает слот refresh-токена.
// Используется при входе: прежняя сессия (если была) вытесняется.
func (s *Storage) SetRefreshTokenHash(ctx context.Context, id uuid.UUID, hash string) error {
	const op = "storage.postgres.SetRefreshTokenHash"

	query := `
		UPDATE users
		SET active_refresh_token_hash = $2, updated_at = now()
		WHERE id = $1
	`

	cmdTag, err := s.db.Exec(ctx, query, id, nullable(hash))
	if err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}

	if cmdTag.RowsAffected() == 0 {
		return fmt.Errorf("%s: %w", op, storage.ErrNotFound)
	}

	return nil
}

// ClearRefreshTokenHash очищает слот refresh-токена; идемпотентна.
func (s *Storage) ClearRefreshTokenHash(ctx context.Context, id uuid.UUID) error {
	const op = "storage.postgres.ClearRefreshTokenHash"

	query := `
		UPDATE users
		SET active_refresh_token_hash = NULL, updated_at = now()
		WHERE id = $1
	`

	if _, err := s.db.Exec(ctx, query, id); err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}

	return nil
}
