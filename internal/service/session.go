package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/sentinel-iam/auth-service/internal/models"
	"github.com/sentinel-iam/auth-service/internal/pkg/log"
	"github.com/sentinel-iam/auth-service/internal/storage"
)

// issueSession выпускает новую пару токенов и записывает хеш refresh-токена
// в слот активной сессии, безусловно вытесняя предыдущую сессию пользователя.
func (s *Service) issueSession(ctx context.Context, user *models.User, now time.Time) (*models.TokenPair, error) {
	const op = "service.session.issueSession"

	accessToken, accessExpiresAt, err := s.generateAccessToken(user, now)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	refreshToken, err := s.generateRefreshToken(user, now)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	if err := s.storage.SetRefreshTokenHash(ctx, user.ID, hashToken(refreshToken)); err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			return nil, ErrInvalidToken
		}
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	return &models.TokenPair{
		AccessToken:     accessToken,
		RefreshToken:    refreshToken,
		AccessExpiresAt: accessExpiresAt,
	}, nil
}

// rotateSession атомарно заменяет предъявленный refresh-токен на новый.
//
// Предъявленный токен сверяется со слотом активной сессии через CAS-замену
// в хранилище: если слот пуст или содержит хеш другого токена (в том числе
// уже ротированного), замена не происходит и возвращается ErrTokenReuse.
// Проигравший гонку конкурентный refresh получает тот же ErrTokenReuse.
func (s *Service) rotateSession(ctx context.Context, user *models.User, presented string, now time.Time) (*models.TokenPair, error) {
	const op = "service.session.rotateSession"

	presentedHash := hashToken(presented)

	// Предварительная сверка до выпуска новых токенов: решающей остаётся
	// CAS-замена ниже, здесь лишь отсекается заведомо чужой токен.
	if user.ActiveRefreshTokenHash == nil || *user.ActiveRefreshTokenHash != presentedHash {
		log.From(ctx).Warn("refresh token reuse detected",
			"user_id", user.ID.String(),
		)
		return nil, ErrTokenReuse
	}

	accessToken, accessExpiresAt, err := s.generateAccessToken(user, now)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	refreshToken, err := s.generateRefreshToken(user, now)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	swapped, err := s.storage.SwapRefreshTokenHash(ctx, user.ID, presentedHash, hashToken(refreshToken))
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	if !swapped {
		log.From(ctx).Warn("refresh token reuse detected",
			"user_id", user.ID.String(),
		)
		return nil, ErrTokenReuse
	}

	return &models.TokenPair{
		AccessToken:     accessToken,
		RefreshToken:    refreshToken,
		AccessExpiresAt: accessExpiresAt,
	}, nil
}

// revokeSession очищает слот активной сессии пользователя. Идемпотентна:
// отсутствие активной сессии или самого пользователя не считается ошибкой.
func (s *Service) revokeSession(ctx context.Context, userID uuid.UUID) error {
	const op = "service.session.revokeSession"

	if err := s.storage.ClearRefreshTokenHash(ctx, userID); err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}

	return nil
}
