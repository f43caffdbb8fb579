package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/sentinel-iam/auth-service/internal/models"
	"github.com/sentinel-iam/auth-service/internal/pkg/log"
	"github.com/sentinel-iam/auth-service/internal/pkg/redact"
	"github.com/sentinel-iam/auth-service/internal/storage"
)

// RegisterUser создаёт учётную запись и возвращает её публичную проекцию.
// Токены при регистрации не выпускаются: клиент проходит login отдельно.
func (s *Service) RegisterUser(ctx context.Context, username, email, fullName, password string) (models.PublicUser, error) {
	const op = "service.auth.RegisterUser"

	username, err := normalizeUsername(username)
	if err != nil {
		return models.PublicUser{}, err
	}

	email, err = normalizeEmail(email)
	if err != nil {
		return models.PublicUser{}, err
	}

	fullName, err = normalizeFullName(fullName)
	if err != nil {
		return models.PublicUser{}, err
	}

	if err := validatePassword(password); err != nil {
		return models.PublicUser{}, err
	}

	// Предварительная проверка уникальности до bcrypt: хэширование дорогое,
	// нет смысла жечь CPU ради заведомо занятого имени. Гонку закрывает
	// уникальный индекс при вставке ниже.
	if _, err := s.storage.UserByLogin(ctx, username); !errors.Is(err, storage.ErrNotFound) {
		if err != nil {
			return models.PublicUser{}, fmt.Errorf("%s: %w", op, err)
		}
		return models.PublicUser{}, ErrUserExists
	}
	if _, err := s.storage.UserByEmail(ctx, email); !errors.Is(err, storage.ErrNotFound) {
		if err != nil {
			return models.PublicUser{}, fmt.Errorf("%s: %w", op, err)
		}
		return models.PublicUser{}, ErrUserExists
	}

	hash, err := hashPassword(password)
	if err != nil {
		return models.PublicUser{}, fmt.Errorf("%s: %w", op, err)
	}

	now := time.Now()
	user := &models.User{
		ID:           uuid.New(),
		Username:     username,
		Email:        email,
		FullName:     fullName,
		PasswordHash: hash,
		CreatedAt:    now,
		UpdatedAt:    now,
	}

	if err := s.storage.SaveUser(ctx, user); err != nil {
		if errors.Is(err, storage.ErrAlreadyExists) {
			return models.PublicUser{}, ErrUserExists
		}
		return models.PublicUser{}, fmt.Errorf("%s: %w", op, err)
	}

	log.From(ctx).Info("user registered",
		"user_id", user.ID.String(),
		"email", redact.Email(user.Email),
	)

	return user.Public(), nil
}

// LoginUser аутентифицирует пользователя по идентификатору (username или
// email) и паролю, выпускает новую пару токенов и делает её единственной
// активной сессией, вытесняя предыдущую.
//
// Неизвестный идентификатор и неверный пароль намеренно неразличимы:
// в обоих случаях возвращается ErrInvalidCredentials.
func (s *Service) LoginUser(ctx context.Context, login, password string) (models.PublicUser, *models.TokenPair, error) {
	const op = "service.auth.LoginUser"

	user, err := s.storage.UserByLogin(ctx, login)
	if err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			return models.PublicUser{}, nil, ErrInvalidCredentials
		}
		return models.PublicUser{}, nil, fmt.Errorf("%s: %w", op, err)
	}

	if !checkPassword(user.PasswordHash, password) {
		return models.PublicUser{}, nil, ErrInvalidCredentials
	}

	pair, err := s.issueSession(ctx, user, time.Now())
	if err != nil {
		return models.PublicUser{}, nil, fmt.Errorf("%s: %w", op, err)
	}

	log.From(ctx).Info("user logged in",
		"user_id", user.ID.String(),
	)

	return user.Public(), pair, nil
}

// RefreshTokens ротирует сессию по предъявленному refresh-токену: старая
// пара отзывается, новая становится единственной активной.
//
// Просроченный токен даёт ErrTokenExpired, токен с неверной подписью или
// без владельца — ErrInvalidToken, валидный, но не совпадающий со слотом
// активной сессии — ErrTokenReuse.
func (s *Service) RefreshTokens(ctx context.Context, refreshToken string) (*models.TokenPair, error) {
	const op = "service.auth.RefreshTokens"

	userID, err := s.parseRefreshToken(refreshToken)
	if err != nil {
		return nil, err
	}

	user, err := s.storage.UserByID(ctx, userID)
	if err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			return nil, ErrInvalidToken
		}
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	pair, err := s.rotateSession(ctx, user, refreshToken, time.Now())
	if err != nil {
		if errors.Is(err, ErrTokenReuse) {
			return nil, ErrTokenReuse
		}
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	return pair, nil
}

// LogoutUser завершает активную сессию пользователя. Идемпотентна.
func (s *Service) LogoutUser(ctx context.Context, userID uuid.UUID) error {
	const op = "service.auth.LogoutUser"

	if err := s.revokeSession(ctx, userID); err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}

	log.From(ctx).Info("user logged out",
		"user_id", userID.String(),
	)

	return nil
}

// ChangePassword меняет пароль аутентифицированного пользователя после
// проверки старого пароля. Вместе с паролем очищается слот активной
// сессии: все выпущенные ранее refresh-токены перестают действовать.
func (s *Service) ChangePassword(ctx context.Context, userID uuid.UUID, oldPassword, newPassword string) error {
	const op = "service.auth.ChangePassword"

	if err := validatePassword(newPassword); err != nil {
		return err
	}

	user, err := s.storage.UserByID(ctx, userID)
	if err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			return ErrUserNotFound
		}
		return fmt.Errorf("%s: %w", op, err)
	}

	if !checkPassword(user.PasswordHash, oldPassword) {
		return ErrInvalidOldPassword
	}

	hash, err := hashPassword(newPassword)
	if err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}

	if err := s.storage.UpdatePassword(ctx, user.ID, hash); err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			return ErrUserNotFound
		}
		return fmt.Errorf("%s: %w", op, err)
	}

	log.From(ctx).Info("password changed",
		"user_id", user.ID.String(),
	)

	return nil
}

// CurrentUser возвращает публичную проекцию профиля пользователя.
func (s *Service) CurrentUser(ctx context.Context, userID uuid.UUID) (models.PublicUser, error) {
	const op = "service.auth.CurrentUser"

	user, err := s.storage.UserByID(ctx, userID)
	if err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			return models.PublicUser{}, ErrUserNotFound
		}
		return models.PublicUser{}, fmt.Errorf("%s: %w", op, err)
	}

	return user.Public(), nil
}

// UpdateAccount обновляет изменяемые поля профиля (email и полное имя).
// Пустое значение поля означает "оставить как есть".
func (s *Service) UpdateAccount(ctx context.Context, userID uuid.UUID, email, fullName string) (models.PublicUser, error) {
	const op = "service.auth.UpdateAccount"

	user, err := s.storage.UserByID(ctx, userID)
	if err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			return models.PublicUser{}, ErrUserNotFound
		}
		return models.PublicUser{}, fmt.Errorf("%s: %w", op, err)
	}

	if email != "" {
		email, err = normalizeEmail(email)
		if err != nil {
			return models.PublicUser{}, err
		}
		user.Email = email
	}

	if fullName != "" {
		fullName, err = normalizeFullName(fullName)
		if err != nil {
			return models.PublicUser{}, err
		}
		user.FullName = fullName
	}

	updated, err := s.storage.UpdateAccount(ctx, user.ID, user.FullName, user.Email)
	if err != nil {
		switch {
		case errors.Is(err, storage.ErrAlreadyExists):
			return models.PublicUser{}, ErrUserExists
		case errors.Is(err, storage.ErrNotFound):
			return models.PublicUser{}, ErrUserNotFound
		}
		return models.PublicUser{}, fmt.Errorf("%s: %w", op, err)
	}

	return updated.Public(), nil
}

// ValidateAccessToken проверяет access-токен и возвращает его содержимое.
// Используется транспортным middleware для аутентификации запросов.
func (s *Service) ValidateAccessToken(_ context.Context, accessToken string) (Claims, error) {
	claims, err := s.parseAccessToken(accessToken)
	if err != nil {
		return Claims{}, err
	}

	userID, err := uuid.Parse(claims.UserID)
	if err != nil {
		return Claims{}, ErrInvalidToken
	}

	return Claims{
		UserID:   userID,
		Username: claims.Username,
		Email:    claims.Email,
		FullName: claims.FullName,
	}, nil
}
