package service

import (
	"context"
	"crypto/rand"
	"errors"
	"fmt"
	"html"
	"math/big"
	"time"

	"github.com/sentinel-iam/auth-service/internal/pkg/log"
	"github.com/sentinel-iam/auth-service/internal/pkg/redact"
	"github.com/sentinel-iam/auth-service/internal/storage"
)

// generateResetCode возвращает криптослучайный шестизначный код
// в диапазоне [100000, 999999].
func generateResetCode() (string, error) {
	const op = "service.reset.generateResetCode"

	n, err := rand.Int(rand.Reader, big.NewInt(900000))
	if err != nil {
		return "", fmt.Errorf("%s: %w", op, err)
	}

	return fmt.Sprintf("%06d", n.Int64()+100000), nil
}

// RequestPasswordReset выпускает одноразовый код сброса пароля и отправляет
// его на email пользователя.
//
// Новый запрос безусловно перезаписывает предыдущий код: действителен всегда
// только последний. Код сохраняется до отправки письма, поэтому при сбое
// доставки (ErrDeliveryFailed) уже сохранённый код остаётся рабочим.
// Для несуществующего email возвращается ErrUserNotFound; раскрывать ли
// этот факт клиенту — решение транспортного слоя.
func (s *Service) RequestPasswordReset(ctx context.Context, email string) error {
	const op = "service.reset.RequestPasswordReset"

	email, err := normalizeEmail(email)
	if err != nil {
		return err
	}

	user, err := s.storage.UserByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			return ErrUserNotFound
		}
		return fmt.Errorf("%s: %w", op, err)
	}

	code, err := generateResetCode()
	if err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}

	expiresAt := time.Now().Add(s.reset.CodeTTL)

	if err := s.storage.SetResetCode(ctx, user.ID, code, expiresAt); err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}

	subject, body := resetEmail(user.FullName, code, s.mail.FrontendURL, s.reset.CodeTTL)

	if err := s.mailer.Send(ctx, user.Email, subject, body); err != nil {
		log.From(ctx).Error("reset email delivery failed",
			"email", redact.Email(user.Email),
			"error", err.Error(),
		)
		return ErrDeliveryFailed
	}

	log.From(ctx).Info("password reset code issued",
		"email", redact.Email(user.Email),
	)

	return nil
}

// ResetPassword устанавливает новый пароль по одноразовому коду сброса.
//
// Совпавший и не просроченный код погашается тем же запросом, что и смена
// пароля: повторное предъявление кода вернёт ErrInvalidResetCode. Вместе
// с кодом очищается слот активной сессии — все выпущенные ранее
// refresh-токены перестают действовать.
func (s *Service) ResetPassword(ctx context.Context, code, newPassword string) error {
	const op = "service.reset.ResetPassword"

	if err := validatePassword(newPassword); err != nil {
		return err
	}

	user, err := s.storage.UserByResetCode(ctx, code, time.Now())
	if err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			return ErrInvalidResetCode
		}
		return fmt.Errorf("%s: %w", op, err)
	}

	hash, err := hashPassword(newPassword)
	if err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}

	if err := s.storage.UpdatePassword(ctx, user.ID, hash); err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			return ErrInvalidResetCode
		}
		return fmt.Errorf("%s: %w", op, err)
	}

	log.From(ctx).Info("password reset completed",
		"user_id", user.ID.String(),
	)

	return nil
}

// resetEmail собирает тему и HTML-тело письма с кодом сброса.
// Имя пользователя экранируется: оно приходит из профиля как есть.
func resetEmail(fullName, code, frontendURL string, ttl time.Duration) (subject, body string) {
	subject = "Password reset code"

	body = fmt.Sprintf(`<div style="font-family: sans-serif; max-width: 480px;">
  <h2>Password reset</h2>
  <p>Hi %s,</p>
  <p>Use the code below to reset your password. The code is valid for %d minutes and can be used once.</p>
  <p style="font-size: 28px; letter-spacing: 6px; font-weight: bold;">%s</p>
  <p><a href="%s/reset-password">Reset your password</a></p>
  <p>If you did not request a reset, you can safely ignore this email.</p>
</div>`, html.EscapeString(fullName), int(ttl.Minutes()), code, frontendURL)

	return subject, body
}
