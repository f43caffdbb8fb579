package service

import (
	"crypto/sha256"
	"encoding/base64"
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"github.com/sentinel-iam/auth-service/internal/models"
)

// leeway компенсирует рассинхронизацию часов при проверке exp/nbf.
const leeway = 5 * time.Second

// Claims — проверенное содержимое access-токена, доступное транспорту
// после аутентификации запроса.
type Claims struct {
	UserID   uuid.UUID
	Username string
	Email    string
	FullName string
}

// accessClaims — полезная нагрузка access-токена. Помимо идентификатора
// содержит снимок профиля на момент выпуска; после изменения профиля
// данные в уже выпущенных токенах не обновляются до следующего login/refresh.
type accessClaims struct {
	UserID   string `json:"uid"`
	Username string `json:"username"`
	Email    string `json:"email"`
	FullName string `json:"full_name"`
	jwt.RegisteredClaims
}

// refreshClaims — полезная нагрузка refresh-токена: только идентификатор
// пользователя. Подписывается отдельным секретом, поэтому access-токен
// невозможно предъявить как refresh и наоборот.
type refreshClaims struct {
	UserID string `json:"uid"`
	jwt.RegisteredClaims
}

// generateAccessToken выпускает подписанный access-токен (HS256).
func (s *Service) generateAccessToken(user *models.User, now time.Time) (string, time.Time, error) {
	const op = "service.token.generateAccessToken"

	expiresAt := now.Add(s.auth.AccessTokenTTL)

	claims := accessClaims{
		UserID:   user.ID.String(),
		Username: user.Username,
		Email:    user.Email,
		FullName: user.FullName,
		RegisteredClaims: jwt.RegisteredClaims{
			Issuer:    s.auth.Issuer,
			Subject:   user.ID.String(),
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(expiresAt),
		},
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)

	signed, err := token.SignedString([]byte(s.auth.AccessTokenSecret))
	if err != nil {
		return "", time.Time{}, fmt.Errorf("%s: %w", op, err)
	}

	return signed, expiresAt, nil
}

// generateRefreshToken выпускает подписанный refresh-токен (HS256).
func (s *Service) generateRefreshToken(user *models.User, now time.Time) (string, error) {
	const op = "service.token.generateRefreshToken"

	// jti делает каждый выпуск уникальным: два refresh-токена, выданные
	// в одну секунду, не должны совпадать байт в байт, иначе ротация
	// "в ту же строку" неотличима от отсутствия ротации.
	claims := refreshClaims{
		UserID: user.ID.String(),
		RegisteredClaims: jwt.RegisteredClaims{
			Issuer:    s.auth.Issuer,
			Subject:   user.ID.String(),
			ID:        uuid.NewString(),
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(s.auth.RefreshTokenTTL)),
		},
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)

	signed, err := token.SignedString([]byte(s.auth.RefreshTokenSecret))
	if err != nil {
		return "", fmt.Errorf("%s: %w", op, err)
	}

	return signed, nil
}

// parseAccessToken проверяет подпись, издателя и срок действия access-токена.
func (s *Service) parseAccessToken(tokenStr string) (*accessClaims, error) {
	claims := &accessClaims{}

	token, err := jwt.ParseWithClaims(tokenStr, claims,
		func(t *jwt.Token) (interface{}, error) {
			return []byte(s.auth.AccessTokenSecret), nil
		},
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithIssuer(s.auth.Issuer),
		jwt.WithLeeway(leeway),
	)
	if err != nil {
		if errors.Is(err, jwt.ErrTokenExpired) {
			return nil, ErrTokenExpired
		}
		return nil, ErrInvalidToken
	}

	if !token.Valid {
		return nil, ErrInvalidToken
	}

	return claims, nil
}

// parseRefreshToken проверяет refresh-токен и возвращает идентификатор
// пользователя из его полезной нагрузки.
func (s *Service) parseRefreshToken(tokenStr string) (uuid.UUID, error) {
	claims := &refreshClaims{}

	token, err := jwt.ParseWithClaims(tokenStr, claims,
		func(t *jwt.Token) (interface{}, error) {
			return []byte(s.auth.RefreshTokenSecret), nil
		},
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithIssuer(s.auth.Issuer),
		jwt.WithLeeway(leeway),
	)
	if err != nil {
		if errors.Is(err, jwt.ErrTokenExpired) {
			return uuid.Nil, ErrTokenExpired
		}
		return uuid.Nil, ErrInvalidToken
	}

	if !token.Valid {
		return uuid.Nil, ErrInvalidToken
	}

	userID, err := uuid.Parse(claims.UserID)
	if err != nil {
		return uuid.Nil, ErrInvalidToken
	}

	return userID, nil
}

// hashToken возвращает SHA-256 хеш токена в base64url — ровно в таком виде
// хеш хранится в слоте активной сессии пользователя.
func hashToken(token string) string {
	sum := sha256.Sum256([]byte(token))
	return base64.RawURLEncoding.EncodeToString(sum[:])
}
