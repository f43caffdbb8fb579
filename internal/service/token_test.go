package service

import (
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"github.com/stretchr/testify/require"
)

func TestGenerateAccessToken_AndParse_OK(t *testing.T) {
	t.Parallel()

	svc, _, _, ctrl := newSvc(t)
	defer ctrl.Finish()

	user := testUser(t, "secret123")
	now := time.Now().UTC()

	at, expiresAt, err := svc.generateAccessToken(user, now)
	require.NoError(t, err)
	require.WithinDuration(t, now.Add(svc.auth.AccessTokenTTL), expiresAt, time.Second)

	claims, err := svc.parseAccessToken(at)
	require.NoError(t, err)
	require.Equal(t, user.ID.String(), claims.UserID)
	require.Equal(t, user.Username, claims.Username)
	require.Equal(t, user.Email, claims.Email)
	require.Equal(t, user.FullName, claims.FullName)
	require.Equal(t, svc.auth.Issuer, claims.Issuer)
}

func TestParseAccessToken_WrongAlg_WrongIssuer(t *testing.T) {
	t.Parallel()

	svc, _, _, ctrl := newSvc(t)
	defer ctrl.Finish()

	secret := []byte(testCfg().Auth.AccessTokenSecret)
	uid := uuid.New()
	now := time.Now().UTC()

	t.Run("wrong alg", func(t *testing.T) {
		claims := jwt.MapClaims{
			"uid": uid.String(),
			"iss": testCfg().Auth.Issuer,
			"sub": uid.String(),
			"exp": now.Add(15 * time.Minute).Unix(),
			"iat": now.Unix(),
		}
		signed, err := jwt.NewWithClaims(jwt.SigningMethodHS512, claims).SignedString(secret)
		require.NoError(t, err)

		_, err = svc.parseAccessToken(signed)
		require.ErrorIs(t, err, ErrInvalidToken)
	})

	t.Run("wrong issuer", func(t *testing.T) {
		claims := jwt.MapClaims{
			"uid": uid.String(),
			"iss": "another-issuer",
			"sub": uid.String(),
			"exp": now.Add(15 * time.Minute).Unix(),
			"iat": now.Unix(),
		}
		signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(secret)
		require.NoError(t, err)

		_, err = svc.parseAccessToken(signed)
		require.ErrorIs(t, err, ErrInvalidToken)
	})
}

func TestTokenKinds_AreNotInterchangeable(t *testing.T) {
	t.Parallel()

	svc, _, _, ctrl := newSvc(t)
	defer ctrl.Finish()

	user := testUser(t, "secret123")
	now := time.Now().UTC()

	at, _, err := svc.generateAccessToken(user, now)
	require.NoError(t, err)

	rt, err := svc.generateRefreshToken(user, now)
	require.NoError(t, err)

	// Разные секреты: подпись access-токена не проходит проверку refresh-секретом.
	_, err = svc.parseRefreshToken(at)
	require.ErrorIs(t, err, ErrInvalidToken)

	_, err = svc.parseAccessToken(rt)
	require.ErrorIs(t, err, ErrInvalidToken)
}

func TestParseRefreshToken_OK_AndExpired(t *testing.T) {
	t.Parallel()

	svc, _, _, ctrl := newSvc(t)
	defer ctrl.Finish()

	user := testUser(t, "secret123")

	rt, err := svc.generateRefreshToken(user, time.Now())
	require.NoError(t, err)

	uid, err := svc.parseRefreshToken(rt)
	require.NoError(t, err)
	require.Equal(t, user.ID, uid)

	// Просроченный токен (за пределами leeway).
	cfg := testCfg()
	cfg.Auth.RefreshTokenTTL = -time.Hour
	expired, err := New(nil, nil, cfg).generateRefreshToken(user, time.Now())
	require.NoError(t, err)

	_, err = svc.parseRefreshToken(expired)
	require.ErrorIs(t, err, ErrTokenExpired)
}

func TestHashToken_DeterministicAndDistinct(t *testing.T) {
	t.Parallel()

	require.Equal(t, hashToken("token-a"), hashToken("token-a"))
	require.NotEqual(t, hashToken("token-a"), hashToken("token-b"))
	// base64url без паддинга, 32 байта SHA-256 -> 43 символа.
	require.Len(t, hashToken("token-a"), 43)
}
