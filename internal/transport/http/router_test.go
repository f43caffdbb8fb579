package http

import (
	"bytes"
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/golang/mock/gomock"
	"github.com/google/uuid"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"

	"github.com/sentinel-iam/auth-service/internal/config"
	"github.com/sentinel-iam/auth-service/internal/models"
	"github.com/sentinel-iam/auth-service/internal/service"
	"github.com/sentinel-iam/auth-service/internal/storage"
	"github.com/sentinel-iam/auth-service/mocks"
)

// Тесты гоняют запросы через полный роутер (middleware + хендлеры),
// подменяя только хранилище и мейлер.

func testRouter(t *testing.T) (http.Handler, *mocks.MockStorage, *mocks.MockMailer) {
	t.Helper()

	ctrl := gomock.NewController(t)
	t.Cleanup(ctrl.Finish)

	st := mocks.NewMockStorage(ctrl)
	ml := mocks.NewMockMailer(ctrl)

	cfg := &config.Config{
		Auth: config.AuthConfig{
			AccessTokenSecret:  "router-access-secret",
			RefreshTokenSecret: "router-refresh-secret",
			AccessTokenTTL:     15 * time.Minute,
			RefreshTokenTTL:    24 * time.Hour,
			Issuer:             "auth-service",
		},
		Reset: config.ResetConfig{CodeTTL: 15 * time.Minute},
		Mail: config.MailConfig{
			From:        "Sentinel IAM <noreply@example.com>",
			FrontendURL: "http://localhost:3000",
		},
	}

	svc := service.New(st, ml, cfg)
	router := NewRouter(svc, Options{
		Logger:     slog.New(slog.NewTextHandler(testWriter{t}, nil)),
		RefreshTTL: cfg.Auth.RefreshTokenTTL,
	})

	return router, st, ml
}

type testWriter struct{ t *testing.T }

func (w testWriter) Write(p []byte) (int, error) {
	w.t.Log(string(p))
	return len(p), nil
}

func doJSON(t *testing.T, h http.Handler, method, target string, body any, mod func(*http.Request)) *httptest.ResponseRecorder {
	t.Helper()

	var buf bytes.Buffer
	if body != nil {
		require.NoError(t, json.NewEncoder(&buf).Encode(body))
	}

	req := httptest.NewRequest(method, target, &buf)
	req.Header.Set("Content-Type", "application/json")
	if mod != nil {
		mod(req)
	}

	w := httptest.NewRecorder()
	h.ServeHTTP(w, req)
	return w
}

func mustBcrypt(t *testing.T, pw string) string {
	t.Helper()
	h, err := bcrypt.GenerateFromPassword([]byte(pw), bcrypt.MinCost)
	require.NoError(t, err)
	return string(h)
}

func routerTestUser(t *testing.T, pw string) *models.User {
	t.Helper()
	now := time.Now().UTC()
	return &models.User{
		ID:           uuid.New(),
		Username:     "alice",
		Email:        "alice@x.com",
		FullName:     "Alice Liddell",
		PasswordHash: mustBcrypt(t, pw),
		CreatedAt:    now,
		UpdatedAt:    now,
	}
}

func errCode(t *testing.T, w *httptest.ResponseRecorder) string {
	t.Helper()
	var resp struct {
		Error struct {
			Code string `json:"code"`
		} `json:"error"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	return resp.Error.Code
}

func refreshCookie(w *httptest.ResponseRecorder) *http.Cookie {
	for _, c := range w.Result().Cookies() {
		if c.Name == "refresh_token" {
			return c
		}
	}
	return nil
}

func TestRouter_Register(t *testing.T) {
	t.Parallel()

	router, st, _ := testRouter(t)

	t.Run("created", func(t *testing.T) {
		st.EXPECT().UserByLogin(gomock.Any(), "alice").Return(nil, storage.ErrNotFound)
		st.EXPECT().UserByEmail(gomock.Any(), "alice@x.com").Return(nil, storage.ErrNotFound)
		st.EXPECT().SaveUser(gomock.Any(), gomock.Any()).Return(nil)

		w := doJSON(t, router, http.MethodPost, "/auth/register", map[string]string{
			"username":  "alice",
			"email":     "alice@x.com",
			"full_name": "Alice Liddell",
			"password":  "secret123",
		}, nil)

		require.Equal(t, http.StatusCreated, w.Code)

		var out models.PublicUser
		require.NoError(t, json.Unmarshal(w.Body.Bytes(), &out))
		require.Equal(t, "alice", out.Username)
		// Секретные поля не сериализуются.
		require.NotContains(t, w.Body.String(), "password")
	})

	t.Run("conflict", func(t *testing.T) {
		st.EXPECT().UserByLogin(gomock.Any(), "alice").Return(routerTestUser(t, "other"), nil)

		w := doJSON(t, router, http.MethodPost, "/auth/register", map[string]string{
			"username":  "alice",
			"email":     "alice@x.com",
			"full_name": "Alice Liddell",
			"password":  "secret123",
		}, nil)

		require.Equal(t, http.StatusConflict, w.Code)
		require.Equal(t, "already_exists", errCode(t, w))
	})

	t.Run("validation", func(t *testing.T) {
		w := doJSON(t, router, http.MethodPost, "/auth/register", map[string]string{
			"username":  "alice",
			"email":     "not-an-email",
			"full_name": "Alice Liddell",
			"password":  "secret123",
		}, nil)

		require.Equal(t, http.StatusBadRequest, w.Code)
		require.Equal(t, "invalid_email", errCode(t, w))
	})
}

func TestRouter_Login_Refresh_ReuseFlow(t *testing.T) {
	t.Parallel()

	router, st, _ := testRouter(t)
	user := routerTestUser(t, "secret123")

	// login: слот перезаписывается хэшем выданного refresh-токена.
	var slotHash string
	st.EXPECT().UserByLogin(gomock.Any(), "alice").Return(user, nil)
	st.EXPECT().SetRefreshTokenHash(gomock.Any(), user.ID, gomock.Any()).
		DoAndReturn(func(_ context.Context, _ uuid.UUID, hash string) error {
			slotHash = hash
			return nil
		})

	w := doJSON(t, router, http.MethodPost, "/auth/login", map[string]string{
		"login":    "alice",
		"password": "secret123",
	}, nil)
	require.Equal(t, http.StatusOK, w.Code)

	cookie := refreshCookie(w)
	require.NotNil(t, cookie)
	require.True(t, cookie.HttpOnly)
	require.Equal(t, "/auth", cookie.Path)
	require.NotEmpty(t, cookie.Value)

	var loginOut struct {
		User        models.PublicUser `json:"user"`
		AccessToken string            `json:"access_token"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &loginOut))
	require.Equal(t, user.ID, loginOut.User.ID)
	require.NotEmpty(t, loginOut.AccessToken)

	// refresh по cookie: CAS-замена слота проходит.
	withSession := *user
	withSession.ActiveRefreshTokenHash = &slotHash

	st.EXPECT().UserByID(gomock.Any(), user.ID).Return(&withSession, nil)
	st.EXPECT().SwapRefreshTokenHash(gomock.Any(), user.ID, slotHash, gomock.Any()).Return(true, nil)

	w2 := doJSON(t, router, http.MethodPost, "/auth/refresh", nil, func(r *http.Request) {
		r.AddCookie(cookie)
	})
	require.Equal(t, http.StatusOK, w2.Code)

	rotated := refreshCookie(w2)
	require.NotNil(t, rotated)
	require.NotEqual(t, cookie.Value, rotated.Value)

	// Повторное предъявление исходного токена: CAS проигран -> 401 + cookie затёрта.
	st.EXPECT().UserByID(gomock.Any(), user.ID).Return(&withSession, nil)
	st.EXPECT().SwapRefreshTokenHash(gomock.Any(), user.ID, slotHash, gomock.Any()).Return(false, nil)

	w3 := doJSON(t, router, http.MethodPost, "/auth/refresh", nil, func(r *http.Request) {
		r.AddCookie(cookie)
	})
	require.Equal(t, http.StatusUnauthorized, w3.Code)
	require.Equal(t, "token_reuse", errCode(t, w3))

	cleared := refreshCookie(w3)
	require.NotNil(t, cleared)
	require.Empty(t, cleared.Value)
	require.Negative(t, cleared.MaxAge)
}

func TestRouter_Login_InvalidCredentials(t *testing.T) {
	t.Parallel()

	router, st, _ := testRouter(t)
	user := routerTestUser(t, "secret123")

	st.EXPECT().UserByLogin(gomock.Any(), "alice").Return(user, nil)

	w := doJSON(t, router, http.MethodPost, "/auth/login", map[string]string{
		"login":    "alice",
		"password": "wrongpw1",
	}, nil)

	require.Equal(t, http.StatusUnauthorized, w.Code)
	require.Equal(t, "invalid_credentials", errCode(t, w))
	require.Nil(t, refreshCookie(w))
}

func TestRouter_Refresh_NoToken(t *testing.T) {
	t.Parallel()

	router, _, _ := testRouter(t)

	w := doJSON(t, router, http.MethodPost, "/auth/refresh", nil, nil)
	require.Equal(t, http.StatusUnauthorized, w.Code)
	require.Equal(t, "invalid_token", errCode(t, w))
}

func TestRouter_ForgotPassword_UniformAccepted(t *testing.T) {
	t.Parallel()

	router, st, ml := testRouter(t)
	user := routerTestUser(t, "secret123")

	t.Run("known email", func(t *testing.T) {
		st.EXPECT().UserByEmail(gomock.Any(), user.Email).Return(user, nil)
		st.EXPECT().SetResetCode(gomock.Any(), user.ID, gomock.Any(), gomock.Any()).Return(nil)
		ml.EXPECT().Send(gomock.Any(), user.Email, gomock.Any(), gomock.Any()).Return(nil)

		w := doJSON(t, router, http.MethodPost, "/auth/forgot-password", map[string]string{
			"email": user.Email,
		}, nil)
		require.Equal(t, http.StatusAccepted, w.Code)
	})

	t.Run("unknown email gets same answer", func(t *testing.T) {
		st.EXPECT().UserByEmail(gomock.Any(), "ghost@x.com").Return(nil, storage.ErrNotFound)

		w := doJSON(t, router, http.MethodPost, "/auth/forgot-password", map[string]string{
			"email": "ghost@x.com",
		}, nil)
		require.Equal(t, http.StatusAccepted, w.Code)
	})
}

func TestRouter_ResetPassword(t *testing.T) {
	t.Parallel()

	router, st, _ := testRouter(t)
	user := routerTestUser(t, "secret123")

	t.Run("ok", func(t *testing.T) {
		st.EXPECT().UserByResetCode(gomock.Any(), "123456", gomock.Any()).Return(user, nil)
		st.EXPECT().UpdatePassword(gomock.Any(), user.ID, gomock.Any()).Return(nil)

		w := doJSON(t, router, http.MethodPost, "/auth/reset-password", map[string]string{
			"code":         "123456",
			"new_password": "newpw12345",
		}, nil)
		require.Equal(t, http.StatusNoContent, w.Code)
	})

	t.Run("wrong code", func(t *testing.T) {
		st.EXPECT().UserByResetCode(gomock.Any(), "000000", gomock.Any()).Return(nil, storage.ErrNotFound)

		w := doJSON(t, router, http.MethodPost, "/auth/reset-password", map[string]string{
			"code":         "000000",
			"new_password": "newpw12345",
		}, nil)
		require.Equal(t, http.StatusBadRequest, w.Code)
		require.Equal(t, "invalid_reset_code", errCode(t, w))
	})
}

// loginFor выполняет login через роутер и возвращает access-токен.
func loginFor(t *testing.T, router http.Handler, st *mocks.MockStorage, user *models.User, pw string) string {
	t.Helper()

	st.EXPECT().UserByLogin(gomock.Any(), user.Username).Return(user, nil)
	st.EXPECT().SetRefreshTokenHash(gomock.Any(), user.ID, gomock.Any()).Return(nil)

	w := doJSON(t, router, http.MethodPost, "/auth/login", map[string]string{
		"login":    user.Username,
		"password": pw,
	}, nil)
	require.Equal(t, http.StatusOK, w.Code)

	var out struct {
		AccessToken string `json:"access_token"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &out))
	return out.AccessToken
}

func TestRouter_Me(t *testing.T) {
	t.Parallel()

	router, st, _ := testRouter(t)
	user := routerTestUser(t, "secret123")

	t.Run("unauthorized", func(t *testing.T) {
		w := doJSON(t, router, http.MethodGet, "/auth/me", nil, nil)
		require.Equal(t, http.StatusUnauthorized, w.Code)
	})

	t.Run("ok", func(t *testing.T) {
		at := loginFor(t, router, st, user, "secret123")

		st.EXPECT().UserByID(gomock.Any(), user.ID).Return(user, nil)

		w := doJSON(t, router, http.MethodGet, "/auth/me", nil, func(r *http.Request) {
			r.Header.Set("Authorization", "Bearer "+at)
		})
		require.Equal(t, http.StatusOK, w.Code)

		var out models.PublicUser
		require.NoError(t, json.Unmarshal(w.Body.Bytes(), &out))
		require.Equal(t, user.ID, out.ID)
	})

	t.Run("patch", func(t *testing.T) {
		at := loginFor(t, router, st, user, "secret123")

		updated := *user
		updated.FullName = "Alice in Wonderland"

		st.EXPECT().UserByID(gomock.Any(), user.ID).Return(user, nil)
		st.EXPECT().UpdateAccount(gomock.Any(), user.ID, "Alice in Wonderland", user.Email).
			Return(&updated, nil)

		w := doJSON(t, router, http.MethodPatch, "/auth/me", map[string]string{
			"full_name": "Alice in Wonderland",
		}, func(r *http.Request) {
			r.Header.Set("Authorization", "Bearer "+at)
		})
		require.Equal(t, http.StatusOK, w.Code)

		var out models.PublicUser
		require.NoError(t, json.Unmarshal(w.Body.Bytes(), &out))
		require.Equal(t, "Alice in Wonderland", out.FullName)
	})
}

func TestRouter_Logout_And_ChangePassword(t *testing.T) {
	t.Parallel()

	router, st, _ := testRouter(t)
	user := routerTestUser(t, "secret123")

	t.Run("logout", func(t *testing.T) {
		at := loginFor(t, router, st, user, "secret123")

		st.EXPECT().ClearRefreshTokenHash(gomock.Any(), user.ID).Return(nil)

		w := doJSON(t, router, http.MethodPost, "/auth/logout", nil, func(r *http.Request) {
			r.Header.Set("Authorization", "Bearer "+at)
		})
		require.Equal(t, http.StatusNoContent, w.Code)

		cleared := refreshCookie(w)
		require.NotNil(t, cleared)
		require.Negative(t, cleared.MaxAge)
	})

	t.Run("change password", func(t *testing.T) {
		at := loginFor(t, router, st, user, "secret123")

		st.EXPECT().UserByID(gomock.Any(), user.ID).Return(user, nil)
		st.EXPECT().UpdatePassword(gomock.Any(), user.ID, gomock.Any()).Return(nil)

		w := doJSON(t, router, http.MethodPost, "/auth/change-password", map[string]string{
			"old_password": "secret123",
			"new_password": "newpw12345",
		}, func(r *http.Request) {
			r.Header.Set("Authorization", "Bearer "+at)
		})
		require.Equal(t, http.StatusNoContent, w.Code)

		cleared := refreshCookie(w)
		require.NotNil(t, cleared)
		require.Negative(t, cleared.MaxAge)
	})

	t.Run("wrong old password", func(t *testing.T) {
		at := loginFor(t, router, st, user, "secret123")

		st.EXPECT().UserByID(gomock.Any(), user.ID).Return(user, nil)

		w := doJSON(t, router, http.MethodPost, "/auth/change-password", map[string]string{
			"old_password": "wrongpw1",
			"new_password": "newpw12345",
		}, func(r *http.Request) {
			r.Header.Set("Authorization", "Bearer "+at)
		})
		require.Equal(t, http.StatusBadRequest, w.Code)
		require.Equal(t, "invalid_old_password", errCode(t, w))
	})
}
