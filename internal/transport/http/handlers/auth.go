package handlers

import (
	"errors"
	"net/http"
	"time"

	"github.com/sentinel-iam/auth-service/internal/models"
	"github.com/sentinel-iam/auth-service/internal/service"
	"github.com/sentinel-iam/auth-service/internal/transport/http/apierrors"
	"github.com/sentinel-iam/auth-service/internal/transport/http/middleware"
)

type registerRequest struct {
	Username string `json:"username"`
	Email    string `json:"email"`
	FullName string `json:"full_name"`
	Password string `json:"password"`
}

type loginRequest struct {
	// Login принимает username или email.
	Login    string `json:"login"`
	Password string `json:"password"`
}

type refreshRequest struct {
	// RefreshToken опционален: приоритет у тела, затем cookie.
	RefreshToken string `json:"refresh_token"`
}

type forgotPasswordRequest struct {
	Email string `json:"email"`
}

type resetPasswordRequest struct {
	Code        string `json:"code"`
	NewPassword string `json:"new_password"`
}

type changePasswordRequest struct {
	OldPassword string `json:"old_password"`
	NewPassword string `json:"new_password"`
}

type tokenResponse struct {
	AccessToken     string    `json:"access_token"`
	RefreshToken    string    `json:"refresh_token"`
	AccessExpiresAt time.Time `json:"access_expires_at"`
}

type loginResponse struct {
	User models.PublicUser `json:"user"`
	tokenResponse
}

// Register — POST /auth/register. Успех: 201 + публичный профиль.
// Токены при регистрации не выпускаются.
func (h *Handlers) Register(w http.ResponseWriter, r *http.Request) {
	var in registerRequest
	if err := decodeStrict(r, &in); err != nil {
		apierrors.WriteError(w, r, apierrors.ErrBadRequest)
		return
	}

	user, err := h.svc.RegisterUser(r.Context(), in.Username, in.Email, in.FullName, in.Password)
	if err != nil {
		apierrors.WriteError(w, r, err)
		return
	}

	writeJSON(w, http.StatusCreated, user)
}

// Login — POST /auth/login. Успех: 200 + профиль и пара токенов;
// refresh-токен дополнительно кладётся в httpOnly-cookie.
func (h *Handlers) Login(w http.ResponseWriter, r *http.Request) {
	var in loginRequest
	if err := decodeStrict(r, &in); err != nil {
		apierrors.WriteError(w, r, apierrors.ErrBadRequest)
		return
	}

	user, pair, err := h.svc.LoginUser(r.Context(), in.Login, in.Password)
	if err != nil {
		apierrors.WriteError(w, r, err)
		return
	}

	h.setRefreshCookie(w, pair.RefreshToken)
	writeJSON(w, http.StatusOK, loginResponse{
		User: user,
		tokenResponse: tokenResponse{
			AccessToken:     pair.AccessToken,
			RefreshToken:    pair.RefreshToken,
			AccessExpiresAt: pair.AccessExpiresAt,
		},
	})
}

// Refresh — POST /auth/refresh. Токен берётся из тела запроса, затем
// из cookie. При обнаруженном повторном предъявлении (401/token_reuse)
// refresh-cookie принудительно затирается: серверная сессия к этому
// моменту уже недействительна.
func (h *Handlers) Refresh(w http.ResponseWriter, r *http.Request) {
	var in refreshRequest
	// Тело может отсутствовать целиком: это не ошибка.
	_ = decodeStrict(r, &in)

	token := in.RefreshToken
	if token == "" {
		if c, err := r.Cookie(refreshCookieName); err == nil {
			token = c.Value
		}
	}
	if token == "" {
		apierrors.WriteError(w, r, service.ErrInvalidToken)
		return
	}

	pair, err := h.svc.RefreshTokens(r.Context(), token)
	if err != nil {
		if errors.Is(err, service.ErrTokenReuse) {
			h.clearRefreshCookie(w)
		}
		apierrors.WriteError(w, r, err)
		return
	}

	h.setRefreshCookie(w, pair.RefreshToken)
	writeJSON(w, http.StatusOK, tokenResponse{
		AccessToken:     pair.AccessToken,
		RefreshToken:    pair.RefreshToken,
		AccessExpiresAt: pair.AccessExpiresAt,
	})
}

// Logout — POST /auth/logout (требует Bearer). Идемпотентен: 204 и на
// повторный вызов без активной сессии.
func (h *Handlers) Logout(w http.ResponseWriter, r *http.Request) {
	claims, ok := middleware.ClaimsFrom(r.Context())
	if !ok {
		apierrors.WriteError(w, r, service.ErrInvalidToken)
		return
	}

	if err := h.svc.LogoutUser(r.Context(), claims.UserID); err != nil {
		apierrors.WriteError(w, r, err)
		return
	}

	h.clearRefreshCookie(w)
	w.WriteHeader(http.StatusNoContent)
}

// ForgotPassword — POST /auth/forgot-password. Отвечает 202 и для
// несуществующего email: существование учётной записи не раскрывается.
func (h *Handlers) ForgotPassword(w http.ResponseWriter, r *http.Request) {
	var in forgotPasswordRequest
	if err := decodeStrict(r, &in); err != nil {
		apierrors.WriteError(w, r, apierrors.ErrBadRequest)
		return
	}

	err := h.svc.RequestPasswordReset(r.Context(), in.Email)
	if err != nil && !errors.Is(err, service.ErrUserNotFound) {
		apierrors.WriteError(w, r, err)
		return
	}

	w.WriteHeader(http.StatusAccepted)
}

// ResetPassword — POST /auth/reset-password. Успех: 204; код погашен,
// активная сессия пользователя отозвана.
func (h *Handlers) ResetPassword(w http.ResponseWriter, r *http.Request) {
	var in resetPasswordRequest
	if err := decodeStrict(r, &in); err != nil {
		apierrors.WriteError(w, r, apierrors.ErrBadRequest)
		return
	}

	if err := h.svc.ResetPassword(r.Context(), in.Code, in.NewPassword); err != nil {
		apierrors.WriteError(w, r, err)
		return
	}

	w.WriteHeader(http.StatusNoContent)
}

// ChangePassword — POST /auth/change-password (требует Bearer).
// Успех: 204; сессия отозвана, refresh-cookie затирается.
func (h *Handlers) ChangePassword(w http.ResponseWriter, r *http.Request) {
	claims, ok := middleware.ClaimsFrom(r.Context())
	if !ok {
		apierrors.WriteError(w, r, service.ErrInvalidToken)
		return
	}

	var in changePasswordRequest
	if err := decodeStrict(r, &in); err != nil {
		apierrors.WriteError(w, r, apierrors.ErrBadRequest)
		return
	}

	if err := h.svc.ChangePassword(r.Context(), claims.UserID, in.OldPassword, in.NewPassword); err != nil {
		apierrors.WriteError(w, r, err)
		return
	}

	h.clearRefreshCookie(w)
	w.WriteHeader(http.StatusNoContent)
}
