package handlers

import (
	"net/http"

	"github.com/sentinel-iam/auth-service/internal/service"
	"github.com/sentinel-iam/auth-service/internal/transport/http/apierrors"
	"github.com/sentinel-iam/auth-service/internal/transport/http/middleware"
)

type updateMeRequest struct {
	// Пустое поле означает "оставить без изменений".
	Email    string `json:"email"`
	FullName string `json:"full_name"`
}

// Me — GET /auth/me (требует Bearer). Профиль читается из БД, а не из
// клеймов токена: клеймы могут отставать от последнего PATCH.
func (h *Handlers) Me(w http.ResponseWriter, r *http.Request) {
	claims, ok := middleware.ClaimsFrom(r.Context())
	if !ok {
		apierrors.WriteError(w, r, service.ErrInvalidToken)
		return
	}

	user, err := h.svc.CurrentUser(r.Context(), claims.UserID)
	if err != nil {
		apierrors.WriteError(w, r, err)
		return
	}

	writeJSON(w, http.StatusOK, user)
}

// UpdateMe — PATCH /auth/me (требует Bearer). Изменяемые поля: email,
// full_name. Успех: 200 + обновлённый профиль.
func (h *Handlers) UpdateMe(w http.ResponseWriter, r *http.Request) {
	claims, ok := middleware.ClaimsFrom(r.Context())
	if !ok {
		apierrors.WriteError(w, r, service.ErrInvalidToken)
		return
	}

	var in updateMeRequest
	if err := decodeStrict(r, &in); err != nil {
		apierrors.WriteError(w, r, apierrors.ErrBadRequest)
		return
	}

	user, err := h.svc.UpdateAccount(r.Context(), claims.UserID, in.Email, in.FullName)
	if err != nil {
		apierrors.WriteError(w, r, err)
		return
	}

	writeJSON(w, http.StatusOK, user)
}
