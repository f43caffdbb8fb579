// handlers реализует REST-эндпойнты сервиса поверх сервисного слоя.
//
// Конвенции ответов:
//   - успех: JSON-тело либо 204 без тела;
//   - ошибка: единый формат apierrors.ErrorResponse;
//   - refresh-токен живёт в httpOnly-cookie и дублируется в теле ответа
//     для клиентов без cookie-jar; access-токен — только в теле.
package handlers

import (
	"encoding/json"
	"net/http"
	"time"

	"github.com/sentinel-iam/auth-service/internal/service"
)

// refreshCookieName — имя httpOnly-cookie с refresh-токеном.
const refreshCookieName = "refresh_token"

// Handlers агрегирует зависимости HTTP-хендлеров.
type Handlers struct {
	svc *service.Service

	refreshTTL   time.Duration
	secureCookie bool
}

// Options — параметры поведения хендлеров.
type Options struct {
	// RefreshTTL задаёт Max-Age refresh-cookie; должен совпадать
	// со сроком жизни refresh-токена.
	RefreshTTL time.Duration
	// SecureCookie выставляет флаг Secure (выключается только в local-окружении).
	SecureCookie bool
}

func New(svc *service.Service, opts Options) *Handlers {
	return &Handlers{
		svc:          svc,
		refreshTTL:   opts.RefreshTTL,
		secureCookie: opts.SecureCookie,
	}
}

// writeJSON — единый ответ JSON с нужным Content-Type.
// Ошибки выводим через apierrors.WriteError.
func writeJSON(w http.ResponseWriter, status int, value any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(value)
}

// decodeStrict — строгий JSON-декодер: запрещаем неизвестные поля.
func decodeStrict(r *http.Request, value any) error {
	dec := json.NewDecoder(r.Body)
	dec.DisallowUnknownFields()
	return dec.Decode(value)
}

// setRefreshCookie кладёт refresh-токен в httpOnly-cookie.
// Path ограничен /auth: cookie уходит только на эндпойнты этого сервиса.
func (h *Handlers) setRefreshCookie(w http.ResponseWriter, token string) {
	http.SetCookie(w, &http.Cookie{
		Name:     refreshCookieName,
		Value:    token,
		Path:     "/auth",
		MaxAge:   int(h.refreshTTL.Seconds()),
		HttpOnly: true,
		Secure:   h.secureCookie,
		SameSite: http.SameSiteStrictMode,
	})
}

// clearRefreshCookie затирает refresh-cookie (logout, смена пароля,
// обнаруженное повторное предъявление токена).
func (h *Handlers) clearRefreshCookie(w http.ResponseWriter) {
	http.SetCookie(w, &http.Cookie{
		Name:     refreshCookieName,
		Value:    "",
		Path:     "/auth",
		MaxAge:   -1,
		HttpOnly: true,
		Secure:   h.secureCookie,
		SameSite: http.SameSiteStrictMode,
	})
}
