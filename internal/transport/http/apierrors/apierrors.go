// apierrors стандартизирует ответы об ошибках HTTP-слоя.
// На вход принимает типизированную ошибку сервисного слоя, на выход даёт:
//   - корректный HTTP-статус;
//   - краткое безопасное message без утечки деталей.
//
// Источник истинности по маппингу: комментарии к ошибкам пакета service.
package apierrors

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"

	"github.com/sentinel-iam/auth-service/internal/service"
)

// Нестандартный код часто используемый для "клиент закрыл соединение".
const StatusClientClosedRequest = 499

// ErrBadRequest — некорректное тело запроса (битый JSON, неизвестные поля).
// Локальная ошибка транспортного слоя; сервисных аналогов не имеет.
var ErrBadRequest = errors.New("bad request")

// APIError — единый формат для фронта.
// Code — короткий стабильный код для машиночитаемой обработки на FE.
// Message — безопасное человекочитаемое описание.
// RequestID — прокидывается из X-Request-Id, если есть (для трассировки).
type APIError struct {
	Code      string `json:"code"`
	Message   string `json:"message"`
	RequestID string `json:"request_id,omitempty"`
}

// ErrorResponse — корневой объект в ответе.
type ErrorResponse struct {
	Error APIError `json:"error"`
}

// ToHTTP конвертирует ошибку сервисного слоя в HTTP-статус и
// унифицированный ответ для фронта.
//
// Поведение:
//   - err == nil — программная ошибка вызова: 500/internal, чтобы не послать
//     "200 OK" с телом ошибки и не маскировать баг;
//   - нераспознанная ошибка — 500/internal (без утечки деталей).
func ToHTTP(err error) (int, ErrorResponse) {
	status, code, msg := base(err)
	return status, ErrorResponse{
		Error: APIError{
			Code:    code,
			Message: msg,
		},
	}
}

// WriteError — хелпер для HTTP-хендлеров.
// Пишет корректный статус/тело, добавляет request_id из заголовка, если он есть.
func WriteError(w http.ResponseWriter, r *http.Request, err error) {
	status, resp := ToHTTP(err)

	if rid := r.Header.Get("X-Request-Id"); rid != "" {
		resp.Error.RequestID = rid
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(resp)
}

// base — маппинг ошибок service -> HTTP/FE-код/сообщение.
//   - ошибки валидации входных данных -> 400
//   - неверные учётные данные / токены -> 401
//   - повторное предъявление refresh-токена -> 401 (cookie чистит хендлер)
//   - пользователь не найден -> 404
//   - конфликт уникальности -> 409
//   - сбой доставки письма -> 502
//   - отмена клиентом -> 499, таймаут -> 504
//   - прочее -> 500/internal
func base(err error) (int, string, string) {
	switch {
	case err == nil:
		return http.StatusInternalServerError, "internal", "internal error"
	case errors.Is(err, ErrBadRequest):
		return http.StatusBadRequest, "invalid_argument", "invalid argument"
	case errors.Is(err, service.ErrInvalidEmail):
		return http.StatusBadRequest, "invalid_email", "invalid email format"
	case errors.Is(err, service.ErrInvalidUsername):
		return http.StatusBadRequest, "invalid_username", "invalid username"
	case errors.Is(err, service.ErrInvalidFullName):
		return http.StatusBadRequest, "invalid_full_name", "invalid full name"
	case errors.Is(err, service.ErrEmptyPassword):
		return http.StatusBadRequest, "empty_password", "password is empty"
	case errors.Is(err, service.ErrWeakPassword):
		return http.StatusBadRequest, "weak_password", "password is too weak"
	case errors.Is(err, service.ErrInvalidOldPassword):
		return http.StatusBadRequest, "invalid_old_password", "invalid old password"
	case errors.Is(err, service.ErrInvalidResetCode):
		return http.StatusBadRequest, "invalid_reset_code", "invalid or expired reset code"
	case errors.Is(err, service.ErrInvalidCredentials):
		return http.StatusUnauthorized, "invalid_credentials", "invalid credentials"
	case errors.Is(err, service.ErrTokenExpired):
		return http.StatusUnauthorized, "token_expired", "token expired"
	case errors.Is(err, service.ErrTokenReuse):
		return http.StatusUnauthorized, "token_reuse", "refresh token reuse detected"
	case errors.Is(err, service.ErrInvalidToken):
		return http.StatusUnauthorized, "invalid_token", "invalid token"
	case errors.Is(err, service.ErrUserNotFound):
		return http.StatusNotFound, "not_found", "not found"
	case errors.Is(err, service.ErrUserExists):
		return http.StatusConflict, "already_exists", "already exists"
	case errors.Is(err, service.ErrDeliveryFailed):
		return http.StatusBadGateway, "delivery_failed", "email delivery failed"
	case errors.Is(err, context.Canceled):
		return StatusClientClosedRequest, "canceled", "canceled"
	case errors.Is(err, context.DeadlineExceeded):
		return http.StatusGatewayTimeout, "deadline_exceeded", "deadline exceeded"
	default:
		return http.StatusInternalServerError, "internal", "internal error"
	}
}
