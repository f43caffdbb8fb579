// redact маскирует чувствительные значения перед записью в лог.
// Секреты в логах недопустимы целиком; для диагностики достаточно
// частичного значения.
package redact

import "strings"

// Email маскирует локальную часть адреса: "alice@example.com" -> "a***@example.com".
func Email(email string) string {
	at := strings.LastIndexByte(email, '@')
	if at <= 0 {
		return "***"
	}

	return email[:1] + "***" + email[at:]
}

// Token оставляет первые 6 символов токена.
func Token(token string) string {
	if len(token) <= 6 {
		return "***"
	}

	return token[:6] + "..."
}

// Code полностью скрывает одноразовый код, сообщая лишь его длину.
func Code(code string) string {
	return strings.Repeat("*", len(code))
}
