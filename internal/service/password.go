package service

import (
	"fmt"
	"net/mail"
	"strings"

	"golang.org/x/crypto/bcrypt"
)

const (
	minPasswordLen = 8
	minUsernameLen = 3
	minFullNameLen = 3
)

// hashPassword возвращает bcrypt-хеш пароля со стандартной стоимостью.
func hashPassword(password string) (string, error) {
	const op = "service.password.hashPassword"

	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return "", fmt.Errorf("%s: %w", op, err)
	}

	return string(hash), nil
}

// checkPassword сравнивает пароль с bcrypt-хешем.
// Любая ошибка сравнения, включая повреждённый хеш в хранилище, означает
// "пароль не подошёл": наружу уходит только false, не внутренняя ошибка.
func checkPassword(hash, password string) bool {
	return bcrypt.CompareHashAndPassword([]byte(hash), []byte(password)) == nil
}

// validatePassword проверяет политику паролей: непустой и не короче
// minPasswordLen символов. Требований к составу символов нет.
func validatePassword(password string) error {
	if password == "" {
		return ErrEmptyPassword
	}
	if len(password) < minPasswordLen {
		return ErrWeakPassword
	}

	return nil
}

// normalizeEmail валидирует email и приводит его к нижнему регистру.
func normalizeEmail(email string) (string, error) {
	email = strings.ToLower(strings.TrimSpace(email))

	addr, err := mail.ParseAddress(email)
	if err != nil || addr.Address != email {
		return "", ErrInvalidEmail
	}

	return email, nil
}

// normalizeUsername валидирует username и приводит его к нижнему регистру.
// Допустимы латиница, цифры и символы "_", ".", "-".
func normalizeUsername(username string) (string, error) {
	username = strings.ToLower(strings.TrimSpace(username))

	if len(username) < minUsernameLen {
		return "", ErrInvalidUsername
	}
	for _, r := range username {
		switch {
		case r >= 'a' && r <= 'z':
		case r >= '0' && r <= '9':
		case r == '_' || r == '.' || r == '-':
		default:
			return "", ErrInvalidUsername
		}
	}

	return username, nil
}

// normalizeFullName убирает крайние пробелы и проверяет минимальную длину.
func normalizeFullName(fullName string) (string, error) {
	fullName = strings.TrimSpace(fullName)

	if len(fullName) < minFullNameLen {
		return "", ErrInvalidFullName
	}

	return fullName, nil
}
