package models

import (
	"time"

	"github.com/google/uuid"
)

// User — полная модель пользователя (внутреннее представление).
//
// Содержит секретные поля (PasswordHash, ActiveRefreshTokenHash, ResetCode),
// которые никогда не покидают сервисный слой. Наружу отдаётся только
// проекция PublicUser (см. Public).
type User struct {
	ID       uuid.UUID
	Username string
	Email    string
	FullName string
	// PasswordHash — bcrypt-хэш пароля; не логируется и не сериализуется.
	PasswordHash string
	// ActiveRefreshTokenHash — SHA-256 (base64url) единственного активного
	// refresh-токена; nil — активной сессии нет.
	ActiveRefreshTokenHash *string
	// ResetCode — одноразовый код сброса пароля; nil — сброс не запрошен.
	ResetCode *string
	// ResetCodeExpiresAt имеет смысл только при ResetCode != nil.
	ResetCodeExpiresAt *time.Time
	CreatedAt          time.Time
	UpdatedAt          time.Time
}

// PublicUser — проекция пользователя без секретных полей.
// Единственная форма, в которой пользователь отдаётся транспортному слою.
type PublicUser struct {
	ID        uuid.UUID `json:"id"`
	Username  string    `json:"username"`
	Email     string    `json:"email"`
	FullName  string    `json:"full_name"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// Public возвращает публичную проекцию пользователя.
func (u *User) Public() PublicUser {
	return PublicUser{
		ID:        u.ID,
		Username:  u.Username,
		Email:     u.Email,
		FullName:  u.FullName,
		CreatedAt: u.CreatedAt,
		UpdatedAt: u.UpdatedAt,
	}
}
