package storage

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"

	"github.com/sentinel-iam/auth-service/internal/models"
)

var (
	// ErrNotFound — запись не найдена (пользователь/код сброса).
	ErrNotFound = errors.New("not found")
	// ErrAlreadyExists — нарушение уникальности (username/email).
	ErrAlreadyExists = errors.New("already exists")
)

// UserStorage выполняет операции чтения/создания пользователей.
type UserStorage interface {
	// SaveUser создает нового пользователя в БД.
	SaveUser(ctx context.Context, user *models.User) error
	// UserByID находит пользователя по ID.
	UserByID(ctx context.Context, id uuid.UUID) (*models.User, error)
	// UserByEmail находит пользователя по email (нормализованному).
	UserByEmail(ctx context.Context, email string) (*models.User, error)
	// UserByLogin находит пользователя по username или email.
	UserByLogin(ctx context.Context, login string) (*models.User, error)
	// UpdateAccount обновляет fullName/email и возвращает свежую запись.
	UpdateAccount(ctx context.Context, id uuid.UUID, fullName, email string) (*models.User, error)
}

// SessionStorage управляет единственным слотом refresh-токена пользователя.
//
// Инвариант: у пользователя в любой момент не более одного активного
// refresh-токена; все переходы слота выполняются атомарно на уровне строки.
type SessionStorage interface {
	// SwapRefreshTokenHash атомарно заменяет хэш активного refresh-токена:
	// запись происходит только если текущее значение слота равно old.
	// Пустая строка означает NULL (old == "" — слот должен быть пуст,
	// new == "" — очистка слота). Возвращает true, если строка была
	// обновлена, то есть CAS выигран.
	SwapRefreshTokenHash(ctx context.Context, id uuid.UUID, old, new string) (bool, error)
	// SetRefreshTokenHash безусловно перезаписывает слот (вход/повторный вход).
	SetRefreshTokenHash(ctx context.Context, id uuid.UUID, hash string) error
	// ClearRefreshTokenHash очищает слот; идемпотентна.
	ClearRefreshTokenHash(ctx context.Context, id uuid.UUID) error
}

// ResetStorage управляет одноразовыми кодами сброса пароля.
type ResetStorage interface {
	// SetResetCode записывает код и срок его действия, затирая предыдущий.
	SetResetCode(ctx context.Context, id uuid.UUID, code string, expiresAt time.Time) error
	// UserByResetCode находит пользователя по точному непросроченному коду.
	UserByResetCode(ctx context.Context, code string, now time.Time) (*models.User, error)
	// UpdatePassword устанавливает новый хэш пароля и одновременно очищает
	// код сброса и активную сессию (принудительный re-login).
	UpdatePassword(ctx context.Context, id uuid.UUID, passwordHash string) error
	// ClearExpiredResetCodes затирает просроченные коды сброса (фоновая уборка).
	ClearExpiredResetCodes(ctx context.Context, now time.Time) error
}

// Storage задает контракт работы с БД.
type Storage interface {
	UserStorage
	SessionStorage
	ResetStorage
	Close()
}
