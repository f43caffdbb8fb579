// service содержит бизнес-логику управления учётными данными:
// регистрацию/аутентификацию пользователей, выпуск/ротацию токенов,
// протокол одноразовых кодов сброса пароля и работу с хранилищем
// через интерфейсы из пакета storage.
//
// Основные аспекты:
//   - Пакет не хранит состояние запроса внутри Service; экземпляр Service
//     безопасен для конкурентного использования из разных горутин при условии,
//     что переданное хранилище (storage.Storage) потокобезопасно.
//   - Любая неожиданная ситуация трактуется закрыто (fail closed): сомнение
//     в подлинности токена или кода всегда приводит к отказу.
//   - Ошибки возвращаются типизированно и далее маппятся транспортом
//     на HTTP-статусы (см. комментарии к переменным ошибок ниже).
package service

import (
	"errors"

	"github.com/sentinel-iam/auth-service/internal/config"
	"github.com/sentinel-iam/auth-service/internal/mailer"
	"github.com/sentinel-iam/auth-service/internal/storage"
)

var (
	// ErrInvalidCredentials — пара логин/пароль неверна или пользователь
	// не найден (намеренно неразличимо). Транспорт: 401.
	ErrInvalidCredentials = errors.New("invalid credentials")

	// ErrUserNotFound — пользователь не найден там, где его существование
	// уже подтверждено или допускается раскрытие. Транспорт: 404.
	ErrUserNotFound = errors.New("user not found")

	// ErrUserExists — username или email уже занят. Транспорт: 409.
	ErrUserExists = errors.New("user already exists")

	// ErrInvalidToken — токен некорректен по формату/подписи или его
	// владелец не существует. Транспорт: 401.
	ErrInvalidToken = errors.New("invalid token")

	// ErrTokenExpired — срок действия токена истёк. Транспорт: 401.
	ErrTokenExpired = errors.New("token expired")

	// ErrTokenReuse — предъявлен refresh-токен, не совпадающий с единственным
	// активным (в том числе уже ротированный). Сигнал возможной кражи:
	// транспортный слой обязан сбросить сессионные cookie клиента.
	// Транспорт: 401 + очистка cookie.
	ErrTokenReuse = errors.New("refresh token reuse detected")

	// ErrInvalidResetCode — код сброса не совпадает с актуальным или просрочен.
	// Транспорт: 400.
	ErrInvalidResetCode = errors.New("invalid or expired reset code")

	// ErrInvalidOldPassword — старый пароль при смене не подошёл. Транспорт: 400.
	ErrInvalidOldPassword = errors.New("invalid old password")

	// ErrDeliveryFailed — письмо не принято к доставке; уже сохранённый
	// код сброса при этом остаётся действительным. Транспорт: 502.
	ErrDeliveryFailed = errors.New("email delivery failed")

	// ErrInvalidEmail — email имеет некорректный формат. Транспорт: 400.
	ErrInvalidEmail = errors.New("invalid email format")

	// ErrInvalidUsername — username не проходит политику валидации. Транспорт: 400.
	ErrInvalidUsername = errors.New("invalid username")

	// ErrInvalidFullName — полное имя короче минимума. Транспорт: 400.
	ErrInvalidFullName = errors.New("invalid full name")

	// ErrWeakPassword — пароль короче минимальной длины. Транспорт: 400.
	ErrWeakPassword = errors.New("password is too weak")

	// ErrEmptyPassword — пароль пустой. Транспорт: 400.
	ErrEmptyPassword = errors.New("password is empty")
)

// Service описывает бизнес-логику сервиса учётных данных.
type Service struct {
	storage storage.Storage
	mailer  mailer.Mailer
	auth    config.AuthConfig
	reset   config.ResetConfig
	mail    config.MailConfig
}

// New создаёт новый экземпляр Service.
func New(storage storage.Storage, mailer mailer.Mailer, cfg *config.Config) *Service {
	return &Service{
		storage: storage,
		mailer:  mailer,
		auth:    cfg.Auth,
		reset:   cfg.Reset,
		mail:    cfg.Mail,
	}
}
