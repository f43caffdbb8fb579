package postgres

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"runtime"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/stretchr/testify/require"
	tc "github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/wait"

	"github.com/sentinel-iam/auth-service/internal/models"
	"github.com/sentinel-iam/auth-service/internal/storage"
)

// Файл интеграционных тестов для пакета postgres (репозиторий user.go):
// - поднимает реальный PostgreSQL через testcontainers-go (образ postgres:16-alpine);
// - применяет миграции из ./migrations (1_init_users.up.sql);
// - проверяет happy-path (создание и поиск по email/username/ID), уникальность (CITEXT);
// - валидирует сценарии отсутствия записей (storage.ErrNotFound).
//
// Запуск локально:
//   GO_TEST_INTEGRATION=1 go test ./internal/storage/postgres -v -race -count=1

// repoRootFromThisFile — определяет корень репозитория относительно текущего файла тестов.
// Используется для поиска SQL-миграций в каталоге ./migrations независимо от текущего рабочего каталога.
func repoRootFromThisFile() string {
	// internal/storage/postgres/... -> подняться на 3 уровня до корня.
	_, thisFile, _, _ := runtime.Caller(0)
	return filepath.Clean(filepath.Join(filepath.Dir(thisFile), "..", "..", ".."))
}

// readMigration — читает содержимое SQL-миграции из подкаталога ./migrations.
func readMigration(t *testing.T, name string) string {
	t.Helper()
	root := repoRootFromThisFile()
	path := filepath.Join(root, "migrations", name)
	b, err := os.ReadFile(path)
	require.NoError(t, err, "read migration %s", path)
	return string(b)
}

// startPostgres — поднимает временный экземпляр PostgreSQL через testcontainers-go,
// применяет миграцию users и возвращает инициализированное хранилище и функцию очистки.
// Если переменная окружения GO_TEST_INTEGRATION не установлена — тест пропускается.
func startPostgres(t *testing.T) (*Storage, func()) {
	t.Helper()
	if os.Getenv("GO_TEST_INTEGRATION") == "" {
		t.Skip("integration tests are disabled (set GO_TEST_INTEGRATION=1)")
	}

	ctx := context.Background()
	req := tc.ContainerRequest{
		Image:        "postgres:16-alpine",
		Env:          map[string]string{"POSTGRES_USER": "user", "POSTGRES_PASSWORD": "pass", "POSTGRES_DB": "db"},
		ExposedPorts: []string{"5432/tcp"},
		WaitingFor:   wait.ForListeningPort("5432/tcp").WithStartupTimeout(60 * time.Second),
	}
	c, err := tc.GenericContainer(ctx, tc.GenericContainerRequest{ContainerRequest: req, Started: true})
	require.NoError(t, err)

	host, _ := c.Host(ctx)
	port, _ := c.MappedPort(ctx, "5432/tcp")
	dsn := fmt.Sprintf("postgres://user:pass@%s:%s/db?sslmode=disable", host, port.Port())

	// применяем миграции.
	pool, err := pgxpool.New(ctx, dsn)
	require.NoError(t, err)
	defer pool.Close()

	_, err = pool.Exec(ctx, readMigration(t, "1_init_users.up.sql"))
	require.NoError(t, err)

	st, err := New(ctx, dsn)
	require.NoError(t, err)

	cleanup := func() {
		st.Close()
		_ = c.Terminate(context.Background())
	}
	return st, cleanup
}

// mustSaveUser — сохраняет тестового пользователя с уникальными username/email.
func mustSaveUser(t *testing.T, st *Storage, username, email string) *models.User {
	t.Helper()

	now := time.Now().UTC().Truncate(time.Microsecond)
	u := &models.User{
		ID:           uuid.New(),
		Username:     username,
		Email:        email,
		FullName:     "Test User",
		PasswordHash: "$2a$10$fakefakefakefakefakefakefakefakefakefakefakefakefake",
		CreatedAt:    now,
		UpdatedAt:    now,
	}
	require.NoError(t, st.SaveUser(context.Background(), u))
	return u
}

func TestIntegration_SaveUser_And_Lookups_OK(t *testing.T) {
	st, cleanup := startPostgres(t)
	defer cleanup()

	ctx := context.Background()
	u := mustSaveUser(t, st, "alice", "alice@x.com")

	byID, err := st.UserByID(ctx, u.ID)
	require.NoError(t, err)
	require.Equal(t, u.ID, byID.ID)
	require.Equal(t, "alice", byID.Username)
	require.Nil(t, byID.ActiveRefreshTokenHash)
	require.Nil(t, byID.ResetCode)

	// CITEXT: поиск по email регистронезависимый.
	byEmail, err := st.UserByEmail(ctx, "ALICE@X.COM")
	require.NoError(t, err)
	require.Equal(t, u.ID, byEmail.ID)

	// UserByLogin принимает и username, и email.
	byLogin, err := st.UserByLogin(ctx, "Alice")
	require.NoError(t, err)
	require.Equal(t, u.ID, byLogin.ID)

	byLogin, err = st.UserByLogin(ctx, "alice@x.com")
	require.NoError(t, err)
	require.Equal(t, u.ID, byLogin.ID)
}

func TestIntegration_SaveUser_UniqueViolation(t *testing.T) {
	st, cleanup := startPostgres(t)
	defer cleanup()

	mustSaveUser(t, st, "bob", "bob@x.com")

	dup := &models.User{
		ID:           uuid.New(),
		Username:     "BOB", // CITEXT: конфликт независимо от регистра.
		Email:        "other@x.com",
		FullName:     "Other",
		PasswordHash: "hash",
		CreatedAt:    time.Now().UTC(),
		UpdatedAt:    time.Now().UTC(),
	}
	err := st.SaveUser(context.Background(), dup)
	require.ErrorIs(t, err, storage.ErrAlreadyExists)

	dup.Username = "other"
	dup.Email = "BOB@X.COM"
	err = st.SaveUser(context.Background(), dup)
	require.ErrorIs(t, err, storage.ErrAlreadyExists)
}

func TestIntegration_Lookups_NotFound(t *testing.T) {
	st, cleanup := startPostgres(t)
	defer cleanup()

	ctx := context.Background()

	_, err := st.UserByID(ctx, uuid.New())
	require.ErrorIs(t, err, storage.ErrNotFound)

	_, err = st.UserByEmail(ctx, "ghost@x.com")
	require.ErrorIs(t, err, storage.ErrNotFound)

	_, err = st.UserByLogin(ctx, "ghost")
	require.ErrorIs(t, err, storage.ErrNotFound)
}

func TestIntegration_UpdateAccount(t *testing.T) {
	st, cleanup := startPostgres(t)
	defer cleanup()

	ctx := context.Background()
	u := mustSaveUser(t, st, "carol", "carol@x.com")
	other := mustSaveUser(t, st, "dave", "dave@x.com")

	updated, err := st.UpdateAccount(ctx, u.ID, "Carol Updated", "carol-new@x.com")
	require.NoError(t, err)
	require.Equal(t, "Carol Updated", updated.FullName)
	require.Equal(t, "carol-new@x.com", updated.Email)
	require.True(t, updated.UpdatedAt.After(u.UpdatedAt))

	// Конфликт уникальности email с другим пользователем.
	_, err = st.UpdateAccount(ctx, u.ID, "Carol Updated", other.Email)
	require.ErrorIs(t, err, storage.ErrAlreadyExists)

	_, err = st.UpdateAccount(ctx, uuid.New(), "Ghost", "ghost@x.com")
	require.ErrorIs(t, err, storage.ErrNotFound)
}
