package repomanager

import (
	"context"
	"database/sql"
	"errors"
	"regexp"
	"testing"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/pressly/goose/v3"
	"github.com/slange/storefront/internal/server/config"
	"github.com/slange/storefront/internal/server/migrations"
	"github.com/slange/storefront/internal/server/repositories/users"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const (
	userID  = "7f9c24e8-3b12-4c5a-9d1e-2a6b8c0d4e5f"
	ghostID = "00000000-0000-4000-8000-000000000000"
)

func newDB(t *testing.T) (*sql.DB, sqlmock.Sqlmock) {
	t.Helper()
	db, mock, err := sqlmock.New(sqlmock.QueryMatcherOption(sqlmock.QueryMatcherRegexp), sqlmock.MonitorPingsOption(true))
	if err != nil {
		t.Fatalf("sqlmock.New error: %v", err)
	}
	return db, mock
}

func TestNewPostgresRepositoryManager_ReturnsInterface(t *testing.T) {
	db, _ := newDB(t)
	defer db.Close()

	var m RepositoryManager = NewPostgresRepositoryManager(db)
	var _ users.Repository = m.Users()
	require.NotNil(t, m.Users())
}

func TestWithinTx_CommitsOnSuccess(t *testing.T) {
	db, mock := newDB(t)
	defer db.Close()

	mock.ExpectBegin()
	mock.ExpectExec(`(?s)^UPDATE\s+users\s+SET\s+role`).WithArgs(userID, "admin").WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectExec(`(?s)^UPDATE\s+users\s+SET\s+is_active`).WithArgs(userID, true).WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectCommit()

	m := NewPostgresRepositoryManager(db)
	err := m.WithinTx(context.Background(), func(ctx context.Context, repo users.Repository) error {
		if err := repo.SetRole(ctx, userID, "admin"); err != nil {
			return err
		}
		return repo.SetActive(ctx, userID, true)
	})
	require.NoError(t, err)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestWithinTx_RollsBackOnError(t *testing.T) {
	db, mock := newDB(t)
	defer db.Close()

	mock.ExpectBegin()
	mock.ExpectExec(`(?s)^UPDATE\s+users\s+SET\s+role`).WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectRollback()

	m := NewPostgresRepositoryManager(db)
	err := m.WithinTx(context.Background(), func(ctx context.Context, repo users.Repository) error {
		return repo.SetRole(ctx, ghostID, "admin")
	})
	require.Error(t, err)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestRunMigrations_Success(t *testing.T) {
	db, _ := newDB(t)
	defer db.Close()

	orig := gooseUpContext
	gooseUpContext = func(ctx context.Context, db *sql.DB, dir string, opts ...goose.OptionsFunc) error {
		if dir != "." {
			return errors.New("unexpected dir")
		}
		if len(opts) != 0 {
			return errors.New("unexpected opts")
		}
		return nil
	}
	defer func() { gooseUpContext = orig }()

	m := NewPostgresRepositoryManager(db)
	if err := m.RunMigrations(context.Background()); err != nil {
		t.Fatalf("RunMigrations error: %v", err)
	}
}

func TestRunMigrations_Error(t *testing.T) {
	db, _ := newDB(t)
	defer db.Close()

	orig := gooseUpContext
	gooseUpContext = func(ctx context.Context, db *sql.DB, dir string, opts ...goose.OptionsFunc) error {
		return errors.New("boom")
	}
	defer func() { gooseUpContext = orig }()

	m := NewPostgresRepositoryManager(db)
	if err := m.RunMigrations(context.Background()); err == nil || err.Error() != "boom" {
		t.Fatalf("expected boom, got %v", err)
	}
}

func TestPing(t *testing.T) {
	db, mock := newDB(t)
	defer db.Close()

	mock.ExpectPing()
	mock.ExpectPing().WillReturnError(errors.New("down"))

	m := NewPostgresRepositoryManager(db)
	assert.NoError(t, m.Ping(context.Background()))
	assert.Error(t, m.Ping(context.Background()))
}

func TestMigrationsAreEmbedded(t *testing.T) {
	b, err := migrations.Migrations.ReadFile("00001_create_users.sql")
	require.NoError(t, err)
	assert.Regexp(t, regexp.MustCompile(`(?s)\+goose Up.*CREATE TABLE IF NOT EXISTS users.*\+goose Down`), string(b))
	assert.Contains(t, string(b), "users_email_key")
}

func TestOpen_UnknownBackend(t *testing.T) {
	_, err := Open(context.Background(), &config.Config{StoreBackend: "cassandra"})
	require.Error(t, err)
}

func TestWithinTx_ReplaysSerializationFailure(t *testing.T) {
	db, mock := newDB(t)
	defer db.Close()

	mock.ExpectBegin()
	mock.ExpectExec(`(?s)^UPDATE\s+users\s+SET\s+role`).WillReturnError(&pgconn.PgError{Code: "40001"})
	mock.ExpectRollback()
	mock.ExpectBegin()
	mock.ExpectExec(`(?s)^UPDATE\s+users\s+SET\s+role`).WithArgs(userID, "admin").WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectCommit()

	calls := 0
	m := NewPostgresRepositoryManager(db)
	err := m.WithinTx(context.Background(), func(ctx context.Context, repo users.Repository) error {
		calls++
		return repo.SetRole(ctx, userID, "admin")
	})
	require.NoError(t, err)
	assert.Equal(t, 2, calls)
	require.NoError(t, mock.ExpectationsWereMet())
}
