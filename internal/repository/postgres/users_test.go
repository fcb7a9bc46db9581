package postgres

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/jackc/pgx/v5/pgconn"
	pgxmock "github.com/pashagolub/pgxmock/v4"

	"github.com/arklim/account-service/internal/core/domain"
	"github.com/arklim/account-service/internal/core/port"
	"github.com/arklim/account-service/internal/repository"
)

func newMockRepo(t *testing.T) (*UserRepository, pgxmock.PgxPoolIface) {
	t.Helper()

	mock, err := pgxmock.NewPool()
	if err != nil {
		t.Fatalf("pgxmock.NewPool: %v", err)
	}
	t.Cleanup(mock.Close)

	return NewUserRepository(mock), mock
}

func userRow(id, email string, deletedAt *time.Time, version int64) *pgxmock.Rows {
	now := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	return pgxmock.NewRows(userColumns).AddRow(
		id, "alice", email, "argon2id$digest", "admin",
		nil, nil, nil, nil, nil,
		true, false, nil, now, now, nil, nil, deletedAt, version,
	)
}

func anyArgs(n int) []any {
	args := make([]any, n)
	for i := range args {
		args[i] = pgxmock.AnyArg()
	}
	return args
}

func TestUserRepository_Create(t *testing.T) {
	repo, mock := newMockRepo(t)

	now := time.Now().UTC()
	user := domain.User{
		ID:           "u-1",
		Username:     "alice",
		Email:        " A@X.com ",
		PasswordHash: "argon2id$digest",
		Role:         domain.RoleUser,
		IsActive:     true,
		CreatedAt:    now,
		UpdatedAt:    now,
	}

	args := anyArgs(len(userColumns))
	args[0] = "u-1"
	args[1] = "alice"
	args[2] = "a@x.com"
	args[4] = "user"
	args[len(args)-1] = int64(1)

	mock.ExpectExec(`INSERT INTO account\.users`).
		WithArgs(args...).
		WillReturnResult(pgxmock.NewResult("INSERT", 1))

	if err := repo.Create(context.Background(), user); err != nil {
		t.Fatalf("Create returned error: %v", err)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("unmet expectations: %v", err)
	}
}

func TestUserRepository_CreateDuplicate(t *testing.T) {
	repo, mock := newMockRepo(t)

	mock.ExpectExec(`INSERT INTO account\.users`).
		WithArgs(anyArgs(len(userColumns))...).
		WillReturnError(&pgconn.PgError{Code: "23505", ConstraintName: "users_email_key"})

	err := repo.Create(context.Background(), domain.User{ID: "u-1", Username: "alice", Email: "a@x.com"})
	if !errors.Is(err, repository.ErrConflict) {
		t.Fatalf("expected ErrConflict, got %v", err)
	}
}

func TestUserRepository_GetByIDExcludesDeleted(t *testing.T) {
	repo, mock := newMockRepo(t)

	mock.ExpectQuery(`SELECT .* FROM account\.users WHERE id = \$1 AND deleted_at IS NULL LIMIT 1`).
		WithArgs("u-1").
		WillReturnRows(userRow("u-1", "a@x.com", nil, 2))

	user, err := repo.GetByID(context.Background(), "u-1")
	if err != nil {
		t.Fatalf("GetByID returned error: %v", err)
	}
	if user.ID != "u-1" || user.Role != domain.RoleAdmin || user.Version != 2 {
		t.Fatalf("unexpected user: %+v", user)
	}
	if user.Name != nil || user.LastLogin != nil {
		t.Fatalf("expected nullable columns to stay nil: %+v", user)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("unmet expectations: %v", err)
	}
}

func TestUserRepository_GetByIDIncludeDeleted(t *testing.T) {
	repo, mock := newMockRepo(t)

	deletedAt := time.Date(2026, 3, 2, 0, 0, 0, 0, time.UTC)
	mock.ExpectQuery(`SELECT .* FROM account\.users WHERE id = \$1 LIMIT 1`).
		WithArgs("u-1").
		WillReturnRows(userRow("u-1", "a@x.com", &deletedAt, 3))

	user, err := repo.GetByID(context.Background(), "u-1", port.IncludeDeleted())
	if err != nil {
		t.Fatalf("GetByID returned error: %v", err)
	}
	if !user.Deleted() {
		t.Fatal("expected soft-deleted user to be returned")
	}
}

func TestUserRepository_GetByEmailNotFound(t *testing.T) {
	repo, mock := newMockRepo(t)

	mock.ExpectQuery(`SELECT .* FROM account\.users WHERE email = \$1 AND deleted_at IS NULL`).
		WithArgs("a@x.com").
		WillReturnRows(pgxmock.NewRows(userColumns))

	_, err := repo.GetByEmail(context.Background(), "A@x.com")
	if !errors.Is(err, repository.ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}

func TestUserRepository_FindAllRejectsUnknownFilter(t *testing.T) {
	repo, _ := newMockRepo(t)

	if _, err := repo.FindAll(context.Background(), port.Filter{"password_hash": "x"}); err == nil {
		t.Fatal("expected unsupported filter error")
	}
}

func TestUserRepository_FindAll(t *testing.T) {
	repo, mock := newMockRepo(t)

	rows := userRow("u-1", "a@x.com", nil, 1)
	now := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	rows.AddRow(
		"u-2", "bob", "b@x.com", "argon2id$digest", "user",
		nil, nil, nil, nil, nil,
		true, true, nil, now, now, nil, nil, nil, int64(4),
	)

	mock.ExpectQuery(`SELECT .* FROM account\.users WHERE is_active = \$1 AND role = \$2 AND deleted_at IS NULL ORDER BY created_at ASC`).
		WithArgs(true, "user").
		WillReturnRows(rows)

	users, err := repo.FindAll(context.Background(), port.Filter{"role": domain.RoleUser, "is_active": true})
	if err != nil {
		t.Fatalf("FindAll returned error: %v", err)
	}
	if len(users) != 2 || users[1].Username != "bob" || !users[1].IsVerified {
		t.Fatalf("unexpected users: %+v", users)
	}
}

func TestUserRepository_UpdateOptimistic(t *testing.T) {
	repo, mock := newMockRepo(t)

	user := domain.User{ID: "u-1", Username: "alice2", Email: "a@x.com", Role: domain.RoleUser, IsActive: true, Version: 2}

	// 13 SET values followed by the id and version predicates.
	args := anyArgs(15)
	args[0] = "alice2"
	args[13] = "u-1"
	args[14] = int64(2)

	mock.ExpectExec(`UPDATE account\.users SET .*version = version \+ 1 WHERE id = \$14 AND version = \$15 AND deleted_at IS NULL`).
		WithArgs(args...).
		WillReturnResult(pgxmock.NewResult("UPDATE", 1))

	if err := repo.Update(context.Background(), user); err != nil {
		t.Fatalf("Update returned error: %v", err)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("unmet expectations: %v", err)
	}
}

func TestUserRepository_UpdateStaleVersion(t *testing.T) {
	repo, mock := newMockRepo(t)

	mock.ExpectExec(`UPDATE account\.users`).
		WithArgs(anyArgs(15)...).
		WillReturnResult(pgxmock.NewResult("UPDATE", 0))
	mock.ExpectQuery(`SELECT 1 FROM account\.users WHERE id = \$1 AND deleted_at IS NULL`).
		WithArgs("u-1").
		WillReturnRows(pgxmock.NewRows([]string{"?column?"}).AddRow(1))

	err := repo.Update(context.Background(), domain.User{ID: "u-1", Version: 1})
	if !errors.Is(err, repository.ErrStaleVersion) {
		t.Fatalf("expected ErrStaleVersion, got %v", err)
	}
}

func TestUserRepository_UpdateMissing(t *testing.T) {
	repo, mock := newMockRepo(t)

	mock.ExpectExec(`UPDATE account\.users`).
		WithArgs(anyArgs(15)...).
		WillReturnResult(pgxmock.NewResult("UPDATE", 0))
	mock.ExpectQuery(`SELECT 1 FROM account\.users`).
		WithArgs("u-404").
		WillReturnRows(pgxmock.NewRows([]string{"?column?"}))

	err := repo.Update(context.Background(), domain.User{ID: "u-404", Version: 1})
	if !errors.Is(err, repository.ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}

func TestUserRepository_UpdatePassword(t *testing.T) {
	repo, mock := newMockRepo(t)

	at := time.Now().UTC()
	actor := "admin-1"

	mock.ExpectExec(`UPDATE account\.users SET password_hash = \$1, updated_at = \$2, updated_by = \$3, version = version \+ 1 WHERE id = \$4 AND deleted_at IS NULL`).
		WithArgs("argon2id$new", at, pgxmock.AnyArg(), "u-1").
		WillReturnResult(pgxmock.NewResult("UPDATE", 1))

	if err := repo.UpdatePassword(context.Background(), "u-1", "argon2id$new", &actor, at); err != nil {
		t.Fatalf("UpdatePassword returned error: %v", err)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("unmet expectations: %v", err)
	}
}

func TestUserRepository_UpdateLastLoginMissing(t *testing.T) {
	repo, mock := newMockRepo(t)

	at := time.Now().UTC()
	mock.ExpectExec(`UPDATE account\.users SET last_login = \$1, updated_at = \$2`).
		WithArgs(at, at, "u-404").
		WillReturnResult(pgxmock.NewResult("UPDATE", 0))

	if err := repo.UpdateLastLogin(context.Background(), "u-404", at); !errors.Is(err, repository.ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}

func TestUserRepository_SoftDelete(t *testing.T) {
	repo, mock := newMockRepo(t)

	mock.ExpectExec(`UPDATE account\.users SET deleted_at = \$1, is_active = \$2, updated_at = \$3`).
		WithArgs(pgxmock.AnyArg(), false, pgxmock.AnyArg(), "u-1").
		WillReturnResult(pgxmock.NewResult("UPDATE", 1))

	if err := repo.SoftDelete(context.Background(), "u-1"); err != nil {
		t.Fatalf("SoftDelete returned error: %v", err)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("unmet expectations: %v", err)
	}
}

func TestClassifyConnectionError(t *testing.T) {
	err := classify("select user", errors.New("dial tcp: connection refused"))
	if !errors.Is(err, repository.ErrUnavailable) {
		t.Fatalf("expected ErrUnavailable, got %v", err)
	}
}
