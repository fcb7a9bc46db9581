package postgres

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strings"
	"time"

	squirrel "github.com/Masterminds/squirrel"
	"github.com/jackc/pgx/v5"

	"github.com/arklim/account-service/internal/core/domain"
	"github.com/arklim/account-service/internal/core/port"
	"github.com/arklim/account-service/internal/repository"
)

const usersTable = "account.users"

var userColumns = []string{
	"id",
	"username",
	"email",
	"password_hash",
	"role",
	"name",
	"phone_number",
	"profile_picture",
	"date_of_birth",
	"address",
	"is_active",
	"is_verified",
	"last_login",
	"created_at",
	"updated_at",
	"created_by",
	"updated_by",
	"deleted_at",
	"version",
}

// filterableColumns lists the Filter keys accepted by FindOne and FindAll.
var filterableColumns = map[string]struct{}{
	"id":          {},
	"username":    {},
	"email":       {},
	"role":        {},
	"is_active":   {},
	"is_verified": {},
}

// UserRepository implements port.UserRepository using PostgreSQL.
type UserRepository struct {
	exec    pgExecutor
	builder squirrel.StatementBuilderType
}

// NewUserRepository wires a PostgreSQL-backed user repository.
func NewUserRepository(exec pgExecutor) *UserRepository {
	return &UserRepository{
		exec:    exec,
		builder: squirrel.StatementBuilder.PlaceholderFormat(squirrel.Dollar),
	}
}

// Create inserts a new user row.
func (r *UserRepository) Create(ctx context.Context, user domain.User) error {
	version := user.Version
	if version <= 0 {
		version = 1
	}

	stmt, args, err := r.builder.Insert(usersTable).
		Columns(userColumns...).
		Values(
			user.ID,
			user.Username,
			domain.NormalizeEmail(user.Email),
			user.PasswordHash,
			string(user.Role),
			user.Name,
			user.PhoneNumber,
			user.ProfilePicture,
			user.DateOfBirth,
			user.Address,
			user.IsActive,
			user.IsVerified,
			user.LastLogin,
			user.CreatedAt,
			user.UpdatedAt,
			user.CreatedBy,
			user.UpdatedBy,
			user.DeletedAt,
			version,
		).
		ToSql()
	if err != nil {
		return fmt.Errorf("build insert user sql: %w", err)
	}

	if _, err := r.exec.Exec(ctx, stmt, args...); err != nil {
		return classify("insert user", err)
	}
	return nil
}

// GetByID retrieves a user by identifier.
func (r *UserRepository) GetByID(ctx context.Context, id string, opts ...port.FindOption) (*domain.User, error) {
	return r.FindOne(ctx, port.Filter{"id": id}, opts...)
}

// GetByEmail retrieves an active user by normalised email.
func (r *UserRepository) GetByEmail(ctx context.Context, email string) (*domain.User, error) {
	return r.FindOne(ctx, port.Filter{"email": domain.NormalizeEmail(email)})
}

// FindOne returns the first user matching filter.
func (r *UserRepository) FindOne(ctx context.Context, filter port.Filter, opts ...port.FindOption) (*domain.User, error) {
	query, err := r.selectUsers(filter, port.ResolveFindOptions(opts...))
	if err != nil {
		return nil, err
	}

	stmt, args, err := query.Limit(1).ToSql()
	if err != nil {
		return nil, fmt.Errorf("build select user sql: %w", err)
	}

	user, err := scanUser(r.exec.QueryRow(ctx, stmt, args...))
	if err != nil {
		return nil, classify("select user", err)
	}
	return user, nil
}

// FindAll returns every user matching filter, oldest first.
func (r *UserRepository) FindAll(ctx context.Context, filter port.Filter, opts ...port.FindOption) ([]domain.User, error) {
	query, err := r.selectUsers(filter, port.ResolveFindOptions(opts...))
	if err != nil {
		return nil, err
	}

	stmt, args, err := query.OrderBy("created_at ASC").ToSql()
	if err != nil {
		return nil, fmt.Errorf("build list users sql: %w", err)
	}

	rows, err := r.exec.Query(ctx, stmt, args...)
	if err != nil {
		return nil, classify("query users", err)
	}
	defer rows.Close()

	users := make([]domain.User, 0)
	for rows.Next() {
		user, err := scanUser(rows)
		if err != nil {
			return nil, fmt.Errorf("scan user: %w", err)
		}
		users = append(users, *user)
	}
	if err := rows.Err(); err != nil {
		return nil, classify("iterate users", err)
	}

	return users, nil
}

// Update overwrites the mutable columns when user.Version matches the stored
// version, and bumps the stored version by one.
func (r *UserRepository) Update(ctx context.Context, user domain.User) error {
	updatedAt := user.UpdatedAt
	if updatedAt.IsZero() {
		updatedAt = time.Now().UTC()
	}

	stmt, args, err := r.builder.Update(usersTable).
		Set("username", user.Username).
		Set("email", domain.NormalizeEmail(user.Email)).
		Set("password_hash", user.PasswordHash).
		Set("role", string(user.Role)).
		Set("name", user.Name).
		Set("phone_number", user.PhoneNumber).
		Set("profile_picture", user.ProfilePicture).
		Set("date_of_birth", user.DateOfBirth).
		Set("address", user.Address).
		Set("is_active", user.IsActive).
		Set("is_verified", user.IsVerified).
		Set("updated_at", updatedAt).
		Set("updated_by", user.UpdatedBy).
		Set("version", squirrel.Expr("version + 1")).
		Where(squirrel.Eq{"id": user.ID, "version": user.Version}).
		Where("deleted_at IS NULL").
		ToSql()
	if err != nil {
		return fmt.Errorf("build update user sql: %w", err)
	}

	tag, err := r.exec.Exec(ctx, stmt, args...)
	if err != nil {
		return classify("update user", err)
	}
	if tag.RowsAffected() == 0 {
		return r.missOrStale(ctx, user.ID)
	}
	return nil
}

// UpdateLastLogin records a successful sign-in.
func (r *UserRepository) UpdateLastLogin(ctx context.Context, id string, at time.Time) error {
	return r.touch(ctx, "update last login", id, map[string]any{
		"last_login": at,
		"updated_at": at,
	})
}

// UpdatePassword replaces the stored digest.
func (r *UserRepository) UpdatePassword(ctx context.Context, id string, passwordHash string, updatedBy *string, at time.Time) error {
	if strings.TrimSpace(passwordHash) == "" {
		return errors.New("password hash is required")
	}
	return r.touch(ctx, "update password", id, map[string]any{
		"password_hash": passwordHash,
		"updated_by":    updatedBy,
		"updated_at":    at,
	})
}

// SoftDelete stamps deleted_at and deactivates the account.
func (r *UserRepository) SoftDelete(ctx context.Context, id string) error {
	now := time.Now().UTC()
	return r.touch(ctx, "soft delete user", id, map[string]any{
		"deleted_at": now,
		"is_active":  false,
		"updated_at": now,
	})
}

// touch applies an unconditional column update to a live row and bumps its version.
func (r *UserRepository) touch(ctx context.Context, op, id string, values map[string]any) error {
	stmt, args, err := r.builder.Update(usersTable).
		SetMap(values).
		Set("version", squirrel.Expr("version + 1")).
		Where(squirrel.Eq{"id": id}).
		Where("deleted_at IS NULL").
		ToSql()
	if err != nil {
		return fmt.Errorf("build %s sql: %w", op, err)
	}

	tag, err := r.exec.Exec(ctx, stmt, args...)
	if err != nil {
		return classify(op, err)
	}
	if tag.RowsAffected() == 0 {
		return repository.ErrNotFound
	}
	return nil
}

func (r *UserRepository) missOrStale(ctx context.Context, id string) error {
	stmt, args, err := r.builder.Select("1").
		From(usersTable).
		Where(squirrel.Eq{"id": id}).
		Where("deleted_at IS NULL").
		ToSql()
	if err != nil {
		return fmt.Errorf("build user exists sql: %w", err)
	}

	var one int
	if err := r.exec.QueryRow(ctx, stmt, args...).Scan(&one); err != nil {
		return classify("check user exists", err)
	}
	return repository.ErrStaleVersion
}

func (r *UserRepository) selectUsers(filter port.Filter, opts port.FindOptions) (squirrel.SelectBuilder, error) {
	query := r.builder.Select(userColumns...).From(usersTable)

	keys := make([]string, 0, len(filter))
	for key := range filter {
		keys = append(keys, key)
	}
	sort.Strings(keys)

	for _, key := range keys {
		if _, ok := filterableColumns[key]; !ok {
			return query, fmt.Errorf("unsupported user filter %q", key)
		}
		value := filter[key]
		if role, ok := value.(domain.Role); ok {
			value = string(role)
		}
		query = query.Where(squirrel.Eq{key: value})
	}

	if !opts.IncludeDeleted {
		query = query.Where("deleted_at IS NULL")
	}
	return query, nil
}

func scanUser(row pgx.Row) (*domain.User, error) {
	var (
		user domain.User
		role string
	)

	if err := row.Scan(
		&user.ID,
		&user.Username,
		&user.Email,
		&user.PasswordHash,
		&role,
		&user.Name,
		&user.PhoneNumber,
		&user.ProfilePicture,
		&user.DateOfBirth,
		&user.Address,
		&user.IsActive,
		&user.IsVerified,
		&user.LastLogin,
		&user.CreatedAt,
		&user.UpdatedAt,
		&user.CreatedBy,
		&user.UpdatedBy,
		&user.DeletedAt,
		&user.Version,
	); err != nil {
		return nil, err
	}

	user.Role = domain.ParseRole(role)
	return &user, nil
}

var _ port.UserRepository = (*UserRepository)(nil)
