package postgres

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/jackc/pgx/v5"

	"github.com/utafrali/backoffice/internal/domain"
	"github.com/utafrali/backoffice/pkg/database"
	apperrors "github.com/utafrali/backoffice/pkg/errors"
	"github.com/utafrali/backoffice/pkg/pagination"
)

// userColumns selects a user with its role names, oldest assignment first.
const userColumns = `u.id, u.username, u.email, u.phone, u.first_name, u.last_name,
	u.password_hash, u.is_active,
	ARRAY(SELECT r.name FROM user_roles ur JOIN roles r ON r.id = ur.role_id
	      WHERE ur.user_id = u.id ORDER BY ur.created_at, r.name) AS roles,
	u.created_at, u.updated_at`

// UserRepository implements user persistence using PostgreSQL.
type UserRepository struct {
	pool database.DBTX
}

// NewUserRepository creates a new PostgreSQL-backed user repository.
func NewUserRepository(pool database.DBTX) *UserRepository {
	return &UserRepository{pool: pool}
}

// Create inserts a new user. Roles are assigned separately.
func (r *UserRepository) Create(ctx context.Context, u *domain.User) error {
	query := `
		INSERT INTO users (id, username, email, phone, first_name, last_name,
			password_hash, is_active, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)`

	_, err := r.pool.Exec(ctx, query,
		u.ID, u.Username, u.Email, u.Phone, u.FirstName, u.LastName,
		u.PasswordHash, u.IsActive, u.CreatedAt, u.UpdatedAt,
	)
	if err != nil {
		if database.IsUniqueViolation(err) {
			return userConflict(err, u)
		}
		return fmt.Errorf("insert user: %w", err)
	}
	return nil
}

// GetByID retrieves a user by id.
func (r *UserRepository) GetByID(ctx context.Context, id string) (*domain.User, error) {
	return r.getBy(ctx, "id", id)
}

// GetByUsername retrieves a user by username.
func (r *UserRepository) GetByUsername(ctx context.Context, username string) (*domain.User, error) {
	return r.getBy(ctx, "username", username)
}

// GetByEmail retrieves a user by email.
func (r *UserRepository) GetByEmail(ctx context.Context, email string) (*domain.User, error) {
	return r.getBy(ctx, "email", email)
}

// GetByPhone retrieves a user by phone.
func (r *UserRepository) GetByPhone(ctx context.Context, phone string) (*domain.User, error) {
	return r.getBy(ctx, "phone", phone)
}

// List returns one page of users and the total count.
func (r *UserRepository) List(ctx context.Context, page, perPage int) ([]domain.User, int, error) {
	p := pagination.Params{Page: page, PerPage: perPage}
	query := fmt.Sprintf(`
		SELECT %s, count(*) OVER() AS total_count
		FROM users u
		ORDER BY u.username
		LIMIT $1 OFFSET $2`, userColumns)

	rows, err := r.pool.Query(ctx, query, p.Limit(), p.Offset())
	if err != nil {
		return nil, 0, fmt.Errorf("list users: %w", err)
	}
	defer rows.Close()

	users := []domain.User{}
	total := 0
	for rows.Next() {
		var u domain.User
		if err := rows.Scan(append(userDest(&u), &total)...); err != nil {
			return nil, 0, fmt.Errorf("scan user row: %w", err)
		}
		users = append(users, u)
	}
	if err := rows.Err(); err != nil {
		return nil, 0, fmt.Errorf("iterate user rows: %w", err)
	}
	return users, total, nil
}

// Update overwrites profile fields and the password hash.
func (r *UserRepository) Update(ctx context.Context, u *domain.User) error {
	u.UpdatedAt = time.Now().UTC()

	query := `
		UPDATE users
		SET username = $1, email = $2, phone = $3, first_name = $4, last_name = $5,
		    password_hash = $6, is_active = $7, updated_at = $8
		WHERE id = $9`

	ct, err := r.pool.Exec(ctx, query,
		u.Username, u.Email, u.Phone, u.FirstName, u.LastName,
		u.PasswordHash, u.IsActive, u.UpdatedAt, u.ID,
	)
	if err != nil {
		if database.IsUniqueViolation(err) {
			return userConflict(err, u)
		}
		return fmt.Errorf("update user: %w", err)
	}
	if ct.RowsAffected() == 0 {
		return apperrors.NotFoundOf(domain.ErrUserNotFound, "user", "id", u.ID)
	}
	return nil
}

// Delete removes a user; role assignments cascade. A user still linked to a
// manufacturer is refused.
func (r *UserRepository) Delete(ctx context.Context, id string) error {
	ct, err := r.pool.Exec(ctx, `DELETE FROM users WHERE id = $1`, id)
	if err != nil {
		if database.IsForeignKeyViolation(err) {
			return apperrors.Guard(nil, "user is linked to a manufacturer")
		}
		return fmt.Errorf("delete user: %w", err)
	}
	if ct.RowsAffected() == 0 {
		return apperrors.NotFoundOf(domain.ErrUserNotFound, "user", "id", id)
	}
	return nil
}

// AssignRole grants a role to a user.
func (r *UserRepository) AssignRole(ctx context.Context, userID, roleID string) error {
	_, err := r.pool.Exec(ctx,
		`INSERT INTO user_roles (user_id, role_id, created_at) VALUES ($1, $2, $3)`,
		userID, roleID, time.Now().UTC(),
	)
	if err != nil {
		if database.IsUniqueViolation(err) {
			return apperrors.DuplicateAssociation("role "+roleID, "user "+userID)
		}
		if database.IsForeignKeyViolation(err) {
			return apperrors.NotFoundOf(domain.ErrUserNotFound, "user", "id", userID)
		}
		return fmt.Errorf("assign role: %w", err)
	}
	return nil
}

// RemoveRole revokes a role and reports whether it was assigned.
func (r *UserRepository) RemoveRole(ctx context.Context, userID, roleID string) (bool, error) {
	ct, err := r.pool.Exec(ctx, `DELETE FROM user_roles WHERE user_id = $1 AND role_id = $2`, userID, roleID)
	if err != nil {
		return false, fmt.Errorf("remove role: %w", err)
	}
	return ct.RowsAffected() > 0, nil
}

// ListRoleNames returns the names of the roles assigned to a user.
func (r *UserRepository) ListRoleNames(ctx context.Context, userID string) ([]string, error) {
	rows, err := r.pool.Query(ctx, `
		SELECT r.name
		FROM user_roles ur
		JOIN roles r ON r.id = ur.role_id
		WHERE ur.user_id = $1
		ORDER BY ur.created_at, r.name`, userID)
	if err != nil {
		return nil, fmt.Errorf("list user roles: %w", err)
	}
	names, err := pgx.CollectRows(rows, pgx.RowTo[string])
	if err != nil {
		return nil, fmt.Errorf("collect user roles: %w", err)
	}
	return names, nil
}

func (r *UserRepository) getBy(ctx context.Context, field, value string) (*domain.User, error) {
	query := fmt.Sprintf(`SELECT %s FROM users u WHERE u.%s = $1`, userColumns, field)

	var u domain.User
	if err := r.pool.QueryRow(ctx, query, value).Scan(userDest(&u)...); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, apperrors.NotFoundOf(domain.ErrUserNotFound, "user", field, value)
		}
		return nil, fmt.Errorf("scan user: %w", err)
	}
	return &u, nil
}

func userDest(u *domain.User) []any {
	return []any{
		&u.ID, &u.Username, &u.Email, &u.Phone, &u.FirstName, &u.LastName,
		&u.PasswordHash, &u.IsActive, &u.Roles, &u.CreatedAt, &u.UpdatedAt,
	}
}

func userConflict(err error, u *domain.User) error {
	switch constraint := database.ConstraintName(err); {
	case strings.Contains(constraint, "email"):
		return apperrors.AlreadyExists("user", "email", u.Email)
	case strings.Contains(constraint, "phone"):
		return apperrors.AlreadyExists("user", "phone", u.Phone)
	default:
		return apperrors.AlreadyExists("user", "username", u.Username)
	}
}
