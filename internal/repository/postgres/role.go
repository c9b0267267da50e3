package postgres

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"

	"github.com/utafrali/backoffice/internal/domain"
	"github.com/utafrali/backoffice/pkg/database"
	apperrors "github.com/utafrali/backoffice/pkg/errors"
)

const roleColumns = `id, name, description, created_at, updated_at`

// RoleRepository implements role persistence using PostgreSQL.
type RoleRepository struct {
	pool database.DBTX
}

// NewRoleRepository creates a new PostgreSQL-backed role repository.
func NewRoleRepository(pool database.DBTX) *RoleRepository {
	return &RoleRepository{pool: pool}
}

// Create inserts a new role.
func (r *RoleRepository) Create(ctx context.Context, role *domain.Role) error {
	_, err := r.pool.Exec(ctx,
		`INSERT INTO roles (id, name, description, created_at, updated_at) VALUES ($1, $2, $3, $4, $5)`,
		role.ID, role.Name, role.Description, role.CreatedAt, role.UpdatedAt,
	)
	if err != nil {
		if database.IsUniqueViolation(err) {
			return apperrors.AlreadyExists("role", "name", role.Name)
		}
		return fmt.Errorf("insert role: %w", err)
	}
	return nil
}

// GetByID retrieves a role by id.
func (r *RoleRepository) GetByID(ctx context.Context, id string) (*domain.Role, error) {
	return r.getBy(ctx, "id", id)
}

// GetByName retrieves a role by its unique name.
func (r *RoleRepository) GetByName(ctx context.Context, name string) (*domain.Role, error) {
	return r.getBy(ctx, "name", name)
}

// List returns every role ordered by name.
func (r *RoleRepository) List(ctx context.Context) ([]domain.Role, error) {
	rows, err := r.pool.Query(ctx, fmt.Sprintf(`SELECT %s FROM roles ORDER BY name`, roleColumns))
	if err != nil {
		return nil, fmt.Errorf("list roles: %w", err)
	}
	defer rows.Close()

	roles := []domain.Role{}
	for rows.Next() {
		var role domain.Role
		if err := rows.Scan(&role.ID, &role.Name, &role.Description, &role.CreatedAt, &role.UpdatedAt); err != nil {
			return nil, fmt.Errorf("scan role row: %w", err)
		}
		roles = append(roles, role)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate role rows: %w", err)
	}
	return roles, nil
}

// Update overwrites the role's name and description.
func (r *RoleRepository) Update(ctx context.Context, role *domain.Role) error {
	role.UpdatedAt = time.Now().UTC()

	ct, err := r.pool.Exec(ctx,
		`UPDATE roles SET name = $1, description = $2, updated_at = $3 WHERE id = $4`,
		role.Name, role.Description, role.UpdatedAt, role.ID,
	)
	if err != nil {
		if database.IsUniqueViolation(err) {
			return apperrors.AlreadyExists("role", "name", role.Name)
		}
		return fmt.Errorf("update role: %w", err)
	}
	if ct.RowsAffected() == 0 {
		return apperrors.NotFoundOf(domain.ErrRoleNotFound, "role", "id", role.ID)
	}
	return nil
}

// Delete removes a role; assignments cascade.
func (r *RoleRepository) Delete(ctx context.Context, id string) error {
	ct, err := r.pool.Exec(ctx, `DELETE FROM roles WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("delete role: %w", err)
	}
	if ct.RowsAffected() == 0 {
		return apperrors.NotFoundOf(domain.ErrRoleNotFound, "role", "id", id)
	}
	return nil
}

func (r *RoleRepository) getBy(ctx context.Context, field, value string) (*domain.Role, error) {
	query := fmt.Sprintf(`SELECT %s FROM roles WHERE %s = $1`, roleColumns, field)

	var role domain.Role
	err := r.pool.QueryRow(ctx, query, value).Scan(&role.ID, &role.Name, &role.Description, &role.CreatedAt, &role.UpdatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, apperrors.NotFoundOf(domain.ErrRoleNotFound, "role", field, value)
		}
		return nil, fmt.Errorf("scan role: %w", err)
	}
	return &role, nil
}
