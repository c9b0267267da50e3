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

// categoryColumns is the standard SELECT column list for categories.
const categoryColumns = `id, name, kind, parent_id, created_at, updated_at`

// CategoryRepository implements category persistence using PostgreSQL.
type CategoryRepository struct {
	pool database.DBTX
}

// NewCategoryRepository creates a new PostgreSQL-backed category repository.
func NewCategoryRepository(pool database.DBTX) *CategoryRepository {
	return &CategoryRepository{pool: pool}
}

// Create inserts a new category.
func (r *CategoryRepository) Create(ctx context.Context, c *domain.Category) error {
	query := `
		INSERT INTO categories (id, name, kind, parent_id, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6)`

	_, err := r.pool.Exec(ctx, query,
		c.ID, c.Name, c.Kind, c.ParentID, c.CreatedAt, c.UpdatedAt,
	)
	if err != nil {
		if database.IsUniqueViolation(err) {
			return apperrors.AlreadyExists("category", "name", c.Name)
		}
		if database.IsForeignKeyViolation(err) {
			return apperrors.NotFoundOf(domain.ErrParentCategoryNotFound, "parent category", "id", deref(c.ParentID))
		}
		return fmt.Errorf("insert category: %w", err)
	}
	return nil
}

// GetByID retrieves a category by id.
func (r *CategoryRepository) GetByID(ctx context.Context, id string) (*domain.Category, error) {
	query := fmt.Sprintf(`SELECT %s FROM categories WHERE id = $1`, categoryColumns)
	return r.scanOne(ctx, "id", id, query, id)
}

// GetByName retrieves a category by its unique name.
func (r *CategoryRepository) GetByName(ctx context.Context, name string) (*domain.Category, error) {
	query := fmt.Sprintf(`SELECT %s FROM categories WHERE name = $1`, categoryColumns)
	return r.scanOne(ctx, "name", name, query, name)
}

// ListAll returns every category ordered by name.
func (r *CategoryRepository) ListAll(ctx context.Context) ([]domain.Category, error) {
	query := fmt.Sprintf(`SELECT %s FROM categories ORDER BY name`, categoryColumns)
	return r.list(ctx, query)
}

// ListChildren returns the direct children of parentID ordered by name.
func (r *CategoryRepository) ListChildren(ctx context.Context, parentID string) ([]domain.Category, error) {
	query := fmt.Sprintf(`SELECT %s FROM categories WHERE parent_id = $1 ORDER BY name`, categoryColumns)
	return r.list(ctx, query, parentID)
}

// CountChildren counts the direct children of parentID.
func (r *CategoryRepository) CountChildren(ctx context.Context, parentID string) (int, error) {
	var n int
	err := r.pool.QueryRow(ctx, `SELECT count(*) FROM categories WHERE parent_id = $1`, parentID).Scan(&n)
	if err != nil {
		return 0, fmt.Errorf("count child categories: %w", err)
	}
	return n, nil
}

// Update overwrites name, kind and parent of an existing category.
func (r *CategoryRepository) Update(ctx context.Context, c *domain.Category) error {
	c.UpdatedAt = time.Now().UTC()

	query := `
		UPDATE categories
		SET name = $1, kind = $2, parent_id = $3, updated_at = $4
		WHERE id = $5`

	ct, err := r.pool.Exec(ctx, query, c.Name, c.Kind, c.ParentID, c.UpdatedAt, c.ID)
	if err != nil {
		if database.IsUniqueViolation(err) {
			return apperrors.AlreadyExists("category", "name", c.Name)
		}
		if database.IsForeignKeyViolation(err) {
			return apperrors.NotFoundOf(domain.ErrParentCategoryNotFound, "parent category", "id", deref(c.ParentID))
		}
		return fmt.Errorf("update category: %w", err)
	}
	if ct.RowsAffected() == 0 {
		return apperrors.NotFoundOf(domain.ErrCategoryNotFound, "category", "id", c.ID)
	}
	return nil
}

// Delete removes a category. The parent key is ON DELETE RESTRICT, so a
// category that still has children is refused by the database as well.
func (r *CategoryRepository) Delete(ctx context.Context, id string) error {
	ct, err := r.pool.Exec(ctx, `DELETE FROM categories WHERE id = $1`, id)
	if err != nil {
		if database.IsForeignKeyViolation(err) {
			return apperrors.Guard(domain.ErrCategoryHasChildren, "cannot delete category before its children")
		}
		return fmt.Errorf("delete category: %w", err)
	}
	if ct.RowsAffected() == 0 {
		return apperrors.NotFoundOf(domain.ErrCategoryNotFound, "category", "id", id)
	}
	return nil
}

func (r *CategoryRepository) list(ctx context.Context, query string, args ...any) ([]domain.Category, error) {
	rows, err := r.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("list categories: %w", err)
	}
	defer rows.Close()

	categories := []domain.Category{}
	for rows.Next() {
		var c domain.Category
		if err := scanCategory(rows, &c); err != nil {
			return nil, fmt.Errorf("scan category row: %w", err)
		}
		categories = append(categories, c)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate category rows: %w", err)
	}
	return categories, nil
}

func (r *CategoryRepository) scanOne(ctx context.Context, field, value, query string, args ...any) (*domain.Category, error) {
	var c domain.Category
	if err := scanCategory(r.pool.QueryRow(ctx, query, args...), &c); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, apperrors.NotFoundOf(domain.ErrCategoryNotFound, "category", field, value)
		}
		return nil, fmt.Errorf("scan category: %w", err)
	}
	return &c, nil
}

func scanCategory(row pgx.Row, c *domain.Category) error {
	return row.Scan(&c.ID, &c.Name, &c.Kind, &c.ParentID, &c.CreatedAt, &c.UpdatedAt)
}

func deref(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}
