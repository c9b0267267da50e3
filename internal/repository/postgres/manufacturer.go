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

// manufacturerColumns is the standard SELECT column list for manufacturers.
const manufacturerColumns = `id, name, owner_name, country, email, address, phone,
	rate, establish_date, is_active, user_id, created_at, updated_at`

// ManufacturerRepository implements manufacturer persistence using PostgreSQL.
type ManufacturerRepository struct {
	pool database.DBTX
}

// NewManufacturerRepository creates a new PostgreSQL-backed manufacturer repository.
func NewManufacturerRepository(pool database.DBTX) *ManufacturerRepository {
	return &ManufacturerRepository{pool: pool}
}

// Create inserts a new manufacturer.
func (r *ManufacturerRepository) Create(ctx context.Context, m *domain.Manufacturer) error {
	query := `
		INSERT INTO manufacturers (id, name, owner_name, country, email, address, phone,
			rate, establish_date, is_active, user_id, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13)`

	_, err := r.pool.Exec(ctx, query,
		m.ID, m.Name, m.OwnerName, m.Country, m.Email, m.Address, m.Phone,
		m.Rate, m.EstablishDate, m.IsActive, m.UserID, m.CreatedAt, m.UpdatedAt,
	)
	if err != nil {
		if database.IsUniqueViolation(err) {
			return manufacturerConflict(err, m)
		}
		return fmt.Errorf("insert manufacturer: %w", err)
	}
	return nil
}

// GetByID retrieves a manufacturer by id.
func (r *ManufacturerRepository) GetByID(ctx context.Context, id string) (*domain.Manufacturer, error) {
	return r.getBy(ctx, "id", id)
}

// GetByEmail retrieves a manufacturer by email.
func (r *ManufacturerRepository) GetByEmail(ctx context.Context, email string) (*domain.Manufacturer, error) {
	return r.getBy(ctx, "email", email)
}

// GetByAddress retrieves a manufacturer by address.
func (r *ManufacturerRepository) GetByAddress(ctx context.Context, address string) (*domain.Manufacturer, error) {
	return r.getBy(ctx, "address", address)
}

// GetByPhone retrieves a manufacturer by phone.
func (r *ManufacturerRepository) GetByPhone(ctx context.Context, phone string) (*domain.Manufacturer, error) {
	return r.getBy(ctx, "phone", phone)
}

// List returns one page of manufacturers and the total count.
func (r *ManufacturerRepository) List(ctx context.Context, page, perPage int) ([]domain.Manufacturer, int, error) {
	p := pagination.Params{Page: page, PerPage: perPage}
	query := fmt.Sprintf(`
		SELECT %s, count(*) OVER() AS total_count
		FROM manufacturers
		ORDER BY name, id
		LIMIT $1 OFFSET $2`, manufacturerColumns)

	rows, err := r.pool.Query(ctx, query, p.Limit(), p.Offset())
	if err != nil {
		return nil, 0, fmt.Errorf("list manufacturers: %w", err)
	}
	defer rows.Close()

	manufacturers := []domain.Manufacturer{}
	total := 0
	for rows.Next() {
		var m domain.Manufacturer
		if err := rows.Scan(append(manufacturerDest(&m), &total)...); err != nil {
			return nil, 0, fmt.Errorf("scan manufacturer row: %w", err)
		}
		manufacturers = append(manufacturers, m)
	}
	if err := rows.Err(); err != nil {
		return nil, 0, fmt.Errorf("iterate manufacturer rows: %w", err)
	}
	return manufacturers, total, nil
}

// Update overwrites every mutable manufacturer field.
func (r *ManufacturerRepository) Update(ctx context.Context, m *domain.Manufacturer) error {
	m.UpdatedAt = time.Now().UTC()

	query := `
		UPDATE manufacturers
		SET name = $1, owner_name = $2, country = $3, email = $4, address = $5,
		    phone = $6, rate = $7, establish_date = $8, is_active = $9, updated_at = $10
		WHERE id = $11`

	ct, err := r.pool.Exec(ctx, query,
		m.Name, m.OwnerName, m.Country, m.Email, m.Address,
		m.Phone, m.Rate, m.EstablishDate, m.IsActive, m.UpdatedAt, m.ID,
	)
	if err != nil {
		if database.IsUniqueViolation(err) {
			return manufacturerConflict(err, m)
		}
		return fmt.Errorf("update manufacturer: %w", err)
	}
	if ct.RowsAffected() == 0 {
		return apperrors.NotFoundOf(domain.ErrManufacturerNotFound, "manufacturer", "id", m.ID)
	}
	return nil
}

// Delete removes a manufacturer. Product links are ON DELETE RESTRICT.
func (r *ManufacturerRepository) Delete(ctx context.Context, id string) error {
	ct, err := r.pool.Exec(ctx, `DELETE FROM manufacturers WHERE id = $1`, id)
	if err != nil {
		if database.IsForeignKeyViolation(err) {
			return apperrors.Guard(domain.ErrManufacturerHasProducts, "cannot delete a manufacturer that still has products")
		}
		return fmt.Errorf("delete manufacturer: %w", err)
	}
	if ct.RowsAffected() == 0 {
		return apperrors.NotFoundOf(domain.ErrManufacturerNotFound, "manufacturer", "id", id)
	}
	return nil
}

// CountProducts counts the products linked to a manufacturer.
func (r *ManufacturerRepository) CountProducts(ctx context.Context, manufacturerID string) (int, error) {
	var n int
	err := r.pool.QueryRow(ctx,
		`SELECT count(*) FROM product_manufacturers WHERE manufacturer_id = $1`, manufacturerID,
	).Scan(&n)
	if err != nil {
		return 0, fmt.Errorf("count manufacturer products: %w", err)
	}
	return n, nil
}

// HasProduct reports whether the product is linked to the manufacturer.
func (r *ManufacturerRepository) HasProduct(ctx context.Context, manufacturerID, productID string) (bool, error) {
	var exists bool
	err := r.pool.QueryRow(ctx,
		`SELECT EXISTS (SELECT 1 FROM product_manufacturers WHERE manufacturer_id = $1 AND product_id = $2)`,
		manufacturerID, productID,
	).Scan(&exists)
	if err != nil {
		return false, fmt.Errorf("check manufacturer product: %w", err)
	}
	return exists, nil
}

// AddProduct links a product to a manufacturer.
func (r *ManufacturerRepository) AddProduct(ctx context.Context, manufacturerID, productID string) error {
	_, err := r.pool.Exec(ctx,
		`INSERT INTO product_manufacturers (manufacturer_id, product_id, created_at) VALUES ($1, $2, $3)`,
		manufacturerID, productID, time.Now().UTC(),
	)
	if err != nil {
		if database.IsUniqueViolation(err) {
			return apperrors.DuplicateAssociation("product "+productID, "manufacturer "+manufacturerID)
		}
		if database.IsForeignKeyViolation(err) {
			return apperrors.NotFoundOf(domain.ErrProductNotFound, "product", "id", productID)
		}
		return fmt.Errorf("link manufacturer product: %w", err)
	}
	return nil
}

// RemoveProduct unlinks a product and reports whether a link existed.
func (r *ManufacturerRepository) RemoveProduct(ctx context.Context, manufacturerID, productID string) (bool, error) {
	ct, err := r.pool.Exec(ctx,
		`DELETE FROM product_manufacturers WHERE manufacturer_id = $1 AND product_id = $2`,
		manufacturerID, productID,
	)
	if err != nil {
		return false, fmt.Errorf("unlink manufacturer product: %w", err)
	}
	return ct.RowsAffected() > 0, nil
}

// ListProducts returns the products linked to a manufacturer.
func (r *ManufacturerRepository) ListProducts(ctx context.Context, manufacturerID string) ([]domain.Product, error) {
	query := fmt.Sprintf(`
		SELECT %s
		FROM products p
		JOIN product_manufacturers pm ON pm.product_id = p.id
		WHERE pm.manufacturer_id = $1
		ORDER BY p.name, p.id`, prefixed("p", productColumns))

	rows, err := r.pool.Query(ctx, query, manufacturerID)
	if err != nil {
		return nil, fmt.Errorf("list manufacturer products: %w", err)
	}
	defer rows.Close()

	products := []domain.Product{}
	for rows.Next() {
		var p domain.Product
		if err := rows.Scan(productDest(&p)...); err != nil {
			return nil, fmt.Errorf("scan product row: %w", err)
		}
		products = append(products, p)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate product rows: %w", err)
	}
	return products, nil
}

// ListByProduct returns the manufacturers linked to a product.
func (r *ManufacturerRepository) ListByProduct(ctx context.Context, productID string) ([]domain.Manufacturer, error) {
	query := fmt.Sprintf(`
		SELECT %s
		FROM manufacturers m
		JOIN product_manufacturers pm ON pm.manufacturer_id = m.id
		WHERE pm.product_id = $1
		ORDER BY m.name, m.id`, prefixed("m", manufacturerColumns))

	rows, err := r.pool.Query(ctx, query, productID)
	if err != nil {
		return nil, fmt.Errorf("list product manufacturers: %w", err)
	}
	defer rows.Close()

	manufacturers := []domain.Manufacturer{}
	for rows.Next() {
		var m domain.Manufacturer
		if err := rows.Scan(manufacturerDest(&m)...); err != nil {
			return nil, fmt.Errorf("scan manufacturer row: %w", err)
		}
		manufacturers = append(manufacturers, m)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate manufacturer rows: %w", err)
	}
	return manufacturers, nil
}

func (r *ManufacturerRepository) getBy(ctx context.Context, field, value string) (*domain.Manufacturer, error) {
	// field is one of a fixed set of column names chosen above.
	query := fmt.Sprintf(`SELECT %s FROM manufacturers WHERE %s = $1`, manufacturerColumns, field)

	var m domain.Manufacturer
	if err := r.pool.QueryRow(ctx, query, value).Scan(manufacturerDest(&m)...); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, apperrors.NotFoundOf(domain.ErrManufacturerNotFound, "manufacturer", field, value)
		}
		return nil, fmt.Errorf("scan manufacturer: %w", err)
	}
	return &m, nil
}

func manufacturerDest(m *domain.Manufacturer) []any {
	return []any{
		&m.ID, &m.Name, &m.OwnerName, &m.Country, &m.Email, &m.Address, &m.Phone,
		&m.Rate, &m.EstablishDate, &m.IsActive, &m.UserID, &m.CreatedAt, &m.UpdatedAt,
	}
}

// manufacturerConflict names the unique field a write collided on.
func manufacturerConflict(err error, m *domain.Manufacturer) error {
	switch constraint := database.ConstraintName(err); {
	case strings.Contains(constraint, "address"):
		return apperrors.AlreadyExists("manufacturer", "address", m.Address)
	case strings.Contains(constraint, "phone"):
		return apperrors.AlreadyExists("manufacturer", "phone", m.Phone)
	default:
		return apperrors.AlreadyExists("manufacturer", "email", m.Email)
	}
}

// prefixed qualifies every column in a column list with alias.
func prefixed(alias, columns string) string {
	fields := strings.Split(columns, ",")
	for i, f := range fields {
		fields[i] = alias + "." + strings.TrimSpace(f)
	}
	return strings.Join(fields, ", ")
}
