package postgres

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/shopspring/decimal"

	"github.com/utafrali/backoffice/internal/domain"
	"github.com/utafrali/backoffice/internal/repository"
	"github.com/utafrali/backoffice/pkg/database"
	apperrors "github.com/utafrali/backoffice/pkg/errors"
	"github.com/utafrali/backoffice/pkg/pagination"
)

// productColumns is the standard SELECT column list for products.
const productColumns = `id, name, price, inventory, production_date, expiry_date,
	is_available, created_at, updated_at`

// ProductRepository implements product persistence using PostgreSQL.
type ProductRepository struct {
	pool database.DBTX
}

// NewProductRepository creates a new PostgreSQL-backed product repository.
func NewProductRepository(pool database.DBTX) *ProductRepository {
	return &ProductRepository{pool: pool}
}

// Create inserts a new product.
func (r *ProductRepository) Create(ctx context.Context, p *domain.Product) error {
	query := `
		INSERT INTO products (id, name, price, inventory, production_date, expiry_date,
			is_available, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)`

	_, err := r.pool.Exec(ctx, query,
		p.ID, p.Name, p.Price, p.Inventory, p.ProductionDate, p.ExpiryDate,
		p.IsAvailable, p.CreatedAt, p.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("insert product: %w", err)
	}
	return nil
}

// GetByID retrieves a product by id.
func (r *ProductRepository) GetByID(ctx context.Context, id string) (*domain.Product, error) {
	query := fmt.Sprintf(`SELECT %s FROM products WHERE id = $1`, productColumns)
	return r.scanOne(ctx, id, query)
}

// GetByIDForUpdate retrieves a product and locks its row.
func (r *ProductRepository) GetByIDForUpdate(ctx context.Context, id string) (*domain.Product, error) {
	query := fmt.Sprintf(`SELECT %s FROM products WHERE id = $1 FOR UPDATE`, productColumns)
	return r.scanOne(ctx, id, query)
}

// List returns products matching filter and the total match count.
func (r *ProductRepository) List(ctx context.Context, filter repository.ProductFilter) ([]domain.Product, int, error) {
	var (
		conditions []string
		args       []any
	)
	if filter.Name != nil && *filter.Name != "" {
		args = append(args, "%"+*filter.Name+"%")
		conditions = append(conditions, fmt.Sprintf("name ILIKE $%d", len(args)))
	}
	if filter.Available != nil {
		args = append(args, *filter.Available)
		conditions = append(conditions, fmt.Sprintf("is_available = $%d", len(args)))
	}

	where := ""
	if len(conditions) > 0 {
		where = "WHERE " + strings.Join(conditions, " AND ")
	}

	page := pagination.Params{Page: filter.Page, PerPage: filter.PerPage}
	args = append(args, page.Limit(), page.Offset())
	query := fmt.Sprintf(`
		SELECT %s, count(*) OVER() AS total_count
		FROM products
		%s
		ORDER BY name, id
		LIMIT $%d OFFSET $%d`, productColumns, where, len(args)-1, len(args))

	rows, err := r.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, 0, fmt.Errorf("list products: %w", err)
	}
	defer rows.Close()

	products := []domain.Product{}
	total := 0
	for rows.Next() {
		var p domain.Product
		if err := rows.Scan(append(productDest(&p), &total)...); err != nil {
			return nil, 0, fmt.Errorf("scan product row: %w", err)
		}
		products = append(products, p)
	}
	if err := rows.Err(); err != nil {
		return nil, 0, fmt.Errorf("iterate product rows: %w", err)
	}
	return products, total, nil
}

// Update overwrites every mutable product field.
func (r *ProductRepository) Update(ctx context.Context, p *domain.Product) error {
	p.UpdatedAt = time.Now().UTC()

	query := `
		UPDATE products
		SET name = $1, price = $2, inventory = $3, production_date = $4,
		    expiry_date = $5, is_available = $6, updated_at = $7
		WHERE id = $8`

	ct, err := r.pool.Exec(ctx, query,
		p.Name, p.Price, p.Inventory, p.ProductionDate,
		p.ExpiryDate, p.IsAvailable, p.UpdatedAt, p.ID,
	)
	if err != nil {
		return fmt.Errorf("update product: %w", err)
	}
	if ct.RowsAffected() == 0 {
		return apperrors.NotFoundOf(domain.ErrProductNotFound, "product", "id", p.ID)
	}
	return nil
}

// Delete removes a product. Invoice lines reference products with ON DELETE
// RESTRICT; manufacturer links cascade.
func (r *ProductRepository) Delete(ctx context.Context, id string) error {
	ct, err := r.pool.Exec(ctx, `DELETE FROM products WHERE id = $1`, id)
	if err != nil {
		if database.IsForeignKeyViolation(err) {
			return apperrors.Guard(domain.ErrProductInUse, "product is referenced by an invoice")
		}
		return fmt.Errorf("delete product: %w", err)
	}
	if ct.RowsAffected() == 0 {
		return apperrors.NotFoundOf(domain.ErrProductNotFound, "product", "id", id)
	}
	return nil
}

// DebitInventory subtracts qty from the product's inventory in one guarded
// statement.
func (r *ProductRepository) DebitInventory(ctx context.Context, id string, qty decimal.Decimal) error {
	query := `
		UPDATE products
		SET inventory = inventory - $1, updated_at = $2
		WHERE id = $3 AND inventory >= $1`

	ct, err := r.pool.Exec(ctx, query, qty, time.Now().UTC(), id)
	if err != nil {
		return fmt.Errorf("debit product inventory: %w", err)
	}
	if ct.RowsAffected() == 0 {
		return apperrors.Guard(domain.ErrInsufficientInventory,
			fmt.Sprintf("product %s does not have %s in stock", id, qty.String()))
	}
	return nil
}

func (r *ProductRepository) scanOne(ctx context.Context, id, query string) (*domain.Product, error) {
	var p domain.Product
	if err := r.pool.QueryRow(ctx, query, id).Scan(productDest(&p)...); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, apperrors.NotFoundOf(domain.ErrProductNotFound, "product", "id", id)
		}
		return nil, fmt.Errorf("scan product: %w", err)
	}
	return &p, nil
}

func productDest(p *domain.Product) []any {
	return []any{
		&p.ID, &p.Name, &p.Price, &p.Inventory, &p.ProductionDate, &p.ExpiryDate,
		&p.IsAvailable, &p.CreatedAt, &p.UpdatedAt,
	}
}
