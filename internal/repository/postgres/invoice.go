package postgres

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/jackc/pgx/v5"

	"github.com/utafrali/backoffice/internal/domain"
	"github.com/utafrali/backoffice/internal/repository"
	"github.com/utafrali/backoffice/pkg/database"
	apperrors "github.com/utafrali/backoffice/pkg/errors"
	"github.com/utafrali/backoffice/pkg/pagination"
)

// invoiceColumns is the standard SELECT column list for invoices.
const invoiceColumns = `id, owner_first_name, owner_last_name, identification_code,
	issuer_name, issue_date, payment_date, total_price, payment_status, created_at, updated_at`

// InvoiceRepository implements invoice and line item persistence using PostgreSQL.
type InvoiceRepository struct {
	pool database.DBTX
}

// NewInvoiceRepository creates a new PostgreSQL-backed invoice repository.
func NewInvoiceRepository(pool database.DBTX) *InvoiceRepository {
	return &InvoiceRepository{pool: pool}
}

// Create inserts a new invoice header.
func (r *InvoiceRepository) Create(ctx context.Context, inv *domain.Invoice) error {
	query := `
		INSERT INTO invoices (id, owner_first_name, owner_last_name, identification_code,
			issuer_name, issue_date, payment_date, total_price, payment_status, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)`

	_, err := r.pool.Exec(ctx, query,
		inv.ID, inv.OwnerFirstName, inv.OwnerLastName, inv.IdentificationCode,
		inv.IssuerName, inv.IssueDate, inv.PaymentDate, inv.TotalPrice, inv.PaymentStatus,
		inv.CreatedAt, inv.UpdatedAt,
	)
	if err != nil {
		if database.IsUniqueViolation(err) {
			return apperrors.AlreadyExists("invoice", "identification_code", inv.IdentificationCode)
		}
		return fmt.Errorf("insert invoice: %w", err)
	}
	return nil
}

// GetByID retrieves an invoice header by id.
func (r *InvoiceRepository) GetByID(ctx context.Context, id string) (*domain.Invoice, error) {
	query := fmt.Sprintf(`SELECT %s FROM invoices WHERE id = $1`, invoiceColumns)
	return r.scanOne(ctx, "id", id, query)
}

// GetByIDForUpdate retrieves an invoice header and locks its row.
func (r *InvoiceRepository) GetByIDForUpdate(ctx context.Context, id string) (*domain.Invoice, error) {
	query := fmt.Sprintf(`SELECT %s FROM invoices WHERE id = $1 FOR UPDATE`, invoiceColumns)
	return r.scanOne(ctx, "id", id, query)
}

// GetByIdentificationCode retrieves an invoice header by its unique code.
func (r *InvoiceRepository) GetByIdentificationCode(ctx context.Context, code string) (*domain.Invoice, error) {
	query := fmt.Sprintf(`SELECT %s FROM invoices WHERE identification_code = $1`, invoiceColumns)
	return r.scanOne(ctx, "identification_code", code, query)
}

// List returns invoice headers matching filter and the total match count.
func (r *InvoiceRepository) List(ctx context.Context, filter repository.InvoiceFilter) ([]domain.Invoice, int, error) {
	var (
		conditions []string
		args       []any
	)
	addLike := func(column string, v *string) {
		if v != nil && *v != "" {
			args = append(args, "%"+*v+"%")
			conditions = append(conditions, fmt.Sprintf("%s ILIKE $%d", column, len(args)))
		}
	}
	addEq := func(column string, v any) {
		args = append(args, v)
		conditions = append(conditions, fmt.Sprintf("%s = $%d", column, len(args)))
	}

	addLike("owner_first_name", filter.OwnerFirstName)
	addLike("owner_last_name", filter.OwnerLastName)
	addLike("issuer_name", filter.IssuerName)
	if filter.Status != nil {
		addEq("payment_status", *filter.Status)
	}
	if filter.IssueDate != nil {
		addEq("issue_date", *filter.IssueDate)
	}
	if filter.PaymentDate != nil {
		addEq("payment_date", *filter.PaymentDate)
	}

	where := ""
	if len(conditions) > 0 {
		where = "WHERE " + strings.Join(conditions, " AND ")
	}

	page := pagination.Params{Page: filter.Page, PerPage: filter.PerPage}
	args = append(args, page.Limit(), page.Offset())
	query := fmt.Sprintf(`
		SELECT %s, count(*) OVER() AS total_count
		FROM invoices
		%s
		ORDER BY issue_date DESC, identification_code
		LIMIT $%d OFFSET $%d`, invoiceColumns, where, len(args)-1, len(args))

	rows, err := r.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, 0, fmt.Errorf("list invoices: %w", err)
	}
	defer rows.Close()

	invoices := []domain.Invoice{}
	total := 0
	for rows.Next() {
		var inv domain.Invoice
		if err := rows.Scan(append(invoiceDest(&inv), &total)...); err != nil {
			return nil, 0, fmt.Errorf("scan invoice row: %w", err)
		}
		invoices = append(invoices, inv)
	}
	if err := rows.Err(); err != nil {
		return nil, 0, fmt.Errorf("iterate invoice rows: %w", err)
	}
	return invoices, total, nil
}

// Update overwrites the invoice header, including status, total and payment date.
func (r *InvoiceRepository) Update(ctx context.Context, inv *domain.Invoice) error {
	inv.UpdatedAt = time.Now().UTC()

	query := `
		UPDATE invoices
		SET owner_first_name = $1, owner_last_name = $2, issuer_name = $3, issue_date = $4,
		    payment_date = $5, total_price = $6, payment_status = $7, updated_at = $8
		WHERE id = $9`

	ct, err := r.pool.Exec(ctx, query,
		inv.OwnerFirstName, inv.OwnerLastName, inv.IssuerName, inv.IssueDate,
		inv.PaymentDate, inv.TotalPrice, inv.PaymentStatus, inv.UpdatedAt, inv.ID,
	)
	if err != nil {
		return fmt.Errorf("update invoice: %w", err)
	}
	if ct.RowsAffected() == 0 {
		return apperrors.NotFoundOf(domain.ErrInvoiceNotFound, "invoice", "id", inv.ID)
	}
	return nil
}

// Delete removes an invoice; its line items cascade.
func (r *InvoiceRepository) Delete(ctx context.Context, id string) error {
	ct, err := r.pool.Exec(ctx, `DELETE FROM invoices WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("delete invoice: %w", err)
	}
	if ct.RowsAffected() == 0 {
		return apperrors.NotFoundOf(domain.ErrInvoiceNotFound, "invoice", "id", id)
	}
	return nil
}

// ListLineItems returns the invoice's lines joined with the current product
// name and price.
func (r *InvoiceRepository) ListLineItems(ctx context.Context, invoiceID string) ([]domain.LineItem, error) {
	query := `
		SELECT li.invoice_id, li.product_id, p.name, li.count, p.price
		FROM invoice_line_items li
		JOIN products p ON p.id = li.product_id
		WHERE li.invoice_id = $1
		ORDER BY li.created_at, li.product_id`

	rows, err := r.pool.Query(ctx, query, invoiceID)
	if err != nil {
		return nil, fmt.Errorf("list invoice line items: %w", err)
	}
	defer rows.Close()

	items := []domain.LineItem{}
	for rows.Next() {
		var li domain.LineItem
		if err := rows.Scan(&li.InvoiceID, &li.ProductID, &li.ProductName, &li.Count, &li.UnitPrice); err != nil {
			return nil, fmt.Errorf("scan line item row: %w", err)
		}
		items = append(items, li)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate line item rows: %w", err)
	}
	return items, nil
}

// HasLineItem reports whether the product is already on the invoice.
func (r *InvoiceRepository) HasLineItem(ctx context.Context, invoiceID, productID string) (bool, error) {
	var exists bool
	err := r.pool.QueryRow(ctx,
		`SELECT EXISTS (SELECT 1 FROM invoice_line_items WHERE invoice_id = $1 AND product_id = $2)`,
		invoiceID, productID,
	).Scan(&exists)
	if err != nil {
		return false, fmt.Errorf("check invoice line item: %w", err)
	}
	return exists, nil
}

// AddLineItem inserts a line.
func (r *InvoiceRepository) AddLineItem(ctx context.Context, item *domain.LineItem) error {
	_, err := r.pool.Exec(ctx,
		`INSERT INTO invoice_line_items (invoice_id, product_id, count, created_at) VALUES ($1, $2, $3, $4)`,
		item.InvoiceID, item.ProductID, item.Count, time.Now().UTC(),
	)
	if err != nil {
		if database.IsUniqueViolation(err) {
			return apperrors.DuplicateAssociation("product "+item.ProductID, "invoice "+item.InvoiceID)
		}
		return fmt.Errorf("insert invoice line item: %w", err)
	}
	return nil
}

// RemoveLineItem deletes a line and reports whether it existed.
func (r *InvoiceRepository) RemoveLineItem(ctx context.Context, invoiceID, productID string) (bool, error) {
	ct, err := r.pool.Exec(ctx,
		`DELETE FROM invoice_line_items WHERE invoice_id = $1 AND product_id = $2`,
		invoiceID, productID,
	)
	if err != nil {
		return false, fmt.Errorf("delete invoice line item: %w", err)
	}
	return ct.RowsAffected() > 0, nil
}

func (r *InvoiceRepository) scanOne(ctx context.Context, field, value, query string) (*domain.Invoice, error) {
	var inv domain.Invoice
	if err := r.pool.QueryRow(ctx, query, value).Scan(invoiceDest(&inv)...); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, apperrors.NotFoundOf(domain.ErrInvoiceNotFound, "invoice", field, value)
		}
		return nil, fmt.Errorf("scan invoice: %w", err)
	}
	return &inv, nil
}

func invoiceDest(inv *domain.Invoice) []any {
	return []any{
		&inv.ID, &inv.OwnerFirstName, &inv.OwnerLastName, &inv.IdentificationCode,
		&inv.IssuerName, &inv.IssueDate, &inv.PaymentDate, &inv.TotalPrice, &inv.PaymentStatus,
		&inv.CreatedAt, &inv.UpdatedAt,
	}
}
