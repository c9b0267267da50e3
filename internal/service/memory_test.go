package service

import (
	"context"
	"slices"
	"strings"

	"github.com/shopspring/decimal"

	"github.com/utafrali/backoffice/internal/domain"
	"github.com/utafrali/backoffice/internal/repository"
	apperrors "github.com/utafrali/backoffice/pkg/errors"
)

// In-memory repositories for scenario tests that span many calls. They
// return the same error kinds as the Postgres repositories.

type memCategories struct {
	rows map[string]domain.Category
}

func newMemCategories() *memCategories {
	return &memCategories{rows: map[string]domain.Category{}}
}

func (m *memCategories) Create(_ context.Context, c *domain.Category) error {
	for _, row := range m.rows {
		if row.Name == c.Name {
			return apperrors.AlreadyExists("category", "name", c.Name)
		}
	}
	if c.ParentID != nil {
		if _, ok := m.rows[*c.ParentID]; !ok {
			return apperrors.NotFoundOf(domain.ErrParentCategoryNotFound, "parent category", "id", *c.ParentID)
		}
	}
	m.rows[c.ID] = *c
	return nil
}

func (m *memCategories) GetByID(_ context.Context, id string) (*domain.Category, error) {
	c, ok := m.rows[id]
	if !ok {
		return nil, apperrors.NotFoundOf(domain.ErrCategoryNotFound, "category", "id", id)
	}
	return &c, nil
}

func (m *memCategories) GetByName(_ context.Context, name string) (*domain.Category, error) {
	for _, c := range m.rows {
		if c.Name == name {
			return &c, nil
		}
	}
	return nil, apperrors.NotFoundOf(domain.ErrCategoryNotFound, "category", "name", name)
}

func (m *memCategories) sorted(keep func(domain.Category) bool) []domain.Category {
	out := []domain.Category{}
	for _, c := range m.rows {
		if keep(c) {
			out = append(out, c)
		}
	}
	slices.SortFunc(out, func(a, b domain.Category) int { return strings.Compare(a.Name, b.Name) })
	return out
}

func (m *memCategories) ListAll(_ context.Context) ([]domain.Category, error) {
	return m.sorted(func(domain.Category) bool { return true }), nil
}

func (m *memCategories) ListChildren(_ context.Context, parentID string) ([]domain.Category, error) {
	return m.sorted(func(c domain.Category) bool { return c.ParentID != nil && *c.ParentID == parentID }), nil
}

func (m *memCategories) CountChildren(ctx context.Context, parentID string) (int, error) {
	children, _ := m.ListChildren(ctx, parentID)
	return len(children), nil
}

func (m *memCategories) Update(_ context.Context, c *domain.Category) error {
	if _, ok := m.rows[c.ID]; !ok {
		return apperrors.NotFoundOf(domain.ErrCategoryNotFound, "category", "id", c.ID)
	}
	m.rows[c.ID] = *c
	return nil
}

func (m *memCategories) Delete(ctx context.Context, id string) error {
	if _, ok := m.rows[id]; !ok {
		return apperrors.NotFoundOf(domain.ErrCategoryNotFound, "category", "id", id)
	}
	if n, _ := m.CountChildren(ctx, id); n > 0 {
		return apperrors.Guard(domain.ErrCategoryHasChildren, "cannot delete category before its children")
	}
	delete(m.rows, id)
	return nil
}

type memProducts struct {
	rows map[string]domain.Product
}

func newMemProducts(products ...domain.Product) *memProducts {
	m := &memProducts{rows: map[string]domain.Product{}}
	for _, p := range products {
		m.rows[p.ID] = p
	}
	return m
}

func (m *memProducts) Create(_ context.Context, p *domain.Product) error {
	m.rows[p.ID] = *p
	return nil
}

func (m *memProducts) GetByID(_ context.Context, id string) (*domain.Product, error) {
	p, ok := m.rows[id]
	if !ok {
		return nil, apperrors.NotFoundOf(domain.ErrProductNotFound, "product", "id", id)
	}
	return &p, nil
}

func (m *memProducts) GetByIDForUpdate(ctx context.Context, id string) (*domain.Product, error) {
	return m.GetByID(ctx, id)
}

func (m *memProducts) List(_ context.Context, _ repository.ProductFilter) ([]domain.Product, int, error) {
	out := []domain.Product{}
	for _, p := range m.rows {
		out = append(out, p)
	}
	return out, len(out), nil
}

func (m *memProducts) Update(_ context.Context, p *domain.Product) error {
	if _, ok := m.rows[p.ID]; !ok {
		return apperrors.NotFoundOf(domain.ErrProductNotFound, "product", "id", p.ID)
	}
	m.rows[p.ID] = *p
	return nil
}

func (m *memProducts) Delete(_ context.Context, id string) error {
	delete(m.rows, id)
	return nil
}

func (m *memProducts) DebitInventory(_ context.Context, id string, qty decimal.Decimal) error {
	p, ok := m.rows[id]
	if !ok {
		return apperrors.NotFoundOf(domain.ErrProductNotFound, "product", "id", id)
	}
	if qty.GreaterThan(p.Inventory) {
		return apperrors.Guard(domain.ErrInsufficientInventory, "not enough inventory for product "+id)
	}
	p.Inventory = p.Inventory.Sub(qty)
	m.rows[id] = p
	return nil
}

type memInvoices struct {
	rows     map[string]domain.Invoice
	lines    map[string][]domain.LineItem
	products *memProducts
}

func newMemInvoices(products *memProducts) *memInvoices {
	return &memInvoices{
		rows:     map[string]domain.Invoice{},
		lines:    map[string][]domain.LineItem{},
		products: products,
	}
}

func (m *memInvoices) Create(_ context.Context, inv *domain.Invoice) error {
	for _, row := range m.rows {
		if row.IdentificationCode == inv.IdentificationCode {
			return apperrors.AlreadyExists("invoice", "identification_code", inv.IdentificationCode)
		}
	}
	row := *inv
	row.Items = nil
	m.rows[inv.ID] = row
	return nil
}

func (m *memInvoices) GetByID(_ context.Context, id string) (*domain.Invoice, error) {
	inv, ok := m.rows[id]
	if !ok {
		return nil, apperrors.NotFoundOf(domain.ErrInvoiceNotFound, "invoice", "id", id)
	}
	return &inv, nil
}

func (m *memInvoices) GetByIDForUpdate(ctx context.Context, id string) (*domain.Invoice, error) {
	return m.GetByID(ctx, id)
}

func (m *memInvoices) GetByIdentificationCode(_ context.Context, code string) (*domain.Invoice, error) {
	for _, inv := range m.rows {
		if inv.IdentificationCode == code {
			return &inv, nil
		}
	}
	return nil, apperrors.NotFoundOf(domain.ErrInvoiceNotFound, "invoice", "identification_code", code)
}

func (m *memInvoices) List(_ context.Context, _ repository.InvoiceFilter) ([]domain.Invoice, int, error) {
	out := []domain.Invoice{}
	for _, inv := range m.rows {
		out = append(out, inv)
	}
	return out, len(out), nil
}

func (m *memInvoices) Update(_ context.Context, inv *domain.Invoice) error {
	if _, ok := m.rows[inv.ID]; !ok {
		return apperrors.NotFoundOf(domain.ErrInvoiceNotFound, "invoice", "id", inv.ID)
	}
	row := *inv
	row.Items = nil
	m.rows[inv.ID] = row
	return nil
}

func (m *memInvoices) Delete(_ context.Context, id string) error {
	if _, ok := m.rows[id]; !ok {
		return apperrors.NotFoundOf(domain.ErrInvoiceNotFound, "invoice", "id", id)
	}
	delete(m.rows, id)
	delete(m.lines, id)
	return nil
}

func (m *memInvoices) ListLineItems(_ context.Context, invoiceID string) ([]domain.LineItem, error) {
	out := []domain.LineItem{}
	for _, li := range m.lines[invoiceID] {
		p := m.products.rows[li.ProductID]
		li.ProductName = p.Name
		li.UnitPrice = p.Price
		out = append(out, li)
	}
	return out, nil
}

func (m *memInvoices) HasLineItem(_ context.Context, invoiceID, productID string) (bool, error) {
	for _, li := range m.lines[invoiceID] {
		if li.ProductID == productID {
			return true, nil
		}
	}
	return false, nil
}

func (m *memInvoices) AddLineItem(ctx context.Context, item *domain.LineItem) error {
	if ok, _ := m.HasLineItem(ctx, item.InvoiceID, item.ProductID); ok {
		return apperrors.DuplicateAssociation("product "+item.ProductID, "invoice "+item.InvoiceID)
	}
	m.lines[item.InvoiceID] = append(m.lines[item.InvoiceID], *item)
	return nil
}

func (m *memInvoices) RemoveLineItem(_ context.Context, invoiceID, productID string) (bool, error) {
	lines := m.lines[invoiceID]
	for i, li := range lines {
		if li.ProductID == productID {
			m.lines[invoiceID] = slices.Delete(lines, i, i+1)
			return true, nil
		}
	}
	return false, nil
}
