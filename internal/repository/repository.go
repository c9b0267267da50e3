package repository

import (
	"context"
	"time"

	"github.com/shopspring/decimal"

	"github.com/utafrali/backoffice/internal/domain"
)

// CategoryRepository persists the category tree.
type CategoryRepository interface {
	Create(ctx context.Context, c *domain.Category) error
	GetByID(ctx context.Context, id string) (*domain.Category, error)
	GetByName(ctx context.Context, name string) (*domain.Category, error)
	// ListAll returns every category ordered by name.
	ListAll(ctx context.Context) ([]domain.Category, error)
	ListChildren(ctx context.Context, parentID string) ([]domain.Category, error)
	CountChildren(ctx context.Context, parentID string) (int, error)
	Update(ctx context.Context, c *domain.Category) error
	Delete(ctx context.Context, id string) error
}

// ProductFilter narrows product listings.
type ProductFilter struct {
	Name      *string
	Available *bool
	Page      int
	PerPage   int
}

// ProductRepository persists products.
type ProductRepository interface {
	Create(ctx context.Context, p *domain.Product) error
	GetByID(ctx context.Context, id string) (*domain.Product, error)
	// GetByIDForUpdate locks the row until the surrounding transaction ends.
	GetByIDForUpdate(ctx context.Context, id string) (*domain.Product, error)
	List(ctx context.Context, filter ProductFilter) ([]domain.Product, int, error)
	Update(ctx context.Context, p *domain.Product) error
	Delete(ctx context.Context, id string) error
	// DebitInventory subtracts qty from the product's inventory, failing with
	// domain.ErrInsufficientInventory rather than going below zero.
	DebitInventory(ctx context.Context, id string, qty decimal.Decimal) error
}

// ManufacturerRepository persists manufacturers and their product links.
type ManufacturerRepository interface {
	Create(ctx context.Context, m *domain.Manufacturer) error
	GetByID(ctx context.Context, id string) (*domain.Manufacturer, error)
	GetByEmail(ctx context.Context, email string) (*domain.Manufacturer, error)
	GetByAddress(ctx context.Context, address string) (*domain.Manufacturer, error)
	GetByPhone(ctx context.Context, phone string) (*domain.Manufacturer, error)
	List(ctx context.Context, page, perPage int) ([]domain.Manufacturer, int, error)
	Update(ctx context.Context, m *domain.Manufacturer) error
	Delete(ctx context.Context, id string) error

	CountProducts(ctx context.Context, manufacturerID string) (int, error)
	HasProduct(ctx context.Context, manufacturerID, productID string) (bool, error)
	AddProduct(ctx context.Context, manufacturerID, productID string) error
	// RemoveProduct reports whether a link was removed.
	RemoveProduct(ctx context.Context, manufacturerID, productID string) (bool, error)
	ListProducts(ctx context.Context, manufacturerID string) ([]domain.Product, error)
	ListByProduct(ctx context.Context, productID string) ([]domain.Manufacturer, error)
}

// InvoiceFilter narrows invoice listings. Name fields match case-insensitive
// substrings; dates and status match exactly.
type InvoiceFilter struct {
	OwnerFirstName *string
	OwnerLastName  *string
	IssuerName     *string
	Status         *domain.PaymentStatus
	IssueDate      *time.Time
	PaymentDate    *time.Time
	Page           int
	PerPage        int
}

// InvoiceRepository persists invoices and their line items.
type InvoiceRepository interface {
	Create(ctx context.Context, inv *domain.Invoice) error
	// GetByID loads the invoice header without line items.
	GetByID(ctx context.Context, id string) (*domain.Invoice, error)
	GetByIDForUpdate(ctx context.Context, id string) (*domain.Invoice, error)
	GetByIdentificationCode(ctx context.Context, code string) (*domain.Invoice, error)
	List(ctx context.Context, filter InvoiceFilter) ([]domain.Invoice, int, error)
	Update(ctx context.Context, inv *domain.Invoice) error
	Delete(ctx context.Context, id string) error

	// ListLineItems returns the lines with each product's current name and price.
	ListLineItems(ctx context.Context, invoiceID string) ([]domain.LineItem, error)
	HasLineItem(ctx context.Context, invoiceID, productID string) (bool, error)
	AddLineItem(ctx context.Context, item *domain.LineItem) error
	// RemoveLineItem reports whether a line was removed.
	RemoveLineItem(ctx context.Context, invoiceID, productID string) (bool, error)
}

// UserRepository persists users and their role assignments.
type UserRepository interface {
	Create(ctx context.Context, u *domain.User) error
	GetByID(ctx context.Context, id string) (*domain.User, error)
	GetByUsername(ctx context.Context, username string) (*domain.User, error)
	GetByEmail(ctx context.Context, email string) (*domain.User, error)
	GetByPhone(ctx context.Context, phone string) (*domain.User, error)
	List(ctx context.Context, page, perPage int) ([]domain.User, int, error)
	Update(ctx context.Context, u *domain.User) error
	Delete(ctx context.Context, id string) error

	AssignRole(ctx context.Context, userID, roleID string) error
	// RemoveRole reports whether an assignment was removed.
	RemoveRole(ctx context.Context, userID, roleID string) (bool, error)
	ListRoleNames(ctx context.Context, userID string) ([]string, error)
}

// RoleRepository persists roles.
type RoleRepository interface {
	Create(ctx context.Context, r *domain.Role) error
	GetByID(ctx context.Context, id string) (*domain.Role, error)
	GetByName(ctx context.Context, name string) (*domain.Role, error)
	List(ctx context.Context) ([]domain.Role, error)
	Update(ctx context.Context, r *domain.Role) error
	Delete(ctx context.Context, id string) error
}

// Repositories bundles one repository per entity, all bound to the same
// connection or transaction.
type Repositories struct {
	Categories    CategoryRepository
	Products      ProductRepository
	Manufacturers ManufacturerRepository
	Invoices      InvoiceRepository
	Users         UserRepository
	Roles         RoleRepository
}

// Transactor runs fn inside a single database transaction. The repositories
// passed to fn are bound to that transaction; fn returning an error rolls
// everything back.
type Transactor interface {
	WithinTx(ctx context.Context, fn func(ctx context.Context, repos Repositories) error) error
}

// TokenDenylist records revoked access tokens until they would have expired.
type TokenDenylist interface {
	Revoke(ctx context.Context, tokenID string, until time.Time) error
	IsRevoked(ctx context.Context, tokenID string) (bool, error)
}
