package service

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/utafrali/backoffice/internal/domain"
	"github.com/utafrali/backoffice/internal/event"
	"github.com/utafrali/backoffice/internal/repository"
	apperrors "github.com/utafrali/backoffice/pkg/errors"
	"github.com/utafrali/backoffice/pkg/logger"
)

// ProductManager owns the product catalog.
type ProductManager interface {
	Create(ctx context.Context, input CreateProductInput) (*domain.Product, error)
	Get(ctx context.Context, id string) (*domain.Product, error)
	List(ctx context.Context, filter repository.ProductFilter) ([]domain.Product, int, error)
	Update(ctx context.Context, id string, input UpdateProductInput) (*domain.Product, error)
	Delete(ctx context.Context, id string) error
	Manufacturers(ctx context.Context, id string) ([]domain.Manufacturer, error)
}

// CreateProductInput holds the parameters for creating a product.
type CreateProductInput struct {
	Name           string
	Price          decimal.Decimal
	Inventory      decimal.Decimal
	ProductionDate time.Time
	ExpiryDate     time.Time
}

// UpdateProductInput holds the parameters for updating a product. Nil fields
// are left as they are. IsAvailable is taken as given; it is not derived
// from the dates or inventory.
type UpdateProductInput struct {
	Name           *string
	Price          *decimal.Decimal
	Inventory      *decimal.Decimal
	ProductionDate *time.Time
	ExpiryDate     *time.Time
	IsAvailable    *bool
}

// ProductService implements ProductManager.
type ProductService struct {
	repos    repository.Repositories
	producer *event.Producer
	logger   *slog.Logger
}

var _ ProductManager = (*ProductService)(nil)

// NewProductService creates a new product service.
func NewProductService(repos repository.Repositories, producer *event.Producer, logger *slog.Logger) *ProductService {
	return &ProductService{
		repos:    repos,
		producer: producer,
		logger:   logger,
	}
}

func normalizeProductName(name string) (string, error) {
	name = strings.TrimSpace(name)
	if n := utf8.RuneCountInString(name); n == 0 || n > domain.MaxProductNameLength {
		return "", apperrors.InvalidInput(fmt.Sprintf("product name must be 1 to %d characters", domain.MaxProductNameLength))
	}
	return name, nil
}

// Create adds a product. Availability is derived once here from the dates
// and the inventory.
func (s *ProductService) Create(ctx context.Context, input CreateProductInput) (*domain.Product, error) {
	l := logger.Op(ctx, s.logger, "product.create")

	name, err := normalizeProductName(input.Name)
	if err != nil {
		return nil, err
	}
	if input.Price.IsNegative() {
		return nil, apperrors.InvalidInput("price must not be negative")
	}
	if err := checkInventory(input.Inventory); err != nil {
		return nil, err
	}

	now := time.Now().UTC()
	p := &domain.Product{
		ID:             uuid.New().String(),
		Name:           name,
		Price:          domain.Money(input.Price),
		Inventory:      input.Inventory,
		ProductionDate: input.ProductionDate.UTC(),
		ExpiryDate:     input.ExpiryDate.UTC(),
		IsAvailable:    domain.ComputeAvailability(input.ProductionDate, input.ExpiryDate, input.Inventory),
		CreatedAt:      now,
		UpdatedAt:      now,
	}

	if err := s.repos.Products.Create(ctx, p); err != nil {
		return nil, fmt.Errorf("create product: %w", err)
	}

	logPublishFailure(ctx, l, "product.created", s.producer.PublishProduct(ctx, event.ActionCreated, p))

	l.InfoContext(ctx, "product created",
		slog.String("product_id", p.ID),
		slog.Bool("is_available", p.IsAvailable),
	)
	return p, nil
}

// Get returns a product by id.
func (s *ProductService) Get(ctx context.Context, id string) (*domain.Product, error) {
	p, err := s.repos.Products.GetByID(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("get product: %w", err)
	}
	return p, nil
}

// List returns a page of products matching filter.
func (s *ProductService) List(ctx context.Context, filter repository.ProductFilter) ([]domain.Product, int, error) {
	products, total, err := s.repos.Products.List(ctx, filter)
	if err != nil {
		return nil, 0, fmt.Errorf("list products: %w", err)
	}
	return products, total, nil
}

// Update applies the non-nil fields of input.
func (s *ProductService) Update(ctx context.Context, id string, input UpdateProductInput) (*domain.Product, error) {
	l := logger.Op(ctx, s.logger, "product.update").With(slog.String("product_id", id))

	p, err := s.repos.Products.GetByID(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("get product: %w", err)
	}

	if input.Name != nil {
		if p.Name, err = normalizeProductName(*input.Name); err != nil {
			return nil, err
		}
	}
	if input.Price != nil {
		if input.Price.IsNegative() {
			return nil, apperrors.InvalidInput("price must not be negative")
		}
		p.Price = domain.Money(*input.Price)
	}
	if input.Inventory != nil {
		if err := checkInventory(*input.Inventory); err != nil {
			return nil, err
		}
		p.Inventory = *input.Inventory
	}
	if input.ProductionDate != nil {
		p.ProductionDate = input.ProductionDate.UTC()
	}
	if input.ExpiryDate != nil {
		p.ExpiryDate = input.ExpiryDate.UTC()
	}
	if input.IsAvailable != nil {
		p.IsAvailable = *input.IsAvailable
	}

	if err := s.repos.Products.Update(ctx, p); err != nil {
		return nil, fmt.Errorf("update product: %w", err)
	}

	logPublishFailure(ctx, l, "product.updated", s.producer.PublishProduct(ctx, event.ActionUpdated, p))

	l.InfoContext(ctx, "product updated")
	return p, nil
}

// Delete removes a product. A product still on an invoice cannot be deleted;
// its manufacturer links go with it.
func (s *ProductService) Delete(ctx context.Context, id string) error {
	l := logger.Op(ctx, s.logger, "product.delete").With(slog.String("product_id", id))

	p, err := s.repos.Products.GetByID(ctx, id)
	if err != nil {
		return fmt.Errorf("get product: %w", err)
	}
	if err := s.repos.Products.Delete(ctx, id); err != nil {
		return fmt.Errorf("delete product: %w", err)
	}

	logPublishFailure(ctx, l, "product.deleted", s.producer.PublishProduct(ctx, event.ActionDeleted, p))

	l.InfoContext(ctx, "product deleted")
	return nil
}

// Manufacturers lists the manufacturers supplying a product.
func (s *ProductService) Manufacturers(ctx context.Context, id string) ([]domain.Manufacturer, error) {
	if _, err := s.repos.Products.GetByID(ctx, id); err != nil {
		return nil, fmt.Errorf("get product: %w", err)
	}
	ms, err := s.repos.Manufacturers.ListByProduct(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("list manufacturers of product: %w", err)
	}
	return ms, nil
}

func checkInventory(d decimal.Decimal) error {
	if d.IsNegative() {
		return apperrors.InvalidInput("inventory must not be negative")
	}
	if !domain.FitsInventoryScale(d) {
		return apperrors.InvalidInput(fmt.Sprintf("inventory allows at most %d decimal places", domain.InventoryPlaces))
	}
	return nil
}
