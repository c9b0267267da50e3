package service

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/utafrali/backoffice/internal/domain"
	"github.com/utafrali/backoffice/internal/event"
	"github.com/utafrali/backoffice/internal/repository"
	apperrors "github.com/utafrali/backoffice/pkg/errors"
	"github.com/utafrali/backoffice/pkg/logger"
)

// InvoiceManager owns invoices, their line items and payment.
type InvoiceManager interface {
	Create(ctx context.Context, input CreateInvoiceInput) (*domain.Invoice, error)
	Get(ctx context.Context, id string) (*domain.Invoice, error)
	GetByIdentificationCode(ctx context.Context, code string) (*domain.Invoice, error)
	List(ctx context.Context, filter repository.InvoiceFilter) ([]domain.Invoice, int, error)
	Update(ctx context.Context, id string, input UpdateInvoiceInput) (*domain.Invoice, error)
	AssignProduct(ctx context.Context, invoiceID, productID string, count int) (bool, error)
	RemoveLineItem(ctx context.Context, invoiceID, productID string) (bool, error)
	ComputeTotal(ctx context.Context, invoiceID string) (decimal.Decimal, error)
	Pay(ctx context.Context, invoiceID string, tendered decimal.Decimal) (*domain.Invoice, error)
	Cancel(ctx context.Context, invoiceID string) (*domain.Invoice, error)
	Delete(ctx context.Context, invoiceID string) error
}

// CreateInvoiceInput holds the parameters for creating an invoice. An empty
// PaymentStatus defaults to Pending.
type CreateInvoiceInput struct {
	OwnerFirstName     string
	OwnerLastName      string
	IdentificationCode string
	IssuerName         string
	IssueDate          time.Time
	TotalPrice         decimal.Decimal
	PaymentStatus      domain.PaymentStatus
}

// UpdateInvoiceInput holds the header fields that can be changed. Nil fields
// are left as they are.
type UpdateInvoiceInput struct {
	OwnerFirstName *string
	OwnerLastName  *string
	IssuerName     *string
	IssueDate      *time.Time
}

// InvoiceService implements InvoiceManager.
type InvoiceService struct {
	repos    repository.Repositories
	tx       repository.Transactor
	producer *event.Producer
	metrics  *InvoiceMetrics
	logger   *slog.Logger
	now      func() time.Time
}

var _ InvoiceManager = (*InvoiceService)(nil)

// NewInvoiceService creates a new invoice service. A nil metrics value gets
// an unregistered set of counters.
func NewInvoiceService(repos repository.Repositories, tx repository.Transactor, producer *event.Producer, metrics *InvoiceMetrics, logger *slog.Logger) *InvoiceService {
	if metrics == nil {
		metrics = NewInvoiceMetrics(nil)
	}
	return &InvoiceService{
		repos:    repos,
		tx:       tx,
		producer: producer,
		metrics:  metrics,
		logger:   logger,
		now:      time.Now,
	}
}

// Create persists a new invoice without line items. The identification code
// is probed by the caller; a concurrent duplicate still fails on the unique
// constraint.
func (s *InvoiceService) Create(ctx context.Context, input CreateInvoiceInput) (*domain.Invoice, error) {
	l := logger.Op(ctx, s.logger, "invoice.create")

	status := input.PaymentStatus
	if status == "" {
		status = domain.PaymentStatusPending
	}
	if !status.Valid() {
		return nil, apperrors.InvalidInput(fmt.Sprintf("unknown payment status %q", status))
	}
	if input.TotalPrice.IsNegative() {
		return nil, apperrors.InvalidInput("total price must not be negative")
	}

	now := s.now().UTC()
	inv := &domain.Invoice{
		ID:                 uuid.New().String(),
		OwnerFirstName:     strings.TrimSpace(input.OwnerFirstName),
		OwnerLastName:      strings.TrimSpace(input.OwnerLastName),
		IdentificationCode: strings.TrimSpace(input.IdentificationCode),
		IssuerName:         strings.TrimSpace(input.IssuerName),
		IssueDate:          input.IssueDate.UTC(),
		TotalPrice:         domain.Money(input.TotalPrice),
		PaymentStatus:      status,
		Items:              []domain.LineItem{},
		CreatedAt:          now,
		UpdatedAt:          now,
	}

	if err := s.repos.Invoices.Create(ctx, inv); err != nil {
		return nil, fmt.Errorf("create invoice: %w", err)
	}

	logPublishFailure(ctx, l, "invoice.created", s.producer.PublishInvoice(ctx, event.ActionCreated, inv))

	l.InfoContext(ctx, "invoice created",
		slog.String("invoice_id", inv.ID),
		slog.String("identification_code", inv.IdentificationCode),
	)
	return inv, nil
}

// Get returns the invoice with its line items. When it has lines, the total
// is the live sum over current product prices.
func (s *InvoiceService) Get(ctx context.Context, id string) (*domain.Invoice, error) {
	inv, err := s.repos.Invoices.GetByID(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("get invoice: %w", err)
	}
	if err := s.loadItems(ctx, s.repos.Invoices, inv); err != nil {
		return nil, err
	}
	return inv, nil
}

// GetByIdentificationCode returns the invoice header with the given code.
func (s *InvoiceService) GetByIdentificationCode(ctx context.Context, code string) (*domain.Invoice, error) {
	inv, err := s.repos.Invoices.GetByIdentificationCode(ctx, code)
	if err != nil {
		return nil, fmt.Errorf("get invoice by identification code: %w", err)
	}
	return inv, nil
}

// List returns invoice headers matching filter.
func (s *InvoiceService) List(ctx context.Context, filter repository.InvoiceFilter) ([]domain.Invoice, int, error) {
	if filter.Status != nil && !filter.Status.Valid() {
		return nil, 0, apperrors.InvalidInput(fmt.Sprintf("unknown payment status %q", *filter.Status))
	}
	invoices, total, err := s.repos.Invoices.List(ctx, filter)
	if err != nil {
		return nil, 0, fmt.Errorf("list invoices: %w", err)
	}
	return invoices, total, nil
}

// Update changes the invoice header.
func (s *InvoiceService) Update(ctx context.Context, id string, input UpdateInvoiceInput) (*domain.Invoice, error) {
	l := logger.Op(ctx, s.logger, "invoice.update").With(slog.String("invoice_id", id))

	var inv *domain.Invoice
	err := s.tx.WithinTx(ctx, func(ctx context.Context, repos repository.Repositories) error {
		var err error
		inv, err = repos.Invoices.GetByIDForUpdate(ctx, id)
		if err != nil {
			return fmt.Errorf("get invoice: %w", err)
		}

		if input.OwnerFirstName != nil {
			inv.OwnerFirstName = strings.TrimSpace(*input.OwnerFirstName)
		}
		if input.OwnerLastName != nil {
			inv.OwnerLastName = strings.TrimSpace(*input.OwnerLastName)
		}
		if input.IssuerName != nil {
			inv.IssuerName = strings.TrimSpace(*input.IssuerName)
		}
		if input.IssueDate != nil {
			inv.IssueDate = input.IssueDate.UTC()
		}

		if err := repos.Invoices.Update(ctx, inv); err != nil {
			return fmt.Errorf("update invoice: %w", err)
		}
		return s.loadItems(ctx, repos.Invoices, inv)
	})
	if err != nil {
		return nil, err
	}

	l.InfoContext(ctx, "invoice updated")
	return inv, nil
}

// AssignProduct adds count units of a product to the invoice and reports
// whether a line was added. A product already on the invoice is skipped.
// Adding a line reopens the invoice as Pending.
func (s *InvoiceService) AssignProduct(ctx context.Context, invoiceID, productID string, count int) (bool, error) {
	l := logger.Op(ctx, s.logger, "invoice.assign_product").With(
		slog.String("invoice_id", invoiceID),
		slog.String("product_id", productID),
	)

	if count < 1 {
		return false, apperrors.InvalidInput("count must be at least 1")
	}

	var (
		added bool
		total decimal.Decimal
	)
	err := s.tx.WithinTx(ctx, func(ctx context.Context, repos repository.Repositories) error {
		inv, err := repos.Invoices.GetByIDForUpdate(ctx, invoiceID)
		if err != nil {
			return fmt.Errorf("get invoice: %w", err)
		}
		// A paid invoice has already debited inventory; reopening it would
		// let a second payment debit it again.
		if inv.PaymentStatus == domain.PaymentStatusPayed {
			return apperrors.Guard(domain.ErrInvoiceAlreadyPaid, "cannot add products to a paid invoice")
		}

		product, err := repos.Products.GetByIDForUpdate(ctx, productID)
		if err != nil {
			return fmt.Errorf("get product: %w", err)
		}
		qty := decimal.NewFromInt(int64(count))
		if qty.GreaterThan(product.Inventory) {
			return apperrors.Guard(domain.ErrInsufficientInventory,
				fmt.Sprintf("requested %d of %q but only %s in stock", count, product.Name, product.Inventory.String()))
		}

		exists, err := repos.Invoices.HasLineItem(ctx, invoiceID, productID)
		if err != nil {
			return fmt.Errorf("check line item: %w", err)
		}
		if exists {
			return nil
		}

		if err := repos.Invoices.AddLineItem(ctx, &domain.LineItem{
			InvoiceID: invoiceID,
			ProductID: productID,
			Count:     count,
		}); err != nil {
			return fmt.Errorf("add line item: %w", err)
		}

		inv.PaymentStatus = domain.PaymentStatusPending
		if total, err = s.refreshTotal(ctx, repos.Invoices, inv); err != nil {
			return err
		}
		added = true
		return nil
	})
	if err != nil {
		return false, err
	}

	if !added {
		l.InfoContext(ctx, "product already on invoice")
		return false, nil
	}
	l.InfoContext(ctx, "product assigned to invoice",
		slog.Int("count", count),
		slog.String("total_price", total.StringFixed(domain.MoneyPlaces)),
	)
	return true, nil
}

// RemoveLineItem removes the product's line from the invoice and reports
// whether one was removed.
func (s *InvoiceService) RemoveLineItem(ctx context.Context, invoiceID, productID string) (bool, error) {
	l := logger.Op(ctx, s.logger, "invoice.remove_line_item").With(
		slog.String("invoice_id", invoiceID),
		slog.String("product_id", productID),
	)

	var removed bool
	err := s.tx.WithinTx(ctx, func(ctx context.Context, repos repository.Repositories) error {
		inv, err := repos.Invoices.GetByIDForUpdate(ctx, invoiceID)
		if err != nil {
			return fmt.Errorf("get invoice: %w", err)
		}

		removed, err = repos.Invoices.RemoveLineItem(ctx, invoiceID, productID)
		if err != nil {
			return fmt.Errorf("remove line item: %w", err)
		}
		if !removed {
			return nil
		}

		_, err = s.refreshTotal(ctx, repos.Invoices, inv)
		return err
	})
	if err != nil {
		return false, err
	}

	l.InfoContext(ctx, "line item removal processed", slog.Bool("removed", removed))
	return removed, nil
}

// ComputeTotal sums count × current price over the invoice's line items.
func (s *InvoiceService) ComputeTotal(ctx context.Context, invoiceID string) (decimal.Decimal, error) {
	if _, err := s.repos.Invoices.GetByID(ctx, invoiceID); err != nil {
		return decimal.Zero, fmt.Errorf("get invoice: %w", err)
	}
	items, err := s.repos.Invoices.ListLineItems(ctx, invoiceID)
	if err != nil {
		return decimal.Zero, fmt.Errorf("list line items: %w", err)
	}
	return domain.ComputeTotal(items), nil
}

// Pay settles the invoice. tendered must equal the live total exactly. Every
// line's inventory is debited and the invoice is marked Payed in one
// transaction; a failed payment changes nothing.
func (s *InvoiceService) Pay(ctx context.Context, invoiceID string, tendered decimal.Decimal) (*domain.Invoice, error) {
	l := logger.Op(ctx, s.logger, "invoice.pay").With(slog.String("invoice_id", invoiceID))

	var inv *domain.Invoice
	err := s.tx.WithinTx(ctx, func(ctx context.Context, repos repository.Repositories) error {
		var err error
		inv, err = repos.Invoices.GetByIDForUpdate(ctx, invoiceID)
		if err != nil {
			return fmt.Errorf("get invoice: %w", err)
		}

		items, err := repos.Invoices.ListLineItems(ctx, invoiceID)
		if err != nil {
			return fmt.Errorf("list line items: %w", err)
		}
		total := domain.ComputeTotal(items)

		if err := inv.CheckPayable(tendered, total); err != nil {
			return err
		}

		for _, li := range items {
			if err := repos.Products.DebitInventory(ctx, li.ProductID, li.Quantity()); err != nil {
				return fmt.Errorf("debit inventory of product %s: %w", li.ProductID, err)
			}
		}

		inv.MarkPaid(s.now())
		inv.TotalPrice = total
		inv.Items = items
		if err := repos.Invoices.Update(ctx, inv); err != nil {
			return fmt.Errorf("update invoice: %w", err)
		}
		return nil
	})
	if err != nil {
		s.metrics.recordRejected(err)
		l.WarnContext(ctx, "invoice payment rejected",
			slog.String("tendered", tendered.StringFixed(domain.MoneyPlaces)),
			slog.String("error", err.Error()),
		)
		return nil, err
	}

	s.metrics.recordPaid(inv.TotalPrice)
	logPublishFailure(ctx, l, "invoice.paid", s.producer.PublishInvoice(ctx, event.ActionPaid, inv))

	l.InfoContext(ctx, "invoice paid",
		slog.String("total_price", inv.TotalPrice.StringFixed(domain.MoneyPlaces)),
		slog.Int("line_items", len(inv.Items)),
	)
	return inv, nil
}

// Cancel voids a Pending invoice.
func (s *InvoiceService) Cancel(ctx context.Context, invoiceID string) (*domain.Invoice, error) {
	l := logger.Op(ctx, s.logger, "invoice.cancel").With(slog.String("invoice_id", invoiceID))

	var inv *domain.Invoice
	err := s.tx.WithinTx(ctx, func(ctx context.Context, repos repository.Repositories) error {
		var err error
		inv, err = repos.Invoices.GetByIDForUpdate(ctx, invoiceID)
		if err != nil {
			return fmt.Errorf("get invoice: %w", err)
		}
		if err := inv.CheckCancellable(); err != nil {
			return err
		}

		inv.PaymentStatus = domain.PaymentStatusCancelled
		if err := repos.Invoices.Update(ctx, inv); err != nil {
			return fmt.Errorf("update invoice: %w", err)
		}
		return s.loadItems(ctx, repos.Invoices, inv)
	})
	if err != nil {
		return nil, err
	}

	l.InfoContext(ctx, "invoice cancelled")
	return inv, nil
}

// Delete removes a Pending or Payed invoice together with its line items.
func (s *InvoiceService) Delete(ctx context.Context, invoiceID string) error {
	l := logger.Op(ctx, s.logger, "invoice.delete").With(slog.String("invoice_id", invoiceID))

	var inv *domain.Invoice
	err := s.tx.WithinTx(ctx, func(ctx context.Context, repos repository.Repositories) error {
		var err error
		inv, err = repos.Invoices.GetByIDForUpdate(ctx, invoiceID)
		if err != nil {
			return fmt.Errorf("get invoice: %w", err)
		}
		if err := inv.CheckDeletable(); err != nil {
			return err
		}
		if err := repos.Invoices.Delete(ctx, invoiceID); err != nil {
			return fmt.Errorf("delete invoice: %w", err)
		}
		return nil
	})
	if err != nil {
		return err
	}

	logPublishFailure(ctx, l, "invoice.deleted", s.producer.PublishInvoice(ctx, event.ActionDeleted, inv))

	l.InfoContext(ctx, "invoice deleted")
	return nil
}

// loadItems attaches the line items to inv. With at least one line the
// stored total is replaced by the live sum.
func (s *InvoiceService) loadItems(ctx context.Context, repo repository.InvoiceRepository, inv *domain.Invoice) error {
	items, err := repo.ListLineItems(ctx, inv.ID)
	if err != nil {
		return fmt.Errorf("list line items: %w", err)
	}
	if items == nil {
		items = []domain.LineItem{}
	}
	inv.Items = items
	if len(items) > 0 {
		inv.TotalPrice = domain.ComputeTotal(items)
	}
	return nil
}

// refreshTotal recomputes the invoice total from its lines and stores it.
func (s *InvoiceService) refreshTotal(ctx context.Context, repo repository.InvoiceRepository, inv *domain.Invoice) (decimal.Decimal, error) {
	items, err := repo.ListLineItems(ctx, inv.ID)
	if err != nil {
		return decimal.Zero, fmt.Errorf("list line items: %w", err)
	}
	inv.Items = items
	inv.TotalPrice = domain.ComputeTotal(items)
	if err := repo.Update(ctx, inv); err != nil {
		return decimal.Zero, fmt.Errorf("update invoice total: %w", err)
	}
	return inv.TotalPrice, nil
}
