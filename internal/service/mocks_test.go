package service

import (
	"context"
	"log/slog"
	"os"
	"sync"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/mock"

	"github.com/utafrali/backoffice/internal/domain"
	"github.com/utafrali/backoffice/internal/event"
	"github.com/utafrali/backoffice/internal/repository"
	pkgkafka "github.com/utafrali/backoffice/pkg/kafka"
)

// --- Test Helpers ---

func newTestLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelError}))
}

func strPtr(s string) *string { return &s }

func boolPtr(b bool) *bool { return &b }

func dec(s string) decimal.Decimal { return decimal.RequireFromString(s) }

type publishedEvent struct {
	topic string
	event *pkgkafka.Event
}

type recordingPublisher struct {
	mu     sync.Mutex
	events []publishedEvent
	err    error
}

func (r *recordingPublisher) Publish(_ context.Context, topic string, evt *pkgkafka.Event) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.err != nil {
		return r.err
	}
	r.events = append(r.events, publishedEvent{topic: topic, event: evt})
	return nil
}

func (r *recordingPublisher) topics() []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]string, 0, len(r.events))
	for _, e := range r.events {
		out = append(out, e.topic)
	}
	return out
}

func newTestProducer() (*event.Producer, *recordingPublisher) {
	rec := &recordingPublisher{}
	return event.NewProducer(rec, newTestLogger()), rec
}

// fakeTx runs fn directly against repos and counts the outcome.
type fakeTx struct {
	repos     repository.Repositories
	commits   int
	rollbacks int
}

func (f *fakeTx) WithinTx(ctx context.Context, fn func(ctx context.Context, repos repository.Repositories) error) error {
	if err := fn(ctx, f.repos); err != nil {
		f.rollbacks++
		return err
	}
	f.commits++
	return nil
}

// --- Mock Repositories ---

type mockCategoryRepository struct {
	mock.Mock
}

func (m *mockCategoryRepository) Create(ctx context.Context, c *domain.Category) error {
	return m.Called(ctx, c).Error(0)
}

func (m *mockCategoryRepository) GetByID(ctx context.Context, id string) (*domain.Category, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.Category), args.Error(1)
}

func (m *mockCategoryRepository) GetByName(ctx context.Context, name string) (*domain.Category, error) {
	args := m.Called(ctx, name)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.Category), args.Error(1)
}

func (m *mockCategoryRepository) ListAll(ctx context.Context) ([]domain.Category, error) {
	args := m.Called(ctx)
	return args.Get(0).([]domain.Category), args.Error(1)
}

func (m *mockCategoryRepository) ListChildren(ctx context.Context, parentID string) ([]domain.Category, error) {
	args := m.Called(ctx, parentID)
	return args.Get(0).([]domain.Category), args.Error(1)
}

func (m *mockCategoryRepository) CountChildren(ctx context.Context, parentID string) (int, error) {
	args := m.Called(ctx, parentID)
	return args.Int(0), args.Error(1)
}

func (m *mockCategoryRepository) Update(ctx context.Context, c *domain.Category) error {
	return m.Called(ctx, c).Error(0)
}

func (m *mockCategoryRepository) Delete(ctx context.Context, id string) error {
	return m.Called(ctx, id).Error(0)
}

type mockProductRepository struct {
	mock.Mock
}

func (m *mockProductRepository) Create(ctx context.Context, p *domain.Product) error {
	return m.Called(ctx, p).Error(0)
}

func (m *mockProductRepository) GetByID(ctx context.Context, id string) (*domain.Product, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.Product), args.Error(1)
}

func (m *mockProductRepository) GetByIDForUpdate(ctx context.Context, id string) (*domain.Product, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.Product), args.Error(1)
}

func (m *mockProductRepository) List(ctx context.Context, filter repository.ProductFilter) ([]domain.Product, int, error) {
	args := m.Called(ctx, filter)
	return args.Get(0).([]domain.Product), args.Int(1), args.Error(2)
}

func (m *mockProductRepository) Update(ctx context.Context, p *domain.Product) error {
	return m.Called(ctx, p).Error(0)
}

func (m *mockProductRepository) Delete(ctx context.Context, id string) error {
	return m.Called(ctx, id).Error(0)
}

func (m *mockProductRepository) DebitInventory(ctx context.Context, id string, qty decimal.Decimal) error {
	return m.Called(ctx, id, qty).Error(0)
}

type mockManufacturerRepository struct {
	mock.Mock
}

func (m *mockManufacturerRepository) Create(ctx context.Context, mf *domain.Manufacturer) error {
	return m.Called(ctx, mf).Error(0)
}

func (m *mockManufacturerRepository) get(args mock.Arguments) (*domain.Manufacturer, error) {
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.Manufacturer), args.Error(1)
}

func (m *mockManufacturerRepository) GetByID(ctx context.Context, id string) (*domain.Manufacturer, error) {
	return m.get(m.Called(ctx, id))
}

func (m *mockManufacturerRepository) GetByEmail(ctx context.Context, email string) (*domain.Manufacturer, error) {
	return m.get(m.Called(ctx, email))
}

func (m *mockManufacturerRepository) GetByAddress(ctx context.Context, address string) (*domain.Manufacturer, error) {
	return m.get(m.Called(ctx, address))
}

func (m *mockManufacturerRepository) GetByPhone(ctx context.Context, phone string) (*domain.Manufacturer, error) {
	return m.get(m.Called(ctx, phone))
}

func (m *mockManufacturerRepository) List(ctx context.Context, page, perPage int) ([]domain.Manufacturer, int, error) {
	args := m.Called(ctx, page, perPage)
	return args.Get(0).([]domain.Manufacturer), args.Int(1), args.Error(2)
}

func (m *mockManufacturerRepository) Update(ctx context.Context, mf *domain.Manufacturer) error {
	return m.Called(ctx, mf).Error(0)
}

func (m *mockManufacturerRepository) Delete(ctx context.Context, id string) error {
	return m.Called(ctx, id).Error(0)
}

func (m *mockManufacturerRepository) CountProducts(ctx context.Context, manufacturerID string) (int, error) {
	args := m.Called(ctx, manufacturerID)
	return args.Int(0), args.Error(1)
}

func (m *mockManufacturerRepository) HasProduct(ctx context.Context, manufacturerID, productID string) (bool, error) {
	args := m.Called(ctx, manufacturerID, productID)
	return args.Bool(0), args.Error(1)
}

func (m *mockManufacturerRepository) AddProduct(ctx context.Context, manufacturerID, productID string) error {
	return m.Called(ctx, manufacturerID, productID).Error(0)
}

func (m *mockManufacturerRepository) RemoveProduct(ctx context.Context, manufacturerID, productID string) (bool, error) {
	args := m.Called(ctx, manufacturerID, productID)
	return args.Bool(0), args.Error(1)
}

func (m *mockManufacturerRepository) ListProducts(ctx context.Context, manufacturerID string) ([]domain.Product, error) {
	args := m.Called(ctx, manufacturerID)
	return args.Get(0).([]domain.Product), args.Error(1)
}

func (m *mockManufacturerRepository) ListByProduct(ctx context.Context, productID string) ([]domain.Manufacturer, error) {
	args := m.Called(ctx, productID)
	return args.Get(0).([]domain.Manufacturer), args.Error(1)
}

type mockInvoiceRepository struct {
	mock.Mock
}

func (m *mockInvoiceRepository) Create(ctx context.Context, inv *domain.Invoice) error {
	return m.Called(ctx, inv).Error(0)
}

func (m *mockInvoiceRepository) get(args mock.Arguments) (*domain.Invoice, error) {
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.Invoice), args.Error(1)
}

func (m *mockInvoiceRepository) GetByID(ctx context.Context, id string) (*domain.Invoice, error) {
	return m.get(m.Called(ctx, id))
}

func (m *mockInvoiceRepository) GetByIDForUpdate(ctx context.Context, id string) (*domain.Invoice, error) {
	return m.get(m.Called(ctx, id))
}

func (m *mockInvoiceRepository) GetByIdentificationCode(ctx context.Context, code string) (*domain.Invoice, error) {
	return m.get(m.Called(ctx, code))
}

func (m *mockInvoiceRepository) List(ctx context.Context, filter repository.InvoiceFilter) ([]domain.Invoice, int, error) {
	args := m.Called(ctx, filter)
	return args.Get(0).([]domain.Invoice), args.Int(1), args.Error(2)
}

func (m *mockInvoiceRepository) Update(ctx context.Context, inv *domain.Invoice) error {
	return m.Called(ctx, inv).Error(0)
}

func (m *mockInvoiceRepository) Delete(ctx context.Context, id string) error {
	return m.Called(ctx, id).Error(0)
}

func (m *mockInvoiceRepository) ListLineItems(ctx context.Context, invoiceID string) ([]domain.LineItem, error) {
	args := m.Called(ctx, invoiceID)
	return args.Get(0).([]domain.LineItem), args.Error(1)
}

func (m *mockInvoiceRepository) HasLineItem(ctx context.Context, invoiceID, productID string) (bool, error) {
	args := m.Called(ctx, invoiceID, productID)
	return args.Bool(0), args.Error(1)
}

func (m *mockInvoiceRepository) AddLineItem(ctx context.Context, item *domain.LineItem) error {
	return m.Called(ctx, item).Error(0)
}

func (m *mockInvoiceRepository) RemoveLineItem(ctx context.Context, invoiceID, productID string) (bool, error) {
	args := m.Called(ctx, invoiceID, productID)
	return args.Bool(0), args.Error(1)
}

type mockUserRepository struct {
	mock.Mock
}

func (m *mockUserRepository) Create(ctx context.Context, u *domain.User) error {
	return m.Called(ctx, u).Error(0)
}

func (m *mockUserRepository) get(args mock.Arguments) (*domain.User, error) {
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.User), args.Error(1)
}

func (m *mockUserRepository) GetByID(ctx context.Context, id string) (*domain.User, error) {
	return m.get(m.Called(ctx, id))
}

func (m *mockUserRepository) GetByUsername(ctx context.Context, username string) (*domain.User, error) {
	return m.get(m.Called(ctx, username))
}

func (m *mockUserRepository) GetByEmail(ctx context.Context, email string) (*domain.User, error) {
	return m.get(m.Called(ctx, email))
}

func (m *mockUserRepository) GetByPhone(ctx context.Context, phone string) (*domain.User, error) {
	return m.get(m.Called(ctx, phone))
}

func (m *mockUserRepository) List(ctx context.Context, page, perPage int) ([]domain.User, int, error) {
	args := m.Called(ctx, page, perPage)
	return args.Get(0).([]domain.User), args.Int(1), args.Error(2)
}

func (m *mockUserRepository) Update(ctx context.Context, u *domain.User) error {
	return m.Called(ctx, u).Error(0)
}

func (m *mockUserRepository) Delete(ctx context.Context, id string) error {
	return m.Called(ctx, id).Error(0)
}

func (m *mockUserRepository) AssignRole(ctx context.Context, userID, roleID string) error {
	return m.Called(ctx, userID, roleID).Error(0)
}

func (m *mockUserRepository) RemoveRole(ctx context.Context, userID, roleID string) (bool, error) {
	args := m.Called(ctx, userID, roleID)
	return args.Bool(0), args.Error(1)
}

func (m *mockUserRepository) ListRoleNames(ctx context.Context, userID string) ([]string, error) {
	args := m.Called(ctx, userID)
	return args.Get(0).([]string), args.Error(1)
}

type mockRoleRepository struct {
	mock.Mock
}

func (m *mockRoleRepository) Create(ctx context.Context, r *domain.Role) error {
	return m.Called(ctx, r).Error(0)
}

func (m *mockRoleRepository) get(args mock.Arguments) (*domain.Role, error) {
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.Role), args.Error(1)
}

func (m *mockRoleRepository) GetByID(ctx context.Context, id string) (*domain.Role, error) {
	return m.get(m.Called(ctx, id))
}

func (m *mockRoleRepository) GetByName(ctx context.Context, name string) (*domain.Role, error) {
	return m.get(m.Called(ctx, name))
}

func (m *mockRoleRepository) List(ctx context.Context) ([]domain.Role, error) {
	args := m.Called(ctx)
	return args.Get(0).([]domain.Role), args.Error(1)
}

func (m *mockRoleRepository) Update(ctx context.Context, r *domain.Role) error {
	return m.Called(ctx, r).Error(0)
}

func (m *mockRoleRepository) Delete(ctx context.Context, id string) error {
	return m.Called(ctx, id).Error(0)
}

type mockDenylist struct {
	mock.Mock
}

func (m *mockDenylist) Revoke(ctx context.Context, tokenID string, until time.Time) error {
	return m.Called(ctx, tokenID, until).Error(0)
}

func (m *mockDenylist) IsRevoked(ctx context.Context, tokenID string) (bool, error) {
	args := m.Called(ctx, tokenID)
	return args.Bool(0), args.Error(1)
}

// mockRepos bundles one mock per repository.
type mockRepos struct {
	categories    *mockCategoryRepository
	products      *mockProductRepository
	manufacturers *mockManufacturerRepository
	invoices      *mockInvoiceRepository
	users         *mockUserRepository
	roles         *mockRoleRepository
}

func newMockRepos() *mockRepos {
	return &mockRepos{
		categories:    new(mockCategoryRepository),
		products:      new(mockProductRepository),
		manufacturers: new(mockManufacturerRepository),
		invoices:      new(mockInvoiceRepository),
		users:         new(mockUserRepository),
		roles:         new(mockRoleRepository),
	}
}

func (m *mockRepos) repositories() repository.Repositories {
	return repository.Repositories{
		Categories:    m.categories,
		Products:      m.products,
		Manufacturers: m.manufacturers,
		Invoices:      m.invoices,
		Users:         m.users,
		Roles:         m.roles,
	}
}
