package http

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"os"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/utafrali/backoffice/internal/auth"
	"github.com/utafrali/backoffice/internal/domain"
	"github.com/utafrali/backoffice/internal/repository"
	"github.com/utafrali/backoffice/internal/service"
	"github.com/utafrali/backoffice/pkg/health"
	"github.com/utafrali/backoffice/pkg/httputil"
	"github.com/utafrali/backoffice/pkg/middleware"
)

// =============================================================================
// Test helpers
// =============================================================================

const (
	adminToken    = "admin-token"
	customerToken = "customer-token"
	adminUserID   = "11111111-1111-4111-8111-111111111111"
)

// grantedAdminToken belongs to a Customer who was later granted Admin.
const grantedAdminToken = "granted-admin-token"

func handlerTestLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelError}))
}

func fakeValidator(_ context.Context, token string) (*middleware.Claims, error) {
	switch token {
	case adminToken:
		return &middleware.Claims{UserID: adminUserID, Username: "admin", Roles: []string{domain.RoleAdmin}, TokenID: "jti-admin", ExpiresAt: time.Now().Add(time.Hour)}, nil
	case grantedAdminToken:
		return &middleware.Claims{UserID: userID, Username: "grace", Roles: []string{domain.RoleCustomer, domain.RoleAdmin}, TokenID: "jti-granted", ExpiresAt: time.Now().Add(time.Hour)}, nil
	case customerToken:
		return &middleware.Claims{UserID: "22222222-2222-4222-8222-222222222222", Username: "cust", Roles: []string{domain.RoleCustomer}, TokenID: "jti-cust", ExpiresAt: time.Now().Add(time.Hour)}, nil
	}
	return nil, errors.New("invalid token")
}

type testManagers struct {
	categories    *mockCategoryManager
	products      *mockProductManager
	manufacturers *mockManufacturerManager
	invoices      *mockInvoiceManager
	users         *mockUserManager
	roles         *mockRoleManager
}

func newTestRouter() (http.Handler, *testManagers) {
	m := &testManagers{
		categories:    new(mockCategoryManager),
		products:      new(mockProductManager),
		manufacturers: new(mockManufacturerManager),
		invoices:      new(mockInvoiceManager),
		users:         new(mockUserManager),
		roles:         new(mockRoleManager),
	}
	reg := prometheus.NewRegistry()
	router := NewRouter(Managers{
		Categories:    m.categories,
		Products:      m.products,
		Manufacturers: m.manufacturers,
		Invoices:      m.invoices,
		Users:         m.users,
		Roles:         m.roles,
	}, fakeValidator, health.NewHandler(), handlerTestLogger(), RouterConfig{
		CORS:           middleware.DefaultCORSConfig(),
		LoginRateLimit: 100,
		LoginRateBurst: 100,
		Registry:       reg,
		Gatherer:       reg,
	})
	return router, m
}

// do sends a request through the router as the holder of token.
func do(t *testing.T, router http.Handler, method, path, token string, body any) *httptest.ResponseRecorder {
	t.Helper()
	var reader *bytes.Reader
	switch b := body.(type) {
	case nil:
		reader = bytes.NewReader(nil)
	case string:
		reader = bytes.NewReader([]byte(b))
	default:
		raw, err := json.Marshal(b)
		require.NoError(t, err)
		reader = bytes.NewReader(raw)
	}

	req := httptest.NewRequest(method, path, reader)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)
	return rec
}

func decodeResponse(t *testing.T, rec *httptest.ResponseRecorder) httputil.Response {
	t.Helper()
	var resp httputil.Response
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&resp))
	return resp
}

// decodeData decodes the data member of the envelope into dst.
func decodeData(t *testing.T, rec *httptest.ResponseRecorder, dst any) {
	t.Helper()
	var envelope struct {
		Data json.RawMessage `json:"data"`
	}
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&envelope))
	require.NoError(t, json.Unmarshal(envelope.Data, dst))
}

func dec(s string) decimal.Decimal {
	return decimal.RequireFromString(s)
}

// =============================================================================
// Manager mocks
// =============================================================================

type mockCategoryManager struct{ mock.Mock }

var _ service.CategoryManager = (*mockCategoryManager)(nil)

func (m *mockCategoryManager) view(args mock.Arguments) (*domain.CategoryView, error) {
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.CategoryView), args.Error(1)
}

func (m *mockCategoryManager) GetByID(ctx context.Context, id string) (*domain.CategoryView, error) {
	return m.view(m.Called(ctx, id))
}

func (m *mockCategoryManager) GetByName(ctx context.Context, name string) (*domain.CategoryView, error) {
	return m.view(m.Called(ctx, name))
}

func (m *mockCategoryManager) GetAll(ctx context.Context) ([]domain.CategoryView, error) {
	args := m.Called(ctx)
	return args.Get(0).([]domain.CategoryView), args.Error(1)
}

func (m *mockCategoryManager) GetParent(ctx context.Context, childID string) (*domain.CategoryView, error) {
	return m.view(m.Called(ctx, childID))
}

func (m *mockCategoryManager) ListChildren(ctx context.Context, id string) ([]domain.CategoryView, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]domain.CategoryView), args.Error(1)
}

func (m *mockCategoryManager) Tree(ctx context.Context) ([]*domain.CategoryNode, error) {
	args := m.Called(ctx)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*domain.CategoryNode), args.Error(1)
}

func (m *mockCategoryManager) Insert(ctx context.Context, input service.InsertCategoryInput) (*domain.CategoryView, error) {
	return m.view(m.Called(ctx, input))
}

func (m *mockCategoryManager) Update(ctx context.Context, id string, input service.UpdateCategoryInput) (*domain.CategoryView, error) {
	return m.view(m.Called(ctx, id, input))
}

func (m *mockCategoryManager) Delete(ctx context.Context, id string) error {
	return m.Called(ctx, id).Error(0)
}

type mockProductManager struct{ mock.Mock }

var _ service.ProductManager = (*mockProductManager)(nil)

func (m *mockProductManager) product(args mock.Arguments) (*domain.Product, error) {
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.Product), args.Error(1)
}

func (m *mockProductManager) Create(ctx context.Context, input service.CreateProductInput) (*domain.Product, error) {
	return m.product(m.Called(ctx, input))
}

func (m *mockProductManager) Get(ctx context.Context, id string) (*domain.Product, error) {
	return m.product(m.Called(ctx, id))
}

func (m *mockProductManager) List(ctx context.Context, filter repository.ProductFilter) ([]domain.Product, int, error) {
	args := m.Called(ctx, filter)
	return args.Get(0).([]domain.Product), args.Int(1), args.Error(2)
}

func (m *mockProductManager) Update(ctx context.Context, id string, input service.UpdateProductInput) (*domain.Product, error) {
	return m.product(m.Called(ctx, id, input))
}

func (m *mockProductManager) Delete(ctx context.Context, id string) error {
	return m.Called(ctx, id).Error(0)
}

func (m *mockProductManager) Manufacturers(ctx context.Context, id string) ([]domain.Manufacturer, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]domain.Manufacturer), args.Error(1)
}

type mockManufacturerManager struct{ mock.Mock }

var _ service.ManufacturerManager = (*mockManufacturerManager)(nil)

func (m *mockManufacturerManager) manufacturer(args mock.Arguments) (*domain.Manufacturer, error) {
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.Manufacturer), args.Error(1)
}

func (m *mockManufacturerManager) Create(ctx context.Context, input service.CreateManufacturerInput) (*domain.Manufacturer, error) {
	return m.manufacturer(m.Called(ctx, input))
}

func (m *mockManufacturerManager) Get(ctx context.Context, id string) (*domain.Manufacturer, error) {
	return m.manufacturer(m.Called(ctx, id))
}

func (m *mockManufacturerManager) List(ctx context.Context, page, perPage int) ([]domain.Manufacturer, int, error) {
	args := m.Called(ctx, page, perPage)
	return args.Get(0).([]domain.Manufacturer), args.Int(1), args.Error(2)
}

func (m *mockManufacturerManager) Update(ctx context.Context, id string, input service.UpdateManufacturerInput) (*domain.Manufacturer, error) {
	return m.manufacturer(m.Called(ctx, id, input))
}

func (m *mockManufacturerManager) Delete(ctx context.Context, id string) error {
	return m.Called(ctx, id).Error(0)
}

func (m *mockManufacturerManager) AddProduct(ctx context.Context, manufacturerID, productID string) error {
	return m.Called(ctx, manufacturerID, productID).Error(0)
}

func (m *mockManufacturerManager) RemoveProduct(ctx context.Context, manufacturerID, productID string) error {
	return m.Called(ctx, manufacturerID, productID).Error(0)
}

func (m *mockManufacturerManager) Products(ctx context.Context, manufacturerID string) ([]domain.Product, error) {
	args := m.Called(ctx, manufacturerID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]domain.Product), args.Error(1)
}

type mockInvoiceManager struct{ mock.Mock }

var _ service.InvoiceManager = (*mockInvoiceManager)(nil)

func (m *mockInvoiceManager) invoice(args mock.Arguments) (*domain.Invoice, error) {
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.Invoice), args.Error(1)
}

func (m *mockInvoiceManager) Create(ctx context.Context, input service.CreateInvoiceInput) (*domain.Invoice, error) {
	return m.invoice(m.Called(ctx, input))
}

func (m *mockInvoiceManager) Get(ctx context.Context, id string) (*domain.Invoice, error) {
	return m.invoice(m.Called(ctx, id))
}

func (m *mockInvoiceManager) GetByIdentificationCode(ctx context.Context, code string) (*domain.Invoice, error) {
	return m.invoice(m.Called(ctx, code))
}

func (m *mockInvoiceManager) List(ctx context.Context, filter repository.InvoiceFilter) ([]domain.Invoice, int, error) {
	args := m.Called(ctx, filter)
	return args.Get(0).([]domain.Invoice), args.Int(1), args.Error(2)
}

func (m *mockInvoiceManager) Update(ctx context.Context, id string, input service.UpdateInvoiceInput) (*domain.Invoice, error) {
	return m.invoice(m.Called(ctx, id, input))
}

func (m *mockInvoiceManager) AssignProduct(ctx context.Context, invoiceID, productID string, count int) (bool, error) {
	args := m.Called(ctx, invoiceID, productID, count)
	return args.Bool(0), args.Error(1)
}

func (m *mockInvoiceManager) RemoveLineItem(ctx context.Context, invoiceID, productID string) (bool, error) {
	args := m.Called(ctx, invoiceID, productID)
	return args.Bool(0), args.Error(1)
}

func (m *mockInvoiceManager) ComputeTotal(ctx context.Context, invoiceID string) (decimal.Decimal, error) {
	args := m.Called(ctx, invoiceID)
	return args.Get(0).(decimal.Decimal), args.Error(1)
}

func (m *mockInvoiceManager) Pay(ctx context.Context, invoiceID string, tendered decimal.Decimal) (*domain.Invoice, error) {
	return m.invoice(m.Called(ctx, invoiceID, tendered))
}

func (m *mockInvoiceManager) Cancel(ctx context.Context, invoiceID string) (*domain.Invoice, error) {
	return m.invoice(m.Called(ctx, invoiceID))
}

func (m *mockInvoiceManager) Delete(ctx context.Context, invoiceID string) error {
	return m.Called(ctx, invoiceID).Error(0)
}

type mockUserManager struct{ mock.Mock }

var _ service.UserManager = (*mockUserManager)(nil)

func (m *mockUserManager) user(args mock.Arguments) (*domain.User, error) {
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.User), args.Error(1)
}

func (m *mockUserManager) Create(ctx context.Context, input service.CreateUserInput) (*domain.User, error) {
	return m.user(m.Called(ctx, input))
}

func (m *mockUserManager) Get(ctx context.Context, id string) (*domain.User, error) {
	return m.user(m.Called(ctx, id))
}

func (m *mockUserManager) GetByUsername(ctx context.Context, username string) (*domain.User, error) {
	return m.user(m.Called(ctx, username))
}

func (m *mockUserManager) List(ctx context.Context, page, perPage int) ([]domain.User, int, error) {
	args := m.Called(ctx, page, perPage)
	return args.Get(0).([]domain.User), args.Int(1), args.Error(2)
}

func (m *mockUserManager) Update(ctx context.Context, id string, input service.UpdateUserInput) (*domain.User, error) {
	return m.user(m.Called(ctx, id, input))
}

func (m *mockUserManager) Delete(ctx context.Context, id string) error {
	return m.Called(ctx, id).Error(0)
}

func (m *mockUserManager) AssignRole(ctx context.Context, userID, roleName string) (*domain.User, error) {
	return m.user(m.Called(ctx, userID, roleName))
}

func (m *mockUserManager) RemoveRole(ctx context.Context, userID, roleName string) (*domain.User, error) {
	return m.user(m.Called(ctx, userID, roleName))
}

func (m *mockUserManager) Authenticate(ctx context.Context, username, password string) (*auth.AccessToken, *domain.User, error) {
	args := m.Called(ctx, username, password)
	if args.Get(0) == nil {
		return nil, nil, args.Error(2)
	}
	return args.Get(0).(*auth.AccessToken), args.Get(1).(*domain.User), args.Error(2)
}

func (m *mockUserManager) Logout(ctx context.Context, tokenID string, expiresAt time.Time) error {
	return m.Called(ctx, tokenID, expiresAt).Error(0)
}

type mockRoleManager struct{ mock.Mock }

var _ service.RoleManager = (*mockRoleManager)(nil)

func (m *mockRoleManager) role(args mock.Arguments) (*domain.Role, error) {
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.Role), args.Error(1)
}

func (m *mockRoleManager) Create(ctx context.Context, name, description string) (*domain.Role, error) {
	return m.role(m.Called(ctx, name, description))
}

func (m *mockRoleManager) Get(ctx context.Context, id string) (*domain.Role, error) {
	return m.role(m.Called(ctx, id))
}

func (m *mockRoleManager) GetByName(ctx context.Context, name string) (*domain.Role, error) {
	return m.role(m.Called(ctx, name))
}

func (m *mockRoleManager) List(ctx context.Context) ([]domain.Role, error) {
	args := m.Called(ctx)
	return args.Get(0).([]domain.Role), args.Error(1)
}

func (m *mockRoleManager) Update(ctx context.Context, id string, name, description *string) (*domain.Role, error) {
	return m.role(m.Called(ctx, id, name, description))
}

func (m *mockRoleManager) Delete(ctx context.Context, id string) error {
	return m.Called(ctx, id).Error(0)
}
