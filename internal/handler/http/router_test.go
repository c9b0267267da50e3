package http

import (
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/utafrali/backoffice/internal/domain"
	"github.com/utafrali/backoffice/pkg/middleware"
)

func TestRouter_Health(t *testing.T) {
	router, _ := newTestRouter()

	rec := do(t, router, http.MethodGet, "/health/live", "", nil)
	assert.Equal(t, http.StatusOK, rec.Code)

	rec = do(t, router, http.MethodGet, "/health/ready", "", nil)
	assert.Equal(t, http.StatusOK, rec.Code)
}

func TestRouter_MetricsExposeRequests(t *testing.T) {
	router, _ := newTestRouter()

	do(t, router, http.MethodGet, "/health/live", "", nil)

	rec := do(t, router, http.MethodGet, "/metrics", "", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	body, err := io.ReadAll(rec.Body)
	require.NoError(t, err)
	assert.Contains(t, string(body), "http_requests_total")
	assert.Contains(t, string(body), `route="/health/live"`)
}

func TestRouter_Authorization(t *testing.T) {
	tests := []struct {
		name   string
		method string
		path   string
		token  string
		body   any
		status int
	}{
		{"no token", http.MethodGet, "/api/v1/categories", "", nil, http.StatusUnauthorized},
		{"bad token", http.MethodGet, "/api/v1/invoices", "forged", nil, http.StatusUnauthorized},
		{"customer insert category", http.MethodPost, "/api/v1/categories", customerToken, InsertCategoryRequest{Name: "Food", Kind: "Parent", ParentName: "Root"}, http.StatusForbidden},
		{"customer pays invoice", http.MethodPost, "/api/v1/invoices/" + invoiceID + "/pay", customerToken, PayInvoiceRequest{Amount: dec("1")}, http.StatusForbidden},
		{"customer lists users", http.MethodGet, "/api/v1/users", customerToken, nil, http.StatusForbidden},
		{"customer deletes role", http.MethodDelete, "/api/v1/roles/" + roleID, customerToken, nil, http.StatusForbidden},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			router, m := newTestRouter()

			rec := do(t, router, tt.method, tt.path, tt.token, tt.body)

			assert.Equal(t, tt.status, rec.Code)
			m.categories.AssertNotCalled(t, "Insert", mock.Anything, mock.Anything)
			m.invoices.AssertNotCalled(t, "Pay", mock.Anything, mock.Anything, mock.Anything)
		})
	}
}

func TestRouter_GrantedAdminReachesAdminRoutes(t *testing.T) {
	router, m := newTestRouter()
	m.roles.On("Delete", mock.Anything, roleID).Return(nil)
	m.users.On("List", mock.Anything, 1, 20).Return([]domain.User{}, 0, nil)

	rec := do(t, router, http.MethodDelete, "/api/v1/roles/"+roleID, grantedAdminToken, nil)
	assert.Equal(t, http.StatusNoContent, rec.Code)

	rec = do(t, router, http.MethodGet, "/api/v1/users", grantedAdminToken, nil)
	assert.Equal(t, http.StatusOK, rec.Code)
	m.roles.AssertExpectations(t)
}

func TestRouter_ReadsAllowedForAnyRole(t *testing.T) {
	router, m := newTestRouter()
	m.categories.On("GetAll", mock.Anything).Return([]domain.CategoryView{}, nil)

	rec := do(t, router, http.MethodGet, "/api/v1/categories", customerToken, nil)

	assert.Equal(t, http.StatusOK, rec.Code)
	m.categories.AssertExpectations(t)
}

func TestRouter_AccessTokenCookie(t *testing.T) {
	router, m := newTestRouter()
	m.roles.On("List", mock.Anything).Return([]domain.Role{{Name: domain.RoleAdmin}}, nil)

	req := httptest.NewRequest(http.MethodGet, "/api/v1/roles", nil)
	req.AddCookie(&http.Cookie{Name: middleware.AccessTokenCookie, Value: adminToken})
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusOK, rec.Code)
}

func TestRouter_RejectsNonJSONBody(t *testing.T) {
	router, _ := newTestRouter()

	req := httptest.NewRequest(http.MethodPost, "/api/v1/categories", strings.NewReader("name=Food"))
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	req.Header.Set("Authorization", "Bearer "+adminToken)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusUnsupportedMediaType, rec.Code)
}
