package middleware

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func staticValidator(valid string, claims *Claims) TokenValidator {
	return func(_ context.Context, token string) (*Claims, error) {
		if token != valid {
			return nil, errors.New("bad token")
		}
		return claims, nil
	}
}

func TestAuth(t *testing.T) {
	claims := &Claims{UserID: "u-1", Username: "admin", Roles: []string{"Admin"}, TokenID: "jti-1"}
	validate := staticValidator("good", claims)

	tests := []struct {
		name    string
		prepare func(r *http.Request)
		status  int
	}{
		{"bearer header", func(r *http.Request) { r.Header.Set("Authorization", "Bearer good") }, http.StatusOK},
		{"lowercase scheme", func(r *http.Request) { r.Header.Set("Authorization", "bearer good") }, http.StatusOK},
		{"cookie", func(r *http.Request) { r.AddCookie(&http.Cookie{Name: AccessTokenCookie, Value: "good"}) }, http.StatusOK},
		{"missing", func(r *http.Request) {}, http.StatusUnauthorized},
		{"malformed header", func(r *http.Request) { r.Header.Set("Authorization", "Token good") }, http.StatusUnauthorized},
		{"invalid token", func(r *http.Request) { r.Header.Set("Authorization", "Bearer nope") }, http.StatusUnauthorized},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var got *Claims
			handler := Auth(validate)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				got = ClaimsFromContext(r.Context())
				w.WriteHeader(http.StatusOK)
			}))

			req := httptest.NewRequest(http.MethodGet, "/", nil)
			tt.prepare(req)
			rr := httptest.NewRecorder()
			handler.ServeHTTP(rr, req)

			assert.Equal(t, tt.status, rr.Code)
			if tt.status == http.StatusOK {
				require.NotNil(t, got)
				assert.Equal(t, "u-1", got.UserID)
			} else {
				assert.Nil(t, got)
				assert.Contains(t, rr.Body.String(), "UNAUTHORIZED")
			}
		})
	}
}

func TestRequireRole(t *testing.T) {
	tests := []struct {
		name   string
		claims *Claims
		status int
	}{
		{"allowed", &Claims{UserID: "u-1", Roles: []string{"Admin"}}, http.StatusOK},
		{"wrong role", &Claims{UserID: "u-2", Roles: []string{"Customer"}}, http.StatusForbidden},
		{"one of several roles", &Claims{UserID: "u-3", Roles: []string{"Customer", "Manufacturer"}}, http.StatusOK},
		{"no roles", &Claims{UserID: "u-4"}, http.StatusForbidden},
		{"anonymous", nil, http.StatusUnauthorized},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			handler := RequireRole("Admin", "Manufacturer")(okHandler())

			req := httptest.NewRequest(http.MethodGet, "/", nil)
			if tt.claims != nil {
				req = req.WithContext(WithClaims(req.Context(), tt.claims))
			}
			rr := httptest.NewRecorder()
			handler.ServeHTTP(rr, req)

			assert.Equal(t, tt.status, rr.Code)
		})
	}
}

func TestContextAccessors_Empty(t *testing.T) {
	ctx := context.Background()
	assert.Nil(t, ClaimsFromContext(ctx))
	assert.Empty(t, UserIDFromContext(ctx))
	assert.Empty(t, RolesFromContext(ctx))

	ctx = WithClaims(ctx, &Claims{UserID: "u-9", Roles: []string{"Customer"}})
	assert.Equal(t, "u-9", UserIDFromContext(ctx))
	assert.Equal(t, []string{"Customer"}, RolesFromContext(ctx))
}
