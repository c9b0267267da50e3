package main

import (
	"context"
	"io"
	"log/slog"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/utafrali/backoffice/internal/domain"
	"github.com/utafrali/backoffice/internal/repository"
	"github.com/utafrali/backoffice/internal/service"
	apperrors "github.com/utafrali/backoffice/pkg/errors"
)

// The stubs embed the manager interfaces and override only what the seeder
// calls; anything else panics.

type stubUsers struct {
	service.UserManager
	created []service.CreateUserInput
	err     error
}

func (s *stubUsers) Create(_ context.Context, in service.CreateUserInput) (*domain.User, error) {
	s.created = append(s.created, in)
	if s.err != nil {
		return nil, s.err
	}
	return &domain.User{Username: in.Username, Roles: in.Roles}, nil
}

type stubCategories struct {
	service.CategoryManager
	inserted []string
	existing map[string]bool
}

func (s *stubCategories) Insert(_ context.Context, in service.InsertCategoryInput) (*domain.CategoryView, error) {
	if s.existing[in.Name] {
		return nil, apperrors.AlreadyExists("category", "name", in.Name)
	}
	s.inserted = append(s.inserted, in.Name)
	return &domain.CategoryView{Category: domain.Category{Name: in.Name, Kind: in.Kind}}, nil
}

type stubProducts struct {
	service.ProductManager
	total   int
	created []service.CreateProductInput
}

func (s *stubProducts) List(context.Context, repository.ProductFilter) ([]domain.Product, int, error) {
	return nil, s.total, nil
}

func (s *stubProducts) Create(_ context.Context, in service.CreateProductInput) (*domain.Product, error) {
	s.created = append(s.created, in)
	return &domain.Product{Name: in.Name}, nil
}

func newTestSeeder() (*seeder, *stubUsers, *stubCategories, *stubProducts) {
	users := &stubUsers{}
	categories := &stubCategories{existing: map[string]bool{}}
	products := &stubProducts{}
	return &seeder{
		users:      users,
		categories: categories,
		products:   products,
		logger:     slog.New(slog.NewTextHandler(io.Discard, nil)),
	}, users, categories, products
}

func TestSeeder_Admin(t *testing.T) {
	s, users, _, _ := newTestSeeder()

	err := s.admin(context.Background(), seedConfig{AdminUsername: "admin", AdminPassword: "correct-horse"})
	require.NoError(t, err)
	require.Len(t, users.created, 1)
	assert.Equal(t, []string{domain.RoleAdmin}, users.created[0].Roles)
}

func TestSeeder_Admin_AlreadyExists(t *testing.T) {
	s, users, _, _ := newTestSeeder()
	users.err = apperrors.AlreadyExists("user", "username", "admin")

	err := s.admin(context.Background(), seedConfig{AdminUsername: "admin", AdminPassword: "correct-horse"})
	assert.NoError(t, err)
}

func TestSeeder_Admin_Failure(t *testing.T) {
	s, users, _, _ := newTestSeeder()
	users.err = apperrors.InvalidInput("password must be at least 8 characters")

	err := s.admin(context.Background(), seedConfig{AdminUsername: "admin", AdminPassword: "short"})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "create admin")
}

func TestSeeder_Catalog(t *testing.T) {
	s, _, categories, products := newTestSeeder()

	require.NoError(t, s.catalog(context.Background()))
	assert.Equal(t, []string{"Food", "Dairy", "Bakery", "Beverages", "Juice"}, categories.inserted)
	require.Len(t, products.created, len(sampleProducts))
	for _, p := range products.created {
		assert.True(t, p.ExpiryDate.After(p.ProductionDate), p.Name)
	}
}

func TestSeeder_Catalog_Rerun(t *testing.T) {
	s, _, categories, products := newTestSeeder()
	categories.existing["Food"] = true
	products.total = 4

	require.NoError(t, s.catalog(context.Background()))
	assert.NotContains(t, categories.inserted, "Food")
	assert.Empty(t, products.created)
}
