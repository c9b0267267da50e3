package service

import (
	"context"
	"fmt"
	"log/slog"
	"slices"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/utafrali/backoffice/internal/domain"
	"github.com/utafrali/backoffice/internal/repository"
	apperrors "github.com/utafrali/backoffice/pkg/errors"
	"github.com/utafrali/backoffice/pkg/logger"
)

var seededRoles = []string{domain.RoleAdmin, domain.RoleManufacturer, domain.RoleCustomer}

// RoleManager owns roles.
type RoleManager interface {
	Create(ctx context.Context, name, description string) (*domain.Role, error)
	Get(ctx context.Context, id string) (*domain.Role, error)
	GetByName(ctx context.Context, name string) (*domain.Role, error)
	List(ctx context.Context) ([]domain.Role, error)
	Update(ctx context.Context, id string, name, description *string) (*domain.Role, error)
	Delete(ctx context.Context, id string) error
}

// RoleService implements RoleManager.
type RoleService struct {
	repos  repository.Repositories
	logger *slog.Logger
}

var _ RoleManager = (*RoleService)(nil)

// NewRoleService creates a new role service.
func NewRoleService(repos repository.Repositories, logger *slog.Logger) *RoleService {
	return &RoleService{repos: repos, logger: logger}
}

// Create adds a role after probing its name.
func (s *RoleService) Create(ctx context.Context, name, description string) (*domain.Role, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return nil, apperrors.InvalidInput("role name is required")
	}

	if err := probeAbsent(func() (*domain.Role, error) {
		return s.repos.Roles.GetByName(ctx, name)
	}, domain.ErrRoleNotFound, "role", "name", name); err != nil {
		return nil, err
	}

	now := time.Now().UTC()
	role := &domain.Role{
		ID:          uuid.New().String(),
		Name:        name,
		Description: strings.TrimSpace(description),
		CreatedAt:   now,
		UpdatedAt:   now,
	}
	if err := s.repos.Roles.Create(ctx, role); err != nil {
		return nil, fmt.Errorf("create role: %w", err)
	}

	logger.Op(ctx, s.logger, "role.create").InfoContext(ctx, "role created",
		slog.String("role_id", role.ID),
		slog.String("name", role.Name),
	)
	return role, nil
}

// Get returns a role by id.
func (s *RoleService) Get(ctx context.Context, id string) (*domain.Role, error) {
	role, err := s.repos.Roles.GetByID(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("get role: %w", err)
	}
	return role, nil
}

// GetByName returns a role by name.
func (s *RoleService) GetByName(ctx context.Context, name string) (*domain.Role, error) {
	role, err := s.repos.Roles.GetByName(ctx, name)
	if err != nil {
		return nil, fmt.Errorf("get role by name: %w", err)
	}
	return role, nil
}

// List returns all roles.
func (s *RoleService) List(ctx context.Context) ([]domain.Role, error) {
	roles, err := s.repos.Roles.List(ctx)
	if err != nil {
		return nil, fmt.Errorf("list roles: %w", err)
	}
	return roles, nil
}

// Update renames a role or changes its description. Seeded roles keep their
// names.
func (s *RoleService) Update(ctx context.Context, id string, name, description *string) (*domain.Role, error) {
	role, err := s.repos.Roles.GetByID(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("get role: %w", err)
	}

	if name != nil {
		next := strings.TrimSpace(*name)
		if next == "" {
			return nil, apperrors.InvalidInput("role name is required")
		}
		if next != role.Name {
			if slices.Contains(seededRoles, role.Name) {
				return nil, apperrors.Guard(nil, fmt.Sprintf("built-in role %q cannot be renamed", role.Name))
			}
			if err := probeAbsent(func() (*domain.Role, error) {
				return s.repos.Roles.GetByName(ctx, next)
			}, domain.ErrRoleNotFound, "role", "name", next); err != nil {
				return nil, err
			}
			role.Name = next
		}
	}
	if description != nil {
		role.Description = strings.TrimSpace(*description)
	}

	if err := s.repos.Roles.Update(ctx, role); err != nil {
		return nil, fmt.Errorf("update role: %w", err)
	}

	logger.Op(ctx, s.logger, "role.update").InfoContext(ctx, "role updated", slog.String("role_id", id))
	return role, nil
}

// Delete removes a role and its assignments. Seeded roles cannot be deleted.
func (s *RoleService) Delete(ctx context.Context, id string) error {
	role, err := s.repos.Roles.GetByID(ctx, id)
	if err != nil {
		return fmt.Errorf("get role: %w", err)
	}
	if slices.Contains(seededRoles, role.Name) {
		return apperrors.Guard(nil, fmt.Sprintf("built-in role %q cannot be deleted", role.Name))
	}
	if err := s.repos.Roles.Delete(ctx, id); err != nil {
		return fmt.Errorf("delete role: %w", err)
	}

	logger.Op(ctx, s.logger, "role.delete").InfoContext(ctx, "role deleted", slog.String("role_id", id))
	return nil
}
