package service

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/utafrali/backoffice/internal/auth"
	"github.com/utafrali/backoffice/internal/domain"
	"github.com/utafrali/backoffice/internal/event"
	"github.com/utafrali/backoffice/internal/repository"
	apperrors "github.com/utafrali/backoffice/pkg/errors"
	"github.com/utafrali/backoffice/pkg/logger"
)

// ManufacturerManager owns manufacturers and the products they supply.
type ManufacturerManager interface {
	Create(ctx context.Context, input CreateManufacturerInput) (*domain.Manufacturer, error)
	Get(ctx context.Context, id string) (*domain.Manufacturer, error)
	List(ctx context.Context, page, perPage int) ([]domain.Manufacturer, int, error)
	Update(ctx context.Context, id string, input UpdateManufacturerInput) (*domain.Manufacturer, error)
	Delete(ctx context.Context, id string) error
	AddProduct(ctx context.Context, manufacturerID, productID string) error
	RemoveProduct(ctx context.Context, manufacturerID, productID string) error
	Products(ctx context.Context, manufacturerID string) ([]domain.Product, error)
}

// CreateManufacturerInput holds the parameters for creating a manufacturer.
type CreateManufacturerInput struct {
	Name          string
	OwnerName     string
	Country       string
	Email         string
	Address       string
	Phone         string
	Rate          int
	EstablishDate time.Time
	IsActive      bool
}

// UpdateManufacturerInput holds the parameters for updating a manufacturer.
// Nil fields are left as they are.
type UpdateManufacturerInput struct {
	Name          *string
	OwnerName     *string
	Country       *string
	Email         *string
	Address       *string
	Phone         *string
	Rate          *int
	EstablishDate *time.Time
	IsActive      *bool
}

// ManufacturerService implements ManufacturerManager.
type ManufacturerService struct {
	repos        repository.Repositories
	tx           repository.Transactor
	producer     *event.Producer
	logger       *slog.Logger
	hashPassword func(string) (string, error)
}

var _ ManufacturerManager = (*ManufacturerService)(nil)

// NewManufacturerService creates a new manufacturer service.
func NewManufacturerService(repos repository.Repositories, tx repository.Transactor, producer *event.Producer, logger *slog.Logger) *ManufacturerService {
	return &ManufacturerService{
		repos:        repos,
		tx:           tx,
		producer:     producer,
		logger:       logger,
		hashPassword: auth.HashPassword,
	}
}

func checkRate(rate int) error {
	if rate < domain.MinManufacturerRate || rate > domain.MaxManufacturerRate {
		return apperrors.InvalidInput(fmt.Sprintf("rate must be between %d and %d", domain.MinManufacturerRate, domain.MaxManufacturerRate))
	}
	return nil
}

// Create registers a manufacturer together with its sign-in account. The
// account uses the email as username, the phone as initial password and
// holds the Manufacturer role. Email, address and phone are probed first.
func (s *ManufacturerService) Create(ctx context.Context, input CreateManufacturerInput) (*domain.Manufacturer, error) {
	l := logger.Op(ctx, s.logger, "manufacturer.create")

	if strings.TrimSpace(input.Name) == "" {
		return nil, apperrors.InvalidInput("manufacturer name is required")
	}
	if err := checkRate(input.Rate); err != nil {
		return nil, err
	}

	now := time.Now().UTC()
	m := &domain.Manufacturer{
		ID:            uuid.New().String(),
		Name:          strings.TrimSpace(input.Name),
		OwnerName:     strings.TrimSpace(input.OwnerName),
		Country:       strings.TrimSpace(input.Country),
		Email:         strings.ToLower(strings.TrimSpace(input.Email)),
		Address:       strings.TrimSpace(input.Address),
		Phone:         strings.TrimSpace(input.Phone),
		Rate:          input.Rate,
		EstablishDate: input.EstablishDate.UTC(),
		IsActive:      input.IsActive,
		CreatedAt:     now,
		UpdatedAt:     now,
	}

	if err := s.probeUnique(ctx, s.repos, m, nil); err != nil {
		return nil, err
	}

	hash, err := s.hashPassword(m.Phone)
	if err != nil {
		return nil, fmt.Errorf("hash manufacturer password: %w", err)
	}

	account := &domain.User{
		ID:           uuid.New().String(),
		Username:     m.Email,
		Email:        m.Email,
		Phone:        m.Phone,
		FirstName:    m.OwnerName,
		LastName:     m.Name,
		PasswordHash: hash,
		IsActive:     true,
		Roles:        []string{domain.RoleManufacturer},
		CreatedAt:    now,
		UpdatedAt:    now,
	}
	m.UserID = &account.ID

	err = s.tx.WithinTx(ctx, func(ctx context.Context, repos repository.Repositories) error {
		if err := repos.Users.Create(ctx, account); err != nil {
			return fmt.Errorf("create manufacturer account: %w", err)
		}
		role, err := repos.Roles.GetByName(ctx, domain.RoleManufacturer)
		if err != nil {
			return fmt.Errorf("get manufacturer role: %w", err)
		}
		if err := repos.Users.AssignRole(ctx, account.ID, role.ID); err != nil {
			return fmt.Errorf("assign manufacturer role: %w", err)
		}
		if err := repos.Manufacturers.Create(ctx, m); err != nil {
			return fmt.Errorf("create manufacturer: %w", err)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	logPublishFailure(ctx, l, "manufacturer.created", s.producer.PublishManufacturer(ctx, event.ActionCreated, m))

	l.InfoContext(ctx, "manufacturer created",
		slog.String("manufacturer_id", m.ID),
		slog.String("user_id", account.ID),
	)
	return m, nil
}

// probeUnique checks email, address and phone against other manufacturers.
// When current is set, only fields that differ from it are probed.
func (s *ManufacturerService) probeUnique(ctx context.Context, repos repository.Repositories, m, current *domain.Manufacturer) error {
	if current == nil || m.Email != current.Email {
		if err := probeAbsent(func() (*domain.Manufacturer, error) {
			return repos.Manufacturers.GetByEmail(ctx, m.Email)
		}, domain.ErrManufacturerNotFound, "manufacturer", "email", m.Email); err != nil {
			return err
		}
	}
	if current == nil || m.Address != current.Address {
		if err := probeAbsent(func() (*domain.Manufacturer, error) {
			return repos.Manufacturers.GetByAddress(ctx, m.Address)
		}, domain.ErrManufacturerNotFound, "manufacturer", "address", m.Address); err != nil {
			return err
		}
	}
	if current == nil || m.Phone != current.Phone {
		if err := probeAbsent(func() (*domain.Manufacturer, error) {
			return repos.Manufacturers.GetByPhone(ctx, m.Phone)
		}, domain.ErrManufacturerNotFound, "manufacturer", "phone", m.Phone); err != nil {
			return err
		}
	}
	return nil
}

// Get returns a manufacturer by id.
func (s *ManufacturerService) Get(ctx context.Context, id string) (*domain.Manufacturer, error) {
	m, err := s.repos.Manufacturers.GetByID(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("get manufacturer: %w", err)
	}
	return m, nil
}

// List returns a page of manufacturers.
func (s *ManufacturerService) List(ctx context.Context, page, perPage int) ([]domain.Manufacturer, int, error) {
	ms, total, err := s.repos.Manufacturers.List(ctx, page, perPage)
	if err != nil {
		return nil, 0, fmt.Errorf("list manufacturers: %w", err)
	}
	return ms, total, nil
}

// Update applies the non-nil fields of input. Changed unique fields are
// probed before the write. A new email or phone is carried over to the
// linked account in the same transaction, so the email stays the username.
// The account password is left alone.
func (s *ManufacturerService) Update(ctx context.Context, id string, input UpdateManufacturerInput) (*domain.Manufacturer, error) {
	l := logger.Op(ctx, s.logger, "manufacturer.update").With(slog.String("manufacturer_id", id))

	var m *domain.Manufacturer
	err := s.tx.WithinTx(ctx, func(ctx context.Context, repos repository.Repositories) error {
		current, err := repos.Manufacturers.GetByID(ctx, id)
		if err != nil {
			return fmt.Errorf("get manufacturer: %w", err)
		}

		next := *current
		if input.Name != nil {
			if next.Name = strings.TrimSpace(*input.Name); next.Name == "" {
				return apperrors.InvalidInput("manufacturer name is required")
			}
		}
		if input.OwnerName != nil {
			next.OwnerName = strings.TrimSpace(*input.OwnerName)
		}
		if input.Country != nil {
			next.Country = strings.TrimSpace(*input.Country)
		}
		if input.Email != nil {
			next.Email = strings.ToLower(strings.TrimSpace(*input.Email))
		}
		if input.Address != nil {
			next.Address = strings.TrimSpace(*input.Address)
		}
		if input.Phone != nil {
			next.Phone = strings.TrimSpace(*input.Phone)
		}
		if input.Rate != nil {
			if err := checkRate(*input.Rate); err != nil {
				return err
			}
			next.Rate = *input.Rate
		}
		if input.EstablishDate != nil {
			next.EstablishDate = input.EstablishDate.UTC()
		}
		if input.IsActive != nil {
			next.IsActive = *input.IsActive
		}

		if err := s.probeUnique(ctx, repos, &next, current); err != nil {
			return err
		}
		if err := repos.Manufacturers.Update(ctx, &next); err != nil {
			return fmt.Errorf("update manufacturer: %w", err)
		}
		if err := syncAccount(ctx, repos, &next, current); err != nil {
			return err
		}
		m = &next
		return nil
	})
	if err != nil {
		return nil, err
	}

	l.InfoContext(ctx, "manufacturer updated")
	return m, nil
}

// syncAccount copies a changed email or phone onto the manufacturer's account.
func syncAccount(ctx context.Context, repos repository.Repositories, next, current *domain.Manufacturer) error {
	if next.UserID == nil || (next.Email == current.Email && next.Phone == current.Phone) {
		return nil
	}
	account, err := repos.Users.GetByID(ctx, *next.UserID)
	if err != nil {
		return fmt.Errorf("get manufacturer account: %w", err)
	}
	if next.Email != current.Email {
		account.Username = next.Email
		account.Email = next.Email
	}
	if next.Phone != current.Phone {
		account.Phone = next.Phone
	}
	if err := repos.Users.Update(ctx, account); err != nil {
		return fmt.Errorf("update manufacturer account: %w", err)
	}
	return nil
}

// Delete removes a manufacturer without products, along with its account.
func (s *ManufacturerService) Delete(ctx context.Context, id string) error {
	l := logger.Op(ctx, s.logger, "manufacturer.delete").With(slog.String("manufacturer_id", id))

	var m *domain.Manufacturer
	err := s.tx.WithinTx(ctx, func(ctx context.Context, repos repository.Repositories) error {
		var err error
		m, err = repos.Manufacturers.GetByID(ctx, id)
		if err != nil {
			return fmt.Errorf("get manufacturer: %w", err)
		}

		n, err := repos.Manufacturers.CountProducts(ctx, id)
		if err != nil {
			return fmt.Errorf("count manufacturer products: %w", err)
		}
		if n > 0 {
			return apperrors.Guard(domain.ErrManufacturerHasProducts,
				fmt.Sprintf("cannot delete a manufacturer that still has %d products", n))
		}

		if err := repos.Manufacturers.Delete(ctx, id); err != nil {
			return fmt.Errorf("delete manufacturer: %w", err)
		}
		if m.UserID != nil {
			if err := repos.Users.Delete(ctx, *m.UserID); err != nil {
				return fmt.Errorf("delete manufacturer account: %w", err)
			}
		}
		return nil
	})
	if err != nil {
		return err
	}

	logPublishFailure(ctx, l, "manufacturer.deleted", s.producer.PublishManufacturer(ctx, event.ActionDeleted, m))

	l.InfoContext(ctx, "manufacturer deleted")
	return nil
}

// AddProduct links a product to the manufacturer. An existing link is an
// error.
func (s *ManufacturerService) AddProduct(ctx context.Context, manufacturerID, productID string) error {
	l := logger.Op(ctx, s.logger, "manufacturer.add_product").With(
		slog.String("manufacturer_id", manufacturerID),
		slog.String("product_id", productID),
	)

	if _, err := s.repos.Manufacturers.GetByID(ctx, manufacturerID); err != nil {
		return fmt.Errorf("get manufacturer: %w", err)
	}
	if _, err := s.repos.Products.GetByID(ctx, productID); err != nil {
		return fmt.Errorf("get product: %w", err)
	}

	linked, err := s.repos.Manufacturers.HasProduct(ctx, manufacturerID, productID)
	if err != nil {
		return fmt.Errorf("check manufacturer product: %w", err)
	}
	if linked {
		return apperrors.DuplicateAssociation("product "+productID, "manufacturer "+manufacturerID)
	}

	if err := s.repos.Manufacturers.AddProduct(ctx, manufacturerID, productID); err != nil {
		return fmt.Errorf("add manufacturer product: %w", err)
	}

	l.InfoContext(ctx, "product linked to manufacturer")
	return nil
}

// RemoveProduct unlinks a product from the manufacturer.
func (s *ManufacturerService) RemoveProduct(ctx context.Context, manufacturerID, productID string) error {
	l := logger.Op(ctx, s.logger, "manufacturer.remove_product").With(
		slog.String("manufacturer_id", manufacturerID),
		slog.String("product_id", productID),
	)

	if _, err := s.repos.Manufacturers.GetByID(ctx, manufacturerID); err != nil {
		return fmt.Errorf("get manufacturer: %w", err)
	}

	removed, err := s.repos.Manufacturers.RemoveProduct(ctx, manufacturerID, productID)
	if err != nil {
		return fmt.Errorf("remove manufacturer product: %w", err)
	}
	if !removed {
		return apperrors.NotFoundOf(domain.ErrAssociationNotFound, "manufacturer product", "product_id", productID)
	}

	l.InfoContext(ctx, "product unlinked from manufacturer")
	return nil
}

// Products lists the products a manufacturer supplies.
func (s *ManufacturerService) Products(ctx context.Context, manufacturerID string) ([]domain.Product, error) {
	if _, err := s.repos.Manufacturers.GetByID(ctx, manufacturerID); err != nil {
		return nil, fmt.Errorf("get manufacturer: %w", err)
	}
	products, err := s.repos.Manufacturers.ListProducts(ctx, manufacturerID)
	if err != nil {
		return nil, fmt.Errorf("list manufacturer products: %w", err)
	}
	return products, nil
}
