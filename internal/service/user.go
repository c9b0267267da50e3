package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/utafrali/backoffice/internal/auth"
	"github.com/utafrali/backoffice/internal/domain"
	"github.com/utafrali/backoffice/internal/repository"
	apperrors "github.com/utafrali/backoffice/pkg/errors"
	"github.com/utafrali/backoffice/pkg/logger"
)

// MinPasswordLength is the shortest password accepted for a user.
const MinPasswordLength = 8

const msgInvalidCredentials = "invalid username or password"

// UserManager owns user accounts, their roles and sign-in.
type UserManager interface {
	Create(ctx context.Context, input CreateUserInput) (*domain.User, error)
	Get(ctx context.Context, id string) (*domain.User, error)
	GetByUsername(ctx context.Context, username string) (*domain.User, error)
	List(ctx context.Context, page, perPage int) ([]domain.User, int, error)
	Update(ctx context.Context, id string, input UpdateUserInput) (*domain.User, error)
	Delete(ctx context.Context, id string) error
	AssignRole(ctx context.Context, userID, roleName string) (*domain.User, error)
	RemoveRole(ctx context.Context, userID, roleName string) (*domain.User, error)
	Authenticate(ctx context.Context, username, password string) (*auth.AccessToken, *domain.User, error)
	Logout(ctx context.Context, tokenID string, expiresAt time.Time) error
}

// CreateUserInput holds the parameters for creating a user. Roles are role
// names; none means Customer.
type CreateUserInput struct {
	Username  string
	Email     string
	Phone     string
	FirstName string
	LastName  string
	Password  string
	Roles     []string
}

// UpdateUserInput holds the parameters for updating a user. Nil fields are
// left as they are. The username cannot change.
type UpdateUserInput struct {
	Email     *string
	Phone     *string
	FirstName *string
	LastName  *string
	Password  *string
	IsActive  *bool
}

// UserService implements UserManager.
type UserService struct {
	repos    repository.Repositories
	tx       repository.Transactor
	tokens   *auth.JWTManager
	denylist repository.TokenDenylist
	logger   *slog.Logger

	hashPassword  func(string) (string, error)
	checkPassword func(hash, password string) (bool, error)
}

var _ UserManager = (*UserService)(nil)

// NewUserService creates a new user service. denylist may be nil, in which
// case Logout only logs.
func NewUserService(repos repository.Repositories, tx repository.Transactor, tokens *auth.JWTManager, denylist repository.TokenDenylist, logger *slog.Logger) *UserService {
	return &UserService{
		repos:         repos,
		tx:            tx,
		tokens:        tokens,
		denylist:      denylist,
		logger:        logger,
		hashPassword:  auth.HashPassword,
		checkPassword: auth.CheckPassword,
	}
}

// Create registers a user. Username, email and phone are probed first.
func (s *UserService) Create(ctx context.Context, input CreateUserInput) (*domain.User, error) {
	l := logger.Op(ctx, s.logger, "user.create")

	username := strings.TrimSpace(input.Username)
	if username == "" {
		return nil, apperrors.InvalidInput("username is required")
	}
	if len(input.Password) < MinPasswordLength {
		return nil, apperrors.InvalidInput(fmt.Sprintf("password must be at least %d characters", MinPasswordLength))
	}

	roles := input.Roles
	if len(roles) == 0 {
		roles = []string{domain.RoleCustomer}
	}

	now := time.Now().UTC()
	u := &domain.User{
		ID:        uuid.New().String(),
		Username:  username,
		Email:     strings.ToLower(strings.TrimSpace(input.Email)),
		Phone:     strings.TrimSpace(input.Phone),
		FirstName: strings.TrimSpace(input.FirstName),
		LastName:  strings.TrimSpace(input.LastName),
		IsActive:  true,
		CreatedAt: now,
		UpdatedAt: now,
	}

	if err := s.probeUnique(ctx, s.repos, u, nil); err != nil {
		return nil, err
	}

	hash, err := s.hashPassword(input.Password)
	if err != nil {
		return nil, fmt.Errorf("hash user password: %w", err)
	}
	u.PasswordHash = hash

	err = s.tx.WithinTx(ctx, func(ctx context.Context, repos repository.Repositories) error {
		if err := repos.Users.Create(ctx, u); err != nil {
			return fmt.Errorf("create user: %w", err)
		}
		for _, name := range roles {
			role, err := repos.Roles.GetByName(ctx, name)
			if err != nil {
				return fmt.Errorf("get role %q: %w", name, err)
			}
			if err := repos.Users.AssignRole(ctx, u.ID, role.ID); err != nil {
				return fmt.Errorf("assign role %q: %w", name, err)
			}
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	u.Roles = roles

	l.InfoContext(ctx, "user created",
		slog.String("user_id", u.ID),
		slog.Any("roles", roles),
	)
	return u, nil
}

func (s *UserService) probeUnique(ctx context.Context, repos repository.Repositories, u, current *domain.User) error {
	if current == nil {
		if err := probeAbsent(func() (*domain.User, error) {
			return repos.Users.GetByUsername(ctx, u.Username)
		}, domain.ErrUserNotFound, "user", "username", u.Username); err != nil {
			return err
		}
	}
	if u.Email != "" && (current == nil || u.Email != current.Email) {
		if err := probeAbsent(func() (*domain.User, error) {
			return repos.Users.GetByEmail(ctx, u.Email)
		}, domain.ErrUserNotFound, "user", "email", u.Email); err != nil {
			return err
		}
	}
	if u.Phone != "" && (current == nil || u.Phone != current.Phone) {
		if err := probeAbsent(func() (*domain.User, error) {
			return repos.Users.GetByPhone(ctx, u.Phone)
		}, domain.ErrUserNotFound, "user", "phone", u.Phone); err != nil {
			return err
		}
	}
	return nil
}

// Get returns a user by id.
func (s *UserService) Get(ctx context.Context, id string) (*domain.User, error) {
	u, err := s.repos.Users.GetByID(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("get user: %w", err)
	}
	return u, nil
}

// GetByUsername returns a user by username.
func (s *UserService) GetByUsername(ctx context.Context, username string) (*domain.User, error) {
	u, err := s.repos.Users.GetByUsername(ctx, username)
	if err != nil {
		return nil, fmt.Errorf("get user by username: %w", err)
	}
	return u, nil
}

// List returns a page of users.
func (s *UserService) List(ctx context.Context, page, perPage int) ([]domain.User, int, error) {
	users, total, err := s.repos.Users.List(ctx, page, perPage)
	if err != nil {
		return nil, 0, fmt.Errorf("list users: %w", err)
	}
	return users, total, nil
}

// Update applies the non-nil fields of input.
func (s *UserService) Update(ctx context.Context, id string, input UpdateUserInput) (*domain.User, error) {
	l := logger.Op(ctx, s.logger, "user.update").With(slog.String("user_id", id))

	var hash string
	if input.Password != nil {
		if len(*input.Password) < MinPasswordLength {
			return nil, apperrors.InvalidInput(fmt.Sprintf("password must be at least %d characters", MinPasswordLength))
		}
		var err error
		if hash, err = s.hashPassword(*input.Password); err != nil {
			return nil, fmt.Errorf("hash user password: %w", err)
		}
	}

	var u *domain.User
	err := s.tx.WithinTx(ctx, func(ctx context.Context, repos repository.Repositories) error {
		current, err := repos.Users.GetByID(ctx, id)
		if err != nil {
			return fmt.Errorf("get user: %w", err)
		}

		next := *current
		if input.Email != nil {
			next.Email = strings.ToLower(strings.TrimSpace(*input.Email))
		}
		if input.Phone != nil {
			next.Phone = strings.TrimSpace(*input.Phone)
		}
		if input.FirstName != nil {
			next.FirstName = strings.TrimSpace(*input.FirstName)
		}
		if input.LastName != nil {
			next.LastName = strings.TrimSpace(*input.LastName)
		}
		if input.IsActive != nil {
			next.IsActive = *input.IsActive
		}
		if hash != "" {
			next.PasswordHash = hash
		}

		if err := s.probeUnique(ctx, repos, &next, current); err != nil {
			return err
		}
		if err := repos.Users.Update(ctx, &next); err != nil {
			return fmt.Errorf("update user: %w", err)
		}
		u = &next
		return nil
	})
	if err != nil {
		return nil, err
	}

	l.InfoContext(ctx, "user updated", slog.Bool("password_changed", hash != ""))
	return u, nil
}

// Delete removes a user. Accounts owned by a manufacturer go with the
// manufacturer instead.
func (s *UserService) Delete(ctx context.Context, id string) error {
	if err := s.repos.Users.Delete(ctx, id); err != nil {
		return fmt.Errorf("delete user: %w", err)
	}
	logger.Op(ctx, s.logger, "user.delete").InfoContext(ctx, "user deleted", slog.String("user_id", id))
	return nil
}

// AssignRole grants the named role and returns the updated user.
func (s *UserService) AssignRole(ctx context.Context, userID, roleName string) (*domain.User, error) {
	l := logger.Op(ctx, s.logger, "user.assign_role").With(slog.String("user_id", userID))

	var u *domain.User
	err := s.tx.WithinTx(ctx, func(ctx context.Context, repos repository.Repositories) error {
		if _, err := repos.Users.GetByID(ctx, userID); err != nil {
			return fmt.Errorf("get user: %w", err)
		}
		role, err := repos.Roles.GetByName(ctx, roleName)
		if err != nil {
			return fmt.Errorf("get role: %w", err)
		}
		if err := repos.Users.AssignRole(ctx, userID, role.ID); err != nil {
			return fmt.Errorf("assign role: %w", err)
		}
		u, err = repos.Users.GetByID(ctx, userID)
		return err
	})
	if err != nil {
		return nil, err
	}

	l.InfoContext(ctx, "role assigned", slog.String("role", roleName))
	return u, nil
}

// RemoveRole revokes the named role and returns the updated user.
func (s *UserService) RemoveRole(ctx context.Context, userID, roleName string) (*domain.User, error) {
	l := logger.Op(ctx, s.logger, "user.remove_role").With(slog.String("user_id", userID))

	var u *domain.User
	err := s.tx.WithinTx(ctx, func(ctx context.Context, repos repository.Repositories) error {
		if _, err := repos.Users.GetByID(ctx, userID); err != nil {
			return fmt.Errorf("get user: %w", err)
		}
		role, err := repos.Roles.GetByName(ctx, roleName)
		if err != nil {
			return fmt.Errorf("get role: %w", err)
		}
		removed, err := repos.Users.RemoveRole(ctx, userID, role.ID)
		if err != nil {
			return fmt.Errorf("remove role: %w", err)
		}
		if !removed {
			return apperrors.NotFoundOf(domain.ErrAssociationNotFound, "user role", "name", roleName)
		}
		u, err = repos.Users.GetByID(ctx, userID)
		return err
	})
	if err != nil {
		return nil, err
	}

	l.InfoContext(ctx, "role removed", slog.String("role", roleName))
	return u, nil
}

// Authenticate checks the credentials and issues an access token carrying
// the user's primary role. Unknown users, wrong passwords and inactive
// accounts all fail the same way.
func (s *UserService) Authenticate(ctx context.Context, username, password string) (*auth.AccessToken, *domain.User, error) {
	l := logger.Op(ctx, s.logger, "user.authenticate")

	u, err := s.repos.Users.GetByUsername(ctx, strings.TrimSpace(username))
	if err != nil {
		if errors.Is(err, domain.ErrUserNotFound) {
			l.WarnContext(ctx, "login failed", slog.String("reason", "unknown user"))
			return nil, nil, apperrors.Unauthorized(msgInvalidCredentials)
		}
		return nil, nil, fmt.Errorf("get user by username: %w", err)
	}

	ok, err := s.checkPassword(u.PasswordHash, password)
	if err != nil {
		return nil, nil, fmt.Errorf("check user password: %w", err)
	}
	if !ok || !u.IsActive {
		l.WarnContext(ctx, "login failed",
			slog.String("user_id", u.ID),
			slog.Bool("active", u.IsActive),
		)
		return nil, nil, apperrors.Unauthorized(msgInvalidCredentials)
	}

	token, err := s.tokens.GenerateAccessToken(u.ID, u.Username, u.TokenRoles())
	if err != nil {
		return nil, nil, fmt.Errorf("issue access token: %w", err)
	}

	l.InfoContext(ctx, "user logged in", slog.String("user_id", u.ID))
	return token, u, nil
}

// Logout revokes the token until it would have expired anyway.
func (s *UserService) Logout(ctx context.Context, tokenID string, expiresAt time.Time) error {
	l := logger.Op(ctx, s.logger, "user.logout")
	if s.denylist == nil || tokenID == "" {
		l.InfoContext(ctx, "logout without revocation")
		return nil
	}
	if err := s.denylist.Revoke(ctx, tokenID, expiresAt); err != nil {
		return fmt.Errorf("revoke token: %w", err)
	}
	l.InfoContext(ctx, "token revoked")
	return nil
}
