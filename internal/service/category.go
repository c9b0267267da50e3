package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/utafrali/backoffice/internal/domain"
	"github.com/utafrali/backoffice/internal/event"
	"github.com/utafrali/backoffice/internal/repository"
	apperrors "github.com/utafrali/backoffice/pkg/errors"
	"github.com/utafrali/backoffice/pkg/logger"
)

// CategoryManager owns the category tree.
type CategoryManager interface {
	GetByID(ctx context.Context, id string) (*domain.CategoryView, error)
	GetByName(ctx context.Context, name string) (*domain.CategoryView, error)
	GetAll(ctx context.Context) ([]domain.CategoryView, error)
	GetParent(ctx context.Context, childID string) (*domain.CategoryView, error)
	ListChildren(ctx context.Context, id string) ([]domain.CategoryView, error)
	Tree(ctx context.Context) ([]*domain.CategoryNode, error)
	Insert(ctx context.Context, input InsertCategoryInput) (*domain.CategoryView, error)
	Update(ctx context.Context, id string, input UpdateCategoryInput) (*domain.CategoryView, error)
	Delete(ctx context.Context, id string) error
}

// InsertCategoryInput holds the parameters for inserting a category.
// ParentName "Root" inserts a root.
type InsertCategoryInput struct {
	Name       string
	Kind       domain.CategoryKind
	ParentName string
}

// UpdateCategoryInput holds the parameters for updating a category. An empty
// ParentName keeps the current parent; "Root" detaches the node to a root.
type UpdateCategoryInput struct {
	Name       string
	Kind       domain.CategoryKind
	ParentName string
}

// CategoryService implements CategoryManager.
type CategoryService struct {
	repos    repository.Repositories
	tx       repository.Transactor
	producer *event.Producer
	logger   *slog.Logger
}

var _ CategoryManager = (*CategoryService)(nil)

// NewCategoryService creates a new category service.
func NewCategoryService(repos repository.Repositories, tx repository.Transactor, producer *event.Producer, logger *slog.Logger) *CategoryService {
	return &CategoryService{
		repos:    repos,
		tx:       tx,
		producer: producer,
		logger:   logger,
	}
}

// GetByID returns the category with its resolved parent name and path.
func (s *CategoryService) GetByID(ctx context.Context, id string) (*domain.CategoryView, error) {
	c, err := s.repos.Categories.GetByID(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("get category by id: %w", err)
	}
	return resolveView(ctx, s.repos.Categories, c)
}

// GetByName returns the category named name with its resolved ancestry.
func (s *CategoryService) GetByName(ctx context.Context, name string) (*domain.CategoryView, error) {
	c, err := s.repos.Categories.GetByName(ctx, name)
	if err != nil {
		return nil, fmt.Errorf("get category by name: %w", err)
	}
	return resolveView(ctx, s.repos.Categories, c)
}

// GetAll returns every category with its resolved ancestry. The whole set is
// loaded once and resolved in memory.
func (s *CategoryService) GetAll(ctx context.Context) ([]domain.CategoryView, error) {
	cats, err := s.repos.Categories.ListAll(ctx)
	if err != nil {
		return nil, fmt.Errorf("list categories: %w", err)
	}

	idx := domain.NewCategoryIndex(cats)
	views := make([]domain.CategoryView, 0, len(cats))
	for i := range cats {
		views = append(views, idx.View(&cats[i]))
	}
	return views, nil
}

// GetParent returns the parent of childID. A root has no parent and is
// reported as not found.
func (s *CategoryService) GetParent(ctx context.Context, childID string) (*domain.CategoryView, error) {
	c, err := s.repos.Categories.GetByID(ctx, childID)
	if err != nil {
		return nil, fmt.Errorf("get category by id: %w", err)
	}
	if c.ParentID == nil || *c.ParentID == "" {
		return nil, apperrors.NotFoundOf(domain.ErrCategoryNotFound, "child category", "id", childID)
	}

	parent, err := s.repos.Categories.GetByID(ctx, *c.ParentID)
	if err != nil {
		if errors.Is(err, domain.ErrCategoryNotFound) {
			return nil, apperrors.NotFoundOf(domain.ErrParentCategoryNotFound, "parent category", "id", *c.ParentID)
		}
		return nil, fmt.Errorf("get parent category: %w", err)
	}
	return resolveView(ctx, s.repos.Categories, parent)
}

// ListChildren returns the direct children of id.
func (s *CategoryService) ListChildren(ctx context.Context, id string) ([]domain.CategoryView, error) {
	parent, err := s.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}

	children, err := s.repos.Categories.ListChildren(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("list child categories: %w", err)
	}

	path := append(append([]string{}, parent.Path...), parent.Name)
	views := make([]domain.CategoryView, 0, len(children))
	for _, child := range children {
		views = append(views, domain.CategoryView{Category: child, ParentName: parent.Name, Path: path})
	}
	return views, nil
}

// Tree returns the categories nested under their parents.
func (s *CategoryService) Tree(ctx context.Context) ([]*domain.CategoryNode, error) {
	cats, err := s.repos.Categories.ListAll(ctx)
	if err != nil {
		return nil, fmt.Errorf("list categories: %w", err)
	}
	return domain.BuildCategoryTree(cats), nil
}

// Insert creates a root when ParentName is "Root", otherwise a child of the
// named parent. A root is always of kind Parent.
func (s *CategoryService) Insert(ctx context.Context, input InsertCategoryInput) (*domain.CategoryView, error) {
	l := logger.Op(ctx, s.logger, "category.insert")

	name, ok := domain.NormalizeCategoryName(input.Name)
	if !ok {
		return nil, apperrors.InvalidInput(fmt.Sprintf("category name must be 1 to %d characters", domain.MaxCategoryNameLength))
	}
	if !input.Kind.Valid() {
		return nil, apperrors.InvalidInput(fmt.Sprintf("unknown category kind %q", input.Kind))
	}

	now := time.Now().UTC()
	c := &domain.Category{
		ID:        uuid.New().String(),
		Name:      name,
		Kind:      input.Kind,
		CreatedAt: now,
		UpdatedAt: now,
	}

	var view *domain.CategoryView
	err := s.tx.WithinTx(ctx, func(ctx context.Context, repos repository.Repositories) error {
		if err := probeAbsent(func() (*domain.Category, error) {
			return repos.Categories.GetByName(ctx, name)
		}, domain.ErrCategoryNotFound, "category", "name", name); err != nil {
			return err
		}

		if input.ParentName == domain.RootParentName {
			c.Kind = domain.CategoryKindParent
		} else {
			parent, err := lookupParent(ctx, repos.Categories, input.ParentName)
			if err != nil {
				return err
			}
			c.ParentID = &parent.ID
		}

		if err := repos.Categories.Create(ctx, c); err != nil {
			return fmt.Errorf("create category: %w", err)
		}

		var err error
		view, err = resolveView(ctx, repos.Categories, c)
		return err
	})
	if err != nil {
		return nil, err
	}

	logPublishFailure(ctx, l, "category.created", s.producer.PublishCategory(ctx, event.ActionCreated, c))

	l.InfoContext(ctx, "category inserted",
		slog.String("category_id", c.ID),
		slog.String("parent_name", view.ParentName),
	)
	return view, nil
}

// Update renames, re-kinds and re-parents a category.
func (s *CategoryService) Update(ctx context.Context, id string, input UpdateCategoryInput) (*domain.CategoryView, error) {
	l := logger.Op(ctx, s.logger, "category.update").With(slog.String("category_id", id))

	name, ok := domain.NormalizeCategoryName(input.Name)
	if !ok {
		return nil, apperrors.InvalidInput(fmt.Sprintf("category name must be 1 to %d characters", domain.MaxCategoryNameLength))
	}
	if !input.Kind.Valid() {
		return nil, apperrors.InvalidInput(fmt.Sprintf("unknown category kind %q", input.Kind))
	}

	var (
		updated *domain.Category
		view    *domain.CategoryView
	)
	err := s.tx.WithinTx(ctx, func(ctx context.Context, repos repository.Repositories) error {
		c, err := repos.Categories.GetByID(ctx, id)
		if err != nil {
			return fmt.Errorf("get category by id: %w", err)
		}

		if name != c.Name {
			if err := probeAbsent(func() (*domain.Category, error) {
				return repos.Categories.GetByName(ctx, name)
			}, domain.ErrCategoryNotFound, "category", "name", name); err != nil {
				return err
			}
		}

		if input.Kind == domain.CategoryKindChild && c.CanHaveChildren() {
			n, err := repos.Categories.CountChildren(ctx, c.ID)
			if err != nil {
				return fmt.Errorf("count child categories: %w", err)
			}
			if n > 0 {
				return apperrors.Guard(domain.ErrCategoryHasChildren, "a category with children cannot become a Child")
			}
		}

		parentID, err := s.resolveNewParent(ctx, repos.Categories, c, input)
		if err != nil {
			return err
		}

		c.Name = name
		c.Kind = input.Kind
		c.ParentID = parentID

		if err := repos.Categories.Update(ctx, c); err != nil {
			return fmt.Errorf("update category: %w", err)
		}
		updated = c
		view, err = resolveView(ctx, repos.Categories, c)
		return err
	})
	if err != nil {
		return nil, err
	}

	logPublishFailure(ctx, l, "category.updated", s.producer.PublishCategory(ctx, event.ActionUpdated, updated))

	l.InfoContext(ctx, "category updated", slog.String("parent_name", view.ParentName))
	return view, nil
}

// resolveNewParent returns the parent id c will have after the update.
func (s *CategoryService) resolveNewParent(ctx context.Context, repo repository.CategoryRepository, c *domain.Category, input UpdateCategoryInput) (*string, error) {
	switch input.ParentName {
	case "":
		if input.Kind == domain.CategoryKindChild && (c.ParentID == nil || *c.ParentID == "") {
			return nil, apperrors.Guard(domain.ErrInvalidCategoryParent, "a Child category must have a parent")
		}
		return c.ParentID, nil

	case domain.RootParentName:
		if input.Kind != domain.CategoryKindParent {
			return nil, apperrors.Guard(domain.ErrInvalidCategoryParent, "only a Parent category can be a root")
		}
		return nil, nil
	}

	parent, err := lookupParent(ctx, repo, input.ParentName)
	if err != nil {
		return nil, err
	}
	if parent.ID == c.ID {
		return nil, apperrors.Guard(domain.ErrInvalidCategoryParent, "a category cannot be its own parent")
	}
	if c.ParentID != nil && *c.ParentID == parent.ID {
		return c.ParentID, nil
	}

	// Moving c below one of its own descendants would detach that subtree
	// into a cycle.
	all, err := repo.ListAll(ctx)
	if err != nil {
		return nil, fmt.Errorf("list categories: %w", err)
	}
	idx := domain.NewCategoryIndex(all)
	if candidate, ok := idx[parent.ID]; ok && idx.IsDescendant(candidate, c.ID) {
		return nil, apperrors.Guard(domain.ErrInvalidCategoryParent,
			fmt.Sprintf("category %q is below %q and cannot become its parent", parent.Name, c.Name))
	}
	return &parent.ID, nil
}

// Delete removes a category. A Parent with children is refused; a Child is
// always deletable.
func (s *CategoryService) Delete(ctx context.Context, id string) error {
	l := logger.Op(ctx, s.logger, "category.delete").With(slog.String("category_id", id))

	var deleted *domain.Category
	err := s.tx.WithinTx(ctx, func(ctx context.Context, repos repository.Repositories) error {
		c, err := repos.Categories.GetByID(ctx, id)
		if err != nil {
			return fmt.Errorf("get category by id: %w", err)
		}

		if c.CanHaveChildren() {
			n, err := repos.Categories.CountChildren(ctx, c.ID)
			if err != nil {
				return fmt.Errorf("count child categories: %w", err)
			}
			if n > 0 {
				return apperrors.Guard(domain.ErrCategoryHasChildren, "cannot delete category before its children")
			}
		}

		if err := repos.Categories.Delete(ctx, c.ID); err != nil {
			return fmt.Errorf("delete category: %w", err)
		}
		deleted = c
		return nil
	})
	if err != nil {
		return err
	}

	logPublishFailure(ctx, l, "category.deleted", s.producer.PublishCategory(ctx, event.ActionDeleted, deleted))

	l.InfoContext(ctx, "category deleted")
	return nil
}

// lookupParent resolves a declared parent name. The parent must exist and be
// allowed to hold children.
func lookupParent(ctx context.Context, repo repository.CategoryRepository, name string) (*domain.Category, error) {
	parent, err := repo.GetByName(ctx, name)
	if err != nil {
		if errors.Is(err, domain.ErrCategoryNotFound) {
			return nil, apperrors.NotFoundOf(domain.ErrParentCategoryNotFound, "parent category", "name", name)
		}
		return nil, fmt.Errorf("get parent category: %w", err)
	}
	if !parent.CanHaveChildren() {
		return nil, apperrors.Guard(domain.ErrInvalidCategoryParent,
			fmt.Sprintf("category %q is a Child and cannot have children", parent.Name))
	}
	return parent, nil
}

// resolveView walks the parent chain of c one lookup at a time. A missing
// ancestor or a repeated id ends the walk.
func resolveView(ctx context.Context, repo repository.CategoryRepository, c *domain.Category) (*domain.CategoryView, error) {
	idx := domain.CategoryIndex{c.ID: c}
	for cur := c; cur.ParentID != nil && *cur.ParentID != ""; {
		if _, seen := idx[*cur.ParentID]; seen {
			break
		}
		parent, err := repo.GetByID(ctx, *cur.ParentID)
		if err != nil {
			if errors.Is(err, domain.ErrCategoryNotFound) {
				break
			}
			return nil, fmt.Errorf("resolve category ancestry: %w", err)
		}
		idx[parent.ID] = parent
		cur = parent
	}

	view := idx.View(c)
	return &view, nil
}
