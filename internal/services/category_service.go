package services

import (
	"context"

	"github.com/google/uuid"

	"fintrack/internal/core"
	"fintrack/internal/spending"
)

// CategoryStore is the persistence surface for category management.
type CategoryStore interface {
	CreateCategory(ctx context.Context, c core.Category) error
	UpdateCategory(ctx context.Context, c core.Category) error
	DeleteCategory(ctx context.Context, id string) error
	GetCategory(ctx context.Context, id string) (core.Category, error)
	ListCategories(ctx context.Context, userID string) ([]core.Category, error)
}

// CategoryService manages the category tree. Create and Update refuse
// edits that would leave a category without a resolvable root, so cycles
// cannot be built through the API.
type CategoryService struct {
	store CategoryStore
}

func NewCategoryService(store CategoryStore) *CategoryService {
	return &CategoryService{store: store}
}

// Create adds a category under an optional parent.
func (s *CategoryService) Create(ctx context.Context, userID, parentID, caption string) (core.Category, error) {
	c := core.Category{
		ID:       uuid.NewString(),
		UserID:   userID,
		ParentID: parentID,
		Caption:  caption,
		Type:     core.CategoryTypeUser,
	}
	if err := c.Validate(); err != nil {
		return core.Category{}, core.WrapError(core.CodeValidationFailed, err, "category %q", caption)
	}
	if parentID != "" {
		if err := s.checkParentChain(ctx, userID, c); err != nil {
			return core.Category{}, err
		}
	}
	if err := s.store.CreateCategory(ctx, c); err != nil {
		return core.Category{}, err
	}
	return c, nil
}

// Update changes a category's caption or parent.
func (s *CategoryService) Update(ctx context.Context, c core.Category) error {
	if err := c.Validate(); err != nil {
		return core.WrapError(core.CodeValidationFailed, err, "category %q", c.Caption)
	}
	if c.ParentID != "" {
		if err := s.checkParentChain(ctx, c.UserID, c); err != nil {
			return err
		}
	}
	return s.store.UpdateCategory(ctx, c)
}

// Delete removes a user category. Shared default categories are refused by
// the store.
func (s *CategoryService) Delete(ctx context.Context, id string) error {
	return s.store.DeleteCategory(ctx, id)
}

// List returns the user's categories plus the shared defaults.
func (s *CategoryService) List(ctx context.Context, userID string) ([]core.Category, error) {
	return s.store.ListCategories(ctx, userID)
}

// checkParentChain verifies that the parent exists and that the resulting
// chain still reaches a root.
func (s *CategoryService) checkParentChain(ctx context.Context, userID string, c core.Category) error {
	if _, err := s.store.GetCategory(ctx, c.ParentID); err != nil {
		return err
	}

	existing, err := s.store.ListCategories(ctx, userID)
	if err != nil {
		return core.WrapError(core.CodeDatabaseFailure, err, "loading categories")
	}
	byID := make(map[string]core.Category, len(existing)+1)
	for _, cat := range existing {
		byID[cat.ID] = cat
	}
	byID[c.ID] = c

	if _, ok := spending.RootOf(c.ID, byID); !ok {
		return core.NewError(core.CodeValidationFailed,
			"category %q would not reach a root through parent %q", c.ID, c.ParentID)
	}
	return nil
}
