package services

import (
	"context"
	"fmt"
	"strings"

	"utgifter/internal/core"
	"utgifter/internal/log"
)

type CategoryService struct {
	store  CategoryStore
	logger *log.Logger
}

func NewCategoryService(store CategoryStore, logger *log.Logger) *CategoryService {
	if logger == nil {
		logger = log.Discard()
	}
	return &CategoryService{
		store:  store,
		logger: logger.WithComponent(log.ComponentCategory),
	}
}

// Create stores a new category. Names are unique ignoring case and
// surrounding whitespace.
func (s *CategoryService) Create(ctx context.Context, name string) (core.Category, error) {
	c := core.Category{Name: strings.TrimSpace(name)}
	if err := core.Validate(c); err != nil {
		return core.Category{}, err
	}

	created, err := s.store.CreateCategory(ctx, c.Name)
	if err != nil {
		return core.Category{}, err
	}

	s.logger.InfoContext(ctx, "Category created",
		log.FieldCategoryID, created.ID,
		log.FieldCategory, created.Name)
	return created, nil
}

func (s *CategoryService) List(ctx context.Context) ([]core.Category, error) {
	cats, err := s.store.ListCategories(ctx)
	if err != nil {
		return nil, fmt.Errorf("list categories: %w", err)
	}
	return cats, nil
}

func (s *CategoryService) GetByName(ctx context.Context, name string) (core.Category, error) {
	c, err := s.store.GetCategoryByName(ctx, name)
	if err != nil {
		return core.Category{}, err
	}
	return c, nil
}

// DeleteByName fails with core.ErrConflict while expenses or budgets
// still reference the category.
func (s *CategoryService) DeleteByName(ctx context.Context, name string) error {
	if err := s.store.DeleteCategoryByName(ctx, name); err != nil {
		return err
	}
	s.logger.InfoContext(ctx, "Category deleted", log.FieldCategory, name)
	return nil
}

// Seed makes sure every name exists; existing categories are left alone.
func (s *CategoryService) Seed(ctx context.Context, names []string) error {
	clean := make([]string, 0, len(names))
	for _, n := range names {
		if n = strings.TrimSpace(n); n != "" {
			clean = append(clean, n)
		}
	}
	if len(clean) == 0 {
		return nil
	}
	if err := s.store.EnsureCategories(ctx, clean); err != nil {
		return fmt.Errorf("seed categories: %w", err)
	}
	s.logger.InfoContext(ctx, "Categories seeded",
		log.FieldOperation, log.OpSeed,
		log.FieldCount, len(clean))
	return nil
}
