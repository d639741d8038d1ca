package services

import (
	"context"
	"fmt"

	"utgifter/internal/core"
	"utgifter/internal/log"
)

type BudgetService struct {
	budgets    BudgetStore
	categories CategoryStore
	logger     *log.Logger
}

func NewBudgetService(budgets BudgetStore, categories CategoryStore, logger *log.Logger) *BudgetService {
	if logger == nil {
		logger = log.Discard()
	}
	return &BudgetService{
		budgets:    budgets,
		categories: categories,
		logger:     logger.WithComponent(log.ComponentBudget),
	}
}

// Create ignores any id in b and returns the stored budget with its
// category attached.
func (s *BudgetService) Create(ctx context.Context, b core.Budget) (core.Budget, error) {
	b.ID = 0
	if err := s.prepare(ctx, &b); err != nil {
		return core.Budget{}, err
	}

	id, err := s.budgets.CreateBudget(ctx, b)
	if err != nil {
		return core.Budget{}, fmt.Errorf("create budget: %w", err)
	}

	created, err := s.budgets.GetBudget(ctx, id)
	if err != nil {
		return core.Budget{}, fmt.Errorf("reload budget %d: %w", id, err)
	}

	s.logger.InfoContext(ctx, "Budget created",
		log.FieldBudgetID, id,
		log.FieldOperation, log.OpCreate)
	return created, nil
}

// Update replaces the budget stored under id. The id carried in b must
// match.
func (s *BudgetService) Update(ctx context.Context, id int64, b core.Budget) error {
	if b.ID != id {
		return core.ErrIDMismatch
	}
	if err := s.prepare(ctx, &b); err != nil {
		return err
	}
	if err := s.budgets.UpdateBudget(ctx, b); err != nil {
		return err
	}

	s.logger.InfoContext(ctx, "Budget updated",
		log.FieldBudgetID, id,
		log.FieldOperation, log.OpUpdate)
	return nil
}

func (s *BudgetService) Get(ctx context.Context, id int64) (core.Budget, error) {
	b, err := s.budgets.GetBudget(ctx, id)
	if err != nil {
		return core.Budget{}, err
	}
	return b, nil
}

func (s *BudgetService) List(ctx context.Context) ([]core.Budget, error) {
	list, err := s.budgets.ListBudgets(ctx)
	if err != nil {
		return nil, fmt.Errorf("list budgets: %w", err)
	}
	return list, nil
}

func (s *BudgetService) Delete(ctx context.Context, id int64) error {
	if err := s.budgets.DeleteBudget(ctx, id); err != nil {
		return err
	}
	s.logger.InfoContext(ctx, "Budget deleted",
		log.FieldBudgetID, id,
		log.FieldOperation, log.OpDelete)
	return nil
}

func (s *BudgetService) prepare(ctx context.Context, b *core.Budget) error {
	b.Normalize()
	if err := core.Validate(*b); err != nil {
		return err
	}
	if err := b.CheckPeriod(); err != nil {
		return err
	}
	if b.CategoryID == nil {
		return nil
	}
	ok, err := s.categories.CategoryExists(ctx, *b.CategoryID)
	if err != nil {
		return fmt.Errorf("check category %d: %w", *b.CategoryID, err)
	}
	if !ok {
		return core.InvalidCategoryError()
	}
	return nil
}
