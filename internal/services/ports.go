package services

import (
	"context"

	"utgifter/internal/core"
)

// CategoryStore is the category part of the record store.
type CategoryStore interface {
	ListCategories(ctx context.Context) ([]core.Category, error)
	GetCategoryByName(ctx context.Context, name string) (core.Category, error)
	CategoryExists(ctx context.Context, id int64) (bool, error)
	CreateCategory(ctx context.Context, name string) (core.Category, error)
	DeleteCategoryByName(ctx context.Context, name string) error
	EnsureCategories(ctx context.Context, names []string) error
}

type ExpenseStore interface {
	CreateExpense(ctx context.Context, e core.Expense) (int64, error)
	CreateExpenses(ctx context.Context, expenses []core.Expense) ([]int64, error)
	GetExpense(ctx context.Context, id int64) (core.Expense, error)
	GetExpenses(ctx context.Context, ids []int64) ([]core.Expense, error)
	ListExpenses(ctx context.Context) ([]core.Expense, error)
	UpdateExpense(ctx context.Context, e core.Expense) error
	DeleteExpense(ctx context.Context, id int64) error
	UpdateExpenseCategory(ctx context.Context, id, categoryID int64) error
}

type BudgetStore interface {
	CreateBudget(ctx context.Context, b core.Budget) (int64, error)
	GetBudget(ctx context.Context, id int64) (core.Budget, error)
	ListBudgets(ctx context.Context) ([]core.Budget, error)
	UpdateBudget(ctx context.Context, b core.Budget) error
	DeleteBudget(ctx context.Context, id int64) error
}

// EventPublisher announces stored expenses to other processes.
// A nil EventPublisher disables events.
type EventPublisher interface {
	PublishExpenseCreated(ctx context.Context, id, categoryID int64, resolution core.Resolution) error
}
