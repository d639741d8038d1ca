package storage

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"

	"github.com/jmoiron/sqlx"
	"github.com/shopspring/decimal"

	"utgifter/internal/core"
)

const expenseSelect = `SELECT e.id, e.description, e.amount, e.date, e.category_id,
	c.id AS category_ref, c.name AS category_name
FROM expenses e
LEFT JOIN categories c ON c.id = e.category_id`

type expenseRow struct {
	ID           int64           `db:"id"`
	Description  string          `db:"description"`
	Amount       decimal.Decimal `db:"amount"`
	Date         core.Date       `db:"date"`
	CategoryID   int64           `db:"category_id"`
	CategoryRef  sql.NullInt64   `db:"category_ref"`
	CategoryName sql.NullString  `db:"category_name"`
}

func (row expenseRow) toCore() core.Expense {
	return core.Expense{
		ID:          row.ID,
		Description: row.Description,
		Amount:      row.Amount,
		Date:        row.Date,
		CategoryID:  row.CategoryID,
		Category:    categoryFromJoin(row.CategoryRef, row.CategoryName),
	}
}

const insertExpense = `INSERT INTO expenses (description, amount, date, category_id) VALUES (?, ?, ?, ?) RETURNING id`

// CreateExpense stores e and returns its generated id. e.CategoryID must
// reference an existing category.
func (r *Repository) CreateExpense(ctx context.Context, e core.Expense) (int64, error) {
	id, err := insertExpenseWith(ctx, r.db, e)
	if err != nil {
		return 0, err
	}

	slog.InfoContext(ctx, "Expense saved",
		"id", id,
		"description", e.Description,
		"amount", e.Amount.String(),
		"category_id", e.CategoryID)

	return id, nil
}

// CreateExpenses stores all of expenses in one transaction; either every
// row is written or none is. Ids are returned in input order.
func (r *Repository) CreateExpenses(ctx context.Context, expenses []core.Expense) ([]int64, error) {
	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("begin: %w", err)
	}
	defer tx.Rollback()

	ids := make([]int64, 0, len(expenses))
	for i, e := range expenses {
		id, err := insertExpenseWith(ctx, tx, e)
		if err != nil {
			return nil, fmt.Errorf("expense %d: %w", i, err)
		}
		ids = append(ids, id)
	}

	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("commit: %w", err)
	}

	slog.InfoContext(ctx, "Expense batch saved", "count", len(ids))
	return ids, nil
}

// queryer is satisfied by both *sqlx.DB and *sqlx.Tx.
type queryer interface {
	sqlx.QueryerContext
	Rebind(query string) string
}

func insertExpenseWith(ctx context.Context, q queryer, e core.Expense) (int64, error) {
	var id int64
	err := q.QueryRowxContext(ctx, q.Rebind(insertExpense),
		e.Description, e.Amount, e.Date, e.CategoryID).Scan(&id)
	if err != nil {
		if isForeignKeyViolation(err) {
			return 0, core.InvalidCategoryError()
		}
		return 0, fmt.Errorf("create expense: %w", err)
	}
	return id, nil
}

// GetExpense returns the expense with its category hydrated.
func (r *Repository) GetExpense(ctx context.Context, id int64) (core.Expense, error) {
	var row expenseRow
	if err := r.db.GetContext(ctx, &row, r.db.Rebind(expenseSelect+` WHERE e.id = ?`), id); err != nil {
		return core.Expense{}, notFound(err, "expense", id)
	}
	return row.toCore(), nil
}

// GetExpenses returns the expenses for ids in the order given.
func (r *Repository) GetExpenses(ctx context.Context, ids []int64) ([]core.Expense, error) {
	if len(ids) == 0 {
		return []core.Expense{}, nil
	}
	query, args, err := sqlx.In(expenseSelect+` WHERE e.id IN (?)`, ids)
	if err != nil {
		return nil, fmt.Errorf("build query: %w", err)
	}
	var rows []expenseRow
	if err := r.db.SelectContext(ctx, &rows, r.db.Rebind(query), args...); err != nil {
		return nil, fmt.Errorf("get expenses: %w", err)
	}

	byID := make(map[int64]core.Expense, len(rows))
	for _, row := range rows {
		byID[row.ID] = row.toCore()
	}
	expenses := make([]core.Expense, 0, len(ids))
	for _, id := range ids {
		e, ok := byID[id]
		if !ok {
			return nil, fmt.Errorf("expense %d: %w", id, core.ErrNotFound)
		}
		expenses = append(expenses, e)
	}
	return expenses, nil
}

// ListExpenses returns all expenses, newest first.
func (r *Repository) ListExpenses(ctx context.Context) ([]core.Expense, error) {
	var rows []expenseRow
	if err := r.db.SelectContext(ctx, &rows, expenseSelect+` ORDER BY e.date DESC, e.id DESC`); err != nil {
		return nil, fmt.Errorf("list expenses: %w", err)
	}
	expenses := make([]core.Expense, len(rows))
	for i, row := range rows {
		expenses[i] = row.toCore()
	}
	return expenses, nil
}

// UpdateExpense overwrites every column of the expense with id e.ID.
func (r *Repository) UpdateExpense(ctx context.Context, e core.Expense) error {
	res, err := r.db.ExecContext(ctx,
		r.db.Rebind(`UPDATE expenses SET description = ?, amount = ?, date = ?, category_id = ? WHERE id = ?`),
		e.Description, e.Amount, e.Date, e.CategoryID, e.ID)
	if err != nil {
		if isForeignKeyViolation(err) {
			return core.InvalidCategoryError()
		}
		return fmt.Errorf("update expense: %w", err)
	}
	return expectAffected(res, "expense", e.ID)
}

func (r *Repository) DeleteExpense(ctx context.Context, id int64) error {
	res, err := r.db.ExecContext(ctx, r.db.Rebind(`DELETE FROM expenses WHERE id = ?`), id)
	if err != nil {
		return fmt.Errorf("delete expense: %w", err)
	}
	return expectAffected(res, "expense", id)
}

// UpdateExpenseCategory moves an expense to another category.
func (r *Repository) UpdateExpenseCategory(ctx context.Context, id, categoryID int64) error {
	res, err := r.db.ExecContext(ctx, r.db.Rebind(`UPDATE expenses SET category_id = ? WHERE id = ?`), categoryID, id)
	if err != nil {
		if isForeignKeyViolation(err) {
			return core.InvalidCategoryError()
		}
		return fmt.Errorf("update expense category: %w", err)
	}
	if err := expectAffected(res, "expense", id); err != nil {
		return err
	}

	slog.InfoContext(ctx, "Expense category updated", "id", id, "category_id", categoryID)
	return nil
}
