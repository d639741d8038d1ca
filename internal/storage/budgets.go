package storage

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"

	"github.com/shopspring/decimal"

	"utgifter/internal/core"
)

const budgetSelect = `SELECT b.id, b.name, b.amount, b.start_date, b.end_date, b.category_id,
	c.name AS category_name
FROM budgets b
LEFT JOIN categories c ON c.id = b.category_id`

type budgetRow struct {
	ID           int64           `db:"id"`
	Name         string          `db:"name"`
	Amount       decimal.Decimal `db:"amount"`
	StartDate    core.Date       `db:"start_date"`
	EndDate      core.Date       `db:"end_date"`
	CategoryID   sql.NullInt64   `db:"category_id"`
	CategoryName sql.NullString  `db:"category_name"`
}

func (row budgetRow) toCore() core.Budget {
	b := core.Budget{
		ID:        row.ID,
		Name:      row.Name,
		Amount:    row.Amount,
		StartDate: row.StartDate,
		EndDate:   row.EndDate,
		Category:  categoryFromJoin(row.CategoryID, row.CategoryName),
	}
	if row.CategoryID.Valid {
		id := row.CategoryID.Int64
		b.CategoryID = &id
	}
	return b
}

func nullableID(id *int64) sql.NullInt64 {
	if id == nil {
		return sql.NullInt64{}
	}
	return sql.NullInt64{Int64: *id, Valid: true}
}

// CreateBudget stores b under a newly generated id, ignoring b.ID.
func (r *Repository) CreateBudget(ctx context.Context, b core.Budget) (int64, error) {
	var id int64
	err := r.db.QueryRowxContext(ctx,
		r.db.Rebind(`INSERT INTO budgets (name, amount, start_date, end_date, category_id) VALUES (?, ?, ?, ?, ?) RETURNING id`),
		b.Name, b.Amount, b.StartDate, b.EndDate, nullableID(b.CategoryID)).Scan(&id)
	if err != nil {
		if isForeignKeyViolation(err) {
			return 0, core.InvalidCategoryError()
		}
		return 0, fmt.Errorf("create budget: %w", err)
	}

	slog.InfoContext(ctx, "Budget saved", "id", id, "name", b.Name, "amount", b.Amount.String())
	return id, nil
}

func (r *Repository) GetBudget(ctx context.Context, id int64) (core.Budget, error) {
	var row budgetRow
	if err := r.db.GetContext(ctx, &row, r.db.Rebind(budgetSelect+` WHERE b.id = ?`), id); err != nil {
		return core.Budget{}, notFound(err, "budget", id)
	}
	return row.toCore(), nil
}

// ListBudgets returns all budgets ordered by start date.
func (r *Repository) ListBudgets(ctx context.Context) ([]core.Budget, error) {
	var rows []budgetRow
	if err := r.db.SelectContext(ctx, &rows, budgetSelect+` ORDER BY b.start_date, b.id`); err != nil {
		return nil, fmt.Errorf("list budgets: %w", err)
	}
	budgets := make([]core.Budget, len(rows))
	for i, row := range rows {
		budgets[i] = row.toCore()
	}
	return budgets, nil
}

// UpdateBudget overwrites every column of the budget with id b.ID. Last
// writer wins; a row that no longer exists yields core.ErrNotFound.
func (r *Repository) UpdateBudget(ctx context.Context, b core.Budget) error {
	res, err := r.db.ExecContext(ctx,
		r.db.Rebind(`UPDATE budgets SET name = ?, amount = ?, start_date = ?, end_date = ?, category_id = ? WHERE id = ?`),
		b.Name, b.Amount, b.StartDate, b.EndDate, nullableID(b.CategoryID), b.ID)
	if err != nil {
		if isForeignKeyViolation(err) {
			return core.InvalidCategoryError()
		}
		return fmt.Errorf("update budget: %w", err)
	}
	return expectAffected(res, "budget", b.ID)
}

func (r *Repository) DeleteBudget(ctx context.Context, id int64) error {
	res, err := r.db.ExecContext(ctx, r.db.Rebind(`DELETE FROM budgets WHERE id = ?`), id)
	if err != nil {
		return fmt.Errorf("delete budget: %w", err)
	}
	return expectAffected(res, "budget", id)
}
