package storage

import (
	"context"
	"database/sql"
	"regexp"
	"testing"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jmoiron/sqlx"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"utgifter/internal/core"
)

// newMockRepo returns a repository speaking the postgres dialect.
func newMockRepo(t *testing.T) (*Repository, sqlmock.Sqlmock) {
	t.Helper()
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })
	return NewRepository(sqlx.NewDb(db, "pgx"), DriverPostgres), mock
}

func TestPostgres_GetCategoryByName_UsesKeyAndDollarParams(t *testing.T) {
	repo, mock := newMockRepo(t)

	rows := sqlmock.NewRows([]string{"id", "name"}).AddRow(int64(1), "Övrigt")
	mock.ExpectQuery(regexp.QuoteMeta(`SELECT id, name FROM categories WHERE name_key = $1`)).
		WithArgs("övrigt").
		WillReturnRows(rows)

	c, err := repo.GetCategoryByName(context.Background(), " ÖVRIGT ")
	require.NoError(t, err)
	assert.Equal(t, core.Category{ID: 1, Name: "Övrigt"}, c)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgres_GetCategory_NotFound(t *testing.T) {
	repo, mock := newMockRepo(t)

	mock.ExpectQuery(regexp.QuoteMeta(`SELECT id, name FROM categories WHERE id = $1`)).
		WithArgs(int64(7)).
		WillReturnError(sql.ErrNoRows)

	_, err := repo.GetCategory(context.Background(), 7)
	assert.ErrorIs(t, err, core.ErrNotFound)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgres_CreateCategory_UniqueViolationIsConflict(t *testing.T) {
	repo, mock := newMockRepo(t)

	mock.ExpectQuery(regexp.QuoteMeta(`INSERT INTO categories (name, name_key) VALUES ($1, $2) RETURNING id`)).
		WithArgs("mat", "mat").
		WillReturnError(&pgconn.PgError{Code: "23505", Message: "duplicate key value violates unique constraint"})

	_, err := repo.CreateCategory(context.Background(), "mat")
	assert.ErrorIs(t, err, core.ErrConflict)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgres_DeleteCategory_ForeignKeyIsConflict(t *testing.T) {
	repo, mock := newMockRepo(t)

	mock.ExpectExec(regexp.QuoteMeta(`DELETE FROM categories WHERE name_key = $1`)).
		WithArgs("mat").
		WillReturnError(&pgconn.PgError{Code: "23503"})

	assert.ErrorIs(t, repo.DeleteCategoryByName(context.Background(), "Mat"), core.ErrConflict)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgres_UpdateBudget_VanishedRowIsNotFound(t *testing.T) {
	repo, mock := newMockRepo(t)

	mock.ExpectExec(regexp.QuoteMeta(`UPDATE budgets SET name = $1, amount = $2, start_date = $3, end_date = $4, category_id = $5 WHERE id = $6`)).
		WithArgs("Mat", sqlmock.AnyArg(), sqlmock.AnyArg(), sqlmock.AnyArg(), nil, int64(3)).
		WillReturnResult(sqlmock.NewResult(0, 0))

	err := repo.UpdateBudget(context.Background(), core.Budget{
		ID:        3,
		Name:      "Mat",
		Amount:    decimal.NewFromInt(100),
		StartDate: core.NewDate(2025, 1, 1),
		EndDate:   core.NewDate(2025, 1, 31),
	})
	assert.ErrorIs(t, err, core.ErrNotFound)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgres_CreateExpenses_RollsBackOnFailure(t *testing.T) {
	repo, mock := newMockRepo(t)
	insert := regexp.QuoteMeta(`INSERT INTO expenses (description, amount, date, category_id) VALUES ($1, $2, $3, $4) RETURNING id`)

	mock.ExpectBegin()
	mock.ExpectQuery(insert).WithArgs("a", "1", sqlmock.AnyArg(), int64(1)).
		WillReturnRows(sqlmock.NewRows([]string{"id"}).AddRow(int64(10)))
	mock.ExpectQuery(insert).WithArgs("b", "2", sqlmock.AnyArg(), int64(99)).
		WillReturnError(&pgconn.PgError{Code: "23503"})
	mock.ExpectRollback()

	_, err := repo.CreateExpenses(context.Background(), []core.Expense{
		{Description: "a", Amount: decimal.NewFromInt(1), Date: core.NewDate(2024, 1, 1), CategoryID: 1},
		{Description: "b", Amount: decimal.NewFromInt(2), Date: core.NewDate(2024, 1, 1), CategoryID: 99},
	})
	assert.ErrorIs(t, err, core.ErrInvalidCategory)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgres_GetBudget_HydratesCategory(t *testing.T) {
	repo, mock := newMockRepo(t)

	rows := sqlmock.NewRows([]string{"id", "name", "amount", "start_date", "end_date", "category_id", "category_name"}).
		AddRow(int64(5), "Matbudget", "4500.00", core.NewDate(2025, 5, 1).Time, core.NewDate(2025, 5, 31).Time, int64(2), "Mat")
	mock.ExpectQuery(regexp.QuoteMeta(budgetSelect + ` WHERE b.id = $1`)).
		WithArgs(int64(5)).
		WillReturnRows(rows)

	b, err := repo.GetBudget(context.Background(), 5)
	require.NoError(t, err)
	assert.True(t, b.Amount.Equal(decimal.NewFromInt(4500)))
	require.NotNil(t, b.CategoryID)
	assert.Equal(t, int64(2), *b.CategoryID)
	assert.Equal(t, &core.Category{ID: 2, Name: "Mat"}, b.Category)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgres_UpdateExpense_MissingRowIsNotFound(t *testing.T) {
	repo, mock := newMockRepo(t)

	mock.ExpectExec(regexp.QuoteMeta(`UPDATE expenses SET description = $1, amount = $2, date = $3, category_id = $4 WHERE id = $5`)).
		WithArgs("ICA", sqlmock.AnyArg(), sqlmock.AnyArg(), int64(2), int64(9)).
		WillReturnResult(sqlmock.NewResult(0, 0))

	err := repo.UpdateExpense(context.Background(), core.Expense{
		ID:          9,
		Description: "ICA",
		Amount:      decimal.NewFromInt(10),
		Date:        core.NewDate(2025, 1, 1),
		CategoryID:  2,
	})
	assert.ErrorIs(t, err, core.ErrNotFound)
	assert.EqualError(t, err, "expense 9: not found")
	require.NoError(t, mock.ExpectationsWereMet())
}
