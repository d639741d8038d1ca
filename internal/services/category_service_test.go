package services

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"utgifter/internal/core"
)

func TestCategoryService_Create(t *testing.T) {
	svc := NewCategoryService(newMemStore(), nil)
	ctx := context.Background()

	c, err := svc.Create(ctx, "  Mat ")
	require.NoError(t, err)
	assert.Equal(t, "Mat", c.Name)
	assert.NotZero(t, c.ID)

	_, err = svc.Create(ctx, "mat")
	assert.ErrorIs(t, err, core.ErrConflict)

	_, err = svc.Create(ctx, "   ")
	assert.ErrorIs(t, err, core.ErrValidation)
}

func TestCategoryService_CreateTooLong(t *testing.T) {
	svc := NewCategoryService(newMemStore(), nil)

	name := make([]byte, 101)
	for i := range name {
		name[i] = 'a'
	}
	_, err := svc.Create(context.Background(), string(name))

	var verr *core.ValidationError
	require.True(t, errors.As(err, &verr))
	assert.Equal(t, "must be at most 100 characters", verr.Fields["name"])
}

func TestCategoryService_GetListDelete(t *testing.T) {
	store := newMemStore("Transport", "Mat")
	svc := NewCategoryService(store, nil)
	ctx := context.Background()

	list, err := svc.List(ctx)
	require.NoError(t, err)
	require.Len(t, list, 2)
	assert.Equal(t, "Mat", list[0].Name)

	c, err := svc.GetByName(ctx, "MAT")
	require.NoError(t, err)
	assert.Equal(t, "Mat", c.Name)

	_, err = svc.GetByName(ctx, "Resor")
	assert.ErrorIs(t, err, core.ErrNotFound)

	require.NoError(t, svc.DeleteByName(ctx, "mat"))
	assert.ErrorIs(t, svc.DeleteByName(ctx, "mat"), core.ErrNotFound)
}

func TestCategoryService_DeleteInUse(t *testing.T) {
	store := newMemStore("Mat")
	_, err := store.CreateExpense(context.Background(), core.Expense{
		Description: "ICA",
		Amount:      decimal.NewFromInt(10),
		Date:        core.Date{Time: time.Now()},
		CategoryID:  store.id("Mat"),
	})
	require.NoError(t, err)

	svc := NewCategoryService(store, nil)
	assert.ErrorIs(t, svc.DeleteByName(context.Background(), "Mat"), core.ErrConflict)
}

func TestCategoryService_Seed(t *testing.T) {
	store := newMemStore("mat")
	svc := NewCategoryService(store, nil)
	ctx := context.Background()

	require.NoError(t, svc.Seed(ctx, []string{"Mat", " Transport ", "", "Övrigt"}))
	require.NoError(t, svc.Seed(ctx, []string{"Mat", "Transport", "Övrigt"}))

	list, err := svc.List(ctx)
	require.NoError(t, err)
	assert.Len(t, list, 3)
	assert.Equal(t, "mat", list[0].Name, "existing spelling is kept")

	require.NoError(t, svc.Seed(ctx, nil))
}
