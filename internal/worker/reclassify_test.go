package worker

import (
	"context"
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"utgifter/internal/amqp"
	"utgifter/internal/core"
)

type fakeReclassifier struct {
	ids     []int64
	changed bool
	err     error
}

func (f *fakeReclassifier) Reclassify(_ context.Context, id int64) (bool, error) {
	f.ids = append(f.ids, id)
	return f.changed, f.err
}

func TestHandleExpenseEvent(t *testing.T) {
	ctx := context.Background()

	t.Run("fallback events are reclassified", func(t *testing.T) {
		f := &fakeReclassifier{changed: true}
		w := NewReclassifyWorker(f, nil)

		require.NoError(t, w.HandleExpenseEvent(ctx, amqp.NewExpenseCreated(5, 1, core.ResolutionFallback)))
		assert.Equal(t, []int64{5}, f.ids)
	})

	t.Run("resolved events are skipped", func(t *testing.T) {
		f := &fakeReclassifier{}
		w := NewReclassifyWorker(f, nil)

		require.NoError(t, w.HandleExpenseEvent(ctx, amqp.NewExpenseCreated(5, 1, core.ResolutionClassified)))
		require.NoError(t, w.HandleExpenseEvent(ctx, amqp.NewExpenseCreated(6, 1, core.ResolutionProvided)))
		assert.Empty(t, f.ids)
	})

	t.Run("unknown event types are skipped", func(t *testing.T) {
		f := &fakeReclassifier{}
		w := NewReclassifyWorker(f, nil)

		ev := amqp.NewExpenseCreated(5, 1, core.ResolutionFallback)
		ev.Type = "expense.deleted"
		require.NoError(t, w.HandleExpenseEvent(ctx, ev))
		assert.Empty(t, f.ids)
	})

	t.Run("deleted expense is not an error", func(t *testing.T) {
		f := &fakeReclassifier{err: fmt.Errorf("get expense: %w", core.ErrNotFound)}
		w := NewReclassifyWorker(f, nil)

		assert.NoError(t, w.HandleExpenseEvent(ctx, amqp.NewExpenseCreated(5, 1, core.ResolutionFallback)))
	})

	t.Run("store errors are returned for requeue", func(t *testing.T) {
		f := &fakeReclassifier{err: errors.New("database locked")}
		w := NewReclassifyWorker(f, nil)

		assert.Error(t, w.HandleExpenseEvent(ctx, amqp.NewExpenseCreated(5, 1, core.ResolutionFallback)))
	})
}
