package worker

import (
	"context"
	"errors"
	"fmt"

	"utgifter/internal/amqp"
	"utgifter/internal/core"
	"utgifter/internal/log"
)

// Reclassifier retries classification for a stored expense.
type Reclassifier interface {
	Reclassify(ctx context.Context, id int64) (bool, error)
}

// ReclassifyWorker gives expenses that landed in the fallback category a
// second classification attempt, typically after the inference server
// was unreachable at creation time.
type ReclassifyWorker struct {
	expenses Reclassifier
	logger   *log.Logger
}

func NewReclassifyWorker(expenses Reclassifier, logger *log.Logger) *ReclassifyWorker {
	if logger == nil {
		logger = log.Discard()
	}
	return &ReclassifyWorker{
		expenses: expenses,
		logger:   logger.WithComponent(log.ComponentWorker),
	}
}

// HandleExpenseEvent processes a single expense event from AMQP.
func (w *ReclassifyWorker) HandleExpenseEvent(ctx context.Context, event *amqp.ExpenseEvent) error {
	if event.Type != amqp.EventExpenseCreated {
		w.logger.DebugContext(ctx, "Ignoring event", "type", event.Type)
		return nil
	}
	if event.Resolution != core.ResolutionFallback {
		return nil
	}

	changed, err := w.expenses.Reclassify(ctx, event.ID)
	if errors.Is(err, core.ErrNotFound) {
		w.logger.InfoContext(ctx, "Expense gone before reclassification",
			log.FieldExpenseID, event.ID)
		return nil
	}
	if err != nil {
		return fmt.Errorf("reclassify expense %d: %w", event.ID, err)
	}

	w.logger.InfoContext(ctx, "Reclassification finished",
		log.FieldExpenseID, event.ID,
		log.FieldOperation, log.OpReclassify,
		"changed", changed)
	return nil
}
