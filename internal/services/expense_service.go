package services

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"golang.org/x/sync/errgroup"

	"utgifter/internal/classifier"
	"utgifter/internal/core"
	"utgifter/internal/log"
)

// batchClassifyLimit bounds concurrent classification calls in CreateBatch.
const batchClassifyLimit = 4

// ExpenseService stores expenses, resolving each one to a category first.
type ExpenseService struct {
	expenses   ExpenseStore
	categories CategoryStore
	classifier classifier.Classifier
	publisher  EventPublisher
	fallback   string
	logger     *log.Logger
	events     *log.StructuredLogger
}

type ExpenseServiceConfig struct {
	Expenses   ExpenseStore
	Categories CategoryStore
	Classifier classifier.Classifier
	// Publisher may be nil.
	Publisher EventPublisher
	// Fallback names the category used when classification gives nothing usable.
	Fallback string
	Logger   *log.Logger
}

func NewExpenseService(cfg ExpenseServiceConfig) *ExpenseService {
	if cfg.Logger == nil {
		cfg.Logger = log.Discard()
	}
	if strings.TrimSpace(cfg.Fallback) == "" {
		cfg.Fallback = classifier.DefaultFallback
	}
	if cfg.Classifier == nil {
		cfg.Classifier = classifier.Fixed(cfg.Fallback)
	}
	logger := cfg.Logger.WithComponent(log.ComponentExpense)
	return &ExpenseService{
		expenses:   cfg.Expenses,
		categories: cfg.Categories,
		classifier: cfg.Classifier,
		publisher:  cfg.Publisher,
		fallback:   strings.TrimSpace(cfg.Fallback),
		logger:     logger,
		events:     log.NewStructuredLogger(logger),
	}
}

// Create validates e, resolves its category and stores it. The returned
// expense carries the generated id and its category.
func (s *ExpenseService) Create(ctx context.Context, e core.Expense) (core.Expense, error) {
	e.ID = 0
	e.Normalize()
	if err := core.Validate(e); err != nil {
		return core.Expense{}, err
	}

	categoryID, resolution, err := s.resolveCategory(ctx, e)
	if err != nil {
		return core.Expense{}, err
	}
	e.CategoryID = categoryID

	id, err := s.expenses.CreateExpense(ctx, e)
	if err != nil {
		return core.Expense{}, fmt.Errorf("save expense: %w", err)
	}

	created, err := s.expenses.GetExpense(ctx, id)
	if err != nil {
		return core.Expense{}, fmt.Errorf("reload expense %d: %w", id, err)
	}

	s.events.LogExpenseCreated(ctx, id, created.Description, categoryID, string(resolution))
	s.publishCreated(ctx, id, categoryID, resolution)
	return created, nil
}

// CreateBatch stores all expenses or none. Validation failures name the
// offending item, e.g. items[2].amount.
func (s *ExpenseService) CreateBatch(ctx context.Context, items []core.Expense) ([]core.Expense, error) {
	if len(items) == 0 {
		return nil, core.ErrEmptyBatch
	}

	batch := make([]core.Expense, len(items))
	copy(batch, items)
	for i := range batch {
		batch[i].ID = 0
		batch[i].Normalize()
		if err := core.Validate(batch[i]); err != nil {
			var verr *core.ValidationError
			if errors.As(err, &verr) {
				return nil, verr.Prefix(fmt.Sprintf("items[%d]", i))
			}
			return nil, err
		}
	}

	resolutions := make([]core.Resolution, len(batch))
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(batchClassifyLimit)
	for i := range batch {
		g.Go(func() error {
			categoryID, resolution, err := s.resolveCategory(gctx, batch[i])
			if err != nil {
				return fmt.Errorf("items[%d]: %w", i, err)
			}
			batch[i].CategoryID = categoryID
			resolutions[i] = resolution
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	ids, err := s.expenses.CreateExpenses(ctx, batch)
	if err != nil {
		return nil, fmt.Errorf("save expenses: %w", err)
	}

	created, err := s.expenses.GetExpenses(ctx, ids)
	if err != nil {
		return nil, fmt.Errorf("reload expenses: %w", err)
	}

	s.logger.InfoContext(ctx, "Expense batch created",
		log.FieldOperation, log.OpBatch,
		log.FieldCount, len(ids))
	for i, id := range ids {
		s.publishCreated(ctx, id, batch[i].CategoryID, resolutions[i])
	}
	return created, nil
}

// Update replaces the expense stored under id and resolves its category
// again with the same policy as Create. The id carried in e must match.
func (s *ExpenseService) Update(ctx context.Context, id int64, e core.Expense) error {
	if e.ID != id {
		return core.ErrIDMismatch
	}
	e.Normalize()
	if err := core.Validate(e); err != nil {
		return err
	}

	categoryID, resolution, err := s.resolveCategory(ctx, e)
	if err != nil {
		return err
	}
	e.CategoryID = categoryID

	if err := s.expenses.UpdateExpense(ctx, e); err != nil {
		return err
	}

	s.logger.InfoContext(ctx, "Expense updated",
		log.FieldExpenseID, id,
		log.FieldCategoryID, categoryID,
		log.FieldResolution, string(resolution),
		log.FieldOperation, log.OpUpdate)
	return nil
}

func (s *ExpenseService) Get(ctx context.Context, id int64) (core.Expense, error) {
	e, err := s.expenses.GetExpense(ctx, id)
	if err != nil {
		return core.Expense{}, err
	}
	return e, nil
}

// List returns every expense, newest first.
func (s *ExpenseService) List(ctx context.Context) ([]core.Expense, error) {
	list, err := s.expenses.ListExpenses(ctx)
	if err != nil {
		return nil, fmt.Errorf("list expenses: %w", err)
	}
	return list, nil
}

func (s *ExpenseService) Delete(ctx context.Context, id int64) error {
	if err := s.expenses.DeleteExpense(ctx, id); err != nil {
		return err
	}
	s.logger.InfoContext(ctx, "Expense deleted",
		log.FieldExpenseID, id,
		log.FieldOperation, log.OpDelete)
	return nil
}

// Reclassify asks the classifier again for an expense that ended up in
// the fallback category. It reports whether the category changed.
func (s *ExpenseService) Reclassify(ctx context.Context, id int64) (bool, error) {
	e, err := s.expenses.GetExpense(ctx, id)
	if err != nil {
		return false, fmt.Errorf("get expense: %w", err)
	}

	label := s.classifier.Classify(ctx, e.Description)
	if core.SameCategory(label, s.fallback) {
		return false, nil
	}

	cat, err := s.categories.GetCategoryByName(ctx, label)
	if errors.Is(err, core.ErrNotFound) {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("find category %q: %w", label, err)
	}
	if cat.ID == e.CategoryID {
		return false, nil
	}

	if err := s.expenses.UpdateExpenseCategory(ctx, id, cat.ID); err != nil {
		return false, fmt.Errorf("update expense %d: %w", id, err)
	}

	s.logger.InfoContext(ctx, "Expense reclassified",
		log.FieldExpenseID, id,
		log.FieldCategoryID, cat.ID,
		log.FieldLabel, cat.Name,
		log.FieldOperation, log.OpReclassify)
	return true, nil
}

// resolveCategory picks the category for e: the provided one if it
// exists, else the classifier's label, else the fallback category.
func (s *ExpenseService) resolveCategory(ctx context.Context, e core.Expense) (int64, core.Resolution, error) {
	if e.CategoryID > 0 {
		ok, err := s.categories.CategoryExists(ctx, e.CategoryID)
		if err != nil {
			return 0, "", fmt.Errorf("check category %d: %w", e.CategoryID, err)
		}
		if ok {
			return e.CategoryID, core.ResolutionProvided, nil
		}
	}

	label := s.classifier.Classify(ctx, e.Description)
	if !core.SameCategory(label, s.fallback) {
		cat, err := s.categories.GetCategoryByName(ctx, label)
		switch {
		case err == nil:
			return cat.ID, core.ResolutionClassified, nil
		case !errors.Is(err, core.ErrNotFound):
			return 0, "", fmt.Errorf("find category %q: %w", label, err)
		}
		s.logger.DebugContext(ctx, "Classifier label matches no category",
			log.FieldLabel, label)
	}

	id, err := s.fallbackCategory(ctx)
	if err != nil {
		return 0, "", err
	}
	return id, core.ResolutionFallback, nil
}

// fallbackCategory returns the fallback category id, creating the
// category if it has been removed.
func (s *ExpenseService) fallbackCategory(ctx context.Context) (int64, error) {
	cat, err := s.categories.GetCategoryByName(ctx, s.fallback)
	if err == nil {
		return cat.ID, nil
	}
	if !errors.Is(err, core.ErrNotFound) {
		return 0, fmt.Errorf("find fallback category: %w", err)
	}

	if err := s.categories.EnsureCategories(ctx, []string{s.fallback}); err != nil {
		return 0, fmt.Errorf("create fallback category: %w", err)
	}
	cat, err = s.categories.GetCategoryByName(ctx, s.fallback)
	if err != nil {
		return 0, fmt.Errorf("find fallback category: %w", err)
	}
	return cat.ID, nil
}

func (s *ExpenseService) publishCreated(ctx context.Context, id, categoryID int64, resolution core.Resolution) {
	if s.publisher == nil {
		return
	}
	if err := s.publisher.PublishExpenseCreated(ctx, id, categoryID, resolution); err != nil {
		s.logger.ErrorContext(ctx, "Failed to publish expense event",
			log.FieldExpenseID, id,
			log.FieldOperation, log.OpPublish,
			log.FieldError, err.Error())
	}
}
