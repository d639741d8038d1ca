package services

import (
	"context"
	"fmt"
	"sort"
	"sync"

	"utgifter/internal/core"
)

// memStore is an in-memory record store for service tests.
type memStore struct {
	mu         sync.Mutex
	nextID     int64
	categories map[int64]core.Category
	expenses   map[int64]core.Expense
	budgets    map[int64]core.Budget

	failCreate error
}

func newMemStore(names ...string) *memStore {
	s := &memStore{
		categories: map[int64]core.Category{},
		expenses:   map[int64]core.Expense{},
		budgets:    map[int64]core.Budget{},
	}
	for _, n := range names {
		s.nextID++
		s.categories[s.nextID] = core.Category{ID: s.nextID, Name: n}
	}
	return s
}

func (s *memStore) id(name string) int64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	for id, c := range s.categories {
		if core.SameCategory(c.Name, name) {
			return id
		}
	}
	return 0
}

func (s *memStore) ListCategories(context.Context) ([]core.Category, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]core.Category, 0, len(s.categories))
	for _, c := range s.categories {
		out = append(out, c)
	}
	sort.Slice(out, func(i, j int) bool { return core.CategoryKey(out[i].Name) < core.CategoryKey(out[j].Name) })
	return out, nil
}

func (s *memStore) GetCategoryByName(_ context.Context, name string) (core.Category, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, c := range s.categories {
		if core.SameCategory(c.Name, name) {
			return c, nil
		}
	}
	return core.Category{}, fmt.Errorf("category %q: %w", name, core.ErrNotFound)
}

func (s *memStore) CategoryExists(_ context.Context, id int64) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	_, ok := s.categories[id]
	return ok, nil
}

func (s *memStore) CreateCategory(ctx context.Context, name string) (core.Category, error) {
	if _, err := s.GetCategoryByName(ctx, name); err == nil {
		return core.Category{}, core.ErrConflict
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.nextID++
	c := core.Category{ID: s.nextID, Name: name}
	s.categories[c.ID] = c
	return c, nil
}

func (s *memStore) DeleteCategoryByName(ctx context.Context, name string) error {
	c, err := s.GetCategoryByName(ctx, name)
	if err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, e := range s.expenses {
		if e.CategoryID == c.ID {
			return core.ErrConflict
		}
	}
	delete(s.categories, c.ID)
	return nil
}

func (s *memStore) EnsureCategories(ctx context.Context, names []string) error {
	for _, n := range names {
		if _, err := s.GetCategoryByName(ctx, n); err == nil {
			continue
		}
		if _, err := s.CreateCategory(ctx, n); err != nil {
			return err
		}
	}
	return nil
}

func (s *memStore) hydrate(e core.Expense) core.Expense {
	if c, ok := s.categories[e.CategoryID]; ok {
		e.Category = &c
	}
	return e
}

func (s *memStore) CreateExpense(_ context.Context, e core.Expense) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.failCreate != nil {
		return 0, s.failCreate
	}
	if _, ok := s.categories[e.CategoryID]; !ok {
		return 0, core.InvalidCategoryError()
	}
	s.nextID++
	e.ID = s.nextID
	s.expenses[e.ID] = e
	return e.ID, nil
}

func (s *memStore) CreateExpenses(ctx context.Context, list []core.Expense) ([]int64, error) {
	s.mu.Lock()
	if s.failCreate != nil {
		s.mu.Unlock()
		return nil, s.failCreate
	}
	s.mu.Unlock()
	ids := make([]int64, 0, len(list))
	for _, e := range list {
		id, err := s.CreateExpense(ctx, e)
		if err != nil {
			return nil, err
		}
		ids = append(ids, id)
	}
	return ids, nil
}

func (s *memStore) GetExpense(_ context.Context, id int64) (core.Expense, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	e, ok := s.expenses[id]
	if !ok {
		return core.Expense{}, fmt.Errorf("expense %d: %w", id, core.ErrNotFound)
	}
	return s.hydrate(e), nil
}

func (s *memStore) GetExpenses(ctx context.Context, ids []int64) ([]core.Expense, error) {
	out := make([]core.Expense, 0, len(ids))
	for _, id := range ids {
		e, err := s.GetExpense(ctx, id)
		if err != nil {
			return nil, err
		}
		out = append(out, e)
	}
	return out, nil
}

func (s *memStore) ListExpenses(context.Context) ([]core.Expense, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]core.Expense, 0, len(s.expenses))
	for _, e := range s.expenses {
		out = append(out, s.hydrate(e))
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID > out[j].ID })
	return out, nil
}

func (s *memStore) DeleteExpense(_ context.Context, id int64) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.expenses[id]; !ok {
		return core.ErrNotFound
	}
	delete(s.expenses, id)
	return nil
}

func (s *memStore) UpdateExpenseCategory(_ context.Context, id, categoryID int64) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	e, ok := s.expenses[id]
	if !ok {
		return core.ErrNotFound
	}
	e.CategoryID = categoryID
	s.expenses[id] = e
	return nil
}

func (s *memStore) UpdateExpense(_ context.Context, e core.Expense) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.expenses[e.ID]; !ok {
		return fmt.Errorf("expense %d: %w", e.ID, core.ErrNotFound)
	}
	if _, ok := s.categories[e.CategoryID]; !ok {
		return core.InvalidCategoryError()
	}
	s.expenses[e.ID] = e
	return nil
}

func (s *memStore) CreateBudget(_ context.Context, b core.Budget) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.nextID++
	b.ID = s.nextID
	s.budgets[b.ID] = b
	return b.ID, nil
}

func (s *memStore) GetBudget(_ context.Context, id int64) (core.Budget, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	b, ok := s.budgets[id]
	if !ok {
		return core.Budget{}, fmt.Errorf("budget %d: %w", id, core.ErrNotFound)
	}
	if b.CategoryID != nil {
		if c, ok := s.categories[*b.CategoryID]; ok {
			b.Category = &c
		}
	}
	return b, nil
}

func (s *memStore) ListBudgets(context.Context) ([]core.Budget, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]core.Budget, 0, len(s.budgets))
	for _, b := range s.budgets {
		out = append(out, b)
	}
	return out, nil
}

func (s *memStore) UpdateBudget(_ context.Context, b core.Budget) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.budgets[b.ID]; !ok {
		return fmt.Errorf("budget %d: %w", b.ID, core.ErrNotFound)
	}
	s.budgets[b.ID] = b
	return nil
}

func (s *memStore) DeleteBudget(_ context.Context, id int64) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.budgets[id]; !ok {
		return core.ErrNotFound
	}
	delete(s.budgets, id)
	return nil
}

// scriptedClassifier answers from a map and counts calls.
type scriptedClassifier struct {
	mu       sync.Mutex
	answers  map[string]string
	fallback string
	calls    int
}

func (c *scriptedClassifier) Classify(_ context.Context, description string) string {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.calls++
	if label, ok := c.answers[description]; ok {
		return label
	}
	return c.fallback
}

func (c *scriptedClassifier) count() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.calls
}

type publishedEvent struct {
	id         int64
	categoryID int64
	resolution core.Resolution
}

type recordingPublisher struct {
	mu     sync.Mutex
	events []publishedEvent
	err    error
}

func (p *recordingPublisher) PublishExpenseCreated(_ context.Context, id, categoryID int64, resolution core.Resolution) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.events = append(p.events, publishedEvent{id, categoryID, resolution})
	return p.err
}
