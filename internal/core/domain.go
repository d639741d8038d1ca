package core

import (
	"strings"

	"github.com/shopspring/decimal"
)

type (
	Category struct {
		ID   int64  `json:"id" db:"id"`
		Name string `json:"name" db:"name" validate:"required,notblank,max=100"`
	}

	// Amounts are bounded by what a NUMERIC(14,2) column holds.
	Expense struct {
		ID          int64           `json:"id"`
		Description string          `json:"description" validate:"required,notblank"`
		Amount      decimal.Decimal `json:"amount" validate:"gte=0,lte=999999999999.99"`
		Date        Date            `json:"date" validate:"required"`
		CategoryID  int64           `json:"categoryId"`
		Category    *Category       `json:"category,omitempty"`
	}

	// Budget with a nil CategoryID applies to all categories.
	Budget struct {
		ID         int64           `json:"id"`
		Name       string          `json:"name" validate:"required,notblank,max=200"`
		Amount     decimal.Decimal `json:"amount" validate:"gte=0,lte=999999999999.99"`
		StartDate  Date            `json:"startDate" validate:"required"`
		EndDate    Date            `json:"endDate" validate:"required"`
		CategoryID *int64          `json:"categoryId"`
		Category   *Category       `json:"category,omitempty"`
	}
)

// CategoryKey is the normalized form category names are compared by.
func CategoryKey(name string) string {
	return strings.ToLower(strings.TrimSpace(name))
}

// SameCategory reports whether two names denote the same category.
func SameCategory(a, b string) bool {
	return CategoryKey(a) == CategoryKey(b)
}

// Normalize trims the free-text fields and rounds the amount.
func (e *Expense) Normalize() {
	e.Description = strings.TrimSpace(e.Description)
	e.Amount = RoundAmount(e.Amount)
	e.Date = e.Date.UTC()
}

func (b *Budget) Normalize() {
	b.Name = strings.TrimSpace(b.Name)
	b.Amount = RoundAmount(b.Amount)
	b.StartDate = b.StartDate.UTC()
	b.EndDate = b.EndDate.UTC()
	if b.CategoryID != nil && *b.CategoryID == 0 {
		b.CategoryID = nil
	}
}

// CheckPeriod reports an end date that lies before the start date.
func (b Budget) CheckPeriod() error {
	if b.StartDate.IsZero() || b.EndDate.IsZero() {
		return nil
	}
	if b.EndDate.Before(b.StartDate.Time) {
		return NewValidationError("endDate", "must not be before startDate")
	}
	return nil
}

// Resolution records how an expense got its category.
type Resolution string

const (
	ResolutionProvided   Resolution = "provided"
	ResolutionClassified Resolution = "classified"
	ResolutionFallback   Resolution = "fallback"
)
