package core

import (
	"strings"
	"time"
)

// Period lengths in days used by budgets.
const (
	PeriodDay   = 1
	PeriodWeek  = 7
	PeriodMonth = 30
)

// DefaultRootCategory is the name of the protected top-level category.
const DefaultRootCategory = "other"

type (
	// Expense is a single spending record. Category 0 means uncategorized.
	Expense struct {
		PK          int64
		Amount      int64
		Category    int64
		ExpenseDate time.Time
		AddedDate   time.Time
		Comment     string
	}

	// Category is a node of the category forest. Parent 0 means no parent.
	Category struct {
		PK     int64
		Name   string
		Parent int64
	}

	// Budget is a spending limit over a rolling period of Length days.
	Budget struct {
		PK        int64
		Amount    int64
		Category  int64
		Length    int
		StartDate time.Time
		EndDate   time.Time
	}

	ExpenseOption func(*Expense)
	BudgetOption  func(*Budget)
)

// NewExpense builds an expense dated now unless options say otherwise.
func NewExpense(amount, category int64, opts ...ExpenseOption) Expense {
	now := time.Now()
	e := Expense{
		Amount:      amount,
		Category:    category,
		ExpenseDate: now,
		AddedDate:   now,
	}
	for _, opt := range opts {
		opt(&e)
	}
	return e
}

func WithExpenseDate(t time.Time) ExpenseOption {
	return func(e *Expense) { e.ExpenseDate = t }
}

func WithAddedDate(t time.Time) ExpenseOption {
	return func(e *Expense) { e.AddedDate = t }
}

func WithComment(comment string) ExpenseOption {
	return func(e *Expense) { e.Comment = comment }
}

// NewCategory builds a category with a normalized name.
func NewCategory(name string, parent int64) Category {
	return Category{Name: NormalizeName(name), Parent: parent}
}

// NormalizeName lower-cases and trims a category name for storage and lookup.
func NormalizeName(name string) string {
	return strings.ToLower(strings.TrimSpace(name))
}

// NewBudget builds a budget starting now. EndDate defaults to StartDate plus
// length days, computed after all options are applied.
func NewBudget(amount int64, length int, opts ...BudgetOption) Budget {
	b := Budget{
		Amount:    amount,
		Length:    length,
		StartDate: time.Now(),
	}
	for _, opt := range opts {
		opt(&b)
	}
	if b.EndDate.IsZero() {
		b.EndDate = b.StartDate.AddDate(0, 0, length)
	}
	return b
}

func WithBudgetCategory(category int64) BudgetOption {
	return func(b *Budget) { b.Category = category }
}

func WithStartDate(t time.Time) BudgetOption {
	return func(b *Budget) { b.StartDate = t }
}

func WithEndDate(t time.Time) BudgetOption {
	return func(b *Budget) { b.EndDate = t }
}

func (e Expense) Validate() error {
	if e.ExpenseDate.IsZero() {
		return &ValidationError{Entity: "expense", Field: "expense_date", Reason: "must be set"}
	}
	if e.AddedDate.IsZero() {
		return &ValidationError{Entity: "expense", Field: "added_date", Reason: "must be set"}
	}
	return nil
}

func (c Category) Validate() error {
	if NormalizeName(c.Name) == "" {
		return &ValidationError{Entity: "category", Field: "name", Reason: "cannot be empty"}
	}
	if c.PK != 0 && c.Parent == c.PK {
		return &ValidationError{Entity: "category", Field: "parent", Reason: "cannot reference itself"}
	}
	return nil
}

func (b Budget) Validate() error {
	if b.Length <= 0 {
		return &ValidationError{Entity: "budget", Field: "length", Reason: "must be positive"}
	}
	if b.StartDate.IsZero() {
		return &ValidationError{Entity: "budget", Field: "start_date", Reason: "must be set"}
	}
	if b.EndDate.Before(b.StartDate) {
		return &ValidationError{Entity: "budget", Field: "end_date", Reason: "must not be before start_date"}
	}
	return nil
}
