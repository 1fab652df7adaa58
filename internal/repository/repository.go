// Package repository defines the generic persistence contract shared by every
// backend, together with the per-entity descriptors that map entities onto
// columns.
package repository

import (
	"context"

	"bookkeeper/internal/core"
)

// Repository is the typed CRUD contract for one entity type T filtered by F.
type Repository[T any, F any] interface {
	// Add assigns a fresh identity to item, persists it and returns the identity.
	Add(ctx context.Context, item *T) (int64, error)

	// Get returns the record with the given identity or a core.NotFoundError.
	// Timestamps come back in UTC: the same instant as written, compared
	// with time.Time.Equal, but not == when written in another location.
	Get(ctx context.Context, pk int64) (T, error)

	// GetAll returns records matching every non-nil field of filter,
	// ascending by identity. The zero filter returns everything.
	GetAll(ctx context.Context, filter F) ([]T, error)

	// Update replaces the record identified by item's PK.
	Update(ctx context.Context, item T) error

	// Delete removes the record. It never cascades.
	Delete(ctx context.Context, pk int64) error
}

type (
	ExpenseRepository  = Repository[core.Expense, core.ExpenseFilter]
	CategoryRepository = Repository[core.Category, core.CategoryFilter]
	BudgetRepository   = Repository[core.Budget, core.BudgetFilter]
)

// Repos bundles the repositories of all entity types that share a backend.
type Repos struct {
	Expenses   ExpenseRepository
	Categories CategoryRepository
	Budgets    BudgetRepository
}

// Store is a backend holding the three repositories.
type Store interface {
	Repos() Repos

	// WithinTx runs fn against repositories bound to a single transaction.
	// Changes made through them are discarded when fn returns an error.
	WithinTx(ctx context.Context, fn func(Repos) error) error

	Close() error
}
