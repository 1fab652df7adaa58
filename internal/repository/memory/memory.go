// Package memory is an in-process backend with the same observable semantics
// as the SQLite store. It backs tests and the "memory" data backend.
package memory

import (
	"context"
	"sync"

	"bookkeeper/internal/core"
	"bookkeeper/internal/repository"
)

// Table keeps rows of one entity type in insertion order.
type Table[T any, F any] struct {
	mu     sync.Mutex
	desc   repository.Descriptor[T, F]
	rows   []T
	nextPK int64
}

func NewTable[T any, F any](desc repository.Descriptor[T, F]) *Table[T, F] {
	return &Table[T, F]{desc: desc, nextPK: 1}
}

func (t *Table[T, F]) Add(_ context.Context, item *T) (int64, error) {
	if t.desc.PK(*item) != 0 {
		return 0, &core.ValidationError{Entity: t.desc.Entity, Field: "pk", Reason: "must be zero on add"}
	}
	if err := t.desc.Validate(*item); err != nil {
		return 0, err
	}

	t.mu.Lock()
	defer t.mu.Unlock()

	pk := t.nextPK
	t.nextPK++
	row := t.desc.Normalize(*item)
	t.desc.SetPK(&row, pk)
	t.rows = append(t.rows, row)
	t.desc.SetPK(item, pk)
	return pk, nil
}

func (t *Table[T, F]) Get(_ context.Context, pk int64) (T, error) {
	t.mu.Lock()
	defer t.mu.Unlock()

	i := t.indexOf(pk)
	if i < 0 {
		var zero T
		return zero, &core.NotFoundError{Entity: t.desc.Entity, PK: pk}
	}
	return t.rows[i], nil
}

func (t *Table[T, F]) GetAll(_ context.Context, filter F) ([]T, error) {
	conds := t.desc.Where(filter)

	t.mu.Lock()
	defer t.mu.Unlock()

	out := make([]T, 0, len(t.rows))
	for _, row := range t.rows {
		if t.desc.Matches(row, conds) {
			out = append(out, row)
		}
	}
	return out, nil
}

func (t *Table[T, F]) Update(_ context.Context, item T) error {
	if err := t.desc.Validate(item); err != nil {
		return err
	}

	t.mu.Lock()
	defer t.mu.Unlock()

	pk := t.desc.PK(item)
	i := t.indexOf(pk)
	if i < 0 {
		return &core.NotFoundError{Entity: t.desc.Entity, PK: pk}
	}
	t.rows[i] = t.desc.Normalize(item)
	return nil
}

func (t *Table[T, F]) Delete(_ context.Context, pk int64) error {
	t.mu.Lock()
	defer t.mu.Unlock()

	i := t.indexOf(pk)
	if i < 0 {
		return &core.NotFoundError{Entity: t.desc.Entity, PK: pk}
	}
	t.rows = append(t.rows[:i], t.rows[i+1:]...)
	return nil
}

// indexOf relies on rows being sorted by pk. Caller holds mu.
func (t *Table[T, F]) indexOf(pk int64) int {
	lo, hi := 0, len(t.rows)
	for lo < hi {
		mid := (lo + hi) / 2
		switch cur := t.desc.PK(t.rows[mid]); {
		case cur == pk:
			return mid
		case cur < pk:
			lo = mid + 1
		default:
			hi = mid
		}
	}
	return -1
}

type tableState[T any] struct {
	rows   []T
	nextPK int64
}

func (t *Table[T, F]) snapshot() tableState[T] {
	t.mu.Lock()
	defer t.mu.Unlock()
	return tableState[T]{rows: append([]T(nil), t.rows...), nextPK: t.nextPK}
}

func (t *Table[T, F]) restore(s tableState[T]) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.rows, t.nextPK = s.rows, s.nextPK
}

// Store holds one table per entity type.
type Store struct {
	txMu       sync.Mutex
	expenses   *Table[core.Expense, core.ExpenseFilter]
	categories *Table[core.Category, core.CategoryFilter]
	budgets    *Table[core.Budget, core.BudgetFilter]
}

func New() *Store {
	return &Store{
		expenses:   NewTable(repository.Expenses),
		categories: NewTable(repository.Categories),
		budgets:    NewTable(repository.Budgets),
	}
}

func (s *Store) Repos() repository.Repos {
	return repository.Repos{
		Expenses:   s.expenses,
		Categories: s.categories,
		Budgets:    s.budgets,
	}
}

// WithinTx snapshots every table and restores them if fn fails. Transactions
// are serialized against each other, not against plain repository calls.
func (s *Store) WithinTx(_ context.Context, fn func(repository.Repos) error) error {
	s.txMu.Lock()
	defer s.txMu.Unlock()

	exp, cat, bud := s.expenses.snapshot(), s.categories.snapshot(), s.budgets.snapshot()
	if err := fn(s.Repos()); err != nil {
		s.expenses.restore(exp)
		s.categories.restore(cat)
		s.budgets.restore(bud)
		return err
	}
	return nil
}

func (s *Store) Close() error { return nil }

var _ repository.Store = (*Store)(nil)
