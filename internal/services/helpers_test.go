package services

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"bookkeeper/internal/core"
	"bookkeeper/internal/repository"
	"bookkeeper/internal/repository/memory"
	"bookkeeper/internal/storage"
)

// backends lists every store implementation the services must work with.
var backends = map[string]func() (repository.Store, error){
	"memory": func() (repository.Store, error) { return memory.New(), nil },
	"sqlite": func() (repository.Store, error) { return storage.NewSQLiteStore(storage.MemoryPath) },
}

func forEachBackend(t *testing.T, fn func(t *testing.T, store repository.Store)) {
	for name, open := range backends {
		t.Run(name, func(t *testing.T) {
			store, err := open()
			require.NoError(t, err)
			t.Cleanup(func() { store.Close() })
			fn(t, store)
		})
	}
}

func fixedClock(t time.Time) func() time.Time {
	return func() time.Time { return t }
}

func mustAddExpense(t *testing.T, store repository.Store, amount, category int64, date time.Time) int64 {
	t.Helper()
	e := core.NewExpense(amount, category, core.WithExpenseDate(date), core.WithAddedDate(date))
	pk, err := store.Repos().Expenses.Add(context.Background(), &e)
	require.NoError(t, err)
	return pk
}

var errInjected = errors.New("injected failure")

// failingUpdates makes every expense update fail inside transactions.
type failingUpdates struct {
	repository.Store
}

func (f failingUpdates) WithinTx(ctx context.Context, fn func(repository.Repos) error) error {
	return f.Store.WithinTx(ctx, func(r repository.Repos) error {
		r.Expenses = failingExpenseRepo{r.Expenses}
		return fn(r)
	})
}

type failingExpenseRepo struct {
	repository.ExpenseRepository
}

func (failingExpenseRepo) Update(context.Context, core.Expense) error {
	return errInjected
}
