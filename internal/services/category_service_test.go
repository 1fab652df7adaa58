package services

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"bookkeeper/internal/core"
	"bookkeeper/internal/repository"
	"bookkeeper/internal/repository/memory"
)

var spent = time.Date(2025, 6, 20, 12, 0, 0, 0, time.UTC)

func TestCategoryDeleteCascade(t *testing.T) {
	forEachBackend(t, func(t *testing.T, store repository.Store) {
		ctx := context.Background()
		svc := NewCategoryService(store, "other")

		root, err := svc.EnsureRoot(ctx)
		require.NoError(t, err)
		a, err := svc.Add(ctx, "A", "other")
		require.NoError(t, err)
		b, err := svc.Add(ctx, "B", "a")
		require.NoError(t, err)
		exp := mustAddExpense(t, store, 10, b.PK, spent)

		// Deleting A lifts B to the root; the expense still points at B.
		require.NoError(t, svc.Delete(ctx, a.PK))

		gotB, err := store.Repos().Categories.Get(ctx, b.PK)
		require.NoError(t, err)
		assert.Equal(t, root, gotB.Parent)

		gotExp, err := store.Repos().Expenses.Get(ctx, exp)
		require.NoError(t, err)
		assert.Equal(t, b.PK, gotExp.Category)

		_, err = store.Repos().Categories.Get(ctx, a.PK)
		assert.ErrorIs(t, err, core.ErrNotFound)
	})
}

func TestCategoryDeleteMovesExpensesToParent(t *testing.T) {
	forEachBackend(t, func(t *testing.T, store repository.Store) {
		ctx := context.Background()
		svc := NewCategoryService(store, "")

		_, err := svc.EnsureRoot(ctx)
		require.NoError(t, err)
		a, err := svc.Add(ctx, "a", "other")
		require.NoError(t, err)
		b, err := svc.Add(ctx, "b", "a")
		require.NoError(t, err)
		c1, err := svc.Add(ctx, "c1", "b")
		require.NoError(t, err)
		c2, err := svc.Add(ctx, "c2", "b")
		require.NoError(t, err)

		var exps []int64
		for i := 0; i < 3; i++ {
			exps = append(exps, mustAddExpense(t, store, int64(i+1), b.PK, spent))
		}
		untouched := mustAddExpense(t, store, 99, c1.PK, spent)

		require.NoError(t, svc.Delete(ctx, b.PK))

		for _, pk := range exps {
			e, err := store.Repos().Expenses.Get(ctx, pk)
			require.NoError(t, err)
			assert.Equal(t, a.PK, e.Category, "every expense of the deleted category moves up")
		}
		e, err := store.Repos().Expenses.Get(ctx, untouched)
		require.NoError(t, err)
		assert.Equal(t, c1.PK, e.Category)

		for _, pk := range []int64{c1.PK, c2.PK} {
			c, err := store.Repos().Categories.Get(ctx, pk)
			require.NoError(t, err)
			assert.Equal(t, a.PK, c.Parent, "every child moves up")
		}
	})
}

func TestCategoryDeleteRootIsNoop(t *testing.T) {
	forEachBackend(t, func(t *testing.T, store repository.Store) {
		ctx := context.Background()
		svc := NewCategoryService(store, "other")

		root, err := svc.EnsureRoot(ctx)
		require.NoError(t, err)
		_, err = svc.Add(ctx, "food", "other")
		require.NoError(t, err)
		mustAddExpense(t, store, 5, root, spent)

		before, err := store.Repos().Categories.GetAll(ctx, core.CategoryFilter{})
		require.NoError(t, err)

		require.NoError(t, svc.Delete(ctx, root))
		require.NoError(t, svc.DeleteByName(ctx, "OTHER"))

		after, err := store.Repos().Categories.GetAll(ctx, core.CategoryFilter{})
		require.NoError(t, err)
		assert.Equal(t, before, after)

		expenses, err := store.Repos().Expenses.GetAll(ctx, core.ExpenseFilter{Category: &root})
		require.NoError(t, err)
		assert.Len(t, expenses, 1)
	})
}

func TestCategoryDeleteMissing(t *testing.T) {
	svc := NewCategoryService(memory.New(), "")
	err := svc.Delete(context.Background(), 404)
	assert.ErrorIs(t, err, core.ErrNotFound)

	err = svc.DeleteByName(context.Background(), "ghost")
	assert.ErrorIs(t, err, core.ErrValidation)
}

func TestCategoryDeleteIsAtomic(t *testing.T) {
	ctx := context.Background()
	store := memory.New()
	svc := NewCategoryService(failingUpdates{store}, "")

	_, err := svc.EnsureRoot(ctx)
	require.NoError(t, err)
	food, err := svc.Add(ctx, "food", "other")
	require.NoError(t, err)
	mustAddExpense(t, store, 10, food.PK, spent)

	err = svc.Delete(ctx, food.PK)
	assert.ErrorIs(t, err, errInjected)

	_, err = store.Repos().Categories.Get(ctx, food.PK)
	assert.NoError(t, err, "a failed cascade must leave the category in place")
}

func TestCategoryResolve(t *testing.T) {
	ctx := context.Background()
	store := memory.New()
	svc := NewCategoryService(store, "")

	first, err := svc.Add(ctx, "Coffee", "")
	require.NoError(t, err)
	_, err = svc.Add(ctx, "coffee", "")
	require.NoError(t, err)

	pk, ok, err := svc.Resolve(ctx, "COFFEE")
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, first.PK, pk, "first match wins")

	_, ok, err = svc.Resolve(ctx, "tea")
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestCategoryAddValidatesParent(t *testing.T) {
	ctx := context.Background()
	store := memory.New()
	svc := NewCategoryService(store, "")

	_, err := svc.Add(ctx, "food", "missing")
	assert.ErrorIs(t, err, core.ErrInvalidParent)

	all, err := store.Repos().Categories.GetAll(ctx, core.CategoryFilter{})
	require.NoError(t, err)
	assert.Empty(t, all)

	_, err = svc.Add(ctx, "   ", "")
	assert.ErrorIs(t, err, core.ErrValidation)
}

func TestCategoryReparent(t *testing.T) {
	ctx := context.Background()
	store := memory.New()
	svc := NewCategoryService(store, "other")

	root, err := svc.EnsureRoot(ctx)
	require.NoError(t, err)
	a, err := svc.Add(ctx, "a", "other")
	require.NoError(t, err)
	b, err := svc.Add(ctx, "b", "a")
	require.NoError(t, err)
	c, err := svc.Add(ctx, "c", "b")
	require.NoError(t, err)

	tests := []struct {
		name       string
		pk         int64
		parentName string
		wantErr    error
		wantParent int64
	}{
		{"unknown parent", b.PK, "nowhere", core.ErrInvalidParent, a.PK},
		{"self", b.PK, "b", core.ErrInvalidParent, a.PK},
		{"descendant", a.PK, "c", core.ErrInvalidParent, root},
		{"root under child", root, "a", core.ErrInvalidParent, 0},
		{"missing category", 404, "a", core.ErrNotFound, 0},
		{"move up", c.PK, "A", nil, a.PK},
		{"detach", b.PK, "", nil, 0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := svc.Reparent(ctx, tt.pk, tt.parentName)
			if tt.wantErr != nil {
				assert.ErrorIs(t, err, tt.wantErr)
			} else {
				require.NoError(t, err)
			}
			if tt.pk == 404 {
				return
			}
			got, err := store.Repos().Categories.Get(ctx, tt.pk)
			require.NoError(t, err)
			assert.Equal(t, tt.wantParent, got.Parent)
		})
	}
}

func TestCategoryRename(t *testing.T) {
	ctx := context.Background()
	store := memory.New()
	svc := NewCategoryService(store, "other")

	root, err := svc.EnsureRoot(ctx)
	require.NoError(t, err)
	food, err := svc.Add(ctx, "food", "other")
	require.NoError(t, err)

	require.NoError(t, svc.Rename(ctx, food.PK, "Groceries"))
	got, err := store.Repos().Categories.Get(ctx, food.PK)
	require.NoError(t, err)
	assert.Equal(t, "groceries", got.Name)
	assert.Equal(t, root, got.Parent)

	assert.ErrorIs(t, svc.Rename(ctx, root, "misc"), core.ErrValidation)
	assert.NoError(t, svc.Rename(ctx, root, "OTHER"))
	assert.ErrorIs(t, svc.Rename(ctx, food.PK, " "), core.ErrValidation)
}

func TestCategoryRootStaysUnique(t *testing.T) {
	forEachBackend(t, func(t *testing.T, store repository.Store) {
		ctx := context.Background()
		svc := NewCategoryService(store, "other")

		root, err := svc.EnsureRoot(ctx)
		require.NoError(t, err)
		food, err := svc.Add(ctx, "food", "other")
		require.NoError(t, err)
		nested, err := svc.Add(ctx, "Other", "food")
		require.NoError(t, err, "a root-named category under a parent is an ordinary category")

		_, err = svc.Add(ctx, "Other", "")
		assert.ErrorIs(t, err, core.ErrValidation)
		assert.ErrorIs(t, svc.Reparent(ctx, nested.PK, ""), core.ErrValidation)

		require.NoError(t, svc.Reparent(ctx, food.PK, ""))
		assert.ErrorIs(t, svc.Rename(ctx, food.PK, "OTHER"), core.ErrValidation)

		roots, err := store.Repos().Categories.GetAll(ctx, core.CategoryFilter{Parent: core.Ptr(int64(0))})
		require.NoError(t, err)
		names := map[string]int{}
		for _, c := range roots {
			names[c.Name]++
		}
		assert.Equal(t, 1, names["other"])

		got, err := store.Repos().Categories.Get(ctx, nested.PK)
		require.NoError(t, err)
		assert.Equal(t, food.PK, got.Parent)

		require.NoError(t, svc.Delete(ctx, nested.PK))
		_, err = store.Repos().Categories.Get(ctx, nested.PK)
		assert.ErrorIs(t, err, core.ErrNotFound)
		_, err = store.Repos().Categories.Get(ctx, root)
		assert.NoError(t, err)
	})
}

func TestCategoryEnsureRootIsIdempotent(t *testing.T) {
	ctx := context.Background()
	svc := NewCategoryService(memory.New(), "Misc")

	first, err := svc.EnsureRoot(ctx)
	require.NoError(t, err)
	second, err := svc.EnsureRoot(ctx)
	require.NoError(t, err)
	assert.Equal(t, first, second)
	assert.True(t, svc.IsRoot(core.Category{Name: "misc"}))
	assert.False(t, svc.IsRoot(core.Category{Name: "misc", Parent: 3}))
}

func TestCategoryPath(t *testing.T) {
	ctx := context.Background()
	svc := NewCategoryService(memory.New(), "")

	_, err := svc.EnsureRoot(ctx)
	require.NoError(t, err)
	_, err = svc.Add(ctx, "home", "other")
	require.NoError(t, err)
	rent, err := svc.Add(ctx, "rent", "home")
	require.NoError(t, err)

	path, err := svc.Path(ctx, rent.PK)
	require.NoError(t, err)
	names := make([]string, len(path))
	for i, c := range path {
		names[i] = c.Name
	}
	assert.Equal(t, []string{"rent", "home", "other"}, names)
}
