package storage

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/stretchr/testify/suite"

	"bookkeeper/internal/core"
	"bookkeeper/internal/repository"
	"bookkeeper/internal/repository/repositorytest"
)

func TestSQLiteStoreContract(t *testing.T) {
	suite.Run(t, &repositorytest.ContractSuite{
		NewStore: func() (repository.Store, error) { return NewSQLiteStore(MemoryPath) },
	})
}

func TestSQLiteStorePersistsAcrossReopen(t *testing.T) {
	ctx := context.Background()
	path := filepath.Join(t.TempDir(), "nested", "bookkeeper.db")

	store, err := NewSQLiteStore(path)
	require.NoError(t, err)

	c := core.NewCategory("Other", 0)
	pk, err := store.Repos().Categories.Add(ctx, &c)
	require.NoError(t, err)
	require.NoError(t, store.Close())

	// Migrations must be a no-op the second time around.
	store, err = NewSQLiteStore(path)
	require.NoError(t, err)
	defer store.Close()

	got, err := store.Repos().Categories.Get(ctx, pk)
	require.NoError(t, err)
	assert.Equal(t, "other", got.Name)
}

func TestSQLiteStoreReadsTimestampsAsUTC(t *testing.T) {
	ctx := context.Background()
	store, err := NewSQLiteStore(MemoryPath)
	require.NoError(t, err)
	defer store.Close()

	zone := time.FixedZone("UTC+3", 3*60*60)
	local := time.Date(2025, 1, 1, 2, 0, 0, 0, zone)

	e := core.NewExpense(10, 0, core.WithExpenseDate(local), core.WithAddedDate(local))
	pk, err := store.Repos().Expenses.Add(ctx, &e)
	require.NoError(t, err)

	got, err := store.Repos().Expenses.Get(ctx, pk)
	require.NoError(t, err)
	assert.True(t, got.ExpenseDate.Equal(local))
	assert.Equal(t, time.UTC, got.ExpenseDate.Location())
	assert.Equal(t, 31, got.ExpenseDate.Day())
}

func TestCompileWhere(t *testing.T) {
	tests := []struct {
		name      string
		conds     []repository.Condition
		wantWhere string
		wantArgs  []any
	}{
		{
			name: "no conditions",
		},
		{
			name:      "equality and null",
			conds:     []repository.Condition{{Column: "name", Value: "food"}, {Column: "parent", Value: nil}},
			wantWhere: " WHERE name = ? AND parent IS NULL",
			wantArgs:  []any{"food"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			where, args := compileWhere(tt.conds)
			assert.Equal(t, tt.wantWhere, where)
			assert.Equal(t, len(tt.wantArgs), len(args))
			for i := range tt.wantArgs {
				assert.Equal(t, tt.wantArgs[i], args[i])
			}
		})
	}
}

func TestNewTableStatements(t *testing.T) {
	tbl := NewTable[core.Category, core.CategoryFilter](nil, repository.Categories)

	assert.Equal(t, "INSERT INTO categories (name, parent) VALUES (?, ?)", tbl.insertSQL)
	assert.Equal(t, "SELECT pk, name, parent FROM categories", tbl.selectSQL)
	assert.Equal(t, "UPDATE categories SET name = ?, parent = ? WHERE pk = ?", tbl.updateSQL)
	assert.Equal(t, "DELETE FROM categories WHERE pk = ?", tbl.deleteSQL)
}
