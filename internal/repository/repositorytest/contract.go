// Package repositorytest holds the behavioral contract every repository.Store
// must satisfy. Backends run it from their own tests.
package repositorytest

import (
	"context"
	"errors"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/stretchr/testify/suite"

	"bookkeeper/internal/core"
	"bookkeeper/internal/repository"
)

// ContractSuite exercises a fresh store per test.
type ContractSuite struct {
	suite.Suite
	NewStore func() (repository.Store, error)

	ctx   context.Context
	store repository.Store
	repos repository.Repos
}

var day = time.Date(2025, 6, 2, 9, 30, 15, 123456789, time.UTC)

func (s *ContractSuite) SetupTest() {
	store, err := s.NewStore()
	require.NoError(s.T(), err, "failed to create store")
	s.ctx = context.Background()
	s.store = store
	s.repos = store.Repos()
}

func (s *ContractSuite) TearDownTest() {
	if s.store != nil {
		s.store.Close()
	}
}

func (s *ContractSuite) addCategory(name string, parent int64) int64 {
	c := core.NewCategory(name, parent)
	pk, err := s.repos.Categories.Add(s.ctx, &c)
	require.NoError(s.T(), err)
	return pk
}

func (s *ContractSuite) addExpense(amount, category int64, comment string) int64 {
	e := core.NewExpense(amount, category,
		core.WithExpenseDate(day), core.WithAddedDate(day), core.WithComment(comment))
	pk, err := s.repos.Expenses.Add(s.ctx, &e)
	require.NoError(s.T(), err)
	return pk
}

func (s *ContractSuite) TestExpenseRoundTrip() {
	e := core.NewExpense(120, 3,
		core.WithExpenseDate(day),
		core.WithAddedDate(day.Add(time.Hour)),
		core.WithComment("groceries"))

	pk, err := s.repos.Expenses.Add(s.ctx, &e)
	require.NoError(s.T(), err)
	assert.NotZero(s.T(), pk)
	assert.Equal(s.T(), pk, e.PK, "add should populate the pk")

	got, err := s.repos.Expenses.Get(s.ctx, pk)
	require.NoError(s.T(), err)
	assert.Equal(s.T(), e, got)
}

func (s *ContractSuite) TestTimestampsReadBackInUTC() {
	cet := time.FixedZone("CET", 60*60)
	local := time.Date(2025, 6, 2, 11, 30, 15, 0, cet)
	e := core.NewExpense(5, 0, core.WithExpenseDate(local), core.WithAddedDate(local))

	pk, err := s.repos.Expenses.Add(s.ctx, &e)
	require.NoError(s.T(), err)

	got, err := s.repos.Expenses.Get(s.ctx, pk)
	require.NoError(s.T(), err)
	assert.True(s.T(), local.Equal(got.ExpenseDate), "same instant: %v vs %v", local, got.ExpenseDate)
	assert.True(s.T(), local.Equal(got.AddedDate))
	assert.Equal(s.T(), time.UTC, got.ExpenseDate.Location())
	assert.Equal(s.T(), time.Date(2025, 6, 2, 10, 30, 15, 0, time.UTC), got.ExpenseDate)

	byDate, err := s.repos.Expenses.GetAll(s.ctx, core.ExpenseFilter{ExpenseDate: &local})
	require.NoError(s.T(), err)
	assert.Equal(s.T(), []int64{pk}, pks(byDate), "filters match the instant, not the location")
}

func (s *ContractSuite) TestCategoryRoundTripNormalizesName() {
	root := s.addCategory("Other", 0)
	c := core.Category{Name: "Food", Parent: root}

	pk, err := s.repos.Categories.Add(s.ctx, &c)
	require.NoError(s.T(), err)

	got, err := s.repos.Categories.Get(s.ctx, pk)
	require.NoError(s.T(), err)
	assert.Equal(s.T(), core.Category{PK: pk, Name: "food", Parent: root}, got)
}

func (s *ContractSuite) TestBudgetRoundTrip() {
	b := core.NewBudget(500, core.PeriodMonth, core.WithStartDate(day))

	pk, err := s.repos.Budgets.Add(s.ctx, &b)
	require.NoError(s.T(), err)

	got, err := s.repos.Budgets.Get(s.ctx, pk)
	require.NoError(s.T(), err)
	assert.Equal(s.T(), b, got)
	assert.Equal(s.T(), day.AddDate(0, 0, 30), got.EndDate)
}

func (s *ContractSuite) TestAddRejectsAssignedPK() {
	e := core.NewExpense(1, 0, core.WithExpenseDate(day))
	e.PK = 42

	_, err := s.repos.Expenses.Add(s.ctx, &e)
	assert.ErrorIs(s.T(), err, core.ErrValidation)
}

func (s *ContractSuite) TestAddRejectsInvalidEntity() {
	_, err := s.repos.Categories.Add(s.ctx, &core.Category{Name: "  "})
	assert.ErrorIs(s.T(), err, core.ErrValidation)

	_, err = s.repos.Budgets.Add(s.ctx, &core.Budget{Amount: 10, StartDate: day, EndDate: day})
	assert.ErrorIs(s.T(), err, core.ErrValidation)

	all, err := s.repos.Budgets.GetAll(s.ctx, core.BudgetFilter{})
	require.NoError(s.T(), err)
	assert.Empty(s.T(), all, "failed add must not persist anything")
}

func (s *ContractSuite) TestIdentitiesAreUnique() {
	seen := map[int64]bool{}
	for i := 0; i < 5; i++ {
		pk := s.addExpense(int64(i), 0, "")
		assert.False(s.T(), seen[pk], "duplicate pk %d", pk)
		seen[pk] = true
	}
}

func (s *ContractSuite) TestUpdateReplacesRecord() {
	pk := s.addExpense(10, 1, "before")

	updated := core.Expense{
		PK:          pk,
		Amount:      99,
		Category:    2,
		ExpenseDate: day.AddDate(0, 0, -1),
		AddedDate:   day,
		Comment:     "after",
	}
	require.NoError(s.T(), s.repos.Expenses.Update(s.ctx, updated))

	got, err := s.repos.Expenses.Get(s.ctx, pk)
	require.NoError(s.T(), err)
	assert.Equal(s.T(), updated, got)
}

func (s *ContractSuite) TestUpdateMissingFails() {
	err := s.repos.Categories.Update(s.ctx, core.Category{PK: 77, Name: "ghost"})
	assert.ErrorIs(s.T(), err, core.ErrNotFound)

	var nf *core.NotFoundError
	require.True(s.T(), errors.As(err, &nf))
	assert.Equal(s.T(), int64(77), nf.PK)
}

func (s *ContractSuite) TestDeleteThenGetFails() {
	pk := s.addExpense(10, 0, "")

	require.NoError(s.T(), s.repos.Expenses.Delete(s.ctx, pk))

	_, err := s.repos.Expenses.Get(s.ctx, pk)
	assert.ErrorIs(s.T(), err, core.ErrNotFound)

	err = s.repos.Expenses.Delete(s.ctx, pk)
	assert.ErrorIs(s.T(), err, core.ErrNotFound)
}

func (s *ContractSuite) TestGetMissingFails() {
	_, err := s.repos.Budgets.Get(s.ctx, 1)
	assert.ErrorIs(s.T(), err, core.ErrNotFound)
}

func (s *ContractSuite) TestGetAllFiltersInInsertionOrder() {
	a := s.addExpense(10, 1, "x")
	s.addExpense(20, 2, "x")
	c := s.addExpense(10, 1, "y")
	d := s.addExpense(10, 1, "x")

	all, err := s.repos.Expenses.GetAll(s.ctx, core.ExpenseFilter{})
	require.NoError(s.T(), err)
	assert.Len(s.T(), all, 4)

	byCategory, err := s.repos.Expenses.GetAll(s.ctx, core.ExpenseFilter{Category: core.Ptr(int64(1))})
	require.NoError(s.T(), err)
	assert.Equal(s.T(), []int64{a, c, d}, pks(byCategory))

	both, err := s.repos.Expenses.GetAll(s.ctx, core.ExpenseFilter{
		Category: core.Ptr(int64(1)),
		Comment:  core.Ptr("x"),
	})
	require.NoError(s.T(), err)
	assert.Equal(s.T(), []int64{a, d}, pks(both))

	byDate, err := s.repos.Expenses.GetAll(s.ctx, core.ExpenseFilter{ExpenseDate: core.Ptr(day)})
	require.NoError(s.T(), err)
	assert.Len(s.T(), byDate, 4)

	none, err := s.repos.Expenses.GetAll(s.ctx, core.ExpenseFilter{Amount: core.Ptr(int64(30))})
	require.NoError(s.T(), err)
	assert.Empty(s.T(), none)
}

func (s *ContractSuite) TestGetAllAfterDeleteKeepsOrder() {
	a := s.addExpense(1, 0, "")
	b := s.addExpense(2, 0, "")
	c := s.addExpense(3, 0, "")
	require.NoError(s.T(), s.repos.Expenses.Delete(s.ctx, b))
	d := s.addExpense(4, 0, "")

	all, err := s.repos.Expenses.GetAll(s.ctx, core.ExpenseFilter{})
	require.NoError(s.T(), err)
	assert.Equal(s.T(), []int64{a, c, d}, pks(all))
	assert.Greater(s.T(), d, c, "identities are never reused")
}

func (s *ContractSuite) TestCategoryFilterByNameAndNullParent() {
	root := s.addCategory("other", 0)
	food := s.addCategory("food", root)
	s.addCategory("loose", 0)

	byName, err := s.repos.Categories.GetAll(s.ctx, core.CategoryFilter{Name: core.Ptr("FOOD")})
	require.NoError(s.T(), err)
	require.Len(s.T(), byName, 1)
	assert.Equal(s.T(), food, byName[0].PK)

	orphans, err := s.repos.Categories.GetAll(s.ctx, core.CategoryFilter{Parent: core.Ptr(int64(0))})
	require.NoError(s.T(), err)
	assert.Len(s.T(), orphans, 2)

	children, err := s.repos.Categories.GetAll(s.ctx, core.CategoryFilter{Parent: core.Ptr(root)})
	require.NoError(s.T(), err)
	assert.Equal(s.T(), []int64{food}, pks(children))
}

func (s *ContractSuite) TestBudgetFilterByLength() {
	for _, length := range []int{core.PeriodDay, core.PeriodWeek, core.PeriodDay} {
		b := core.NewBudget(100, length, core.WithStartDate(day))
		_, err := s.repos.Budgets.Add(s.ctx, &b)
		require.NoError(s.T(), err)
	}

	daily, err := s.repos.Budgets.GetAll(s.ctx, core.BudgetFilter{Length: core.Ptr(core.PeriodDay)})
	require.NoError(s.T(), err)
	assert.Len(s.T(), daily, 2)
}

func (s *ContractSuite) TestFreeTextIsStoredVerbatim() {
	hostile := "'); DROP TABLE expenses; --"
	pk := s.addExpense(5, 0, hostile)

	got, err := s.repos.Expenses.Get(s.ctx, pk)
	require.NoError(s.T(), err)
	assert.Equal(s.T(), hostile, got.Comment)

	found, err := s.repos.Expenses.GetAll(s.ctx, core.ExpenseFilter{Comment: core.Ptr(hostile)})
	require.NoError(s.T(), err)
	assert.Len(s.T(), found, 1)
}

func (s *ContractSuite) TestWithinTxRollsBackOnError() {
	keep := s.addCategory("keep", 0)
	boom := errors.New("boom")

	err := s.store.WithinTx(s.ctx, func(r repository.Repos) error {
		c := core.NewCategory("discard", 0)
		if _, err := r.Categories.Add(s.ctx, &c); err != nil {
			return err
		}
		if err := r.Categories.Delete(s.ctx, keep); err != nil {
			return err
		}
		return boom
	})
	assert.ErrorIs(s.T(), err, boom)

	all, err := s.repos.Categories.GetAll(s.ctx, core.CategoryFilter{})
	require.NoError(s.T(), err)
	assert.Equal(s.T(), []int64{keep}, pks(all))
}

func (s *ContractSuite) TestWithinTxCommits() {
	err := s.store.WithinTx(s.ctx, func(r repository.Repos) error {
		c := core.NewCategory("kept", 0)
		_, err := r.Categories.Add(s.ctx, &c)
		return err
	})
	require.NoError(s.T(), err)

	all, err := s.repos.Categories.GetAll(s.ctx, core.CategoryFilter{Name: core.Ptr("kept")})
	require.NoError(s.T(), err)
	assert.Len(s.T(), all, 1)
}

func pks[T interface {
	core.Expense | core.Category | core.Budget
}](items []T) []int64 {
	out := make([]int64, 0, len(items))
	for _, it := range items {
		switch v := any(it).(type) {
		case core.Expense:
			out = append(out, v.PK)
		case core.Category:
			out = append(out, v.PK)
		case core.Budget:
			out = append(out, v.PK)
		}
	}
	return out
}
