package services

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"bookkeeper/internal/core"
	"bookkeeper/internal/repository"
)

// ExpenseService records expenses against categories referenced by name.
type ExpenseService struct {
	store repository.Store
}

func NewExpenseService(store repository.Store) *ExpenseService {
	return &ExpenseService{store: store}
}

// Create saves an expense in the named category. A zero expenseDate means now.
func (s *ExpenseService) Create(ctx context.Context, amount int64, categoryName string, expenseDate time.Time, comment string) (core.Expense, error) {
	category, err := s.categoryPK(ctx, categoryName)
	if err != nil {
		return core.Expense{}, err
	}

	opts := []core.ExpenseOption{core.WithComment(comment)}
	if !expenseDate.IsZero() {
		opts = append(opts, core.WithExpenseDate(expenseDate))
	}
	e := core.NewExpense(amount, category, opts...)

	if _, err := s.store.Repos().Expenses.Add(ctx, &e); err != nil {
		return core.Expense{}, fmt.Errorf("save expense: %w", err)
	}

	slog.InfoContext(ctx, "Expense saved",
		"pk", e.PK,
		"amount", e.Amount,
		"category", e.Category,
		"expense_date", e.ExpenseDate.Format(time.DateTime))

	return e, nil
}

// Recategorize moves an existing expense to the named category.
func (s *ExpenseService) Recategorize(ctx context.Context, pk int64, categoryName string) error {
	category, err := s.categoryPK(ctx, categoryName)
	if err != nil {
		return err
	}

	repo := s.store.Repos().Expenses
	e, err := repo.Get(ctx, pk)
	if err != nil {
		return err
	}
	e.Category = category
	if err := repo.Update(ctx, e); err != nil {
		return fmt.Errorf("recategorize expense: %w", err)
	}
	return nil
}

// ExpenseChanges lists the fields Edit overwrites. Nil fields are kept.
type ExpenseChanges struct {
	Amount      *int64
	ExpenseDate *time.Time
	Comment     *string
}

// Edit overwrites the given fields of an existing expense.
func (s *ExpenseService) Edit(ctx context.Context, pk int64, changes ExpenseChanges) (core.Expense, error) {
	repo := s.store.Repos().Expenses
	e, err := repo.Get(ctx, pk)
	if err != nil {
		return core.Expense{}, err
	}

	if changes.Amount != nil {
		e.Amount = *changes.Amount
	}
	if changes.ExpenseDate != nil {
		if changes.ExpenseDate.IsZero() {
			return core.Expense{}, &core.ValidationError{Entity: "expense", Field: "expense_date", Reason: "must be set"}
		}
		e.ExpenseDate = *changes.ExpenseDate
	}
	if changes.Comment != nil {
		e.Comment = *changes.Comment
	}

	if err := repo.Update(ctx, e); err != nil {
		return core.Expense{}, fmt.Errorf("edit expense: %w", err)
	}

	slog.InfoContext(ctx, "Expense edited",
		"pk", e.PK,
		"amount", e.Amount,
		"expense_date", e.ExpenseDate.Format(time.DateTime))
	return e, nil
}

// Delete removes the expense with the given pk.
func (s *ExpenseService) Delete(ctx context.Context, pk int64) error {
	if err := s.store.Repos().Expenses.Delete(ctx, pk); err != nil {
		return err
	}
	slog.InfoContext(ctx, "Expense deleted", "pk", pk)
	return nil
}

// DeleteMatching removes the oldest expense with exactly this amount,
// category and expense date, and returns its pk.
func (s *ExpenseService) DeleteMatching(ctx context.Context, amount int64, categoryName string, expenseDate time.Time) (int64, error) {
	category, err := s.categoryPK(ctx, categoryName)
	if err != nil {
		return 0, err
	}

	var pk int64
	err = s.store.WithinTx(ctx, func(r repository.Repos) error {
		found, err := r.Expenses.GetAll(ctx, core.ExpenseFilter{
			Amount:      &amount,
			Category:    &category,
			ExpenseDate: &expenseDate,
		})
		if err != nil {
			return fmt.Errorf("find expense: %w", err)
		}
		if len(found) == 0 {
			return &core.NotFoundError{Entity: "expense"}
		}
		pk = found[0].PK
		return r.Expenses.Delete(ctx, pk)
	})
	if err != nil {
		return 0, err
	}

	slog.InfoContext(ctx, "Expense deleted", "pk", pk, "amount", amount, "category", category)
	return pk, nil
}

// History lists every expense, most recently added first.
func (s *ExpenseService) History(ctx context.Context) ([]core.Expense, error) {
	expenses, err := s.store.Repos().Expenses.GetAll(ctx, core.ExpenseFilter{})
	if err != nil {
		return nil, fmt.Errorf("list expenses: %w", err)
	}
	for i, j := 0, len(expenses)-1; i < j; i, j = i+1, j-1 {
		expenses[i], expenses[j] = expenses[j], expenses[i]
	}
	return expenses, nil
}

func (s *ExpenseService) categoryPK(ctx context.Context, name string) (int64, error) {
	pk, ok, err := resolve(ctx, s.store.Repos().Categories, name)
	if err != nil {
		return 0, err
	}
	if !ok {
		return 0, &core.ValidationError{Entity: "expense", Field: "category", Reason: fmt.Sprintf("%q does not exist", name)}
	}
	return pk, nil
}

