package services

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sort"
	"time"

	"github.com/shopspring/decimal"

	"bookkeeper/internal/core"
	"bookkeeper/internal/repository"
)

// PeriodTotal is what was paid in a period next to its current limit.
type PeriodTotal struct {
	Length int
	Start  time.Time
	Paid   int64
	Limit  int64
}

// Exceeded reports whether more was paid than the limit allows.
func (p PeriodTotal) Exceeded() bool {
	return p.Paid > p.Limit
}

// Usage is Paid/Limit rounded to four places, zero for a non-positive limit.
func (p PeriodTotal) Usage() decimal.Decimal {
	if p.Limit <= 0 {
		return decimal.Zero
	}
	return decimal.NewFromInt(p.Paid).Div(decimal.NewFromInt(p.Limit)).Round(4)
}

// Totals holds day, week and month figures computed at one instant.
type Totals struct {
	At    time.Time
	Day   PeriodTotal
	Week  PeriodTotal
	Month PeriodTotal
}

// Periods returns the figures in day, week, month order.
func (t Totals) Periods() []PeriodTotal {
	return []PeriodTotal{t.Day, t.Week, t.Month}
}

// BudgetService computes rolling spending totals against budget limits.
// It only reports; deciding how to surface an overspend is up to the caller.
type BudgetService struct {
	store repository.Store
	now   func() time.Time
}

// NewBudgetService uses now as its clock; nil means time.Now.
func NewBudgetService(store repository.Store, now func() time.Time) *BudgetService {
	if now == nil {
		now = time.Now
	}
	return &BudgetService{store: store, now: now}
}

// PeriodStart returns the anchor of the current period of the given length.
func (s *BudgetService) PeriodStart(days int) time.Time {
	return GetPeriodAnchor(days).Start(s.now())
}

// CurrentLimit returns the amount of the most recently added budget for the
// period length.
func (s *BudgetService) CurrentLimit(ctx context.Context, days int) (int64, error) {
	b, err := s.currentBudget(ctx, days)
	if err != nil {
		return 0, err
	}
	return b.Amount, nil
}

func (s *BudgetService) currentBudget(ctx context.Context, days int) (core.Budget, error) {
	budgets, err := s.store.Repos().Budgets.GetAll(ctx, core.BudgetFilter{Length: &days})
	if err != nil {
		return core.Budget{}, fmt.Errorf("list budgets of length %d: %w", days, err)
	}
	if len(budgets) == 0 {
		return core.Budget{}, &core.NotFoundError{Entity: "budget for " + PeriodName(days)}
	}
	return budgets[len(budgets)-1], nil
}

// SetLimit appends a new budget for the period anchored at its current start.
// Earlier budgets stay; the newest one is the current limit.
func (s *BudgetService) SetLimit(ctx context.Context, days int, amount int64) (core.Budget, error) {
	b := core.NewBudget(amount, days, core.WithStartDate(s.PeriodStart(days)))
	if _, err := s.store.Repos().Budgets.Add(ctx, &b); err != nil {
		return core.Budget{}, fmt.Errorf("add budget: %w", err)
	}

	slog.InfoContext(ctx, "Budget limit set",
		"period", PeriodName(days),
		"amount", amount,
		"start_date", b.StartDate.Format(time.DateOnly))
	return b, nil
}

// EnsureDefaults sets a limit for every period in limits that has none yet.
func (s *BudgetService) EnsureDefaults(ctx context.Context, limits map[int]int64) error {
	periods := make([]int, 0, len(limits))
	for days := range limits {
		periods = append(periods, days)
	}
	sort.Ints(periods)

	for _, days := range periods {
		_, err := s.currentBudget(ctx, days)
		if err == nil {
			continue
		}
		if !errors.Is(err, core.ErrNotFound) {
			return err
		}
		if _, err := s.SetLimit(ctx, days, limits[days]); err != nil {
			return err
		}
	}
	return nil
}

// Totals sums expenses into nested windows: an expense on or after the day
// anchor counts toward day, week and month; on or after the week anchor
// toward week and month; on or after the month anchor toward month only.
// An expense between a week anchor that precedes the month anchor and the
// month anchor therefore still counts toward the month.
func (s *BudgetService) Totals(ctx context.Context) (Totals, error) {
	now := s.now()
	t := Totals{
		At:    now,
		Day:   PeriodTotal{Length: core.PeriodDay, Start: DayAnchor{}.Start(now)},
		Week:  PeriodTotal{Length: core.PeriodWeek, Start: WeekAnchor{}.Start(now)},
		Month: PeriodTotal{Length: core.PeriodMonth, Start: MonthAnchor{}.Start(now)},
	}

	for _, p := range []*PeriodTotal{&t.Day, &t.Week, &t.Month} {
		limit, err := s.CurrentLimit(ctx, p.Length)
		if err != nil {
			return Totals{}, err
		}
		p.Limit = limit
	}

	expenses, err := s.store.Repos().Expenses.GetAll(ctx, core.ExpenseFilter{})
	if err != nil {
		return Totals{}, fmt.Errorf("list expenses: %w", err)
	}

	for _, e := range expenses {
		switch d := e.ExpenseDate; {
		case !d.Before(t.Day.Start):
			t.Day.Paid += e.Amount
			t.Week.Paid += e.Amount
			t.Month.Paid += e.Amount
		case !d.Before(t.Week.Start):
			t.Week.Paid += e.Amount
			t.Month.Paid += e.Amount
		case !d.Before(t.Month.Start):
			t.Month.Paid += e.Amount
		}
	}

	return t, nil
}
