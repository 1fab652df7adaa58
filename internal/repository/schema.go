package repository

import (
	"database/sql"
	"fmt"

	"bookkeeper/internal/core"
)

// Expenses describes the expenses table.
var Expenses = Descriptor[core.Expense, core.ExpenseFilter]{
	Entity:  "expense",
	Table:   "expenses",
	Columns: []string{"amount", "category", "expense_date", "added_date", "comment"},

	PK:    func(e core.Expense) int64 { return e.PK },
	SetPK: func(e *core.Expense, pk int64) { e.PK = pk },

	Normalize: func(e core.Expense) core.Expense {
		e.ExpenseDate = e.ExpenseDate.UTC()
		e.AddedDate = e.AddedDate.UTC()
		return e
	},

	Values: func(e core.Expense) []any {
		return []any{
			e.Amount,
			EncodeRef(e.Category),
			EncodeTime(e.ExpenseDate),
			EncodeTime(e.AddedDate),
			e.Comment,
		}
	},

	Scan: func(s Scanner) (core.Expense, error) {
		var (
			e                   core.Expense
			category            sql.NullInt64
			expenseDate, addedD string
		)
		if err := s.Scan(&e.PK, &e.Amount, &category, &expenseDate, &addedD, &e.Comment); err != nil {
			return e, err
		}
		e.Category = DecodeRef(category)

		var err error
		if e.ExpenseDate, err = DecodeTime(expenseDate); err != nil {
			return e, fmt.Errorf("expense %d: %w", e.PK, err)
		}
		if e.AddedDate, err = DecodeTime(addedD); err != nil {
			return e, fmt.Errorf("expense %d: %w", e.PK, err)
		}
		return e, nil
	},

	Where: func(f core.ExpenseFilter) []Condition {
		var conds []Condition
		if f.Amount != nil {
			conds = append(conds, Condition{"amount", *f.Amount})
		}
		if f.Category != nil {
			conds = append(conds, Condition{"category", EncodeRef(*f.Category)})
		}
		if f.ExpenseDate != nil {
			conds = append(conds, Condition{"expense_date", EncodeTime(*f.ExpenseDate)})
		}
		if f.AddedDate != nil {
			conds = append(conds, Condition{"added_date", EncodeTime(*f.AddedDate)})
		}
		if f.Comment != nil {
			conds = append(conds, Condition{"comment", *f.Comment})
		}
		return conds
	},

	Validate: core.Expense.Validate,
}

// Categories describes the categories table. Names are stored lower-cased.
var Categories = Descriptor[core.Category, core.CategoryFilter]{
	Entity:  "category",
	Table:   "categories",
	Columns: []string{"name", "parent"},

	PK:    func(c core.Category) int64 { return c.PK },
	SetPK: func(c *core.Category, pk int64) { c.PK = pk },

	Normalize: func(c core.Category) core.Category {
		c.Name = core.NormalizeName(c.Name)
		return c
	},

	Values: func(c core.Category) []any {
		return []any{core.NormalizeName(c.Name), EncodeRef(c.Parent)}
	},

	Scan: func(s Scanner) (core.Category, error) {
		var (
			c      core.Category
			parent sql.NullInt64
		)
		if err := s.Scan(&c.PK, &c.Name, &parent); err != nil {
			return c, err
		}
		c.Parent = DecodeRef(parent)
		return c, nil
	},

	Where: func(f core.CategoryFilter) []Condition {
		var conds []Condition
		if f.Name != nil {
			conds = append(conds, Condition{"name", core.NormalizeName(*f.Name)})
		}
		if f.Parent != nil {
			conds = append(conds, Condition{"parent", EncodeRef(*f.Parent)})
		}
		return conds
	},

	Validate: core.Category.Validate,
}

// Budgets describes the budgets table.
var Budgets = Descriptor[core.Budget, core.BudgetFilter]{
	Entity:  "budget",
	Table:   "budgets",
	Columns: []string{"amount", "category", "length", "start_date", "end_date"},

	PK:    func(b core.Budget) int64 { return b.PK },
	SetPK: func(b *core.Budget, pk int64) { b.PK = pk },

	Normalize: func(b core.Budget) core.Budget {
		b.StartDate = b.StartDate.UTC()
		b.EndDate = b.EndDate.UTC()
		return b
	},

	Values: func(b core.Budget) []any {
		return []any{
			b.Amount,
			EncodeRef(b.Category),
			int64(b.Length),
			EncodeTime(b.StartDate),
			EncodeTime(b.EndDate),
		}
	},

	Scan: func(s Scanner) (core.Budget, error) {
		var (
			b          core.Budget
			category   sql.NullInt64
			length     int64
			start, end string
		)
		if err := s.Scan(&b.PK, &b.Amount, &category, &length, &start, &end); err != nil {
			return b, err
		}
		b.Category = DecodeRef(category)
		b.Length = int(length)

		var err error
		if b.StartDate, err = DecodeTime(start); err != nil {
			return b, fmt.Errorf("budget %d: %w", b.PK, err)
		}
		if b.EndDate, err = DecodeTime(end); err != nil {
			return b, fmt.Errorf("budget %d: %w", b.PK, err)
		}
		return b, nil
	},

	Where: func(f core.BudgetFilter) []Condition {
		var conds []Condition
		if f.Amount != nil {
			conds = append(conds, Condition{"amount", *f.Amount})
		}
		if f.Category != nil {
			conds = append(conds, Condition{"category", EncodeRef(*f.Category)})
		}
		if f.Length != nil {
			conds = append(conds, Condition{"length", int64(*f.Length)})
		}
		if f.StartDate != nil {
			conds = append(conds, Condition{"start_date", EncodeTime(*f.StartDate)})
		}
		if f.EndDate != nil {
			conds = append(conds, Condition{"end_date", EncodeTime(*f.EndDate)})
		}
		return conds
	},

	Validate: core.Budget.Validate,
}
