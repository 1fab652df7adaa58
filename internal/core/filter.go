package core

import "time"

// Filters select records by exact match on every non-nil field. The zero
// value of a filter matches everything. For the nullable references
// (Category, Parent) a pointer to 0 matches records without a reference.
type (
	ExpenseFilter struct {
		Amount      *int64
		Category    *int64
		ExpenseDate *time.Time
		AddedDate   *time.Time
		Comment     *string
	}

	CategoryFilter struct {
		Name   *string
		Parent *int64
	}

	BudgetFilter struct {
		Amount    *int64
		Category  *int64
		Length    *int
		StartDate *time.Time
		EndDate   *time.Time
	}
)

// Ptr returns a pointer to v, handy for building filters inline.
func Ptr[T any](v T) *T {
	return &v
}
