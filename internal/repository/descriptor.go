package repository

import (
	"database/sql"
	"fmt"
	"time"
)

// TimeLayout is the text encoding of timestamps. Fixed width keeps text
// ordering equal to chronological ordering.
const TimeLayout = "2006-01-02 15:04:05.000000000"

// Condition is one equality term of a filter. A nil Value matches NULL.
type Condition struct {
	Column string
	Value  any
}

// Scanner is satisfied by *sql.Row and *sql.Rows.
type Scanner interface {
	Scan(dest ...any) error
}

// Descriptor maps an entity type onto a table. Every backend drives its
// generic table implementation from a descriptor, so adding an entity type
// only needs a new descriptor.
type Descriptor[T any, F any] struct {
	Entity  string
	Table   string
	Columns []string

	PK    func(T) int64
	SetPK func(*T, int64)

	// Normalize returns the canonical form of an entity as it is stored.
	Normalize func(T) T

	// Values encodes the entity aligned with Columns. Encoded values are
	// int64, string or nil so they compare with == and bind as SQL params.
	Values func(T) []any

	// Scan reads "pk, Columns..." from a result row.
	Scan func(Scanner) (T, error)

	Where    func(F) []Condition
	Validate func(T) error
}

// ColumnIndex returns the position of column in Columns, or -1.
func (d Descriptor[T, F]) ColumnIndex(column string) int {
	for i, c := range d.Columns {
		if c == column {
			return i
		}
	}
	return -1
}

// Matches reports whether item satisfies every condition.
func (d Descriptor[T, F]) Matches(item T, conds []Condition) bool {
	values := d.Values(item)
	for _, c := range conds {
		i := d.ColumnIndex(c.Column)
		if i < 0 || values[i] != c.Value {
			return false
		}
	}
	return true
}

// EncodeTime renders t in UTC with TimeLayout.
func EncodeTime(t time.Time) string {
	return t.UTC().Format(TimeLayout)
}

// DecodeTime parses a value written by EncodeTime.
func DecodeTime(s string) (time.Time, error) {
	t, err := time.ParseInLocation(TimeLayout, s, time.UTC)
	if err != nil {
		return time.Time{}, fmt.Errorf("decode timestamp %q: %w", s, err)
	}
	return t, nil
}

// EncodeRef maps an optional reference onto a nullable column value.
func EncodeRef(pk int64) any {
	if pk == 0 {
		return nil
	}
	return pk
}

// DecodeRef is the inverse of EncodeRef.
func DecodeRef(v sql.NullInt64) int64 {
	if !v.Valid {
		return 0
	}
	return v.Int64
}
