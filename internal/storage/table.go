package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"bookkeeper/internal/core"
	"bookkeeper/internal/repository"
)

// querier is the subset shared by *sql.DB and *sql.Tx.
type querier interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

// Table implements repository.Repository for one descriptor. Column names
// come only from the descriptor; every value is bound as a parameter.
type Table[T any, F any] struct {
	q    querier
	desc repository.Descriptor[T, F]

	insertSQL string
	selectSQL string
	updateSQL string
	deleteSQL string
}

func NewTable[T any, F any](q querier, desc repository.Descriptor[T, F]) *Table[T, F] {
	cols := strings.Join(desc.Columns, ", ")
	placeholders := strings.TrimSuffix(strings.Repeat("?, ", len(desc.Columns)), ", ")

	sets := make([]string, len(desc.Columns))
	for i, c := range desc.Columns {
		sets[i] = c + " = ?"
	}

	return &Table[T, F]{
		q:         q,
		desc:      desc,
		insertSQL: fmt.Sprintf("INSERT INTO %s (%s) VALUES (%s)", desc.Table, cols, placeholders),
		selectSQL: fmt.Sprintf("SELECT pk, %s FROM %s", cols, desc.Table),
		updateSQL: fmt.Sprintf("UPDATE %s SET %s WHERE pk = ?", desc.Table, strings.Join(sets, ", ")),
		deleteSQL: fmt.Sprintf("DELETE FROM %s WHERE pk = ?", desc.Table),
	}
}

func (t *Table[T, F]) Add(ctx context.Context, item *T) (int64, error) {
	if t.desc.PK(*item) != 0 {
		return 0, &core.ValidationError{Entity: t.desc.Entity, Field: "pk", Reason: "must be zero on add"}
	}
	if err := t.desc.Validate(*item); err != nil {
		return 0, err
	}

	res, err := t.q.ExecContext(ctx, t.insertSQL, t.desc.Values(*item)...)
	if err != nil {
		return 0, &core.StorageError{Op: "insert " + t.desc.Entity, Err: err}
	}
	pk, err := res.LastInsertId()
	if err != nil {
		return 0, &core.StorageError{Op: "read " + t.desc.Entity + " id", Err: err}
	}
	t.desc.SetPK(item, pk)

	slog.DebugContext(ctx, "Record inserted", "table", t.desc.Table, "pk", pk)
	return pk, nil
}

func (t *Table[T, F]) Get(ctx context.Context, pk int64) (T, error) {
	row := t.q.QueryRowContext(ctx, t.selectSQL+" WHERE pk = ?", pk)
	item, err := t.desc.Scan(row)
	if errors.Is(err, sql.ErrNoRows) {
		var zero T
		return zero, &core.NotFoundError{Entity: t.desc.Entity, PK: pk}
	}
	if err != nil {
		var zero T
		return zero, &core.StorageError{Op: "get " + t.desc.Entity, Err: err}
	}
	return item, nil
}

func (t *Table[T, F]) GetAll(ctx context.Context, filter F) ([]T, error) {
	where, args := compileWhere(t.desc.Where(filter))

	rows, err := t.q.QueryContext(ctx, t.selectSQL+where+" ORDER BY pk", args...)
	if err != nil {
		return nil, &core.StorageError{Op: "list " + t.desc.Table, Err: err}
	}
	defer rows.Close()

	var items []T
	for rows.Next() {
		item, err := t.desc.Scan(rows)
		if err != nil {
			return nil, &core.StorageError{Op: "scan " + t.desc.Entity, Err: err}
		}
		items = append(items, item)
	}
	if err := rows.Err(); err != nil {
		return nil, &core.StorageError{Op: "list " + t.desc.Table, Err: err}
	}
	return items, nil
}

func (t *Table[T, F]) Update(ctx context.Context, item T) error {
	if err := t.desc.Validate(item); err != nil {
		return err
	}

	pk := t.desc.PK(item)
	args := append(t.desc.Values(item), pk)
	res, err := t.q.ExecContext(ctx, t.updateSQL, args...)
	if err != nil {
		return &core.StorageError{Op: "update " + t.desc.Entity, Err: err}
	}
	if err := requireAffected(res, t.desc.Entity, pk); err != nil {
		return err
	}

	slog.DebugContext(ctx, "Record updated", "table", t.desc.Table, "pk", pk)
	return nil
}

func (t *Table[T, F]) Delete(ctx context.Context, pk int64) error {
	res, err := t.q.ExecContext(ctx, t.deleteSQL, pk)
	if err != nil {
		return &core.StorageError{Op: "delete " + t.desc.Entity, Err: err}
	}
	if err := requireAffected(res, t.desc.Entity, pk); err != nil {
		return err
	}

	slog.DebugContext(ctx, "Record deleted", "table", t.desc.Table, "pk", pk)
	return nil
}

func requireAffected(res sql.Result, entity string, pk int64) error {
	n, err := res.RowsAffected()
	if err != nil {
		return &core.StorageError{Op: "rows affected " + entity, Err: err}
	}
	if n == 0 {
		return &core.NotFoundError{Entity: entity, PK: pk}
	}
	return nil
}

// compileWhere turns conditions into an AND-ed equality clause.
func compileWhere(conds []repository.Condition) (string, []any) {
	if len(conds) == 0 {
		return "", nil
	}
	terms := make([]string, 0, len(conds))
	args := make([]any, 0, len(conds))
	for _, c := range conds {
		if c.Value == nil {
			terms = append(terms, c.Column+" IS NULL")
			continue
		}
		terms = append(terms, c.Column+" = ?")
		args = append(args, c.Value)
	}
	return " WHERE " + strings.Join(terms, " AND "), args
}
