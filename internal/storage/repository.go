package storage

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"bookkeeper/internal/core"
	"bookkeeper/internal/repository"

	_ "modernc.org/sqlite"
)

// MemoryPath opens a private in-memory database.
const MemoryPath = ":memory:"

type SQLiteStore struct {
	db    *sql.DB
	repos repository.Repos
}

func NewSQLiteStore(dbPath string) (*SQLiteStore, error) {
	if !isMemoryPath(dbPath) {
		if err := os.MkdirAll(filepath.Dir(dbPath), 0755); err != nil {
			return nil, fmt.Errorf("create db directory: %w", err)
		}
	}

	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("open sqlite database: %w", err)
	}

	// Single writer. One connection also keeps an in-memory database alive
	// and shared between every call.
	db.SetMaxOpenConns(1)

	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("ping database: %w", err)
	}

	if err := RunMigrations(db); err != nil {
		db.Close()
		return nil, fmt.Errorf("run migrations: %w", err)
	}

	store := &SQLiteStore{
		db:    db,
		repos: reposFor(db),
	}

	slog.Info("SQLite store ready", "path", dbPath)
	return store, nil
}

func reposFor(q querier) repository.Repos {
	return repository.Repos{
		Expenses:   NewTable(q, repository.Expenses),
		Categories: NewTable(q, repository.Categories),
		Budgets:    NewTable(q, repository.Budgets),
	}
}

func isMemoryPath(p string) bool {
	return p == MemoryPath || strings.HasPrefix(p, "file::memory:")
}

func (s *SQLiteStore) Repos() repository.Repos {
	return s.repos
}

// WithinTx runs fn in one transaction; it commits only if fn succeeds.
func (s *SQLiteStore) WithinTx(ctx context.Context, fn func(repository.Repos) error) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return &core.StorageError{Op: "begin transaction", Err: err}
	}

	if err := fn(reposFor(tx)); err != nil {
		if rbErr := tx.Rollback(); rbErr != nil {
			slog.ErrorContext(ctx, "Failed to roll back transaction", "error", rbErr)
		}
		return err
	}

	if err := tx.Commit(); err != nil {
		return &core.StorageError{Op: "commit transaction", Err: err}
	}
	return nil
}

func (s *SQLiteStore) Close() error {
	if s.db != nil {
		return s.db.Close()
	}
	return nil
}

var _ repository.Store = (*SQLiteStore)(nil)
