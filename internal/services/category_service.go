package services

import (
	"context"
	"fmt"
	"log/slog"

	"bookkeeper/internal/core"
	"bookkeeper/internal/repository"
)

// CategoryService keeps the category forest consistent: parent names must
// resolve, reparenting never creates a cycle, deletion repoints every
// reference to the deleted category and the root is never deleted.
type CategoryService struct {
	store    repository.Store
	rootName string
}

func NewCategoryService(store repository.Store, rootName string) *CategoryService {
	if rootName == "" {
		rootName = core.DefaultRootCategory
	}
	return &CategoryService{
		store:    store,
		rootName: core.NormalizeName(rootName),
	}
}

// IsRoot reports whether c is the protected root category.
func (s *CategoryService) IsRoot(c core.Category) bool {
	return c.Parent == 0 && core.NormalizeName(c.Name) == s.rootName
}

// EnsureRoot returns the root category pk, creating the root if needed.
func (s *CategoryService) EnsureRoot(ctx context.Context) (int64, error) {
	roots, err := s.store.Repos().Categories.GetAll(ctx, core.CategoryFilter{
		Name:   &s.rootName,
		Parent: core.Ptr(int64(0)),
	})
	if err != nil {
		return 0, fmt.Errorf("find root category: %w", err)
	}
	if len(roots) > 0 {
		return roots[0].PK, nil
	}

	root := core.NewCategory(s.rootName, 0)
	pk, err := s.store.Repos().Categories.Add(ctx, &root)
	if err != nil {
		return 0, fmt.Errorf("create root category: %w", err)
	}

	slog.InfoContext(ctx, "Root category created", "pk", pk, "name", s.rootName)
	return pk, nil
}

// checkRootClaim rejects a parentless category named like the root unless it
// is the root itself, so there is only ever one root.
func (s *CategoryService) checkRootClaim(ctx context.Context, repo repository.CategoryRepository, pk int64, name string, parent int64) error {
	if parent != 0 || core.NormalizeName(name) != s.rootName {
		return nil
	}
	roots, err := repo.GetAll(ctx, core.CategoryFilter{Name: &s.rootName, Parent: core.Ptr(int64(0))})
	if err != nil {
		return fmt.Errorf("find root category: %w", err)
	}
	for _, r := range roots {
		if r.PK != pk {
			return &core.ValidationError{Entity: "category", Field: "name", Reason: fmt.Sprintf("%q without a parent is reserved for the root category", s.rootName)}
		}
	}
	return nil
}

// Resolve finds a category by case-insensitive name. The first match in
// identity order wins.
func (s *CategoryService) Resolve(ctx context.Context, name string) (int64, bool, error) {
	return resolve(ctx, s.store.Repos().Categories, name)
}

func resolve(ctx context.Context, repo repository.CategoryRepository, name string) (int64, bool, error) {
	found, err := repo.GetAll(ctx, core.CategoryFilter{Name: &name})
	if err != nil {
		return 0, false, fmt.Errorf("resolve category %q: %w", name, err)
	}
	if len(found) == 0 {
		return 0, false, nil
	}
	return found[0].PK, true, nil
}

// resolveParent maps a parent name onto a pk. The empty name means no parent.
func resolveParent(ctx context.Context, repo repository.CategoryRepository, name string) (int64, error) {
	if core.NormalizeName(name) == "" {
		return 0, nil
	}
	pk, ok, err := resolve(ctx, repo, name)
	if err != nil {
		return 0, err
	}
	if !ok {
		return 0, &core.InvalidParentError{Name: name, Reason: "category does not exist"}
	}
	return pk, nil
}

// Add creates a category under the named parent.
func (s *CategoryService) Add(ctx context.Context, name, parentName string) (core.Category, error) {
	repo := s.store.Repos().Categories

	parent, err := resolveParent(ctx, repo, parentName)
	if err != nil {
		return core.Category{}, err
	}
	if err := s.checkRootClaim(ctx, repo, 0, name, parent); err != nil {
		return core.Category{}, err
	}

	c := core.NewCategory(name, parent)
	if _, err := repo.Add(ctx, &c); err != nil {
		return core.Category{}, fmt.Errorf("add category: %w", err)
	}

	slog.InfoContext(ctx, "Category added", "pk", c.PK, "name", c.Name, "parent", c.Parent)
	return c, nil
}

// Rename changes a category's name. The root keeps its name so it stays
// recognizable as the root.
func (s *CategoryService) Rename(ctx context.Context, pk int64, name string) error {
	repo := s.store.Repos().Categories

	c, err := repo.Get(ctx, pk)
	if err != nil {
		return err
	}
	if s.IsRoot(c) && core.NormalizeName(name) != s.rootName {
		return &core.ValidationError{Entity: "category", Field: "name", Reason: "of the root category cannot change"}
	}
	if err := s.checkRootClaim(ctx, repo, pk, name, c.Parent); err != nil {
		return err
	}

	c.Name = name
	if err := repo.Update(ctx, c); err != nil {
		return fmt.Errorf("rename category: %w", err)
	}

	slog.InfoContext(ctx, "Category renamed", "pk", pk, "name", core.NormalizeName(name))
	return nil
}

// Reparent moves a category under the named parent; the empty name detaches
// it. Nothing is written when the parent is unknown or would form a cycle.
func (s *CategoryService) Reparent(ctx context.Context, pk int64, parentName string) error {
	return s.store.WithinTx(ctx, func(r repository.Repos) error {
		c, err := r.Categories.Get(ctx, pk)
		if err != nil {
			return err
		}

		parent, err := resolveParent(ctx, r.Categories, parentName)
		if err != nil {
			return err
		}
		if s.IsRoot(c) && parent != 0 {
			return &core.InvalidParentError{Name: parentName, Reason: "the root category cannot have a parent"}
		}
		if err := checkNoCycle(ctx, r.Categories, pk, parent, parentName); err != nil {
			return err
		}
		if err := s.checkRootClaim(ctx, r.Categories, pk, c.Name, parent); err != nil {
			return err
		}

		c.Parent = parent
		if err := r.Categories.Update(ctx, c); err != nil {
			return fmt.Errorf("reparent category: %w", err)
		}

		slog.InfoContext(ctx, "Category reparented", "pk", pk, "parent", parent)
		return nil
	})
}

// checkNoCycle walks the ancestors of parent and fails if pk is among them.
func checkNoCycle(ctx context.Context, repo repository.CategoryRepository, pk, parent int64, parentName string) error {
	visited := map[int64]bool{}
	for cur := parent; cur != 0; {
		if cur == pk {
			return &core.InvalidParentError{Name: parentName, Reason: "would create a cycle"}
		}
		if visited[cur] {
			return &core.InvalidParentError{Name: parentName, Reason: "ancestry already contains a cycle"}
		}
		visited[cur] = true

		c, err := repo.Get(ctx, cur)
		if err != nil {
			return fmt.Errorf("walk ancestors of %d: %w", parent, err)
		}
		cur = c.Parent
	}
	return nil
}

// Delete removes a category and repoints its expenses and children to its
// parent in one transaction. Deleting the root is a silent no-op.
func (s *CategoryService) Delete(ctx context.Context, pk int64) error {
	return s.store.WithinTx(ctx, func(r repository.Repos) error {
		c, err := r.Categories.Get(ctx, pk)
		if err != nil {
			return err
		}
		if s.IsRoot(c) {
			slog.DebugContext(ctx, "Ignoring delete of root category", "pk", pk)
			return nil
		}

		if err := r.Categories.Delete(ctx, pk); err != nil {
			return fmt.Errorf("delete category: %w", err)
		}

		expenses, err := r.Expenses.GetAll(ctx, core.ExpenseFilter{Category: &pk})
		if err != nil {
			return fmt.Errorf("list expenses of category %d: %w", pk, err)
		}
		for _, e := range expenses {
			e.Category = c.Parent
			if err := r.Expenses.Update(ctx, e); err != nil {
				return fmt.Errorf("repoint expense %d: %w", e.PK, err)
			}
		}

		children, err := r.Categories.GetAll(ctx, core.CategoryFilter{Parent: &pk})
		if err != nil {
			return fmt.Errorf("list children of category %d: %w", pk, err)
		}
		for _, child := range children {
			child.Parent = c.Parent
			if err := r.Categories.Update(ctx, child); err != nil {
				return fmt.Errorf("repoint category %d: %w", child.PK, err)
			}
		}

		slog.InfoContext(ctx, "Category deleted",
			"pk", pk,
			"name", c.Name,
			"new_parent", c.Parent,
			"expenses_moved", len(expenses),
			"children_moved", len(children))
		return nil
	})
}

// DeleteByName resolves name and deletes the category it denotes.
func (s *CategoryService) DeleteByName(ctx context.Context, name string) error {
	pk, ok, err := s.Resolve(ctx, name)
	if err != nil {
		return err
	}
	if !ok {
		return &core.ValidationError{Entity: "category", Field: "name", Reason: fmt.Sprintf("%q does not exist", name)}
	}
	return s.Delete(ctx, pk)
}

// Path returns c followed by its ancestors, the topmost category last.
func (s *CategoryService) Path(ctx context.Context, pk int64) ([]core.Category, error) {
	repo := s.store.Repos().Categories

	var path []core.Category
	visited := map[int64]bool{}
	for cur := pk; cur != 0; {
		if visited[cur] {
			return nil, &core.InvalidParentError{Name: path[len(path)-1].Name, Reason: "ancestry contains a cycle"}
		}
		visited[cur] = true

		c, err := repo.Get(ctx, cur)
		if err != nil {
			return nil, err
		}
		path = append(path, c)
		cur = c.Parent
	}
	return path, nil
}
