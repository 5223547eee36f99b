package inventory

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
)

// categoryTreeCTE computes the slash-joined path for every category.
const categoryTreeCTE = `WITH RECURSIVE category_tree AS (
	SELECT id, name, description, parent_id, name::text AS path
	FROM part_categories
	WHERE parent_id IS NULL
	UNION ALL
	SELECT c.id, c.name, c.description, c.parent_id, t.path || '/' || c.name
	FROM part_categories c
	JOIN category_tree t ON c.parent_id = t.id
)`

func scanCategories(rows pgx.Rows) ([]Category, error) {
	defer rows.Close()
	var out []Category
	for rows.Next() {
		var c Category
		if err := rows.Scan(&c.ID, &c.Name, &c.Description, &c.ParentID, &c.PathString); err != nil {
			return nil, fmt.Errorf("failed to scan category: %w", err)
		}
		out = append(out, c)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to read categories: %w", err)
	}
	return out, nil
}

// Categories returns every category with its path, ordered by path.
func (s *Store) Categories(ctx context.Context) ([]Category, error) {
	rows, err := s.pool.Query(ctx, categoryTreeCTE+`
		SELECT id, name, description, parent_id, path FROM category_tree ORDER BY path`)
	if err != nil {
		return nil, fmt.Errorf("failed to query categories: %w", err)
	}
	return scanCategories(rows)
}

// ConfiguredCategories returns only the categories that carry a KiCad
// configuration, ordered by path. This is the category list exposed to
// the CAD client.
func (s *Store) ConfiguredCategories(ctx context.Context) ([]Category, error) {
	rows, err := s.pool.Query(ctx, categoryTreeCTE+`
		SELECT t.id, t.name, t.description, t.parent_id, t.path
		FROM category_tree t
		JOIN kicad_category_configs k ON k.category_id = t.id
		ORDER BY t.path`)
	if err != nil {
		return nil, fmt.Errorf("failed to query configured categories: %w", err)
	}
	return scanCategories(rows)
}

// CategoryByID returns one category with its path, or ErrNotFound.
func (s *Store) CategoryByID(ctx context.Context, id int64) (Category, error) {
	var c Category
	err := s.pool.QueryRow(ctx, categoryTreeCTE+`
		SELECT id, name, description, parent_id, path FROM category_tree WHERE id = $1`, id).
		Scan(&c.ID, &c.Name, &c.Description, &c.ParentID, &c.PathString)
	if errors.Is(err, pgx.ErrNoRows) {
		return Category{}, ErrNotFound
	}
	if err != nil {
		return Category{}, fmt.Errorf("failed to query category %d: %w", id, err)
	}
	return c, nil
}

// DescendantCategoryIDs returns the given category id plus the ids of
// all categories below it in the tree.
func (s *Store) DescendantCategoryIDs(ctx context.Context, id int64) ([]int64, error) {
	rows, err := s.pool.Query(ctx, `WITH RECURSIVE subtree AS (
			SELECT id FROM part_categories WHERE id = $1
			UNION ALL
			SELECT c.id FROM part_categories c JOIN subtree s ON c.parent_id = s.id
		)
		SELECT id FROM subtree`, id)
	if err != nil {
		return nil, fmt.Errorf("failed to query descendant categories: %w", err)
	}
	defer rows.Close()

	var ids []int64
	for rows.Next() {
		var cid int64
		if err := rows.Scan(&cid); err != nil {
			return nil, fmt.Errorf("failed to scan category id: %w", err)
		}
		ids = append(ids, cid)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to read descendant categories: %w", err)
	}
	return ids, nil
}

// EnsureCategory returns the child of parentID named name, creating it
// if missing. The seed loader uses it to build trees idempotently.
func (s *Store) EnsureCategory(ctx context.Context, name, description string, parentID *int64) (Category, error) {
	var c Category
	err := s.pool.QueryRow(ctx, `SELECT id, name, description, parent_id
		FROM part_categories
		WHERE name = $1 AND parent_id IS NOT DISTINCT FROM $2`, name, parentID).
		Scan(&c.ID, &c.Name, &c.Description, &c.ParentID)
	if err == nil {
		return c, nil
	}
	if !errors.Is(err, pgx.ErrNoRows) {
		return Category{}, fmt.Errorf("failed to look up category %q: %w", name, err)
	}

	err = s.pool.QueryRow(ctx, `INSERT INTO part_categories (name, description, parent_id)
		VALUES ($1, $2, $3)
		RETURNING id, name, description, parent_id`, name, description, parentID).
		Scan(&c.ID, &c.Name, &c.Description, &c.ParentID)
	if err != nil {
		return Category{}, fmt.Errorf("failed to create category %q: %w", name, err)
	}
	return c, nil
}
