package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"

	"blog/internal/models"
)

// CreateCategory inserts a category. An empty name is ignored and yields a
// nil category with no error; a taken name is a ValidationError wrapping
// ErrDuplicate.
func (s *Store) CreateCategory(ctx context.Context, name string) (*models.Category, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return nil, nil
	}
	c := &models.Category{Name: name, CreatedAt: s.now()}
	res, err := s.db.ExecContext(ctx, `INSERT INTO categories(name,created_at) VALUES(?,?)`, c.Name, c.CreatedAt)
	if err != nil {
		if _, ok := uniqueViolation(err); ok {
			return nil, duplicate("name", fmt.Sprintf("category %q already exists", name))
		}
		return nil, fmt.Errorf("create category: %w", err)
	}
	if c.ID, err = res.LastInsertId(); err != nil {
		return nil, fmt.Errorf("create category: %w", err)
	}
	return c, nil
}

func (s *Store) ListCategories(ctx context.Context) ([]models.Category, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT id, name, created_at FROM categories ORDER BY name`)
	if err != nil {
		return nil, fmt.Errorf("list categories: %w", err)
	}
	defer rows.Close()

	cats := []models.Category{}
	for rows.Next() {
		var c models.Category
		if err := rows.Scan(&c.ID, &c.Name, &c.CreatedAt); err != nil {
			return nil, fmt.Errorf("list categories: %w", err)
		}
		cats = append(cats, c)
	}
	return cats, rows.Err()
}

// attachCategory links the category called name to the post. A name that
// matches no category is not an error: the post just stays as it is.
// Linking a category the post already has is a no-op.
func attachCategory(ctx context.Context, q querier, postID int64, name string) error {
	if name == "" {
		return nil
	}
	var cid int64
	err := q.QueryRowContext(ctx, `SELECT id FROM categories WHERE name = ?`, name).Scan(&cid)
	if errors.Is(err, sql.ErrNoRows) {
		return nil
	}
	if err != nil {
		return fmt.Errorf("resolve category %q: %w", name, err)
	}
	if _, err := q.ExecContext(ctx,
		`INSERT OR IGNORE INTO post_categories(post_id,category_id) VALUES(?,?)`, postID, cid); err != nil {
		return fmt.Errorf("attach category %q: %w", name, err)
	}
	return nil
}
