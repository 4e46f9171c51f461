package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"

	"blog/internal/models"
)

// PostFilter narrows ListPosts. Zero values mean "no filter"; a Limit of
// zero returns every matching post.
type PostFilter struct {
	Category string
	AuthorID int64
	LikedBy  int64
	Limit    int
}

const postColumns = `SELECT p.id, p.user_id, p.title, p.content, p.created_at, u.username,
		(SELECT COUNT(*) FROM likes l WHERE l.post_id = p.id)
		FROM posts p JOIN users u ON p.user_id = u.id`

func validatePost(title, content string) (string, string, error) {
	title = strings.TrimSpace(title)
	content = strings.TrimSpace(content)
	if title == "" {
		return "", "", invalid("title", "title is required")
	}
	if content == "" {
		return "", "", invalid("text", "content is required")
	}
	return title, content, nil
}

// CreatePost stores a post and tags it with categoryName if such a category
// exists. Both writes share one transaction.
func (s *Store) CreatePost(ctx context.Context, authorID int64, title, content, categoryName string) (*models.Post, error) {
	title, content, err := validatePost(title, content)
	if err != nil {
		return nil, err
	}

	var post *models.Post
	err = s.withTx(ctx, func(tx *sql.Tx) error {
		res, err := tx.ExecContext(ctx,
			`INSERT INTO posts(user_id,title,content,created_at) VALUES(?,?,?,?)`,
			authorID, title, content, s.now())
		if err != nil {
			if foreignKeyViolation(err) {
				return ErrNotFound
			}
			return fmt.Errorf("create post: %w", err)
		}
		pid, err := res.LastInsertId()
		if err != nil {
			return fmt.Errorf("create post: %w", err)
		}
		if err := attachCategory(ctx, tx, pid, categoryName); err != nil {
			return err
		}
		post, err = getPost(ctx, tx, pid)
		return err
	})
	if err != nil {
		return nil, err
	}
	return post, nil
}

// ListPosts returns posts newest first, ties broken by id so the order is
// stable.
func (s *Store) ListPosts(ctx context.Context, f PostFilter) ([]models.Post, error) {
	var joins, wheres []string
	var joinArgs, whereArgs []any

	if f.Category != "" {
		joins = append(joins, "JOIN post_categories pc ON pc.post_id = p.id JOIN categories c ON c.id = pc.category_id")
		wheres = append(wheres, "c.name = ?")
		whereArgs = append(whereArgs, f.Category)
	}
	if f.LikedBy != 0 {
		joins = append(joins, "JOIN likes lk ON lk.post_id = p.id AND lk.user_id = ?")
		joinArgs = append(joinArgs, f.LikedBy)
	}
	if f.AuthorID != 0 {
		wheres = append(wheres, "p.user_id = ?")
		whereArgs = append(whereArgs, f.AuthorID)
	}

	q := postColumns
	if len(joins) > 0 {
		q += " " + strings.Join(joins, " ")
	}
	if len(wheres) > 0 {
		q += " WHERE " + strings.Join(wheres, " AND ")
	}
	q += " ORDER BY p.created_at DESC, p.id DESC"
	args := append(joinArgs, whereArgs...)
	if f.Limit > 0 {
		q += " LIMIT ?"
		args = append(args, f.Limit)
	}

	rows, err := s.db.QueryContext(ctx, q, args...)
	if err != nil {
		return nil, fmt.Errorf("list posts: %w", err)
	}
	posts := []models.Post{}
	for rows.Next() {
		var p models.Post
		if err := rows.Scan(&p.ID, &p.UserID, &p.Title, &p.Content, &p.CreatedAt, &p.Author, &p.Likes); err != nil {
			rows.Close()
			return nil, fmt.Errorf("list posts: %w", err)
		}
		posts = append(posts, p)
	}
	rows.Close()
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("list posts: %w", err)
	}

	if err := loadCategories(ctx, s.db, posts); err != nil {
		return nil, err
	}
	return posts, nil
}

func (s *Store) ListPostsByAuthor(ctx context.Context, userID int64) ([]models.Post, error) {
	return s.ListPosts(ctx, PostFilter{AuthorID: userID})
}

func (s *Store) GetPost(ctx context.Context, id int64) (*models.Post, error) {
	return getPost(ctx, s.db, id)
}

// UpdatePost overwrites title and content and adds categoryName to the
// post's categories. Existing categories are kept.
func (s *Store) UpdatePost(ctx context.Context, id int64, title, content, categoryName string) (*models.Post, error) {
	title, content, err := validatePost(title, content)
	if err != nil {
		return nil, err
	}

	var post *models.Post
	err = s.withTx(ctx, func(tx *sql.Tx) error {
		res, err := tx.ExecContext(ctx, `UPDATE posts SET title = ?, content = ? WHERE id = ?`, title, content, id)
		if err != nil {
			return fmt.Errorf("update post %d: %w", id, err)
		}
		n, err := affected(res)
		if err != nil {
			return err
		}
		if n == 0 {
			return ErrNotFound
		}
		if err := attachCategory(ctx, tx, id, categoryName); err != nil {
			return err
		}
		post, err = getPost(ctx, tx, id)
		return err
	})
	if err != nil {
		return nil, err
	}
	return post, nil
}

// DeletePost removes the post together with its comments, likes and
// category links.
func (s *Store) DeletePost(ctx context.Context, id int64) error {
	res, err := s.db.ExecContext(ctx, `DELETE FROM posts WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("delete post %d: %w", id, err)
	}
	n, err := affected(res)
	if err != nil {
		return err
	}
	if n == 0 {
		return ErrNotFound
	}
	return nil
}

func getPost(ctx context.Context, q querier, id int64) (*models.Post, error) {
	var p models.Post
	err := q.QueryRowContext(ctx, postColumns+` WHERE p.id = ?`, id).
		Scan(&p.ID, &p.UserID, &p.Title, &p.Content, &p.CreatedAt, &p.Author, &p.Likes)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("get post %d: %w", id, err)
	}
	posts := []models.Post{p}
	if err := loadCategories(ctx, q, posts); err != nil {
		return nil, err
	}
	return &posts[0], nil
}

// loadCategories fills Categories for every post in one query.
func loadCategories(ctx context.Context, q querier, posts []models.Post) error {
	if len(posts) == 0 {
		return nil
	}
	idx := make(map[int64]int, len(posts))
	args := make([]any, 0, len(posts))
	for i := range posts {
		posts[i].Categories = []models.Category{}
		idx[posts[i].ID] = i
		args = append(args, posts[i].ID)
	}
	marks := strings.TrimSuffix(strings.Repeat("?,", len(args)), ",")

	rows, err := q.QueryContext(ctx, `SELECT pc.post_id, c.id, c.name, c.created_at
		FROM post_categories pc JOIN categories c ON c.id = pc.category_id
		WHERE pc.post_id IN (`+marks+`) ORDER BY c.name`, args...)
	if err != nil {
		return fmt.Errorf("load categories: %w", err)
	}
	defer rows.Close()
	for rows.Next() {
		var pid int64
		var c models.Category
		if err := rows.Scan(&pid, &c.ID, &c.Name, &c.CreatedAt); err != nil {
			return fmt.Errorf("load categories: %w", err)
		}
		i := idx[pid]
		posts[i].Categories = append(posts[i].Categories, c)
	}
	return rows.Err()
}
