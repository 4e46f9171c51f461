package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"

	"blog/internal/models"
)

// AddComment stores a comment on the post. Blank content is silently
// ignored: the result is nil with no error.
func (s *Store) AddComment(ctx context.Context, postID, authorID int64, content string) (*models.Comment, error) {
	content = strings.TrimSpace(content)
	if content == "" {
		return nil, nil
	}

	var cm *models.Comment
	err := s.withTx(ctx, func(tx *sql.Tx) error {
		if err := postExists(ctx, tx, postID); err != nil {
			return err
		}
		res, err := tx.ExecContext(ctx,
			`INSERT INTO comments(post_id,user_id,content,created_at) VALUES(?,?,?,?)`,
			postID, authorID, content, s.now())
		if err != nil {
			if foreignKeyViolation(err) {
				return ErrNotFound
			}
			return fmt.Errorf("add comment: %w", err)
		}
		id, err := res.LastInsertId()
		if err != nil {
			return fmt.Errorf("add comment: %w", err)
		}
		cm, err = getComment(ctx, tx, id)
		return err
	})
	if err != nil {
		return nil, err
	}
	return cm, nil
}

// ListComments returns the post's comments oldest first.
func (s *Store) ListComments(ctx context.Context, postID int64) ([]models.Comment, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT c.id, c.post_id, c.user_id, c.content, c.created_at, u.username
		FROM comments c JOIN users u ON u.id = c.user_id
		WHERE c.post_id = ? ORDER BY c.created_at, c.id`, postID)
	if err != nil {
		return nil, fmt.Errorf("list comments: %w", err)
	}
	defer rows.Close()

	comments := []models.Comment{}
	for rows.Next() {
		var cm models.Comment
		if err := rows.Scan(&cm.ID, &cm.PostID, &cm.UserID, &cm.Content, &cm.CreatedAt, &cm.Author); err != nil {
			return nil, fmt.Errorf("list comments: %w", err)
		}
		comments = append(comments, cm)
	}
	return comments, rows.Err()
}

// DeleteComment removes the comment and returns the id of the post it was
// attached to.
func (s *Store) DeleteComment(ctx context.Context, id int64) (int64, error) {
	var postID int64
	err := s.withTx(ctx, func(tx *sql.Tx) error {
		err := tx.QueryRowContext(ctx, `SELECT post_id FROM comments WHERE id = ?`, id).Scan(&postID)
		if errors.Is(err, sql.ErrNoRows) {
			return ErrNotFound
		}
		if err != nil {
			return fmt.Errorf("delete comment %d: %w", id, err)
		}
		if _, err := tx.ExecContext(ctx, `DELETE FROM comments WHERE id = ?`, id); err != nil {
			return fmt.Errorf("delete comment %d: %w", id, err)
		}
		return nil
	})
	if err != nil {
		return 0, err
	}
	return postID, nil
}

func getComment(ctx context.Context, q querier, id int64) (*models.Comment, error) {
	var cm models.Comment
	err := q.QueryRowContext(ctx, `SELECT c.id, c.post_id, c.user_id, c.content, c.created_at, u.username
		FROM comments c JOIN users u ON u.id = c.user_id WHERE c.id = ?`, id).
		Scan(&cm.ID, &cm.PostID, &cm.UserID, &cm.Content, &cm.CreatedAt, &cm.Author)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("get comment %d: %w", id, err)
	}
	return &cm, nil
}

func postExists(ctx context.Context, q querier, postID int64) error {
	var one int
	err := q.QueryRowContext(ctx, `SELECT 1 FROM posts WHERE id = ?`, postID).Scan(&one)
	if errors.Is(err, sql.ErrNoRows) {
		return ErrNotFound
	}
	if err != nil {
		return fmt.Errorf("lookup post %d: %w", postID, err)
	}
	return nil
}
